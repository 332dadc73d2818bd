package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleNumberPrefix marks sales created through the dealer invoice flow.
// Only sales carrying this prefix accept item additions.
const SaleNumberPrefix = "SAL-"

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCard   PaymentMethod = "CARD"
	PaymentCheck  PaymentMethod = "CHECK"
	PaymentUnpaid PaymentMethod = "UNPAID"
)

// Valid reports whether m is one of the four accepted payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentCheck, PaymentUnpaid:
		return true
	}
	return false
}

// Dealer is a wholesale customer with a standing discount.
type Dealer struct {
	ID              int             `json:"id"`
	CompanyName     string          `json:"company_name"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Product is the catalog view the ledger needs. Stock is counted in boxes of PackSize units.
type Product struct {
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	PackSize   int             `json:"pack_size"`
	TrackStock bool            `json:"track_stock"`
}

// Sale is one invoice. IsSaved separates working drafts from the permanent invoice list.
//
// Invariants kept by every lifecycle operation:
//
//	Total      = max(0, Subtotal - Discount)
//	PaidAmount <= Total
//	IsPaid     <=> PaidAmount >= Total && Total > 0
type Sale struct {
	ID              int             `json:"id"`
	SaleNumber      string          `json:"sale_number"`
	DealerID        int             `json:"dealer_id"`
	DealerName      string          `json:"dealer_name,omitempty"` // joined from dealers
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	IsPaid          bool            `json:"is_paid"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	IsSaved         bool            `json:"is_saved"`
	OrderID         *int            `json:"order_id,omitempty"` // set when created by the order bridge
	Items           []SaleItem      `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Remaining returns the amount still due on the sale.
func (s *Sale) Remaining() decimal.Decimal {
	return decimal.Max(decimal.Zero, s.Total.Sub(s.PaidAmount))
}

// SaleItem is one product line within a sale. Price is a snapshot taken when the line was added.
type SaleItem struct {
	ID          int             `json:"id"`
	SaleID      int             `json:"sale_id"`
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"` // joined from products
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
}

// ItemInput is a requested product/quantity pair.
type ItemInput struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}
