package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderNumberPrefix is the human-facing prefix for storefront orders.
const OrderNumberPrefix = "ORD-"

// OrderDealerName is the synthetic dealer that hosts sales generated from shipped orders.
const OrderDealerName = "Order"

// OrderNotePrefix starts the notes of every sale produced by the order bridge.
const OrderNotePrefix = "Sipariş:"

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderApproved  OrderStatus = "APPROVED"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderApproved, OrderShipped, OrderCancelled:
		return true
	}
	return false
}

// Order is a storefront checkout. Its total is tax-inclusive (TPS + TVQ).
// Status progresses through:
//
//	PENDING → APPROVED → SHIPPED → CANCELLED
//	PENDING | APPROVED → CANCELLED
//	CANCELLED → SHIPPED
type Order struct {
	ID              int             `json:"id"`
	OrderNumber     string          `json:"order_number"`
	CustomerName    string          `json:"customer_name"`
	Status          OrderStatus     `json:"status"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Discount        decimal.Decimal `json:"discount"`
	TPS             decimal.Decimal `json:"tps"`
	TVQ             decimal.Decimal `json:"tvq"`
	Total           decimal.Decimal `json:"total"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ShippedAt       *time.Time      `json:"shipped_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID          int             `json:"id"`
	OrderID     int             `json:"order_id"`
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
}
