package app

import (
	"github.com/shopspring/decimal"

	"dealer-ledger/internal/core"
)

// CreateSaleRequest is the input for booking a new dealer sale.
type CreateSaleRequest struct {
	DealerID      int
	Items         []core.ItemInput
	PaymentMethod string
	Notes         string // empty means no notes
}

// AddItemsRequest appends lines to an existing sale.
type AddItemsRequest struct {
	DealerID int
	SaleID   int
	Items    []core.ItemInput
}

// RecordPaymentRequest is the input for recording money received against a sale.
type RecordPaymentRequest struct {
	DealerID        int
	SaleID          int
	Amount          *decimal.Decimal
	PaymentMethod   string
	DiscountPercent *decimal.Decimal // nil keeps the sale's current rate
}

// PlaceOrderRequest is a storefront checkout.
type PlaceOrderRequest struct {
	CustomerName    string
	Items           []core.ItemInput
	DiscountPercent decimal.Decimal
}
