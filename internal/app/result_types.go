package app

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"dealer-ledger/internal/core"
)

// SaleResult is returned by single-sale operations.
type SaleResult struct {
	Sale      *core.Sale      `json:"sale"`
	Remaining decimal.Decimal `json:"remaining"`
}

func (r SaleResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Sale      *core.Sale `json:"sale"`
		Remaining core.Money `json:"remaining"`
	}{r.Sale, core.Money(r.Remaining)})
}

// SaleListResult is returned by ListSalesForDealer and ListInvoices.
type SaleListResult struct {
	Sales        []core.Sale     `json:"sales"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	TotalPending decimal.Decimal `json:"total_pending"`
}

func (r SaleListResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Sales        []core.Sale `json:"sales"`
		TotalAmount  core.Money  `json:"total_amount"`
		TotalPaid    core.Money  `json:"total_paid"`
		TotalPending core.Money  `json:"total_pending"`
	}{r.Sales, core.Money(r.TotalAmount), core.Money(r.TotalPaid), core.Money(r.TotalPending)})
}

// OrderResult is returned by order operations.
type OrderResult struct {
	Order *core.Order `json:"order"`
}

// OrderListResult is returned by ListOrders.
type OrderListResult struct {
	Orders []core.Order `json:"orders"`
}
