package core

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount that encodes to JSON as a string with exactly two
// fraction digits ("180.00", not "180").
type Money decimal.Decimal

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + decimal.Decimal(m).StringFixed(2) + `"`), nil
}

// The model types below keep decimal.Decimal for arithmetic and override only their
// amount fields on the wire. An outer field wins over the embedded one with the same name.

func (d Dealer) MarshalJSON() ([]byte, error) {
	type dealer Dealer
	return json.Marshal(struct {
		dealer
		DiscountPercent Money `json:"discount_percent"`
	}{dealer(d), Money(d.DiscountPercent)})
}

func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	return json.Marshal(struct {
		product
		Price Money `json:"price"`
	}{product(p), Money(p.Price)})
}

func (s Sale) MarshalJSON() ([]byte, error) {
	type sale Sale
	return json.Marshal(struct {
		sale
		Subtotal        Money `json:"subtotal"`
		DiscountPercent Money `json:"discount_percent"`
		Discount        Money `json:"discount"`
		Total           Money `json:"total"`
		PaidAmount      Money `json:"paid_amount"`
	}{
		sale(s),
		Money(s.Subtotal), Money(s.DiscountPercent), Money(s.Discount), Money(s.Total), Money(s.PaidAmount),
	})
}

func (it SaleItem) MarshalJSON() ([]byte, error) {
	type saleItem SaleItem
	return json.Marshal(struct {
		saleItem
		Price Money `json:"price"`
		Total Money `json:"total"`
	}{saleItem(it), Money(it.Price), Money(it.Total)})
}

func (o Order) MarshalJSON() ([]byte, error) {
	type order Order
	return json.Marshal(struct {
		order
		Subtotal        Money `json:"subtotal"`
		DiscountPercent Money `json:"discount_percent"`
		Discount        Money `json:"discount"`
		TPS             Money `json:"tps"`
		TVQ             Money `json:"tvq"`
		Total           Money `json:"total"`
	}{
		order(o),
		Money(o.Subtotal), Money(o.DiscountPercent), Money(o.Discount), Money(o.TPS), Money(o.TVQ), Money(o.Total),
	})
}

func (it OrderItem) MarshalJSON() ([]byte, error) {
	type orderItem OrderItem
	return json.Marshal(struct {
		orderItem
		Price Money `json:"price"`
		Total Money `json:"total"`
	}{orderItem(it), Money(it.Price), Money(it.Total)})
}

func (b TaxBreakdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Subtotal        Money `json:"subtotal"`
		DiscountPercent Money `json:"discount_percent"`
		Discount        Money `json:"discount"`
		AfterDiscount   Money `json:"after_discount"`
		TPS             Money `json:"tps"`
		TVQ             Money `json:"tvq"`
		Total           Money `json:"total"`
	}{
		Money(b.Subtotal), Money(b.DiscountPercent), Money(b.Discount), Money(b.AfterDiscount),
		Money(b.TPS), Money(b.TVQ), Money(b.Total),
	})
}

func (r PaymentResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Sale       Sale  `json:"sale"`
		PaidAmount Money `json:"paid_amount"`
		Remaining  Money `json:"remaining"`
	}{r.Sale, Money(r.PaidAmount), Money(r.Remaining)})
}
