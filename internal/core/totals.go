package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleTotals is an immutable snapshot of the money fields of a sale.
// Build one with RecomputeTotals or ApplyPayment and write it back with Apply.
type SaleTotals struct {
	Subtotal        decimal.Decimal
	DiscountPercent decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	PaidAmount      decimal.Decimal
	IsPaid          bool
	PaidAt          *time.Time
}

// LineTotal is price × quantity rounded to cents.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return Round2(price.Mul(decimal.NewFromInt(int64(quantity))))
}

// SubtotalOf sums the totals of every line.
func SubtotalOf(items []SaleItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Total)
	}
	return Round2(sum)
}

// TotalsOf reads the current money state of a sale.
func TotalsOf(s Sale) SaleTotals {
	return SaleTotals{
		Subtotal:        s.Subtotal,
		DiscountPercent: s.DiscountPercent,
		Discount:        s.Discount,
		Total:           s.Total,
		PaidAmount:      s.PaidAmount,
		IsPaid:          s.IsPaid,
		PaidAt:          s.PaidAt,
	}
}

// WithSubtotal recomputes discount and total for a new subtotal, keeping the rate.
// The paid amount is re-capped at the new total.
func (t SaleTotals) WithSubtotal(subtotal decimal.Decimal) SaleTotals {
	t.Subtotal = Round2(subtotal)
	t.Discount = DiscountAmount(t.Subtotal, t.DiscountPercent)
	t.Total = AfterDiscount(t.Subtotal, t.Discount)
	return t.capped()
}

// WithDiscountPercent recomputes discount and total for a new rate.
func (t SaleTotals) WithDiscountPercent(pct decimal.Decimal) SaleTotals {
	t.DiscountPercent = pct
	return t.WithSubtotal(t.Subtotal)
}

func (t SaleTotals) capped() SaleTotals {
	if t.PaidAmount.GreaterThan(t.Total) {
		t.PaidAmount = t.Total
	}
	if t.PaidAmount.IsNegative() {
		t.PaidAmount = decimal.Zero
	}
	t.IsPaid = isPaid(t.PaidAmount, t.Total)
	if t.PaidAmount.IsZero() {
		t.PaidAt = nil
	}
	return t
}

// Remaining is the amount still due.
func (t SaleTotals) Remaining() decimal.Decimal {
	return decimal.Max(decimal.Zero, t.Total.Sub(t.PaidAmount))
}

func isPaid(paid, total decimal.Decimal) bool {
	return total.IsPositive() && paid.GreaterThanOrEqual(total)
}

// RecomputeTotals derives the totals of sale from its current line items.
func RecomputeTotals(sale Sale, items []SaleItem) SaleTotals {
	return TotalsOf(sale).WithSubtotal(SubtotalOf(items))
}

// ApplyPayment adds amount to the paid balance, capped at the total.
func (t SaleTotals) ApplyPayment(amount decimal.Decimal, at time.Time) SaleTotals {
	t.PaidAmount = decimal.Min(t.Total, t.PaidAmount.Add(Round2(amount)))
	t.IsPaid = isPaid(t.PaidAmount, t.Total)
	t.PaidAt = &at
	return t
}

// ClearPayment resets the payment state.
func (t SaleTotals) ClearPayment() SaleTotals {
	t.PaidAmount = decimal.Zero
	t.IsPaid = false
	t.PaidAt = nil
	return t
}

// Apply copies the snapshot onto a sale and returns it.
func (t SaleTotals) Apply(s Sale) Sale {
	s.Subtotal = t.Subtotal
	s.DiscountPercent = t.DiscountPercent
	s.Discount = t.Discount
	s.Total = t.Total
	s.PaidAmount = t.PaidAmount
	s.IsPaid = t.IsPaid
	s.PaidAt = t.PaidAt
	return s
}
