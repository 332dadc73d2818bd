package core

import "github.com/shopspring/decimal"

// Quebec sales taxes applied on the order checkout path.
var (
	TPSRate = decimal.RequireFromString("0.05")
	TVQRate = decimal.RequireFromString("0.09975")
)

var hundred = decimal.NewFromInt(100)

// TaxBreakdown is the result of running a subtotal through the calculator.
type TaxBreakdown struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Discount        decimal.Decimal `json:"discount"`
	AfterDiscount   decimal.Decimal `json:"after_discount"`
	TPS             decimal.Decimal `json:"tps"`
	TVQ             decimal.Decimal `json:"tvq"`
	Total           decimal.Decimal `json:"total"`
}

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DiscountAmount returns subtotal × percent / 100, rounded to cents.
func DiscountAmount(subtotal, percent decimal.Decimal) decimal.Decimal {
	if !percent.IsPositive() {
		return decimal.Zero
	}
	return Round2(subtotal.Mul(percent).Div(hundred))
}

// AfterDiscount is max(0, subtotal - discount).
func AfterDiscount(subtotal, discount decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, subtotal.Sub(discount))
}

// CalculateTaxes computes discount, TPS, TVQ and the tax-inclusive total.
// Rounding happens after every multiplication, not once at the end.
func CalculateTaxes(subtotal, discountPercent decimal.Decimal) TaxBreakdown {
	discount := DiscountAmount(subtotal, discountPercent)
	after := AfterDiscount(subtotal, discount)
	tps := Round2(after.Mul(TPSRate))
	tvq := Round2(after.Mul(TVQRate))

	return TaxBreakdown{
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		Discount:        discount,
		AfterDiscount:   after,
		TPS:             tps,
		TVQ:             tvq,
		Total:           Round2(after.Add(tps).Add(tvq)),
	}
}

// ValidDiscountPercent reports whether p is within 0..100 with at most two decimals,
// the precision percentages are stored with.
func ValidDiscountPercent(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred) && p.Equal(p.Round(2))
}
