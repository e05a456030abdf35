package pricing

import "github.com/shopspring/decimal"

var (
	// TaxRate is the GST applied to the discounted subtotal.
	TaxRate = decimal.New(18, -2)

	// FreeShippingThreshold waives the shipping cost entirely once the
	// subtotal exceeds it, regardless of the selected method.
	FreeShippingThreshold = decimal.NewFromInt(2999)
)

// Line is one priced cart row: the locked unit price and its quantity.
type Line struct {
	Price    decimal.Decimal
	Quantity int
}

// Summary is the derived pricing breakdown for a cart. It is recomputed on
// every read and never stored.
type Summary struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Shipping  decimal.Decimal `json:"shipping"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// Compute derives the cart summary from the active lines, the applied
// discount percentage, and the nominal cost of the chosen shipping method.
// It is pure: same inputs, same outputs.
func Compute(lines []Line, discountPercent int, shippingCost decimal.Decimal) Summary {
	var summary Summary
	summary.Subtotal = decimal.Zero
	for _, line := range lines {
		summary.Subtotal = summary.Subtotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		summary.ItemCount += line.Quantity
	}

	if discountPercent < 0 {
		discountPercent = 0
	}
	summary.Discount = summary.Subtotal.
		Mul(decimal.NewFromInt(int64(discountPercent))).
		Div(decimal.NewFromInt(100)).
		Round(2)
	// An oversized discount must never drive the totals negative.
	if summary.Discount.GreaterThan(summary.Subtotal) {
		summary.Discount = summary.Subtotal
	}

	summary.Shipping = shippingCost
	if summary.Subtotal.GreaterThan(FreeShippingThreshold) {
		summary.Shipping = decimal.Zero
	}

	taxable := summary.Subtotal.Sub(summary.Discount)
	summary.Tax = taxable.Mul(TaxRate).Round(2)

	summary.Total = summary.Subtotal.Sub(summary.Discount).Add(summary.Shipping).Add(summary.Tax)
	if summary.Total.IsNegative() {
		summary.Total = decimal.Zero
	}
	return summary
}
