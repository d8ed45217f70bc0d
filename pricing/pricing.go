// Package pricing computes order totals and applies the two kinds of price
// adjustment: a manual override and a percentage discount.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"posterminal/models"
)

// CurrencyPlaces is the precision totals are persisted and shown with.
const CurrencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Round rounds to currency precision, half away from zero. Amounts are never
// negative, so this is half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// Total sums unitPrice × quantity at full precision and rounds once.
func Total(lines []models.OrderLine) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return Round(sum)
}

// ValidateAmount rejects negative amounts.
func ValidateAmount(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: %s must be >= 0, got %s", models.ErrInvalidArgument, field, d)
	}
	return nil
}

// Override replaces the order total.
func Override(order *models.Order, newTotal decimal.Decimal) error {
	if err := ValidateAmount("total", newTotal); err != nil {
		return err
	}
	snapshotOriginal(order)
	order.Total = Round(newTotal)
	order.DiscountPercent = nil
	return nil
}

// Discount sets the total to the original total less percent. It is always
// computed from the original, so applying it twice gives the same result.
func Discount(order *models.Order, percent decimal.Decimal) error {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return fmt.Errorf("%w: discount must be within [0, 100], got %s", models.ErrInvalidArgument, percent)
	}
	snapshotOriginal(order)
	factor := decimal.NewFromInt(1).Sub(percent.Div(hundred))
	order.Total = Round(order.OriginalTotal.Mul(factor))
	order.DiscountPercent = &percent
	return nil
}

// snapshotOriginal records the pre-adjustment total the first time only.
func snapshotOriginal(order *models.Order) {
	if order.OriginalTotal != nil {
		return
	}
	original := order.Total
	order.OriginalTotal = &original
}
