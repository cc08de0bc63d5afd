// Package pricing holds the single pricing function used for carts, orders and invoices.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line is the priced result for one (product, quantity) pair.
type Line struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

// TaxAmount returns round(price * rate / 100, 2).
func TaxAmount(price, rate decimal.Decimal) decimal.Decimal {
	return price.Mul(rate).Div(hundred).Round(2)
}

// LineTotal returns round((price + tax) * quantity, 2).
func LineTotal(price, rate decimal.Decimal, quantity int) decimal.Decimal {
	tax := TaxAmount(price, rate)
	return price.Add(tax).Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Price validates the inputs and computes a Line.
func Price(price, rate decimal.Decimal, quantity int) (Line, error) {
	if price.IsNegative() {
		return Line{}, fmt.Errorf("price cannot be negative: %s", price)
	}
	if rate.IsNegative() {
		return Line{}, fmt.Errorf("tax rate cannot be negative: %s", rate)
	}
	if quantity < 1 {
		return Line{}, fmt.Errorf("quantity must be at least 1, got %d", quantity)
	}
	return Line{
		UnitPrice: price,
		TaxRate:   rate,
		TaxAmount: TaxAmount(price, rate),
		Quantity:  quantity,
		Total:     LineTotal(price, rate, quantity),
	}, nil
}

// Sum adds line totals.
func Sum(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total)
	}
	return total
}
