// Package totals computes invoice and quotation totals from line items.
//
// Amounts are kept at full decimal precision. Rounding to two places is a
// presentation step (see Totals.Rounded) and is never fed back into further
// arithmetic.
package totals

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for negative monetary input or an unknown
// discount type or tax mode.
var ErrInvalidAmount = errors.New("totals: invalid amount")

// AmountError names the input that was rejected.
type AmountError struct {
	Field  string
	Reason string
}

func (e *AmountError) Error() string {
	return "totals: invalid amount: " + e.Field + ": " + e.Reason
}

func (e *AmountError) Unwrap() error { return ErrInvalidAmount }

// DiscountType selects how a discount value is interpreted.
type DiscountType string

const (
	Flat       DiscountType = "flat"
	Percentage DiscountType = "percentage"
)

// TaxMode selects how the tax amount is derived.
type TaxMode string

const (
	// FlatAmount takes the tax value as a precomputed amount.
	FlatAmount TaxMode = "flatAmount"
	// PercentageOfNet applies TaxRate percent to subtotal minus discount.
	PercentageOfNet TaxMode = "percentageOfNet"
)

// DefaultTaxRate is the quotation tax rate in percent.
var DefaultTaxRate = decimal.NewFromInt(10)

var hundred = decimal.NewFromInt(100)

// Item is a single invoice or quotation line.
type Item struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"price"`
}

// Total is quantity times unit price, recomputed on every call.
func (it Item) Total() decimal.Decimal {
	return it.Quantity.Mul(it.UnitPrice)
}

// LineTotal returns item.Total().
func LineTotal(item Item) decimal.Decimal {
	return item.Total()
}

// Discount is the discount entered for a document.
type Discount struct {
	Value decimal.Decimal
	Type  DiscountType
}

// Totals is the derived summary of a document.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	GrandTotal     decimal.Decimal `json:"grandTotal"`
}

// Net is subtotal minus the applied discount.
func (t Totals) Net() decimal.Decimal {
	return t.Subtotal.Sub(t.DiscountAmount)
}

// Rounded returns a copy with every amount rounded to two decimal places.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:       t.Subtotal.Round(2),
		DiscountAmount: t.DiscountAmount.Round(2),
		TaxAmount:      t.TaxAmount.Round(2),
		GrandTotal:     t.GrandTotal.Round(2),
	}
}

// Calculator applies one tax policy. The zero value uses FlatAmount.
type Calculator struct {
	TaxMode TaxMode
	TaxRate decimal.Decimal
}

var (
	// Invoice takes tax as an entered amount.
	Invoice = Calculator{TaxMode: FlatAmount}
	// Quotation charges DefaultTaxRate percent of the net amount.
	Quotation = Calculator{TaxMode: PercentageOfNet, TaxRate: DefaultTaxRate}
)

// Compute derives totals for items. The discount amount is clamped to
// [0, subtotal]; negative inputs are rejected rather than clamped.
func (c Calculator) Compute(items []Item, discount Discount, taxValue decimal.Decimal) (Totals, error) {
	subtotal := decimal.Zero
	for i, it := range items {
		if it.Quantity.IsNegative() {
			return Totals{}, &AmountError{Field: fmt.Sprintf("items[%d].quantity", i), Reason: "must not be negative"}
		}
		if it.UnitPrice.IsNegative() {
			return Totals{}, &AmountError{Field: fmt.Sprintf("items[%d].price", i), Reason: "must not be negative"}
		}
		subtotal = subtotal.Add(it.Total())
	}
	if discount.Value.IsNegative() {
		return Totals{}, &AmountError{Field: "discount", Reason: "must not be negative"}
	}
	if taxValue.IsNegative() {
		return Totals{}, &AmountError{Field: "taxAmount", Reason: "must not be negative"}
	}

	var discountAmount decimal.Decimal
	switch discount.Type {
	case Flat, "":
		discountAmount = discount.Value
	case Percentage:
		discountAmount = subtotal.Mul(discount.Value).Div(hundred)
	default:
		return Totals{}, &AmountError{Field: "discountType", Reason: fmt.Sprintf("unknown discount type %q", discount.Type)}
	}
	discountAmount = clamp(discountAmount, decimal.Zero, subtotal)
	net := subtotal.Sub(discountAmount)

	var taxAmount decimal.Decimal
	switch c.TaxMode {
	case FlatAmount, "":
		taxAmount = taxValue
	case PercentageOfNet:
		if c.TaxRate.IsNegative() {
			return Totals{}, &AmountError{Field: "taxRate", Reason: "must not be negative"}
		}
		taxAmount = net.Mul(c.TaxRate).Div(hundred)
	default:
		return Totals{}, &AmountError{Field: "taxMode", Reason: fmt.Sprintf("unknown tax mode %q", c.TaxMode)}
	}

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxAmount:      taxAmount,
		GrandTotal:     net.Add(taxAmount),
	}, nil
}

// ComputeTotals computes totals with the invoice policy, where taxValue is
// taken as a flat amount.
func ComputeTotals(items []Item, discountValue decimal.Decimal, discountType DiscountType, taxValue decimal.Decimal) (Totals, error) {
	return Invoice.Compute(items, Discount{Value: discountValue, Type: discountType}, taxValue)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
