package totals

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Stored line columns are NUMERIC(14, 2) for price and NUMERIC(14, 3) for
// quantity. Entered discount and tax values are NUMERIC(14, 4).
const (
	PricePlaces    = 2
	QuantityPlaces = 3
	EnteredPlaces  = 4

	storedDigits = 14
)

// CheckItems rejects lines the item tables cannot store without rounding.
func CheckItems(items []Item) error {
	for i, it := range items {
		if err := fits(fmt.Sprintf("items[%d].quantity", i), it.Quantity, QuantityPlaces); err != nil {
			return err
		}
		if err := fits(fmt.Sprintf("items[%d].price", i), it.UnitPrice, PricePlaces); err != nil {
			return err
		}
	}
	return nil
}

// CheckEntered rejects an entered discount or tax value with more places
// than the document columns keep.
func CheckEntered(field string, v decimal.Decimal) error {
	return fits(field, v, EnteredPlaces)
}

func fits(field string, v decimal.Decimal, places int32) error {
	if !v.Equal(v.Truncate(places)) {
		return &AmountError{Field: field, Reason: fmt.Sprintf("must have at most %d decimal places", places)}
	}
	limit := decimal.New(1, storedDigits-places)
	if v.Abs().GreaterThanOrEqual(limit) {
		return &AmountError{Field: field, Reason: "must be less than " + limit.String()}
	}
	return nil
}
