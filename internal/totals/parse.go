package totals

import (
	"fmt"
	"strings"
)

// ParseDiscountType maps the console's spellings onto a DiscountType.
// "Direct" is the original name of a flat discount. Empty input is Flat.
func ParseDiscountType(s string) (DiscountType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "flat", "direct":
		return Flat, nil
	case "percentage", "percent":
		return Percentage, nil
	default:
		return "", &AmountError{Field: "discountType", Reason: fmt.Sprintf("unknown discount type %q", s)}
	}
}

// ParseTaxMode accepts flatAmount or percentageOfNet, case-insensitively.
func ParseTaxMode(s string) (TaxMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "flatamount", "flat":
		return FlatAmount, nil
	case "percentageofnet", "percentage":
		return PercentageOfNet, nil
	default:
		return "", &AmountError{Field: "taxMode", Reason: fmt.Sprintf("unknown tax mode %q", s)}
	}
}
