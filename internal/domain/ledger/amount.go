package ledger

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount normalizes heterogeneous amount representations into a
// canonical decimal. Numbers pass through as-is; strings are stripped of
// currency symbols, currency codes and thousands separators before
// parsing. Anything unparseable yields zero — billing registers come from
// hand-filled forms and a garbage amount must not break the merge.
func ParseAmount(v any) decimal.Decimal {
	switch x := v.(type) {
	case decimal.Decimal:
		return x
	case float64:
		return decimal.NewFromFloat(x)
	case float32:
		return decimal.NewFromFloat32(x)
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case json.Number:
		return parseAmountString(x.String())
	case string:
		return parseAmountString(x)
	default:
		return decimal.Zero
	}
}

func parseAmountString(s string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-':
			return r
		default:
			// drops $, commas, spaces, currency codes
			return -1
		}
	}, s)
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FlexAmount is a decimal that unmarshals from either a JSON number or a
// formatted currency string ("$1,000.00"). It never fails to unmarshal.
type FlexAmount struct {
	decimal.Decimal
}

// NewFlexAmount wraps a decimal in a FlexAmount
func NewFlexAmount(d decimal.Decimal) FlexAmount {
	return FlexAmount{Decimal: d}
}

// UnmarshalJSON implements json.Unmarshaler
func (a *FlexAmount) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		a.Decimal = decimal.Zero
		return nil
	}
	a.Decimal = ParseAmount(v)
	return nil
}

// MarshalJSON implements json.Marshaler
func (a FlexAmount) MarshalJSON() ([]byte, error) {
	return a.Decimal.MarshalJSON()
}
