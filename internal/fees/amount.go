package fees

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxRate is the VAT applied to taxed services.
var TaxRate = decimal.RequireFromString("0.16")

// Amount is a money value that always renders as a JSON number with two decimals.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d without rounding it.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.StringFixed(2)), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", data, err)
	}
	a.Decimal = d
	return nil
}

// roundCents rounds half away from zero to two decimals.
func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
