package auction

import (
	"fmt"
	"math"
	"strconv"
)

// Amount is a monetary value in minor currency units (cents).
type Amount int64

// MinorUnit is the smallest representable step, one cent.
const MinorUnit Amount = 1

// maxAmount bounds conversions from float64 so the cent value stays exactly representable.
const maxAmount = 1 << 53

// AmountFromFloat converts a decimal amount to cents. It rejects non-finite
// values, amounts outside the representable range and fractions of a cent.
func AmountFromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ValidationError{Reason: "bid amount must be a number"}
	}
	cents := f * 100
	if math.Abs(cents) >= maxAmount {
		return 0, &ValidationError{Reason: "bid amount is out of range"}
	}
	rounded := math.Round(cents)
	if math.Abs(cents-rounded) > 1e-6 {
		return 0, &ValidationError{Reason: "bid amount cannot have more than two decimal places"}
	}
	return Amount(rounded), nil
}

// Float64 returns the amount as a decimal number of currency units.
func (a Amount) Float64() float64 {
	return float64(a) / 100
}

// String formats the amount as a two-decimal fixed-point string.
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON decodes a JSON number. Server-supplied values are rounded to the nearest cent.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", b, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f*100) >= maxAmount {
		return fmt.Errorf("invalid amount %s", b)
	}
	*a = Amount(math.Round(f * 100))
	return nil
}

// MaxAmount returns the larger of a and b.
func MaxAmount(a, b Amount) Amount {
	if a > b {
		return a
	}
	return b
}
