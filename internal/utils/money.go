package utils

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNonPositiveAmount is returned when a charge amount does not
// convert to at least one minor unit.
var ErrNonPositiveAmount = errors.New("amount must be positive")

// ToMinorUnits converts a major-unit amount (e.g. dollars) to the
// gateway's minor units (cents), rounding half away from zero.  Going
// through decimal avoids the float drift of amount*100.
func ToMinorUnits(amount float64) (int64, error) {
	minor := decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0)
	if !minor.IsPositive() {
		return 0, ErrNonPositiveAmount
	}
	return minor.IntPart(), nil
}

// FromMinorUnits converts a minor-unit amount back to major units.
func FromMinorUnits(minor int64) float64 {
	f, _ := decimal.New(minor, -2).Float64()
	return f
}
