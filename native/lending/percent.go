package lending

import "fmt"

// PercentageInt is an integer percentage in [0,100], used throughout reserve
// and market configuration for LTV, thresholds and fee shares.
type PercentageInt uint8

// Validate reports ErrConfigInvalid if the percentage exceeds 100.
func (p PercentageInt) Validate() error {
	if p > 100 {
		return fmt.Errorf("%w: percentage %d exceeds 100", ErrConfigInvalid, p)
	}
	return nil
}

// Leverage is an integer percentage of at least 100 (100 == 1x). It governs
// the maximum multiplier permitted for yield-farming obligations.
type Leverage uint64

// Validate reports ErrConfigInvalid if the leverage is below 1x.
func (l Leverage) Validate() error {
	if l < 100 {
		return fmt.Errorf("%w: leverage %d below 100", ErrConfigInvalid, l)
	}
	return nil
}

// Decimal converts the leverage multiplier into fixed-point form, e.g. 300
// (3x) becomes 3.0.
func (l Leverage) Decimal() Decimal {
	num := DecimalFromU64(uint64(l))
	hundred := DecimalFromU64(100)
	out, err := num.TryDiv(hundred)
	if err != nil {
		return ZeroDecimal()
	}
	return out
}
