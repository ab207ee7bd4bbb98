package lending

import "math/big"

// rateBound restricts a Rate's integer portion to fit in a u64: APRs and
// utilisation ratios never need the full 192-bit range Decimal allows.
var rateBound = new(big.Int).Mul(new(big.Int).SetUint64(^uint64(0)), scale)

// Rate is a Decimal bounded to values whose integer part fits in a u64. It
// is used for interest rates and utilisation ratios, where a 192-bit range
// is unnecessary headroom.
type Rate struct {
	d Decimal
}

// NewRate validates and wraps a Decimal as a Rate.
func NewRate(d Decimal) (Rate, error) {
	if d.Raw().Cmp(rateBound) >= 0 {
		return Rate{}, ErrMathOverflow
	}
	return Rate{d: d}, nil
}

// MustRate panics if the supplied decimal does not fit the rate bound. Used
// for constants known to be in range.
func MustRate(d Decimal) Rate {
	r, err := NewRate(d)
	if err != nil {
		panic(err)
	}
	return r
}

// Decimal widens the rate back into the unbounded Decimal type.
func (r Rate) Decimal() Decimal { return r.d }

// ZeroRate returns the zero rate.
func ZeroRate() Rate { return Rate{d: ZeroDecimal()} }

// MarshalJSON delegates to the wrapped decimal's string form.
func (r Rate) MarshalJSON() ([]byte, error) { return r.d.MarshalJSON() }
