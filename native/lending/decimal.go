package lending

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// scale is the fixed-point denominator shared by every Decimal and Rate
// value: an integer amount of 1.0 is represented internally as 1*scale.
var scale = mustBigInt("1000000000000000000") // 1e18

var halfScale = new(big.Int).Rsh(scale, 1)

// decimalBound is the exclusive upper bound for the unsigned 192-bit
// integer backing a Decimal. Any operation whose result would reach or
// exceed this bound fails with ErrMathOverflow instead of wrapping.
var decimalBound = new(big.Int).Lsh(big.NewInt(1), 192)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("lending: invalid big integer constant " + value)
	}
	return v
}

// Decimal is an unsigned fixed-point number scaled by 1e18, backed by an
// integer that must fit in 192 bits. All arithmetic is checked: overflow,
// underflow and division by zero surface as ErrMathOverflow.
type Decimal struct {
	v *big.Int
}

// ZeroDecimal returns the additive identity.
func ZeroDecimal() Decimal { return Decimal{v: big.NewInt(0)} }

// OneDecimal returns the multiplicative identity (the integer 1).
func OneDecimal() Decimal { return Decimal{v: new(big.Int).Set(scale)} }

// DecimalFromU64 lifts an integer amount into fixed-point form (x * 1e18).
func DecimalFromU64(x uint64) Decimal {
	return Decimal{v: new(big.Int).Mul(new(big.Int).SetUint64(x), scale)}
}

// DecimalFromU128 lifts a big integer amount into fixed-point form.
func DecimalFromU128(x *big.Int) (Decimal, error) {
	if x == nil || x.Sign() < 0 {
		return Decimal{}, fmt.Errorf("%w: negative amount", ErrMathOverflow)
	}
	v := new(big.Int).Mul(x, scale)
	if v.Cmp(decimalBound) >= 0 {
		return Decimal{}, ErrMathOverflow
	}
	return Decimal{v: v}, nil
}

// DecimalFromRaw wraps an already-scaled integer (i.e. a value already
// multiplied by 1e18). Used when deserializing SDecimal words.
func DecimalFromRaw(raw *big.Int) (Decimal, error) {
	if raw == nil || raw.Sign() < 0 {
		return Decimal{}, fmt.Errorf("%w: negative raw decimal", ErrMathOverflow)
	}
	if raw.Cmp(decimalBound) >= 0 {
		return Decimal{}, ErrMathOverflow
	}
	return Decimal{v: new(big.Int).Set(raw)}, nil
}

// DecimalFromPercent converts a percentage in [0,100] into p * 1e16.
func DecimalFromPercent(p PercentageInt) Decimal {
	return Decimal{v: new(big.Int).Mul(big.NewInt(int64(p)), mustBigInt("10000000000000000"))}
}

// Raw exposes the underlying scaled integer. Callers must not mutate it.
func (d Decimal) Raw() *big.Int {
	if d.v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(d.v)
}

// IsZero reports whether the value is exactly zero.
func (d Decimal) IsZero() bool { return d.v == nil || d.v.Sign() == 0 }

// Cmp compares two decimals, returning -1, 0 or 1.
func (d Decimal) Cmp(o Decimal) int { return d.Raw().Cmp(o.Raw()) }

// Float64 converts to a float64 for observability export. Precision beyond
// float64's mantissa is lost; callers must not use this for accounting.
func (d Decimal) Float64() float64 {
	f := new(big.Float).SetInt(d.Raw())
	f.Quo(f, new(big.Float).SetInt(scale))
	result, _ := f.Float64()
	return result
}

// String renders the decimal with 18 fractional digits for diagnostics.
func (d Decimal) String() string {
	raw := d.Raw()
	whole := new(big.Int).Quo(raw, scale)
	frac := new(big.Int).Mod(raw, scale)
	return fmt.Sprintf("%s.%018s", whole.String(), frac.String())
}

// MarshalJSON renders the decimal string form used by the admin HTTP
// surface; it is not the on-disk encoding, which is SDecimal's fixed words.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func checkBound(v *big.Int) (Decimal, error) {
	if v.Sign() < 0 || v.Cmp(decimalBound) >= 0 {
		return Decimal{}, ErrMathOverflow
	}
	return Decimal{v: v}, nil
}

// TryAdd performs checked addition.
func (d Decimal) TryAdd(o Decimal) (Decimal, error) {
	return checkBound(new(big.Int).Add(d.Raw(), o.Raw()))
}

// TrySub performs checked subtraction; a negative result is reported as
// ErrMathOverflow since Decimal is unsigned.
func (d Decimal) TrySub(o Decimal) (Decimal, error) {
	return checkBound(new(big.Int).Sub(d.Raw(), o.Raw()))
}

// TryMul computes (a*b)/scale with the intermediate product checked against
// the 192-bit bound before the division narrows it back down.
func (d Decimal) TryMul(o Decimal) (Decimal, error) {
	product := new(big.Int).Mul(d.Raw(), o.Raw())
	if product.Cmp(decimalBound) >= 0 {
		return Decimal{}, ErrMathOverflow
	}
	result := new(big.Int).Quo(product, scale)
	return checkBound(result)
}

// TryDiv computes (a*scale)/b; division by zero reports ErrMathOverflow.
func (d Decimal) TryDiv(o Decimal) (Decimal, error) {
	if o.IsZero() {
		return Decimal{}, ErrMathOverflow
	}
	numerator := new(big.Int).Mul(d.Raw(), scale)
	result := new(big.Int).Quo(numerator, o.Raw())
	return checkBound(result)
}

// TryPow raises the decimal to an integer exponent via exponentiation by
// squaring, matching the reserve's compounding-factor computation.
func (d Decimal) TryPow(exp uint64) (Decimal, error) {
	result := OneDecimal()
	base := d
	var err error
	for exp > 0 {
		if exp&1 == 1 {
			result, err = result.TryMul(base)
			if err != nil {
				return Decimal{}, err
			}
		}
		exp >>= 1
		if exp == 0 {
			break
		}
		base, err = base.TryMul(base)
		if err != nil {
			return Decimal{}, err
		}
	}
	return result, nil
}

// TryRoundU64 adds half a unit then truncates, failing if the result
// exceeds the range of a u64.
func (d Decimal) TryRoundU64() (uint64, error) {
	rounded := new(big.Int).Add(d.Raw(), halfScale)
	rounded.Quo(rounded, scale)
	return bigToU64(rounded)
}

// TryCeilU64 rounds up to the next integer.
func (d Decimal) TryCeilU64() (uint64, error) {
	ceiled := new(big.Int).Add(d.Raw(), new(big.Int).Sub(scale, big.NewInt(1)))
	ceiled.Quo(ceiled, scale)
	return bigToU64(ceiled)
}

// TryFloorU64 truncates toward zero.
func (d Decimal) TryFloorU64() (uint64, error) {
	floored := new(big.Int).Quo(d.Raw(), scale)
	return bigToU64(floored)
}

var maxU64 = new(big.Int).SetUint64(^uint64(0))

func bigToU64(v *big.Int) (uint64, error) {
	if v.Sign() < 0 || v.Cmp(maxU64) > 0 {
		return 0, ErrMathOverflow
	}
	return v.Uint64(), nil
}
