package lending

import (
	"fmt"
	"math/big"

	"nhbchain/crypto"
)

// OraclePriceStatus mirrors the trading-status enum carried by the external
// price feed. Only Trading prices are trusted by refresh-reserve.
type OraclePriceStatus int

const (
	OracleStatusUnknown OraclePriceStatus = iota
	OracleStatusTrading
	OracleStatusHalted
)

// OraclePrice is the external price record consumed by refresh-reserve. The
// engine treats the wire format as out of scope (§1) and only depends on
// this tuple having been decoded by the host.
type OraclePrice struct {
	Price     int64
	Expo      int32
	ValidSlot uint64
	Status    OraclePriceStatus
}

// OracleProduct carries the companion product metadata identifying which
// currency the price is quoted in.
type OracleProduct struct {
	QuoteCurrencyIsUSD bool
	QuoteCurrencyMint  crypto.Address
}

var pow10Cache = map[uint]*big.Int{}

func pow10(n uint) *big.Int {
	if v, ok := pow10Cache[n]; ok {
		return v
	}
	v := new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(uint64(n)), nil)
	pow10Cache[n] = v
	return v
}

// MarketPrice converts the raw oracle tuple into a Decimal, validating
// freshness and sign per §6 of the design: price*10^expo, rejecting a
// negative price, an expo whose magnitude would overflow a u64 power of ten,
// and a valid_slot OracleStaleAfterSlotsElapsed or more slots behind the
// current slot.
func (o OraclePrice) MarketPrice(currentSlot uint64) (Decimal, error) {
	if o.Status != OracleStatusTrading {
		return Decimal{}, fmt.Errorf("%w: oracle not trading", ErrOracleInvalid)
	}
	if o.Price < 0 {
		return Decimal{}, fmt.Errorf("%w: negative oracle price", ErrOracleInvalid)
	}
	if currentSlot >= o.ValidSlot && currentSlot-o.ValidSlot >= OracleStaleAfterSlotsElapsed {
		return Decimal{}, fmt.Errorf("%w: oracle price stale", ErrOracleInvalid)
	}

	magnitude := o.Expo
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if magnitude > 19 {
		// 10^20 no longer fits in a u64; reject early rather than building
		// an enormous big.Int for a clearly bogus exponent.
		return Decimal{}, fmt.Errorf("%w: oracle expo overflow", ErrOracleInvalid)
	}

	priceDecimal, err := DecimalFromU128(big.NewInt(o.Price))
	if err != nil {
		return Decimal{}, err
	}

	if o.Expo == 0 {
		return priceDecimal, nil
	}
	if o.Expo > 0 {
		factor, err := DecimalFromU128(pow10(uint(o.Expo)))
		if err != nil {
			return Decimal{}, err
		}
		return priceDecimal.TryMul(factor)
	}
	factor, err := DecimalFromU128(pow10(uint(-o.Expo)))
	if err != nil {
		return Decimal{}, err
	}
	return priceDecimal.TryDiv(factor)
}

// ValidateQuoteCurrency checks that the reserve's quote currency matches the
// market's configured quote currency (a USD sentinel or a specific mint).
func (p OracleProduct) ValidateQuoteCurrency(marketQuoteIsUSD bool, marketQuoteMint crypto.Address) error {
	if marketQuoteIsUSD != p.QuoteCurrencyIsUSD {
		return fmt.Errorf("%w: quote currency kind mismatch", ErrOracleInvalid)
	}
	if !marketQuoteIsUSD && !marketQuoteMint.Equal(p.QuoteCurrencyMint) {
		return fmt.Errorf("%w: quote currency mint mismatch", ErrOracleInvalid)
	}
	return nil
}
