package lending

import (
	"strings"
	"testing"

	"nhbchain/crypto"
)

func testAddress(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	var raw [20]byte
	raw[0] = seed
	addr, err := crypto.NewAddress(crypto.BLPrefix, raw[:])
	if err != nil {
		t.Fatalf("testAddress: %v", err)
	}
	return addr
}

func flatConfig(t *testing.T, optimal, minBps, optimalBps, maxBps PercentageInt) ReserveConfig {
	t.Helper()
	cfg := ReserveConfig{
		OptimalUtilization:   optimal,
		LoanToValue:          50,
		LiquidationBonus:     5,
		LiquidationThreshold: 80,
		MinBorrowRate:        MustRate(DecimalFromPercent(minBps)),
		OptimalBorrowRate:    MustRate(DecimalFromPercent(optimalBps)),
		MaxBorrowRate:        MustRate(DecimalFromPercent(maxBps)),
		Fees: ReserveFees{
			BorrowFee:    ZeroDecimal(),
			FlashLoanFee: DecimalFromPercent(1),
		},
		MaxLeverage: Leverage(300),
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config invalid: %v", err)
	}
	return cfg
}

func TestReserveDepositRedeemRoundTrip(t *testing.T) {
	market := testAddress(t, 1)
	mint := testAddress(t, 2)

	liquidity := ReserveLiquidity{Mint: mint, MintDecimals: 6, MarketPrice: OneDecimal()}
	cfg := flatConfig(t, 80, 0, 10, 100)

	reserve, err := InitReserve(market, liquidity, cfg, 1000)
	if err != nil {
		t.Fatalf("InitReserve: %v", err)
	}

	shares, err := reserve.DepositLiquidity(500)
	if err != nil {
		t.Fatalf("DepositLiquidity: %v", err)
	}
	// pool exchange rate is 5 (InitialCollateralRatio) since nothing has been
	// borrowed yet: shares minted = amount * rate.
	if shares != 2500 {
		t.Fatalf("shares = %d, want 2500", shares)
	}

	redeemed, err := reserve.RedeemCollateral(shares)
	if err != nil {
		t.Fatalf("RedeemCollateral: %v", err)
	}
	if redeemed != 500 {
		t.Fatalf("redeemed = %d, want 500", redeemed)
	}
	if reserve.Liquidity.AvailableAmount != 1000 {
		t.Fatalf("available after round trip = %d, want 1000", reserve.Liquidity.AvailableAmount)
	}
}

func TestReserveRedeemInsufficientLiquidity(t *testing.T) {
	market := testAddress(t, 1)
	mint := testAddress(t, 2)
	liquidity := ReserveLiquidity{Mint: mint, MintDecimals: 6, MarketPrice: OneDecimal()}
	cfg := flatConfig(t, 80, 0, 10, 100)

	reserve, err := InitReserve(market, liquidity, cfg, 100)
	if err != nil {
		t.Fatalf("InitReserve: %v", err)
	}
	// Borrow out all available liquidity so redemption has nothing to draw on.
	if err := reserve.Liquidity.Borrow(DecimalFromU64(100)); err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	if _, err := reserve.RedeemCollateral(500); err != ErrInsufficientFunds {
		t.Fatalf("RedeemCollateral err = %v, want ErrInsufficientFunds", err)
	}
}

func TestReserveBorrowAPYAtOptimalUtilization(t *testing.T) {
	market := testAddress(t, 1)
	mint := testAddress(t, 2)
	liquidity := ReserveLiquidity{
		Mint:            mint,
		MintDecimals:    6,
		MarketPrice:     OneDecimal(),
		AvailableAmount: 50,
		BorrowedAmount:  DecimalFromU64(50),
	}
	cfg := flatConfig(t, 50, 0, 10, 100)
	reserve := &Reserve{Market: market, Liquidity: liquidity, Config: cfg}

	util, err := reserve.UtilizationRate()
	if err != nil {
		t.Fatalf("UtilizationRate: %v", err)
	}
	if util.Decimal().Cmp(DecimalFromPercent(50)) != 0 {
		t.Fatalf("utilization = %s, want 0.5", util.Decimal())
	}

	apy, err := reserve.BorrowAPY()
	if err != nil {
		t.Fatalf("BorrowAPY: %v", err)
	}
	if apy.Decimal().Cmp(DecimalFromPercent(10)) != 0 {
		t.Fatalf("apy at optimal utilization = %s, want 0.1 (optimal_borrow_rate)", apy.Decimal())
	}
}

func TestReserveAccrueInterestOverOneYear(t *testing.T) {
	market := testAddress(t, 1)
	mint := testAddress(t, 2)
	liquidity := ReserveLiquidity{
		Mint:                 mint,
		MintDecimals:         6,
		MarketPrice:          OneDecimal(),
		AvailableAmount:      50,
		BorrowedAmount:       DecimalFromU64(50),
		CumulativeBorrowRate: OneDecimal(),
	}
	cfg := flatConfig(t, 50, 0, 10, 100)
	reserve := &Reserve{Market: market, Liquidity: liquidity, Config: cfg}
	reserve.LastUpdate.MarkFresh(0)

	if err := reserve.AccrueInterest(SlotsPerYear); err != nil {
		t.Fatalf("AccrueInterest: %v", err)
	}

	// Continuous compounding of a 10% nominal annual rate across
	// SlotsPerYear slots converges to e^0.1 ~= 1.10517, comfortably inside
	// (55, 56) for a 50-unit starting balance.
	got := reserve.Liquidity.BorrowedAmount
	lower := DecimalFromU64(55)
	upper := DecimalFromU64(56)
	if got.Cmp(lower) <= 0 || got.Cmp(upper) >= 0 {
		t.Fatalf("accrued borrowed amount = %s, want strictly between 55 and 56", got)
	}
	if reserve.Liquidity.CumulativeBorrowRate.Cmp(OneDecimal()) <= 0 {
		t.Fatalf("cumulative borrow rate did not grow: %s", reserve.Liquidity.CumulativeBorrowRate)
	}
}

func TestReserveAccrueInterestNoOpWithinSameSlot(t *testing.T) {
	market := testAddress(t, 1)
	mint := testAddress(t, 2)
	liquidity := ReserveLiquidity{
		Mint:                 mint,
		MintDecimals:         6,
		MarketPrice:          OneDecimal(),
		AvailableAmount:      50,
		BorrowedAmount:       DecimalFromU64(50),
		CumulativeBorrowRate: OneDecimal(),
	}
	cfg := flatConfig(t, 50, 0, 10, 100)
	reserve := &Reserve{Market: market, Liquidity: liquidity, Config: cfg}
	reserve.LastUpdate.MarkFresh(10)

	if err := reserve.AccrueInterest(10); err != nil {
		t.Fatalf("AccrueInterest: %v", err)
	}
	if reserve.Liquidity.BorrowedAmount.Cmp(DecimalFromU64(50)) != 0 {
		t.Fatalf("borrowed amount changed with zero elapsed slots: %s", reserve.Liquidity.BorrowedAmount)
	}
}

func TestReserveFlashLoanFeeMinimumOneUnit(t *testing.T) {
	market := testAddress(t, 1)
	mint := testAddress(t, 2)
	liquidity := ReserveLiquidity{Mint: mint, MintDecimals: 6, MarketPrice: OneDecimal()}
	cfg := flatConfig(t, 80, 0, 10, 100)
	reserve, err := InitReserve(market, liquidity, cfg, 1000)
	if err != nil {
		t.Fatalf("InitReserve: %v", err)
	}

	fee, err := reserve.FlashLoanFee(1)
	if err != nil {
		t.Fatalf("FlashLoanFee: %v", err)
	}
	if fee != 1 {
		t.Fatalf("fee on a tiny flash loan = %d, want 1 (rounded up from a nonzero configured fee)", fee)
	}
}

func TestDecimalStringFormat(t *testing.T) {
	d := DecimalFromU64(7)
	if !strings.HasPrefix(d.String(), "7.") {
		t.Fatalf("String() = %q, want prefix \"7.\"", d.String())
	}
}
