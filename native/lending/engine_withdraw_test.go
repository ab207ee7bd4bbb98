package lending

import (
	"testing"

	"nhbchain/crypto"
)

// TestEngineWithdrawCollateralIgnoresValueCheckWithoutBorrows reproduces the
// exchange-rate scenario from withdraw_obligation_collateral.rs: 80
// collateral shares back only 16 of market value at a 5:1 bootstrap
// exchange rate. With no borrows outstanding the full deposit must be
// withdrawable; bounding the check on share count instead of
// collateral.market_value would wrongly reject it as WithdrawTooLarge.
func TestEngineWithdrawCollateralIgnoresValueCheckWithoutBorrows(t *testing.T) {
	core := testAddress(t, 0)
	marketAddr := testAddress(t, 1)
	collateralReserveAddr := testAddress(t, 2)
	obligationAddr := testAddress(t, 3)
	owner := testAddress(t, 4)
	collateralMint := testAddress(t, 5)
	recipient := testAddress(t, 6)

	state := newMockEngineState()
	engine := NewEngine(core)
	engine.SetState(state)

	market, err := InitMarket(owner, true, crypto.Address{})
	if err != nil {
		t.Fatalf("InitMarket: %v", err)
	}
	if err := state.PutMarket(marketAddr, market); err != nil {
		t.Fatal(err)
	}

	collateralConfig := flatConfig(t, 80, 0, 10, 100)
	// initialAmount of 16 against the 5:1 bootstrap ratio mints 80 shares,
	// so 80 deposited shares are worth 16 of market value.
	collateralReserve, err := InitReserve(marketAddr, ReserveLiquidity{
		Mint: collateralMint, MintDecimals: 0, MarketPrice: OneDecimal(),
	}, collateralConfig, 16)
	if err != nil {
		t.Fatalf("InitReserve(collateral): %v", err)
	}
	collateralReserve.LastUpdate.MarkFresh(0)
	if err := state.PutReserve(collateralReserveAddr, collateralReserve); err != nil {
		t.Fatal(err)
	}

	if err := engine.InitObligation(obligationAddr, marketAddr, owner); err != nil {
		t.Fatalf("InitObligation: %v", err)
	}
	if _, err := engine.DepositObligationCollateral(obligationAddr, collateralReserveAddr, owner, 80, 0); err != nil {
		t.Fatalf("DepositObligationCollateral: %v", err)
	}
	if err := engine.RefreshObligation(obligationAddr, 0); err != nil {
		t.Fatalf("RefreshObligation: %v", err)
	}

	obligation, err := state.GetObligation(obligationAddr)
	if err != nil || obligation == nil {
		t.Fatalf("GetObligation: %v", err)
	}
	index := obligation.findCollateral(collateralReserveAddr)
	if index < 0 {
		t.Fatal("collateral slot not found")
	}
	if got, err := obligation.Reserves[index].Collateral.MarketValue.TryRoundU64(); err != nil || got != 16 {
		t.Fatalf("collateral market value = %v (%v), want 16", got, err)
	}

	cmds, err := engine.WithdrawObligationCollateral(obligationAddr, collateralReserveAddr, 80, index, recipient, 0)
	if err != nil {
		t.Fatalf("WithdrawObligationCollateral: %v", err)
	}
	if len(cmds) != 1 || cmds[0].Amount != 80 || !cmds[0].To.Equal(recipient) {
		t.Fatalf("cmds = %+v, want single 80-share transfer to recipient", cmds)
	}

	obligation, err = state.GetObligation(obligationAddr)
	if err != nil || obligation == nil {
		t.Fatalf("GetObligation after withdraw: %v", err)
	}
	if obligation.findCollateral(collateralReserveAddr) >= 0 {
		t.Fatal("collateral slot should be cleared after a full withdrawal")
	}
}

// TestEngineWithdrawCollateralBoundedByMaxWithdrawValueWithBorrows exercises
// the percentage-of-slot-value bound once the obligation carries a borrow:
// a quarter of the deposit may be withdrawn, but not more.
func TestEngineWithdrawCollateralBoundedByMaxWithdrawValueWithBorrows(t *testing.T) {
	engine, state, _, collateralReserveAddr, borrowReserveAddr, obligationAddr, owner := setupCollateralAndBorrowReserves(t)

	if _, err := engine.DepositObligationCollateral(obligationAddr, collateralReserveAddr, owner, 500, 0); err != nil {
		t.Fatalf("DepositObligationCollateral: %v", err)
	}
	if err := engine.RefreshObligation(obligationAddr, 0); err != nil {
		t.Fatalf("RefreshObligation: %v", err)
	}
	if _, err := engine.BorrowObligationLiquidity(obligationAddr, borrowReserveAddr, owner, 25, StandardLoan(), 0); err != nil {
		t.Fatalf("BorrowObligationLiquidity: %v", err)
	}
	if err := engine.RefreshObligation(obligationAddr, 0); err != nil {
		t.Fatalf("RefreshObligation after borrow: %v", err)
	}

	obligation, err := state.GetObligation(obligationAddr)
	if err != nil || obligation == nil {
		t.Fatalf("GetObligation: %v", err)
	}
	index := obligation.findCollateral(collateralReserveAddr)
	if index < 0 {
		t.Fatal("collateral slot not found")
	}

	// 500 shares at a 5:1 bootstrap rate and $1 price are worth $100; a 50%
	// LTV allows $50 of borrowing, and the $25 borrow leaves $25 of
	// headroom, i.e. a quarter of the deposit (125 shares) may be
	// withdrawn but no more.
	if _, err := engine.WithdrawObligationCollateral(obligationAddr, collateralReserveAddr, 126, index, owner, 0); err != ErrWithdrawTooLarge {
		t.Fatalf("WithdrawObligationCollateral(126) err = %v, want ErrWithdrawTooLarge", err)
	}
	if _, err := engine.WithdrawObligationCollateral(obligationAddr, collateralReserveAddr, 125, index, owner, 0); err != nil {
		t.Fatalf("WithdrawObligationCollateral(125): %v", err)
	}
}
