package lending

import (
	"testing"

	"nhbchain/crypto"
)

type fakeWallet struct {
	balance uint64
}

func (w *fakeWallet) Balance(mint crypto.Address) (uint64, error) {
	return w.balance, nil
}

func TestFlashLoanHonestRepaymentSucceeds(t *testing.T) {
	core := testAddress(t, 1)
	target := testAddress(t, 2)
	mint := testAddress(t, 3)
	market := testAddress(t, 4)

	liquidity := ReserveLiquidity{Mint: mint, MintDecimals: 6, MarketPrice: OneDecimal(), AvailableAmount: 1000}
	cfg := flatConfig(t, 80, 0, 10, 100)
	reserve, err := InitReserve(market, liquidity, cfg, 1000)
	if err != nil {
		t.Fatalf("InitReserve: %v", err)
	}

	wallet := &fakeWallet{balance: 1000}
	invoked := false
	invoke := func(data []byte, aux []crypto.Address) error {
		invoked = true
		if len(data) != 8 {
			t.Fatalf("callback data length = %d, want 8 (no caller prefix in this test)", len(data))
		}
		// Simulate the target program repaying amount+fee before returning.
		wallet.balance += 100 + 1
		return nil
	}

	fee, err := reserve.FlashLoan(core, true, wallet, 100, target, nil, nil, invoke)
	if err != nil {
		t.Fatalf("FlashLoan: %v", err)
	}
	if !invoked {
		t.Fatal("target program was never invoked")
	}
	if fee != 1 {
		t.Fatalf("fee = %d, want 1 (1%% of 100, floored with a nonzero-fee minimum)", fee)
	}
	if reserve.Liquidity.AvailableAmount != 1000 {
		t.Fatalf("available after flash loan = %d, want 1000 (borrowed then fully repaid)", reserve.Liquidity.AvailableAmount)
	}
}

func TestFlashLoanUnderpaidTargetFails(t *testing.T) {
	core := testAddress(t, 1)
	target := testAddress(t, 2)
	mint := testAddress(t, 3)
	market := testAddress(t, 4)

	liquidity := ReserveLiquidity{Mint: mint, MintDecimals: 6, MarketPrice: OneDecimal(), AvailableAmount: 1000}
	cfg := flatConfig(t, 80, 0, 10, 100)
	reserve, err := InitReserve(market, liquidity, cfg, 1000)
	if err != nil {
		t.Fatalf("InitReserve: %v", err)
	}

	wallet := &fakeWallet{balance: 1000}
	invoke := func(data []byte, aux []crypto.Address) error {
		// The principal leaves the supply wallet, and the target returns
		// only the principal, stiffing the fee.
		wallet.balance -= 100
		wallet.balance += 100
		return nil
	}

	if _, err := reserve.FlashLoan(core, true, wallet, 100, target, nil, nil, invoke); err != ErrInsufficientFunds {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestFlashLoanRejectsSelfTarget(t *testing.T) {
	core := testAddress(t, 1)
	mint := testAddress(t, 3)
	market := testAddress(t, 4)

	liquidity := ReserveLiquidity{Mint: mint, MintDecimals: 6, MarketPrice: OneDecimal(), AvailableAmount: 1000}
	cfg := flatConfig(t, 80, 0, 10, 100)
	reserve, err := InitReserve(market, liquidity, cfg, 1000)
	if err != nil {
		t.Fatalf("InitReserve: %v", err)
	}

	wallet := &fakeWallet{balance: 1000}
	invoke := func(data []byte, aux []crypto.Address) error {
		t.Fatal("target should never be invoked when the re-entry guard rejects it")
		return nil
	}

	if _, err := reserve.FlashLoan(core, true, wallet, 100, core, nil, nil, invoke); err != ErrInvalidFlashLoanTargetProgram {
		t.Fatalf("err = %v, want ErrInvalidFlashLoanTargetProgram", err)
	}
}

func TestFlashLoanDisabledByMarket(t *testing.T) {
	core := testAddress(t, 1)
	target := testAddress(t, 2)
	mint := testAddress(t, 3)
	market := testAddress(t, 4)

	liquidity := ReserveLiquidity{Mint: mint, MintDecimals: 6, MarketPrice: OneDecimal(), AvailableAmount: 1000}
	cfg := flatConfig(t, 80, 0, 10, 100)
	reserve, err := InitReserve(market, liquidity, cfg, 1000)
	if err != nil {
		t.Fatalf("InitReserve: %v", err)
	}

	wallet := &fakeWallet{balance: 1000}
	invoke := func(data []byte, aux []crypto.Address) error { return nil }

	if _, err := reserve.FlashLoan(core, false, wallet, 100, target, nil, nil, invoke); err != ErrFlashLoansDisabled {
		t.Fatalf("err = %v, want ErrFlashLoansDisabled", err)
	}
}
