package lending

import (
	"encoding/binary"
	"fmt"

	"nhbchain/crypto"
)

// FlashLoanTarget is the host-supplied callback invoked mid-loan. data is
// the caller-supplied instruction prefix with the 8-byte little-endian
// returnedRequired amount appended, per the wire protocol the target program
// must honor to repay the loan within the same transaction.
type FlashLoanTarget func(data []byte, auxiliaryAccounts []crypto.Address) error

// CustodyWallet is the minimal view flash-loan needs of the reserve's
// liquidity supply wallet: its current balance, read fresh before and after
// the callback.
type CustodyWallet interface {
	Balance(mint crypto.Address) (uint64, error)
}

// FlashLoan executes the §4.5 protocol: record the borrow, call invoke (the
// host callback that moves the funds to targetProgram and runs it against
// auxiliaryAccounts), then verify the supply wallet's balance ends at least
// the fee above its pre-loan reading before crediting the borrow back. The
// engine itself issues no custody command for the principal.
// core is the core program's own address, used for the hard re-entry guard:
// the target may never be the engine itself.
func (r *Reserve) FlashLoan(
	core crypto.Address,
	marketEnableFlashLoans bool,
	wallet CustodyWallet,
	amount uint64,
	targetProgram crypto.Address,
	callerData []byte,
	auxiliaryAccounts []crypto.Address,
	invoke FlashLoanTarget,
) (fee uint64, err error) {
	if !marketEnableFlashLoans {
		return 0, ErrFlashLoansDisabled
	}
	if targetProgram.Equal(core) {
		return 0, ErrInvalidFlashLoanTargetProgram
	}
	if amount == 0 {
		return 0, fmt.Errorf("%w: flash loan amount must be positive", ErrInvalidAmount)
	}

	balanceBefore, err := wallet.Balance(r.Liquidity.Mint)
	if err != nil {
		return 0, err
	}

	fee, err = r.FlashLoanFee(amount)
	if err != nil {
		return 0, err
	}
	expectedAfter, overflowed := addOverflowsU64(balanceBefore, fee)
	if overflowed {
		return 0, ErrMathOverflow
	}
	returnedRequired, overflowed := addOverflowsU64(amount, fee)
	if overflowed {
		return 0, ErrMathOverflow
	}

	if err := r.Liquidity.Borrow(DecimalFromU64(amount)); err != nil {
		return 0, err
	}

	data := make([]byte, len(callerData)+8)
	copy(data, callerData)
	binary.LittleEndian.PutUint64(data[len(callerData):], returnedRequired)

	if err := invoke(data, auxiliaryAccounts); err != nil {
		return 0, err
	}

	if err := r.Liquidity.Repay(amount, DecimalFromU64(amount)); err != nil {
		return 0, err
	}

	balanceAfter, err := wallet.Balance(r.Liquidity.Mint)
	if err != nil {
		return 0, err
	}
	if balanceAfter < expectedAfter {
		return 0, ErrInsufficientFunds
	}
	return fee, nil
}

func addOverflowsU64(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum < a
}
