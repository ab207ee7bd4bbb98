package lending

import "errors"

// Error kinds returned by the lending engine. Every arithmetic failure,
// regardless of which operator triggered it, surfaces as ErrMathOverflow so
// callers can treat it as a single non-recoverable kind.
var (
	ErrConfigInvalid       = errors.New("lending: config invalid")
	ErrPrincipalMismatch   = errors.New("lending: principal mismatch")
	ErrMarketMismatch      = errors.New("lending: market mismatch")
	ErrAccountMismatch     = errors.New("lending: account mismatch")
	ErrReserveStale        = errors.New("lending: reserve stale")
	ErrObligationStale     = errors.New("lending: obligation stale")
	ErrOracleInvalid       = errors.New("lending: oracle invalid")
	ErrMathOverflow        = errors.New("lending: math overflow")
	ErrInvalidAmount       = errors.New("lending: invalid amount")
	ErrInsufficientFunds   = errors.New("lending: insufficient funds")
	ErrBorrowTooLarge      = errors.New("lending: borrow too large")
	ErrBorrowTooSmall      = errors.New("lending: borrow too small")
	ErrWithdrawTooLarge    = errors.New("lending: withdraw too large")
	ErrRepayTooSmall       = errors.New("lending: repay too small")
	ErrLiquidationTooSmall = errors.New("lending: liquidation too small")
	ErrObligationHealthy   = errors.New("lending: obligation healthy")

	ErrObligationReserveLimit    = errors.New("lending: obligation reserve limit reached")
	ErrObligationCollateralEmpty = errors.New("lending: obligation collateral slot empty")
	ErrObligationLiquidityEmpty  = errors.New("lending: obligation liquidity slot empty")
	ErrMissingReserveAccount     = errors.New("lending: missing reserve account")

	ErrFlashLoansDisabled            = errors.New("lending: flash loans disabled")
	ErrInvalidFlashLoanTargetProgram = errors.New("lending: invalid flash loan target program")

	ErrCannotClaimEmissionFromReserveIndex   = errors.New("lending: cannot claim emission from reserve index")
	ErrMustWaitBeforeEmissionBecomeClaimable = errors.New("lending: must wait before emission becomes claimable")
	ErrEmissionEnded                         = errors.New("lending: emission ended")
	ErrNotEnoughSnapshots                    = errors.New("lending: not enough snapshots")

	ErrCannotUseAsCollateral = errors.New("lending: ltv of zero cannot be used as collateral")
)
