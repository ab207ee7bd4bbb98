package lending

import "fmt"

// ReserveFees groups the fee parameters charged by a reserve.
type ReserveFees struct {
	// BorrowFee is charged as an origination fee on every borrow, expressed
	// directly as a Decimal fraction in [0,1).
	BorrowFee Decimal
	// FlashLoanFee is charged on the amount borrowed via flash-loan, also a
	// Decimal fraction in [0,1).
	FlashLoanFee Decimal
	// HostFeeBps is the percentage (0-100) of the borrow origination fee
	// routed to a host application's fee receiver rather than the reserve's
	// own. Flash-loan fees are not split.
	HostFeeBps PercentageInt
}

// Validate checks that both fee fractions lie in [0,1).
func (f ReserveFees) Validate() error {
	one := OneDecimal()
	if f.BorrowFee.Cmp(one) >= 0 {
		return fmt.Errorf("%w: borrow fee must be < 1", ErrConfigInvalid)
	}
	if f.FlashLoanFee.Cmp(one) >= 0 {
		return fmt.Errorf("%w: flash loan fee must be < 1", ErrConfigInvalid)
	}
	if err := f.HostFeeBps.Validate(); err != nil {
		return err
	}
	return nil
}

// ReserveConfig holds the per-reserve risk parameters validated at init and
// re-validated on every update-reserve-config call.
type ReserveConfig struct {
	OptimalUtilization   PercentageInt
	LoanToValue          PercentageInt
	LiquidationBonus     PercentageInt
	LiquidationThreshold PercentageInt
	MinBorrowRate        Rate
	OptimalBorrowRate    Rate
	MaxBorrowRate        Rate
	Fees                 ReserveFees
	MaxLeverage          Leverage
}

// Validate enforces the invariants from §3: liquidation_threshold > LTV,
// min <= optimal <= max borrow rate, LTV < 100 (a zero LTV disables the
// reserve as usable collateral rather than being an error).
func (c ReserveConfig) Validate() error {
	if err := c.OptimalUtilization.Validate(); err != nil {
		return err
	}
	if err := c.LoanToValue.Validate(); err != nil {
		return err
	}
	if err := c.LiquidationBonus.Validate(); err != nil {
		return err
	}
	if err := c.LiquidationThreshold.Validate(); err != nil {
		return err
	}
	if c.LoanToValue >= 100 {
		return fmt.Errorf("%w: loan_to_value must be < 100", ErrConfigInvalid)
	}
	if c.LiquidationThreshold <= c.LoanToValue {
		return fmt.Errorf("%w: liquidation_threshold must exceed loan_to_value", ErrConfigInvalid)
	}
	minRate := c.MinBorrowRate.Decimal()
	optRate := c.OptimalBorrowRate.Decimal()
	maxRate := c.MaxBorrowRate.Decimal()
	if minRate.Cmp(optRate) > 0 {
		return fmt.Errorf("%w: min_borrow_rate must be <= optimal_borrow_rate", ErrConfigInvalid)
	}
	if optRate.Cmp(maxRate) > 0 {
		return fmt.Errorf("%w: optimal_borrow_rate must be <= max_borrow_rate", ErrConfigInvalid)
	}
	if err := c.Fees.Validate(); err != nil {
		return err
	}
	if err := c.MaxLeverage.Validate(); err != nil {
		return err
	}
	return nil
}

// UsableAsCollateral reports whether a zero LTV has disabled this reserve as
// usable collateral, per §3.
func (c ReserveConfig) UsableAsCollateral() bool {
	return c.LoanToValue > 0
}
