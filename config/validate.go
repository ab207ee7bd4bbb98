package config

import "fmt"

// Validate rejects configuration values that would make the admin process
// or the engine's freshness windows behave nonsensically.
func (c *Config) Validate() error {
	if c.AdminListenAddress == "" {
		return fmt.Errorf("config: AdminListenAddress must not be empty")
	}
	if c.OracleStaleAfterSlots == 0 {
		return fmt.Errorf("config: OracleStaleAfterSlots must be > 0")
	}
	if c.MarketStaleAfterSlots == 0 {
		return fmt.Errorf("config: MarketStaleAfterSlots must be > 0")
	}
	r := c.DefaultReserve
	if r.LoanToValue >= 100 {
		return fmt.Errorf("config: DefaultReserve.LoanToValue must be < 100")
	}
	if r.LiquidationThreshold <= r.LoanToValue {
		return fmt.Errorf("config: DefaultReserve.LiquidationThreshold must exceed LoanToValue")
	}
	if r.MinBorrowRateBps > r.OptimalBorrowRateBps || r.OptimalBorrowRateBps > r.MaxBorrowRateBps {
		return fmt.Errorf("config: DefaultReserve borrow rates must satisfy min <= optimal <= max")
	}
	if r.MaxLeverage < 100 {
		return fmt.Errorf("config: DefaultReserve.MaxLeverage must be >= 100")
	}
	return nil
}
