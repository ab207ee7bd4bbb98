// Package config loads the deployment-level settings for the lending admin
// process: where the core program's own address lives (needed for the
// flash-loan re-entry guard), the admin HTTP/metrics listen address, and a
// DefaultReserve section of reserve risk parameters. DefaultReserve is
// validated and written to a newly created file; init-reserve does not read
// it.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"nhbchain/crypto"
)

// DefaultReserveConfig mirrors native/lending's ReserveConfig shape in plain
// integers/strings so it round-trips through TOML without pulling the
// lending package's Decimal/Rate types into the config surface.
type DefaultReserveConfig struct {
	OptimalUtilization   uint8  `toml:"OptimalUtilization"`
	LoanToValue          uint8  `toml:"LoanToValue"`
	LiquidationBonus     uint8  `toml:"LiquidationBonus"`
	LiquidationThreshold uint8  `toml:"LiquidationThreshold"`
	MinBorrowRateBps     uint16 `toml:"MinBorrowRateBps"`
	OptimalBorrowRateBps uint16 `toml:"OptimalBorrowRateBps"`
	MaxBorrowRateBps     uint16 `toml:"MaxBorrowRateBps"`
	BorrowFeeBps         uint16 `toml:"BorrowFeeBps"`
	FlashLoanFeeBps      uint16 `toml:"FlashLoanFeeBps"`
	HostFeeBps           uint8  `toml:"HostFeeBps"`
	MaxLeverage          uint16 `toml:"MaxLeverage"`
}

// Config is the top-level lendingd configuration file.
type Config struct {
	DataDir               string               `toml:"DataDir"`
	AdminListenAddress    string               `toml:"AdminListenAddress"`
	LogFile               string               `toml:"LogFile"`
	Env                   string               `toml:"Env"`
	CoreProgramAddress    string               `toml:"CoreProgramAddress"`
	OracleStaleAfterSlots uint64               `toml:"OracleStaleAfterSlots"`
	MarketStaleAfterSlots uint64               `toml:"MarketStaleAfterSlots"`
	DefaultReserve        DefaultReserveConfig `toml:"DefaultReserve"`
}

// Load reads the configuration from path, writing a default file in its
// place if none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:               "./lendingd-data",
		AdminListenAddress:    ":8090",
		Env:                   "dev",
		OracleStaleAfterSlots: 5,
		MarketStaleAfterSlots: 1,
		DefaultReserve: DefaultReserveConfig{
			OptimalUtilization:   80,
			LoanToValue:          50,
			LiquidationBonus:     5,
			LiquidationThreshold: 80,
			OptimalBorrowRateBps: 1000,
			MaxBorrowRateBps:     10000,
			MaxLeverage:          300,
		},
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: write default %s: %w", path, err)
	}
	return cfg, nil
}

// CoreAddress parses CoreProgramAddress into a crypto.Address, used by the
// engine's flash-loan re-entry guard.
func (c *Config) CoreAddress() (crypto.Address, error) {
	if c.CoreProgramAddress == "" {
		return crypto.Address{}, fmt.Errorf("config: CoreProgramAddress is required")
	}
	return crypto.DecodeAddress(c.CoreProgramAddress)
}
