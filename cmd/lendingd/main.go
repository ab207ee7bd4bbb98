// Command lendingd is the admin CLI and read-only HTTP surface for the
// collateralized borrow-lending engine: it constructs init-market and
// init-reserve records and, via the serve subcommand, exposes current
// in-memory state and Prometheus metrics for operators.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"

	"nhbchain/cmd/internal/passphrase"
	"nhbchain/cmd/lendingd/adminhttp"
	"nhbchain/config"
	"nhbchain/crypto"
	"nhbchain/native/lending"
	"nhbchain/observability/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfgPath := envOr("LENDINGD_CONFIG", "./lendingd.toml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fail("load config", err)
	}
	logger := logging.Setup("lendingd", cfg.Env, cfg.LogFile)

	var cmdErr error
	switch os.Args[1] {
	case "init-market":
		cmdErr = runInitMarket(os.Args[2:])
	case "init-reserve":
		cmdErr = runInitReserve(os.Args[2:])
	case "serve":
		cmdErr = runServe(cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if cmdErr != nil {
		fail(os.Args[1], cmdErr)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage:
  lendingd --cluster {devnet|mainnet|localnet} --payer <keypair> --blp <program-id> init-market --keypair <m.json> --oracle <pk> [--usd | --currency <pk>] [--bot <pk>]
  lendingd … init-reserve --keypair <r.json> --market <pk> --liquidity-mint <pk> --oracle-product <pk> --oracle-price <pk> --source-wallet <pk> --amount N --config <path-or-json>
  lendingd serve`)
}

func fail(op string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", op, err)
	os.Exit(1)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runInitMarket(args []string) error {
	fs := flag.NewFlagSet("init-market", flag.ContinueOnError)
	keypair := fs.String("keypair", "", "path to the market's keypair file")
	oracle := fs.String("oracle", "", "oracle product account")
	useUSD := fs.Bool("usd", false, "quote currency is USD")
	currency := fs.String("currency", "", "quote currency token mint, when not USD")
	bot := fs.String("bot", "", "admin-bot principal")
	_ = fs.String("cluster", envOr("CLUSTER", "devnet"), "target cluster")
	_ = fs.String("payer", envOr("PAYER", ""), "fee payer keypair")
	_ = fs.String("blp", envOr("BLP", ""), "core program id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_ = *oracle

	owner, err := loadOwnerAddress(*keypair)
	if err != nil {
		return fmt.Errorf("load owner keypair: %w", err)
	}
	var quoteMint crypto.Address
	if !*useUSD {
		if *currency == "" {
			return fmt.Errorf("either --usd or --currency is required")
		}
		quoteMint, err = crypto.DecodeAddress(*currency)
		if err != nil {
			return fmt.Errorf("decode --currency: %w", err)
		}
	}

	market, err := lending.InitMarket(owner, *useUSD, quoteMint)
	if err != nil {
		return err
	}
	if *bot != "" {
		botAddr, err := crypto.DecodeAddress(*bot)
		if err != nil {
			return fmt.Errorf("decode --bot: %w", err)
		}
		market.AdminBot = botAddr
	}

	correlationID := uuid.NewString()
	fmt.Printf("init-market ok correlation=%s owner=%s flash_loans=%v\n", correlationID, market.Owner.String(), market.EnableFlashLoans)
	return nil
}

func runInitReserve(args []string) error {
	fs := flag.NewFlagSet("init-reserve", flag.ContinueOnError)
	keypair := fs.String("keypair", "", "path to the reserve's keypair file")
	marketFlag := fs.String("market", envOr("MARKET", ""), "owning market account")
	liquidityMint := fs.String("liquidity-mint", envOr("LIQUIDITY_MINT", ""), "liquidity token mint")
	amount := fs.Uint64("amount", 0, "initial liquidity amount")
	_ = fs.String("oracle-product", "", "oracle product account")
	_ = fs.String("oracle-price", "", "oracle price account")
	_ = fs.String("source-wallet", "", "funder's source wallet")
	_ = fs.String("config", "", "path to a reserve config TOML/JSON file")
	_ = fs.String("reserve-liq-wallet", "", "reserve liquidity supply wallet keypair")
	_ = fs.String("reserve-col-wallet", "", "reserve collateral supply wallet keypair")
	_ = fs.String("collateral-mint", "", "collateral share mint keypair")
	_ = fs.String("fee-receiver", "", "origination fee receiver wallet")
	_ = fs.String("dest-wallet", "", "funder's destination wallet for initial shares")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := loadOwnerAddress(*keypair); err != nil {
		return fmt.Errorf("load reserve keypair: %w", err)
	}
	marketAddr, err := crypto.DecodeAddress(*marketFlag)
	if err != nil {
		return fmt.Errorf("decode --market: %w", err)
	}
	mint, err := crypto.DecodeAddress(*liquidityMint)
	if err != nil {
		return fmt.Errorf("decode --liquidity-mint: %w", err)
	}
	if *amount == 0 {
		return fmt.Errorf("%w: --amount must be positive", lending.ErrInvalidAmount)
	}

	reserveCfg := defaultReserveConfigFrom(marketAddr)
	reserve, err := lending.InitReserve(marketAddr, lending.ReserveLiquidity{
		Mint:         mint,
		MintDecimals: 0,
		MarketPrice:  lending.OneDecimal(),
	}, reserveCfg, *amount)
	if err != nil {
		return err
	}

	correlationID := uuid.NewString()
	fmt.Printf("init-reserve ok correlation=%s available=%d shares=%d\n", correlationID, reserve.Liquidity.AvailableAmount, reserve.Collateral.ShareMintTotalSupply)
	return nil
}

// defaultReserveConfigFrom returns a fixed, built-in ReserveConfig. Neither
// the --config flag nor the config file's DefaultReserve section is read.
func defaultReserveConfigFrom(market crypto.Address) lending.ReserveConfig {
	_ = market
	return lending.ReserveConfig{
		OptimalUtilization:   80,
		LoanToValue:          50,
		LiquidationBonus:     5,
		LiquidationThreshold: 80,
		MinBorrowRate:        lending.ZeroRate(),
		OptimalBorrowRate:    lending.MustRate(lending.DecimalFromPercent(10)),
		MaxBorrowRate:        lending.MustRate(lending.OneDecimal()),
		Fees: lending.ReserveFees{
			BorrowFee:    lending.ZeroDecimal(),
			FlashLoanFee: lending.ZeroDecimal(),
		},
		MaxLeverage: lending.Leverage(300),
	}
}

// loadOwnerAddress derives the signer address from a hex-encoded private
// key file. Encrypted keystores are prompted for a passphrase instead.
func loadOwnerAddress(path string) (crypto.Address, error) {
	if path == "" {
		return crypto.Address{}, fmt.Errorf("keypair path is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return crypto.Address{}, err
	}
	if looksEncrypted(raw) {
		phrase, err := passphrase.Prompt()
		if err != nil {
			return crypto.Address{}, err
		}
		key, err := crypto.LoadFromKeystore(path, phrase)
		if err != nil {
			return crypto.Address{}, err
		}
		return key.PubKey().Address(), nil
	}
	keyBytes, err := hex.DecodeString(string(raw))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("decode keypair file: %w", err)
	}
	key, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		return crypto.Address{}, err
	}
	return key.PubKey().Address(), nil
}

func looksEncrypted(raw []byte) bool {
	return len(raw) > 0 && raw[0] == '{'
}

// runServe starts the read-only admin HTTP surface. State is empty until
// the host process wires in its own persistence layer; this command exists
// to give operators a place to observe reserves and obligations once it is.
func runServe(cfg *config.Config, logger *slog.Logger) error {
	core, err := cfg.CoreAddress()
	if err != nil {
		return err
	}
	engine := lending.NewEngine(core)
	server := adminhttp.New(engine, adminhttp.NewMetrics())

	logger.Info("admin http listening", "addr", cfg.AdminListenAddress)
	return http.ListenAndServe(cfg.AdminListenAddress, server)
}
