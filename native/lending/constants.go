package lending

// Protocol-wide constants. These sizes are pinned into the persisted record
// layouts; changing any of them is a data migration, not a configuration
// change.
const (
	// MaxObligationReserves bounds the number of heterogeneous collateral
	// and liquidity positions a single obligation can hold.
	MaxObligationReserves = 10
	// MaxEmittedTokens bounds the number of reward streams a single
	// EmissionStrategy can pay out.
	MaxEmittedTokens = 5
	// SnapshotRingSize is the capacity of a reserve's append-only capacity
	// snapshot ring buffer.
	SnapshotRingSize = 1000

	// InitialCollateralRatio is the number of collateral shares minted per
	// unit of liquidity the very first time a reserve is initialised.
	InitialCollateralRatio = 5

	// OracleStaleAfterSlotsElapsed bounds how far behind the current slot an
	// oracle's last valid slot may be before refresh-reserve rejects it.
	OracleStaleAfterSlotsElapsed = 5
	// MarketStaleAfterSlotsElapsed bounds how long a reserve or obligation
	// may go without a refresh before dependent operations must refuse it.
	MarketStaleAfterSlotsElapsed = 1

	// SlotsPerYear approximates network slot production for APY-to-per-slot
	// rate conversion.
	SlotsPerYear = 63_072_000

	// SlotsPerWeek gates how long after an emission strategy ends before its
	// wallets may be reclaimed by close-emission.
	SlotsPerWeek = 604_800

	// LiquidationCloseAmount is the outstanding-debt threshold (in whole
	// liquidity units) at or below which a liquidation always closes the position
	// out entirely rather than being bounded by the close factor.
	LiquidationCloseAmount = 2
)

// LiquidationCloseFactor bounds the fraction of outstanding debt that may be
// liquidated in one call once the debt is large enough that close-out isn't
// automatic. Expressed directly in fixed point (0.5 == 50%).
var LiquidationCloseFactor = DecimalFromPercent(50)
