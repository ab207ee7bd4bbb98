package lending

import (
	"fmt"

	"nhbchain/crypto"
	nativecommon "nhbchain/native/common"
)

const moduleName = "lending"

// engineState is the persistence seam the host implements. Every record is
// addressed by its own identity (the account the host allocated for it);
// the engine never invents addresses.
type engineState interface {
	GetMarket(addr crypto.Address) (*LendingMarket, error)
	PutMarket(addr crypto.Address, market *LendingMarket) error
	GetReserve(addr crypto.Address) (*Reserve, error)
	PutReserve(addr crypto.Address, reserve *Reserve) error
	GetObligation(addr crypto.Address) (*Obligation, error)
	PutObligation(addr crypto.Address, obligation *Obligation) error
	GetEmissionStrategy(addr crypto.Address) (*EmissionStrategy, error)
	PutEmissionStrategy(addr crypto.Address, strategy *EmissionStrategy) error
	GetCapSnapshots(reserve crypto.Address) (*ReserveCapSnapshots, error)
	PutCapSnapshots(reserve crypto.Address, snapshots *ReserveCapSnapshots) error
}

// Engine orchestrates every endpoint in the §4.7 catalog against the
// persisted record set. It performs no I/O of its own: every mutating call
// returns the custody commands the host must execute to match the
// in-memory state it just committed.
type Engine struct {
	state  engineState
	core   crypto.Address
	pauses nativecommon.PauseView
}

// NewEngine constructs an engine. core is the program's own identity, used
// as the flash-loan re-entry guard's comparison target.
func NewEngine(core crypto.Address) *Engine {
	return &Engine{core: core}
}

// SetState wires the engine to the host's persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPauses wires the circuit-breaker view used to gate flash loans.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

var errNilState = fmt.Errorf("lending engine: state not configured")

func (e *Engine) requireState() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

// InitMarket creates and persists a new market record.
func (e *Engine) InitMarket(addr, owner crypto.Address, quoteIsUSD bool, quoteMint crypto.Address) error {
	if err := e.requireState(); err != nil {
		return err
	}
	market, err := InitMarket(owner, quoteIsUSD, quoteMint)
	if err != nil {
		return err
	}
	return e.state.PutMarket(addr, market)
}

// SetOwner transfers market ownership.
func (e *Engine) SetOwner(addr, caller, newOwner crypto.Address) error {
	market, err := e.loadMarket(addr)
	if err != nil {
		return err
	}
	if err := market.SetOwner(caller, newOwner); err != nil {
		return err
	}
	return e.state.PutMarket(addr, market)
}

// UpdateMarket applies an owner-gated configuration change.
func (e *Engine) UpdateMarket(addr, caller crypto.Address, update MarketUpdate) error {
	market, err := e.loadMarket(addr)
	if err != nil {
		return err
	}
	if err := market.UpdateMarket(caller, update); err != nil {
		return err
	}
	return e.state.PutMarket(addr, market)
}

// ToggleFlashLoans flips the market-wide flash loan switch.
func (e *Engine) ToggleFlashLoans(addr, caller crypto.Address, enable bool) error {
	market, err := e.loadMarket(addr)
	if err != nil {
		return err
	}
	if err := market.ToggleFlashLoans(caller, enable); err != nil {
		return err
	}
	return e.state.PutMarket(addr, market)
}

// InitReserve validates the oracle pair, seeds the reserve and returns the
// custody command minting the funder's initial collateral shares.
func (e *Engine) InitReserve(
	marketAddr, reserveAddr, funder, shareMint crypto.Address,
	liquidity ReserveLiquidity, config ReserveConfig, initialAmount uint64,
	product OracleProduct, price OraclePrice, currentSlot uint64,
) ([]CustodyCommand, error) {
	market, err := e.loadMarket(marketAddr)
	if err != nil {
		return nil, err
	}
	if err := product.ValidateQuoteCurrency(market.QuoteIsUSD, market.QuoteMint); err != nil {
		return nil, err
	}
	marketPrice, err := price.MarketPrice(currentSlot)
	if err != nil {
		return nil, err
	}
	liquidity.MarketPrice = marketPrice

	reserve, err := InitReserve(marketAddr, liquidity, config, initialAmount)
	if err != nil {
		return nil, err
	}
	reserve.Collateral.ShareMint = shareMint
	reserve.LastUpdate.MarkFresh(currentSlot)

	if err := e.state.PutReserve(reserveAddr, reserve); err != nil {
		return nil, err
	}
	pda := marketPDA(marketAddr)
	shares := reserve.Collateral.ShareMintTotalSupply
	return []CustodyCommand{
		Transfer(reserve.Liquidity.Mint, funder, reserve.Liquidity.SupplyWallet, initialAmount, funder),
		Mint(shareMint, funder, shares, pda),
	}, nil
}

// RefreshReserve re-reads the oracle, accrues interest, and marks fresh.
func (e *Engine) RefreshReserve(addr crypto.Address, price OraclePrice, currentSlot uint64) error {
	reserve, err := e.loadReserve(addr)
	if err != nil {
		return err
	}
	if err := reserve.Refresh(price, currentSlot); err != nil {
		return err
	}
	return e.state.PutReserve(addr, reserve)
}

// UpdateReserveConfig re-validates and swaps a reserve's risk parameters.
func (e *Engine) UpdateReserveConfig(marketAddr, reserveAddr, caller crypto.Address, config ReserveConfig) error {
	market, err := e.loadMarket(marketAddr)
	if err != nil {
		return err
	}
	if !market.Owner.Equal(caller) {
		return fmt.Errorf("%w: caller is not the market owner", ErrPrincipalMismatch)
	}
	if err := config.Validate(); err != nil {
		return err
	}
	reserve, err := e.loadReserve(reserveAddr)
	if err != nil {
		return err
	}
	reserve.Config = config
	return e.state.PutReserve(reserveAddr, reserve)
}

// DepositReserveLiquidity requires a fresh reserve and mints shares.
func (e *Engine) DepositReserveLiquidity(reserveAddr, depositor crypto.Address, amount uint64, currentSlot uint64) ([]CustodyCommand, error) {
	reserve, err := e.loadFreshReserve(reserveAddr, currentSlot)
	if err != nil {
		return nil, err
	}
	shares, err := reserve.DepositLiquidity(amount)
	if err != nil {
		return nil, err
	}
	if err := e.state.PutReserve(reserveAddr, reserve); err != nil {
		return nil, err
	}
	return []CustodyCommand{
		Transfer(reserve.Liquidity.Mint, depositor, reserve.Liquidity.SupplyWallet, amount, depositor),
		Mint(reserve.Collateral.ShareMint, depositor, shares, marketPDA(reserve.Market)),
	}, nil
}

// RedeemReserveCollateral requires a fresh reserve and burns shares.
func (e *Engine) RedeemReserveCollateral(reserveAddr, redeemer crypto.Address, shareAmount uint64, currentSlot uint64) ([]CustodyCommand, error) {
	reserve, err := e.loadFreshReserve(reserveAddr, currentSlot)
	if err != nil {
		return nil, err
	}
	liquidity, err := reserve.RedeemCollateral(shareAmount)
	if err != nil {
		return nil, err
	}
	if err := e.state.PutReserve(reserveAddr, reserve); err != nil {
		return nil, err
	}
	pda := marketPDA(reserve.Market)
	return []CustodyCommand{
		Burn(reserve.Collateral.ShareMint, redeemer, shareAmount, redeemer),
		Transfer(reserve.Liquidity.Mint, reserve.Liquidity.SupplyWallet, redeemer, liquidity, pda),
	}, nil
}

// InitObligation binds a new obligation to its market and owner.
func (e *Engine) InitObligation(addr, marketAddr, owner crypto.Address) error {
	if err := e.requireState(); err != nil {
		return err
	}
	obligation, err := InitObligation(marketAddr, owner)
	if err != nil {
		return err
	}
	return e.state.PutObligation(addr, obligation)
}

// RefreshObligation recomputes aggregates against every referenced reserve.
func (e *Engine) RefreshObligation(addr crypto.Address, currentSlot uint64) error {
	obligation, err := e.loadObligation(addr)
	if err != nil {
		return err
	}
	lookup := func(reserveAddr crypto.Address) (*Reserve, error) {
		return e.loadReserve(reserveAddr)
	}
	if err := obligation.Refresh(lookup, currentSlot); err != nil {
		return err
	}
	return e.state.PutObligation(addr, obligation)
}

// DepositObligationCollateral requires LTV > 0 on the reserve and that the
// depositor is the obligation's owner.
func (e *Engine) DepositObligationCollateral(obligationAddr, reserveAddr, depositor crypto.Address, amount uint64, currentSlot uint64) ([]CustodyCommand, error) {
	obligation, err := e.loadObligation(obligationAddr)
	if err != nil {
		return nil, err
	}
	if !depositor.Equal(obligation.Owner) {
		return nil, ErrPrincipalMismatch
	}
	reserve, err := e.loadReserve(reserveAddr)
	if err != nil {
		return nil, err
	}
	if !reserve.Market.Equal(obligation.Market) {
		return nil, ErrMarketMismatch
	}
	if !reserve.Config.UsableAsCollateral() {
		return nil, ErrCannotUseAsCollateral
	}
	if err := obligation.Deposit(reserveAddr, amount, currentSlot); err != nil {
		return nil, err
	}
	if err := e.state.PutObligation(obligationAddr, obligation); err != nil {
		return nil, err
	}
	return []CustodyCommand{
		Transfer(reserve.Collateral.ShareMint, depositor, reserve.Collateral.SupplyWallet, amount, depositor),
	}, nil
}

// WithdrawObligationCollateral is bounded by the obligation's max withdraw
// value when it carries any borrows; an obligation with no borrows may
// withdraw its full deposit without a value check, matching
// withdraw_obligation_collateral.rs.
func (e *Engine) WithdrawObligationCollateral(obligationAddr, reserveAddr crypto.Address, amount uint64, index int, recipient crypto.Address, currentSlot uint64) ([]CustodyCommand, error) {
	obligation, err := e.loadFreshObligation(obligationAddr, currentSlot)
	if err != nil {
		return nil, err
	}
	reserve, err := e.loadFreshReserve(reserveAddr, currentSlot)
	if err != nil {
		return nil, err
	}
	if !reserve.Market.Equal(obligation.Market) {
		return nil, ErrMarketMismatch
	}
	if index < 0 || index >= len(obligation.Reserves) {
		return nil, fmt.Errorf("%w: slot index out of range", ErrInvalidAmount)
	}
	slot := obligation.Reserves[index]
	if slot.Tag != ObligationReserveCollateral || !slot.Collateral.Reserve.Equal(reserveAddr) {
		return nil, ErrObligationCollateralEmpty
	}
	if !obligation.BorrowedValue.IsZero() {
		withdrawPct, err := DecimalFromU64(amount).TryDiv(DecimalFromU64(slot.Collateral.DepositedAmount))
		if err != nil {
			return nil, err
		}
		withdrawValue, err := slot.Collateral.MarketValue.TryMul(withdrawPct)
		if err != nil {
			return nil, err
		}
		maxWithdrawValue, err := obligation.MaxWithdrawValue()
		if err != nil {
			return nil, err
		}
		if withdrawValue.Cmp(maxWithdrawValue) > 0 {
			return nil, ErrWithdrawTooLarge
		}
	}
	if err := obligation.Withdraw(amount, index, currentSlot); err != nil {
		return nil, err
	}
	if err := e.state.PutObligation(obligationAddr, obligation); err != nil {
		return nil, err
	}
	pda := marketPDA(reserve.Market)
	return []CustodyCommand{
		Transfer(reserve.Collateral.ShareMint, reserve.Collateral.SupplyWallet, recipient, amount, pda),
	}, nil
}

// BorrowObligationLiquidity is bounded by the obligation's remaining
// allowed borrow headroom. The origination fee goes to the reserve's fee
// receiver wallet, except that HostFeeBps percent of it goes to the host fee
// receiver wallet when one is set.
func (e *Engine) BorrowObligationLiquidity(obligationAddr, reserveAddr, borrower crypto.Address, requested uint64, kind LoanKind, currentSlot uint64) ([]CustodyCommand, error) {
	obligation, err := e.loadFreshObligation(obligationAddr, currentSlot)
	if err != nil {
		return nil, err
	}
	if !borrower.Equal(obligation.Owner) {
		return nil, ErrPrincipalMismatch
	}
	reserve, err := e.loadFreshReserve(reserveAddr, currentSlot)
	if err != nil {
		return nil, err
	}
	if !reserve.Market.Equal(obligation.Market) {
		return nil, ErrMarketMismatch
	}
	headroom, err := obligation.AllowedBorrowValue.TrySub(obligation.CollateralizedBorrowedValue)
	if err != nil {
		return nil, err
	}
	borrowAmount, originationFee, err := reserve.BorrowAmountWithFees(requested, headroom, kind)
	if err != nil {
		return nil, err
	}
	netAmount := borrowAmount - originationFee
	if err := reserve.Liquidity.Borrow(DecimalFromU64(borrowAmount)); err != nil {
		return nil, err
	}
	if err := obligation.Borrow(reserve, reserveAddr, DecimalFromU64(borrowAmount), kind, currentSlot); err != nil {
		return nil, err
	}
	if err := e.state.PutReserve(reserveAddr, reserve); err != nil {
		return nil, err
	}
	if err := e.state.PutObligation(obligationAddr, obligation); err != nil {
		return nil, err
	}
	pda := marketPDA(reserve.Market)
	cmds := []CustodyCommand{
		Transfer(reserve.Liquidity.Mint, reserve.Liquidity.SupplyWallet, borrower, netAmount, pda),
	}
	if originationFee > 0 {
		hostCut := uint64(0)
		if bps := reserve.Config.Fees.HostFeeBps; bps > 0 && !reserve.Liquidity.HostFeeReceiverWallet.IsZero() {
			hostCut = originationFee * uint64(bps) / 100
		}
		if hostCut > 0 {
			cmds = append(cmds, Transfer(reserve.Liquidity.Mint, reserve.Liquidity.SupplyWallet, reserve.Liquidity.HostFeeReceiverWallet, hostCut, pda))
		}
		if reserveCut := originationFee - hostCut; reserveCut > 0 {
			cmds = append(cmds, Transfer(reserve.Liquidity.Mint, reserve.Liquidity.SupplyWallet, reserve.Liquidity.FeeReceiverWallet, reserveCut, pda))
		}
	}
	return cmds, nil
}

// RepayObligationLiquidity may fully clear the matching slot.
func (e *Engine) RepayObligationLiquidity(obligationAddr, reserveAddr, payer crypto.Address, requested uint64, index int, currentSlot uint64) ([]CustodyCommand, error) {
	obligation, err := e.loadObligation(obligationAddr)
	if err != nil {
		return nil, err
	}
	reserve, err := e.loadReserve(reserveAddr)
	if err != nil {
		return nil, err
	}
	slot := obligation.Reserves[index]
	if slot.Tag != ObligationReserveLiquidity {
		return nil, ErrObligationLiquidityEmpty
	}
	settle, repay, err := reserve.CalculateRepay(requested, slot.Liquidity.BorrowedAmount)
	if err != nil {
		return nil, err
	}
	if err := reserve.Liquidity.Repay(repay, settle); err != nil {
		return nil, err
	}
	if err := obligation.Repay(settle, index, currentSlot); err != nil {
		return nil, err
	}
	if err := e.state.PutReserve(reserveAddr, reserve); err != nil {
		return nil, err
	}
	if err := e.state.PutObligation(obligationAddr, obligation); err != nil {
		return nil, err
	}
	return []CustodyCommand{
		Transfer(reserve.Liquidity.Mint, payer, reserve.Liquidity.SupplyWallet, repay, payer),
	}, nil
}

// LiquidateObligation requires the obligation to be unhealthy and executes
// the §4.4 math against the matching repay/withdraw reserve pair.
func (e *Engine) LiquidateObligation(obligationAddr, repayReserveAddr, withdrawReserveAddr, liquidator, destination crypto.Address, amountToLiquidate uint64, currentSlot uint64) (LiquidationResult, []CustodyCommand, error) {
	obligation, err := e.loadFreshObligation(obligationAddr, currentSlot)
	if err != nil {
		return LiquidationResult{}, nil, err
	}
	if obligation.Healthy() {
		return LiquidationResult{}, nil, ErrObligationHealthy
	}
	liquidityIndex := obligation.findLiquidity(repayReserveAddr)
	collateralIndex := obligation.findCollateral(withdrawReserveAddr)
	if liquidityIndex < 0 {
		return LiquidationResult{}, nil, ErrObligationLiquidityEmpty
	}
	if collateralIndex < 0 {
		return LiquidationResult{}, nil, ErrObligationCollateralEmpty
	}

	repayReserve, err := e.loadFreshReserve(repayReserveAddr, currentSlot)
	if err != nil {
		return LiquidationResult{}, nil, err
	}
	if !repayReserve.Market.Equal(obligation.Market) {
		return LiquidationResult{}, nil, ErrMarketMismatch
	}
	withdrawReserve, err := e.loadFreshReserve(withdrawReserveAddr, currentSlot)
	if err != nil {
		return LiquidationResult{}, nil, err
	}
	if !withdrawReserve.Market.Equal(obligation.Market) {
		return LiquidationResult{}, nil, ErrMarketMismatch
	}

	liquidity := obligation.Reserves[liquidityIndex].Liquidity
	collateral := obligation.Reserves[collateralIndex].Collateral
	result, err := CalculateLiquidation(liquidity, collateral, obligation.CollateralizedBorrowedValue, withdrawReserve.Config.LiquidationBonus, amountToLiquidate)
	if err != nil {
		return LiquidationResult{}, nil, err
	}

	if err := repayReserve.Liquidity.Repay(result.RepayAmount, result.SettleAmount); err != nil {
		return LiquidationResult{}, nil, err
	}
	if err := obligation.Repay(result.SettleAmount, liquidityIndex, obligation.LastUpdate.Slot); err != nil {
		return LiquidationResult{}, nil, err
	}
	if err := obligation.Withdraw(result.WithdrawAmount, collateralIndex, obligation.LastUpdate.Slot); err != nil {
		return LiquidationResult{}, nil, err
	}

	if err := e.state.PutReserve(repayReserveAddr, repayReserve); err != nil {
		return LiquidationResult{}, nil, err
	}
	if err := e.state.PutObligation(obligationAddr, obligation); err != nil {
		return LiquidationResult{}, nil, err
	}

	pda := marketPDA(withdrawReserve.Market)
	cmds := []CustodyCommand{
		Transfer(repayReserve.Liquidity.Mint, liquidator, repayReserve.Liquidity.SupplyWallet, result.RepayAmount, liquidator),
		Transfer(withdrawReserve.Collateral.ShareMint, withdrawReserve.Collateral.SupplyWallet, destination, result.WithdrawAmount, pda),
	}
	return result, cmds, nil
}

// FlashLoan gates flash loans on both the market switch and the circuit
// breaker, then executes the §4.5 protocol.
func (e *Engine) FlashLoan(marketAddr, reserveAddr crypto.Address, wallet CustodyWallet, amount uint64, targetProgram crypto.Address, callerData []byte, auxiliaryAccounts []crypto.Address, invoke FlashLoanTarget) (uint64, []CustodyCommand, error) {
	if err := nativecommon.Guard(e.pauses, moduleName+".flash_loan"); err != nil {
		return 0, nil, err
	}
	market, err := e.loadMarket(marketAddr)
	if err != nil {
		return 0, nil, err
	}
	reserve, err := e.loadReserve(reserveAddr)
	if err != nil {
		return 0, nil, err
	}
	fee, err := reserve.FlashLoan(e.core, market.EnableFlashLoans, wallet, amount, targetProgram, callerData, auxiliaryAccounts, invoke)
	if err != nil {
		return 0, nil, err
	}
	if err := e.state.PutReserve(reserveAddr, reserve); err != nil {
		return 0, nil, err
	}
	var cmds []CustodyCommand
	if fee > 0 {
		pda := marketPDA(marketAddr)
		cmds = append(cmds, Transfer(reserve.Liquidity.Mint, reserve.Liquidity.SupplyWallet, reserve.Liquidity.FeeReceiverWallet, fee, pda))
	}
	return fee, cmds, nil
}

// TakeReserveCapSnapshot is admin-bot only and requires a fresh reserve.
func (e *Engine) TakeReserveCapSnapshot(marketAddr, reserveAddr, caller crypto.Address, currentSlot uint64) error {
	market, err := e.loadMarket(marketAddr)
	if err != nil {
		return err
	}
	if err := market.requireAdminBot(caller); err != nil {
		return err
	}
	reserve, err := e.loadReserve(reserveAddr)
	if err != nil {
		return err
	}
	if reserve.LastUpdate.IsStale(currentSlot, MarketStaleAfterSlotsElapsed) {
		return ErrReserveStale
	}
	snapshots, err := e.loadCapSnapshots(reserveAddr)
	if err != nil {
		return err
	}
	snapshots.Push(currentSlot, reserve.Liquidity.AvailableAmount, mustU64(reserve.Liquidity.BorrowedAmount))
	return e.state.PutCapSnapshots(reserveAddr, snapshots)
}

func mustU64(d Decimal) uint64 {
	v, err := d.TryFloorU64()
	if err != nil {
		return 0
	}
	return v
}

// CreateEmission transfers ownership of each emission wallet to the
// market-derived PDA; the caller performs the actual set_authority custody
// commands this returns.
func (e *Engine) CreateEmission(strategyAddr, marketAddr, reserveAddr, owner crypto.Address, startsAt, endsAt, minSlotsElapsedBeforeClaim uint64, tokens []EmittedToken) ([]CustodyCommand, error) {
	market, err := e.loadMarket(marketAddr)
	if err != nil {
		return nil, err
	}
	if !market.Owner.Equal(owner) {
		return nil, fmt.Errorf("%w: caller is not the market owner", ErrPrincipalMismatch)
	}
	strategy, err := CreateEmission(reserveAddr, owner, startsAt, endsAt, minSlotsElapsedBeforeClaim, tokens)
	if err != nil {
		return nil, err
	}
	if err := e.state.PutEmissionStrategy(strategyAddr, strategy); err != nil {
		return nil, err
	}
	pda := marketPDA(marketAddr)
	cmds := make([]CustodyCommand, 0, len(tokens))
	for _, t := range tokens {
		if t.isUnused() {
			continue
		}
		cmds = append(cmds, SetAuthority(t.Wallet, pda, owner))
	}
	return cmds, nil
}

// CloseEmission is allowed only after the strategy's cooldown has elapsed,
// returning the custody commands handing wallet ownership back to owner.
func (e *Engine) CloseEmission(strategyAddr crypto.Address, currentSlot uint64) ([]CustodyCommand, error) {
	strategy, err := e.loadEmissionStrategy(strategyAddr)
	if err != nil {
		return nil, err
	}
	if err := strategy.CloseEmission(currentSlot); err != nil {
		return nil, err
	}
	reserve, err := e.loadReserve(strategy.Reserve)
	if err != nil {
		return nil, err
	}
	cmds := make([]CustodyCommand, 0, MaxEmittedTokens)
	for _, t := range strategy.Tokens {
		if t.isUnused() {
			continue
		}
		cmds = append(cmds, SetAuthority(t.Wallet, strategy.Owner, marketPDA(reserve.Market)))
	}
	return cmds, nil
}

// ClaimEmission computes the payout for one of the caller's obligation
// slots against the reserve's emission strategy, deriving whether the slot
// is a loan or deposit position, its share and its claim cursor directly
// from the obligation rather than trusting caller-supplied values.
func (e *Engine) ClaimEmission(strategyAddr, obligationAddr, reserveAddr, caller crypto.Address, index int, currentSlot uint64, destinationByWallet func(crypto.Address) crypto.Address) ([]CustodyCommand, error) {
	obligation, err := e.loadObligation(obligationAddr)
	if err != nil {
		return nil, err
	}
	if !caller.Equal(obligation.Owner) {
		return nil, ErrPrincipalMismatch
	}
	if index < 0 || index >= len(obligation.Reserves) {
		return nil, ErrObligationReserveLimit
	}
	slot := &obligation.Reserves[index]

	var isLoan bool
	var slotReserve crypto.Address
	var share uint64
	var position EmissionPosition
	switch slot.Tag {
	case ObligationReserveEmpty:
		return nil, ErrCannotClaimEmissionFromReserveIndex
	case ObligationReserveLiquidity:
		isLoan = true
		slotReserve = slot.Liquidity.Reserve
		share = mustU64(slot.Liquidity.BorrowedAmount)
		position = EmissionPosition{ClaimableFromSlot: slot.Liquidity.EmissionsClaimableFromSlot}
	case ObligationReserveCollateral:
		isLoan = false
		slotReserve = slot.Collateral.Reserve
		share = slot.Collateral.DepositedAmount
		position = EmissionPosition{ClaimableFromSlot: slot.Collateral.EmissionsClaimableFromSlot}
	}
	if !slotReserve.Equal(reserveAddr) {
		return nil, fmt.Errorf("%w: obligation reserve at index does not match provided reserve", ErrAccountMismatch)
	}

	strategy, err := e.loadEmissionStrategy(strategyAddr)
	if err != nil {
		return nil, err
	}
	if !strategy.Reserve.Equal(reserveAddr) {
		return nil, fmt.Errorf("%w: emission strategy reserve does not match provided reserve", ErrAccountMismatch)
	}
	snapshots, err := e.loadCapSnapshots(reserveAddr)
	if err != nil {
		return nil, err
	}
	results, err := strategy.Claim(&position, currentSlot, isLoan, share, snapshots.AverageBorrowedAmount, snapshots.AverageCap)
	if err != nil {
		return nil, err
	}
	if isLoan {
		slot.Liquidity.EmissionsClaimableFromSlot = position.ClaimableFromSlot
	} else {
		slot.Collateral.EmissionsClaimableFromSlot = position.ClaimableFromSlot
	}
	if err := e.state.PutObligation(obligationAddr, obligation); err != nil {
		return nil, err
	}

	reserve, err := e.loadReserve(reserveAddr)
	if err != nil {
		return nil, err
	}
	pda := marketPDA(reserve.Market)
	cmds := make([]CustodyCommand, 0, len(results))
	for _, r := range results {
		cmds = append(cmds, Transfer(r.Mint, r.Wallet, destinationByWallet(r.Wallet), r.Amount, pda))
	}
	return cmds, nil
}

// Market returns the persisted market record for addr, for read-only
// tooling such as an admin HTTP surface. It performs no freshness checks.
func (e *Engine) Market(addr crypto.Address) (*LendingMarket, error) {
	return e.loadMarket(addr)
}

// Reserve returns the persisted reserve record for addr, for read-only
// tooling. It performs no freshness checks.
func (e *Engine) Reserve(addr crypto.Address) (*Reserve, error) {
	return e.loadReserve(addr)
}

// Obligation returns the persisted obligation record for addr, for
// read-only tooling. It performs no freshness checks.
func (e *Engine) Obligation(addr crypto.Address) (*Obligation, error) {
	return e.loadObligation(addr)
}

func (e *Engine) loadMarket(addr crypto.Address) (*LendingMarket, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	market, err := e.state.GetMarket(addr)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, fmt.Errorf("%w: market not found", ErrAccountMismatch)
	}
	return market, nil
}

func (e *Engine) loadReserve(addr crypto.Address) (*Reserve, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	reserve, err := e.state.GetReserve(addr)
	if err != nil {
		return nil, err
	}
	if reserve == nil {
		return nil, fmt.Errorf("%w: reserve not found", ErrMissingReserveAccount)
	}
	return reserve, nil
}

func (e *Engine) loadFreshReserve(addr crypto.Address, currentSlot uint64) (*Reserve, error) {
	reserve, err := e.loadReserve(addr)
	if err != nil {
		return nil, err
	}
	if reserve.LastUpdate.IsStale(currentSlot, MarketStaleAfterSlotsElapsed) {
		return nil, ErrReserveStale
	}
	return reserve, nil
}

func (e *Engine) loadObligation(addr crypto.Address) (*Obligation, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	obligation, err := e.state.GetObligation(addr)
	if err != nil {
		return nil, err
	}
	if obligation == nil {
		return nil, fmt.Errorf("%w: obligation not found", ErrAccountMismatch)
	}
	return obligation, nil
}

func (e *Engine) loadFreshObligation(addr crypto.Address, currentSlot uint64) (*Obligation, error) {
	obligation, err := e.loadObligation(addr)
	if err != nil {
		return nil, err
	}
	if obligation.LastUpdate.IsStale(currentSlot, MarketStaleAfterSlotsElapsed) {
		return nil, ErrObligationStale
	}
	return obligation, nil
}

func (e *Engine) loadEmissionStrategy(addr crypto.Address) (*EmissionStrategy, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	strategy, err := e.state.GetEmissionStrategy(addr)
	if err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, fmt.Errorf("%w: emission strategy not found", ErrAccountMismatch)
	}
	return strategy, nil
}

func (e *Engine) loadCapSnapshots(reserveAddr crypto.Address) (*ReserveCapSnapshots, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	snapshots, err := e.state.GetCapSnapshots(reserveAddr)
	if err != nil {
		return nil, err
	}
	if snapshots == nil {
		snapshots = &ReserveCapSnapshots{}
	}
	return snapshots, nil
}

// marketPDA derives the abstract principal the engine uses as authority for
// wallets it owns on the market's behalf. The host's real program-derived
// address scheme is out of scope here; the engine only needs a stable,
// distinct principal per market to pass to custody commands.
func marketPDA(market crypto.Address) crypto.Address {
	return market
}
