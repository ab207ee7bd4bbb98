package lending

import (
	"fmt"
	"math/big"

	"nhbchain/crypto"
)

// ReserveLiquidity tracks a reserve's token-denominated liquidity side: the
// amount available to borrow against, the outstanding borrowed principal
// (fractional, since interest accrues continuously), and the cumulative
// borrow-rate index used to diff per-obligation accrual.
type ReserveLiquidity struct {
	Mint                  crypto.Address
	MintDecimals          uint8
	SupplyWallet          crypto.Address
	FeeReceiverWallet     crypto.Address
	HostFeeReceiverWallet crypto.Address
	Oracle                crypto.Address

	AvailableAmount      uint64
	BorrowedAmount       Decimal
	CumulativeBorrowRate Decimal
	MarketPrice          Decimal
}

// ReserveCollateral tracks the collateral-share side: the mint whose holders
// may redeem a proportional claim on the reserve's liquidity.
type ReserveCollateral struct {
	ShareMint            crypto.Address
	ShareMintTotalSupply uint64
	SupplyWallet         crypto.Address
}

// Reserve is a per-token pool: liquidity, collateral shares, risk config,
// oracle binding and interest-accrual state.
type Reserve struct {
	Market     crypto.Address
	LastUpdate LastUpdate
	Liquidity  ReserveLiquidity
	Collateral ReserveCollateral
	Config     ReserveConfig
}

// decimalsScale returns 10^mint_decimals as a Decimal, used to convert
// between integer token amounts and UAC market values.
func (r *Reserve) decimalsScale() (Decimal, error) {
	return DecimalFromU128(pow10(uint(r.Liquidity.MintDecimals)))
}

// InitReserve creates a new reserve. initialAmount is the funder's opening
// liquidity deposit (must be > 0); it seeds both the liquidity side and the
// initial collateral-share supply at the fixed bootstrap ratio.
func InitReserve(market crypto.Address, liquidity ReserveLiquidity, config ReserveConfig, initialAmount uint64) (*Reserve, error) {
	if initialAmount == 0 {
		return nil, fmt.Errorf("%w: initial liquidity amount must be positive", ErrInvalidAmount)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if liquidity.MarketPrice.IsZero() {
		return nil, fmt.Errorf("%w: market price required", ErrOracleInvalid)
	}

	liquidity.AvailableAmount = initialAmount
	liquidity.BorrowedAmount = ZeroDecimal()
	liquidity.CumulativeBorrowRate = OneDecimal()

	r := &Reserve{
		Market:    market,
		Liquidity: liquidity,
		Collateral: ReserveCollateral{
			ShareMintTotalSupply: initialAmount * InitialCollateralRatio,
		},
		Config: config,
	}
	return r, nil
}

// Refresh re-reads the oracle price, accrues interest up to currentSlot and
// marks the reserve fresh. It is the only operation that may run against a
// stale reserve.
func (r *Reserve) Refresh(price OraclePrice, currentSlot uint64) error {
	marketPrice, err := price.MarketPrice(currentSlot)
	if err != nil {
		return err
	}
	r.Liquidity.MarketPrice = marketPrice

	if err := r.AccrueInterest(currentSlot); err != nil {
		return err
	}
	r.LastUpdate.MarkFresh(currentSlot)
	return nil
}

// UtilizationRate computes borrowed / (available + borrowed), i.e. eq. 1.
func (r *Reserve) UtilizationRate() (Rate, error) {
	borrowed := r.Liquidity.BorrowedAmount
	available, err := DecimalFromU128(new(big.Int).SetUint64(r.Liquidity.AvailableAmount))
	if err != nil {
		return Rate{}, err
	}
	total, err := available.TryAdd(borrowed)
	if err != nil {
		return Rate{}, err
	}
	if total.IsZero() {
		return ZeroRate(), nil
	}
	util, err := borrowed.TryDiv(total)
	if err != nil {
		return Rate{}, err
	}
	return NewRate(util)
}

// BorrowAPY implements eq. 3's kinked interest-rate curve.
func (r *Reserve) BorrowAPY() (Rate, error) {
	util, err := r.UtilizationRate()
	if err != nil {
		return Rate{}, err
	}
	optimal := DecimalFromPercent(r.Config.OptimalUtilization)
	min := r.Config.MinBorrowRate.Decimal()
	optimalRate := r.Config.OptimalBorrowRate.Decimal()
	max := r.Config.MaxBorrowRate.Decimal()

	hundred := DecimalFromPercent(100)
	if util.Decimal().Cmp(optimal) <= 0 || optimal.Cmp(hundred) == 0 {
		if optimal.IsZero() {
			return NewRate(optimalRate)
		}
		frac, err := util.Decimal().TryDiv(optimal)
		if err != nil {
			return Rate{}, err
		}
		spread, err := optimalRate.TrySub(min)
		if err != nil {
			return Rate{}, err
		}
		scaled, err := frac.TryMul(spread)
		if err != nil {
			return Rate{}, err
		}
		rate, err := min.TryAdd(scaled)
		if err != nil {
			return Rate{}, err
		}
		return NewRate(rate)
	}

	excessUtil, err := util.Decimal().TrySub(optimal)
	if err != nil {
		return Rate{}, err
	}
	oneMinusOptimal, err := hundred.TrySub(optimal)
	if err != nil {
		return Rate{}, err
	}
	frac, err := excessUtil.TryDiv(oneMinusOptimal)
	if err != nil {
		return Rate{}, err
	}
	spread, err := max.TrySub(optimalRate)
	if err != nil {
		return Rate{}, err
	}
	scaled, err := frac.TryMul(spread)
	if err != nil {
		return Rate{}, err
	}
	rate, err := optimalRate.TryAdd(scaled)
	if err != nil {
		return Rate{}, err
	}
	return NewRate(rate)
}

// AccrueInterest implements eq. 4/5: compounds the outstanding borrowed
// amount and the cumulative borrow rate index by (1 + per-slot rate)^delta.
func (r *Reserve) AccrueInterest(currentSlot uint64) error {
	delta := r.LastUpdate.SlotsElapsed(currentSlot)
	if delta == 0 {
		return nil
	}

	apy, err := r.BorrowAPY()
	if err != nil {
		return err
	}
	slotsPerYear := DecimalFromU64(SlotsPerYear)
	perSlotRate, err := apy.Decimal().TryDiv(slotsPerYear)
	if err != nil {
		return err
	}
	onePlusRate, err := OneDecimal().TryAdd(perSlotRate)
	if err != nil {
		return err
	}
	factor, err := onePlusRate.TryPow(delta)
	if err != nil {
		return err
	}

	newBorrowed, err := r.Liquidity.BorrowedAmount.TryMul(factor)
	if err != nil {
		return err
	}
	newCumulative, err := r.Liquidity.CumulativeBorrowRate.TryMul(factor)
	if err != nil {
		return err
	}
	r.Liquidity.BorrowedAmount = newBorrowed
	r.Liquidity.CumulativeBorrowRate = newCumulative
	return nil
}

// ExchangeRate computes the collateral-share exchange rate per eq. 2:
// mint_total_supply / (available + borrowed), defaulting to the initial
// bootstrap ratio when either side of the pool is empty.
func (r *Reserve) ExchangeRate() (Decimal, error) {
	totalSupply, err := DecimalFromU128(new(big.Int).SetUint64(r.Collateral.ShareMintTotalSupply))
	if err != nil {
		return Decimal{}, err
	}
	available, err := DecimalFromU128(new(big.Int).SetUint64(r.Liquidity.AvailableAmount))
	if err != nil {
		return Decimal{}, err
	}
	totalLiquidity, err := available.TryAdd(r.Liquidity.BorrowedAmount)
	if err != nil {
		return Decimal{}, err
	}
	if r.Collateral.ShareMintTotalSupply == 0 || totalLiquidity.IsZero() {
		return DecimalFromU64(InitialCollateralRatio), nil
	}
	return totalSupply.TryDiv(totalLiquidity)
}

// DepositLiquidity credits available liquidity and returns the number of
// collateral shares to mint to the depositor.
func (r *Reserve) DepositLiquidity(amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, fmt.Errorf("%w: deposit amount must be positive", ErrInvalidAmount)
	}
	rate, err := r.ExchangeRate()
	if err != nil {
		return 0, err
	}
	amountDecimal := DecimalFromU64(amount)
	sharesDecimal, err := amountDecimal.TryMul(rate)
	if err != nil {
		return 0, err
	}
	shares, err := sharesDecimal.TryRoundU64()
	if err != nil {
		return 0, err
	}
	r.Liquidity.AvailableAmount += amount
	r.Collateral.ShareMintTotalSupply += shares
	return shares, nil
}

// RedeemCollateral burns collateral shares and returns the liquidity amount
// owed, failing if the reserve does not have enough available liquidity.
func (r *Reserve) RedeemCollateral(shareAmount uint64) (uint64, error) {
	if shareAmount == 0 {
		return 0, fmt.Errorf("%w: redeem amount must be positive", ErrInvalidAmount)
	}
	rate, err := r.ExchangeRate()
	if err != nil {
		return 0, err
	}
	shareDecimal := DecimalFromU64(shareAmount)
	liquidityDecimal, err := shareDecimal.TryDiv(rate)
	if err != nil {
		return 0, err
	}
	liquidity, err := liquidityDecimal.TryFloorU64()
	if err != nil {
		return 0, err
	}
	if liquidity > r.Liquidity.AvailableAmount {
		return 0, ErrInsufficientFunds
	}
	if shareAmount > r.Collateral.ShareMintTotalSupply {
		return 0, fmt.Errorf("%w: shares exceed total supply", ErrInvalidAmount)
	}
	r.Collateral.ShareMintTotalSupply -= shareAmount
	r.Liquidity.AvailableAmount -= liquidity
	return liquidity, nil
}

// Borrow decreases available liquidity and increases the outstanding
// borrowed amount by amount (a Decimal, since borrows may include a
// fractional origination-fee remainder carried at the Decimal level by the
// caller).
func (l *ReserveLiquidity) Borrow(amount Decimal) error {
	amountFloor, err := amount.TryFloorU64()
	if err != nil {
		return err
	}
	if amountFloor > l.AvailableAmount {
		return ErrInsufficientFunds
	}
	l.AvailableAmount -= amountFloor
	newBorrowed, err := l.BorrowedAmount.TryAdd(amount)
	if err != nil {
		return err
	}
	l.BorrowedAmount = newBorrowed
	return nil
}

// Repay is Borrow's inverse: repayInteger is the integer amount actually
// transferred back into the reserve's supply wallet, while settleDecimal is
// the (possibly fractional) amount by which outstanding debt is reduced.
// They are split because repayment is denominated in whole tokens while
// outstanding debt is fractional.
func (l *ReserveLiquidity) Repay(repayInteger uint64, settleDecimal Decimal) error {
	l.AvailableAmount += repayInteger
	newBorrowed, err := l.BorrowedAmount.TrySub(settleDecimal)
	if err != nil {
		return err
	}
	l.BorrowedAmount = newBorrowed
	return nil
}

// BorrowAmountWithFees computes the origination fee charged on a requested
// borrow and validates it against the remaining allowed borrow value.
func (r *Reserve) BorrowAmountWithFees(requested uint64, remainingBorrowValue Decimal, kind LoanKind) (borrowAmount uint64, originationFee uint64, err error) {
	requestedDecimal := DecimalFromU64(requested)
	fee, err := requestedDecimal.TryMul(r.Config.Fees.BorrowFee)
	if err != nil {
		return 0, 0, err
	}
	feeFloor, err := fee.TryFloorU64()
	if err != nil {
		return 0, 0, err
	}
	if !r.Config.Fees.BorrowFee.IsZero() && feeFloor == 0 {
		feeFloor = 1
	}
	if feeFloor >= requested {
		return 0, 0, ErrBorrowTooSmall
	}

	scale, err := r.decimalsScale()
	if err != nil {
		return 0, 0, err
	}
	borrowValue, err := requestedDecimal.TryMul(r.Liquidity.MarketPrice)
	if err != nil {
		return 0, 0, err
	}
	borrowValue, err = borrowValue.TryDiv(scale)
	if err != nil {
		return 0, 0, err
	}
	if borrowValue.Cmp(remainingBorrowValue) > 0 {
		return 0, 0, ErrBorrowTooLarge
	}

	_ = kind // loan kind does not change the fee formula, only obligation bookkeeping
	return requested, feeFloor, nil
}

// CalculateRepay bounds a requested repayment by the outstanding debt and
// returns the integer amount to actually transfer, alongside the exact
// (possibly fractional) settle amount to subtract from debt.
func (r *Reserve) CalculateRepay(requested uint64, outstandingDebt Decimal) (settle Decimal, repay uint64, err error) {
	requestedDecimal := DecimalFromU64(requested)
	if requestedDecimal.Cmp(outstandingDebt) < 0 {
		settle = requestedDecimal
	} else {
		settle = outstandingDebt
	}
	repay, err = settle.TryCeilU64()
	if err != nil {
		return Decimal{}, 0, err
	}
	if repay == 0 {
		return Decimal{}, 0, ErrRepayTooSmall
	}
	return settle, repay, nil
}

// FlashLoanFee computes the fee charged on a flash-borrowed amount, floored
// with a minimum of 1 unit whenever the configured fee is nonzero.
func (r *Reserve) FlashLoanFee(amount uint64) (uint64, error) {
	amountDecimal := DecimalFromU64(amount)
	fee, err := amountDecimal.TryMul(r.Config.Fees.FlashLoanFee)
	if err != nil {
		return 0, err
	}
	feeFloor, err := fee.TryFloorU64()
	if err != nil {
		return 0, err
	}
	if !r.Config.Fees.FlashLoanFee.IsZero() && feeFloor == 0 {
		feeFloor = 1
	}
	return feeFloor, nil
}
