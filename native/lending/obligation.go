package lending

import (
	"fmt"

	"nhbchain/crypto"
)

// ObligationReserveTag discriminates the three states a slot in an
// obligation's reserve array may hold.
type ObligationReserveTag uint8

const (
	ObligationReserveEmpty ObligationReserveTag = iota
	ObligationReserveCollateral
	ObligationReserveLiquidity
)

// ObligationCollateral is the Collateral variant's payload.
type ObligationCollateral struct {
	Reserve                    crypto.Address
	DepositedAmount            uint64
	MarketValue                Decimal
	EmissionsClaimableFromSlot uint64
}

// ObligationLiquidity is the Liquidity variant's payload.
type ObligationLiquidity struct {
	Reserve                    crypto.Address
	CumulativeBorrowRate       Decimal
	BorrowedAmount             Decimal
	MarketValue                Decimal
	Kind                       LoanKind
	EmissionsClaimableFromSlot uint64
}

// ObligationReserve is one slot of the obligation's fixed-size reserve
// array. Both variant payloads are always present regardless of Tag so the
// slot has one uniform size across the array, matching the persisted record
// layout: no indirection, no variant-dependent sizing.
type ObligationReserve struct {
	Tag        ObligationReserveTag
	Collateral ObligationCollateral
	Liquidity  ObligationLiquidity
}

func (s *ObligationReserve) clear() {
	*s = ObligationReserve{}
}

// Obligation is a borrower's account: up to MaxObligationReserves deposited
// collateral and borrowed liquidity positions, plus the aggregates computed
// by the most recent Refresh.
type Obligation struct {
	Market     crypto.Address
	Owner      crypto.Address
	LastUpdate LastUpdate
	Reserves   [MaxObligationReserves]ObligationReserve

	DepositedValue              Decimal
	BorrowedValue               Decimal
	AllowedBorrowValue          Decimal
	UnhealthyBorrowValue        Decimal
	CollateralizedBorrowedValue Decimal
}

// InitObligation binds a new, empty obligation to its market and owner.
func InitObligation(market, owner crypto.Address) (*Obligation, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: owner required", ErrConfigInvalid)
	}
	o := &Obligation{Market: market, Owner: owner}
	o.DepositedValue = ZeroDecimal()
	o.BorrowedValue = ZeroDecimal()
	o.AllowedBorrowValue = ZeroDecimal()
	o.UnhealthyBorrowValue = ZeroDecimal()
	o.CollateralizedBorrowedValue = ZeroDecimal()
	o.LastUpdate.MarkStale()
	return o, nil
}

func (o *Obligation) findCollateral(reserve crypto.Address) int {
	for i := range o.Reserves {
		if o.Reserves[i].Tag == ObligationReserveCollateral && o.Reserves[i].Collateral.Reserve.Equal(reserve) {
			return i
		}
	}
	return -1
}

func (o *Obligation) findLiquidity(reserve crypto.Address) int {
	for i := range o.Reserves {
		if o.Reserves[i].Tag == ObligationReserveLiquidity && o.Reserves[i].Liquidity.Reserve.Equal(reserve) {
			return i
		}
	}
	return -1
}

func (o *Obligation) firstEmpty() int {
	for i := range o.Reserves {
		if o.Reserves[i].Tag == ObligationReserveEmpty {
			return i
		}
	}
	return -1
}

// Deposit records a collateral deposit against reserve, merging into an
// existing slot for the same reserve or occupying the first empty one.
func (o *Obligation) Deposit(reserve crypto.Address, amount uint64, slot uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: deposit amount must be positive", ErrInvalidAmount)
	}
	if i := o.findCollateral(reserve); i >= 0 {
		o.Reserves[i].Collateral.DepositedAmount += amount
		o.LastUpdate.MarkStale()
		return nil
	}
	i := o.firstEmpty()
	if i < 0 {
		return ErrObligationReserveLimit
	}
	o.Reserves[i] = ObligationReserve{
		Tag: ObligationReserveCollateral,
		Collateral: ObligationCollateral{
			Reserve:         reserve,
			DepositedAmount: amount,
			MarketValue:     ZeroDecimal(),
		},
	}
	o.LastUpdate.MarkStale()
	return nil
}

// Withdraw decrements a collateral slot's deposited amount, clearing the
// slot once it reaches zero.
func (o *Obligation) Withdraw(amount uint64, index int, slot uint64) error {
	if index < 0 || index >= len(o.Reserves) {
		return fmt.Errorf("%w: slot index out of range", ErrInvalidAmount)
	}
	s := &o.Reserves[index]
	if s.Tag != ObligationReserveCollateral {
		return ErrObligationCollateralEmpty
	}
	if amount == 0 || amount > s.Collateral.DepositedAmount {
		return fmt.Errorf("%w: withdraw amount exceeds deposited amount", ErrWithdrawTooLarge)
	}
	s.Collateral.DepositedAmount -= amount
	if s.Collateral.DepositedAmount == 0 {
		s.clear()
	}
	o.LastUpdate.MarkStale()
	return nil
}

// Borrow records a liquidity borrow against reserve, merging into an
// existing slot for the same reserve or occupying the first empty one. A
// freshly occupied slot inherits the reserve's current cumulative borrow
// rate so the first Refresh computes zero additional accrual.
func (o *Obligation) Borrow(reserve *Reserve, reserveAddr crypto.Address, amount Decimal, kind LoanKind, slot uint64) error {
	if amount.IsZero() {
		return fmt.Errorf("%w: borrow amount must be positive", ErrInvalidAmount)
	}
	if i := o.findLiquidity(reserveAddr); i >= 0 {
		sum, err := o.Reserves[i].Liquidity.BorrowedAmount.TryAdd(amount)
		if err != nil {
			return err
		}
		o.Reserves[i].Liquidity.BorrowedAmount = sum
		o.LastUpdate.MarkStale()
		return nil
	}
	i := o.firstEmpty()
	if i < 0 {
		return ErrObligationReserveLimit
	}
	o.Reserves[i] = ObligationReserve{
		Tag: ObligationReserveLiquidity,
		Liquidity: ObligationLiquidity{
			Reserve:              reserveAddr,
			CumulativeBorrowRate: reserve.Liquidity.CumulativeBorrowRate,
			BorrowedAmount:       amount,
			MarketValue:          ZeroDecimal(),
			Kind:                 kind,
		},
	}
	o.LastUpdate.MarkStale()
	return nil
}

// Repay subtracts settle from a liquidity slot's borrowed amount, clearing
// the slot to Empty if the result is zero.
func (o *Obligation) Repay(settle Decimal, index int, slot uint64) error {
	if index < 0 || index >= len(o.Reserves) {
		return fmt.Errorf("%w: slot index out of range", ErrInvalidAmount)
	}
	s := &o.Reserves[index]
	if s.Tag != ObligationReserveLiquidity {
		return ErrObligationLiquidityEmpty
	}
	remaining, err := s.Liquidity.BorrowedAmount.TrySub(settle)
	if err != nil {
		return err
	}
	if remaining.IsZero() {
		s.clear()
	} else {
		s.Liquidity.BorrowedAmount = remaining
	}
	o.LastUpdate.MarkStale()
	return nil
}

// ReserveLookup resolves a reserve's live record during Refresh.
type ReserveLookup func(crypto.Address) (*Reserve, error)

// Refresh recomputes every slot's market value and the obligation's
// aggregates against the current state of each referenced reserve. Every
// referenced reserve must itself be fresh for currentSlot.
func (o *Obligation) Refresh(lookup ReserveLookup, currentSlot uint64) error {
	depositedValue := ZeroDecimal()
	borrowedValue := ZeroDecimal()
	allowedBorrowValue := ZeroDecimal()
	unhealthyBorrowValue := ZeroDecimal()
	collateralizedBorrowedValue := ZeroDecimal()

	for i := range o.Reserves {
		slot := &o.Reserves[i]
		switch slot.Tag {
		case ObligationReserveEmpty:
			continue
		case ObligationReserveLiquidity:
			reserve, err := lookup(slot.Liquidity.Reserve)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMissingReserveAccount, err)
			}
			if reserve.LastUpdate.IsStale(currentSlot, MarketStaleAfterSlotsElapsed) {
				return ErrReserveStale
			}
			if !slot.Liquidity.CumulativeBorrowRate.IsZero() {
				factor, err := reserve.Liquidity.CumulativeBorrowRate.TryDiv(slot.Liquidity.CumulativeBorrowRate)
				if err != nil {
					return err
				}
				accrued, err := slot.Liquidity.BorrowedAmount.TryMul(factor)
				if err != nil {
					return err
				}
				slot.Liquidity.BorrowedAmount = accrued
			}
			slot.Liquidity.CumulativeBorrowRate = reserve.Liquidity.CumulativeBorrowRate

			scale, err := reserve.decimalsScale()
			if err != nil {
				return err
			}
			value, err := slot.Liquidity.BorrowedAmount.TryMul(reserve.Liquidity.MarketPrice)
			if err != nil {
				return err
			}
			value, err = value.TryDiv(scale)
			if err != nil {
				return err
			}
			slot.Liquidity.MarketValue = value

			borrowedValue, err = borrowedValue.TryAdd(value)
			if err != nil {
				return err
			}
			if !slot.Liquidity.Kind.IsYieldFarming() {
				collateralizedBorrowedValue, err = collateralizedBorrowedValue.TryAdd(value)
				if err != nil {
					return err
				}
			}
		case ObligationReserveCollateral:
			reserve, err := lookup(slot.Collateral.Reserve)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMissingReserveAccount, err)
			}
			if reserve.LastUpdate.IsStale(currentSlot, MarketStaleAfterSlotsElapsed) {
				return ErrReserveStale
			}
			rate, err := reserve.ExchangeRate()
			if err != nil {
				return err
			}
			scale, err := reserve.decimalsScale()
			if err != nil {
				return err
			}
			denom, err := rate.TryMul(scale)
			if err != nil {
				return err
			}
			depositedDecimal := DecimalFromU64(slot.Collateral.DepositedAmount)
			value, err := depositedDecimal.TryMul(reserve.Liquidity.MarketPrice)
			if err != nil {
				return err
			}
			if !denom.IsZero() {
				value, err = value.TryDiv(denom)
				if err != nil {
					return err
				}
			}
			slot.Collateral.MarketValue = value

			depositedValue, err = depositedValue.TryAdd(value)
			if err != nil {
				return err
			}
			ltv := DecimalFromPercent(reserve.Config.LoanToValue)
			allowed, err := value.TryMul(ltv)
			if err != nil {
				return err
			}
			allowedBorrowValue, err = allowedBorrowValue.TryAdd(allowed)
			if err != nil {
				return err
			}
			threshold := DecimalFromPercent(reserve.Config.LiquidationThreshold)
			unhealthy, err := value.TryMul(threshold)
			if err != nil {
				return err
			}
			unhealthyBorrowValue, err = unhealthyBorrowValue.TryAdd(unhealthy)
			if err != nil {
				return err
			}
		}
	}

	o.DepositedValue = depositedValue
	o.BorrowedValue = borrowedValue
	o.AllowedBorrowValue = allowedBorrowValue
	o.UnhealthyBorrowValue = unhealthyBorrowValue
	o.CollateralizedBorrowedValue = collateralizedBorrowedValue
	o.LastUpdate.MarkFresh(currentSlot)
	return nil
}

// Healthy reports whether the obligation's borrowed value is within its
// unhealthy threshold. Valid only immediately after Refresh.
func (o *Obligation) Healthy() bool {
	return o.BorrowedValue.Cmp(o.UnhealthyBorrowValue) <= 0
}

// PermittedToBorrowMore reports whether an additional borrow of the given
// UAC value would stay within the obligation's allowed borrow value.
func (o *Obligation) PermittedToBorrowMore(candidateValue Decimal) (bool, error) {
	headroom, err := o.AllowedBorrowValue.TrySub(o.CollateralizedBorrowedValue)
	if err != nil {
		return false, err
	}
	return candidateValue.Cmp(headroom) <= 0, nil
}

// MaxWithdrawValue returns the UAC value still withdrawable without
// endangering outstanding borrows: unbounded (the full deposited value) when
// there are no borrows, else allowed_borrow_value - borrowed_value.
func (o *Obligation) MaxWithdrawValue() (Decimal, error) {
	if o.BorrowedValue.IsZero() {
		return o.DepositedValue, nil
	}
	return o.AllowedBorrowValue.TrySub(o.BorrowedValue)
}

// StaleForLeverage applies the market's stricter staleness window to
// leveraged farming actions.
func (o *Obligation) StaleForLeverage(currentSlot uint64) bool {
	return o.LastUpdate.IsStale(currentSlot, OracleStaleAfterSlotsElapsed)
}
