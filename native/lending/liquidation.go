package lending

// LiquidationResult is the outcome of CalculateLiquidation: the exact
// (possibly fractional) amount to subtract from the borrower's debt, and the
// integer amounts to actually transfer.
type LiquidationResult struct {
	SettleAmount   Decimal
	RepayAmount    uint64
	WithdrawAmount uint64
}

// CalculateLiquidation implements the close-out and standard liquidation
// branches against one matching (liquidity, collateral) slot pair.
// obligationBorrowedValue is the obligation-level borrowed value the close
// factor is applied to (the engine passes CollateralizedBorrowedValue), used
// to bound how much of this one slot's debt may be settled in a single call.
// A zero MarketValue on the liquidity or collateral slot is rejected with
// ErrObligationLiquidityEmpty or ErrObligationCollateralEmpty.
func CalculateLiquidation(liquidity ObligationLiquidity, collateral ObligationCollateral, obligationBorrowedValue Decimal, bonus PercentageInt, amountToLiquidate uint64) (LiquidationResult, error) {
	if liquidity.MarketValue.IsZero() {
		return LiquidationResult{}, ErrObligationLiquidityEmpty
	}
	if collateral.MarketValue.IsZero() {
		return LiquidationResult{}, ErrObligationCollateralEmpty
	}

	requested := DecimalFromU64(amountToLiquidate)
	maxAmount := requested
	if liquidity.BorrowedAmount.Cmp(maxAmount) < 0 {
		maxAmount = liquidity.BorrowedAmount
	}

	bonusRate, err := DecimalFromPercent(bonus).TryAdd(OneDecimal())
	if err != nil {
		return LiquidationResult{}, err
	}

	closeAmount := DecimalFromU64(LiquidationCloseAmount)
	if liquidity.BorrowedAmount.Cmp(closeAmount) <= 0 {
		return closeOutLiquidation(liquidity, collateral, bonusRate, maxAmount)
	}
	return standardLiquidation(liquidity, collateral, obligationBorrowedValue, bonusRate, maxAmount)
}

// closeOutLiquidation handles debt small enough to settle in full: the
// liquidator repays up to maxAmount but the obligation's slot is always
// cleared, so settle is the whole outstanding amount.
func closeOutLiquidation(liquidity ObligationLiquidity, collateral ObligationCollateral, bonusRate, maxAmount Decimal) (LiquidationResult, error) {
	settle := liquidity.BorrowedAmount

	liqValue, err := liquidity.MarketValue.TryMul(bonusRate)
	if err != nil {
		return LiquidationResult{}, err
	}

	var repayAmount, withdrawAmount uint64
	switch liqValue.Cmp(collateral.MarketValue) {
	case 1: // liquidity value exceeds collateral: withdraw all, repay partial
		repayPct, err := collateral.MarketValue.TryDiv(liqValue)
		if err != nil {
			return LiquidationResult{}, err
		}
		settled, err := maxAmount.TryMul(repayPct)
		if err != nil {
			return LiquidationResult{}, err
		}
		repayAmount, err = settled.TryCeilU64()
		if err != nil {
			return LiquidationResult{}, err
		}
		withdrawAmount = collateral.DepositedAmount
	case 0: // equal value: withdraw and repay in full
		var err error
		repayAmount, err = maxAmount.TryCeilU64()
		if err != nil {
			return LiquidationResult{}, err
		}
		withdrawAmount = collateral.DepositedAmount
	default: // collateral value exceeds liquidity: withdraw partial, repay in full
		withdrawPct, err := liqValue.TryDiv(collateral.MarketValue)
		if err != nil {
			return LiquidationResult{}, err
		}
		repayAmount, err = maxAmount.TryFloorU64()
		if err != nil {
			return LiquidationResult{}, err
		}
		withdrawn, err := DecimalFromU64(collateral.DepositedAmount).TryMul(withdrawPct)
		if err != nil {
			return LiquidationResult{}, err
		}
		withdrawAmount, err = withdrawn.TryFloorU64()
		if err != nil {
			return LiquidationResult{}, err
		}
	}

	return finalizeLiquidation(settle, repayAmount, withdrawAmount)
}

// standardLiquidation bounds the amount being closed this call by the close
// factor applied to the obligation's total borrowed value, never exceeding
// what is actually owed on this slot.
func standardLiquidation(liquidity ObligationLiquidity, collateral ObligationCollateral, obligationBorrowedValue Decimal, bonusRate, maxAmount Decimal) (LiquidationResult, error) {
	closeFactorBound, err := obligationBorrowedValue.TryMul(LiquidationCloseFactor)
	if err != nil {
		return LiquidationResult{}, err
	}
	maxLiquidation := liquidity.BorrowedAmount
	if closeFactorBound.Cmp(maxLiquidation) < 0 {
		maxLiquidation = closeFactorBound
	}
	liquidationAmount := maxLiquidation
	if maxAmount.Cmp(liquidationAmount) < 0 {
		liquidationAmount = maxAmount
	}

	liquidationPct, err := liquidationAmount.TryDiv(liquidity.BorrowedAmount)
	if err != nil {
		return LiquidationResult{}, err
	}
	scaled, err := liquidity.MarketValue.TryMul(liquidationPct)
	if err != nil {
		return LiquidationResult{}, err
	}
	liqValue, err := scaled.TryMul(bonusRate)
	if err != nil {
		return LiquidationResult{}, err
	}

	var settle Decimal
	var withdrawAmount uint64
	switch liqValue.Cmp(collateral.MarketValue) {
	case 1: // liquidity value exceeds collateral: withdraw all, settle partial
		repayPct, err := collateral.MarketValue.TryDiv(liqValue)
		if err != nil {
			return LiquidationResult{}, err
		}
		settle, err = liquidationAmount.TryMul(repayPct)
		if err != nil {
			return LiquidationResult{}, err
		}
		withdrawAmount = collateral.DepositedAmount
	case 0: // equal value: withdraw and settle in full
		settle = liquidationAmount
		withdrawAmount = collateral.DepositedAmount
	default: // collateral value exceeds liquidity: withdraw partial, settle in full
		withdrawPct, err := liqValue.TryDiv(collateral.MarketValue)
		if err != nil {
			return LiquidationResult{}, err
		}
		settle = liquidationAmount
		withdrawn, err := DecimalFromU64(collateral.DepositedAmount).TryMul(withdrawPct)
		if err != nil {
			return LiquidationResult{}, err
		}
		withdrawAmount, err = withdrawn.TryFloorU64()
		if err != nil {
			return LiquidationResult{}, err
		}
	}

	var repayAmount uint64
	var rerr error
	if withdrawAmount == collateral.DepositedAmount {
		repayAmount, rerr = settle.TryCeilU64()
	} else {
		repayAmount, rerr = settle.TryFloorU64()
	}
	if rerr != nil {
		return LiquidationResult{}, rerr
	}

	return finalizeLiquidation(settle, repayAmount, withdrawAmount)
}

func finalizeLiquidation(settle Decimal, repayAmount, withdrawAmount uint64) (LiquidationResult, error) {
	if repayAmount == 0 || withdrawAmount == 0 {
		return LiquidationResult{}, ErrLiquidationTooSmall
	}
	return LiquidationResult{
		SettleAmount:   settle,
		RepayAmount:    repayAmount,
		WithdrawAmount: withdrawAmount,
	}, nil
}
