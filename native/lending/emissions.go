package lending

import (
	"fmt"

	"nhbchain/crypto"
)

// UnusedEmissionSlotSentinel marks an EmittedToken slot that a strategy
// doesn't use, so the 5-slot array stays fixed-size regardless of how many
// reward tokens a market actually configures.
var UnusedEmissionSlotSentinel = crypto.Address{}

// EmittedToken is one reward stream slot in an EmissionStrategy.
type EmittedToken struct {
	Mint                     crypto.Address
	Wallet                   crypto.Address
	TokensPerSlotForDeposits uint64
	TokensPerSlotForLoans    uint64
}

func (t EmittedToken) isUnused() bool {
	return t.Wallet.Equal(UnusedEmissionSlotSentinel)
}

// EmissionStrategy pays out up to MaxEmittedTokens reward streams for one
// reserve, pro-rated by time-weighted participation share.
type EmissionStrategy struct {
	Reserve                    crypto.Address
	Owner                      crypto.Address
	StartsAt                   uint64
	EndsAt                     uint64
	MinSlotsElapsedBeforeClaim uint64
	Tokens                     [MaxEmittedTokens]EmittedToken
}

// CreateEmission initializes a strategy with the given token streams,
// padding unused slots with the sentinel wallet.
func CreateEmission(reserve, owner crypto.Address, startsAt, endsAt, minSlotsElapsedBeforeClaim uint64, tokens []EmittedToken) (*EmissionStrategy, error) {
	if endsAt <= startsAt {
		return nil, fmt.Errorf("%w: ends_at must exceed starts_at", ErrConfigInvalid)
	}
	if len(tokens) > MaxEmittedTokens {
		return nil, fmt.Errorf("%w: at most %d emission tokens", ErrConfigInvalid, MaxEmittedTokens)
	}
	s := &EmissionStrategy{
		Reserve:                    reserve,
		Owner:                      owner,
		StartsAt:                   startsAt,
		EndsAt:                     endsAt,
		MinSlotsElapsedBeforeClaim: minSlotsElapsedBeforeClaim,
	}
	copy(s.Tokens[:], tokens)
	return s, nil
}

// CloseEmission is permitted only once current_slot >= ends_at + 2 weeks,
// signalling the caller to hand wallet ownership back to the owner.
func (s *EmissionStrategy) CloseEmission(currentSlot uint64) error {
	if currentSlot < s.EndsAt+2*SlotsPerWeek {
		return fmt.Errorf("%w: emission cooldown has not elapsed", ErrEmissionEnded)
	}
	return nil
}

// EmissionPosition tracks one obligation slot's claim cursor against a
// reserve's emission strategy. The caller supplies whether the underlying
// position is a loan (borrowed_amount share) or a deposit (deposited_amount
// share).
type EmissionPosition struct {
	ClaimableFromSlot uint64
}

// ClaimResult is the per-token payout computed by Claim.
type ClaimResult struct {
	Mint   crypto.Address
	Wallet crypto.Address
	Amount uint64
}

// Claim computes the payout for every configured token stream between the
// position's claim cursor and the window bounded by the strategy's
// lifetime, against either the loan-side or deposit-side share and average.
func (s *EmissionStrategy) Claim(
	position *EmissionPosition,
	currentSlot uint64,
	isLoan bool,
	share uint64,
	averageBorrowed func(since uint64) (Decimal, error),
	averageCap func(since uint64) (Decimal, error),
) ([]ClaimResult, error) {
	claimFrom := position.ClaimableFromSlot
	if s.StartsAt > claimFrom {
		claimFrom = s.StartsAt
	}
	if currentSlot < claimFrom+s.MinSlotsElapsedBeforeClaim {
		return nil, ErrMustWaitBeforeEmissionBecomeClaimable
	}
	claimTo := currentSlot
	if s.EndsAt < claimTo {
		claimTo = s.EndsAt
	}
	if claimTo <= claimFrom {
		return nil, ErrEmissionEnded
	}
	delta := DecimalFromU64(claimTo - claimFrom)
	shareDecimal := DecimalFromU64(share)

	results := make([]ClaimResult, 0, MaxEmittedTokens)
	for _, token := range s.Tokens {
		if token.isUnused() {
			continue
		}
		var avg Decimal
		var err error
		var rate uint64
		if isLoan {
			avg, err = averageBorrowed(claimFrom)
			rate = token.TokensPerSlotForLoans
		} else {
			avg, err = averageCap(claimFrom)
			rate = token.TokensPerSlotForDeposits
		}
		if err != nil {
			return nil, err
		}
		if avg.IsZero() || rate == 0 {
			continue
		}
		perSlot, err := DecimalFromU64(rate).TryMul(delta)
		if err != nil {
			return nil, err
		}
		perSlot, err = perSlot.TryDiv(avg)
		if err != nil {
			return nil, err
		}
		payoutDecimal, err := perSlot.TryMul(shareDecimal)
		if err != nil {
			return nil, err
		}
		amount, err := payoutDecimal.TryFloorU64()
		if err != nil {
			return nil, err
		}
		if amount == 0 {
			continue
		}
		results = append(results, ClaimResult{Mint: token.Mint, Wallet: token.Wallet, Amount: amount})
	}

	position.ClaimableFromSlot = currentSlot
	return results, nil
}
