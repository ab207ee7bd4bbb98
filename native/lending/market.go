package lending

import (
	"fmt"

	"nhbchain/crypto"
)

// LendingMarket is the root configuration record shared by every reserve and
// obligation created underneath it.
type LendingMarket struct {
	Owner                            crypto.Address
	AdminBot                         crypto.Address
	QuoteIsUSD                       bool
	QuoteMint                        crypto.Address
	AMMProgram                       crypto.Address
	LeveragedCompoundFeeBps          PercentageInt
	VaultCompoundFeeBps              PercentageInt
	MinCollateralUACValueForLeverage Decimal
	EnableFlashLoans                 bool
}

// InitMarket constructs a new market record. The owner becomes both the
// configuration authority and, until update-market says otherwise, the
// principal entitled to fee streams routed through the market.
func InitMarket(owner crypto.Address, quoteIsUSD bool, quoteMint crypto.Address) (*LendingMarket, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: owner required", ErrConfigInvalid)
	}
	if !quoteIsUSD && quoteMint.IsZero() {
		return nil, fmt.Errorf("%w: quote mint required when not USD", ErrConfigInvalid)
	}
	return &LendingMarket{
		Owner:            owner,
		QuoteIsUSD:       quoteIsUSD,
		QuoteMint:        quoteMint,
		EnableFlashLoans: false,
	}, nil
}

// SetOwner transfers configuration authority to a new principal. Only the
// current owner may call this.
func (m *LendingMarket) SetOwner(caller, newOwner crypto.Address) error {
	if err := m.requireOwner(caller); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return fmt.Errorf("%w: new owner required", ErrConfigInvalid)
	}
	m.Owner = newOwner
	return nil
}

// MarketUpdate captures the fields update-market may change. Nil fields are
// left untouched; each non-nil field is applied.
type MarketUpdate struct {
	AdminBot                         *crypto.Address
	AMMProgram                       *crypto.Address
	LeveragedCompoundFeeBps          *PercentageInt
	VaultCompoundFeeBps              *PercentageInt
	MinCollateralUACValueForLeverage *Decimal
}

// UpdateMarket applies an owner-gated configuration change.
func (m *LendingMarket) UpdateMarket(caller crypto.Address, update MarketUpdate) error {
	if err := m.requireOwner(caller); err != nil {
		return err
	}
	if update.AdminBot != nil {
		m.AdminBot = *update.AdminBot
	}
	if update.AMMProgram != nil {
		m.AMMProgram = *update.AMMProgram
	}
	if update.LeveragedCompoundFeeBps != nil {
		if err := update.LeveragedCompoundFeeBps.Validate(); err != nil {
			return err
		}
		m.LeveragedCompoundFeeBps = *update.LeveragedCompoundFeeBps
	}
	if update.VaultCompoundFeeBps != nil {
		if err := update.VaultCompoundFeeBps.Validate(); err != nil {
			return err
		}
		m.VaultCompoundFeeBps = *update.VaultCompoundFeeBps
	}
	if update.MinCollateralUACValueForLeverage != nil {
		m.MinCollateralUACValueForLeverage = *update.MinCollateralUACValueForLeverage
	}
	return nil
}

// ToggleFlashLoans flips the market-wide flash loan enable switch.
func (m *LendingMarket) ToggleFlashLoans(caller crypto.Address, enable bool) error {
	if err := m.requireOwner(caller); err != nil {
		return err
	}
	m.EnableFlashLoans = enable
	return nil
}

func (m *LendingMarket) requireOwner(caller crypto.Address) error {
	if !m.Owner.Equal(caller) {
		return fmt.Errorf("%w: caller is not the market owner", ErrPrincipalMismatch)
	}
	return nil
}

// requireAdminBot is used by admin-bot-only operations (take-reserve-cap-snapshot).
func (m *LendingMarket) requireAdminBot(caller crypto.Address) error {
	if m.AdminBot.IsZero() || !m.AdminBot.Equal(caller) {
		return fmt.Errorf("%w: caller is not the admin bot", ErrPrincipalMismatch)
	}
	return nil
}
