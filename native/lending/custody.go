package lending

import "nhbchain/crypto"

// CustodyCommandKind discriminates the four token-movement commands the
// engine emits; it never moves tokens itself.
type CustodyCommandKind uint8

const (
	CustodyMint CustodyCommandKind = iota
	CustodyBurn
	CustodyTransfer
	CustodySetAuthority
)

// CustodyCommand is one instruction for the host to execute against its
// token-custody layer after a call into the engine returns successfully.
// Authority is the abstract principal authorizing the movement; for
// internally-owned wallets the engine supplies the market's derived
// principal rather than any user-held key.
type CustodyCommand struct {
	Kind      CustodyCommandKind
	Mint      crypto.Address
	From      crypto.Address
	To        crypto.Address
	Amount    uint64
	Authority crypto.Address
	NewOwner  crypto.Address
}

// Mint issues a mint command under authority.
func Mint(mint, to crypto.Address, amount uint64, authority crypto.Address) CustodyCommand {
	return CustodyCommand{Kind: CustodyMint, Mint: mint, To: to, Amount: amount, Authority: authority}
}

// Burn issues a burn command under authority.
func Burn(mint, from crypto.Address, amount uint64, authority crypto.Address) CustodyCommand {
	return CustodyCommand{Kind: CustodyBurn, Mint: mint, From: from, Amount: amount, Authority: authority}
}

// Transfer issues a transfer command under authority.
func Transfer(mint, from, to crypto.Address, amount uint64, authority crypto.Address) CustodyCommand {
	return CustodyCommand{Kind: CustodyTransfer, Mint: mint, From: from, To: to, Amount: amount, Authority: authority}
}

// SetAuthority issues an authority-change command.
func SetAuthority(account, newOwner, authority crypto.Address) CustodyCommand {
	return CustodyCommand{Kind: CustodySetAuthority, From: account, NewOwner: newOwner, Authority: authority}
}
