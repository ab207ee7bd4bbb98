package lending

import "testing"

func TestCustodyCommandConstructors(t *testing.T) {
	mint := testAddress(t, 1)
	from := testAddress(t, 2)
	to := testAddress(t, 3)
	authority := testAddress(t, 4)

	mintCmd := Mint(mint, to, 10, authority)
	if mintCmd.Kind != CustodyMint || !mintCmd.To.Equal(to) || mintCmd.Amount != 10 {
		t.Fatalf("Mint command malformed: %+v", mintCmd)
	}

	burnCmd := Burn(mint, from, 5, authority)
	if burnCmd.Kind != CustodyBurn || !burnCmd.From.Equal(from) || burnCmd.Amount != 5 {
		t.Fatalf("Burn command malformed: %+v", burnCmd)
	}

	transferCmd := Transfer(mint, from, to, 7, authority)
	if transferCmd.Kind != CustodyTransfer || !transferCmd.From.Equal(from) || !transferCmd.To.Equal(to) {
		t.Fatalf("Transfer command malformed: %+v", transferCmd)
	}

	newOwner := testAddress(t, 5)
	authorityCmd := SetAuthority(from, newOwner, authority)
	if authorityCmd.Kind != CustodySetAuthority || !authorityCmd.NewOwner.Equal(newOwner) {
		t.Fatalf("SetAuthority command malformed: %+v", authorityCmd)
	}
}
