package lending

import "testing"

func TestDecimalFloorRoundTrip(t *testing.T) {
	for _, x := range []uint64{0, 1, 42, 1_000_000, ^uint64(0) >> 20} {
		got, err := DecimalFromU64(x).TryFloorU64()
		if err != nil {
			t.Fatalf("TryFloorU64(%d): %v", x, err)
		}
		if got != x {
			t.Fatalf("TryFloorU64(%d) = %d, want %d", x, got, x)
		}
	}
}

func TestDecimalMulCommutes(t *testing.T) {
	a := DecimalFromU64(7)
	b := DecimalFromPercent(33)

	ab, err := a.TryMul(b)
	if err != nil {
		t.Fatalf("a*b: %v", err)
	}
	ba, err := b.TryMul(a)
	if err != nil {
		t.Fatalf("b*a: %v", err)
	}

	abRounded, err := ab.TryRoundU64()
	if err != nil {
		t.Fatalf("round(a*b): %v", err)
	}
	baRounded, err := ba.TryRoundU64()
	if err != nil {
		t.Fatalf("round(b*a): %v", err)
	}
	if abRounded != baRounded {
		t.Fatalf("round(a*b)=%d != round(b*a)=%d", abRounded, baRounded)
	}
}

func TestDecimalDivByZero(t *testing.T) {
	if _, err := OneDecimal().TryDiv(ZeroDecimal()); err == nil {
		t.Fatal("expected error dividing by zero")
	}
}

func TestDecimalSubUnderflow(t *testing.T) {
	if _, err := ZeroDecimal().TrySub(OneDecimal()); err == nil {
		t.Fatal("expected overflow error on unsigned underflow")
	}
}

func TestDecimalPow(t *testing.T) {
	onePointOne, err := OneDecimal().TryAdd(DecimalFromPercent(10))
	if err != nil {
		t.Fatalf("1.1: %v", err)
	}
	squared, err := onePointOne.TryPow(2)
	if err != nil {
		t.Fatalf("pow: %v", err)
	}
	got, err := squared.TryRoundU64()
	if err != nil {
		t.Fatalf("round: %v", err)
	}
	if got != 1 {
		t.Fatalf("1.1^2 rounded to nearest unit = %d, want 1", got)
	}
}

func TestSDecimalRoundTrip(t *testing.T) {
	d, err := OneDecimal().TryAdd(DecimalFromPercent(23))
	if err != nil {
		t.Fatal(err)
	}
	s := d.ToSDecimal()
	back, err := s.ToDecimal()
	if err != nil {
		t.Fatalf("ToDecimal: %v", err)
	}
	if back.Cmp(d) != 0 {
		t.Fatalf("round trip mismatch: got %s, want %s", back, d)
	}

	buf, err := s.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 24 {
		t.Fatalf("marshaled length = %d, want 24", len(buf))
	}
	var s2 SDecimal
	if err := s2.UnmarshalBinary(buf); err != nil {
		t.Fatal(err)
	}
	if s2 != s {
		t.Fatalf("unmarshal mismatch: got %+v, want %+v", s2, s)
	}
}
