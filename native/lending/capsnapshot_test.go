package lending

import "testing"

func TestCapSnapshotAverageBeforeWrap(t *testing.T) {
	var ring ReserveCapSnapshots
	ring.Push(10, 100, 0)
	ring.Push(20, 80, 20)
	ring.Push(30, 60, 40)

	avg, err := ring.AverageBorrowedAmount(0)
	if err != nil {
		t.Fatalf("AverageBorrowedAmount: %v", err)
	}
	got, err := avg.TryRoundU64()
	if err != nil {
		t.Fatal(err)
	}
	if got != 20 {
		t.Fatalf("average borrowed = %d, want 20 ((0+20+40)/3)", got)
	}

	avgSince, err := ring.AverageBorrowedAmount(20)
	if err != nil {
		t.Fatalf("AverageBorrowedAmount(20): %v", err)
	}
	got2, err := avgSince.TryRoundU64()
	if err != nil {
		t.Fatal(err)
	}
	if got2 != 30 {
		t.Fatalf("average borrowed since slot 20 = %d, want 30 ((20+40)/2)", got2)
	}
}

func TestCapSnapshotNoEntriesYieldsError(t *testing.T) {
	var ring ReserveCapSnapshots
	if _, err := ring.AverageBorrowedAmount(0); err != ErrNotEnoughSnapshots {
		t.Fatalf("err = %v, want ErrNotEnoughSnapshots", err)
	}
}

// TestCapSnapshotAverageAcrossWrap fills the ring past its capacity so the
// tip wraps to the start, then checks that a query still walks entries in
// chronological order across the wrap boundary.
func TestCapSnapshotAverageAcrossWrap(t *testing.T) {
	var ring ReserveCapSnapshots
	for i := 0; i < SnapshotRingSize+5; i++ {
		slot := uint64(i + 1)
		ring.Push(slot, 0, slot)
	}
	// The oldest 5 entries (slots 1..5) have been overwritten; the ring now
	// holds slots 6..SnapshotRingSize+5 in storage order starting at Tip.
	avg, err := ring.AverageBorrowedAmount(0)
	if err != nil {
		t.Fatalf("AverageBorrowedAmount: %v", err)
	}

	oldestExpected := uint64(6)
	newestExpected := uint64(SnapshotRingSize + 5)
	count := newestExpected - oldestExpected + 1
	sum := (oldestExpected + newestExpected) * count / 2
	want := sum / count

	got, err := avg.TryFloorU64()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("average across wrap = %d, want %d", got, want)
	}
}

func TestCapSnapshotSinceFilterAfterWrap(t *testing.T) {
	var ring ReserveCapSnapshots
	for i := 0; i < SnapshotRingSize+10; i++ {
		slot := uint64(i + 1)
		ring.Push(slot, slot, 0)
	}
	since := uint64(SnapshotRingSize)
	avg, err := ring.AverageCap(since)
	if err != nil {
		t.Fatalf("AverageCap: %v", err)
	}
	newest := uint64(SnapshotRingSize + 10)
	count := newest - since + 1
	sum := (since + newest) * count / 2
	want := sum / count
	got, err := avg.TryFloorU64()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("average cap since %d = %d, want %d", since, got, want)
	}
}
