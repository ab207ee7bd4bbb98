package lending

import "sort"

// CapSnapshot is one ring-buffer entry recorded by take-reserve-cap-snapshot.
type CapSnapshot struct {
	Slot            uint64
	AvailableAmount uint64
	BorrowedAmount  uint64
}

// ReserveCapSnapshots is the fixed 1000-slot append-only ring buffer backing
// the emissions time-weighted average queries.
type ReserveCapSnapshots struct {
	Entries [SnapshotRingSize]CapSnapshot
	Tip     uint64
}

// Push appends a snapshot, advancing the ring tip modulo SnapshotRingSize.
func (s *ReserveCapSnapshots) Push(slot uint64, available, borrowed uint64) {
	s.Entries[s.Tip] = CapSnapshot{Slot: slot, AvailableAmount: available, BorrowedAmount: borrowed}
	s.Tip = (s.Tip + 1) % SnapshotRingSize
}

// firstPopulation reports whether the buffer has never wrapped: either the
// last slot in storage order is still zero (never written), or the tip sits
// exactly at the final index (about to wrap on the very next push).
func (s *ReserveCapSnapshots) firstPopulation() bool {
	highestSlot := s.Entries[SnapshotRingSize-1].Slot
	return highestSlot == 0 || s.Tip == SnapshotRingSize-1
}

// populatedRange returns the index range, in storage order, that holds valid
// entries: the whole prefix before Tip during first population, or the whole
// array once wrapped.
func (s *ReserveCapSnapshots) populatedRange() (start, end int) {
	if s.firstPopulation() {
		return 0, int(s.Tip)
	}
	return 0, SnapshotRingSize
}

// sinceIndices returns the storage indices, in chronological order, of every
// populated entry whose Slot is >= since.
func (s *ReserveCapSnapshots) sinceIndices(since uint64) []int {
	start, end := s.populatedRange()
	if start == end {
		return nil
	}

	if s.firstPopulation() {
		lo := sort.Search(end-start, func(i int) bool {
			return s.Entries[start+i].Slot >= since
		})
		indices := make([]int, 0, end-lo)
		for i := start + lo; i < end; i++ {
			indices = append(indices, i)
		}
		return indices
	}

	// Wrapped: chronological order runs [Tip, N) followed by [0, Tip). Binary
	// search each half, since each half is itself slot-ascending.
	tip := int(s.Tip)
	indices := make([]int, 0, SnapshotRingSize)
	loHalf := sort.Search(SnapshotRingSize-tip, func(i int) bool {
		return s.Entries[tip+i].Slot >= since
	})
	for i := tip + loHalf; i < SnapshotRingSize; i++ {
		indices = append(indices, i)
	}
	loTail := sort.Search(tip, func(i int) bool {
		return s.Entries[i].Slot >= since
	})
	for i := loTail; i < tip; i++ {
		indices = append(indices, i)
	}
	return indices
}

// AverageBorrowedAmount returns the arithmetic mean of BorrowedAmount over
// every populated entry with Slot >= since.
func (s *ReserveCapSnapshots) AverageBorrowedAmount(since uint64) (Decimal, error) {
	indices := s.sinceIndices(since)
	if len(indices) == 0 {
		return Decimal{}, ErrNotEnoughSnapshots
	}
	sum := ZeroDecimal()
	for _, i := range indices {
		v, err := sum.TryAdd(DecimalFromU64(s.Entries[i].BorrowedAmount))
		if err != nil {
			return Decimal{}, err
		}
		sum = v
	}
	return sum.TryDiv(DecimalFromU64(uint64(len(indices))))
}

// AverageCap returns the arithmetic mean of (AvailableAmount+BorrowedAmount)
// over every populated entry with Slot >= since.
func (s *ReserveCapSnapshots) AverageCap(since uint64) (Decimal, error) {
	indices := s.sinceIndices(since)
	if len(indices) == 0 {
		return Decimal{}, ErrNotEnoughSnapshots
	}
	sum := ZeroDecimal()
	for _, i := range indices {
		cap, err := DecimalFromU64(s.Entries[i].AvailableAmount).TryAdd(DecimalFromU64(s.Entries[i].BorrowedAmount))
		if err != nil {
			return Decimal{}, err
		}
		v, err := sum.TryAdd(cap)
		if err != nil {
			return Decimal{}, err
		}
		sum = v
	}
	return sum.TryDiv(DecimalFromU64(uint64(len(indices))))
}
