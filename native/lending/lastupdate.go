package lending

// LastUpdate tracks the slot a record was last refreshed at and an explicit
// stale flag. A record is stale either because it was marked so by a
// mutating operation, or because too many slots have elapsed since the last
// refresh.
type LastUpdate struct {
	Slot  uint64
	Stale bool
}

// MarkFresh records the current slot and clears the stale flag. Called at
// the end of refresh-reserve and refresh-obligation.
func (u *LastUpdate) MarkFresh(slot uint64) {
	u.Slot = slot
	u.Stale = false
}

// MarkStale flags the record as needing a refresh before any dependent
// calculation may trust its aggregates. The obligation mutations (deposit,
// withdraw, borrow, repay) call this; the engine's reserve-mutating
// endpoints do not mark the reserve stale.
func (u *LastUpdate) MarkStale() {
	u.Stale = true
}

// IsStale reports whether the record is stale for the given slot and
// staleness window, either explicitly or because the window has elapsed.
func (u LastUpdate) IsStale(currentSlot, maxSlotsElapsed uint64) bool {
	if u.Stale {
		return true
	}
	if currentSlot < u.Slot {
		return false
	}
	return currentSlot-u.Slot >= maxSlotsElapsed
}

// IsFresh is the complement of IsStale using the standard market staleness
// window (MarketStaleAfterSlotsElapsed).
func (u LastUpdate) IsFresh(currentSlot uint64) bool {
	return !u.IsStale(currentSlot, MarketStaleAfterSlotsElapsed)
}

// SlotsElapsed returns currentSlot - u.Slot, clamped to zero so that a
// currentSlot that appears to precede the last update (e.g. the first call)
// never triggers an underflow.
func (u LastUpdate) SlotsElapsed(currentSlot uint64) uint64 {
	if currentSlot < u.Slot {
		return 0
	}
	return currentSlot - u.Slot
}
