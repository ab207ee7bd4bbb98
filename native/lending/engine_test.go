package lending

import (
	"nhbchain/crypto"
)

// mockEngineState is an in-memory engineState backing test scenarios,
// mirroring the map-of-bytes-keyed-by-address shape used elsewhere in the
// native engine test suites.
type mockEngineState struct {
	markets     map[string]*LendingMarket
	reserves    map[string]*Reserve
	obligations map[string]*Obligation
	strategies  map[string]*EmissionStrategy
	snapshots   map[string]*ReserveCapSnapshots
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{
		markets:     make(map[string]*LendingMarket),
		reserves:    make(map[string]*Reserve),
		obligations: make(map[string]*Obligation),
		strategies:  make(map[string]*EmissionStrategy),
		snapshots:   make(map[string]*ReserveCapSnapshots),
	}
}

func key(addr crypto.Address) string { return string(addr.Bytes()) }

func (m *mockEngineState) GetMarket(addr crypto.Address) (*LendingMarket, error) {
	return m.markets[key(addr)], nil
}

func (m *mockEngineState) PutMarket(addr crypto.Address, market *LendingMarket) error {
	m.markets[key(addr)] = market
	return nil
}

func (m *mockEngineState) GetReserve(addr crypto.Address) (*Reserve, error) {
	return m.reserves[key(addr)], nil
}

func (m *mockEngineState) PutReserve(addr crypto.Address, reserve *Reserve) error {
	m.reserves[key(addr)] = reserve
	return nil
}

func (m *mockEngineState) GetObligation(addr crypto.Address) (*Obligation, error) {
	return m.obligations[key(addr)], nil
}

func (m *mockEngineState) PutObligation(addr crypto.Address, obligation *Obligation) error {
	m.obligations[key(addr)] = obligation
	return nil
}

func (m *mockEngineState) GetEmissionStrategy(addr crypto.Address) (*EmissionStrategy, error) {
	return m.strategies[key(addr)], nil
}

func (m *mockEngineState) PutEmissionStrategy(addr crypto.Address, strategy *EmissionStrategy) error {
	m.strategies[key(addr)] = strategy
	return nil
}

func (m *mockEngineState) GetCapSnapshots(reserve crypto.Address) (*ReserveCapSnapshots, error) {
	return m.snapshots[key(reserve)], nil
}

func (m *mockEngineState) PutCapSnapshots(reserve crypto.Address, snapshots *ReserveCapSnapshots) error {
	m.snapshots[key(reserve)] = snapshots
	return nil
}

type mockPauseView struct {
	paused map[string]bool
}

func (p *mockPauseView) IsPaused(module string) bool {
	return p.paused != nil && p.paused[module]
}
