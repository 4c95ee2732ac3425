// Package store implements the test state store of spec §4.8: a keyed
// map with per-id mutation discipline and no eviction.
package store

import (
	"sync"

	"github.com/torosent/loadsentinel/internal/model"
)

type entry struct {
	mu    sync.Mutex
	state model.TestState
}

// Store holds one TestState per test id. Distinct ids never contend with
// each other; mutation of a given id always goes through Update.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Set registers a new state under id, replacing any existing entry.
func (s *Store) Set(id string, state model.TestState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &entry{state: state}
}

// Get returns a snapshot copy of the state for id, and whether it exists.
func (s *Store) Get(id string) (model.TestState, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return model.TestState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyState(e.state), true
}

// Update runs mutate under id's exclusive lock. It is the only path by
// which a test's state may be mutated after Set, per spec §4.8's mutation
// discipline. Returns false if id is unknown.
func (s *Store) Update(id string, mutate func(*model.TestState)) bool {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	mutate(&e.state)
	return true
}

// Delete removes id from the store.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

func copyState(s model.TestState) model.TestState {
	out := s
	out.Results = append([]model.RequestResult(nil), s.Results...)
	out.TimeSeries = append([]model.TimeSeriesPoint(nil), s.TimeSeries...)
	out.VerdictReasons = append([]string(nil), s.VerdictReasons...)
	if s.CompletedAt != nil {
		v := *s.CompletedAt
		out.CompletedAt = &v
	}
	if s.FirstViolationAt != nil {
		v := *s.FirstViolationAt
		out.FirstViolationAt = &v
	}
	if s.SafetyScore != nil {
		v := *s.SafetyScore
		out.SafetyScore = &v
	}
	return out
}
