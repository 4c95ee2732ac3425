// Package history implements the bounded most-recent-first completed-test
// list of spec §4.9.
package history

import (
	"sync"

	"github.com/torosent/loadsentinel/internal/model"
)

const maxRecords = 100

// Ring is a most-recent-first bounded history of completed tests.
type Ring struct {
	mu      sync.Mutex
	records []model.HistoryRecord
}

// New returns an empty Ring.
func New() *Ring {
	return &Ring{}
}

// Add prepends r, dropping the oldest record if the bound is exceeded.
func (h *Ring) Add(r model.HistoryRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append([]model.HistoryRecord{r}, h.records...)
	if len(h.records) > maxRecords {
		h.records = h.records[:maxRecords]
	}
}

// All returns an independent copy of the history, newest-first.
func (h *Ring) All() []model.HistoryRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.HistoryRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Get performs a linear lookup by id.
func (h *Ring) Get(id string) (model.HistoryRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.ID == id {
			return r, true
		}
	}
	return model.HistoryRecord{}, false
}

// GetMany returns the records matching ids, preserved in history order
// (not the order of ids).
func (h *Ring) GetMany(ids []string) []model.HistoryRecord {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []model.HistoryRecord
	for _, r := range h.records {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out
}
