package scenario

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps scenarios in process.
type MemoryRepository struct {
	mu     sync.RWMutex
	byDeal map[string][]Scenario
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byDeal: make(map[string][]Scenario)}
}

func (r *MemoryRepository) List(_ context.Context, dealID string) ([]Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Scenario, len(r.byDeal[dealID]))
	copy(out, r.byDeal[dealID])
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryRepository) Save(_ context.Context, s Scenario) (Scenario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.byDeal[s.DealID]
	for i, prev := range existing {
		if prev.ScenarioName == s.ScenarioName {
			s.ID = prev.ID
			existing[i] = s
			return s, nil
		}
	}
	r.byDeal[s.DealID] = append(existing, s)
	return s, nil
}

func (r *MemoryRepository) Delete(_ context.Context, dealID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.byDeal[dealID]
	for i, prev := range existing {
		if prev.ID == id {
			r.byDeal[dealID] = append(existing[:i:i], existing[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func sortNewestFirst(scenarios []Scenario) {
	sort.SliceStable(scenarios, func(i, j int) bool {
		return scenarios[i].CreatedAt.After(scenarios[j].CreatedAt)
	})
}
