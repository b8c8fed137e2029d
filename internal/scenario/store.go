package scenario

import (
	"context"
	"sync"

	"github.com/joelkehle/invoice-roi/internal/roi"
)

// MemoryStore keeps scenarios in process memory.
type MemoryStore struct {
	cfg Config

	mu     sync.Mutex
	nextID int64
	byID   map[int64]*Scenario
	byName map[string]int64
}

func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{
		cfg:    cfg,
		byID:   map[int64]*Scenario{},
		byName: map[string]int64{},
	}
}

func (s *MemoryStore) Save(_ context.Context, in roi.ScenarioInputs, result roi.CalculationResult) (Scenario, error) {
	in, err := prepareInputs(in)
	if err != nil {
		return Scenario{}, err
	}
	name := in.ScenarioName

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.now()
	if id, ok := s.byName[name]; ok {
		sc := s.byID[id]
		sc.ScenarioInputs = in
		sc.Results = result
		sc.UpdatedAt = now
		return cloneScenario(sc), nil
	}

	s.nextID++
	sc := &Scenario{
		ID:             s.nextID,
		ScenarioInputs: in,
		Results:        result,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.byID[sc.ID] = sc
	s.byName[name] = sc.ID
	return cloneScenario(sc), nil
}

func (s *MemoryStore) List(_ context.Context) ([]Scenario, error) {
	s.mu.Lock()
	out := make([]Scenario, 0, len(s.byID))
	for _, sc := range s.byID {
		out = append(out, cloneScenario(sc))
	}
	s.mu.Unlock()
	sortByRecency(out)
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.byID[id]
	if !ok {
		return Scenario{}, ErrNotFound
	}
	return cloneScenario(sc), nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byName, sc.ScenarioName)
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func cloneScenario(sc *Scenario) Scenario {
	cp := *sc
	cp.ScenarioInputs = sc.ScenarioInputs.Clone()
	return cp
}

var _ Store = (*MemoryStore)(nil)
