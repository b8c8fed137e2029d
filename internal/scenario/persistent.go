package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/joelkehle/invoice-roi/internal/roi"
)

type persistentState struct {
	NextID    int64      `json:"next_id"`
	Scenarios []Scenario `json:"scenarios"`
}

// FileStore wraps a MemoryStore and snapshots it to a JSON file after every
// mutation. Writes go to a temp file first and are renamed into place; a
// mutation whose write fails is rolled back.
type FileStore struct {
	inner *MemoryStore
	path  string
	mu    sync.Mutex
}

func NewFileStore(path string, cfg Config) (*FileStore, error) {
	fs := &FileStore{
		inner: NewMemoryStore(cfg),
		path:  path,
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (f *FileStore) stateSnapshot() persistentState {
	f.inner.mu.Lock()
	defer f.inner.mu.Unlock()

	state := persistentState{
		NextID:    f.inner.nextID,
		Scenarios: make([]Scenario, 0, len(f.inner.byID)),
	}
	for _, sc := range f.inner.byID {
		state.Scenarios = append(state.Scenarios, cloneScenario(sc))
	}
	sortByRecency(state.Scenarios)
	return state
}

func (f *FileStore) applyState(state persistentState) {
	f.inner.mu.Lock()
	defer f.inner.mu.Unlock()

	f.inner.nextID = state.NextID
	f.inner.byID = map[int64]*Scenario{}
	f.inner.byName = map[string]int64{}
	for _, sc := range state.Scenarios {
		cp := sc
		f.inner.byID[cp.ID] = &cp
		f.inner.byName[cp.ScenarioName] = cp.ID
		if cp.ID > f.inner.nextID {
			f.inner.nextID = cp.ID
		}
	}
}

// persistLocked writes the current state to disk. Callers hold f.mu.
func (f *FileStore) persistLocked() error {
	blob, err := json.MarshalIndent(f.stateSnapshot(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// mutate applies op to the in-memory store and persists it. When the write
// fails the in-memory state is restored, so memory never runs ahead of disk.
func (f *FileStore) mutate(op func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	before := f.stateSnapshot()
	if err := op(); err != nil {
		return err
	}
	if err := f.persistLocked(); err != nil {
		f.applyState(before)
		return fmt.Errorf("persist scenarios: %w", err)
	}
	return nil
}

func (f *FileStore) load() error {
	blob, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var state persistentState
	if err := json.Unmarshal(blob, &state); err != nil {
		return err
	}
	f.applyState(state)
	return nil
}

func (f *FileStore) Save(ctx context.Context, in roi.ScenarioInputs, result roi.CalculationResult) (Scenario, error) {
	var out Scenario
	err := f.mutate(func() error {
		var err error
		out, err = f.inner.Save(ctx, in, result)
		return err
	})
	if err != nil {
		return Scenario{}, err
	}
	return out, nil
}

func (f *FileStore) List(ctx context.Context) ([]Scenario, error) {
	return f.inner.List(ctx)
}

func (f *FileStore) Get(ctx context.Context, id int64) (Scenario, error) {
	return f.inner.Get(ctx, id)
}

func (f *FileStore) Delete(ctx context.Context, id int64) error {
	return f.mutate(func() error { return f.inner.Delete(ctx, id) })
}

func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.persistLocked()
}

var _ Store = (*FileStore)(nil)
