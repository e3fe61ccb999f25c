package ledger

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/brk3/habitstreak/internal/storage"
	"github.com/brk3/habitstreak/pkg/habit"
)

// memStore is an in-memory CompletionStore. A transaction works on a copy
// of the habit's rows and only swaps it in when fn succeeds.
type memStore struct {
	mu   sync.Mutex
	data map[string]map[habit.Date]habit.Completion

	// failInsertBatch makes InsertBatch fail after writing to the copy.
	failInsertBatch error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]map[habit.Date]habit.Completion{}}
}

func (m *memStore) ListCompletions(_ context.Context, habitID string) ([]habit.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return sortedCompletions(m.data[habitID]), nil
}

func (m *memStore) UpdateCompletions(_ context.Context, habitID string, fn func(tx storage.CompletionTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{rows: maps.Clone(m.data[habitID]), failInsertBatch: m.failInsertBatch}
	if tx.rows == nil {
		tx.rows = map[habit.Date]habit.Completion{}
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.data[habitID] = tx.rows
	return nil
}

func sortedCompletions(rows map[habit.Date]habit.Completion) []habit.Completion {
	out := slices.Collect(maps.Values(rows))
	slices.SortFunc(out, func(a, b habit.Completion) int { return a.Date.Compare(b.Date) })
	return out
}

type memTx struct {
	rows            map[habit.Date]habit.Completion
	failInsertBatch error
}

func (t *memTx) List() ([]habit.Completion, error) {
	return sortedCompletions(t.rows), nil
}

func (t *memTx) Get(day habit.Date) (habit.Completion, bool, error) {
	c, ok := t.rows[day]
	return c, ok, nil
}

func (t *memTx) Insert(c habit.Completion) error {
	if _, ok := t.rows[c.Date]; ok {
		return storage.ErrConflict
	}
	t.rows[c.Date] = c
	return nil
}

func (t *memTx) AddValue(c habit.Completion, delta int) (habit.Completion, error) {
	existing, ok := t.rows[c.Date]
	if !ok {
		c.Value = &delta
		t.rows[c.Date] = c
		return c, nil
	}
	total := delta
	if existing.Value != nil {
		total += *existing.Value
	}
	existing.Value = &total
	t.rows[c.Date] = existing
	return existing, nil
}

func (t *memTx) Delete(c habit.Completion) error {
	if _, ok := t.rows[c.Date]; !ok {
		return storage.ErrNotFound
	}
	delete(t.rows, c.Date)
	return nil
}

func (t *memTx) InsertBatch(cs []habit.Completion) (int, error) {
	n := 0
	for _, c := range cs {
		if err := t.Insert(c); err == nil {
			n++
		}
	}
	if t.failInsertBatch != nil {
		return 0, t.failInsertBatch
	}
	return n, nil
}

var _ storage.CompletionStore = (*memStore)(nil)
