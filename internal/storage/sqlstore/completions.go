package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brk3/habitstreak/internal/storage"
	"github.com/brk3/habitstreak/pkg/habit"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) ListCompletions(ctx context.Context, habitID string) ([]habit.Completion, error) {
	return s.listCompletions(ctx, s.db, habitID)
}

func (s *Store) listCompletions(ctx context.Context, q queryer, habitID string) ([]habit.Completion, error) {
	rows, err := q.QueryContext(ctx, s.rebind(`
		SELECT id, habit_id, completion_date, value
		FROM habit_completions
		WHERE habit_id = ?
		ORDER BY completion_date`), habitID)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	out := []habit.Completion{}
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("list completions: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCompletion(row scanner) (habit.Completion, error) {
	var c habit.Completion
	var day string
	var value sql.NullInt64
	if err := row.Scan(&c.ID, &c.HabitID, &day, &value); err != nil {
		return habit.Completion{}, err
	}
	d, err := habit.ParseDate(day)
	if err != nil {
		return habit.Completion{}, fmt.Errorf("completion %s: %w", c.ID, err)
	}
	c.Date = d
	c.Value = intPtr(value)
	return c, nil
}

func (s *Store) UpdateCompletions(ctx context.Context, habitID string, fn func(tx storage.CompletionTx) error) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&completionTx{ctx: ctx, s: s, tx: tx, habitID: habitID})
	})
}

type completionTx struct {
	ctx     context.Context
	s       *Store
	tx      *sql.Tx
	habitID string
}

func (t *completionTx) List() ([]habit.Completion, error) {
	return t.s.listCompletions(t.ctx, t.tx, t.habitID)
}

func (t *completionTx) Get(day habit.Date) (habit.Completion, bool, error) {
	row := t.tx.QueryRowContext(t.ctx, t.s.rebind(`
		SELECT id, habit_id, completion_date, value
		FROM habit_completions
		WHERE habit_id = ? AND completion_date = ?`), t.habitID, day.String())
	c, err := scanCompletion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return habit.Completion{}, false, nil
	}
	if err != nil {
		return habit.Completion{}, false, fmt.Errorf("get completion: %w", err)
	}
	return c, true, nil
}

// insert relies on the UNIQUE (habit_id, completion_date) constraint; a
// row that was not created means the day is already recorded.
func (t *completionTx) insert(c habit.Completion) (bool, error) {
	if c.HabitID != t.habitID {
		return false, fmt.Errorf("completion for habit %q written in transaction for %q", c.HabitID, t.habitID)
	}
	res, err := t.tx.ExecContext(t.ctx, t.s.rebind(`
		INSERT INTO habit_completions (id, habit_id, completion_date, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (habit_id, completion_date) DO NOTHING`),
		c.ID, c.HabitID, c.Date.String(), nullInt(c.Value))
	if err != nil {
		return false, fmt.Errorf("insert completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert completion: %w", err)
	}
	return n == 1, nil
}

func (t *completionTx) Insert(c habit.Completion) error {
	created, err := t.insert(c)
	if err != nil {
		return err
	}
	if !created {
		return storage.ErrConflict
	}
	return nil
}

func (t *completionTx) InsertBatch(cs []habit.Completion) (int, error) {
	n := 0
	for _, c := range cs {
		created, err := t.insert(c)
		if err != nil {
			return 0, err
		}
		if created {
			n++
		}
	}
	return n, nil
}

// AddValue is a single upsert so concurrent trackers never lose an
// increment, whatever the isolation level.
func (t *completionTx) AddValue(c habit.Completion, delta int) (habit.Completion, error) {
	if c.HabitID != t.habitID {
		return habit.Completion{}, fmt.Errorf("completion for habit %q written in transaction for %q", c.HabitID, t.habitID)
	}
	row := t.tx.QueryRowContext(t.ctx, t.s.rebind(`
		INSERT INTO habit_completions (id, habit_id, completion_date, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (habit_id, completion_date)
		DO UPDATE SET value = COALESCE(habit_completions.value, 0) + excluded.value
		RETURNING id, habit_id, completion_date, value`),
		c.ID, c.HabitID, c.Date.String(), int64(delta))
	out, err := scanCompletion(row)
	if err != nil {
		return habit.Completion{}, fmt.Errorf("add completion value: %w", err)
	}
	return out, nil
}

func (t *completionTx) Delete(c habit.Completion) error {
	res, err := t.tx.ExecContext(t.ctx, t.s.rebind(`
		DELETE FROM habit_completions WHERE id = ? AND habit_id = ?`), c.ID, t.habitID)
	if err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
