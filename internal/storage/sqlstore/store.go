// Package sqlstore keeps habits and their completion ledger in a relational
// database. SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq) share one
// schema; the (habit_id, completion_date) pair is protected by a UNIQUE
// constraint so concurrent writers cannot record a day twice.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/brk3/habitstreak/internal/storage"
	"github.com/brk3/habitstreak/pkg/habit"
)

//go:embed schema.sql
var schemaSQL string

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Fixed-width UTC timestamps sort correctly as text in both databases.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and applies the schema. For SQLite, dsn is
// a file path; for Postgres it is a lib/pq connection string.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders to $N for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) PutHabit(ctx context.Context, h habit.Habit) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO habits (id, user_id, name, description, habit_type, frequency_count,
			target_minutes, scheduled_time, duration_minutes, calendar_event_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			habit_type = excluded.habit_type,
			frequency_count = excluded.frequency_count,
			target_minutes = excluded.target_minutes,
			scheduled_time = excluded.scheduled_time,
			duration_minutes = excluded.duration_minutes,
			calendar_event_id = excluded.calendar_event_id`),
		h.ID, h.UserID, h.Name, h.Description, string(h.HabitType),
		nullInt(h.FrequencyCount), nullInt(h.TargetMinutes), nullString(h.ScheduledTime),
		nullInt(h.DurationMinutes), h.CalendarEventID, h.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("put habit: %w", err)
	}
	return nil
}

const habitColumns = `id, user_id, name, description, habit_type, frequency_count,
	target_minutes, scheduled_time, duration_minutes, calendar_event_id, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanHabit(row scanner) (habit.Habit, error) {
	var h habit.Habit
	var habitType, createdAt string
	var freq, target, duration sql.NullInt64
	var scheduled sql.NullString
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &habitType, &freq,
		&target, &scheduled, &duration, &h.CalendarEventID, &createdAt)
	if err != nil {
		return habit.Habit{}, err
	}
	h.HabitType = habit.HabitType(habitType)
	h.FrequencyCount = intPtr(freq)
	h.TargetMinutes = intPtr(target)
	h.DurationMinutes = intPtr(duration)
	if scheduled.Valid {
		h.ScheduledTime = &scheduled.String
	}
	h.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return habit.Habit{}, fmt.Errorf("failed to parse created_at for habit %s: %w", h.ID, err)
	}
	return h, nil
}

func (s *Store) GetHabit(ctx context.Context, habitID string) (habit.Habit, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+habitColumns+` FROM habits WHERE id = ?`), habitID)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return habit.Habit{}, storage.ErrNotFound
	}
	if err != nil {
		return habit.Habit{}, fmt.Errorf("get habit: %w", err)
	}
	return h, nil
}

func (s *Store) ListHabits(ctx context.Context, userID string) ([]habit.Habit, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+habitColumns+` FROM habits WHERE user_id = ? ORDER BY created_at`), userID)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	out := []habit.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("list habits: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// DeleteHabit removes completions explicitly as well as relying on the
// foreign key cascade, since SQLite only enforces it when the pragma is on.
func (s *Store) DeleteHabit(ctx context.Context, habitID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM habit_completions WHERE habit_id = ?`), habitID); err != nil {
			return fmt.Errorf("delete completions: %w", err)
		}
		res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM habits WHERE id = ?`), habitID)
		if err != nil {
			return fmt.Errorf("delete habit: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

var _ storage.Store = (*Store)(nil)
