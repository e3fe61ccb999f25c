package storage

import (
	"context"
	"errors"

	"github.com/brk3/habitstreak/pkg/habit"
	"golang.org/x/oauth2"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would break the one-completion-per-day rule.
	ErrConflict = errors.New("already exists")
)

type HabitStore interface {
	PutHabit(ctx context.Context, h habit.Habit) error
	GetHabit(ctx context.Context, habitID string) (habit.Habit, error)
	ListHabits(ctx context.Context, userID string) ([]habit.Habit, error)
	// DeleteHabit removes the habit and every completion it owns.
	DeleteHabit(ctx context.Context, habitID string) error
}

// CompletionTx is the view of the ledger available inside one transaction.
// Completions are scoped to the habit the transaction was opened for.
type CompletionTx interface {
	List() ([]habit.Completion, error)
	Get(day habit.Date) (habit.Completion, bool, error)
	Insert(c habit.Completion) error
	// AddValue adds delta to the value recorded for c.Date, counting a
	// missing value as zero, or inserts c with value delta when the day has
	// no completion yet. It returns the stored completion.
	AddValue(c habit.Completion, delta int) (habit.Completion, error)
	Delete(c habit.Completion) error
	// InsertBatch inserts cs and returns how many rows were created.
	InsertBatch(cs []habit.Completion) (int, error)
}

type CompletionStore interface {
	ListCompletions(ctx context.Context, habitID string) ([]habit.Completion, error)
	// UpdateCompletions runs fn in a single write transaction. If fn returns
	// an error nothing it wrote is kept.
	UpdateCompletions(ctx context.Context, habitID string, fn func(tx CompletionTx) error) error
}

type AuthStore interface {
	PutAPIKey(keyHash, userID string) error
	GetAPIKey(keyHash string) (userID string, found bool, err error)
	ListAPIKeyHashes(userID string) ([]string, error)
	DeleteAPIKey(keyHash string) error

	PutToken(userID string, tok *oauth2.Token) error
	GetToken(userID string) (*oauth2.Token, bool, error)
	DeleteToken(userID string) error

	// PutUser creates or replaces the profile of p.UserID.
	PutUser(p habit.UserProfile) error
	GetUser(userID string) (habit.UserProfile, bool, error)
}

type Store interface {
	HabitStore
	CompletionStore
	AuthStore
	Close() error
}
