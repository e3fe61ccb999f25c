package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/brk3/habitstreak/internal/storage"
	"github.com/brk3/habitstreak/pkg/habit"
	"go.etcd.io/bbolt"
	"golang.org/x/oauth2"
)

// Bucket layout:
//
//	habits/<habit_id>                      -> habit JSON
//	user_habits/<user_id>/<habit_id>       -> ""
//	completions/<habit_id>/<YYYY-MM-DD>    -> completion JSON
//	api_keys/<key_hash>                    -> user_id
//	tokens/<user_id>                       -> oauth2 token JSON
//	users/<user_id>                        -> profile JSON
//
// Keying completions by date makes (habit, date) unique by construction and
// keeps a cursor walk in date order.
var (
	habitsBucket      = []byte("habits")
	userHabitsBucket  = []byte("user_habits")
	completionsBucket = []byte("completions")
	apiKeysBucket     = []byte("api_keys")
	tokensBucket      = []byte("tokens")
	usersBucket       = []byte("users")
)

type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{habitsBucket, userHabitsBucket, completionsBucket, apiKeysBucket, tokensBucket, usersBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutHabit(_ context.Context, h habit.Habit) error {
	val, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(habitsBucket).Put([]byte(h.ID), val); err != nil {
			return err
		}
		userBucket, err := tx.Bucket(userHabitsBucket).CreateBucketIfNotExists([]byte(h.UserID))
		if err != nil {
			return err
		}
		return userBucket.Put([]byte(h.ID), []byte{})
	})
}

func (s *Store) GetHabit(_ context.Context, habitID string) (habit.Habit, error) {
	var h habit.Habit
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(habitsBucket).Get([]byte(habitID))
		if v == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(v, &h)
	})
	return h, err
}

func (s *Store) ListHabits(_ context.Context, userID string) ([]habit.Habit, error) {
	out := []habit.Habit{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		userBucket := tx.Bucket(userHabitsBucket).Bucket([]byte(userID))
		if userBucket == nil {
			return nil
		}
		habits := tx.Bucket(habitsBucket)
		return userBucket.ForEach(func(k, _ []byte) error {
			v := habits.Get(k)
			if v == nil {
				return nil
			}
			var h habit.Habit
			if err := json.Unmarshal(v, &h); err != nil {
				return err
			}
			out = append(out, h)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteHabit(_ context.Context, habitID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		habits := tx.Bucket(habitsBucket)
		v := habits.Get([]byte(habitID))
		if v == nil {
			return storage.ErrNotFound
		}
		var h habit.Habit
		if err := json.Unmarshal(v, &h); err != nil {
			return err
		}
		if err := habits.Delete([]byte(habitID)); err != nil {
			return err
		}
		if userBucket := tx.Bucket(userHabitsBucket).Bucket([]byte(h.UserID)); userBucket != nil {
			if err := userBucket.Delete([]byte(habitID)); err != nil {
				return err
			}
		}
		completions := tx.Bucket(completionsBucket)
		if completions.Bucket([]byte(habitID)) != nil {
			return completions.DeleteBucket([]byte(habitID))
		}
		return nil
	})
}

func (s *Store) ListCompletions(_ context.Context, habitID string) ([]habit.Completion, error) {
	var out []habit.Completion
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(completionsBucket).Bucket([]byte(habitID))
		var err error
		out, err = listCompletions(b)
		return err
	})
	return out, err
}

func (s *Store) UpdateCompletions(_ context.Context, habitID string, fn func(tx storage.CompletionTx) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(completionsBucket).CreateBucketIfNotExists([]byte(habitID))
		if err != nil {
			return err
		}
		return fn(&completionTx{habitID: habitID, b: b})
	})
}

func listCompletions(b *bbolt.Bucket) ([]habit.Completion, error) {
	out := []habit.Completion{}
	if b == nil {
		return out, nil
	}
	err := b.ForEach(func(_, v []byte) error {
		var c habit.Completion
		if err := json.Unmarshal(v, &c); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

type completionTx struct {
	habitID string
	b       *bbolt.Bucket
}

func (t *completionTx) List() ([]habit.Completion, error) {
	return listCompletions(t.b)
}

func (t *completionTx) Get(day habit.Date) (habit.Completion, bool, error) {
	v := t.b.Get([]byte(day.String()))
	if v == nil {
		return habit.Completion{}, false, nil
	}
	var c habit.Completion
	if err := json.Unmarshal(v, &c); err != nil {
		return habit.Completion{}, false, err
	}
	return c, true, nil
}

func (t *completionTx) Insert(c habit.Completion) error {
	if c.HabitID != t.habitID {
		return fmt.Errorf("completion for habit %q written in transaction for %q", c.HabitID, t.habitID)
	}
	key := []byte(c.Date.String())
	if t.b.Get(key) != nil {
		return storage.ErrConflict
	}
	return t.put(c)
}

func (t *completionTx) AddValue(c habit.Completion, delta int) (habit.Completion, error) {
	if c.HabitID != t.habitID {
		return habit.Completion{}, fmt.Errorf("completion for habit %q written in transaction for %q", c.HabitID, t.habitID)
	}
	existing, ok, err := t.Get(c.Date)
	if err != nil {
		return habit.Completion{}, err
	}
	if !ok {
		existing = c
	}
	total := delta
	if ok && existing.Value != nil {
		total += *existing.Value
	}
	existing.Value = &total
	return existing, t.put(existing)
}

func (t *completionTx) Delete(c habit.Completion) error {
	key := []byte(c.Date.String())
	if t.b.Get(key) == nil {
		return storage.ErrNotFound
	}
	return t.b.Delete(key)
}

func (t *completionTx) InsertBatch(cs []habit.Completion) (int, error) {
	created := 0
	for _, c := range cs {
		if err := t.Insert(c); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				continue
			}
			return 0, err
		}
		created++
	}
	return created, nil
}

func (t *completionTx) put(c habit.Completion) error {
	val, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return t.b.Put([]byte(c.Date.String()), val)
}

func (s *Store) PutAPIKey(keyHash, userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(apiKeysBucket).Put([]byte(keyHash), []byte(userID))
	})
}

func (s *Store) GetAPIKey(keyHash string) (string, bool, error) {
	var userID string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(apiKeysBucket).Get([]byte(keyHash)); v != nil {
			userID = string(v)
		}
		return nil
	})
	return userID, userID != "", err
}

func (s *Store) ListAPIKeyHashes(userID string) ([]string, error) {
	out := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(apiKeysBucket).ForEach(func(k, v []byte) error {
			if string(v) == userID {
				out = append(out, string(k))
			}
			return nil
		})
	})
	return out, err
}

func (s *Store) DeleteAPIKey(keyHash string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(apiKeysBucket).Delete([]byte(keyHash))
	})
}

func (s *Store) PutToken(userID string, tok *oauth2.Token) error {
	val, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(tokensBucket).Put([]byte(userID), val)
	})
}

func (s *Store) GetToken(userID string) (*oauth2.Token, bool, error) {
	var tok *oauth2.Token
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(tokensBucket).Get([]byte(userID))
		if v == nil {
			return nil
		}
		tok = new(oauth2.Token)
		return json.Unmarshal(v, tok)
	})
	if err != nil {
		return nil, false, err
	}
	return tok, tok != nil, nil
}

func (s *Store) DeleteToken(userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(tokensBucket).Delete([]byte(userID))
	})
}

func (s *Store) PutUser(p habit.UserProfile) error {
	val, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(usersBucket).Put([]byte(p.UserID), val)
	})
}

func (s *Store) GetUser(userID string) (habit.UserProfile, bool, error) {
	var p habit.UserProfile
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(usersBucket).Get([]byte(userID))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &p)
	})
	if err != nil {
		return habit.UserProfile{}, false, err
	}
	return p, found, nil
}

var _ storage.Store = (*Store)(nil)
