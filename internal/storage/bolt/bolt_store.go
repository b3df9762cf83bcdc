package bolt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/brk3/habitboard/internal/storage"
	"github.com/brk3/habitboard/pkg/habit"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// Layout:
//
//	users/<user id>/habits       habit id -> Habit
//	users/<user id>/completions  "<habit id>/<date>" -> Completion
//	accounts                     username -> Account
//	apikeys                      sha256 hex -> user id
const (
	rootBucket        = "users"
	habitsBucket      = "habits"
	completionsBucket = "completions"
	accountsBucket    = "accounts"
	apiKeysBucket     = "apikeys"
	defaultUserID     = "default"
)

type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db %s: %w", path, err)
	}

	s := &Store{db: db, now: time.Now}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{rootBucket, accountsBucket, apiKeysBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// userBucket returns the named sub-bucket for userID. In read-only
// transactions a missing bucket yields nil.
func userBucket(tx *bbolt.Tx, userID, name string) (*bbolt.Bucket, error) {
	if userID == "" {
		userID = defaultUserID
	}
	users := tx.Bucket([]byte(rootBucket))
	if !tx.Writable() {
		ub := users.Bucket([]byte(userID))
		if ub == nil {
			return nil, nil
		}
		return ub.Bucket([]byte(name)), nil
	}
	ub, err := users.CreateBucketIfNotExists([]byte(userID))
	if err != nil {
		return nil, err
	}
	return ub.CreateBucketIfNotExists([]byte(name))
}

func completionKey(habitID, date string) []byte {
	return []byte(habitID + "/" + date)
}

func habitPrefix(habitID string) []byte {
	return []byte(habitID + "/")
}

func getHabit(tx *bbolt.Tx, userID, habitID string) (habit.Habit, error) {
	b, err := userBucket(tx, userID, habitsBucket)
	if err != nil {
		return habit.Habit{}, err
	}
	if b == nil {
		return habit.Habit{}, storage.ErrNotFound
	}
	v := b.Get([]byte(habitID))
	if v == nil {
		return habit.Habit{}, storage.ErrNotFound
	}
	var h habit.Habit
	if err := json.Unmarshal(v, &h); err != nil {
		return habit.Habit{}, fmt.Errorf("decoding habit %s: %w", habitID, err)
	}
	return h, nil
}

func putJSON(b *bbolt.Bucket, key []byte, v any) error {
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, val)
}

func (s *Store) ListHabits(userID string) ([]habit.Habit, error) {
	out := []habit.Habit{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := userBucket(tx, userID, habitsBucket)
		if err != nil || b == nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
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
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetHabit(userID, habitID string) (habit.Habit, error) {
	var h habit.Habit
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		h, err = getHabit(tx, userID, habitID)
		return err
	})
	return h, err
}

func (s *Store) CreateHabit(userID string, in habit.HabitInput) (habit.Habit, error) {
	h := habit.NewHabit(userID, in, s.now())
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := userBucket(tx, userID, habitsBucket)
		if err != nil {
			return err
		}
		return putJSON(b, []byte(h.ID), h)
	})
	if err != nil {
		return habit.Habit{}, err
	}
	return h, nil
}

func (s *Store) UpdateHabit(userID, habitID string, in habit.HabitInput) (habit.Habit, error) {
	var h habit.Habit
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		if h, err = getHabit(tx, userID, habitID); err != nil {
			return err
		}
		h.Apply(in, s.now())
		b, err := userBucket(tx, userID, habitsBucket)
		if err != nil {
			return err
		}
		return putJSON(b, []byte(h.ID), h)
	})
	if err != nil {
		return habit.Habit{}, err
	}
	return h, nil
}

func (s *Store) DeleteHabit(userID, habitID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := getHabit(tx, userID, habitID); err != nil {
			return err
		}
		hb, err := userBucket(tx, userID, habitsBucket)
		if err != nil {
			return err
		}
		if err := hb.Delete([]byte(habitID)); err != nil {
			return err
		}

		cb, err := userBucket(tx, userID, completionsBucket)
		if err != nil {
			return err
		}
		// Collect first: deleting under a live cursor can skip keys.
		var keys [][]byte
		c := cb.Cursor()
		prefix := habitPrefix(habitID)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, bytes.Clone(k))
		}
		for _, k := range keys {
			if err := cb.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListCompletions(userID, habitID string) ([]habit.Completion, error) {
	out := []habit.Completion{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := userBucket(tx, userID, completionsBucket)
		if err != nil || b == nil {
			return err
		}
		c := b.Cursor()
		var prefix []byte
		k, v := c.First()
		if habitID != "" {
			prefix = habitPrefix(habitID)
			k, v = c.Seek(prefix)
		}
		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var e habit.Completion
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortCompletions(out)
	return out, nil
}

func (s *Store) ListCompletionsByRange(userID, start, end string) ([]habit.Completion, error) {
	all, err := s.ListCompletions(userID, "")
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, c := range all {
		if start != "" && c.Date < start {
			continue
		}
		if end != "" && c.Date > end {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) AddCompletion(userID, habitID, date string) (habit.Completion, bool, error) {
	var (
		out     habit.Completion
		created bool
	)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := getHabit(tx, userID, habitID); err != nil {
			return err
		}
		b, err := userBucket(tx, userID, completionsBucket)
		if err != nil {
			return err
		}
		key := completionKey(habitID, date)
		if v := b.Get(key); v != nil {
			return json.Unmarshal(v, &out)
		}
		out = habit.NewCompletion(userID, habitID, date, s.now())
		created = true
		return putJSON(b, key, out)
	})
	if err != nil {
		return habit.Completion{}, false, err
	}
	return out, created, nil
}

func (s *Store) RemoveCompletion(userID, habitID, completionID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := userBucket(tx, userID, completionsBucket)
		if err != nil {
			return err
		}
		c := b.Cursor()
		prefix := habitPrefix(habitID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var e habit.Completion
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if e.ID == completionID {
				return b.Delete(bytes.Clone(k))
			}
		}
		return storage.ErrNotFound
	})
}

func (s *Store) RemoveCompletionByDate(userID, habitID, date string) (habit.Completion, error) {
	var out habit.Completion
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := userBucket(tx, userID, completionsBucket)
		if err != nil {
			return err
		}
		key := completionKey(habitID, date)
		v := b.Get(key)
		if v == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(v, &out); err != nil {
			return err
		}
		return b.Delete(key)
	})
	if err != nil {
		return habit.Completion{}, err
	}
	return out, nil
}

func (s *Store) CreateAccount(username, passwordHash string) (habit.Account, error) {
	a := habit.Account{
		ID:           "user_" + uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(accountsBucket))
		if b.Get([]byte(username)) != nil {
			return storage.ErrAccountExists
		}
		return putJSON(b, []byte(username), a)
	})
	if err != nil {
		return habit.Account{}, err
	}
	return a, nil
}

func (s *Store) GetAccountByUsername(username string) (habit.Account, error) {
	var a habit.Account
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(accountsBucket)).Get([]byte(username))
		if v == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(v, &a)
	})
	return a, err
}

func (s *Store) PutAPIKey(keyHash, userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeysBucket)).Put([]byte(keyHash), []byte(userID))
	})
}

func (s *Store) GetAPIKey(keyHash string) (string, bool, error) {
	var userID string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(apiKeysBucket)).Get([]byte(keyHash)); v != nil {
			userID = string(v)
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return userID, userID != "", nil
}

func (s *Store) ListAPIKeyHashes(userID string) ([]string, error) {
	out := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeysBucket)).ForEach(func(k, v []byte) error {
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
		return tx.Bucket([]byte(apiKeysBucket)).Delete([]byte(keyHash))
	})
}

func sortCompletions(cs []habit.Completion) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Date != cs[j].Date {
			return cs[i].Date < cs[j].Date
		}
		return cs[i].HabitID < cs[j].HabitID
	})
}

var _ storage.Store = (*Store)(nil)
