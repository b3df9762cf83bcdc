package server

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/brk3/habitboard/internal/storage"
	"github.com/brk3/habitboard/internal/storage/storetest"
	"github.com/brk3/habitboard/pkg/habit"
	"github.com/google/uuid"
)

// memStore keeps habits in insertion order so list responses are stable
// under a frozen clock.
type memStore struct {
	mu          sync.RWMutex
	now         func() time.Time
	habits      map[string][]habit.Habit
	completions map[string][]habit.Completion
	accounts    map[string]habit.Account
	apiKeys     map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		now:         time.Now,
		habits:      map[string][]habit.Habit{},
		completions: map[string][]habit.Completion{},
		accounts:    map[string]habit.Account{},
		apiKeys:     map[string]string{},
	}
}

func (m *memStore) Close() error { return nil }

func (m *memStore) indexOf(userID, habitID string) int {
	for i, h := range m.habits[userID] {
		if h.ID == habitID {
			return i
		}
	}
	return -1
}

func (m *memStore) ListHabits(userID string) ([]habit.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]habit.Habit{}, m.habits[userID]...), nil
}

func (m *memStore) GetHabit(userID, habitID string) (habit.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(userID, habitID)
	if i < 0 {
		return habit.Habit{}, storage.ErrNotFound
	}
	return m.habits[userID][i], nil
}

func (m *memStore) CreateHabit(userID string, in habit.HabitInput) (habit.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := habit.NewHabit(userID, in, m.now())
	m.habits[userID] = append(m.habits[userID], h)
	return h, nil
}

func (m *memStore) UpdateHabit(userID, habitID string, in habit.HabitInput) (habit.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(userID, habitID)
	if i < 0 {
		return habit.Habit{}, storage.ErrNotFound
	}
	h := &m.habits[userID][i]
	h.Apply(in, m.now())
	return *h, nil
}

func (m *memStore) DeleteHabit(userID, habitID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(userID, habitID)
	if i < 0 {
		return storage.ErrNotFound
	}
	m.habits[userID] = append(m.habits[userID][:i:i], m.habits[userID][i+1:]...)
	kept := []habit.Completion{}
	for _, c := range m.completions[userID] {
		if c.HabitID != habitID {
			kept = append(kept, c)
		}
	}
	m.completions[userID] = kept
	return nil
}

func (m *memStore) ListCompletions(userID, habitID string) ([]habit.Completion, error) {
	return m.filter(userID, func(c habit.Completion) bool {
		return habitID == "" || c.HabitID == habitID
	}), nil
}

func (m *memStore) ListCompletionsByRange(userID, start, end string) ([]habit.Completion, error) {
	return m.filter(userID, func(c habit.Completion) bool {
		return (start == "" || c.Date >= start) && (end == "" || c.Date <= end)
	}), nil
}

func (m *memStore) filter(userID string, keep func(habit.Completion) bool) []habit.Completion {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []habit.Completion{}
	for _, c := range m.completions[userID] {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (m *memStore) AddCompletion(userID, habitID, date string) (habit.Completion, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOf(userID, habitID) < 0 {
		return habit.Completion{}, false, storage.ErrNotFound
	}
	for _, c := range m.completions[userID] {
		if c.HabitID == habitID && c.Date == date {
			return c, false, nil
		}
	}
	c := habit.NewCompletion(userID, habitID, date, m.now())
	m.completions[userID] = append(m.completions[userID], c)
	return c, true, nil
}

func (m *memStore) removeWhere(userID string, match func(habit.Completion) bool) (habit.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.completions[userID]
	for i, c := range list {
		if match(c) {
			m.completions[userID] = append(list[:i:i], list[i+1:]...)
			return c, nil
		}
	}
	return habit.Completion{}, storage.ErrNotFound
}

func (m *memStore) RemoveCompletion(userID, habitID, completionID string) error {
	_, err := m.removeWhere(userID, func(c habit.Completion) bool {
		return c.HabitID == habitID && c.ID == completionID
	})
	return err
}

func (m *memStore) RemoveCompletionByDate(userID, habitID, date string) (habit.Completion, error) {
	return m.removeWhere(userID, func(c habit.Completion) bool {
		return c.HabitID == habitID && c.Date == date
	})
}

func (m *memStore) CreateAccount(username, passwordHash string) (habit.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[username]; ok {
		return habit.Account{}, storage.ErrAccountExists
	}
	a := habit.Account{
		ID:           "user_" + uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    m.now().UTC(),
	}
	m.accounts[username] = a
	return a, nil
}

func (m *memStore) GetAccountByUsername(username string) (habit.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[username]
	if !ok {
		return habit.Account{}, storage.ErrNotFound
	}
	return a, nil
}

func (m *memStore) PutAPIKey(keyHash, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKeys[keyHash] = userID
	return nil
}

func (m *memStore) GetAPIKey(keyHash string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	userID, ok := m.apiKeys[keyHash]
	return userID, ok, nil
}

func (m *memStore) ListAPIKeyHashes(userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []string{}
	for k, v := range m.apiKeys {
		if v == userID {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) DeleteAPIKey(keyHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.apiKeys, keyHash)
	return nil
}

func TestMemStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) storage.Store { return newMemStore() })
}
