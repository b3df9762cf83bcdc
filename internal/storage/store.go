package storage

import (
	"errors"

	"github.com/brk3/habitboard/pkg/habit"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAccountExists = errors.New("account already exists")
)

// HabitStore persists habits partitioned by user id. Lookups of a habit
// that does not exist for the user return ErrNotFound.
type HabitStore interface {
	ListHabits(userID string) ([]habit.Habit, error)
	GetHabit(userID, habitID string) (habit.Habit, error)
	// CreateHabit and UpdateHabit take input already passed through
	// HabitInput.Normalize.
	CreateHabit(userID string, in habit.HabitInput) (habit.Habit, error)
	UpdateHabit(userID, habitID string, in habit.HabitInput) (habit.Habit, error)
	// DeleteHabit removes the habit and all of its completions in one
	// transaction.
	DeleteHabit(userID, habitID string) error
}

// CompletionStore is the completion ledger. It holds at most one
// completion per (user, habit, date).
type CompletionStore interface {
	// ListCompletions returns the user's completions, restricted to one
	// habit when habitID is non-empty.
	ListCompletions(userID, habitID string) ([]habit.Completion, error)
	// ListCompletionsByRange returns completions with start <= date <= end.
	// An empty bound is open.
	ListCompletionsByRange(userID, start, end string) ([]habit.Completion, error)
	// AddCompletion is idempotent per date: if a completion already exists
	// it is returned with created=false.
	AddCompletion(userID, habitID, date string) (c habit.Completion, created bool, err error)
	RemoveCompletion(userID, habitID, completionID string) error
	RemoveCompletionByDate(userID, habitID, date string) (habit.Completion, error)
}

type AccountStore interface {
	// CreateAccount returns ErrAccountExists when the username is taken.
	CreateAccount(username, passwordHash string) (habit.Account, error)
	GetAccountByUsername(username string) (habit.Account, error)
}

type APIKeyStore interface {
	PutAPIKey(keyHash, userID string) error
	GetAPIKey(keyHash string) (userID string, found bool, err error)
	ListAPIKeyHashes(userID string) ([]string, error)
	DeleteAPIKey(keyHash string) error
}

type Store interface {
	HabitStore
	CompletionStore
	AccountStore
	APIKeyStore
	Close() error
}
