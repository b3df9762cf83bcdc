// Package storetest holds behaviour tests shared by every storage.Store
// implementation.
package storetest

import (
	"testing"

	"github.com/brk3/habitboard/internal/storage"
	"github.com/brk3/habitboard/pkg/habit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises the ledger contract against stores produced by open. Each
// subtest gets a fresh store.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Run("CreateAndGetHabit", func(t *testing.T) { testCreateAndGetHabit(t, open(t)) })
	t.Run("UpdateHabit", func(t *testing.T) { testUpdateHabit(t, open(t)) })
	t.Run("MissingHabit", func(t *testing.T) { testMissingHabit(t, open(t)) })
	t.Run("UserIsolation", func(t *testing.T) { testUserIsolation(t, open(t)) })
	t.Run("AddCompletionIdempotent", func(t *testing.T) { testAddCompletionIdempotent(t, open(t)) })
	t.Run("AddCompletionUnknownHabit", func(t *testing.T) { testAddCompletionUnknownHabit(t, open(t)) })
	t.Run("ListCompletionsByRange", func(t *testing.T) { testListByRange(t, open(t)) })
	t.Run("RemoveCompletion", func(t *testing.T) { testRemoveCompletion(t, open(t)) })
	t.Run("RemoveCompletionByDate", func(t *testing.T) { testRemoveCompletionByDate(t, open(t)) })
	t.Run("DeleteHabitCascades", func(t *testing.T) { testDeleteHabitCascades(t, open(t)) })
	t.Run("Accounts", func(t *testing.T) { testAccounts(t, open(t)) })
	t.Run("APIKeys", func(t *testing.T) { testAPIKeys(t, open(t)) })
}

func mustCreate(t *testing.T, s storage.Store, userID, name string) habit.Habit {
	t.Helper()
	in, err := habit.HabitInput{Name: &name}.Normalize(false)
	require.NoError(t, err)
	h, err := s.CreateHabit(userID, in)
	require.NoError(t, err)
	return h
}

func testCreateAndGetHabit(t *testing.T, s storage.Store) {
	h := mustCreate(t, s, "alice", "guitar")
	assert.NotEmpty(t, h.ID)
	assert.Equal(t, "alice", h.UserID)
	assert.Equal(t, habit.CycleDaily, h.Cycle)
	assert.False(t, h.CreatedAt.IsZero())

	got, err := s.GetHabit("alice", h.ID)
	require.NoError(t, err)
	assert.Equal(t, h.Name, got.Name)
	assert.True(t, h.CreatedAt.Equal(got.CreatedAt))

	list, err := s.ListHabits("alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, h.ID, list[0].ID)
}

func testUpdateHabit(t *testing.T, s storage.Store) {
	h := mustCreate(t, s, "alice", "guitar")
	cycle := habit.CycleWeekly
	msg := "  keep going "
	in, err := habit.HabitInput{Cycle: &cycle, Message: &msg}.Normalize(true)
	require.NoError(t, err)

	got, err := s.UpdateHabit("alice", h.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "guitar", got.Name)
	assert.Equal(t, habit.CycleWeekly, got.Cycle)
	assert.Equal(t, "keep going", got.Message)
	assert.False(t, got.UpdatedAt.Before(h.UpdatedAt))

	stored, err := s.GetHabit("alice", h.ID)
	require.NoError(t, err)
	assert.Equal(t, habit.CycleWeekly, stored.Cycle)
}

func testMissingHabit(t *testing.T, s storage.Store) {
	_, err := s.GetHabit("alice", "habit_missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.UpdateHabit("alice", "habit_missing", habit.HabitInput{})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, s.DeleteHabit("alice", "habit_missing"), storage.ErrNotFound)
}

func testUserIsolation(t *testing.T, s storage.Store) {
	h := mustCreate(t, s, "alice", "guitar")
	_, _, err := s.AddCompletion("alice", h.ID, "2024-03-01")
	require.NoError(t, err)

	habits, err := s.ListHabits("bob")
	require.NoError(t, err)
	assert.Empty(t, habits)

	completions, err := s.ListCompletions("bob", "")
	require.NoError(t, err)
	assert.Empty(t, completions)

	_, err = s.GetHabit("bob", h.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.DeleteHabit("bob", h.ID), storage.ErrNotFound)
}

func testAddCompletionIdempotent(t *testing.T, s storage.Store) {
	h := mustCreate(t, s, "alice", "guitar")

	first, created, err := s.AddCompletion("alice", h.ID, "2024-03-01")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.AddCompletion("alice", h.ID, "2024-03-01")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	all, err := s.ListCompletions("alice", h.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testAddCompletionUnknownHabit(t *testing.T, s storage.Store) {
	_, _, err := s.AddCompletion("alice", "habit_missing", "2024-03-01")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testListByRange(t *testing.T, s storage.Store) {
	a := mustCreate(t, s, "alice", "guitar")
	b := mustCreate(t, s, "alice", "run")
	for _, d := range []string{"2024-02-29", "2024-03-01", "2024-03-31", "2024-04-01"} {
		_, _, err := s.AddCompletion("alice", a.ID, d)
		require.NoError(t, err)
	}
	_, _, err := s.AddCompletion("alice", b.ID, "2024-03-15")
	require.NoError(t, err)

	got, err := s.ListCompletionsByRange("alice", "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	dates := make([]string, len(got))
	for i, c := range got {
		dates[i] = c.Date
	}
	assert.ElementsMatch(t, []string{"2024-03-01", "2024-03-15", "2024-03-31"}, dates)

	open, err := s.ListCompletionsByRange("alice", "", "")
	require.NoError(t, err)
	assert.Len(t, open, 5)
}

func testRemoveCompletion(t *testing.T, s storage.Store) {
	h := mustCreate(t, s, "alice", "guitar")
	c, _, err := s.AddCompletion("alice", h.ID, "2024-03-01")
	require.NoError(t, err)

	assert.ErrorIs(t, s.RemoveCompletion("bob", h.ID, c.ID), storage.ErrNotFound)
	assert.ErrorIs(t, s.RemoveCompletion("alice", "habit_other", c.ID), storage.ErrNotFound)
	assert.ErrorIs(t, s.RemoveCompletion("alice", h.ID, "completion_missing"), storage.ErrNotFound)

	require.NoError(t, s.RemoveCompletion("alice", h.ID, c.ID))
	assert.ErrorIs(t, s.RemoveCompletion("alice", h.ID, c.ID), storage.ErrNotFound)

	all, err := s.ListCompletions("alice", h.ID)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testRemoveCompletionByDate(t *testing.T, s storage.Store) {
	h := mustCreate(t, s, "alice", "guitar")
	c, _, err := s.AddCompletion("alice", h.ID, "2024-03-01")
	require.NoError(t, err)

	removed, err := s.RemoveCompletionByDate("alice", h.ID, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, c.ID, removed.ID)

	_, err = s.RemoveCompletionByDate("alice", h.ID, "2024-03-01")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDeleteHabitCascades(t *testing.T, s storage.Store) {
	keep := mustCreate(t, s, "alice", "run")
	gone := mustCreate(t, s, "alice", "guitar")
	for _, d := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		_, _, err := s.AddCompletion("alice", gone.ID, d)
		require.NoError(t, err)
	}
	_, _, err := s.AddCompletion("alice", keep.ID, "2024-03-01")
	require.NoError(t, err)

	require.NoError(t, s.DeleteHabit("alice", gone.ID))

	all, err := s.ListCompletions("alice", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].HabitID)

	left, err := s.ListCompletions("alice", gone.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func testAccounts(t *testing.T, s storage.Store) {
	a, err := s.CreateAccount("alice", "hash")
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)

	_, err = s.CreateAccount("alice", "other")
	assert.ErrorIs(t, err, storage.ErrAccountExists)

	got, err := s.GetAccountByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = s.GetAccountByUsername("bob")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testAPIKeys(t *testing.T, s storage.Store) {
	_, found, err := s.GetAPIKey("nonexistent-key")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.PutAPIKey("key1", "user1"))
	require.NoError(t, s.PutAPIKey("key2", "user1"))
	require.NoError(t, s.PutAPIKey("key3", "user2"))

	userID, found, err := s.GetAPIKey("key1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "user1", userID)

	hashes, err := s.ListAPIKeyHashes("user1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"key1", "key2"}, hashes)

	require.NoError(t, s.DeleteAPIKey("key1"))
	_, found, err = s.GetAPIKey("key1")
	require.NoError(t, err)
	assert.False(t, found)
}
