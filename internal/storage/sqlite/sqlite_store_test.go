package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/brk3/habitflow/internal/storage"
	"github.com/brk3/habitflow/internal/tracker"
	"github.com/brk3/habitflow/pkg/habit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "habits.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

func TestHabitLifecycle(t *testing.T) {
	s := newTestStore(t)

	h, err := s.CreateHabit(habit.Habit{OwnerID: "alice", Title: "meditate", Description: "10 min", Frequency: habit.Daily})
	require.NoError(t, err)
	require.NotEmpty(t, h.ID)
	assert.Empty(t, h.CompletedDates)

	day := time.Date(2026, 10, 14, 7, 30, 0, 0, time.UTC)
	updated, err := s.UpdateHabit("alice", h.ID, func(h *habit.Habit) error {
		h.CompletedDates = tracker.MarkComplete(*h, day)
		h.Frequency = habit.Weekly
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, habit.Weekly, updated.Frequency)

	got, err := s.GetHabit("alice", h.ID)
	require.NoError(t, err)
	assert.Equal(t, "10 min", got.Description)
	assert.Equal(t, habit.Weekly, got.Frequency)
	require.Len(t, got.CompletedDates, 1)
	assert.True(t, tracker.IsCompletedOn(got, day))
	assert.Equal(t, h.CreatedAt.Unix(), got.CreatedAt.Unix())

	_, err = s.GetHabit("bob", h.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.DeleteHabit("alice", h.ID))
	assert.ErrorIs(t, s.DeleteHabit("alice", h.ID), storage.ErrNotFound)
	_, err = s.GetHabit("alice", h.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListHabits_OrderAndOwner(t *testing.T) {
	s := newTestStore(t)

	for _, title := range []string{"a", "b", "c"} {
		_, err := s.CreateHabit(habit.Habit{OwnerID: "alice", Title: title, Frequency: habit.Daily})
		require.NoError(t, err)
	}
	_, err := s.CreateHabit(habit.Habit{OwnerID: "bob", Title: "z", Frequency: habit.Daily})
	require.NoError(t, err)

	habits, err := s.ListHabits("alice")
	require.NoError(t, err)
	require.Len(t, habits, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{habits[0].Title, habits[1].Title, habits[2].Title})

	empty, err := s.ListHabits("nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestUpdateHabit_ValidationRollsBack(t *testing.T) {
	s := newTestStore(t)
	h, err := s.CreateHabit(habit.Habit{OwnerID: "alice", Title: "walk", Frequency: habit.Daily})
	require.NoError(t, err)

	_, err = s.UpdateHabit("alice", h.ID, func(h *habit.Habit) error {
		h.Frequency = "yearly"
		return nil
	})
	assert.ErrorIs(t, err, habit.ErrValidation)

	got, err := s.GetHabit("alice", h.ID)
	require.NoError(t, err)
	assert.Equal(t, habit.Daily, got.Frequency)
}

func TestUsersAndKeys(t *testing.T) {
	s := newTestStore(t)

	u, err := s.CreateUser(habit.User{Email: "Ann@Example.com", PasswordHash: "h"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)

	_, err = s.CreateUser(habit.User{Email: "ann@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, storage.ErrEmailTaken)

	got, err := s.GetUserByEmail(" ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "h", got.PasswordHash)

	_, err = s.GetUser("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.PutAPIKey("hash", u.ID))
	userID, found, err := s.GetAPIKey("hash")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, u.ID, userID)

	_, found, err = s.GetAPIKey("other")
	require.NoError(t, err)
	assert.False(t, found)
}
