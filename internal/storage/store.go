package storage

import (
	"errors"
	"strings"
	"time"

	"github.com/brk3/habitflow/pkg/habit"
	"github.com/google/uuid"
)

var (
	// ErrNotFound covers both a missing record and one owned by another user.
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already in use")
)

// UpdateFunc mutates a habit in place inside the store's write transaction.
// Returning an error aborts the update.
type UpdateFunc func(h *habit.Habit) error

type Store interface {
	CreateUser(u habit.User) (habit.User, error)
	GetUser(id string) (habit.User, error)
	GetUserByEmail(email string) (habit.User, error)

	PutAPIKey(keyHash, userID string) error
	GetAPIKey(keyHash string) (userID string, found bool, err error)

	CreateHabit(h habit.Habit) (habit.Habit, error)
	GetHabit(ownerID, habitID string) (habit.Habit, error)
	ListHabits(ownerID string) ([]habit.Habit, error)
	UpdateHabit(ownerID, habitID string, fn UpdateFunc) (habit.Habit, error)
	DeleteHabit(ownerID, habitID string) error

	Close() error
}

// NewID returns a time-ordered identifier, so key order matches creation order.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PrepareHabit assigns the identity and timestamps of a habit about to be
// created. Completion marks are always empty on creation.
func PrepareHabit(h habit.Habit, now time.Time) habit.Habit {
	h.ID = NewID()
	h.CompletedDates = []time.Time{}
	h.CreatedAt = now.UTC()
	h.UpdatedAt = h.CreatedAt
	return h
}

func PrepareUser(u habit.User, now time.Time) habit.User {
	u.ID = NewID()
	u.Email = NormalizeEmail(u.Email)
	u.CreatedAt = now.UTC()
	return u
}

// ApplyUpdate runs fn against a copy of h and returns the result. Identity,
// ownership and creation time survive whatever fn does, and the result must
// still be a valid habit.
func ApplyUpdate(h habit.Habit, fn UpdateFunc, now time.Time) (habit.Habit, error) {
	next := h
	next.CompletedDates = append([]time.Time(nil), h.CompletedDates...)
	if err := fn(&next); err != nil {
		return habit.Habit{}, err
	}
	next.ID = h.ID
	next.OwnerID = h.OwnerID
	next.CreatedAt = h.CreatedAt
	if next.CompletedDates == nil {
		next.CompletedDates = []time.Time{}
	}
	if err := next.Validate(); err != nil {
		return habit.Habit{}, err
	}
	next.UpdatedAt = now.UTC()
	return next, nil
}
