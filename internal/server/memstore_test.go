package server

import (
	"slices"
	"sync"
	"time"

	"github.com/brk3/habitflow/internal/storage"
	"github.com/brk3/habitflow/pkg/habit"
)

type memStore struct {
	mu      sync.RWMutex
	users   map[string]habit.User
	emails  map[string]string
	apiKeys map[string]string
	habits  map[string][]habit.Habit // by owner, in creation order
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]habit.User{},
		emails:  map[string]string{},
		apiKeys: map[string]string{},
		habits:  map[string][]habit.Habit{},
	}
}

func (m *memStore) CreateUser(u habit.User) (habit.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u = storage.PrepareUser(u, time.Now())
	if _, ok := m.emails[u.Email]; ok {
		return habit.User{}, storage.ErrEmailTaken
	}
	m.users[u.ID] = u
	m.emails[u.Email] = u.ID
	return u, nil
}

func (m *memStore) GetUser(id string) (habit.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return habit.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(email string) (habit.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[storage.NormalizeEmail(email)]
	if !ok {
		return habit.User{}, storage.ErrNotFound
	}
	return m.users[id], nil
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

func (m *memStore) CreateHabit(h habit.Habit) (habit.Habit, error) {
	if err := h.Validate(); err != nil {
		return habit.Habit{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	h = storage.PrepareHabit(h, time.Now())
	m.habits[h.OwnerID] = append(m.habits[h.OwnerID], h)
	return cloneHabit(h), nil
}

func (m *memStore) indexOf(ownerID, habitID string) int {
	return slices.IndexFunc(m.habits[ownerID], func(h habit.Habit) bool {
		return h.ID == habitID
	})
}

func (m *memStore) GetHabit(ownerID, habitID string) (habit.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(ownerID, habitID)
	if i < 0 {
		return habit.Habit{}, storage.ErrNotFound
	}
	return cloneHabit(m.habits[ownerID][i]), nil
}

func (m *memStore) ListHabits(ownerID string) ([]habit.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]habit.Habit, 0, len(m.habits[ownerID]))
	for _, h := range m.habits[ownerID] {
		out = append(out, cloneHabit(h))
	}
	return out, nil
}

func (m *memStore) UpdateHabit(ownerID, habitID string, fn storage.UpdateFunc) (habit.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(ownerID, habitID)
	if i < 0 {
		return habit.Habit{}, storage.ErrNotFound
	}
	updated, err := storage.ApplyUpdate(m.habits[ownerID][i], fn, time.Now())
	if err != nil {
		return habit.Habit{}, err
	}
	m.habits[ownerID][i] = updated
	return cloneHabit(updated), nil
}

func (m *memStore) DeleteHabit(ownerID, habitID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(ownerID, habitID)
	if i < 0 {
		return storage.ErrNotFound
	}
	m.habits[ownerID] = slices.Delete(m.habits[ownerID], i, i+1)
	return nil
}

func (m *memStore) Close() error {
	return nil
}

func cloneHabit(h habit.Habit) habit.Habit {
	h.CompletedDates = slices.Clone(h.CompletedDates)
	if h.CompletedDates == nil {
		h.CompletedDates = []time.Time{}
	}
	return h
}

var _ storage.Store = (*memStore)(nil)
