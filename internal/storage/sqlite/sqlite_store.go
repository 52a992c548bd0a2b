// Package sqlite is a storage.Store on a single SQLite file, using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brk3/habitflow/internal/storage"
	"github.com/brk3/habitflow/pkg/habit"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS api_keys (
	key_hash TEXT PRIMARY KEY,
	user_id  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS habits (
	id              TEXT PRIMARY KEY,
	owner_id        TEXT NOT NULL,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	frequency       TEXT NOT NULL CHECK (frequency IN ('daily', 'weekly', 'monthly')),
	completed_dates TEXT NOT NULL DEFAULT '[]',
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_habits_owner ON habits(owner_id);
`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single writer keeps read-modify-write updates serialised
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateUser(u habit.User) (habit.User, error) {
	u = storage.PrepareUser(u, s.now())
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return habit.User{}, storage.ErrEmailTaken
		}
		return habit.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUser(id string) (habit.User, error) {
	return s.queryUser(`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (s *Store) GetUserByEmail(email string) (habit.User, error) {
	return s.queryUser(`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		storage.NormalizeEmail(email))
}

func (s *Store) queryUser(query string, arg string) (habit.User, error) {
	var u habit.User
	var created string
	err := s.db.QueryRow(query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return habit.User{}, storage.ErrNotFound
	}
	if err != nil {
		return habit.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	u.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return habit.User{}, fmt.Errorf("failed to parse user created_at: %w", err)
	}
	return u, nil
}

func (s *Store) PutAPIKey(keyHash, userID string) error {
	_, err := s.db.Exec(
		`INSERT INTO api_keys (key_hash, user_id) VALUES (?, ?)
		 ON CONFLICT(key_hash) DO UPDATE SET user_id = excluded.user_id`,
		keyHash, userID,
	)
	return err
}

func (s *Store) GetAPIKey(keyHash string) (string, bool, error) {
	var userID string
	err := s.db.QueryRow(`SELECT user_id FROM api_keys WHERE key_hash = ?`, keyHash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (s *Store) CreateHabit(h habit.Habit) (habit.Habit, error) {
	if err := h.Validate(); err != nil {
		return habit.Habit{}, err
	}
	h = storage.PrepareHabit(h, s.now())
	dates, err := json.Marshal(h.CompletedDates)
	if err != nil {
		return habit.Habit{}, err
	}
	_, err = s.db.Exec(
		`INSERT INTO habits (id, owner_id, title, description, frequency, completed_dates, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.OwnerID, h.Title, h.Description, string(h.Frequency), string(dates),
		h.CreatedAt.Format(time.RFC3339Nano), h.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return habit.Habit{}, fmt.Errorf("failed to insert habit: %w", err)
	}
	return h, nil
}

type scanner interface {
	Scan(dest ...any) error
}

const habitColumns = `id, owner_id, title, description, frequency, completed_dates, created_at, updated_at`

func scanHabit(row scanner) (habit.Habit, error) {
	var h habit.Habit
	var freq, dates, created, updated string
	if err := row.Scan(&h.ID, &h.OwnerID, &h.Title, &h.Description, &freq, &dates, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return habit.Habit{}, storage.ErrNotFound
		}
		return habit.Habit{}, err
	}
	h.Frequency = habit.Frequency(freq)
	if err := json.Unmarshal([]byte(dates), &h.CompletedDates); err != nil {
		return habit.Habit{}, fmt.Errorf("decode completed dates of %s: %w", h.ID, err)
	}
	var err error
	if h.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return habit.Habit{}, err
	}
	if h.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return habit.Habit{}, err
	}
	return h, nil
}

func (s *Store) GetHabit(ownerID, habitID string) (habit.Habit, error) {
	row := s.db.QueryRow(`SELECT `+habitColumns+` FROM habits WHERE id = ? AND owner_id = ?`, habitID, ownerID)
	return scanHabit(row)
}

func (s *Store) ListHabits(ownerID string) ([]habit.Habit, error) {
	rows, err := s.db.Query(`SELECT `+habitColumns+` FROM habits WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	out := []habit.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) UpdateHabit(ownerID, habitID string, fn storage.UpdateFunc) (habit.Habit, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return habit.Habit{}, err
	}
	defer tx.Rollback()

	current, err := scanHabit(tx.QueryRow(`SELECT `+habitColumns+` FROM habits WHERE id = ? AND owner_id = ?`, habitID, ownerID))
	if err != nil {
		return habit.Habit{}, err
	}
	updated, err := storage.ApplyUpdate(current, fn, s.now())
	if err != nil {
		return habit.Habit{}, err
	}
	dates, err := json.Marshal(updated.CompletedDates)
	if err != nil {
		return habit.Habit{}, err
	}
	_, err = tx.Exec(
		`UPDATE habits SET title = ?, description = ?, frequency = ?, completed_dates = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		updated.Title, updated.Description, string(updated.Frequency), string(dates),
		updated.UpdatedAt.Format(time.RFC3339Nano), habitID, ownerID,
	)
	if err != nil {
		return habit.Habit{}, fmt.Errorf("failed to update habit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return habit.Habit{}, err
	}
	return updated, nil
}

func (s *Store) DeleteHabit(ownerID, habitID string) error {
	res, err := s.db.Exec(`DELETE FROM habits WHERE id = ? AND owner_id = ?`, habitID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
