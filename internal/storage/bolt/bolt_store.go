package bolt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brk3/habitflow/internal/storage"
	"github.com/brk3/habitflow/pkg/habit"
	"go.etcd.io/bbolt"
)

// Layout:
//
//	users/<user id>/habits/<habit id> -> habit JSON
//	accounts/<user id>                -> userRecord JSON
//	emails/<email>                    -> user id
//	api_keys/<sha256 hex>             -> user id
const (
	rootBucket     = "users"
	habitsBucket   = "habits"
	accountsBucket = "accounts"
	emailsBucket   = "emails"
	apiKeysBucket  = "api_keys"
	defaultUserID  = "default"
)

type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// userRecord is the stored form of a user; habit.User hides the hash from JSON.
type userRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, now: time.Now}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{rootBucket, accountsBucket, emailsBucket, apiKeysBucket} {
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

// userHabitsBucket looks up the owner's habits bucket, nil when the owner has
// never created a habit.
func userHabitsBucket(tx *bbolt.Tx, userID string) *bbolt.Bucket {
	if userID == "" {
		userID = defaultUserID
	}
	userBucket := tx.Bucket([]byte(rootBucket)).Bucket([]byte(userID))
	if userBucket == nil {
		return nil
	}
	return userBucket.Bucket([]byte(habitsBucket))
}

// createUserHabitsBucket is userHabitsBucket for the create path, making the
// buckets on first use.
func createUserHabitsBucket(tx *bbolt.Tx, userID string) (*bbolt.Bucket, error) {
	if userID == "" {
		userID = defaultUserID
	}
	userBucket, err := tx.Bucket([]byte(rootBucket)).CreateBucketIfNotExists([]byte(userID))
	if err != nil {
		return nil, err
	}
	return userBucket.CreateBucketIfNotExists([]byte(habitsBucket))
}

func (s *Store) CreateUser(u habit.User) (habit.User, error) {
	u = storage.PrepareUser(u, s.now())
	err := s.db.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket([]byte(emailsBucket))
		if emails.Get([]byte(u.Email)) != nil {
			return storage.ErrEmailTaken
		}
		val, err := json.Marshal(userRecord(u))
		if err != nil {
			return err
		}
		if err := tx.Bucket([]byte(accountsBucket)).Put([]byte(u.ID), val); err != nil {
			return err
		}
		return emails.Put([]byte(u.Email), []byte(u.ID))
	})
	if err != nil {
		return habit.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(id string) (habit.User, error) {
	var u habit.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		u, err = getUser(tx, id)
		return err
	})
	return u, err
}

func (s *Store) GetUserByEmail(email string) (habit.User, error) {
	var u habit.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(emailsBucket)).Get([]byte(storage.NormalizeEmail(email)))
		if id == nil {
			return storage.ErrNotFound
		}
		var err error
		u, err = getUser(tx, string(id))
		return err
	})
	return u, err
}

func getUser(tx *bbolt.Tx, id string) (habit.User, error) {
	val := tx.Bucket([]byte(accountsBucket)).Get([]byte(id))
	if val == nil {
		return habit.User{}, storage.ErrNotFound
	}
	var rec userRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return habit.User{}, fmt.Errorf("decode user %s: %w", id, err)
	}
	return habit.User(rec), nil
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
	return userID, userID != "", err
}

func (s *Store) CreateHabit(h habit.Habit) (habit.Habit, error) {
	if err := h.Validate(); err != nil {
		return habit.Habit{}, err
	}
	h = storage.PrepareHabit(h, s.now())
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := createUserHabitsBucket(tx, h.OwnerID)
		if err != nil {
			return err
		}
		return putHabit(bucket, h)
	})
	if err != nil {
		return habit.Habit{}, err
	}
	return h, nil
}

func putHabit(bucket *bbolt.Bucket, h habit.Habit) error {
	val, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return bucket.Put([]byte(h.ID), val)
}

func getHabit(bucket *bbolt.Bucket, habitID string) (habit.Habit, error) {
	if bucket == nil {
		return habit.Habit{}, storage.ErrNotFound
	}
	val := bucket.Get([]byte(habitID))
	if val == nil {
		return habit.Habit{}, storage.ErrNotFound
	}
	var h habit.Habit
	if err := json.Unmarshal(val, &h); err != nil {
		return habit.Habit{}, fmt.Errorf("decode habit %s: %w", habitID, err)
	}
	return h, nil
}

func (s *Store) GetHabit(ownerID, habitID string) (habit.Habit, error) {
	var h habit.Habit
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		h, err = getHabit(userHabitsBucket(tx, ownerID), habitID)
		return err
	})
	return h, err
}

// ListHabits returns the owner's habits in creation order; ids are uuid v7 so
// bolt's byte-ordered keys already sort that way.
func (s *Store) ListHabits(ownerID string) ([]habit.Habit, error) {
	out := []habit.Habit{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := userHabitsBucket(tx, ownerID)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var h habit.Habit
			if err := json.Unmarshal(v, &h); err != nil {
				return fmt.Errorf("decode habit %s: %w", k, err)
			}
			out = append(out, h)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateHabit(ownerID, habitID string, fn storage.UpdateFunc) (habit.Habit, error) {
	var updated habit.Habit
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := userHabitsBucket(tx, ownerID)
		current, err := getHabit(bucket, habitID)
		if err != nil {
			return err
		}
		updated, err = storage.ApplyUpdate(current, fn, s.now())
		if err != nil {
			return err
		}
		return putHabit(bucket, updated)
	})
	if err != nil {
		return habit.Habit{}, err
	}
	return updated, nil
}

func (s *Store) DeleteHabit(ownerID, habitID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := userHabitsBucket(tx, ownerID)
		if bucket == nil || bucket.Get([]byte(habitID)) == nil {
			return storage.ErrNotFound
		}
		return bucket.Delete([]byte(habitID))
	})
}

var _ storage.Store = (*Store)(nil)
