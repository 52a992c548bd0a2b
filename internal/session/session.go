// Package session keeps the CLI's bearer token between invocations. The OS
// keyring is preferred; a 0600 file under the XDG config directory is used
// when no keyring is available.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/zalando/go-keyring"
)

const (
	AppName    = "habitflow"
	keyringKey = "token"
)

var (
	// ErrNotFound means no token has been saved.
	ErrNotFound           = errors.New("no saved session")
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Session is the token of the signed-in user, held in memory and persisted
// through a TokenStore. It is safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	store  TokenStore
	token  string
	loaded bool
}

func New(store TokenStore) *Session {
	return &Session{store: store}
}

// Open returns a session backed by the OS keyring, or by DefaultTokenPath
// when the keyring cannot be reached.
func Open() *Session {
	ks := NewKeyringStore()
	if ks.Available() {
		return New(ks)
	}
	return New(NewFileStore(DefaultTokenPath()))
}

// Token returns the current token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.loaded = true
		if tok, err := s.store.Load(); err == nil {
			s.token = tok
		}
	}
	return s.token
}

func (s *Session) Set(token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(token); err != nil {
		return err
	}
	s.token = token
	s.loaded = true
	return nil
}

// Clear discards the token in memory and in the backing store.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.loaded = true
	if err := s.store.Clear(); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

type KeyringStore struct {
	Service string
	User    string
}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{Service: AppName, User: keyringKey}
}

func (k *KeyringStore) Load() (string, error) {
	tok, err := keyring.Get(k.Service, k.User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return tok, nil
}

func (k *KeyringStore) Save(token string) error {
	if err := keyring.Set(k.Service, k.User, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Clear() error {
	err := keyring.Delete(k.Service, k.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// Available is a best-effort probe: a lookup that fails with anything other
// than ErrNotFound means there is no usable keyring.
func (k *KeyringStore) Available() bool {
	_, err := keyring.Get(k.Service, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

func DefaultTokenPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "token")
}

type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (f *FileStore) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", ErrNotFound
	}
	return tok, nil
}

func (f *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
