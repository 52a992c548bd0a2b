package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

func TestKeyringStore_RoundTrip(t *testing.T) {
	gokeyring.MockInit()
	ks := NewKeyringStore()

	_, err := ks.Load()
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, ks.Save("tok-1"))
	got, err := ks.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got)

	require.NoError(t, ks.Clear())
	_, err = ks.Load()
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, ks.Clear(), ErrNotFound)
}

func TestKeyringStore_Available(t *testing.T) {
	gokeyring.MockInit()
	assert.True(t, NewKeyringStore().Available())
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "habitflow", "token")
	fs := NewFileStore(path)

	_, err := fs.Load()
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, fs.Save("tok-1"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got)

	require.NoError(t, fs.Clear())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, fs.Clear(), ErrNotFound)
}

func TestFileStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSession_LoadsLazily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, NewFileStore(path).Save("saved"))

	s := New(NewFileStore(path))
	assert.Equal(t, "saved", s.Token())
}

func TestSession_SetAndClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	s := New(NewFileStore(path))
	assert.Empty(t, s.Token())

	require.NoError(t, s.Set("fresh"))
	assert.Equal(t, "fresh", s.Token())
	assert.Equal(t, "fresh", New(NewFileStore(path)).Token(), "token persisted")

	require.NoError(t, s.Clear())
	assert.Empty(t, s.Token())
	assert.Empty(t, New(NewFileStore(path)).Token())

	// clearing twice is fine
	require.NoError(t, s.Clear())
}

func TestSession_RejectsEmptyToken(t *testing.T) {
	s := New(NewFileStore(filepath.Join(t.TempDir(), "token")))
	assert.Error(t, s.Set(""))
}

func TestOpen_UsesKeyringWhenAvailable(t *testing.T) {
	gokeyring.MockInit()
	s := Open()
	require.NoError(t, s.Set("from-keyring"))

	got, err := NewKeyringStore().Load()
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", got)
	require.NoError(t, s.Clear())
}
