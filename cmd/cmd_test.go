package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brk3/habitflow/internal/config"
	"github.com/brk3/habitflow/internal/server"
	"github.com/brk3/habitflow/internal/session"
	"github.com/brk3/habitflow/internal/storage/bolt"
	"github.com/brk3/habitflow/pkg/habit"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDate(t *testing.T) {
	now := time.Date(2026, 10, 14, 22, 30, 0, 0, time.Local)

	tests := []struct {
		in   string
		want string
	}{
		{"", "2026-10-14"},
		{"today", "2026-10-14"},
		{"2026-10-01", "2026-10-01"},
		{" 2026-09-30 ", "2026-09-30"},
		{"yesterday", "2026-10-13"},
		{"3 days ago", "2026-10-11"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := localDate(tt.in, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalDate_Invalid(t *testing.T) {
	_, err := localDate("flibbertigibbet", time.Now())
	assert.Error(t, err)
}

func TestNewHabitRequest(t *testing.T) {
	req, err := newHabitRequest("  Read  ", " fiction ", "Weekly")
	require.NoError(t, err)
	assert.Equal(t, server.CreateHabitRequest{Title: "Read", Description: "fiction", Frequency: "weekly"}, req)

	_, err = newHabitRequest("", "", "daily")
	assert.ErrorIs(t, err, habit.ErrValidation)

	_, err = newHabitRequest(strings.Repeat("x", habit.MaxTitleLength+1), "", "daily")
	assert.ErrorIs(t, err, habit.ErrValidation)

	_, err = newHabitRequest("Read", "", "hourly")
	assert.ErrorIs(t, err, habit.ErrInvalidFrequency)
}

func TestEditRequest(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.Local)

	c := &cobra.Command{}
	addEditFlags(c)
	require.NoError(t, c.ParseFlags([]string{"--title", " Run ", "--dates", "2026-10-01,yesterday"}))

	req, err := editRequest(c, now)
	require.NoError(t, err)
	require.NotNil(t, req.Title)
	assert.Equal(t, "Run", *req.Title)
	assert.Nil(t, req.Description)
	assert.Nil(t, req.Frequency)
	require.NotNil(t, req.CompletedDates)
	assert.Equal(t, []string{"2026-10-01", "2026-10-13"}, *req.CompletedDates)
}

func TestEditRequest_Rejects(t *testing.T) {
	tests := map[string][]string{
		"nothing":       {},
		"blank title":   {"--title", "  "},
		"bad frequency": {"--frequency", "hourly"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			c := &cobra.Command{}
			addEditFlags(c)
			require.NoError(t, c.ParseFlags(args))
			_, err := editRequest(c, time.Now())
			assert.Error(t, err)
		})
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	for _, driver := range []string{config.DriverBolt, config.DriverSQLite} {
		c := config.Default()
		c.Storage = config.StorageConfig{Driver: driver, Path: filepath.Join(dir, driver+".db")}
		st, err := openStore(&c)
		require.NoError(t, err, driver)
		require.NoError(t, st.Close())
	}

	c := config.Default()
	c.Storage.Driver = "postgres"
	_, err := openStore(&c)
	assert.Error(t, err)
}

func TestCLI_HabitWorkflow(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("week_start: sunday\n"), 0o600))
	t.Setenv("HABITS_CONFIG", cfgFile)

	st, err := bolt.Open(filepath.Join(dir, "habits.db"))
	require.NoError(t, err)
	defer st.Close()
	srv, err := server.New(&config.Config{AuthEnabled: true, JWTSecret: "cli-secret", TokenTTL: time.Hour}, st)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	sess := session.New(session.NewFileStore(filepath.Join(dir, "token")))
	prev := openSession
	openSession = func() *session.Session { return sess }
	defer func() { openSession = prev }()

	api := "--api=" + ts.URL
	out, err := runCLI(t, api, "register", "ann@example.com", "--password", "hunter22")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered as ann@example.com")
	assert.NotEmpty(t, sess.Token())

	out, err = runCLI(t, api, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "ann@example.com")

	out, err = runCLI(t, api, "add", "Read", "books", "--frequency", "weekly")
	require.NoError(t, err)
	assert.Contains(t, out, "Read books")

	_, err = runCLI(t, api, "add", "Bad", "--frequency", "hourly")
	assert.ErrorIs(t, err, habit.ErrInvalidFrequency)

	habits, err := newClient().ListHabits(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, habits, 1)
	id := habits[0].ID

	out, err = runCLI(t, api, "complete", id, "--date", "2026-10-13")
	require.NoError(t, err)
	assert.Contains(t, out, `Completed "Read books" on 2026-10-13`)

	out, err = runCLI(t, api, "show", id, "--date", "2026-10-14")
	require.NoError(t, err)
	assert.Contains(t, out, "Current streak")
	assert.Contains(t, out, "1/7 days this week")

	out, err = runCLI(t, api, "list", "--frequency", "weekly")
	require.NoError(t, err)
	assert.Contains(t, out, "Weekly")
	assert.Contains(t, out, "Read books")

	// no --date on either side: both use the local today
	completeDate, showDate = "", ""
	_, err = runCLI(t, api, "complete", id)
	require.NoError(t, err)
	out, err = runCLI(t, api, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Read books Done")
	out, err = runCLI(t, api, "show", id)
	require.NoError(t, err)
	assert.NotContains(t, out, "Current streak   0 days")

	out, err = runCLI(t, api, "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Habit deleted")

	out, err = runCLI(t, api, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.Empty(t, sess.Token())
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}
