package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/brk3/habitflow/internal/config"
	"github.com/brk3/habitflow/internal/logger"
	"github.com/brk3/habitflow/internal/server"
	"github.com/brk3/habitflow/internal/storage"
	"github.com/brk3/habitflow/internal/storage/bolt"
	"github.com/brk3/habitflow/internal/storage/sqlite"
	"github.com/brk3/habitflow/pkg/versioninfo"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startServer(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func openStore(c *config.Config) (storage.Store, error) {
	switch c.Storage.Driver {
	case config.DriverBolt:
		return bolt.Open(c.Storage.Path)
	case config.DriverSQLite:
		return sqlite.Open(c.Storage.Path)
	}
	return nil, fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
}

func startServer(ctx context.Context, c *config.Config) error {
	closer, err := logger.Setup(logger.Options{Level: c.Log.Level, Format: c.Log.Format, File: c.Log.File})
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	st, err := openStore(c)
	if err != nil {
		return fmt.Errorf("open %s store at %s: %w", c.Storage.Driver, c.Storage.Path, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()

	srv, err := server.New(c, st)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", c.ListenAddr, "version", versioninfo.Version,
			"storage", c.Storage.Driver, "auth_enabled", c.AuthEnabled)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
