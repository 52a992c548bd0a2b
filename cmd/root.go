package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brk3/habitflow/internal/apiclient"
	"github.com/brk3/habitflow/internal/config"
	"github.com/brk3/habitflow/internal/present"
	"github.com/brk3/habitflow/internal/session"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const requestTimeout = 15 * time.Second

var (
	cfg        *config.Config
	configPath string
	apiBase    string
	noColor    bool

	// openSession is replaced in tests.
	openSession = session.Open
)

var rootCmd = &cobra.Command{
	Use:   "habitflow",
	Short: "Track daily, weekly and monthly habits",
	Long: `
	Habitflow tracks recurring habits and the calendar days you complete them.
	Run "habitflow server" to host the API, then register or log in and manage
	habits from the same binary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := os.Setenv("HABITS_CONFIG", configPath); err != nil {
				return err
			}
		}
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if apiBase != "" {
			c.APIBaseURL = apiBase
		}
		cfg = c
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $HABITS_CONFIG or config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api", "", "API base URL, overrides api_base_url")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func newClient() *apiclient.Client {
	return apiclient.New(cfg.APIBaseURL, openSession())
}

// requestContext bounds one API call.
func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, requestTimeout)
}

func newRenderer(cmd *cobra.Command) *present.Renderer {
	weekStart, err := cfg.FirstWeekday()
	if err != nil {
		weekStart = time.Sunday
	}
	return present.New(colorEnabled(cmd), weekStart)
}

func colorEnabled(cmd *cobra.Command) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}
