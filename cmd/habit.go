package cmd

import (
	"errors"
	"strings"
	"time"

	"github.com/brk3/habitflow/internal/server"
	"github.com/brk3/habitflow/pkg/habit"
	"github.com/spf13/cobra"
)

var errNothingToEdit = errors.New("nothing to change, pass --title, --description, --frequency or --dates")

var (
	addDescription string
	addFrequency   string

	editTitle       string
	editDescription string
	editFrequency   string
	editDates       []string

	completeDate string
	showDate     string
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a habit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := newHabitRequest(strings.Join(args, " "), addDescription, addFrequency)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		h, err := newClient().CreateHabit(ctx, req)
		if err != nil {
			return err
		}
		cmd.Println(newRenderer(cmd).Card(h))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a habit with its streaks and weekly progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// always send the local day so streaks end on the caller's today
		date, err := localDate(showDate, time.Now())
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		c := newClient()
		h, err := c.GetHabit(ctx, args[0])
		if err != nil {
			return err
		}
		summary, err := c.Summary(ctx, args[0], date)
		if err != nil {
			return err
		}
		r := newRenderer(cmd)
		cmd.Println(r.Card(h))
		cmd.Println(r.Summary(summary))
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a habit's title, description, frequency or completed dates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := editRequest(cmd, time.Now())
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		h, err := newClient().UpdateHabit(ctx, args[0], req)
		if err != nil {
			return err
		}
		cmd.Println(newRenderer(cmd).Card(h))
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Mark a habit done for a day",
	Long: `The "complete" command marks a habit done today, or on the day given by
--date ("yesterday", "last monday", 2026-10-01). Repeating a day is harmless.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := localDate(completeDate, time.Now())
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		h, err := newClient().CompleteHabit(ctx, args[0], date)
		if err != nil {
			return err
		}
		cmd.Printf("Completed %q on %s\n", h.Title, date)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		if err := newClient().DeleteHabit(ctx, args[0]); err != nil {
			return err
		}
		cmd.Println("Habit deleted")
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "optional description")
	addCmd.Flags().StringVarP(&addFrequency, "frequency", "f", string(habit.Daily), "daily, weekly or monthly")

	addEditFlags(editCmd)

	completeCmd.Flags().StringVar(&completeDate, "date", "", "day to mark, natural language or YYYY-MM-DD (default today)")
	showCmd.Flags().StringVar(&showDate, "date", "", "reference day for streaks and progress (default today)")

	rootCmd.AddCommand(addCmd, showCmd, editCmd, completeCmd, deleteCmd)
}

func addEditFlags(c *cobra.Command) {
	c.Flags().StringVar(&editTitle, "title", "", "new title")
	c.Flags().StringVarP(&editDescription, "description", "d", "", "new description")
	c.Flags().StringVarP(&editFrequency, "frequency", "f", "", "new frequency")
	c.Flags().StringSliceVar(&editDates, "dates", nil, "replace all completed dates (comma separated)")
}

// newHabitRequest validates input locally so bad titles and frequencies never
// reach the network.
func newHabitRequest(title, description, frequency string) (server.CreateHabitRequest, error) {
	f, err := habit.ParseFrequency(frequency)
	if err != nil {
		return server.CreateHabitRequest{}, err
	}
	h, err := habit.NewHabit("", title, description, f)
	if err != nil {
		return server.CreateHabitRequest{}, err
	}
	return server.CreateHabitRequest{Title: h.Title, Description: h.Description, Frequency: string(h.Frequency)}, nil
}

func editRequest(cmd *cobra.Command, now time.Time) (server.UpdateHabitRequest, error) {
	var req server.UpdateHabitRequest
	flags := cmd.Flags()
	if flags.Changed("title") {
		if err := habit.ValidateTitle(editTitle); err != nil {
			return req, err
		}
		t := strings.TrimSpace(editTitle)
		req.Title = &t
	}
	if flags.Changed("description") {
		if err := habit.ValidateDescription(editDescription); err != nil {
			return req, err
		}
		d := editDescription
		req.Description = &d
	}
	if flags.Changed("frequency") {
		f, err := habit.ParseFrequency(editFrequency)
		if err != nil {
			return req, err
		}
		s := string(f)
		req.Frequency = &s
	}
	if flags.Changed("dates") {
		dates := make([]string, 0, len(editDates))
		for _, raw := range editDates {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			d, err := localDate(raw, now)
			if err != nil {
				return req, err
			}
			dates = append(dates, d)
		}
		req.CompletedDates = &dates
	}
	if req == (server.UpdateHabitRequest{}) {
		return req, errNothingToEdit
	}
	return req, nil
}
