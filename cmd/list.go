package cmd

import (
	"github.com/brk3/habitflow/pkg/habit"
	"github.com/spf13/cobra"
)

var listFrequency string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List habits",
	Long: `The "list" command shows your habits grouped by frequency, with a Done
badge for those completed today and progress over the current week.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return list(cmd)
	},
}

func list(cmd *cobra.Command) error {
	var f habit.Frequency
	if listFrequency != "" {
		var err error
		if f, err = habit.ParseFrequency(listFrequency); err != nil {
			return err
		}
	}

	ctx, cancel := requestContext(cmd)
	defer cancel()
	habits, err := newClient().ListHabits(ctx, f)
	if err != nil {
		return err
	}

	cmd.Println(newRenderer(cmd).List(habits))
	return nil
}

func init() {
	listCmd.Flags().StringVarP(&listFrequency, "frequency", "f", "", "only show daily, weekly or monthly habits")
	rootCmd.AddCommand(listCmd)
}
