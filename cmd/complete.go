package cmd

import (
	"github.com/spf13/cobra"

	"github.com/brk3/habitstreak/pkg/habit"
)

var completeDate string

// dateFlag parses --date; an empty flag means today on the server.
func dateFlag() (habit.Date, error) {
	if completeDate == "" {
		return habit.Date{}, nil
	}
	return habit.ParseDate(completeDate)
}

func dayLabel(d habit.Date) string {
	if d.IsZero() {
		return "today"
	}
	return d.String()
}

var completeCmd = &cobra.Command{
	Use:   "complete <habit>",
	Short: "Mark a habit done for today or --date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := dateFlag()
		if err != nil {
			return err
		}
		c := newClient()
		h, err := c.FindHabit(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		done, err := c.MarkComplete(cmd.Context(), h.ID, day)
		if err != nil {
			return err
		}
		cmd.Printf("Marked %s done for %s\n", h.Name, done.Date)
		return nil
	},
}

var uncompleteCmd = &cobra.Command{
	Use:   "uncomplete <habit>",
	Short: "Remove the completion for today or --date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := dateFlag()
		if err != nil {
			return err
		}
		c := newClient()
		h, err := c.FindHabit(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := c.UnmarkComplete(cmd.Context(), h.ID, day); err != nil {
			return err
		}
		cmd.Printf("Removed completion of %s for %s\n", h.Name, dayLabel(day))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{completeCmd, uncompleteCmd} {
		c.Flags().StringVar(&completeDate, "date", "", "day to mark (YYYY-MM-DD), default today")
		rootCmd.AddCommand(c)
	}
}
