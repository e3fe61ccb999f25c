package cmd

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <habit>",
	Short: "Show streaks and totals for a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		h, err := c.FindHabit(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		s, err := c.GetHabitSummary(cmd.Context(), h.ID)
		if err != nil {
			return err
		}

		cmd.Printf("%s\n", h.Name)
		cmd.Printf("  Current streak:    %d\n", s.CurrentStreak)
		cmd.Printf("  Longest streak:    %d\n", s.LongestStreak)
		cmd.Printf("  Total completions: %d\n", s.TotalCompletions)
		if s.TotalCompletions > 0 {
			cmd.Printf("  First completed:   %s\n", s.FirstCompleted)
			cmd.Printf("  Last completed:    %s\n", s.LastCompleted)
			cmd.Printf("  This month:        %d\n", s.ThisMonth)
			cmd.Printf("  Best month:        %d\n", s.BestMonth)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
