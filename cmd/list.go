package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List habits",
	Long:  `The "list" command lets you list your tracked habits.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		habits, err := newClient().ListHabits(cmd.Context())
		if err != nil {
			return err
		}
		if len(habits) == 0 {
			cmd.Println("No habits yet. Add one with: habits add <name>")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tID")
		for _, h := range habits {
			fmt.Fprintf(w, "%s\t%s\t%s\n", h.Name, h.HabitType, h.ID)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
