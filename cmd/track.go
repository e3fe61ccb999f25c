package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track <habit> <value>",
	Short: "Add progress to today's entry",
	Long: `The "track" command adds value to today's entry of a frequency or timer habit,
for example minutes practised or repetitions done. Repeated calls on the same day
accumulate; a negative value takes back an over-count:

  habits track reading -5`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("value must be an integer, got %q", args[1])
		}
		c := newClient()
		h, err := c.FindHabit(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		done, err := c.TrackProgress(cmd.Context(), h.ID, value)
		if err != nil {
			return err
		}
		total := value
		if done.Value != nil {
			total = *done.Value
		}
		cmd.Printf("%s: %d today\n", h.Name, total)
		return nil
	},
}

func init() {
	// Negative values would otherwise be parsed as shorthand flags.
	trackCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(trackCmd)
}
