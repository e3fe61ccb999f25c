package cmd

import (
	"github.com/spf13/cobra"

	"github.com/brk3/habitstreak/pkg/habit"
)

var addOpts struct {
	description string
	habitType   string
	frequency   int
	target      int
	at          string
	duration    int
	calendar    bool
}

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := habit.HabitCreate{
			Name:           args[0],
			Description:    addOpts.description,
			HabitType:      habit.HabitType(addOpts.habitType),
			SyncToCalendar: addOpts.calendar,
		}
		if cmd.Flags().Changed("frequency") {
			in.FrequencyCount = &addOpts.frequency
		}
		if cmd.Flags().Changed("target") {
			in.TargetMinutes = &addOpts.target
		}
		if cmd.Flags().Changed("at") {
			in.ScheduledTime = &addOpts.at
		}
		if cmd.Flags().Changed("duration") {
			in.DurationMinutes = &addOpts.duration
		}

		h, err := newClient().CreateHabit(cmd.Context(), in)
		if err != nil {
			return err
		}
		cmd.Printf("Created habit %q (%s)\n", h.Name, h.ID)
		if h.CalendarEventID != "" {
			cmd.Println("Added to calendar")
		}
		return nil
	},
}

func init() {
	f := addCmd.Flags()
	f.StringVarP(&addOpts.description, "description", "d", "", "habit description")
	f.StringVarP(&addOpts.habitType, "type", "t", string(habit.TypeSimple), "habit type: simple, frequency or timer")
	f.IntVar(&addOpts.frequency, "frequency", 0, "times per day for frequency habits")
	f.IntVar(&addOpts.target, "target", 0, "target minutes for timer habits")
	f.StringVar(&addOpts.at, "at", "", "scheduled time of day (HH:MM)")
	f.IntVar(&addOpts.duration, "duration", habit.DefaultDurationMinutes, "scheduled duration in minutes")
	f.BoolVar(&addOpts.calendar, "calendar", false, "add the habit to your calendar")
	rootCmd.AddCommand(addCmd)
}
