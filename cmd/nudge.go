package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/brk3/habitstreak/internal/logger"
	"github.com/brk3/habitstreak/internal/nudge"
	"github.com/brk3/habitstreak/internal/nudge/resend"
)

var nudgeThreshold int

var nudgeCmd = &cobra.Command{
	Use:   "nudge",
	Short: "Send a reminder for habit streaks expiring within a certain window",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Nudge.ResendAPIKey == "" {
			return fmt.Errorf("nudge.resend_api_key is not set (or HABITS_RESEND_API_KEY)")
		}
		if cfg.Nudge.Email == "" {
			return fmt.Errorf("nudge.email is not set")
		}
		if !cmd.Flags().Changed("threshold") {
			nudgeThreshold = cfg.Nudge.ThresholdHours
		}
		if nudgeThreshold <= 0 {
			return fmt.Errorf("threshold must be a positive number of hours")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		n := resend.ResendNotifier{
			ApiKey: cfg.Nudge.ResendAPIKey,
			Email:  cfg.Nudge.Email,
			From:   cfg.Nudge.From,
		}
		c := newClient()
		loc := cfg.Location()
		if p, err := c.GetProfile(cmd.Context()); err != nil {
			logger.Warn("Could not load profile, using configured timezone", "error", err)
		} else if l := p.Location(); l != nil {
			loc = l
		}
		return nudge.Nudge(cmd.Context(), c, &n, time.Now().In(loc), nudgeThreshold)
	},
}

func init() {
	nudgeCmd.Flags().IntVar(&nudgeThreshold, "threshold", 0, "hours before midnight to start nudging (default from config)")
	rootCmd.AddCommand(nudgeCmd)
}
