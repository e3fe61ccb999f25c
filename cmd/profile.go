package cmd

import (
	"github.com/spf13/cobra"

	"github.com/brk3/habitstreak/pkg/habit"
)

var profileOpts struct {
	name     string
	timezone string
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update your profile",
	Long: `The "profile" command prints your profile. With --name or --timezone it updates
it first. The timezone decides which day "today" is when completing or tracking
a habit; without one the server's zone is used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		var u habit.UserUpdate
		if cmd.Flags().Changed("name") {
			u.FullName = &profileOpts.name
		}
		if cmd.Flags().Changed("timezone") {
			u.Timezone = &profileOpts.timezone
		}

		var p habit.UserProfile
		var err error
		if u.FullName != nil || u.Timezone != nil {
			p, err = c.UpdateProfile(cmd.Context(), u)
		} else {
			p, err = c.GetProfile(cmd.Context())
		}
		if err != nil {
			return err
		}

		cmd.Printf("User:     %s\n", p.UserID)
		if p.FullName != "" {
			cmd.Printf("Name:     %s\n", p.FullName)
		}
		if p.Email != "" {
			cmd.Printf("Email:    %s\n", p.Email)
		}
		tz := p.Timezone
		if tz == "" {
			tz = "server default"
		}
		cmd.Printf("Timezone: %s\n", tz)
		return nil
	},
}

func init() {
	f := profileCmd.Flags()
	f.StringVar(&profileOpts.name, "name", "", "your full name")
	f.StringVar(&profileOpts.timezone, "timezone", "", "IANA timezone, e.g. Europe/Dublin")
	rootCmd.AddCommand(profileCmd)
}
