package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/brk3/habitstreak/internal/credentials"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage the API key stored in the OS keyring",
}

var apikeySetCmd = &cobra.Command{
	Use:   "set <key>",
	Short: "Store an API key generated at /auth/api_keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credentials.SetAPIKey(args[0]); err != nil {
			return err
		}
		cmd.Println("API key stored in keyring")
		return nil
	},
}

var apikeyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := credentials.DeleteAPIKey()
		if errors.Is(err, credentials.ErrNotFound) {
			cmd.Println("No API key stored")
			return nil
		}
		if err != nil {
			return err
		}
		cmd.Println("API key removed from keyring")
		return nil
	},
}

func init() {
	apikeyCmd.AddCommand(apikeySetCmd, apikeyClearCmd)
	rootCmd.AddCommand(apikeyCmd)
}
