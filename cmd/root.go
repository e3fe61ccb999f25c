package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/brk3/habitstreak/internal/apiclient"
	"github.com/brk3/habitstreak/internal/config"
	"github.com/brk3/habitstreak/internal/credentials"
	"github.com/brk3/habitstreak/internal/logger"
)

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "habits",
	Short: "Track habits and keep your streaks alive",
	Long: `
	Habits is a CLI and server for tracking daily habits. Mark a habit done, track
	progress on timed or counted habits, import past completions and see how long
	your streaks are.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

// loadConfig reads the config file. Client commands run without one; the
// server requires it.
func loadConfig() error {
	if configPath != "" {
		if err := os.Setenv("HABITS_CONFIG", configPath); err != nil {
			return err
		}
	}
	c, err := config.Load()
	if errors.Is(err, os.ErrNotExist) {
		c = config.Default()
	} else if err != nil {
		return err
	}
	cfg = c
	return logger.Init(cfg.Log)
}

func newClient() *apiclient.Client {
	return apiclient.New(cfg.APIBaseURL, credentials.Resolve(cfg.AuthToken))
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $HABITS_CONFIG or config.yaml)")
}
