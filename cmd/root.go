package cmd

import (
	"os"

	"github.com/brk3/habitboard/internal/apiclient"
	"github.com/brk3/habitboard/internal/config"
	"github.com/brk3/habitboard/internal/logger"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "habits",
	Short: "Track daily habits, streaks and progress",
	Long: `
	Habits keeps a ledger of daily habit completions and derives streaks, weekly
	summaries and calendar heatmaps from it. Run "habits server" to host the API,
	and use the other commands as a client against it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		if err := logger.Setup(c.LogLevel, c.LogFormat); err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newClient() *apiclient.Client {
	return apiclient.NewFromConfig(cfg)
}
