package cmd

import (
	"fmt"
	"time"

	"github.com/brk3/habitboard/internal/nudge"
	"github.com/brk3/habitboard/internal/nudge/resend"
	"github.com/spf13/cobra"
)

var nudgeCmd = &cobra.Command{
	Use:   "nudge",
	Short: "Send a reminder for habit streaks expiring within a certain window",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Nudge.ResendAPIKey == "" {
			return fmt.Errorf("HABITS_RESEND_API_KEY environment variable is not set")
		}
		if cfg.Nudge.Email == "" {
			return fmt.Errorf("HABITS_NOTIFY_EMAIL environment variable is not set")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		n := &resend.ResendNotifier{
			ApiKey: cfg.Nudge.ResendAPIKey,
			Email:  cfg.Nudge.Email,
			From:   cfg.Nudge.From,
		}
		sent, err := nudge.Nudge(cmd.Context(), newClient(), n, cfg.Nudge.ThresholdHours, time.Now())
		if err != nil {
			return err
		}
		if len(sent) == 0 {
			cmd.Println("No streaks expiring")
			return nil
		}
		cmd.Printf("Nudged about %d habit(s)\n", len(sent))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nudgeCmd)
}
