package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	doneDate string
	undoDate string
)

var doneCmd = &cobra.Command{
	Use:   "done <habit-id>",
	Short: "Mark a habit as done",
	Long: `The "done" command records a completion for today, or for --date. Marking
the same day twice is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().LogCompletion(cmd.Context(), args[0], doneDate)
		if err != nil {
			return fmt.Errorf("logging completion: %w", err)
		}
		cmd.Printf("%s done on %s, streak %d\n", resp.Habit.Name, resp.Completion.Date, resp.Habit.Streak)
		return nil
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo <habit-id> [completion-id]",
	Short: "Remove a completion",
	Long: `The "undo" command removes a completion by id, or the completion on --date
(today when omitted).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		if len(args) == 2 {
			if cmd.Flags().Changed("date") {
				return fmt.Errorf("pass either a completion id or --date, not both")
			}
			h, err := c.RemoveCompletion(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("removing completion: %w", err)
			}
			cmd.Printf("Removed completion from %s, streak %d\n", h.Name, h.Streak)
			return nil
		}

		h, err := c.RemoveCompletionByDate(cmd.Context(), args[0], undoDate)
		if err != nil {
			return fmt.Errorf("removing completion: %w", err)
		}
		cmd.Printf("Removed completion from %s, streak %d\n", h.Name, h.Streak)
		return nil
	},
}

func init() {
	doneCmd.Flags().StringVarP(&doneDate, "date", "d", "", "day to mark (YYYY-MM-DD), defaults to today")
	undoCmd.Flags().StringVarP(&undoDate, "date", "d", "", "day to clear (YYYY-MM-DD), defaults to today")
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(undoCmd)
}
