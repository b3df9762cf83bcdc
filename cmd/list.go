package cmd

import (
	"fmt"
	"strconv"

	"github.com/brk3/habitboard/pkg/habit"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List habits",
	Long:  `The "list" command lists your habits with their current streak and today's status.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return list(cmd)
	},
}

func list(cmd *cobra.Command) error {
	habits, err := newClient().ListHabits(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching habits: %w", err)
	}
	if len(habits) == 0 {
		cmd.Println("No habits yet. Add one with: habits add <name>")
		return nil
	}

	t := newTable("ID", "NAME", "CYCLE", "STREAK", "TODAY", "LAST")
	for _, h := range habits {
		t.Row(h.ID, h.Name, string(h.Cycle), strconv.Itoa(h.Streak), doneMark(h), lastCompleted(h))
	}
	cmd.Println(t.Render())
	return nil
}

func doneMark(h habit.HabitView) string {
	if h.CompletedToday {
		return doneStyle.Render("done")
	}
	return "-"
}

func lastCompleted(h habit.HabitView) string {
	if h.LastCompletedOn == nil {
		return "never"
	}
	return *h.LastCompletedOn
}

func init() {
	rootCmd.AddCommand(listCmd)
}
