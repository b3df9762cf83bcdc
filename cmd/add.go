package cmd

import (
	"fmt"

	"github.com/brk3/habitboard/pkg/habit"
	"github.com/spf13/cobra"
)

var (
	addType    string
	addCycle   string
	addMessage string
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := habit.HabitInput{Name: &args[0]}
		if cmd.Flags().Changed("type") {
			in.Type = &addType
		}
		if cmd.Flags().Changed("cycle") {
			c := habit.Cycle(addCycle)
			in.Cycle = &c
		}
		if cmd.Flags().Changed("message") {
			in.Message = &addMessage
		}

		h, err := newClient().CreateHabit(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("creating habit: %w", err)
		}
		cmd.Printf("Created %s (%s)\n", h.Name, h.ID)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addType, "type", "", "free-form habit category")
	addCmd.Flags().StringVar(&addCycle, "cycle", string(habit.CycleDaily), "daily, weekly or monthly")
	addCmd.Flags().StringVarP(&addMessage, "message", "m", "", "motivational message")
	rootCmd.AddCommand(addCmd)
}
