package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	calendarStart string
	calendarEnd   string
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show combined progress across all habits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newClient().Overview(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching overview: %w", err)
		}
		t := newTable("Progress", "").Rows(
			[]string{"Habits", strconv.Itoa(s.TotalHabits)},
			[]string{"Completions", strconv.Itoa(s.TotalCompletions)},
			[]string{"This week", strconv.Itoa(s.CompletionsThisWeek)},
			[]string{"Days active", strconv.Itoa(s.DaysActive)},
			[]string{"Active streak", strconv.Itoa(s.ActiveStreak)},
		)
		cmd.Println(t.Render())
		return nil
	},
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show completions per day",
	Long:  `The "calendar" command prints completion counts per day, defaulting to the current month.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cal, err := newClient().Calendar(cmd.Context(), calendarStart, calendarEnd)
		if err != nil {
			return fmt.Errorf("fetching calendar: %w", err)
		}
		cmd.Println(headerStyle.Render(cal.Range.Start + " to " + cal.Range.End))

		days := make([]string, 0, len(cal.Dates))
		for d := range cal.Dates {
			days = append(days, d)
		}
		sort.Strings(days)
		for _, d := range days {
			cmd.Printf("%s  %d\n", d, cal.Dates[d])
		}
		return nil
	},
}

func init() {
	calendarCmd.Flags().StringVar(&calendarStart, "start", "", "first day (YYYY-MM-DD)")
	calendarCmd.Flags().StringVar(&calendarEnd, "end", "", "last day (YYYY-MM-DD)")
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(calendarCmd)
}
