package habit

import "time"

type Cycle string

const (
	CycleDaily   Cycle = "daily"
	CycleWeekly  Cycle = "weekly"
	CycleMonthly Cycle = "monthly"
)

var Cycles = []Cycle{CycleDaily, CycleWeekly, CycleMonthly}

func (c Cycle) Valid() bool {
	for _, v := range Cycles {
		if c == v {
			return true
		}
	}
	return false
}

type Habit struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Cycle     Cycle     `json:"cycle"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Completion records that a habit was done on one calendar day. Date is a
// YYYY-MM-DD key; at most one completion exists per (UserID, HabitID, Date).
type Completion struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	HabitID   string    `json:"habitId"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}

// HabitView is a habit joined with its completions. It is derived on every
// read and never stored.
type HabitView struct {
	Habit
	TotalEntries               int     `json:"totalEntries"`
	CompletedToday             bool    `json:"completedToday"`
	CompletedTodayCompletionID *string `json:"completedTodayCompletionId"`
	LastCompletedOn            *string `json:"lastCompletedOn"`
	Streak                     int     `json:"streak"`
}

type ProgressSummary struct {
	TotalHabits         int `json:"totalHabits"`
	TotalCompletions    int `json:"totalCompletions"`
	CompletionsThisWeek int `json:"completionsThisWeek"`
	DaysActive          int `json:"daysActive"`
	ActiveStreak        int `json:"activeStreak"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CalendarRange holds completion counts per day. Days without completions
// are absent from Dates.
type CalendarRange struct {
	Range DateRange      `json:"range"`
	Dates map[string]int `json:"dates"`
}

type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}
