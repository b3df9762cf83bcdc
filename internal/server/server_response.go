package server

import (
	"github.com/brk3/habitboard/pkg/habit"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type HabitListResponse struct {
	Habits []habit.HabitView `json:"habits"`
}

type HabitResponse struct {
	Habit habit.HabitView `json:"habit"`
}

type CompletionListResponse struct {
	Completions []habit.Completion `json:"completions"`
}

type CompletionResponse struct {
	Completion habit.Completion `json:"completion"`
	Habit      habit.HabitView  `json:"habit"`
}

type OverviewResponse struct {
	Summary habit.ProgressSummary `json:"summary"`
}

type CalendarResponse = habit.CalendarRange

type CompletionRequest struct {
	Date *string `json:"date"`
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AccountResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type APIKeyResponse struct {
	APIKey string `json:"api_key"`
}

type APIKeyInfo struct {
	ID string `json:"id"`
}

type APIKeyListResponse struct {
	Keys []APIKeyInfo `json:"keys"`
}
