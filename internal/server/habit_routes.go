package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/brk3/habitboard/internal/logger"
	"github.com/brk3/habitboard/internal/progress"
	"github.com/brk3/habitboard/internal/storage"
	"github.com/brk3/habitboard/pkg/habit"
	"github.com/brk3/habitboard/pkg/versioninfo"
	"github.com/go-chi/chi/v5"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) getVersionInfo(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, versioninfo.VersionInfo{
		Version:   versioninfo.Version,
		BuildDate: versioninfo.BuildDate,
	})
}

// loadHabit fetches the habit named in the URL, writing a 404 or 500 and
// returning false when it cannot.
func (s *Server) loadHabit(w http.ResponseWriter, r *http.Request) (habit.Habit, bool) {
	userID := userIDFromContext(r)
	habitID := chi.URLParam(r, "habit_id")
	h, err := s.store.GetHabit(userID, habitID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Habit not found")
		return habit.Habit{}, false
	}
	if err != nil {
		logger.Error("Failed to get habit", "user_id", userID, "habit_id", habitID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return habit.Habit{}, false
	}
	return h, true
}

// decodeHabitInput reads and validates a habit body, writing a 400 on
// failure.
func decodeHabitInput(w http.ResponseWriter, r *http.Request, partial bool) (habit.HabitInput, bool) {
	var in habit.HabitInput
	if err := decodeJSON(r, &in); err != nil {
		logger.Warn("Invalid JSON in habit request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return habit.HabitInput{}, false
	}
	norm, err := in.Normalize(partial)
	if err != nil {
		var verr *habit.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return habit.HabitInput{}, false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return habit.HabitInput{}, false
	}
	return norm, true
}

func (s *Server) listHabits(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r)
	logger.Debug("Listing habits", "user_id", userID)

	views, err := s.habitViews(userID)
	if err != nil {
		logger.Error("Failed to list habits", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	logger.Debug("Listed habits successfully", "user_id", userID, "count", len(views))
	UpdateActiveHabitsForUser(r, len(views))
	respond(w, http.StatusOK, HabitListResponse{Habits: views})
}

func (s *Server) createHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r)
	in, ok := decodeHabitInput(w, r, false)
	if !ok {
		return
	}

	h, err := s.store.CreateHabit(userID, in)
	if err != nil {
		logger.Error("Failed to create habit", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "database write failed")
		return
	}
	logger.Info("Habit created", "user_id", userID, "habit_id", h.ID, "name", h.Name)
	habitsCreatedTotal.Inc()

	respond(w, http.StatusCreated, HabitResponse{Habit: progress.BuildView(h, nil, s.now())})
}

func (s *Server) getHabit(w http.ResponseWriter, r *http.Request) {
	h, ok := s.loadHabit(w, r)
	if !ok {
		return
	}
	view, err := s.habitView(h.UserID, h)
	if err != nil {
		logger.Error("Failed to build habit view", "habit_id", h.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	respond(w, http.StatusOK, HabitResponse{Habit: view})
}

func (s *Server) updateHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r)
	habitID := chi.URLParam(r, "habit_id")
	in, ok := decodeHabitInput(w, r, true)
	if !ok {
		return
	}

	h, err := s.store.UpdateHabit(userID, habitID, in)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Habit not found")
		return
	}
	if err != nil {
		logger.Error("Failed to update habit", "user_id", userID, "habit_id", habitID, "error", err)
		writeError(w, http.StatusInternalServerError, "database write failed")
		return
	}
	logger.Info("Habit updated", "user_id", userID, "habit_id", habitID)

	view, err := s.habitView(userID, h)
	if err != nil {
		logger.Error("Failed to build habit view", "user_id", userID, "habit_id", habitID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	respond(w, http.StatusOK, HabitResponse{Habit: view})
}

func (s *Server) deleteHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r)
	habitID := chi.URLParam(r, "habit_id")
	logger.Info("Deleting habit", "user_id", userID, "habit_id", habitID)

	err := s.store.DeleteHabit(userID, habitID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Habit not found")
		return
	}
	if err != nil {
		logger.Error("Failed to delete habit", "user_id", userID, "habit_id", habitID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	logger.Info("Habit deleted successfully", "user_id", userID, "habit_id", habitID)

	if habits, err := s.store.ListHabits(userID); err != nil {
		logger.Warn("Failed to update active habits metric after deletion", "user_id", userID, "error", err)
	} else {
		UpdateActiveHabitsForUser(r, len(habits))
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listCompletions(w http.ResponseWriter, r *http.Request) {
	h, ok := s.loadHabit(w, r)
	if !ok {
		return
	}
	completions, err := s.store.ListCompletions(h.UserID, h.ID)
	if err != nil {
		logger.Error("Failed to list completions", "user_id", h.UserID, "habit_id", h.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	respond(w, http.StatusOK, CompletionListResponse{Completions: completions})
}

func (s *Server) logCompletion(w http.ResponseWriter, r *http.Request) {
	h, ok := s.loadHabit(w, r)
	if !ok {
		return
	}

	var req CompletionRequest
	if err := decodeJSON(r, &req); err != nil {
		logger.Warn("Invalid JSON in completion request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	var input string
	if req.Date != nil {
		input = *req.Date
	}
	date, err := progress.Normalize(input, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format")
		return
	}

	completion, created, err := s.store.AddCompletion(h.UserID, h.ID, date)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted between the lookup and the write.
		writeError(w, http.StatusNotFound, "Habit not found")
		return
	}
	if err != nil {
		logger.Error("Failed to add completion", "user_id", h.UserID, "habit_id", h.ID, "date", date, "error", err)
		writeError(w, http.StatusInternalServerError, "database write failed")
		return
	}
	RecordCompletion(created)
	logger.Info("Completion logged", "user_id", h.UserID, "habit_id", h.ID, "date", date, "created", created)

	view, err := s.habitView(h.UserID, h)
	if err != nil {
		logger.Error("Failed to build habit view", "habit_id", h.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	respond(w, http.StatusCreated, CompletionResponse{Completion: completion, Habit: view})
}

func (s *Server) removeCompletion(w http.ResponseWriter, r *http.Request) {
	h, ok := s.loadHabit(w, r)
	if !ok {
		return
	}
	completionID := chi.URLParam(r, "completion_id")

	err := s.store.RemoveCompletion(h.UserID, h.ID, completionID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Completion not found")
		return
	}
	if err != nil {
		logger.Error("Failed to remove completion", "user_id", h.UserID, "habit_id", h.ID, "completion_id", completionID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	logger.Info("Completion removed", "user_id", h.UserID, "habit_id", h.ID, "completion_id", completionID)

	view, err := s.habitView(h.UserID, h)
	if err != nil {
		logger.Error("Failed to build habit view", "habit_id", h.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	respond(w, http.StatusOK, HabitResponse{Habit: view})
}

func (s *Server) removeCompletionByDate(w http.ResponseWriter, r *http.Request) {
	h, ok := s.loadHabit(w, r)
	if !ok {
		return
	}
	date, err := progress.Normalize(r.URL.Query().Get("date"), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format")
		return
	}

	removed, err := s.store.RemoveCompletionByDate(h.UserID, h.ID, date)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Completion not found")
		return
	}
	if err != nil {
		logger.Error("Failed to remove completion", "user_id", h.UserID, "habit_id", h.ID, "date", date, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	logger.Info("Completion removed", "user_id", h.UserID, "habit_id", h.ID, "date", date)

	view, err := s.habitView(h.UserID, h)
	if err != nil {
		logger.Error("Failed to build habit view", "habit_id", h.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	respond(w, http.StatusOK, CompletionResponse{Completion: removed, Habit: view})
}
