package server

import (
	"net/http"

	"github.com/brk3/habitboard/internal/logger"
	"github.com/brk3/habitboard/internal/progress"
)

func (s *Server) getOverview(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r)
	summary, err := s.overview(userID)
	if err != nil {
		logger.Error("Failed to compute overview", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "error computing overview")
		return
	}
	respond(w, http.StatusOK, OverviewResponse{Summary: summary})
}

func (s *Server) getCalendar(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r)
	q := r.URL.Query()

	rng, err := progress.ResolveRange(q.Get("start"), q.Get("end"), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format")
		return
	}
	if rng.Start > rng.End {
		writeError(w, http.StatusBadRequest, "start must not be after end")
		return
	}

	cal, err := s.calendar(userID, rng)
	if err != nil {
		logger.Error("Failed to compute calendar", "user_id", userID, "start", rng.Start, "end", rng.End, "error", err)
		writeError(w, http.StatusInternalServerError, "error computing calendar")
		return
	}
	respond(w, http.StatusOK, cal)
}
