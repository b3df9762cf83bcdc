package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brk3/habitboard/internal/config"
	"github.com/brk3/habitboard/internal/logger"
	"github.com/brk3/habitboard/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	cfg           *config.Config
	store         storage.Store
	now           func() time.Time
	authProviders map[string]*AuthProvider
	sessionCookie *securecookie.SecureCookie
}

func New(cfg *config.Config, store storage.Store) (*Server, error) {
	sessionCookie, err := newSessionCookie(cfg.Session)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:           cfg,
		store:         store,
		now:           time.Now,
		authProviders: map[string]*AuthProvider{},
		sessionCookie: sessionCookie,
	}
	if cfg.AuthEnabled && len(cfg.OIDCProviders) > 0 {
		providers, err := ConfigureOIDCProviders(cfg)
		if err != nil {
			return nil, err
		}
		s.authProviders = providers
	}
	return s, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/version", s.getVersionInfo)
	r.Handle("/metrics", promhttp.Handler())

	if len(s.authProviders) > 0 {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.providerList)
			r.Get("/login/{id}", s.oidcLogin)
			r.Get("/callback/{id}", s.oidcCallback)
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Route("/users", func(r chi.Router) {
			r.Post("/signup", s.signup)
			r.Post("/login", s.passwordLogin)
			r.Post("/logout", s.logout)
			r.Group(func(r chi.Router) {
				r.Use(s.userContext)
				r.Post("/api_keys", s.generateAPIKey)
				r.Get("/api_keys", s.listAPIKeys)
				r.Delete("/api_keys/{key_id}", s.revokeAPIKey)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.userContext)
			r.Use(userAwareMetricsMiddleware)

			r.Route("/habits", func(r chi.Router) {
				r.Get("/", s.listHabits)
				r.Post("/", s.createHabit)
				r.Get("/{habit_id}", s.getHabit)
				r.Put("/{habit_id}", s.updateHabit)
				r.Delete("/{habit_id}", s.deleteHabit)
				r.Get("/{habit_id}/completions", s.listCompletions)
				r.Post("/{habit_id}/completions", s.logCompletion)
				r.Delete("/{habit_id}/completions", s.removeCompletionByDate)
				r.Delete("/{habit_id}/completions/{completion_id}", s.removeCompletion)
			})

			r.Route("/progress", func(r chi.Router) {
				r.Get("/overview", s.getOverview)
				r.Get("/calendar", s.getCalendar)
			})
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	if err := writeJSON(w, code, ErrorResponse{Message: msg}); err != nil {
		logger.Error("Failed to write error response", "status", code, "error", err)
	}
}

// respond writes v and logs serialization failures. Headers are already
// sent by then, so no second status is attempted.
func respond(w http.ResponseWriter, code int, v any) {
	if err := writeJSON(w, code, v); err != nil {
		logger.Error("Failed to serialize response", "status", code, "error", err)
	}
}

// decodeJSON strictly decodes the request body into v. An empty body
// leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON body")
	}
	return nil
}
