package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/brk3/habitboard/internal/logger"
	"github.com/brk3/habitboard/internal/storage"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

func decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return req, false
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password required.")
		return req, false
	}
	return req, true
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		logger.Error("Failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	acct, err := s.store.CreateAccount(req.Username, string(hash))
	if errors.Is(err, storage.ErrAccountExists) {
		writeError(w, http.StatusConflict, "Username already exists.")
		return
	}
	if err != nil {
		logger.Error("Failed to create account", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := s.setSession(w, r, acct.ID); err != nil {
		logger.Error("Failed to encode session cookie", "error", err)
	}
	RecordAuthEvent("signup", "success", "password")
	logger.Info("Account created", "username", acct.Username, "user_id", acct.ID)

	w.Header().Set(userIDHeader, acct.ID)
	respond(w, http.StatusCreated, AccountResponse{Message: "User created successfully.", UserID: acct.ID})
}

func (s *Server) passwordLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	acct, err := s.store.GetAccountByUsername(req.Username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Error("Failed to load account", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)) != nil {
		RecordAuthEvent("login", "failed", "password")
		writeError(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	if err := s.setSession(w, r, acct.ID); err != nil {
		logger.Error("Failed to encode session cookie", "error", err)
	}
	RecordAuthEvent("login", "success", "password")

	w.Header().Set(userIDHeader, acct.ID)
	respond(w, http.StatusOK, AccountResponse{Message: "Login successful.", UserID: acct.ID})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	clearSession(w)
	logger.Info("User logout completed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) generateAPIKey(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	apiKey, err := newAPIKey()
	if err != nil {
		logger.Error("Failed to generate API key", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	keyHash := hashAPIKey(apiKey)
	if err := s.store.PutAPIKey(keyHash, userID); err != nil {
		logger.Error("Failed to store API key", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	logger.Info("API key generated", "user_id", userID, "key_id", keyID(keyHash))

	respond(w, http.StatusOK, APIKeyResponse{APIKey: apiKey})
}

func (s *Server) listAPIKeys(w http.ResponseWriter, r *http.Request) {
	hashes, err := s.store.ListAPIKeyHashes(userIDFromContext(r))
	if err != nil {
		logger.Error("Failed to list API keys", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	keys := make([]APIKeyInfo, 0, len(hashes))
	for _, h := range hashes {
		keys = append(keys, APIKeyInfo{ID: keyID(h)})
	}
	respond(w, http.StatusOK, APIKeyListResponse{Keys: keys})
}

func (s *Server) revokeAPIKey(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r)
	id := chi.URLParam(r, "key_id")

	hashes, err := s.store.ListAPIKeyHashes(userID)
	if err != nil {
		logger.Error("Failed to list API keys", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	for _, h := range hashes {
		if id != "" && keyID(h) == id {
			if err := s.store.DeleteAPIKey(h); err != nil {
				logger.Error("Failed to delete API key", "error", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			logger.Info("API key revoked", "user_id", userID, "key_id", id)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "API key not found")
}
