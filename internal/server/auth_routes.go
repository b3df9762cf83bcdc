package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/brk3/habitboard/internal/logger"
	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
)

func (s *Server) providerList(w http.ResponseWriter, r *http.Request) {
	ids := make([]string, 0, len(s.authProviders))
	for id := range s.authProviders {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ret := safeReturn(r.URL.Query().Get("return"))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<h1>Login</h1><style>button{display:block;margin:10px 0;padding:10px 20px;}</style>`)
	for _, id := range ids {
		fmt.Fprintf(w, `<form action="/auth/login/%s"><input type="hidden" name="return" value="%s"><button>%s</button></form>`,
			html.EscapeString(id), html.EscapeString(ret), html.EscapeString(s.authProviders[id].name))
	}
}

// safeReturn keeps redirect targets relative to this server. Browsers read
// "/\host" in a Location header as "//host", so backslashes are refused.
func safeReturn(ret string) string {
	if !strings.HasPrefix(ret, "/") || strings.HasPrefix(ret, "//") || strings.Contains(ret, `\`) {
		return "/"
	}
	if u, err := url.Parse(ret); err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return ret
}

func (s *Server) oidcLogin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prov, ok := s.authProviders[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown provider")
		return
	}

	verifier := make([]byte, 48)
	if _, err := rand.Read(verifier); err != nil {
		writeError(w, http.StatusInternalServerError, "pkce gen failed")
		return
	}
	verifierStr := base64.RawURLEncoding.EncodeToString(verifier)
	hash := sha256.Sum256([]byte(verifierStr))
	challenge := base64.RawURLEncoding.EncodeToString(hash[:])

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		writeError(w, http.StatusInternalServerError, "state gen failed")
		return
	}
	st := hex.EncodeToString(stateBytes)

	prov.state.Put(st, authState{
		Verifier: verifierStr,
		Return:   safeReturn(r.URL.Query().Get("return")),
	})
	RecordAuthEvent("login", "started", id)

	authURL := prov.oauth2.AuthCodeURL(
		st,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) oidcCallback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prov, ok := s.authProviders[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown provider")
		return
	}
	st := r.URL.Query().Get("state")
	if st == "" {
		writeError(w, http.StatusBadRequest, "missing state")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}

	saved, ok := prov.state.GetAndDelete(st)
	if !ok || saved.Verifier == "" {
		writeError(w, http.StatusBadRequest, "invalid or expired state")
		return
	}

	tok, err := prov.oauth2.Exchange(
		r.Context(),
		code,
		oauth2.SetAuthURLParam("code_verifier", saved.Verifier),
	)
	if err != nil {
		logger.Error("OIDC code exchange failed", "provider", id, "error", err)
		RecordAuthEvent("login", "exchange_failed", id)
		writeError(w, http.StatusBadGateway, "code exchange failed")
		return
	}
	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		writeError(w, http.StatusBadGateway, "no id_token in response")
		return
	}
	idToken, err := prov.idVerifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		RecordAuthEvent("login", "invalid_token", id)
		writeError(w, http.StatusUnauthorized, "id_token invalid")
		return
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		logger.Error("Failed to extract claims from ID token", "error", err)
		writeError(w, http.StatusUnauthorized, "token claims invalid")
		return
	}
	userID := userIDFromClaims(claims)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "token claims invalid")
		return
	}

	if err := s.setSession(w, r, userID); err != nil {
		logger.Error("Failed to encode session cookie", "error", err)
		writeError(w, http.StatusInternalServerError, "session encoding failed")
		return
	}
	RecordAuthEvent("login", "success", id)
	logger.Info("OIDC login completed", "provider", id, "user_id", userID)

	http.Redirect(w, r, saved.Return, http.StatusFound)
}
