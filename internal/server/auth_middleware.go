package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brk3/habitboard/internal/config"
	"github.com/brk3/habitboard/internal/logger"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/securecookie"
	"golang.org/x/oauth2"
)

const (
	sessionCookieName = "session"
	sessionMaxAge     = 24 * time.Hour
	apiKeyPrefix      = "hab_"
	userIDHeader      = "x-user-id"
)

// How a request's user was resolved.
const (
	methodHeader  = "header"
	methodQuery   = "query"
	methodSession = "session"
	methodAPIKey  = "apikey"
	methodOIDC    = "oidc"
	methodDefault = "default"
)

type userCtxKey struct{}

type User struct {
	UserID  string
	Subject string
	Method  string
}

type AuthProvider struct {
	name       string
	oauth2     *oauth2.Config
	idVerifier *oidc.IDTokenVerifier
	state      *StateStore
}

// StateStore holds pending OIDC login state keyed by the OAuth2 state
// parameter. Expired entries are purged on every Put.
type StateStore struct {
	ttl time.Duration
	mu  sync.Mutex
	m   map[string]authState
}

type authState struct {
	Verifier string
	Return   string
	ExpireAt time.Time
}

func NewStateStore(ttl time.Duration) *StateStore {
	return &StateStore{ttl: ttl, m: make(map[string]authState)}
}

func (s *StateStore) Put(key string, v authState) {
	now := time.Now()
	if v.ExpireAt.IsZero() {
		v.ExpireAt = now.Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, old := range s.m {
		if now.After(old.ExpireAt) {
			delete(s.m, k)
		}
	}
	s.m[key] = v
}

func (s *StateStore) GetAndDelete(key string) (authState, bool) {
	s.mu.Lock()
	v, ok := s.m[key]
	if ok {
		delete(s.m, key)
	}
	s.mu.Unlock()
	if ok && time.Now().After(v.ExpireAt) {
		return authState{}, false
	}
	return v, ok
}

func ConfigureOIDCProviders(cfg *config.Config) (map[string]*AuthProvider, error) {
	logger.Info("Configuring OIDC providers", "count", len(cfg.OIDCProviders))
	providers := make(map[string]*AuthProvider)

	for _, p := range cfg.OIDCProviders {
		logger.Debug("Setting up OIDC provider", "id", p.Id, "name", p.Name, "issuer", p.IssuerURL)
		prov, err := oidc.NewProvider(context.Background(), p.IssuerURL)
		if err != nil {
			logger.Error("Failed to create OIDC provider", "id", p.Id, "error", err)
			return nil, fmt.Errorf("failed to create OIDC provider %s: %w", p.Id, err)
		}

		scopes := p.Scopes
		if len(scopes) == 0 {
			scopes = []string{oidc.ScopeOpenID, "email", "profile"}
		}
		name := p.Name
		if name == "" {
			name = p.Id
		}

		providers[p.Id] = &AuthProvider{
			name: name,
			oauth2: &oauth2.Config{
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
				Endpoint:     prov.Endpoint(),
				RedirectURL:  p.RedirectURL,
				Scopes:       scopes,
			},
			idVerifier: prov.Verifier(&oidc.Config{ClientID: p.ClientID}),
			state:      NewStateStore(5 * time.Minute),
		}
		logger.Info("OIDC provider configured successfully", "id", p.Id, "name", name)
	}

	return providers, nil
}

// newSessionCookie builds the cookie codec from hex keys, generating
// random keys when none are configured.
func newSessionCookie(cfg config.SessionConfig) (*securecookie.SecureCookie, error) {
	var hashKey, blockKey []byte
	if cfg.HashKey != "" {
		var err error
		if hashKey, err = hex.DecodeString(cfg.HashKey); err != nil {
			return nil, fmt.Errorf("decoding session hash_key: %w", err)
		}
		if cfg.BlockKey != "" {
			if blockKey, err = hex.DecodeString(cfg.BlockKey); err != nil {
				return nil, fmt.Errorf("decoding session block_key: %w", err)
			}
		}
	} else {
		hashKey = securecookie.GenerateRandomKey(64)
		blockKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil || blockKey == nil {
			return nil, fmt.Errorf("failed to generate secure cookie keys")
		}
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionMaxAge.Seconds()))
	return sc, nil
}

func (s *Server) setSession(w http.ResponseWriter, r *http.Request, userID string) error {
	val, err := s.sessionCookie.Encode(sessionCookieName, userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionMaxAge.Seconds()),
	})
	return nil
}

func clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) sessionUser(r *http.Request) (*User, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, false
	}
	var userID string
	if err := s.sessionCookie.Decode(sessionCookieName, c.Value, &userID); err != nil || userID == "" {
		logger.Debug("Failed to decode session cookie", "error", err)
		return nil, false
	}
	return &User{UserID: userID, Method: methodSession}, true
}

// userContext resolves the caller's user id and stores it in the request
// context. The id is an opaque partition key.
func (s *Server) userContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.resolveUser(r)
		if !ok {
			s.handleAuthFailure(w, r)
			return
		}
		logger.Debug("Resolved user", "user_id", user.UserID, "subject", user.Subject, "method", user.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey{}, user)))
	})
}

func (s *Server) resolveUser(r *http.Request) (*User, bool) {
	if !s.cfg.AuthEnabled {
		if id := strings.TrimSpace(r.Header.Get(userIDHeader)); id != "" {
			return &User{UserID: id, Method: methodHeader}, true
		}
		if id := strings.TrimSpace(r.URL.Query().Get("userId")); id != "" {
			return &User{UserID: id, Method: methodQuery}, true
		}
		if u, ok := s.sessionUser(r); ok {
			return u, true
		}
		return &User{UserID: s.cfg.DefaultUserID, Method: methodDefault}, true
	}

	if u, ok := s.sessionUser(r); ok {
		return u, true
	}

	ah := r.Header.Get("Authorization")
	if !strings.HasPrefix(ah, "Bearer ") {
		RecordAuthEvent("verification", "missing_token", "unknown")
		return nil, false
	}
	token := strings.TrimPrefix(ah, "Bearer ")
	if strings.HasPrefix(token, apiKeyPrefix) {
		u, ok := s.authenticateAPIKey(token)
		if ok {
			RecordAuthEvent("verification", "success", "apikey")
		} else {
			RecordAuthEvent("verification", "failed", "apikey")
		}
		return u, ok
	}
	return s.authenticateIDToken(r.Context(), token)
}

// authenticateIDToken verifies a "provider:jwt" bearer token.
func (s *Server) authenticateIDToken(ctx context.Context, token string) (*User, bool) {
	providerID, rawIDToken, err := parseProviderToken(token)
	if err != nil {
		logger.Debug("Failed to parse Bearer token", "error", err)
		RecordAuthEvent("verification", "malformed", "unknown")
		return nil, false
	}
	prov, ok := s.authProviders[providerID]
	if !ok {
		logger.Debug("Unknown provider in Bearer token", "provider", providerID)
		RecordAuthEvent("verification", "unknown_provider", providerID)
		return nil, false
	}

	idTok, err := prov.idVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.Debug("ID token verification failed", "provider", providerID, "error", err)
		RecordAuthEvent("verification", "failed", providerID)
		return nil, false
	}
	var claims map[string]any
	if err := idTok.Claims(&claims); err != nil {
		logger.Error("Failed to extract claims from token", "error", err)
		return nil, false
	}
	RecordAuthEvent("verification", "success", providerID)
	return &User{
		UserID:  userIDFromClaims(claims),
		Subject: idTok.Subject,
		Method:  methodOIDC,
	}, true
}

// authenticateAPIKey validates an API key and returns the associated User
func (s *Server) authenticateAPIKey(apiKey string) (*User, bool) {
	keyHash := hashAPIKey(apiKey)

	logger.Debug("Looking up API key", "keyHash", truncateHash(keyHash))
	userID, found, err := s.store.GetAPIKey(keyHash)
	if err != nil {
		logger.Error("Failed to lookup API key", "error", err)
		return nil, false
	}
	if !found {
		logger.Debug("API key not found in storage")
		return nil, false
	}

	return &User{
		UserID:  userID,
		Subject: "apikey:" + truncateHash(keyHash),
		Method:  methodAPIKey,
	}, true
}

// parseProviderToken parses a provider-prefixed token of the format "provider:jwt"
func parseProviderToken(token string) (providerID, jwt string, err error) {
	if token == "" {
		return "", "", fmt.Errorf("empty token")
	}

	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid token format: expected 'provider:jwt'")
	}

	providerID, jwt = parts[0], parts[1]
	if providerID == "" {
		return "", "", fmt.Errorf("empty provider ID")
	}
	if jwt == "" {
		return "", "", fmt.Errorf("empty JWT token")
	}

	return providerID, jwt, nil
}

func strClaim(m map[string]any, k string) string {
	if v, ok := m[k].(string); ok {
		return v
	}
	return ""
}

// userIDFromClaims derives a stable user id from the issuer and subject.
func userIDFromClaims(claims map[string]any) string {
	iss := strClaim(claims, "iss")
	sub := strClaim(claims, "sub")
	if iss == "" || sub == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(iss + "|" + sub))
	return fmt.Sprintf("user-%x", hash[:8])
}

// userIDFromContext returns the user resolved by userContext, or "" when
// the handler is not behind it.
func userIDFromContext(r *http.Request) string {
	user, ok := r.Context().Value(userCtxKey{}).(*User)
	if !ok {
		return ""
	}
	return user.UserID
}

func (s *Server) handleAuthFailure(w http.ResponseWriter, r *http.Request) {
	accept := r.Header.Get("Accept")
	if r.Method == http.MethodGet && strings.Contains(accept, "text/html") && len(s.authProviders) > 0 {
		logger.Debug("Redirecting to login page", "path", r.URL.Path)
		http.Redirect(w, r, "/auth/login?return="+r.URL.Path, http.StatusFound)
		return
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="habits"`)
	writeError(w, http.StatusUnauthorized, "unauthorized")
}
