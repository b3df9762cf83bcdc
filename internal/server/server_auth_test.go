package server

import (
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/brk3/habitboard/internal/config"
)

func TestLogin_RedirectsToIDP(t *testing.T) {
	h := newTestServerWithAuth(t, newMemStore())

	rr := mockRequest(h, http.MethodGet, "/auth/login/test?return=/api/habits/", nil)
	if rr.Code != http.StatusFound {
		t.Fatalf("got %d want 302", rr.Code)
	}
	loc, err := rr.Result().Location()
	if err != nil {
		t.Fatalf("error getting location: %v", err)
	}
	if loc.Path != "/auth" {
		t.Fatalf("got redirect to %s, want /auth on test host", loc.String())
	}
	q := loc.Query()
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" || q.Get("state") == "" {
		t.Fatalf("missing PKCE parameters in %s", loc.String())
	}
}

func TestLogin_UnknownProvider(t *testing.T) {
	h := newTestServerWithAuth(t, newMemStore())
	rr := mockRequest(h, http.MethodGet, "/auth/login/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d want 404", rr.Code)
	}
}

func TestCallback_InvalidState(t *testing.T) {
	h := newTestServerWithAuth(t, newMemStore())
	rr := mockRequest(h, http.MethodGet, "/auth/callback/test?state=bogus&code=abc", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400", rr.Code)
	}
}

func TestProviderList(t *testing.T) {
	h := newTestServerWithAuth(t, newMemStore())
	rr := mockRequest(h, http.MethodGet, "/auth/login", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `/auth/login/test`) {
		t.Fatalf("provider missing from login page: %s", rr.Body.String())
	}
}

func TestProviderList_ReturnSurvivesLoginForm(t *testing.T) {
	srv := newOIDCServer(t, newMemStore())
	h := srv.Router()

	rr := mockRequest(h, http.MethodGet, "/auth/login?return=/api/habits/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rr.Code)
	}
	m := regexp.MustCompile(`name="return" value="([^"]*)"`).FindStringSubmatch(rr.Body.String())
	if m == nil {
		t.Fatalf("hidden return field missing: %s", rr.Body.String())
	}
	hidden := html.UnescapeString(m[1])

	// Submit the form the way a browser does: GET with form-encoded fields.
	form := url.Values{"return": {hidden}}
	rr = mockRequest(h, http.MethodGet, "/auth/login/test?"+form.Encode(), nil)
	if rr.Code != http.StatusFound {
		t.Fatalf("got %d want 302", rr.Code)
	}
	loc, err := rr.Result().Location()
	if err != nil {
		t.Fatalf("error getting location: %v", err)
	}
	saved, ok := srv.authProviders["test"].state.GetAndDelete(loc.Query().Get("state"))
	if !ok {
		t.Fatal("login state was not stored")
	}
	if saved.Return != "/api/habits/" {
		t.Fatalf("stored return %q, want /api/habits/", saved.Return)
	}
}

func TestSafeReturn(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/api/habits/", "/api/habits/"},
		{"/api/progress/calendar?start=2024-03-01", "/api/progress/calendar?start=2024-03-01"},
		{"api/habits", "/"},
		{"https://evil.example/", "/"},
		{"//evil.example", "/"},
		{`/\evil.example`, "/"},
		{`/\/evil.example`, "/"},
		{`/api\habits`, "/"},
		{"javascript:alert(1)", "/"},
	}
	for _, tt := range tests {
		if got := safeReturn(tt.in); got != tt.want {
			t.Errorf("safeReturn(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAuthEnabled_NotLoggedIn_Unauthorized(t *testing.T) {
	h := newTestServerWithAuth(t, newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/api/habits/", nil)
	req.Header.Set("Accept", "application/json")
	// Header identity is ignored once auth is on.
	req.Header.Set(userIDHeader, "alice")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("got %d want 401", rr.Code)
	}
}

func TestAuthEnabled_NotLoggedIn_Redirect(t *testing.T) {
	h := newTestServerWithAuth(t, newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/api/habits/", nil)
	req.Header.Set("Accept", "text/html")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("got %d want 302", rr.Code)
	}
}

func TestAuthEnabled_HealthIsPublic(t *testing.T) {
	h := newTestServerWithAuth(t, newMemStore())
	rr := mockRequest(h, http.MethodGet, "/api/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rr.Code)
	}
}

func TestUserIDFromClaims(t *testing.T) {
	claims := map[string]any{
		"iss": "https://test-issuer.com",
		"sub": "test-subject",
	}
	id := userIDFromClaims(claims)
	if !strings.HasPrefix(id, "user-") {
		t.Fatalf("got %q, expected to start with 'user-'", id)
	}
	if id != userIDFromClaims(claims) {
		t.Fatal("userIDFromClaims is not stable")
	}
	if userIDFromClaims(map[string]any{"sub": "x"}) != "" {
		t.Fatal("expected empty id without issuer")
	}
}

func TestUserIDFromContext(t *testing.T) {
	req := withAuthenticatedUser(httptest.NewRequest(http.MethodGet, "/test", nil), "user-1")
	if got := userIDFromContext(req); got != "user-1" {
		t.Fatalf("got %q want user-1", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	if got := userIDFromContext(req); got != "" {
		t.Fatalf("got %q, expected empty string when no user in context", got)
	}
}

func TestResolveUser_AuthDisabledOrder(t *testing.T) {
	cfg := config.Default()
	s, err := New(&cfg, newMemStore())
	if err != nil {
		t.Fatalf("error creating server: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/habits/?userId=query-user", nil)
	req.Header.Set(userIDHeader, "header-user")
	if u, _ := s.resolveUser(req); u.UserID != "header-user" || u.Method != methodHeader {
		t.Fatalf("header should win, got %+v", u)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/habits/?userId=query-user", nil)
	if u, _ := s.resolveUser(req); u.UserID != "query-user" {
		t.Fatalf("query should be used, got %+v", u)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/habits/", nil)
	if u, _ := s.resolveUser(req); u.UserID != "demo-user" || u.Method != methodDefault {
		t.Fatalf("expected default user, got %+v", u)
	}
}

func TestParseProviderToken(t *testing.T) {
	p, jwt, err := parseProviderToken("google:abc.def")
	if err != nil || p != "google" || jwt != "abc.def" {
		t.Fatalf("got (%q, %q, %v)", p, jwt, err)
	}
	for _, bad := range []string{"", "nocolon", ":jwt", "prov:"} {
		if _, _, err := parseProviderToken(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestStateStore_Expiry(t *testing.T) {
	s := NewStateStore(time.Minute)
	s.Put("fresh", authState{Verifier: "v"})
	s.Put("stale", authState{Verifier: "v", ExpireAt: time.Now().Add(-time.Second)})

	if _, ok := s.GetAndDelete("stale"); ok {
		t.Fatal("expired state should not be returned")
	}
	if _, ok := s.GetAndDelete("fresh"); !ok {
		t.Fatal("fresh state missing")
	}
	if _, ok := s.GetAndDelete("fresh"); ok {
		t.Fatal("state should be single use")
	}
}

func newTestServerWithAuth(t *testing.T, st *memStore) http.Handler {
	return newOIDCServer(t, st).Router()
}

func newOIDCServer(t *testing.T, st *memStore) *Server {
	t.Helper()
	mockOIDC := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/.well-known/openid-configuration" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			baseURL := "http://" + r.Host
			w.Write([]byte(`{
				"issuer": "` + baseURL + `",
				"authorization_endpoint": "` + baseURL + `/auth",
				"token_endpoint": "` + baseURL + `/token",
				"jwks_uri": "` + baseURL + `/keys"
			}`))
		}
	}))
	t.Cleanup(mockOIDC.Close)

	cfg := config.Default()
	cfg.AuthEnabled = true
	cfg.OIDCProviders = []config.OIDCProviderConfig{{
		Id:        "test",
		IssuerURL: mockOIDC.URL,
		ClientID:  "test",
	}}
	s, err := New(&cfg, st)
	if err != nil {
		t.Fatalf("error creating server: %v", err)
	}
	return s
}
