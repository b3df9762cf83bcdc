package server

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUserMetrics_UnverifiedIDsNotLabelled(t *testing.T) {
	h := newTestServer(t, newMemStore())

	mockRequestAs(h, "header-user-7f3a", http.MethodGet, "/api/habits/", nil)
	mockRequest(h, http.MethodGet, "/api/habits/?userId=query-user-7f3a", nil)

	for _, id := range []string{"header-user-7f3a", "query-user-7f3a", "demo-user"} {
		if userRequestsTotal.DeleteLabelValues(id, http.MethodGet) {
			t.Errorf("request counter labelled with unverified user %q", id)
		}
		if activeHabitsPerUser.DeleteLabelValues(id) {
			t.Errorf("active habits gauge labelled with unverified user %q", id)
		}
	}
}

func TestUserMetrics_APIKeyUserLabelled(t *testing.T) {
	store := newMemStore()
	h := newTestServerWithAuth(t, store)

	apiKey := "hab_live_metrics123456789012345678901"
	keyHash := fmt.Sprintf("%x", sha256.Sum256([]byte(apiKey)))
	if err := store.PutAPIKey(keyHash, "user-metrics"); err != nil {
		t.Fatalf("failed to store API key: %v", err)
	}

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/habits/", strings.NewReader(`{"name":"guitar"}`)),
		httptest.NewRequest(http.MethodGet, "/api/habits/", nil),
	} {
		req.Header.Set("Authorization", "Bearer "+apiKey)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code >= 300 {
			t.Fatalf("%s %s: got %d, body: %s", req.Method, req.URL.Path, rr.Code, rr.Body.String())
		}
	}

	if !userRequestsTotal.DeleteLabelValues("user-metrics", http.MethodGet) {
		t.Error("request counter missing for API key user")
	}
	if !activeHabitsPerUser.DeleteLabelValues("user-metrics") {
		t.Error("active habits gauge missing for API key user")
	}
}
