package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/oauth2"
)

// MockTwitchServer creates a test server that mocks the Twitch identity endpoints.
type MockTwitchServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	calls atomic.Int64
}

// NewMockTwitchServer creates a new mock Twitch identity server
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.calls.Add(1)
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Calls returns how many requests the server received.
func (m *MockTwitchServer) Calls() int64 { return m.calls.Load() }

// Endpoint points an oauth2.Config at this server.
func (m *MockTwitchServer) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   m.URL + "/oauth2/authorize",
		TokenURL:  m.URL + "/oauth2/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// MockOAuthTokenResponse adds a handler for OAuth token endpoint. It only answers the
// refresh_token grant.
func (m *MockTwitchServer) MockOAuthTokenResponse(accessToken, refreshToken string, expiresIn int, scopes ...string) {
	m.Handlers["/oauth2/token"] = func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "refresh_token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		response := map[string]interface{}{
			"access_token": accessToken,
			"expires_in":   expiresIn,
			"token_type":   "bearer",
			"scope":        scopes,
		}
		if refreshToken != "" {
			response["refresh_token"] = refreshToken
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockValidateResponse adds a handler for /oauth2/validate that accepts only token.
func (m *MockTwitchServer) MockValidateResponse(token, login string, expiresIn int, scopes ...string) {
	m.Handlers["/oauth2/validate"] = func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.Header.Get("Authorization"), "OAuth ") != token {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":401,"message":"invalid access token"}`)) //nolint:errcheck // test mock response
			return
		}
		response := map[string]interface{}{
			"client_id":  "test-client",
			"login":      login,
			"user_id":    "1234",
			"scopes":     scopes,
			"expires_in": expiresIn,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}
