package twitchapi

import (
	"context"
	"reflect"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"

	"github.com/onnwee/chatbot/testutil"
)

func TestOAuth2Config(t *testing.T) {
	conf := OAuth2Config("id", "secret", "chat:read,chat:edit")
	if conf.Endpoint != twitch.Endpoint {
		t.Errorf("endpoint = %+v, want twitch endpoint", conf.Endpoint)
	}
	if want := []string{"chat:read", "chat:edit"}; !reflect.DeepEqual(conf.Scopes, want) {
		t.Errorf("scopes = %v, want %v", conf.Scopes, want)
	}
	if conf.ClientID != "id" || conf.ClientSecret != "secret" {
		t.Errorf("client = %q/%q", conf.ClientID, conf.ClientSecret)
	}
}

func TestChatPassword(t *testing.T) {
	tests := []struct {
		in, pass, bare string
	}{
		{"abc", "oauth:abc", "abc"},
		{"oauth:abc", "oauth:abc", "abc"},
		{"", "oauth:", ""},
	}
	for _, tt := range tests {
		if got := ChatPassword(tt.in); got != tt.pass {
			t.Errorf("ChatPassword(%q) = %q, want %q", tt.in, got, tt.pass)
		}
		if got := BareToken(tt.in); got != tt.bare {
			t.Errorf("BareToken(%q) = %q, want %q", tt.in, got, tt.bare)
		}
	}
}

func TestUserTokenSourceStatic(t *testing.T) {
	ts := UserTokenSource(context.Background(), nil, "oauth:abc", "", time.Time{})
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "abc" {
		t.Errorf("access = %q, want abc", tok.AccessToken)
	}
}

func TestUserTokenSourceRefreshesExpired(t *testing.T) {
	m := testutil.NewMockTwitchServer(t)
	m.MockOAuthTokenResponse("fresh", "next-refresh", 3600, "chat:read", "chat:edit")
	conf := OAuth2Config("id", "secret", "chat:read chat:edit")
	conf.Endpoint = m.Endpoint()

	ts := UserTokenSource(context.Background(), conf, "stale", "r1", time.Now().Add(-time.Minute))
	for i := 0; i < 2; i++ {
		tok, err := ts.Token()
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if tok.AccessToken != "fresh" {
			t.Errorf("access = %q, want fresh", tok.AccessToken)
		}
	}
	if m.Calls() != 1 {
		t.Errorf("expected 1 token request (then cached), got %d", m.Calls())
	}
}

func TestRefreshToken(t *testing.T) {
	m := testutil.NewMockTwitchServer(t)
	m.MockOAuthTokenResponse("new-access", "new-refresh", 7200, "chat:read", "chat:edit")
	conf := OAuth2Config("id", "secret", "")
	conf.Endpoint = m.Endpoint()

	tok, err := RefreshToken(context.Background(), conf, "old-refresh")
	if err != nil {
		t.Fatalf("RefreshToken() error = %v", err)
	}
	if tok.AccessToken != "new-access" || tok.RefreshToken != "new-refresh" {
		t.Errorf("token = %q/%q", tok.AccessToken, tok.RefreshToken)
	}
	if got := Scope(tok); got != "chat:read chat:edit" {
		t.Errorf("scope = %q", got)
	}
	if time.Until(tok.Expiry) < time.Hour {
		t.Errorf("expiry too soon: %v", tok.Expiry)
	}
}

func TestRefreshTokenErrors(t *testing.T) {
	if _, err := RefreshToken(context.Background(), OAuth2Config("", "", ""), "r"); err == nil {
		t.Errorf("expected error for missing client credentials")
	}
	if _, err := RefreshToken(context.Background(), OAuth2Config("id", "secret", ""), ""); err == nil {
		t.Errorf("expected error for missing refresh token")
	}

	m := testutil.NewMockTwitchServer(t) // no token handler: 404
	conf := OAuth2Config("id", "secret", "")
	conf.Endpoint = m.Endpoint()
	if _, err := RefreshToken(context.Background(), conf, "r"); err == nil {
		t.Errorf("expected error from failing token endpoint")
	}
}

func TestScope(t *testing.T) {
	if Scope(nil) != "" {
		t.Errorf("nil token scope should be empty")
	}
	tok := (&oauth2.Token{}).WithExtra(map[string]interface{}{"scope": "chat:read"})
	if Scope(tok) != "chat:read" {
		t.Errorf("string scope = %q", Scope(tok))
	}
}

func TestComputeExpiry(t *testing.T) {
	tests := []struct {
		name      string
		expiresIn int
		wantAfter time.Duration
	}{
		{"4 hours", 14400, 4 * time.Hour},
		{"1 hour", 3600, time.Hour},
		{"zero defaults to 60 minutes", 0, 60 * time.Minute},
		{"negative defaults to 60 minutes", -100, 60 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := time.Now()
			expiry := ComputeExpiry(tt.expiresIn)
			after := time.Now()
			if expiry.Before(before.Add(tt.wantAfter).Add(-2*time.Second)) || expiry.After(after.Add(tt.wantAfter).Add(2*time.Second)) {
				t.Errorf("ComputeExpiry(%d) = %v, want approximately %v", tt.expiresIn, expiry, before.Add(tt.wantAfter))
			}
		})
	}
}
