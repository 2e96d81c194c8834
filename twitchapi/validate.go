package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultValidateURL is Twitch's token introspection endpoint.
const DefaultValidateURL = "https://id.twitch.tv/oauth2/validate"

// ErrInvalidToken is returned when Twitch rejects the token.
var ErrInvalidToken = errors.New("twitch: token invalid or expired")

// Validation describes a token accepted by Twitch.
type Validation struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	UserID    string   `json:"user_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int      `json:"expires_in"`
}

// ExpiresAt converts ExpiresIn to an absolute time.
func (v *Validation) ExpiresAt() time.Time { return ComputeExpiry(v.ExpiresIn) }

// HasScopes reports whether every scope in want was granted.
func (v *Validation) HasScopes(want ...string) bool {
	have := make(map[string]struct{}, len(v.Scopes))
	for _, s := range v.Scopes {
		have[s] = struct{}{}
	}
	for _, w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}

// Validator checks user tokens against the validate endpoint.
type Validator struct {
	URL        string
	HTTPClient *http.Client
}

// Validate asks Twitch who owns access and which scopes it carries. The "oauth:" prefix
// is accepted and stripped.
func (v *Validator) Validate(ctx context.Context, access string) (*Validation, error) {
	u := v.URL
	if u == "" {
		u = DefaultValidateURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+BareToken(access))
	hc := v.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("twitch validate failed: %s: %s", resp.Status, string(b))
	}
	var out Validation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Login == "" {
		return nil, errors.New("empty login in twitch validate response")
	}
	return &out, nil
}
