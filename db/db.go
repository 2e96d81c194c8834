// Package db provides the Postgres connection, schema migrations and the bot token store.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
	"golang.org/x/oauth2"
)

// ProviderTwitch is the oauth_tokens key for the chat bot's user token.
const ProviderTwitch = "twitch"

// ErrTokenNotFound is returned by TokenStore when no row exists for the provider.
var ErrTokenNotFound = errors.New("db: no stored token")

// Connect opens a Postgres connection and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("db: empty DSN")
	}
	dbx, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := dbx.PingContext(pingCtx); err != nil {
		_ = dbx.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	return dbx, nil
}

// UpsertOAuthToken stores or updates the token for a provider.
func UpsertOAuthToken(ctx context.Context, dbx *sql.DB, provider, access, refresh string, expiry time.Time, scope string) error {
	q := `INSERT INTO oauth_tokens(provider, access_token, refresh_token, expires_at, scope, updated_at)
		  VALUES($1,$2,$3,$4,$5,NOW())
		  ON CONFLICT(provider) DO UPDATE SET
		    access_token=EXCLUDED.access_token,
		    refresh_token=EXCLUDED.refresh_token,
		    expires_at=EXCLUDED.expires_at,
		    scope=EXCLUDED.scope,
		    updated_at=NOW()`
	_, err := dbx.ExecContext(ctx, q, provider, access, refresh, expiry, scope)
	return err
}

// GetOAuthToken retrieves a stored token row; returns zero values if not found.
func GetOAuthToken(ctx context.Context, dbx *sql.DB, provider string) (access, refresh string, expiry time.Time, scope string, err error) {
	row := dbx.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, expires_at, scope FROM oauth_tokens WHERE provider = $1`, provider)
	err = row.Scan(&access, &refresh, &expiry, &scope)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", time.Time{}, "", nil
	}
	if err != nil {
		return "", "", time.Time{}, "", err
	}
	return access, refresh, expiry, scope, nil
}

// TokenStore exposes a provider's row as an oauth2.TokenSource. Every call reads the
// table, so a background refresher's writes are picked up by the next login.
type TokenStore struct {
	DB       *sql.DB
	Provider string
	Timeout  time.Duration
}

// Token implements oauth2.TokenSource.
func (s *TokenStore) Token() (*oauth2.Token, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	access, refresh, expiry, _, err := GetOAuthToken(ctx, s.DB, s.provider())
	if err != nil {
		return nil, fmt.Errorf("db: load %s token: %w", s.provider(), err)
	}
	if access == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrTokenNotFound, s.provider())
	}
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		Expiry:       expiry,
	}, nil
}

// Save writes tok for the store's provider.
func (s *TokenStore) Save(ctx context.Context, tok *oauth2.Token, scope string) error {
	return UpsertOAuthToken(ctx, s.DB, s.provider(), tok.AccessToken, tok.RefreshToken, tok.Expiry, scope)
}

func (s *TokenStore) provider() string {
	if s.Provider == "" {
		return ProviderTwitch
	}
	return s.Provider
}
