// Package config loads environment variables and provides a typed Config used across the bot.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials, use ValidateChatReady.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultChannel is empty: the channel has no sensible default and must be configured.
const DefaultChannel = ""

const (
	DefaultIRCHost      = "irc.chat.twitch.tv"
	DefaultIRCPort      = 6667
	DefaultSendInterval = 300 * time.Millisecond
	DefaultPollInterval = time.Second
	DefaultCapability   = "twitch.tv/membership"
	DefaultHTTPAddr     = ":8080"
	DefaultScopes       = "chat:read chat:edit"
)

type Config struct {
	// Twitch chat identity
	TwitchChannel      string
	TwitchBotUsername  string
	TwitchOAuthToken   string
	TwitchRefreshToken string
	TwitchClientID     string
	TwitchClientSecret string
	TwitchScopes       string
	// ValidateToken checks the token against Twitch's validate endpoint before login.
	ValidateToken      bool

	// Gateway
	IRCHost      string
	IRCPort      int
	SendInterval time.Duration
	PollInterval time.Duration
	Capability   string

	// Database (optional token store)
	DBDsn string

	// HTTP side channel
	HTTPAddr string

	// Tracing
	OTLPEndpoint string
}

// Load reads environment variables and applies defaults. It doesn't fail if Twitch creds are missing;
// use ValidateChatReady() before starting a session. Malformed numeric or duration values are errors.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchChannel = NormalizeChannel(os.Getenv("TWITCH_CHANNEL"))
	cfg.TwitchBotUsername = strings.ToLower(strings.TrimSpace(os.Getenv("TWITCH_BOT_USERNAME")))
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.TwitchRefreshToken = os.Getenv("TWITCH_REFRESH_TOKEN")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")
	cfg.TwitchScopes = os.Getenv("TWITCH_SCOPES")
	if cfg.TwitchScopes == "" {
		// default scopes for chat bot
		cfg.TwitchScopes = DefaultScopes
	}
	cfg.ValidateToken = os.Getenv("TWITCH_VALIDATE_TOKEN") != "0"

	cfg.IRCHost = os.Getenv("TWITCH_IRC_HOST")
	if cfg.IRCHost == "" {
		cfg.IRCHost = DefaultIRCHost
	}
	cfg.IRCPort = DefaultIRCPort
	if v := os.Getenv("TWITCH_IRC_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("invalid TWITCH_IRC_PORT %q", v)
		}
		cfg.IRCPort = p
	}

	var err error
	if cfg.SendInterval, err = durationEnv("CHAT_SEND_INTERVAL", DefaultSendInterval); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = durationEnv("CHAT_POLL_INTERVAL", DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("invalid CHAT_POLL_INTERVAL: must be positive")
	}

	cfg.Capability = os.Getenv("CHAT_CAPABILITY")
	if cfg.Capability == "" {
		cfg.Capability = DefaultCapability
	}

	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}

	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// NormalizeChannel lower-cases name and ensures the leading '#'. Empty stays empty.
func NormalizeChannel(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || strings.HasPrefix(name, "#") {
		return name
	}
	return "#" + name
}

// HasRefreshCredentials reports whether the bot token can be refreshed through OAuth2.
func (c *Config) HasRefreshCredentials() bool {
	return c.TwitchClientID != "" && c.TwitchClientSecret != ""
}

// ValidateChatReady checks the fields a chat session needs: channel, username and a way to
// obtain a token (a token in the environment, a refresh token, or the database store).
func (c *Config) ValidateChatReady() error {
	if c.TwitchChannel == "" || c.TwitchBotUsername == "" {
		return errors.New("missing twitch env: require TWITCH_CHANNEL, TWITCH_BOT_USERNAME")
	}
	if c.TwitchOAuthToken == "" && c.TwitchRefreshToken == "" && c.DBDsn == "" {
		return errors.New("missing twitch credentials: set TWITCH_OAUTH_TOKEN, TWITCH_REFRESH_TOKEN or DB_DSN")
	}
	if c.TwitchOAuthToken == "" && c.TwitchRefreshToken != "" && !c.HasRefreshCredentials() {
		return errors.New("TWITCH_REFRESH_TOKEN requires TWITCH_CLIENT_ID and TWITCH_CLIENT_SECRET")
	}
	return nil
}
