// Command chatbot runs a Twitch chat bot for a single channel.
// It:
//   - Loads configuration and initializes structured logging.
//   - Optionally connects to Postgres, runs migrations and keeps the stored bot token
//     refreshed.
//   - Runs the chat session with the !respond and join-greeting handlers.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/onnwee/chatbot/chat"
	"github.com/onnwee/chatbot/config"
	"github.com/onnwee/chatbot/db"
	"github.com/onnwee/chatbot/oauth"
	"github.com/onnwee/chatbot/responder"
	"github.com/onnwee/chatbot/server"
	"github.com/onnwee/chatbot/telemetry"
	"github.com/onnwee/chatbot/twitchapi"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	slog.SetDefault(slog.New(newLogHandler(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))))

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogHandler configures logging (level + format). Defaults: level=info, format=text.
func newLogHandler(w io.Writer, level, format string) slog.Handler {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(w, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", level))
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

type rootFlags struct {
	channel  string
	host     string
	port     int
	httpAddr string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:           "chatbot",
		Short:         "Twitch chat bot for a single channel",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Error("config load failed", slog.Any("err", err))
				return err
			}
			applyFlags(cmd, cfg, flags)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := run(ctx, cfg); err != nil {
				slog.Error("chatbot exited with error", slog.Any("err", err))
				return err
			}
			return nil
		},
	}
	root.Flags().StringVar(&flags.channel, "channel", "", "channel to join (overrides TWITCH_CHANNEL)")
	root.Flags().StringVar(&flags.host, "host", "", "chat gateway host (overrides TWITCH_IRC_HOST)")
	root.Flags().IntVar(&flags.port, "port", 0, "chat gateway port (overrides TWITCH_IRC_PORT)")
	root.Flags().StringVar(&flags.httpAddr, "http-addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	root.AddCommand(newMigrateCmd())
	return root
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags rootFlags) {
	if cmd.Flags().Changed("channel") {
		cfg.TwitchChannel = config.NormalizeChannel(flags.channel)
	}
	if cmd.Flags().Changed("host") {
		cfg.IRCHost = flags.host
	}
	if cmd.Flags().Changed("port") {
		cfg.IRCPort = flags.port
	}
	if cmd.Flags().Changed("http-addr") {
		cfg.HTTPAddr = flags.httpAddr
	}
}

func newMigrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or roll back) the token store schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DBDsn == "" {
				return errors.New("DB_DSN is required for migrate")
			}
			database, err := db.Connect(cmd.Context(), cfg.DBDsn)
			if err != nil {
				return err
			}
			defer func() {
				if err := database.Close(); err != nil {
					slog.Error("failed to close database", slog.Any("err", err))
				}
			}()
			if down {
				if err := db.MigrateDown(database); err != nil {
					return err
				}
			} else if err := db.RunMigrations(database); err != nil {
				return err
			}
			v, dirty, err := db.GetMigrationVersion(database)
			if err != nil {
				return err
			}
			slog.Info("schema version", slog.Uint64("version", uint64(v)), slog.Bool("dirty", dirty), slog.String("component", "db_migrate"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent migration")
	return cmd
}

// run wires the bot together and blocks until the chat session ends or ctx is canceled.
func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.ValidateChatReady(); err != nil {
		return err
	}
	// Stops the HTTP server and refresher when the session ends on its own.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing(cfg.OTLPEndpoint, "chatbot", version)
	if err != nil {
		return fmt.Errorf("tracing initialization failed: %w", err)
	}
	defer shutdown()

	var database *sql.DB
	if cfg.DBDsn != "" {
		database, err = db.Connect(ctx, cfg.DBDsn)
		if err != nil {
			return err
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.RunMigrations(database); err != nil {
			return err
		}
	}

	ts, err := tokenSource(ctx, cfg, database)
	if err != nil {
		return err
	}
	if cfg.ValidateToken {
		validateToken(ctx, cfg, ts)
	}

	client := chat.NewClient(chat.Config{
		Host:         cfg.IRCHost,
		Port:         cfg.IRCPort,
		Username:     cfg.TwitchBotUsername,
		Channel:      cfg.TwitchChannel,
		Token:        ts,
		Capability:   cfg.Capability,
		PollInterval: cfg.PollInterval,
		SendInterval: cfg.SendInterval,
	})
	responder.Register(client)

	// HTTP server (health/status/metrics)
	go func() {
		if err := server.Start(ctx, cfg.HTTPAddr, server.Options{Status: client, DB: database}); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	err = client.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		slog.Info("shutting down")
		return nil
	case err == nil:
		slog.Info("chat session ended by server")
		return nil
	default:
		return err
	}
}

// tokenSource picks where the bot token comes from. With a database the stored row is
// authoritative (seeded from the environment on first run) and refreshed in the
// background; without one the environment token is used directly.
func tokenSource(ctx context.Context, cfg *config.Config, database *sql.DB) (oauth2.TokenSource, error) {
	var conf *oauth2.Config
	if cfg.HasRefreshCredentials() {
		conf = twitchapi.OAuth2Config(cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TwitchScopes)
	}
	if database == nil {
		return twitchapi.UserTokenSource(ctx, conf, cfg.TwitchOAuthToken, cfg.TwitchRefreshToken, time.Time{}), nil
	}

	store := &db.TokenStore{DB: database, Provider: db.ProviderTwitch}
	if _, err := store.Token(); errors.Is(err, db.ErrTokenNotFound) {
		if cfg.TwitchOAuthToken == "" && cfg.TwitchRefreshToken == "" {
			return nil, errors.New("no twitch token stored and none in the environment")
		}
		seed, err := twitchapi.UserTokenSource(ctx, conf, cfg.TwitchOAuthToken, cfg.TwitchRefreshToken, time.Time{}).Token()
		if err != nil {
			return nil, fmt.Errorf("obtain initial token: %w", err)
		}
		if err := store.Save(ctx, seed, cfg.TwitchScopes); err != nil {
			return nil, fmt.Errorf("seed token store: %w", err)
		}
		slog.Info("seeded token store from environment", slog.String("provider", db.ProviderTwitch))
	} else if err != nil {
		return nil, err
	}

	if conf != nil {
		oauth.StartRefresher(ctx, database, db.ProviderTwitch, 5*time.Minute, 15*time.Minute, oauth.OAuth2Refresh(conf))
	} else {
		slog.Info("token refresher disabled (missing client id/secret)")
	}
	return store, nil
}

// validateToken is best effort: a failed check is logged and the login still happens.
func validateToken(ctx context.Context, cfg *config.Config, ts oauth2.TokenSource) {
	tok, err := ts.Token()
	if err != nil {
		slog.Warn("token unavailable for validation", slog.Any("err", err))
		return
	}
	vctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	res, err := (&twitchapi.Validator{}).Validate(vctx, tok.AccessToken)
	if err != nil {
		slog.Warn("twitch token validation failed", slog.Any("err", err))
		return
	}
	if !strings.EqualFold(res.Login, cfg.TwitchBotUsername) {
		slog.Warn("token belongs to a different user", slog.String("login", res.Login), slog.String("nick", cfg.TwitchBotUsername))
	}
	if !res.HasScopes("chat:read", "chat:edit") {
		slog.Warn("token is missing chat scopes", slog.Any("scopes", res.Scopes))
	}
	slog.Info("twitch token validated", slog.String("login", res.Login), slog.Time("expires_at", res.ExpiresAt()))
}
