package chat

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/onnwee/chatbot/irc"
	"github.com/onnwee/chatbot/telemetry"
	"github.com/onnwee/chatbot/twitchapi"
)

// DefaultCapability enables JOIN and PART notifications for the channel.
const DefaultCapability = "twitch.tv/membership"

// State is a stage of the client lifecycle. States only move forward.
type State int32

const (
	StateIdle State = iota
	StateConnected
	StateAuthenticating
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config describes one chat session.
type Config struct {
	Host     string
	Port     int
	Username string
	Channel  string
	// Token supplies the PASS credential. A bare access token gets the "oauth:" prefix.
	Token oauth2.TokenSource
	// Capability is requested after NICK. Defaults to DefaultCapability.
	Capability string

	PollInterval time.Duration
	SendInterval time.Duration
	Logger       *slog.Logger
	Dial         func(ctx context.Context, network, addr string) (net.Conn, error)
}

// Client is a single-channel Twitch chat session.
type Client struct {
	cfg      Config
	conn     *irc.Conn
	registry *Registry
	session  string
	log      *slog.Logger

	state   atomic.Int32
	started atomic.Bool
	running atomic.Bool
}

// NewClient prepares a client in the Idle state. No network activity happens until Connect.
func NewClient(cfg Config) *Client {
	if cfg.Capability == "" {
		cfg.Capability = DefaultCapability
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = irc.DefaultPollInterval
	}
	cfg.Channel = irc.NormalizeChannel(cfg.Channel)
	base := cfg.Logger
	if base == nil {
		base = slog.Default()
	}
	session := uuid.NewString()
	log := base.With(slog.String("component", "chat"), slog.String("corr", session))
	c := &Client{
		cfg:      cfg,
		registry: NewRegistry(),
		session:  session,
		log:      log,
	}
	c.conn = irc.NewConn(irc.Options{
		Host:         cfg.Host,
		Port:         cfg.Port,
		PollInterval: cfg.PollInterval,
		SendInterval: cfg.SendInterval,
		Logger:       log,
		Dial:         cfg.Dial,
	})
	c.setState(StateIdle)
	return c
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
	telemetry.SetClientState(int(s))
}

// State returns the current lifecycle stage.
func (c *Client) State() State { return State(c.state.Load()) }

// SessionID is the correlation id attached to every log line of this session.
func (c *Client) SessionID() string { return c.session }

// Channel returns the normalized channel name, including the leading '#'.
func (c *Client) Channel() string { return c.cfg.Channel }

// Username returns the login the client authenticates as.
func (c *Client) Username() string { return c.cfg.Username }

// Registry exposes the handler registry.
func (c *Client) Registry() *Registry { return c.registry }

// OnMessage registers h for chat messages.
func (c *Client) OnMessage(h MessageHandler) { c.registry.OnMessage(h) }

// OnJoin registers h for channel joins.
func (c *Client) OnJoin(h JoinHandler) { c.registry.OnJoin(h) }

// RegisterEventKind declares an event kind ahead of attaching handlers.
func (c *Client) RegisterEventKind(kind EventKind) error { return c.registry.RegisterEventKind(kind) }

// Connect dials the gateway and queues the login handshake. It does not wait for the
// server to acknowledge the login; a rejected token shows up as the gateway closing the
// connection.
func (c *Client) Connect(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if c.cfg.Token == nil {
		c.fail()
		return ErrNoToken
	}
	tok, err := c.cfg.Token.Token()
	if err != nil {
		c.fail()
		return fmt.Errorf("chat: obtain token: %w", err)
	}
	if err := c.conn.Connect(ctx); err != nil {
		c.log.Error("connect failed", slog.String("addr", c.conn.Addr()), slog.Any("err", err))
		c.fail()
		return err
	}
	c.setState(StateConnected)
	c.log.Info("connected", slog.String("addr", c.conn.Addr()), slog.String("channel", c.cfg.Channel))

	c.setState(StateAuthenticating)
	handshake := []string{
		irc.PassCommand(twitchapi.ChatPassword(tok.AccessToken)),
		irc.NickCommand(c.cfg.Username),
		irc.CapReqCommand(c.cfg.Capability),
		irc.JoinCommand(c.cfg.Channel),
	}
	for _, line := range handshake {
		if err := c.conn.Send(line); err != nil {
			c.fail()
			return fmt.Errorf("chat: queue handshake: %w", err)
		}
	}
	c.log.Debug("handshake queued", slog.String("nick", c.cfg.Username))
	return nil
}

func (c *Client) fail() {
	_ = c.conn.Close()
	c.setState(StateClosed)
}

// Run processes inbound lines until the gateway closes the connection, ctx is canceled
// or a handler panics. It connects first when the client is still Idle.
//
// A gateway close returns nil after every line already framed has been handled.
// Cancellation returns ctx.Err(). A handler panic closes the session and returns an
// error wrapping ErrHandlerPanic.
func (c *Client) Run(ctx context.Context) (err error) {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if c.State() == StateIdle {
		if err := c.Connect(ctx); err != nil {
			return err
		}
	}
	if c.State() == StateClosed {
		return irc.ErrClosed
	}

	ctx = telemetry.WithCorrelation(ctx, c.session)
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("handler panicked; closing session", slog.Any("panic", r))
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
		_ = c.conn.Close()
		c.setState(StateClosed)
		c.log.Info("session closed")
	}()

	c.setState(StateRunning)
	c.log.Info("session running", slog.String("channel", c.cfg.Channel))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, ok := c.conn.Receive(c.cfg.PollInterval)
		if ok {
			c.handleLine(ctx, raw)
			continue
		}
		if c.conn.Closed() {
			if err := ctx.Err(); err != nil {
				return err
			}
			// the reader may have framed more lines between the poll and the close
			for {
				raw, ok := c.conn.Receive(0)
				if !ok {
					return nil
				}
				c.handleLine(ctx, raw)
			}
		}
	}
}

func (c *Client) handleLine(ctx context.Context, raw []byte) {
	line, err := irc.DecodeLine(raw)
	if err != nil {
		c.log.Warn("skipping malformed line", slog.Any("err", err))
		telemetry.IncLinesMalformed()
		return
	}
	switch ev := irc.Parse(line).(type) {
	case irc.Ping:
		// The reply is queued before the next inbound line is looked at.
		if err := c.conn.Send(ev.Pong()); err != nil {
			c.log.Debug("pong not sent", slog.Any("err", err))
			return
		}
		telemetry.IncPongs()
	case irc.ChatMessage:
		c.dispatch(ctx, EventMessage, ev.Channel, ev.Sender, func() int {
			return c.registry.DispatchMessage(c, ev)
		})
	case irc.MembershipEvent:
		if ev.Left {
			c.log.Debug("user left", slog.String("channel", ev.Channel), slog.String("user", ev.User))
			return
		}
		c.dispatch(ctx, EventJoin, ev.Channel, ev.User, func() int {
			return c.registry.DispatchJoin(c, ev)
		})
	default:
		c.log.Debug("unrecognized line", slog.String("line", line))
		telemetry.IncLinesUnrecognized()
	}
}

func (c *Client) dispatch(ctx context.Context, kind EventKind, channel, user string, fire func() int) {
	_, span := telemetry.StartSpan(ctx, "chat.dispatch", telemetry.EventAttrs(kind.String(), channel, user)...)
	defer span.End()
	var n int
	telemetry.TimeFunc(telemetry.HandlerDuration, func() { n = fire() })
	telemetry.IncEventsDispatched(kind.String())
	telemetry.SetSpanSuccess(span)
	c.log.Debug("event dispatched", slog.String("kind", kind.String()), slog.String("user", user), slog.Int("handlers", n))
}

// Send queues a raw protocol line. CRLF is appended when missing.
func (c *Client) Send(raw string) error {
	return c.conn.Send(raw)
}

// Say posts text to the joined channel.
func (c *Client) Say(text string) error {
	return c.conn.Send(irc.PrivmsgCommand(c.cfg.Channel, text))
}

// Close ends the session. Queued outbound lines that were not yet written are dropped.
func (c *Client) Close() error {
	err := c.conn.Close()
	c.setState(StateClosed)
	return err
}

// Status is a point-in-time view of the session.
type Status struct {
	State     string `json:"state"`
	Channel   string `json:"channel"`
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
	Inbound   int    `json:"inbound_queue"`
	Outbound  int    `json:"outbound_queue"`
	Handlers  struct {
		Message int `json:"message"`
		Join    int `json:"join"`
	} `json:"handlers"`
}

// Status reports the session state and queue depths.
func (c *Client) Status() Status {
	s := Status{
		State:     c.State().String(),
		Channel:   c.cfg.Channel,
		Username:  c.cfg.Username,
		SessionID: c.session,
		Inbound:   c.conn.InboundLen(),
		Outbound:  c.conn.OutboundLen(),
	}
	s.Handlers.Message = c.registry.Len(EventMessage)
	s.Handlers.Join = c.registry.Len(EventJoin)
	return s
}
