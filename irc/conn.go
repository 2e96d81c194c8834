package irc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onnwee/chatbot/telemetry"
)

const (
	// DefaultHost is Twitch's plaintext chat gateway.
	DefaultHost = "irc.chat.twitch.tv"
	// DefaultPort is the plaintext IRC port.
	DefaultPort = 6667
	// DefaultReadChunkSize bounds a single socket read.
	DefaultReadChunkSize = 2048
	// DefaultPollInterval bounds every queue wait so loops can observe shutdown while idle.
	DefaultPollInterval = time.Second
	// DefaultSendInterval is the minimum spacing between two writes: 30s / 100 messages.
	DefaultSendInterval = 300 * time.Millisecond
	// DefaultDialTimeout bounds the TCP connect.
	DefaultDialTimeout = 10 * time.Second
)

// Options configures a Conn. Zero values fall back to the defaults above.
type Options struct {
	Host          string
	Port          int
	ReadChunkSize int
	PollInterval  time.Duration
	// SendInterval is the pause after every write. A negative value disables pacing.
	SendInterval  time.Duration
	DialTimeout   time.Duration
	Logger        *slog.Logger
	// Dial replaces the TCP dialer, mainly for tests.
	Dial          func(ctx context.Context, network, addr string) (net.Conn, error)
}

func (o Options) withDefaults() Options {
	if o.Host == "" {
		o.Host = DefaultHost
	}
	if o.Port <= 0 {
		o.Port = DefaultPort
	}
	if o.ReadChunkSize <= 0 {
		o.ReadChunkSize = DefaultReadChunkSize
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.SendInterval < 0 {
		o.SendInterval = 0
	} else if o.SendInterval == 0 {
		o.SendInterval = DefaultSendInterval
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Conn is one TCP session to the chat gateway together with its inbound and outbound
// line queues. The reader and writer goroutines start on Connect and stop on Close.
type Conn struct {
	opts Options
	log  *slog.Logger

	mu        sync.Mutex
	sock      net.Conn
	connected bool

	in  *LineQueue
	out *LineQueue

	// closed is written by Close and by the reader when the peer goes away.
	closed    atomic.Bool
	stop      atomic.Bool
	done      chan struct{}
	stopCh    chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewConn returns an unconnected Conn. Lines may be queued with Send before Connect;
// they are written once the writer starts.
func NewConn(opts Options) *Conn {
	opts = opts.withDefaults()
	return &Conn{
		opts:   opts,
		log:    opts.Logger,
		in:     NewLineQueue(),
		out:    NewLineQueue(),
		done:   make(chan struct{}),
		stopCh: make(chan struct{}),
	}
}

// Addr returns host:port of the gateway.
func (c *Conn) Addr() string {
	return net.JoinHostPort(c.opts.Host, strconv.Itoa(c.opts.Port))
}

// Connect dials the gateway and starts the reader and writer goroutines.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return ErrClosed
	}
	if c.connected {
		return ErrAlreadyConnected
	}
	dial := c.opts.Dial
	if dial == nil {
		d := net.Dialer{Timeout: c.opts.DialTimeout}
		dial = d.DialContext
	}
	sock, err := dial(ctx, "tcp", c.Addr())
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnect, c.Addr(), err)
	}
	c.sock = sock
	c.connected = true
	c.log.Info("irc connected", slog.String("addr", c.Addr()), slog.String("component", "irc"))

	c.wg.Add(2)
	go c.readLoop(sock)
	go c.writeLoop(sock)
	return nil
}

// Send normalizes msg to end in exactly one CRLF and appends it to the outbound queue.
func (c *Conn) Send(msg string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.out.Push(Normalize([]byte(msg)))
	telemetry.SetOutboundDepth(c.out.Len())
	return nil
}

// Receive pops the next inbound line, waiting at most timeout. It returns early once the
// connection is closed; lines framed before the close are still returned.
func (c *Conn) Receive(timeout time.Duration) ([]byte, bool) {
	return c.in.Pop(timeout, c.done)
}

// Done is closed once the connection is closed, either by Close or by the peer.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Closed reports whether the connection has been closed.
func (c *Conn) Closed() bool { return c.closed.Load() }

// InboundLen reports the number of framed lines waiting to be processed.
func (c *Conn) InboundLen() int { return c.in.Len() }

// OutboundLen reports the number of lines waiting to be written.
func (c *Conn) OutboundLen() int { return c.out.Len() }

// Close marks the connection closed, closes the socket and waits for the reader and
// writer to exit. Calling Close more than once is a no-op.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.stop.Store(true)
		close(c.stopCh)
		c.markClosed()
		c.mu.Lock()
		sock := c.sock
		c.mu.Unlock()
		if sock != nil {
			if cerr := sock.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
				err = cerr
			}
		}
		c.log.Info("irc connection closed", slog.String("addr", c.Addr()), slog.String("component", "irc"))
	})
	c.wg.Wait()
	return err
}

func (c *Conn) markClosed() {
	c.doneOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})
}
