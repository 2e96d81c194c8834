package irc

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"foo", "foo\r\n"},
		{"", "\r\n"},
		{"x\r\n", "x\r\n"},
		{"\r\n", "\r\n"},
		{"\r", "\r\n"},
		{"\n", "\r\n"},
		{"a\r", "a\r\r\n"},
		{"PRIVMSG #demo :hi", "PRIVMSG #demo :hi\r\n"},
	}
	for _, tt := range tests {
		got := string(Normalize([]byte(tt.in)))
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := string(Normalize([]byte(got))); again != got {
			t.Errorf("Normalize not idempotent for %q: %q -> %q", tt.in, got, again)
		}
	}
}

// stampConn records when each Write starts.
type stampConn struct {
	net.Conn
	mu     sync.Mutex
	stamps []time.Time
}

func (s *stampConn) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.stamps = append(s.stamps, time.Now())
	s.mu.Unlock()
	return s.Conn.Write(p)
}

func TestSendWritesInOrderWithPacing(t *testing.T) {
	const interval = 40 * time.Millisecond
	const k = 4
	client, server := net.Pipe()
	sc := &stampConn{Conn: client}
	c := NewConn(Options{
		SendInterval: interval,
		PollInterval: 20 * time.Millisecond,
		Dial:         func(context.Context, string, string) (net.Conn, error) { return sc, nil },
	})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() {
		_ = server.Close()
		_ = c.Close()
	})

	for i := 0; i < k; i++ {
		if err := c.Send("PRIVMSG #demo :" + strings.Repeat("x", i)); err != nil {
			t.Fatalf("Send() error: %v", err)
		}
	}

	r := bufio.NewReader(server)
	for i := 0; i < k; i++ {
		_ = server.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read line %d: %v", i, err)
		}
		want := "PRIVMSG #demo :" + strings.Repeat("x", i) + "\r\n"
		if line != want {
			t.Errorf("line %d = %q, want %q", i, line, want)
		}
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if len(sc.stamps) != k {
		t.Fatalf("got %d writes, want %d", len(sc.stamps), k)
	}
	for i := 1; i < k; i++ {
		if gap := sc.stamps[i].Sub(sc.stamps[i-1]); gap < interval {
			t.Errorf("write %d started %v after write %d, want >= %v", i, gap, i-1, interval)
		}
	}
	if total := sc.stamps[k-1].Sub(sc.stamps[0]); total < interval*(k-1) {
		t.Errorf("%d writes spanned %v, want >= %v", k, total, interval*(k-1))
	}
}

func TestSendAfterClose(t *testing.T) {
	c, _ := pipeConn(t, Options{})
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := c.Send("PRIVMSG #demo :late"); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after close = %v, want ErrClosed", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	c, _ := pipeConn(t, Options{})
	if err := c.Close(); err != nil {
		t.Fatalf("first Close() error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if !c.Closed() {
		t.Error("Closed() = false after Close")
	}
	if err := c.Connect(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Connect() after close = %v, want ErrClosed", err)
	}
}

func TestCloseUnconnected(t *testing.T) {
	c := NewConn(Options{})
	if err := c.Close(); err != nil {
		t.Fatalf("Close() on unconnected conn: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() on unconnected conn: %v", err)
	}
}

func TestConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	_ = ln.Close()

	c := NewConn(Options{Host: "127.0.0.1", Port: addr.Port, DialTimeout: time.Second})
	err = c.Connect(context.Background())
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("Connect() = %v, want ErrConnect", err)
	}
}

func TestRedact(t *testing.T) {
	if got := redact([]byte("PASS oauth:secret\r\n")); got != "PASS ***" {
		t.Errorf("redact(PASS) = %q", got)
	}
	if got := redact([]byte("NICK bot\r\n")); got != "NICK bot" {
		t.Errorf("redact(NICK) = %q", got)
	}
}
