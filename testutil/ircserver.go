package testutil

import (
	"bufio"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"
)

// FakeIRCServer is a loopback TCP server that accepts a single client, records every
// line it sends and lets the test push lines back.
type FakeIRCServer struct {
	t        *testing.T
	ln       net.Listener
	lines    chan string
	accepted chan struct{}

	mu   sync.Mutex
	conn net.Conn
}

// NewFakeIRCServer starts listening on 127.0.0.1 with an ephemeral port.
func NewFakeIRCServer(t *testing.T) *FakeIRCServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &FakeIRCServer{
		t:        t,
		ln:       ln,
		lines:    make(chan string, 256),
		accepted: make(chan struct{}),
	}
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

func (s *FakeIRCServer) serve() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	close(s.accepted)

	// ScanLines strips the trailing CR along with the LF.
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		s.lines <- sc.Text()
	}
	close(s.lines)
}

// Host returns the listener host.
func (s *FakeIRCServer) Host() string {
	return s.ln.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listener port.
func (s *FakeIRCServer) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Addr returns host:port.
func (s *FakeIRCServer) Addr() string {
	return net.JoinHostPort(s.Host(), strconv.Itoa(s.Port()))
}

func (s *FakeIRCServer) client() net.Conn {
	s.t.Helper()
	select {
	case <-s.accepted:
	case <-time.After(2 * time.Second):
		s.t.Fatalf("fake irc: no client connected")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// WriteRaw writes b to the client exactly as given.
func (s *FakeIRCServer) WriteRaw(b string) {
	s.t.Helper()
	if _, err := s.client().Write([]byte(b)); err != nil {
		s.t.Fatalf("fake irc: write: %v", err)
	}
}

// Send writes one CRLF-terminated line to the client.
func (s *FakeIRCServer) Send(line string) {
	s.t.Helper()
	s.WriteRaw(line + "\r\n")
}

// NextLine returns the next line the client sent, without its terminator.
func (s *FakeIRCServer) NextLine(timeout time.Duration) (string, bool) {
	select {
	case l, ok := <-s.lines:
		return l, ok
	case <-time.After(timeout):
		return "", false
	}
}

// Expect fails the test unless the next lines from the client equal want, in order.
func (s *FakeIRCServer) Expect(want ...string) {
	s.t.Helper()
	for i, w := range want {
		got, ok := s.NextLine(2 * time.Second)
		if !ok {
			s.t.Fatalf("fake irc: line %d: want %q, got nothing", i, w)
		}
		if got != w {
			s.t.Fatalf("fake irc: line %d: want %q, got %q", i, w, got)
		}
	}
}

// DropClient closes the server side of the client connection.
func (s *FakeIRCServer) DropClient() {
	s.t.Helper()
	_ = s.client().Close()
}

// Close stops the listener and drops any client.
func (s *FakeIRCServer) Close() {
	_ = s.ln.Close()
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.mu.Unlock()
}
