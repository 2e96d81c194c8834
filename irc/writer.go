package irc

import (
	"bytes"
	"log/slog"
	"net"
	"time"

	"github.com/onnwee/chatbot/telemetry"
)

// Normalize returns msg terminated by exactly one CRLF. Messages already ending in CRLF
// are returned unchanged, so Normalize is idempotent. A lone CR or LF becomes CRLF.
func Normalize(msg []byte) []byte {
	if bytes.HasSuffix(msg, crlf) {
		return msg
	}
	if len(msg) == 1 && (msg[0] == '\r' || msg[0] == '\n') {
		return []byte("\r\n")
	}
	out := make([]byte, 0, len(msg)+len(crlf))
	out = append(out, msg...)
	return append(out, crlf...)
}

// writeLoop drains the outbound queue. It exits only once a stop was requested and the
// connection is closed, so a stop alone never discards queued output on a live socket.
func (c *Conn) writeLoop(sock net.Conn) {
	defer c.wg.Done()

	for !(c.stop.Load() && c.closed.Load()) {
		msg, ok := c.out.Pop(c.opts.PollInterval, c.stopCh)
		if !ok {
			continue
		}
		telemetry.SetOutboundDepth(c.out.Len())
		if c.closed.Load() {
			c.log.Debug("irc tx dropped after close", slog.Int("bytes", len(msg)), slog.String("component", "irc_writer"))
			continue
		}
		if _, err := sock.Write(msg); err != nil {
			c.log.Warn("irc write failed", slog.Any("err", err), slog.String("component", "irc_writer"))
			continue
		}
		telemetry.IncLinesSent()
		c.log.Debug("irc tx", slog.String("line", redact(msg)), slog.String("component", "irc_writer"))
		c.pace()
	}
}

func (c *Conn) pace() {
	if c.opts.SendInterval <= 0 {
		return
	}
	t := time.NewTimer(c.opts.SendInterval)
	defer t.Stop()
	select {
	case <-t.C:
	case <-c.done:
	}
}

// redact hides the credential of a PASS line before it reaches the logs.
func redact(msg []byte) string {
	line := string(bytes.TrimSuffix(msg, crlf))
	if len(line) > 5 && line[:5] == "PASS " {
		return "PASS ***"
	}
	return line
}
