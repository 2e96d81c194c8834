package irc

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/onnwee/chatbot/telemetry"
)

var crlf = []byte("\r\n")

// readLoop frames the inbound stream until the peer closes, a read fails or Close runs.
func (c *Conn) readLoop(sock net.Conn) {
	defer c.wg.Done()
	defer c.markClosed()

	chunk := make([]byte, c.opts.ReadChunkSize)
	var buf []byte
	for !c.closed.Load() {
		n, err := sock.Read(chunk)
		if n > 0 {
			var lines [][]byte
			lines, buf = splitLines(append(buf, chunk[:n]...))
			for _, line := range lines {
				c.log.Debug("irc rx", slog.String("line", string(line)), slog.String("component", "irc_reader"))
				c.in.Push(line)
				telemetry.IncLinesReceived()
			}
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				c.log.Info("irc peer closed connection", slog.String("component", "irc_reader"))
			case errors.Is(err, net.ErrClosed) || c.closed.Load():
			default:
				c.log.Warn("irc read failed", slog.Any("err", err), slog.String("component", "irc_reader"))
			}
			return
		}
		if n == 0 {
			return
		}
	}
}

// splitLines cuts buf on CRLF. Every terminated segment is returned as a line; the
// trailing segment, possibly empty, is returned as rest and must be carried into the next
// read.
func splitLines(buf []byte) (lines [][]byte, rest []byte) {
	parts := bytes.Split(buf, crlf)
	last := parts[len(parts)-1]
	return parts[:len(parts)-1], append([]byte(nil), last...)
}
