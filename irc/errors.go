package irc

import "errors"

var (
	// ErrConnect wraps dial failures. Connect failures are fatal to the session and never retried.
	ErrConnect = errors.New("irc: connect failed")
	// ErrClosed is returned when sending on, or connecting, a closed connection.
	ErrClosed = errors.New("irc: connection closed")
	// ErrAlreadyConnected is returned by a second Connect call.
	ErrAlreadyConnected = errors.New("irc: already connected")
	// ErrMalformedLine reports an inbound line that is not valid UTF-8.
	ErrMalformedLine = errors.New("irc: malformed line")
)
