package chat

import "errors"

var (
	// ErrAlreadyStarted is returned by Connect and Run after the session has started.
	ErrAlreadyStarted = errors.New("chat: session already started")
	// ErrNoToken is returned by Connect when the client has no token source.
	ErrNoToken = errors.New("chat: no token source configured")
	// ErrHandlerPanic wraps a panic recovered from an application handler.
	ErrHandlerPanic = errors.New("chat: handler panicked")
)
