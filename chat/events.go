package chat

import (
	"errors"
	"fmt"
	"sync"

	"github.com/onnwee/chatbot/irc"
)

// ErrUnknownEventKind is returned when registering a kind the client cannot dispatch.
var ErrUnknownEventKind = errors.New("chat: unknown event kind")

// EventKind enumerates the events delivered to application handlers.
type EventKind int

const (
	EventMessage EventKind = iota + 1
	EventJoin
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventJoin:
		return "join"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// MessageHandler receives every chat message posted to the channel.
type MessageHandler func(c *Client, msg irc.ChatMessage)

// JoinHandler receives every user that joins the channel.
type JoinHandler func(c *Client, channel, user string)

// Registry maps each event kind to its handlers in registration order.
type Registry struct {
	mu      sync.RWMutex
	kinds   map[EventKind]struct{}
	message []MessageHandler
	join    []JoinHandler
}

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[EventKind]struct{})}
}

// RegisterEventKind declares kind as dispatchable. Registering twice is a no-op.
func (r *Registry) RegisterEventKind(kind EventKind) error {
	switch kind {
	case EventMessage, EventJoin:
	default:
		return fmt.Errorf("%w: %v", ErrUnknownEventKind, kind)
	}
	r.mu.Lock()
	r.kinds[kind] = struct{}{}
	r.mu.Unlock()
	return nil
}

// Registered reports whether kind was declared, explicitly or by adding a handler.
func (r *Registry) Registered(kind EventKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.kinds[kind]
	return ok
}

// OnMessage appends h to the message handlers.
func (r *Registry) OnMessage(h MessageHandler) {
	r.mu.Lock()
	r.kinds[EventMessage] = struct{}{}
	r.message = append(r.message, h)
	r.mu.Unlock()
}

// OnJoin appends h to the join handlers.
func (r *Registry) OnJoin(h JoinHandler) {
	r.mu.Lock()
	r.kinds[EventJoin] = struct{}{}
	r.join = append(r.join, h)
	r.mu.Unlock()
}

// Len returns the number of handlers registered for kind.
func (r *Registry) Len(kind EventKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch kind {
	case EventMessage:
		return len(r.message)
	case EventJoin:
		return len(r.join)
	}
	return 0
}

// DispatchMessage calls every message handler in order and returns how many ran.
// Handlers are invoked outside the lock so they may register further handlers; those
// take effect from the next dispatch.
func (r *Registry) DispatchMessage(c *Client, msg irc.ChatMessage) int {
	r.mu.RLock()
	hs := r.message
	r.mu.RUnlock()
	for _, h := range hs {
		h(c, msg)
	}
	return len(hs)
}

// DispatchJoin calls every join handler in order and returns how many ran.
func (r *Registry) DispatchJoin(c *Client, ev irc.MembershipEvent) int {
	r.mu.RLock()
	hs := r.join
	r.mu.RUnlock()
	for _, h := range hs {
		h(c, ev.Channel, ev.User)
	}
	return len(hs)
}
