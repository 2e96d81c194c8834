package chat

import (
	"errors"
	"testing"

	"github.com/onnwee/chatbot/irc"
)

func TestRegisterEventKind(t *testing.T) {
	r := NewRegistry()
	if r.Registered(EventMessage) {
		t.Fatalf("message registered before any call")
	}
	for i := 0; i < 2; i++ {
		if err := r.RegisterEventKind(EventMessage); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if !r.Registered(EventMessage) {
		t.Fatalf("message not registered")
	}
	if r.Len(EventMessage) != 0 {
		t.Fatalf("registering a kind must not add handlers")
	}
	if err := r.RegisterEventKind(EventKind(42)); !errors.Is(err, ErrUnknownEventKind) {
		t.Fatalf("err = %v, want ErrUnknownEventKind", err)
	}
}

func TestOnJoinRegistersKind(t *testing.T) {
	r := NewRegistry()
	r.OnJoin(func(*Client, string, string) {})
	if !r.Registered(EventJoin) {
		t.Fatalf("join not registered by OnJoin")
	}
	if r.Len(EventJoin) != 1 {
		t.Fatalf("len = %d", r.Len(EventJoin))
	}
}

func TestDispatchWithoutHandlers(t *testing.T) {
	r := NewRegistry()
	if n := r.DispatchMessage(nil, irc.ChatMessage{Text: "x"}); n != 0 {
		t.Fatalf("n = %d", n)
	}
	if n := r.DispatchJoin(nil, irc.MembershipEvent{Channel: "#c", User: "u"}); n != 0 {
		t.Fatalf("n = %d", n)
	}
}

func TestDispatchFanOut(t *testing.T) {
	r := NewRegistry()
	var calls []string
	r.OnJoin(func(_ *Client, channel, user string) { calls = append(calls, "a:"+channel+":"+user) })
	r.OnJoin(func(_ *Client, channel, user string) { calls = append(calls, "b:"+channel+":"+user) })

	n := r.DispatchJoin(nil, irc.MembershipEvent{Channel: "#c", User: "u"})
	if n != 2 {
		t.Fatalf("n = %d", n)
	}
	if len(calls) != 2 || calls[0] != "a:#c:u" || calls[1] != "b:#c:u" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestHandlerAddedDuringDispatchRunsNextTime(t *testing.T) {
	r := NewRegistry()
	var late int
	r.OnMessage(func(*Client, irc.ChatMessage) {
		r.OnMessage(func(*Client, irc.ChatMessage) { late++ })
	})
	if n := r.DispatchMessage(nil, irc.ChatMessage{}); n != 1 {
		t.Fatalf("first dispatch ran %d handlers", n)
	}
	if late != 0 {
		t.Fatalf("late handler ran during the dispatch that added it")
	}
	r.DispatchMessage(nil, irc.ChatMessage{})
	if late != 1 {
		t.Fatalf("late = %d", late)
	}
}

func TestStateString(t *testing.T) {
	want := map[State]string{
		StateIdle:           "idle",
		StateConnected:      "connected",
		StateAuthenticating: "authenticating",
		StateRunning:        "running",
		StateClosed:         "closed",
	}
	for s, w := range want {
		if s.String() != w {
			t.Errorf("%d.String() = %q, want %q", int32(s), s.String(), w)
		}
	}
	if EventMessage.String() != "message" || EventJoin.String() != "join" {
		t.Errorf("event kind strings wrong")
	}
}
