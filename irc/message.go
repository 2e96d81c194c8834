package irc

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind enumerates the inbound shapes the parser recognizes.
type Kind int

const (
	KindPing Kind = iota + 1
	KindMessage
	KindJoin
	KindPart
)

func (k Kind) String() string {
	switch k {
	case KindPing:
		return "ping"
	case KindMessage:
		return "message"
	case KindJoin:
		return "join"
	case KindPart:
		return "part"
	default:
		return "unknown"
	}
}

// Event is one classified inbound line: Ping, ChatMessage or MembershipEvent.
type Event interface {
	Kind() Kind
}

// Ping is a server keepalive challenge. It is answered by the client, never dispatched.
type Ping struct {
	Challenge string
}

func (Ping) Kind() Kind { return KindPing }

// Pong returns the keepalive reply carrying the identical challenge.
func (p Ping) Pong() string { return "PONG :" + p.Challenge }

// ChatMessage is a PRIVMSG posted to a channel.
type ChatMessage struct {
	Sender  string
	Channel string
	Text    string
}

func (ChatMessage) Kind() Kind { return KindMessage }

func (m ChatMessage) String() string {
	return fmt.Sprintf("%s in %s:%s", m.Sender, m.Channel, m.Text)
}

// MembershipEvent reports a user entering (JOIN) or leaving (PART) a channel.
// Twitch only emits these after the membership capability was requested.
type MembershipEvent struct {
	Channel string
	User    string
	Left    bool
}

func (m MembershipEvent) Kind() Kind {
	if m.Left {
		return KindPart
	}
	return KindJoin
}

// DecodeLine converts a framed line to a string, rejecting invalid UTF-8.
func DecodeLine(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: invalid utf-8 (%d bytes)", ErrMalformedLine, len(raw))
	}
	return string(raw), nil
}

// Command formatting for the outbound grammar.

func PassCommand(token string) string { return "PASS " + token }

func NickCommand(name string) string { return "NICK " + name }

func CapReqCommand(capability string) string { return "CAP REQ :" + capability }

func JoinCommand(channel string) string { return "JOIN " + channel }

func PrivmsgCommand(channel, text string) string { return "PRIVMSG " + channel + " :" + text }

// NormalizeChannel lower-cases a channel name and ensures the leading '#'.
func NormalizeChannel(channel string) string {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel == "" || strings.HasPrefix(channel, "#") {
		return channel
	}
	return "#" + channel
}
