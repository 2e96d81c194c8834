// Package responder holds the bot's application handlers: it answers the "!respond"
// command and greets users joining the channel.
package responder

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/onnwee/chatbot/chat"
	"github.com/onnwee/chatbot/irc"
)

// Command is the chat command the bot answers.
const Command = "!respond"

// Sayer is the part of chat.Client the handlers write through.
type Sayer interface {
	Say(text string) error
	Username() string
}

// Register attaches OnMessage and OnJoin to c.
func Register(c *chat.Client) {
	c.OnMessage(func(cl *chat.Client, msg irc.ChatMessage) { OnMessage(cl, msg) })
	c.OnJoin(func(cl *chat.Client, channel, user string) { OnJoin(cl, channel, user) })
}

// OnMessage replies to an exact "!respond" (any case) with a description of the message.
func OnMessage(s Sayer, msg irc.ChatMessage) {
	if !strings.EqualFold(strings.TrimSpace(msg.Text), Command) {
		return
	}
	if err := s.Say("Respond to: " + msg.String()); err != nil {
		slog.Warn("respond: reply not queued", slog.String("user", msg.Sender), slog.Any("err", err))
	}
}

// OnJoin greets every user joining the channel except the bot itself.
func OnJoin(s Sayer, channel, user string) {
	if strings.EqualFold(user, s.Username()) {
		slog.Debug("respond: skipping own join", slog.String("channel", channel))
		return
	}
	if err := s.Say(Greeting(user)); err != nil {
		slog.Warn("respond: greeting not queued", slog.String("user", user), slog.Any("err", err))
	}
}

// Greeting returns the welcome line for user.
func Greeting(user string) string {
	return fmt.Sprintf("Hello @%s, nice to meet you!", user)
}
