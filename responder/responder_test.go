package responder

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/chatbot/chat"
	"github.com/onnwee/chatbot/irc"
	"github.com/onnwee/chatbot/testutil"
)

type fakeSayer struct {
	user string
	said []string
	err  error
}

func (f *fakeSayer) Say(text string) error {
	f.said = append(f.said, text)
	return f.err
}

func (f *fakeSayer) Username() string { return f.user }

func TestOnMessage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"exact", "!respond", []string{"Respond to: alice in #demo:!respond"}},
		{"upper case", "!RESPOND", []string{"Respond to: alice in #demo:!RESPOND"}},
		{"trailing space", "!respond ", []string{"Respond to: alice in #demo:!respond "}},
		{"with argument", "!respond now", nil},
		{"other text", "hello", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSayer{user: "bot"}
			OnMessage(s, irc.ChatMessage{Sender: "alice", Channel: "#demo", Text: tt.text})
			if len(s.said) != len(tt.want) {
				t.Fatalf("said = %q, want %q", s.said, tt.want)
			}
			for i := range tt.want {
				if s.said[i] != tt.want[i] {
					t.Errorf("said[%d] = %q, want %q", i, s.said[i], tt.want[i])
				}
			}
		})
	}
}

func TestOnJoin(t *testing.T) {
	s := &fakeSayer{user: "bot"}
	OnJoin(s, "#demo", "bob")
	OnJoin(s, "#demo", "Bot")
	if len(s.said) != 1 || s.said[0] != "Hello @bob, nice to meet you!" {
		t.Fatalf("said = %q", s.said)
	}
}

func TestSayErrorIsNotFatal(t *testing.T) {
	s := &fakeSayer{user: "bot", err: errors.New("closed")}
	OnJoin(s, "#demo", "carol")
	OnMessage(s, irc.ChatMessage{Sender: "carol", Channel: "#demo", Text: "!respond"})
	if len(s.said) != 2 {
		t.Fatalf("said = %q", s.said)
	}
}

func TestRegisterEndToEnd(t *testing.T) {
	srv := testutil.NewFakeIRCServer(t)
	c := chat.NewClient(chat.Config{
		Host:         srv.Host(),
		Port:         srv.Port(),
		Username:     "bot",
		Channel:      "demo",
		Token:        oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "oauth:tok"}),
		PollInterval: 20 * time.Millisecond,
		SendInterval: time.Millisecond,
	})
	Register(c)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()
	defer func() {
		cancel()
		<-errCh
	}()

	srv.Expect("PASS oauth:tok", "NICK bot", "CAP REQ :twitch.tv/membership", "JOIN #demo")
	srv.Send(":bot!bot@bot.tmi.twitch.tv JOIN #demo")
	srv.Send(":bob!bob@bob.tmi.twitch.tv JOIN #demo")
	srv.Send(":alice!alice@alice.tmi.twitch.tv PRIVMSG #demo :!respond")
	srv.Expect(
		"PRIVMSG #demo :Hello @bob, nice to meet you!",
		"PRIVMSG #demo :Respond to: alice in #demo:!respond",
	)
}
