package irc

import (
	"errors"
	"testing"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

func TestParseChatMessage(t *testing.T) {
	ev := Parse(":alice!alice@alice.tmi.twitch.tv PRIVMSG #demo :hello there")
	msg, ok := ev.(ChatMessage)
	if !ok {
		t.Fatalf("Parse() = %#v, want ChatMessage", ev)
	}
	want := ChatMessage{Sender: "alice", Channel: "#demo", Text: "hello there"}
	if msg != want {
		t.Errorf("Parse() = %+v, want %+v", msg, want)
	}
}

func TestParseJoin(t *testing.T) {
	ev := Parse(":bob!bob@bob.tmi.twitch.tv JOIN #demo")
	m, ok := ev.(MembershipEvent)
	if !ok {
		t.Fatalf("Parse() = %#v, want MembershipEvent", ev)
	}
	if m.Channel != "#demo" || m.User != "bob" || m.Left {
		t.Errorf("Parse() = %+v", m)
	}
	if m.Kind() != KindJoin {
		t.Errorf("Kind() = %v, want join", m.Kind())
	}
}

func TestParsePartIsRecognizedAsLeave(t *testing.T) {
	ev := Parse(":bob!bob@bob.tmi.twitch.tv PART #demo")
	if ev == nil || ev.Kind() != KindPart {
		t.Fatalf("Parse() = %#v, want part event", ev)
	}
}

func TestParsePing(t *testing.T) {
	ev := Parse("PING :tmi.twitch.tv")
	p, ok := ev.(Ping)
	if !ok {
		t.Fatalf("Parse() = %#v, want Ping", ev)
	}
	if got := p.Pong(); got != "PONG :tmi.twitch.tv" {
		t.Errorf("Pong() = %q, want PONG :tmi.twitch.tv", got)
	}
}

func TestParseTable(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Event
	}{
		{"empty text", ":alice!alice@alice.tmi.twitch.tv PRIVMSG #demo :", ChatMessage{"alice", "#demo", ""}},
		{"text with colon and spaces", ":a!a@a.tmi.twitch.tv PRIVMSG #demo :x :y  z", ChatMessage{"a", "#demo", "x :y  z"}},
		{"other host suffix", ":a!a@a.example.org PRIVMSG #demo :hi", ChatMessage{"a", "#demo", "hi"}},
		{"join with trailing channel", ":bob!bob@bob.tmi.twitch.tv JOIN :#demo", MembershipEvent{Channel: "#demo", User: "bob"}},
		{"mismatched names", ":alice!mallory@alice.tmi.twitch.tv PRIVMSG #demo :hi", nil},
		{"host not derived from name", ":alice!alice@tmi.twitch.tv PRIVMSG #demo :hi", nil},
		{"server numeric", ":tmi.twitch.tv 001 bot :Welcome, GLHF!", nil},
		{"cap ack", ":tmi.twitch.tv CAP * ACK :twitch.tv/membership", nil},
		{"channel without hash", ":a!a@a.tmi.twitch.tv PRIVMSG demo :hi", nil},
		{"privmsg without trailing", ":a!a@a.tmi.twitch.tv PRIVMSG #demo hi", nil},
		{"tagged line", "@badges=;color= :a!a@a.tmi.twitch.tv PRIVMSG #demo :hi", nil},
		{"no prefix", "PRIVMSG #demo :hi", nil},
		{"blank", "", nil},
		{"prefix only", ":a!a@a.tmi.twitch.tv", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.line); got != tt.want {
				t.Errorf("Parse(%q) = %#v, want %#v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParsePingWinsOverOtherShapes(t *testing.T) {
	ev := Parse("PING :alice!alice@alice.tmi.twitch.tv PRIVMSG #demo :x")
	if _, ok := ev.(Ping); !ok {
		t.Fatalf("Parse() = %#v, want Ping", ev)
	}
}

func TestTokenize(t *testing.T) {
	l, ok := Tokenize("@a=b :nick!user@host PRIVMSG #chan :hello world")
	if !ok {
		t.Fatal("Tokenize() failed")
	}
	if l.Tags != "a=b" || l.Prefix != "nick!user@host" || l.Command != "PRIVMSG" {
		t.Errorf("Tokenize() = %+v", l)
	}
	if len(l.Params) != 2 || l.Params[0] != "#chan" || l.Trailing() != "hello world" {
		t.Errorf("params = %q", l.Params)
	}
}

func TestDecodeLine(t *testing.T) {
	if s, err := DecodeLine([]byte("héllo")); err != nil || s != "héllo" {
		t.Errorf("DecodeLine(valid) = %q, %v", s, err)
	}
	if _, err := DecodeLine([]byte{0xff, 0xfe, 'a'}); !errors.Is(err, ErrMalformedLine) {
		t.Errorf("DecodeLine(invalid) error = %v, want ErrMalformedLine", err)
	}
}

func TestNormalizeChannel(t *testing.T) {
	tests := map[string]string{"Demo": "#demo", "#Demo": "#demo", " demo ": "#demo", "": ""}
	for in, want := range tests {
		if got := NormalizeChannel(in); got != want {
			t.Errorf("NormalizeChannel(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestParseAgreesWithTwitchIRC cross-checks classification against the go-twitch-irc parser.
func TestParseAgreesWithTwitchIRC(t *testing.T) {
	lines := []string{
		"PING :tmi.twitch.tv",
		":alice!alice@alice.tmi.twitch.tv PRIVMSG #demo :hello there",
		":alice!alice@alice.tmi.twitch.tv PRIVMSG #demo :!respond",
		":bob!bob@bob.tmi.twitch.tv JOIN #demo",
		":bob!bob@bob.tmi.twitch.tv PART #demo",
	}
	want := map[Kind]twitch.MessageType{
		KindPing:    twitch.PING,
		KindMessage: twitch.PRIVMSG,
		KindJoin:    twitch.JOIN,
		KindPart:    twitch.PART,
	}
	for _, line := range lines {
		ev := Parse(line)
		if ev == nil {
			t.Errorf("Parse(%q) = nil", line)
			continue
		}
		ref := twitch.ParseMessage(line)
		if ref.GetType() != want[ev.Kind()] {
			t.Errorf("%q: kind %v, go-twitch-irc type %v", line, ev.Kind(), ref.GetType())
		}
	}
}
