package irc

import "strings"

// Line is the tokenized form of one protocol line:
//
//	[@tags] [:prefix] COMMAND [param ...] [:trailing]
type Line struct {
	Tags        string
	Prefix      string
	Command     string
	Params      []string
	HasTrailing bool
}

// Trailing returns the last parameter when it was written in trailing (':') form.
func (l Line) Trailing() string {
	if !l.HasTrailing || len(l.Params) == 0 {
		return ""
	}
	return l.Params[len(l.Params)-1]
}

// Tokenize splits a line into tags, prefix, command and parameters. ok is false for
// lines without a command.
func Tokenize(raw string) (l Line, ok bool) {
	rest := raw
	if strings.HasPrefix(rest, "@") {
		l.Tags, rest, _ = strings.Cut(rest[1:], " ")
	}
	if strings.HasPrefix(rest, ":") {
		l.Prefix, rest, _ = strings.Cut(rest[1:], " ")
	}
	rest = strings.TrimLeft(rest, " ")
	l.Command, rest, _ = strings.Cut(rest, " ")
	if l.Command == "" {
		return Line{}, false
	}
	for rest != "" {
		if strings.HasPrefix(rest, ":") {
			l.Params = append(l.Params, rest[1:])
			l.HasTrailing = true
			break
		}
		var param string
		param, rest, _ = strings.Cut(rest, " ")
		if param != "" {
			l.Params = append(l.Params, param)
		}
	}
	return l, true
}

// Parse classifies one decoded line. Checks run in a fixed order: keepalive, chat
// message, membership. A nil result means the line is not one the client acts on.
func Parse(raw string) Event {
	l, ok := Tokenize(raw)
	if !ok {
		return nil
	}
	if l.Command == "PING" {
		challenge := ""
		if len(l.Params) > 0 {
			challenge = l.Params[len(l.Params)-1]
		}
		return Ping{Challenge: challenge}
	}
	user, ok := twitchUser(l.Prefix)
	if !ok || l.Tags != "" {
		return nil
	}
	switch l.Command {
	case "PRIVMSG":
		if len(l.Params) != 2 || !l.HasTrailing || !isChannel(l.Params[0]) {
			return nil
		}
		return ChatMessage{Sender: user, Channel: l.Params[0], Text: l.Trailing()}
	case "JOIN", "PART":
		if len(l.Params) == 0 || !isChannel(l.Params[0]) {
			return nil
		}
		return MembershipEvent{Channel: l.Params[0], User: user, Left: l.Command == "PART"}
	}
	return nil
}

// twitchUser validates a Twitch user prefix, name!name@name.<suffix>, and returns the name.
func twitchUser(prefix string) (string, bool) {
	nick, rest, ok := strings.Cut(prefix, "!")
	if !ok || nick == "" {
		return "", false
	}
	user, host, ok := strings.Cut(rest, "@")
	if !ok || user != nick {
		return "", false
	}
	suffix, ok := strings.CutPrefix(host, nick+".")
	if !ok || suffix == "" {
		return "", false
	}
	return nick, true
}

func isChannel(s string) bool {
	return strings.HasPrefix(s, "#") && !strings.ContainsAny(s, " \t")
}
