// Package chat contains the Twitch chat client built on the irc engine.
//
// A Client owns one irc.Conn for one channel and walks a fixed lifecycle:
//
//	Idle -> Connected -> Authenticating -> Running -> Closed
//
// Connect dials the gateway and queues the login handshake (PASS, NICK, CAP REQ for
// membership events, JOIN) without waiting for an acknowledgment. Run pops framed lines,
// answers keepalives itself and dispatches chat messages and joins to the handlers
// registered with OnMessage and OnJoin. Handlers run synchronously on Run's goroutine, so
// a slow handler delays every later line.
//
// A session is single-shot: when the gateway drops the connection Run returns and the
// Client is done. Callers that want to reconnect build a new Client.
package chat
