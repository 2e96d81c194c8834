// Package irc implements the transport and protocol engine for Twitch's IRC chat gateway.
//
// A Conn owns one TCP socket and two unbounded line queues. Two goroutines run for the
// life of the connection:
//   - the reader frames the inbound byte stream on CRLF and pushes complete lines,
//     in wire order, onto the inbound queue;
//   - the writer pops normalized lines from the outbound queue and writes them, pausing
//     SendInterval after every write so the server's send quota (100 messages per 30s)
//     is never exceeded.
//
// Parse classifies one decoded line into a typed Event (Ping, ChatMessage or
// MembershipEvent). Lines that match none of the known shapes yield nil.
//
// Both queues are unbounded. There is no backpressure: a consumer that falls behind grows
// memory without limit. Chat volume for a single channel is small enough for this to hold.
package irc
