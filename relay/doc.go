// Package relay forwards the callbacks of a stream over NATS.
//
// A Publisher is a stream.Handler that publishes every callback as a JSON
// event on a subject. Subscribe replays the events of one stream into
// another stream.Handler, keeping the single terminal callback guarantee
// on the receiving side.
package relay
