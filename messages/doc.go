// Package messages defines the values exchanged with a chat model: the request
// messages sent to it and the final response assembled from its stream.
package messages
