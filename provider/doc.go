/*
Package provider defines what a chat backend has to implement to stream a
completion through the stream package, plus the request model and HTTP
error mapping shared by the backends.

A Provider turns a ChatRequest into stream.Fragment values and feeds them to
a stream.Assembler, so every backend honours the same handler contract:
partial callbacks in order, then exactly one terminal callback.

	err := ollama.MustNew().ChatStream(ctx, provider.ChatRequest{
		Model:    "llama3.1",
		Messages: []messages.Message{messages.User("Why is the sky blue?")},
	}, handler)

Implementations live in the ollama and openai sub packages.
*/
package provider
