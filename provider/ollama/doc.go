// Package ollama streams chat completions from an Ollama server over its
// newline delimited JSON /api/chat endpoint.
package ollama
