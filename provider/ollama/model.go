package ollama

import "github.com/casualjim/chatstream/provider"

var models = provider.NewRegistry(func(options ...Option) provider.Provider {
	return MustNew(options...)
})

// Llama31 is llama3.1 on the default server.
func Llama31(options ...Option) provider.Model {
	return Model("llama3.1", options...)
}

// Qwen3 is a model with a thinking trace.
func Qwen3(options ...Option) provider.Model {
	return Model("qwen3", options...)
}

// Model returns the registered model for name, registering it with options
// on first use. Later calls return the first registration.
func Model(name string, options ...Option) provider.Model {
	return models.Model(name, options...)
}
