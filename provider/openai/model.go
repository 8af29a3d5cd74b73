package openai

import (
	"github.com/casualjim/chatstream/provider"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var models = provider.NewRegistry(func(opts ...option.RequestOption) provider.Provider {
	return New(opts...)
})

func GPT4oMini(opts ...option.RequestOption) provider.Model {
	return Model(openai.ChatModelGPT4oMini, opts...)
}

func GPT4o(opts ...option.RequestOption) provider.Model {
	return Model(openai.ChatModelGPT4o, opts...)
}

func O1Mini(opts ...option.RequestOption) provider.Model {
	return Model(openai.ChatModelO1Mini, opts...)
}

// Model returns the shared model for name. The request options of the first
// call configure its provider.
func Model(name string, opts ...option.RequestOption) provider.Model {
	return models.Model(name, opts...)
}
