package main

import (
	"cmp"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/casualjim/chatstream/internal/console"
	"github.com/casualjim/chatstream/messages"
	"github.com/casualjim/chatstream/pkg/natsx"
	"github.com/casualjim/chatstream/pkg/stdx"
	"github.com/casualjim/chatstream/provider"
	"github.com/casualjim/chatstream/relay"
	"github.com/casualjim/chatstream/stream"
	"github.com/spf13/cobra"
)

type chatFlags struct {
	model       string
	system      string
	images      []string
	think       bool
	temperature float64
	maxTokens   int
	json        bool
	relay       string
	markdown    bool
	noSpinner   bool
	debug       bool
}

func newChatCmd(global *globalFlags) *cobra.Command {
	var flags chatFlags

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Stream the answer to a single prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newProvider(global)
			if err != nil {
				return err
			}
			req, err := flags.request(cmd, global.provider, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out, err := console.New(cmd.OutOrStdout(),
				console.WithLabel(req.Model),
				console.WithSpinner(!flags.noSpinner),
				console.WithMarkdown(flags.markdown),
				console.WithDump(flags.debug),
			)
			if err != nil {
				return err
			}

			var handler stream.Handler = out
			if flags.relay != "" {
				nc, err := natsx.NewClient()
				if err != nil {
					return fmt.Errorf("failed to connect to nats: %w", err)
				}
				defer nc.Close()

				broker := stdx.Must1(relay.NewBroker(nc))
				handler = stream.Multi(out, broker.Topic(flags.relay).Publisher())
			}

			if err := p.ChatStream(cmd.Context(), req, handler); err != nil {
				return reported{err}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.model, "model", "m", "", "Model name (defaults per provider)")
	f.StringVarP(&flags.system, "system", "s", "", "System prompt")
	f.StringSliceVar(&flags.images, "image", nil, "Image file to attach, may be repeated")
	f.BoolVar(&flags.think, "think", false, "Ask the model to think and show its reasoning")
	f.Float64Var(&flags.temperature, "temperature", 0, "Sampling temperature")
	f.IntVar(&flags.maxTokens, "max-tokens", 0, "Maximum number of tokens to generate")
	f.BoolVar(&flags.json, "json", false, "Ask for a JSON answer (ollama only)")
	f.StringVar(&flags.relay, "relay", "", "Also publish the stream to this NATS subject")
	f.BoolVar(&flags.markdown, "markdown", false, "Render the final answer as markdown instead of streaming it")
	f.BoolVar(&flags.noSpinner, "no-spinner", false, "Disable the progress spinner")
	f.BoolVar(&flags.debug, "debug", false, "Dump the final response")
	return cmd
}

func (f *chatFlags) request(cmd *cobra.Command, providerName, prompt string) (provider.ChatRequest, error) {
	req := provider.ChatRequest{
		Model: cmp.Or(f.model, defaultModel(providerName)),
		Think: f.think,
	}
	if f.system != "" {
		req.Messages = append(req.Messages, messages.System(f.system))
	}

	images := make([]string, 0, len(f.images))
	for _, path := range f.images {
		data, err := os.ReadFile(path)
		if err != nil {
			return req, fmt.Errorf("failed to read image: %w", err)
		}
		images = append(images, base64.StdEncoding.EncodeToString(data))
	}
	req.Messages = append(req.Messages, messages.User(prompt, images...))

	if cmd.Flags().Changed("temperature") {
		req.Temperature = stdx.Ptr(f.temperature)
	}
	if f.maxTokens > 0 {
		req.MaxTokens = stdx.Ptr(f.maxTokens)
	}
	if f.json {
		req.Format = provider.JSONFormat()
	}
	return req, nil
}
