package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/casualjim/chatstream/provider"
	"github.com/casualjim/chatstream/provider/ollama"
	"github.com/casualjim/chatstream/provider/openai"
	"github.com/openai/openai-go/option"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	provider string
	baseURL  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "chatstream",
		Short: "Stream chat completions from Ollama or OpenAI",
		Long: `chatstream sends a prompt to a chat model and prints the answer as it streams.

Examples:
  chatstream chat "why is the sky blue?"
  chatstream chat --think --model qwen3 "plan a trip"
  chatstream --provider openai chat --model gpt-4o-mini "hello"
  chatstream models`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd.ErrOrStderr(), flags.logLevel)
		},
	}

	root.PersistentFlags().StringVar(&flags.provider, "provider", "ollama", "Backend to talk to: ollama or openai")
	root.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "Override the backend address")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	root.AddCommand(newChatCmd(&flags))
	root.AddCommand(newModelsCmd(&flags))
	root.AddCommand(newWatchCmd())
	return root
}

func setupLogging(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Stamp}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: lvl}),
	))
	return nil
}

func newProvider(flags *globalFlags) (provider.Provider, error) {
	switch strings.ToLower(flags.provider) {
	case "ollama":
		var options []ollama.Option
		if flags.baseURL != "" {
			options = append(options, ollama.WithBaseURL(flags.baseURL))
		}
		return ollama.New(options...)
	case "openai":
		var options []option.RequestOption
		if flags.baseURL != "" {
			options = append(options, option.WithBaseURL(flags.baseURL))
		}
		return openai.New(options...), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", flags.provider)
	}
}

func defaultModel(providerName string) string {
	if strings.EqualFold(providerName, "openai") {
		return "gpt-4o-mini"
	}
	if m := os.Getenv("OLLAMA_MODEL"); m != "" {
		return m
	}
	return "llama3.1"
}
