package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	// Ensure API keys and server addresses are loaded
	_ "github.com/joho/godotenv/autoload"
)

// version is set at build time via -ldflags.
var version = "dev"

// reported marks an error the console handler already printed.
type reported struct{ error }

func (r reported) Unwrap() error { return r.error }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.As(err, new(reported)) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
