package main

import (
	"fmt"

	"github.com/casualjim/chatstream/internal/console"
	"github.com/casualjim/chatstream/pkg/natsx"
	"github.com/casualjim/chatstream/relay"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "watch [subject]",
		Short: "Print the next stream relayed on a NATS subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nc, err := natsx.NewClient()
			if err != nil {
				return fmt.Errorf("failed to connect to nats: %w", err)
			}
			defer nc.Close()

			broker, err := relay.NewBroker(nc)
			if err != nil {
				return err
			}
			out, err := console.New(cmd.OutOrStdout(), console.WithLabel(args[0]), console.WithMarkdown(markdown))
			if err != nil {
				return err
			}

			sub, err := broker.Topic(args[0]).Subscribe(cmd.Context(), out)
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			<-sub.Done()
			if _, err := out.Result(); err != nil {
				return reported{err}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Render the relayed answer as markdown")
	return cmd
}
