package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/casualjim/chatstream/provider/ollama"
	"github.com/spf13/cobra"
)

func newModelsCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models installed on the Ollama server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := newProvider(global)
			if err != nil {
				return err
			}
			client, ok := p.(*ollama.Client)
			if !ok {
				return fmt.Errorf("listing models is not supported by provider %q", global.provider)
			}

			models, err := client.ListModels(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPARAMETERS\tQUANTIZATION\tSIZE\tMODIFIED")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					m.Name, m.Details.ParameterSize, m.Details.QuantizationLevel, humanSize(m.Size), m.ModifiedAt)
			}
			return tw.Flush()
		},
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
