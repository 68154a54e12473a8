// Command renderctl renders risk reports from the command line and inspects
// the render log. It uses the same engine as the HTTP gateway, without the
// render pool or authentication.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nyashahama/risk-report-engine/internal/narrative"
	"github.com/nyashahama/risk-report-engine/internal/report"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// rootOptions are the persistent flags shared by the render subcommands.
type rootOptions struct {
	narrativeConfig string
	platform        string
	outDir          string
}

func (o *rootOptions) engine() (*report.Engine, error) {
	params, err := narrative.LoadParams(o.narrativeConfig)
	if err != nil {
		return nil, err
	}
	return report.New(report.WithParams(params), report.WithPlatformName(o.platform)), nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "renderctl",
		Short:         "Render customer risk reports to PDF",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.narrativeConfig, "narrative-config", os.Getenv("NARRATIVE_CONFIG"), "YAML narrative parameter file")
	cmd.PersistentFlags().StringVar(&opts.platform, "platform", report.DefaultPlatformName, "Platform name printed in the report footer")
	cmd.PersistentFlags().StringVarP(&opts.outDir, "out", "o", ".", "Directory the PDF is written to")

	cmd.AddCommand(customerCmd(opts))
	cmd.AddCommand(bulkCmd(opts))
	cmd.AddCommand(placeholderCmd(opts))
	cmd.AddCommand(historyCmd())

	return cmd
}
