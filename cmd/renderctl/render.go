package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nyashahama/risk-report-engine/internal/report"
)

func customerCmd(opts *rootOptions) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Render an individual customer report",
		Long: `Render an individual customer report from a request file with the same
shape as the gateway's generate body:

  {"customerId": "...", "customerData": {...}, "charts": {"<key>": "data:image/png;base64,..."}}

Use --in - to read the request from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req report.CustomerRequest
			if err := readJSON(cmd.InOrStdin(), in, &req); err != nil {
				return err
			}
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			doc, err := engine.RenderCustomerRequest(req)
			if err != nil {
				return err
			}
			if doc.Charts.Failed > 0 || len(doc.Charts.Ignored) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "charts: %d placeholder(s), ignored %v\n", doc.Charts.Failed, doc.Charts.Ignored)
			}
			return writeDocument(cmd.OutOrStdout(), opts.outDir, doc)
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Request JSON file, or - for stdin")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}

func bulkCmd(opts *rootOptions) *cobra.Command {
	var req report.BulkRequest

	cmd := &cobra.Command{
		Use:   "bulk [customer-id...]",
		Short: "Render a bulk roll-up listing the given customer ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.CustomerIDs = args
			for i, id := range args {
				if id == "" {
					return fmt.Errorf("customer id %d is empty", i+1)
				}
			}
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			doc, err := engine.RenderBulk(req)
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), opts.outDir, doc)
		},
	}

	cmd.Flags().StringVar(&req.ReportType, "type", "", "Report title")
	cmd.Flags().StringVar(&req.GeneratedBy, "by", "", "Generated-by line")

	return cmd
}

func placeholderCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "placeholder [report-id]",
		Short: "Render the stored-report placeholder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			doc, err := engine.RenderPlaceholder(args[0])
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), opts.outDir, doc)
		},
	}
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

func readJSON(stdin io.Reader, path string, dst any) error {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// writeDocument writes doc into dir. Filenames come from customer names and
// report ids, so anything that is not a plain file name is refused.
func writeDocument(stdout io.Writer, dir string, doc *report.Rendered) error {
	name := doc.Filename
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("refusing to write %q: not a plain file name", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, doc.PDF, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s (%d bytes)\n", path, len(doc.PDF))
	return nil
}
