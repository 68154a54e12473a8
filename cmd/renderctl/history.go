package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nyashahama/risk-report-engine/internal/store"
)

func historyCmd() *cobra.Command {
	var (
		dsn   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history [subject]",
		Short: "List recorded renders for a customer id, bulk type or report id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return errors.New("no database: set DATABASE_URL or --database-url")
			}
			ctx := cmd.Context()
			pool, err := store.Open(ctx, dsn)
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer pool.Close()
			st := store.New(pool)

			out := cmd.OutOrStdout()
			sum, err := st.SubjectSummary(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintf(out, "No renders recorded for %s.\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %d render(s), last %s\n\n", sum.Subject, sum.RenderCount, sum.LastRenderedAt.Format(time.RFC3339))

			entries, err := st.ListRenders(ctx, args[0], limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tKIND\tFILE\tBYTES\tCHARTS\tREQUESTER")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d/%d\t%s\n",
					e.CreatedAt.Format(time.RFC3339), e.Kind, e.Filename, e.SizeBytes,
					e.ChartsRendered, e.ChartsRendered+e.ChartsFailed, valueOr(e.Requester, "-"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&dsn, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum renders to list")

	return cmd
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
