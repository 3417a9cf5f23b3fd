package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hazz-dev/reachprobe/internal/storage"
)

type statusStore interface {
	AllLatest(ctx context.Context) ([]storage.Result, error)
}

func executeStatus(cmd *cobra.Command, db statusStore) error {
	out := cmd.OutOrStdout()
	results, err := db.AllLatest(context.Background())
	if err != nil {
		return fmt.Errorf("querying status: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No run history. Run 'reachprobe serve' or 'reachprobe exec' with storage.path set first.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTROL\tEXAMPLE\tSTATUS\tDURATION\tLAST RUN\tERROR")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Control,
			r.Subject+" "+r.Example,
			r.Status,
			(time.Duration(r.DurationMs) * time.Millisecond).String(),
			humanize.Time(r.StartedAt),
			r.Error,
		)
	}
	w.Flush()
	return nil
}
