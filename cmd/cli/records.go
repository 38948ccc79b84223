package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/ci-warden/internal/util"
)

var outputJSON bool

var recordsCmd = &cobra.Command{
	Use:   "records <sha>...",
	Short: "Shows the stored test records for one or more commits",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := initializeApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		recs, err := app.Store.LoadRecords(ctx, args)
		if err != nil {
			return fmt.Errorf("failed to retrieve records: %w", err)
		}

		if outputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(recs)
		}

		if len(recs) == 0 {
			warnColor.Println("No test records found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "COMMIT\tSTATUS\tCOVERAGE\tDESCRIPTION\tUPDATED")
		for _, rec := range recs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				util.ShortID(rec.Commit, 0),
				statusColor(rec.Status).Sprint(rec.Status),
				formatCoverage(rec.Coverage),
				rec.Description,
				rec.UpdatedAt.Format(time.RFC822),
			)
		}
		if missing := len(args) - len(recs); missing > 0 {
			fmt.Fprintf(w, "\n%d commit(s) have no record\n", missing)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	recordsCmd.Flags().BoolVar(&outputJSON, "json", false, "Output records as JSON")
	rootCmd.AddCommand(recordsCmd)
}
