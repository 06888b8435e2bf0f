package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sondeo-labs/crimeval/internal/model"
	"github.com/sondeo-labs/crimeval/internal/store"
)

// statusReport is the operator view of the batch-state registry.
type statusReport struct {
	Runs          []store.Run        `json:"runs"`
	FailedBatches []store.BatchState `json:"failed_batches"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent runs and batches needing attention",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := collectStatus(ctx, st)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func collectStatus(ctx context.Context, st store.Store) (*statusReport, error) {
	runs, err := st.ListRuns(ctx, 20)
	if err != nil {
		return nil, err
	}
	failed, err := st.ListBatches(ctx, store.BatchFilter{Status: model.BatchStatusFailed})
	if err != nil {
		return nil, err
	}
	return &statusReport{Runs: runs, FailedBatches: failed}, nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
