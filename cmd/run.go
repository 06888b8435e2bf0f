package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runInput   string
	runSheet   string
	runDataset string
	runResume  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: clean, validate, unify, errors, report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := stageClean(runInput, runSheet); err != nil {
			return err
		}

		summary, err := stageValidate(ctx, runDataset, runResume)
		if err != nil {
			return err
		}
		if summary.Cancelled {
			zap.L().Warn("validation cancelled, unifying what completed",
				zap.String("run_id", summary.RunID))
		}

		if _, err := stageUnify(); err != nil {
			return err
		}
		if _, err := stageErrors(); err != nil {
			return err
		}
		if err := stageReport(); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "survey workbook path (required)")
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "sheet name (default first sheet)")
	runCmd.Flags().StringVar(&runDataset, "dataset", "survey", "dataset label recorded with the run")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "skip batches that already succeeded")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
