package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	validateDataset string
	validateResume  bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Submit the cleaned corpus to the classifier in batches",
	Long:  "Partitions the cleaned corpus into fixed-size batches and validates each against the external classifier. Results are persisted per batch before the next one starts; SIGINT stops the run at the next batch boundary. With --resume, batches that already succeeded are skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		summary, err := stageValidate(ctx, validateDataset, validateResume)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateDataset, "dataset", "survey", "dataset label recorded with the run")
	validateCmd.Flags().BoolVar(&validateResume, "resume", false, "skip batches that already succeeded")
	rootCmd.AddCommand(validateCmd)
}
