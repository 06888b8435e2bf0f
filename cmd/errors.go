package main

import (
	"github.com/spf13/cobra"
)

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Extract mismatches, classifier errors and coverage gaps",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := stageErrors()
		return err
	},
}

func init() {
	rootCmd.AddCommand(errorsCmd)
}
