package main

import (
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the reviewer workbook from the unified outputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stageReport()
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
