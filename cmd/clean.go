package main

import (
	"github.com/spf13/cobra"
)

var (
	cleanInput string
	cleanSheet string
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Ingest the survey workbook and strip recurring boilerplate",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stageClean(cleanInput, cleanSheet)
	},
}

func init() {
	cleanCmd.Flags().StringVar(&cleanInput, "input", "", "survey workbook path (required)")
	cleanCmd.Flags().StringVar(&cleanSheet, "sheet", "", "sheet name (default first sheet)")
	_ = cleanCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(cleanCmd)
}
