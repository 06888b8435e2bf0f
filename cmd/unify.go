package main

import (
	"github.com/spf13/cobra"
)

var unifyCmd = &cobra.Command{
	Use:   "unify",
	Short: "Merge batch results into the flattened and nested views",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := stageUnify()
		return err
	},
}

func init() {
	rootCmd.AddCommand(unifyCmd)
}
