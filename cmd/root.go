package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sondeo-labs/crimeval/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "crimeval",
	Short: "Consistency validation for survey crime narratives",
	Long:  "Cleans recurring boilerplate from victimization-survey narratives, validates each narrative against its reported crime category through an external classifier, and unifies the verdicts into review files.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
