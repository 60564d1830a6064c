package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/engine"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/logger"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the complete analysis pipeline",
	Long:  "Analyzes marketplaces, generates predictions, then renders and emails the report to the configured recipient (skipped when none is configured).",
	RunE:  runPipeline,
}

var runRecipient string

func init() {
	runCmd.Flags().StringVar(&runRecipient, "to", "", "Recipient email (overrides TO_EMAIL)")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	_, e, err := setup(cmd)
	if err != nil {
		return err
	}

	res := e.RunWith(cmd.Context(), engine.RunOptions{
		Recipient: runRecipient,
		ProgressCallback: func(status string, progress int) {
			logger.Log.WithField("progress", progress).Debug(status)
		},
	})
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if res.Status != model.StatusSuccess {
		return fmt.Errorf("pipeline failed: %s", res.Error)
	}
	return nil
}
