package main

import (
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print a quick market summary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, e, err := setup(cmd)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), e.Summary(cmd.Context()))
	},
}

var analysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Print the marketplace analysis",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, e, err := setup(cmd)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), e.Analyze(cmd.Context()))
	},
}

var predictionsCmd = &cobra.Command{
	Use:   "predictions",
	Short: "Print next-month trend predictions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, e, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		return printJSON(cmd.OutOrStdout(), e.Predict(ctx, e.Analyze(ctx)))
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd, analysisCmd, predictionsCmd)
}
