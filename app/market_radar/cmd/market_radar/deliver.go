package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
)

var deliverCmd = &cobra.Command{
	Use:   "deliver",
	Short: "Generate predictions and email the report",
	RunE:  runDeliver,
}

var deliverTo string

func init() {
	deliverCmd.Flags().StringVar(&deliverTo, "to", "", "Recipient email (default: TO_EMAIL)")
	rootCmd.AddCommand(deliverCmd)
}

func runDeliver(cmd *cobra.Command, _ []string) error {
	cfg, e, err := setup(cmd)
	if err != nil {
		return err
	}

	to := deliverTo
	if to == "" {
		to = cfg.Delivery.ToEmail
	}
	if to == "" {
		return fmt.Errorf("no recipient: use --to or set TO_EMAIL")
	}

	res := e.SendReport(cmd.Context(), nil, to)
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if res.Status != model.StatusSuccess {
		return fmt.Errorf("delivery failed: %s", res.Error)
	}
	return nil
}
