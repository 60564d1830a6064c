package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/logger"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the HTML report without sending it",
	RunE:  runRender,
}

var renderOut string

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output file (default: stdout)")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	_, e, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	html, err := e.Render(e.Predict(ctx, e.Analyze(ctx)))
	if err != nil {
		return err
	}

	if renderOut == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), html)
		return err
	}
	if err := os.WriteFile(renderOut, []byte(html), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logger.Log.Infof("报告已生成: %s", renderOut)
	return nil
}
