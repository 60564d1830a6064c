package main

import (
	"github.com/spf13/cobra"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/logger"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/mcpserver"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/registry"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analysis tools over MCP stdio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, e, err := setup(cmd)
		if err != nil {
			return err
		}
		logger.Log.Info("MCP 服务启动 (stdio)")
		return mcpserver.Serve(mcpserver.New(registry.NewMarketRegistry(e), Version))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
