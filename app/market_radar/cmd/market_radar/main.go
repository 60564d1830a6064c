package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/config"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/engine"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/logger"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

const defaultConfigPath = "configs/config.yaml"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "market_radar",
	Short:         "AI-powered digital product market analysis",
	Long:          "Market Radar analyzes digital product marketplaces, predicts next-month trends, renders an HTML report and emails it.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Config file (yaml or toml)")
}

func main() {
	// 存在 .env 时加载
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig 加载配置并初始化日志。显式指定的文件必须存在；
// 未指定且默认文件不存在时只使用环境变量
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.LoadConfig(configPath)
	} else {
		path := configPath
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			path = ""
		}
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, err
	}
	// stdout 留给命令输出
	if err := logger.InitLoggerTo(os.Stderr, cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, fmt.Errorf("无法初始化日志: %w", err)
	}
	return cfg, nil
}

func setup(cmd *cobra.Command) (*config.Config, *engine.Engine, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	e, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, e, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
