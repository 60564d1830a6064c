package server

import (
	"errors"
	"os"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/market_radar/app/display/internal/conf"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/config"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/engine"
	mrLogger "github.com/iWorld-y/market_radar/app/market_radar/pkg/logger"
)

// NewRadarEngine 初始化 market_radar 引擎
func NewRadarEngine(c *conf.Radar, logger log.Logger) (*engine.Engine, func(), error) {
	if c == nil {
		return nil, nil, errors.New("radar config is missing")
	}

	cfg := RadarConfig(c)
	cfg.ApplyEnv(os.LookupEnv)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	// 初始化日志
	if err := mrLogger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.NewHelper(logger).Errorf("Failed to init market_radar logger: %v", err)
		_ = mrLogger.InitLogger("info", "") // 降级处理
	}

	// 初始化核心引擎
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		log.NewHelper(logger).Errorf("Failed to init engine: %v", err)
		return nil, nil, err
	}

	cleanup := func() {
		log.NewHelper(logger).Info("Cleaning up market_radar engine")
	}

	return eng, cleanup, nil
}

// RadarConfig 将 internal/conf.Radar 转换为 pkg/config.Config，未配置的段保持零值
func RadarConfig(c *conf.Radar) *config.Config {
	cfg := &config.Config{CatalogPath: c.CatalogPath}

	if p := c.Provider; p != nil {
		cfg.Provider = config.ProviderConfig{Project: p.Project, Location: p.Location}
	}
	if l := c.Llm; l != nil {
		cfg.LLM = config.LLMConfig{BaseURL: l.BaseUrl, APIKey: l.ApiKey, Model: l.Model}
	}
	if d := c.Delivery; d != nil {
		cfg.Delivery = config.DeliveryConfig{
			Provider:  d.Provider,
			APIKey:    d.ApiKey,
			FromEmail: d.FromEmail,
			FromName:  d.FromName,
			ToEmail:   d.ToEmail,
			Subject:   d.Subject,
			OutputDir: d.OutputDir,
		}
		if s := d.Smtp; s != nil {
			cfg.Delivery.SMTP = config.SMTPConfig{Host: s.Host, Port: int(s.Port), Username: s.Username}
		}
	}
	if r := c.Report; r != nil {
		cfg.Report.Limits = config.LimitsConfig{
			HotCategories:         int(r.HotCategories),
			TechnologyPredictions: int(r.TechnologyPredictions),
			OpportunityAreas:      int(r.OpportunityAreas),
			SuccessStrategies:     int(r.SuccessStrategies),
		}
	}
	if l := c.Log; l != nil {
		cfg.Log = config.LogConfig{Level: l.Level, File: l.File}
	}
	if cc := c.Concurrency; cc != nil {
		cfg.Concurrency = config.ConcurrencyConfig{QPS: int(cc.Qps), RPM: int(cc.Rpm)}
	}
	return cfg
}
