package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/catalog"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/logger"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
)

// Aggregator 汇总平台、品类、洞察与卖家模式，生成市场分析结果
type Aggregator struct {
	provider catalog.Provider
	now      func() time.Time
}

// Option Aggregator 选项
type Option func(*Aggregator)

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator 创建分析器
func NewAggregator(provider catalog.Provider, opts ...Option) *Aggregator {
	a := &Aggregator{provider: provider, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Produce 生成市场分析，数据源失败时返回带兜底数据的错误结果
func (a *Aggregator) Produce(ctx context.Context) (env *model.AnalysisEnvelope) {
	logger.Log.Info("开始生成市场分析...")

	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("市场分析异常: %v", r)
			env = a.failure(fmt.Errorf("%v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return a.failure(err)
	}

	payload, err := a.collect()
	if err != nil {
		logger.Log.Errorf("市场分析失败: %v", err)
		return a.failure(err)
	}

	logger.Log.WithField("platforms", len(payload.TopPlatforms)).
		WithField("categories", len(payload.TrendingCategories)).
		Info("市场分析完成")
	return model.NewAnalysisSuccess(payload, a.now())
}

func (a *Aggregator) collect() (*model.AnalysisPayload, error) {
	platforms, err := a.provider.TopPlatforms()
	if err != nil {
		return nil, fmt.Errorf("top platforms: %w", err)
	}
	categories, err := a.provider.TrendingCategories()
	if err != nil {
		return nil, fmt.Errorf("trending categories: %w", err)
	}
	insights, err := a.provider.MarketInsights()
	if err != nil {
		return nil, fmt.Errorf("market insights: %w", err)
	}
	patterns, err := a.provider.SellerPatterns()
	if err != nil {
		return nil, fmt.Errorf("seller patterns: %w", err)
	}

	return &model.AnalysisPayload{
		TopPlatforms:       platforms,
		TrendingCategories: categories,
		MarketInsights:     insights,
		SellerPatterns:     patterns,
	}, nil
}

func (a *Aggregator) failure(err error) *model.AnalysisEnvelope {
	return model.NewAnalysisFailure(
		model.Fail(model.KindProviderFailure, "%s", err.Error()),
		a.fallback(),
		a.now(),
	)
}

// fallback 兜底数据也取不到时返回 nil
func (a *Aggregator) fallback() (payload *model.AnalysisPayload) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Warnf("兜底数据获取失败: %v", r)
			payload = nil
		}
	}()
	return a.provider.FallbackAnalysis()
}
