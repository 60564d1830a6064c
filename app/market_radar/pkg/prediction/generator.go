package prediction

import (
	"context"
	"fmt"
	"time"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/catalog"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/logger"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
)

// Generator 生成目标月份的趋势预测
type Generator struct {
	provider catalog.Provider
	now      func() time.Time
}

// Option Generator 选项
type Option func(*Generator)

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator 创建预测生成器
func NewGenerator(provider catalog.Provider, opts ...Option) *Generator {
	g := &Generator{provider: provider, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Produce 生成趋势预测。analysis 仅用于记录来源，不影响预测内容
func (g *Generator) Produce(ctx context.Context, analysis *model.AnalysisEnvelope) (env *model.PredictionEnvelope) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("趋势预测异常: %v", r)
			env = g.failure(fmt.Errorf("%v", r))
		}
	}()

	entry := logger.Log.WithField("target", g.provider.TargetPeriod())
	if analysis != nil {
		entry = entry.WithField("analysis_status", analysis.Status)
	}
	entry.Info("开始生成趋势预测...")

	if err := ctx.Err(); err != nil {
		return g.failure(err)
	}

	payload, err := g.provider.Predictions()
	if err != nil {
		logger.Log.Errorf("趋势预测失败: %v", err)
		return g.failure(fmt.Errorf("predictions: %w", err))
	}
	confidence, err := g.provider.Confidence()
	if err != nil {
		logger.Log.Errorf("置信度获取失败: %v", err)
		return g.failure(fmt.Errorf("confidence: %w", err))
	}

	logger.Log.WithField("hot_categories", len(payload.HotCategories)).Info("趋势预测完成")
	return model.NewPredictionSuccess(payload, confidence, g.provider.TargetPeriod(), g.provider.ModelIdentifier(), g.now())
}

// failure 在 recover 分支中也会被调用，数据源的每次调用都单独兜底
func (g *Generator) failure(err error) *model.PredictionEnvelope {
	return model.NewPredictionFailure(
		model.Fail(model.KindProviderFailure, "%s", err.Error()),
		safe(g.provider.FallbackPredictions),
		safe(g.provider.TargetPeriod),
		safe(g.provider.ModelIdentifier),
		g.now(),
	)
}

// safe 调用 fn，发生 panic 时返回零值
func safe[T any](fn func() T) (v T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Warnf("兜底数据获取失败: %v", r)
		}
	}()
	return fn()
}
