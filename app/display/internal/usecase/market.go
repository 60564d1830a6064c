package usecase

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/engine"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/registry"
)

// MarketEngine 展示服务依赖的引擎能力
type MarketEngine interface {
	registry.MarketEngine
	RunWith(ctx context.Context, opts engine.RunOptions) *model.PipelineResult
	Render(env *model.PredictionEnvelope) (string, error)
}

// MarketUseCase 市场分析业务逻辑
type MarketUseCase struct {
	engine MarketEngine
	tools  *registry.Registry
	log    *log.Helper
}

// NewMarketUseCase 创建市场分析业务逻辑实例
func NewMarketUseCase(e MarketEngine, logger log.Logger) *MarketUseCase {
	return &MarketUseCase{
		engine: e,
		tools:  registry.NewMarketRegistry(e),
		log:    log.NewHelper(logger),
	}
}

// Summary 轻量市场摘要
func (uc *MarketUseCase) Summary(ctx context.Context) *model.MarketSummary {
	return uc.engine.Summary(ctx)
}

// Analysis 市场分析
func (uc *MarketUseCase) Analysis(ctx context.Context) *model.AnalysisEnvelope {
	return uc.engine.Analyze(ctx)
}

// Predictions 基于最新分析生成预测
func (uc *MarketUseCase) Predictions(ctx context.Context) *model.PredictionEnvelope {
	return uc.engine.Predict(ctx, uc.engine.Analyze(ctx))
}

// Run 执行完整流程，recipient 为空时使用配置中的收件人
func (uc *MarketUseCase) Run(ctx context.Context, recipient string) *model.PipelineResult {
	res := uc.engine.RunWith(ctx, engine.RunOptions{Recipient: recipient})
	uc.log.WithContext(ctx).Infof("pipeline finished: run_id=%s status=%s email_sent=%v", res.RunID, res.Status, res.EmailSent)
	return res
}

// Preview 渲染报告预览，不做投递
func (uc *MarketUseCase) Preview(ctx context.Context) (string, error) {
	return uc.engine.Render(uc.Predictions(ctx))
}

// Tools 列出可调用的能力
func (uc *MarketUseCase) Tools() []registry.Capability {
	return uc.tools.Specs()
}

// HasTool 能力是否存在
func (uc *MarketUseCase) HasTool(name string) bool {
	_, ok := uc.tools.Get(name)
	return ok
}

// InvokeTool 按名称调用能力
func (uc *MarketUseCase) InvokeTool(ctx context.Context, name string, args map[string]any) (any, error) {
	out, err := uc.tools.Invoke(ctx, name, args)
	if err != nil {
		uc.log.WithContext(ctx).Warnf("tool %s failed: %v", name, err)
	}
	return out, err
}
