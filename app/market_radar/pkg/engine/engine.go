package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/analysis"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/catalog"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/config"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/delivery"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/logger"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/prediction"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/report"
)

// Engine 串联分析、预测、渲染与投递的核心流程
type Engine struct {
	cfg        *config.Config
	provider   catalog.Provider
	aggregator *analysis.Aggregator
	generator  *prediction.Generator
	renderer   *report.Renderer
	dispatcher *delivery.Dispatcher
	now        func() time.Time
}

// Deps 引擎依赖，未设置的项由 NewEngineWithDeps 按配置补齐
type Deps struct {
	Provider catalog.Provider
	Copy     *catalog.ReportCopy
	Channel  delivery.Channel
	Now      func() time.Time
}

// NewEngine 按配置创建引擎实例
func NewEngine(cfg *config.Config) (*Engine, error) {
	return NewEngineWithDeps(cfg, Deps{})
}

// NewEngineWithDeps 使用给定依赖创建引擎实例
func NewEngineWithDeps(cfg *config.Config, deps Deps) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	// 初始化数据源
	if deps.Provider == nil || deps.Copy == nil {
		cat, err := loadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("数据源初始化失败: %w", err)
		}
		if deps.Provider == nil {
			deps.Provider = cat
		}
		if deps.Copy == nil {
			rc := cat.ReportCopy()
			deps.Copy = &rc
		}
	}

	// 初始化渲染器
	renderer, err := report.NewRenderer(*deps.Copy, report.WithLimits(report.LimitsFromConfig(cfg.Report.Limits)))
	if err != nil {
		return nil, fmt.Errorf("渲染器初始化失败: %w", err)
	}

	// 初始化投递通道
	if deps.Channel == nil {
		ch, err := delivery.NewChannel(cfg.Delivery)
		if err != nil {
			return nil, fmt.Errorf("投递通道初始化失败: %w", err)
		}
		deps.Channel = ch
	}

	return &Engine{
		cfg:        cfg,
		provider:   deps.Provider,
		aggregator: analysis.NewAggregator(deps.Provider, analysis.WithClock(deps.Now)),
		generator:  prediction.NewGenerator(deps.Provider, prediction.WithClock(deps.Now)),
		renderer:   renderer,
		dispatcher: delivery.NewDispatcher(cfg.Delivery, deps.Channel, renderer, delivery.WithClock(deps.Now)),
		now:        deps.Now,
	}, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

// RunOptions 运行选项
type RunOptions struct {
	// Recipient 覆盖配置中的收件人
	Recipient        string
	ProgressCallback func(status string, progress int)
}

// Run 按配置执行一次完整流程
func (e *Engine) Run(ctx context.Context) *model.PipelineResult {
	return e.RunWith(ctx, RunOptions{})
}

// RunWith 执行一次完整流程：分析 -> 预测 -> 渲染投递
func (e *Engine) RunWith(ctx context.Context, opts RunOptions) (result *model.PipelineResult) {
	runID := uuid.NewString()
	log := logger.Log.WithField("run_id", runID)
	log.Info("开始执行市场分析流程")

	progress := func(status string, p int) {
		if opts.ProgressCallback != nil {
			opts.ProgressCallback(status, p)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("流程异常终止: %v", r)
			result = &model.PipelineResult{
				Status:         model.StatusError,
				RunID:          runID,
				AnalysisMethod: model.MethodPipeline,
				Error:          fmt.Sprintf("%v", r),
				ErrorKind:      model.KindPipelineFailure,
				CompletedAt:    e.now(),
			}
		}
	}()

	progress("starting", 0)

	// 1. 市场分析
	analysisEnv := e.aggregator.Produce(ctx)
	progress("analysis completed", 30)

	// 2. 趋势预测
	predictions := e.generator.Produce(ctx, analysisEnv)
	progress("predictions completed", 60)

	// 3. 渲染并投递
	recipient := opts.Recipient
	if recipient == "" {
		recipient = e.cfg.Delivery.ToEmail
	}
	var dr *model.DeliveryResult
	if recipient == "" {
		log.Warn("未配置收件人，跳过报告投递")
		dr = model.NewDeliverySkipped("no recipient configured")
	} else {
		dr = e.dispatcher.SendReport(ctx, predictions, recipient)
	}
	progress("delivery completed", 100)

	result = &model.PipelineResult{
		Status:              model.StatusSuccess,
		RunID:               runID,
		AnalysisMethod:      model.MethodPipeline,
		MarketplaceAnalysis: analysisEnv,
		Predictions:         predictions,
		Delivery:            dr,
		EmailSent:           dr.Status == model.StatusSuccess,
		Summary:             model.PipelineSummary,
		Advantages:          e.provider.Advantages(),
		CompletedAt:         e.now(),
	}
	result.Confidence = result.PredictedConfidence()
	log.WithField("email_sent", result.EmailSent).
		WithField("confidence", result.Confidence).
		Info("市场分析流程完成")
	return result
}

// Summary 生成轻量市场摘要，不做预测与投递
func (e *Engine) Summary(ctx context.Context) (summary *model.MarketSummary) {
	logger.Log.Info("生成市场摘要...")

	failure := func(err error) *model.MarketSummary {
		logger.Log.Errorf("市场摘要生成失败: %v", err)
		return &model.MarketSummary{
			Status:             model.StatusError,
			Method:             model.MethodSummary,
			SummaryGeneratedAt: e.now(),
			Error:              err.Error(),
			ErrorKind:          model.KindProviderFailure,
		}
	}
	defer func() {
		if r := recover(); r != nil {
			summary = failure(fmt.Errorf("%v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return failure(err)
	}
	data, err := e.provider.Summary()
	if err != nil {
		return failure(err)
	}

	confidence := data.Confidence
	if confidence == "" {
		confidence = model.ConfidenceHigh
	}
	return &model.MarketSummary{
		Status:               model.StatusSuccess,
		Method:               model.MethodSummary,
		SummaryGeneratedAt:   e.now(),
		KeyInsights:          data.KeyInsights,
		QuickRecommendations: data.QuickRecommendations,
		Confidence:           confidence,
		Methodology:          data.Methodology,
	}
}

// Analyze 生成市场分析
func (e *Engine) Analyze(ctx context.Context) *model.AnalysisEnvelope {
	return e.aggregator.Produce(ctx)
}

// Predict 基于分析结果生成预测，analysisEnv 可为空
func (e *Engine) Predict(ctx context.Context, analysisEnv *model.AnalysisEnvelope) *model.PredictionEnvelope {
	return e.generator.Produce(ctx, analysisEnv)
}

// Render 将预测结果渲染为 HTML，不做投递
func (e *Engine) Render(env *model.PredictionEnvelope) (string, error) {
	return e.renderer.Render(env, e.now())
}

// SendReport 渲染并投递报告，env 为空时先生成预测
func (e *Engine) SendReport(ctx context.Context, env *model.PredictionEnvelope, recipient string) *model.DeliveryResult {
	if env == nil {
		env = e.generator.Produce(ctx, nil)
	}
	return e.dispatcher.SendReport(ctx, env, recipient)
}

// Config 返回引擎使用的配置
func (e *Engine) Config() *config.Config {
	return e.cfg
}
