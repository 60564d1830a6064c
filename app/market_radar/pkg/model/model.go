package model

import (
	"fmt"
	"time"
)

// Status 各阶段结果状态
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// ErrorKind 失败类型
type ErrorKind string

const (
	KindProviderFailure      ErrorKind = "provider_failure"
	KindConfigurationMissing ErrorKind = "configuration_missing"
	KindDeliveryRejected     ErrorKind = "delivery_rejected"
	KindTransportFailure     ErrorKind = "transport_failure"
	KindRenderFailure        ErrorKind = "render_failure"
	KindPipelineFailure      ErrorKind = "pipeline_failure"
	KindInvalidArgument      ErrorKind = "invalid_argument"
)

// Failure 带类型的失败描述
type Failure struct {
	Kind    ErrorKind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Fail 构造 Failure
func Fail(kind ErrorKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// 方法标签
const (
	MethodologyAnalysis = "gemini_ai_analysis"
	MethodPipeline      = "ai_powered_gemini"
	MethodSummary       = "ai_analysis"
)

// PlatformRecord 平台分析记录
type PlatformRecord struct {
	Name                string `json:"name" yaml:"name" validate:"required"`
	FocusDescription    string `json:"focus_description" yaml:"focus_description"`
	SellerCountEstimate string `json:"seller_count_estimate" yaml:"seller_count_estimate"`
	StrengthDescription string `json:"strength_description" yaml:"strength_description"`
	GrowthDescription   string `json:"growth_description" yaml:"growth_description"`
}

// CategoryRecord 趋势品类
type CategoryRecord struct {
	Category      string   `json:"category" yaml:"category" validate:"required"`
	GrowthRate    string   `json:"growth_rate,omitempty" yaml:"growth_rate"`
	PriceRange    string   `json:"price_range,omitempty" yaml:"price_range"`
	DemandDrivers []string `json:"demand_drivers,omitempty" yaml:"demand_drivers"`
	TopProducts   []string `json:"top_products,omitempty" yaml:"top_products"`
}

// InsightBlock 市场洞察，四组字符串映射
type InsightBlock struct {
	MarketSize         map[string]string `json:"market_size" yaml:"market_size"`
	ConsumerBehavior   map[string]string `json:"consumer_behavior" yaml:"consumer_behavior"`
	PricingTrends      map[string]string `json:"pricing_trends" yaml:"pricing_trends"`
	TechnologyAdoption map[string]string `json:"technology_adoption" yaml:"technology_adoption"`
}

// PatternBlock 卖家表现模式
type PatternBlock struct {
	TopPerformerCharacteristics map[string]string `json:"top_performer_characteristics" yaml:"top_performer_characteristics"`
	SuccessFactors              []string          `json:"success_factors" yaml:"success_factors"`
	MarketOpportunities         []string          `json:"market_opportunities" yaml:"market_opportunities"`
}

// AnalysisPayload 市场分析主体
type AnalysisPayload struct {
	TopPlatforms       []PlatformRecord `json:"top_platforms" yaml:"top_platforms" validate:"dive"`
	TrendingCategories []CategoryRecord `json:"trending_categories" yaml:"trending_categories" validate:"dive"`
	MarketInsights     InsightBlock     `json:"market_insights" yaml:"market_insights"`
	SellerPatterns     PatternBlock     `json:"seller_patterns" yaml:"seller_patterns"`
	Note               string           `json:"note,omitempty" yaml:"note"`
}

// AnalysisEnvelope 市场分析结果，Analysis 与 Error 二选一
type AnalysisEnvelope struct {
	Status       Status           `json:"status"`
	Analysis     *AnalysisPayload `json:"analysis,omitempty"`
	Error        string           `json:"error,omitempty"`
	ErrorKind    ErrorKind        `json:"error_kind,omitempty"`
	FallbackData *AnalysisPayload `json:"fallback_data,omitempty"`
	Methodology  string           `json:"methodology"`
	AnalyzedAt   time.Time        `json:"analyzed_at"`
}

// NewAnalysisSuccess 构造成功的分析结果
func NewAnalysisSuccess(payload *AnalysisPayload, at time.Time) *AnalysisEnvelope {
	return &AnalysisEnvelope{
		Status:      StatusSuccess,
		Analysis:    payload,
		Methodology: MethodologyAnalysis,
		AnalyzedAt:  at,
	}
}

// NewAnalysisFailure 构造失败的分析结果，fallback 与成功结果同构
func NewAnalysisFailure(f *Failure, fallback *AnalysisPayload, at time.Time) *AnalysisEnvelope {
	return &AnalysisEnvelope{
		Status:       StatusError,
		Error:        f.Message,
		ErrorKind:    f.Kind,
		FallbackData: fallback,
		Methodology:  MethodologyAnalysis,
		AnalyzedAt:   at,
	}
}

// Effective 返回可用的分析数据：成功时为主体，失败时为兜底数据
func (e *AnalysisEnvelope) Effective() *AnalysisPayload {
	if e == nil {
		return nil
	}
	if e.Analysis != nil {
		return e.Analysis
	}
	return e.FallbackData
}

// ConfidenceLevel 置信度等级
type ConfidenceLevel string

const (
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceMedium   ConfidenceLevel = "medium"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceVeryHigh ConfidenceLevel = "very_high"
)

// ConfidenceBlock 预测置信度
type ConfidenceBlock struct {
	OverallConfidence  ConfidenceLevel `json:"overall_confidence" yaml:"overall_confidence" validate:"omitempty,oneof=low medium high very_high"`
	DataQuality        string          `json:"data_quality" yaml:"data_quality"`
	PredictionAccuracy string          `json:"prediction_accuracy" yaml:"prediction_accuracy"`
	Methodology        string          `json:"methodology" yaml:"methodology"`
	UpdateFrequency    string          `json:"update_frequency" yaml:"update_frequency"`
}

// PredictionPayload 趋势预测主体
type PredictionPayload struct {
	HotCategories         []string          `json:"hot_categories" yaml:"hot_categories"`
	PricingEvolution      map[string]string `json:"pricing_evolution" yaml:"pricing_evolution"`
	TechnologyPredictions []string          `json:"technology_predictions" yaml:"technology_predictions"`
	MarketShifts          map[string]string `json:"market_shifts" yaml:"market_shifts"`
	OpportunityAreas      []string          `json:"opportunity_areas" yaml:"opportunity_areas"`
	SuccessStrategies     []string          `json:"success_strategies" yaml:"success_strategies"`
	Note                  string            `json:"note,omitempty" yaml:"note"`
}

// PredictionEnvelope 趋势预测结果，Predictions 与 Error 二选一
type PredictionEnvelope struct {
	Status              Status             `json:"status"`
	Predictions         *PredictionPayload `json:"predictions,omitempty"`
	Error               string             `json:"error,omitempty"`
	ErrorKind           ErrorKind          `json:"error_kind,omitempty"`
	FallbackPredictions *PredictionPayload `json:"fallback_predictions,omitempty"`
	ConfidenceMetrics   *ConfidenceBlock   `json:"confidence_metrics,omitempty"`
	TargetPeriod        string             `json:"target_period"`
	GeneratedAt         time.Time          `json:"generated_at"`
	ModelIdentifier     string             `json:"model_identifier"`
}

// NewPredictionSuccess 构造成功的预测结果
func NewPredictionSuccess(payload *PredictionPayload, confidence *ConfidenceBlock, period, modelID string, at time.Time) *PredictionEnvelope {
	return &PredictionEnvelope{
		Status:            StatusSuccess,
		Predictions:       payload,
		ConfidenceMetrics: confidence,
		TargetPeriod:      period,
		GeneratedAt:       at,
		ModelIdentifier:   modelID,
	}
}

// NewPredictionFailure 构造失败的预测结果
func NewPredictionFailure(f *Failure, fallback *PredictionPayload, period, modelID string, at time.Time) *PredictionEnvelope {
	return &PredictionEnvelope{
		Status:              StatusError,
		Error:               f.Message,
		ErrorKind:           f.Kind,
		FallbackPredictions: fallback,
		TargetPeriod:        period,
		GeneratedAt:         at,
		ModelIdentifier:     modelID,
	}
}

// Effective 返回可用于渲染的预测数据
func (e *PredictionEnvelope) Effective() *PredictionPayload {
	if e == nil {
		return nil
	}
	if e.Predictions != nil {
		return e.Predictions
	}
	return e.FallbackPredictions
}

// DeliveryResult 报告投递结果
type DeliveryResult struct {
	Status       Status     `json:"status"`
	Message      string     `json:"message,omitempty"`
	Error        string     `json:"error,omitempty"`
	ErrorKind    ErrorKind  `json:"error_kind,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ArtifactPath string     `json:"artifact_path,omitempty"`
}

// NewDeliverySuccess 构造投递成功结果
func NewDeliverySuccess(message, artifact string, at time.Time) *DeliveryResult {
	return &DeliveryResult{Status: StatusSuccess, Message: message, SentAt: &at, ArtifactPath: artifact}
}

// NewDeliveryFailure 构造投递失败结果
func NewDeliveryFailure(f *Failure, artifact string) *DeliveryResult {
	return &DeliveryResult{Status: StatusError, Error: f.Message, ErrorKind: f.Kind, ArtifactPath: artifact}
}

// NewDeliverySkipped 未配置收件人时的投递结果
func NewDeliverySkipped(reason string) *DeliveryResult {
	return &DeliveryResult{Status: StatusSkipped, Message: reason}
}

// PipelineResult 完整流程结果
type PipelineResult struct {
	Status              Status              `json:"status"`
	RunID               string              `json:"run_id"`
	AnalysisMethod      string              `json:"analysis_method"`
	MarketplaceAnalysis *AnalysisEnvelope   `json:"marketplace_analysis,omitempty"`
	Predictions         *PredictionEnvelope `json:"predictions,omitempty"`
	Delivery            *DeliveryResult     `json:"delivery,omitempty"`
	EmailSent           bool                `json:"email_sent"`
	Summary             string              `json:"summary,omitempty"`
	Confidence          ConfidenceLevel     `json:"confidence,omitempty"`
	Advantages          []string            `json:"advantages,omitempty"`
	CompletedAt         time.Time           `json:"completed_at"`
	Error               string              `json:"error,omitempty"`
	ErrorKind           ErrorKind           `json:"error_kind,omitempty"`
}

// PipelineSummary 流程成功时的摘要文字
const PipelineSummary = "AI analysis completed successfully"

// PredictedConfidence 返回预测的整体置信度，缺失时为 high
func (r *PipelineResult) PredictedConfidence() ConfidenceLevel {
	if r == nil || r.Predictions == nil || r.Predictions.ConfidenceMetrics == nil || r.Predictions.ConfidenceMetrics.OverallConfidence == "" {
		return ConfidenceHigh
	}
	return r.Predictions.ConfidenceMetrics.OverallConfidence
}

// MarketSummary 轻量市场摘要
type MarketSummary struct {
	Status               Status            `json:"status"`
	Method               string            `json:"method"`
	SummaryGeneratedAt   time.Time         `json:"summary_generated_at"`
	KeyInsights          map[string]string `json:"key_insights,omitempty"`
	QuickRecommendations []string          `json:"quick_recommendations,omitempty"`
	Confidence           ConfidenceLevel   `json:"confidence,omitempty"`
	Methodology          string            `json:"methodology,omitempty"`
	Error                string            `json:"error,omitempty"`
	ErrorKind            ErrorKind         `json:"error_kind,omitempty"`
}
