package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
)

//go:embed catalog.yaml
var embedded []byte

// Provider 市场数据来源，所有方法返回独立副本
type Provider interface {
	TopPlatforms() ([]model.PlatformRecord, error)
	TrendingCategories() ([]model.CategoryRecord, error)
	MarketInsights() (model.InsightBlock, error)
	SellerPatterns() (model.PatternBlock, error)
	Predictions() (*model.PredictionPayload, error)
	Confidence() (*model.ConfidenceBlock, error)
	Summary() (*SummaryData, error)
	FallbackAnalysis() *model.AnalysisPayload
	FallbackPredictions() *model.PredictionPayload
	Advantages() []string
	TargetPeriod() string
	ModelIdentifier() string
}

// SummaryData 轻量摘要数据
type SummaryData struct {
	KeyInsights          map[string]string     `yaml:"key_insights" validate:"required"`
	QuickRecommendations []string              `yaml:"quick_recommendations" validate:"required"`
	Confidence           model.ConfidenceLevel `yaml:"confidence" validate:"omitempty,oneof=low medium high very_high"`
	Methodology          string                `yaml:"methodology"`
}

// ReportCopy 报告中的静态文案
type ReportCopy struct {
	Title          string          `yaml:"title"`
	Subtitle       string          `yaml:"subtitle"`
	Badges         []string        `yaml:"badges"`
	AdvantagesLine string          `yaml:"advantages_line"`
	PlatformCards  []PlatformCard  `yaml:"platform_cards" validate:"dive"`
	OtherPlatforms []OtherPlatform `yaml:"other_platforms" validate:"dive"`
	Sources        []Section       `yaml:"sources" validate:"dive"`
	Limitations    []Section       `yaml:"limitations" validate:"dive"`
	ClosingTitle   string          `yaml:"closing_title"`
	Closing        []ClosingPoint  `yaml:"closing"`
	Footer         string          `yaml:"footer"`
}

// PlatformCard 报告中的平台卡片
type PlatformCard struct {
	Icon          string `yaml:"icon"`
	Name          string `yaml:"name" validate:"required"`
	Focus         string `yaml:"focus"`
	SellerBase    string `yaml:"seller_base"`
	Strength      string `yaml:"strength"`
	Growth        string `yaml:"growth"`
	KeyCategories string `yaml:"key_categories"`
}

// OtherPlatform 其他平台的一句话描述
type OtherPlatform struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`
}

// Section 以 Markdown 编写的文案段落，Style 对应报告中的样式类
type Section struct {
	Title string `yaml:"title" validate:"required"`
	Style string `yaml:"style" validate:"omitempty,oneof=data-source methodology-detail"`
	Body  string `yaml:"body"`
}

// ClosingPoint 结尾要点
type ClosingPoint struct {
	Label string `yaml:"label"`
	Text  string `yaml:"text"`
}

type document struct {
	TargetPeriod    string                  `yaml:"target_period" validate:"required"`
	ModelIdentifier string                  `yaml:"model_identifier" validate:"required"`
	Advantages      []string                `yaml:"advantages"`
	Analysis        model.AnalysisPayload   `yaml:"analysis"`
	Predictions     model.PredictionPayload `yaml:"predictions"`
	Confidence      model.ConfidenceBlock   `yaml:"confidence"`
	Summary         SummaryData             `yaml:"summary"`
	Fallback        struct {
		Analysis    model.AnalysisPayload   `yaml:"analysis"`
		Predictions model.PredictionPayload `yaml:"predictions"`
	} `yaml:"fallback"`
	Report ReportCopy `yaml:"report"`
}

// Catalog 从数据资源加载的市场数据
type Catalog struct {
	doc document
}

var _ Provider = (*Catalog)(nil)

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default 返回内置数据资源，进程内只解析一次
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Parse(embedded)
	})
	return defaultCat, defaultErr
}

// Load 从文件加载数据资源，path 为空时使用内置资源
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析并校验数据资源
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	v := validator.New()
	if err := v.Struct(&doc); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	if len(doc.Analysis.TopPlatforms) == 0 {
		return nil, errors.New("invalid catalog: analysis.top_platforms is empty")
	}
	if len(doc.Predictions.HotCategories) == 0 {
		return nil, errors.New("invalid catalog: predictions.hot_categories is empty")
	}
	return &Catalog{doc: doc}, nil
}

// TopPlatforms 平台分析列表
func (c *Catalog) TopPlatforms() ([]model.PlatformRecord, error) {
	return append([]model.PlatformRecord(nil), c.doc.Analysis.TopPlatforms...), nil
}

// TrendingCategories 趋势品类列表
func (c *Catalog) TrendingCategories() ([]model.CategoryRecord, error) {
	return cloneCategories(c.doc.Analysis.TrendingCategories), nil
}

// MarketInsights 市场洞察
func (c *Catalog) MarketInsights() (model.InsightBlock, error) {
	in := c.doc.Analysis.MarketInsights
	return model.InsightBlock{
		MarketSize:         cloneMap(in.MarketSize),
		ConsumerBehavior:   cloneMap(in.ConsumerBehavior),
		PricingTrends:      cloneMap(in.PricingTrends),
		TechnologyAdoption: cloneMap(in.TechnologyAdoption),
	}, nil
}

// SellerPatterns 卖家模式
func (c *Catalog) SellerPatterns() (model.PatternBlock, error) {
	return clonePatterns(c.doc.Analysis.SellerPatterns), nil
}

// Predictions 趋势预测
func (c *Catalog) Predictions() (*model.PredictionPayload, error) {
	return clonePredictions(&c.doc.Predictions), nil
}

// Confidence 置信度
func (c *Catalog) Confidence() (*model.ConfidenceBlock, error) {
	cb := c.doc.Confidence
	return &cb, nil
}

// Summary 轻量摘要
func (c *Catalog) Summary() (*SummaryData, error) {
	s := c.doc.Summary
	return &SummaryData{
		KeyInsights:          cloneMap(s.KeyInsights),
		QuickRecommendations: cloneStrings(s.QuickRecommendations),
		Confidence:           s.Confidence,
		Methodology:          s.Methodology,
	}, nil
}

// FallbackAnalysis 分析失败时的兜底数据
func (c *Catalog) FallbackAnalysis() *model.AnalysisPayload {
	fb := c.doc.Fallback.Analysis
	return &model.AnalysisPayload{
		TopPlatforms:       append([]model.PlatformRecord(nil), fb.TopPlatforms...),
		TrendingCategories: cloneCategories(fb.TrendingCategories),
		MarketInsights: model.InsightBlock{
			MarketSize:         cloneMap(fb.MarketInsights.MarketSize),
			ConsumerBehavior:   cloneMap(fb.MarketInsights.ConsumerBehavior),
			PricingTrends:      cloneMap(fb.MarketInsights.PricingTrends),
			TechnologyAdoption: cloneMap(fb.MarketInsights.TechnologyAdoption),
		},
		SellerPatterns: clonePatterns(fb.SellerPatterns),
		Note:           fb.Note,
	}
}

// FallbackPredictions 预测失败时的兜底数据
func (c *Catalog) FallbackPredictions() *model.PredictionPayload {
	return clonePredictions(&c.doc.Fallback.Predictions)
}

// Advantages 方案优势
func (c *Catalog) Advantages() []string {
	return cloneStrings(c.doc.Advantages)
}

// TargetPeriod 预测目标月份，如 2025-07
func (c *Catalog) TargetPeriod() string { return c.doc.TargetPeriod }

// ModelIdentifier 预测模型标识
func (c *Catalog) ModelIdentifier() string { return c.doc.ModelIdentifier }

// ReportCopy 报告静态文案
func (c *Catalog) ReportCopy() ReportCopy {
	r := c.doc.Report
	r.Badges = cloneStrings(r.Badges)
	r.PlatformCards = append([]PlatformCard(nil), r.PlatformCards...)
	r.OtherPlatforms = append([]OtherPlatform(nil), r.OtherPlatforms...)
	r.Sources = append([]Section(nil), r.Sources...)
	r.Limitations = append([]Section(nil), r.Limitations...)
	r.Closing = append([]ClosingPoint(nil), r.Closing...)
	return r
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneCategories(in []model.CategoryRecord) []model.CategoryRecord {
	if in == nil {
		return nil
	}
	out := make([]model.CategoryRecord, len(in))
	for i, c := range in {
		c.DemandDrivers = cloneStrings(c.DemandDrivers)
		c.TopProducts = cloneStrings(c.TopProducts)
		out[i] = c
	}
	return out
}

func clonePatterns(in model.PatternBlock) model.PatternBlock {
	return model.PatternBlock{
		TopPerformerCharacteristics: cloneMap(in.TopPerformerCharacteristics),
		SuccessFactors:              cloneStrings(in.SuccessFactors),
		MarketOpportunities:         cloneStrings(in.MarketOpportunities),
	}
}

func clonePredictions(in *model.PredictionPayload) *model.PredictionPayload {
	return &model.PredictionPayload{
		HotCategories:         cloneStrings(in.HotCategories),
		PricingEvolution:      cloneMap(in.PricingEvolution),
		TechnologyPredictions: cloneStrings(in.TechnologyPredictions),
		MarketShifts:          cloneMap(in.MarketShifts),
		OpportunityAreas:      cloneStrings(in.OpportunityAreas),
		SuccessStrategies:     cloneStrings(in.SuccessStrategies),
		Note:                  in.Note,
	}
}
