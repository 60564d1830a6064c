package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/catalog"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/config"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
)

//go:embed templates/report.html.tmpl
var reportTpl string

// 缺失字段时的展示默认值
const (
	DefaultTitle       = "🤖 AI-Powered Digital Market Analysis"
	DefaultModel       = "Gemini 2.0 Flash"
	DefaultConfidence  = "High"
	DefaultAccuracy    = "85-92%"
	DefaultMethodology = "AI Analysis + Market Data"

	generatedLayout = "January 02, 2006 at 03:04 PM"
)

// primaryTiers 价格板块固定展示的三档，缺失时使用默认区间
var primaryTiers = []struct {
	Key     string
	Label   string
	Default string
}{
	{"ai_premium_tier", "AI Premium Tier", "$100-500"},
	{"standard_premium", "Standard Premium", "$50-150"},
	{"mainstream_market", "Mainstream Market", "$20-75"},
}

// Limits 各列表板块的展示上限
type Limits struct {
	HotCategories         int
	TechnologyPredictions int
	OpportunityAreas      int
	SuccessStrategies     int
}

// DefaultLimits 默认展示上限
func DefaultLimits() Limits {
	return Limits{HotCategories: 6, TechnologyPredictions: 6, OpportunityAreas: 6, SuccessStrategies: 8}
}

// LimitsFromConfig 将配置转换为展示上限，未设置的项使用默认值
func LimitsFromConfig(c config.LimitsConfig) Limits {
	l := DefaultLimits()
	if c.HotCategories > 0 {
		l.HotCategories = c.HotCategories
	}
	if c.TechnologyPredictions > 0 {
		l.TechnologyPredictions = c.TechnologyPredictions
	}
	if c.OpportunityAreas > 0 {
		l.OpportunityAreas = c.OpportunityAreas
	}
	if c.SuccessStrategies > 0 {
		l.SuccessStrategies = c.SuccessStrategies
	}
	return l
}

// Renderer 将预测结果渲染为自包含的 HTML 文档
type Renderer struct {
	tpl    *template.Template
	copy   catalog.ReportCopy
	static staticParts
	limits Limits
}

type staticParts struct {
	sources     []htmlSection
	limitations []htmlSection
	footer      template.HTML
}

type htmlSection struct {
	Title string
	Style string
	Body  template.HTML
}

type labelled struct {
	Label string
	Value string
}

type view struct {
	Title          string
	Subtitle       string
	Badges         []string
	GeneratedAt    string
	Degraded       bool
	Note           string
	HotCategories  []string
	Pricing        []labelled
	Technology     []string
	Strategies     []string
	Opportunities  []string
	MarketShifts   []labelled
	PlatformCards  []catalog.PlatformCard
	OtherPlatforms []catalog.OtherPlatform
	Sources        []htmlSection
	Limitations    []htmlSection
	Model          string
	TargetPeriod   string
	Confidence     string
	Accuracy       string
	Methodology    string
	Advantages     string
	ClosingTitle   string
	Closing        []catalog.ClosingPoint
	Footer         template.HTML
}

// Option Renderer 选项
type Option func(*Renderer)

// WithLimits 设置展示上限
func WithLimits(l Limits) Option {
	return func(r *Renderer) { r.limits = l }
}

// NewRenderer 创建渲染器，文案中的 Markdown 段落在此转换为 HTML
func NewRenderer(rc catalog.ReportCopy, opts ...Option) (*Renderer, error) {
	tpl, err := template.New("report").Parse(reportTpl)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}

	r := &Renderer{
		tpl:    tpl,
		copy:   rc,
		limits: DefaultLimits(),
	}
	for _, opt := range opts {
		opt(r)
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	convert := func(src string) (template.HTML, error) {
		var buf bytes.Buffer
		if err := md.Convert([]byte(src), &buf); err != nil {
			return "", err
		}
		return template.HTML(buf.String()), nil
	}

	for _, list := range []struct {
		in  []catalog.Section
		out *[]htmlSection
	}{
		{rc.Sources, &r.static.sources},
		{rc.Limitations, &r.static.limitations},
	} {
		for _, s := range list.in {
			body, err := convert(s.Body)
			if err != nil {
				return nil, fmt.Errorf("convert section %q: %w", s.Title, err)
			}
			style := s.Style
			if style == "" {
				style = "data-source"
			}
			*list.out = append(*list.out, htmlSection{Title: s.Title, Style: style, Body: body})
		}
	}

	if r.static.footer, err = convert(rc.Footer); err != nil {
		return nil, fmt.Errorf("convert footer: %w", err)
	}
	return r, nil
}

// Render 渲染报告。输出只取决于 env 与 generatedAt，缺失字段使用默认值
func (r *Renderer) Render(env *model.PredictionEnvelope, generatedAt time.Time) (string, error) {
	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, r.buildView(env, generatedAt)); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) buildView(env *model.PredictionEnvelope, generatedAt time.Time) *view {
	v := &view{
		Title:          r.copy.Title,
		Badges:         r.copy.Badges,
		GeneratedAt:    generatedAt.Format(generatedLayout),
		PlatformCards:  r.copy.PlatformCards,
		OtherPlatforms: r.copy.OtherPlatforms,
		Sources:        r.static.sources,
		Limitations:    r.static.limitations,
		Model:          DefaultModel,
		Confidence:     DefaultConfidence,
		Accuracy:       DefaultAccuracy,
		Methodology:    DefaultMethodology,
		Advantages:     r.copy.AdvantagesLine,
		ClosingTitle:   r.copy.ClosingTitle,
		Closing:        r.copy.Closing,
		Footer:         r.static.footer,
	}
	if v.Title == "" {
		v.Title = DefaultTitle
	}

	payload := env.Effective()
	if payload == nil {
		payload = &model.PredictionPayload{}
	}

	if env != nil {
		v.Degraded = env.Status == model.StatusError
		v.Note = payload.Note
		if v.Degraded && v.Note == "" {
			v.Note = env.Error
		}
		v.TargetPeriod = env.TargetPeriod
		if env.ModelIdentifier != "" {
			v.Model = r.humanize(env.ModelIdentifier)
		}
		if c := env.ConfidenceMetrics; c != nil {
			if c.OverallConfidence != "" {
				v.Confidence = r.humanize(string(c.OverallConfidence))
			}
			if c.PredictionAccuracy != "" {
				v.Accuracy = c.PredictionAccuracy
			}
			if c.Methodology != "" {
				v.Methodology = c.Methodology
			}
		}
	}

	v.Subtitle = r.copy.Subtitle
	if v.Subtitle == "" {
		v.Subtitle = "Comprehensive Market Predictions"
		if p := periodLabel(v.TargetPeriod); p != "" {
			v.Subtitle += " for " + p
		}
	}
	if v.TargetPeriod == "" {
		v.TargetPeriod = "-"
	}

	v.HotCategories = truncate(payload.HotCategories, r.limits.HotCategories)
	v.Technology = truncate(payload.TechnologyPredictions, r.limits.TechnologyPredictions)
	v.Opportunities = truncate(payload.OpportunityAreas, r.limits.OpportunityAreas)
	v.Strategies = truncate(payload.SuccessStrategies, r.limits.SuccessStrategies)
	v.Pricing = r.pricing(payload.PricingEvolution)
	v.MarketShifts = r.sortedPairs(payload.MarketShifts, nil)
	return v
}

// pricing 先输出三档主价格（缺失时用默认值），其余档位按 key 排序追加
func (r *Renderer) pricing(tiers map[string]string) []labelled {
	out := make([]labelled, 0, len(primaryTiers)+len(tiers))
	skip := make(map[string]bool, len(primaryTiers))
	for _, t := range primaryTiers {
		value := t.Default
		if s, ok := tiers[t.Key]; ok && s != "" {
			value = s
		}
		out = append(out, labelled{Label: t.Label, Value: value})
		skip[t.Key] = true
	}
	return append(out, r.sortedPairs(tiers, skip)...)
}

func (r *Renderer) sortedPairs(m map[string]string, skip map[string]bool) []labelled {
	keys := make([]string, 0, len(m))
	for k := range m {
		if !skip[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]labelled, 0, len(keys))
	for _, k := range keys {
		out = append(out, labelled{Label: r.humanize(k), Value: m[k]})
	}
	return out
}

// humanize very_high -> Very High, gemini_2.0_flash -> Gemini 2.0 Flash
func (r *Renderer) humanize(s string) string {
	// Caser 有内部状态，不能跨 goroutine 共享
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

func truncate(items []string, limit int) []string {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func periodLabel(period string) string {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return ""
	}
	return t.Format("January 2006")
}
