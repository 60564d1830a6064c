package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
)

// 能力名称，对外保持稳定
const (
	RunCompleteAnalysis = "run_complete_analysis"
	GetMarketSummary    = "get_market_summary"
	AnalyzeMarketplace  = "analyze_digital_marketplace_with_ai"
	PredictTrends       = "predict_july_2025_trends_ai"
	SendAnalysisReport  = "send_ai_analysis_report"
)

// MarketEngine 能力背后的流程引擎
type MarketEngine interface {
	Run(ctx context.Context) *model.PipelineResult
	Summary(ctx context.Context) *model.MarketSummary
	Analyze(ctx context.Context) *model.AnalysisEnvelope
	Predict(ctx context.Context, analysis *model.AnalysisEnvelope) *model.PredictionEnvelope
	SendReport(ctx context.Context, env *model.PredictionEnvelope, recipient string) *model.DeliveryResult
}

type predictArgs struct {
	CurrentAnalysis json.RawMessage `json:"current_analysis"`
}

type sendReportArgs struct {
	Predictions    json.RawMessage `json:"predictions"`
	RecipientEmail string          `json:"recipient_email"`
}

// rejectPrediction 预测参数不合法时的结果
func rejectPrediction(f *model.Failure) any {
	return model.NewPredictionFailure(f, nil, "", "", time.Now())
}

// rejectDelivery 投递参数不合法时的结果
func rejectDelivery(f *model.Failure) any {
	return model.NewDeliveryFailure(f, "")
}

// NewMarketRegistry 注册市场分析的五项能力
func NewMarketRegistry(e MarketEngine) *Registry {
	r := NewRegistry()
	for _, c := range []*Capability{
		{
			Name:        RunCompleteAnalysis,
			Description: "Execute the complete AI-powered market analysis pipeline: marketplace analysis, trend prediction, report generation and email delivery.",
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				return e.Run(ctx), nil
			},
		},
		{
			Name:        GetMarketSummary,
			Description: "Generate a quick AI-powered market summary with key insights and recommendations, without running the full pipeline.",
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				return e.Summary(ctx), nil
			},
		},
		{
			Name:        AnalyzeMarketplace,
			Description: "Analyze digital product marketplaces: top platforms, trending categories, market insights and seller performance patterns.",
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				return e.Analyze(ctx), nil
			},
		},
		{
			Name:        PredictTrends,
			Description: "Generate AI-powered predictions for July 2025 digital product trends with confidence metrics.",
			Params: []Param{
				{Name: "current_analysis", Type: TypeObject, Description: "Current market analysis result, as returned by analyze_digital_marketplace_with_ai"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				var in predictArgs
				if f := Decode(args, &in); f != nil {
					return rejectPrediction(f), nil
				}
				current, f := decodeAnalysis(in.CurrentAnalysis)
				if f != nil {
					return rejectPrediction(f), nil
				}
				return e.Predict(ctx, current), nil
			},
			Reject: rejectPrediction,
		},
		{
			Name:        SendAnalysisReport,
			Description: "Render the AI market analysis report as HTML and send it by email.",
			Params: []Param{
				{Name: "predictions", Type: TypeObject, Description: "Prediction result, as returned by predict_july_2025_trends_ai. Generated when omitted"},
				{Name: "recipient_email", Type: TypeString, Description: "Email address to send the report to", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				var in sendReportArgs
				if f := Decode(args, &in); f != nil {
					return rejectDelivery(f), nil
				}
				if err := validate.Var(in.RecipientEmail, "required,email"); err != nil {
					return rejectDelivery(model.Fail(model.KindInvalidArgument, "invalid recipient email %q", in.RecipientEmail)), nil
				}
				env, f := decodePredictions(in.Predictions)
				if f != nil {
					return rejectDelivery(f), nil
				}
				return e.SendReport(ctx, env, in.RecipientEmail), nil
			},
			Reject: rejectDelivery,
		},
	} {
		// 名称固定且互不相同
		_ = r.Register(c)
	}
	return r
}

// decodeAnalysis 接受完整的分析结果，也接受裸的分析主体
func decodeAnalysis(raw json.RawMessage) (*model.AnalysisEnvelope, *model.Failure) {
	if isEmpty(raw) {
		return nil, nil
	}
	var env model.AnalysisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, model.Fail(model.KindInvalidArgument, "current_analysis: %v", err)
	}
	if env.Status != "" {
		return &env, nil
	}
	var payload model.AnalysisPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, model.Fail(model.KindInvalidArgument, "current_analysis: %v", err)
	}
	return &model.AnalysisEnvelope{Status: model.StatusSuccess, Analysis: &payload, Methodology: model.MethodologyAnalysis}, nil
}

// decodePredictions 接受完整的预测结果，也接受裸的预测主体
func decodePredictions(raw json.RawMessage) (*model.PredictionEnvelope, *model.Failure) {
	if isEmpty(raw) {
		return nil, nil
	}
	var env model.PredictionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, model.Fail(model.KindInvalidArgument, "predictions: %v", err)
	}
	if env.Status != "" {
		return &env, nil
	}
	var payload model.PredictionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, model.Fail(model.KindInvalidArgument, "predictions: %v", err)
	}
	return &model.PredictionEnvelope{Status: model.StatusSuccess, Predictions: &payload}, nil
}

func isEmpty(raw json.RawMessage) bool {
	s := string(raw)
	return s == "" || s == "null" || s == "{}"
}
