package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
)

var fixedTime = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

// fakeEngine 记录调用参数
type fakeEngine struct {
	runs      int
	analysis  *model.AnalysisEnvelope
	sentEnv   *model.PredictionEnvelope
	recipient string
}

func (f *fakeEngine) Run(context.Context) *model.PipelineResult {
	f.runs++
	return &model.PipelineResult{Status: model.StatusSuccess, RunID: "run-1"}
}

func (f *fakeEngine) Summary(context.Context) *model.MarketSummary {
	return &model.MarketSummary{Status: model.StatusSuccess, Method: model.MethodSummary}
}

func (f *fakeEngine) Analyze(context.Context) *model.AnalysisEnvelope {
	return &model.AnalysisEnvelope{Status: model.StatusSuccess, Methodology: model.MethodologyAnalysis}
}

func (f *fakeEngine) Predict(_ context.Context, a *model.AnalysisEnvelope) *model.PredictionEnvelope {
	f.analysis = a
	return &model.PredictionEnvelope{Status: model.StatusSuccess, TargetPeriod: "2025-07"}
}

func (f *fakeEngine) SendReport(_ context.Context, env *model.PredictionEnvelope, to string) *model.DeliveryResult {
	f.sentEnv = env
	f.recipient = to
	return &model.DeliveryResult{Status: model.StatusSuccess}
}

func kindOf(t *testing.T, err error) model.ErrorKind {
	t.Helper()
	var f *model.Failure
	require.True(t, errors.As(err, &f), "expected *model.Failure, got %v", err)
	return f.Kind
}

func TestMarketRegistry_SpecsInOrder(t *testing.T) {
	r := NewMarketRegistry(&fakeEngine{})

	var names []string
	for _, c := range r.Specs() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		"run_complete_analysis",
		"get_market_summary",
		"analyze_digital_marketplace_with_ai",
		"predict_july_2025_trends_ai",
		"send_ai_analysis_report",
	}, names)

	send, ok := r.Get(SendAnalysisReport)
	require.True(t, ok)
	require.Len(t, send.Params, 2)
	assert.True(t, send.Params[1].Required)
	assert.Equal(t, TypeString, send.Params[1].Type)
}

func TestInvoke_Run(t *testing.T) {
	fe := &fakeEngine{}
	out, err := NewMarketRegistry(fe).Invoke(context.Background(), RunCompleteAnalysis, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fe.runs)
	assert.Equal(t, "run-1", out.(*model.PipelineResult).RunID)
}

func TestInvoke_UnknownCapability(t *testing.T) {
	_, err := NewMarketRegistry(&fakeEngine{}).Invoke(context.Background(), "delete_everything", nil)
	assert.Equal(t, model.KindInvalidArgument, kindOf(t, err))
}

func TestInvoke_PredictWithoutAnalysis(t *testing.T) {
	fe := &fakeEngine{}
	_, err := NewMarketRegistry(fe).Invoke(context.Background(), PredictTrends, map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, fe.analysis)
}

func TestInvoke_PredictAcceptsEnvelopeOrPayload(t *testing.T) {
	env := model.NewAnalysisSuccess(&model.AnalysisPayload{
		TopPlatforms: []model.PlatformRecord{{Name: "Etsy"}},
	}, fixedTime)

	for name, arg := range map[string]any{
		"envelope": env,
		"payload":  env.Analysis,
	} {
		t.Run(name, func(t *testing.T) {
			fe := &fakeEngine{}
			_, err := NewMarketRegistry(fe).Invoke(context.Background(), PredictTrends, map[string]any{
				"current_analysis": toObject(t, arg),
			})
			require.NoError(t, err)
			require.NotNil(t, fe.analysis)
			assert.Equal(t, model.StatusSuccess, fe.analysis.Status)
			require.NotNil(t, fe.analysis.Effective())
			assert.Equal(t, "Etsy", fe.analysis.Effective().TopPlatforms[0].Name)
		})
	}
}

func TestInvoke_PredictRejectsNonObject(t *testing.T) {
	fe := &fakeEngine{}
	out, err := NewMarketRegistry(fe).Invoke(context.Background(), PredictTrends, map[string]any{
		"current_analysis": "everything is fine",
	})
	require.NoError(t, err)

	env, ok := out.(*model.PredictionEnvelope)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, model.StatusError, env.Status)
	assert.Equal(t, model.KindInvalidArgument, env.ErrorKind)
	assert.Contains(t, env.Error, "current_analysis")
	assert.Nil(t, fe.analysis)
}

func TestInvoke_PredictRejectsMalformedAnalysis(t *testing.T) {
	out, err := NewMarketRegistry(&fakeEngine{}).Invoke(context.Background(), PredictTrends, map[string]any{
		"current_analysis": map[string]any{"top_platforms": "Etsy"},
	})
	require.NoError(t, err)

	env := out.(*model.PredictionEnvelope)
	assert.Equal(t, model.StatusError, env.Status)
	assert.Equal(t, model.KindInvalidArgument, env.ErrorKind)
}

func TestInvoke_SendReport(t *testing.T) {
	fe := &fakeEngine{}
	preds := map[string]any{"hot_categories": []any{"AI templates"}}

	_, err := NewMarketRegistry(fe).Invoke(context.Background(), SendAnalysisReport, map[string]any{
		"predictions":     preds,
		"recipient_email": "seller@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "seller@example.com", fe.recipient)
	require.NotNil(t, fe.sentEnv)
	assert.Equal(t, []string{"AI templates"}, fe.sentEnv.Effective().HotCategories)
}

func TestInvoke_SendReportValidation(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing recipient", map[string]any{}, `missing required argument "recipient_email"`},
		{"bad recipient", map[string]any{"recipient_email": "not-an-address"}, `invalid recipient email "not-an-address"`},
		{"wrong type", map[string]any{"recipient_email": 42}, `argument "recipient_email" must be a string`},
		{"bad predictions", map[string]any{"recipient_email": "seller@example.com", "predictions": map[string]any{"hot_categories": "AI"}}, "predictions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := &fakeEngine{}
			out, err := NewMarketRegistry(fe).Invoke(context.Background(), SendAnalysisReport, tt.args)
			require.NoError(t, err)

			res, ok := out.(*model.DeliveryResult)
			require.True(t, ok, "got %T", out)
			assert.Equal(t, model.StatusError, res.Status)
			assert.Equal(t, model.KindInvalidArgument, res.ErrorKind)
			assert.Contains(t, res.Error, tt.want)
			assert.NotContains(t, res.Error, "sendReportArgs")
			assert.Empty(t, fe.recipient)
		})
	}
}

func TestInvoke_WithoutRejectReturnsError(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Capability{
		Name:    "echo",
		Params:  []Param{{Name: "text", Type: TypeString, Required: true}},
		Handler: func(_ context.Context, args map[string]any) (any, error) { return args["text"], nil },
	}))

	_, err := r.Invoke(context.Background(), "echo", nil)
	assert.Equal(t, model.KindInvalidArgument, kindOf(t, err))
}

func TestDecode_UsesArgumentNames(t *testing.T) {
	var in struct {
		To string `json:"to" validate:"required"`
	}
	f := Decode(map[string]any{}, &in)
	require.NotNil(t, f)
	assert.Equal(t, model.KindInvalidArgument, f.Kind)
	assert.Contains(t, f.Message, `"to"`)
}

func TestRegister_Duplicate(t *testing.T) {
	r := NewRegistry()
	h := func(context.Context, map[string]any) (any, error) { return nil, nil }
	require.NoError(t, r.Register(&Capability{Name: "a", Handler: h}))
	assert.Error(t, r.Register(&Capability{Name: "a", Handler: h}))
	assert.Error(t, r.Register(&Capability{Name: "b"}))
}

func toObject(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
