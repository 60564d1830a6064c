package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/catalog"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/config"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/delivery"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
)

var fixedNow = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

type recordingChannel struct {
	mu    sync.Mutex
	sent  []*delivery.Message
	code  int
	panic bool
}

func (c *recordingChannel) Name() string      { return "recording" }
func (c *recordingChannel) AcceptedCode() int { return 202 }

func (c *recordingChannel) Send(_ context.Context, msg *delivery.Message) (*delivery.Receipt, error) {
	if c.panic {
		panic("channel exploded")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return &delivery.Receipt{StatusCode: c.code}, nil
}

func (c *recordingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type failingSummary struct {
	catalog.Provider
}

func (failingSummary) Summary() (*catalog.SummaryData, error) {
	return nil, errors.New("summary unavailable")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Delivery.OutputDir = t.TempDir()
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config, ch delivery.Channel, provider catalog.Provider) *Engine {
	t.Helper()
	e, err := NewEngineWithDeps(cfg, Deps{
		Provider: provider,
		Channel:  ch,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return e
}

func TestRun_NoRecipientSkipsDelivery(t *testing.T) {
	ch := &recordingChannel{code: 202}
	e := newTestEngine(t, testConfig(t), ch, nil)

	res := e.Run(context.Background())
	require.Equal(t, model.StatusSuccess, res.Status)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, model.MethodPipeline, res.AnalysisMethod)
	assert.Equal(t, model.StatusSuccess, res.MarketplaceAnalysis.Status)
	assert.Equal(t, model.StatusSuccess, res.Predictions.Status)
	assert.Equal(t, model.StatusSkipped, res.Delivery.Status)
	assert.False(t, res.EmailSent)
	assert.NotEmpty(t, res.Advantages)
	assert.Equal(t, fixedNow, res.CompletedAt)
	assert.Equal(t, 0, ch.count())
}

func TestRun_ReportsSummaryAndConfidence(t *testing.T) {
	res := newTestEngine(t, testConfig(t), &recordingChannel{code: 202}, nil).Run(context.Background())

	require.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, "AI analysis completed successfully", res.Summary)
	assert.Equal(t, model.ConfidenceVeryHigh, res.Confidence)
}

func TestRun_MalformedConfiguredRecipient(t *testing.T) {
	cfg := testConfig(t)
	cfg.Delivery.APIKey = "SG.test"
	cfg.Delivery.FromEmail = "radar@example.com"
	cfg.Delivery.ToEmail = "not-an-address"
	ch := &recordingChannel{code: 202}

	res := newTestEngine(t, cfg, ch, nil).Run(context.Background())
	require.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, model.StatusError, res.Delivery.Status)
	assert.Equal(t, model.KindInvalidArgument, res.Delivery.ErrorKind)
	assert.False(t, res.EmailSent)
	assert.Equal(t, 0, ch.count())
}

func TestRun_DeliversInPayloadOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Delivery.APIKey = "SG.test"
	cfg.Delivery.FromEmail = "radar@example.com"
	cfg.Delivery.ToEmail = "seller@example.com"
	ch := &recordingChannel{code: 202}

	var stages []int
	res := newTestEngine(t, cfg, ch, nil).RunWith(context.Background(), RunOptions{
		ProgressCallback: func(_ string, p int) { stages = append(stages, p) },
	})
	require.Equal(t, model.StatusSuccess, res.Status)
	assert.True(t, res.EmailSent)
	assert.NotEmpty(t, res.Delivery.ArtifactPath)
	assert.Equal(t, []int{0, 30, 60, 100}, stages)
	require.Equal(t, 1, ch.count())

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(ch.sent[0].HTML))
	require.NoError(t, err)
	var got []string
	doc.Find("#hot-categories .trend-item").Each(func(_ int, s *goquery.Selection) {
		got = append(got, strings.TrimSpace(s.Text()))
	})
	assert.Equal(t, res.Predictions.Predictions.HotCategories[:6], got)
}

func TestRun_RecipientOverride(t *testing.T) {
	cfg := testConfig(t)
	cfg.Delivery.APIKey = "SG.test"
	cfg.Delivery.FromEmail = "radar@example.com"
	ch := &recordingChannel{code: 202}

	res := newTestEngine(t, cfg, ch, nil).RunWith(context.Background(), RunOptions{Recipient: "buyer@example.com"})
	assert.True(t, res.EmailSent)
	require.Equal(t, 1, ch.count())
	assert.Equal(t, "buyer@example.com", ch.sent[0].To)
}

func TestRun_MissingCredentialIsReportedNotFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Delivery.ToEmail = "seller@example.com"
	ch := &recordingChannel{code: 202}

	res := newTestEngine(t, cfg, ch, nil).Run(context.Background())
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.False(t, res.EmailSent)
	assert.Equal(t, model.KindConfigurationMissing, res.Delivery.ErrorKind)
	assert.Equal(t, 0, ch.count())
}

func TestRun_PanicBecomesPipelineFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Delivery.APIKey = "SG.test"
	cfg.Delivery.FromEmail = "radar@example.com"
	cfg.Delivery.ToEmail = "seller@example.com"

	res := newTestEngine(t, cfg, &recordingChannel{panic: true}, nil).Run(context.Background())
	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, model.KindPipelineFailure, res.ErrorKind)
	assert.Contains(t, res.Error, "channel exploded")
	assert.NotEmpty(t, res.RunID)
}

func TestRun_ConcurrentRunsAreIndependent(t *testing.T) {
	e := newTestEngine(t, testConfig(t), &recordingChannel{code: 202}, nil)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = e.Run(context.Background()).RunID
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestSummary(t *testing.T) {
	e := newTestEngine(t, testConfig(t), &recordingChannel{code: 202}, nil)

	s := e.Summary(context.Background())
	assert.Equal(t, model.StatusSuccess, s.Status)
	assert.Equal(t, model.MethodSummary, s.Method)
	assert.Len(t, s.KeyInsights, 5)
	assert.Len(t, s.QuickRecommendations, 5)
	assert.Equal(t, model.ConfidenceVeryHigh, s.Confidence)
	assert.Equal(t, fixedNow, s.SummaryGeneratedAt)
}

func TestSummary_ProviderFailure(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	e := newTestEngine(t, testConfig(t), &recordingChannel{code: 202}, failingSummary{Provider: cat})

	s := e.Summary(context.Background())
	assert.Equal(t, model.StatusError, s.Status)
	assert.Equal(t, model.KindProviderFailure, s.ErrorKind)
	assert.Equal(t, model.MethodSummary, s.Method)
}

func TestSendReport_GeneratesPredictionsWhenAbsent(t *testing.T) {
	cfg := testConfig(t)
	cfg.Delivery.APIKey = "SG.test"
	cfg.Delivery.FromEmail = "radar@example.com"
	ch := &recordingChannel{code: 202}

	res := newTestEngine(t, cfg, ch, nil).SendReport(context.Background(), nil, "seller@example.com")
	assert.Equal(t, model.StatusSuccess, res.Status)
	require.Equal(t, 1, ch.count())
	assert.Contains(t, ch.sent[0].HTML, "hot-categories")
}

func TestNewEngine_UnknownChannel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Delivery.Provider = "pigeon"
	_, err := NewEngine(cfg)
	assert.Error(t, err)
}
