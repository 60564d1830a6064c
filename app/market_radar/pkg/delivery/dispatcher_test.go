package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/catalog"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/config"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/report"
)

var fixedNow = time.Date(2025, 6, 15, 14, 5, 9, 0, time.UTC)

const sampleDocument = "<html><body><h1>Hot Categories</h1><ul><li>AI templates</li></ul></body></html>"

// fakeChannel 记录调用次数并返回预设回执
type fakeChannel struct {
	mu       sync.Mutex
	calls    int
	last     *Message
	code     int
	sendErr  error
	accepted int
}

// silentChannel 既不报错也不返回回执
type silentChannel struct{ fakeChannel }

func (s *silentChannel) Send(context.Context, *Message) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil, nil
}

func (f *fakeChannel) Name() string      { return "fake" }
func (f *fakeChannel) AcceptedCode() int { return f.accepted }

func (f *fakeChannel) Send(_ context.Context, msg *Message) (*Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = msg
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &Receipt{StatusCode: f.code}, nil
}

func readyConfig(dir string) config.DeliveryConfig {
	return config.DeliveryConfig{
		Provider:  "sendgrid",
		APIKey:    "SG.test",
		FromEmail: "radar@example.com",
		FromName:  "Market Radar",
		Subject:   config.DefaultSubject,
		OutputDir: dir,
	}
}

func newTestRenderer(t *testing.T) *report.Renderer {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	r, err := report.NewRenderer(c.ReportCopy())
	require.NoError(t, err)
	return r
}

func newTestDispatcher(t *testing.T, cfg config.DeliveryConfig, ch Channel) *Dispatcher {
	t.Helper()
	return NewDispatcher(cfg, ch, newTestRenderer(t), WithClock(func() time.Time { return fixedNow }))
}

func TestDeliver_MissingConfiguration(t *testing.T) {
	dir := t.TempDir()
	for name, mutate := range map[string]func(*config.DeliveryConfig){
		"no api key": func(c *config.DeliveryConfig) { c.APIKey = "" },
		"no sender":  func(c *config.DeliveryConfig) { c.FromEmail = "" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := readyConfig(dir)
			mutate(&cfg)
			ch := &fakeChannel{code: 202, accepted: 202}

			res := newTestDispatcher(t, cfg, ch).Deliver(context.Background(), sampleDocument, "seller@example.com")
			assert.Equal(t, model.StatusError, res.Status)
			assert.Equal(t, model.KindConfigurationMissing, res.ErrorKind)
			assert.Equal(t, 0, ch.calls)
			assert.Empty(t, res.ArtifactPath)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestDeliver_InvalidRecipient(t *testing.T) {
	dir := t.TempDir()
	ch := &fakeChannel{code: 202, accepted: 202}

	res := newTestDispatcher(t, readyConfig(dir), ch).Deliver(context.Background(), sampleDocument, "not-an-address")
	assert.Equal(t, model.KindInvalidArgument, res.ErrorKind)
	assert.Equal(t, 0, ch.calls)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeliver_AcceptedWritesArtifact(t *testing.T) {
	dir := t.TempDir()
	ch := &fakeChannel{code: 202, accepted: 202}

	res := newTestDispatcher(t, readyConfig(dir), ch).Deliver(context.Background(), sampleDocument, "seller@example.com")
	require.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, "AI analysis report sent to seller@example.com", res.Message)
	require.NotNil(t, res.SentAt)
	assert.Equal(t, fixedNow, *res.SentAt)

	assert.Equal(t, filepath.Join(dir, "ai_market_analysis_report_20250615_140509.html"), res.ArtifactPath)
	data, err := os.ReadFile(res.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, sampleDocument, string(data))

	require.Equal(t, 1, ch.calls)
	assert.Equal(t, "radar@example.com", ch.last.From)
	assert.Equal(t, "seller@example.com", ch.last.To)
	assert.Equal(t, config.DefaultSubject, ch.last.Subject)
	assert.Equal(t, sampleDocument, ch.last.HTML)
	assert.Contains(t, ch.last.Text, "AI templates")
}

func TestDeliver_RejectedKeepsArtifact(t *testing.T) {
	ch := &fakeChannel{code: 500, accepted: 202}

	res := newTestDispatcher(t, readyConfig(t.TempDir()), ch).Deliver(context.Background(), sampleDocument, "seller@example.com")
	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, model.KindDeliveryRejected, res.ErrorKind)
	assert.Contains(t, res.Error, "500")
	assert.NotEmpty(t, res.ArtifactPath)
	assert.Nil(t, res.SentAt)
}

func TestDeliver_TransportFailure(t *testing.T) {
	ch := &fakeChannel{sendErr: errors.New("connection reset"), accepted: 202}

	res := newTestDispatcher(t, readyConfig(t.TempDir()), ch).Deliver(context.Background(), sampleDocument, "seller@example.com")
	assert.Equal(t, model.KindTransportFailure, res.ErrorKind)
	assert.Contains(t, res.Error, "connection reset")
}

func TestDeliver_MissingReceipt(t *testing.T) {
	ch := &silentChannel{fakeChannel{accepted: 202}}

	var res *model.DeliveryResult
	require.NotPanics(t, func() {
		res = newTestDispatcher(t, readyConfig(t.TempDir()), ch).Deliver(context.Background(), sampleDocument, "seller@example.com")
	})
	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, model.KindTransportFailure, res.ErrorKind)
	assert.Contains(t, res.Error, "no receipt")
	assert.NotEmpty(t, res.ArtifactPath)
	assert.Equal(t, 1, ch.calls)
}

func TestDeliver_PersistFailureDoesNotAbort(t *testing.T) {
	// 以普通文件作为输出目录，落盘必然失败
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	ch := &fakeChannel{code: 202, accepted: 202}

	res := newTestDispatcher(t, readyConfig(blocker), ch).Deliver(context.Background(), sampleDocument, "seller@example.com")
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Empty(t, res.ArtifactPath)
	assert.Equal(t, 1, ch.calls)
}

func TestSendReport_SendGridChannel(t *testing.T) {
	for name, tc := range map[string]struct {
		code       int
		wantStatus model.Status
	}{
		"accepted": {http.StatusAccepted, model.StatusSuccess},
		"rejected": {http.StatusInternalServerError, model.StatusError},
	} {
		t.Run(name, func(t *testing.T) {
			var payload map[string]any
			var auth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &payload)
				w.WriteHeader(tc.code)
			}))
			defer srv.Close()

			ch := NewSendGridChannel("SG.test").WithBaseURL(srv.URL + "/v3/mail/send")
			d := newTestDispatcher(t, readyConfig(t.TempDir()), ch)

			c, err := catalog.Default()
			require.NoError(t, err)
			preds, err := c.Predictions()
			require.NoError(t, err)
			env := model.NewPredictionSuccess(preds, nil, "2025-07", "gemini_2.0_flash", fixedNow)

			res := d.SendReport(context.Background(), env, "seller@example.com")
			assert.Equal(t, tc.wantStatus, res.Status)
			assert.NotEmpty(t, res.ArtifactPath)
			assert.Equal(t, "Bearer SG.test", auth)
			assert.Equal(t, config.DefaultSubject, payload["subject"])
			if tc.wantStatus == model.StatusError {
				assert.Equal(t, model.KindDeliveryRejected, res.ErrorKind)
				assert.Contains(t, res.Error, "500")
			}
		})
	}
}

func TestSendReport_MissingConfigurationSkipsRender(t *testing.T) {
	cfg := readyConfig(t.TempDir())
	cfg.APIKey = ""
	ch := &fakeChannel{code: 202, accepted: 202}

	res := newTestDispatcher(t, cfg, ch).SendReport(context.Background(), nil, "seller@example.com")
	assert.Equal(t, model.KindConfigurationMissing, res.ErrorKind)
	assert.Equal(t, 0, ch.calls)
}

func TestNewChannel(t *testing.T) {
	ch, err := NewChannel(config.DeliveryConfig{Provider: "sendgrid", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "sendgrid", ch.Name())
	assert.Equal(t, 202, ch.AcceptedCode())

	ch, err = NewChannel(config.DeliveryConfig{Provider: "smtp", SMTP: config.SMTPConfig{Host: "mail.example.com", Port: 587}})
	require.NoError(t, err)
	assert.Equal(t, "smtp", ch.Name())
	assert.Equal(t, 250, ch.AcceptedCode())

	_, err = NewChannel(config.DeliveryConfig{Provider: "smtp"})
	assert.Error(t, err)
	_, err = NewChannel(config.DeliveryConfig{Provider: "pigeon"})
	assert.Error(t, err)
}

func TestArtifactName(t *testing.T) {
	assert.Equal(t, "ai_market_analysis_report_20250615_140509.html", ArtifactName(fixedNow))
}
