package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	for _, k := range []string{"SENDGRID_API_KEY", "FROM_EMAIL", "TO_EMAIL"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "delivery:\n  output_dir: " + dir + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		renderOut = ""
		deliverTo = ""
		runRecipient = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSummaryCommand(t *testing.T) {
	out, err := execute(t, "summary", "--config", writeConfig(t))
	require.NoError(t, err)

	var s model.MarketSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, model.StatusSuccess, s.Status)
	assert.NotEmpty(t, s.QuickRecommendations)
}

func TestRunCommand_NoRecipient(t *testing.T) {
	out, err := execute(t, "run", "--config", writeConfig(t))
	require.NoError(t, err)

	var res model.PipelineResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, model.StatusSkipped, res.Delivery.Status)
	assert.False(t, res.EmailSent)
}

func TestRenderCommand_WritesFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "report.html")
	_, err := execute(t, "render", "--config", writeConfig(t), "--out", target)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `id="hot-categories"`)
}

func TestDeliverCommand_RequiresRecipient(t *testing.T) {
	_, err := execute(t, "deliver", "--config", writeConfig(t))
	assert.ErrorContains(t, err, "no recipient")
}

func TestDeliverCommand_MissingCredentials(t *testing.T) {
	out, err := execute(t, "deliver", "--config", writeConfig(t), "--to", "seller@example.com")
	assert.Error(t, err)

	var res model.DeliveryResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, model.KindConfigurationMissing, res.ErrorKind)
}

func TestMissingExplicitConfig(t *testing.T) {
	_, err := execute(t, "summary", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEmptyExplicitConfig(t *testing.T) {
	_, err := execute(t, "summary", "--config", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config path is empty")
}
