package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShortsPipeline/internal/config"
)

const feedBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Google News</title>
<item><title>Alpha launch - Press A</title><link>https://example.com/alpha</link><description>alpha</description></item>
<item><title>Bravo funding - Press B</title><link>https://example.com/bravo</link><description>bravo</description></item>
</channel></rss>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = io.WriteString(w, feedBody)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newModelServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) != 2 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var content string
		if strings.Contains(req.Messages[0].Content, "큐레이터") {
			content = `{"selected":[{"index":1,"reason":"money","hook_idea":"big round"}]}`
		} else {
			content = "```json\n" + `{"title":"Bravo in 60s","script":{"hook":"h","body":"b","outro":"o"},"full_script":"가나다라","keywords":["funding"],"hashtags":["#startup"],"description":"d"}` + "\n```"
		}
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, feedURL, modelURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Logging: config.LoggingConfig{Level: "error"},
		LLM:     config.LLMConfig{Endpoint: modelURL, Model: "test-model", APIKey: "key", TimeoutSeconds: 5},
		Pipeline: config.PipelineConfig{
			SelectionCount:    1,
			ScriptConcurrency: 2,
			SourceConcurrency: 2,
			SkipProcessed:     true,
		},
		Sources: []config.SourceConfig{
			{Name: "gn", Scanner: config.ScannerGoogleNews, Limit: 10, BaseURL: feedURL},
		},
		Storage: config.StorageConfig{Driver: "sqlite", DSN: filepath.Join(dir, "history.db")},
		Output:  config.OutputConfig{Dir: filepath.Join(dir, "out")},
		Metrics: config.MetricsConfig{Textfile: filepath.Join(dir, "shorts.prom")},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnceEndToEnd(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, newFeedServer(t).URL, newModelServer(t).URL)
	application, err := New(context.Background(), cfg, Options{}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	result := application.RunOnce(context.Background())
	require.True(t, result.Success, "errors: %v", result.Errors)
	require.Len(t, result.Selections, 1)
	assert.Equal(t, "Bravo funding", result.Selections[0].Record.Title)
	assert.Equal(t, "Press B", result.Selections[0].Record.OriginLabel)
	require.Len(t, result.Scripts, 1)
	assert.Equal(t, "Bravo in 60s", result.Scripts[0].Title)
	assert.Equal(t, 4, result.Scripts[0].CharacterCount())

	require.Len(t, result.Artifacts, 2)
	for _, path := range result.Artifacts {
		_, err := os.Stat(path)
		require.NoError(t, err, path)
	}

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `shorts_candidates_total{source="gn"} 2`)
	assert.Contains(t, string(prom), `shorts_runs_total{status="success"} 1`)

	seen, err := application.history.AlreadyProcessed(context.Background(), []string{"https://example.com/alpha", "https://example.com/bravo"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"https://example.com/bravo": true}, seen)

	// Only Alpha remains, so the model's index 1 is out of range and nothing is selected.
	second := application.RunOnce(context.Background())
	require.True(t, second.Success, "errors: %v", second.Errors)
	assert.Empty(t, second.Selections)
	assert.Empty(t, second.Scripts)
}

func TestNewRejectsUnknownScanner(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	cfg.Sources = []config.SourceConfig{{Name: "x", Scanner: "nope", Limit: 1}}

	_, err := New(context.Background(), cfg, Options{}, quietLogger())
	assert.Error(t, err)
}
