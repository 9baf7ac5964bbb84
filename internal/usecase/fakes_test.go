package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ShortsPipeline/internal/domain"
	"ShortsPipeline/internal/ports"
)

// mockCompletionClient is a testify mock of ports.CompletionClient.
type mockCompletionClient struct {
	mock.Mock
}

func (m *mockCompletionClient) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockCompletionClient) CompleteJSON(ctx context.Context, req ports.CompletionRequest, out any) error {
	args := m.Called(ctx, req, out)
	return args.Error(0)
}

// decodeInto makes a mocked CompleteJSON fill its out argument from payload.
func decodeInto(payload string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		if err := json.Unmarshal([]byte(payload), args.Get(2)); err != nil {
			panic(err)
		}
	}
}

// scriptedClient answers by matching a key against the user prompt. Unparseable
// replies surface as MalformedOutputError, like the real client.
type scriptedClient struct {
	mu        sync.Mutex
	replies   map[string]string
	errs      map[string]error
	selection string
	prompts   []ports.CompletionRequest
	block     bool
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{replies: map[string]string{}, errs: map[string]error{}}
}

func (c *scriptedClient) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, req)
	block := c.block
	c.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if req.SystemPrompt == selectionSystemPrompt {
		return c.selection, nil
	}
	for key, err := range c.errs {
		if strings.Contains(req.UserPrompt, key) {
			return "", err
		}
	}
	for key, reply := range c.replies {
		if strings.Contains(req.UserPrompt, key) {
			return reply, nil
		}
	}
	return "{}", nil
}

func (c *scriptedClient) CompleteJSON(ctx context.Context, req ports.CompletionRequest, out any) error {
	raw, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &domain.MalformedOutputError{Raw: raw, Err: err}
	}
	return nil
}

func (c *scriptedClient) calls() []ports.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ports.CompletionRequest(nil), c.prompts...)
}

// logCapture records JSON log lines for assertions.
type logCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *logCapture) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *logCapture) logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(l, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (l *logCapture) records(t *testing.T, level string) []map[string]any {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(l.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["level"] == level {
			out = append(out, rec)
		}
	}
	return out
}

func news(title, url string) domain.NewsRecord {
	return domain.NewsRecord{Title: title, URL: url, Origin: domain.OriginGoogleNews, OriginLabel: "Press"}
}

func selection(title string) domain.CurationResult {
	return domain.CurationResult{
		Record:   news(title, "https://example.com/"+title),
		HookIdea: "hook for " + title,
	}
}
