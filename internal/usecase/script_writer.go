package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ShortsPipeline/internal/domain"
	"ShortsPipeline/internal/ports"
)

// ItemFailure records one selection that produced no script.
type ItemFailure struct {
	Index int
	Title string
	Err   error
}

func (f ItemFailure) Error() string {
	return fmt.Sprintf("script %d (%s): %v", f.Index, f.Title, f.Err)
}

// BatchResult accumulates successful scripts next to per-item failures.
// Scripts keep the relative input order of their selections.
type BatchResult struct {
	Scripts  []domain.ScriptRecord
	Failures []ItemFailure
}

// ScriptWriter expands selections into narration scripts.
type ScriptWriter struct {
	client       ports.CompletionClient
	logger       *slog.Logger
	concurrency  int
	batchTimeout time.Duration
}

// ScriptWriterOption customizes a ScriptWriter.
type ScriptWriterOption func(*ScriptWriter)

// WithConcurrency bounds how many scripts are generated at once. Values below 1 mean sequential.
func WithConcurrency(n int) ScriptWriterOption {
	return func(w *ScriptWriter) {
		if n < 1 {
			n = 1
		}
		w.concurrency = n
	}
}

// WithBatchTimeout bounds the wall time of GenerateBatch. Zero disables the deadline.
func WithBatchTimeout(d time.Duration) ScriptWriterOption {
	return func(w *ScriptWriter) {
		w.batchTimeout = d
	}
}

// NewScriptWriter wires the completion client.
func NewScriptWriter(client ports.CompletionClient, log *slog.Logger, opts ...ScriptWriterOption) *ScriptWriter {
	if log == nil {
		log = slog.Default()
	}
	w := &ScriptWriter{client: client, logger: log, concurrency: 1}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type scriptResponse struct {
	Title  lenientText `json:"title"`
	Script struct {
		Hook  lenientText `json:"hook"`
		Body  lenientText `json:"body"`
		Outro lenientText `json:"outro"`
	} `json:"script"`
	FullScript  lenientText `json:"full_script"`
	Keywords    stringList  `json:"keywords"`
	Hashtags    stringList  `json:"hashtags"`
	Description lenientText `json:"description"`
}

// Generate produces one script; any client failure is logged and returned.
func (w *ScriptWriter) Generate(ctx context.Context, selection domain.CurationResult) (domain.ScriptRecord, error) {
	script, err := w.generate(ctx, selection)
	if err != nil {
		w.logger.Error("script generation failed", "title", selection.Record.Title, "error", err)
		return domain.ScriptRecord{}, err
	}
	return script, nil
}

func (w *ScriptWriter) generate(ctx context.Context, selection domain.CurationResult) (domain.ScriptRecord, error) {
	if w.client == nil {
		return domain.ScriptRecord{}, fmt.Errorf("generate script: completion client is not configured")
	}

	news := selection.Record
	w.logger.Info("writing script", "title", domain.TruncateRunes(news.Title, 50))

	var resp scriptResponse
	err := w.client.CompleteJSON(ctx, ports.CompletionRequest{
		SystemPrompt: scriptSystemPrompt,
		UserPrompt:   scriptUserPrompt(selection),
		Temperature:  scriptTemperature,
		MaxTokens:    scriptMaxTokens,
	}, &resp)
	if err != nil {
		return domain.ScriptRecord{}, err
	}

	title := news.Title
	if strings.TrimSpace(string(resp.Title)) != "" {
		title = string(resp.Title)
	}

	script := domain.ScriptRecord{
		Title:       title,
		Hook:        string(resp.Script.Hook),
		Body:        string(resp.Script.Body),
		Outro:       string(resp.Script.Outro),
		FullScript:  string(resp.FullScript),
		Keywords:    nonNil(resp.Keywords),
		Hashtags:    nonNil(resp.Hashtags),
		Description: string(resp.Description),
		SourceURL:   news.URL,
	}

	w.logger.Info("script generated",
		"title", domain.TruncateRunes(script.Title, 50),
		"characters", script.CharacterCount(),
		"estimated_seconds", fmt.Sprintf("%.1f", script.EstimatedDurationSeconds()),
	)
	return script, nil
}

// GenerateBatch attempts every selection independently. A failed item is logged once and
// reported in Failures; it never cancels or reorders the others.
func (w *ScriptWriter) GenerateBatch(ctx context.Context, selections []domain.CurationResult) BatchResult {
	if len(selections) == 0 {
		return BatchResult{}
	}
	if w.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.batchTimeout)
		defer cancel()
	}

	scripts := make([]domain.ScriptRecord, len(selections))
	errs := make([]error, len(selections))

	var g errgroup.Group
	g.SetLimit(w.concurrency)
	for i, selection := range selections {
		i, selection := i, selection
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			scripts[i], errs[i] = w.generate(ctx, selection)
			return nil
		})
	}
	_ = g.Wait()

	var result BatchResult
	for i, selection := range selections {
		if errs[i] != nil {
			failure := ItemFailure{Index: i, Title: selection.Record.Title, Err: errs[i]}
			w.logger.Error("failed to write script", "index", i, "title", selection.Record.Title, "error", errs[i])
			result.Failures = append(result.Failures, failure)
			continue
		}
		result.Scripts = append(result.Scripts, scripts[i])
	}

	w.logger.Info("script batch done", "generated", len(result.Scripts), "failed", len(result.Failures))
	return result
}

func nonNil(list stringList) []string {
	if list == nil {
		return []string{}
	}
	return list
}
