package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ShortsPipeline/internal/domain"
	"ShortsPipeline/internal/ports"
)

// RunRecorder receives per-run counters.
type RunRecorder interface {
	ObserveSelected(n int)
	ObserveScripts(generated, failed int)
	ObserveRun(success bool)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Repository, Artifacts, Notifier and Metrics are optional.
type PipelineDeps struct {
	Source         ports.CandidateSource
	Selector       *Selector
	Writer         *ScriptWriter
	Repository     ports.HistoryRepository
	Artifacts      ports.ArtifactWriter
	Notifier       ports.Notifier
	Metrics        RunRecorder
	Logger         *slog.Logger
	SelectionCount int
	QueryOverride  string
	SkipProcessed  bool
	NewRunID       func() string
	Now            func() time.Time
}

// Pipeline sequences sources, selection and script generation.
type Pipeline struct {
	source        ports.CandidateSource
	selector      *Selector
	writer        *ScriptWriter
	repository    ports.HistoryRepository
	artifacts     ports.ArtifactWriter
	notifier      ports.Notifier
	metrics       RunRecorder
	logger        *slog.Logger
	count         int
	query         string
	skipProcessed bool
	newRunID      func() string
	now           func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	newRunID := deps.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}
	clock := deps.Now
	if clock == nil {
		clock = time.Now
	}
	return &Pipeline{
		source:        deps.Source,
		selector:      deps.Selector,
		writer:        deps.Writer,
		repository:    deps.Repository,
		artifacts:     deps.Artifacts,
		notifier:      deps.Notifier,
		metrics:       deps.Metrics,
		logger:        log,
		count:         deps.SelectionCount,
		query:         deps.QueryOverride,
		skipProcessed: deps.SkipProcessed,
		newRunID:      newRunID,
		now:           clock,
	}
}

// Run executes one curation pass. Stage failures are reported in the result rather
// than returned; per-item failures do not fail the run.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (result domain.PipelineBatchResult) {
	result = domain.NewPipelineBatchResult(p.newRunID(), now)
	log := p.logger.With("run_id", result.RunID)
	log.Info("pipeline started")

	defer func() {
		if p.metrics != nil {
			p.metrics.ObserveRun(result.Success)
		}
	}()

	if p.source == nil || p.selector == nil || p.writer == nil {
		result.AddError("pipeline is not fully configured")
		return p.finish(ctx, log, result)
	}

	candidates := p.source.FetchCandidates(ctx, p.query)
	if len(candidates) == 0 {
		result.AddError("no candidates collected")
		return p.finish(ctx, log, result)
	}

	candidates, err := p.dropProcessed(ctx, log, candidates)
	if err != nil {
		result.AddError(err.Error())
		return p.finish(ctx, log, result)
	}
	if len(candidates) == 0 {
		log.Info("every candidate was already processed")
		return p.finish(ctx, log, result)
	}

	selections, err := p.selector.Select(ctx, candidates, p.count)
	if err != nil {
		result.AddError(fmt.Sprintf("select: %v", err))
		return p.finish(ctx, log, result)
	}
	result.Selections = selections
	if p.metrics != nil {
		p.metrics.ObserveSelected(len(selections))
	}
	p.remember(ctx, log, selections, nil, domain.StatusSelected, now)

	batch := p.writer.GenerateBatch(ctx, selections)
	result.Scripts = batch.Scripts
	for _, failure := range batch.Failures {
		result.AddItemError(failure.Error())
	}
	if p.metrics != nil {
		p.metrics.ObserveScripts(len(batch.Scripts), len(batch.Failures))
	}
	if len(selections) > 0 && len(batch.Scripts) == 0 {
		result.AddError("no scripts generated")
	}

	for _, script := range batch.Scripts {
		p.writeScript(ctx, log, &result, script, now)
	}
	p.rememberOutcome(ctx, log, selections, batch, now)

	return p.finish(ctx, log, result)
}

func (p *Pipeline) dropProcessed(ctx context.Context, log *slog.Logger, candidates []domain.NewsRecord) ([]domain.NewsRecord, error) {
	if !p.skipProcessed || p.repository == nil {
		return candidates, nil
	}

	urls := make([]string, len(candidates))
	for i, c := range candidates {
		urls[i] = c.URL
	}
	seen, err := p.repository.AlreadyProcessed(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("load processed: %w", err)
	}

	fresh := candidates[:0:0]
	for _, c := range candidates {
		if !seen[c.URL] {
			fresh = append(fresh, c)
		}
	}
	log.Debug("history filter", "before", len(candidates), "after", len(fresh))
	return fresh, nil
}

func (p *Pipeline) writeScript(ctx context.Context, log *slog.Logger, result *domain.PipelineBatchResult, script domain.ScriptRecord, now time.Time) {
	if p.artifacts == nil {
		return
	}
	path, err := p.artifacts.WriteScript(ctx, script, now)
	if err != nil {
		log.Error("write script artifact", "title", script.Title, "error", err)
		result.AddItemError(fmt.Sprintf("artifact %s: %v", script.Title, err))
		return
	}
	result.Artifacts = append(result.Artifacts, path)
}

// rememberOutcome marks scripted and failed selections in history.
func (p *Pipeline) rememberOutcome(ctx context.Context, log *slog.Logger, selections []domain.CurationResult, batch BatchResult, now time.Time) {
	if p.repository == nil {
		return
	}
	failed := make(map[int]bool, len(batch.Failures))
	for _, f := range batch.Failures {
		failed[f.Index] = true
	}

	var scripted, failures []domain.CurationResult
	for i, sel := range selections {
		if failed[i] {
			failures = append(failures, sel)
		} else {
			scripted = append(scripted, sel)
		}
	}
	p.remember(ctx, log, scripted, batch.Scripts, domain.StatusScripted, now)
	p.remember(ctx, log, failures, nil, domain.StatusFailed, now)
}

func (p *Pipeline) remember(ctx context.Context, log *slog.Logger, selections []domain.CurationResult, scripts []domain.ScriptRecord, status domain.ProcessingStatus, now time.Time) {
	if p.repository == nil {
		return
	}
	for i, sel := range selections {
		item := domain.ProcessedScript{
			URL:         sel.Record.URL,
			Title:       sel.Record.Title,
			Origin:      sel.Record.Origin,
			Status:      status,
			ProcessedAt: now,
		}
		if i < len(scripts) {
			item.ScriptTitle = scripts[i].Title
			item.Characters = scripts[i].CharacterCount()
		}
		if err := p.repository.SaveProcessed(ctx, item); err != nil {
			log.Error("persist history", "url", item.URL, "status", status, "error", err)
		}
	}
}

func (p *Pipeline) finish(ctx context.Context, log *slog.Logger, result domain.PipelineBatchResult) domain.PipelineBatchResult {
	result.Finish(p.now())

	if p.artifacts != nil {
		path, err := p.artifacts.WriteRun(ctx, result)
		if err != nil {
			log.Error("write run summary", "error", err)
		} else {
			result.Artifacts = append(result.Artifacts, path)
		}
	}

	if p.notifier != nil && (len(result.Scripts) > 0 || !result.Success) {
		if err := p.notifier.PublishDigest(ctx, buildDigestMessage(result)); err != nil {
			log.Error("publish digest", "error", err)
		}
	}

	log.Info("pipeline finished",
		"success", result.Success,
		"selected", len(result.Selections),
		"scripts", len(result.Scripts),
		"errors", len(result.Errors),
		"duration", result.Duration(),
	)
	return result
}

func buildDigestMessage(result domain.PipelineBatchResult) string {
	var b strings.Builder
	status := "ok"
	if !result.Success {
		status = "failed"
	}
	fmt.Fprintf(&b, "Shorts run %s (%s): %d selected, %d scripts\n\n",
		result.RunID, status, len(result.Selections), len(result.Scripts))

	for _, script := range result.Scripts {
		fmt.Fprintf(&b, "- %s\n%d chars, ~%.0fs\n%s\n\n",
			script.Title,
			script.CharacterCount(),
			script.EstimatedDurationSeconds(),
			script.SourceURL)
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(&b, "! %s\n", msg)
	}
	return strings.TrimSpace(b.String())
}
