package parser

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ShortsPipeline/internal/config"
	"ShortsPipeline/internal/domain"
	"ShortsPipeline/internal/ports"
	"ShortsPipeline/internal/scanner"
)

// CandidateObserver is notified with the record count each source produced.
type CandidateObserver interface {
	ObserveCandidates(source string, count int)
}

type configuredSource struct {
	source ports.NewsSource
	query  string
	limit  int
}

// MultiSource implements CandidateSource over registry-built news sources.
type MultiSource struct {
	sources     []configuredSource
	concurrency int
	observer    CandidateObserver
	logger      *slog.Logger
}

var _ ports.CandidateSource = (*MultiSource)(nil)

// NewMultiSource resolves every configured entry through the registry. An unknown
// scanner name is a configuration error.
func NewMultiSource(reg *scanner.Registry, entries []config.SourceConfig, concurrency int, log *slog.Logger) (*MultiSource, error) {
	if reg == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	if log == nil {
		log = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}

	sources := make([]configuredSource, 0, len(entries))
	for _, entry := range entries {
		src, err := reg.Build(entry, log)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", entry.Name, err)
		}
		sources = append(sources, configuredSource{source: src, query: entry.Query, limit: entry.Limit})
	}

	return &MultiSource{sources: sources, concurrency: concurrency, logger: log}, nil
}

// WithObserver attaches a per-source count observer.
func (m *MultiSource) WithObserver(observer CandidateObserver) *MultiSource {
	m.observer = observer
	return m
}

// FetchCandidates queries all sources concurrently and concatenates their records in
// configuration order, dropping repeated URLs. A non-empty queryOverride replaces
// every configured query.
func (m *MultiSource) FetchCandidates(ctx context.Context, queryOverride string) []domain.NewsRecord {
	m.logger.Debug("fetch candidates", "sources", len(m.sources))

	perSource := make([][]domain.NewsRecord, len(m.sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, cs := range m.sources {
		i, cs := i, cs
		query := cs.query
		if queryOverride != "" {
			query = queryOverride
		}
		g.Go(func() error {
			perSource[i] = cs.source.Fetch(gctx, query, cs.limit)
			return nil
		})
	}
	_ = g.Wait()

	seen := map[string]struct{}{}
	var aggregated []domain.NewsRecord
	for i, records := range perSource {
		name := m.sources[i].source.Name()
		m.logger.Debug("source produced records", "source", name, "count", len(records))
		if m.observer != nil {
			m.observer.ObserveCandidates(name, len(records))
		}
		for _, record := range records {
			if _, dup := seen[record.URL]; dup {
				continue
			}
			seen[record.URL] = struct{}{}
			aggregated = append(aggregated, record)
		}
	}

	m.logger.Info("candidates collected", "total", len(aggregated))
	return aggregated
}
