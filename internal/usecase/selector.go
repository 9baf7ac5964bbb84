package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"ShortsPipeline/internal/domain"
	"ShortsPipeline/internal/ports"
)

// Selector asks the model to pick shorts-worthy candidates and resolves its indices.
type Selector struct {
	client ports.CompletionClient
	logger *slog.Logger
}

// NewSelector wires the completion client.
func NewSelector(client ports.CompletionClient, log *slog.Logger) *Selector {
	if log == nil {
		log = slog.Default()
	}
	return &Selector{client: client, logger: log}
}

type selectionResponse struct {
	Selected []json.RawMessage `json:"selected"`
}

type selectionEntry struct {
	Index    json.RawMessage `json:"index"`
	Reason   lenientText     `json:"reason"`
	HookIdea lenientText     `json:"hook_idea"`
}

var errNonIntegerIndex = errors.New("index is not an integer")

// Select returns at most count results in the order the model listed them.
// Model or parse failures are returned unchanged; invalid entries are dropped.
func (s *Selector) Select(ctx context.Context, candidates []domain.NewsRecord, count int) ([]domain.CurationResult, error) {
	if len(candidates) == 0 {
		s.logger.Warn("no candidates to select from")
		return nil, nil
	}
	if count <= 0 {
		return nil, fmt.Errorf("select: count must be positive, got %d", count)
	}
	if s.client == nil {
		return nil, fmt.Errorf("select: completion client is not configured")
	}

	s.logger.Info("selecting news", "count", count, "candidates", len(candidates))

	var resp selectionResponse
	err := s.client.CompleteJSON(ctx, ports.CompletionRequest{
		SystemPrompt: selectionSystemPrompt,
		UserPrompt:   selectionUserPrompt(candidates, count),
		Temperature:  selectionTemperature,
		MaxTokens:    selectionMaxTokens,
	}, &resp)
	if err != nil {
		s.logger.Error("news selection failed", "error", err)
		return nil, err
	}

	selected := make([]domain.CurationResult, 0, min(count, len(resp.Selected)))
	used := make(map[int]bool, len(resp.Selected))
	for pos, raw := range resp.Selected {
		index, entry, err := resolveEntry(raw, len(candidates))
		if err != nil {
			s.logger.Debug("skip selection entry", "position", pos, "error", err)
			continue
		}
		if used[index] {
			s.logger.Debug("skip duplicate selection", "position", pos, "index", index)
			continue
		}
		used[index] = true

		selected = append(selected, domain.CurationResult{
			Record:          candidates[index],
			SelectionReason: string(entry.Reason),
			HookIdea:        string(entry.HookIdea),
		})
		s.logger.Info("selected", "index", index, "title", domain.TruncateRunes(candidates[index].Title, 50))
	}

	if len(selected) > count {
		s.logger.Info("model returned more selections than requested, truncating", "returned", len(selected), "count", count)
		selected = selected[:count]
	}

	s.logger.Info("selection done", "selected", len(selected))
	return selected, nil
}

// resolveEntry decodes one model entry and bounds-checks its index against n.
func resolveEntry(raw json.RawMessage, n int) (int, selectionEntry, error) {
	var entry selectionEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return 0, entry, fmt.Errorf("decode entry: %w", err)
	}
	if len(entry.Index) == 0 || entry.Index[0] == '"' {
		return 0, entry, errNonIntegerIndex
	}

	var num json.Number
	if err := json.Unmarshal(entry.Index, &num); err != nil {
		return 0, entry, errNonIntegerIndex
	}
	index, err := num.Int64()
	if err != nil {
		return 0, entry, errNonIntegerIndex
	}
	if index < 0 || index >= int64(n) {
		return 0, entry, fmt.Errorf("index %d out of range [0, %d)", index, n)
	}
	return int(index), entry, nil
}
