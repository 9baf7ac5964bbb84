package domain

import "time"

// PipelineBatchResult summarizes one pipeline run.
type PipelineBatchResult struct {
	RunID      string           `json:"run_id"`
	Selections []CurationResult `json:"selections"`
	Scripts    []ScriptRecord   `json:"scripts"`
	Artifacts  []string         `json:"artifacts"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at"`
	Success    bool             `json:"success"`
	Errors     []string         `json:"errors"`
}

// NewPipelineBatchResult starts a successful, empty run.
func NewPipelineBatchResult(runID string, startedAt time.Time) PipelineBatchResult {
	return PipelineBatchResult{
		RunID:     runID,
		StartedAt: startedAt,
		Success:   true,
	}
}

// AddError records a failure and marks the run unsuccessful.
func (r *PipelineBatchResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Success = false
}

// AddItemError records a per-item failure without failing the whole run.
func (r *PipelineBatchResult) AddItemError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Finish stamps the completion time.
func (r *PipelineBatchResult) Finish(at time.Time) {
	r.FinishedAt = &at
}

// Duration is zero until the run is finished.
func (r PipelineBatchResult) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ProcessingStatus enumerates history milestones.
type ProcessingStatus string

const (
	StatusSelected ProcessingStatus = "selected"
	StatusScripted ProcessingStatus = "scripted"
	StatusFailed   ProcessingStatus = "failed"
)

// ProcessedScript is the history row persisted for deduplication across runs.
type ProcessedScript struct {
	URL         string
	Title       string
	Origin      Origin
	ScriptTitle string
	Characters  int
	Status      ProcessingStatus
	ProcessedAt time.Time
}
