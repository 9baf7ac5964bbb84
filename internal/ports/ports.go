package ports

import (
	"context"
	"time"

	"ShortsPipeline/internal/domain"
)

// NewsSource produces normalized records from one origin. Whole-source failures are
// logged by the implementation and surface as an empty slice.
type NewsSource interface {
	Name() string
	Fetch(ctx context.Context, query string, limit int) []domain.NewsRecord
}

// CandidateSource aggregates every configured news source into one candidate pool.
type CandidateSource interface {
	FetchCandidates(ctx context.Context, queryOverride string) []domain.NewsRecord
}

// CompletionRequest is a single system+user chat turn.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// CompletionClient talks to a chat model and decodes JSON contracts from its answers.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	CompleteJSON(ctx context.Context, req CompletionRequest, out any) error
}

// HistoryRepository persists processed URLs for deduplication across runs.
type HistoryRepository interface {
	AlreadyProcessed(ctx context.Context, urls []string) (map[string]bool, error)
	SaveProcessed(ctx context.Context, item domain.ProcessedScript) error
}

// ArtifactWriter hands generated scripts to downstream media synthesis.
type ArtifactWriter interface {
	WriteScript(ctx context.Context, script domain.ScriptRecord, at time.Time) (string, error)
	WriteRun(ctx context.Context, result domain.PipelineBatchResult) (string, error)
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
