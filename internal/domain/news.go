package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// SummaryMaxRunes bounds NewsRecord.Summary in code points.
const SummaryMaxRunes = 500

// Origin identifies which news source produced a record.
type Origin string

const (
	OriginGoogleNews Origin = "google_news"
	OriginNaverNews  Origin = "naver_news"
)

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	switch o {
	case OriginGoogleNews, OriginNaverNews:
		return true
	}
	return false
}

// NewsRecord is a normalized news item produced by a source.
type NewsRecord struct {
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	URL         string     `json:"url"`
	Origin      Origin     `json:"source"`
	OriginLabel string     `json:"source_name"`
	PublishedAt *time.Time `json:"published_at"`
	ImageURL    string     `json:"image_url,omitempty"`
}

var (
	errEmptyTitle = errors.New("news record: empty title")
	errEmptyURL   = errors.New("news record: empty url")
	errBadOrigin  = errors.New("news record: unknown origin")
)

// NewNewsRecord trims and validates the required fields and bounds the summary.
func NewNewsRecord(origin Origin, title, summary, url, label string) (NewsRecord, error) {
	if !origin.Valid() {
		return NewsRecord{}, errBadOrigin
	}
	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)
	if title == "" {
		return NewsRecord{}, errEmptyTitle
	}
	if url == "" {
		return NewsRecord{}, errEmptyURL
	}

	return NewsRecord{
		Title:       title,
		Summary:     TruncateRunes(strings.TrimSpace(summary), SummaryMaxRunes),
		URL:         url,
		Origin:      origin,
		OriginLabel: strings.TrimSpace(label),
	}, nil
}

// CurationResult is a record chosen by the selector together with the model's rationale.
type CurationResult struct {
	Record          NewsRecord `json:"news"`
	SelectionReason string     `json:"selection_reason"`
	HookIdea        string     `json:"hook_idea"`
}

// TruncateRunes cuts s to at most n code points.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
