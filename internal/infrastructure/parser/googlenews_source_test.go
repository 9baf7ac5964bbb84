package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ShortsPipeline/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rssFeed(items ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Google News</title>` + strings.Join(items, "") + `</channel></rss>`
}

func rssItem(title, link, description string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><description><![CDATA[%s]]></description><pubDate>Mon, 03 Nov 2025 09:30:00 GMT</pubDate></item>`,
		title, link, description)
}

func newGoogleTestSource(t *testing.T, body string, status int) (*GoogleNewsSource, func() string) {
	t.Helper()

	var (
		mu       sync.Mutex
		rawQuery string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rss/search" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		rawQuery = r.URL.RawQuery
		mu.Unlock()
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	src := NewGoogleNewsSource(GoogleNewsOptions{BaseURL: srv.URL}, srv.Client(), nil, discardLogger())
	return src, func() string {
		mu.Lock()
		defer mu.Unlock()
		return rawQuery
	}
}

func TestGoogleNewsFetchRespectsLimit(t *testing.T) {
	t.Parallel()

	items := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		items = append(items, rssItem(fmt.Sprintf("Headline %d - Press %d", i, i), fmt.Sprintf("https://example.com/%d", i), "<p>body</p>"))
	}
	src, _ := newGoogleTestSource(t, rssFeed(items...), http.StatusOK)

	records := src.Fetch(context.Background(), "AI", 5)
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.Title != fmt.Sprintf("Headline %d", i) {
			t.Fatalf("record %d: unexpected title %q", i, rec.Title)
		}
	}
}

func TestGoogleNewsFetchSkipsUnparseableEntries(t *testing.T) {
	t.Parallel()

	feed := rssFeed(
		rssItem("", "https://example.com/no-title", "x"),
		rssItem("Valid one - Press", "https://example.com/1", "x"),
		rssItem("No link - Press", "", "x"),
		rssItem("   ", "", ""),
		rssItem("Valid two - Press", "https://example.com/2", "x"),
		rssItem("", "", ""),
	)
	src, _ := newGoogleTestSource(t, feed, http.StatusOK)

	records := src.Fetch(context.Background(), "", 10)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Title != "Valid one" || records[1].Title != "Valid two" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestGoogleNewsParsesEntryFields(t *testing.T) {
	t.Parallel()

	feed := rssFeed(rssItem("AI chip - launch - 테크신문", "https://example.com/chip", `<a href="x">New chip</a>&nbsp;ships &amp; sells`))
	src, rawQuery := newGoogleTestSource(t, feed, http.StatusOK)

	records := src.Fetch(context.Background(), "", 3)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Title != "AI chip - launch" || rec.OriginLabel != "테크신문" {
		t.Fatalf("unexpected title split: %q / %q", rec.Title, rec.OriginLabel)
	}
	if rec.Summary != "New chip ships & sells" {
		t.Fatalf("unexpected summary: %q", rec.Summary)
	}
	if rec.Origin != domain.OriginGoogleNews {
		t.Fatalf("unexpected origin: %s", rec.Origin)
	}
	if rec.PublishedAt == nil || !rec.PublishedAt.Equal(time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published_at: %v", rec.PublishedAt)
	}
	query := rawQuery()
	if !strings.Contains(query, "ceid=KR%3Ako") || !strings.Contains(query, "hl=ko") {
		t.Fatalf("unexpected query: %s", query)
	}
	if !strings.Contains(query, "q=IT+%ED%85%8C%ED%81%AC") {
		t.Fatalf("default query not applied: %s", query)
	}
}

func TestGoogleNewsFailureYieldsEmpty(t *testing.T) {
	t.Parallel()

	src, _ := newGoogleTestSource(t, "oops", http.StatusServiceUnavailable)
	if records := src.Fetch(context.Background(), "AI", 5); len(records) != 0 {
		t.Fatalf("expected empty result, got %d", len(records))
	}

	broken, _ := newGoogleTestSource(t, "not a feed", http.StatusOK)
	if records := broken.Fetch(context.Background(), "AI", 5); len(records) != 0 {
		t.Fatalf("expected empty result for invalid feed, got %d", len(records))
	}
}

func TestSplitPublisher(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, title, publisher string
	}{
		{"Headline - Press", "Headline", "Press"},
		{"A - B - C", "A - B", "C"},
		{"No publisher", "No publisher", unknownPublisher},
		{"Trailing - ", "Trailing -", unknownPublisher},
	}
	for _, tc := range cases {
		title, publisher := splitPublisher(tc.in)
		if title != tc.title || publisher != tc.publisher {
			t.Fatalf("splitPublisher(%q) = %q, %q", tc.in, title, publisher)
		}
	}
}
