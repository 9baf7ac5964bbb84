package parser

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"ShortsPipeline/internal/domain"
	"ShortsPipeline/internal/infrastructure/ratelimit"
	"ShortsPipeline/internal/ports"
)

const (
	googleNewsBaseURL      = "https://news.google.com"
	googleNewsDefaultQuery = "IT 테크"
	googleNewsDisplayName  = "Google News"
	unknownPublisher       = "Unknown"
)

// GoogleNewsOptions tunes the RSS search request.
type GoogleNewsOptions struct {
	Name     string
	BaseURL  string
	Language string
	Country  string
}

// GoogleNewsSource reads the Google News RSS search feed.
type GoogleNewsSource struct {
	opts    GoogleNewsOptions
	fetcher fetcher
	logger  *slog.Logger
}

var _ ports.NewsSource = (*GoogleNewsSource)(nil)

// NewGoogleNewsSource wires an HTTP client and optional per-host limiter.
func NewGoogleNewsSource(opts GoogleNewsOptions, client *http.Client, limiter *ratelimit.HostLimiter, log *slog.Logger) *GoogleNewsSource {
	if opts.Name == "" {
		opts.Name = googleNewsDisplayName
	}
	if opts.BaseURL == "" {
		opts.BaseURL = googleNewsBaseURL
	}
	if opts.Language == "" {
		opts.Language = "ko"
	}
	if opts.Country == "" {
		opts.Country = "KR"
	}
	if log == nil {
		log = slog.Default()
	}
	return &GoogleNewsSource{
		opts:    opts,
		fetcher: newFetcher(client, limiter, map[string]string{"User-Agent": browserUserAgent}),
		logger:  log,
	}
}

// Name identifies the source in logs and metrics.
func (g *GoogleNewsSource) Name() string {
	return g.opts.Name
}

// Fetch returns at most limit records. Failures of the whole feed yield an empty slice.
func (g *GoogleNewsSource) Fetch(ctx context.Context, query string, limit int) []domain.NewsRecord {
	if limit <= 0 {
		g.logger.Warn("non-positive limit, nothing to fetch", "limit", limit)
		return nil
	}
	if strings.TrimSpace(query) == "" {
		query = googleNewsDefaultQuery
	}

	feedURL := g.searchURL(query)
	g.logger.Info("fetching google news", "query", query)

	body, err := g.fetcher.get(ctx, feedURL)
	if err != nil {
		g.logger.Error("google news fetch failed", "error", err)
		return nil
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		g.logger.Error("google news feed parse failed", "error", err)
		return nil
	}

	records := make([]domain.NewsRecord, 0, min(limit, len(feed.Items)))
	for i, item := range feed.Items {
		if len(records) == limit {
			break
		}
		record, err := g.parseItem(item)
		if err != nil {
			g.logger.Warn("skip feed entry", "index", i, "error", err)
			continue
		}
		records = append(records, record)
	}

	g.logger.Info("fetched google news", "count", len(records))
	return records
}

func (g *GoogleNewsSource) searchURL(query string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", g.opts.Language)
	params.Set("gl", g.opts.Country)
	params.Set("ceid", g.opts.Country+":"+g.opts.Language)
	return strings.TrimSuffix(g.opts.BaseURL, "/") + "/rss/search?" + params.Encode()
}

func (g *GoogleNewsSource) parseItem(item *gofeed.Item) (domain.NewsRecord, error) {
	title, publisher := splitPublisher(item.Title)

	summary := item.Description
	if strings.TrimSpace(summary) == "" {
		summary = item.Content
	}

	record, err := domain.NewNewsRecord(domain.OriginGoogleNews, title, CleanText(summary), item.Link, publisher)
	if err != nil {
		return domain.NewsRecord{}, err
	}
	if item.PublishedParsed != nil {
		published := *item.PublishedParsed
		record.PublishedAt = &published
	}
	record.ImageURL = itemImage(item)
	return record, nil
}

// splitPublisher separates Google News' "Headline - Publisher" title format.
func splitPublisher(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	idx := strings.LastIndex(raw, " - ")
	if idx < 0 {
		return raw, unknownPublisher
	}
	publisher := strings.TrimSpace(raw[idx+3:])
	if publisher == "" {
		publisher = unknownPublisher
	}
	return strings.TrimSpace(raw[:idx]), publisher
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}
