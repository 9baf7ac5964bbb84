package parser

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ShortsPipeline/internal/domain"
	"ShortsPipeline/internal/infrastructure/ratelimit"
	"ShortsPipeline/internal/ports"
)

const (
	naverSectionURL     = "https://news.naver.com/section/105"
	naverSearchURL      = "https://search.naver.com/search.naver"
	naverDisplayName    = "Naver News"
	naverSectionLabel   = "네이버 뉴스"
	naverSectionPath    = "/section/105"
	naverSearchPath     = "/search.naver"
	naverSearchSortNews = "1"
)

// pageLayout names the CSS selectors for one Naver page type.
type pageLayout struct {
	item         string
	title        string
	summary      string
	press        string
	image        string
	defaultLabel string
}

var (
	sectionLayout = pageLayout{
		item:         "div.section_article ul li",
		title:        "a.sa_text_title",
		summary:      "div.sa_text_lede",
		press:        "div.sa_text_press",
		image:        "img",
		defaultLabel: naverSectionLabel,
	}
	searchLayout = pageLayout{
		item:         "div.news_area",
		title:        "a.news_tit",
		summary:      "div.news_dsc",
		press:        "a.info.press",
		image:        "img.thumb",
		defaultLabel: unknownPublisher,
	}

	errMissingTitleLink = errors.New("title link not found")
)

// NaverOptions overrides the page endpoints, mainly for tests and mirrors.
type NaverOptions struct {
	Name       string
	SectionURL string
	SearchURL  string
}

// NaverOptionsFromBase points both endpoints at one host.
func NaverOptionsFromBase(name, base string) NaverOptions {
	base = strings.TrimSuffix(base, "/")
	return NaverOptions{
		Name:       name,
		SectionURL: base + naverSectionPath,
		SearchURL:  base + naverSearchPath,
	}
}

// NaverSource scrapes the Naver IT/Science section or the news search page.
type NaverSource struct {
	opts    NaverOptions
	fetcher fetcher
	logger  *slog.Logger
}

var _ ports.NewsSource = (*NaverSource)(nil)

// NewNaverSource wires an HTTP client and optional per-host limiter.
func NewNaverSource(opts NaverOptions, client *http.Client, limiter *ratelimit.HostLimiter, log *slog.Logger) *NaverSource {
	if opts.Name == "" {
		opts.Name = naverDisplayName
	}
	if opts.SectionURL == "" {
		opts.SectionURL = naverSectionURL
	}
	if opts.SearchURL == "" {
		opts.SearchURL = naverSearchURL
	}
	if log == nil {
		log = slog.Default()
	}
	headers := map[string]string{
		"User-Agent":      browserUserAgent,
		"Accept-Language": acceptLanguageKO,
	}
	return &NaverSource{opts: opts, fetcher: newFetcher(client, limiter, headers), logger: log}
}

// Name identifies the source in logs and metrics.
func (n *NaverSource) Name() string {
	return n.opts.Name
}

// Fetch reads the section page for an empty query and the search page otherwise.
func (n *NaverSource) Fetch(ctx context.Context, query string, limit int) []domain.NewsRecord {
	if limit <= 0 {
		n.logger.Warn("non-positive limit, nothing to fetch", "limit", limit)
		return nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		n.logger.Info("fetching naver section")
		return n.scrape(ctx, n.opts.SectionURL, sectionLayout, limit)
	}

	params := url.Values{}
	params.Set("where", "news")
	params.Set("query", query)
	params.Set("sort", naverSearchSortNews)
	n.logger.Info("searching naver news", "query", query)
	return n.scrape(ctx, n.opts.SearchURL+"?"+params.Encode(), searchLayout, limit)
}

func (n *NaverSource) scrape(ctx context.Context, pageURL string, layout pageLayout, limit int) []domain.NewsRecord {
	body, err := n.fetcher.get(ctx, pageURL)
	if err != nil {
		n.logger.Error("naver fetch failed", "url", pageURL, "error", err)
		return nil
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		n.logger.Error("naver parse failed", "url", pageURL, "error", err)
		return nil
	}

	base, _ := url.Parse(pageURL)
	var records []domain.NewsRecord
	doc.Find(layout.item).EachWithBreak(func(i int, item *goquery.Selection) bool {
		record, err := parseNaverItem(item, layout, base)
		if err != nil {
			n.logger.Warn("skip page entry", "index", i, "error", err)
			return true
		}
		records = append(records, record)
		return len(records) < limit
	})

	n.logger.Info("fetched naver news", "count", len(records))
	return records
}

func parseNaverItem(item *goquery.Selection, layout pageLayout, base *url.URL) (domain.NewsRecord, error) {
	link := item.Find(layout.title).First()
	if link.Length() == 0 {
		return domain.NewsRecord{}, errMissingTitleLink
	}
	href, _ := link.Attr("href")

	label := collapseSpace(item.Find(layout.press).First().Text())
	if label == "" {
		label = layout.defaultLabel
	}

	record, err := domain.NewNewsRecord(
		domain.OriginNaverNews,
		collapseSpace(link.Text()),
		collapseSpace(item.Find(layout.summary).First().Text()),
		resolveLink(base, href),
		label,
	)
	if err != nil {
		return domain.NewsRecord{}, err
	}

	if src, ok := item.Find(layout.image).First().Attr("src"); ok {
		record.ImageURL = resolveLink(base, src)
	}
	return record, nil
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
