package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"ShortsPipeline/internal/infrastructure/ratelimit"
)

const (
	defaultFetchTimeout = 10 * time.Second
	browserUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptLanguageKO    = "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7"
)

// fetcher performs paced GET requests shared by the concrete sources.
type fetcher struct {
	client  *http.Client
	limiter *ratelimit.HostLimiter
	headers map[string]string
}

func newFetcher(client *http.Client, limiter *ratelimit.HostLimiter, headers map[string]string) fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return fetcher{client: client, limiter: limiter, headers: headers}
}

// get returns the body of a 200 response; the caller closes it.
func (f fetcher) get(ctx context.Context, pageURL string) (io.ReadCloser, error) {
	if err := f.limiter.Wait(ctx, pageURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, value := range f.headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", pageURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}
	return resp.Body, nil
}
