package parser

import (
	"log/slog"

	"ShortsPipeline/internal/config"
	"ShortsPipeline/internal/infrastructure/ratelimit"
	"ShortsPipeline/internal/ports"
	"ShortsPipeline/internal/scanner"
)

// Register installs the built-in scanners, sharing one limiter across them.
func Register(reg *scanner.Registry, limiter *ratelimit.HostLimiter) {
	reg.Register(config.ScannerGoogleNews, func(cfg config.SourceConfig, log *slog.Logger) (ports.NewsSource, error) {
		return NewGoogleNewsSource(GoogleNewsOptions{
			Name:     cfg.Name,
			BaseURL:  cfg.BaseURL,
			Language: cfg.Options["language"],
			Country:  cfg.Options["country"],
		}, nil, limiter, log), nil
	})
	reg.Register(config.ScannerNaverNews, func(cfg config.SourceConfig, log *slog.Logger) (ports.NewsSource, error) {
		opts := NaverOptions{Name: cfg.Name}
		if cfg.BaseURL != "" {
			opts = NaverOptionsFromBase(cfg.Name, cfg.BaseURL)
		}
		if v := cfg.Options["sectionUrl"]; v != "" {
			opts.SectionURL = v
		}
		if v := cfg.Options["searchUrl"]; v != "" {
			opts.SearchURL = v
		}
		return NewNaverSource(opts, nil, limiter, log), nil
	})
}
