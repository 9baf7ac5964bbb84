package scanner

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"ShortsPipeline/internal/config"
	"ShortsPipeline/internal/domain"
	"ShortsPipeline/internal/ports"
)

type stubSource struct{ name string }

func (s stubSource) Name() string { return s.name }

func (s stubSource) Fetch(context.Context, string, int) []domain.NewsRecord { return nil }

func TestRegistryBuild(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("stub", func(cfg config.SourceConfig, _ *slog.Logger) (ports.NewsSource, error) {
		return stubSource{name: cfg.Name}, nil
	})
	reg.Register("broken", func(config.SourceConfig, *slog.Logger) (ports.NewsSource, error) {
		return nil, errors.New("boom")
	})

	src, err := reg.Build(config.SourceConfig{Name: "alpha", Scanner: "stub"}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if src.Name() != "alpha" {
		t.Fatalf("unexpected source name %q", src.Name())
	}

	if _, err := reg.Build(config.SourceConfig{Name: "x", Scanner: "missing"}, nil); err == nil {
		t.Fatalf("expected error for unknown scanner")
	}
	if _, err := reg.Build(config.SourceConfig{Name: "x", Scanner: "broken"}, nil); err == nil {
		t.Fatalf("expected factory error to propagate")
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "broken" || names[1] != "stub" {
		t.Fatalf("unexpected names %v", names)
	}
}
