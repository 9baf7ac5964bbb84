package scanner

import (
	"fmt"
	"log/slog"
	"sort"

	"ShortsPipeline/internal/config"
	"ShortsPipeline/internal/ports"
)

// Factory builds a news source for one configured source entry.
type Factory func(cfg config.SourceConfig, log *slog.Logger) (ports.NewsSource, error)

// Registry keeps a mapping from scanner names to source factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds or replaces a scanner factory.
func (r *Registry) Register(name string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[name] = factory
}

// Names lists registered scanners in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build resolves cfg.Scanner and constructs the source, or reports that it is absent.
func (r *Registry) Build(cfg config.SourceConfig, log *slog.Logger) (ports.NewsSource, error) {
	factory, ok := r.factories[cfg.Scanner]
	if !ok {
		return nil, fmt.Errorf("scanner %s is not registered", cfg.Scanner)
	}
	if log == nil {
		log = slog.Default()
	}
	source, err := factory(cfg, log.With("component", "source."+cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("build source %s: %w", cfg.Name, err)
	}
	return source, nil
}
