// Package loader builds a populated registry from manifests and Go source.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/olehluchkiv/typereg/internal/analyzer"
	"github.com/olehluchkiv/typereg/internal/manifest"
	"github.com/olehluchkiv/typereg/internal/registry"
	"github.com/olehluchkiv/typereg/internal/resolver"
)

// ErrNoInput is returned when neither a manifest nor a source is given.
var ErrNoInput = errors.New("no manifest or source given")

// Config holds parameters for the load pipeline.
type Config struct {
	Manifests         []string
	Source            string // local path or GitHub URL
	Filter            string
	IncludeStdlib     bool
	IncludeUnexported bool
	Strict            bool
}

// Load executes the manifest → resolve → analyze → filter → register
// pipeline and returns the populated registry. A type defined twice across
// inputs is a registration error.
func Load(ctx context.Context, cfg Config, logger *slog.Logger) (*registry.Registry, error) {
	logger = logger.With("component", "loader")

	if len(cfg.Manifests) == 0 && cfg.Source == "" {
		return nil, ErrNoInput
	}

	reg := registry.New(registry.WithStrictHierarchy(cfg.Strict))

	for _, path := range cfg.Manifests {
		logger.Info("loading manifest", "path", path)
		doc, err := manifest.Load(path)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", path, err)
		}
		n, err := manifest.Apply(reg, doc, true)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", path, err)
		}
		logger.Info("manifest applied", "path", path, "types", n)
	}

	if cfg.Source != "" {
		logger.Info("resolving source", "input", cfg.Source)
		dir, err := resolver.Resolve(ctx, cfg.Source, logger)
		if err != nil {
			return nil, fmt.Errorf("resolve: %w", err)
		}

		opts := analyzer.AnalyzeOptions{
			Filter:            cfg.Filter,
			IncludeStdlib:     cfg.IncludeStdlib,
			IncludeUnexported: cfg.IncludeUnexported,
		}
		result, err := analyzer.Analyze(ctx, dir, opts, logger)
		if err != nil {
			return nil, fmt.Errorf("analyze: %w", err)
		}
		result = analyzer.Filter(result, opts)

		n, err := analyzer.Register(reg, result, true)
		if err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
		logger.Info("source registered", "dir", dir, "packages", len(result.Packages), "types", n)
	}

	if cfg.Strict {
		if err := reg.Validate(); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
