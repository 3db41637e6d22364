package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	starctx "github.com/leapstack-labs/pgcheck/internal/starlark"
	"github.com/leapstack-labs/pgcheck/internal/workspace"
	"github.com/leapstack-labs/pgcheck/pkg/cache"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/lint/rules"
)

// NewWorkspace loads the custom rules of cfg and builds a workspace with
// the built-in rules plus the custom ones. root anchors relative paths.
// Custom rule files that fail to load become config diagnostics of the
// workspace.
func NewWorkspace(cfg *ProjectConfig, root string, logger *slog.Logger, opts ...workspace.Option) (*workspace.Workspace, error) {
	if cfg == nil {
		cfg = Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	policy, err := cfg.ScopePolicy()
	if err != nil {
		return nil, err
	}

	rulesDir := cfg.CustomRulesDir
	if rulesDir != "" && !filepath.IsAbs(rulesDir) {
		rulesDir = filepath.Join(root, rulesDir)
	}
	set, err := starctx.NewLoader(rulesDir, starctx.NewThreadPool(0, logger), logger).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load custom rules: %w", err)
	}

	reg, err := rules.NewRegistry(set.Register)
	if err != nil {
		return nil, fmt.Errorf("failed to register rules: %w", err)
	}

	var lintCfg *lint.Config
	if cfg.Lint != nil {
		lintCfg = cfg.Lint.ToLintConfig()
		if cfg.Lint.DocsURL != "" {
			lint.SetDocsBaseURL(cfg.Lint.DocsURL)
		}
	}

	base := []workspace.Option{
		workspace.WithLogger(logger),
		workspace.WithConfig(lintCfg),
		workspace.WithScopePolicy(policy),
		workspace.WithConfigDiagnostics(set.Diagnostics()...),
		workspace.WithCacheOptions(
			cache.WithCapacity(cfg.Analysis.CacheCapacity),
			cache.WithShards(cfg.Analysis.CacheShards),
			cache.WithLogger(logger),
		),
	}
	return workspace.New(reg, append(base, opts...)...), nil
}
