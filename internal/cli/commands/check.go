package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/pgcheck/internal/cli/config"
	"github.com/leapstack-labs/pgcheck/internal/workspace"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// ErrCheckFailed is returned when a check reports errors.
var ErrCheckFailed = errors.New("errors found")

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Severity string   // Minimum severity: error, warning, info, hint
	Enable   []string // Selectors to enable on top of the configuration
	Disable  []string // Selectors to disable
	Only     []string // Run only these selectors
	All      bool     // Enable every rule
	Format   string   // Output format override
	Summary  bool     // Print a per-file table
	Watch    bool     // Re-check on change
	Jobs     int      // Parallel analyses; 0 uses GOMAXPROCS
	Debounce time.Duration
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check SQL migrations for unsafe statements",
		Long: `Analyze SQL files statement by statement and report migrations that
take long-held locks, rewrite tables or break running clients.

Directories are searched for *.sql files. Glob patterns are expanded.
Rules are configured in pgcheck.yaml; flags add to that configuration.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Check every migration below the current directory
  pgcheck check

  # Check specific files
  pgcheck check migrations/0042_add_email.sql

  # Only report errors
  pgcheck check --severity error

  # Run a single rule
  pgcheck check --only banDropColumn migrations/

  # Re-check on every save
  pgcheck check --watch migrations/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Severity, "severity", "hint", "Minimum severity: error, warning, info, hint")
	cmd.Flags().StringSliceVar(&opts.Enable, "enable", nil, "Rules or groups to enable")
	cmd.Flags().StringSliceVar(&opts.Disable, "disable", nil, "Rules or groups to disable")
	cmd.Flags().StringSliceVar(&opts.Only, "only", nil, "Run only these rules or groups")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Enable all rules, not just the recommended ones")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "Print a per-file summary table")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Watch files and re-check on change")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "Number of files analyzed in parallel")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "Delay before re-checking in watch mode")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string, opts *CheckOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cmdCtx.WithFormat(cmd, opts.Format)

	minSeverity, ok := lint.ParseSeverity(opts.Severity)
	if !ok {
		return fmt.Errorf("invalid severity %q: must be error, warning, info or hint", opts.Severity)
	}

	project := applyCheckFlags(cmdCtx.Cfg.ProjectConfig, opts)
	ws, err := cmdCtx.Workspace(&project)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		args = []string{"."}
	}
	c := &checker{
		ws:          ws,
		args:        args,
		exclude:     project.Exclude,
		jobs:        opts.Jobs,
		minSeverity: minSeverity,
		out:         &reportWriter{r: cmdCtx.Renderer, summary: opts.Summary},
	}

	ctx := cmd.Context()
	failed, err := c.run(ctx)
	if err != nil {
		return err
	}

	if opts.Watch {
		rebuild := func() (*workspace.Workspace, error) { return cmdCtx.Workspace(&project) }
		return c.watch(ctx, cmdCtx, opts.Debounce, rebuild)
	}
	if failed {
		return ErrCheckFailed
	}
	return nil
}

// applyCheckFlags returns project with the check flags merged into a copy
// of its lint section.
func applyCheckFlags(project config.ProjectConfig, opts *CheckOptions) config.ProjectConfig {
	var l config.LintConfig
	if project.Lint != nil {
		l = *project.Lint
	}
	l.All = l.All || opts.All
	l.Enable = append(slices.Clone(l.Enable), opts.Enable...)
	l.Disable = append(slices.Clone(l.Disable), opts.Disable...)
	if len(opts.Only) > 0 {
		l.Only = slices.Clone(opts.Only)
	}
	project.Lint = &l
	return project
}

// checker runs one check over a set of path arguments.
type checker struct {
	ws          *workspace.Workspace
	args        []string
	exclude     []string
	jobs        int
	minSeverity lint.Severity
	out         *reportWriter
}

// run checks every file and renders the report. It reports whether any
// error-level diagnostic was found.
func (c *checker) run(ctx context.Context) (bool, error) {
	files, err := expandPaths(c.args, c.exclude)
	if err != nil {
		return false, err
	}

	reports, err := analyzeFiles(ctx, c.ws, files, c.jobs)
	if err != nil {
		return false, err
	}

	rep := &checkReport{Config: c.ws.ConfigDiagnostics(), Files: reports}
	rep.filter(c.minSeverity)
	if err := c.out.write(rep); err != nil {
		return false, err
	}
	return rep.summary().Errors > 0, nil
}

// analyzeFiles analyzes files in parallel. Reports keep the order of files.
func analyzeFiles(ctx context.Context, ws *workspace.Workspace, files []string, jobs int) ([]fileReport, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	reports := make([]fileReport, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range files {
		g.Go(func() error {
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			res, err := ws.Analyze(ctx, displayPath(path), string(content))
			if err != nil {
				return fmt.Errorf("failed to analyze %s: %w", path, err)
			}
			reports[i] = fileReport{Path: res.Path, Content: string(content), Diagnostics: res.Diagnostics}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// displayPath shortens path relative to the working directory.
func displayPath(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return path
	}
	return rel
}
