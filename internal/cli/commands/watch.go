package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	sharedcfg "github.com/leapstack-labs/pgcheck/internal/config"
	starctx "github.com/leapstack-labs/pgcheck/internal/starlark"
	"github.com/leapstack-labs/pgcheck/internal/workspace"
)

// dirWatcher reports batches of changed files under a set of roots.
type dirWatcher struct {
	fs     *fsnotify.Watcher
	logger *slog.Logger
}

// newDirWatcher watches roots. File roots are watched through their
// directory; directory roots recursively, skipping hidden directories.
func newDirWatcher(roots []string, logger *slog.Logger) (*dirWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &dirWatcher{fs: fw, logger: logger}
	for _, root := range roots {
		if err := w.add(root); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *dirWatcher) add(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return w.fs.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

// Close stops watching.
func (w *dirWatcher) Close() error {
	return w.fs.Close()
}

// run calls onChange with the sorted changed paths once no event arrived
// for debounce. It returns when ctx is done.
func (w *dirWatcher) run(ctx context.Context, debounce time.Duration, relevant func(string) bool, onChange func([]string)) {
	pending := make(map[string]bool)
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.add(event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", slog.String("dir", event.Name), slog.Any("error", err))
					}
					continue
				}
			}
			if !relevant(event.Name) {
				continue
			}
			pending[event.Name] = true
			fire = time.After(debounce)

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			clear(pending)
			slices.Sort(changed)
			onChange(changed)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}

// watchRelevant reports whether a change to path can change the report.
func watchRelevant(path string) bool {
	switch {
	case strings.EqualFold(filepath.Ext(path), sqlExtension):
		return true
	case filepath.Ext(path) == starctx.Extension:
		return true
	default:
		return isConfigFile(path)
	}
}

func isConfigFile(path string) bool {
	base := filepath.Base(path)
	return base == sharedcfg.ConfigFileName || base == sharedcfg.ConfigFileNameAlt
}

// watch re-runs the check whenever a watched file changes. Changes to
// custom rules rebuild the workspace; SQL edits reuse its caches.
func (c *checker) watch(ctx context.Context, cmdCtx *CommandContext, debounce time.Duration, rebuild func() (*workspace.Workspace, error)) error {
	roots := slices.Clone(c.args)
	if dir := cmdCtx.Cfg.CustomRulesDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			roots = append(roots, dir)
		}
	}
	var globbed []string
	for _, root := range roots {
		if hasMeta(root) {
			matches, _ := filepath.Glob(root)
			globbed = append(globbed, matches...)
			continue
		}
		globbed = append(globbed, root)
	}

	w, err := newDirWatcher(globbed, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	r := cmdCtx.Renderer
	r.Errorf("Watching for changes. Press Ctrl+C to stop.\n")

	w.run(ctx, debounce, watchRelevant, func(changed []string) {
		cmdCtx.Logger.Info("change detected", slog.Any("files", changed))
		if slices.ContainsFunc(changed, isConfigFile) {
			r.Warning("Configuration changed. Restart to apply it.")
		}
		if slices.ContainsFunc(changed, func(p string) bool { return filepath.Ext(p) == starctx.Extension }) {
			ws, err := rebuild()
			if err != nil {
				r.Errorf("Error: %v\n", err)
				return
			}
			c.ws = ws
		}
		r.Println("")
		r.Muted(fmt.Sprintf("Change detected in %s, re-checking", strings.Join(changed, ", ")))
		r.Println("")
		if _, err := c.run(ctx); err != nil {
			r.Errorf("Error: %v\n", err)
		}
	})
	return nil
}
