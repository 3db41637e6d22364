package commands

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// sqlExtension marks the files directory expansion picks up.
const sqlExtension = ".sql"

// expandPaths turns file, directory and glob arguments into a sorted list
// of files. Directories are walked for *.sql files, skipping hidden
// directories. Files named explicitly are kept even when exclude matches
// them.
func expandPaths(args []string, exclude []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		matches := []string{arg}
		if hasMeta(arg) {
			var err error
			matches, err = filepath.Glob(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no files match %q", arg)
			}
		}

		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, fmt.Errorf("cannot check %s: %w", m, err)
			}
			if !info.IsDir() {
				if hasMeta(arg) && excluded(m, m, exclude) {
					continue
				}
				add(m)
				continue
			}
			if err := walkSQL(m, exclude, add); err != nil {
				return nil, err
			}
		}
	}

	slices.Sort(files)
	return files, nil
}

func walkSQL(root string, exclude []string, add func(string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if path != root && excluded(root, path, exclude) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), sqlExtension) || excluded(root, path, exclude) {
			return nil
		}
		add(path)
		return nil
	})
}

// excluded reports whether path matches one of the patterns. Patterns are
// matched against the path relative to root, the path as given and the
// base name.
func excluded(root, path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	candidates := []string{filepath.ToSlash(path), filepath.Base(path)}
	if rel, err := filepath.Rel(root, path); err == nil && rel != "." {
		candidates = append(candidates, filepath.ToSlash(rel))
	}
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		for _, c := range candidates {
			if ok, _ := filepath.Match(pattern, c); ok {
				return true
			}
			// "dir/" and "dir/*" style prefixes exclude whole subtrees.
			if prefix := strings.TrimSuffix(strings.TrimSuffix(pattern, "*"), "/"); prefix != pattern && prefix != "" &&
				(c == prefix || strings.HasPrefix(c, prefix+"/")) {
				return true
			}
		}
	}
	return false
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, "*?[")
}
