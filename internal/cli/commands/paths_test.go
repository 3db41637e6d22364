package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPaths(t *testing.T) {
	inProject(t, map[string]string{
		"migrations/001_init.sql":      "CREATE TABLE t (id bigint);",
		"migrations/002_index.SQL":     "CREATE INDEX i ON t (id);",
		"migrations/notes.md":          "# notes",
		"migrations/old/000_legacy.sql": "SELECT 1;",
		"migrations/.hidden/x.sql":     "SELECT 1;",
		"vendor/lib.sql":               "SELECT 1;",
		"seed.txt":                     "SELECT 1;",
	})

	tests := []struct {
		name    string
		args    []string
		exclude []string
		want    []string
	}{
		{
			name: "directory",
			args: []string{"migrations"},
			want: []string{"migrations/001_init.sql", "migrations/002_index.SQL", "migrations/old/000_legacy.sql"},
		},
		{
			name:    "exclude subtree",
			args:    []string{"migrations"},
			exclude: []string{"old/"},
			want:    []string{"migrations/001_init.sql", "migrations/002_index.SQL"},
		},
		{
			name:    "exclude by base name",
			args:    []string{"."},
			exclude: []string{"*_legacy.sql", "vendor/*"},
			want:    []string{"migrations/001_init.sql", "migrations/002_index.SQL"},
		},
		{
			name: "glob",
			args: []string{"migrations/00*.sql"},
			want: []string{"migrations/001_init.sql"},
		},
		{
			name:    "explicit file ignores extension and exclude",
			args:    []string{"seed.txt"},
			exclude: []string{"*.txt"},
			want:    []string{"seed.txt"},
		},
		{
			name: "duplicates collapse",
			args: []string{"migrations/001_init.sql", "./migrations/001_init.sql"},
			want: []string{"migrations/001_init.sql"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandPaths(tt.args, tt.exclude)
			require.NoError(t, err)
			want := make([]string, len(tt.want))
			for i, w := range tt.want {
				want[i] = filepath.FromSlash(w)
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestExpandPaths_Errors(t *testing.T) {
	inProject(t, map[string]string{"a.sql": "SELECT 1;"})

	_, err := expandPaths([]string{"missing.sql"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.sql")

	_, err = expandPaths([]string{"nothing/*.sql"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files match")
}

func TestExcluded(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"db/migrations/001.sql", nil, false},
		{"db/migrations/001.sql", []string{"001.sql"}, true},
		{"db/migrations/001.sql", []string{"migrations/*"}, true},
		{"db/migrations/001.sql", []string{"*.psql"}, false},
		{"db/migrations/001.sql", []string{"*"}, true},
		{"db/other/001.sql", []string{"migrations/"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, excluded("db", tt.path, tt.patterns))
		})
	}
}
