package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	tests := []struct {
		name   string
		commit string
		want   []string
		not    []string
	}{
		{
			name:   "release build",
			commit: "abc1234",
			want:   []string{"pgcheck v1.2.3", "Safety linter for PostgreSQL migrations", "commit abc1234, built 2026-01-02"},
		},
		{
			name:   "dev build",
			commit: "unknown",
			want:   []string{"pgcheck v1.2.3"},
			not:    []string{"commit"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewVersionCommand("1.2.3", tt.commit, "2026-01-02"))
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, n := range tt.not {
				assert.NotContains(t, out, n)
			}
		})
	}
}
