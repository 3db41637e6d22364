// Package main provides the pgcheck CLI, a safety linter for PostgreSQL
// migrations.
package main

import (
	"os"

	"github.com/leapstack-labs/pgcheck/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
