// Package main provides the sqlgrade CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/sqlgrade/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
