// Package main is the entry point of the macrostub CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/macrostub/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
