// Package main is the entry point for the reportplane CLI.
// The CLI is the developer terminal tool for interacting with the reportplane API.
package main

import (
	"os"

	"reportplane/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
