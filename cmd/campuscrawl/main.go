// Package main is the entry point for the campuscrawl CLI.
package main

import (
	"os"

	"github.com/jmylchreest/campuscrawl/cmd/campuscrawl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
