// Package main is the entry point for the advisor CLI
package main

import (
	"os"

	"github.com/fatih/color"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "✗ "+err.Error())
		os.Exit(1)
	}
}
