// Package main is the entry point for the rtcheck CLI.
package main

import (
	"fmt"
	"os"

	"github.com/runoshun/rtcheck/internal/app"
	"github.com/runoshun/rtcheck/internal/cli"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	// The --config flag is applied by the root command before any subcommand runs.
	container := app.New("")
	rootCmd := cli.NewRootCommand(container, version)
	return rootCmd.Execute()
}
