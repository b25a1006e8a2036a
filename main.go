package main

import (
	"os"

	"CollabBoard/internal/cli"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)

	// Errors are printed by the printer package before they get here.
	if err := cli.Execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
