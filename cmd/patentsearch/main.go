// Command patentsearch is the command line for the patent search engine.
package main

import (
	"context"
	"os"

	"github.com/whoiskiwi/PatentSearch/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate

	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
