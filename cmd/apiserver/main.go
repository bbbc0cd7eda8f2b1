// Command apiserver runs the patent search HTTP API. It accepts the same
// flags as "patentsearch serve".
package main

import (
	"context"
	"os"

	"github.com/whoiskiwi/PatentSearch/internal/interfaces/cli"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate

	root := cli.NewRootCommand()
	root.SetArgs(append([]string{"serve"}, os.Args[1:]...))
	if err := root.ExecuteContext(context.Background()); err != nil {
		cli.PrintError(root, err)
		os.Exit(1)
	}
}
