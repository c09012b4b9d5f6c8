package main

import (
	"fmt"
	"os"

	"github.com/ryanbastic/go-rebuilder/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
