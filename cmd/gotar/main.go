// Command gotar is a small command-line client for the tar/tarfs/tarunpack
// packages: enough to list, create, and extract archives end to end, as a
// worked example of wiring the three packages together.
package main

import (
	"fmt"
	"log/slog"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "list", "t":
		err = runList(os.Args[2:])
	case "extract", "x":
		err = runExtract(os.Args[2:])
	case "create", "c":
		err = runCreate(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("gotar", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: gotar <list|extract|create> [flags]

  gotar list -f archive.tar
  gotar extract -f archive.tar -C dest/
  gotar create -f archive.tar dir/ [dir2/ ...]`)
}
