package main

import (
	"fmt"
	"os"
)

var (
	// Version information (set during build)
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ringlog: %v\n", err)
		os.Exit(1)
	}
}
