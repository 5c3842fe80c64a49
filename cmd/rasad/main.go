package main

import (
	"fmt"
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.3.0"

func main() {
	root := newRootCmd(os.Getenv)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rasad:", err)
		os.Exit(1)
	}
}
