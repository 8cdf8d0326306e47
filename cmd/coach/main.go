// Package main provides the coach CLI.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "coach:", err)
		os.Exit(exitCode(err))
	}
}
