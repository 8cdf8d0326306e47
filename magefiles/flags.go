//go:build mage

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
)

// targetArgs are the arguments after the mage target, so test and serve
// targets can take named flags:
//
//	mage test:unit --run TestPredict --count 1
//	mage serve --addr :9090 --read-only
//
// Mage itself only sees [mage, mage-flags..., target].
var targetArgs []string

func init() {
	targetIdx := targetIndex(os.Args)
	if targetIdx < 0 || targetIdx+1 >= len(os.Args) {
		return
	}
	targetArgs = slices.Clone(os.Args[targetIdx+1:])
	os.Args = os.Args[:targetIdx+1]
}

// targetIndex returns the index of the first argument after the binary that
// is not a mage flag, or -1 when there is none before "--".
func targetIndex(args []string) int {
	for i := 1; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			return -1
		}
		if a != "" && a[0] != '-' {
			return i
		}
	}
	return -1
}

// parseTargetFlags parses targetArgs into fs and exits on -h or a bad flag.
func parseTargetFlags(fs *flag.FlagSet) {
	err := fs.Parse(targetArgs)
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "%s: %v\n", fs.Name(), err)
		os.Exit(1)
	}
}
