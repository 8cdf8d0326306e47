// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, cli, race, cover).
type Test mg.Namespace

// testArgs builds go test arguments from the target flags.
//
//	mage test:all --run TestCheckIn --count 1
func testArgs(extra ...string) []string {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	run := fs.String("run", "", "only run tests matching this regexp")
	count := fs.Int("count", 0, "go test -count; 1 disables the cache")
	verbose := fs.Bool("v", false, "verbose output")
	parseTargetFlags(fs)

	args := []string{"test"}
	if *verbose {
		args = append(args, "-v")
	}
	if *run != "" {
		args = append(args, "-run", *run)
	}
	if *count > 0 {
		args = append(args, fmt.Sprintf("-count=%d", *count))
	}
	return append(args, extra...)
}

// All runs every test in the module.
func (Test) All() error {
	return sh.RunV(binGo, testArgs("./...")...)
}

// Unit runs the library tests, leaving out the coach command.
func (Test) Unit() error {
	pkgs, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for pkg := range strings.SplitSeq(pkgs, "\n") {
		if pkg != "" && !strings.HasSuffix(pkg, "/cmd/coach") {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	return sh.RunV(binGo, testArgs(unitPkgs...)...)
}

// CLI runs the coach command tests against a real SQLite file.
func (Test) CLI() error {
	return sh.RunV(binGo, testArgs(cmdDir)...)
}

// Race runs every test with the race detector.
func (Test) Race() error {
	return sh.RunV(binGo, testArgs("-race", "./...")...)
}

// Cover writes coverage.out and prints per-function coverage.
func (Test) Cover() error {
	if err := sh.RunV(binGo, testArgs("-coverprofile=coverage.out", "./...")...); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func=coverage.out")
}
