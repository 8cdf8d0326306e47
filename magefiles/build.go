// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "coach"
	binaryDir  = "bin"
	cmdDir     = "./cmd/coach"
)

var binaryPath = filepath.Join(binaryDir, binaryName)

// Build compiles the coach binary to bin/coach.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-trimpath", "-o", binaryPath, cmdDir)
}

// Serve builds coach and runs the HTTP API against the configured data dir.
//
//	mage serve --addr :9090 --data-dir ./data --read-only
func Serve() error {
	mg.Deps(Build)
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address (default: server.addr from config)")
	dataDir := fs.String("data-dir", "", "data directory")
	readOnly := fs.Bool("read-only", false, "disable the sample logging routes")
	parseTargetFlags(fs)

	args := []string{"serve"}
	if *addr != "" {
		args = append(args, "--addr", *addr)
	}
	if *dataDir != "" {
		args = append(args, "--data-dir", *dataDir)
	}
	if *readOnly {
		args = append(args, "--read-only")
	}
	return sh.RunV(binaryPath, args...)
}

// Clean removes bin/ and the coverage profile.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	if err := os.Remove("coverage.out"); err != nil && !os.IsNotExist(err) {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds coach and copies it to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), binaryPath)
}
