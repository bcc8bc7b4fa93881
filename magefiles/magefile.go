//go:build mage

// Package main contains Mage build targets for mdbatch.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "mdbatch"
)

// Default target when mage runs without arguments.
var Default = Build

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, "."); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Lint runs go vet over every package.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs Lint and Test.
func Check() {
	mg.SerialDeps(Lint, Test)
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
