//go:build mage

// Package main provides build targets for the bookshelf project using Mage.
//
// Usage:
//
//	mage build        Compile api, migrate and seed binaries to bin/
//	mage test         Run all tests
//	mage generate     Regenerate mocks
//	mage migrate      Apply database migrations
//	mage run          Start the server with the local SQLite store
//	mage clean        Remove build artifacts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binaryDir = "bin"

var binaries = []string{"api", "migrate", "seed"}

// Build compiles every command to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	for _, name := range binaries {
		if err := sh.RunV("go", "build", "-o", filepath.Join(binaryDir, name), "./cmd/"+name); err != nil {
			return err
		}
	}
	return nil
}

// Test runs all tests. Postgres tests skip when the database is unreachable.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Generate regenerates the mockgen mocks.
func Generate() error {
	return sh.RunV("go", "generate", "./...")
}

// Migrate applies pending migrations to DB_DSN.
func Migrate() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, "migrate"), "up")
}

// Run starts the server against a local SQLite file.
func Run() error {
	mg.Deps(Build)
	env := map[string]string{"DB_DRIVER": "sqlite"}
	return sh.RunWithV(env, filepath.Join(binaryDir, "api"))
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}
