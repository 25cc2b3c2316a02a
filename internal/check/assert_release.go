//go:build !debug

// Package check provides build-tagged invariant assertions. They compile
// to panics under -tags debug and to no-ops otherwise.
package check

// Assert is a no-op in release builds.
func Assert(_ bool, _ string) {}

// Assertf is a no-op in release builds.
func Assertf(_ bool, _ string, _ ...any) {}
