//go:build debug

// Package check provides build-tagged invariant assertions. They compile
// to panics under -tags debug and to no-ops otherwise.
package check

import "fmt"

// Assert panics when cond is false.
func Assert(cond bool, msg string) {
	if !cond {
		panic("invariant violated: " + msg)
	}
}

// Assertf panics when cond is false, formatting the message.
func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic("invariant violated: " + fmt.Sprintf(format, args...))
	}
}
