// Package buildinfo exposes version metadata stamped at build time.
package buildinfo

// Version is the tforge release string. Overridden at link time via
// -ldflags "-X tforge/internal/buildinfo.Version=v0.4.0".
var Version = "dev"
