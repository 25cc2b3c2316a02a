// Package cmdutil carries the small pieces shared by tforge subcommands:
// inventory loading, process exit codes, privileged local file writes.
package cmdutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"tforge/config"
)

// LoadFleet loads the inventory from the --config path (falling back to
// TFORGE_CONFIG, then ./tforge.yml) and resolves its nodes.
func LoadFleet(flagPath string) (*config.Config, []config.Node, error) {
	cfg, err := config.Load(config.Path(flagPath))
	if err != nil {
		return nil, nil, err
	}
	nodes, err := cfg.ResolveNodes()
	if err != nil {
		return nil, nil, err
	}
	return cfg, nodes, nil
}

// ExitError carries a specific process exit code through cobra.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// Exit tags err with an exit code. A nil err stays nil.
func Exit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// ExitCode extracts the process exit code from err, defaulting to 1.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// SplitList parses a comma-separated flag value into trimmed, non-empty
// entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// WriteRootFile writes content to a root-owned path. Running as root it
// writes directly; otherwise it pipes through "sudo tee" so the usual
// sudo prompt reaches the operator. tee's stdout echo is discarded.
func WriteRootFile(ctx context.Context, path string, content []byte) error {
	if os.Geteuid() == 0 {
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	}

	cmd := exec.CommandContext(ctx, "sudo", "tee", path)
	cmd.Stdin = bytes.NewReader(content)
	cmd.Stdout = io.Discard
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("sudo tee %s failed: %w", path, err)
		}
		return fmt.Errorf("sudo tee %s failed: %w: %s", path, err, msg)
	}
	return nil
}
