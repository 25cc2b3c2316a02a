// Package remote executes commands on fleet nodes through the local
// OpenSSH client binary.
//
// Shelling out keeps the operator's existing ssh configuration, agent and
// known_hosts handling in play. One command is in flight at a time; every
// call blocks until the ssh process exits or its transport timeouts fire.
// Transport policy is fixed here rather than configurable per call:
// connect timeout rounded up to whole seconds, keep-alive probes every 5s
// with a single missed probe allowed, and accept-new host key pinning.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strings"

	"tforge/config"
)

// Result is the captured outcome of one remote command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Sudo selects how privilege escalation happens on the remote side.
//
// Interactive allocates a terminal and lets the remote sudo prompt the
// operator directly. Otherwise an empty Password means fail-fast sudo that
// refuses to hang on a prompt, and a non-empty Password is delivered over
// stdin with an empty prompt. The password never appears in the command
// line and never reaches the console echo.
type Sudo struct {
	Interactive bool
	Password    string
}

// ExecError reports a remote command that exited nonzero.
type ExecError struct {
	Node     string
	Target   string
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("ssh failed for %s (%s): rc=%d\n%s", e.Node, e.Target, e.ExitCode, e.Stderr)
}

const noCapturedStderr = "(no captured stderr; see command output above)"

// IsSudoPasswordRequired reports whether err is a fail-fast sudo refusal,
// meaning the node's sudo policy wants a password.
func IsSudoPasswordRequired(err error) bool {
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		return false
	}
	return strings.Contains(execErr.Stderr, "sudo: a password is required")
}

type runOptions struct {
	check      bool
	capture    bool
	tty        bool
	input      string
	logCommand bool
	logOutput  bool
}

// RunOption adjusts a single remote command invocation.
type RunOption func(*runOptions)

func defaultRunOptions() runOptions {
	return runOptions{check: true, capture: true, logCommand: true, logOutput: true}
}

// WithoutCheck returns the Result for a nonzero exit instead of an error.
func WithoutCheck() RunOption { return func(o *runOptions) { o.check = false } }

// WithInput feeds text to the remote command's stdin.
func WithInput(text string) RunOption { return func(o *runOptions) { o.input = text } }

// WithTTY forces pseudo-terminal allocation and streams the session to the
// operator's terminal. Output capture is disabled for the call.
func WithTTY() RunOption {
	return func(o *runOptions) {
		o.tty = true
		o.capture = false
	}
}

// WithoutCommandLog suppresses the console command echo for this call.
func WithoutCommandLog() RunOption { return func(o *runOptions) { o.logCommand = false } }

// WithoutOutputLog suppresses the console output echo for this call.
func WithoutOutputLog() RunOption { return func(o *runOptions) { o.logOutput = false } }

// Runner issues commands against fleet nodes over the local ssh binary.
// A nil Console disables the command echo entirely.
type Runner struct {
	Settings config.SSHSettings
	Console  *Console
}

// Run executes command on node and returns the captured result. A nonzero
// exit becomes an *ExecError unless WithoutCheck is passed; any other
// failure (binary missing, context cancelled) is returned wrapped.
func (r *Runner) Run(ctx context.Context, node config.Node, command string, opts ...RunOption) (Result, error) {
	o := defaultRunOptions()
	for _, opt := range opts {
		opt(&o)
	}

	target := node.Target()
	args := sshArgs(r.Settings, target, command, o.tty)

	if o.logCommand && r.Console != nil {
		r.Console.Command(node.Name, command)
	}
	slog.Debug("remote command", "node", node.Name, "target", target, "tty", o.tty)

	cmd := exec.CommandContext(ctx, "ssh", args...)
	var stdout, stderr bytes.Buffer
	if o.capture {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if o.input != "" {
			cmd.Stdin = strings.NewReader(o.input)
		}
	} else {
		// Interactive sessions own the terminal end to end.
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	runErr := cmd.Run()
	res := Result{ExitCode: exitCode(runErr), Stdout: stdout.String(), Stderr: stderr.String()}

	if ctx.Err() != nil {
		return res, fmt.Errorf("ssh %s: %w", target, ctx.Err())
	}
	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return res, fmt.Errorf("ssh %s: %w", target, runErr)
	}

	if o.logOutput && o.capture && r.Console != nil {
		r.Console.Output(res.Stdout, res.Stderr)
	}

	if o.check && res.ExitCode != 0 {
		detail := noCapturedStderr
		if o.capture {
			detail = strings.TrimSpace(res.Stderr)
		}
		return res, &ExecError{Node: node.Name, Target: target, ExitCode: res.ExitCode, Stderr: detail}
	}
	return res, nil
}

// RunSudo executes command under sudo on the node, in one of three modes:
//
//   - Interactive: "sudo <cmd>" with a forced terminal and no capture, so
//     the remote prompt reaches the operator. Compatible with every sudo
//     policy but useless in scripts.
//   - No password (the zero Sudo): "sudo -n <cmd>" fails immediately when
//     the policy would prompt instead of hanging forever.
//   - Password: "sudo -S -p '' <cmd>" reads the password from stdin.
func (r *Runner) RunSudo(ctx context.Context, node config.Node, command string, sudo Sudo, opts ...RunOption) (Result, error) {
	line, input := sudoCommandLine(command, sudo)
	if sudo.Interactive {
		opts = append(opts, WithTTY())
	} else if input != "" {
		opts = append(opts, WithInput(input))
	}
	return r.Run(ctx, node, line, opts...)
}

func sudoCommandLine(command string, sudo Sudo) (line, input string) {
	switch {
	case sudo.Interactive:
		return "sudo " + command, ""
	case sudo.Password == "":
		return "sudo -n " + command, ""
	default:
		return "sudo -S -p '' " + command, sudo.Password + "\n"
	}
}

// sshArgs assembles the ssh argv (without the binary itself). The -tt flag
// sits first so OpenSSH forces terminal allocation even when the local
// stdin is not a terminal. BatchMode governs ssh's own authentication
// prompts only; a remote sudo prompt on a forced terminal still works.
func sshArgs(s config.SSHSettings, target, command string, tty bool) []string {
	args := baseArgs(s)
	if tty {
		args = append([]string{"-tt"}, args...)
	}
	return append(args, target, command)
}

// baseArgs builds the fixed OpenSSH option set. OpenSSH rejects fractional
// ConnectTimeout values, so configured seconds round up with a floor of 1.
func baseArgs(s config.SSHSettings) []string {
	timeout := int(math.Ceil(s.ConnectTimeoutSeconds))
	if timeout < 1 {
		timeout = 1
	}
	args := []string{
		"-o", fmt.Sprintf("ConnectTimeout=%d", timeout),
		"-o", "ServerAliveInterval=5",
		"-o", "ServerAliveCountMax=1",
		"-o", "StrictHostKeyChecking=accept-new",
	}
	if s.BatchMode {
		args = append(args, "-o", "BatchMode=yes")
	}
	return args
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
