package ui

import (
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	envNoInteraction = "NO_INTERACTION"
	envCI            = "CI"
	envTerm          = "TERM"
)

// ErrCancelled is returned when the operator aborts a prompt.
var ErrCancelled = errors.New("cancelled")

// ErrNoInteraction is returned when a prompt is needed but the terminal
// cannot interact. BypassHint tells the operator how to avoid the prompt.
type ErrNoInteraction struct {
	BypassHint string
}

func (e *ErrNoInteraction) Error() string {
	msg := "terminal is not interactive"
	if e.BypassHint != "" {
		msg += " (" + e.BypassHint + ")"
	}
	return msg
}

var interaction struct {
	mu          sync.Mutex
	set         bool
	interactive bool
}

// ConfigureInteraction fixes interactive mode for the process and matches
// the lipgloss color profile to it: full color when interactive, plain
// ASCII otherwise so piped output stays clean.
func ConfigureInteraction(noInteraction bool) {
	interactive := detectInteractive(noInteraction)

	interaction.mu.Lock()
	interaction.set = true
	interaction.interactive = interactive
	interaction.mu.Unlock()

	if interactive {
		lipgloss.SetColorProfile(termenv.ColorProfile())
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

// IsInteractive reports whether prompts may reach the operator.
// First use without ConfigureInteraction runs auto-detection.
func IsInteractive() bool {
	interaction.mu.Lock()
	if interaction.set {
		v := interaction.interactive
		interaction.mu.Unlock()
		return v
	}
	interaction.mu.Unlock()

	ConfigureInteraction(false)
	return IsInteractive()
}

// RequireInteraction returns *ErrNoInteraction when prompting is
// impossible, embedding the bypass hint.
func RequireInteraction(bypassHint string) error {
	if IsInteractive() {
		return nil
	}
	return &ErrNoInteraction{BypassHint: bypassHint}
}

func detectInteractive(noInteraction bool) bool {
	if noInteraction {
		return false
	}
	if envTruthy(envNoInteraction) || envTruthy(envCI) {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envTerm)), "dumb") {
		return false
	}
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func envTruthy(key string) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
