package remote

import (
	"strings"
	"testing"
)

func TestConsoleGroupsByNode(t *testing.T) {
	var b strings.Builder
	c := NewConsole(&b)

	c.Command("msm1", "sw_vers -productVersion")
	c.Command("msm1", "networksetup -getinfo 'Thunderbolt Bridge'")
	c.Command("msm2", "sw_vers -productVersion")

	want := "[msm1]:\n" +
		"\n" +
		"$ sw_vers -productVersion\n" +
		"\n" +
		"$ networksetup -getinfo 'Thunderbolt Bridge'\n" +
		"\n" +
		"[msm2]:\n" +
		"\n" +
		"$ sw_vers -productVersion\n"
	if b.String() != want {
		t.Errorf("console output:\n%q\nwant:\n%q", b.String(), want)
	}
}

func TestConsoleReopensBlockAfterSwitch(t *testing.T) {
	var b strings.Builder
	c := NewConsole(&b)

	c.Command("msm1", "uname")
	c.Command("msm2", "uname")
	c.Command("msm1", "uptime")

	if got := strings.Count(b.String(), "[msm1]:"); got != 2 {
		t.Errorf("msm1 headers = %d, want 2 (block reopens after a switch)", got)
	}
}

func TestConsoleMultilineCommand(t *testing.T) {
	var b strings.Builder
	c := NewConsole(&b)

	c.Command("msm1", "set -e\nsw_vers -productVersion\n")
	if !strings.Contains(b.String(), "$ set -e …\n") {
		t.Errorf("multi-line command not collapsed: %q", b.String())
	}
}

func TestConsoleBlankCommandIsNoop(t *testing.T) {
	var b strings.Builder
	c := NewConsole(&b)

	c.Command("msm1", "   \n\t\n")
	if b.String() != "" {
		t.Errorf("blank command produced output: %q", b.String())
	}
}

func TestConsoleOutputIndent(t *testing.T) {
	var b strings.Builder
	c := NewConsole(&b)

	c.Output("ready\n\nok\n\n", "warning: slow link\n")
	want := "  ready\n" +
		"  \n" +
		"  ok\n" +
		"  warning: slow link\n"
	if b.String() != want {
		t.Errorf("Output:\n%q\nwant:\n%q", b.String(), want)
	}

	b.Reset()
	c.Output("", "")
	if b.String() != "" {
		t.Errorf("empty output printed: %q", b.String())
	}
}
