package remote

import (
	"fmt"
	"io"
	"strings"
)

// Console groups the remote command echo by node: consecutive commands
// against the same node share one "[node]:" block, blank lines separate
// commands and blocks, and captured output is indented beneath its
// command. Create one Console per run and share it across all commands so
// the grouping state lives in one place.
type Console struct {
	w io.Writer

	lastNode string
	opened   bool // a block header has been printed
	echoed   bool // a command was echoed inside the current block
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Command echoes a remote command under its node's block header.
// Multi-line commands collapse to their first line plus an ellipsis.
func (c *Console) Command(node, command string) {
	line := firstCommandLine(command)
	if line == "" {
		return
	}

	if !c.opened || c.lastNode != node {
		if c.opened {
			fmt.Fprintln(c.w)
		}
		fmt.Fprintf(c.w, "[%s]:\n\n", node)
		c.lastNode = node
		c.opened = true
		c.echoed = false
	} else if c.echoed {
		fmt.Fprintln(c.w)
	}

	fmt.Fprintf(c.w, "$ %s\n", line)
	c.echoed = true
}

// Output echoes captured command output, two-space indented, with
// trailing newlines trimmed. Empty output prints nothing.
func (c *Console) Output(stdout, stderr string) {
	c.writeIndented(stdout)
	c.writeIndented(stderr)
}

func (c *Console) writeIndented(text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(c.w, "  %s\n", line)
	}
}

func firstCommandLine(command string) string {
	var lines []string
	for _, l := range strings.Split(strings.TrimSpace(command), "\n") {
		l = strings.TrimRight(l, " \t")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	switch len(lines) {
	case 0:
		return ""
	case 1:
		return lines[0]
	default:
		return lines[0] + " …"
	}
}
