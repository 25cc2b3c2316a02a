package fabriccmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"tforge/config"
	"tforge/internal/fabric"
	"tforge/internal/remote"
)

func testFabricNet() *config.FabricNet {
	return &config.FabricNet{
		ServiceName:  "Thunderbolt Bridge",
		IPv4Mode:     config.ModeManual,
		IPv4Defaults: config.IPv4Defaults{Netmask: "255.255.255.252"},
		Nodes: []config.FabricAddress{
			{Name: "msm1", Address: "169.254.10.1"},
			{Name: "msm2", Address: "169.254.10.2"},
		},
	}
}

func TestConfigureCmdShape(t *testing.T) {
	path := ""
	cmd := configureCmd(&path)
	if cmd.Use != "configure" {
		t.Fatalf("unexpected use: %q", cmd.Use)
	}
	for _, name := range []string{"only", "sudo-mode", "journal", "no-journal"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Fatalf("missing flag %q", name)
		}
	}
	if err := cmd.Args(cmd, []string{"extra"}); err == nil {
		t.Fatal("expected args validation error for positional args")
	}
}

func TestResolveSudo(t *testing.T) {
	sudo, err := resolveSudo("interactive")
	if err != nil {
		t.Fatalf("resolveSudo(interactive) error: %v", err)
	}
	if !sudo.Interactive || sudo.Password != "" {
		t.Fatalf("resolveSudo(interactive) = %+v, want interactive", sudo)
	}

	sudo, err = resolveSudo("nopasswd")
	if err != nil {
		t.Fatalf("resolveSudo(nopasswd) error: %v", err)
	}
	if sudo.Interactive || sudo.Password != "" {
		t.Fatalf("resolveSudo(nopasswd) = %+v, want fail-fast", sudo)
	}

	if _, err := resolveSudo("yolo"); err == nil {
		t.Fatal("resolveSudo(yolo) error = nil, want invalid mode")
	}
}

func TestManualAssignCommand(t *testing.T) {
	got := manualAssignCommand(testFabricNet(), "msm2")
	want := "networksetup -setmanual 'Thunderbolt Bridge' 169.254.10.2 255.255.255.252 0.0.0.0"
	if got != want {
		t.Fatalf("manualAssignCommand = %q, want %q", got, want)
	}

	if got := manualAssignCommand(testFabricNet(), "ghost"); got != "" {
		t.Fatalf("manualAssignCommand(ghost) = %q, want empty", got)
	}
	if got := manualAssignCommand(nil, "msm1"); got != "" {
		t.Fatalf("manualAssignCommand(nil) = %q, want empty", got)
	}
}

func TestPrintFailureSudoPassword(t *testing.T) {
	runErr := &fabric.StageError{
		Node:  "msm2",
		Stage: fabric.StageApply,
		Err: &remote.ExecError{
			Node:     "msm2",
			Target:   "admin@10.0.0.2",
			ExitCode: 1,
			Stderr:   "sudo: a password is required",
		},
	}
	nodes := []config.Node{
		{Name: "msm1", MgmtIP: "10.0.0.1", SSHUser: "admin"},
		{Name: "msm2", MgmtIP: "10.0.0.2", SSHUser: "admin"},
	}

	var buf bytes.Buffer
	printFailure(&buf, testFabricNet(), nodes, runErr)

	out := buf.String()
	if !strings.Contains(out, "msm2: sudo requires a password") {
		t.Fatalf("missing sudo remediation in output:\n%s", out)
	}
	if !strings.Contains(out, "ssh admin@10.0.0.2") {
		t.Fatalf("missing manual ssh hint in output:\n%s", out)
	}
	if !strings.Contains(out, "sudo networksetup -setmanual 'Thunderbolt Bridge' 169.254.10.2") {
		t.Fatalf("missing manual command in output:\n%s", out)
	}
	if !strings.Contains(out, "--only msm2") {
		t.Fatalf("missing re-run hint in output:\n%s", out)
	}
}

func TestPrintFailureGeneric(t *testing.T) {
	var buf bytes.Buffer
	printFailure(&buf, testFabricNet(), nil, errors.New("something broke"))
	if !strings.Contains(buf.String(), "something broke") {
		t.Fatalf("missing error text in output:\n%s", buf.String())
	}
}

func TestSummarize(t *testing.T) {
	verdict := &fabric.Verdict{Outcomes: []fabric.NodeOutcome{
		{Node: "msm1", Kind: fabric.OutcomeConfigured},
		{Node: "msm2", Kind: fabric.OutcomeConfigured},
	}}
	if got := summarize(verdict, nil); got != "configured 2 node(s): msm1, msm2" {
		t.Fatalf("summarize = %q", got)
	}

	err := errors.New("first line\nsecond line")
	if got := summarize(nil, err); got != "first line" {
		t.Fatalf("summarize(err) = %q, want first line only", got)
	}
}
