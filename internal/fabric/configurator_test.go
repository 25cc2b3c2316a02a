package fabric

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"tforge/config"
	"tforge/internal/remote"
)

const serviceListing = "An asterisk (*) denotes that a network service is disabled.\n" +
	"Wi-Fi\n" +
	"Thunderbolt Bridge\n"

type call struct {
	node    string
	command string
	sudo    *remote.Sudo
}

// fakeRunner records every command and answers via respond. The zero
// respond returns empty success for everything.
type fakeRunner struct {
	calls   []call
	respond func(c call) (remote.Result, error)
}

func (f *fakeRunner) Run(_ context.Context, node config.Node, command string, _ ...remote.RunOption) (remote.Result, error) {
	return f.record(call{node: node.Name, command: command})
}

func (f *fakeRunner) RunSudo(_ context.Context, node config.Node, command string, sudo remote.Sudo, _ ...remote.RunOption) (remote.Result, error) {
	return f.record(call{node: node.Name, command: command, sudo: &sudo})
}

func (f *fakeRunner) record(c call) (remote.Result, error) {
	f.calls = append(f.calls, c)
	if f.respond == nil {
		return remote.Result{}, nil
	}
	return f.respond(c)
}

func (f *fakeRunner) commands() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.command
	}
	return out
}

// respondHealthy emulates a fleet of up-to-date nodes where every
// assignment sticks: getinfo reports whatever address is in applied.
func respondHealthy(applied map[string]string) func(call) (remote.Result, error) {
	return func(c call) (remote.Result, error) {
		switch {
		case c.command == "sw_vers -productVersion":
			return remote.Result{Stdout: "26.2\n"}, nil
		case c.command == "networksetup -listallnetworkservices":
			return remote.Result{Stdout: serviceListing}, nil
		case strings.HasPrefix(c.command, "networksetup -setmanual"):
			return remote.Result{}, nil
		case strings.HasPrefix(c.command, "networksetup -getinfo"):
			info := fmt.Sprintf("Manual Configuration\nIP address: %s\nSubnet mask: 255.255.255.252\n", applied[c.node])
			return remote.Result{Stdout: info}, nil
		default:
			return remote.Result{}, fmt.Errorf("unexpected command %q", c.command)
		}
	}
}

func testNode(name string) config.Node {
	return config.Node{Name: name, MgmtIP: "192.168.1.101", SSHUser: "admin", ServiceManager: config.ManagerBrew}
}

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

func TestConfigureHappyPath(t *testing.T) {
	runner := &fakeRunner{respond: respondHealthy(map[string]string{"msm1": "169.254.10.1"})}
	c := NewConfigurator(runner, testFabricNet())

	if err := c.Configure(context.Background(), testNode("msm1"), "169.254.10.1", remote.Sudo{}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	want := []string{
		"sw_vers -productVersion",
		"networksetup -listallnetworkservices",
		"networksetup -setmanual 'Thunderbolt Bridge' 169.254.10.1 255.255.255.252 0.0.0.0",
		"networksetup -getinfo 'Thunderbolt Bridge'",
	}
	got := runner.commands()
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if runner.calls[2].sudo == nil {
		t.Error("assignment ran without sudo")
	}
	if runner.calls[3].sudo != nil {
		t.Error("read-back ran under sudo")
	}
}

func TestConfigurePassesSudoThrough(t *testing.T) {
	runner := &fakeRunner{respond: respondHealthy(map[string]string{"msm1": "169.254.10.1"})}
	c := NewConfigurator(runner, testFabricNet())

	sudo := remote.Sudo{Password: "hunter2"}
	if err := c.Configure(context.Background(), testNode("msm1"), "169.254.10.1", sudo); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if got := runner.calls[2].sudo; got == nil || got.Password != "hunter2" {
		t.Errorf("apply sudo = %+v, want the caller's password mode", got)
	}
}

func TestConfigureStopsAtReleaseGate(t *testing.T) {
	cases := []struct {
		name    string
		version string
		wantMsg string
	}{
		{"too old", "15.3\n", "unsupported macOS 15.3"},
		{"minor below minimum", "26.1\n", "unsupported macOS 26.1"},
		{"empty output", "\n", "empty sw_vers output"},
		{"unparsable", "Tahoe\n", "unexpected macOS version string"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{respond: func(c call) (remote.Result, error) {
				return remote.Result{Stdout: tc.version}, nil
			}}
			c := NewConfigurator(runner, testFabricNet())

			err := c.Configure(context.Background(), testNode("msm1"), "169.254.10.1", remote.Sudo{})
			var stageErr *StageError
			if !errors.As(err, &stageErr) || stageErr.Stage != StageReleaseGate {
				t.Fatalf("err = %v, want release-gate StageError", err)
			}
			var platErr *UnsupportedPlatformError
			if !errors.As(err, &platErr) {
				t.Fatalf("err = %v, want UnsupportedPlatformError", err)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("err = %q, want substring %q", err, tc.wantMsg)
			}
			if !strings.Contains(err.Error(), "macOS Tahoe 26.2+") {
				t.Errorf("err = %q, want minimum release named", err)
			}
			if len(runner.calls) != 1 {
				t.Errorf("calls = %v, want the version probe only", runner.commands())
			}
		})
	}
}

func TestConfigureStopsAtServiceCheck(t *testing.T) {
	runner := &fakeRunner{respond: func(c call) (remote.Result, error) {
		if c.command == "sw_vers -productVersion" {
			return remote.Result{Stdout: "26.2\n"}, nil
		}
		return remote.Result{Stdout: "An asterisk (*) denotes that a network service is disabled.\nWi-Fi\n*Ethernet\n"}, nil
	}}
	c := NewConfigurator(runner, testFabricNet())

	err := c.Configure(context.Background(), testNode("msm1"), "169.254.10.1", remote.Sudo{})
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageServiceCheck {
		t.Fatalf("err = %v, want service-check StageError", err)
	}
	var svcErr *UnknownServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("err = %v, want UnknownServiceError", err)
	}
	for _, want := range []string{"What to do:", "- Wi-Fi", "- Ethernet"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("err missing %q:\n%s", want, err)
		}
	}
	if strings.Contains(err.Error(), "asterisk") {
		t.Errorf("legend leaked into the listing:\n%s", err)
	}
	if len(runner.calls) != 2 {
		t.Errorf("calls = %v, want version probe and listing only", runner.commands())
	}
}

func TestConfigureStopsAtApply(t *testing.T) {
	applyErr := &remote.ExecError{Node: "msm1", Target: "admin@192.168.1.101", ExitCode: 1, Stderr: "sudo: a password is required"}
	runner := &fakeRunner{respond: func(c call) (remote.Result, error) {
		switch {
		case c.command == "sw_vers -productVersion":
			return remote.Result{Stdout: "26.2\n"}, nil
		case c.command == "networksetup -listallnetworkservices":
			return remote.Result{Stdout: serviceListing}, nil
		default:
			return remote.Result{}, applyErr
		}
	}}
	c := NewConfigurator(runner, testFabricNet())

	err := c.Configure(context.Background(), testNode("msm1"), "169.254.10.1", remote.Sudo{})
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageApply {
		t.Fatalf("err = %v, want apply StageError", err)
	}
	if !remote.IsSudoPasswordRequired(err) {
		t.Error("sudo password requirement not detectable through the stage error")
	}
	if len(runner.calls) != 3 {
		t.Errorf("calls = %v, want no read-back after a failed apply", runner.commands())
	}
}

func TestConfigureVerifyRequiresExactMatch(t *testing.T) {
	cases := []struct {
		name     string
		observed string
	}{
		{"self-assigned address", "169.254.77.3"},
		{"near miss", "169.254.10.10"},
		{"no address", "none"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{respond: respondHealthy(map[string]string{"msm1": tc.observed})}
			c := NewConfigurator(runner, testFabricNet())

			err := c.Configure(context.Background(), testNode("msm1"), "169.254.10.1", remote.Sudo{})
			var stageErr *StageError
			if !errors.As(err, &stageErr) || stageErr.Stage != StageVerify {
				t.Fatalf("err = %v, want verify StageError", err)
			}
			var verifyErr *VerifyError
			if !errors.As(err, &verifyErr) {
				t.Fatalf("err = %v, want VerifyError", err)
			}
			if verifyErr.Want != "169.254.10.1" {
				t.Errorf("Want = %q", verifyErr.Want)
			}
			if !strings.Contains(err.Error(), "Expected: 169.254.10.1") {
				t.Errorf("err missing expected address:\n%s", err)
			}
			if tc.observed == "none" && verifyErr.Got != "" {
				t.Errorf("Got = %q, want empty for an undetectable address", verifyErr.Got)
			}
		})
	}
}

func TestVerifyErrorShowsUnknownObserved(t *testing.T) {
	err := &VerifyError{Node: "msm1", Service: "Thunderbolt Bridge", Want: "169.254.10.1"}
	if !strings.Contains(err.Error(), "Observed: (unknown)") {
		t.Errorf("err = %q, want an (unknown) placeholder", err.Error())
	}
}
