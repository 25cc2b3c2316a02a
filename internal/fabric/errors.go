package fabric

import (
	"fmt"
	"strings"
)

// Stage names one step of the per-node protocol, in execution order.
type Stage string

const (
	StageReleaseGate  Stage = "release-gate"
	StageServiceCheck Stage = "service-check"
	StageApply        Stage = "apply"
	StageVerify       Stage = "verify"
)

// StageError tags a configurator failure with the stage that produced it.
// The orchestrator stops the run at the first one.
type StageError struct {
	Node  string
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// UnsupportedPlatformError means the node's OS release cannot run the
// address assignment protocol.
type UnsupportedPlatformError struct {
	Node string
	// Version is the raw sw_vers output; empty when nothing came back.
	Version    string
	Unparsable bool
	Min        Release
}

func (e *UnsupportedPlatformError) Error() string {
	requires := fmt.Sprintf("fabricnet requires macOS Tahoe %s+", e.Min)
	switch {
	case e.Version == "":
		return fmt.Sprintf("%s: failed to detect macOS version (empty sw_vers output); %s", e.Node, requires)
	case e.Unparsable:
		return fmt.Sprintf("%s: unexpected macOS version string from sw_vers: %q; %s", e.Node, e.Version, requires)
	default:
		return fmt.Sprintf("%s: unsupported macOS %s; %s", e.Node, e.Version, requires)
	}
}

// UnknownServiceError means the configured service name did not match any
// network service the node reports.
type UnknownServiceError struct {
	Node      string
	Service   string
	Available []string
}

func (e *UnknownServiceError) Error() string {
	listing := "- (none detected)"
	if len(e.Available) > 0 {
		lines := make([]string, len(e.Available))
		for i, s := range e.Available {
			lines[i] = "- " + s
		}
		listing = strings.Join(lines, "\n")
	}
	return fmt.Sprintf("%s: %q is not a recognized network service on this node\n"+
		"What to do:\n"+
		"- SSH to the node and run: networksetup -listallnetworkservices\n"+
		"- Put the exact name under fabricnet.service_name (commonly \"Thunderbolt Bridge\")\n"+
		"Available services on this node:\n%s",
		e.Node, e.Service, listing)
}

// VerifyError means the assignment command succeeded but the read-back did
// not show the requested address.
type VerifyError struct {
	Node    string
	Service string
	Want    string
	// Got is empty when no address could be detected at all.
	Got string
}

func (e *VerifyError) Error() string {
	observed := e.Got
	if observed == "" {
		observed = "(unknown)"
	}
	return fmt.Sprintf("%s: fabric IP did not apply for service %q\n"+
		"Expected: %s\n"+
		"Observed: %s\n"+
		"What to check:\n"+
		"- Confirm the service name matches exactly: networksetup -listallnetworkservices\n"+
		"- Inspect current state: networksetup -getinfo %s\n"+
		"- Ensure the Thunderbolt link is up and no bridging is enabled",
		e.Node, e.Service, e.Want, observed, shellQuote(e.Service))
}

// PreflightError rejects a run during validation, before any remote
// command has been issued.
type PreflightError struct {
	Problem string
	Hints   []string
	// Sample optionally shows a config snippet that would fix the problem.
	Sample string
}

func (e *PreflightError) Error() string {
	var b strings.Builder
	b.WriteString(e.Problem)
	if len(e.Hints) > 0 {
		b.WriteString("\nWhat to do:")
		for _, h := range e.Hints {
			b.WriteString("\n- ")
			b.WriteString(h)
		}
	}
	if e.Sample != "" {
		b.WriteString("\nFor example:\n")
		b.WriteString(strings.TrimRight(e.Sample, "\n"))
	}
	return b.String()
}

// ReachabilityError reports nodes whose fabric addresses refused TCP
// connections after every assignment succeeded.
type ReachabilityError struct {
	Nodes   []string
	Port    int
	Service string
}

func (e *ReachabilityError) Error() string {
	return fmt.Sprintf("fabricnet reachability failed for %d node(s): %s\n"+
		"What to do:\n"+
		"- Check Thunderbolt cabling and that the link is up on every node\n"+
		"- Re-run \"tforge hosts sync\" if fabric hostnames changed\n"+
		"- Inspect a node: networksetup -getinfo %s",
		len(e.Nodes), strings.Join(e.Nodes, ", "), shellQuote(e.Service))
}
