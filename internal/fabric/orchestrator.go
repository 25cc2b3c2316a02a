package fabric

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"tforge/config"
	"tforge/internal/probe"
	"tforge/internal/remote"
)

// OutcomeKind classifies a node's result within one run.
type OutcomeKind string

const (
	OutcomeConfigured OutcomeKind = "configured"
	OutcomeSkipped    OutcomeKind = "skipped"
	OutcomeFailed     OutcomeKind = "failed"
)

// NodeOutcome is recorded at most once per node per run. Nodes after an
// aborting failure get no outcome at all; nothing is retried.
type NodeOutcome struct {
	Node    string
	Address string
	Kind    OutcomeKind
	// Reason says why a node was skipped.
	Reason string
	// Stage and Detail describe a failure.
	Stage  Stage
	Detail string
}

// Verdict aggregates one fleet run.
type Verdict struct {
	Outcomes []NodeOutcome
	// Reachable holds the sweep result per configured node.
	Reachable map[string]bool
}

// Configured lists the nodes configured during the run, in run order.
func (v *Verdict) Configured() []string {
	var names []string
	for _, o := range v.Outcomes {
		if o.Kind == OutcomeConfigured {
			names = append(names, o.Node)
		}
	}
	return names
}

// Orchestrator runs the fleet protocol: pre-flight validation, the
// sequential per-node configure loop, then the reachability sweep.
//
// Nodes are configured strictly one at a time. Each node finishes
// before the next starts, so the operator reads one uninterrupted
// command block per node and a failure never interleaves with another
// node's progress.
type Orchestrator struct {
	Fabric *config.FabricNet
	Nodes  []config.Node
	Runner CommandRunner
	Prober probe.Prober
	// SweepPort is probed on each fabric address after configuration,
	// normally the SSH port.
	SweepPort int
	Out       io.Writer
}

// Run executes the fleet protocol over the nodes selected by only (every
// node when only is empty). It returns the verdict alongside the error
// that stopped the run, if any; a non-nil verdict is returned even on
// failure so the caller can report and record partial progress.
func (o *Orchestrator) Run(ctx context.Context, only []string, sudo remote.Sudo) (*Verdict, error) {
	out := o.Out
	if out == nil {
		out = io.Discard
	}

	selected, verdict, err := o.selectNodes(only)
	if err != nil {
		return nil, err
	}
	if err := Preflight(o.Fabric, selected); err != nil {
		return nil, err
	}

	addresses := o.Fabric.AddressByName()
	configurator := NewConfigurator(o.Runner, o.Fabric)

	for i, node := range selected {
		address := addresses[node.Name]
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "[fabricnet] %s: setting %s (%s)\n", node.Name, address, o.Fabric.ServiceName)

		if err := configurator.Configure(ctx, node, address, sudo); err != nil {
			outcome := NodeOutcome{Node: node.Name, Address: address, Kind: OutcomeFailed, Detail: err.Error()}
			var stageErr *StageError
			if errors.As(err, &stageErr) {
				outcome.Stage = stageErr.Stage
				outcome.Detail = stageErr.Err.Error()
			}
			verdict.Outcomes = append(verdict.Outcomes, outcome)
			return verdict, err
		}
		verdict.Outcomes = append(verdict.Outcomes, NodeOutcome{Node: node.Name, Address: address, Kind: OutcomeConfigured})
	}

	configured := verdict.Configured()
	fmt.Fprintf(out, "\nConfigured fabricnet on %d/%d nodes: %s\n",
		len(configured), len(selected), strings.Join(configured, ", "))

	if unreachable := o.sweep(ctx, out, selected, addresses, verdict); len(unreachable) > 0 {
		return verdict, &ReachabilityError{Nodes: unreachable, Port: o.SweepPort, Service: o.Fabric.ServiceName}
	}
	return verdict, nil
}

// selectNodes applies the only filter, keeping inventory order. Skipped
// nodes are recorded up front so the verdict covers the whole fleet.
func (o *Orchestrator) selectNodes(only []string) ([]config.Node, *Verdict, error) {
	verdict := &Verdict{Reachable: make(map[string]bool)}
	if len(only) == 0 {
		return o.Nodes, verdict, nil
	}

	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[name] = true
	}

	var selected []config.Node
	for _, node := range o.Nodes {
		if wanted[node.Name] {
			selected = append(selected, node)
			continue
		}
		verdict.Outcomes = append(verdict.Outcomes, NodeOutcome{
			Node:   node.Name,
			Kind:   OutcomeSkipped,
			Reason: "not selected by --only",
		})
	}
	if len(selected) == 0 {
		return nil, nil, &PreflightError{
			Problem: fmt.Sprintf("no nodes matched --only=%q", strings.Join(only, ",")),
			Hints:   []string{"node names must match nodes.items[].name in the config"},
		}
	}
	return selected, verdict, nil
}

const fabricnetSample = `fabricnet:
  service_name: Thunderbolt Bridge
  ipv4_defaults:
    netmask: 255.255.255.252
  nodes:
    - {name: msm1, address: 169.254.10.1}
    - {name: msm2, address: 169.254.10.2}`

// Preflight validates the run without touching any node: the fabricnet
// section must exist, every selected node needs an eligible platform and a
// fabric address, and every value that will reach a remote shell must
// already be well formed. Configuration mistakes surface here, before any
// remote state changes.
func Preflight(fn *config.FabricNet, selected []config.Node) error {
	if fn == nil {
		return &PreflightError{
			Problem: "missing top-level fabricnet section in the config",
			Sample:  fabricnetSample,
		}
	}

	addresses := fn.AddressByName()
	for _, node := range selected {
		if node.ServiceManager != config.ManagerBrew {
			return &PreflightError{
				Problem: fmt.Sprintf("%s: fabricnet automation only supports macOS (brew) nodes, got service_manager %q", node.Name, node.ServiceManager),
			}
		}
		address, ok := addresses[node.Name]
		if !ok || address == "" {
			return &PreflightError{
				Problem: fmt.Sprintf("%s: missing fabricnet.nodes entry (fabricnet.nodes[].name=%s)", node.Name, node.Name),
				Hints:   []string{fmt.Sprintf("add an entry like {name: %s, address: 169.254.10.X}", node.Name)},
			}
		}
		// A dry build runs every template validation for this node.
		if _, err := AssignCommand(fn.IPv4Mode, fn.ServiceName, address, fn.IPv4Defaults); err != nil {
			return &PreflightError{Problem: fmt.Sprintf("%s: %v", node.Name, err)}
		}
	}
	return nil
}

// sweep probes each configured fabric address from the operator's host
// and reports the unreachable node names.
func (o *Orchestrator) sweep(ctx context.Context, out io.Writer, selected []config.Node, addresses map[string]string, verdict *Verdict) []string {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[fabricnet] verifying fabric IP reachability from this host")

	var unreachable []string
	for _, node := range selected {
		address := addresses[node.Name]
		ok := o.Prober.Reachable(ctx, address, o.SweepPort)
		verdict.Reachable[node.Name] = ok

		status := "ok"
		if !ok {
			status = "unreachable"
			unreachable = append(unreachable, node.Name)
		}
		fmt.Fprintf(out, "- %s: %s:%d -> %s\n", node.Name, address, o.SweepPort, status)
	}
	return unreachable
}

// SweepTimeout derives the reachability probe timeout from the SSH connect
// timeout, floored at one second. Operators tune the SSH timeout
// aggressively low for fast failure detection; reusing that value raw
// would fabricate "unreachable" verdicts on healthy links.
func SweepTimeout(connectTimeoutSeconds float64) time.Duration {
	d := time.Duration(connectTimeoutSeconds * float64(time.Second))
	if d < time.Second {
		return time.Second
	}
	return d
}
