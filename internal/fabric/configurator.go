// Package fabric assigns point-to-point IPv4 addresses to the fleet's
// high-speed interconnect (the macOS "Thunderbolt Bridge" service) and
// proves the assignment took.
//
// The per-node protocol is four ordered stages, each gating the next:
// release gate, service validation, privileged apply, read-back verify.
// The orchestrator runs that protocol across the fleet sequentially and
// finishes with a TCP reachability sweep from the operator's host.
package fabric

import (
	"context"
	"strings"

	"tforge/config"
	"tforge/internal/check"
	"tforge/internal/remote"
)

// CommandRunner is the slice of the SSH transport the fabric protocol
// needs. *remote.Runner satisfies it; tests substitute scripted fakes.
type CommandRunner interface {
	Run(ctx context.Context, node config.Node, command string, opts ...remote.RunOption) (remote.Result, error)
	RunSudo(ctx context.Context, node config.Node, command string, sudo remote.Sudo, opts ...remote.RunOption) (remote.Result, error)
}

// Configurator drives the per-node protocol. A stage failure aborts the
// remaining stages; nothing is retried.
type Configurator struct {
	Runner   CommandRunner
	Service  string
	Mode     config.AddressMode
	Defaults config.IPv4Defaults
	Min      Release
}

// NewConfigurator builds a Configurator for the fabricnet section.
func NewConfigurator(runner CommandRunner, fn *config.FabricNet) *Configurator {
	return &Configurator{
		Runner:   runner,
		Service:  fn.ServiceName,
		Mode:     fn.IPv4Mode,
		Defaults: fn.IPv4Defaults,
		Min:      MinRelease,
	}
}

// Configure runs the full protocol against one node. The returned error
// is a *StageError naming the stage that stopped the node.
func (c *Configurator) Configure(ctx context.Context, node config.Node, address string, sudo remote.Sudo) error {
	check.Assertf(address != "", "node %s reached configure without a fabric address", node.Name)

	if err := c.CheckRelease(ctx, node); err != nil {
		return &StageError{Node: node.Name, Stage: StageReleaseGate, Err: err}
	}
	if err := c.ValidateService(ctx, node); err != nil {
		return &StageError{Node: node.Name, Stage: StageServiceCheck, Err: err}
	}
	if err := c.Apply(ctx, node, address, sudo); err != nil {
		return &StageError{Node: node.Name, Stage: StageApply, Err: err}
	}
	if err := c.Verify(ctx, node, address); err != nil {
		return &StageError{Node: node.Name, Stage: StageVerify, Err: err}
	}
	return nil
}

// CheckRelease queries the node's OS release and refuses anything older
// than the minimum. networksetup misbehaves quietly on older releases;
// refusing beats a silent misconfiguration.
func (c *Configurator) CheckRelease(ctx context.Context, node config.Node) error {
	res, err := c.Runner.Run(ctx, node, productVersionCommand)
	if err != nil {
		return err
	}
	version := strings.TrimSpace(res.Stdout)
	if version == "" {
		return &UnsupportedPlatformError{Node: node.Name, Min: c.Min}
	}
	release, err := parseRelease(version)
	if err != nil {
		return &UnsupportedPlatformError{Node: node.Name, Version: version, Unparsable: true, Min: c.Min}
	}
	if !release.AtLeast(c.Min) {
		return &UnsupportedPlatformError{Node: node.Name, Version: version, Min: c.Min}
	}
	return nil
}

// ValidateService checks the configured service name against the node's
// normalized service listing. Exact match only; nearly-right names would
// otherwise configure the wrong interface.
func (c *Configurator) ValidateService(ctx context.Context, node config.Node) error {
	// The full listing is noise on success. It surfaces through the error
	// when the lookup fails.
	res, err := c.Runner.Run(ctx, node, listServicesCommand,
		remote.WithoutCommandLog(), remote.WithoutOutputLog())
	if err != nil {
		return err
	}
	services := normalizeServices(res.Stdout)
	for _, s := range services {
		if s == c.Service {
			return nil
		}
	}
	return &UnknownServiceError{Node: node.Name, Service: c.Service, Available: services}
}

// Apply pushes the address assignment under sudo.
func (c *Configurator) Apply(ctx context.Context, node config.Node, address string, sudo remote.Sudo) error {
	cmd, err := AssignCommand(c.Mode, c.Service, address, c.Defaults)
	if err != nil {
		return err
	}
	_, err = c.Runner.RunSudo(ctx, node, cmd, sudo)
	return err
}

// Verify re-reads the service's live address and requires it to equal the
// requested one exactly. networksetup can exit zero while the service
// settles on a self-assigned 169.254 address, so a successful apply proves
// nothing on its own.
func (c *Configurator) Verify(ctx context.Context, node config.Node, address string) error {
	observed, err := c.serviceIPv4(ctx, node)
	if err != nil {
		return err
	}
	if observed != address {
		return &VerifyError{Node: node.Name, Service: c.Service, Want: address, Got: observed}
	}
	return nil
}

func (c *Configurator) serviceIPv4(ctx context.Context, node config.Node) (string, error) {
	cmd, err := getInfoCommand(c.Service)
	if err != nil {
		return "", err
	}
	res, err := c.Runner.Run(ctx, node, cmd)
	if err != nil {
		return "", err
	}
	return parseServiceIPv4(res.Stdout), nil
}
