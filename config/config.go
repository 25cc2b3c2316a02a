// Package config loads the tforge fleet inventory.
//
// The inventory lives in tforge.yml next to the operator (override with
// --config or TFORGE_CONFIG). It names every managed node once, carries
// shared node defaults, and holds the optional fabricnet section that
// drives fabric address assignment. Loading never touches the network.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath overrides the inventory location when set.
	EnvConfigPath = "TFORGE_CONFIG"
	// DefaultPath is the inventory file used without overrides.
	DefaultPath = "tforge.yml"
)

// ServiceManager identifies how a node runs and manages its services.
type ServiceManager string

const (
	ManagerBrew    ServiceManager = "brew"
	ManagerSystemd ServiceManager = "systemd"
)

// SSHSettings shape the OpenSSH transport used for every remote command.
type SSHSettings struct {
	// ConnectTimeoutSeconds may be fractional. OpenSSH only accepts whole
	// seconds, so the transport rounds it up (minimum 1) when dialing.
	ConnectTimeoutSeconds float64 `yaml:"connect_timeout_seconds"`
	// BatchMode refuses ssh-level authentication prompts so unattended
	// runs fail instead of hanging. Remote sudo prompts are unaffected.
	BatchMode bool `yaml:"batch_mode"`
}

// MonitorSettings name the TCP ports probed by status and the
// post-configuration reachability sweep.
type MonitorSettings struct {
	SSHPort int `yaml:"ssh_port"`
	AppPort int `yaml:"app_port"`
}

// HostsSyncSettings delimit the managed block in /etc/hosts.
type HostsSyncSettings struct {
	BlockStart string `yaml:"managed_block_start"`
	BlockEnd   string `yaml:"managed_block_end"`
}

// Settings groups operational knobs shared across subcommands.
type Settings struct {
	SSH       SSHSettings       `yaml:"ssh"`
	Monitor   MonitorSettings   `yaml:"monitor"`
	HostsSync HostsSyncSettings `yaml:"hosts_sync"`
}

// AddressMode selects how the fabric service is configured on macOS.
type AddressMode string

const (
	// ModeManual is the macOS "Manually" IPv4 configuration.
	ModeManual AddressMode = "manual"
	// ModeDHCPManualAddress is "Using DHCP with manual address".
	ModeDHCPManualAddress AddressMode = "dhcp_with_manual_address"
)

// IPv4Defaults apply to every fabric address assignment.
type IPv4Defaults struct {
	Netmask string `yaml:"netmask"`
	// Router may stay empty; the assignment then uses the 0.0.0.0
	// placeholder, which macOS treats as "no router".
	Router string `yaml:"router"`
}

// FabricAddress maps one node onto the fabric segment.
type FabricAddress struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// FabricNet describes the point-to-point fabric network, typically the
// macOS "Thunderbolt Bridge" service.
type FabricNet struct {
	ServiceName  string          `yaml:"service_name"`
	IPv4Mode     AddressMode     `yaml:"ipv4_mode"`
	IPv4Defaults IPv4Defaults    `yaml:"ipv4_defaults"`
	Nodes        []FabricAddress `yaml:"nodes"`
}

// AddressByName returns the node-name to fabric-address mapping.
func (f *FabricNet) AddressByName() map[string]string {
	out := make(map[string]string, len(f.Nodes))
	for _, n := range f.Nodes {
		out[n.Name] = n.Address
	}
	return out
}

// NodeDefaults are merged into every inventory item; item fields win.
type NodeDefaults struct {
	SSHUser        string         `yaml:"ssh_user"`
	ServiceManager ServiceManager `yaml:"service_manager"`
	SSHHost        string         `yaml:"ssh_host"`
}

// NodeItem is one entry under nodes.items.
type NodeItem struct {
	Name           string         `yaml:"name"`
	MgmtIP         string         `yaml:"mgmt_ip"`
	SSHUser        string         `yaml:"ssh_user"`
	ServiceManager ServiceManager `yaml:"service_manager"`
	// SSHHost overrides the SSH destination when the management address
	// is not directly dialable (jump host aliases, mDNS names).
	SSHHost string `yaml:"ssh_host"`
}

// NodesConfig is the raw nodes section before defaults are merged.
type NodesConfig struct {
	Defaults NodeDefaults `yaml:"defaults"`
	Items    []NodeItem   `yaml:"items"`
}

// Node is a fully resolved fleet member.
type Node struct {
	Name           string
	MgmtIP         string
	SSHUser        string
	ServiceManager ServiceManager
	// SSHHost, when set, replaces MgmtIP as the SSH destination.
	SSHHost string
}

// Target returns the user@host destination for the SSH transport.
func (n Node) Target() string {
	host := n.SSHHost
	if host == "" {
		host = n.MgmtIP
	}
	return n.SSHUser + "@" + host
}

// Config is the parsed inventory.
type Config struct {
	Settings  Settings    `yaml:"settings"`
	Nodes     NodesConfig `yaml:"nodes"`
	FabricNet *FabricNet  `yaml:"fabricnet"`
}

// Default returns a Config carrying every built-in default. Load unmarshals
// on top of it so absent keys keep their defaults.
func Default() *Config {
	return &Config{
		Settings: Settings{
			SSH:     SSHSettings{ConnectTimeoutSeconds: 1.0, BatchMode: true},
			Monitor: MonitorSettings{SSHPort: 22, AppPort: 11434},
			HostsSync: HostsSyncSettings{
				BlockStart: "# BEGIN tforge",
				BlockEnd:   "# END tforge",
			},
		},
	}
}

// Path resolves the inventory location: the flag value when set, then
// TFORGE_CONFIG, then ./tforge.yml.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads and validates the inventory file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("missing config file %s: create %s or set %s", path, DefaultPath, EnvConfigPath)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if fn := c.FabricNet; fn != nil {
		if fn.ServiceName == "" {
			fn.ServiceName = "Thunderbolt Bridge"
		}
		if fn.IPv4Mode == "" {
			fn.IPv4Mode = ModeManual
		}
		if fn.IPv4Mode != ModeManual && fn.IPv4Mode != ModeDHCPManualAddress {
			return fmt.Errorf("fabricnet.ipv4_mode %q is not one of %q, %q", fn.IPv4Mode, ModeManual, ModeDHCPManualAddress)
		}
		if fn.IPv4Defaults.Netmask == "" {
			fn.IPv4Defaults.Netmask = "255.255.255.252"
		}
		for i, a := range fn.Nodes {
			if a.Name == "" {
				return fmt.Errorf("fabricnet.nodes[%d]: missing name", i)
			}
			if a.Address == "" {
				return fmt.Errorf("fabricnet.nodes[%d] (%s): missing address", i, a.Name)
			}
		}
	}
	return nil
}

// ResolveNodes merges nodes.defaults into every item and checks that each
// resolved node is complete.
func (c *Config) ResolveNodes() ([]Node, error) {
	if len(c.Nodes.Items) == 0 {
		return nil, fmt.Errorf("no nodes defined under nodes.items")
	}

	seen := make(map[string]bool, len(c.Nodes.Items))
	nodes := make([]Node, 0, len(c.Nodes.Items))
	for i, item := range c.Nodes.Items {
		n := Node{
			Name:           item.Name,
			MgmtIP:         item.MgmtIP,
			SSHUser:        firstNonEmpty(item.SSHUser, c.Nodes.Defaults.SSHUser),
			ServiceManager: item.ServiceManager,
			SSHHost:        firstNonEmpty(item.SSHHost, c.Nodes.Defaults.SSHHost),
		}
		if n.ServiceManager == "" {
			n.ServiceManager = c.Nodes.Defaults.ServiceManager
		}

		switch {
		case n.Name == "":
			return nil, fmt.Errorf("nodes.items[%d]: missing name", i)
		case seen[n.Name]:
			return nil, fmt.Errorf("nodes.items[%d]: duplicate node name %q", i, n.Name)
		case n.MgmtIP == "":
			return nil, fmt.Errorf("node %s: missing mgmt_ip", n.Name)
		case n.SSHUser == "":
			return nil, fmt.Errorf("node %s: missing ssh_user (set it on the item or under nodes.defaults)", n.Name)
		}
		if n.ServiceManager != ManagerBrew && n.ServiceManager != ManagerSystemd {
			return nil, fmt.Errorf("node %s: service_manager %q is not one of %q, %q", n.Name, n.ServiceManager, ManagerBrew, ManagerSystemd)
		}

		seen[n.Name] = true
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
