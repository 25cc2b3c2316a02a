package monitor

import (
	"context"
	"fmt"
	"testing"

	"tforge/config"
)

// portProber answers per host:port endpoint; unlisted endpoints are down.
type portProber struct {
	up    map[string]bool
	calls int
}

func (p *portProber) Reachable(_ context.Context, host string, port int) bool {
	p.calls++
	return p.up[fmt.Sprintf("%s:%d", host, port)]
}

func TestCollect(t *testing.T) {
	nodes := []config.Node{
		{Name: "msm1", MgmtIP: "192.168.1.101"},
		{Name: "msm2", MgmtIP: "192.168.1.102"},
	}
	fabric := map[string]string{"msm1": "169.254.10.1"}

	prober := &portProber{up: map[string]bool{
		"192.168.1.101:22":    true,
		"192.168.1.101:11434": true,
		"169.254.10.1:22":     true,
		// msm1's app over fabric and everything on msm2 is down.
	}}
	c := &Collector{Prober: prober, SSHPort: 22, AppPort: 11434}

	status := c.Collect(context.Background(), nodes, fabric)
	if len(status.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(status.Nodes))
	}

	msm1 := status.Nodes[0]
	if !msm1.Mgmt.SSH || !msm1.Mgmt.App {
		t.Errorf("msm1 mgmt = %+v, want both up", msm1.Mgmt)
	}
	if !msm1.Fabric.SSH || msm1.Fabric.App {
		t.Errorf("msm1 fabric = %+v, want ssh up and app down", msm1.Fabric)
	}

	msm2 := status.Nodes[1]
	if msm2.FabricIP != "" {
		t.Errorf("msm2 FabricIP = %q, want empty", msm2.FabricIP)
	}
	if msm2.Mgmt.SSH || msm2.Mgmt.App {
		t.Errorf("msm2 mgmt = %+v, want both down", msm2.Mgmt)
	}

	// msm1: 2 mgmt + 2 fabric probes; msm2: 2 mgmt probes, no fabric.
	if prober.calls != 6 {
		t.Errorf("probe calls = %d, want 6", prober.calls)
	}
}

func TestCollectWithoutFabricMap(t *testing.T) {
	c := &Collector{Prober: &portProber{}, SSHPort: 22, AppPort: 11434}
	status := c.Collect(context.Background(), []config.Node{{Name: "msm1", MgmtIP: "10.0.0.1"}}, nil)
	if got := status.Nodes[0].FabricIP; got != "" {
		t.Errorf("FabricIP = %q, want empty", got)
	}
}
