// Package monitor takes point-in-time reachability snapshots of the
// fleet: for each node, its SSH and application ports are probed on the
// management network and, when assigned, on the fabric network.
package monitor

import (
	"context"
	"time"

	"tforge/config"
	"tforge/internal/probe"
)

// PortStatus reports the probed TCP ports of one address.
type PortStatus struct {
	SSH bool
	App bool
}

// NodeStatus is one node's reachability picture.
type NodeStatus struct {
	Name   string
	MgmtIP string
	// FabricIP is empty when the node has no fabric address assigned.
	FabricIP string
	Mgmt     PortStatus
	Fabric   PortStatus
}

// ClusterStatus is a snapshot of the whole fleet.
type ClusterStatus struct {
	TakenAt time.Time
	Nodes   []NodeStatus
}

// Collector probes the fleet sequentially, one connection at a time, so a
// status call puts no connection burst on a possibly struggling network.
type Collector struct {
	Prober  probe.Prober
	SSHPort int
	AppPort int
}

// Collect probes every node and returns the snapshot. fabricAddr maps
// node names to fabric addresses and may be nil.
func (c *Collector) Collect(ctx context.Context, nodes []config.Node, fabricAddr map[string]string) ClusterStatus {
	status := ClusterStatus{TakenAt: time.Now(), Nodes: make([]NodeStatus, 0, len(nodes))}
	for _, node := range nodes {
		ns := NodeStatus{
			Name:     node.Name,
			MgmtIP:   node.MgmtIP,
			FabricIP: fabricAddr[node.Name],
			Mgmt:     c.ports(ctx, node.MgmtIP),
		}
		if ns.FabricIP != "" {
			ns.Fabric = c.ports(ctx, ns.FabricIP)
		}
		status.Nodes = append(status.Nodes, ns)
	}
	return status
}

func (c *Collector) ports(ctx context.Context, host string) PortStatus {
	return PortStatus{
		SSH: c.Prober.Reachable(ctx, host, c.SSHPort),
		App: c.Prober.Reachable(ctx, host, c.AppPort),
	}
}
