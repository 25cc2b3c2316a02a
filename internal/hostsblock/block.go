// Package hostsblock renders and splices the tforge-managed section of an
// /etc/hosts file. Everything outside the sentinel markers belongs to the
// operator and is never touched.
package hostsblock

import (
	"strings"

	"tforge/config"
)

// Build renders the managed block: one <mgmt_ip> <name>-mgmt line per
// node, followed by a <fabric_ip> <name>-fabric line when the node has a
// fabric address. Node order follows the inventory.
func Build(nodes []config.Node, fabricAddr map[string]string, s config.HostsSyncSettings) string {
	var b strings.Builder
	b.WriteString(s.BlockStart)
	b.WriteByte('\n')
	for _, n := range nodes {
		b.WriteString(n.MgmtIP)
		b.WriteString(" ")
		b.WriteString(n.Name)
		b.WriteString("-mgmt\n")
		if ip := fabricAddr[n.Name]; ip != "" {
			b.WriteString(ip)
			b.WriteString(" ")
			b.WriteString(n.Name)
			b.WriteString("-fabric\n")
		}
	}
	b.WriteString(s.BlockEnd)
	b.WriteByte('\n')
	return b.String()
}

// Upsert replaces the existing managed block in hosts, or appends one
// after a separating blank line. The result always ends in exactly one
// newline, and applying the same block twice returns identical bytes.
func Upsert(hosts, block string, s config.HostsSyncSettings) string {
	block = strings.TrimRight(block, "\n")

	start := strings.Index(hosts, s.BlockStart)
	end := strings.Index(hosts, s.BlockEnd)
	if start != -1 && end != -1 && end > start {
		endIncl := end + len(s.BlockEnd)
		before := strings.TrimRight(hosts[:start], "\n")
		after := strings.TrimLeft(hosts[endIncl:], "\n")

		parts := make([]string, 0, 3)
		if before != "" {
			parts = append(parts, before)
		}
		parts = append(parts, block)
		if after != "" {
			parts = append(parts, after)
		}
		return strings.TrimRight(strings.Join(parts, "\n\n"), "\n") + "\n"
	}

	// No (intact) block yet: append. A half-present marker pair is left
	// alone for the operator to clean up.
	text := strings.TrimRight(hosts, "\n")
	if text != "" {
		return text + "\n\n" + block + "\n"
	}
	return block + "\n"
}
