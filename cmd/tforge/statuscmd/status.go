// Package statuscmd implements the status command, a point-in-time
// reachability table for the whole fleet.
package statuscmd

import (
	"fmt"
	"time"

	"tforge/cmd/tforge/cmdutil"
	"tforge/cmd/tforge/ui"
	"tforge/internal/monitor"
	"tforge/internal/probe"

	"github.com/spf13/cobra"
)

// Cmd returns the status command.
func Cmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Probe SSH and application ports across the fleet",
		Long: `Probe every node's SSH and application ports over the management
network and, where a fabric address is assigned, over the fabric network.

Status is advisory: ports shown down do not change the exit code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, nodes, err := cmdutil.LoadFleet(*configPath)
			if err != nil {
				return err
			}

			collector := &monitor.Collector{
				Prober:  probe.Dialer{Timeout: time.Duration(cfg.Settings.SSH.ConnectTimeoutSeconds * float64(time.Second))},
				SSHPort: cfg.Settings.Monitor.SSHPort,
				AppPort: cfg.Settings.Monitor.AppPort,
			}
			var fabricAddr map[string]string
			if cfg.FabricNet != nil {
				fabricAddr = cfg.FabricNet.AddressByName()
			}

			status := collector.Collect(cmd.Context(), nodes, fabricAddr)

			rows := make([][]string, 0, len(status.Nodes))
			for _, n := range status.Nodes {
				row := []string{n.Name, n.MgmtIP, ui.Port(n.Mgmt.SSH), ui.Port(n.Mgmt.App)}
				if n.FabricIP != "" {
					row = append(row, n.FabricIP, ui.Port(n.Fabric.SSH), ui.Port(n.Fabric.App))
				} else {
					dash := ui.Muted("-")
					row = append(row, dash, dash, dash)
				}
				rows = append(rows, row)
			}
			fmt.Println(ui.Table([]string{"Node", "Mgmt IP", "SSH", "App", "Fabric IP", "SSH", "App"}, rows))
			fmt.Println(ui.Muted("probed at " + status.TakenAt.Local().Format("2006-01-02 15:04:05")))
			return nil
		},
	}
}
