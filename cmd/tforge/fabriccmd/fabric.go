// Package fabriccmd implements "tforge fabric": fleet-wide fabric IPv4
// configuration and the history of past runs.
package fabriccmd

import "github.com/spf13/cobra"

func Cmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fabric",
		Short: "Configure the Thunderbolt fabric network",
	}
	cmd.AddCommand(configureCmd(configPath))
	cmd.AddCommand(historyCmd())
	return cmd
}
