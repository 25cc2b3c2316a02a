// Package hostscmd implements the hosts command group: rendering the
// managed fleet block and splicing it into the local hosts file.
package hostscmd

import (
	"fmt"
	"os"
	"path/filepath"

	"tforge/config"
	"tforge/internal/hostsblock"

	"github.com/spf13/cobra"
)

// Cmd returns the hosts command group.
func Cmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "Maintain fleet name resolution in the hosts file",
	}
	cmd.AddCommand(renderCmd(configPath))
	cmd.AddCommand(syncCmd(configPath))
	return cmd
}

func buildBlock(cfg *config.Config, nodes []config.Node) string {
	var fabricAddr map[string]string
	if cfg.FabricNet != nil {
		fabricAddr = cfg.FabricNet.AddressByName()
	}
	return hostsblock.Build(nodes, fabricAddr, cfg.Settings.HostsSync)
}

func writeArtifact(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write hosts block artifact: %w", err)
	}
	return nil
}
