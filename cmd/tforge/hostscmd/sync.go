package hostscmd

import (
	"errors"
	"fmt"
	"os"

	"tforge/cmd/tforge/cmdutil"
	"tforge/cmd/tforge/ui"
	"tforge/internal/hostsblock"

	"github.com/spf13/cobra"
)

func syncCmd(configPath *string) *cobra.Command {
	var (
		hostsFile string
		artifact  string
		yes       bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Splice the managed block into the hosts file",
		Long: `Render the managed fleet block, save it as an artifact, and splice it
into the hosts file between the sentinel markers. Everything outside the
markers is preserved byte for byte, and re-running with an unchanged
fleet is a no-op.

Writing /etc/hosts needs root; non-root runs escalate through local sudo.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, nodes, err := cmdutil.LoadFleet(*configPath)
			if err != nil {
				return cmdutil.Exit(2, err)
			}
			block := buildBlock(cfg, nodes)

			if artifact != "" {
				if err := writeArtifact(artifact, block); err != nil {
					return err
				}
				fmt.Println(ui.InfoMsg("hosts block saved to %s", artifact))
			}

			current, err := os.ReadFile(hostsFile)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("read %s: %w", hostsFile, err)
			}

			updated := hostsblock.Upsert(string(current), block, cfg.Settings.HostsSync)
			if updated == string(current) {
				fmt.Println(ui.SuccessMsg("%s already up to date", hostsFile))
				return nil
			}

			if !yes {
				ok, err := ui.Confirm(fmt.Sprintf("update %s with the managed fleet block?", hostsFile), "re-run with --yes")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println(ui.Muted("left " + hostsFile + " unchanged"))
					return nil
				}
			}

			if err := cmdutil.WriteRootFile(cmd.Context(), hostsFile, []byte(updated)); err != nil {
				return fmt.Errorf("update %s: %w", hostsFile, err)
			}
			fmt.Println(ui.SuccessMsg("updated %s", hostsFile))
			return nil
		},
	}

	cmd.Flags().StringVar(&hostsFile, "hosts-file", "/etc/hosts", "Hosts file to update")
	cmd.Flags().StringVar(&artifact, "artifact", "artifacts/hosts.block", "Also save the rendered block here (empty to skip)")
	cmd.Flags().BoolVar(&yes, "yes", false, "Update without confirmation")
	return cmd
}
