package hostscmd

import (
	"fmt"

	"tforge/cmd/tforge/cmdutil"
	"tforge/cmd/tforge/ui"

	"github.com/spf13/cobra"
)

func renderCmd(configPath *string) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the managed hosts block for the current fleet",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, nodes, err := cmdutil.LoadFleet(*configPath)
			if err != nil {
				return cmdutil.Exit(2, err)
			}

			block := buildBlock(cfg, nodes)
			if out == "" {
				fmt.Print(block)
				return nil
			}
			if err := writeArtifact(out, block); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("wrote hosts block to %s", out))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write the block to a file instead of stdout")
	return cmd
}
