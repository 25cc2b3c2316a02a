package main

import (
	"fmt"
	"os"

	"tforge/cmd/tforge/cmdutil"
	"tforge/cmd/tforge/doctorcmd"
	"tforge/cmd/tforge/fabriccmd"
	"tforge/cmd/tforge/hostscmd"
	"tforge/cmd/tforge/statuscmd"
	"tforge/cmd/tforge/ui"
	"tforge/internal/buildinfo"
	"tforge/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	var (
		debug         bool
		configPath    string
		noInteraction bool
	)
	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "tforge",
		Short:         "Fleet configuration for Thunderbolt fabric networks over SSH",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			if err := logging.Configure(level); err != nil {
				return err
			}
			ui.ConfigureInteraction(noInteraction)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $TFORGE_CONFIG or tforge.yml)")
	root.PersistentFlags().BoolVar(&noInteraction, "no-interaction", false, "Never prompt; fail where input would be required")

	root.AddCommand(fabriccmd.Cmd(&configPath))
	root.AddCommand(hostscmd.Cmd(&configPath))
	root.AddCommand(statuscmd.Cmd(&configPath))
	root.AddCommand(doctorcmd.Cmd(&configPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cmdutil.ExitCode(err))
	}
}
