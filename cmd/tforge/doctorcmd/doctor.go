// Package doctorcmd implements the doctor command: hub-local readiness
// checks that run before any fleet operation, without touching a node.
package doctorcmd

import (
	"errors"
	"fmt"
	"os/exec"

	"tforge/cmd/tforge/cmdutil"
	"tforge/cmd/tforge/ui"
	"tforge/config"
	"tforge/internal/fabric"
	"tforge/internal/ntpcheck"

	"github.com/spf13/cobra"
)

type issue struct {
	component string
	problem   string
	fix       string
}

// Cmd returns the doctor command.
func Cmd(configPath *string) *cobra.Command {
	var (
		skipClock bool
		ntpPool   string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check hub readiness for fleet operations",
		Long: `Check everything a configuration run needs on this host: the config
parses, the ssh client is installed, the fabricnet section covers every
node, and the hub clock is in sync. No remote commands are run.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := config.Path(*configPath)
			issues := make([]issue, 0, 4)

			cfg, nodes, err := cmdutil.LoadFleet(*configPath)
			configOK := err == nil
			if err != nil {
				issues = append(issues, issue{
					component: "config",
					problem:   err.Error(),
					fix:       "edit " + path,
				})
			}

			_, sshErr := exec.LookPath("ssh")
			sshOK := sshErr == nil
			if !sshOK {
				issues = append(issues, issue{
					component: "ssh",
					problem:   "no ssh client binary in PATH",
					fix:       "install OpenSSH (macOS ships it; most Linux distros package openssh-client)",
				})
			}

			fabricValue := ui.Muted("unknown")
			if configOK {
				ferr := fabric.Preflight(cfg.FabricNet, nodes)
				fabricValue = ui.Bool(ferr == nil)
				if ferr != nil {
					problem := ferr.Error()
					var pf *fabric.PreflightError
					if errors.As(ferr, &pf) {
						problem = pf.Problem
					}
					issues = append(issues, issue{
						component: "fabricnet",
						problem:   problem,
						fix:       "edit the fabricnet section in " + path,
					})
				}
			}

			clockValue := ui.Muted("skipped")
			if !skipClock {
				st, cerr := ntpcheck.Checker{Pool: ntpPool}.Check()
				clockValue = ui.Bool(cerr == nil && st.Healthy)
				if cerr != nil {
					issues = append(issues, issue{
						component: "clock",
						problem:   "NTP check failed: " + cerr.Error(),
						fix:       "check network access to " + st.Pool + ", or re-run with --skip-clock",
					})
				} else if !st.Healthy {
					issues = append(issues, issue{
						component: "clock",
						problem:   fmt.Sprintf("clock offset %.1fms exceeds threshold", float64(st.Offset.Microseconds())/1000.0),
						fix:       "ensure NTP is configured (ntpd, chrony, or systemd-timesyncd)",
					})
				}
			}

			fmt.Println(ui.InfoMsg("hub readiness for %s", ui.Accent(path)))
			fmt.Print(ui.KeyValues("  ",
				ui.KV("config", ui.Bool(configOK)),
				ui.KV("ssh client", ui.Bool(sshOK)),
				ui.KV("fabricnet", fabricValue),
				ui.KV("clock sync", clockValue),
			))

			if len(issues) == 0 {
				fmt.Println(ui.SuccessMsg("no issues detected"))
				return nil
			}

			fmt.Println(ui.WarnMsg("detected issues:"))
			for i, is := range issues {
				fmt.Printf("  %d) %s: %s\n", i+1, is.component, is.problem)
				fmt.Println(ui.Muted("     fix: " + is.fix))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipClock, "skip-clock", false, "Skip the NTP clock offset check")
	cmd.Flags().StringVar(&ntpPool, "ntp-pool", ntpcheck.DefaultPool, "NTP pool for the clock offset check")
	return cmd
}
