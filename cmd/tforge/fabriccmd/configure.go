package fabriccmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"tforge/cmd/tforge/cmdutil"
	"tforge/cmd/tforge/ui"
	"tforge/config"
	"tforge/internal/fabric"
	"tforge/internal/journal"
	"tforge/internal/probe"
	"tforge/internal/remote"

	"github.com/spf13/cobra"
)

func configureCmd(configPath *string) *cobra.Command {
	var (
		only        string
		sudoMode    string
		journalPath string
		noJournal   bool
	)

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Assign fabric IPv4 addresses across the fleet",
		Long: `Assign the configured fabric IPv4 address to every fleet node and verify
each assignment stuck, then probe every fabric address from this host.

Validation failures exit with code 2 before any node is touched. A node
failure aborts the run immediately; already-configured nodes keep their
addresses and the journal records how far the run got.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, nodes, err := cmdutil.LoadFleet(*configPath)
			if err != nil {
				return cmdutil.Exit(2, err)
			}
			sudo, err := resolveSudo(sudoMode)
			if err != nil {
				return cmdutil.Exit(2, err)
			}

			orch := &fabric.Orchestrator{
				Fabric: cfg.FabricNet,
				Nodes:  nodes,
				Runner: &remote.Runner{
					Settings: cfg.Settings.SSH,
					Console:  remote.NewConsole(os.Stdout),
				},
				Prober:    probe.Dialer{Timeout: fabric.SweepTimeout(cfg.Settings.SSH.ConnectTimeoutSeconds)},
				SweepPort: cfg.Settings.Monitor.SSHPort,
				Out:       os.Stdout,
			}

			started := time.Now()
			verdict, runErr := orch.Run(cmd.Context(), cmdutil.SplitList(only), sudo)
			if !noJournal && verdict != nil {
				recordRun(journalPath, cfg.FabricNet, started, verdict, runErr)
			}

			if runErr != nil {
				printFailure(os.Stdout, cfg.FabricNet, nodes, runErr)
				return cmdutil.Exit(2, errors.New("fabric configure failed"))
			}

			fmt.Println()
			fmt.Println(ui.SuccessMsg("fabricnet configured and reachable on all selected nodes"))
			return nil
		},
	}

	cmd.Flags().StringVar(&only, "only", "", "Comma-separated node names to configure (default: all)")
	cmd.Flags().StringVar(&sudoMode, "sudo-mode", "auto", "Remote privilege escalation: auto, interactive, nopasswd, prompt")
	cmd.Flags().StringVar(&journalPath, "journal", "", "Run journal location (default: "+journal.DefaultPath()+")")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Skip recording this run in the journal")
	return cmd
}

// resolveSudo maps the --sudo-mode flag onto a remote.Sudo. Auto picks
// interactive sudo on a terminal and fail-fast sudo everywhere else, so
// unattended runs can never hang on a hidden prompt.
func resolveSudo(mode string) (remote.Sudo, error) {
	switch mode {
	case "auto":
		if ui.IsInteractive() {
			return remote.Sudo{Interactive: true}, nil
		}
		return remote.Sudo{}, nil
	case "interactive":
		return remote.Sudo{Interactive: true}, nil
	case "nopasswd":
		return remote.Sudo{}, nil
	case "prompt":
		password, err := ui.Password("sudo password for fleet nodes", "use --sudo-mode nopasswd with passwordless sudo configured")
		if err != nil {
			return remote.Sudo{}, err
		}
		return remote.Sudo{Password: password}, nil
	default:
		return remote.Sudo{}, fmt.Errorf("invalid --sudo-mode %q (valid: auto, interactive, nopasswd, prompt)", mode)
	}
}

// printFailure renders the run error with remediation. A sudo password
// refusal gets a dedicated recipe because it is the most common failure
// on a fresh fleet.
func printFailure(out io.Writer, fn *config.FabricNet, nodes []config.Node, runErr error) {
	fmt.Fprintln(out)

	var stageErr *fabric.StageError
	if errors.As(runErr, &stageErr) && remote.IsSudoPasswordRequired(runErr) {
		fmt.Fprintln(out, ui.ErrorMsg("%s: sudo requires a password on this node", stageErr.Node))
		fmt.Fprintln(out, "What to do:")
		fmt.Fprintln(out, "- Re-run with --sudo-mode prompt to enter the password once")
		if target := nodeTarget(nodes, stageErr.Node); target != "" {
			fmt.Fprintf(out, "- Or check sudo by hand: ssh %s, then: sudo -v\n", target)
		}
		if manual := manualAssignCommand(fn, stageErr.Node); manual != "" {
			fmt.Fprintln(out, "- Or apply it manually on the node:")
			fmt.Fprintf(out, "    sudo %s\n", manual)
			fmt.Fprintf(out, "  then re-run: tforge fabric configure --only %s\n", stageErr.Node)
		}
		return
	}

	fmt.Fprintln(out, ui.ErrorMsg("%v", runErr))
}

func nodeTarget(nodes []config.Node, name string) string {
	for _, n := range nodes {
		if n.Name == name {
			return n.Target()
		}
	}
	return ""
}

// manualAssignCommand rebuilds the assignment the failed node needed, for
// copy-paste remediation. Empty when it cannot be derived.
func manualAssignCommand(fn *config.FabricNet, node string) string {
	if fn == nil {
		return ""
	}
	address := fn.AddressByName()[node]
	if address == "" {
		return ""
	}
	cmd, err := fabric.AssignCommand(fn.IPv4Mode, fn.ServiceName, address, fn.IPv4Defaults)
	if err != nil {
		return ""
	}
	return cmd
}

func recordRun(path string, fn *config.FabricNet, started time.Time, verdict *fabric.Verdict, runErr error) {
	if path == "" {
		path = journal.DefaultPath()
	}
	store, err := journal.Open(path)
	if err != nil {
		slog.Warn("journal unavailable", "path", path, "error", err)
		return
	}
	defer store.Close()

	run := journal.Run{
		StartedAt:  started,
		FinishedAt: time.Now(),
		Service:    fn.ServiceName,
		Mode:       string(fn.IPv4Mode),
		OK:         runErr == nil,
		Summary:    summarize(verdict, runErr),
	}
	for _, o := range verdict.Outcomes {
		n := journal.NodeResult{
			Node:    o.Node,
			Address: o.Address,
			Outcome: string(o.Kind),
			Stage:   string(o.Stage),
			Detail:  o.Detail,
		}
		if reachable, probed := verdict.Reachable[o.Node]; probed {
			n.Probed = true
			n.Reachable = reachable
		}
		run.Nodes = append(run.Nodes, n)
	}

	if _, err := store.Record(run); err != nil {
		slog.Warn("journal record failed", "path", path, "error", err)
	}
}

func summarize(verdict *fabric.Verdict, runErr error) string {
	if runErr == nil {
		configured := verdict.Configured()
		return fmt.Sprintf("configured %d node(s): %s", len(configured), strings.Join(configured, ", "))
	}
	// First line only; the full diagnostic lives in the node detail.
	return strings.SplitN(runErr.Error(), "\n", 2)[0]
}
