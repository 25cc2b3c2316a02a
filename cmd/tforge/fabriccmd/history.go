package fabriccmd

import (
	"fmt"
	"strconv"

	"tforge/cmd/tforge/ui"
	"tforge/internal/journal"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var (
		limit       int
		journalPath string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent fabric configuration runs",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := journalPath
			if path == "" {
				path = journal.DefaultPath()
			}
			store, err := journal.Open(path)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			runs, err := store.Recent(limit)
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println(ui.Muted("no recorded runs"))
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				result := ui.SuccessStyle.Render("ok")
				if !run.OK {
					result = ui.ErrorStyle.Render("failed")
				}
				rows = append(rows, []string{
					strconv.FormatInt(run.ID, 10),
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Service,
					run.Mode,
					result,
					run.Summary,
				})
			}
			fmt.Println(ui.Table([]string{"#", "Started", "Service", "Mode", "Result", "Summary"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to show")
	cmd.Flags().StringVar(&journalPath, "journal", "", "Run journal location (default: "+journal.DefaultPath()+")")
	return cmd
}
