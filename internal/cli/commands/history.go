package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int
	var local bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show pipeline execution history",
		Long: `Show recent pipeline executions: the backend's history for the project,
plus runs started from this machine recorded in the local state database.`,
		Example: `  # Recent executions
  flowcanvas history

  # Only runs started from this machine
  flowcanvas history --local`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit, local)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show")
	cmd.Flags().BoolVar(&local, "local", false, "Only show locally recorded runs")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int, localOnly bool) error {
	cc := NewCommandContext(cmd)
	if err := cc.requireProject(); err != nil {
		return err
	}

	if !localOnly {
		entries, err := cc.Client.GetHistory(cmd.Context(), cc.Cfg.ProjectID, limit)
		if err != nil {
			return fmt.Errorf("failed to fetch backend history: %w", err)
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				strconv.Itoa(e.ID),
				e.Status,
				e.StartedAt,
				fmt.Sprintf("%ds", e.DurationSeconds),
				strconv.Itoa(e.RowsProcessed),
				e.ErrorMessage,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Backend executions:")
		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(none)")
		} else {
			header := []string{"ID", "Status", "Started", "Duration", "Rows", "Error"}
			if err := renderRows(cmd.OutOrStdout(), outputFormat(cmd), header, rows); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "")
	}

	st, err := cc.openState()
	if err != nil {
		return fmt.Errorf("failed to open local state: %w", err)
	}
	defer func() { _ = st.Close() }()

	runs, err := st.ListRuns(cc.Cfg.ProjectID, limit)
	if err != nil {
		return fmt.Errorf("failed to list local runs: %w", err)
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.Target,
			r.Status,
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration.Round(time.Millisecond).String(),
			strconv.Itoa(r.Rows),
			r.Error,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Local runs:")
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(none)")
		return nil
	}
	header := []string{"ID", "Target", "Status", "Started", "Duration", "Rows", "Error"}
	return renderRows(cmd.OutOrStdout(), outputFormat(cmd), header, rows)
}
