package commands

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/flowcanvas/internal/tableref"
	"github.com/leapstack-labs/flowcanvas/internal/viewer"
)

// ViewOptions holds options for the view command.
type ViewOptions struct {
	Filter string
	Export string
}

// NewViewCommand creates the view command.
func NewViewCommand() *cobra.Command {
	opts := &ViewOptions{}

	cmd := &cobra.Command{
		Use:   "view <node-id>",
		Short: "Browse a node's output table",
		Long: `Open an interactive viewer on the output table of a node.

Inside the viewer: n/p page forward and back, / filters rows, e exports
the current filtered rows to CSV, q quits. When stdout is not a terminal
the first page is printed instead.`,
		Example: `  # Browse a sheet's rows
  flowcanvas view sheet-42

  # Export a step's rows matching a filter
  flowcanvas view step-7 --filter error --export errors.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "Case-insensitive substring filter")
	cmd.Flags().StringVar(&opts.Export, "export", "", "Write filtered rows to a CSV file and exit")

	return cmd
}

func runView(cmd *cobra.Command, nodeID string, opts *ViewOptions) error {
	cc := NewCommandContext(cmd)
	if err := cc.requireProject(); err != nil {
		return err
	}

	ref, err := tableref.ParseNodeID(nodeID)
	if err != nil {
		return err
	}

	v, err := viewer.Load(cmd.Context(), cc.Client, cc.Cfg.ProjectID, ref, nodeID)
	if err != nil {
		return fmt.Errorf("failed to load table for %s: %w", nodeID, err)
	}
	if opts.Filter != "" {
		v.SetFilter(opts.Filter)
	}

	if opts.Export != "" {
		f, err := os.Create(opts.Export)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := v.ExportCSV(f); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", v.MatchCount(), opts.Export)
		return nil
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return printPage(cmd, v)
	}

	model := viewer.NewModel(v)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = program.Run()
	return err
}

// printPage renders the current page without the TUI, for piped output.
func printPage(cmd *cobra.Command, v *viewer.Viewer) error {
	if err := renderRows(cmd.OutOrStdout(), outputFormat(cmd), v.Columns(), v.Rows()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "(page %d of %d, %d rows total)\n",
		v.Page()+1, v.PageCount(), v.TotalRows())
	return nil
}
