package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/flowcanvas/internal/canvas"
)

// NewNodesCommand creates the nodes command.
func NewNodesCommand() *cobra.Command {
	var kindFilter string

	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List the project's pipeline nodes",
		Long: `List every node of the project graph: sheets, transformation steps,
joins, and qualitative analyses, with their status and output tables.`,
		Example: `  # All nodes
  flowcanvas nodes

  # Only transformation steps
  flowcanvas nodes --kind transformation`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNodes(cmd, kindFilter)
		},
	}

	cmd.Flags().StringVar(&kindFilter, "kind", "", "Filter by kind (sheet|transformation|join|qualitative)")

	return cmd
}

func runNodes(cmd *cobra.Command, kindFilter string) error {
	cc := NewCommandContext(cmd)
	if err := cc.requireProject(); err != nil {
		return err
	}

	graph, err := cc.loadGraph(cmd.Context(), nil)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(graph.Nodes))
	for _, node := range graph.Nodes {
		if kindFilter != "" && string(node.Kind) != kindFilter {
			continue
		}
		rows = append(rows, []string{
			node.ID,
			string(node.Kind),
			node.Data.Name,
			statusLabel(node),
			node.Data.OutputTable,
			rowCountLabel(node),
		})
	}

	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(no nodes)")
		return nil
	}

	header := []string{"ID", "Kind", "Name", "Status", "Output table", "Rows"}
	if err := renderRows(cmd.OutOrStdout(), outputFormat(cmd), header, rows); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "(%d nodes)\n", len(rows))
	return nil
}

func statusLabel(node canvas.Node) string {
	// Sources have no execution lifecycle.
	if !node.Executable() {
		return "loaded"
	}
	return string(node.Data.Status)
}

func rowCountLabel(node canvas.Node) string {
	if node.Data.RowCount == 0 {
		return ""
	}
	return strconv.Itoa(node.Data.RowCount)
}
