package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/flowcanvas/internal/canvas"
	"github.com/leapstack-labs/flowcanvas/internal/runner"
	"github.com/leapstack-labs/flowcanvas/internal/tableref"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "run [node-id]",
		Short: "Execute a pipeline step",
		Long: `Execute one pipeline step, or the whole pipeline with --all.

Node ids match what the nodes command prints, e.g. step-7 or join-3.
Sources cannot be executed; they are loaded by the backend.`,
		Example: `  # Run one transformation step
  flowcanvas run step-7

  # Run the whole pipeline in dependency order
  flowcanvas run --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("pass exactly one node id, or --all")
			}
			return runExecute(cmd, args, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Execute the whole pipeline")

	return cmd
}

func runExecute(cmd *cobra.Command, args []string, all bool) error {
	cc := NewCommandContext(cmd)
	if err := cc.requireProject(); err != nil {
		return err
	}

	st, err := cc.openState()
	if err != nil {
		cc.Logger.Warn("local state unavailable, run will not be recorded", "error", err)
		st = nil
	} else {
		defer func() { _ = st.Close() }()
	}

	graph, err := cc.loadGraph(cmd.Context(), st)
	if err != nil {
		return err
	}

	store := canvas.NewStore(cc.Logger)
	store.ReplaceGraph(graph.Nodes, graph.Edges)

	var history runner.History
	if st != nil {
		history = st
	}
	run := runner.New(cc.Cfg.ProjectID, store, cc.Client, history, cc.Logger)

	if all {
		return runExecuteAll(cmd, run)
	}
	return runExecuteOne(cmd, run, store, args[0])
}

func runExecuteOne(cmd *cobra.Command, run *runner.Runner, store *canvas.Store, nodeID string) error {
	ref, err := tableref.ParseNodeID(nodeID)
	if err != nil {
		return err
	}
	node, ok := store.Node(nodeID)
	if !ok {
		return fmt.Errorf("node %s not found in project", nodeID)
	}
	if !node.Executable() {
		return fmt.Errorf("%s is a source and cannot be executed", nodeID)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Executing %s (%s)...\n", node.Data.Name, nodeID)

	result, err := run.ExecuteNode(cmd.Context(), ref)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	rows := [][]string{
		{"Status", result.Status},
		{"Output table", result.OutputTableName},
		{"Rows", fmt.Sprintf("%d", result.RowCount)},
		{"Records processed", fmt.Sprintf("%d", result.TotalRecordsProcessed)},
		{"Execution time", fmt.Sprintf("%dms", result.ExecutionTimeMS)},
	}
	return renderRows(cmd.OutOrStdout(), outputFormat(cmd), []string{"Field", "Value"}, rows)
}

func runExecuteAll(cmd *cobra.Command, run *runner.Runner) error {
	fmt.Fprintln(cmd.OutOrStdout(), "Executing pipeline...")

	summary, err := run.ExecuteAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("pipeline execution failed: %w", err)
	}

	rows := [][]string{
		{"Total", fmt.Sprintf("%d", summary.Total)},
		{"Succeeded", fmt.Sprintf("%d", summary.Succeeded)},
		{"Failed", fmt.Sprintf("%d", summary.Failed)},
	}
	if err := renderRows(cmd.OutOrStdout(), outputFormat(cmd), []string{"Field", "Value"}, rows); err != nil {
		return err
	}

	if len(summary.FailedSteps) > 0 {
		failed := make([][]string, 0, len(summary.FailedSteps))
		for _, step := range summary.FailedSteps {
			name := step.StepName
			if name == "" {
				name = step.JoinName
			}
			if name == "" {
				name = step.OperationName
			}
			failed = append(failed, []string{name, step.Error})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "\nFailed steps:")
		if err := renderRows(cmd.OutOrStdout(), outputFormat(cmd), []string{"Step", "Error"}, failed); err != nil {
			return err
		}
		return fmt.Errorf("%d of %d steps failed", summary.Failed, summary.Total)
	}

	fmt.Fprintln(cmd.OutOrStdout(), summary.Message)
	return nil
}
