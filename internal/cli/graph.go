package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewGraphCmd создаёт группу команд для графов, сохранённых на сервере.
func NewGraphCmd(clientFn func() *Client, outputFn func(cmd *cobra.Command) *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Manage graphs stored by the API server",
	}

	cmd.AddCommand(
		newGraphListCmd(clientFn, outputFn),
		newGraphShowCmd(clientFn, outputFn),
		newGraphCreateCmd(clientFn, outputFn),
		newGraphDeleteCmd(clientFn, outputFn),
		newGraphRunCmd(clientFn, outputFn),
	)

	return cmd
}

func newGraphListCmd(clientFn func() *Client, outputFn func(cmd *cobra.Command) *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored graphs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			graphs, err := clientFn().ListGraphs()
			if err != nil {
				return err
			}

			rows := make([][]string, len(graphs))
			for i, g := range graphs {
				rows[i] = []string{g.ID, g.Name, strconv.Itoa(g.Nodes), strconv.Itoa(g.Edges), g.UpdatedAt}
			}

			outputFn(cmd).Print([]string{"ID", "NAME", "NODES", "EDGES", "UPDATED"}, rows, graphs)
			return nil
		},
	}
}

func newGraphShowCmd(clientFn func() *Client, outputFn func(cmd *cobra.Command) *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a stored graph document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graph, err := clientFn().GetGraph(args[0])
			if err != nil {
				return err
			}
			// документ графа в таблицу не ложится
			outputFn(cmd).JSON(graph)
			return nil
		},
	}
}

func newGraphCreateCmd(clientFn func() *Client, outputFn func(cmd *cobra.Command) *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "create FILE",
		Short: "Upload a graph document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			if !json.Valid(data) {
				return fmt.Errorf("%s is not valid JSON", args[0])
			}

			graph, err := clientFn().CreateGraph(json.RawMessage(data))
			if err != nil {
				return err
			}

			out := outputFn(cmd)
			out.Success(fmt.Sprintf("Graph created: %s", graph.ID))
			out.Print(
				[]string{"ID", "NAME", "SCHEMA", "CREATED"},
				[][]string{{graph.ID, graph.Name, strconv.Itoa(graph.SchemaVersion), graph.CreatedAt}},
				graph,
			)
			return nil
		},
	}
}

func newGraphDeleteCmd(clientFn func() *Client, outputFn func(cmd *cobra.Command) *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a stored graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteGraph(args[0]); err != nil {
				return err
			}
			outputFn(cmd).Success(fmt.Sprintf("Graph deleted: %s", args[0]))
			return nil
		},
	}
}

func newGraphRunCmd(clientFn func() *Client, outputFn func(cmd *cobra.Command) *Output) *cobra.Command {
	var (
		input string
		async bool
	)

	cmd := &cobra.Command{
		Use:   "run ID",
		Short: "Run a stored graph on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trigger, err := parseInput(input)
			if err != nil {
				return err
			}

			client := clientFn()
			out := outputFn(cmd)

			if async {
				enqueued, err := client.EnqueueRun(args[0], trigger)
				if err != nil {
					return err
				}
				out.Success(fmt.Sprintf("Run enqueued: %s", enqueued.RequestID))
				out.Print([]string{"REQUEST", "GRAPH"}, [][]string{{enqueued.RequestID, enqueued.GraphID}}, enqueued)
				return nil
			}

			run, err := client.RunGraph(args[0], trigger)
			if err != nil {
				return err
			}

			rows := make([][]string, len(run.Executions))
			for i, exec := range run.Executions {
				rows[i] = []string{exec.NodeID, exec.NodeType, exec.Status,
					strconv.FormatInt(exec.DurationMs, 10) + "ms", compact(exec.Output, 60), exec.Error}
			}
			out.Print([]string{"NODE", "TYPE", "STATUS", "DURATION", "OUTPUT", "ERROR"}, rows, run)

			if run.Status != "SUCCEEDED" {
				return fmt.Errorf("run %s failed (%s): %s", run.RunID, run.ErrorKind, run.Error)
			}
			out.Success(fmt.Sprintf("Run %s succeeded in %dms", run.RunID, run.DurationMs))
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Run input: JSON or @file")
	cmd.Flags().BoolVar(&async, "async", false, "Enqueue the run for the runner service instead of waiting")
	return cmd
}
