package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cuemby/burrow/pkg/definition"
	"github.com/cuemby/burrow/pkg/graph"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the dependency graph of a workflow",
	Long: `Resolve a workflow definition into the task nodes and edges a run would use.

Examples:
  # Every node of the workflow
  burrow resolve -f workflow.yaml

  # Re-run transform and everything downstream of it
  burrow resolve -f workflow.yaml --mode FORWARD_FROM_RECOVERY --recovery transform

  # Run load together with everything it depends on
  burrow resolve -f workflow.yaml --mode BACKWARD_CLOSURE --start load`,
	RunE: runResolve,
}

func init() {
	addRequestFlags(resolveCmd)
	resolveCmd.Flags().StringP("output", "o", "text", "Output format: text, json or yaml")
}

// addRequestFlags registers the flags shared by commands that resolve a workflow
func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "Workflow definition file (required)")
	cmd.Flags().String("mode", string(types.ModeFull), "Execution mode: FULL, FORWARD_FROM_RECOVERY (task-post) or BACKWARD_CLOSURE (task-pre)")
	cmd.Flags().StringSlice("start", nil, "Start node names")
	cmd.Flags().StringSlice("recovery", nil, "Recovery node names")
	_ = cmd.MarkFlagRequired("file")
}

// resolveRequest builds a resolve request from the shared flags
func resolveRequest(cmd *cobra.Command) (*definition.Workflow, graph.ResolveRequest, error) {
	file, _ := cmd.Flags().GetString("file")
	modeName, _ := cmd.Flags().GetString("mode")
	start, _ := cmd.Flags().GetStringSlice("start")
	recovery, _ := cmd.Flags().GetStringSlice("recovery")

	wf, err := definition.LoadWorkflow(file)
	if err != nil {
		return nil, graph.ResolveRequest{}, err
	}
	mode, err := types.ParseExecutionMode(modeName)
	if err != nil {
		return nil, graph.ResolveRequest{}, err
	}

	return wf, graph.ResolveRequest{
		Tasks:         wf.Tasks,
		StartNodes:    start,
		RecoveryNodes: recovery,
		Mode:          mode,
	}, nil
}

// resolvedGraph is the printable form of a resolved graph
type resolvedGraph struct {
	Workflow string                   `json:"workflow" yaml:"workflow"`
	Mode     types.ExecutionMode      `json:"mode" yaml:"mode"`
	Nodes    []types.TaskNode         `json:"nodes" yaml:"nodes"`
	Edges    []types.TaskNodeRelation `json:"edges" yaml:"edges"`
	Begin    []string                 `json:"begin" yaml:"begin"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	wf, req, err := resolveRequest(cmd)
	if err != nil {
		return err
	}
	g, err := graph.Resolve(req)
	if err != nil {
		return err
	}

	out := resolvedGraph{
		Workflow: wf.Name,
		Mode:     req.Mode,
		Nodes:    g.Values(),
		Edges:    graph.Relations(g),
		Begin:    g.BeginNodes(),
	}
	return printGraph(cmd.OutOrStdout(), output, out)
}

func printGraph(w io.Writer, format string, g resolvedGraph) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(g)
	case "text":
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	if len(g.Nodes) == 0 {
		fmt.Fprintf(w, "Workflow %s (%s): nothing to execute\n", g.Workflow, g.Mode)
		return nil
	}

	fmt.Fprintf(w, "Workflow %s (%s): %d nodes, %d edges\n\n", g.Workflow, g.Mode, len(g.Nodes), len(g.Edges))
	fmt.Fprintln(w, "Nodes:")
	for _, n := range g.Nodes {
		var flags []string
		if n.WorkerGroup != "" {
			flags = append(flags, "group="+n.WorkerGroup)
		}
		if n.Forbidden {
			flags = append(flags, "forbidden")
		}
		fmt.Fprintf(w, "  %s", n.Name)
		if len(flags) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(flags, ", "))
		}
		fmt.Fprintln(w)
	}

	if len(g.Edges) > 0 {
		fmt.Fprintln(w, "\nEdges:")
		for _, e := range g.Edges {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintf(w, "\nBegin: %s\n", strings.Join(g.Begin, ", "))
	return nil
}
