package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintGraphText(t *testing.T) {
	var buf bytes.Buffer
	err := printGraph(&buf, "text", resolvedGraph{
		Workflow: "etl",
		Mode:     types.ModeFull,
		Nodes: []types.TaskNode{
			{Name: "a", WorkerGroup: "g"},
			{Name: "b", PreTasks: []string{"a"}, Forbidden: true},
		},
		Edges: []types.TaskNodeRelation{{From: "a", To: "b"}},
		Begin: []string{"a"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Workflow etl (FULL): 2 nodes, 1 edges")
	assert.Contains(t, out, "a [group=g]")
	assert.Contains(t, out, "b [forbidden]")
	assert.Contains(t, out, "a->b")
	assert.Contains(t, out, "Begin: a")
}

func TestPrintGraphEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printGraph(&buf, "text", resolvedGraph{Workflow: "etl", Mode: types.ModeBackwardClosure}))
	assert.Contains(t, buf.String(), "nothing to execute")
}

func TestPrintGraphFormats(t *testing.T) {
	g := resolvedGraph{Workflow: "etl", Mode: types.ModeFull, Nodes: []types.TaskNode{{Name: "a"}}}

	var js bytes.Buffer
	require.NoError(t, printGraph(&js, "json", g))
	assert.Contains(t, js.String(), `"workflow": "etl"`)

	var ym bytes.Buffer
	require.NoError(t, printGraph(&ym, "yaml", g))
	assert.Contains(t, ym.String(), "workflow: etl")

	assert.Error(t, printGraph(&bytes.Buffer{}, "xml", g))
}

func TestLogExecutor(t *testing.T) {
	exec := &logExecutor{delay: time.Millisecond, fail: map[string]bool{"bad": true}}

	assert.NoError(t, exec.Execute(context.Background(), types.Dispatch{Node: types.TaskNode{Name: "good"}}))
	assert.Error(t, exec.Execute(context.Background(), types.Dispatch{Node: types.TaskNode{Name: "bad"}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := &logExecutor{delay: time.Hour}
	assert.ErrorIs(t, slow.Execute(ctx, types.Dispatch{Node: types.TaskNode{Name: "good"}}), context.Canceled)
}

func TestFormatMetadata(t *testing.T) {
	got := formatMetadata(map[string]string{
		"run_id":         "r1",
		"task":           "load",
		"worker_address": "w1:1",
		"attempt":        "2",
	})
	assert.Equal(t, "task=load worker_address=w1:1 attempt=2", got)
}

const testWorkflow = `
apiVersion: burrow/v1
kind: Workflow
metadata:
  name: nightly
spec:
  tasks:
    - name: extract
      workerGroup: etl
    - name: transform
      preTasks: [extract]
      workerGroup: etl
    - name: load
      preTasks: [transform]
      workerGroup: etl
`

const testCluster = `
apiVersion: burrow/v1
kind: Cluster
metadata:
  name: local
spec:
  workers:
    - address: 10.0.0.1:1234
      groups: [etl]
    - address: 10.0.0.2:1234
      groups: [etl]
`

func writeDefinition(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

// execute runs the root command with args. Flag values persist between
// calls, so every call passes the flags it depends on.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	wf := writeDefinition(t, "workflow.yaml", testWorkflow)

	out, err := execute(t, "resolve", "-f", wf, "--mode", "FULL", "-o", "json")
	require.NoError(t, err)

	var full resolvedGraph
	require.NoError(t, json.Unmarshal([]byte(out), &full))
	assert.Equal(t, "nightly", full.Workflow)
	require.Len(t, full.Nodes, 3)
	assert.Equal(t, []types.TaskNodeRelation{
		{From: "extract", To: "transform"},
		{From: "transform", To: "load"},
	}, full.Edges)
	assert.Equal(t, []string{"extract"}, full.Begin)

	out, err = execute(t, "resolve", "-f", wf, "--mode", "task-pre", "--start", "transform", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Workflow nightly (BACKWARD_CLOSURE): 2 nodes, 1 edges")
	assert.Contains(t, out, "extract->transform")
	assert.NotContains(t, out, "load")
}

func TestRunCommand(t *testing.T) {
	wf := writeDefinition(t, "workflow.yaml", testWorkflow)
	cluster := writeDefinition(t, "cluster.yaml", testCluster)

	_, err := execute(t, "run", "-f", wf, "--cluster", cluster, "--mode", "FULL", "--delay", "1ms")
	require.NoError(t, err)

	_, err = execute(t, "run", "-f", wf, "--cluster", cluster, "--mode", "FULL", "--delay", "1ms", "--fail", "load")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow nightly failed")
}

func TestServeFailsWhenServerCannotStart(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := writeDefinition(t, "burrow.yaml", fmt.Sprintf(
		"server: {metricsAddr: %q, grpcAddr: \"127.0.0.1:0\", dataDir: %q}\n",
		busy.Addr().String(), t.TempDir(),
	))
	t.Cleanup(func() { _ = rootCmd.PersistentFlags().Set("config", "") })

	_, err = execute(t, "serve", "-c", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "health server error")
}
