/*
Package types defines the core data structures shared by every burrow package.

The types here describe the two halves of the scheduler core: the workflow side
(task nodes, derived relations, execution modes) and the cluster side (worker
groups, worker metadata, health classification). They carry no behavior beyond
small helpers and are safe to copy by value, except WorkerServerMetadata which
is shared as an immutable snapshot pointer and must be cloned before mutation.

# Core Types

Workflow:
  - TaskNode: one unit of work with its ordered dependency names
  - TaskNodeRelation: derived "from must complete before to" edge
  - ExecutionMode: FULL, FORWARD_FROM_RECOVERY (task-post), BACKWARD_CLOSURE (task-pre)

Cluster:
  - WorkerGroup: named pool with an optional explicit address allowlist
  - WorkerServerMetadata: address, group tags, status and load ratios of a worker
  - ServerStatus: NORMAL, BUSY, ABNORMAL (only NORMAL workers receive dispatches)

Dispatch:
  - Dispatch: the (task node, worker address) pair handed to the transport layer

# Usage

	node := types.TaskNode{
		Name:        "load",
		PreTasks:    []string{"extract"},
		WorkerGroup: "etl",
	}

	md := &types.WorkerServerMetadata{
		Address:  "10.0.0.5:1234",
		Groups:   []string{"etl"},
		Status:   types.ServerStatusNormal,
		CPUUsage: 0.35,
	}

	mode, err := types.ParseExecutionMode("task-post") // ModeForwardFromRecovery
*/
package types
