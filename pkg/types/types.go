package types

import (
	"fmt"
	"strings"
	"time"
)

// DefaultWorkerWeight is the static weight assigned to workers that do not report one
const DefaultWorkerWeight = 100

// TaskNode represents one unit of work in a workflow graph
type TaskNode struct {
	Name        string   `json:"name" yaml:"name"`
	PreTasks    []string `json:"preTasks,omitempty" yaml:"preTasks,omitempty"` // Names this node depends on, in order
	Forbidden   bool     `json:"forbidden,omitempty" yaml:"forbidden,omitempty"`
	WorkerGroup string   `json:"workerGroup,omitempty" yaml:"workerGroup,omitempty"`
}

// DependsOn reports whether name is one of the node's declared dependencies
func (n TaskNode) DependsOn(name string) bool {
	for _, dep := range n.PreTasks {
		if dep == name {
			return true
		}
	}
	return false
}

// TaskNodeRelation is a derived edge: From must complete before To starts
type TaskNodeRelation struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (r TaskNodeRelation) String() string {
	return r.From + "->" + r.To
}

// ExecutionMode selects how the runnable subset of a workflow is computed
type ExecutionMode string

const (
	// ModeFull runs every node, or exactly the start nodes when some are named
	ModeFull ExecutionMode = "FULL"

	// ModeForwardFromRecovery runs the start (or recovery) nodes and everything downstream
	ModeForwardFromRecovery ExecutionMode = "FORWARD_FROM_RECOVERY"

	// ModeBackwardClosure runs the start nodes and everything they depend on
	ModeBackwardClosure ExecutionMode = "BACKWARD_CLOSURE"
)

// ParseExecutionMode converts a user supplied mode name, accepting the
// task-post/task-pre aliases
func ParseExecutionMode(s string) (ExecutionMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(ModeFull):
		return ModeFull, nil
	case string(ModeForwardFromRecovery), "TASK-POST", "TASK_POST":
		return ModeForwardFromRecovery, nil
	case string(ModeBackwardClosure), "TASK-PRE", "TASK_PRE":
		return ModeBackwardClosure, nil
	default:
		return "", fmt.Errorf("unknown execution mode: %q", s)
	}
}

// WorkerGroup is a named pool of workers. An empty Addresses list means
// membership is derived from the group tags workers register with.
type WorkerGroup struct {
	Name      string   `json:"name" yaml:"name"`
	Addresses []string `json:"addresses,omitempty" yaml:"addresses,omitempty"`
}

// ServerStatus is the health classification of a worker
type ServerStatus string

const (
	ServerStatusNormal   ServerStatus = "NORMAL"
	ServerStatusBusy     ServerStatus = "BUSY"
	ServerStatusAbnormal ServerStatus = "ABNORMAL"
)

// ParseServerStatus converts a status name; empty defaults to NORMAL
func ParseServerStatus(s string) (ServerStatus, error) {
	switch ServerStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case "", ServerStatusNormal:
		return ServerStatusNormal, nil
	case ServerStatusBusy:
		return ServerStatusBusy, nil
	case ServerStatusAbnormal:
		return ServerStatusAbnormal, nil
	default:
		return "", fmt.Errorf("unknown server status: %q", s)
	}
}

// WorkerServerMetadata is a snapshot of one worker's identity, health and load
type WorkerServerMetadata struct {
	Address             string       `json:"address"` // host:port, unique per cluster
	Groups              []string     `json:"groups,omitempty"`
	Status              ServerStatus `json:"status"`
	CPUUsage            float64      `json:"cpuUsage"`            // 0..1
	MemoryUsage         float64      `json:"memoryUsage"`         // 0..1
	TaskThreadPoolUsage float64      `json:"taskThreadPoolUsage"` // 0..1
	WorkerWeight        int          `json:"workerWeight"`
	LastHeartbeat       time.Time    `json:"lastHeartbeat"`
}

// Clone returns a deep copy so snapshots can be shared across goroutines
func (m *WorkerServerMetadata) Clone() *WorkerServerMetadata {
	if m == nil {
		return nil
	}
	c := *m
	if m.Groups != nil {
		c.Groups = append([]string(nil), m.Groups...)
	}
	return &c
}

// InGroup reports whether the worker registered with the given group tag
func (m *WorkerServerMetadata) InGroup(group string) bool {
	for _, g := range m.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Weight returns the configured static weight, falling back to DefaultWorkerWeight
func (m *WorkerServerMetadata) Weight() int {
	if m.WorkerWeight <= 0 {
		return DefaultWorkerWeight
	}
	return m.WorkerWeight
}

// IsNormal reports whether the worker may receive new dispatches
func (m *WorkerServerMetadata) IsNormal() bool {
	return m.Status == ServerStatusNormal
}

// Dispatch is the outbound pairing of a ready task node and the worker chosen for it
type Dispatch struct {
	ID            string
	RunID         string
	Node          TaskNode
	WorkerAddress string
	Attempt       int
	CreatedAt     time.Time
}

// RunRecord is the persisted summary of a finished workflow run
type RunRecord struct {
	ID         string        `json:"id"`
	Workflow   string        `json:"workflow"`
	Mode       ExecutionMode `json:"mode"`
	Status     string        `json:"status"`
	Completed  []string      `json:"completed,omitempty"`
	Failed     []string      `json:"failed,omitempty"`
	Skipped    []string      `json:"skipped,omitempty"`
	Blocked    []string      `json:"blocked,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
}
