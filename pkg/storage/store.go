package storage

import (
	"errors"

	"github.com/cuemby/burrow/pkg/types"
)

// ErrNotFound is returned when a key does not exist
var ErrNotFound = errors.New("not found")

// Store defines the interface for durable scheduler state
type Store interface {
	// Worker group allowlists
	SaveWorkerGroup(group types.WorkerGroup) error
	GetWorkerGroup(name string) (*types.WorkerGroup, error)
	ListWorkerGroups() ([]types.WorkerGroup, error)
	DeleteWorkerGroup(name string) error

	// Workflow run history
	SaveRun(run *types.RunRecord) error
	GetRun(id string) (*types.RunRecord, error)
	ListRuns() ([]*types.RunRecord, error)
	DeleteRun(id string) error

	// Utility
	Close() error
}
