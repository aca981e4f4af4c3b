package definition

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/types"
	"gopkg.in/yaml.v3"
)

// APIVersion is the only supported definition version
const APIVersion = "burrow/v1"

// Resource kinds
const (
	KindWorkflow = "Workflow"
	KindCluster  = "Cluster"
)

// ErrInvalidDefinition is returned for definitions that fail validation
var ErrInvalidDefinition = errors.New("invalid definition")

// Resource is the envelope every definition file uses
type Resource struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ResourceMetadata `yaml:"metadata"`
	Spec       yaml.Node        `yaml:"spec"`
}

type ResourceMetadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// Workflow is a named set of task nodes
type Workflow struct {
	Name   string
	Labels map[string]string
	Tasks  []types.TaskNode
}

type workflowSpec struct {
	Tasks []types.TaskNode `yaml:"tasks"`
}

// Cluster lists worker group allowlists and statically known workers
type Cluster struct {
	Name    string
	Groups  []types.WorkerGroup
	Workers []WorkerSpec
}

type clusterSpec struct {
	Groups  []types.WorkerGroup `yaml:"groups"`
	Workers []WorkerSpec        `yaml:"workers"`
}

// WorkerSpec describes one worker in a cluster file. Usage values are
// ratios in [0, 1].
type WorkerSpec struct {
	Address string   `yaml:"address"`
	Groups  []string `yaml:"groups"`
	Status  string   `yaml:"status"`
	CPU     float64  `yaml:"cpu"`
	Memory  float64  `yaml:"memory"`
	Queue   float64  `yaml:"queue"`
	Weight  int      `yaml:"weight"`
}

// Metadata converts the spec into registry metadata. The heartbeat time is
// left zero so statically declared workers are never evicted.
func (w WorkerSpec) Metadata() (*types.WorkerServerMetadata, error) {
	status, err := types.ParseServerStatus(w.Status)
	if err != nil {
		return nil, err
	}
	return &types.WorkerServerMetadata{
		Address:             w.Address,
		Groups:              append([]string(nil), w.Groups...),
		Status:              status,
		CPUUsage:            w.CPU,
		MemoryUsage:         w.Memory,
		TaskThreadPoolUsage: w.Queue,
		WorkerWeight:        w.Weight,
	}, nil
}

// LoadWorkflow reads a workflow definition file
func LoadWorkflow(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseWorkflow(data)
}

// ParseWorkflow decodes and validates a workflow definition
func ParseWorkflow(data []byte) (*Workflow, error) {
	res, err := decode(data, KindWorkflow)
	if err != nil {
		return nil, err
	}

	var spec workflowSpec
	if err := res.decodeSpec(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse workflow spec: %w", err)
	}

	wf := &Workflow{Name: res.Metadata.Name, Labels: res.Metadata.Labels, Tasks: spec.Tasks}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return wf, nil
}

// Validate requires a name and unique task names, and that every declared
// dependency names a task of the workflow
func (w *Workflow) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("%w: workflow name is required", ErrInvalidDefinition)
	}

	names := make(map[string]bool, len(w.Tasks))
	for i, t := range w.Tasks {
		if t.Name == "" {
			return fmt.Errorf("%w: task %d has no name", ErrInvalidDefinition, i)
		}
		if names[t.Name] {
			return fmt.Errorf("%w: duplicate task %q", ErrInvalidDefinition, t.Name)
		}
		names[t.Name] = true
	}

	for _, t := range w.Tasks {
		for _, dep := range t.PreTasks {
			if !names[dep] {
				return fmt.Errorf("%w: task %q depends on unknown task %q", ErrInvalidDefinition, t.Name, dep)
			}
		}
	}
	return nil
}

// TaskNames returns the task names in declaration order
func (w *Workflow) TaskNames() []string {
	names := make([]string, 0, len(w.Tasks))
	for _, t := range w.Tasks {
		names = append(names, t.Name)
	}
	return names
}

// LoadCluster reads a cluster definition file
func LoadCluster(path string) (*Cluster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseCluster(data)
}

// ParseCluster decodes and validates a cluster definition
func ParseCluster(data []byte) (*Cluster, error) {
	res, err := decode(data, KindCluster)
	if err != nil {
		return nil, err
	}

	var spec clusterSpec
	if err := res.decodeSpec(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse cluster spec: %w", err)
	}

	c := &Cluster{Name: res.Metadata.Name, Groups: spec.Groups, Workers: spec.Workers}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate requires unique group names and worker addresses, known statuses
// and usage ratios within [0, 1]
func (c *Cluster) Validate() error {
	groups := make(map[string]bool, len(c.Groups))
	for i, g := range c.Groups {
		if g.Name == "" {
			return fmt.Errorf("%w: group %d has no name", ErrInvalidDefinition, i)
		}
		if groups[g.Name] {
			return fmt.Errorf("%w: duplicate group %q", ErrInvalidDefinition, g.Name)
		}
		groups[g.Name] = true
	}

	addrs := make(map[string]bool, len(c.Workers))
	for i, w := range c.Workers {
		if w.Address == "" {
			return fmt.Errorf("%w: worker %d has no address", ErrInvalidDefinition, i)
		}
		if addrs[w.Address] {
			return fmt.Errorf("%w: duplicate worker %q", ErrInvalidDefinition, w.Address)
		}
		addrs[w.Address] = true

		if _, err := types.ParseServerStatus(w.Status); err != nil {
			return fmt.Errorf("%w: worker %q: %v", ErrInvalidDefinition, w.Address, err)
		}
		for _, v := range []float64{w.CPU, w.Memory, w.Queue} {
			if v < 0 || v > 1 {
				return fmt.Errorf("%w: worker %q usage must be within [0, 1]", ErrInvalidDefinition, w.Address)
			}
		}
		if w.Weight < 0 {
			return fmt.Errorf("%w: worker %q weight must not be negative", ErrInvalidDefinition, w.Address)
		}
	}
	return nil
}

// Apply replaces the registry's allowlists with the cluster's groups and
// registers every worker
func (c *Cluster) Apply(reg *registry.Registry) error {
	reg.OnWorkerGroupChange(c.Groups)
	for _, w := range c.Workers {
		md, err := w.Metadata()
		if err != nil {
			return err
		}
		reg.OnServerAdded(md)
	}
	return nil
}

func decode(data []byte, kind string) (*Resource, error) {
	var res Resource
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if res.APIVersion != APIVersion {
		return nil, fmt.Errorf("%w: unsupported apiVersion %q", ErrInvalidDefinition, res.APIVersion)
	}
	if res.Kind != kind {
		return nil, fmt.Errorf("%w: expected kind %s, got %q", ErrInvalidDefinition, kind, res.Kind)
	}
	return &res, nil
}

// decodeSpec decodes the spec block into out; a missing spec leaves out empty
func (r *Resource) decodeSpec(out any) error {
	if r.Spec.Kind == 0 {
		return nil
	}
	return r.Spec.Decode(out)
}
