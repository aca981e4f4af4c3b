package graph

import (
	"errors"
	"fmt"

	"github.com/cuemby/burrow/pkg/types"
)

var ErrDuplicateNode = errors.New("duplicate task node name")

// DependencyGraph is the task graph handed to the scheduler for one execution pass
type DependencyGraph = Graph[string, types.TaskNode]

// NewDependencyGraph creates an empty task graph
func NewDependencyGraph() *DependencyGraph {
	return New[string, types.TaskNode]()
}

// ResolveRequest describes which part of a workflow should run
type ResolveRequest struct {
	Tasks         []types.TaskNode
	StartNodes    []string
	RecoveryNodes []string
	Mode          types.ExecutionMode
}

// Resolve selects the task subset required by the request and builds the
// dependency graph over it. An empty graph means there is nothing to run.
func Resolve(req ResolveRequest) (*DependencyGraph, error) {
	selected, err := SelectNodes(req)
	if err != nil {
		return nil, err
	}

	g := NewDependencyGraph()
	for _, node := range selected {
		g.AddNode(node.Name, node)
	}

	for _, rel := range BuildRelations(selected) {
		if err := g.AddEdge(rel.From, rel.To); err != nil {
			if errors.Is(err, ErrSelfLoop) {
				return nil, fmt.Errorf("%w: %s depends on itself", ErrCyclicDependency, rel.To)
			}
			return nil, err
		}
	}

	if err := ValidateAcyclic(g); err != nil {
		return nil, err
	}

	return g, nil
}

// Relations converts the edges of g into task relations
func Relations(g *DependencyGraph) []types.TaskNodeRelation {
	edges := g.Edges()
	rels := make([]types.TaskNodeRelation, 0, len(edges))
	for _, e := range edges {
		rels = append(rels, types.TaskNodeRelation{From: e.From, To: e.To})
	}
	return rels
}

// SelectNodes returns the nodes the request needs, each at most once, in
// traversal order.
func SelectNodes(req ResolveRequest) ([]types.TaskNode, error) {
	index := make(map[string]types.TaskNode, len(req.Tasks))
	for _, t := range req.Tasks {
		if _, dup := index[t.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, t.Name)
		}
		index[t.Name] = t
	}

	s := &selector{
		index:    index,
		visited:  make(map[string]bool),
		expanded: make(map[string]bool),
		recovery: toSet(req.RecoveryNodes),
	}

	switch req.Mode {
	case types.ModeForwardFromRecovery:
		starts := req.RecoveryNodes
		if len(starts) == 0 {
			starts = req.StartNodes
		}
		s.children = childIndex(req.Tasks)
		for _, name := range starts {
			s.descendants(name)
		}

	case types.ModeBackwardClosure:
		for _, name := range req.StartNodes {
			s.ancestors(name, true)
		}

	default:
		if len(req.StartNodes) == 0 {
			if req.Mode == types.ModeFull || req.Mode == "" {
				return append([]types.TaskNode(nil), req.Tasks...), nil
			}
			return nil, nil
		}
		for _, name := range req.StartNodes {
			s.add(name)
		}
	}

	return s.out, nil
}

// BuildRelations derives edges from PreTasks, keeping only those whose
// upstream node is part of the selection.
func BuildRelations(nodes []types.TaskNode) []types.TaskNodeRelation {
	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		present[n.Name] = true
	}

	var rels []types.TaskNodeRelation
	seen := make(map[types.TaskNodeRelation]bool)
	for _, n := range nodes {
		for _, dep := range n.PreTasks {
			if !present[dep] {
				continue
			}
			rel := types.TaskNodeRelation{From: dep, To: n.Name}
			if seen[rel] {
				continue
			}
			seen[rel] = true
			rels = append(rels, rel)
		}
	}
	return rels
}

type selector struct {
	index    map[string]types.TaskNode
	children map[string][]string
	recovery map[string]bool
	visited  map[string]bool
	expanded map[string]bool
	out      []types.TaskNode
}

// add selects name once; unknown names are ignored
func (s *selector) add(name string) bool {
	if s.visited[name] {
		return false
	}
	node, ok := s.index[name]
	if !ok {
		return false
	}
	s.visited[name] = true
	s.out = append(s.out, node)
	return true
}

func (s *selector) descendants(name string) {
	if !s.add(name) {
		return
	}
	for _, child := range s.children[name] {
		s.descendants(child)
	}
}

// ancestors selects name and its upstream closure. Recovery nodes reached
// through the traversal are selected but not expanded; start nodes always
// are, whatever reached them first.
func (s *selector) ancestors(name string, start bool) {
	s.add(name)
	if !s.visited[name] || s.expanded[name] {
		return
	}
	if !start && s.recovery[name] {
		return
	}
	s.expanded[name] = true
	for _, dep := range s.index[name].PreTasks {
		s.ancestors(dep, false)
	}
}

func childIndex(tasks []types.TaskNode) map[string][]string {
	children := make(map[string][]string)
	for _, t := range tasks {
		for _, dep := range t.PreTasks {
			children[dep] = append(children[dep], t.Name)
		}
	}
	return children
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
