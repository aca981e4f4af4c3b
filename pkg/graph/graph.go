package graph

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrSelfLoop     = errors.New("edge endpoints are the same node")
)

// Edge is a directed edge between two node keys
type Edge[K comparable] struct {
	From K
	To   K
}

// Graph is a directed graph container keyed by K holding node values V.
// Node insertion order is preserved so that traversals are deterministic.
type Graph[K comparable, V any] struct {
	mu sync.RWMutex

	order   []K
	nodes   map[K]V
	preds   map[K][]K
	succs   map[K][]K
	edges   []Edge[K]
	edgeSet map[Edge[K]]struct{}
}

// New creates an empty graph
func New[K comparable, V any]() *Graph[K, V] {
	return &Graph[K, V]{
		nodes:   make(map[K]V),
		preds:   make(map[K][]K),
		succs:   make(map[K][]K),
		edgeSet: make(map[Edge[K]]struct{}),
	}
}

// AddNode inserts a node or replaces the value of an existing one
func (g *Graph[K, V]) AddNode(key K, value V) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[key]; !exists {
		g.order = append(g.order, key)
	}
	g.nodes[key] = value
}

// AddEdge adds from -> to. Both endpoints must already exist.
// Adding an edge that is already present is a no-op.
func (g *Graph[K, V]) AddEdge(from, to K) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("%w: %v", ErrNodeNotFound, from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("%w: %v", ErrNodeNotFound, to)
	}
	if from == to {
		return fmt.Errorf("%w: %v", ErrSelfLoop, from)
	}

	e := Edge[K]{From: from, To: to}
	if _, dup := g.edgeSet[e]; dup {
		return nil
	}
	g.edgeSet[e] = struct{}{}
	g.edges = append(g.edges, e)
	g.succs[from] = append(g.succs[from], to)
	g.preds[to] = append(g.preds[to], from)
	return nil
}

// Node returns the value stored for key
func (g *Graph[K, V]) Node(key K) (V, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.nodes[key]
	return v, ok
}

// Contains reports whether key is a node of the graph
func (g *Graph[K, V]) Contains(key K) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[key]
	return ok
}

// HasEdge reports whether from -> to is present
func (g *Graph[K, V]) HasEdge(from, to K) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.edgeSet[Edge[K]{From: from, To: to}]
	return ok
}

// Predecessors returns the direct upstream neighbors of key
func (g *Graph[K, V]) Predecessors(key K) []K {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]K(nil), g.preds[key]...)
}

// Successors returns the direct downstream neighbors of key
func (g *Graph[K, V]) Successors(key K) []K {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]K(nil), g.succs[key]...)
}

// BeginNodes returns nodes with no predecessors, in insertion order
func (g *Graph[K, V]) BeginNodes() []K {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var begin []K
	for _, k := range g.order {
		if len(g.preds[k]) == 0 {
			begin = append(begin, k)
		}
	}
	return begin
}

// EndNodes returns nodes with no successors, in insertion order
func (g *Graph[K, V]) EndNodes() []K {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var end []K
	for _, k := range g.order {
		if len(g.succs[k]) == 0 {
			end = append(end, k)
		}
	}
	return end
}

// Keys returns all node keys in insertion order
func (g *Graph[K, V]) Keys() []K {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]K(nil), g.order...)
}

// Values returns all node values in insertion order
func (g *Graph[K, V]) Values() []V {
	g.mu.RLock()
	defer g.mu.RUnlock()

	values := make([]V, 0, len(g.order))
	for _, k := range g.order {
		values = append(values, g.nodes[k])
	}
	return values
}

// Edges returns all edges in insertion order
func (g *Graph[K, V]) Edges() []Edge[K] {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Edge[K](nil), g.edges...)
}

// Len returns the number of nodes
func (g *Graph[K, V]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}
