package graph

import (
	"crypto/sha256"
	"errors"
	"fmt"

	dag "github.com/begmaroman/go-dag"
)

var ErrCyclicDependency = errors.New("cyclic dependency detected")

// vertex is the payload stored in the validation DAG
type vertex struct {
	Key string
}

func (v *vertex) ID() string {
	return v.Key
}

func hashVertex(v *vertex) dag.VHash {
	return sha256.Sum256([]byte(v.Key))
}

// ValidateAcyclic replays g into a go-dag instance, which refuses any edge
// that would close a loop.
func ValidateAcyclic[V any](g *Graph[string, V]) error {
	d := dag.NewDAG[*vertex]()
	d.Options(dag.Options[*vertex]{VertexHashFunc: hashVertex})

	for _, key := range g.Keys() {
		if err := d.AddVertexByID(key, &vertex{Key: key}); err != nil {
			return fmt.Errorf("failed to add vertex %s: %w", key, err)
		}
	}

	for _, e := range g.Edges() {
		if err := d.AddEdge(e.From, e.To); err != nil {
			return fmt.Errorf("%w: %s -> %s: %v", ErrCyclicDependency, e.From, e.To, err)
		}
	}

	return nil
}
