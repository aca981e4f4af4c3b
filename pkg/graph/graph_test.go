package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphAddEdge(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr error
	}{
		{name: "valid edge", from: "a", to: "b"},
		{name: "missing source", from: "x", to: "b", wantErr: ErrNodeNotFound},
		{name: "missing target", from: "a", to: "x", wantErr: ErrNodeNotFound},
		{name: "self loop", from: "a", to: "a", wantErr: ErrSelfLoop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New[string, int]()
			g.AddNode("a", 1)
			g.AddNode("b", 2)

			err := g.AddEdge(tt.from, tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, g.Edges())
				return
			}
			require.NoError(t, err)
			assert.True(t, g.HasEdge(tt.from, tt.to))
		})
	}
}

func TestGraphNeighbors(t *testing.T) {
	g := New[string, string]()
	for _, k := range []string{"a", "b", "c", "d"} {
		g.AddNode(k, k)
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("a", "c"))
	require.NoError(t, g.AddEdge("b", "d"))
	require.NoError(t, g.AddEdge("c", "d"))
	require.NoError(t, g.AddEdge("c", "d"))

	assert.Equal(t, []string{"a"}, g.BeginNodes())
	assert.Equal(t, []string{"d"}, g.EndNodes())
	assert.Equal(t, []string{"b", "c"}, g.Successors("a"))
	assert.Equal(t, []string{"b", "c"}, g.Predecessors("d"))
	assert.Len(t, g.Edges(), 4)
	assert.Nil(t, g.Successors("missing"))
}

func TestGraphAddNodeReplacesValue(t *testing.T) {
	g := New[string, int]()
	g.AddNode("a", 1)
	g.AddNode("b", 2)
	g.AddNode("a", 3)

	v, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, []string{"a", "b"}, g.Keys())
	assert.Equal(t, []int{3, 2}, g.Values())
	assert.Equal(t, 2, g.Len())
}

func TestGraphReturnsCopies(t *testing.T) {
	g := New[string, int]()
	g.AddNode("a", 1)
	g.AddNode("b", 2)
	require.NoError(t, g.AddEdge("a", "b"))

	succ := g.Successors("a")
	succ[0] = "mutated"
	assert.Equal(t, []string{"b"}, g.Successors("a"))
}

func TestGraphConcurrentReaders(t *testing.T) {
	g := New[int, int]()
	for i := 0; i < 100; i++ {
		g.AddNode(i, i)
		if i > 0 {
			require.NoError(t, g.AddEdge(i-1, i))
		}
	}

	var wg sync.WaitGroup
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = g.Successors(i)
				_ = g.Predecessors(i)
				_ = g.BeginNodes()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []int{0}, g.BeginNodes())
}
