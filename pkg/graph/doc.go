/*
Package graph builds and walks the task dependency graph of a workflow run.

A workflow definition is a flat list of task nodes, each naming the nodes it
depends on. For every run the resolver selects the subset of nodes the run
needs and recomputes the edges between them, producing a DependencyGraph that
the scheduler treats as immutable for the rest of that pass.

# Graph Container

Graph is a small generic directed graph keyed by a comparable type. Node
insertion order is kept so that begin nodes, keys and edges come back in a
deterministic order:

	g := graph.New[string, types.TaskNode]()
	g.AddNode("extract", types.TaskNode{Name: "extract"})
	g.AddNode("load", types.TaskNode{Name: "load", PreTasks: []string{"extract"}})
	_ = g.AddEdge("extract", "load")

	g.BeginNodes()          // [extract]
	g.Successors("extract") // [load]

# Execution Modes

Resolve computes the node subset for one of three modes:

	FULL                   every node, or exactly the named start nodes
	FORWARD_FROM_RECOVERY  recovery (or start) nodes plus all descendants
	BACKWARD_CLOSURE       start nodes plus all ancestors; ancestors named as
	                       recovery nodes are kept but not expanded further

Edges are derived from PreTasks after selection and an edge is kept only
when both of its endpoints were selected. Dependencies on nodes outside the
selection are dropped without error. A mode that needs start nodes but gets
none resolves to an empty graph; callers report that as nothing to execute.

	g, err := graph.Resolve(graph.ResolveRequest{
		Tasks:         def.Tasks,
		RecoveryNodes: []string{"transform"},
		Mode:          types.ModeForwardFromRecovery,
	})

The resolved graph is replayed into github.com/begmaroman/go-dag, which
refuses any edge that closes a loop. A cyclic selection fails with
ErrCyclicDependency and duplicate task names fail with ErrDuplicateNode.

# Forbidden Nodes

Forbidden nodes stay in the resolved graph but are never dispatched.
NextRunnable walks forward from a finished node and bridges over forbidden
and completed successors:

	A -> B -> C(forbidden) -> D

	NextRunnable(g, "",  done)  // [A]
	NextRunnable(g, "A", done)  // [B]
	NextRunnable(g, "B", done)  // [D]

A node reached through such a bridge is admitted only when none of its
dependencies can still hold it back, so a forbidden node never blocks
progress. IsReady checks the same condition for direct successors.

# Thread Safety

Graph methods are safe for concurrent use. Resolve and NextRunnable are pure
in-memory computations bounded by the size of the graph.
*/
package graph
