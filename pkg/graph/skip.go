package graph

// NextRunnable returns the nodes eligible to start after from has finished.
// An empty from starts at the begin nodes. Forbidden or already completed
// successors are bridged over: their own successors take their place, and
// such a substituted node is admitted only when none of its dependencies can
// still gate it, looking through forbidden dependencies to their own
// upstream. Direct successors are returned as-is; use IsReady to check
// that their other predecessors are done.
func NextRunnable(g *DependencyGraph, from string, completed map[string]bool) []string {
	var candidates []string
	if from == "" {
		candidates = g.BeginNodes()
	} else {
		candidates = g.Successors(from)
	}

	w := &walker{
		g:         g,
		completed: completed,
		expanded:  make(map[string]bool),
		seen:      make(map[string]bool),
		memo:      make(map[string]bool),
	}
	for _, name := range candidates {
		w.visit(name, false)
	}
	return w.out
}

// IsReady reports whether name can start: every predecessor is completed,
// or forbidden with its own predecessors satisfied the same way.
func IsReady(g *DependencyGraph, name string, completed map[string]bool) bool {
	if !g.Contains(name) {
		return false
	}
	memo := make(map[string]bool)
	for _, pred := range g.Predecessors(name) {
		if !satisfied(g, pred, completed, memo) {
			return false
		}
	}
	return true
}

// satisfied reports whether dependency name no longer holds anything back.
// Nodes outside the graph never do; forbidden nodes are looked through.
func satisfied(g *DependencyGraph, name string, completed map[string]bool, memo map[string]bool) bool {
	if completed[name] {
		return true
	}
	if ok, seen := memo[name]; seen {
		return ok
	}

	node, ok := g.Node(name)
	if !ok {
		return true
	}

	result := false
	if node.Forbidden {
		result = true
		for _, pred := range g.Predecessors(name) {
			if !satisfied(g, pred, completed, memo) {
				result = false
				break
			}
		}
	}
	memo[name] = result
	return result
}

type walker struct {
	g         *DependencyGraph
	completed map[string]bool
	expanded  map[string]bool
	seen      map[string]bool
	memo      map[string]bool
	out       []string
}

func (w *walker) visit(name string, substituted bool) {
	node, ok := w.g.Node(name)
	if !ok {
		return
	}

	if node.Forbidden || w.completed[name] {
		if w.expanded[name] {
			return
		}
		w.expanded[name] = true
		for _, next := range w.g.Successors(name) {
			w.visit(next, true)
		}
		return
	}

	if substituted && !w.ungated(node.PreTasks) {
		return
	}
	if w.seen[name] {
		return
	}
	w.seen[name] = true
	w.out = append(w.out, name)
}

// ungated reports whether no dependency in deps can still block a start
func (w *walker) ungated(deps []string) bool {
	for _, dep := range deps {
		if !satisfied(w.g, dep, w.completed, w.memo) {
			return false
		}
	}
	return true
}
