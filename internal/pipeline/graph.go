package pipeline

import (
	"container/heap"
	"sort"
)

// TaskGraph is an immutable arena of stages with index-based dependency edges.
//
// Stage B depends on stage A when B reads a field A writes. Graphs are built
// once and reused across runs; they hold no per-run data.
type TaskGraph struct {
	stages   []Stage
	byName   map[string]int
	inputs   []Field
	writer   map[Field]int
	incoming [][]int // sorted dependency indices
	outgoing [][]int // sorted dependent indices
	indeg    []int
	order    []int
	terminal int
}

// NewTaskGraph validates the stages and derives their edges.
//
// inputs are the fields seeded at the start of every run. terminal names the
// stage whose completion ends the run. All failures are *GraphError values
// matching ErrGraphFailure.
func NewTaskGraph(inputs []Field, stages []Stage, terminal string) (*TaskGraph, error) {
	if len(stages) == 0 {
		return nil, invalidf("no stages")
	}

	g := &TaskGraph{
		stages:   append([]Stage(nil), stages...),
		byName:   make(map[string]int, len(stages)),
		writer:   make(map[Field]int),
		incoming: make([][]int, len(stages)),
		outgoing: make([][]int, len(stages)),
		indeg:    make([]int, len(stages)),
		terminal: -1,
	}

	isInput := make(map[Field]bool, len(inputs))
	for _, f := range inputs {
		if f == "" {
			return nil, invalidf("empty input field name")
		}
		if isInput[f] {
			return nil, invalidf("duplicate input field %q", f)
		}
		isInput[f] = true
		g.inputs = append(g.inputs, f)
	}

	for i, s := range g.stages {
		if s.name == "" {
			return nil, invalidf("stage %d has an empty name", i)
		}
		if _, dup := g.byName[s.name]; dup {
			return nil, invalidf("duplicate stage name %q", s.name)
		}
		if s.run == nil {
			return nil, invalidf("stage %q has no unit of work", s.name)
		}
		if len(s.writes) == 0 {
			return nil, invalidf("stage %q declares no writes", s.name)
		}
		g.byName[s.name] = i
	}

	// Each field has exactly one producer
	for i, s := range g.stages {
		for _, f := range s.writes {
			if isInput[f] {
				return nil, conflictf("stage %q writes input field %q", s.name, f)
			}
			if prev, taken := g.writer[f]; taken {
				if prev == i {
					return nil, invalidf("stage %q declares write %q twice", s.name, f)
				}
				return nil, conflictf("field %q written by both %q and %q", f, g.stages[prev].name, s.name)
			}
			g.writer[f] = i
		}
	}

	for i, s := range g.stages {
		deps := make(map[int]bool)
		for _, f := range s.reads {
			if isInput[f] {
				continue
			}
			w, ok := g.writer[f]
			if !ok {
				return nil, invalidf("stage %q reads %q which no stage writes", s.name, f)
			}
			if w == i {
				return nil, cycleError([]string{s.name, s.name})
			}
			deps[w] = true
		}
		for d := range deps {
			g.incoming[i] = append(g.incoming[i], d)
			g.outgoing[d] = append(g.outgoing[d], i)
		}
		g.indeg[i] = len(deps)
	}
	for i := range g.stages {
		sort.Ints(g.incoming[i])
		sort.Ints(g.outgoing[i])
	}

	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}

	t, ok := g.byName[terminal]
	if !ok {
		return nil, invalidf("unknown terminal stage %q", terminal)
	}
	g.terminal = t

	return g, nil
}

// Len returns the number of stages.
func (g *TaskGraph) Len() int { return len(g.stages) }

// Inputs returns the seeded input fields.
func (g *TaskGraph) Inputs() []Field { return append([]Field(nil), g.inputs...) }

// Terminal returns the terminal stage name.
func (g *TaskGraph) Terminal() string { return g.stages[g.terminal].name }

// Stage returns a stage by name.
func (g *TaskGraph) Stage(name string) (Stage, bool) {
	i, ok := g.byName[name]
	if !ok {
		return Stage{}, false
	}
	return g.stages[i], true
}

// Dependencies returns the direct dependencies of a stage in declaration order.
func (g *TaskGraph) Dependencies(name string) []string {
	i, ok := g.byName[name]
	if !ok {
		return nil
	}
	return g.names(g.incoming[i])
}

// Dependents returns the stages that directly depend on a stage.
func (g *TaskGraph) Dependents(name string) []string {
	i, ok := g.byName[name]
	if !ok {
		return nil
	}
	return g.names(g.outgoing[i])
}

// TopologicalOrder returns a deterministic topological ordering of stage names.
func (g *TaskGraph) TopologicalOrder() []string {
	return g.names(g.order)
}

func (g *TaskGraph) names(idx []int) []string {
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = g.stages[n].name
	}
	return out
}

// validateAcyclic proves the graph has no cycles using Kahn's algorithm and
// keeps the resulting order. On failure it extracts one cycle for the error.
func (g *TaskGraph) validateAcyclic() error {
	indeg := make([]int, len(g.indeg))
	copy(indeg, g.indeg)

	ready := &intMinHeap{}
	heap.Init(ready)
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		order = append(order, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}

	if len(order) != len(g.stages) {
		return cycleError(g.findCycle())
	}
	g.order = order
	return nil
}

// findCycle runs a DFS in index order and returns one cycle as stage names,
// closed on its first element.
func (g *TaskGraph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(g.stages))
	parent := make([]int, len(g.stages))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// Back-edge u -> v: walk parents from u back to v
				path := []int{v}
				for cur := u; cur != v && cur != -1; cur = parent[cur] {
					path = append(path, cur)
				}
				path = append(path, v)
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				cycle = path
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.stages {
		if color[i] == white && dfs(i) {
			break
		}
	}
	return g.names(cycle)
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
