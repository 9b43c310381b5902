package cfg

import (
	"sort"

	"gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/simple"
)

// Loop is a natural loop: a header and every block that reaches one of its
// back edges without passing through the header.
type Loop struct {
	Header  int
	Blocks  map[int]bool
	Latches []int // sources of back edges, in offset order
	Parent  int   // enclosing loop header, or None
}

// Contains reports whether block i belongs to the loop.
func (l *Loop) Contains(i int) bool { return l.Blocks[i] }

// directed builds a gonum graph over live blocks with normal and exception
// edges. Self loops are left out; gonum's simple graphs reject them and
// they do not affect dominance.
func (g *Graph) directed() *simple.DirectedGraph {
	dg := simple.NewDirectedGraph()
	for _, b := range g.Live() {
		dg.AddNode(simple.Node(b.Index))
	}
	edge := func(from, to int) {
		if from != to {
			dg.SetEdge(dg.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}
	for _, b := range g.Live() {
		for _, s := range b.Succs() {
			edge(b.Index, s)
		}
		for _, s := range g.ExceptionSuccs(b) {
			edge(b.Index, s)
		}
	}
	return dg
}

// Analyze computes dominators and natural loops and sets LoopHeader flags
// and every block's innermost Loop. It must be rerun after the graph is
// rewritten.
func (g *Graph) Analyze() {
	dg := g.directed()
	dom := flow.Dominators(simple.Node(g.Entry), dg)

	g.idom = make([]int, len(g.Blocks))
	for i := range g.idom {
		g.idom[i] = None
	}
	for _, b := range g.Live() {
		if b.Index == g.Entry {
			continue
		}
		if d := dom.DominatorOf(int64(b.Index)); d != nil {
			g.idom[b.Index] = int(d.ID())
		}
	}

	g.findLoops()
	log.Debugf("analysis: %d loops, %d irreducible edges", len(g.loops), len(g.Irreducible))
}

// Reachable reports whether block i is reachable from the entry.
func (g *Graph) Reachable(i int) bool {
	return i == g.Entry || (g.idom != nil && g.idom[i] != None)
}

// Idom returns the immediate dominator of block i, or None.
func (g *Graph) Idom(i int) int {
	if g.idom == nil {
		return None
	}
	return g.idom[i]
}

// Dominates reports whether a dominates b. Every block dominates itself.
func (g *Graph) Dominates(a, b int) bool {
	for n := b; n != None; n = g.Idom(n) {
		if n == a {
			return true
		}
	}
	return false
}

// Loops returns the natural loops ordered by header offset.
func (g *Graph) Loops() []*Loop {
	out := make([]*Loop, 0, len(g.loops))
	for _, l := range g.loops {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		return g.Blocks[out[i].Header].From < g.Blocks[out[j].Header].From
	})
	return out
}

// LoopAt returns the loop headed by block i, or nil.
func (g *Graph) LoopAt(i int) *Loop { return g.loops[i] }

func (g *Graph) findLoops() {
	g.loops = map[int]*Loop{}
	g.Irreducible = nil

	for _, b := range g.Blocks {
		b.Flags &^= LoopHeader
		b.Loop = None
	}

	// A retreating edge in depth-first order is a back edge when its
	// target dominates its source; otherwise the flow is irreducible.
	onStack := make([]bool, len(g.Blocks))
	seen := make([]bool, len(g.Blocks))
	var dfs func(int)
	dfs = func(i int) {
		seen[i], onStack[i] = true, true
		b := g.Blocks[i]
		for _, s := range append(b.Succs(), g.ExceptionSuccs(b)...) {
			switch {
			case onStack[s] && g.Dominates(s, i):
				if g.isNormalEdge(i, s) {
					g.addBackEdge(s, i)
				}
			case onStack[s]:
				g.Irreducible = append(g.Irreducible, Edge{i, s})
			case !seen[s]:
				dfs(s)
			}
		}
		onStack[i] = false
	}
	dfs(g.Entry)

	// Innermost loop: the smallest loop containing the block.
	for _, b := range g.Live() {
		best := None
		for h, l := range g.loops {
			if l.Contains(b.Index) && (best == None || len(l.Blocks) < len(g.loops[best].Blocks)) {
				best = h
			}
		}
		b.Loop = best
	}
	for h, l := range g.loops {
		l.Parent = None
		for h2, l2 := range g.loops {
			if h2 != h && l2.Contains(h) && len(l2.Blocks) > len(l.Blocks) &&
				(l.Parent == None || len(l2.Blocks) < len(g.loops[l.Parent].Blocks)) {
				l.Parent = h2
			}
		}
	}
}

func (g *Graph) addBackEdge(header, latch int) {
	l := g.loops[header]
	if l == nil {
		l = &Loop{Header: header, Blocks: map[int]bool{header: true}}
		g.loops[header] = l
		g.Blocks[header].Flags |= LoopHeader
	}
	l.Latches = append(l.Latches, latch)
	sort.Slice(l.Latches, func(i, j int) bool {
		return g.Blocks[l.Latches[i]].From < g.Blocks[l.Latches[j]].From
	})

	work := []int{latch}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		if l.Blocks[n] {
			continue
		}
		l.Blocks[n] = true
		for _, p := range g.Blocks[n].Preds {
			if g.Reachable(p) {
				work = append(work, p)
			}
		}
	}
}

func (g *Graph) isNormalEdge(from, to int) bool {
	for _, s := range g.Blocks[from].Succs() {
		if s == to {
			return true
		}
	}
	return false
}
