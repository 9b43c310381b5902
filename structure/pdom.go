package structure

import (
	"gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/chazu/decaf/cfg"
)

// postDominators returns every block's immediate post-dominator over local
// edges, or cfg.None. An edge is local unless it re-enters or leaves a loop
// containing its source; such edges, like returns and throws, go to a
// virtual exit so that a construct's follow never lies outside the loop
// it sits in.
func postDominators(g *cfg.Graph) []int {
	exit := len(g.Blocks)
	rg := simple.NewDirectedGraph()
	rg.AddNode(simple.Node(exit))
	for _, b := range g.Live() {
		rg.AddNode(simple.Node(b.Index))
	}
	edge := func(from, to int) {
		if from == to || rg.HasEdgeFromTo(int64(to), int64(from)) {
			return
		}
		rg.SetEdge(rg.NewEdge(simple.Node(to), simple.Node(from)))
	}
	for _, b := range g.Live() {
		succs := b.Succs()
		if len(succs) == 0 {
			edge(b.Index, exit)
		}
		for _, s := range succs {
			if local(g, b.Index, s) {
				edge(b.Index, s)
			} else {
				edge(b.Index, exit)
			}
		}
	}

	dom := flow.Dominators(simple.Node(exit), rg)
	out := make([]int, len(g.Blocks))
	for i := range out {
		out[i] = cfg.None
		if g.Blocks[i].Has(cfg.Dead) {
			continue
		}
		d := dom.DominatorOf(int64(i))
		if d != nil && d.ID() != int64(exit) {
			out[i] = int(d.ID())
		}
	}
	return out
}

// local reports whether the edge from -> to stays inside every loop that
// contains from without returning to one of their headers.
func local(g *cfg.Graph, from, to int) bool {
	for h := g.Blocks[from].Loop; h != cfg.None; {
		lp := g.LoopAt(h)
		if lp == nil {
			break
		}
		if to == lp.Header || !lp.Contains(to) {
			return false
		}
		h = lp.Parent
	}
	return true
}
