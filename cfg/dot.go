package cfg

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/chazu/decaf/ir"
)

type dotNode struct {
	b *Block
}

func (n dotNode) ID() int64 { return int64(n.b.Index) }
func (n dotNode) DOTID() string { return fmt.Sprintf("B%d", n.b.Index) }
func (n dotNode) Attributes() []encoding.Attribute {
	label := fmt.Sprintf("B%d [%d,%d) %s", n.b.Index, n.b.From, n.b.To, n.b.Kind)
	if n.b.Flags != 0 {
		label += " " + n.b.Flags.String()
	}
	if len(n.b.Body) > 0 {
		label += "\\l" + strings.ReplaceAll(strings.TrimSuffix(ir.Sprint(n.b.Body), "\n"), "\n", "\\l")
	}
	if n.b.Cond != nil {
		label += "\\lif " + ir.SprintNode(n.b.Cond)
	}
	attrs := []encoding.Attribute{
		{Key: "shape", Value: "box"},
		{Key: "label", Value: quote(label + "\\l")},
	}
	if n.b.Has(Raw) {
		attrs = append(attrs, encoding.Attribute{Key: "color", Value: "red"})
	}
	return attrs
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

type dotEdge struct {
	from, to dotNode
	label    string
	style    string
}

func (e dotEdge) From() graph.Node { return e.from }
func (e dotEdge) To() graph.Node { return e.to }
func (e dotEdge) ReversedEdge() graph.Edge { return dotEdge{from: e.to, to: e.from, label: e.label, style: e.style} }
func (e dotEdge) Attributes() []encoding.Attribute {
	var attrs []encoding.Attribute
	if e.label != "" {
		attrs = append(attrs, encoding.Attribute{Key: "label", Value: quote(e.label)})
	}
	if e.style != "" {
		attrs = append(attrs, encoding.Attribute{Key: "style", Value: e.style})
	}
	return attrs
}

// DOT renders the live blocks and their edges in Graphviz format.
// Exception edges are dashed.
func (g *Graph) DOT(name string) ([]byte, error) {
	dg := simple.NewDirectedGraph()
	nodes := map[int]dotNode{}
	for _, b := range g.Live() {
		n := dotNode{b}
		nodes[b.Index] = n
		dg.AddNode(n)
	}
	add := func(from, to int, label, style string) {
		if from == to || dg.HasEdgeFromTo(int64(from), int64(to)) {
			return
		}
		dg.SetEdge(dotEdge{from: nodes[from], to: nodes[to], label: label, style: style})
	}
	for _, b := range g.Live() {
		if b.Next != None {
			label := ""
			if b.Kind == Conditional {
				label = "false"
			}
			add(b.Index, b.Next, label, "")
		}
		if b.Branch != None {
			add(b.Index, b.Branch, "true", "")
		}
		for _, c := range b.Cases {
			label := fmt.Sprint(c.Key)
			if c.Default {
				label = "default"
			}
			add(b.Index, c.Target, label, "")
		}
		for _, h := range b.Handlers {
			e := g.Handlers[h]
			t := e.Type
			if t == "" {
				t = "any"
			}
			add(b.Index, e.Block, t, "dashed")
		}
	}
	return dot.Marshal(dg, name, "", "\t")
}
