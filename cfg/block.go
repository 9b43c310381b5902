// Package cfg partitions a method's code into basic blocks, links them into
// a control-flow graph, analyses dominators and natural loops, and runs the
// block-processor pipeline that rewrites the graph toward structured shapes.
//
// Blocks live in an arena (Graph.Blocks) and refer to each other by index.
// Rewrites never renumber blocks; an absorbed block is flagged Dead and its
// range becomes part of the block that absorbed it.
package cfg

import (
	"sort"
	"strings"

	"github.com/chazu/decaf/ir"
	"github.com/chazu/decaf/pkg/bytecode"
)

// Kind describes how control leaves a block.
type Kind int

const (
	Statements  Kind = iota // falls through or ends in goto; Next only
	Conditional             // Branch when Cond holds, else Next
	Switch                  // Cases
	Return                  // no normal successor
	Throw                   // no normal successor
)

var kindNames = [...]string{"statements", "conditional", "switch", "return", "throw"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "?"
}

// Flags annotate blocks.
type Flags uint16

const (
	TryEntry   Flags = 1 << iota // first block of a protected range
	Handler                      // exception handler entry
	LoopHeader                   // target of a natural-loop back edge
	Normalized                   // branch polarity already flipped once
	Raw                          // stack simulation failed; Body is raw bytecode
	Dead                         // absorbed into another block
)

func (f Flags) String() string {
	var parts []string
	for i, name := range []string{"try", "handler", "loop", "normalized", "raw", "dead"} {
		if f&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// None marks an absent successor or loop.
const None = -1

// Case is one switch edge. Cases are sorted by target offset; the default
// edge sorts last among edges to the same target.
type Case struct {
	Key     int32
	Default bool
	Target  int
}

// Block is a basic block covering code offsets [From, To).
type Block struct {
	Index int
	From  int
	To    int
	Kind  Kind
	Flags Flags

	Next   int
	Branch int
	Cases  []Case
	Preds  []int
	Loop   int // innermost enclosing loop header, or None

	// Handlers indexes Graph.Handlers entries whose range covers the block,
	// innermost first.
	Handlers []int

	Insns []bytecode.Insn

	// Filled in by stack simulation.
	Body []ir.Instruction
	Cond ir.Instruction // Conditional blocks: the condition for Branch
	Key  ir.Instruction // Switch blocks: the switch key
}

// Has reports whether all of flags are set.
func (b *Block) Has(flags Flags) bool { return b.Flags&flags == flags }

// Last returns the block's final instruction.
func (b *Block) Last() bytecode.Insn {
	if len(b.Insns) == 0 {
		return bytecode.Insn{Offset: b.From, Op: bytecode.OpNop, Slot: -1}
	}
	return b.Insns[len(b.Insns)-1]
}

// EndsInGoto reports whether Next is reached by an explicit goto rather
// than by falling through.
func (b *Block) EndsInGoto() bool {
	return b.Kind == Statements && len(b.Insns) > 0 && b.Last().Op.IsGoto()
}

// Succs returns the block's normal successors without duplicates, in
// Next, Branch, Cases order.
func (b *Block) Succs() []int {
	var out []int
	add := func(i int) {
		if i == None {
			return
		}
		for _, x := range out {
			if x == i {
				return
			}
		}
		out = append(out, i)
	}
	add(b.Next)
	add(b.Branch)
	for _, c := range b.Cases {
		add(c.Target)
	}
	return out
}

// HandlerEntry is a resolved exception table row.
type HandlerEntry struct {
	Start, End int // protected offsets [Start, End)
	Block      int // handler entry block
	Type       string
}

// Graph is a method's control-flow graph.
type Graph struct {
	Blocks   []*Block
	Entry    int
	CodeLen  int
	Handlers []HandlerEntry

	idom        []int
	loops       map[int]*Loop
	Irreducible []Edge
}

// Edge is a directed edge between block indices.
type Edge struct{ From, To int }

// Live returns the blocks that have not been absorbed, in offset order.
func (g *Graph) Live() []*Block {
	out := make([]*Block, 0, len(g.Blocks))
	for _, b := range g.Blocks {
		if !b.Has(Dead) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].From < out[j].From })
	return out
}

// At returns the live block starting at offset, or nil.
func (g *Graph) At(offset int) *Block {
	for _, b := range g.Blocks {
		if b.From == offset && !b.Has(Dead) {
			return b
		}
	}
	return nil
}

// Containing returns the live block whose range holds offset, or nil.
func (g *Graph) Containing(offset int) *Block {
	for _, b := range g.Blocks {
		if !b.Has(Dead) && offset >= b.From && offset < b.To {
			return b
		}
	}
	return nil
}

// ExceptionSuccs returns the handler blocks that can be entered from b.
func (g *Graph) ExceptionSuccs(b *Block) []int {
	var out []int
	for _, h := range b.Handlers {
		out = append(out, g.Handlers[h].Block)
	}
	return out
}

// ComputePreds rebuilds every live block's normal predecessor list.
func (g *Graph) ComputePreds() {
	for _, b := range g.Blocks {
		b.Preds = b.Preds[:0]
	}
	for _, b := range g.Live() {
		for _, s := range b.Succs() {
			g.Blocks[s].Preds = append(g.Blocks[s].Preds, b.Index)
		}
	}
}

// RPO returns the blocks reachable from Entry over normal and exception
// edges in reverse post-order.
func (g *Graph) RPO() []int {
	seen := make([]bool, len(g.Blocks))
	var post []int
	var visit func(int)
	visit = func(i int) {
		seen[i] = true
		b := g.Blocks[i]
		for _, s := range b.Succs() {
			if !seen[s] {
				visit(s)
			}
		}
		for _, s := range g.ExceptionSuccs(b) {
			if !seen[s] {
				visit(s)
			}
		}
		post = append(post, i)
	}
	visit(g.Entry)
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// SameCoverage reports whether a and b are protected by the same handlers.
func SameCoverage(a, b *Block) bool {
	if len(a.Handlers) != len(b.Handlers) {
		return false
	}
	for i := range a.Handlers {
		if a.Handlers[i] != b.Handlers[i] {
			return false
		}
	}
	return true
}

// Absorb appends next onto b: b's range, instructions and body grow and it
// takes over next's exit. next is flagged Dead.
func (g *Graph) Absorb(b, next *Block) {
	b.To = next.To
	b.Insns = append(b.Insns, next.Insns...)
	b.Body = append(b.Body, next.Body...)
	b.Kind = next.Kind
	b.Next, b.Branch = next.Next, next.Branch
	b.Cases = next.Cases
	b.Cond, b.Key = next.Cond, next.Key
	b.Flags |= next.Flags &^ (TryEntry | Handler | LoopHeader | Dead)

	next.Flags |= Dead
	next.Next, next.Branch, next.Cases = None, None, nil
	next.Preds = nil
	g.ComputePreds()
}

// Redirect replaces every normal edge from b to old with an edge to repl.
func (b *Block) Redirect(old, repl int) {
	if b.Next == old {
		b.Next = repl
	}
	if b.Branch == old {
		b.Branch = repl
	}
	for i := range b.Cases {
		if b.Cases[i].Target == old {
			b.Cases[i].Target = repl
		}
	}
}
