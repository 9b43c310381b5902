package cfg

import "github.com/chazu/decaf/ir"

// DefaultLoopExitPredecessorThreshold is the minimum number of predecessors
// a conditional successor needs before InLoopBranchNormalization treats it
// as a shared exit test rather than one step of a fallthrough chain. The
// value is empirical.
const DefaultLoopExitPredecessorThreshold = 5

// DefaultProcessors returns the standard pipeline processors in order.
func DefaultProcessors(threshold int) []Processor {
	return []Processor{
		MergeStatementBlocks{},
		InLoopBranchNormalization{Threshold: threshold},
		ShortCircuitConditions{},
		JumpThreading{},
	}
}

// ===========================================================================
// MergeStatementBlocks
// ===========================================================================

// MergeStatementBlocks joins a Statements block with the block that starts
// where it ends when that block is its only successor and has no other
// predecessor. The absorbed block must share exception coverage and loop
// membership, and must not be a try entry, handler or loop header.
type MergeStatementBlocks struct{}

func (MergeStatementBlocks) Name() string { return "merge-statement-blocks" }

func (MergeStatementBlocks) Accept(g *Graph, b *Block) bool {
	if b.Kind != Statements || b.Next == None || b.Next == b.Index || b.Has(Raw) {
		return false
	}
	next := g.Blocks[b.Next]
	return next.From == b.To &&
		len(next.Preds) == 1 &&
		next.Flags&(TryEntry|Handler|LoopHeader|Raw|Dead) == 0 &&
		next.Loop == b.Loop &&
		SameCoverage(b, next)
}

func (MergeStatementBlocks) Process(g *Graph, b *Block) {
	g.Absorb(b, g.Blocks[b.Next])
}

// ===========================================================================
// InLoopBranchNormalization
// ===========================================================================

// InLoopBranchNormalization flips a conditional inside a loop whose
// fallthrough successor is a conditional test shared by many branches. If
// that successor has at least Threshold predecessors and every other
// predecessor reaches it through its branch edge, b is rewritten so it
// does too: Next and Branch swap and the condition is negated. A block is
// flipped at most once.
type InLoopBranchNormalization struct {
	Threshold int
}

func (InLoopBranchNormalization) Name() string { return "in-loop-branch-normalization" }

func (p InLoopBranchNormalization) Accept(g *Graph, b *Block) bool {
	if b.Kind != Conditional || b.Loop == None || b.Has(Normalized) || b.Has(Raw) || b.Cond == nil {
		return false
	}
	if b.Next == b.Branch {
		return false
	}
	s := g.Blocks[b.Next]
	if s.Kind != Conditional || len(s.Preds) < p.threshold() {
		return false
	}
	for _, pi := range s.Preds {
		if pi == b.Index {
			continue
		}
		pred := g.Blocks[pi]
		if pred.Kind != Conditional || pred.Branch != s.Index {
			return false
		}
	}
	return true
}

func (p InLoopBranchNormalization) Process(g *Graph, b *Block) {
	b.Next, b.Branch = b.Branch, b.Next
	b.Cond = ir.Negate(b.Cond)
	b.Flags |= Normalized
}

func (p InLoopBranchNormalization) threshold() int {
	if p.Threshold <= 0 {
		return DefaultLoopExitPredecessorThreshold
	}
	return p.Threshold
}

// ===========================================================================
// ShortCircuitConditions
// ===========================================================================

// ShortCircuitConditions folds a condition-only block into the conditional
// that falls through to it, producing && and || chains. With A falling
// through to B:
//
//	A: if a goto X          A: if (a || b) goto X
//	B: if b goto X    =>       else Y
//	   else Y
//
//	A: if a goto Y          A: if (!a && b) goto X
//	B: if b goto X    =>       else Y
//	   else Y
type ShortCircuitConditions struct{}

func (ShortCircuitConditions) Name() string { return "short-circuit-conditions" }

func (ShortCircuitConditions) Accept(g *Graph, b *Block) bool {
	if b.Kind != Conditional || b.Cond == nil || b.Has(Raw) || b.Next == None || b.Next == b.Index {
		return false
	}
	next := g.Blocks[b.Next]
	if next.Kind != Conditional || next.Cond == nil || len(next.Body) != 0 ||
		next.From != b.To || len(next.Preds) != 1 ||
		next.Flags&(TryEntry|Handler|LoopHeader|Raw) != 0 || !SameCoverage(b, next) {
		return false
	}
	return next.Branch == b.Branch || next.Next == b.Branch
}

func (ShortCircuitConditions) Process(g *Graph, b *Block) {
	next := g.Blocks[b.Next]
	base := ir.Synth(ir.OpComplexCond, b.Cond.At().Offset, b.Cond.At().Line)
	var cond ir.Instruction
	taken, fall := next.Branch, next.Next
	if next.Branch == b.Branch {
		cond = ir.Or(base, b.Cond, next.Cond)
	} else {
		cond = ir.And(base, ir.Negate(b.Cond), next.Cond)
	}
	g.Absorb(b, next)
	b.Cond = cond
	b.Branch, b.Next = taken, fall
	g.ComputePreds()
}

// ===========================================================================
// JumpThreading
// ===========================================================================

// JumpThreading retargets jump edges that land on an empty block whose only
// content is a goto. Fallthrough edges are left alone so block layout is
// preserved.
type JumpThreading struct{}

func (JumpThreading) Name() string { return "jump-threading" }

func (JumpThreading) Accept(g *Graph, b *Block) bool {
	if !isTrampoline(b) {
		return false
	}
	for _, p := range b.Preds {
		if jumpsTo(g.Blocks[p], b) {
			return true
		}
	}
	return false
}

func (JumpThreading) Process(g *Graph, b *Block) {
	for _, p := range append([]int(nil), b.Preds...) {
		pred := g.Blocks[p]
		if jumpsTo(pred, b) {
			pred.Redirect(b.Index, b.Next)
		}
	}
	g.ComputePreds()
}

func isTrampoline(b *Block) bool {
	return b.EndsInGoto() && len(b.Insns) == 1 && len(b.Body) == 0 &&
		b.Next != b.Index &&
		b.Flags&(TryEntry|Handler|LoopHeader|Raw) == 0
}

// jumpsTo reports whether p reaches b through an edge other than falling
// through.
func jumpsTo(p, b *Block) bool {
	if p.Index == b.Index || p.Has(Raw) || !SameCoverage(p, b) {
		return false
	}
	if p.Branch == b.Index {
		return true
	}
	for _, c := range p.Cases {
		if c.Target == b.Index {
			return true
		}
	}
	return p.Next == b.Index && p.EndsInGoto()
}
