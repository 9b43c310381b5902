package structure

import (
	"github.com/chazu/decaf/cfg"
	"github.com/chazu/decaf/ir"
)

// Processors returns the block pipeline run between stack simulation and
// lowering: the cfg defaults with ternary folding ahead of jump threading.
func Processors(threshold int) []cfg.Processor {
	return []cfg.Processor{
		cfg.MergeStatementBlocks{},
		cfg.InLoopBranchNormalization{Threshold: threshold},
		cfg.ShortCircuitConditions{},
		TernaryFold{},
		cfg.JumpThreading{},
	}
}

// TernaryFold collapses a conditional whose two arms only publish a value
// for the same join into a single block publishing a TernaryOp.
//
//	c: if cond goto T     c: TernaryOpStore(k, cond ? t : e)
//	E: TernaryOpStore(k, e); goto J    =>   goto J
//	T: TernaryOpStore(k, t)
//	J: ...
type TernaryFold struct{}

func (TernaryFold) Name() string { return "ternary-fold" }

func (TernaryFold) Accept(g *cfg.Graph, b *cfg.Block) bool {
	_, _, ok := ternaryArms(g, b)
	return ok
}

func (TernaryFold) Process(g *cfg.Graph, b *cfg.Block) {
	e, t, _ := ternaryArms(g, b)
	es := e.Body[0].(*ir.TernaryOpStore)
	ts := t.Body[0].(*ir.TernaryOpStore)

	value := foldTernary(b.Cond, ts.Value, es.Value)
	store := &ir.TernaryOpStore{
		Base:  ir.Synth(ir.OpTernaryOpStore, ts.Offset, ts.Line),
		Key:   ts.Key,
		Value: value,
	}
	body := append([]ir.Instruction(nil), b.Body...)
	g.Absorb(b, e)
	g.Absorb(b, t)
	b.Body = append(body, store)
	log.Debugf("folded ternary at %d into #%d", b.From, store.Key)
}

// ternaryArms matches the fold's shape and returns the fallthrough and
// branch arms.
func ternaryArms(g *cfg.Graph, b *cfg.Block) (e, t *cfg.Block, ok bool) {
	if b.Kind != cfg.Conditional || b.Has(cfg.Raw) || b.Next == cfg.None || b.Branch == cfg.None || b.Next == b.Branch {
		return nil, nil, false
	}
	e, t = g.Blocks[b.Next], g.Blocks[b.Branch]
	if e.From != b.To || t.From != e.To {
		return nil, nil, false
	}
	for _, arm := range []*cfg.Block{e, t} {
		if arm.Kind != cfg.Statements || arm.Flags != 0 || len(arm.Preds) != 1 || !cfg.SameCoverage(b, arm) {
			return nil, nil, false
		}
		if len(arm.Body) != 1 {
			return nil, nil, false
		}
		if _, isStore := arm.Body[0].(*ir.TernaryOpStore); !isStore {
			return nil, nil, false
		}
	}
	if e.Next != t.Next || e.Next == cfg.None {
		return nil, nil, false
	}
	if e.Body[0].(*ir.TernaryOpStore).Key != t.Body[0].(*ir.TernaryOpStore).Key {
		return nil, nil, false
	}
	return e, t, true
}

// foldTernary builds cond ? then : els, collapsing boolean literals.
func foldTernary(cond, then, els ir.Instruction) ir.Instruction {
	switch {
	case ir.IsBoolConst(then, 1) && ir.IsBoolConst(els, 0):
		return cond
	case ir.IsBoolConst(then, 0) && ir.IsBoolConst(els, 1):
		return ir.Negate(cond)
	}
	at := cond.At()
	return &ir.TernaryOp{Base: ir.Synth(ir.OpTernaryOp, at.Offset, at.Line), Cond: cond, Then: then, Else: els}
}
