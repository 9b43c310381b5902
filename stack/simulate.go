// Package stack turns each basic block's instructions into expression
// trees by simulating the JVM operand stack.
//
// Values that outlive their block travel along CFG edges. Where the
// predecessors of a join disagree, each predecessor publishes its value
// with a TernaryOpStore and the join reads a TernaryOpLoad. Blocks whose
// stack behaviour cannot be explained are flagged cfg.Raw and keep a
// disassembly comment instead of statements.
package stack

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/decaf/cfg"
	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/ir"
	"github.com/chazu/decaf/pkg/bytecode"
)

var log = commonlog.GetLogger("decaf.stack")

// UnderflowError reports a pop from an empty stack in the entry block,
// where the stack is known to start empty.
type UnderflowError struct {
	Offset int
	Op     bytecode.Opcode
}

func (e *UnderflowError) Error() string {
	return fmt.Sprintf("stack: underflow at offset %d (%s)", e.Offset, e.Op)
}

// errUnexplained aborts one block's simulation; the block becomes raw.
var errUnexplained = errors.New("stack: unexplained stack shape")

// Method is the per-method context the simulator needs.
type Method struct {
	Class  string // owning class, internal form
	Desc   string
	Static bool
	Pool   *classfile.ConstantPool
	Code   *classfile.Code
}

// Result summarizes a simulation.
type Result struct {
	RawBlocks []int
}

type state struct {
	g    *cfg.Graph
	m    Method
	keys map[int]bool // DupStore keys in use

	entry map[int][]ir.Instruction // stack on entry, by block
	exit  map[int][]ir.Instruction // stack on exit, by block
	done  map[int]bool

	paramTypes map[int]string
}

// Simulate fills Body, Cond and Key of every live block in g. It fails
// only for malformed input: an underflow in the entry block or an
// unresolvable constant pool reference.
func Simulate(g *cfg.Graph, m Method) (*Result, error) {
	s := &state{
		g:     g,
		m:     m,
		keys:  map[int]bool{},
		entry: map[int][]ir.Instruction{},
		exit:  map[int][]ir.Instruction{},
		done:  map[int]bool{},
	}
	s.paramTypes = paramTypes(m)

	res := &Result{}
	order := g.RPO()
	inOrder := map[int]bool{}
	for _, i := range order {
		inOrder[i] = true
	}
	for _, b := range g.Live() {
		if !inOrder[b.Index] {
			order = append(order, b.Index)
		}
	}

	for _, i := range order {
		b := g.Blocks[i]
		in, ok := s.incoming(b)
		if ok {
			err := s.block(b, in)
			var mcp *classfile.MalformedConstantPoolError
			var uf *UnderflowError
			switch {
			case err == nil:
			case errors.As(err, &mcp):
				return nil, err
			case errors.As(err, &uf) && b.Index == g.Entry:
				return nil, err
			default:
				log.Debugf("%s: block [%d, %d): %v", m.Class, b.From, b.To, err)
				ok = false
			}
		}
		if !ok {
			s.makeRaw(b)
			res.RawBlocks = append(res.RawBlocks, b.Index)
			log.Warningf("%s: block [%d, %d) kept as raw bytecode", m.Class, b.From, b.To)
		}
		s.done[i] = true
	}

	// Latches reached before their loop header was simulated may still
	// carry values; reconcile them against the recorded entry stacks.
	for _, i := range order {
		b := g.Blocks[i]
		if b.Has(cfg.Raw) {
			continue
		}
		for _, succ := range b.Succs() {
			if !s.reconcile(b, succ) {
				s.makeRaw(b)
				res.RawBlocks = append(res.RawBlocks, b.Index)
				break
			}
		}
	}
	return res, nil
}

func paramTypes(m Method) map[int]string {
	out := map[int]string{}
	slot := 0
	if !m.Static {
		out[0] = classfile.ObjectDescriptor(m.Class)
		slot = 1
	}
	params, _, err := classfile.ParseMethodDescriptor(m.Desc)
	if err != nil {
		return out
	}
	for _, p := range params {
		out[slot] = p
		slot += classfile.SlotSize(p)
	}
	return out
}

// incoming computes the entry stack of b from its simulated predecessors.
func (s *state) incoming(b *cfg.Block) ([]ir.Instruction, bool) {
	if b.Has(cfg.Handler) {
		typ := ""
		for _, h := range s.g.Handlers {
			if h.Block == b.Index {
				typ = h.Type
				break
			}
		}
		in := []ir.Instruction{&ir.ExceptionLoad{Base: ir.Synth(ir.OpExceptionLoad, b.From, s.line(b.From)), Type: typ}}
		s.entry[b.Index] = in
		return in, len(b.Preds) == 0 || s.allEmptyOrAbsent(b)
	}

	var stacks [][]ir.Instruction
	var preds []*cfg.Block
	for _, p := range b.Preds {
		if s.done[p] && !s.g.Blocks[p].Has(cfg.Raw) {
			stacks = append(stacks, s.exit[p])
			preds = append(preds, s.g.Blocks[p])
		}
	}
	if len(stacks) == 0 {
		s.entry[b.Index] = nil
		return nil, true
	}

	depth := len(stacks[0])
	for _, st := range stacks[1:] {
		if len(st) != depth {
			return nil, false
		}
	}
	if depth == 0 {
		return nil, true
	}

	in := make([]ir.Instruction, depth)
	for j := 0; j < depth; j++ {
		same := true
		for _, st := range stacks[1:] {
			if st[j] != stacks[0][j] {
				same = false
			}
		}
		if same && len(stacks) == len(b.Preds) {
			in[j] = stacks[0][j]
			continue
		}
		key := b.From<<8 | j
		for k, p := range preds {
			p.Body = append(p.Body, &ir.TernaryOpStore{
				Base:  ir.Synth(ir.OpTernaryOpStore, p.Last().Offset, s.line(p.Last().Offset)),
				Key:   key,
				Value: stacks[k][j],
			})
		}
		in[j] = &ir.TernaryOpLoad{Base: ir.Synth(ir.OpTernaryOpLoad, b.From, s.line(b.From)), Key: key, Type: ir.TypeOf(stacks[0][j])}
	}
	s.entry[b.Index] = in
	return append([]ir.Instruction(nil), in...), true
}

// allEmptyOrAbsent reports whether every simulated predecessor of b left
// an empty stack.
func (s *state) allEmptyOrAbsent(b *cfg.Block) bool {
	for _, p := range b.Preds {
		if s.done[p] && len(s.exit[p]) > 0 {
			return false
		}
	}
	return true
}

// reconcile checks b's exit stack against the recorded entry stack of an
// already-simulated successor and publishes values for its joins.
func (s *state) reconcile(b *cfg.Block, succ int) bool {
	out := s.exit[b.Index]
	in, ok := s.entry[succ]
	if !ok || s.g.Blocks[succ].Has(cfg.Raw) {
		return true
	}
	if len(out) != len(in) {
		return false
	}
	for j := range out {
		if out[j] == in[j] {
			continue
		}
		tl, ok := in[j].(*ir.TernaryOpLoad)
		if !ok {
			return false
		}
		if s.published(b, tl.Key) {
			continue
		}
		b.Body = append(b.Body, &ir.TernaryOpStore{
			Base:  ir.Synth(ir.OpTernaryOpStore, b.Last().Offset, s.line(b.Last().Offset)),
			Key:   tl.Key,
			Value: out[j],
		})
	}
	return true
}

func (s *state) published(b *cfg.Block, key int) bool {
	for _, ins := range b.Body {
		if ts, ok := ins.(*ir.TernaryOpStore); ok && ts.Key == key {
			return true
		}
	}
	return false
}

func (s *state) line(offset int) int {
	if s.m.Code == nil {
		return ir.UnknownLine
	}
	return s.m.Code.LineAt(offset)
}

// makeRaw replaces b's body with a disassembly comment. A conditional or
// switch keeps its edges; its condition or key becomes a one-line comment
// for the terminating instruction.
func (s *state) makeRaw(b *cfg.Block) {
	b.Flags |= cfg.Raw
	insns := b.Insns
	b.Cond, b.Key = nil, nil
	if b.Kind == cfg.Conditional || b.Kind == cfg.Switch {
		last := insns[len(insns)-1]
		term := &ir.RawBytecode{
			Base:  ir.Synth(ir.OpRawBytecode, last.Offset, s.line(last.Offset)),
			Lines: bytecode.DisassembleToLines([]bytecode.Insn{last}, s.m.Pool),
		}
		if b.Kind == cfg.Conditional {
			b.Cond = term
		} else {
			b.Key = term
		}
		insns = insns[:len(insns)-1]
	}
	b.Body = nil
	if len(insns) > 0 {
		b.Body = []ir.Instruction{&ir.RawBytecode{
			Base:  ir.Synth(ir.OpRawBytecode, b.From, s.line(b.From)),
			Lines: bytecode.DisassembleToLines(insns, s.m.Pool),
		}}
	}
	s.exit[b.Index] = nil
}
