package cfg

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/pkg/bytecode"
)

var log = commonlog.GetLogger("decaf.cfg")

// ErrUnsupported marks well-formed code the builder deliberately rejects,
// such as jsr/ret subroutines.
var ErrUnsupported = errors.New("cfg: unsupported construct")

// MalformedError reports code whose control flow cannot be partitioned.
// It is fatal for the method only.
type MalformedError struct {
	Offset int
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("cfg: malformed code at offset %d: %s", e.Offset, e.Reason)
}

func (e *MalformedError) Unwrap() error { return e.Err }

func malformed(offset int, format string, args ...any) error {
	return &MalformedError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// Build partitions insns into basic blocks and links them. Block
// boundaries are placed at every branch and switch target, after every
// branch, switch, return and throw, and at every exception range start,
// end and handler.
func Build(insns []bytecode.Insn, codeLen int, table []classfile.ExceptionEntry) (*Graph, error) {
	if len(insns) == 0 {
		return nil, malformed(0, "empty code")
	}

	starts := make(map[int]int, len(insns)) // offset -> insn index
	for i, in := range insns {
		starts[in.Offset] = i
	}
	aligned := func(off int) bool {
		_, ok := starts[off]
		return ok
	}

	bounds := map[int]bool{0: true}
	for _, in := range insns {
		switch {
		case in.Op == bytecode.OpJsr || in.Op == bytecode.OpJsrW || in.Op == bytecode.OpRet:
			return nil, &MalformedError{Offset: in.Offset, Reason: in.Op.String() + " subroutines", Err: ErrUnsupported}
		case in.Op.IsJump():
			if !aligned(in.Target) {
				return nil, malformed(in.Offset, "jump target %d is not an instruction start", in.Target)
			}
			bounds[in.Target] = true
			bounds[in.End()] = true
		case in.Op.IsSwitch():
			for _, t := range append([]int{in.Default}, in.Targets...) {
				if !aligned(t) {
					return nil, malformed(in.Offset, "switch target %d is not an instruction start", t)
				}
				bounds[t] = true
			}
			bounds[in.End()] = true
		case in.Op.EndsBlock():
			bounds[in.End()] = true
		}
	}

	for i, e := range table {
		if !aligned(e.Start) || (!aligned(e.End) && e.End != codeLen) || e.Start >= e.End {
			return nil, malformed(e.Start, "exception entry %d has bad range [%d, %d)", i, e.Start, e.End)
		}
		if !aligned(e.Handler) {
			return nil, malformed(e.Handler, "exception entry %d handler is not an instruction start", i)
		}
		bounds[e.Start] = true
		bounds[e.End] = true
		bounds[e.Handler] = true
	}

	var offsets []int
	for off := range bounds {
		if off < codeLen {
			offsets = append(offsets, off)
		}
	}
	sort.Ints(offsets)

	g := &Graph{CodeLen: codeLen}
	byOffset := make(map[int]int, len(offsets))
	for i, from := range offsets {
		to := codeLen
		if i+1 < len(offsets) {
			to = offsets[i+1]
		}
		b := &Block{Index: i, From: from, To: to, Next: None, Branch: None, Loop: None}
		for j := starts[from]; j < len(insns) && insns[j].Offset < to; j++ {
			b.Insns = append(b.Insns, insns[j])
		}
		byOffset[from] = i
		g.Blocks = append(g.Blocks, b)
	}

	for _, b := range g.Blocks {
		if err := g.link(b, byOffset); err != nil {
			return nil, err
		}
	}

	for i, e := range table {
		h := g.Blocks[byOffset[e.Handler]]
		h.Flags |= Handler
		g.Blocks[byOffset[e.Start]].Flags |= TryEntry
		g.Handlers = append(g.Handlers, HandlerEntry{Start: e.Start, End: e.End, Block: h.Index, Type: e.CatchType})
		for _, b := range g.Blocks {
			if b.From >= e.Start && b.From < e.End {
				b.Handlers = append(b.Handlers, i)
			}
		}
	}

	g.ComputePreds()
	log.Debugf("built %d blocks from %d instructions", len(g.Blocks), len(insns))
	return g, nil
}

func (g *Graph) link(b *Block, byOffset map[int]int) error {
	last := b.Last()
	fall := func() (int, error) {
		if b.To >= g.CodeLen {
			return None, malformed(last.Offset, "control falls off the end of code")
		}
		return byOffset[b.To], nil
	}

	var err error
	switch {
	case last.Op.IsGoto():
		b.Kind = Statements
		b.Next = byOffset[last.Target]
	case last.Op.IsConditionalJump():
		b.Kind = Conditional
		b.Branch = byOffset[last.Target]
		b.Next, err = fall()
	case last.Op.IsSwitch():
		b.Kind = Switch
		for i, k := range last.Keys {
			b.Cases = append(b.Cases, Case{Key: k, Target: byOffset[last.Targets[i]]})
		}
		b.Cases = append(b.Cases, Case{Default: true, Target: byOffset[last.Default]})
		sort.SliceStable(b.Cases, func(i, j int) bool {
			fi, fj := g.Blocks[b.Cases[i].Target].From, g.Blocks[b.Cases[j].Target].From
			if fi != fj {
				return fi < fj
			}
			return !b.Cases[i].Default && b.Cases[j].Default
		})
	case last.Op.IsReturn():
		b.Kind = Return
	case last.Op == bytecode.OpAthrow:
		b.Kind = Throw
	default:
		b.Kind = Statements
		b.Next, err = fall()
	}
	return err
}

// Validate checks that live block ranges partition [0, CodeLen) and that
// every edge lands on a live block.
func (g *Graph) Validate() error {
	pos := 0
	for _, b := range g.Live() {
		if b.From != pos {
			return malformed(pos, "block ranges leave a gap or overlap at block %d [%d, %d)", b.Index, b.From, b.To)
		}
		if b.To <= b.From {
			return malformed(b.From, "block %d is empty", b.Index)
		}
		pos = b.To
		for _, s := range b.Succs() {
			if s < 0 || s >= len(g.Blocks) || g.Blocks[s].Has(Dead) {
				return malformed(b.From, "block %d has edge to missing block %d", b.Index, s)
			}
		}
	}
	if pos != g.CodeLen {
		return malformed(pos, "blocks end at %d, code length is %d", pos, g.CodeLen)
	}
	return nil
}
