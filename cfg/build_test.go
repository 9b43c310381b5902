package cfg

import (
	"errors"
	"testing"

	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/pkg/bytecode"
)

func build(t *testing.T, b *bytecode.Builder, table []classfile.ExceptionEntry) *Graph {
	t.Helper()
	code := b.Bytes()
	insns, err := bytecode.Decode(code)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	g, err := Build(insns, len(code), table)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return g
}

func TestBuildConditional(t *testing.T) {
	b := bytecode.NewBuilder()
	pos := b.NewLabel()
	b.Emit(bytecode.OpIload0).
		EmitJump(bytecode.OpIfge, pos).
		Emit(bytecode.OpIconst0).
		Emit(bytecode.OpIreturn).
		Mark(pos).
		Emit(bytecode.OpIconst1).
		Emit(bytecode.OpIreturn)

	g := build(t, b, nil)

	tests := []struct {
		from, to int
		kind     Kind
		next     int
		branch   int
	}{
		{0, 4, Conditional, 1, 2},
		{4, 6, Return, None, None},
		{6, 8, Return, None, None},
	}
	if len(g.Blocks) != len(tests) {
		t.Fatalf("len(Blocks) = %d, want %d", len(g.Blocks), len(tests))
	}
	for i, tt := range tests {
		blk := g.Blocks[i]
		if blk.From != tt.from || blk.To != tt.to || blk.Kind != tt.kind || blk.Next != tt.next || blk.Branch != tt.branch {
			t.Errorf("Blocks[%d] = [%d,%d) %s next=%d branch=%d, want [%d,%d) %s next=%d branch=%d",
				i, blk.From, blk.To, blk.Kind, blk.Next, blk.Branch, tt.from, tt.to, tt.kind, tt.next, tt.branch)
		}
	}
	if got := g.Blocks[2].Preds; len(got) != 1 || got[0] != 0 {
		t.Errorf("Blocks[2].Preds = %v, want [0]", got)
	}
}

func TestBuildSwitchCaseOrder(t *testing.T) {
	b := bytecode.NewBuilder()
	one, two, dflt := b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Emit(bytecode.OpIload0).
		EmitTableswitch(0, dflt, two, one, dflt).
		Mark(one).
		Emit(bytecode.OpReturn).
		Mark(two).
		Emit(bytecode.OpReturn).
		Mark(dflt).
		Emit(bytecode.OpReturn)

	g := build(t, b, nil)
	sw := g.Blocks[0]
	if sw.Kind != Switch {
		t.Fatalf("Blocks[0].Kind = %s, want switch", sw.Kind)
	}

	type edge struct {
		key    int32
		dflt   bool
		target int
	}
	want := []edge{{1, false, 1}, {0, false, 2}, {2, false, 3}, {0, true, 3}}
	if len(sw.Cases) != len(want) {
		t.Fatalf("len(Cases) = %d, want %d", len(sw.Cases), len(want))
	}
	for i, w := range want {
		c := sw.Cases[i]
		if c.Key != w.key || c.Default != w.dflt || c.Target != w.target {
			t.Errorf("Cases[%d] = %+v, want %+v", i, c, w)
		}
	}
}

func TestBuildExceptionTable(t *testing.T) {
	b := bytecode.NewBuilder()
	end := b.NewLabel()
	b.Emit(bytecode.OpAload0).
		EmitU2(bytecode.OpInvokevirtual, 1).
		EmitJump(bytecode.OpGoto, end). // 4
		Emit(bytecode.OpAstore1).       // 7: handler
		Mark(end).
		Emit(bytecode.OpReturn) // 8

	g := build(t, b, []classfile.ExceptionEntry{{Start: 0, End: 4, Handler: 7, CatchType: "java/lang/Exception"}})

	if !g.At(0).Has(TryEntry) {
		t.Error("block at 0 is not a try entry")
	}
	h := g.At(7)
	if h == nil || !h.Has(Handler) {
		t.Fatal("block at 7 is not a handler")
	}
	if got := g.At(0).Handlers; len(got) != 1 {
		t.Errorf("At(0).Handlers = %v, want one entry", got)
	}
	if got := g.At(4).Handlers; len(got) != 0 {
		t.Errorf("At(4).Handlers = %v, want none", got)
	}
	if got := g.ExceptionSuccs(g.At(0)); len(got) != 1 || got[0] != h.Index {
		t.Errorf("ExceptionSuccs() = %v, want [%d]", got, h.Index)
	}
	if len(h.Preds) != 0 {
		t.Errorf("handler Preds = %v, exception edges are not normal edges", h.Preds)
	}
}

func TestBuildMalformed(t *testing.T) {
	tests := []struct {
		name  string
		code  []byte
		table []classfile.ExceptionEntry
		unsup bool
	}{
		{"target inside instruction", []byte{byte(bytecode.OpGoto), 0x00, 0x01, byte(bytecode.OpReturn)}, nil, false},
		{"falls off end", []byte{byte(bytecode.OpIconst0), byte(bytecode.OpPop)}, nil, false},
		{"handler misaligned", []byte{byte(bytecode.OpSipush), 0, 1, byte(bytecode.OpReturn)},
			[]classfile.ExceptionEntry{{Start: 0, End: 3, Handler: 1}}, false},
		{"empty range", []byte{byte(bytecode.OpNop), byte(bytecode.OpReturn)},
			[]classfile.ExceptionEntry{{Start: 1, End: 1, Handler: 1}}, false},
		{"jsr", []byte{byte(bytecode.OpJsr), 0x00, 0x03, byte(bytecode.OpReturn)}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insns, err := bytecode.Decode(tt.code)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			_, err = Build(insns, len(tt.code), tt.table)
			var me *MalformedError
			if !errors.As(err, &me) {
				t.Fatalf("Build() error = %v, want *MalformedError", err)
			}
			if got := errors.Is(err, ErrUnsupported); got != tt.unsup {
				t.Errorf("errors.Is(ErrUnsupported) = %v, want %v", got, tt.unsup)
			}
		})
	}
}

func TestPartitionProperty(t *testing.T) {
	// Nested diamonds and a loop of growing size; every build must
	// partition the code and put each jump target at a block start.
	for n := 1; n <= 12; n++ {
		b := bytecode.NewBuilder()
		top := b.NewLabel()
		b.Mark(top)
		for i := 0; i < n; i++ {
			skip := b.NewLabel()
			b.Emit(bytecode.OpIload0).EmitJump(bytecode.OpIfeq, skip).EmitIinc(1, 1).Mark(skip)
		}
		b.Emit(bytecode.OpIload1).EmitJump(bytecode.OpIfne, top).Emit(bytecode.OpReturn)

		g := build(t, b, nil)
		insns, _ := bytecode.Decode(b.Bytes())
		for _, in := range insns {
			if in.Op.IsJump() && g.At(in.Target) == nil {
				t.Errorf("n=%d: jump target %d is not a block start", n, in.Target)
			}
		}
		if got, want := len(g.Live()), 2*n+2; got != want {
			t.Errorf("n=%d: %d blocks, want %d", n, got, want)
		}
	}
}
