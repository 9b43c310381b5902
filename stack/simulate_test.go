package stack

import (
	"errors"
	"testing"

	"github.com/chazu/decaf/cfg"
	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/ir"
	"github.com/chazu/decaf/pkg/bytecode"
)

func simulate(t *testing.T, b *bytecode.Builder, pool *classfile.ConstantPool, desc string) (*cfg.Graph, *Result, error) {
	t.Helper()
	code := b.Bytes()
	insns, err := bytecode.Decode(code)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	g, err := cfg.Build(insns, len(code), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	g.Analyze()
	res, err := Simulate(g, Method{Class: "com/acme/Foo", Desc: desc, Static: true, Pool: pool})
	return g, res, err
}

func mustSimulate(t *testing.T, b *bytecode.Builder, pool *classfile.ConstantPool, desc string) *cfg.Graph {
	t.Helper()
	g, _, err := simulate(t, b, pool, desc)
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	return g
}

func body(g *cfg.Graph, offset int) string {
	return ir.Sprint(g.At(offset).Body)
}

func TestSimulateStraightLine(t *testing.T) {
	pool := classfile.NewConstantPool()
	out := pool.AddFieldRef("java/lang/System", "out", "Ljava/io/PrintStream;")
	hi := pool.AddString("hi")
	printMethod := pool.AddMethodRef("java/io/PrintStream", "println", "(Ljava/lang/String;)V")
	foo := pool.AddClass("com/acme/Foo")
	init := pool.AddMethodRef("com/acme/Foo", "<init>", "()V")

	tests := []struct {
		name string
		code func(*bytecode.Builder)
		want string
	}{
		{
			"increment",
			func(b *bytecode.Builder) {
				b.Emit(bytecode.OpIload0).Emit(bytecode.OpIconst1).Emit(bytecode.OpIadd).Emit(bytecode.OpIstore0)
			},
			"Store(0, BinaryOp(+, Load(0), Const(1)))\n",
		},
		{
			"void call",
			func(b *bytecode.Builder) {
				b.EmitU2(bytecode.OpGetstatic, out).EmitU1(bytecode.OpLdc, uint8(hi)).EmitU2(bytecode.OpInvokevirtual, printMethod)
			},
			"Invoke(virtual java/io/PrintStream.println, GetStatic(java/lang/System.out), Const(\"hi\"))\n",
		},
		{
			"constructor into local",
			func(b *bytecode.Builder) {
				b.EmitU2(bytecode.OpNew, foo).Emit(bytecode.OpDup).EmitU2(bytecode.OpInvokespecial, init).Emit(bytecode.OpAstore1)
			},
			"Store(1, InvokeNew(com/acme/Foo))\n",
		},
		{
			"constructor discarded",
			func(b *bytecode.Builder) {
				b.EmitU2(bytecode.OpNew, foo).Emit(bytecode.OpDup).EmitU2(bytecode.OpInvokespecial, init).Emit(bytecode.OpPop)
			},
			"ExprStmt(InvokeNew(com/acme/Foo))\n",
		},
		{
			"dup of leaf",
			func(b *bytecode.Builder) {
				b.Emit(bytecode.OpIconst5).Emit(bytecode.OpDup).Emit(bytecode.OpIstore1).Emit(bytecode.OpIstore2)
			},
			"Store(1, Const(5))\nStore(2, Const(5))\n",
		},
		{
			"dup of expression",
			func(b *bytecode.Builder) {
				b.Emit(bytecode.OpIload0).Emit(bytecode.OpIload1).Emit(bytecode.OpIadd).
					Emit(bytecode.OpDup).Emit(bytecode.OpIstore2).Emit(bytecode.OpIstore3)
			},
			"DupStore(@3, BinaryOp(+, Load(0), Load(1)))\nStore(2, DupLoad(@3))\nStore(3, DupLoad(@3))\n",
		},
		{
			"postfix increment",
			func(b *bytecode.Builder) {
				b.Emit(bytecode.OpIload0).EmitIinc(0, 1).Emit(bytecode.OpIstore1)
			},
			"Store(1, Inc(Load(0), +1, post))\n",
		},
		{
			"postfix decrement",
			func(b *bytecode.Builder) {
				b.Emit(bytecode.OpIload0).EmitIinc(0, -1).Emit(bytecode.OpIstore1)
			},
			"Store(1, Inc(Load(0), -1, post))\n",
		},
		{
			"increment by more than one",
			func(b *bytecode.Builder) {
				b.Emit(bytecode.OpIload0).EmitIinc(0, 5).Emit(bytecode.OpIstore1)
			},
			"DupStore(@0, Load(0))\nIInc(0, +5)\nStore(1, DupLoad(@0))\n",
		},
		{
			"store spills pending read",
			func(b *bytecode.Builder) {
				b.Emit(bytecode.OpIload0).Emit(bytecode.OpIconst0).Emit(bytecode.OpIstore0).Emit(bytecode.OpIstore1)
			},
			"DupStore(@0, Load(0))\nStore(0, Const(0))\nStore(1, DupLoad(@0))\n",
		},
		{
			"discarded pure value",
			func(b *bytecode.Builder) {
				b.Emit(bytecode.OpIload0).Emit(bytecode.OpI2l).Emit(bytecode.OpPop2)
			},
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bytecode.NewBuilder()
			tt.code(b)
			b.Emit(bytecode.OpReturn)
			g := mustSimulate(t, b, pool, "(II)V")
			want := tt.want + "Return()\n"
			if got := body(g, 0); got != want {
				t.Errorf("Body =\n%s\nwant\n%s", got, want)
			}
		})
	}
}

func TestSimulateConditions(t *testing.T) {
	tests := []struct {
		name string
		desc string
		code func(*bytecode.Builder, *bytecode.Label)
		want string
	}{
		{"int test", "(I)V", func(b *bytecode.Builder, l *bytecode.Label) {
			b.Emit(bytecode.OpIload0).EmitJump(bytecode.OpIfeq, l)
		}, "Compare(==, Load(0), Const(0))"},
		{"boolean test", "(Z)V", func(b *bytecode.Builder, l *bytecode.Label) {
			b.Emit(bytecode.OpIload0).EmitJump(bytecode.OpIfeq, l)
		}, "Not(Load(0))"},
		{"long compare", "(J)V", func(b *bytecode.Builder, l *bytecode.Label) {
			b.Emit(bytecode.OpLload0).Emit(bytecode.OpLconst0).Emit(bytecode.OpLcmp).EmitJump(bytecode.OpIfle, l)
		}, "Compare(<=, Load(0), Const(0L))"},
		{"null test", "(Ljava/lang/Object;)V", func(b *bytecode.Builder, l *bytecode.Label) {
			b.Emit(bytecode.OpAload0).EmitJump(bytecode.OpIfnonnull, l)
		}, "Compare(!=, Load(0), Const(null))"},
		{"int compare", "(II)V", func(b *bytecode.Builder, l *bytecode.Label) {
			b.Emit(bytecode.OpIload0).Emit(bytecode.OpIload1).EmitJump(bytecode.OpIfIcmplt, l)
		}, "Compare(<, Load(0), Load(1))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bytecode.NewBuilder()
			l := b.NewLabel()
			tt.code(b, l)
			b.Emit(bytecode.OpReturn).Mark(l).Emit(bytecode.OpReturn)
			g := mustSimulate(t, b, nil, tt.desc)
			if got := ir.SprintNode(g.At(0).Cond); got != tt.want {
				t.Errorf("Cond = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSimulateTernaryJoin(t *testing.T) {
	// x = a ? 1 : 2
	b := bytecode.NewBuilder()
	els, join := b.NewLabel(), b.NewLabel()
	b.Emit(bytecode.OpIload0).
		EmitJump(bytecode.OpIfeq, els).
		Emit(bytecode.OpIconst1). // 4
		EmitJump(bytecode.OpGoto, join).
		Mark(els).
		Emit(bytecode.OpIconst2). // 8
		Mark(join).
		Emit(bytecode.OpIstore1). // 9
		Emit(bytecode.OpReturn)

	g := mustSimulate(t, b, nil, "(I)V")
	tests := []struct {
		offset int
		want   string
	}{
		{4, "TernaryOpStore(#2304, Const(1))\n"},
		{8, "TernaryOpStore(#2304, Const(2))\n"},
		{9, "Store(1, TernaryOpLoad(#2304))\nReturn()\n"},
	}
	for _, tt := range tests {
		if got := body(g, tt.offset); got != tt.want {
			t.Errorf("block %d Body = %q, want %q", tt.offset, got, tt.want)
		}
	}
}

func TestSimulateEntryUnderflow(t *testing.T) {
	b := bytecode.NewBuilder()
	b.Emit(bytecode.OpPop).Emit(bytecode.OpReturn)
	_, _, err := simulate(t, b, nil, "()V")
	var uf *UnderflowError
	if !errors.As(err, &uf) {
		t.Fatalf("Simulate() error = %v, want *UnderflowError", err)
	}
	if uf.Offset != 0 || uf.Op != bytecode.OpPop {
		t.Errorf("UnderflowError = %+v, want offset 0 pop", uf)
	}
}

func TestSimulateRawBlock(t *testing.T) {
	b := bytecode.NewBuilder()
	l := b.NewLabel()
	b.Emit(bytecode.OpIload0).
		EmitJump(bytecode.OpIfeq, l).
		Emit(bytecode.OpReturn).
		Mark(l).
		Emit(bytecode.OpPop). // 5
		Emit(bytecode.OpReturn)

	g, res, err := simulate(t, b, nil, "(I)V")
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	raw := g.At(5)
	if !raw.Has(cfg.Raw) {
		t.Fatal("block at 5 not raw")
	}
	if len(res.RawBlocks) != 1 || res.RawBlocks[0] != raw.Index {
		t.Errorf("RawBlocks = %v, want [%d]", res.RawBlocks, raw.Index)
	}
	rb, ok := raw.Body[0].(*ir.RawBytecode)
	if !ok || len(rb.Lines) != 2 {
		t.Errorf("raw Body = %s", ir.Sprint(raw.Body))
	}
	if g.At(0).Has(cfg.Raw) {
		t.Error("entry block is raw")
	}
}

func TestSimulateMalformedPool(t *testing.T) {
	b := bytecode.NewBuilder()
	b.EmitU2(bytecode.OpGetstatic, 42).Emit(bytecode.OpPop).Emit(bytecode.OpReturn)
	_, _, err := simulate(t, b, classfile.NewConstantPool(), "()V")
	var mcp *classfile.MalformedConstantPoolError
	if !errors.As(err, &mcp) {
		t.Errorf("Simulate() error = %v, want *MalformedConstantPoolError", err)
	}
}
