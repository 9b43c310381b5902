package structure

import (
	"testing"

	"github.com/chazu/decaf/cfg"
	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/ir"
	"github.com/chazu/decaf/pkg/bytecode"
	"github.com/chazu/decaf/stack"
)

func lower(t *testing.T, b *bytecode.Builder, pool *classfile.ConstantPool, desc string, table []classfile.ExceptionEntry) *Result {
	t.Helper()
	code := b.Bytes()
	insns, err := bytecode.Decode(code)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	g, err := cfg.Build(insns, len(code), table)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	g.Analyze()
	if _, err := stack.Simulate(g, stack.Method{Class: "com/acme/Foo", Desc: desc, Static: true, Pool: pool}); err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	cfg.NewPipeline(Processors(cfg.DefaultLoopExitPredecessorThreshold)...).Run(g)
	return Lower(g)
}

func check(t *testing.T, res *Result, want string) {
	t.Helper()
	if got := ir.Sprint(res.Body); got != want {
		t.Errorf("Lower() =\n%s\nwant\n%s", got, want)
	}
	if res.Irreducible {
		t.Error("Irreducible = true, want false")
	}
}

func TestLowerIf(t *testing.T) {
	b := bytecode.NewBuilder()
	end := b.NewLabel()
	b.Emit(bytecode.OpIload0).
		EmitJump(bytecode.OpIfle, end).
		Emit(bytecode.OpIconst1).
		Emit(bytecode.OpIstore0).
		Mark(end).
		Emit(bytecode.OpReturn)

	check(t, lower(t, b, nil, "(I)V", nil), ""+
		"If(Compare(>, Load(0), Const(0)))\n"+
		"  Store(0, Const(1))\n"+
		"Return()\n")
}

func TestLowerIfElse(t *testing.T) {
	b := bytecode.NewBuilder()
	els, end := b.NewLabel(), b.NewLabel()
	b.Emit(bytecode.OpIload0).
		EmitJump(bytecode.OpIfle, els).
		Emit(bytecode.OpIconst1).
		Emit(bytecode.OpIstore1).
		EmitJump(bytecode.OpGoto, end).
		Mark(els).
		Emit(bytecode.OpIconst2).
		Emit(bytecode.OpIstore1).
		Mark(end).
		Emit(bytecode.OpReturn)

	check(t, lower(t, b, nil, "(I)V", nil), ""+
		"If(Compare(>, Load(0), Const(0)))\n"+
		"  Store(1, Const(1))\n"+
		"Else\n"+
		"  Store(1, Const(2))\n"+
		"Return()\n")
}

func TestLowerLoops(t *testing.T) {
	tests := []struct {
		name string
		code func(*bytecode.Builder)
		want string
	}{
		{
			"while",
			func(b *bytecode.Builder) {
				top, end := b.NewLabel(), b.NewLabel()
				b.Mark(top).
					Emit(bytecode.OpIload0).
					EmitJump(bytecode.OpIfle, end).
					EmitIinc(0, -1).
					EmitJump(bytecode.OpGoto, top).
					Mark(end)
			},
			"While(Compare(>, Load(0), Const(0)))\n" +
				"  IInc(0, -1)\n",
		},
		{
			"do while",
			func(b *bytecode.Builder) {
				top := b.NewLabel()
				b.Mark(top).
					EmitIinc(0, -1).
					Emit(bytecode.OpIload0).
					EmitJump(bytecode.OpIfgt, top)
			},
			"DoWhile(Compare(>, Load(0), Const(0)))\n" +
				"  IInc(0, -1)\n",
		},
		{
			"counted",
			func(b *bytecode.Builder) {
				top, end := b.NewLabel(), b.NewLabel()
				b.Emit(bytecode.OpIconst0).
					Emit(bytecode.OpIstore1).
					Mark(top).
					Emit(bytecode.OpIload1).
					EmitU1(bytecode.OpBipush, 10).
					EmitJump(bytecode.OpIfIcmpge, end).
					EmitIinc(0, 2).
					EmitIinc(1, 1).
					EmitJump(bytecode.OpGoto, top).
					Mark(end)
			},
			"For(Compare(<, Load(1), Const(10)))\n" +
				"  Init\n" +
				"    Store(1, Const(0))\n" +
				"  Update\n" +
				"    IInc(1, +1)\n" +
				"  Body\n" +
				"    IInc(0, +2)\n",
		},
		{
			"bottom tested with entry jump",
			func(b *bytecode.Builder) {
				body, cond := b.NewLabel(), b.NewLabel()
				b.EmitJump(bytecode.OpGoto, cond).
					Mark(body).
					EmitIinc(0, -1).
					Mark(cond).
					Emit(bytecode.OpIload0).
					EmitJump(bytecode.OpIfgt, body)
			},
			"While(Compare(>, Load(0), Const(0)))\n" +
				"  IInc(0, -1)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bytecode.NewBuilder()
			tt.code(b)
			b.Emit(bytecode.OpReturn)
			check(t, lower(t, b, nil, "(I)V", nil), tt.want+"Return()\n")
		})
	}
}

func TestLowerSwitch(t *testing.T) {
	b := bytecode.NewBuilder()
	one, two, dflt, end := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Emit(bytecode.OpIload0).
		EmitTableswitch(1, dflt, one, two).
		Mark(one).
		EmitU1(bytecode.OpBipush, 10).
		Emit(bytecode.OpIstore0).
		EmitJump(bytecode.OpGoto, end).
		Mark(two).
		EmitU1(bytecode.OpBipush, 20).
		Emit(bytecode.OpIstore0).
		Mark(dflt).
		EmitU1(bytecode.OpBipush, 30).
		Emit(bytecode.OpIstore0).
		Mark(end).
		Emit(bytecode.OpReturn)

	check(t, lower(t, b, nil, "(I)V", nil), ""+
		"Switch(Load(0))\n"+
		"  Case 1\n"+
		"    Store(0, Const(10))\n"+
		"    Break()\n"+
		"  Case 2\n"+
		"    Store(0, Const(20))\n"+
		"  Case default\n"+
		"    Store(0, Const(30))\n"+
		"Return()\n")
}

func TestLowerTernary(t *testing.T) {
	tests := []struct {
		name      string
		then, els bytecode.Opcode
		want      string
	}{
		{"values", bytecode.OpIconst1, bytecode.OpIconst2, "TernaryOp(Compare(<=, Load(0), Const(0)), Const(2), Const(1))"},
		{"boolean", bytecode.OpIconst1, bytecode.OpIconst0, "Compare(>, Load(0), Const(0))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// x = a > 0 ? then : els, with the else arm laid out second
			b := bytecode.NewBuilder()
			els, join := b.NewLabel(), b.NewLabel()
			b.Emit(bytecode.OpIload0).
				EmitJump(bytecode.OpIfle, els).
				Emit(tt.then).
				EmitJump(bytecode.OpGoto, join).
				Mark(els).
				Emit(tt.els).
				Mark(join). // 9
				Emit(bytecode.OpIstore1).
				Emit(bytecode.OpReturn)

			check(t, lower(t, b, nil, "(I)V", nil), ""+
				"TernaryOpStore(#2304, "+tt.want+")\n"+
				"Store(1, TernaryOpLoad(#2304))\n"+
				"Return()\n")
		})
	}
}

func TestLowerTryCatch(t *testing.T) {
	pool := classfile.NewConstantPool()
	foo := pool.AddMethodRef("com/acme/Foo", "foo", "()V")
	bar := pool.AddMethodRef("com/acme/Foo", "bar", "(Ljava/lang/Throwable;)V")

	b := bytecode.NewBuilder()
	end := b.NewLabel()
	b.EmitU2(bytecode.OpInvokestatic, foo).
		EmitJump(bytecode.OpGoto, end). // 3
		Emit(bytecode.OpAstore0).       // 6
		Emit(bytecode.OpAload0).
		EmitU2(bytecode.OpInvokestatic, bar).
		Mark(end).
		Emit(bytecode.OpReturn)
	table := []classfile.ExceptionEntry{{Start: 0, End: 3, Handler: 6, CatchType: "java/lang/Exception"}}

	check(t, lower(t, b, pool, "()V", table), ""+
		"Try\n"+
		"  Invoke(static com/acme/Foo.foo)\n"+
		"Catch(java/lang/Exception Load(0))\n"+
		"  Invoke(static com/acme/Foo.bar, Load(0))\n"+
		"Return()\n")
}

func TestLowerTryFinally(t *testing.T) {
	pool := classfile.NewConstantPool()
	foo := pool.AddMethodRef("com/acme/Foo", "foo", "()V")
	bar := pool.AddMethodRef("com/acme/Foo", "bar", "()V")

	b := bytecode.NewBuilder()
	b.EmitU2(bytecode.OpInvokestatic, foo).
		EmitU2(bytecode.OpInvokestatic, bar). // 3: inlined finally
		Emit(bytecode.OpReturn).
		Emit(bytecode.OpAstore0). // 7
		EmitU2(bytecode.OpInvokestatic, bar).
		Emit(bytecode.OpAload0).
		Emit(bytecode.OpAthrow)
	table := []classfile.ExceptionEntry{{Start: 0, End: 3, Handler: 7}}

	check(t, lower(t, b, pool, "()V", table), ""+
		"Try\n"+
		"  Invoke(static com/acme/Foo.foo)\n"+
		"Finally\n"+
		"  Invoke(static com/acme/Foo.bar)\n"+
		"Return()\n")
}

func TestLowerSynchronized(t *testing.T) {
	pool := classfile.NewConstantPool()
	foo := pool.AddMethodRef("com/acme/Foo", "foo", "()V")

	b := bytecode.NewBuilder()
	end := b.NewLabel()
	b.Emit(bytecode.OpAload0).
		Emit(bytecode.OpDup).
		Emit(bytecode.OpAstore1).
		Emit(bytecode.OpMonitorenter).
		EmitU2(bytecode.OpInvokestatic, foo). // 4
		Emit(bytecode.OpAload1).
		Emit(bytecode.OpMonitorexit).
		EmitJump(bytecode.OpGoto, end). // 9
		Emit(bytecode.OpAstore2).       // 12
		Emit(bytecode.OpAload1).
		Emit(bytecode.OpMonitorexit).
		Emit(bytecode.OpAload2). // 15
		Emit(bytecode.OpAthrow).
		Mark(end). // 17
		Emit(bytecode.OpReturn)
	table := []classfile.ExceptionEntry{
		{Start: 4, End: 9, Handler: 12},
		{Start: 12, End: 15, Handler: 12},
	}

	check(t, lower(t, b, pool, "(Ljava/lang/Object;)V", table), ""+
		"Synchronized(Load(0))\n"+
		"  Invoke(static com/acme/Foo.foo)\n"+
		"Return()\n")
}

func TestLowerIrreducible(t *testing.T) {
	// Two entries into the cycle a <-> b.
	b := bytecode.NewBuilder()
	la, lb, end := b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Emit(bytecode.OpIload0).
		EmitJump(bytecode.OpIfne, lb).
		Mark(la).
		EmitIinc(1, 1).
		Emit(bytecode.OpIload1).
		EmitJump(bytecode.OpIfgt, end).
		Mark(lb).
		EmitIinc(1, -1).
		Emit(bytecode.OpIload1).
		EmitJump(bytecode.OpIfgt, la).
		Mark(end).
		Emit(bytecode.OpReturn)

	res := lower(t, b, nil, "(II)V", nil)
	if !res.Irreducible {
		t.Error("Irreducible = false, want true")
	}
	if res.Gotos == 0 {
		t.Fatal("Gotos = 0, want at least one")
	}

	labels := map[string]bool{}
	var gotos []*ir.Goto
	ir.Walk(res.Body, func(ins ir.Instruction) bool {
		switch n := ins.(type) {
		case *ir.Label:
			labels[n.Name] = true
		case *ir.Goto:
			gotos = append(gotos, n)
		}
		return true
	})
	if len(gotos) != res.Gotos {
		t.Errorf("found %d gotos, Result.Gotos = %d", len(gotos), res.Gotos)
	}
	for _, g := range gotos {
		if !labels[g.Label] {
			t.Errorf("Goto(%s) has no label in\n%s", g.Label, ir.Sprint(res.Body))
		}
	}
	if n := ir.Count(res.Body, func(ins ir.Instruction) bool { _, ok := ins.(*ir.Return); return ok }); n != 1 {
		t.Errorf("%d returns, want 1", n)
	}
}

func TestTrimContinue(t *testing.T) {
	body := []ir.Instruction{
		&ir.IInc{Slot: 0, Delta: 1},
		&ir.If{Cond: &ir.Load{Slot: 1}, Then: []ir.Instruction{&ir.IInc{Slot: 2, Delta: 1}, &ir.Continue{}}},
	}
	got := ir.Sprint(trimContinue(body, ""))
	want := "IInc(0, +1)\nIf(Load(1))\n  IInc(2, +1)\n"
	if got != want {
		t.Errorf("trimContinue() =\n%s\nwant\n%s", got, want)
	}

	labelled := []ir.Instruction{&ir.Continue{Label: "L0"}}
	if got := trimContinue(labelled, "L4"); len(got) != 1 {
		t.Error("trimContinue() dropped a continue of an outer loop")
	}
}
