package reconstruct

import (
	"testing"

	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/pkg/bytecode"
)

const holder = "class$com$acme$Bar"

type literalFixture struct {
	pool            *classfile.ConstantPool
	field, name     uint16
	helper, forName uint16
}

func newLiteralFixture(fieldDesc string) literalFixture {
	pool := classfile.NewConstantPool()
	return literalFixture{
		pool:    pool,
		field:   pool.AddFieldRef("com/acme/Foo", holder, fieldDesc),
		name:    pool.AddString("com.acme.Bar"),
		helper:  pool.AddMethodRef("com/acme/Foo", "class$", "(Ljava/lang/String;)Ljava/lang/Class;"),
		forName: pool.AddMethodRef("java/lang/Class", "forName", "(Ljava/lang/String;)Ljava/lang/Class;"),
	}
}

// helperMethod builds class$; wrapped selects whether its body really
// calls Class.forName under a ClassNotFoundException handler.
func (f literalFixture) helperMethod(wrapped bool) *classfile.Method {
	b := bytecode.NewBuilder()
	code := &classfile.Code{}
	if wrapped {
		b.Emit(bytecode.OpAload0).EmitU2(bytecode.OpInvokestatic, f.forName).Emit(bytecode.OpAreturn)
		code.Exceptions = []classfile.ExceptionEntry{{Start: 0, End: 4, Handler: 4, CatchType: "java/lang/ClassNotFoundException"}}
	} else {
		b.Emit(bytecode.OpAconstNull).Emit(bytecode.OpAreturn)
	}
	code.Bytes = b.Bytes()
	return &classfile.Method{
		Access:     classfile.AccStatic | classfile.AccSynthetic,
		Name:       "class$",
		Descriptor: "(Ljava/lang/String;)Ljava/lang/Class;",
		Code:       code,
	}
}

func (f literalFixture) javac() *bytecode.Builder {
	b := bytecode.NewBuilder()
	cached, done := b.NewLabel(), b.NewLabel()
	b.EmitU2(bytecode.OpGetstatic, f.field).
		EmitJump(bytecode.OpIfnonnull, cached).
		EmitU1(bytecode.OpLdc, uint8(f.name)).
		EmitU2(bytecode.OpInvokestatic, f.helper).
		Emit(bytecode.OpDup).
		EmitU2(bytecode.OpPutstatic, f.field).
		EmitJump(bytecode.OpGoto, done).
		Mark(cached).
		EmitU2(bytecode.OpGetstatic, f.field).
		Mark(done).
		Emit(bytecode.OpAreturn)
	return b
}

func (f literalFixture) eclipse() (*bytecode.Builder, []classfile.ExceptionEntry) {
	pool := f.pool
	ncdfe := pool.AddClass("java/lang/NoClassDefFoundError")
	getMessage := pool.AddMethodRef("java/lang/Throwable", "getMessage", "()Ljava/lang/String;")
	ncdfeInit := pool.AddMethodRef("java/lang/NoClassDefFoundError", "<init>", "(Ljava/lang/String;)V")

	b := bytecode.NewBuilder()
	done := b.NewLabel()
	b.EmitU2(bytecode.OpGetstatic, f.field).
		Emit(bytecode.OpDup).
		EmitJump(bytecode.OpIfnonnull, done).
		Emit(bytecode.OpPop).
		EmitU1(bytecode.OpLdc, uint8(f.name)).       // 8
		EmitU2(bytecode.OpInvokestatic, f.forName). // 10
		Emit(bytecode.OpDup).                        // 13
		EmitU2(bytecode.OpPutstatic, f.field).
		EmitJump(bytecode.OpGoto, done).
		EmitU2(bytecode.OpNew, ncdfe). // 20
		Emit(bytecode.OpDupX1).
		Emit(bytecode.OpSwap).
		EmitU2(bytecode.OpInvokevirtual, getMessage).
		EmitU2(bytecode.OpInvokespecial, ncdfeInit).
		Emit(bytecode.OpAthrow).
		Mark(done).
		Emit(bytecode.OpAreturn)
	table := []classfile.ExceptionEntry{{Start: 8, End: 13, Handler: 20, CatchType: "java/lang/ClassNotFoundException"}}
	return b, table
}

func literals(t *testing.T, b *bytecode.Builder, table []classfile.ExceptionEntry, pool *classfile.ConstantPool, cls *testClass) ([]bytecode.Insn, []classfile.ExceptionEntry, int) {
	t.Helper()
	insns, err := bytecode.Decode(b.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return ClassLiterals(insns, table, pool, cls)
}

func TestClassLiteralJavac(t *testing.T) {
	f := newLiteralFixture("Ljava/lang/Class;")
	cls := newTestClass(staticField(holder, "Ljava/lang/Class;"))
	cls.methods = []*classfile.Method{f.helperMethod(true)}

	insns, _, n := literals(t, f.javac(), nil, f.pool, cls)
	if n != 1 {
		t.Fatalf("ClassLiterals() folded %d, want 1", n)
	}
	if len(insns) != 2 {
		t.Fatalf("len(insns) = %d, want 2", len(insns))
	}
	if got := insns[0]; got.Class != "com/acme/Bar" || got.Offset != 0 || got.End() != 21 {
		t.Errorf("insns[0] = %+v, want class com/acme/Bar spanning [0, 21)", got)
	}
	for _, member := range []string{holder, "class$(Ljava/lang/String;)Ljava/lang/Class;"} {
		if !cls.synthetic[member] {
			t.Errorf("synthetic[%q] = false, want true", member)
		}
	}

	got := rebuild(t, f.javac(), f.pool, cls, Method{Name: "m", Desc: "()Ljava/lang/Class;"}, nil)
	if want := "Return(Const(class com/acme/Bar))\n"; got != want {
		t.Errorf("rebuild() = %q, want %q", got, want)
	}
}

func TestClassLiteralEclipse(t *testing.T) {
	f := newLiteralFixture("Ljava/lang/Class;")
	cls := newTestClass(staticField(holder, "Ljava/lang/Class;"))
	b, table := f.eclipse()

	insns, entries, n := literals(t, b, table, f.pool, cls)
	if n != 1 {
		t.Fatalf("ClassLiterals() folded %d, want 1", n)
	}
	if len(insns) != 2 || insns[0].Class != "com/acme/Bar" {
		t.Errorf("insns = %+v, want one class load and areturn", insns)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %v, want the handler dropped", entries)
	}
	if !cls.synthetic[holder] {
		t.Errorf("synthetic[%q] = false, want true", holder)
	}
	if cls.synthetic["class$(Ljava/lang/String;)Ljava/lang/Class;"] {
		t.Error("Eclipse layout marked class$ synthetic")
	}
	if len(table) != 1 {
		t.Errorf("input table modified: %v", table)
	}

	got := rebuild(t, b, f.pool, cls, Method{Name: "m", Desc: "()Ljava/lang/Class;"}, table)
	if want := "Return(Const(class com/acme/Bar))\n"; got != want {
		t.Errorf("rebuild() = %q, want %q", got, want)
	}
}

func TestClassLiteralNearMisses(t *testing.T) {
	tests := []struct {
		name      string
		fieldDesc string
		declared  bool
		wrapped   bool
	}{
		{"helper without forName", "Ljava/lang/Class;", true, false},
		{"holder is not a Class", "Ljava/lang/Object;", true, true},
		{"holder not declared", "Ljava/lang/Class;", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLiteralFixture(tt.fieldDesc)
			cls := newTestClass()
			if tt.declared {
				cls.fields = []*classfile.Field{staticField(holder, tt.fieldDesc)}
			}
			cls.methods = []*classfile.Method{f.helperMethod(tt.wrapped)}

			insns, _, n := literals(t, f.javac(), nil, f.pool, cls)
			if n != 0 || len(insns) != 9 {
				t.Errorf("ClassLiterals() folded %d into %d instructions, want 0 and 9", n, len(insns))
			}
			if len(cls.synthetic) != 0 {
				t.Errorf("synthetic = %v, want none", cls.synthetic)
			}
		})
	}
}

func TestClassLiteralJumpIntoIdiom(t *testing.T) {
	f := newLiteralFixture("Ljava/lang/Class;")
	cls := newTestClass(staticField(holder, "Ljava/lang/Class;"))
	cls.methods = []*classfile.Method{f.helperMethod(true)}

	// The javac layout followed by a jump back to its cached load.
	b := f.javac()
	insns, err := bytecode.Decode(b.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	insns = append(insns, bytecode.Insn{Offset: 22, Op: bytecode.OpGoto, Len: 3, Slot: -1, Target: 18})

	if _, _, n := ClassLiterals(insns, nil, f.pool, cls); n != 0 {
		t.Errorf("ClassLiterals() folded %d, want 0", n)
	}
}
