package decompile

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kr/pretty"

	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/ir"
	"github.com/chazu/decaf/pkg/bytecode"
)

const (
	owner    = "com/acme/Foo"
	holder   = "class$com$acme$Bar"
	classDsc = "Ljava/lang/Class;"
	helper   = "(Ljava/lang/String;)Ljava/lang/Class;"
)

func method(access uint16, name, desc string, b *bytecode.Builder) *classfile.Method {
	return &classfile.Method{Access: access, Name: name, Descriptor: desc, Code: &classfile.Code{Bytes: b.Bytes()}}
}

// fooClass builds a class with a static initializer, a class literal
// method compiled the javac way, a plain arithmetic method and one method
// whose code cannot be decoded.
func fooClass() *classfile.ClassFile {
	pool := classfile.NewConstantPool()
	cf := &classfile.ClassFile{Pool: pool, Name: owner, Super: "java/lang/Object"}
	cf.Fields = []*classfile.Field{
		{Access: classfile.AccStatic, Name: "A", Descriptor: "I"},
		{Access: classfile.AccStatic, Name: "B", Descriptor: "Ljava/lang/String;"},
		{Access: classfile.AccStatic, Name: holder, Descriptor: classDsc},
	}

	a := pool.AddFieldRef(owner, "A", "I")
	bf := pool.AddFieldRef(owner, "B", "Ljava/lang/String;")
	x := pool.AddString("x")
	clinit := bytecode.NewBuilder()
	clinit.Emit(bytecode.OpIconst1).EmitU2(bytecode.OpPutstatic, a).
		EmitU1(bytecode.OpLdc, uint8(x)).EmitU2(bytecode.OpPutstatic, bf).
		Emit(bytecode.OpReturn)

	field := pool.AddFieldRef(owner, holder, classDsc)
	name := pool.AddString("com.acme.Bar")
	class := pool.AddMethodRef(owner, "class$", helper)
	forName := pool.AddMethodRef("java/lang/Class", "forName", helper)
	lit := bytecode.NewBuilder()
	cached, done := lit.NewLabel(), lit.NewLabel()
	lit.EmitU2(bytecode.OpGetstatic, field).
		EmitJump(bytecode.OpIfnonnull, cached).
		EmitU1(bytecode.OpLdc, uint8(name)).
		EmitU2(bytecode.OpInvokestatic, class).
		Emit(bytecode.OpDup).
		EmitU2(bytecode.OpPutstatic, field).
		EmitJump(bytecode.OpGoto, done).
		Mark(cached).
		EmitU2(bytecode.OpGetstatic, field).
		Mark(done).
		Emit(bytecode.OpAreturn)

	wrap := bytecode.NewBuilder()
	wrap.Emit(bytecode.OpAload0).EmitU2(bytecode.OpInvokestatic, forName).Emit(bytecode.OpAreturn)
	helperMethod := method(classfile.AccStatic|classfile.AccSynthetic, "class$", helper, wrap)
	helperMethod.Code.Exceptions = []classfile.ExceptionEntry{{Start: 0, End: 4, Handler: 4, CatchType: "java/lang/ClassNotFoundException"}}

	inc := bytecode.NewBuilder()
	inc.Emit(bytecode.OpIload0).Emit(bytecode.OpIconst1).Emit(bytecode.OpIadd).Emit(bytecode.OpIreturn)

	cf.Methods = []*classfile.Method{
		method(classfile.AccStatic, "<clinit>", "()V", clinit),
		method(classfile.AccStatic, "bar", "()Ljava/lang/Class;", lit),
		helperMethod,
		method(classfile.AccStatic, "inc", "(I)I", inc),
		{Access: classfile.AccStatic, Name: "broken", Descriptor: "()V", Code: &classfile.Code{Bytes: []byte{0xCB}}},
		{Access: classfile.AccAbstract, Name: "run", Descriptor: "()V"},
	}
	return cf
}

func find(t *testing.T, r *ClassResult, name string) *MethodResult {
	t.Helper()
	for _, m := range r.Methods {
		if m != nil && m.Name == name {
			return m
		}
	}
	t.Fatalf("no result for method %s", name)
	return nil
}

func TestClass(t *testing.T) {
	for _, workers := range []int{1, 4} {
		opts := DefaultOptions()
		opts.Workers = workers
		res, err := Class(context.Background(), fooClass(), opts)
		if err != nil {
			t.Fatalf("Class() error = %v", err)
		}

		tests := []struct {
			method  string
			outcome Outcome
			body    string
		}{
			{"<clinit>", OutcomeOK, ""},
			{"bar", OutcomeOK, "Return(Const(class com/acme/Bar))\n"},
			{"inc", OutcomeOK, "Return(BinaryOp(+, Load(0 i), Const(1)))\n"},
			{"run", OutcomeNoCode, ""},
		}
		for _, tt := range tests {
			m := find(t, res, tt.method)
			if m.Outcome != tt.outcome {
				t.Errorf("workers=%d: %s outcome = %v, want %v (%v)", workers, tt.method, m.Outcome, tt.outcome, m.Diagnostics.Err)
			}
			if got := ir.Sprint(m.Body); got != tt.body {
				t.Errorf("workers=%d: %s body = %q, want %q", workers, tt.method, got, tt.body)
			}
		}

		if got := find(t, res, "bar").Diagnostics.ClassLiterals; got != 1 {
			t.Errorf("bar ClassLiterals = %d, want 1", got)
		}
		inits := map[string]string{}
		for name, fs := range res.Fields {
			if fs.Initializer != nil {
				inits[name] = ir.SprintNode(fs.Initializer)
			}
		}
		want := map[string]string{"A": "Const(1)", "B": `Const("x")`}
		if diff := pretty.Diff(inits, want); len(diff) > 0 {
			t.Errorf("workers=%d: initializers differ:\n%s", workers, strings.Join(diff, "\n"))
		}
		if !res.Fields[holder].Synthetic {
			t.Errorf("workers=%d: %s not marked synthetic", workers, holder)
		}
		if !res.Synthetic["class$"+helper] {
			t.Errorf("workers=%d: class$ not marked synthetic", workers)
		}
	}
}

func TestMethodFailures(t *testing.T) {
	cf := fooClass()
	pop := bytecode.NewBuilder()
	pop.Emit(bytecode.OpPop).Emit(bytecode.OpReturn)
	cf.Methods = append(cf.Methods, method(classfile.AccStatic, "underflow", "()V", pop))
	cc := NewClassContext(cf)

	tests := []struct {
		name  string
		lines int
	}{
		{"broken", 1},
		{"underflow", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Method(cc, cf.Method(tt.name, "()V"), DefaultOptions())
			if res.Outcome != OutcomeFailed {
				t.Fatalf("Outcome = %v, want failed", res.Outcome)
			}
			if res.Diagnostics.Err == nil {
				t.Error("Diagnostics.Err = nil")
			}
			if len(res.Body) != 1 {
				t.Fatalf("len(Body) = %d, want 1", len(res.Body))
			}
			raw, ok := res.Body[0].(*ir.RawBytecode)
			if !ok {
				t.Fatalf("Body[0] = %T, want *ir.RawBytecode", res.Body[0])
			}
			if len(raw.Lines) != tt.lines {
				t.Errorf("len(Lines) = %d, want %d: %v", len(raw.Lines), tt.lines, raw.Lines)
			}
		})
	}
}

func TestClassCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Class(ctx, fooClass(), DefaultOptions()); !errors.Is(err, context.Canceled) {
		t.Errorf("Class() error = %v, want context.Canceled", err)
	}
}

func TestFprint(t *testing.T) {
	res, err := Class(context.Background(), fooClass(), DefaultOptions())
	if err != nil {
		t.Fatalf("Class() error = %v", err)
	}
	var buf bytes.Buffer
	if err := Fprint(&buf, res); err != nil {
		t.Fatalf("Fprint() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"class com/acme/Foo\n",
		"  field A = Const(1)\n",
		"  field " + holder + " [synthetic]\n",
		"method bar()Ljava/lang/Class; [ok]\n  Return(Const(class com/acme/Bar))\n",
		"method broken()V [failed]\n",
		"method run()V [no-code]\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Fprint() output missing %q:\n%s", want, out)
		}
	}
}
