package bytecode

import (
	"strings"
	"testing"
)

type fakePool map[uint16]string

func (p fakePool) Describe(index uint16) string { return p[index] }

func TestDisassembleSimple(t *testing.T) {
	b := NewBuilder()
	b.Emit(OpIload0).Emit(OpIconst1).Emit(OpIadd).Emit(OpIstore0).Emit(OpReturn)

	insns, err := Decode(b.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	want := []string{
		"0000  iload_0",
		"0001  iconst_1",
		"0002  iadd",
		"0003  istore_0",
		"0004  return",
	}
	got := DisassembleToLines(insns, nil)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("DisassembleToLines() =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestDisassembleOperands(t *testing.T) {
	b := NewBuilder()
	end := b.NewLabel()
	b.EmitU2(OpGetstatic, 7)
	b.EmitJump(OpIfnonnull, end)
	b.EmitU1(OpBipush, 0xF6)
	b.EmitIinc(2, -1)
	b.EmitU1(OpNewarray, TInt)
	b.Mark(end)
	b.Emit(OpReturn)

	insns, err := Decode(b.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	out := Disassemble(insns, fakePool{7: "Field Foo.bar:I"})

	for _, want := range []string{
		"0000  getstatic #7 ; Field Foo.bar:I",
		"0003  ifnonnull 000D",
		"0006  bipush -10",
		"0008  iinc 2 -1",
		"000B  newarray int",
		"000D  return",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Disassemble() missing %q in\n%s", want, out)
		}
	}
}

func TestDisassembleSwitch(t *testing.T) {
	b := NewBuilder()
	c0, c1, dflt := b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Emit(OpIload1)
	b.EmitTableswitch(0, dflt, c0, c1)
	b.Mark(c0).Emit(OpReturn)
	b.Mark(c1).Emit(OpReturn)
	b.Mark(dflt).Emit(OpReturn)

	insns, err := Decode(b.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	line := DisassembleInsn(insns[1], nil)
	if !strings.HasPrefix(line, "tableswitch { 0: ") || !strings.Contains(line, "default: ") {
		t.Errorf("DisassembleInsn(tableswitch) = %q", line)
	}
}

func TestDisassembleClassLiteral(t *testing.T) {
	in := Insn{Offset: 4, Op: OpLdc, Len: 18, Class: "java/lang/String"}
	if got, want := DisassembleInsn(in, nil), "ldc ; class java/lang/String"; got != want {
		t.Errorf("DisassembleInsn() = %q, want %q", got, want)
	}
}
