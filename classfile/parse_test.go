package classfile

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/chazu/decaf/pkg/bytecode"
)

// classWriter assembles class file bytes for parser tests.
type classWriter struct {
	buf []byte
}

func (w *classWriter) u1(v uint8)  { w.buf = append(w.buf, v) }
func (w *classWriter) u2(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }
func (w *classWriter) u4(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }

func (w *classWriter) pool(p *ConstantPool) {
	w.u2(uint16(p.Len()))
	for i := 1; i < p.Len(); i++ {
		c := p.entries[i]
		if c.Tag == 0 {
			continue
		}
		w.u1(uint8(c.Tag))
		switch c.Tag {
		case TagUtf8:
			w.u2(uint16(len(c.Text)))
			w.buf = append(w.buf, c.Text...)
		case TagInteger, TagFloat:
			w.u4(uint32(c.Bits))
		case TagLong, TagDouble:
			w.u4(uint32(c.Bits >> 32))
			w.u4(uint32(c.Bits))
		case TagClass, TagString, TagMethodType:
			w.u2(c.A)
		default:
			w.u2(c.A)
			w.u2(c.B)
		}
	}
}

func (w *classWriter) attr(p *ConstantPool, name string, body []byte) {
	w.u2(p.AddUTF8(name))
	w.u4(uint32(len(body)))
	w.buf = append(w.buf, body...)
}

func buildClass(t *testing.T) []byte {
	t.Helper()
	p := NewConstantPool()
	this := p.AddClass("com/acme/Counter")
	super := p.AddClass("java/lang/Object")
	fieldName := p.AddUTF8("count")
	fieldDesc := p.AddUTF8("I")
	methName := p.AddUTF8("bump")
	methDesc := p.AddUTF8("(I)I")
	catchType := p.AddClass("java/lang/RuntimeException")
	lvName := p.AddUTF8("delta")
	cv := p.AddInteger(3)
	for _, n := range []string{"Code", "ConstantValue", "LineNumberTable", "LocalVariableTable", "SourceFile"} {
		p.AddUTF8(n)
	}

	code := bytecode.NewBuilder().
		Emit(bytecode.OpIload1).
		Emit(bytecode.OpIconst1).
		Emit(bytecode.OpIadd).
		Emit(bytecode.OpIreturn).
		Bytes()

	var cw classWriter
	cw.u2(2)
	cw.u2(1)
	cw.u4(uint32(len(code)))
	cw.buf = append(cw.buf, code...)
	cw.u2(1) // exception table
	cw.u2(0)
	cw.u2(3)
	cw.u2(3)
	cw.u2(catchType)
	cw.u2(2) // attributes
	var lnt classWriter
	lnt.u2(1)
	lnt.u2(0)
	lnt.u2(42)
	cw.attr(p, "LineNumberTable", lnt.buf)
	var lvt classWriter
	lvt.u2(1)
	lvt.u2(0)
	lvt.u2(4)
	lvt.u2(lvName)
	lvt.u2(fieldDesc)
	lvt.u2(1)
	cw.attr(p, "LocalVariableTable", lvt.buf)

	var w classWriter
	w.u4(Magic)
	w.u2(0)
	w.u2(52)
	w.pool(p)
	w.u2(AccPublic | AccSuper)
	w.u2(this)
	w.u2(super)
	w.u2(0) // interfaces

	w.u2(1) // fields
	w.u2(AccPrivate | AccStatic)
	w.u2(fieldName)
	w.u2(fieldDesc)
	w.u2(1)
	var cvBody classWriter
	cvBody.u2(cv)
	w.attr(p, "ConstantValue", cvBody.buf)

	w.u2(1) // methods
	w.u2(AccPublic)
	w.u2(methName)
	w.u2(methDesc)
	w.u2(1)
	w.attr(p, "Code", cw.buf)

	w.u2(1) // class attributes
	w.attr(p, "SourceFile", []byte{0, 1})
	return w.buf
}

func TestParse(t *testing.T) {
	cf, err := Parse(buildClass(t))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cf.Name != "com/acme/Counter" || cf.Super != "java/lang/Object" {
		t.Errorf("Name/Super = %q/%q", cf.Name, cf.Super)
	}
	if len(cf.Fields) != 1 || !cf.Fields[0].IsStatic() || cf.Fields[0].ConstantValue == 0 {
		t.Fatalf("Fields = %+v", cf.Fields)
	}

	m := cf.Method("bump", "(I)I")
	if m == nil || m.Code == nil {
		t.Fatal("Method(bump) missing or without code")
	}
	if len(m.Code.Bytes) != 4 {
		t.Errorf("len(Code.Bytes) = %d, want 4", len(m.Code.Bytes))
	}
	if got := m.Code.Exceptions; len(got) != 1 || got[0].CatchType != "java/lang/RuntimeException" || got[0].End != 3 {
		t.Errorf("Exceptions = %+v", got)
	}
	if got := m.Code.LineAt(2); got != 42 {
		t.Errorf("LineAt(2) = %d, want 42", got)
	}
	if got := m.Code.LocalVars; len(got) != 1 || got[0].Name != "delta" || !got[0].Covers(3) || got[0].Covers(4) {
		t.Errorf("LocalVars = %+v", got)
	}
}

func TestParseErrors(t *testing.T) {
	good := buildClass(t)

	if _, err := Parse([]byte{0xCA, 0xFE, 0xBA, 0xBF}); !errors.Is(err, ErrNotClassFile) {
		t.Errorf("Parse(bad magic) error = %v, want ErrNotClassFile", err)
	}
	if _, err := Parse(good[:len(good)-5]); err == nil {
		t.Error("Parse(truncated) error = nil")
	}

	bad := append([]byte(nil), good...)
	bad[10] = 2 // first pool entry tag: Utf8 -> unknown
	var mcp *MalformedConstantPoolError
	if _, err := Parse(bad); !errors.As(err, &mcp) {
		t.Errorf("Parse(bad tag) error = %v, want *MalformedConstantPoolError", err)
	}
}

func TestDecodeModifiedUTF8(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte("plain"), "plain"},
		{[]byte{0xC0, 0x80}, "\x00"},
		{[]byte{0xC3, 0xA9}, "é"},
		// U+1F600 as a surrogate pair, each half three bytes.
		{[]byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}, "😀"},
	}
	for _, tt := range tests {
		if got := decodeModifiedUTF8(tt.in); got != tt.want {
			t.Errorf("decodeModifiedUTF8(%x) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
