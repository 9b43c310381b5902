package classfile

import (
	"errors"
	"testing"
)

func TestPoolAccessors(t *testing.T) {
	p := NewConstantPool()
	fld := p.AddFieldRef("com/acme/Foo", "count", "I")
	mth := p.AddInterfaceMethodRef("java/util/List", "size", "()I")
	str := p.AddString("hello")
	lng := p.AddLong(1 << 40)
	after := p.AddInteger(-7)

	if after != lng+2 {
		t.Errorf("entry after Long = #%d, want #%d", after, lng+2)
	}

	ref, err := p.FieldRef(fld)
	if err != nil {
		t.Fatalf("FieldRef() error = %v", err)
	}
	if got, want := ref.String(), "com/acme/Foo.count:I"; got != want {
		t.Errorf("FieldRef() = %q, want %q", got, want)
	}

	ref, err = p.MethodRef(mth)
	if err != nil {
		t.Fatalf("MethodRef() error = %v", err)
	}
	if !ref.Interface || ref.Name != "size" {
		t.Errorf("MethodRef() = %+v, want interface method size", ref)
	}

	if s, err := p.StringValue(str); err != nil || s != "hello" {
		t.Errorf("StringValue() = %q, %v, want \"hello\"", s, err)
	}

	l, err := p.Loadable(lng)
	if err != nil || l.Value != int64(1<<40) {
		t.Errorf("Loadable(long) = %v, %v", l.Value, err)
	}
	l, err = p.Loadable(after)
	if err != nil || l.Value != int32(-7) {
		t.Errorf("Loadable(int) = %v, %v", l.Value, err)
	}
}

func TestPoolInterning(t *testing.T) {
	p := NewConstantPool()
	a := p.AddClass("java/lang/String")
	b := p.AddClass("java/lang/String")
	if a != b {
		t.Errorf("AddClass twice = #%d and #%d, want same index", a, b)
	}
}

func TestPoolMalformed(t *testing.T) {
	p := NewConstantPool()
	utf := p.AddUTF8("x")
	lng := p.AddLong(1)

	tests := []struct {
		name string
		call func() error
	}{
		{"zero index", func() error { _, err := p.UTF8(0); return err }},
		{"out of range", func() error { _, err := p.UTF8(99); return err }},
		{"wrong tag", func() error { _, err := p.ClassName(utf); return err }},
		{"long upper half", func() error { _, err := p.Entry(lng + 1); return err }},
		{"field ref on utf8", func() error { _, err := p.FieldRef(utf); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mcp *MalformedConstantPoolError
			if err := tt.call(); !errors.As(err, &mcp) {
				t.Errorf("error = %v, want *MalformedConstantPoolError", err)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	p := NewConstantPool()
	m := p.AddMethodRef("java/lang/Class", "forName", "(Ljava/lang/String;)Ljava/lang/Class;")
	if got, want := p.Describe(m), "Method java/lang/Class.forName:(Ljava/lang/String;)Ljava/lang/Class;"; got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
	if got := p.Describe(500); got != "?" {
		t.Errorf("Describe(bad) = %q, want \"?\"", got)
	}
}
