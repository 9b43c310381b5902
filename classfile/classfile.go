// Package classfile models the parts of a JVM class file the decompiler
// consumes: the constant pool, fields, methods and their Code attributes.
package classfile

// Access flags shared by classes, fields and methods.
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSynchronized = 0x0020
	AccSuper        = 0x0020
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccTransient    = 0x0080
	AccVarargs      = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
)

// ClassFile is a parsed class.
type ClassFile struct {
	Minor, Major uint16
	Pool         *ConstantPool
	Access       uint16
	Name         string // internal form, e.g. java/lang/String
	Super        string
	Interfaces   []string
	Fields       []*Field
	Methods      []*Method
}

// Field is a declared field.
type Field struct {
	Access     uint16
	Name       string
	Descriptor string
	// ConstantValue is the pool index of the ConstantValue attribute, or 0.
	ConstantValue uint16
}

// IsStatic reports whether the field is static.
func (f *Field) IsStatic() bool { return f.Access&AccStatic != 0 }

// Method is a declared method.
type Method struct {
	Access     uint16
	Name       string
	Descriptor string
	Code       *Code // nil for abstract and native methods
}

// IsStatic reports whether the method is static.
func (m *Method) IsStatic() bool { return m.Access&AccStatic != 0 }

// Key returns name+descriptor, unique within a class.
func (m *Method) Key() string { return m.Name + m.Descriptor }

// Code is a method's Code attribute.
type Code struct {
	MaxStack   uint16
	MaxLocals  uint16
	Bytes      []byte
	Exceptions []ExceptionEntry
	LocalVars  []LocalVariable
	Lines      []LineNumber
}

// ExceptionEntry is one row of the exception table. Offsets are
// half-open: the handler covers [Start, End).
type ExceptionEntry struct {
	Start     int
	End       int
	Handler   int
	CatchType string // internal class name; "" catches everything
}

// LocalVariable is a LocalVariableTable row, merged with the generic
// signature from LocalVariableTypeTable when one is present.
type LocalVariable struct {
	Start      int
	Length     int
	Name       string
	Descriptor string
	Signature  string
	Slot       int
}

// Covers reports whether offset falls inside the entry's live range.
func (lv LocalVariable) Covers(offset int) bool {
	return offset >= lv.Start && offset < lv.Start+lv.Length
}

// LineNumber maps a code offset to a source line.
type LineNumber struct {
	Start int
	Line  int
}

// LineAt returns the source line for offset, or 0 when unknown.
func (c *Code) LineAt(offset int) int {
	line := 0
	best := -1
	for _, ln := range c.Lines {
		if ln.Start <= offset && ln.Start > best {
			best = ln.Start
			line = ln.Line
		}
	}
	return line
}

// Field returns the declared field with the given name and its index in
// declaration order.
func (cf *ClassFile) Field(name string) (*Field, int) {
	for i, f := range cf.Fields {
		if f.Name == name {
			return f, i
		}
	}
	return nil, -1
}

// Method returns the method with the given name and descriptor.
func (cf *ClassFile) Method(name, descriptor string) *Method {
	for _, m := range cf.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}
