package classfile

import (
	"fmt"
	"math"
	"strconv"
)

// Tag identifies a constant pool entry kind.
type Tag uint8

const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

var tagNames = map[Tag]string{
	TagUtf8:               "Utf8",
	TagInteger:            "Integer",
	TagFloat:              "Float",
	TagLong:               "Long",
	TagDouble:             "Double",
	TagClass:              "Class",
	TagString:             "String",
	TagFieldref:           "Fieldref",
	TagMethodref:          "Methodref",
	TagInterfaceMethodref: "InterfaceMethodref",
	TagNameAndType:        "NameAndType",
	TagMethodHandle:       "MethodHandle",
	TagMethodType:         "MethodType",
	TagDynamic:            "Dynamic",
	TagInvokeDynamic:      "InvokeDynamic",
	TagModule:             "Module",
	TagPackage:            "Package",
}

func (t Tag) String() string {
	if n, ok := tagNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// Constant is one pool entry. Which fields are meaningful depends on Tag:
// Utf8 uses Text; numeric tags use Bits; reference tags use A and B as the
// two pool indices they carry (class/name-and-type, name/descriptor,
// kind/reference, bootstrap/name-and-type).
type Constant struct {
	Tag  Tag
	Text string
	Bits uint64
	A, B uint16
}

// MalformedConstantPoolError reports a pool index that is out of range or
// refers to an entry of the wrong kind.
type MalformedConstantPoolError struct {
	Index  uint16
	Want   []Tag
	Got    Tag
	Reason string
}

func (e *MalformedConstantPoolError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("classfile: constant pool #%d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("classfile: constant pool #%d: want %v, got %s", e.Index, e.Want, e.Got)
}

// ConstantPool holds entries at indices 1..Len()-1. Index 0 and the slot
// after each Long or Double are unusable.
type ConstantPool struct {
	entries []Constant
}

// NewConstantPool returns an empty pool ready for Add calls.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{entries: make([]Constant, 1)}
}

// Len returns the constant_pool_count value.
func (p *ConstantPool) Len() int {
	return len(p.entries)
}

// Entry returns the raw entry at i.
func (p *ConstantPool) Entry(i uint16) (Constant, error) {
	if i == 0 || int(i) >= len(p.entries) || p.entries[i].Tag == 0 {
		return Constant{}, &MalformedConstantPoolError{Index: i, Reason: "index out of range or unusable"}
	}
	return p.entries[i], nil
}

func (p *ConstantPool) expect(i uint16, tags ...Tag) (Constant, error) {
	c, err := p.Entry(i)
	if err != nil {
		return c, err
	}
	for _, t := range tags {
		if c.Tag == t {
			return c, nil
		}
	}
	return c, &MalformedConstantPoolError{Index: i, Want: tags, Got: c.Tag}
}

// UTF8 returns the string of a Utf8 entry.
func (p *ConstantPool) UTF8(i uint16) (string, error) {
	c, err := p.expect(i, TagUtf8)
	return c.Text, err
}

// ClassName returns the internal name of a Class entry.
func (p *ConstantPool) ClassName(i uint16) (string, error) {
	c, err := p.expect(i, TagClass)
	if err != nil {
		return "", err
	}
	return p.UTF8(c.A)
}

// StringValue returns the value of a String entry.
func (p *ConstantPool) StringValue(i uint16) (string, error) {
	c, err := p.expect(i, TagString)
	if err != nil {
		return "", err
	}
	return p.UTF8(c.A)
}

// NameAndType returns the name and descriptor of a NameAndType entry.
func (p *ConstantPool) NameAndType(i uint16) (name, descriptor string, err error) {
	c, err := p.expect(i, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.UTF8(c.A); err != nil {
		return "", "", err
	}
	descriptor, err = p.UTF8(c.B)
	return name, descriptor, err
}

// Ref is a resolved field or method reference.
type Ref struct {
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

func (r Ref) String() string {
	return r.Owner + "." + r.Name + ":" + r.Descriptor
}

// FieldRef resolves a Fieldref entry.
func (p *ConstantPool) FieldRef(i uint16) (Ref, error) {
	return p.ref(i, TagFieldref)
}

// MethodRef resolves a Methodref or InterfaceMethodref entry.
func (p *ConstantPool) MethodRef(i uint16) (Ref, error) {
	return p.ref(i, TagMethodref, TagInterfaceMethodref)
}

func (p *ConstantPool) ref(i uint16, tags ...Tag) (Ref, error) {
	c, err := p.expect(i, tags...)
	if err != nil {
		return Ref{}, err
	}
	owner, err := p.ClassName(c.A)
	if err != nil {
		return Ref{}, err
	}
	name, desc, err := p.NameAndType(c.B)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Owner: owner, Name: name, Descriptor: desc, Interface: c.Tag == TagInterfaceMethodref}, nil
}

// InvokeDynamic resolves an InvokeDynamic entry to its call-site name and
// descriptor and bootstrap method index.
func (p *ConstantPool) InvokeDynamic(i uint16) (name, descriptor string, bootstrap uint16, err error) {
	c, err := p.expect(i, TagInvokeDynamic, TagDynamic)
	if err != nil {
		return "", "", 0, err
	}
	name, descriptor, err = p.NameAndType(c.B)
	return name, descriptor, c.A, err
}

// Loadable is the value of an ldc operand.
type Loadable struct {
	Tag   Tag
	Value any // int32, float32, int64, float64 or string
}

// Loadable resolves the operand of ldc, ldc_w or ldc2_w. Class entries
// yield the internal class name, MethodType entries the descriptor.
func (p *ConstantPool) Loadable(i uint16) (Loadable, error) {
	c, err := p.expect(i, TagInteger, TagFloat, TagLong, TagDouble, TagString, TagClass, TagMethodType, TagMethodHandle, TagDynamic)
	if err != nil {
		return Loadable{}, err
	}
	switch c.Tag {
	case TagInteger:
		return Loadable{c.Tag, int32(uint32(c.Bits))}, nil
	case TagFloat:
		return Loadable{c.Tag, math.Float32frombits(uint32(c.Bits))}, nil
	case TagLong:
		return Loadable{c.Tag, int64(c.Bits)}, nil
	case TagDouble:
		return Loadable{c.Tag, math.Float64frombits(c.Bits)}, nil
	case TagString:
		s, err := p.UTF8(c.A)
		return Loadable{c.Tag, s}, err
	case TagClass:
		s, err := p.UTF8(c.A)
		return Loadable{c.Tag, s}, err
	case TagMethodType:
		s, err := p.UTF8(c.A)
		return Loadable{c.Tag, s}, err
	}
	return Loadable{c.Tag, p.Describe(i)}, nil
}

// Describe renders an entry for disassembly comments. It never fails;
// bad indices render as "?".
func (p *ConstantPool) Describe(i uint16) string {
	c, err := p.Entry(i)
	if err != nil {
		return "?"
	}
	switch c.Tag {
	case TagUtf8:
		return strconv.Quote(c.Text)
	case TagClass:
		if s, err := p.ClassName(i); err == nil {
			return "class " + s
		}
	case TagString:
		if s, err := p.StringValue(i); err == nil {
			return "String " + strconv.Quote(s)
		}
	case TagInteger, TagFloat, TagLong, TagDouble:
		if l, err := p.Loadable(i); err == nil {
			return fmt.Sprintf("%s %v", c.Tag, l.Value)
		}
	case TagFieldref:
		if r, err := p.FieldRef(i); err == nil {
			return "Field " + r.String()
		}
	case TagMethodref, TagInterfaceMethodref:
		if r, err := p.MethodRef(i); err == nil {
			return "Method " + r.String()
		}
	case TagInvokeDynamic, TagDynamic:
		if n, d, _, err := p.InvokeDynamic(i); err == nil {
			return "InvokeDynamic " + n + ":" + d
		}
	case TagMethodType:
		if s, err := p.UTF8(c.A); err == nil {
			return "MethodType " + s
		}
	}
	return c.Tag.String()
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func (p *ConstantPool) add(c Constant) uint16 {
	p.entries = append(p.entries, c)
	idx := uint16(len(p.entries) - 1)
	if c.Tag == TagLong || c.Tag == TagDouble {
		p.entries = append(p.entries, Constant{})
	}
	return idx
}

func (p *ConstantPool) find(c Constant) (uint16, bool) {
	for i := 1; i < len(p.entries); i++ {
		if p.entries[i] == c {
			return uint16(i), true
		}
	}
	return 0, false
}

func (p *ConstantPool) intern(c Constant) uint16 {
	if i, ok := p.find(c); ok {
		return i
	}
	return p.add(c)
}

// AddUTF8 interns a Utf8 entry.
func (p *ConstantPool) AddUTF8(s string) uint16 {
	return p.intern(Constant{Tag: TagUtf8, Text: s})
}

// AddClass interns a Class entry for an internal name.
func (p *ConstantPool) AddClass(name string) uint16 {
	return p.intern(Constant{Tag: TagClass, A: p.AddUTF8(name)})
}

// AddString interns a String entry.
func (p *ConstantPool) AddString(s string) uint16 {
	return p.intern(Constant{Tag: TagString, A: p.AddUTF8(s)})
}

// AddInteger interns an Integer entry.
func (p *ConstantPool) AddInteger(v int32) uint16 {
	return p.intern(Constant{Tag: TagInteger, Bits: uint64(uint32(v))})
}

// AddLong interns a Long entry (which occupies two indices).
func (p *ConstantPool) AddLong(v int64) uint16 {
	return p.intern(Constant{Tag: TagLong, Bits: uint64(v)})
}

// AddDouble interns a Double entry (which occupies two indices).
func (p *ConstantPool) AddDouble(v float64) uint16 {
	return p.intern(Constant{Tag: TagDouble, Bits: math.Float64bits(v)})
}

// AddNameAndType interns a NameAndType entry.
func (p *ConstantPool) AddNameAndType(name, descriptor string) uint16 {
	return p.intern(Constant{Tag: TagNameAndType, A: p.AddUTF8(name), B: p.AddUTF8(descriptor)})
}

// AddFieldRef interns a Fieldref entry.
func (p *ConstantPool) AddFieldRef(owner, name, descriptor string) uint16 {
	return p.intern(Constant{Tag: TagFieldref, A: p.AddClass(owner), B: p.AddNameAndType(name, descriptor)})
}

// AddMethodRef interns a Methodref entry.
func (p *ConstantPool) AddMethodRef(owner, name, descriptor string) uint16 {
	return p.intern(Constant{Tag: TagMethodref, A: p.AddClass(owner), B: p.AddNameAndType(name, descriptor)})
}

// AddInterfaceMethodRef interns an InterfaceMethodref entry.
func (p *ConstantPool) AddInterfaceMethodRef(owner, name, descriptor string) uint16 {
	return p.intern(Constant{Tag: TagInterfaceMethodref, A: p.AddClass(owner), B: p.AddNameAndType(name, descriptor)})
}
