package classfile

import (
	"errors"
	"fmt"

	"github.com/chazu/decaf/pkg/bytecode"
)

// Magic is the class file signature.
const Magic = 0xCAFEBABE

// ErrNotClassFile is returned when the input does not start with Magic.
var ErrNotClassFile = errors.New("classfile: bad magic")

type parser struct {
	r    *bytecode.Reader
	pool *ConstantPool
}

// Parse decodes a class file. Attributes the decompiler does not use are
// skipped.
func Parse(data []byte) (*ClassFile, error) {
	p := &parser{r: bytecode.NewReader(data)}
	cf, err := p.classFile()
	if err != nil {
		return nil, err
	}
	if err := p.r.Err(); err != nil {
		return nil, fmt.Errorf("classfile: %w", err)
	}
	return cf, nil
}

func (p *parser) classFile() (*ClassFile, error) {
	r := p.r
	if r.ReadU4() != Magic {
		return nil, ErrNotClassFile
	}
	cf := &ClassFile{}
	cf.Minor = r.ReadU2()
	cf.Major = r.ReadU2()

	if err := p.constantPool(); err != nil {
		return nil, err
	}
	cf.Pool = p.pool

	var err error
	cf.Access = r.ReadU2()
	if cf.Name, err = p.pool.ClassName(r.ReadU2()); err != nil {
		return nil, fmt.Errorf("classfile: this_class: %w", err)
	}
	if idx := r.ReadU2(); idx != 0 {
		if cf.Super, err = p.pool.ClassName(idx); err != nil {
			return nil, fmt.Errorf("classfile: super_class: %w", err)
		}
	}
	n := int(r.ReadU2())
	for i := 0; i < n && r.Err() == nil; i++ {
		name, err := p.pool.ClassName(r.ReadU2())
		if err != nil {
			return nil, fmt.Errorf("classfile: interface %d: %w", i, err)
		}
		cf.Interfaces = append(cf.Interfaces, name)
	}

	n = int(r.ReadU2())
	for i := 0; i < n && r.Err() == nil; i++ {
		f, err := p.field()
		if err != nil {
			return nil, fmt.Errorf("classfile: field %d: %w", i, err)
		}
		cf.Fields = append(cf.Fields, f)
	}

	n = int(r.ReadU2())
	for i := 0; i < n && r.Err() == nil; i++ {
		m, err := p.method()
		if err != nil {
			return nil, fmt.Errorf("classfile: method %d: %w", i, err)
		}
		cf.Methods = append(cf.Methods, m)
	}

	p.skipAttributes()
	return cf, nil
}

func (p *parser) constantPool() error {
	r := p.r
	count := int(r.ReadU2())
	p.pool = &ConstantPool{entries: make([]Constant, 1, count)}
	for i := 1; i < count && r.Err() == nil; i++ {
		c := Constant{Tag: Tag(r.ReadU1())}
		switch c.Tag {
		case TagUtf8:
			c.Text = decodeModifiedUTF8(r.ReadBytes(int(r.ReadU2())))
		case TagInteger, TagFloat:
			c.Bits = uint64(r.ReadU4())
		case TagLong, TagDouble:
			c.Bits = r.ReadU8()
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			c.A = r.ReadU2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			c.A = r.ReadU2()
			c.B = r.ReadU2()
		case TagMethodHandle:
			c.A = uint16(r.ReadU1())
			c.B = r.ReadU2()
		default:
			return &MalformedConstantPoolError{Index: uint16(i), Got: c.Tag, Reason: fmt.Sprintf("unknown tag %d", c.Tag)}
		}
		p.pool.entries = append(p.pool.entries, c)
		if c.Tag == TagLong || c.Tag == TagDouble {
			p.pool.entries = append(p.pool.entries, Constant{})
			i++
		}
	}
	return nil
}

func (p *parser) member() (access uint16, name, desc string, err error) {
	access = p.r.ReadU2()
	if name, err = p.pool.UTF8(p.r.ReadU2()); err != nil {
		return
	}
	desc, err = p.pool.UTF8(p.r.ReadU2())
	return
}

func (p *parser) field() (*Field, error) {
	access, name, desc, err := p.member()
	if err != nil {
		return nil, err
	}
	f := &Field{Access: access, Name: name, Descriptor: desc}
	err = p.attributes(func(attr string, r *bytecode.Reader) error {
		if attr == "ConstantValue" {
			f.ConstantValue = r.ReadU2()
		}
		return nil
	})
	return f, err
}

func (p *parser) method() (*Method, error) {
	access, name, desc, err := p.member()
	if err != nil {
		return nil, err
	}
	m := &Method{Access: access, Name: name, Descriptor: desc}
	err = p.attributes(func(attr string, r *bytecode.Reader) error {
		if attr != "Code" {
			return nil
		}
		code, err := p.code(r)
		if err != nil {
			return fmt.Errorf("%s%s: %w", name, desc, err)
		}
		m.Code = code
		return nil
	})
	return m, err
}

// attributes walks an attribute table, handing each body to fn through
// a reader limited to that attribute.
func (p *parser) attributes(fn func(name string, r *bytecode.Reader) error) error {
	n := int(p.r.ReadU2())
	for i := 0; i < n && p.r.Err() == nil; i++ {
		name, err := p.pool.UTF8(p.r.ReadU2())
		if err != nil {
			return err
		}
		body := p.r.ReadBytes(int(p.r.ReadU4()))
		if p.r.Err() != nil {
			return p.r.Err()
		}
		sub := bytecode.NewReader(body)
		if err := fn(name, sub); err != nil {
			return err
		}
		if sub.Err() != nil {
			return fmt.Errorf("attribute %s: %w", name, sub.Err())
		}
	}
	return nil
}

func (p *parser) skipAttributes() {
	_ = p.attributes(func(string, *bytecode.Reader) error { return nil })
}

func (p *parser) code(r *bytecode.Reader) (*Code, error) {
	c := &Code{MaxStack: r.ReadU2(), MaxLocals: r.ReadU2()}
	c.Bytes = r.ReadBytes(int(r.ReadU4()))

	n := int(r.ReadU2())
	for i := 0; i < n && r.Err() == nil; i++ {
		e := ExceptionEntry{Start: int(r.ReadU2()), End: int(r.ReadU2()), Handler: int(r.ReadU2())}
		if idx := r.ReadU2(); idx != 0 {
			name, err := p.pool.ClassName(idx)
			if err != nil {
				return nil, fmt.Errorf("exception table entry %d: %w", i, err)
			}
			e.CatchType = name
		}
		c.Exceptions = append(c.Exceptions, e)
	}

	signatures := map[[2]int]string{}
	saved := p.r
	p.r = r
	err := p.attributes(func(attr string, ar *bytecode.Reader) error {
		switch attr {
		case "LineNumberTable":
			k := int(ar.ReadU2())
			for j := 0; j < k && ar.Err() == nil; j++ {
				c.Lines = append(c.Lines, LineNumber{Start: int(ar.ReadU2()), Line: int(ar.ReadU2())})
			}
		case "LocalVariableTable", "LocalVariableTypeTable":
			k := int(ar.ReadU2())
			for j := 0; j < k && ar.Err() == nil; j++ {
				start, length := int(ar.ReadU2()), int(ar.ReadU2())
				name, err := p.pool.UTF8(ar.ReadU2())
				if err != nil {
					return err
				}
				desc, err := p.pool.UTF8(ar.ReadU2())
				if err != nil {
					return err
				}
				slot := int(ar.ReadU2())
				if attr == "LocalVariableTypeTable" {
					signatures[[2]int{slot, start}] = desc
					continue
				}
				c.LocalVars = append(c.LocalVars, LocalVariable{Start: start, Length: length, Name: name, Descriptor: desc, Slot: slot})
			}
		}
		return nil
	})
	p.r = saved
	if err != nil {
		return nil, err
	}

	for i := range c.LocalVars {
		lv := &c.LocalVars[i]
		lv.Signature = signatures[[2]int{lv.Slot, lv.Start}]
	}
	return c, nil
}

// decodeModifiedUTF8 converts the JVM's modified UTF-8 (null as two
// bytes, supplementary characters as surrogate pairs) to a Go string.
func decodeModifiedUTF8(b []byte) string {
	runes := make([]rune, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			runes = append(runes, rune(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			runes = append(runes, rune(c&0x1F)<<6|rune(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			runes = append(runes, rune(c&0x0F)<<12|rune(b[i+1]&0x3F)<<6|rune(b[i+2]&0x3F))
			i += 3
		default:
			runes = append(runes, 0xFFFD)
			i++
		}
	}
	// Join surrogate pairs.
	out := make([]rune, 0, len(runes))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r >= 0xD800 && r < 0xDC00 && i+1 < len(runes) && runes[i+1] >= 0xDC00 && runes[i+1] < 0xE000 {
			out = append(out, (r-0xD800)<<10+(runes[i+1]-0xDC00)+0x10000)
			i++
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
