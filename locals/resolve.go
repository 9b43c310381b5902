// Package locals names local variables and places their declarations.
//
// Resolve maps every slot access in a method tree to a Variable, taking
// names from the LocalVariableTable where one covers the access and
// synthesizing them from the variable's type otherwise. Declare then
// inserts a Declaration for each variable in the innermost statement list
// that encloses all of its accesses.
package locals

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/ir"
)

var log = commonlog.GetLogger("decaf.locals")

// Variable is one resolved local variable.
type Variable struct {
	Slot   int
	Start  int
	Length int
	Name   string
	Desc   string
	// Signature is the generic signature from LocalVariableTypeTable, if
	// any.
	Signature string
	// Declared is true when the variable was synthesized rather than taken
	// from the table.
	Declared bool
	Param    bool
}

// Live reports whether offset lies in the variable's range.
func (v *Variable) Live(offset int) bool {
	return offset >= v.Start && offset < v.Start+v.Length
}

// Method describes the method whose locals are resolved.
type Method struct {
	Desc    string
	Static  bool
	CodeLen int
	Table   []classfile.LocalVariable
}

// Options tune resolution.
type Options struct {
	// IgnoreTable synthesizes every name even when a table is present.
	IgnoreTable bool
}

// Set is the outcome of Resolve.
type Set struct {
	Vars   []*Variable
	byNode map[ir.Instruction]*Variable
}

// Of returns the variable an access node was resolved to.
func (s *Set) Of(ins ir.Instruction) *Variable { return s.byNode[ins] }

type resolver struct {
	m      Method
	opts   Options
	names  *namer
	set    *Set
	byRow  map[int]*Variable    // table row index -> variable
	bySlot map[string]*Variable // synthesized, by slot and type
	// current is the object variable last bound to each slot, which
	// untyped reference loads resolve to.
	current map[int]*Variable
	defs    map[ir.Instruction]bool
}

// Resolve names every local access under body in place and returns the
// variables found. fields are the class's field names, which synthesized
// names avoid.
func Resolve(m Method, body []ir.Instruction, fields []string, opts Options) *Set {
	r := &resolver{
		m:      m,
		opts:   opts,
		names:  newNamer(fields),
		set:    &Set{byNode: map[ir.Instruction]*Variable{}},
		byRow:  map[int]*Variable{},
		bySlot:  map[string]*Variable{},
		current: map[int]*Variable{},
		defs:    map[ir.Instruction]bool{},
	}
	if !opts.IgnoreTable {
		// Table names are what the source used; reserve them so that
		// synthesized names never shadow one.
		for _, lv := range m.Table {
			r.names.reserve(lv.Name)
		}
	}
	r.params()

	ir.Walk(body, func(ins ir.Instruction) bool {
		switch n := ins.(type) {
		case *ir.Try:
			for _, c := range n.Catches {
				if c.Var != nil {
					r.defs[c.Var] = true
				}
			}
		case *ir.ForEach:
			if n.Var != nil {
				r.defs[n.Var] = true
			}
		}
		return true
	})
	ir.Walk(body, func(ins ir.Instruction) bool {
		r.access(ins)
		return true
	})

	sort.SliceStable(r.set.Vars, func(i, j int) bool {
		a, b := r.set.Vars[i], r.set.Vars[j]
		if a.Param != b.Param {
			return a.Param
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.Start < b.Start
	})
	return r.set
}

// params creates the receiver and parameter variables, live from offset 0.
func (r *resolver) params() {
	slot := 0
	add := func(desc, fixed string) {
		v := &Variable{Slot: slot, Start: 0, Length: r.m.CodeLen, Desc: desc, Param: true}
		if fixed != "" {
			v.Name = fixed
		} else if row, lv, ok := r.lookup(slot, 0); ok {
			v.Name, v.Signature = lv.Name, lv.Signature
			r.byRow[row] = v
		} else {
			v.Name, v.Declared = r.names.next(desc), true
		}
		r.names.reserve(v.Name)
		r.set.Vars = append(r.set.Vars, v)
		r.bySlot[synthKey(slot, desc)] = v
		if isObject(desc) {
			r.current[slot] = v
		}
		slot += classfile.SlotSize(desc)
	}
	if !r.m.Static {
		add("A", "this")
	}
	params, _, err := classfile.ParseMethodDescriptor(r.m.Desc)
	if err != nil {
		log.Warningf("parameters of %s: %v", r.m.Desc, err)
		return
	}
	for _, p := range params {
		add(p, "")
	}
}

// lookup finds the table row for slot live at offset.
func (r *resolver) lookup(slot, offset int) (int, classfile.LocalVariable, bool) {
	if r.opts.IgnoreTable {
		return -1, classfile.LocalVariable{}, false
	}
	for i, lv := range r.m.Table {
		if lv.Slot == slot && lv.Covers(offset) {
			return i, lv, true
		}
	}
	return -1, classfile.LocalVariable{}, false
}

// lookupDef finds the row for a variable defined by the store at offset,
// whose range starts just after the store instruction.
func (r *resolver) lookupDef(slot, offset int) (int, classfile.LocalVariable, bool) {
	for size := 1; size <= 4; size++ {
		if row, lv, ok := r.lookup(slot, offset+size); ok && lv.Start <= offset+size {
			return row, lv, true
		}
	}
	return r.lookup(slot, offset)
}

func isObject(desc string) bool {
	return desc == "A" || strings.HasPrefix(desc, "L") || strings.HasPrefix(desc, "[")
}

// synthKey groups accesses without a table entry: one variable per slot
// and type, with the small int types sharing one.
func synthKey(slot int, desc string) string {
	kind := desc
	if desc == "Z" || desc == "B" || desc == "C" || desc == "S" {
		kind = "I"
	}
	return kind + ":" + strconv.Itoa(slot)
}

func (r *resolver) access(ins ir.Instruction) {
	var slot, offset int
	var desc string
	def := false
	switch n := ins.(type) {
	case *ir.Load:
		slot, offset, desc, def = n.Slot, n.Offset, n.Type, r.defs[n]
	case *ir.Store:
		slot, offset, desc = n.Slot, n.End, n.Type
	case *ir.IInc:
		slot, offset, desc = n.Slot, n.Offset, "I"
	default:
		return
	}

	v := r.variable(slot, offset, desc, def)
	r.set.byNode[ins] = v
	switch n := ins.(type) {
	case *ir.Load:
		n.Name = v.Name
	case *ir.Store:
		n.Name = v.Name
	case *ir.IInc:
		n.Name = v.Name
	}
}

func (r *resolver) variable(slot, offset int, desc string, def bool) *Variable {
	var row int
	var lv classfile.LocalVariable
	var ok bool
	if def {
		row, lv, ok = r.lookupDef(slot, offset)
	} else {
		row, lv, ok = r.lookup(slot, offset)
	}
	if ok {
		if v := r.byRow[row]; v != nil {
			return v
		}
		v := &Variable{Slot: slot, Start: lv.Start, Length: lv.Length, Name: lv.Name, Desc: lv.Descriptor, Signature: lv.Signature}
		r.byRow[row] = v
		r.set.Vars = append(r.set.Vars, v)
		return v
	}
	return r.synthesized(slot, offset, desc)
}

// synthesized returns the variable for an access no table entry covers.
// A slot reused for a reference of another type gets a new variable; an
// untyped reference load belongs to whichever was bound last.
func (r *resolver) synthesized(slot, offset int, desc string) *Variable {
	object := isObject(desc)
	if desc == "A" {
		if v := r.current[slot]; v != nil {
			v.widen(offset)
			return v
		}
	}
	key := synthKey(slot, desc)
	v := r.bySlot[key]
	if v == nil && object && desc != "A" {
		// first typed access to a variable seen only through untyped loads
		untyped := synthKey(slot, "A")
		if u := r.bySlot[untyped]; u != nil && !u.Param {
			delete(r.bySlot, untyped)
			u.Desc = desc
			r.bySlot[key] = u
			v = u
		}
	}
	if v != nil {
		v.widen(offset)
		if object {
			r.current[slot] = v
		}
		return v
	}
	v = &Variable{Slot: slot, Start: offset, Length: 1, Desc: desc, Declared: true}
	name := desc
	if name == "A" {
		name = "Ljava/lang/Object;"
	}
	v.Name = r.names.next(name)
	r.bySlot[key] = v
	if object {
		r.current[slot] = v
	}
	r.set.Vars = append(r.set.Vars, v)
	log.Debugf("synthesized %s for slot %d", v.Name, slot)
	return v
}

// widen extends the range of a synthesized variable to cover offset.
func (v *Variable) widen(offset int) {
	if v.Param {
		return
	}
	end := v.Start + v.Length
	if offset < v.Start {
		v.Start = offset
	}
	if offset+1 > end {
		end = offset + 1
	}
	v.Length = end - v.Start
}
