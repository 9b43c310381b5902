package locals

import (
	"github.com/chazu/decaf/ir"
)

// Declare inserts one Declaration per non-parameter variable of set into
// body and returns how many it placed. A variable is declared in the
// innermost statement list enclosing all of its accesses; when the first
// of those is a plain store, the store itself becomes the declaration.
// Catch and for-each variables are declared by their statements.
func Declare(body *[]ir.Instruction, set *Set) int {
	self := map[*Variable]bool{}
	ir.Walk(*body, func(ins ir.Instruction) bool {
		switch n := ins.(type) {
		case *ir.Try:
			for _, c := range n.Catches {
				if c.Var != nil {
					self[set.Of(c.Var)] = true
				}
			}
		case *ir.ForEach:
			if n.Var != nil {
				self[set.Of(n.Var)] = true
			}
		}
		return true
	})

	placed := 0
	for _, v := range set.Vars {
		if v.Param || self[v] {
			continue
		}
		d := &declarer{set: set, v: v}
		if d.place(body, false) {
			placed++
		}
	}
	return placed
}

type declarer struct {
	set *Set
	v   *Variable
}

func (d *declarer) touches(ins ir.Instruction) bool {
	found := false
	ir.WalkNode(ins, func(n ir.Instruction) bool {
		if found {
			return false
		}
		switch n.(type) {
		case *ir.Load, *ir.Store, *ir.IInc:
			if d.set.Of(n) == d.v {
				found = true
			}
		}
		return !found
	})
	return found
}

// initializer reports whether ins is a store to the variable at statement
// level.
func (d *declarer) initializer(ins ir.Instruction) (*ir.Store, bool) {
	st, ok := ins.(*ir.Store)
	return st, ok && d.set.Of(st) == d.v
}

func (d *declarer) declaration(at ir.Instruction, init ir.Instruction) *ir.Declaration {
	b := at.At()
	typ := d.v.Desc
	if typ == "A" || typ == "" {
		typ = "Ljava/lang/Object;"
	}
	return &ir.Declaration{
		Base: ir.Synth(ir.OpDeclaration, b.Offset, b.Line),
		Slot: d.v.Slot,
		Name: d.v.Name,
		Type: typ,
		Init: init,
	}
}

// place declares the variable in list or a list nested in it. loop is
// true when list is a loop body, where the value may be carried from one
// iteration to the next.
func (d *declarer) place(list *[]ir.Instruction, loop bool) bool {
	var idxs []int
	for i, ins := range *list {
		if d.touches(ins) {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 {
		return false
	}
	first := (*list)[idxs[0]]
	if loop {
		if _, ok := d.initializer(first); !ok {
			return false
		}
	}
	if st, ok := d.initializer(first); ok {
		(*list)[idxs[0]] = d.declaration(st, st.Value)
		return true
	}
	if len(idxs) == 1 && d.nested(first) {
		return true
	}
	ir.Splice(list, idxs[0], idxs[0], d.declaration(first, nil))
	return true
}

// nested tries to declare the variable inside the single statement ins
// that holds all of its accesses.
func (d *declarer) nested(ins ir.Instruction) bool {
	if f, ok := ins.(*ir.For); ok {
		return d.forInit(f)
	}
	for _, p := range ir.Operands(ins) {
		if d.touches(*p) {
			return false
		}
	}
	var inner *[]ir.Instruction
	for _, body := range ir.Bodies(ins) {
		for _, s := range *body {
			if d.touches(s) {
				if inner != nil && inner != body {
					return false
				}
				inner = body
			}
		}
	}
	if inner == nil {
		return false
	}
	switch ins.(type) {
	case *ir.While, *ir.DoWhile, *ir.ForEach:
		return d.place(inner, true)
	}
	return d.place(inner, false)
}

// forInit turns the initializing store of a for loop into its declaration
// when the loop holds every access.
func (d *declarer) forInit(f *ir.For) bool {
	for i, s := range f.Init {
		if !d.touches(s) {
			continue
		}
		st, ok := d.initializer(s)
		if !ok {
			return false
		}
		f.Init[i] = d.declaration(st, st.Value)
		return true
	}
	if f.Cond == nil || !d.touches(f.Cond) {
		// Only the body and update use it.
		touchUpdate := false
		for _, s := range f.Update {
			touchUpdate = touchUpdate || d.touches(s)
		}
		if !touchUpdate {
			return d.place(&f.Body, true)
		}
	}
	return false
}
