package reconstruct

import (
	"github.com/chazu/decaf/ir"
)

// staticFieldInitializers hoists the leading run of static field stores in
// <clinit> into the fields' declared initializers. The run stops at the
// first statement that is not a store to a static field of this class,
// at a field stored out of declaration order, and at a value that reads a
// field declared at or after its target or depends on local state.
func staticFieldInitializers(r *run) int {
	if r.m.Name != "<clinit>" || r.m.Class == nil {
		return 0
	}
	cls := r.m.Class
	body := *r.root
	last, n := -1, 0
	for _, ins := range body {
		ps, ok := ins.(*ir.PutStatic)
		if !ok || ps.Field.Owner != cls.Name() {
			break
		}
		f, idx := cls.Field(ps.Field.Name)
		if f == nil || !f.IsStatic() || idx <= last || !hoistable(ps.Value, cls, idx) {
			break
		}
		cls.SetInitializer(ps.Field.Name, ps.Value)
		last = idx
		n++
	}
	if n > 0 {
		*r.root = append([]ir.Instruction(nil), body[n:]...)
	}
	return n
}

// hoistable reports whether v can stand as the initializer of the field
// declared at index idx.
func hoistable(v ir.Instruction, cls Class, idx int) bool {
	ok := true
	ir.WalkNode(v, func(n ir.Instruction) bool {
		switch x := n.(type) {
		case *ir.Load, *ir.DupLoad, *ir.TernaryOpLoad, *ir.ExceptionLoad:
			ok = false
		case *ir.GetStatic:
			if x.Field.Owner == cls.Name() {
				if _, i := cls.Field(x.Field.Name); i >= idx {
					ok = false
				}
			}
		}
		return ok
	})
	return ok
}

// implicitReturn drops the void return that ends a method body.
func implicitReturn(r *run) int {
	body := *r.root
	if len(body) == 0 {
		return 0
	}
	if ret, ok := body[len(body)-1].(*ir.Return); ok && ret.Value == nil {
		*r.root = body[:len(body)-1]
		return 1
	}
	return 0
}
