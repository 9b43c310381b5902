package reconstruct

import (
	"github.com/chazu/decaf/ir"
)

// storeReturn collapses
//
//	Store(x, v) Return(Load x)   =>   Return(v)
//
// When the table declares x starting at the store and ending by the
// return, the variable only existed for this pair and its entry is
// removed too.
func storeReturn(r *run) int {
	return scan(r.root, func(list *[]ir.Instruction, i int) (int, bool) {
		l := *list
		if i == 0 {
			return 0, false
		}
		ret, ok := l[i].(*ir.Return)
		if !ok || ret.Value == nil {
			return 0, false
		}
		ld, ok := ret.Value.(*ir.Load)
		if !ok {
			return 0, false
		}
		st, ok := l[i-1].(*ir.Store)
		if !ok || st.Slot != ld.Slot {
			return 0, false
		}
		merged := &ir.Return{Base: ret.Base, Value: st.Value}
		ir.Splice(list, i-1, i+1, merged)
		r.dropLocal(st, ret)
		return i - 1, true
	})
}

// dropLocal removes the table entry for the variable st introduced when
// its range ends within the return.
func (r *run) dropLocal(st *ir.Store, ret *ir.Return) {
	if r.m.Locals == nil {
		return
	}
	end := ret.Offset + 1
	vars := *r.m.Locals
	out := vars[:0:0]
	for _, lv := range vars {
		if lv.Slot == st.Slot && lv.Start == st.End && lv.Start+lv.Length <= end {
			log.Debugf("%s: dropping local %s after store-return", r.m.Name, lv.Name)
			continue
		}
		out = append(out, lv)
	}
	if len(out) != len(vars) {
		*r.m.Locals = out
	}
}
