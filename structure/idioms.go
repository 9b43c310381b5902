package structure

import (
	"github.com/chazu/decaf/ir"
)

// foldIdioms rewrites compiler shapes in every statement list: monitor
// pairs around a finally region become synchronized blocks, iterator and
// array walks become for-each loops, and counted while loops become for
// loops.
func foldIdioms(body *[]ir.Instruction) {
	ir.WalkLists(body, func(list *[]ir.Instruction) {
		for i := 0; i < len(*list); i++ {
			if foldSynchronized(list, i) || foldIteratorLoop(list, i) || foldArrayLoop(list, i) || foldFor(list, i) {
				i = -1
			}
		}
	})
}

// ============================================================================
// synchronized
// ============================================================================

// foldSynchronized matches
//
//	[DupStore(@k, X)] Store(s, X) MonitorEnter(X) Try{Finally: MonitorExit(Load s)}
func foldSynchronized(list *[]ir.Instruction, i int) bool {
	l := *list
	enter, ok := l[i].(*ir.MonitorEnter)
	if !ok || i+1 >= len(l) || i == 0 {
		return false
	}
	t, ok := l[i+1].(*ir.Try)
	if !ok || len(t.Catches) != 0 || len(t.Finally) != 1 {
		return false
	}
	exit, ok := t.Finally[0].(*ir.MonitorExit)
	if !ok {
		return false
	}
	held, ok := exit.Lock.(*ir.Load)
	if !ok {
		return false
	}
	st, ok := l[i-1].(*ir.Store)
	if !ok || st.Slot != held.Slot || !ir.Equal(st.Value, enter.Lock) {
		return false
	}

	from, lock := i-1, enter.Lock
	if dl, ok := lock.(*ir.DupLoad); ok && i >= 2 {
		if ds, ok := l[i-2].(*ir.DupStore); ok && ds.Offset == dl.Key {
			from, lock = i-2, ds.Value
		}
	}
	s := &ir.Synchronized{
		Base: ir.Synth(ir.OpSynchronized, enter.Offset, enter.Line),
		Lock: lock,
		Body: t.Body,
	}
	ir.Splice(list, from, i+2, s)
	return true
}

// ============================================================================
// for-each
// ============================================================================

func isCall(ins ir.Instruction, name string, slot int) bool {
	call, ok := ins.(*ir.Invoke)
	if !ok || call.Method.Name != name || len(call.Args) != 0 {
		return false
	}
	ld, ok := call.Object.(*ir.Load)
	return ok && ld.Slot == slot
}

func usesSlot(list []ir.Instruction, slot int) bool {
	return ir.Count(list, func(ins ir.Instruction) bool {
		switch n := ins.(type) {
		case *ir.Load:
			return n.Slot == slot
		case *ir.Store:
			return n.Slot == slot
		case *ir.IInc:
			return n.Slot == slot
		}
		return false
	}) > 0
}

func loopVar(st *ir.Store) *ir.Load {
	return &ir.Load{Base: st.Base, Slot: st.Slot, Type: st.Type, Name: st.Name}
}

// foldIteratorLoop matches
//
//	Store(it, X.iterator()) While(it.hasNext()) { Store(v, [(T)] it.next()) ... }
func foldIteratorLoop(list *[]ir.Instruction, i int) bool {
	l := *list
	if i+1 >= len(l) {
		return false
	}
	init, ok := l[i].(*ir.Store)
	if !ok {
		return false
	}
	iter, ok := init.Value.(*ir.Invoke)
	if !ok || iter.Method.Name != "iterator" || len(iter.Args) != 0 || iter.Object == nil {
		return false
	}
	w, ok := l[i+1].(*ir.While)
	if !ok || !isCall(w.Cond, "hasNext", init.Slot) || len(w.Body) == 0 {
		return false
	}
	first, ok := w.Body[0].(*ir.Store)
	if !ok {
		return false
	}
	next := first.Value
	if cc, ok := next.(*ir.CheckCast); ok {
		next = cc.Value
	}
	if !isCall(next, "next", init.Slot) || usesSlot(w.Body[1:], init.Slot) {
		return false
	}

	fe := &ir.ForEach{
		Base:     ir.Synth(ir.OpForEach, w.Offset, w.Line),
		Label:    w.Label,
		Var:      loopVar(first),
		Iterable: iter.Object,
		Body:     w.Body[1:],
	}
	ir.Splice(list, i, i+2, fe)
	return true
}

// foldArrayLoop matches
//
//	Store(a, X) Store(n, a.length) Store(k, 0)
//	While(k < n) { Store(v, a[k]) ... IInc(k, 1) }
func foldArrayLoop(list *[]ir.Instruction, i int) bool {
	l := *list
	if i+3 >= len(l) {
		return false
	}
	arr, ok1 := l[i].(*ir.Store)
	n, ok2 := l[i+1].(*ir.Store)
	k, ok3 := l[i+2].(*ir.Store)
	w, ok4 := l[i+3].(*ir.While)
	if !ok1 || !ok2 || !ok3 || !ok4 || len(w.Body) < 2 {
		return false
	}
	if al, ok := n.Value.(*ir.ArrayLength); !ok || !isSlot(al.Array, arr.Slot) {
		return false
	}
	if !ir.IsBoolConst(k.Value, 0) {
		return false
	}
	cmp, ok := w.Cond.(*ir.Compare)
	if !ok || cmp.Operator != "<" || !isSlot(cmp.Left, k.Slot) || !isSlot(cmp.Right, n.Slot) {
		return false
	}
	first, ok := w.Body[0].(*ir.Store)
	if !ok {
		return false
	}
	elem, ok := first.Value.(*ir.ArrayLoad)
	if !ok || !isSlot(elem.Array, arr.Slot) || !isSlot(elem.Index, k.Slot) {
		return false
	}
	inc, ok := w.Body[len(w.Body)-1].(*ir.IInc)
	if !ok || inc.Slot != k.Slot || inc.Delta != 1 {
		return false
	}
	body := w.Body[1 : len(w.Body)-1]
	for _, slot := range []int{arr.Slot, n.Slot, k.Slot} {
		if usesSlot(body, slot) {
			return false
		}
	}
	if hasContinue(body, w.Label, true) {
		return false
	}

	fe := &ir.ForEach{
		Base:     ir.Synth(ir.OpForEach, w.Offset, w.Line),
		Label:    w.Label,
		Var:      loopVar(first),
		Iterable: arr.Value,
		Body:     body,
	}
	ir.Splice(list, i, i+4, fe)
	return true
}

func isSlot(ins ir.Instruction, slot int) bool {
	ld, ok := ins.(*ir.Load)
	return ok && ld.Slot == slot
}

// ============================================================================
// for
// ============================================================================

// foldFor matches Store(s, v) While(cond on s) { ... update s } where the
// body never continues the loop, since continue would skip the update.
func foldFor(list *[]ir.Instruction, i int) bool {
	l := *list
	if i+1 >= len(l) {
		return false
	}
	init, ok := l[i].(*ir.Store)
	if !ok {
		return false
	}
	w, ok := l[i+1].(*ir.While)
	if !ok || w.Cond == nil || len(w.Body) == 0 || !usesSlot([]ir.Instruction{w.Cond}, init.Slot) {
		return false
	}
	update := w.Body[len(w.Body)-1]
	switch u := update.(type) {
	case *ir.IInc:
		if u.Slot != init.Slot {
			return false
		}
	case *ir.Store:
		if u.Slot != init.Slot {
			return false
		}
	default:
		return false
	}
	body := w.Body[:len(w.Body)-1]
	if hasContinue(body, w.Label, true) {
		return false
	}

	f := &ir.For{
		Base:   ir.Synth(ir.OpFor, w.Offset, w.Line),
		Label:  w.Label,
		Init:   []ir.Instruction{init},
		Cond:   w.Cond,
		Update: []ir.Instruction{update},
		Body:   body,
	}
	ir.Splice(list, i, i+2, f)
	return true
}

// hasContinue reports whether list continues the loop labelled label.
// Unlabelled continues count only when own is set, that is outside
// nested loops.
func hasContinue(list []ir.Instruction, label string, own bool) bool {
	for _, ins := range list {
		if c, ok := ins.(*ir.Continue); ok {
			if (c.Label == "" && own) || (c.Label != "" && c.Label == label) {
				return true
			}
			continue
		}
		inner := own
		switch ins.(type) {
		case *ir.While, *ir.DoWhile, *ir.For, *ir.ForEach:
			inner = false
		}
		for _, body := range ir.Bodies(ins) {
			if hasContinue(*body, label, inner) {
				return true
			}
		}
	}
	return false
}
