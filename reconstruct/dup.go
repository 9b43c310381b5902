package reconstruct

import (
	"github.com/chazu/decaf/ir"
)

// ============================================================================
// Ternary inlining
// ============================================================================

// ternaryInline moves a folded ternary's value into the join that reads
// it. Only keys with one remaining store and one load qualify; keys still
// published from several arms were not folded and stay as they are. A
// value with side effects is only moved into the statement right after
// its store, so its evaluation order does not change.
func ternaryInline(r *run) int {
	stores := map[int]int{}
	loads := map[int]int{}
	ir.Walk(*r.root, func(ins ir.Instruction) bool {
		switch n := ins.(type) {
		case *ir.TernaryOpStore:
			stores[n.Key]++
		case *ir.TernaryOpLoad:
			loads[n.Key]++
		}
		return true
	})

	return scan(r.root, func(list *[]ir.Instruction, i int) (int, bool) {
		st, ok := (*list)[i].(*ir.TernaryOpStore)
		if !ok || stores[st.Key] != 1 || loads[st.Key] != 1 {
			return 0, false
		}
		isLoad := func(n ir.Instruction) bool {
			l, ok := n.(*ir.TernaryOpLoad)
			return ok && l.Key == st.Key
		}
		if !movable(*list, i, st.Value, isLoad) {
			return 0, false
		}
		if !substitute(r.root, isLoad, st.Value) {
			return 0, false
		}
		ir.Splice(list, i, i+1)
		return i, true
	})
}

// substitute replaces the single node under root for which match holds
// with value.
func substitute(root *[]ir.Instruction, match func(ir.Instruction) bool, value ir.Instruction) bool {
	done := false
	ir.Rewrite(root, func(ins ir.Instruction) ir.Instruction {
		if !done && match(ins) {
			done = true
			return value
		}
		return ins
	})
	return done
}

// movable reports whether value, bound by list[i], may move to the node
// matching isLoad. A value with side effects only moves into list[i+1];
// further down it would run after the statements in between. A pure value
// moves past statements that do not write anything it reads.
func movable(list []ir.Instruction, i int, value ir.Instruction, isLoad func(ir.Instruction) bool) bool {
	j := i + 1
	for j < len(list) && ir.Count(list[j:j+1], isLoad) == 0 {
		j++
	}
	if ir.HasSideEffects(value) {
		return j == i+1 && j < len(list)
	}
	if j == len(list) {
		// read from another list
		return !clobbers(list[i+1:], value)
	}
	between := list[i+1 : j]
	for _, body := range ir.Bodies(list[j]) {
		between = append(between[:len(between):len(between)], *body...)
	}
	return !clobbers(between, value)
}

// clobbers reports whether running stmts may change what value reads.
func clobbers(stmts []ir.Instruction, value ir.Instruction) bool {
	slots := map[int]bool{}
	heap := false
	ir.WalkNode(value, func(n ir.Instruction) bool {
		switch x := n.(type) {
		case *ir.Load:
			slots[x.Slot] = true
		case *ir.GetField, *ir.GetStatic, *ir.ArrayLoad:
			heap = true
		}
		return true
	})
	if len(slots) == 0 && !heap {
		return false
	}
	writesLocal := func(target ir.Instruction) bool {
		l, ok := target.(*ir.Load)
		return ok && slots[l.Slot]
	}
	found := false
	ir.Walk(stmts, func(n ir.Instruction) bool {
		if found {
			return false
		}
		switch x := n.(type) {
		case *ir.Store:
			found = slots[x.Slot]
		case *ir.IInc:
			found = slots[x.Slot]
		case *ir.ForEach:
			found = writesLocal(x.Var)
		case *ir.Assign:
			_, local := x.Target.(*ir.Load)
			found = writesLocal(x.Target) || (heap && !local)
		case *ir.Inc:
			_, local := x.Target.(*ir.Load)
			found = writesLocal(x.Target) || (heap && !local)
		case *ir.Invoke, *ir.InvokeNew, *ir.PutField, *ir.PutStatic, *ir.ArrayStore:
			found = heap
		}
		return !found
	})
	return found
}

// ============================================================================
// Dup elimination
// ============================================================================

func dupLoads(root []ir.Instruction) map[int]int {
	loads := map[int]int{}
	ir.Walk(root, func(ins ir.Instruction) bool {
		if l, ok := ins.(*ir.DupLoad); ok {
			loads[l.Key]++
		}
		return true
	})
	return loads
}

func isDupLoad(key int) func(ir.Instruction) bool {
	return func(ins ir.Instruction) bool {
		l, ok := ins.(*ir.DupLoad)
		return ok && l.Key == key
	}
}

// dupElimination inlines every DupStore read at most once. An unread
// binding disappears, leaving its value as an expression statement when
// evaluating it has side effects. A side-effecting value read by a later
// statement than the next one stays bound. Bindings read twice or more are
// left for assignmentChain. Running it again changes nothing.
func dupElimination(r *run) int {
	loads := dupLoads(*r.root)
	return scan(r.root, func(list *[]ir.Instruction, i int) (int, bool) {
		ds, ok := (*list)[i].(*ir.DupStore)
		if !ok {
			return 0, false
		}
		switch loads[ds.Offset] {
		case 0:
			if ir.HasSideEffects(ds.Value) {
				(*list)[i] = &ir.ExprStmt{Base: ir.Synth(ir.OpExprStmt, ds.Offset, ds.Line), Value: ds.Value}
				return i, true
			}
			ir.Splice(list, i, i+1)
			return i, true
		case 1:
			if !movable(*list, i, ds.Value, isDupLoad(ds.Offset)) {
				return 0, false
			}
			if !substitute(r.root, isDupLoad(ds.Offset), ds.Value) {
				return 0, false
			}
			ir.Splice(list, i, i+1)
			loads[ds.Offset] = 0
			return i, true
		}
		return 0, false
	})
}

// ============================================================================
// Assignment chains
// ============================================================================

// assignTarget returns the location a store writes and the value it
// stores, for the store kinds that can appear as an assignment
// expression.
func assignTarget(ins ir.Instruction) (target, value ir.Instruction, ok bool) {
	switch n := ins.(type) {
	case *ir.Store:
		return &ir.Load{Base: n.Base, Slot: n.Slot, Type: n.Type, Name: n.Name}, n.Value, true
	case *ir.PutStatic:
		return &ir.GetStatic{Base: n.Base, Field: n.Field}, n.Value, true
	case *ir.PutField:
		return &ir.GetField{Base: n.Base, Field: n.Field, Object: n.Object}, n.Value, true
	case *ir.ArrayStore:
		return &ir.ArrayLoad{Base: n.Base, Array: n.Array, Index: n.Index, Type: ir.TypeOf(n.Value)}, n.Value, true
	}
	return nil, nil, false
}

// assignmentChain folds a binding that is stored and then read again
// into an assignment expression at the remaining read:
//
//	DupStore(@k, v) Store(x, DupLoad @k) ... f(DupLoad @k)   =>   ... f(x = v)
//
// which covers both a = b = v and (x = next()) != null. Longer chains
// fold one store at a time into the binding until one read is left.
func assignmentChain(r *run) int {
	loads := dupLoads(*r.root)
	fired := scan(r.root, func(list *[]ir.Instruction, i int) (int, bool) {
		ds, ok := (*list)[i].(*ir.DupStore)
		if !ok {
			return 0, false
		}
		folded := false
		for loads[ds.Offset] >= 2 && i+1 < len(*list) {
			next := (*list)[i+1]
			target, value, ok := assignTarget(next)
			if !ok || !isDupLoad(ds.Offset)(value) {
				break
			}
			ds.Value = &ir.Assign{Base: ir.Synth(ir.OpAssign, next.At().Offset, next.At().Line), Target: target, Value: ds.Value}
			ir.Splice(list, i+1, i+2)
			loads[ds.Offset]--
			folded = true
		}
		if !folded || loads[ds.Offset] != 1 {
			return i, folded
		}
		if movable(*list, i, ds.Value, isDupLoad(ds.Offset)) && substitute(r.root, isDupLoad(ds.Offset), ds.Value) {
			ir.Splice(list, i, i+1)
			loads[ds.Offset] = 0
		}
		return i, true
	})
	return fired + hoistLoopConditions(r)
}

// hoistLoopConditions turns while (true) { if (c) break; ... } into
// while (!c) { ... } once the statements that computed c have folded into
// it.
func hoistLoopConditions(r *run) int {
	return scan(r.root, func(list *[]ir.Instruction, i int) (int, bool) {
		w, ok := (*list)[i].(*ir.While)
		if !ok || w.Cond != nil || len(w.Body) == 0 {
			return 0, false
		}
		test, ok := w.Body[0].(*ir.If)
		if !ok || len(test.Then) != 1 {
			return 0, false
		}
		br, ok := test.Then[0].(*ir.Break)
		if !ok || (br.Label != "" && br.Label != w.Label) {
			return 0, false
		}
		w.Cond = ir.Negate(test.Cond)
		w.Body = w.Body[1:]
		return i, true
	})
}
