package ir

// each enumerates the children of ins in program order. expr is called with
// a pointer to every expression slot, list with a pointer to every nested
// statement list. Nil expression slots are skipped. This is the one place
// that knows the shape of every node type.
func each(ins Instruction, expr func(*Instruction), list func(*[]Instruction)) {
	exprs := func(xs []Instruction) {
		for i := range xs {
			if xs[i] != nil {
				expr(&xs[i])
			}
		}
	}
	one := func(p *Instruction) {
		if *p != nil {
			expr(p)
		}
	}

	switch n := ins.(type) {
	case *Const, *Load, *GetStatic, *New, *ExceptionLoad, *DupLoad,
		*TernaryOpLoad, *RawBytecode, *IInc, *Label, *Break, *Continue, *Goto:
		// leaves
	case *Declaration:
		one(&n.Init)
	case *GetField:
		one(&n.Object)
	case *BinaryOp:
		one(&n.Left)
		one(&n.Right)
	case *UnaryOp:
		one(&n.Operand)
	case *Convert:
		one(&n.Value)
	case *CheckCast:
		one(&n.Value)
	case *InstanceOf:
		one(&n.Value)
	case *Compare:
		one(&n.Left)
		one(&n.Right)
	case *Not:
		one(&n.Operand)
	case *ComplexCond:
		exprs(n.Conds)
	case *ArrayLoad:
		one(&n.Array)
		one(&n.Index)
	case *ArrayLength:
		one(&n.Array)
	case *NewArray:
		exprs(n.Dims)
	case *Invoke:
		one(&n.Object)
		exprs(n.Args)
	case *InvokeNew:
		exprs(n.Args)
	case *TernaryOp:
		one(&n.Cond)
		one(&n.Then)
		one(&n.Else)
	case *Assign:
		one(&n.Target)
		one(&n.Value)
	case *Inc:
		one(&n.Target)
	case *Store:
		one(&n.Value)
	case *PutStatic:
		one(&n.Value)
	case *PutField:
		one(&n.Object)
		one(&n.Value)
	case *ArrayStore:
		one(&n.Array)
		one(&n.Index)
		one(&n.Value)
	case *Return:
		one(&n.Value)
	case *Throw:
		one(&n.Value)
	case *MonitorEnter:
		one(&n.Lock)
	case *MonitorExit:
		one(&n.Lock)
	case *ExprStmt:
		one(&n.Value)
	case *DupStore:
		one(&n.Value)
	case *TernaryOpStore:
		one(&n.Value)
	case *Assert:
		one(&n.Test)
		one(&n.Msg)
	case *While:
		one(&n.Cond)
		list(&n.Body)
	case *DoWhile:
		list(&n.Body)
		one(&n.Cond)
	case *For:
		list(&n.Init)
		one(&n.Cond)
		list(&n.Body)
		list(&n.Update)
	case *ForEach:
		one(&n.Iterable)
		if n.Var != nil {
			var v Instruction = n.Var
			expr(&v)
			if l, ok := v.(*Load); ok {
				n.Var = l
			}
		}
		list(&n.Body)
	case *If:
		one(&n.Cond)
		list(&n.Then)
	case *IfElse:
		one(&n.Cond)
		list(&n.Then)
		list(&n.Else)
	case *Switch:
		one(&n.Key)
		for _, c := range n.Cases {
			list(&c.Body)
		}
	case *Try:
		list(&n.Body)
		for _, c := range n.Catches {
			if c.Var != nil {
				var v Instruction = c.Var
				expr(&v)
				if l, ok := v.(*Load); ok {
					c.Var = l
				}
			}
			list(&c.Body)
		}
		list(&n.Finally)
	case *Synchronized:
		one(&n.Lock)
		list(&n.Body)
	}
}

// Operands returns pointers to the expression children of ins.
func Operands(ins Instruction) []*Instruction {
	var out []*Instruction
	each(ins, func(p *Instruction) { out = append(out, p) }, func(*[]Instruction) {})
	return out
}

// Bodies returns pointers to the nested statement lists of ins.
func Bodies(ins Instruction) []*[]Instruction {
	var out []*[]Instruction
	each(ins, func(*Instruction) {}, func(p *[]Instruction) { out = append(out, p) })
	return out
}

// Walk visits every node reachable from list in pre-order and program
// order. Returning false from fn skips the node's children.
func Walk(list []Instruction, fn func(Instruction) bool) {
	for _, ins := range list {
		WalkNode(ins, fn)
	}
}

// WalkNode is Walk for a single root.
func WalkNode(ins Instruction, fn func(Instruction) bool) {
	if ins == nil || !fn(ins) {
		return
	}
	each(ins,
		func(p *Instruction) { WalkNode(*p, fn) },
		func(p *[]Instruction) { Walk(*p, fn) })
}

// WalkLists visits every statement list reachable from root, including
// root itself, innermost lists after their parents.
func WalkLists(root *[]Instruction, fn func(*[]Instruction)) {
	fn(root)
	for _, ins := range *root {
		walkListsIn(ins, fn)
	}
}

func walkListsIn(ins Instruction, fn func(*[]Instruction)) {
	each(ins,
		func(p *Instruction) { walkListsIn(*p, fn) },
		func(p *[]Instruction) { WalkLists(p, fn) })
}

// Rewrite replaces every expression reachable from list, bottom-up, with
// fn's result. Statement positions are rewritten too; returning nil for a
// statement deletes it.
func Rewrite(list *[]Instruction, fn func(Instruction) Instruction) {
	out := (*list)[:0]
	for _, ins := range *list {
		if r := rewriteNode(ins, fn); r != nil {
			out = append(out, r)
		}
	}
	for i := len(out); i < len(*list); i++ {
		(*list)[i] = nil
	}
	*list = out
}

func rewriteNode(ins Instruction, fn func(Instruction) Instruction) Instruction {
	if ins == nil {
		return nil
	}
	each(ins,
		func(p *Instruction) {
			if r := rewriteNode(*p, fn); r != nil {
				*p = r
			}
		},
		func(p *[]Instruction) { Rewrite(p, fn) })
	return fn(ins)
}

// Replace substitutes repl for the node old (by identity) anywhere under
// list and reports whether it was found.
func Replace(list *[]Instruction, old, repl Instruction) bool {
	found := false
	Rewrite(list, func(ins Instruction) Instruction {
		if ins == old {
			found = true
			return repl
		}
		return ins
	})
	return found
}

// Splice replaces list[i:j] with repl in place.
func Splice(list *[]Instruction, i, j int, repl ...Instruction) {
	l := *list
	out := make([]Instruction, 0, len(l)-(j-i)+len(repl))
	out = append(out, l[:i]...)
	out = append(out, repl...)
	out = append(out, l[j:]...)
	*list = out
}

// Count returns the number of nodes under list for which fn is true.
func Count(list []Instruction, fn func(Instruction) bool) int {
	n := 0
	Walk(list, func(ins Instruction) bool {
		if fn(ins) {
			n++
		}
		return true
	})
	return n
}
