package reconstruct

import (
	"github.com/chazu/decaf/ir"
	"github.com/chazu/decaf/pkg/bytecode"
)

const (
	assertionsDisabled = "$assertionsDisabled"
	assertionError     = "java/lang/AssertionError"
)

// asserts rebuilds assert statements from the guard javac wraps them in:
//
//	If(!$assertionsDisabled && fails) { Throw(new AssertionError([msg])) }
//
// becomes Assert(!fails, msg). The field must be named exactly
// $assertionsDisabled and the thrown class must be exactly
// java/lang/AssertionError. The synthetic field itself is left alone.
func asserts(r *run) int {
	return scan(r.root, func(list *[]ir.Instruction, i int) (int, bool) {
		n, ok := (*list)[i].(*ir.If)
		if !ok || len(n.Then) != 1 {
			return 0, false
		}
		th, ok := n.Then[0].(*ir.Throw)
		if !ok {
			return 0, false
		}
		err, ok := th.Value.(*ir.InvokeNew)
		if !ok || err.Class != assertionError || len(err.Args) > 1 {
			return 0, false
		}
		test, ok := assertTest(n.Cond)
		if !ok {
			return 0, false
		}
		a := &ir.Assert{Base: ir.Synth(ir.OpAssert, n.Offset, n.Line), Test: test}
		if len(err.Args) == 1 {
			a.Msg = err.Args[0]
		}
		(*list)[i] = a
		return i, true
	})
}

// assertTest strips the $assertionsDisabled guard from cond and returns
// the asserted condition, which is the negation of what remains.
func assertTest(cond ir.Instruction) (ir.Instruction, bool) {
	if isGuard(cond) {
		// assert false
		return &ir.Const{Base: ir.At(bytecode.OpIconst0, cond.At().Offset, cond.At().Line), Kind: ir.ConstInt, Value: int32(0)}, true
	}
	cc, ok := cond.(*ir.ComplexCond)
	if !ok || cc.Op != "&&" || len(cc.Conds) < 2 || !isGuard(cc.Conds[0]) {
		return nil, false
	}
	rest := cc.Conds[1:]
	if len(rest) == 1 {
		return ir.Negate(rest[0]), true
	}
	return ir.Negate(ir.And(cc.Base, rest...)), true
}

// isGuard matches !$assertionsDisabled in any of the shapes branch
// simulation produces for it.
func isGuard(cond ir.Instruction) bool {
	var field ir.Instruction
	switch c := cond.(type) {
	case *ir.Not:
		field = c.Operand
	case *ir.Compare:
		if c.Operator != "==" || !ir.IsBoolConst(c.Right, 0) {
			return false
		}
		field = c.Left
	default:
		return false
	}
	gs, ok := field.(*ir.GetStatic)
	return ok && gs.Field.Name == assertionsDisabled
}
