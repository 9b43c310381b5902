package reconstruct

import (
	"strings"

	"github.com/chazu/decaf/ir"
)

// compoundAssignment rewrites x = x op y into x op= y and ±1 updates into
// increments, for locals, static fields, instance fields and array
// elements. A narrowing conversion back to the location's type, as javac
// emits for byte, char and short targets, is absorbed. Expression-level
// assignments produced by assignmentChain are rewritten the same way.
func compoundAssignment(r *run) int {
	fired := 0
	ir.Rewrite(r.root, func(ins ir.Instruction) ir.Instruction {
		if out := compound(ins); out != nil {
			fired++
			return out
		}
		return ins
	})
	return fired
}

func compound(ins ir.Instruction) ir.Instruction {
	if n, ok := ins.(*ir.IInc); ok {
		target := &ir.Load{Base: n.Base, Slot: n.Slot, Type: "I", Name: n.Name}
		return update(n.Base, target, "+", &ir.Const{Base: n.Base, Kind: ir.ConstInt, Value: int32(n.Delta)})
	}

	var target, value ir.Instruction
	var base ir.Base
	if as, ok := ins.(*ir.Assign); ok && as.Op == "" {
		target, value, base = as.Target, as.Value, as.Base
	} else if t, v, ok := assignTarget(ins); ok {
		target, value, base = t, v, *ins.At()
	} else {
		return nil
	}

	if cv, ok := value.(*ir.Convert); ok && cv.To == ir.TypeOf(target) {
		value = cv.Value
	}
	op, ok := value.(*ir.BinaryOp)
	if !ok || strings.HasPrefix(op.Operator, "cmp") || !ir.SameLocation(op.Left, target) || ir.HasSideEffects(op.Left) {
		return nil
	}
	return update(base, target, op.Operator, op.Right)
}

// update builds target op= v, or an increment when v is the constant 1
// added or subtracted.
func update(base ir.Base, target ir.Instruction, operator string, v ir.Instruction) ir.Instruction {
	if c, ok := v.(*ir.Const); ok && (operator == "+" || operator == "-") {
		var delta int64
		switch x := c.Value.(type) {
		case int32:
			delta = int64(x)
		case int64:
			delta = x
		}
		if operator == "-" {
			delta = -delta
		}
		if delta == 1 || delta == -1 {
			return &ir.Inc{Base: ir.Synth(ir.OpInc, base.Offset, base.Line), Target: target, Delta: int(delta)}
		}
		if c.Kind == ir.ConstInt && delta < 0 && operator == "+" {
			operator, v = "-", &ir.Const{Base: c.Base, Kind: ir.ConstInt, Value: int32(-delta)}
		}
	}
	return &ir.Assign{Base: ir.Synth(ir.OpAssign, base.Offset, base.Line), Op: operator, Target: target, Value: v}
}
