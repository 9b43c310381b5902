package ir

var negatedOps = map[string]string{
	"==": "!=",
	"!=": "==",
	"<":  ">=",
	">=": "<",
	">":  "<=",
	"<=": ">",
}

var swappedOps = map[string]string{
	"==": "==",
	"!=": "!=",
	"<":  ">",
	">=": "<=",
	">":  "<",
	"<=": ">=",
}

// NegateOp returns the relational operator testing the opposite condition.
func NegateOp(op string) string {
	return negatedOps[op]
}

// SwapOp returns the operator that holds with its operands exchanged.
func SwapOp(op string) string {
	return swappedOps[op]
}

// Negate returns the logical negation of cond. Relational tests flip their
// operator, Not is stripped, and ComplexCond is negated by De Morgan's law.
// The input is not modified.
func Negate(cond Instruction) Instruction {
	switch c := cond.(type) {
	case *Not:
		return c.Operand
	case *Compare:
		if op, ok := negatedOps[c.Operator]; ok {
			n := *c
			n.Operator = op
			return &n
		}
	case *ComplexCond:
		n := &ComplexCond{Base: c.Base, Op: "&&"}
		if c.Op == "&&" {
			n.Op = "||"
		}
		for _, x := range c.Conds {
			n.Conds = append(n.Conds, Negate(x))
		}
		return n
	case *Const:
		if c.Kind == ConstInt {
			if v, ok := c.Value.(int32); ok && (v == 0 || v == 1) {
				return &Const{Base: c.Base, Kind: ConstInt, Value: 1 - v}
			}
		}
	}
	return &Not{Base: Synth(OpNot, cond.At().Offset, cond.At().Line), Operand: cond}
}

// And joins conditions with &&, flattening nested && chains.
func And(base Base, conds ...Instruction) *ComplexCond {
	return join(base, "&&", conds)
}

// Or joins conditions with ||, flattening nested || chains.
func Or(base Base, conds ...Instruction) *ComplexCond {
	return join(base, "||", conds)
}

func join(base Base, op string, conds []Instruction) *ComplexCond {
	base.Opcode = OpComplexCond
	out := &ComplexCond{Base: base, Op: op}
	for _, c := range conds {
		if cc, ok := c.(*ComplexCond); ok && cc.Op == op {
			out.Conds = append(out.Conds, cc.Conds...)
			continue
		}
		out.Conds = append(out.Conds, c)
	}
	return out
}

// IsBoolConst reports whether ins is the int constant v, as javac encodes
// boolean literals.
func IsBoolConst(ins Instruction, v int32) bool {
	c, ok := ins.(*Const)
	if !ok || c.Kind != ConstInt {
		return false
	}
	x, ok := c.Value.(int32)
	return ok && x == v
}
