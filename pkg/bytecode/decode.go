package bytecode

import (
	"fmt"
)

// Insn is one decoded instruction of a method's Code attribute.
//
// Operand fields are populated according to the opcode:
//   - Index: constant pool index (ldc*, field and method refs, new, checkcast,
//     instanceof, anewarray, multianewarray)
//   - Slot: local variable slot for loads, stores, iinc and ret, including
//     the implicit slot of the _n forms
//   - Value: bipush/sipush immediate, iinc delta, newarray element type,
//     multianewarray dimensions, invokeinterface count
//   - Target: absolute branch target for jumps
//   - Default, Keys, Targets: absolute switch targets
//
// Class is set only by class-literal rewriting: the instruction then stands
// for a constant load of that class and Len spans the whole folded idiom.
type Insn struct {
	Offset  int
	Op      Opcode
	Len     int
	Wide    bool
	Index   uint16
	Slot    int
	Value   int32
	Target  int
	Default int
	Keys    []int32
	Targets []int
	Class   string
}

// End returns the offset just past the instruction.
func (in Insn) End() int {
	return in.Offset + in.Len
}

// DecodeError reports bytecode that cannot be decoded.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bytecode: offset %d: %s", e.Offset, e.Reason)
}

// Decode decodes a method's code into instructions in offset order.
// Branch and switch offsets are converted to absolute targets but are not
// checked against instruction boundaries; that is the CFG builder's job.
func Decode(code []byte) ([]Insn, error) {
	r := NewReader(code)
	insns := make([]Insn, 0, len(code)/2)

	for r.HasMore() {
		start := r.Position()
		op := Opcode(r.ReadU1())
		if !op.IsValid() {
			return nil, &DecodeError{Offset: start, Reason: fmt.Sprintf("unknown opcode 0x%02X", byte(op))}
		}

		in := Insn{Offset: start, Op: op, Slot: -1}
		if err := decodeOperands(r, &in); err != nil {
			return nil, err
		}
		if r.Err() != nil {
			return nil, &DecodeError{Offset: start, Reason: fmt.Sprintf("truncated %s", op)}
		}
		in.Len = r.Position() - start
		insns = append(insns, in)
	}

	return insns, nil
}

func decodeOperands(r *Reader, in *Insn) error {
	op := in.Op
	switch {
	case op == OpWide:
		return decodeWide(r, in)

	case op == OpTableswitch:
		r.Align(4)
		in.Default = in.Offset + int(r.ReadS4())
		low := r.ReadS4()
		high := r.ReadS4()
		if r.Err() == nil && low > high {
			return &DecodeError{Offset: in.Offset, Reason: fmt.Sprintf("tableswitch low %d > high %d", low, high)}
		}
		n := int64(high) - int64(low) + 1
		if r.Err() == nil && n*4 > int64(r.Len()-r.Position()) {
			return &DecodeError{Offset: in.Offset, Reason: "tableswitch jump table exceeds code"}
		}
		for i := int64(0); i < n && r.Err() == nil; i++ {
			in.Keys = append(in.Keys, low+int32(i))
			in.Targets = append(in.Targets, in.Offset+int(r.ReadS4()))
		}

	case op == OpLookupswitch:
		r.Align(4)
		in.Default = in.Offset + int(r.ReadS4())
		n := r.ReadS4()
		if r.Err() == nil && (n < 0 || int64(n)*8 > int64(r.Len()-r.Position())) {
			return &DecodeError{Offset: in.Offset, Reason: fmt.Sprintf("lookupswitch pair count %d", n)}
		}
		for i := int32(0); i < n && r.Err() == nil; i++ {
			in.Keys = append(in.Keys, r.ReadS4())
			in.Targets = append(in.Targets, in.Offset+int(r.ReadS4()))
		}

	case op == OpGotoW || op == OpJsrW:
		in.Target = in.Offset + int(r.ReadS4())

	case op.IsJump():
		in.Target = in.Offset + int(r.ReadS2())

	case op == OpBipush:
		in.Value = int32(r.ReadS1())
	case op == OpSipush:
		in.Value = int32(r.ReadS2())
	case op == OpLdc:
		in.Index = uint16(r.ReadU1())
	case op == OpNewarray:
		in.Value = int32(r.ReadU1())
	case op == OpIinc:
		in.Slot = int(r.ReadU1())
		in.Value = int32(r.ReadS1())
	case op == OpRet:
		in.Slot = int(r.ReadU1())
	case op == OpMultianewarray:
		in.Index = r.ReadU2()
		in.Value = int32(r.ReadU1())
	case op == OpInvokeinterface:
		in.Index = r.ReadU2()
		in.Value = int32(r.ReadU1())
		r.Skip(1)
	case op == OpInvokedynamic:
		in.Index = r.ReadU2()
		r.Skip(2)

	case op.IsLoad() || op.IsStore():
		if _, slot := op.LocalType(); slot >= 0 {
			in.Slot = slot
		} else {
			in.Slot = int(r.ReadU1())
		}

	default:
		switch op.OperandLen() {
		case 0:
		case 2:
			in.Index = r.ReadU2()
		default:
			r.Skip(op.OperandLen())
		}
	}
	return nil
}

// decodeWide handles the wide prefix: a 16-bit slot for loads, stores and
// ret, plus a 16-bit delta for iinc.
func decodeWide(r *Reader, in *Insn) error {
	inner := Opcode(r.ReadU1())
	if r.Err() != nil {
		return nil
	}
	in.Wide = true
	in.Op = inner
	switch {
	case inner == OpIinc:
		in.Slot = int(r.ReadU2())
		in.Value = int32(r.ReadS2())
	case inner == OpRet,
		inner >= OpIload && inner <= OpAload,
		inner >= OpIstore && inner <= OpAstore:
		in.Slot = int(r.ReadU2())
	default:
		return &DecodeError{Offset: in.Offset, Reason: fmt.Sprintf("wide cannot modify %s", inner)}
	}
	return nil
}

// Successors returns the normal-flow successors of an instruction that ends
// a block: jump and switch targets plus the fallthrough offset when
// control can reach it.
func (in Insn) Successors() []int {
	switch {
	case in.Op.IsGoto():
		return []int{in.Target}
	case in.Op.IsConditionalJump():
		return []int{in.End(), in.Target}
	case in.Op.IsSwitch():
		out := append([]int(nil), in.Targets...)
		return append(out, in.Default)
	case in.Op.IsReturn(), in.Op == OpAthrow:
		return nil
	}
	return []int{in.End()}
}
