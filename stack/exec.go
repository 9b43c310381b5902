package stack

import (
	"fmt"
	"strings"

	"github.com/chazu/decaf/cfg"
	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/ir"
	"github.com/chazu/decaf/pkg/bytecode"
)

// frame is the simulation state of one block.
type frame struct {
	s     *state
	b     *cfg.Block
	stack []ir.Instruction
	body  []ir.Instruction
}

var (
	arithOps   = [...]string{"+", "-", "*", "/", "%"}
	shiftOps   = [...]string{"<<", ">>", ">>>"}
	bitOps     = [...]string{"&", "|", "^"}
	typeLetter = [...]string{"I", "J", "F", "D"}

	convertTo = map[bytecode.Opcode]string{
		bytecode.OpI2l: "J", bytecode.OpI2f: "F", bytecode.OpI2d: "D",
		bytecode.OpL2i: "I", bytecode.OpL2f: "F", bytecode.OpL2d: "D",
		bytecode.OpF2i: "I", bytecode.OpF2l: "J", bytecode.OpF2d: "D",
		bytecode.OpD2i: "I", bytecode.OpD2l: "J", bytecode.OpD2f: "F",
		bytecode.OpI2b: "B", bytecode.OpI2c: "C", bytecode.OpI2s: "S",
	}

	arrayElem = map[bytecode.Opcode]string{
		bytecode.OpIaload: "I", bytecode.OpLaload: "J", bytecode.OpFaload: "F", bytecode.OpDaload: "D",
		bytecode.OpAaload: "Ljava/lang/Object;", bytecode.OpBaload: "B", bytecode.OpCaload: "C", bytecode.OpSaload: "S",
	}

	unaryCmp = map[bytecode.Opcode]string{
		bytecode.OpIfeq: "==", bytecode.OpIfne: "!=", bytecode.OpIflt: "<",
		bytecode.OpIfge: ">=", bytecode.OpIfgt: ">", bytecode.OpIfle: "<=",
	}

	binaryCmp = map[bytecode.Opcode]string{
		bytecode.OpIfIcmpeq: "==", bytecode.OpIfIcmpne: "!=", bytecode.OpIfIcmplt: "<",
		bytecode.OpIfIcmpge: ">=", bytecode.OpIfIcmpgt: ">", bytecode.OpIfIcmple: "<=",
		bytecode.OpIfAcmpeq: "==", bytecode.OpIfAcmpne: "!=",
	}
)

// block simulates b starting from the entry stack in and fills its Body,
// Cond and Key.
func (s *state) block(b *cfg.Block, in []ir.Instruction) error {
	f := &frame{s: s, b: b, stack: in}
	for _, insn := range b.Insns {
		if err := f.exec(insn); err != nil {
			return err
		}
	}
	if len(f.stack) > 0 && b.Kind != cfg.Return && b.Kind != cfg.Throw {
		// Values leaving the block must not be reordered past the
		// successor's statements.
		f.flushEffects()
	}
	b.Body = f.body
	s.exit[b.Index] = f.stack
	return nil
}

func (s *state) pool() *classfile.ConstantPool {
	if s.m.Pool == nil {
		return classfile.NewConstantPool()
	}
	return s.m.Pool
}

// allocKey returns an unused DupStore key, preferring want.
func (s *state) allocKey(want int) int {
	for s.keys[want] {
		want++
	}
	s.keys[want] = true
	return want
}

// ---------------------------------------------------------------------------
// Stack helpers
// ---------------------------------------------------------------------------

func (f *frame) push(v ir.Instruction) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop(insn bytecode.Insn) (ir.Instruction, error) {
	if len(f.stack) == 0 {
		return nil, &UnderflowError{Offset: insn.Offset, Op: insn.Op}
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

// popN pops n values and returns them in push order.
func (f *frame) popN(insn bytecode.Insn, n int) ([]ir.Instruction, error) {
	if len(f.stack) < n {
		return nil, &UnderflowError{Offset: insn.Offset, Op: insn.Op}
	}
	out := append([]ir.Instruction(nil), f.stack[len(f.stack)-n:]...)
	f.stack = f.stack[:len(f.stack)-n]
	return out, nil
}

func (f *frame) at(insn bytecode.Insn) ir.Base {
	return ir.At(insn.Op, insn.Offset, f.s.line(insn.Offset))
}

// emit appends a statement after spilling pending side effects so they
// keep their evaluation order.
func (f *frame) emit(stmt ir.Instruction) {
	f.flushEffects()
	f.body = append(f.body, stmt)
}

// spill binds stack[i] with a DupStore and leaves a DupLoad in its place.
func (f *frame) spill(i int) {
	v := f.stack[i]
	key := f.s.allocKey(ir.Offset(v))
	f.body = append(f.body, &ir.DupStore{Base: ir.Synth(ir.OpDupStore, key, v.At().Line), Value: v})
	f.stack[i] = &ir.DupLoad{Base: ir.Synth(ir.OpDupLoad, key, v.At().Line), Key: key, Type: ir.TypeOf(v)}
}

// flushEffects spills every stack entry whose evaluation has side effects.
// Uninitialized objects stay put; their constructor call consumes them.
func (f *frame) flushEffects() {
	for i, v := range f.stack {
		if _, isNew := v.(*ir.New); isNew {
			continue
		}
		if ir.HasSideEffects(v) {
			f.spill(i)
		}
	}
}

// spillReading spills entries for which reads reports true on some node.
func (f *frame) spillReading(reads func(ir.Instruction) bool) {
	for i, v := range f.stack {
		found := false
		ir.WalkNode(v, func(n ir.Instruction) bool {
			if reads(n) {
				found = true
			}
			return !found
		})
		if found {
			f.spill(i)
		}
	}
}

func readsSlot(slot int) func(ir.Instruction) bool {
	return func(n ir.Instruction) bool {
		l, ok := n.(*ir.Load)
		return ok && l.Slot == slot
	}
}

func readsField(field ir.FieldRef) func(ir.Instruction) bool {
	return func(n ir.Instruction) bool {
		switch x := n.(type) {
		case *ir.GetField:
			return x.Field == field
		case *ir.GetStatic:
			return x.Field == field
		}
		return false
	}
}

func readsArray(n ir.Instruction) bool {
	_, ok := n.(*ir.ArrayLoad)
	return ok
}

func wide(v ir.Instruction) bool {
	t := ir.TypeOf(v)
	return t == "J" || t == "D"
}

// dup returns two references to v. Uninitialized objects are shared,
// leaves are copied and anything else is bound once by a DupStore keyed by
// the dup instruction's offset.
func (f *frame) dup(insn bytecode.Insn, v ir.Instruction) (ir.Instruction, ir.Instruction) {
	if _, ok := v.(*ir.New); ok {
		return v, v
	}
	if ir.IsLeaf(v) {
		return v, ir.CloneLeaf(v)
	}
	key := f.s.allocKey(insn.Offset)
	f.emit(&ir.DupStore{Base: ir.Synth(ir.OpDupStore, key, f.s.line(insn.Offset)), Value: v})
	load := func() ir.Instruction {
		return &ir.DupLoad{Base: ir.Synth(ir.OpDupLoad, key, f.s.line(insn.Offset)), Key: key, Type: ir.TypeOf(v)}
	}
	return load(), load()
}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

func (f *frame) exec(insn bytecode.Insn) error {
	op := insn.Op
	switch {
	case op == bytecode.OpNop, op.IsGoto():
		return nil

	case op == bytecode.OpAconstNull:
		f.push(&ir.Const{Base: f.at(insn), Kind: ir.ConstNull})
	case op >= bytecode.OpIconstM1 && op <= bytecode.OpIconst5:
		f.push(&ir.Const{Base: f.at(insn), Kind: ir.ConstInt, Value: int32(op) - int32(bytecode.OpIconst0)})
	case op == bytecode.OpLconst0 || op == bytecode.OpLconst1:
		f.push(&ir.Const{Base: f.at(insn), Kind: ir.ConstLong, Value: int64(op - bytecode.OpLconst0)})
	case op >= bytecode.OpFconst0 && op <= bytecode.OpFconst2:
		f.push(&ir.Const{Base: f.at(insn), Kind: ir.ConstFloat, Value: float32(op - bytecode.OpFconst0)})
	case op == bytecode.OpDconst0 || op == bytecode.OpDconst1:
		f.push(&ir.Const{Base: f.at(insn), Kind: ir.ConstDouble, Value: float64(op - bytecode.OpDconst0)})
	case op == bytecode.OpBipush || op == bytecode.OpSipush:
		f.push(&ir.Const{Base: f.at(insn), Kind: ir.ConstInt, Value: insn.Value})
	case op == bytecode.OpLdc || op == bytecode.OpLdcW || op == bytecode.OpLdc2W:
		return f.ldc(insn)

	case op.IsLoad():
		f.push(f.load(insn))
	case op.IsStore():
		return f.store(insn)
	case op == bytecode.OpIinc:
		f.iinc(insn)

	case op >= bytecode.OpIaload && op <= bytecode.OpSaload:
		vs, err := f.popN(insn, 2)
		if err != nil {
			return err
		}
		f.push(&ir.ArrayLoad{Base: f.at(insn), Array: vs[0], Index: vs[1], Type: arrayElem[op]})
	case op >= bytecode.OpIastore && op <= bytecode.OpSastore:
		vs, err := f.popN(insn, 3)
		if err != nil {
			return err
		}
		f.spillReading(readsArray)
		f.emit(&ir.ArrayStore{Base: f.at(insn), Array: vs[0], Index: vs[1], Value: vs[2]})

	case op >= bytecode.OpPop && op <= bytecode.OpSwap:
		return f.shuffle(insn)

	case op >= bytecode.OpIadd && op <= bytecode.OpDrem:
		n := int(op - bytecode.OpIadd)
		return f.binary(insn, arithOps[n/4], typeLetter[n%4])
	case op >= bytecode.OpIneg && op <= bytecode.OpDneg:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		f.push(&ir.UnaryOp{Base: f.at(insn), Operator: "-", Operand: v})
	case op >= bytecode.OpIshl && op <= bytecode.OpLushr:
		n := int(op - bytecode.OpIshl)
		return f.binary(insn, shiftOps[n/2], typeLetter[n%2])
	case op >= bytecode.OpIand && op <= bytecode.OpLxor:
		n := int(op - bytecode.OpIand)
		return f.binary(insn, bitOps[n/2], typeLetter[n%2])

	case op >= bytecode.OpI2l && op <= bytecode.OpI2s:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		f.push(&ir.Convert{Base: f.at(insn), To: convertTo[op], Value: v})

	case op == bytecode.OpLcmp:
		return f.binary(insn, "cmp", "I")
	case op == bytecode.OpFcmpl || op == bytecode.OpDcmpl:
		return f.binary(insn, "cmpl", "I")
	case op == bytecode.OpFcmpg || op == bytecode.OpDcmpg:
		return f.binary(insn, "cmpg", "I")

	case op.IsConditionalJump():
		return f.branch(insn)
	case op.IsSwitch():
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		f.b.Key = v

	case op == bytecode.OpReturn:
		f.emit(&ir.Return{Base: f.at(insn)})
	case op.IsReturn():
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		f.emit(&ir.Return{Base: f.at(insn), Value: v})
	case op == bytecode.OpAthrow:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		f.emit(&ir.Throw{Base: f.at(insn), Value: v})

	case op >= bytecode.OpGetstatic && op <= bytecode.OpPutfield:
		return f.field(insn)
	case op.IsInvoke():
		return f.invoke(insn)

	case op == bytecode.OpNew:
		name, err := f.s.pool().ClassName(insn.Index)
		if err != nil {
			return err
		}
		f.push(&ir.New{Base: f.at(insn), Class: name})
	case op == bytecode.OpNewarray:
		elem := bytecode.ArrayTypeDescriptor(int(insn.Value))
		if elem == "" {
			return fmt.Errorf("%w: newarray type %d", errUnexplained, insn.Value)
		}
		return f.newArray(insn, "["+elem, 1)
	case op == bytecode.OpAnewarray:
		name, err := f.s.pool().ClassName(insn.Index)
		if err != nil {
			return err
		}
		return f.newArray(insn, "["+classfile.ObjectDescriptor(name), 1)
	case op == bytecode.OpMultianewarray:
		desc, err := f.s.pool().ClassName(insn.Index)
		if err != nil {
			return err
		}
		return f.newArray(insn, desc, int(insn.Value))
	case op == bytecode.OpArraylength:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		f.push(&ir.ArrayLength{Base: f.at(insn), Array: v})

	case op == bytecode.OpCheckcast || op == bytecode.OpInstanceof:
		name, err := f.s.pool().ClassName(insn.Index)
		if err != nil {
			return err
		}
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		if op == bytecode.OpCheckcast {
			f.push(&ir.CheckCast{Base: f.at(insn), Class: name, Value: v})
		} else {
			f.push(&ir.InstanceOf{Base: f.at(insn), Class: name, Value: v})
		}

	case op == bytecode.OpMonitorenter || op == bytecode.OpMonitorexit:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		if op == bytecode.OpMonitorenter {
			f.emit(&ir.MonitorEnter{Base: f.at(insn), Lock: v})
		} else {
			f.emit(&ir.MonitorExit{Base: f.at(insn), Lock: v})
		}

	default:
		return fmt.Errorf("%w: %s at %d", errUnexplained, op, insn.Offset)
	}
	return nil
}

func (f *frame) ldc(insn bytecode.Insn) error {
	if insn.Class != "" {
		f.push(&ir.Const{Base: f.at(insn), Kind: ir.ConstClass, Value: insn.Class})
		return nil
	}
	c, err := f.s.pool().Loadable(insn.Index)
	if err != nil {
		return err
	}
	kind := ir.ConstOther
	switch c.Tag {
	case classfile.TagInteger:
		kind = ir.ConstInt
	case classfile.TagFloat:
		kind = ir.ConstFloat
	case classfile.TagLong:
		kind = ir.ConstLong
	case classfile.TagDouble:
		kind = ir.ConstDouble
	case classfile.TagString:
		kind = ir.ConstString
	case classfile.TagClass:
		kind = ir.ConstClass
	case classfile.TagMethodType:
		kind = ir.ConstMethodType
	}
	f.push(&ir.Const{Base: f.at(insn), Kind: kind, Value: c.Value})
	return nil
}

// localType picks the descriptor for a load or store: the parameter type
// when the slot holds a compatible parameter, otherwise the opcode's kind.
func (f *frame) localType(insn bytecode.Insn) string {
	letter, _ := insn.Op.LocalType()
	param := f.s.paramTypes[insn.Slot]
	switch letter {
	case 'A':
		if strings.HasPrefix(param, "L") || strings.HasPrefix(param, "[") {
			return param
		}
		return "A"
	case 'I':
		if param != "" && strings.Contains("ZBCSI", param) {
			return param
		}
	}
	return string(letter)
}

func (f *frame) load(insn bytecode.Insn) ir.Instruction {
	return &ir.Load{Base: f.at(insn), Slot: insn.Slot, Type: f.localType(insn)}
}

func (f *frame) store(insn bytecode.Insn) error {
	v, err := f.pop(insn)
	if err != nil {
		return err
	}
	typ := f.localType(insn)
	if t := ir.TypeOf(v); typ == "A" && (strings.HasPrefix(t, "L") || strings.HasPrefix(t, "[")) {
		typ = t
	} else if typ == "I" && t != "" && strings.Contains("ZBCS", t) {
		typ = t
	}
	f.spillReading(readsSlot(insn.Slot))
	f.emit(&ir.Store{Base: f.at(insn), Slot: insn.Slot, Type: typ, Value: v, End: insn.End()})
	return nil
}

// iinc folds "load x; iinc x, ±1" into a postfix increment when the load
// is still pending on top of the stack, and emits a statement otherwise.
func (f *frame) iinc(insn bytecode.Insn) {
	if d := int(insn.Value); (d == 1 || d == -1) && len(f.stack) > 0 {
		n := len(f.stack)
		if l, ok := f.stack[n-1].(*ir.Load); ok && l.Slot == insn.Slot {
			f.stack[n-1] = &ir.Inc{Base: f.at(insn), Target: l, Delta: int(insn.Value)}
			return
		}
	}
	f.spillReading(readsSlot(insn.Slot))
	f.emit(&ir.IInc{Base: f.at(insn), Slot: insn.Slot, Delta: int(insn.Value)})
}

func (f *frame) binary(insn bytecode.Insn, operator, typ string) error {
	vs, err := f.popN(insn, 2)
	if err != nil {
		return err
	}
	f.push(&ir.BinaryOp{Base: f.at(insn), Operator: operator, Type: typ, Left: vs[0], Right: vs[1]})
	return nil
}

func (f *frame) branch(insn bytecode.Insn) error {
	op := insn.Op
	var cond ir.Instruction
	switch {
	case op == bytecode.OpIfnull || op == bytecode.OpIfnonnull:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		operator := "=="
		if op == bytecode.OpIfnonnull {
			operator = "!="
		}
		cond = &ir.Compare{Base: f.at(insn), Operator: operator, Left: v, Right: &ir.Const{Base: f.at(insn), Kind: ir.ConstNull}}

	case binaryCmp[op] != "":
		vs, err := f.popN(insn, 2)
		if err != nil {
			return err
		}
		cond = &ir.Compare{Base: f.at(insn), Operator: binaryCmp[op], Left: vs[0], Right: vs[1]}

	default:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		operator := unaryCmp[op]
		if bo, ok := v.(*ir.BinaryOp); ok && strings.HasPrefix(bo.Operator, "cmp") {
			cond = &ir.Compare{Base: f.at(insn), Operator: operator, Left: bo.Left, Right: bo.Right}
		} else if ir.IsBoolean(v) && (operator == "!=" || operator == "==") {
			cond = v
			if operator == "==" {
				cond = ir.Negate(v)
			}
		} else {
			cond = &ir.Compare{Base: f.at(insn), Operator: operator, Left: v, Right: &ir.Const{Base: f.at(insn), Kind: ir.ConstInt, Value: int32(0)}}
		}
	}
	f.b.Cond = cond
	return nil
}

func (f *frame) field(insn bytecode.Insn) error {
	ref, err := f.s.pool().FieldRef(insn.Index)
	if err != nil {
		return err
	}
	fr := ir.FieldRef{Owner: ref.Owner, Name: ref.Name, Desc: ref.Descriptor}
	switch insn.Op {
	case bytecode.OpGetstatic:
		f.push(&ir.GetStatic{Base: f.at(insn), Field: fr})
	case bytecode.OpGetfield:
		obj, err := f.pop(insn)
		if err != nil {
			return err
		}
		f.push(&ir.GetField{Base: f.at(insn), Field: fr, Object: obj})
	case bytecode.OpPutstatic:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		f.spillReading(readsField(fr))
		f.emit(&ir.PutStatic{Base: f.at(insn), Field: fr, Value: v})
	case bytecode.OpPutfield:
		vs, err := f.popN(insn, 2)
		if err != nil {
			return err
		}
		f.spillReading(readsField(fr))
		f.emit(&ir.PutField{Base: f.at(insn), Field: fr, Object: vs[0], Value: vs[1]})
	}
	return nil
}

func (f *frame) invoke(insn bytecode.Insn) error {
	pool := f.s.pool()
	var call *ir.Invoke
	if insn.Op == bytecode.OpInvokedynamic {
		name, desc, _, err := pool.InvokeDynamic(insn.Index)
		if err != nil {
			return err
		}
		call = &ir.Invoke{Base: f.at(insn), Kind: ir.InvokeDynamic, Method: ir.MethodRef{Name: name, Desc: desc}}
	} else {
		ref, err := pool.MethodRef(insn.Index)
		if err != nil {
			return err
		}
		kind := map[bytecode.Opcode]ir.InvokeKind{
			bytecode.OpInvokevirtual:   ir.InvokeVirtual,
			bytecode.OpInvokespecial:   ir.InvokeSpecial,
			bytecode.OpInvokestatic:    ir.InvokeStatic,
			bytecode.OpInvokeinterface: ir.InvokeInterface,
		}[insn.Op]
		call = &ir.Invoke{Base: f.at(insn), Kind: kind, Method: ir.MethodRef{Owner: ref.Owner, Name: ref.Name, Desc: ref.Descriptor}}
	}

	params, ret, err := classfile.ParseMethodDescriptor(call.Method.Desc)
	if err != nil {
		return fmt.Errorf("%w: %v", errUnexplained, err)
	}
	args, err := f.popN(insn, len(params))
	if err != nil {
		return err
	}
	call.Args = args
	if call.Kind != ir.InvokeStatic && call.Kind != ir.InvokeDynamic {
		if call.Object, err = f.pop(insn); err != nil {
			return err
		}
	}

	if n, ok := call.Object.(*ir.New); ok && call.Kind == ir.InvokeSpecial && call.Method.Name == "<init>" {
		obj := &ir.InvokeNew{Base: f.at(insn), Class: n.Class, Desc: call.Method.Desc, Args: args}
		replaced := false
		for i, v := range f.stack {
			if v == ir.Instruction(n) {
				f.stack[i] = obj
				replaced = true
			}
		}
		if !replaced {
			f.emit(&ir.ExprStmt{Base: ir.Synth(ir.OpExprStmt, insn.Offset, obj.Line), Value: obj})
		}
		return nil
	}

	if ret == "V" {
		f.emit(call)
	} else {
		f.push(call)
	}
	return nil
}

func (f *frame) newArray(insn bytecode.Insn, desc string, dims int) error {
	vs, err := f.popN(insn, dims)
	if err != nil {
		return err
	}
	f.push(&ir.NewArray{Base: f.at(insn), Desc: desc, Dims: vs})
	return nil
}

// shuffle handles pop, dup and swap. Category-2 values (long and double)
// count as two slots.
func (f *frame) shuffle(insn bytecode.Insn) error {
	pops := func(n int) ([]ir.Instruction, error) { return f.popN(insn, n) }
	discard := func(v ir.Instruction) {
		if _, ok := v.(*ir.New); ok {
			return
		}
		if ir.HasSideEffects(v) {
			f.emit(&ir.ExprStmt{Base: ir.Synth(ir.OpExprStmt, insn.Offset, f.s.line(insn.Offset)), Value: v})
		}
	}

	switch insn.Op {
	case bytecode.OpPop:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		discard(v)

	case bytecode.OpPop2:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		if wide(v) {
			discard(v)
			return nil
		}
		w, err := f.pop(insn)
		if err != nil {
			return err
		}
		discard(w)
		discard(v)

	case bytecode.OpDup:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		a, b := f.dup(insn, v)
		f.push(a)
		f.push(b)

	case bytecode.OpDupX1:
		vs, err := pops(2)
		if err != nil {
			return err
		}
		a, b := f.dup(insn, vs[1])
		f.stack = append(f.stack, a, vs[0], b)

	case bytecode.OpDupX2:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		if len(f.stack) > 0 && wide(f.stack[len(f.stack)-1]) {
			w, _ := f.pop(insn)
			a, b := f.dup(insn, v)
			f.stack = append(f.stack, a, w, b)
			return nil
		}
		vs, err := pops(2)
		if err != nil {
			return err
		}
		a, b := f.dup(insn, v)
		f.stack = append(f.stack, a, vs[0], vs[1], b)

	case bytecode.OpDup2:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		if wide(v) {
			a, b := f.dup(insn, v)
			f.stack = append(f.stack, a, b)
			return nil
		}
		w, err := f.pop(insn)
		if err != nil {
			return err
		}
		wa, wb := f.dup(insn, w)
		va, vb := f.dup(bytecode.Insn{Offset: insn.Offset + 1, Op: insn.Op}, v)
		f.stack = append(f.stack, wa, va, wb, vb)

	case bytecode.OpDup2X1:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		if wide(v) {
			x, err := f.pop(insn)
			if err != nil {
				return err
			}
			a, b := f.dup(insn, v)
			f.stack = append(f.stack, a, x, b)
			return nil
		}
		vs, err := pops(2)
		if err != nil {
			return err
		}
		wa, wb := f.dup(insn, vs[1])
		va, vb := f.dup(bytecode.Insn{Offset: insn.Offset + 1, Op: insn.Op}, v)
		f.stack = append(f.stack, wa, va, vs[0], wb, vb)

	case bytecode.OpDup2X2:
		v, err := f.pop(insn)
		if err != nil {
			return err
		}
		if wide(v) {
			x, err := f.pop(insn)
			if err != nil {
				return err
			}
			if wide(x) {
				a, b := f.dup(insn, v)
				f.stack = append(f.stack, a, x, b)
				return nil
			}
			y, err := f.pop(insn)
			if err != nil {
				return err
			}
			a, b := f.dup(insn, v)
			f.stack = append(f.stack, a, y, x, b)
			return nil
		}
		w, err := f.pop(insn)
		if err != nil {
			return err
		}
		x, err := f.pop(insn)
		if err != nil {
			return err
		}
		wa, wb := f.dup(insn, w)
		va, vb := f.dup(bytecode.Insn{Offset: insn.Offset + 1, Op: insn.Op}, v)
		if wide(x) {
			f.stack = append(f.stack, wa, va, x, wb, vb)
			return nil
		}
		y, err := f.pop(insn)
		if err != nil {
			return err
		}
		f.stack = append(f.stack, wa, va, y, x, wb, vb)

	case bytecode.OpSwap:
		vs, err := pops(2)
		if err != nil {
			return err
		}
		f.stack = append(f.stack, vs[1], vs[0])
	}
	return nil
}
