package bytecode

// ---------------------------------------------------------------------------
// Builder: assembles JVM code, mostly for tests
// ---------------------------------------------------------------------------

// Builder helps construct JVM bytecode sequences. Jump offsets are relative
// to the start of the jump instruction, as the JVM defines them.
type Builder struct {
	bytes []byte
}

// NewBuilder creates a new bytecode builder.
func NewBuilder() *Builder {
	return &Builder{bytes: make([]byte, 0, 64)}
}

// Bytes returns the constructed bytecode.
func (b *Builder) Bytes() []byte {
	return b.bytes
}

// Len returns the current length, which is also the offset of the next
// instruction.
func (b *Builder) Len() int {
	return len(b.bytes)
}

// Emit appends an opcode with no operands.
func (b *Builder) Emit(op Opcode) *Builder {
	b.bytes = append(b.bytes, byte(op))
	return b
}

// EmitU1 appends an opcode with a one-byte operand (slot, bipush value,
// ldc index, newarray type).
func (b *Builder) EmitU1(op Opcode, operand uint8) *Builder {
	b.bytes = append(b.bytes, byte(op), operand)
	return b
}

// EmitU2 appends an opcode with a big-endian two-byte operand.
func (b *Builder) EmitU2(op Opcode, operand uint16) *Builder {
	b.bytes = append(b.bytes, byte(op), byte(operand>>8), byte(operand))
	return b
}

// EmitIinc appends iinc slot delta.
func (b *Builder) EmitIinc(slot uint8, delta int8) *Builder {
	b.bytes = append(b.bytes, byte(OpIinc), slot, byte(delta))
	return b
}

// EmitInvokeinterface appends invokeinterface with its count operand.
func (b *Builder) EmitInvokeinterface(index uint16, count uint8) *Builder {
	b.bytes = append(b.bytes, byte(OpInvokeinterface), byte(index>>8), byte(index), count, 0)
	return b
}

func (b *Builder) u4(v int32) {
	b.bytes = append(b.bytes, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// ---------------------------------------------------------------------------
// Label management for jumps
// ---------------------------------------------------------------------------

type labelRef struct {
	insn  int // offset of the referring instruction
	patch int // offset of the operand to patch
	wide  bool
}

// Label represents a jump target that may not be placed yet.
type Label struct {
	resolved bool
	position int
	refs     []labelRef
}

// NewLabel creates an unresolved label.
func (b *Builder) NewLabel() *Label {
	return &Label{}
}

// Mark resolves a label to the current position.
func (b *Builder) Mark(label *Label) *Builder {
	if label.resolved {
		panic("label already resolved")
	}
	label.resolved = true
	label.position = len(b.bytes)
	for _, ref := range label.refs {
		b.patch(ref, label.position)
	}
	label.refs = nil
	return b
}

func (b *Builder) patch(ref labelRef, target int) {
	delta := target - ref.insn
	if ref.wide {
		v := int32(delta)
		b.bytes[ref.patch] = byte(v >> 24)
		b.bytes[ref.patch+1] = byte(v >> 16)
		b.bytes[ref.patch+2] = byte(v >> 8)
		b.bytes[ref.patch+3] = byte(v)
		return
	}
	b.bytes[ref.patch] = byte(delta >> 8)
	b.bytes[ref.patch+1] = byte(delta)
}

func (b *Builder) ref(label *Label, insn int, wide bool) {
	ref := labelRef{insn: insn, patch: len(b.bytes), wide: wide}
	if wide {
		b.bytes = append(b.bytes, 0, 0, 0, 0)
	} else {
		b.bytes = append(b.bytes, 0, 0)
	}
	if label.resolved {
		b.patch(ref, label.position)
	} else {
		label.refs = append(label.refs, ref)
	}
}

// EmitJump emits a branch instruction targeting label.
func (b *Builder) EmitJump(op Opcode, label *Label) *Builder {
	insn := len(b.bytes)
	b.bytes = append(b.bytes, byte(op))
	b.ref(label, insn, op == OpGotoW || op == OpJsrW)
	return b
}

// EmitTableswitch emits a tableswitch over keys low..low+len(cases)-1.
func (b *Builder) EmitTableswitch(low int32, dflt *Label, cases ...*Label) *Builder {
	insn := len(b.bytes)
	b.bytes = append(b.bytes, byte(OpTableswitch))
	for len(b.bytes)%4 != 0 {
		b.bytes = append(b.bytes, 0)
	}
	b.ref(dflt, insn, true)
	b.u4(low)
	b.u4(low + int32(len(cases)) - 1)
	for _, c := range cases {
		b.ref(c, insn, true)
	}
	return b
}

// EmitLookupswitch emits a lookupswitch with the given key/label pairs.
func (b *Builder) EmitLookupswitch(dflt *Label, keys []int32, cases []*Label) *Builder {
	insn := len(b.bytes)
	b.bytes = append(b.bytes, byte(OpLookupswitch))
	for len(b.bytes)%4 != 0 {
		b.bytes = append(b.bytes, 0)
	}
	b.ref(dflt, insn, true)
	b.u4(int32(len(keys)))
	for i, k := range keys {
		b.u4(k)
		b.ref(cases[i], insn, true)
	}
	return b
}
