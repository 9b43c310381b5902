package bytecode

import (
	"fmt"
	"strings"
)

// ConstantDescriber renders constant pool entries for disassembly comments.
// A nil describer prints bare indices.
type ConstantDescriber interface {
	Describe(index uint16) string
}

// Disassemble returns a human-readable listing of insns, one line per
// instruction, in javap style.
func Disassemble(insns []Insn, pool ConstantDescriber) string {
	var sb strings.Builder
	for _, line := range DisassembleToLines(insns, pool) {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DisassembleToLines returns the disassembly as a slice of lines.
func DisassembleToLines(insns []Insn, pool ConstantDescriber) []string {
	lines := make([]string, 0, len(insns))
	for _, in := range insns {
		lines = append(lines, fmt.Sprintf("%04X  %s", in.Offset, DisassembleInsn(in, pool)))
	}
	return lines
}

// DisassembleInsn renders a single instruction without its offset.
func DisassembleInsn(in Insn, pool ConstantDescriber) string {
	name := in.Op.String()
	if in.Wide {
		name = "wide " + name
	}

	if in.Class != "" {
		return fmt.Sprintf("%s ; class %s", name, in.Class)
	}

	switch {
	case in.Op.IsSwitch():
		parts := make([]string, 0, len(in.Keys)+1)
		for i, k := range in.Keys {
			parts = append(parts, fmt.Sprintf("%d: %04X", k, in.Targets[i]))
		}
		parts = append(parts, fmt.Sprintf("default: %04X", in.Default))
		return fmt.Sprintf("%s { %s }", name, strings.Join(parts, ", "))

	case in.Op.IsJump():
		return fmt.Sprintf("%s %04X", name, in.Target)

	case in.Op == OpIinc:
		return fmt.Sprintf("%s %d %+d", name, in.Slot, in.Value)

	case in.Op == OpBipush, in.Op == OpSipush:
		return fmt.Sprintf("%s %d", name, in.Value)

	case in.Op == OpNewarray:
		return fmt.Sprintf("%s %s", name, ArrayTypeName(int(in.Value)))

	case (in.Op.IsLoad() || in.Op.IsStore() || in.Op == OpRet) && in.Op.OperandLen() > 0:
		return fmt.Sprintf("%s %d", name, in.Slot)

	case in.Op == OpMultianewarray:
		return fmt.Sprintf("%s #%d %d%s", name, in.Index, in.Value, describe(pool, in.Index))

	case in.Op == OpInvokeinterface:
		return fmt.Sprintf("%s #%d %d%s", name, in.Index, in.Value, describe(pool, in.Index))

	case in.Op.OperandLen() == 0:
		return name
	}

	return fmt.Sprintf("%s #%d%s", name, in.Index, describe(pool, in.Index))
}

func describe(pool ConstantDescriber, index uint16) string {
	if pool == nil {
		return ""
	}
	if d := pool.Describe(index); d != "" {
		return " ; " + d
	}
	return ""
}

// Array element type codes used by newarray.
const (
	TBoolean = 4
	TChar    = 5
	TFloat   = 6
	TDouble  = 7
	TByte    = 8
	TShort   = 9
	TInt     = 10
	TLong    = 11
)

var arrayTypes = map[int][2]string{
	TBoolean: {"boolean", "Z"},
	TChar:    {"char", "C"},
	TFloat:   {"float", "F"},
	TDouble:  {"double", "D"},
	TByte:    {"byte", "B"},
	TShort:   {"short", "S"},
	TInt:     {"int", "I"},
	TLong:    {"long", "J"},
}

// ArrayTypeName returns the Java name of a newarray element type code.
func ArrayTypeName(atype int) string {
	if t, ok := arrayTypes[atype]; ok {
		return t[0]
	}
	return fmt.Sprintf("?%d", atype)
}

// ArrayTypeDescriptor returns the field descriptor of a newarray element
// type code, or "" if the code is invalid.
func ArrayTypeDescriptor(atype int) string {
	return arrayTypes[atype][1]
}
