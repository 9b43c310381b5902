package bytecode

import "fmt"

// Opcode represents a JVM bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Constants (0x00-0x14)
	// ========================================================================

	OpNop        Opcode = 0x00 // No operation
	OpAconstNull Opcode = 0x01 // Push null
	OpIconstM1   Opcode = 0x02 // Push int -1
	OpIconst0    Opcode = 0x03
	OpIconst1    Opcode = 0x04
	OpIconst2    Opcode = 0x05
	OpIconst3    Opcode = 0x06
	OpIconst4    Opcode = 0x07
	OpIconst5    Opcode = 0x08
	OpLconst0    Opcode = 0x09
	OpLconst1    Opcode = 0x0A
	OpFconst0    Opcode = 0x0B
	OpFconst1    Opcode = 0x0C
	OpFconst2    Opcode = 0x0D
	OpDconst0    Opcode = 0x0E
	OpDconst1    Opcode = 0x0F
	OpBipush     Opcode = 0x10 // Push byte: bipush <value:i8>
	OpSipush     Opcode = 0x11 // Push short: sipush <value:i16>
	OpLdc        Opcode = 0x12 // Push constant: ldc <index:u8>
	OpLdcW       Opcode = 0x13 // Push constant: ldc_w <index:u16>
	OpLdc2W      Opcode = 0x14 // Push long/double constant: ldc2_w <index:u16>

	// ========================================================================
	// Loads (0x15-0x35)
	// ========================================================================

	OpIload   Opcode = 0x15 // Push local: iload <slot:u8>
	OpLload   Opcode = 0x16
	OpFload   Opcode = 0x17
	OpDload   Opcode = 0x18
	OpAload   Opcode = 0x19
	OpIload0  Opcode = 0x1A
	OpIload1  Opcode = 0x1B
	OpIload2  Opcode = 0x1C
	OpIload3  Opcode = 0x1D
	OpLload0  Opcode = 0x1E
	OpLload1  Opcode = 0x1F
	OpLload2  Opcode = 0x20
	OpLload3  Opcode = 0x21
	OpFload0  Opcode = 0x22
	OpFload1  Opcode = 0x23
	OpFload2  Opcode = 0x24
	OpFload3  Opcode = 0x25
	OpDload0  Opcode = 0x26
	OpDload1  Opcode = 0x27
	OpDload2  Opcode = 0x28
	OpDload3  Opcode = 0x29
	OpAload0  Opcode = 0x2A
	OpAload1  Opcode = 0x2B
	OpAload2  Opcode = 0x2C
	OpAload3  Opcode = 0x2D
	OpIaload  Opcode = 0x2E // Pop array, index; push element
	OpLaload  Opcode = 0x2F
	OpFaload  Opcode = 0x30
	OpDaload  Opcode = 0x31
	OpAaload  Opcode = 0x32
	OpBaload  Opcode = 0x33
	OpCaload  Opcode = 0x34
	OpSaload  Opcode = 0x35

	// ========================================================================
	// Stores (0x36-0x56)
	// ========================================================================

	OpIstore  Opcode = 0x36 // Pop and store to local: istore <slot:u8>
	OpLstore  Opcode = 0x37
	OpFstore  Opcode = 0x38
	OpDstore  Opcode = 0x39
	OpAstore  Opcode = 0x3A
	OpIstore0 Opcode = 0x3B
	OpIstore1 Opcode = 0x3C
	OpIstore2 Opcode = 0x3D
	OpIstore3 Opcode = 0x3E
	OpLstore0 Opcode = 0x3F
	OpLstore1 Opcode = 0x40
	OpLstore2 Opcode = 0x41
	OpLstore3 Opcode = 0x42
	OpFstore0 Opcode = 0x43
	OpFstore1 Opcode = 0x44
	OpFstore2 Opcode = 0x45
	OpFstore3 Opcode = 0x46
	OpDstore0 Opcode = 0x47
	OpDstore1 Opcode = 0x48
	OpDstore2 Opcode = 0x49
	OpDstore3 Opcode = 0x4A
	OpAstore0 Opcode = 0x4B
	OpAstore1 Opcode = 0x4C
	OpAstore2 Opcode = 0x4D
	OpAstore3 Opcode = 0x4E
	OpIastore Opcode = 0x4F // Pop array, index, value
	OpLastore Opcode = 0x50
	OpFastore Opcode = 0x51
	OpDastore Opcode = 0x52
	OpAastore Opcode = 0x53
	OpBastore Opcode = 0x54
	OpCastore Opcode = 0x55
	OpSastore Opcode = 0x56

	// ========================================================================
	// Stack manipulation (0x57-0x5F)
	// ========================================================================

	OpPop    Opcode = 0x57
	OpPop2   Opcode = 0x58
	OpDup    Opcode = 0x59
	OpDupX1  Opcode = 0x5A
	OpDupX2  Opcode = 0x5B
	OpDup2   Opcode = 0x5C
	OpDup2X1 Opcode = 0x5D
	OpDup2X2 Opcode = 0x5E
	OpSwap   Opcode = 0x5F

	// ========================================================================
	// Arithmetic and logic (0x60-0x84)
	// ========================================================================

	OpIadd  Opcode = 0x60
	OpLadd  Opcode = 0x61
	OpFadd  Opcode = 0x62
	OpDadd  Opcode = 0x63
	OpIsub  Opcode = 0x64
	OpLsub  Opcode = 0x65
	OpFsub  Opcode = 0x66
	OpDsub  Opcode = 0x67
	OpImul  Opcode = 0x68
	OpLmul  Opcode = 0x69
	OpFmul  Opcode = 0x6A
	OpDmul  Opcode = 0x6B
	OpIdiv  Opcode = 0x6C
	OpLdiv  Opcode = 0x6D
	OpFdiv  Opcode = 0x6E
	OpDdiv  Opcode = 0x6F
	OpIrem  Opcode = 0x70
	OpLrem  Opcode = 0x71
	OpFrem  Opcode = 0x72
	OpDrem  Opcode = 0x73
	OpIneg  Opcode = 0x74
	OpLneg  Opcode = 0x75
	OpFneg  Opcode = 0x76
	OpDneg  Opcode = 0x77
	OpIshl  Opcode = 0x78
	OpLshl  Opcode = 0x79
	OpIshr  Opcode = 0x7A
	OpLshr  Opcode = 0x7B
	OpIushr Opcode = 0x7C
	OpLushr Opcode = 0x7D
	OpIand  Opcode = 0x7E
	OpLand  Opcode = 0x7F
	OpIor   Opcode = 0x80
	OpLor   Opcode = 0x81
	OpIxor  Opcode = 0x82
	OpLxor  Opcode = 0x83
	OpIinc  Opcode = 0x84 // Increment local: iinc <slot:u8> <delta:i8>

	// ========================================================================
	// Conversions (0x85-0x93)
	// ========================================================================

	OpI2l Opcode = 0x85
	OpI2f Opcode = 0x86
	OpI2d Opcode = 0x87
	OpL2i Opcode = 0x88
	OpL2f Opcode = 0x89
	OpL2d Opcode = 0x8A
	OpF2i Opcode = 0x8B
	OpF2l Opcode = 0x8C
	OpF2d Opcode = 0x8D
	OpD2i Opcode = 0x8E
	OpD2l Opcode = 0x8F
	OpD2f Opcode = 0x90
	OpI2b Opcode = 0x91
	OpI2c Opcode = 0x92
	OpI2s Opcode = 0x93

	// ========================================================================
	// Comparisons (0x94-0x98)
	// ========================================================================

	OpLcmp  Opcode = 0x94
	OpFcmpl Opcode = 0x95
	OpFcmpg Opcode = 0x96
	OpDcmpl Opcode = 0x97
	OpDcmpg Opcode = 0x98

	// ========================================================================
	// Control flow (0x99-0xB1)
	// ========================================================================

	OpIfeq         Opcode = 0x99 // Branch if TOS == 0: ifeq <offset:i16>
	OpIfne         Opcode = 0x9A
	OpIflt         Opcode = 0x9B
	OpIfge         Opcode = 0x9C
	OpIfgt         Opcode = 0x9D
	OpIfle         Opcode = 0x9E
	OpIfIcmpeq     Opcode = 0x9F // Branch on int comparison: if_icmpeq <offset:i16>
	OpIfIcmpne     Opcode = 0xA0
	OpIfIcmplt     Opcode = 0xA1
	OpIfIcmpge     Opcode = 0xA2
	OpIfIcmpgt     Opcode = 0xA3
	OpIfIcmple     Opcode = 0xA4
	OpIfAcmpeq     Opcode = 0xA5
	OpIfAcmpne     Opcode = 0xA6
	OpGoto         Opcode = 0xA7 // Unconditional jump: goto <offset:i16>
	OpJsr          Opcode = 0xA8
	OpRet          Opcode = 0xA9
	OpTableswitch  Opcode = 0xAA // Variable length, 4-byte aligned
	OpLookupswitch Opcode = 0xAB // Variable length, 4-byte aligned
	OpIreturn      Opcode = 0xAC
	OpLreturn      Opcode = 0xAD
	OpFreturn      Opcode = 0xAE
	OpDreturn      Opcode = 0xAF
	OpAreturn      Opcode = 0xB0
	OpReturn       Opcode = 0xB1

	// ========================================================================
	// Fields and invocation (0xB2-0xBA)
	// ========================================================================

	OpGetstatic       Opcode = 0xB2 // getstatic <fieldref:u16>
	OpPutstatic       Opcode = 0xB3
	OpGetfield        Opcode = 0xB4
	OpPutfield        Opcode = 0xB5
	OpInvokevirtual   Opcode = 0xB6 // invokevirtual <methodref:u16>
	OpInvokespecial   Opcode = 0xB7
	OpInvokestatic    Opcode = 0xB8
	OpInvokeinterface Opcode = 0xB9 // invokeinterface <ref:u16> <count:u8> <0:u8>
	OpInvokedynamic   Opcode = 0xBA // invokedynamic <ref:u16> <0:u8> <0:u8>

	// ========================================================================
	// Objects and arrays (0xBB-0xC9)
	// ========================================================================

	OpNew            Opcode = 0xBB // new <class:u16>
	OpNewarray       Opcode = 0xBC // newarray <atype:u8>
	OpAnewarray      Opcode = 0xBD // anewarray <class:u16>
	OpArraylength    Opcode = 0xBE
	OpAthrow         Opcode = 0xBF
	OpCheckcast      Opcode = 0xC0
	OpInstanceof     Opcode = 0xC1
	OpMonitorenter   Opcode = 0xC2
	OpMonitorexit    Opcode = 0xC3
	OpWide           Opcode = 0xC4 // Widens the following load/store/iinc/ret
	OpMultianewarray Opcode = 0xC5 // multianewarray <class:u16> <dims:u8>
	OpIfnull         Opcode = 0xC6
	OpIfnonnull      Opcode = 0xC7
	OpGotoW          Opcode = 0xC8 // goto_w <offset:i32>
	OpJsrW           Opcode = 0xC9
)

// Variable marks an operand length or stack count that depends on the
// instruction's operands or on a descriptor.
const Variable = -1

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Mnemonic as printed by javap
	StackPop   int    // Values popped (Variable = depends on descriptor/operands)
	StackPush  int    // Values pushed (Variable = depends on descriptor)
	OperandLen int    // Operand bytes following the opcode (Variable = switch/wide)
}

// opcodeInfoTable maps opcodes to their metadata. Stack counts are in values,
// so a long occupies one entry, not two slots.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Constants
	OpNop:        {"nop", 0, 0, 0},
	OpAconstNull: {"aconst_null", 0, 1, 0},
	OpIconstM1:   {"iconst_m1", 0, 1, 0},
	OpIconst0:    {"iconst_0", 0, 1, 0},
	OpIconst1:    {"iconst_1", 0, 1, 0},
	OpIconst2:    {"iconst_2", 0, 1, 0},
	OpIconst3:    {"iconst_3", 0, 1, 0},
	OpIconst4:    {"iconst_4", 0, 1, 0},
	OpIconst5:    {"iconst_5", 0, 1, 0},
	OpLconst0:    {"lconst_0", 0, 1, 0},
	OpLconst1:    {"lconst_1", 0, 1, 0},
	OpFconst0:    {"fconst_0", 0, 1, 0},
	OpFconst1:    {"fconst_1", 0, 1, 0},
	OpFconst2:    {"fconst_2", 0, 1, 0},
	OpDconst0:    {"dconst_0", 0, 1, 0},
	OpDconst1:    {"dconst_1", 0, 1, 0},
	OpBipush:     {"bipush", 0, 1, 1},
	OpSipush:     {"sipush", 0, 1, 2},
	OpLdc:        {"ldc", 0, 1, 1},
	OpLdcW:       {"ldc_w", 0, 1, 2},
	OpLdc2W:      {"ldc2_w", 0, 1, 2},

	// Loads
	OpIload:  {"iload", 0, 1, 1},
	OpLload:  {"lload", 0, 1, 1},
	OpFload:  {"fload", 0, 1, 1},
	OpDload:  {"dload", 0, 1, 1},
	OpAload:  {"aload", 0, 1, 1},
	OpIload0: {"iload_0", 0, 1, 0},
	OpIload1: {"iload_1", 0, 1, 0},
	OpIload2: {"iload_2", 0, 1, 0},
	OpIload3: {"iload_3", 0, 1, 0},
	OpLload0: {"lload_0", 0, 1, 0},
	OpLload1: {"lload_1", 0, 1, 0},
	OpLload2: {"lload_2", 0, 1, 0},
	OpLload3: {"lload_3", 0, 1, 0},
	OpFload0: {"fload_0", 0, 1, 0},
	OpFload1: {"fload_1", 0, 1, 0},
	OpFload2: {"fload_2", 0, 1, 0},
	OpFload3: {"fload_3", 0, 1, 0},
	OpDload0: {"dload_0", 0, 1, 0},
	OpDload1: {"dload_1", 0, 1, 0},
	OpDload2: {"dload_2", 0, 1, 0},
	OpDload3: {"dload_3", 0, 1, 0},
	OpAload0: {"aload_0", 0, 1, 0},
	OpAload1: {"aload_1", 0, 1, 0},
	OpAload2: {"aload_2", 0, 1, 0},
	OpAload3: {"aload_3", 0, 1, 0},
	OpIaload: {"iaload", 2, 1, 0},
	OpLaload: {"laload", 2, 1, 0},
	OpFaload: {"faload", 2, 1, 0},
	OpDaload: {"daload", 2, 1, 0},
	OpAaload: {"aaload", 2, 1, 0},
	OpBaload: {"baload", 2, 1, 0},
	OpCaload: {"caload", 2, 1, 0},
	OpSaload: {"saload", 2, 1, 0},

	// Stores
	OpIstore:  {"istore", 1, 0, 1},
	OpLstore:  {"lstore", 1, 0, 1},
	OpFstore:  {"fstore", 1, 0, 1},
	OpDstore:  {"dstore", 1, 0, 1},
	OpAstore:  {"astore", 1, 0, 1},
	OpIstore0: {"istore_0", 1, 0, 0},
	OpIstore1: {"istore_1", 1, 0, 0},
	OpIstore2: {"istore_2", 1, 0, 0},
	OpIstore3: {"istore_3", 1, 0, 0},
	OpLstore0: {"lstore_0", 1, 0, 0},
	OpLstore1: {"lstore_1", 1, 0, 0},
	OpLstore2: {"lstore_2", 1, 0, 0},
	OpLstore3: {"lstore_3", 1, 0, 0},
	OpFstore0: {"fstore_0", 1, 0, 0},
	OpFstore1: {"fstore_1", 1, 0, 0},
	OpFstore2: {"fstore_2", 1, 0, 0},
	OpFstore3: {"fstore_3", 1, 0, 0},
	OpDstore0: {"dstore_0", 1, 0, 0},
	OpDstore1: {"dstore_1", 1, 0, 0},
	OpDstore2: {"dstore_2", 1, 0, 0},
	OpDstore3: {"dstore_3", 1, 0, 0},
	OpAstore0: {"astore_0", 1, 0, 0},
	OpAstore1: {"astore_1", 1, 0, 0},
	OpAstore2: {"astore_2", 1, 0, 0},
	OpAstore3: {"astore_3", 1, 0, 0},
	OpIastore: {"iastore", 3, 0, 0},
	OpLastore: {"lastore", 3, 0, 0},
	OpFastore: {"fastore", 3, 0, 0},
	OpDastore: {"dastore", 3, 0, 0},
	OpAastore: {"aastore", 3, 0, 0},
	OpBastore: {"bastore", 3, 0, 0},
	OpCastore: {"castore", 3, 0, 0},
	OpSastore: {"sastore", 3, 0, 0},

	// Stack manipulation (counts depend on value categories)
	OpPop:    {"pop", 1, 0, 0},
	OpPop2:   {"pop2", Variable, 0, 0},
	OpDup:    {"dup", 1, 2, 0},
	OpDupX1:  {"dup_x1", 2, 3, 0},
	OpDupX2:  {"dup_x2", Variable, Variable, 0},
	OpDup2:   {"dup2", Variable, Variable, 0},
	OpDup2X1: {"dup2_x1", Variable, Variable, 0},
	OpDup2X2: {"dup2_x2", Variable, Variable, 0},
	OpSwap:   {"swap", 2, 2, 0},

	// Arithmetic
	OpIadd:  {"iadd", 2, 1, 0},
	OpLadd:  {"ladd", 2, 1, 0},
	OpFadd:  {"fadd", 2, 1, 0},
	OpDadd:  {"dadd", 2, 1, 0},
	OpIsub:  {"isub", 2, 1, 0},
	OpLsub:  {"lsub", 2, 1, 0},
	OpFsub:  {"fsub", 2, 1, 0},
	OpDsub:  {"dsub", 2, 1, 0},
	OpImul:  {"imul", 2, 1, 0},
	OpLmul:  {"lmul", 2, 1, 0},
	OpFmul:  {"fmul", 2, 1, 0},
	OpDmul:  {"dmul", 2, 1, 0},
	OpIdiv:  {"idiv", 2, 1, 0},
	OpLdiv:  {"ldiv", 2, 1, 0},
	OpFdiv:  {"fdiv", 2, 1, 0},
	OpDdiv:  {"ddiv", 2, 1, 0},
	OpIrem:  {"irem", 2, 1, 0},
	OpLrem:  {"lrem", 2, 1, 0},
	OpFrem:  {"frem", 2, 1, 0},
	OpDrem:  {"drem", 2, 1, 0},
	OpIneg:  {"ineg", 1, 1, 0},
	OpLneg:  {"lneg", 1, 1, 0},
	OpFneg:  {"fneg", 1, 1, 0},
	OpDneg:  {"dneg", 1, 1, 0},
	OpIshl:  {"ishl", 2, 1, 0},
	OpLshl:  {"lshl", 2, 1, 0},
	OpIshr:  {"ishr", 2, 1, 0},
	OpLshr:  {"lshr", 2, 1, 0},
	OpIushr: {"iushr", 2, 1, 0},
	OpLushr: {"lushr", 2, 1, 0},
	OpIand:  {"iand", 2, 1, 0},
	OpLand:  {"land", 2, 1, 0},
	OpIor:   {"ior", 2, 1, 0},
	OpLor:   {"lor", 2, 1, 0},
	OpIxor:  {"ixor", 2, 1, 0},
	OpLxor:  {"lxor", 2, 1, 0},
	OpIinc:  {"iinc", 0, 0, 2},

	// Conversions
	OpI2l: {"i2l", 1, 1, 0},
	OpI2f: {"i2f", 1, 1, 0},
	OpI2d: {"i2d", 1, 1, 0},
	OpL2i: {"l2i", 1, 1, 0},
	OpL2f: {"l2f", 1, 1, 0},
	OpL2d: {"l2d", 1, 1, 0},
	OpF2i: {"f2i", 1, 1, 0},
	OpF2l: {"f2l", 1, 1, 0},
	OpF2d: {"f2d", 1, 1, 0},
	OpD2i: {"d2i", 1, 1, 0},
	OpD2l: {"d2l", 1, 1, 0},
	OpD2f: {"d2f", 1, 1, 0},
	OpI2b: {"i2b", 1, 1, 0},
	OpI2c: {"i2c", 1, 1, 0},
	OpI2s: {"i2s", 1, 1, 0},

	// Comparisons
	OpLcmp:  {"lcmp", 2, 1, 0},
	OpFcmpl: {"fcmpl", 2, 1, 0},
	OpFcmpg: {"fcmpg", 2, 1, 0},
	OpDcmpl: {"dcmpl", 2, 1, 0},
	OpDcmpg: {"dcmpg", 2, 1, 0},

	// Control flow
	OpIfeq:         {"ifeq", 1, 0, 2},
	OpIfne:         {"ifne", 1, 0, 2},
	OpIflt:         {"iflt", 1, 0, 2},
	OpIfge:         {"ifge", 1, 0, 2},
	OpIfgt:         {"ifgt", 1, 0, 2},
	OpIfle:         {"ifle", 1, 0, 2},
	OpIfIcmpeq:     {"if_icmpeq", 2, 0, 2},
	OpIfIcmpne:     {"if_icmpne", 2, 0, 2},
	OpIfIcmplt:     {"if_icmplt", 2, 0, 2},
	OpIfIcmpge:     {"if_icmpge", 2, 0, 2},
	OpIfIcmpgt:     {"if_icmpgt", 2, 0, 2},
	OpIfIcmple:     {"if_icmple", 2, 0, 2},
	OpIfAcmpeq:     {"if_acmpeq", 2, 0, 2},
	OpIfAcmpne:     {"if_acmpne", 2, 0, 2},
	OpGoto:         {"goto", 0, 0, 2},
	OpJsr:          {"jsr", 0, 1, 2},
	OpRet:          {"ret", 0, 0, 1},
	OpTableswitch:  {"tableswitch", 1, 0, Variable},
	OpLookupswitch: {"lookupswitch", 1, 0, Variable},
	OpIreturn:      {"ireturn", 1, 0, 0},
	OpLreturn:      {"lreturn", 1, 0, 0},
	OpFreturn:      {"freturn", 1, 0, 0},
	OpDreturn:      {"dreturn", 1, 0, 0},
	OpAreturn:      {"areturn", 1, 0, 0},
	OpReturn:       {"return", 0, 0, 0},

	// Fields and invocation
	OpGetstatic:       {"getstatic", 0, 1, 2},
	OpPutstatic:       {"putstatic", 1, 0, 2},
	OpGetfield:        {"getfield", 1, 1, 2},
	OpPutfield:        {"putfield", 2, 0, 2},
	OpInvokevirtual:   {"invokevirtual", Variable, Variable, 2},
	OpInvokespecial:   {"invokespecial", Variable, Variable, 2},
	OpInvokestatic:    {"invokestatic", Variable, Variable, 2},
	OpInvokeinterface: {"invokeinterface", Variable, Variable, 4},
	OpInvokedynamic:   {"invokedynamic", Variable, Variable, 4},

	// Objects and arrays
	OpNew:            {"new", 0, 1, 2},
	OpNewarray:       {"newarray", 1, 1, 1},
	OpAnewarray:      {"anewarray", 1, 1, 2},
	OpArraylength:    {"arraylength", 1, 1, 0},
	OpAthrow:         {"athrow", 1, 0, 0},
	OpCheckcast:      {"checkcast", 1, 1, 2},
	OpInstanceof:     {"instanceof", 1, 1, 2},
	OpMonitorenter:   {"monitorenter", 1, 0, 0},
	OpMonitorexit:    {"monitorexit", 1, 0, 0},
	OpWide:           {"wide", 0, 0, Variable},
	OpMultianewarray: {"multianewarray", Variable, 1, 3},
	OpIfnull:         {"ifnull", 1, 0, 2},
	OpIfnonnull:      {"ifnonnull", 1, 0, 2},
	OpGotoW:          {"goto_w", 0, 0, 4},
	OpJsrW:           {"jsr_w", 0, 1, 4},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// IsValid reports whether op is a defined JVM opcode.
func (op Opcode) IsValid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the javap mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode, or
// Variable for switches and wide.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// IsConditionalJump returns true for the if* family.
func (op Opcode) IsConditionalJump() bool {
	return (op >= OpIfeq && op <= OpIfAcmpne) || op == OpIfnull || op == OpIfnonnull
}

// IsGoto returns true for goto and goto_w.
func (op Opcode) IsGoto() bool {
	return op == OpGoto || op == OpGotoW
}

// IsJump returns true if this opcode transfers control to an encoded offset.
func (op Opcode) IsJump() bool {
	return op.IsConditionalJump() || op.IsGoto() || op == OpJsr || op == OpJsrW
}

// IsSwitch returns true for tableswitch and lookupswitch.
func (op Opcode) IsSwitch() bool {
	return op == OpTableswitch || op == OpLookupswitch
}

// IsReturn returns true if this opcode returns from the method.
func (op Opcode) IsReturn() bool {
	return op >= OpIreturn && op <= OpReturn
}

// EndsBlock returns true if no instruction may follow this one in the same
// basic block.
func (op Opcode) EndsBlock() bool {
	return op.IsJump() || op.IsSwitch() || op.IsReturn() || op == OpAthrow || op == OpRet
}

// IsLoad returns true for the xload family (not array loads).
func (op Opcode) IsLoad() bool {
	return op >= OpIload && op <= OpAload3
}

// IsStore returns true for the xstore family (not array stores).
func (op Opcode) IsStore() bool {
	return op >= OpIstore && op <= OpAstore3
}

// IsInvoke returns true for the invoke family.
func (op Opcode) IsInvoke() bool {
	return op >= OpInvokevirtual && op <= OpInvokedynamic
}

// LocalType returns the JVM type letter a load or store operates on
// ('I', 'J', 'F', 'D' or 'A') and the implicit slot for the _n forms
// (-1 when the slot is an operand).
func (op Opcode) LocalType() (typ byte, slot int) {
	const letters = "IJFDA"
	switch {
	case op >= OpIload && op <= OpAload:
		return letters[op-OpIload], -1
	case op >= OpIload0 && op <= OpAload3:
		n := int(op - OpIload0)
		return letters[n/4], n % 4
	case op >= OpIstore && op <= OpAstore:
		return letters[op-OpIstore], -1
	case op >= OpIstore0 && op <= OpAstore3:
		n := int(op - OpIstore0)
		return letters[n/4], n % 4
	}
	return 0, -1
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
