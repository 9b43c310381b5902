package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
	}
}

func TestOpcodeCount(t *testing.T) {
	// 0x00-0xC9 inclusive; 0xBA (invokedynamic) is defined, nothing is skipped.
	if got := OpcodeCount(); got != 0xCA {
		t.Errorf("OpcodeCount() = %d, want %d", got, 0xCA)
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpNop, "nop"},
		{OpAconstNull, "aconst_null"},
		{OpIconstM1, "iconst_m1"},
		{OpIload0, "iload_0"},
		{OpAstore3, "astore_3"},
		{OpDup2X1, "dup2_x1"},
		{OpIfIcmpge, "if_icmpge"},
		{OpTableswitch, "tableswitch"},
		{OpInvokeinterface, "invokeinterface"},
		{OpGotoW, "goto_w"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	op := Opcode(0xEE)
	if got := op.String(); !strings.HasPrefix(got, "UNKNOWN") {
		t.Errorf("Unknown opcode should return UNKNOWN, got %q", got)
	}
	if op.IsValid() {
		t.Error("0xEE should not be valid")
	}
}

func TestOpcodeOperandLen(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpNop, 0},
		{OpBipush, 1},
		{OpSipush, 2},
		{OpIload, 1},
		{OpIload2, 0},
		{OpIinc, 2},
		{OpGoto, 2},
		{OpGotoW, 4},
		{OpInvokeinterface, 4},
		{OpMultianewarray, 3},
		{OpLookupswitch, Variable},
		{OpWide, Variable},
	}

	for _, tt := range tests {
		if got := tt.op.OperandLen(); got != tt.want {
			t.Errorf("%s.OperandLen() = %d, want %d", tt.op, got, tt.want)
		}
	}
}

func TestOpcodeCategories(t *testing.T) {
	tests := []struct {
		op                        Opcode
		cond, jump, ret, ends, sw bool
	}{
		{OpIfeq, true, true, false, true, false},
		{OpIfnonnull, true, true, false, true, false},
		{OpGoto, false, true, false, true, false},
		{OpLookupswitch, false, false, false, true, true},
		{OpAreturn, false, false, true, true, false},
		{OpAthrow, false, false, false, true, false},
		{OpIadd, false, false, false, false, false},
	}

	for _, tt := range tests {
		if got := tt.op.IsConditionalJump(); got != tt.cond {
			t.Errorf("%s.IsConditionalJump() = %v, want %v", tt.op, got, tt.cond)
		}
		if got := tt.op.IsJump(); got != tt.jump {
			t.Errorf("%s.IsJump() = %v, want %v", tt.op, got, tt.jump)
		}
		if got := tt.op.IsReturn(); got != tt.ret {
			t.Errorf("%s.IsReturn() = %v, want %v", tt.op, got, tt.ret)
		}
		if got := tt.op.EndsBlock(); got != tt.ends {
			t.Errorf("%s.EndsBlock() = %v, want %v", tt.op, got, tt.ends)
		}
		if got := tt.op.IsSwitch(); got != tt.sw {
			t.Errorf("%s.IsSwitch() = %v, want %v", tt.op, got, tt.sw)
		}
	}
}

func TestLocalType(t *testing.T) {
	tests := []struct {
		op   Opcode
		typ  byte
		slot int
	}{
		{OpIload, 'I', -1},
		{OpLload1, 'J', 1},
		{OpFload3, 'F', 3},
		{OpAload0, 'A', 0},
		{OpDstore, 'D', -1},
		{OpAstore2, 'A', 2},
		{OpIstore0, 'I', 0},
		{OpIadd, 0, -1},
	}

	for _, tt := range tests {
		typ, slot := tt.op.LocalType()
		if typ != tt.typ || slot != tt.slot {
			t.Errorf("%s.LocalType() = (%q, %d), want (%q, %d)", tt.op, typ, slot, tt.typ, tt.slot)
		}
	}
}
