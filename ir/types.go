package ir

import (
	"strings"

	"github.com/chazu/decaf/classfile"
)

// TypeOf returns a best-effort field descriptor for the value of ins, or ""
// when it has none (statements) or it cannot be determined.
func TypeOf(ins Instruction) string {
	switch n := ins.(type) {
	case *Const:
		switch n.Kind {
		case ConstInt:
			return "I"
		case ConstLong:
			return "J"
		case ConstFloat:
			return "F"
		case ConstDouble:
			return "D"
		case ConstString:
			return "Ljava/lang/String;"
		case ConstNull:
			return "Ljava/lang/Object;"
		case ConstClass:
			return "Ljava/lang/Class;"
		case ConstMethodType:
			return "Ljava/lang/invoke/MethodType;"
		}
		return "Ljava/lang/Object;"
	case *Load:
		return n.Type
	case *GetStatic:
		return n.Field.Desc
	case *GetField:
		return n.Field.Desc
	case *New:
		return classfile.ObjectDescriptor(n.Class)
	case *InvokeNew:
		return classfile.ObjectDescriptor(n.Class)
	case *ExceptionLoad:
		if n.Type == "" {
			return "Ljava/lang/Throwable;"
		}
		return classfile.ObjectDescriptor(n.Type)
	case *DupLoad:
		return n.Type
	case *TernaryOpLoad:
		return n.Type
	case *BinaryOp:
		if strings.HasPrefix(n.Operator, "cmp") {
			return "I"
		}
		return n.Type
	case *UnaryOp:
		return TypeOf(n.Operand)
	case *Convert:
		return n.To
	case *CheckCast:
		return classfile.ObjectDescriptor(n.Class)
	case *InstanceOf, *Compare, *Not, *ComplexCond:
		return "Z"
	case *ArrayLoad:
		if t := TypeOf(n.Array); strings.HasPrefix(t, "[") {
			return t[1:]
		}
		return n.Type
	case *ArrayLength:
		return "I"
	case *NewArray:
		return n.Desc
	case *Invoke:
		if _, ret, err := classfile.ParseMethodDescriptor(n.Method.Desc); err == nil && ret != "V" {
			return ret
		}
	case *TernaryOp:
		if t := TypeOf(n.Then); t != "" {
			return t
		}
		return TypeOf(n.Else)
	case *Assign:
		return TypeOf(n.Target)
	case *Inc:
		return TypeOf(n.Target)
	}
	return ""
}

// IsBoolean reports whether ins is known to produce a boolean.
func IsBoolean(ins Instruction) bool {
	return TypeOf(ins) == "Z"
}

// HasSideEffects reports whether evaluating ins may do more than compute a
// value: calls, allocations, assignments, increments and stores.
func HasSideEffects(ins Instruction) bool {
	found := false
	WalkNode(ins, func(n Instruction) bool {
		switch n.(type) {
		case *Invoke, *InvokeNew, *New, *NewArray, *Assign, *Inc, *Store,
			*PutField, *PutStatic, *ArrayStore, *IInc, *DupStore, *TernaryOpStore:
			found = true
		}
		return !found
	})
	return found
}

// IsLeaf reports whether ins is a pure leaf that may be copied freely.
func IsLeaf(ins Instruction) bool {
	switch ins.(type) {
	case *Const, *Load, *GetStatic, *DupLoad, *TernaryOpLoad:
		return true
	}
	return false
}

// CloneLeaf returns a shallow copy of a pure leaf. Other nodes are returned
// unchanged.
func CloneLeaf(ins Instruction) Instruction {
	switch n := ins.(type) {
	case *Const:
		c := *n
		return &c
	case *Load:
		c := *n
		return &c
	case *GetStatic:
		c := *n
		return &c
	case *DupLoad:
		c := *n
		return &c
	case *TernaryOpLoad:
		c := *n
		return &c
	}
	return ins
}

// SameLocation reports whether a and b name the same assignable location:
// the same slot, the same static field, or the same field of an equal
// object expression.
func SameLocation(a, b Instruction) bool {
	switch x := a.(type) {
	case *Load:
		y, ok := b.(*Load)
		return ok && x.Slot == y.Slot
	case *GetStatic:
		y, ok := b.(*GetStatic)
		return ok && x.Field == y.Field
	case *GetField:
		y, ok := b.(*GetField)
		return ok && x.Field == y.Field && Equal(x.Object, y.Object)
	case *ArrayLoad:
		y, ok := b.(*ArrayLoad)
		return ok && Equal(x.Array, y.Array) && Equal(x.Index, y.Index)
	}
	return false
}
