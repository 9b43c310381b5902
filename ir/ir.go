// Package ir is the closed instruction model the decompiler builds and
// rewrites: expression trees produced by stack simulation, block-level
// statements, and the structured constructs that replace CFG regions.
//
// Every node embeds Base. Raw-derived nodes carry the JVM opcode they came
// from; synthesized nodes carry one of the pseudo opcodes below. Traversal
// is driven by a single exhaustive type switch (see each in walk.go), so a
// new node type only needs to be added there.
package ir

import "github.com/chazu/decaf/pkg/bytecode"

// UnknownLine is the Line of nodes with no LineNumberTable entry.
const UnknownLine = 0

// Pseudo opcodes for synthesized nodes. They start above the JVM range.
const (
	OpDupStore = 0x100 + iota
	OpDupLoad
	OpTernaryOpStore
	OpTernaryOpLoad
	OpTernaryOp
	OpComplexCond
	OpNot
	OpCompare
	OpInvokeNew
	OpExceptionLoad
	OpExprStmt
	OpAssign
	OpInc
	OpAssert
	OpClassConst
	OpWhile
	OpDoWhile
	OpFor
	OpForEach
	OpIf
	OpIfElse
	OpSwitch
	OpTry
	OpSynchronized
	OpDeclaration
	OpLabel
	OpBreak
	OpContinue
	OpGoto
	OpRawBytecode
)

// Base carries the fields every node has.
type Base struct {
	Opcode int
	Offset int
	Line   int
}

// At returns the node's Base.
func (b *Base) At() *Base { return b }

func (b *Base) node() {}

// Instruction is implemented by every node type in this package.
type Instruction interface {
	At() *Base
	node() // marker method
}

// At builds a Base for a raw-derived node.
func At(op bytecode.Opcode, offset, line int) Base {
	return Base{Opcode: int(op), Offset: offset, Line: line}
}

// Synth builds a Base for a synthesized node.
func Synth(op, offset, line int) Base {
	return Base{Opcode: op, Offset: offset, Line: line}
}

// Offset returns the node's bytecode offset, or -1 for nil.
func Offset(ins Instruction) int {
	if ins == nil {
		return -1
	}
	return ins.At().Offset
}

// ---------------------------------------------------------------------------
// Leaves
// ---------------------------------------------------------------------------

// ConstKind discriminates Const values.
type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstLong
	ConstFloat
	ConstDouble
	ConstString
	ConstNull
	ConstClass      // Value is an internal name or array descriptor
	ConstMethodType // Value is a method descriptor
	ConstOther      // method handles and dynamic constants, Value is descriptive text
)

// Const is a literal. Value holds int32, int64, float32, float64, string
// or nil depending on Kind.
type Const struct {
	Base
	Kind  ConstKind
	Value any
}

// Load reads a local variable slot. Type is a field descriptor, or "A" for
// a reference whose class is not known yet.
type Load struct {
	Base
	Slot int
	Type string
	Name string
}

// FieldRef names a field.
type FieldRef struct {
	Owner string
	Name  string
	Desc  string
}

// GetStatic reads a static field.
type GetStatic struct {
	Base
	Field FieldRef
}

// New is an uninitialized object, live only until its constructor call
// folds it into InvokeNew.
type New struct {
	Base
	Class string
}

// ExceptionLoad is the caught exception on entry to a handler.
type ExceptionLoad struct {
	Base
	Type string // "" for catch-any
}

// DupLoad reads the value bound by the DupStore whose Offset equals Key.
type DupLoad struct {
	Base
	Key  int
	Type string
}

// TernaryOpLoad reads the value that predecessors of a join published
// through TernaryOpStore with the same Key.
type TernaryOpLoad struct {
	Base
	Key  int
	Type string
}

// RawBytecode is a disassembly comment standing in for code that could not
// be reconstructed.
type RawBytecode struct {
	Base
	Lines []string
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// GetField reads an instance field.
type GetField struct {
	Base
	Field  FieldRef
	Object Instruction
}

// BinaryOp is arithmetic, bitwise or a cmp-family comparison ("cmp",
// "cmpl", "cmpg") that yields -1/0/1.
type BinaryOp struct {
	Base
	Operator string
	Type     string
	Left     Instruction
	Right    Instruction
}

// UnaryOp is numeric negation.
type UnaryOp struct {
	Base
	Operator string
	Operand  Instruction
}

// Convert is a primitive conversion to the descriptor To.
type Convert struct {
	Base
	To    string
	Value Instruction
}

// CheckCast is a reference cast.
type CheckCast struct {
	Base
	Class string
	Value Instruction
}

// InstanceOf tests a reference against a class.
type InstanceOf struct {
	Base
	Class string
	Value Instruction
}

// Compare is a boolean relational test.
type Compare struct {
	Base
	Operator string // == != < >= > <=
	Left     Instruction
	Right    Instruction
}

// Not is boolean negation.
type Not struct {
	Base
	Operand Instruction
}

// ComplexCond joins conditions with && or ||.
type ComplexCond struct {
	Base
	Op    string
	Conds []Instruction
}

// ArrayLoad reads an array element. Type is the element kind descriptor.
type ArrayLoad struct {
	Base
	Array Instruction
	Index Instruction
	Type  string
}

// ArrayLength reads an array's length.
type ArrayLength struct {
	Base
	Array Instruction
}

// NewArray allocates an array of type Desc with the given dimension sizes.
type NewArray struct {
	Base
	Desc string
	Dims []Instruction
}

// InvokeKind is the call instruction family.
type InvokeKind int

const (
	InvokeVirtual InvokeKind = iota
	InvokeSpecial
	InvokeStatic
	InvokeInterface
	InvokeDynamic
)

var invokeKindNames = [...]string{"virtual", "special", "static", "interface", "dynamic"}

func (k InvokeKind) String() string {
	if int(k) < len(invokeKindNames) {
		return invokeKindNames[k]
	}
	return "?"
}

// MethodRef names a method.
type MethodRef struct {
	Owner string
	Name  string
	Desc  string
}

// Invoke is a method call. Object is nil for static and dynamic calls.
// A void Invoke appears directly in statement lists.
type Invoke struct {
	Base
	Kind   InvokeKind
	Method MethodRef
	Object Instruction
	Args   []Instruction
}

// InvokeNew is a constructor call on a freshly allocated object.
type InvokeNew struct {
	Base
	Class string
	Desc  string
	Args  []Instruction
}

// TernaryOp is cond ? Then : Else.
type TernaryOp struct {
	Base
	Cond Instruction
	Then Instruction
	Else Instruction
}

// Assign is an assignment used as a value or statement. Op is "" for plain
// assignment or an operator for compound forms (x += v). Target is a
// Load, GetField, GetStatic or ArrayLoad naming the location.
type Assign struct {
	Base
	Op     string
	Target Instruction
	Value  Instruction
}

// Inc is ++/-- on a location. As an expression a postfix Inc yields the
// old value.
type Inc struct {
	Base
	Target Instruction
	Delta  int
	Prefix bool
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Store writes a local slot. End is the offset after the store instruction,
// where a LocalVariableTable entry for the stored variable begins.
type Store struct {
	Base
	Slot  int
	Type  string
	Name  string
	Value Instruction
	End   int
}

// IInc adds a constant to an int local.
type IInc struct {
	Base
	Slot  int
	Delta int
	Name  string
}

// PutStatic writes a static field.
type PutStatic struct {
	Base
	Field FieldRef
	Value Instruction
}

// PutField writes an instance field.
type PutField struct {
	Base
	Field  FieldRef
	Object Instruction
	Value  Instruction
}

// ArrayStore writes an array element.
type ArrayStore struct {
	Base
	Array Instruction
	Index Instruction
	Value Instruction
}

// Return leaves the method. Value is nil for void returns.
type Return struct {
	Base
	Value Instruction
}

// Throw raises Value.
type Throw struct {
	Base
	Value Instruction
}

// MonitorEnter acquires Lock.
type MonitorEnter struct {
	Base
	Lock Instruction
}

// MonitorExit releases Lock.
type MonitorExit struct {
	Base
	Lock Instruction
}

// ExprStmt evaluates Value for its side effects and discards it.
type ExprStmt struct {
	Base
	Value Instruction
}

// DupStore binds Value so later DupLoads with Key == Offset can read it.
type DupStore struct {
	Base
	Value Instruction
}

// TernaryOpStore publishes Value to the join block that reads Key.
type TernaryOpStore struct {
	Base
	Key   int
	Value Instruction
}

// Assert is a reconstructed assert statement. Test is the asserted
// condition; Msg may be nil.
type Assert struct {
	Base
	Test Instruction
	Msg  Instruction
}

// ---------------------------------------------------------------------------
// Structured constructs
// ---------------------------------------------------------------------------

// While is a top-tested loop. Cond nil means while (true).
type While struct {
	Base
	Label string
	Cond  Instruction
	Body  []Instruction
}

// DoWhile is a bottom-tested loop.
type DoWhile struct {
	Base
	Label string
	Body  []Instruction
	Cond  Instruction
}

// For is a counted loop.
type For struct {
	Base
	Label  string
	Init   []Instruction
	Cond   Instruction
	Update []Instruction
	Body   []Instruction
}

// ForEach iterates Iterable (an array or java.lang.Iterable), binding each
// element to the local Var.
type ForEach struct {
	Base
	Label    string
	Var      *Load
	Iterable Instruction
	Body     []Instruction
}

// If runs Then when Cond holds.
type If struct {
	Base
	Cond Instruction
	Then []Instruction
}

// IfElse runs Then when Cond holds, else Else.
type IfElse struct {
	Base
	Cond Instruction
	Then []Instruction
	Else []Instruction
}

// Case is one switch arm. Cases sharing a body carry all their keys.
type Case struct {
	Keys    []int32
	Default bool
	Body    []Instruction
}

// Switch dispatches on Key.
type Switch struct {
	Base
	Label string
	Key   Instruction
	Cases []*Case
}

// Catch is one handler of a Try. Var is nil when the exception is
// discarded.
type Catch struct {
	Types []string
	Var   *Load
	Body  []Instruction
}

// Try is try/catch/finally.
type Try struct {
	Base
	Body    []Instruction
	Catches []*Catch
	Finally []Instruction
}

// Synchronized holds Lock's monitor while running Body.
type Synchronized struct {
	Base
	Lock Instruction
	Body []Instruction
}

// Declaration introduces a local variable, optionally initialized.
type Declaration struct {
	Base
	Slot int
	Name string
	Type string
	Init Instruction
}

// Label marks the target of a Goto emitted for irreducible flow.
type Label struct {
	Base
	Name string
}

// Break leaves the innermost loop or switch, or the one named Label.
type Break struct {
	Base
	Label string
}

// Continue restarts the innermost loop, or the one named Label.
type Continue struct {
	Base
	Label string
}

// Goto jumps to the Label named Label at bytecode offset Target. It only
// appears when control flow could not be nested.
type Goto struct {
	Base
	Target int
	Label  string
}
