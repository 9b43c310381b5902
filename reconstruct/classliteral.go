package reconstruct

import (
	"strings"

	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/pkg/bytecode"
)

const (
	classNotFound  = "java/lang/ClassNotFoundException"
	classDesc      = "Ljava/lang/Class;"
	helperName     = "class$"
	helperDesc     = "(Ljava/lang/String;)Ljava/lang/Class;"
	noClassDefErr  = "java/lang/NoClassDefFoundError"
	forNameOwner   = "java/lang/Class"
	forNameMethod  = "forName"
	getMessageName = "getMessage"
)

// classLiteral is one matched holder-field idiom.
type classLiteral struct {
	start, end int // instruction indices, end exclusive
	field      string
	name       string // internal name or array descriptor
	entry      int    // exception entry to drop, or -1
	helper     bool   // uses the javac class$ helper
}

// ClassLiterals folds the cached Class.forName idioms that pre-1.5
// compilers emit for Foo.class into single class-constant loads. Two
// layouts are recognized:
//
//	javac                          Eclipse
//	getstatic F                    getstatic F
//	ifnonnull L1                   dup
//	ldc "pkg.Foo"                  ifnonnull L
//	invokestatic class$            pop
//	dup                            ldc "pkg.Foo"            ; try
//	putstatic F                    invokestatic Class.forName
//	goto L2                        dup
//	L1: getstatic F                putstatic F
//	L2:                            goto L
//	                               new NoClassDefFoundError ; catch CNFE
//	                               dup_x1; swap; invokevirtual getMessage
//	                               invokespecial <init>; athrow
//	                               L:
//
// F must be a static Class field of this class and, for javac, class$
// must wrap Class.forName in a ClassNotFoundException handler. Matched
// holder fields and the helper are marked synthetic. The returned slices
// are new; the inputs are not modified.
func ClassLiterals(insns []bytecode.Insn, table []classfile.ExceptionEntry, pool *classfile.ConstantPool, cls Class) ([]bytecode.Insn, []classfile.ExceptionEntry, int) {
	if pool == nil || cls == nil {
		return insns, table, 0
	}
	var found []classLiteral
	for i := 0; i < len(insns); i++ {
		m, ok := matchJavac(insns, i, pool, cls)
		if !ok {
			m, ok = matchEclipse(insns, i, table, pool, cls)
		}
		if !ok || !isolated(insns, table, m) {
			continue
		}
		found = append(found, m)
		i = m.end - 1
	}
	if len(found) == 0 {
		return insns, table, 0
	}

	out := make([]bytecode.Insn, 0, len(insns))
	drop := map[int]bool{}
	next := 0
	for _, m := range found {
		out = append(out, insns[next:m.start]...)
		first, last := insns[m.start], insns[m.end-1]
		out = append(out, bytecode.Insn{
			Offset: first.Offset,
			Op:     bytecode.OpLdcW,
			Len:    last.End() - first.Offset,
			Slot:   -1,
			Class:  m.name,
		})
		next = m.end
		if m.entry >= 0 {
			drop[m.entry] = true
		}
		cls.MarkSynthetic(m.field)
		if m.helper {
			cls.MarkSynthetic(helperName + helperDesc)
		}
		log.Debugf("%s: class literal %s at %d", cls.Name(), m.name, first.Offset)
	}
	out = append(out, insns[next:]...)

	var entries []classfile.ExceptionEntry
	for i, e := range table {
		if !drop[i] {
			entries = append(entries, e)
		}
	}
	return out, entries, len(found)
}

// anyOp matches any instruction in ops. It is not a JVM opcode, so it
// never occurs in decoded code.
const anyOp = bytecode.Opcode(0xCB)

// ops reports whether insns[i:] starts with the given opcodes.
func ops(insns []bytecode.Insn, i int, want ...bytecode.Opcode) bool {
	if i+len(want) > len(insns) {
		return false
	}
	for k, op := range want {
		if op != anyOp && insns[i+k].Op != op {
			return false
		}
	}
	return true
}

// holderField resolves a getstatic/putstatic operand to a static Class
// field declared by this class.
func holderField(in bytecode.Insn, pool *classfile.ConstantPool, cls Class) (string, bool) {
	ref, err := pool.FieldRef(in.Index)
	if err != nil || ref.Owner != cls.Name() || ref.Descriptor != classDesc {
		return "", false
	}
	f, _ := cls.Field(ref.Name)
	if f == nil || !f.IsStatic() || f.Descriptor != classDesc {
		return "", false
	}
	return ref.Name, true
}

func sameField(a, b bytecode.Insn, pool *classfile.ConstantPool) bool {
	ra, err1 := pool.FieldRef(a.Index)
	rb, err2 := pool.FieldRef(b.Index)
	return err1 == nil && err2 == nil && ra == rb
}

// literalName reads the ldc string operand and converts it to an internal
// name.
func literalName(in bytecode.Insn, pool *classfile.ConstantPool) (string, bool) {
	if in.Op != bytecode.OpLdc && in.Op != bytecode.OpLdcW {
		return "", false
	}
	s, err := pool.StringValue(in.Index)
	if err != nil || s == "" {
		return "", false
	}
	return strings.ReplaceAll(s, ".", "/"), true
}

func isMethod(in bytecode.Insn, pool *classfile.ConstantPool, owner, name, desc string) bool {
	ref, err := pool.MethodRef(in.Index)
	if err != nil {
		return false
	}
	return (owner == "" || ref.Owner == owner) && ref.Name == name && (desc == "" || ref.Descriptor == desc)
}

func matchJavac(insns []bytecode.Insn, i int, pool *classfile.ConstantPool, cls Class) (classLiteral, bool) {
	if !ops(insns, i,
		bytecode.OpGetstatic, bytecode.OpIfnonnull, anyOp,
		bytecode.OpInvokestatic, bytecode.OpDup, bytecode.OpPutstatic,
		bytecode.OpGoto, bytecode.OpGetstatic) {
		return classLiteral{}, false
	}
	field, ok := holderField(insns[i], pool, cls)
	if !ok || !sameField(insns[i], insns[i+5], pool) || !sameField(insns[i], insns[i+7], pool) {
		return classLiteral{}, false
	}
	name, ok := literalName(insns[i+2], pool)
	if !ok {
		return classLiteral{}, false
	}
	if insns[i+1].Target != insns[i+7].Offset || insns[i+6].Target != insns[i+7].End() {
		return classLiteral{}, false
	}
	if !isMethod(insns[i+3], pool, cls.Name(), helperName, helperDesc) || !validHelper(pool, cls) {
		return classLiteral{}, false
	}
	return classLiteral{start: i, end: i + 8, field: field, name: name, entry: -1, helper: true}, true
}

// validHelper checks that class$ is the static Class.forName wrapper javac
// generates.
func validHelper(pool *classfile.ConstantPool, cls Class) bool {
	m := cls.Method(helperName, helperDesc)
	if m == nil || !m.IsStatic() || m.Code == nil {
		return false
	}
	code, err := bytecode.Decode(m.Code.Bytes)
	if err != nil {
		return false
	}
	calls := false
	for _, in := range code {
		if in.Op == bytecode.OpInvokestatic && isMethod(in, pool, forNameOwner, forNameMethod, helperDesc) {
			calls = true
		}
	}
	if !calls {
		return false
	}
	for _, e := range m.Code.Exceptions {
		if e.CatchType == classNotFound {
			return true
		}
	}
	return false
}

func matchEclipse(insns []bytecode.Insn, i int, table []classfile.ExceptionEntry, pool *classfile.ConstantPool, cls Class) (classLiteral, bool) {
	if !ops(insns, i,
		bytecode.OpGetstatic, bytecode.OpDup, bytecode.OpIfnonnull, bytecode.OpPop,
		anyOp, bytecode.OpInvokestatic, bytecode.OpDup, bytecode.OpPutstatic,
		bytecode.OpGoto, bytecode.OpNew, bytecode.OpDupX1, bytecode.OpSwap,
		bytecode.OpInvokevirtual, bytecode.OpInvokespecial, bytecode.OpAthrow) {
		return classLiteral{}, false
	}
	field, ok := holderField(insns[i], pool, cls)
	if !ok || !sameField(insns[i], insns[i+7], pool) {
		return classLiteral{}, false
	}
	name, ok := literalName(insns[i+4], pool)
	if !ok {
		return classLiteral{}, false
	}
	end := insns[i+14].End()
	if insns[i+2].Target != end || insns[i+8].Target != end {
		return classLiteral{}, false
	}
	if !isMethod(insns[i+5], pool, forNameOwner, forNameMethod, helperDesc) ||
		!isMethod(insns[i+12], pool, "", getMessageName, "()Ljava/lang/String;") ||
		!isMethod(insns[i+13], pool, noClassDefErr, "<init>", "(Ljava/lang/String;)V") {
		return classLiteral{}, false
	}
	if c, err := pool.ClassName(insns[i+9].Index); err != nil || c != noClassDefErr {
		return classLiteral{}, false
	}
	entry := -1
	for k, e := range table {
		if e.Start == insns[i+4].Offset && e.End == insns[i+6].Offset &&
			e.Handler == insns[i+9].Offset && e.CatchType == classNotFound {
			entry = k
			break
		}
	}
	if entry < 0 {
		return classLiteral{}, false
	}
	return classLiteral{start: i, end: i + 15, field: field, name: name, entry: entry}, true
}

// isolated reports whether nothing outside the match jumps into its
// interior and no other exception entry starts, ends or lands inside it.
func isolated(insns []bytecode.Insn, table []classfile.ExceptionEntry, m classLiteral) bool {
	from, to := insns[m.start].Offset, insns[m.end-1].End()
	inside := func(off int) bool { return off > from && off < to }
	for k, in := range insns {
		if k >= m.start && k < m.end {
			continue
		}
		for _, t := range in.Successors() {
			if inside(t) {
				return false
			}
		}
	}
	for k, e := range table {
		if k == m.entry {
			continue
		}
		if inside(e.Start) || inside(e.End) || inside(e.Handler) {
			return false
		}
	}
	return true
}
