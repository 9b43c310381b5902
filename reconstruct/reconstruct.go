// Package reconstruct folds compiler idioms back into the source constructs
// they were generated from.
//
// ClassLiterals works on decoded instructions before the CFG is built.
// Everything else runs over the structured tree produced by package
// structure, in the fixed order listed in Passes. Each tree pass scans its
// statement lists backward and replaces a matched run with one node, so
// indices not yet visited stay valid and a replacement is never matched
// again by the same pass.
package reconstruct

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/ir"
)

var log = commonlog.GetLogger("decaf.reconstruct")

// Class is the per-class state shared by every method of one class. Its
// methods must be safe for concurrent use when methods are processed in
// parallel.
type Class interface {
	// Name is the class's internal name.
	Name() string
	// Field returns the declared field and its index in declaration
	// order, or nil and -1.
	Field(name string) (*classfile.Field, int)
	// Method returns the declared method, or nil.
	Method(name, desc string) *classfile.Method
	// MarkSynthetic flags a field (by name) or method (by name+descriptor)
	// as compiler generated.
	MarkSynthetic(member string)
	// SetInitializer records value as the declared initializer of a
	// static field.
	SetInitializer(field string, value ir.Instruction)
}

// Method is what the tree passes know about the method being rebuilt.
type Method struct {
	Name  string
	Desc  string
	Class Class
	// Locals is the method's LocalVariableTable. StoreReturn removes the
	// entries of variables it compacts away.
	Locals *[]classfile.LocalVariable
}

// Pass is one tree reconstructor.
type Pass struct {
	Name string
	run  func(r *run) int
}

// Passes is the fixed order the tree reconstructors run in. Later passes
// rely on the shapes earlier ones leave behind: assert matching expects
// dup bindings resolved, compound assignment expects chains folded.
var Passes = []Pass{
	{"ternary-inline", ternaryInline},
	{"dup-elimination", dupElimination},
	{"assignment-chain", assignmentChain},
	{"assert", asserts},
	{"compound-assignment", compoundAssignment},
	{"static-field-initializer", staticFieldInitializers},
	{"store-return", storeReturn},
	{"implicit-return", implicitReturn},
}

// Stats counts how often each pass fired.
type Stats map[string]int

type run struct {
	root *[]ir.Instruction
	m    Method
}

// Run applies every pass in order to body and reports how often each one
// fired.
func Run(body *[]ir.Instruction, m Method) Stats {
	r := &run{root: body, m: m}
	stats := Stats{}
	for _, p := range Passes {
		if n := p.run(r); n > 0 {
			stats[p.Name] = n
			log.Debugf("%s%s: %s fired %d times", m.Name, m.Desc, p.Name, n)
		}
	}
	return stats
}

// scan visits every statement list under root backward. match inspects
// list[i]; when it rewrites list[from:i+1] into one node it returns from
// and true, and scanning resumes before from. A match that deletes list[i]
// outright returns i.
func scan(root *[]ir.Instruction, match func(list *[]ir.Instruction, i int) (from int, ok bool)) int {
	fired := 0
	ir.WalkLists(root, func(list *[]ir.Instruction) {
		for i := len(*list) - 1; i >= 0; i-- {
			if from, ok := match(list, i); ok {
				fired++
				i = from
			}
		}
	})
	return fired
}
