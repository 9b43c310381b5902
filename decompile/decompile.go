// Package decompile drives the per-method pipeline: decode, fold class
// literals, build and analyze the CFG, simulate the operand stack, run the
// block processors, lower to a tree, apply the tree reconstructors and
// name locals. A method that cannot be decoded keeps its raw bytecode;
// other methods of the class are unaffected.
package decompile

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/decaf/cfg"
	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/ir"
	"github.com/chazu/decaf/locals"
	"github.com/chazu/decaf/pkg/bytecode"
	"github.com/chazu/decaf/reconstruct"
	"github.com/chazu/decaf/stack"
	"github.com/chazu/decaf/structure"
)

var log = commonlog.GetLogger("decaf.decompile")

// Outcome classifies a method result.
type Outcome int

const (
	// OutcomeOK is a fully structured body.
	OutcomeOK Outcome = iota
	// OutcomePartial is a body with raw blocks or goto markers in it.
	OutcomePartial
	// OutcomeFailed is a body replaced by the method's raw bytecode.
	OutcomeFailed
	// OutcomeNoCode is an abstract or native method.
	OutcomeNoCode
)

var outcomeNames = [...]string{"ok", "partial", "failed", "no-code"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Diagnostics are the recoverable findings of one method.
type Diagnostics struct {
	// Irreducible is set when the body carries labels and gotos.
	Irreducible bool
	Gotos       int
	// RawBlocks counts blocks kept as raw bytecode comments.
	RawBlocks     int
	Blocks        int
	Passes        int
	ClassLiterals int
	Declarations  int
	Reconstructed reconstruct.Stats
	// Err is the failure of an OutcomeFailed method.
	Err error
}

// MethodResult is the output for one method.
type MethodResult struct {
	Name        string
	Desc        string
	Body        []ir.Instruction
	Locals      []*locals.Variable
	Outcome     Outcome
	Diagnostics Diagnostics
	// Graph is the analyzed CFG, kept only with Options.KeepGraphs.
	Graph *cfg.Graph
}

// Key returns name+descriptor.
func (r *MethodResult) Key() string { return r.Name + r.Desc }

// Options tune the pipeline.
type Options struct {
	// LoopExitThreshold is the predecessor count at which a loop exit
	// stops being normalized into the loop body.
	LoopExitThreshold int
	// Workers bounds how many methods of a class run at once.
	Workers int
	// IgnoreLocalTable synthesizes every local name.
	IgnoreLocalTable bool
	// KeepGraphs retains each method's CFG in its result.
	KeepGraphs bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		LoopExitThreshold: cfg.DefaultLoopExitPredecessorThreshold,
		Workers:           4,
	}
}

// fatal reports whether err aborts the whole method.
func fatal(err error) bool {
	var dec *bytecode.DecodeError
	var mal *cfg.MalformedError
	var mcp *classfile.MalformedConstantPoolError
	var uf *stack.UnderflowError
	return errors.As(err, &dec) || errors.As(err, &mal) || errors.As(err, &mcp) || errors.As(err, &uf)
}

// Method decompiles one method of the class held by cc.
func Method(cc *ClassContext, m *classfile.Method, opts Options) *MethodResult {
	res := &MethodResult{Name: m.Name, Desc: m.Descriptor}
	if m.Code == nil {
		res.Outcome = OutcomeNoCode
		return res
	}
	if opts.LoopExitThreshold <= 0 {
		opts.LoopExitThreshold = cfg.DefaultLoopExitPredecessorThreshold
	}

	if err := run(cc, m, opts, res); err != nil {
		if !fatal(err) {
			// Anything else is a bug in a pass; keep the method readable.
			log.Errorf("%s.%s%s: unexpected failure: %v", cc.Name(), m.Name, m.Descriptor, err)
		} else {
			log.Warningf("%s.%s%s: %v", cc.Name(), m.Name, m.Descriptor, err)
		}
		fail(cc, m, res, err)
		return res
	}

	switch {
	case res.Diagnostics.Irreducible || res.Diagnostics.RawBlocks > 0:
		res.Outcome = OutcomePartial
	default:
		res.Outcome = OutcomeOK
	}
	return res
}

func run(cc *ClassContext, m *classfile.Method, opts Options, res *MethodResult) error {
	code := m.Code
	insns, err := bytecode.Decode(code.Bytes)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	insns, table, folded := reconstruct.ClassLiterals(insns, code.Exceptions, cc.Pool(), cc)
	res.Diagnostics.ClassLiterals = folded

	g, err := cfg.Build(insns, len(code.Bytes), table)
	if err != nil {
		return fmt.Errorf("cfg: %w", err)
	}
	g.Analyze()
	res.Diagnostics.Blocks = len(g.Live())

	sim, err := stack.Simulate(g, stack.Method{
		Class:  cc.Name(),
		Desc:   m.Descriptor,
		Static: m.IsStatic(),
		Pool:   cc.Pool(),
		Code:   code,
	})
	if err != nil {
		return fmt.Errorf("stack: %w", err)
	}
	res.Diagnostics.RawBlocks = len(sim.RawBlocks)

	res.Diagnostics.Passes = cfg.NewPipeline(structure.Processors(opts.LoopExitThreshold)...).Run(g)
	lowered := structure.Lower(g)
	res.Diagnostics.Irreducible = lowered.Irreducible
	res.Diagnostics.Gotos = lowered.Gotos
	if opts.KeepGraphs {
		res.Graph = g
	}

	body := lowered.Body
	lvt := append([]classfile.LocalVariable(nil), code.LocalVars...)
	res.Diagnostics.Reconstructed = reconstruct.Run(&body, reconstruct.Method{
		Name:   m.Name,
		Desc:   m.Descriptor,
		Class:  cc,
		Locals: &lvt,
	})

	set := locals.Resolve(locals.Method{
		Desc:    m.Descriptor,
		Static:  m.IsStatic(),
		CodeLen: len(code.Bytes),
		Table:   lvt,
	}, body, cc.FieldNames(), locals.Options{IgnoreTable: opts.IgnoreLocalTable})
	res.Diagnostics.Declarations = locals.Declare(&body, set)

	res.Body = body
	res.Locals = set.Vars
	return nil
}

// fail replaces the body with the method's whole bytecode listing.
func fail(cc *ClassContext, m *classfile.Method, res *MethodResult, err error) {
	res.Outcome = OutcomeFailed
	res.Diagnostics.Err = err
	res.Graph = nil
	res.Locals = nil

	var lines []string
	if insns, derr := bytecode.Decode(m.Code.Bytes); derr == nil {
		lines = bytecode.DisassembleToLines(insns, cc.Pool())
	} else {
		lines = []string{fmt.Sprintf("%d bytes: %v", len(m.Code.Bytes), derr)}
	}
	res.Body = []ir.Instruction{&ir.RawBytecode{
		Base:  ir.Synth(ir.OpRawBytecode, 0, m.Code.LineAt(0)),
		Lines: lines,
	}}
}
