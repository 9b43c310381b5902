package decompile

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/ir"
)

// FieldState is what decompilation learned about a declared field.
type FieldState struct {
	Synthetic   bool
	Initializer ir.Instruction
}

// ClassContext is the state the methods of one class share. It is safe
// for concurrent use.
type ClassContext struct {
	cf *classfile.ClassFile

	mu      sync.Mutex
	fields  map[string]*FieldState
	methods map[string]bool // synthetic methods by name+descriptor
}

// NewClassContext returns a context for cf.
func NewClassContext(cf *classfile.ClassFile) *ClassContext {
	cc := &ClassContext{
		cf:      cf,
		fields:  map[string]*FieldState{},
		methods: map[string]bool{},
	}
	for _, f := range cf.Fields {
		cc.fields[f.Name] = &FieldState{Synthetic: f.Access&classfile.AccSynthetic != 0}
	}
	for _, m := range cf.Methods {
		if m.Access&classfile.AccSynthetic != 0 {
			cc.methods[m.Key()] = true
		}
	}
	return cc
}

func (cc *ClassContext) Name() string { return cc.cf.Name }

func (cc *ClassContext) Pool() *classfile.ConstantPool { return cc.cf.Pool }

func (cc *ClassContext) Field(name string) (*classfile.Field, int) { return cc.cf.Field(name) }

func (cc *ClassContext) Method(name, desc string) *classfile.Method { return cc.cf.Method(name, desc) }

// FieldNames lists the declared fields in declaration order.
func (cc *ClassContext) FieldNames() []string {
	names := make([]string, len(cc.cf.Fields))
	for i, f := range cc.cf.Fields {
		names[i] = f.Name
	}
	return names
}

// MarkSynthetic flags a field, or a method when member carries a
// descriptor.
func (cc *ClassContext) MarkSynthetic(member string) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if strings.Contains(member, "(") {
		cc.methods[member] = true
		return
	}
	if fs := cc.fields[member]; fs != nil {
		fs.Synthetic = true
	}
}

// SetInitializer records the declared initializer of a field.
func (cc *ClassContext) SetInitializer(field string, value ir.Instruction) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if fs := cc.fields[field]; fs != nil {
		fs.Initializer = value
	}
}

// FieldState returns a copy of the state of a declared field.
func (cc *ClassContext) FieldState(name string) (FieldState, bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	fs := cc.fields[name]
	if fs == nil {
		return FieldState{}, false
	}
	return *fs, true
}

// IsSyntheticMethod reports whether the method keyed by name+descriptor
// is compiler generated.
func (cc *ClassContext) IsSyntheticMethod(key string) bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.methods[key]
}

// ClassResult is the output for one class.
type ClassResult struct {
	Name string
	// Methods are in declaration order.
	Methods []*MethodResult
	// FieldNames are in declaration order.
	FieldNames []string
	Fields     map[string]FieldState
	// Synthetic lists compiler-generated methods by name+descriptor.
	Synthetic map[string]bool
}

// Counts tallies method outcomes.
func (r *ClassResult) Counts() map[Outcome]int {
	counts := map[Outcome]int{}
	for _, m := range r.Methods {
		counts[m.Outcome]++
	}
	return counts
}

// Class decompiles every method of cf. Methods run in parallel up to
// opts.Workers; the static initializer runs after all others so that it
// sees the fields they marked synthetic. ctx is checked between methods.
func Class(ctx context.Context, cf *classfile.ClassFile, opts Options) (*ClassResult, error) {
	cc := NewClassContext(cf)
	results := make([]*MethodResult, len(cf.Methods))
	clinit := -1

	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, m := range cf.Methods {
		if m.Name == "<clinit>" {
			clinit = i
			continue
		}
		i, m := i, m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Method(cc, m, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if clinit >= 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results[clinit] = Method(cc, cf.Methods[clinit], opts)
	}

	res := &ClassResult{
		Name:       cf.Name,
		Methods:    results,
		FieldNames: cc.FieldNames(),
		Fields:     map[string]FieldState{},
		Synthetic:  map[string]bool{},
	}
	for _, f := range cf.Fields {
		res.Fields[f.Name], _ = cc.FieldState(f.Name)
	}
	for _, m := range cf.Methods {
		if cc.IsSyntheticMethod(m.Key()) {
			res.Synthetic[m.Key()] = true
		}
	}
	counts := res.Counts()
	log.Debugf("%s: %d methods, %d partial, %d failed", cf.Name, len(results), counts[OutcomePartial], counts[OutcomeFailed])
	return res, nil
}
