// Package structure lowers a simulated control-flow graph into nested
// statements: ifs, loops, switches and try regions, with labelled jumps
// where flow leaves a construct early and gotos where it cannot be nested
// at all.
package structure

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/decaf/cfg"
	"github.com/chazu/decaf/ir"
)

var log = commonlog.GetLogger("decaf.structure")

// Result is a lowered method body.
type Result struct {
	Body []ir.Instruction

	// Irreducible is set when some flow could not be nested and the body
	// carries labels and gotos for it.
	Irreducible bool
	Gotos       int
}

type scopeKind int

const (
	loopScope scopeKind = iota
	switchScope
	tryScope
	catchScope
)

// scope is an enclosing construct that jumps can target or leave.
type scope struct {
	kind  scopeKind
	from  int     // construct offset, names generated labels
	label *string // the construct's Label, filled on first labelled jump

	cont   int // loops: continue target
	follow int // loops and switches: break target
	loop   *cfg.Loop

	ranges  []cfg.HandlerEntry // try: protected ranges
	handler int                // catch: handler block
	exit    int                // try and catch: where control leaves
}

// name returns the label a jump to s must carry, or "" when the jump
// reaches s unlabelled.
func (s *scope) name(labelled bool) string {
	if !labelled {
		return ""
	}
	if *s.label == "" {
		*s.label = fmt.Sprintf("L%d", s.from)
	}
	return *s.label
}

type lowerer struct {
	g       *cfg.Graph
	ipdom   []int
	emitted []bool
	scopes  []*scope
	stops   []int

	opened   []bool       // by handler entry
	consumed map[int]bool // handler blocks claimed by a try

	targets map[string]bool // block labels some goto jumps to
	gotos   int
}

// Lower nests the live blocks of g into statements. g must have been
// simulated and run through Processors.
func Lower(g *cfg.Graph) *Result {
	g.Analyze()
	l := &lowerer{
		g:        g,
		ipdom:    postDominators(g),
		emitted:  make([]bool, len(g.Blocks)),
		opened:   make([]bool, len(g.Handlers)),
		consumed: map[int]bool{},
		targets:  map[string]bool{},
	}

	body := l.seq(g.Entry, cfg.None)
	orphans := false
	for _, b := range g.Live() {
		if l.emitted[b.Index] || (l.empty(b) && !l.targets[blockLabel(b)]) {
			continue
		}
		if !g.Reachable(b.Index) {
			log.Debugf("dropping unreachable block [%d, %d)", b.From, b.To)
			continue
		}
		log.Warningf("block [%d, %d) is only reached by unstructured flow", b.From, b.To)
		orphans = true
		l.targets[blockLabel(b)] = true
		body = append(body, l.seq(b.Index, cfg.None)...)
	}

	dropUnusedLabels(&body, l.targets)
	foldIdioms(&body)
	return &Result{
		Body:        body,
		Irreducible: l.gotos > 0 || orphans || len(g.Irreducible) > 0,
		Gotos:       l.gotos,
	}
}

func blockLabel(b *cfg.Block) string {
	return fmt.Sprintf("B%d", b.From)
}

func lineOf(ins ir.Instruction) int {
	if ins == nil {
		return ir.UnknownLine
	}
	return ins.At().Line
}

func blockLine(b *cfg.Block) int {
	if len(b.Body) > 0 {
		return lineOf(b.Body[0])
	}
	if b.Cond != nil {
		return lineOf(b.Cond)
	}
	return lineOf(b.Key)
}

func (l *lowerer) push(s *scope) { l.scopes = append(l.scopes, s) }
func (l *lowerer) pop()          { l.scopes = l.scopes[:len(l.scopes)-1] }

func (l *lowerer) innermost() *scope {
	if len(l.scopes) == 0 {
		return nil
	}
	return l.scopes[len(l.scopes)-1]
}

func (l *lowerer) innermostLoop() *scope {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if l.scopes[i].kind == loopScope {
			return l.scopes[i]
		}
	}
	return nil
}

// inLoop reports whether the loop headed by i is already being lowered.
func (l *lowerer) inLoop(i int) bool {
	for _, s := range l.scopes {
		if s.kind == loopScope && s.loop.Header == i {
			return true
		}
	}
	return false
}

// open marks b emitted and returns its label placeholder. Placeholders no
// goto targets are dropped once lowering finishes.
func (l *lowerer) open(b *cfg.Block) []ir.Instruction {
	l.emitted[b.Index] = true
	return []ir.Instruction{&ir.Label{Base: ir.Synth(ir.OpLabel, b.From, blockLine(b)), Name: blockLabel(b)}}
}

func (l *lowerer) jump(t int) ir.Instruction {
	b := l.g.Blocks[t]
	name := blockLabel(b)
	l.targets[name] = true
	l.gotos++
	log.Debugf("goto %s", name)
	return &ir.Goto{Base: ir.Synth(ir.OpGoto, b.From, ir.UnknownLine), Target: b.From, Label: name}
}

// ============================================================================
// Sequences
// ============================================================================

// seq lowers the chain of constructs starting at start until control
// reaches stop, leaves through a jump, or ends.
func (l *lowerer) seq(start, stop int) []ir.Instruction {
	var out []ir.Instruction
	cur := start
	for {
		l.stops = append(l.stops, stop)
		next, stmts := l.block(cur, stop)
		l.stops = l.stops[:len(l.stops)-1]
		out = append(out, stmts...)

		if next == cfg.None || next == stop {
			return out
		}
		if next = l.through(next, stop); next == stop {
			return out
		}
		jump, end := l.transfer(next)
		if jump != nil {
			return append(out, jump)
		}
		if end {
			return out
		}
		cur = next
	}
}

// arm lowers a branch of a construct that starts at start and ends at stop.
func (l *lowerer) arm(start, stop int) []ir.Instruction {
	if start == stop {
		return nil
	}
	if start = l.through(start, stop); start == stop {
		return nil
	}
	jump, end := l.transfer(start)
	if jump != nil {
		return []ir.Instruction{jump}
	}
	if end {
		return nil
	}
	return l.seq(start, stop)
}

// through skips blocks with nothing to lower, such as the goto that
// follows a protected range.
func (l *lowerer) through(t, stop int) int {
	for steps := 0; t != stop && steps < len(l.g.Blocks); steps++ {
		b := l.g.Blocks[t]
		if !l.empty(b) || l.targeted(t) || contains(l.stops, t) {
			return t
		}
		t = b.Next
	}
	return t
}

func (l *lowerer) empty(b *cfg.Block) bool {
	return b.Kind == cfg.Statements && len(b.Body) == 0 && b.Next != cfg.None && b.Next != b.Index &&
		b.Flags&(cfg.TryEntry|cfg.Handler|cfg.LoopHeader) == 0
}

// transfer decides how control reaching block t is expressed. It returns
// a jump statement, or end when t is where the enclosing try or catch
// hands control back, or neither when lowering continues into t.
func (l *lowerer) transfer(t int) (jump ir.Instruction, end bool) {
	base := ir.Synth(ir.OpBreak, l.g.Blocks[t].From, ir.UnknownLine)
	breakable, looping := true, true
	for i := len(l.scopes) - 1; i >= 0; i-- {
		s := l.scopes[i]
		switch s.kind {
		case loopScope:
			if t == s.cont {
				base.Opcode = ir.OpContinue
				return &ir.Continue{Base: base, Label: s.name(!looping)}, false
			}
			if t == s.follow {
				return &ir.Break{Base: base, Label: s.name(!breakable)}, false
			}
			breakable, looping = false, false
		case switchScope:
			if t == s.follow {
				return &ir.Break{Base: base, Label: s.name(!breakable)}, false
			}
			breakable = false
		}
	}

	if s := l.innermost(); s != nil && (s.kind == tryScope || s.kind == catchScope) && l.leaves(s, t) {
		if s.exit == cfg.None {
			s.exit = t
		}
		if t == s.exit {
			return nil, true
		}
		return l.jump(t), false
	}
	for _, st := range l.stops {
		if st == t {
			return l.jump(t), false
		}
	}
	if l.emitted[t] {
		return l.jump(t), false
	}
	if s := l.innermostLoop(); s != nil && !s.loop.Contains(t) && !l.inlinable(t, s.follow) {
		return l.jump(t), false
	}
	return nil, false
}

// leaves reports whether t lies outside the try or catch scope s.
func (l *lowerer) leaves(s *scope, t int) bool {
	if s.kind == catchScope {
		return !l.g.Dominates(s.handler, t)
	}
	from := l.g.Blocks[t].From
	for _, r := range s.ranges {
		if from >= r.Start && from < r.End {
			return false
		}
	}
	return true
}

// inlinable reports whether t starts a chain of single-entry blocks that
// returns, throws or reaches follow, so it can be lowered in place where a
// loop exits to it.
func (l *lowerer) inlinable(t, follow int) bool {
	for steps := 0; steps < len(l.g.Blocks); steps++ {
		b := l.g.Blocks[t]
		if l.emitted[t] {
			return false
		}
		switch b.Kind {
		case cfg.Return, cfg.Throw:
			return true
		case cfg.Statements:
			if len(b.Preds) > 1 || b.Next == cfg.None {
				return false
			}
			if b.Next == follow {
				return true
			}
			t = b.Next
		default:
			return false
		}
	}
	return false
}

// targeted reports whether reaching t is a jump to an enclosing construct
// or to code already lowered.
func (l *lowerer) targeted(t int) bool {
	if l.emitted[t] {
		return true
	}
	for _, s := range l.scopes {
		if (s.kind == loopScope && t == s.cont) || ((s.kind == loopScope || s.kind == switchScope) && t == s.follow) {
			return true
		}
	}
	return false
}

// escapes reports whether reaching t leaves the code the current construct
// can nest.
func (l *lowerer) escapes(t int) bool {
	if l.targeted(t) {
		return true
	}
	s := l.innermostLoop()
	return s != nil && !s.loop.Contains(t)
}

// flowsTo reports whether from reaches to without passing through jump
// targets or leaving the innermost loop.
func (l *lowerer) flowsTo(from, to int) bool {
	inner := l.innermostLoop()
	seen := map[int]bool{}
	work := []int{from}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		if n == to {
			return true
		}
		if seen[n] || (n != from && l.targeted(n)) || (inner != nil && !inner.loop.Contains(n)) {
			continue
		}
		seen[n] = true
		work = append(work, l.g.Blocks[n].Succs()...)
	}
	return false
}

// ============================================================================
// Blocks
// ============================================================================

// block lowers the construct starting at block i and returns where control
// continues.
func (l *lowerer) block(i, stop int) (int, []ir.Instruction) {
	b := l.g.Blocks[i]
	lp := l.g.LoopAt(i)
	if lp != nil && l.inLoop(i) {
		lp = nil
	}
	if group := l.tryGroup(b); group != nil && (lp == nil || l.covers(group, lp)) {
		return l.try(b, group)
	}
	if lp != nil {
		return l.loop(b, lp)
	}

	out := append(l.open(b), b.Body...)
	switch b.Kind {
	case cfg.Conditional:
		return l.conditional(b, out, stop)
	case cfg.Switch:
		return l.switchBlock(b, out)
	case cfg.Return, cfg.Throw:
		return cfg.None, out
	}
	return b.Next, out
}

func (l *lowerer) conditional(b *cfg.Block, out []ir.Instruction, stop int) (int, []ir.Instruction) {
	if b.Next == b.Branch {
		return b.Next, out
	}
	cond := b.Cond
	base := ir.Synth(ir.OpIf, b.Last().Offset, lineOf(cond))

	f := l.ipdom[b.Index]
	if f == cfg.None {
		switch {
		case b.Branch == stop || b.Next == stop:
			f = stop
		case l.escapes(b.Branch) && !l.flowsTo(b.Next, b.Branch):
			return b.Next, append(out, &ir.If{Base: base, Cond: cond, Then: l.arm(b.Branch, cfg.None)})
		case l.escapes(b.Next) && !l.flowsTo(b.Branch, b.Next):
			return b.Branch, append(out, &ir.If{Base: base, Cond: ir.Negate(cond), Then: l.arm(b.Next, cfg.None)})
		case !l.flowsTo(b.Next, b.Branch):
			f = b.Branch
		case !l.flowsTo(b.Branch, b.Next):
			f = b.Next
		}
	}

	switch f {
	case b.Branch:
		return f, append(out, &ir.If{Base: base, Cond: ir.Negate(cond), Then: l.arm(b.Next, f)})
	case b.Next:
		return f, append(out, &ir.If{Base: base, Cond: cond, Then: l.arm(b.Branch, f)})
	}
	return f, append(out, &ir.IfElse{
		Base: base,
		Cond: ir.Negate(cond),
		Then: l.arm(b.Next, f),
		Else: l.arm(b.Branch, f),
	})
}

// ============================================================================
// Loops
// ============================================================================

// toward returns the condition under which conditional b goes to succ.
func toward(b *cfg.Block, succ int) ir.Instruction {
	if b.Branch == succ {
		return b.Cond
	}
	return ir.Negate(b.Cond)
}

// exitTest returns the in-loop and exiting successors of a conditional
// header, or cfg.None for both.
func exitTest(b *cfg.Block, lp *cfg.Loop) (in, out int) {
	if b.Kind != cfg.Conditional || b.Next == b.Branch {
		return cfg.None, cfg.None
	}
	switch {
	case lp.Contains(b.Next) && !lp.Contains(b.Branch):
		return b.Next, b.Branch
	case lp.Contains(b.Branch) && !lp.Contains(b.Next):
		return b.Branch, b.Next
	}
	return cfg.None, cfg.None
}

func (l *lowerer) loop(h *cfg.Block, lp *cfg.Loop) (int, []ir.Instruction) {
	s := &scope{kind: loopScope, from: h.From, cont: h.Index, follow: cfg.None, loop: lp}
	line := blockLine(h)
	in, out := exitTest(h, lp)

	// while (cond) { ... }
	if out != cfg.None && len(h.Body) == 0 {
		w := &ir.While{Base: ir.Synth(ir.OpWhile, h.From, line), Cond: toward(h, in)}
		s.follow, s.label = out, &w.Label
		label := l.open(h)
		l.push(s)
		w.Body = l.arm(in, h.Index)
		l.pop()
		w.Body = trimContinue(w.Body, w.Label)
		return out, append(label, w)
	}

	// do { ... } while (cond)
	if latch, exit, ok := bottomTest(l.g, lp); ok {
		lb := l.g.Blocks[latch]
		d := &ir.DoWhile{Base: ir.Synth(ir.OpDoWhile, h.From, line), Cond: toward(lb, h.Index)}
		s.cont, s.follow, s.label = latch, exit, &d.Label
		l.push(s)
		if latch == h.Index {
			d.Body = append(l.open(h), h.Body...)
		} else {
			d.Body = l.seq(h.Index, latch)
			if !l.emitted[latch] {
				d.Body = append(d.Body, l.open(lb)...)
				d.Body = append(d.Body, lb.Body...)
			}
		}
		l.pop()
		d.Body = trimContinue(d.Body, d.Label)
		return exit, []ir.Instruction{d}
	}

	w := &ir.While{Base: ir.Synth(ir.OpWhile, h.From, line)}
	s.label = &w.Label

	// while (true) { ...; if (exit) break; ... }, hoisted later when the
	// statements before the test fold into the condition.
	if out != cfg.None {
		s.follow = out
		body := append(l.open(h), h.Body...)
		l.push(s)
		body = append(body, &ir.If{
			Base: ir.Synth(ir.OpIf, h.Last().Offset, lineOf(h.Cond)),
			Cond: toward(h, out),
			Then: []ir.Instruction{&ir.Break{Base: ir.Synth(ir.OpBreak, h.Last().Offset, lineOf(h.Cond))}},
		})
		body = append(body, l.arm(in, h.Index)...)
		l.pop()
		w.Body = trimContinue(body, w.Label)
		return out, []ir.Instruction{w}
	}

	s.follow = l.loopFollow(lp)
	l.push(s)
	w.Body = l.seq(h.Index, h.Index)
	l.pop()
	w.Body = trimContinue(w.Body, w.Label)
	return s.follow, []ir.Instruction{w}
}

// bottomTest matches a loop whose only back edge comes from a conditional
// latch that otherwise exits the loop.
func bottomTest(g *cfg.Graph, lp *cfg.Loop) (latch, exit int, ok bool) {
	if len(lp.Latches) != 1 {
		return cfg.None, cfg.None, false
	}
	latch = lp.Latches[0]
	b := g.Blocks[latch]
	if b.Kind != cfg.Conditional {
		return cfg.None, cfg.None, false
	}
	switch {
	case b.Branch == lp.Header && !lp.Contains(b.Next):
		return latch, b.Next, true
	case b.Next == lp.Header && !lp.Contains(b.Branch):
		return latch, b.Branch, true
	}
	return cfg.None, cfg.None, false
}

// loopFollow picks where an infinite-looking loop breaks to: the earliest
// exit that is not merely a return or a lead-in to another exit.
func (l *lowerer) loopFollow(lp *cfg.Loop) int {
	exits := map[int]bool{}
	for i := range lp.Blocks {
		for _, s := range l.g.Blocks[i].Succs() {
			if !lp.Contains(s) {
				exits[s] = true
			}
		}
	}
	best := cfg.None
	for x := range exits {
		b := l.g.Blocks[x]
		if b.Kind == cfg.Return || b.Kind == cfg.Throw {
			continue
		}
		if b.Kind == cfg.Statements && len(b.Preds) == 1 && exits[b.Next] {
			continue
		}
		if l.inlinable(x, cfg.None) {
			continue
		}
		if best == cfg.None || b.From < l.g.Blocks[best].From {
			best = x
		}
	}
	return best
}

// trimContinue drops a continue of the loop labelled label that ends the
// body, looking through trailing ifs and try regions.
func trimContinue(body []ir.Instruction, label string) []ir.Instruction {
	n := len(body)
	if n == 0 {
		return body
	}
	switch last := body[n-1].(type) {
	case *ir.Continue:
		if last.Label == "" || last.Label == label {
			return body[:n-1]
		}
	case *ir.If:
		last.Then = trimContinue(last.Then, label)
	case *ir.IfElse:
		last.Then = trimContinue(last.Then, label)
		last.Else = trimContinue(last.Else, label)
	case *ir.Try:
		last.Body = trimContinue(last.Body, label)
		for _, c := range last.Catches {
			c.Body = trimContinue(c.Body, label)
		}
	case *ir.Synchronized:
		last.Body = trimContinue(last.Body, label)
	}
	return body
}

// ============================================================================
// Switches
// ============================================================================

type caseGroup struct {
	target int
	keys   []int32
	dflt   bool
}

func (l *lowerer) switchBlock(b *cfg.Block, out []ir.Instruction) (int, []ir.Instruction) {
	follow := l.ipdom[b.Index]
	sw := &ir.Switch{Base: ir.Synth(ir.OpSwitch, b.Last().Offset, lineOf(b.Key)), Key: b.Key}
	s := &scope{kind: switchScope, from: b.From, cont: cfg.None, follow: follow, label: &sw.Label}

	var groups []*caseGroup
	for _, c := range b.Cases {
		if n := len(groups); n == 0 || groups[n-1].target != c.Target {
			groups = append(groups, &caseGroup{target: c.Target})
		}
		grp := groups[len(groups)-1]
		if c.Default {
			grp.dflt = true
		} else {
			grp.keys = append(grp.keys, c.Key)
		}
	}

	l.push(s)
	for i, grp := range groups {
		c := &ir.Case{Keys: grp.keys, Default: grp.dflt}
		if grp.target == follow && follow != cfg.None {
			if len(grp.keys) == 0 {
				continue
			}
			c.Default = false
			c.Body = []ir.Instruction{&ir.Break{Base: ir.Synth(ir.OpBreak, b.Last().Offset, sw.Line)}}
		} else {
			stop := follow
			if i+1 < len(groups) {
				stop = groups[i+1].target
			}
			c.Body = l.arm(grp.target, stop)
		}
		sw.Cases = append(sw.Cases, c)
	}
	l.pop()

	if n := len(sw.Cases); n > 0 {
		last := sw.Cases[n-1]
		if k := len(last.Body); k > 0 {
			if br, ok := last.Body[k-1].(*ir.Break); ok && br.Label == "" {
				last.Body = last.Body[:k-1]
			}
		}
	}
	return follow, append(out, sw)
}

// ============================================================================
// Try regions
// ============================================================================

// tryGroup returns the unopened handler entries that protect the widest
// range starting at b, together with the other ranges of the same handlers
// that precede them.
func (l *lowerer) tryGroup(b *cfg.Block) []int {
	if !b.Has(cfg.TryEntry) {
		return nil
	}
	end := -1
	for i, e := range l.g.Handlers {
		if !l.opened[i] && e.Start == b.From && !l.consumed[e.Block] && e.End > end {
			end = e.End
		}
	}
	if end < 0 {
		return nil
	}
	var group []int
	handlers := map[int]bool{}
	for i, e := range l.g.Handlers {
		if !l.opened[i] && e.Start == b.From && e.End == end && !l.consumed[e.Block] {
			group = append(group, i)
			handlers[e.Block] = true
		}
	}
	for i, e := range l.g.Handlers {
		if !l.opened[i] && handlers[e.Block] && e.Start > b.From && e.Start < l.g.Blocks[e.Block].From && !contains(group, i) {
			group = append(group, i)
		}
	}
	return group
}

func contains[T comparable](xs []T, x T) bool {
	for _, y := range xs {
		if y == x {
			return true
		}
	}
	return false
}

// covers reports whether the group's ranges protect the whole loop.
func (l *lowerer) covers(group []int, lp *cfg.Loop) bool {
	for i := range lp.Blocks {
		from := l.g.Blocks[i].From
		in := false
		for _, h := range group {
			e := l.g.Handlers[h]
			if from >= e.Start && from < e.End {
				in = true
				break
			}
		}
		if !in {
			return false
		}
	}
	return true
}

func (l *lowerer) try(b *cfg.Block, group []int) (int, []ir.Instruction) {
	t := &ir.Try{Base: ir.Synth(ir.OpTry, b.From, blockLine(b))}
	s := &scope{kind: tryScope, from: b.From, exit: cfg.None}

	var order []int
	types := map[int][]string{}
	for _, i := range group {
		e := l.g.Handlers[i]
		l.opened[i] = true
		l.consumed[e.Block] = true
		s.ranges = append(s.ranges, e)
		if _, seen := types[e.Block]; !seen {
			order = append(order, e.Block)
		}
		if !contains(types[e.Block], e.Type) {
			types[e.Block] = append(types[e.Block], e.Type)
		}
	}

	l.push(s)
	t.Body = l.seq(b.Index, cfg.None)
	l.pop()
	exit := s.exit
	for _, h := range order {
		if contains(types[h], "") {
			if f, ok := l.rawFinally(h); ok && exit != cfg.None {
				exit = l.stripExit(exit, f, s)
			}
			break
		}
	}

	finally := false
	for _, h := range order {
		cs := &scope{kind: catchScope, from: l.g.Blocks[h].From, handler: h, exit: exit}
		l.push(cs)
		body := l.seq(h, exit)
		l.pop()
		if exit == cfg.None {
			exit = cs.exit
		}

		ts := types[h]
		if contains(ts, "") && !finally {
			if f, ok := finallyBody(body); ok {
				t.Finally, finally = f, true
				continue
			}
		}
		c := &ir.Catch{Types: catchTypes(ts)}
		c.Var, c.Body = catchVar(body)
		t.Catches = append(t.Catches, c)
	}

	if finally {
		stripFinally(&t.Body, t.Finally, true)
		for _, c := range t.Catches {
			stripFinally(&c.Body, t.Finally, true)
		}
	}
	return exit, []ir.Instruction{t}
}

// rawFinally matches the finally shape on a handler's blocks before they
// are lowered, following single-entry fallthrough.
func (l *lowerer) rawFinally(h int) ([]ir.Instruction, bool) {
	var body []ir.Instruction
	for steps := 0; steps < len(l.g.Blocks); steps++ {
		b := l.g.Blocks[h]
		body = append(body, b.Body...)
		switch b.Kind {
		case cfg.Throw:
			return finallyBody(body)
		case cfg.Statements:
			if b.Next == cfg.None {
				return nil, false
			}
			next := l.g.Blocks[b.Next]
			if len(next.Preds) != 1 || next.Has(cfg.Handler) {
				return nil, false
			}
			h = b.Next
		default:
			return nil, false
		}
	}
	return nil, false
}

// stripExit removes the finally copy the compiler places at the start of
// the code a try region falls into, and returns where control continues.
func (l *lowerer) stripExit(x int, f []ir.Instruction, s *scope) int {
	b := l.g.Blocks[x]
	if l.emitted[x] || len(f) == 0 {
		return x
	}
	for _, p := range b.Preds {
		if l.leaves(s, p) {
			return x
		}
	}
	end, ok := matchAt(b.Body, 0, f)
	if !ok {
		return x
	}
	b.Body = b.Body[end:]
	return l.through(x, cfg.None)
}

func catchTypes(ts []string) []string {
	var out []string
	for _, t := range ts {
		if t == "" {
			t = "java/lang/Throwable"
		}
		if !contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func withoutLabels(list []ir.Instruction) []ir.Instruction {
	var out []ir.Instruction
	for _, ins := range list {
		if _, ok := ins.(*ir.Label); !ok {
			out = append(out, ins)
		}
	}
	return out
}

// catchVar takes the handler's leading store of the caught exception as
// the catch variable.
func catchVar(body []ir.Instruction) (*ir.Load, []ir.Instruction) {
	for i, ins := range body {
		if _, ok := ins.(*ir.Label); ok {
			continue
		}
		st, ok := ins.(*ir.Store)
		if !ok {
			break
		}
		if _, ok := st.Value.(*ir.ExceptionLoad); !ok {
			break
		}
		v := &ir.Load{Base: st.Base, Slot: st.Slot, Type: st.Type, Name: st.Name}
		rest := append(append([]ir.Instruction(nil), body[:i]...), body[i+1:]...)
		return v, rest
	}
	return nil, body
}

// finallyBody matches a catch-any handler that stores the exception, runs
// the finally statements and rethrows.
func finallyBody(body []ir.Instruction) ([]ir.Instruction, bool) {
	list := withoutLabels(body)
	if len(list) < 2 {
		return nil, false
	}
	st, ok := list[0].(*ir.Store)
	if !ok {
		return nil, false
	}
	if _, ok := st.Value.(*ir.ExceptionLoad); !ok {
		return nil, false
	}
	th, ok := list[len(list)-1].(*ir.Throw)
	if !ok {
		return nil, false
	}
	if ld, ok := th.Value.(*ir.Load); !ok || ld.Slot != st.Slot {
		return nil, false
	}
	return append([]ir.Instruction{}, list[1:len(list)-1]...), true
}

// matchAt reports whether the statements of f, ignoring labels, appear in
// list starting at i, and where the match ends.
func matchAt(list []ir.Instruction, i int, f []ir.Instruction) (int, bool) {
	j := 0
	for ; i < len(list) && j < len(f); i++ {
		if _, ok := list[i].(*ir.Label); ok {
			continue
		}
		if !ir.Equal(list[i], f[j]) {
			return 0, false
		}
		j++
	}
	return i, j == len(f)
}

func leavesRegion(ins ir.Instruction) bool {
	switch ins.(type) {
	case *ir.Return, *ir.Break, *ir.Continue, *ir.Goto:
		return true
	}
	return false
}

// stripFinally removes the inlined copies of f that precede jumps out of
// the region and, when tail is set, the copy ending the list.
func stripFinally(list *[]ir.Instruction, f []ir.Instruction, tail bool) {
	if len(f) == 0 {
		return
	}
	out := *list
	for i := len(out) - 1; i >= 0; i-- {
		end, ok := matchAt(out, i, f)
		if !ok {
			continue
		}
		if (tail && end == len(out)) || (end < len(out) && leavesRegion(out[end])) {
			out = append(out[:i:i], out[end:]...)
		}
	}
	*list = out
	for _, ins := range out {
		for _, body := range ir.Bodies(ins) {
			stripFinally(body, f, false)
		}
	}
}

func dropUnusedLabels(list *[]ir.Instruction, used map[string]bool) {
	ir.WalkLists(list, func(p *[]ir.Instruction) {
		out := (*p)[:0]
		for _, ins := range *p {
			if lb, ok := ins.(*ir.Label); ok && !used[lb.Name] {
				continue
			}
			out = append(out, ins)
		}
		*p = out
	})
}
