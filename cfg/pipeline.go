package cfg

// Processor is one rewrite rule of the block pipeline.
type Processor interface {
	Name() string
	// Accept reports whether the rule applies at b.
	Accept(g *Graph, b *Block) bool
	// Process applies the rule at b. It is only called after Accept
	// returned true.
	Process(g *Graph, b *Block)
}

// Pipeline applies processors until none accepts any block.
type Pipeline struct {
	Processors []Processor
}

// NewPipeline returns a pipeline running procs in order.
func NewPipeline(procs ...Processor) *Pipeline {
	return &Pipeline{Processors: procs}
}

// Run scans every live block with every processor, repeating until a full
// scan changes nothing. It returns the number of scans performed. Every
// processor strictly shrinks the graph or clears its own precondition, so
// the loop is bounded; MaxPasses is a backstop against a faulty
// processor.
func (p *Pipeline) Run(g *Graph) int {
	limit := MaxPasses(g)
	passes := 0
	for passes < limit {
		passes++
		changed := false
		for _, b := range g.Live() {
			for _, proc := range p.Processors {
				if b.Has(Dead) {
					break
				}
				for !b.Has(Dead) && proc.Accept(g, b) {
					proc.Process(g, b)
					changed = true
					log.Debugf("%s at block %d [%d, %d)", proc.Name(), b.Index, b.From, b.To)
				}
			}
		}
		if !changed {
			return passes
		}
	}
	log.Warningf("block pipeline stopped after %d passes without reaching a fixed point", passes)
	return passes
}

// MaxPasses bounds Pipeline.Run for g.
func MaxPasses(g *Graph) int {
	return 2*len(g.Blocks) + 2
}
