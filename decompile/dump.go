package decompile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/decaf/ir"
)

// Fprint writes the debug dump of r: the class's fields with their
// recovered state, then every method body as ir.Sprint prints it.
func Fprint(w io.Writer, r *ClassResult) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "class %s\n", r.Name)
	for _, name := range r.FieldNames {
		fs := r.Fields[name]
		line := "  field " + name
		if fs.Initializer != nil {
			line += " = " + ir.SprintNode(fs.Initializer)
		}
		if fs.Synthetic {
			line += " [synthetic]"
		}
		fmt.Fprintln(bw, line)
	}
	for _, m := range r.Methods {
		if m == nil {
			continue
		}
		tags := []string{m.Outcome.String()}
		if r.Synthetic[m.Key()] {
			tags = append(tags, "synthetic")
		}
		if m.Diagnostics.Irreducible {
			tags = append(tags, fmt.Sprintf("gotos=%d", m.Diagnostics.Gotos))
		}
		if n := m.Diagnostics.RawBlocks; n > 0 {
			tags = append(tags, fmt.Sprintf("raw=%d", n))
		}
		fmt.Fprintf(bw, "method %s%s [%s]\n", m.Name, m.Desc, strings.Join(tags, " "))
		if err := m.Diagnostics.Err; err != nil {
			fmt.Fprintf(bw, "  // %v\n", err)
		}
		for _, l := range strings.SplitAfter(ir.Sprint(m.Body), "\n") {
			if l != "" {
				bw.WriteString("  " + l)
			}
		}
	}
	return bw.Flush()
}
