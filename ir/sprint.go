package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Sprint renders a statement list as an indented debug tree, one statement
// per line. It is the format used by tests and the -dump CLI mode; it is not
// Java source.
func Sprint(list []Instruction) string {
	var sb strings.Builder
	printList(&sb, list, 0)
	return sb.String()
}

// SprintNode renders a single node. Structured nodes span several lines.
func SprintNode(ins Instruction) string {
	var sb strings.Builder
	printStmt(&sb, ins, 0)
	return strings.TrimSuffix(sb.String(), "\n")
}

// Equal reports whether a and b are structurally identical, ignoring
// offsets, lines and opcodes.
func Equal(a, b Instruction) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return SprintNode(a) == SprintNode(b)
}

// EqualLists is Equal for statement lists.
func EqualLists(a, b []Instruction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func indent(sb *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		sb.WriteString("  ")
	}
}

func printList(sb *strings.Builder, list []Instruction, depth int) {
	for _, ins := range list {
		printStmt(sb, ins, depth)
	}
}

func line(sb *strings.Builder, depth int, format string, args ...any) {
	indent(sb, depth)
	fmt.Fprintf(sb, format, args...)
	sb.WriteByte('\n')
}

func labelled(label, s string) string {
	if label == "" {
		return s
	}
	return label + ": " + s
}

func printStmt(sb *strings.Builder, ins Instruction, depth int) {
	switch n := ins.(type) {
	case *While:
		cond := "true"
		if n.Cond != nil {
			cond = expr(n.Cond)
		}
		line(sb, depth, "%s", labelled(n.Label, "While("+cond+")"))
		printList(sb, n.Body, depth+1)
	case *DoWhile:
		line(sb, depth, "%s", labelled(n.Label, "DoWhile("+expr(n.Cond)+")"))
		printList(sb, n.Body, depth+1)
	case *For:
		cond := "true"
		if n.Cond != nil {
			cond = expr(n.Cond)
		}
		line(sb, depth, "%s", labelled(n.Label, "For("+cond+")"))
		if len(n.Init) > 0 {
			line(sb, depth+1, "Init")
			printList(sb, n.Init, depth+2)
		}
		if len(n.Update) > 0 {
			line(sb, depth+1, "Update")
			printList(sb, n.Update, depth+2)
		}
		line(sb, depth+1, "Body")
		printList(sb, n.Body, depth+2)
	case *ForEach:
		line(sb, depth, "%s", labelled(n.Label, "ForEach("+expr(n.Var)+" : "+expr(n.Iterable)+")"))
		printList(sb, n.Body, depth+1)
	case *If:
		line(sb, depth, "If(%s)", expr(n.Cond))
		printList(sb, n.Then, depth+1)
	case *IfElse:
		line(sb, depth, "If(%s)", expr(n.Cond))
		printList(sb, n.Then, depth+1)
		line(sb, depth, "Else")
		printList(sb, n.Else, depth+1)
	case *Switch:
		line(sb, depth, "%s", labelled(n.Label, "Switch("+expr(n.Key)+")"))
		for _, c := range n.Cases {
			var keys []string
			for _, k := range c.Keys {
				keys = append(keys, strconv.Itoa(int(k)))
			}
			if c.Default {
				keys = append(keys, "default")
			}
			line(sb, depth+1, "Case %s", strings.Join(keys, ", "))
			printList(sb, c.Body, depth+2)
		}
	case *Try:
		line(sb, depth, "Try")
		printList(sb, n.Body, depth+1)
		for _, c := range n.Catches {
			types := strings.Join(c.Types, "|")
			if types == "" {
				types = "any"
			}
			if c.Var != nil {
				types += " " + expr(c.Var)
			}
			line(sb, depth, "Catch(%s)", types)
			printList(sb, c.Body, depth+1)
		}
		if n.Finally != nil {
			line(sb, depth, "Finally")
			printList(sb, n.Finally, depth+1)
		}
	case *Synchronized:
		line(sb, depth, "Synchronized(%s)", expr(n.Lock))
		printList(sb, n.Body, depth+1)
	case *RawBytecode:
		line(sb, depth, "RawBytecode")
		for _, l := range n.Lines {
			line(sb, depth+1, "%s", l)
		}
	default:
		line(sb, depth, "%s", expr(ins))
	}
}

func exprs(xs []Instruction) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = expr(x)
	}
	return strings.Join(parts, ", ")
}

func call(name string, args ...string) string {
	var nonEmpty []string
	for _, a := range args {
		if a != "" {
			nonEmpty = append(nonEmpty, a)
		}
	}
	return name + "(" + strings.Join(nonEmpty, ", ") + ")"
}

func local(slot int, name string) string {
	if name == "" {
		return strconv.Itoa(slot)
	}
	return strconv.Itoa(slot) + " " + name
}

func optExpr(x Instruction) string {
	if x == nil {
		return ""
	}
	return expr(x)
}

func constText(c *Const) string {
	switch c.Kind {
	case ConstNull:
		return "null"
	case ConstString:
		s, _ := c.Value.(string)
		return strconv.Quote(s)
	case ConstLong:
		return fmt.Sprintf("%vL", c.Value)
	case ConstFloat:
		return fmt.Sprintf("%vf", c.Value)
	case ConstDouble:
		v, _ := c.Value.(float64)
		return strconv.FormatFloat(v, 'g', -1, 64) + "d"
	case ConstClass:
		return fmt.Sprintf("class %v", c.Value)
	case ConstMethodType:
		return fmt.Sprintf("methodtype %v", c.Value)
	}
	return fmt.Sprint(c.Value)
}

func expr(ins Instruction) string {
	switch n := ins.(type) {
	case nil:
		return "<nil>"
	case *Const:
		return call("Const", constText(n))
	case *Load:
		return call("Load", local(n.Slot, n.Name))
	case *GetStatic:
		return call("GetStatic", n.Field.Owner+"."+n.Field.Name)
	case *New:
		return call("New", n.Class)
	case *ExceptionLoad:
		t := n.Type
		if t == "" {
			t = "any"
		}
		return call("ExceptionLoad", t)
	case *DupLoad:
		return call("DupLoad", "@"+strconv.Itoa(n.Key))
	case *TernaryOpLoad:
		return call("TernaryOpLoad", "#"+strconv.Itoa(n.Key))
	case *RawBytecode:
		return call("RawBytecode", strconv.Itoa(len(n.Lines)))
	case *GetField:
		return call("GetField", expr(n.Object), n.Field.Name)
	case *BinaryOp:
		return call("BinaryOp", n.Operator, expr(n.Left), expr(n.Right))
	case *UnaryOp:
		return call("UnaryOp", n.Operator, expr(n.Operand))
	case *Convert:
		return call("Convert", n.To, expr(n.Value))
	case *CheckCast:
		return call("CheckCast", n.Class, expr(n.Value))
	case *InstanceOf:
		return call("InstanceOf", n.Class, expr(n.Value))
	case *Compare:
		return call("Compare", n.Operator, expr(n.Left), expr(n.Right))
	case *Not:
		return call("Not", expr(n.Operand))
	case *ComplexCond:
		return call("ComplexCond", n.Op, exprs(n.Conds))
	case *ArrayLoad:
		return call("ArrayLoad", expr(n.Array), expr(n.Index))
	case *ArrayLength:
		return call("ArrayLength", expr(n.Array))
	case *NewArray:
		return call("NewArray", n.Desc, exprs(n.Dims))
	case *Invoke:
		return call("Invoke", n.Kind.String()+" "+n.Method.Owner+"."+n.Method.Name, optExpr(n.Object), exprs(n.Args))
	case *InvokeNew:
		return call("InvokeNew", n.Class, exprs(n.Args))
	case *TernaryOp:
		return call("TernaryOp", expr(n.Cond), expr(n.Then), expr(n.Else))
	case *Assign:
		return call("Assign", n.Op+"=", expr(n.Target), expr(n.Value))
	case *Inc:
		fix := "post"
		if n.Prefix {
			fix = "pre"
		}
		return call("Inc", expr(n.Target), fmt.Sprintf("%+d", n.Delta), fix)
	case *Store:
		return call("Store", local(n.Slot, n.Name), expr(n.Value))
	case *IInc:
		return call("IInc", local(n.Slot, n.Name), fmt.Sprintf("%+d", n.Delta))
	case *PutStatic:
		return call("PutStatic", n.Field.Owner+"."+n.Field.Name, expr(n.Value))
	case *PutField:
		return call("PutField", expr(n.Object), n.Field.Name, expr(n.Value))
	case *ArrayStore:
		return call("ArrayStore", expr(n.Array), expr(n.Index), expr(n.Value))
	case *Return:
		return call("Return", optExpr(n.Value))
	case *Throw:
		return call("Throw", expr(n.Value))
	case *MonitorEnter:
		return call("MonitorEnter", expr(n.Lock))
	case *MonitorExit:
		return call("MonitorExit", expr(n.Lock))
	case *ExprStmt:
		return call("ExprStmt", expr(n.Value))
	case *DupStore:
		return call("DupStore", "@"+strconv.Itoa(n.Offset), expr(n.Value))
	case *TernaryOpStore:
		return call("TernaryOpStore", "#"+strconv.Itoa(n.Key), expr(n.Value))
	case *Assert:
		return call("Assert", expr(n.Test), optExpr(n.Msg))
	case *Declaration:
		return call("Declaration", n.Type+" "+n.Name, optExpr(n.Init))
	case *Label:
		return call("Label", n.Name)
	case *Break:
		return call("Break", n.Label)
	case *Continue:
		return call("Continue", n.Label)
	case *Goto:
		return call("Goto", n.Label)
	}
	// Structured statements in expression position only occur in Equal.
	return strings.ReplaceAll(SprintNode(ins), "\n", "; ")
}
