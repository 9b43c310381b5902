package locals

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/chazu/decaf/classfile"
)

// intNames is the pool int variables draw from before falling back to
// i1, i2, ...
var intNames = []string{"i", "j", "k", "m", "n"}

var primitiveNames = map[byte]string{
	'B': "b",
	'C': "c",
	'D': "d",
	'F': "f",
	'J': "l",
	'S': "s",
	'Z': "bool",
	'I': "i",
}

var classNames = map[string]string{
	"String": "str",
	"Object": "obj",
	"Class":  "clazz",
}

var keywords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "class": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extends": true, "final": true, "finally": true, "float": true,
	"for": true, "goto": true, "if": true, "implements": true, "import": true,
	"instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true,
	"return": true, "short": true, "static": true, "strictfp": true, "super": true,
	"switch": true, "synchronized": true, "this": true, "throw": true, "throws": true,
	"transient": true, "try": true, "void": true, "volatile": true, "while": true,
	"true": true, "false": true, "null": true, "var": true, "record": true, "yield": true,
}

// BaseName is the name stem for a variable of the given field descriptor,
// before uniqueness suffixes.
func BaseName(desc string) string {
	dims, elem := classfile.ArrayDims(desc)
	base := elementName(elem)
	switch {
	case dims == 1:
		return base + "Arr"
	case dims > 1:
		return base + "Arr" + strconv.Itoa(dims) + "d"
	}
	return base
}

func elementName(desc string) string {
	if len(desc) == 1 {
		if n, ok := primitiveNames[desc[0]]; ok {
			return n
		}
	}
	simple := classfile.SimpleName(classfile.InternalName(desc))
	if simple == "" {
		return "obj"
	}
	if n, ok := classNames[simple]; ok {
		return n
	}
	// Leading digits come from anonymous classes (Foo$1).
	simple = strings.TrimLeftFunc(simple, unicode.IsDigit)
	if simple == "" {
		return "obj"
	}
	r := []rune(simple)
	// URLConnection -> urlConnection
	i := 0
	for i < len(r) && unicode.IsUpper(r[i]) {
		i++
	}
	if i > 1 && i < len(r) {
		i--
	}
	if i == 0 {
		i = 1
	}
	for k := 0; k < i; k++ {
		r[k] = unicode.ToLower(r[k])
	}
	return string(r)
}

// namer hands out names unique within one method.
type namer struct {
	taken map[string]bool
}

func newNamer(fields []string) *namer {
	n := &namer{taken: map[string]bool{}}
	for _, f := range fields {
		n.taken[f] = true
	}
	return n
}

func (n *namer) reserve(name string) { n.taken[name] = true }

func (n *namer) free(name string) bool { return !n.taken[name] && !keywords[name] }

// next returns the first free name for desc: ints try the loop-counter
// pool first, everything else appends 1, 2, ... to its stem.
func (n *namer) next(desc string) string {
	var name string
	if desc == "I" {
		name = n.pick(intNames, "i")
	} else {
		base := BaseName(desc)
		name = n.pick([]string{base}, base)
	}
	n.reserve(name)
	return name
}

func (n *namer) pick(pool []string, stem string) string {
	for _, c := range pool {
		if n.free(c) {
			return c
		}
	}
	for i := 1; ; i++ {
		if c := stem + strconv.Itoa(i); n.free(c) {
			return c
		}
	}
}
