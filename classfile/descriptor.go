package classfile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadDescriptor is returned for descriptors that do not follow the JVM
// grammar.
var ErrBadDescriptor = errors.New("classfile: malformed descriptor")

// fieldTypeLen returns the length of the field descriptor at the start of s.
func fieldTypeLen(s string) int {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return -1
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 2 {
			return -1
		}
		return i + end + 1
	}
	return -1
}

// ParseMethodDescriptor splits "(IJLjava/lang/String;)V" into parameter
// descriptors and the return descriptor.
func ParseMethodDescriptor(desc string) (params []string, ret string, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
	}
	rest := desc[1:]
	for len(rest) > 0 && rest[0] != ')' {
		n := fieldTypeLen(rest)
		if n < 0 {
			return nil, "", fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
		}
		params = append(params, rest[:n])
		rest = rest[n:]
	}
	if len(rest) == 0 {
		return nil, "", fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
	}
	ret = rest[1:]
	if ret != "V" && fieldTypeLen(ret) != len(ret) {
		return nil, "", fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
	}
	return params, ret, nil
}

// SlotSize returns the number of local slots a value of the given field
// descriptor occupies.
func SlotSize(desc string) int {
	if desc == "J" || desc == "D" {
		return 2
	}
	return 1
}

// ArrayDims returns the dimension count and element descriptor of an array
// descriptor. Non-arrays return 0 and desc unchanged.
func ArrayDims(desc string) (dims int, elem string) {
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	return dims, desc[dims:]
}

// ObjectDescriptor turns an internal name into a field descriptor. Array
// names are already descriptors.
func ObjectDescriptor(internal string) string {
	if strings.HasPrefix(internal, "[") {
		return internal
	}
	return "L" + internal + ";"
}

// InternalName returns the class name of an object descriptor
// ("Ljava/lang/String;" -> "java/lang/String"), or "" for primitives and
// arrays.
func InternalName(desc string) string {
	if len(desc) > 2 && desc[0] == 'L' && desc[len(desc)-1] == ';' {
		return desc[1 : len(desc)-1]
	}
	return ""
}

// SimpleName strips package, outer classes and generic arguments from an
// internal or binary class name: "java/util/Map$Entry<K,V>" -> "Entry".
func SimpleName(name string) string {
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexAny(name, "/."); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '$'); i >= 0 && i < len(name)-1 {
		name = name[i+1:]
	}
	return name
}
