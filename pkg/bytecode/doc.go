// Package bytecode describes and decodes JVM method code.
//
// The package is the lowest layer of the decompiler. It knows nothing about
// constant pool contents or control flow; it turns the bytes of a Code
// attribute into a flat list of instructions with resolved operands.
//
// # Components
//
//   - Opcodes: the full JVM instruction set (0x00-0xC9) with javap names,
//     stack effects and operand lengths
//
//   - Reader: a big-endian cursor with a sticky error, shared with the class
//     file parser
//
//   - Decode: converts code bytes into []Insn, expanding the _n load/store
//     forms, the wide prefix and the padded switch instructions, and
//     turning relative branch offsets into absolute targets
//
//   - Disassemble: javap-style listings, used for raw fallback comments
//     when a method or block cannot be structured
//
//   - Builder: an assembler with forward labels, used to write code
//     fixtures in tests
package bytecode
