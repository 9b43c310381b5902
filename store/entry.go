// Package store caches decompilation results by content. An entry is keyed
// by the SHA-256 of the class file bytes and the options it was
// decompiled with, and holds a CBOR summary of the result.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/decaf/decompile"
	"github.com/chazu/decaf/ir"
)

var log = commonlog.GetLogger("decaf.store")

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Key addresses one class under one set of options.
type Key [32]byte

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// KeyFor hashes the class file bytes together with the options that
// affect output.
func KeyFor(class []byte, opts decompile.Options) (Key, error) {
	// Worker count does not change results.
	opts.Workers = 0
	enc, err := cborEncMode.Marshal(opts)
	if err != nil {
		return Key{}, fmt.Errorf("store: encode options: %w", err)
	}
	h := sha256.New()
	h.Write(class)
	h.Write(enc)
	var k Key
	copy(k[:], h.Sum(nil))
	return k, nil
}

// Entry is the cached summary of one decompiled class.
type Entry struct {
	RunID   string        `cbor:"run"`
	Class   string        `cbor:"class"`
	Fields  []FieldEntry  `cbor:"fields"`
	Methods []MethodEntry `cbor:"methods"`
}

// FieldEntry is the recovered state of one field.
type FieldEntry struct {
	Name        string `cbor:"name"`
	Synthetic   bool   `cbor:"synthetic,omitempty"`
	Initializer string `cbor:"init,omitempty"`
}

// MethodEntry is one method's outcome and printed body.
type MethodEntry struct {
	Name      string   `cbor:"name"`
	Desc      string   `cbor:"desc"`
	Outcome   string   `cbor:"outcome"`
	Synthetic bool     `cbor:"synthetic,omitempty"`
	Body      string   `cbor:"body"`
	Locals    []string `cbor:"locals,omitempty"`
	Gotos     int      `cbor:"gotos,omitempty"`
	RawBlocks int      `cbor:"raw,omitempty"`
	Error     string   `cbor:"error,omitempty"`
}

// NewEntry summarizes r for run.
func NewEntry(run uuid.UUID, r *decompile.ClassResult) *Entry {
	e := &Entry{RunID: run.String(), Class: r.Name}
	for _, name := range r.FieldNames {
		fs := r.Fields[name]
		fe := FieldEntry{Name: name, Synthetic: fs.Synthetic}
		if fs.Initializer != nil {
			fe.Initializer = ir.SprintNode(fs.Initializer)
		}
		e.Fields = append(e.Fields, fe)
	}
	for _, m := range r.Methods {
		if m == nil {
			continue
		}
		me := MethodEntry{
			Name:      m.Name,
			Desc:      m.Desc,
			Outcome:   m.Outcome.String(),
			Synthetic: r.Synthetic[m.Key()],
			Body:      ir.Sprint(m.Body),
			Gotos:     m.Diagnostics.Gotos,
			RawBlocks: m.Diagnostics.RawBlocks,
		}
		for _, v := range m.Locals {
			me.Locals = append(me.Locals, v.Name)
		}
		if m.Diagnostics.Err != nil {
			me.Error = m.Diagnostics.Err.Error()
		}
		e.Methods = append(e.Methods, me)
	}
	return e
}

// Marshal serializes an Entry to canonical CBOR.
func Marshal(e *Entry) ([]byte, error) {
	return cborEncMode.Marshal(e)
}

// Unmarshal deserializes an Entry from CBOR bytes.
func Unmarshal(data []byte) (*Entry, error) {
	var e Entry
	if err := cbor.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("store: unmarshal entry: %w", err)
	}
	return &e, nil
}
