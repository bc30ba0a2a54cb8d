// Package ir is the narrow surface this module consumes from the (external,
// out-of-scope) ISA semantics front-end: a symbol table naming registers and
// functions, and a function table of pre-compiled semantic functions
// expressed in a small register-transfer bytecode that the executor package
// interprets.
package ir

import (
	"fmt"
	"strings"
)

// RegisterID is a small integer into the symbol table naming an
// architectural register (spec.md §3 "Register identifier").
type RegisterID uint32

// AccessorKind distinguishes the three subfield-designation forms spec.md
// §3 allows.
type AccessorKind int

const (
	// AccessorField projects a named struct field (e.g. PSTATE.Z).
	AccessorField AccessorKind = iota
	// AccessorIndex selects a fixed array index (e.g. a vector lane).
	AccessorIndex
	// AccessorBits selects a fixed bit range [Lo, Lo+Width).
	AccessorBits
)

// Accessor is one subfield-designation step. It is a plain comparable
// struct (no slices) so that a slice of Accessor can be canonicalized into
// a string key for use in sets and maps, giving RegisterLocation structural
// equality as spec.md §3 requires.
type Accessor struct {
	Kind  AccessorKind
	Field string
	Index int
	Lo    uint32
	Width uint32
}

// FieldAccessor builds a field-projection accessor.
func FieldAccessor(name string) Accessor { return Accessor{Kind: AccessorField, Field: name} }

// IndexAccessor builds a fixed array-index accessor.
func IndexAccessor(i int) Accessor { return Accessor{Kind: AccessorIndex, Index: i} }

// BitsAccessor builds a fixed bit-range accessor.
func BitsAccessor(lo, width uint32) Accessor { return Accessor{Kind: AccessorBits, Lo: lo, Width: width} }

func (a Accessor) String() string {
	switch a.Kind {
	case AccessorField:
		return "." + a.Field
	case AccessorIndex:
		return fmt.Sprintf("[%d]", a.Index)
	case AccessorBits:
		return fmt.Sprintf("<%d:%d>", a.Lo, a.Lo+a.Width-1)
	default:
		return "?"
	}
}

// RegisterLocation is the pair (id, accessors) from spec.md §3. Equality
// and hashing are structural: two RegisterLocations referring to the same
// register and the same accessor path are the same location regardless of
// how they were constructed.
type RegisterLocation struct {
	ID        RegisterID
	Accessors []Accessor
}

// Key returns a canonical string encoding suitable for use as a map key,
// giving RegisterLocation the structural (not pointer) equality spec.md §3
// requires.
func (r RegisterLocation) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", r.ID)
	for _, a := range r.Accessors {
		b.WriteString(a.String())
	}
	return b.String()
}

func (r RegisterLocation) String() string { return r.Key() }

// Reg builds a whole-register location with no accessors.
func Reg(id RegisterID) RegisterLocation { return RegisterLocation{ID: id} }

// WithAccessors builds a subfield location.
func WithAccessors(id RegisterID, accessors ...Accessor) RegisterLocation {
	return RegisterLocation{ID: id, Accessors: accessors}
}
