// Package value defines the tagged-union Value type that is the common
// currency between the symbolic executor, the memory model, and the SMT
// layer, along with the symbolic-variable handle (Sym) values of that kind
// carry.
package value

import (
	"fmt"
	"math/big"

	"github.com/sarchlab/islafoot/bv"
)

// Sym names an SMT bitvector or boolean constant. It is opaque outside the
// smt package, which is the only place new Sym values are minted.
type Sym uint64

// Value is the tagged union described in spec.md §3: a concrete bitvector,
// a symbolic variable handle, a boolean, a small integer, a 128-bit
// integer, unit, a struct (field name -> Value), a vector of Values, or a
// named constructor wrapping another Value.
type Value interface {
	isValue()
	// String renders the value for logging/pretty-printing.
	String() string
}

// Bits wraps a concrete bitvector.
type Bits struct{ BV bv.BV }

// Symbolic wraps a symbolic variable handle.
type Symbolic struct{ Var Sym }

// Bool is a concrete boolean.
type Bool struct{ V bool }

// Int is a small concrete integer (the "small integer" case of §3; used for
// byte counts and similar metadata that must be concrete).
type Int struct{ V int64 }

// I128 is a 128-bit concrete integer.
type I128 struct{ V *big.Int }

// Unit is the unit value, returned by write-like operations that otherwise
// carry no payload.
type Unit struct{}

// Struct is a mapping from field name to Value (e.g. PSTATE-like bundles).
type Struct struct{ Fields map[string]Value }

// Vector is an ordered list of Values (SIMD lanes, argument lists, ...).
type Vector struct{ Elems []Value }

// Ctor wraps another Value under a named constructor (sum-type payloads in
// the source ISA specification).
type Ctor struct {
	Name string
	Val  Value
}

func (Bits) isValue()     {}
func (Symbolic) isValue() {}
func (Bool) isValue()     {}
func (Int) isValue()      {}
func (I128) isValue()     {}
func (Unit) isValue()     {}
func (Struct) isValue()   {}
func (Vector) isValue()   {}
func (Ctor) isValue()     {}

func (v Bits) String() string     { return v.BV.String() }
func (v Symbolic) String() string { return fmt.Sprintf("v%d", uint64(v.Var)) }
func (v Bool) String() string     { return fmt.Sprintf("%t", v.V) }
func (v Int) String() string      { return fmt.Sprintf("%d", v.V) }
func (v I128) String() string     { return v.V.String() }
func (Unit) String() string       { return "unit" }

func (v Struct) String() string {
	return fmt.Sprintf("struct(%d fields)", len(v.Fields))
}

func (v Vector) String() string {
	return fmt.Sprintf("vector(%d elems)", len(v.Elems))
}

func (v Ctor) String() string {
	return fmt.Sprintf("%s(%s)", v.Name, v.Val.String())
}

// IsConcreteBits reports whether v is a concrete bitvector, returning it if
// so. This is the common predicate used by memory and the executor to
// decide whether an address or byte count is concretely known.
func IsConcreteBits(v Value) (bv.BV, bool) {
	b, ok := v.(Bits)
	if !ok {
		return nil, false
	}
	return b.BV, true
}

// AsSym reports whether v is a bare symbolic variable, returning its handle.
func AsSym(v Value) (Sym, bool) {
	s, ok := v.(Symbolic)
	return s.Var, ok
}
