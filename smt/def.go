package smt

import (
	"fmt"

	"github.com/sarchlab/islafoot/value"
)

// Ty is the SMT sort of a declared constant.
type Ty interface{ isTy() }

// BitVecTy is a bitvector sort of the given width.
type BitVecTy struct{ Width uint32 }

// BoolTy is the Boolean sort.
type BoolTy struct{}

func (BitVecTy) isTy() {}
func (BoolTy) isTy()   {}

// Def is one of the three solver definition forms the memory model and
// executor emit (spec.md §6).
type Def interface{ isDef() }

// DeclareConst declares a fresh, unconstrained constant of sort Ty.
type DeclareConst struct {
	Var value.Sym
	Ty  Ty
}

// DefineConst defines Var as exactly equal to Exp.
type DefineConst struct {
	Var value.Sym
	Exp Exp
}

// Assert adds Exp as a path-condition constraint.
type Assert struct {
	Exp Exp
}

func (DeclareConst) isDef() {}
func (DefineConst) isDef()  {}
func (Assert) isDef()       {}

// Exp is the small SMT expression language used for address-range
// constraints (spec.md §4.A smt_address_constraint) and for path
// conditions. It intentionally covers only what this module's own
// components need to emit and to interpret structurally in the taint
// engine — it is not a general SMT-LIB front end.
type Exp interface {
	isExp()
	String() string
}

// ExpVar references a symbolic constant.
type ExpVar struct{ Var value.Sym }

// ExpBits64 is a concrete bitvector literal.
type ExpBits64 struct {
	Value  uint64
	Width  uint32
}

// ExpBool is a concrete boolean literal.
type ExpBool struct{ Value bool }

// ExpAnd/ExpOr are boolean connectives.
type ExpAnd struct{ A, B Exp }
type ExpOr struct{ A, B Exp }

// ExpBvule/ExpBvult are unsigned bitvector comparisons.
type ExpBvule struct{ A, B Exp }
type ExpBvult struct{ A, B Exp }

// ExpBvadd is bitvector addition.
type ExpBvadd struct{ A, B Exp }

// ExpZeroExtend widens an expression to Width bits with zero fill.
type ExpZeroExtend struct {
	Width uint32
	Exp   Exp
}

// ExpNot is boolean negation.
type ExpNot struct{ A Exp }

func (ExpVar) isExp()        {}
func (ExpBits64) isExp()     {}
func (ExpBool) isExp()       {}
func (ExpAnd) isExp()        {}
func (ExpOr) isExp()         {}
func (ExpBvule) isExp()      {}
func (ExpBvult) isExp()      {}
func (ExpBvadd) isExp()      {}
func (ExpZeroExtend) isExp() {}
func (ExpNot) isExp()        {}

func (e ExpVar) String() string    { return fmt.Sprintf("v%d", uint64(e.Var)) }
func (e ExpBits64) String() string { return fmt.Sprintf("#x%x:%d", e.Value, e.Width) }
func (e ExpBool) String() string   { return fmt.Sprintf("%t", e.Value) }
func (e ExpAnd) String() string    { return fmt.Sprintf("(and %s %s)", e.A, e.B) }
func (e ExpOr) String() string     { return fmt.Sprintf("(or %s %s)", e.A, e.B) }
func (e ExpBvule) String() string  { return fmt.Sprintf("(bvule %s %s)", e.A, e.B) }
func (e ExpBvult) String() string  { return fmt.Sprintf("(bvult %s %s)", e.A, e.B) }
func (e ExpBvadd) String() string  { return fmt.Sprintf("(bvadd %s %s)", e.A, e.B) }
func (e ExpZeroExtend) String() string {
	return fmt.Sprintf("((_ zero_extend %d) %s)", e.Width, e.Exp)
}
func (e ExpNot) String() string { return fmt.Sprintf("(not %s)", e.A) }

// AssertBool builds the Def asserting that the boolean variable sym
// equals truth: the path-condition fragment added to each fork
// successor's solver context (spec.md §4.C).
func AssertBool(sym value.Sym, truth bool) Def {
	e := Exp(ExpVar{Var: sym})
	if !truth {
		e = ExpNot{A: e}
	}
	return Assert{Exp: e}
}

// Vars returns the set of symbolic variables an expression references,
// used by the taint engine to walk the defining-expression graph.
func Vars(e Exp) []value.Sym {
	switch e := e.(type) {
	case ExpVar:
		return []value.Sym{e.Var}
	case ExpAnd:
		return append(Vars(e.A), Vars(e.B)...)
	case ExpOr:
		return append(Vars(e.A), Vars(e.B)...)
	case ExpBvule:
		return append(Vars(e.A), Vars(e.B)...)
	case ExpBvult:
		return append(Vars(e.A), Vars(e.B)...)
	case ExpBvadd:
		return append(Vars(e.A), Vars(e.B)...)
	case ExpZeroExtend:
		return Vars(e.Exp)
	case ExpNot:
		return Vars(e.A)
	default:
		return nil
	}
}
