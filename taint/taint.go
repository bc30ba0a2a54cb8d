// Package taint implements the event trace and taint engine (spec.md
// §4.B): given a path's event trace, it builds an index from each
// symbolic variable to its defining SMT expression and uses it to answer
// transitive provenance queries over the SMT expression graph — not over
// the source program — so that `collect_value_taints` finds every
// register whose symbolic value could feed a queried value regardless of
// how the semantic function happened to route it.
package taint

import (
	"github.com/sarchlab/islafoot/ir"
	"github.com/sarchlab/islafoot/smt"
	"github.com/sarchlab/islafoot/value"
)

// Taints is the pair (set of register-locations, memory-tainted?) from
// spec.md §3: the boolean is true iff some value in the transitive
// provenance of the query originated from a ReadMem. RegSet keys on
// ir.RegisterLocation.Key() so two structurally equal locations collapse
// to one entry regardless of how each was constructed.
type Taints struct {
	Regs     RegSet
	MemTaint bool
}

// RegSet is a set of register-locations keyed by their canonical string
// encoding (ir.RegisterLocation.Key()).
type RegSet map[string]ir.RegisterLocation

// NewRegSet builds an empty RegSet.
func NewRegSet() RegSet { return make(RegSet) }

// Add inserts loc into the set.
func (s RegSet) Add(loc ir.RegisterLocation) { s[loc.Key()] = loc }

// Contains reports whether loc is in the set.
func (s RegSet) Contains(loc ir.RegisterLocation) bool {
	_, ok := s[loc.Key()]
	return ok
}

// Union adds every member of other into s.
func (s RegSet) Union(other RegSet) {
	for k, v := range other {
		s[k] = v
	}
}

// Clone returns an independent copy of s.
func (s RegSet) Clone() RegSet {
	out := make(RegSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// EventReferences is the precomputed index from spec.md §4.B: a symbolic
// variable maps to the SMT expression that defines it (via DefineConst),
// or to the ReadReg/ReadMem event that introduced it, if any. Built
// once per path in `from_events`/`New`, then reused for every
// `collect_value_taints`/`collect_taints` query against that path so that
// each query only walks the expression graph it actually touches.
type EventReferences struct {
	defines map[value.Sym]smt.Exp
	readReg map[value.Sym]smt.ReadReg
	readMem map[value.Sym]smt.ReadMem
}

// New builds an EventReferences index over events.
func New(events []smt.Event) *EventReferences {
	refs := &EventReferences{
		defines: make(map[value.Sym]smt.Exp),
		readReg: make(map[value.Sym]smt.ReadReg),
		readMem: make(map[value.Sym]smt.ReadMem),
	}
	for _, e := range events {
		switch e := e.(type) {
		case smt.SMTDef:
			if def, ok := e.Def.(smt.DefineConst); ok {
				refs.defines[def.Var] = def.Exp
			}
		case smt.ReadReg:
			if sym, ok := value.AsSym(e.Value); ok {
				refs.readReg[sym] = e
			}
		case smt.ReadMem:
			if sym, ok := value.AsSym(e.Value); ok {
				refs.readMem[sym] = e
			}
		}
	}
	return refs
}

// FromEvents is an alias for New matching the teacher/original naming
// (EventReferences::from_events).
func FromEvents(events []smt.Event) *EventReferences { return New(events) }

// CollectTaints walks the transitive provenance closure of a bare
// symbolic variable, adding discovered register-read locations to regs
// and setting *memFlag if the closure reaches a ReadMem. Used for fork
// conditions, which start from a variable rather than a composite Value.
func (r *EventReferences) CollectTaints(v value.Sym, regs RegSet, memFlag *bool) {
	r.walk(v, regs, memFlag, make(map[value.Sym]bool))
}

// CollectValueTaints walks the transitive provenance closure of val,
// adding discovered register-read locations to regs and setting *memFlag
// if the closure reaches a ReadMem.
func (r *EventReferences) CollectValueTaints(val value.Value, regs RegSet, memFlag *bool) {
	visited := make(map[value.Sym]bool)
	for _, v := range leaves(val) {
		r.walk(v, regs, memFlag, visited)
	}
}

// ValueTaints returns the accumulated Taints for val.
func (r *EventReferences) ValueTaints(val value.Value) Taints {
	t := Taints{Regs: NewRegSet()}
	r.CollectValueTaints(val, t.Regs, &t.MemTaint)
	return t
}

func (r *EventReferences) walk(v value.Sym, regs RegSet, memFlag *bool, visited map[value.Sym]bool) {
	if visited[v] {
		return
	}
	visited[v] = true

	if ev, ok := r.readReg[v]; ok {
		regs.Add(ir.RegisterLocation{ID: ev.Reg, Accessors: ev.Accessors})
	}
	if _, ok := r.readMem[v]; ok {
		*memFlag = true
	}
	if exp, ok := r.defines[v]; ok {
		for _, child := range smt.Vars(exp) {
			r.walk(child, regs, memFlag, visited)
		}
	}
}

// leaves returns the symbolic variables referenced directly by val (its
// own Symbolic payload, or those of its immediate Struct/Vector/Ctor
// children, recursively), the starting points for a provenance walk.
func leaves(val value.Value) []value.Sym {
	switch val := val.(type) {
	case value.Symbolic:
		return []value.Sym{val.Var}
	case value.Struct:
		var out []value.Sym
		for _, f := range val.Fields {
			out = append(out, leaves(f)...)
		}
		return out
	case value.Vector:
		var out []value.Sym
		for _, e := range val.Elems {
			out = append(out, leaves(e)...)
		}
		return out
	case value.Ctor:
		return leaves(val.Val)
	default:
		return nil
	}
}
