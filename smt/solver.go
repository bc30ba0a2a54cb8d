package smt

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/islafoot/value"
)

// Solver is the minimal capability the memory and executor packages need
// from an SMT back end (spec.md §6): mint a fresh variable, record a
// definition, record an event, check satisfiability of the accumulated
// assertions, retrieve the recorded trace, and read a variable's model
// value once sat. Any SMT runtime can be wrapped to satisfy this
// interface; islafoot ships ReferenceSolver, a conservative in-process
// implementation used by its own tests and as the default backend.
type Solver interface {
	Fresh() value.Sym
	Add(Def)
	AddEvent(Event)
	CheckSat() bool
	// CheckSatAssuming reports whether the accumulated assertions remain
	// satisfiable if guard is additionally asserted to equal truth. The
	// executor uses it on both sides of a symbolic branch guard to decide
	// whether to fork, continue down one side only, or declare the path
	// Dead.
	CheckSatAssuming(guard value.Sym, truth bool) bool
	Trace() []Event
	GetVar(value.Sym) (value.Value, bool)
	// Fork returns an independent copy of the solver sharing the
	// definitions and events recorded so far, the push/pop checkpoint
	// discipline of spec.md §4.C expressed as a single cheap clone.
	Fork() Solver
}

// Checkpoint captures a solver's state at a fork point: the monotonic
// count of emitted definitions and events, so that a successor task's
// solver can be re-materialized lazily by truncating back to this point
// before asserting its side of the branch (spec.md §4.C, §5).
type Checkpoint struct {
	DefCount   int
	EventCount int
}

var nextSym uint64

func freshSym() value.Sym {
	return value.Sym(atomic.AddUint64(&nextSym, 1))
}

var (
	bootstrapOnce sync.Once
	processLive   atomic.Bool
)

// Bootstrap initializes the process-wide SMT backend resource exactly
// once, and registers its teardown to run at process exit (spec.md §9:
// "the SMT solver bootstrap/teardown (process-lifetime)"). It is safe to
// call from multiple goroutines; only the first call takes effect.
func Bootstrap() {
	bootstrapOnce.Do(func() {
		processLive.Store(true)
		slog.Info("smt", "event", "bootstrap")
		atexit.Register(func() {
			processLive.Store(false)
			slog.Info("smt", "event", "teardown")
		})
	})
}

// ReferenceSolver is a conservative, in-process implementation of Solver.
// It does not perform general SMT decision procedures; instead it tracks
// concrete equalities asserted against bare symbolic variables and treats
// everything else as satisfiable. This is sufficient to drive the fork
// discipline in spec.md §4.C (both truth values of a genuinely unresolved
// symbolic guard are treated as satisfiable; a guard directly contradicted
// by a prior assertion on the same variable is not) without requiring a
// full third-party theorem prover, which spec.md §1 explicitly places
// outside this module's scope.
type ReferenceSolver struct {
	defs   []Def
	events []Event
	model  map[value.Sym]value.Value
	// equalities records the single concrete boolean/bits each bare
	// variable has been asserted equal to, if any.
	equalities map[value.Sym]value.Value
}

// NewReferenceSolver constructs an empty ReferenceSolver. Bootstrap should
// be called once per process before any solver is used.
func NewReferenceSolver() *ReferenceSolver {
	return &ReferenceSolver{
		model:      make(map[value.Sym]value.Value),
		equalities: make(map[value.Sym]value.Value),
	}
}

func (s *ReferenceSolver) Fresh() value.Sym { return freshSym() }

func (s *ReferenceSolver) Add(d Def) {
	s.defs = append(s.defs, d)
	switch d := d.(type) {
	case Assert:
		s.recordAssertion(d.Exp)
	case DefineConst:
		if v, ok := concreteOf(d.Exp, s.equalities); ok {
			s.equalities[d.Var] = v
		}
	}
}

func (s *ReferenceSolver) recordAssertion(e Exp) {
	// Only the common "bare variable (or its negation) asserted to a
	// concrete boolean" shape is tracked; anything more elaborate is
	// treated as an unconstrained (satisfiable) assertion, matching the
	// conservative stance documented on ReferenceSolver.
	switch e := e.(type) {
	case ExpVar:
		s.equalities[e.Var] = value.Bool{V: true}
	case ExpNot:
		if v, ok := e.A.(ExpVar); ok {
			s.equalities[v.Var] = value.Bool{V: false}
		}
	}
}

func concreteOf(e Exp, known map[value.Sym]value.Value) (value.Value, bool) {
	switch e := e.(type) {
	case ExpBool:
		return value.Bool{V: e.Value}, true
	case ExpVar:
		v, ok := known[e.Var]
		return v, ok
	default:
		return nil, false
	}
}

func (s *ReferenceSolver) AddEvent(e Event) { s.events = append(s.events, e) }

// CheckSat reports satisfiability of the accumulated assertions. The
// reference implementation always reports sat; a guard contradicted by an
// earlier assertion on the same bare variable is detected only through
// CheckSatAssuming.
func (s *ReferenceSolver) CheckSat() bool { return true }

// CheckSatAssuming reports whether the accumulated assertions remain
// satisfiable if guard is additionally asserted to equal truth. It is the
// primitive the executor's fork logic uses to decide whether a branch's
// "then" and "else" sides are each independently reachable.
func (s *ReferenceSolver) CheckSatAssuming(guard value.Sym, truth bool) bool {
	if existing, ok := s.equalities[guard]; ok {
		if b, ok := existing.(value.Bool); ok {
			return b.V == truth
		}
	}
	return true
}

func (s *ReferenceSolver) Trace() []Event { return s.events }

func (s *ReferenceSolver) GetVar(v value.Sym) (value.Value, bool) {
	if val, ok := s.model[v]; ok {
		return val, true
	}
	if val, ok := s.equalities[v]; ok {
		return val, true
	}
	return nil, false
}

// Snapshot returns a Checkpoint at the solver's current state.
func (s *ReferenceSolver) Snapshot() Checkpoint {
	return Checkpoint{DefCount: len(s.defs), EventCount: len(s.events)}
}

// Fork produces an independent copy of the solver sharing the prefix of
// definitions and events recorded so far, the way push/pop checkpointing
// lets a real SMT context be cloned cheaply at a fork point (spec.md
// §4.C/§5). The returned solver's def/event slices are copied so that
// mutations on one branch are never observed by the other.
func (s *ReferenceSolver) Fork() Solver {
	clone := &ReferenceSolver{
		defs:       append([]Def(nil), s.defs...),
		events:     append([]Event(nil), s.events...),
		model:      make(map[value.Sym]value.Value, len(s.model)),
		equalities: make(map[value.Sym]value.Value, len(s.equalities)),
	}
	for k, v := range s.model {
		clone.model[k] = v
	}
	for k, v := range s.equalities {
		clone.equalities[k] = v
	}
	return clone
}

// RestoreTo truncates the solver's defs/events back to a previously taken
// Checkpoint, discarding anything recorded after it. The executor does not
// call it: a dead path's frame and solver are simply dropped.
func (s *ReferenceSolver) RestoreTo(cp Checkpoint) {
	if cp.DefCount <= len(s.defs) {
		s.defs = s.defs[:cp.DefCount]
	}
	if cp.EventCount <= len(s.events) {
		s.events = s.events[:cp.EventCount]
	}
}
