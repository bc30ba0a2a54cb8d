// Package smt defines the minimal SMT-solver capability the memory model
// and the symbolic executor consume (spec.md §6), the event taxonomy that
// flows from the executor into the taint engine (spec.md §3), and a
// reference in-process solver implementing that capability well enough to
// drive this module's own tests and default runs.
package smt

import (
	"fmt"

	"github.com/sarchlab/islafoot/ir"
	"github.com/sarchlab/islafoot/value"
)

// ReadKind/WriteKind distinguish classes of memory access at the level the
// ISA specification cares about (ordinary read, exclusive read, ...); the
// core treats them as an opaque Value tag.
type Kind = value.Value

// Event is one entry of the per-path trace the executor emits (spec.md §3).
type Event interface {
	isEvent()
	// String renders the event for logging/pretty-printing.
	String() string
}

// ReadReg records a read of an architectural register location.
type ReadReg struct {
	Reg       ir.RegisterID
	Accessors []ir.Accessor
	Value     value.Value
}

// WriteReg records a write to an architectural register location.
type WriteReg struct {
	Reg       ir.RegisterID
	Accessors []ir.Accessor
	Value     value.Value
}

// ReadMem records a memory read.
type ReadMem struct {
	Value    value.Value
	ReadKind Kind
	Address  value.Value
	Bytes    uint32
}

// WriteMem records a memory write. Value is the symbolic boolean success
// flag the memory model returns (spec.md §3/§4.A); durability of the write
// itself is left to a downstream memory model, not this module.
type WriteMem struct {
	Value     value.Value
	WriteKind Kind
	Address   value.Value
	Data      value.Value
	Bytes     uint32
}

// Branch records a target-dependent control transfer.
type Branch struct {
	Address value.Value
}

// Fork records that execution forked on a symbolic guard.
type Fork struct {
	Var value.Sym
}

// SMTDef records a solver definition/assertion added along this path.
type SMTDef struct {
	Def Def
}

// Cycle separates the per-instruction initialization epoch from the
// execution epoch in the trace.
type Cycle struct{}

// Instr records the concrete (or, illegally for footprint analysis,
// symbolic) opcode currently being executed.
type Instr struct {
	Opcode value.Value
}

func (ReadReg) isEvent()  {}
func (WriteReg) isEvent() {}
func (ReadMem) isEvent()  {}
func (WriteMem) isEvent() {}
func (Branch) isEvent()   {}
func (Fork) isEvent()     {}
func (SMTDef) isEvent()   {}
func (Cycle) isEvent()    {}
func (Instr) isEvent()    {}

func (e ReadReg) String() string {
	return fmt.Sprintf("ReadReg(%d, %v, %s)", e.Reg, e.Accessors, e.Value)
}
func (e WriteReg) String() string {
	return fmt.Sprintf("WriteReg(%d, %v, %s)", e.Reg, e.Accessors, e.Value)
}
func (e ReadMem) String() string {
	return fmt.Sprintf("ReadMem{value=%s, addr=%s, bytes=%d}", e.Value, e.Address, e.Bytes)
}
func (e WriteMem) String() string {
	return fmt.Sprintf("WriteMem{value=%s, addr=%s, data=%s, bytes=%d}", e.Value, e.Address, e.Data, e.Bytes)
}
func (e Branch) String() string { return fmt.Sprintf("Branch{address=%s}", e.Address) }
func (e Fork) String() string   { return fmt.Sprintf("Fork(v%d)", uint64(e.Var)) }
func (e SMTDef) String() string { return fmt.Sprintf("SMT(%v)", e.Def) }
func (Cycle) String() string    { return "Cycle" }
func (e Instr) String() string  { return fmt.Sprintf("Instr(%s)", e.Opcode) }

// IsReg reports whether e is a ReadReg or WriteReg event.
func IsReg(e Event) bool {
	switch e.(type) {
	case ReadReg, WriteReg:
		return true
	default:
		return false
	}
}

// IsMemory reports whether e is a ReadMem or WriteMem event.
func IsMemory(e Event) bool {
	switch e.(type) {
	case ReadMem, WriteMem:
		return true
	default:
		return false
	}
}

// IsBranch reports whether e is a Branch event.
func IsBranch(e Event) bool {
	_, ok := e.(Branch)
	return ok
}

// IsSMT reports whether e is an SMTDef event.
func IsSMT(e Event) bool {
	_, ok := e.(SMTDef)
	return ok
}

// IsFork reports whether e is a Fork event.
func IsFork(e Event) bool {
	_, ok := e.(Fork)
	return ok
}

// IsCycle reports whether e is the Cycle marker.
func IsCycle(e Event) bool {
	_, ok := e.(Cycle)
	return ok
}
