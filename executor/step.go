package executor

import (
	"fmt"
	"sync/atomic"

	"github.com/sarchlab/islafoot/ir"
	"github.com/sarchlab/islafoot/smt"
	"github.com/sarchlab/islafoot/value"
)

// outcomeKind distinguishes why a frame suspended: it finished its
// function body, or it hit a branch whose guard forks into two
// successors (spec.md §4.C "Execution suspends... only at a fork or at
// completion").
type outcomeKind int

const (
	outcomeReturned outcomeKind = iota
	outcomeForked
)

type outcome struct {
	kind outcomeKind
	// valid when kind == outcomeForked: the frame continuing in place has
	// already moved to the "then" PC; the pushed successor is elseFrame,
	// starting at elsePC.
	elseFrame *Frame
	elsePC    int
}

// runUntilSuspend steps f's bytecode until it returns, forks, or errors.
// Between forks a frame runs to completion without yielding, matching
// spec.md §4.C's suspension-point discipline.
func (f *Frame) runUntilSuspend(abort *atomic.Bool) (outcome, error) {
	for {
		if abort != nil && abort.Load() {
			return outcome{}, &AbortedError{}
		}

		if f.PC < 0 || f.PC >= len(f.Fn.Body) {
			return outcome{kind: outcomeReturned}, nil
		}

		op := f.Fn.Body[f.PC]
		switch op := op.(type) {
		case ir.OpReturn:
			return outcome{kind: outcomeReturned}, nil

		case ir.OpLoadArg:
			f.loadArg(op.Dst)
			f.PC++

		case ir.OpLoadImm:
			f.Locals[op.Dst] = op.Val
			f.PC++

		case ir.OpReadReg:
			f.readReg(op.Dst, op.Reg, op.Accessors)
			f.PC++

		case ir.OpWriteReg:
			f.writeReg(op.Reg, op.Accessors, op.Src)
			f.PC++

		case ir.OpReadMem:
			if err := f.readMem(op.Dst, op.ReadKind, op.Addr, op.Bytes); err != nil {
				return outcome{}, err
			}
			f.PC++

		case ir.OpWriteMem:
			if err := f.writeMem(op.Dst, op.WriteKind, op.Addr, op.Data); err != nil {
				return outcome{}, err
			}
			f.PC++

		case ir.OpBinOp:
			if err := f.binOp(op.Dst, op.Op, op.A, op.B); err != nil {
				return outcome{}, err
			}
			f.PC++

		case ir.OpBranch:
			f.branch(op.Target)
			f.PC++

		case ir.OpJump:
			f.PC = op.PC

		case ir.OpFork:
			o, err := f.stepFork(op)
			if err != nil {
				return outcome{}, err
			}
			if o.kind == outcomeForked {
				return o, nil
			}
			// single-sided resolution: PC was already advanced inside
			// stepFork, keep interpreting.

		default:
			return outcome{}, fmt.Errorf("executor: unhandled op %T", op)
		}
	}
}

// stepFork resolves an OpFork. A concrete guard takes its one live
// successor with no solver involvement. A symbolic guard is checked on
// both sides: if only one side is satisfiable the frame continues down
// it alone; if both are satisfiable a Fork event is recorded, the
// "else" side is cloned off as a new frame for the caller to enqueue, and
// the "then" side continues in f. If neither side is satisfiable the
// path is dead; this is reported as a DeadPathError so the caller can
// discard it without it ever reaching the footprint result set.
func (f *Frame) stepFork(op ir.OpFork) (outcome, error) {
	cond := f.Locals[op.Cond]

	if b, ok := cond.(value.Bool); ok {
		if b.V {
			f.PC = op.ThenPC
		} else {
			f.PC = op.ElsePC
		}
		return outcome{}, nil
	}

	sym, ok := value.AsSym(cond)
	if !ok {
		return outcome{}, fmt.Errorf("executor: fork guard is neither boolean nor symbolic: %s", cond)
	}

	thenSat := f.Solver.CheckSatAssuming(sym, true)
	elseSat := f.Solver.CheckSatAssuming(sym, false)

	switch {
	case thenSat && elseSat:
		f.emit(smt.Fork{Var: sym})
		elseFrame := f.clone()
		elseFrame.Solver.Add(smt.AssertBool(sym, false))
		elseFrame.PC = op.ElsePC
		f.Solver.Add(smt.AssertBool(sym, true))
		f.PC = op.ThenPC
		return outcome{kind: outcomeForked, elseFrame: elseFrame, elsePC: op.ElsePC}, nil
	case thenSat:
		f.Solver.Add(smt.AssertBool(sym, true))
		f.PC = op.ThenPC
		return outcome{}, nil
	case elseSat:
		f.Solver.Add(smt.AssertBool(sym, false))
		f.PC = op.ElsePC
		return outcome{}, nil
	default:
		return outcome{}, &DeadPathError{}
	}
}
