package executor_test

import (
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/islafoot/bv"
	"github.com/sarchlab/islafoot/executor"
	"github.com/sarchlab/islafoot/ir"
	"github.com/sarchlab/islafoot/memory"
	"github.com/sarchlab/islafoot/smt"
	"github.com/sarchlab/islafoot/value"
)

const regX1 ir.RegisterID = 1

func bits(v uint64, n uint32) value.Value { return value.Bits{BV: bv.FromU64(v, n)} }

// alwaysDeadSolver wraps a ReferenceSolver but reports both sides of every
// fork guard as unsatisfiable, for exercising the executor's Dead-path
// discard without depending on ReferenceSolver's conservative optimism.
type alwaysDeadSolver struct{ *smt.ReferenceSolver }

func newAlwaysDeadSolver() *alwaysDeadSolver {
	return &alwaysDeadSolver{ReferenceSolver: smt.NewReferenceSolver()}
}

func (s *alwaysDeadSolver) CheckSatAssuming(value.Sym, bool) bool { return false }

func (s *alwaysDeadSolver) Fork() smt.Solver {
	return &alwaysDeadSolver{ReferenceSolver: s.ReferenceSolver.Fork().(*smt.ReferenceSolver)}
}

var _ = Describe("Executor", func() {

	var funcs *ir.FunctionTable

	BeforeEach(func() {
		funcs = ir.NewFunctionTable()
	})

	Describe("a straight-line concrete program", func() {
		It("should execute MOV X1, #815 to completion and record the write", func() {
			fn := &ir.Function{
				Name:      "mov_x1_815",
				NumLocals: 1,
				Body: []ir.Op{
					ir.OpLoadImm{Dst: 0, Val: bits(815, 64)},
					ir.OpWriteReg{Reg: regX1, Src: 0},
					ir.OpReturn{},
				},
			}

			frame := executor.NewFrame(funcs, fn, value.Unit{}, nil, memory.New(), smt.NewReferenceSolver())
			results := executor.Run([]*executor.Task{{ID: 1, Frame: frame}}, 2, nil, nil)

			Expect(results).To(HaveLen(1))
			Expect(results[0].Err).NotTo(HaveOccurred())

			var wrote smt.WriteReg
			found := false
			for _, e := range results[0].Events {
				if w, ok := e.(smt.WriteReg); ok {
					wrote, found = w, true
				}
			}
			Expect(found).To(BeTrue())
			Expect(wrote.Reg).To(Equal(regX1))
			b, ok := wrote.Value.(value.Bits)
			Expect(ok).To(BeTrue())
			Expect(b.BV.Lower64()).To(Equal(uint64(815)))
		})
	})

	Describe("a program with a genuinely unresolved fork", func() {
		// local0 <- ReadReg(X1)       ; unbound register, reads as fresh symbolic
		// local1 <- LoadImm(0)
		// local2 <- local0 == local1  ; symbolic comparison, both sides satisfiable
		// Fork local2 -> PC 4 (then) / PC 5 (else)
		// PC 4: Return
		// PC 5: Return
		forkFn := func() *ir.Function {
			return &ir.Function{
				Name:      "forking",
				NumLocals: 3,
				Body: []ir.Op{
					ir.OpReadReg{Dst: 0, Reg: regX1},
					ir.OpLoadImm{Dst: 1, Val: bits(0, 64)},
					ir.OpBinOp{Dst: 2, Op: ir.OpEq, A: 0, B: 1},
					ir.OpFork{Cond: 2, ThenPC: 4, ElsePC: 5},
					ir.OpReturn{},
					ir.OpReturn{},
				},
			}
		}

		It("should deliver both successor paths as separate results", func() {
			fn := forkFn()
			frame := executor.NewFrame(funcs, fn, value.Unit{}, nil, memory.New(), smt.NewReferenceSolver())
			results := executor.Run([]*executor.Task{{ID: 7, Frame: frame}}, 4, nil, nil)

			Expect(results).To(HaveLen(2))
			for _, r := range results {
				Expect(r.Err).NotTo(HaveOccurred())
				Expect(r.TaskID).To(Equal(7))
				hasFork := false
				for _, e := range r.Events {
					if _, ok := e.(smt.Fork); ok {
						hasFork = true
					}
				}
				Expect(hasFork).To(BeTrue())
			}
		})

		It("should discard a path whose fork is unsatisfiable on both sides", func() {
			fn := forkFn()
			frame := executor.NewFrame(funcs, fn, value.Unit{}, nil, memory.New(), newAlwaysDeadSolver())
			results := executor.Run([]*executor.Task{{ID: 3, Frame: frame}}, 2, nil, nil)

			Expect(results).To(BeEmpty())
		})
	})

	Describe("cooperative cancellation", func() {
		It("should report an aborted task instead of running it to completion", func() {
			fn := &ir.Function{
				Name:      "never_runs",
				NumLocals: 1,
				Body: []ir.Op{
					ir.OpLoadImm{Dst: 0, Val: bits(1, 64)},
					ir.OpWriteReg{Reg: regX1, Src: 0},
					ir.OpReturn{},
				},
			}
			frame := executor.NewFrame(funcs, fn, value.Unit{}, nil, memory.New(), smt.NewReferenceSolver())

			var abort atomic.Bool
			abort.Store(true)

			results := executor.Run([]*executor.Task{{ID: 9, Frame: frame}}, 1, &abort, nil)

			Expect(results).To(HaveLen(1))
			Expect(results[0].Err).To(HaveOccurred())
			var aborted *executor.AbortedError
			Expect(results[0].Err).To(BeAssignableToTypeOf(aborted))
		})
	})
})
