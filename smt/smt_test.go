package smt_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/islafoot/smt"
	"github.com/sarchlab/islafoot/value"
)

var _ = Describe("Event classification", func() {
	It("classifies register events", func() {
		Expect(smt.IsReg(smt.ReadReg{})).To(BeTrue())
		Expect(smt.IsReg(smt.WriteReg{})).To(BeTrue())
		Expect(smt.IsReg(smt.Branch{})).To(BeFalse())
	})

	It("classifies memory events", func() {
		Expect(smt.IsMemory(smt.ReadMem{})).To(BeTrue())
		Expect(smt.IsMemory(smt.WriteMem{})).To(BeTrue())
		Expect(smt.IsMemory(smt.Fork{})).To(BeFalse())
	})

	It("classifies branch, fork, smt-def and cycle markers individually", func() {
		Expect(smt.IsBranch(smt.Branch{})).To(BeTrue())
		Expect(smt.IsFork(smt.Fork{})).To(BeTrue())
		Expect(smt.IsSMT(smt.SMTDef{})).To(BeTrue())
		Expect(smt.IsCycle(smt.Cycle{})).To(BeTrue())
		Expect(smt.IsCycle(smt.Branch{})).To(BeFalse())
	})
})

var _ = Describe("Exp", func() {
	It("collects variables referenced by a compound expression", func() {
		a := smt.ExpVar{Var: value.Sym(1)}
		b := smt.ExpVar{Var: value.Sym(2)}
		e := smt.ExpAnd{A: a, B: smt.ExpNot{A: b}}
		Expect(smt.Vars(e)).To(ConsistOf(value.Sym(1), value.Sym(2)))
	})

	It("builds AssertBool asserting or negating a guard symbol", func() {
		pos := smt.AssertBool(value.Sym(5), true).(smt.Assert)
		Expect(pos.Exp).To(Equal(smt.Exp(smt.ExpVar{Var: value.Sym(5)})))

		neg := smt.AssertBool(value.Sym(5), false).(smt.Assert)
		Expect(neg.Exp).To(Equal(smt.Exp(smt.ExpNot{A: smt.ExpVar{Var: value.Sym(5)}})))
	})
})

var _ = Describe("ReferenceSolver", func() {
	It("mints distinct fresh variables", func() {
		s := smt.NewReferenceSolver()
		a := s.Fresh()
		b := s.Fresh()
		Expect(a).NotTo(Equal(b))
	})

	It("treats an unconstrained guard as satisfiable on either side", func() {
		s := smt.NewReferenceSolver()
		g := s.Fresh()
		Expect(s.CheckSatAssuming(g, true)).To(BeTrue())
		Expect(s.CheckSatAssuming(g, false)).To(BeTrue())
	})

	It("refuses the contradicted side once a guard is asserted", func() {
		s := smt.NewReferenceSolver()
		g := s.Fresh()
		s.Add(smt.AssertBool(g, true))
		Expect(s.CheckSatAssuming(g, true)).To(BeTrue())
		Expect(s.CheckSatAssuming(g, false)).To(BeFalse())
	})

	It("forks into an independent copy sharing the recorded prefix", func() {
		s := smt.NewReferenceSolver()
		g := s.Fresh()
		s.AddEvent(smt.Fork{Var: g})

		fork := s.Fork()
		fork.AddEvent(smt.Cycle{})

		Expect(s.Trace()).To(HaveLen(1))
		Expect(fork.Trace()).To(HaveLen(2))
	})

	It("reports a concrete DefineConst value back through GetVar", func() {
		s := smt.NewReferenceSolver()
		v := s.Fresh()
		s.Add(smt.DefineConst{Var: v, Exp: smt.ExpBool{Value: true}})

		got, ok := s.GetVar(v)
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(value.Bool{V: true}))
	})

	It("reports an unknown variable as not found", func() {
		s := smt.NewReferenceSolver()
		_, ok := s.GetVar(value.Sym(999))
		Expect(ok).To(BeFalse())
	})
})
