package taint_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/islafoot/ir"
	"github.com/sarchlab/islafoot/smt"
	"github.com/sarchlab/islafoot/taint"
	"github.com/sarchlab/islafoot/value"
)

var _ = Describe("EventReferences", func() {

	var x1 = ir.Reg(1)

	It("should find a register read that directly defines a value", func() {
		readVar := value.Sym(1)
		events := []smt.Event{
			smt.ReadReg{Reg: x1.ID, Value: value.Symbolic{Var: readVar}},
		}
		refs := taint.FromEvents(events)

		tt := refs.ValueTaints(value.Symbolic{Var: readVar})
		Expect(tt.Regs.Contains(x1)).To(BeTrue())
		Expect(tt.MemTaint).To(BeFalse())
	})

	It("should follow a chain of DefineConst expressions back to a register read", func() {
		regVar := value.Sym(1)
		midVar := value.Sym(2)
		outVar := value.Sym(3)

		events := []smt.Event{
			smt.ReadReg{Reg: x1.ID, Value: value.Symbolic{Var: regVar}},
			smt.SMTDef{Def: smt.DefineConst{Var: midVar, Exp: smt.ExpVar{Var: regVar}}},
			smt.SMTDef{Def: smt.DefineConst{Var: outVar, Exp: smt.ExpAnd{
				A: smt.ExpVar{Var: midVar},
				B: smt.ExpBool{Value: true},
			}}},
		}
		refs := taint.FromEvents(events)

		tt := refs.ValueTaints(value.Symbolic{Var: outVar})
		Expect(tt.Regs.Contains(x1)).To(BeTrue())
	})

	It("should set the memory taint flag when the closure reaches a ReadMem", func() {
		memVar := value.Sym(1)
		outVar := value.Sym(2)

		events := []smt.Event{
			smt.ReadMem{Value: value.Symbolic{Var: memVar}, Address: value.Bits{}, Bytes: 8},
			smt.SMTDef{Def: smt.DefineConst{Var: outVar, Exp: smt.ExpVar{Var: memVar}}},
		}
		refs := taint.FromEvents(events)

		tt := refs.ValueTaints(value.Symbolic{Var: outVar})
		Expect(tt.MemTaint).To(BeTrue())
		Expect(tt.Regs).To(BeEmpty())
	})

	It("should not loop forever on a cyclic definition graph", func() {
		a := value.Sym(1)
		b := value.Sym(2)

		events := []smt.Event{
			smt.SMTDef{Def: smt.DefineConst{Var: a, Exp: smt.ExpVar{Var: b}}},
			smt.SMTDef{Def: smt.DefineConst{Var: b, Exp: smt.ExpVar{Var: a}}},
		}
		refs := taint.FromEvents(events)

		Expect(func() { refs.ValueTaints(value.Symbolic{Var: a}) }).NotTo(Panic())
	})

	It("should find taints reachable from a bare fork variable via CollectTaints", func() {
		regVar := value.Sym(1)
		forkVar := value.Sym(2)

		events := []smt.Event{
			smt.ReadReg{Reg: x1.ID, Value: value.Symbolic{Var: regVar}},
			smt.SMTDef{Def: smt.DefineConst{Var: forkVar, Exp: smt.ExpVar{Var: regVar}}},
			smt.Fork{Var: forkVar},
		}
		refs := taint.FromEvents(events)

		regs := taint.NewRegSet()
		var memFlag bool
		refs.CollectTaints(forkVar, regs, &memFlag)
		Expect(regs.Contains(x1)).To(BeTrue())
	})

	It("should union taints across struct fields", func() {
		v1 := value.Sym(1)
		v2 := value.Sym(2)
		x2 := ir.Reg(2)

		events := []smt.Event{
			smt.ReadReg{Reg: x1.ID, Value: value.Symbolic{Var: v1}},
			smt.ReadReg{Reg: x2.ID, Value: value.Symbolic{Var: v2}},
		}
		refs := taint.FromEvents(events)

		composite := value.Struct{Fields: map[string]value.Value{
			"a": value.Symbolic{Var: v1},
			"b": value.Symbolic{Var: v2},
		}}
		tt := refs.ValueTaints(composite)
		Expect(tt.Regs.Contains(x1)).To(BeTrue())
		Expect(tt.Regs.Contains(x2)).To(BeTrue())
	})
})
