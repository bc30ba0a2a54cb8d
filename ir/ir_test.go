package ir_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/islafoot/ir"
)

var _ = Describe("Symtab", func() {
	It("interns each distinct name exactly once", func() {
		st := ir.NewSymtab()
		a := st.Intern("X0")
		b := st.Intern("X1")
		aAgain := st.Intern("X0")
		Expect(aAgain).To(Equal(a))
		Expect(a).NotTo(Equal(b))
	})

	It("looks names back up by id and vice versa", func() {
		st := ir.NewSymtab()
		id := st.Intern("isla_footprint")
		got, ok := st.Lookup("isla_footprint")
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(id))
		Expect(st.Name(id)).To(Equal("isla_footprint"))
	})

	It("reports an unknown name as not found", func() {
		st := ir.NewSymtab()
		_, ok := st.Lookup("nope")
		Expect(ok).To(BeFalse())
	})

	It("MustLookup panics on a missing name", func() {
		st := ir.NewSymtab()
		Expect(func() { st.MustLookup("nope") }).To(Panic())
	})
})

var _ = Describe("RegisterLocation", func() {
	It("gives the same structural key to independently built equal locations", func() {
		a := ir.WithAccessors(3, ir.FieldAccessor("Z"))
		b := ir.WithAccessors(3, ir.FieldAccessor("Z"))
		Expect(a.Key()).To(Equal(b.Key()))
	})

	It("distinguishes locations differing only by accessor kind", func() {
		field := ir.WithAccessors(3, ir.FieldAccessor("Z"))
		index := ir.WithAccessors(3, ir.IndexAccessor(0))
		bits := ir.WithAccessors(3, ir.BitsAccessor(0, 1))
		Expect(field.Key()).NotTo(Equal(index.Key()))
		Expect(field.Key()).NotTo(Equal(bits.Key()))
	})

	It("gives a bare register a key distinct from any of its subfields", func() {
		whole := ir.Reg(5)
		sub := ir.WithAccessors(5, ir.FieldAccessor("Z"))
		Expect(whole.Key()).NotTo(Equal(sub.Key()))
	})
})

var _ = Describe("FunctionTable", func() {
	It("looks functions back up by id after Define", func() {
		ft := ir.NewFunctionTable()
		fn := &ir.Function{Name: "isla_footprint", NumLocals: 1, Body: []ir.Op{ir.OpReturn{}}}
		ft.Define(1, fn)

		got, ok := ft.Lookup(1)
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(fn))
	})

	It("reports an undefined id as not found", func() {
		ft := ir.NewFunctionTable()
		_, ok := ft.Lookup(99)
		Expect(ok).To(BeFalse())
	})
})
