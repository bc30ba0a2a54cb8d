package footprint_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/islafoot/bv"
	"github.com/sarchlab/islafoot/footprint"
	"github.com/sarchlab/islafoot/ir"
	"github.com/sarchlab/islafoot/smt"
	"github.com/sarchlab/islafoot/value"
)

const regX1 ir.RegisterID = 1
const regX2 ir.RegisterID = 2

var _ = Describe("ExtractOpcodes", func() {
	It("should return every concrete Instr opcode in order", func() {
		events := []smt.Event{
			smt.Instr{Opcode: value.Bits{BV: bv.FromU64(1, 32)}},
			smt.ReadReg{Reg: regX1},
			smt.Instr{Opcode: value.Bits{BV: bv.FromU64(2, 32)}},
		}

		ops, err := footprint.ExtractOpcodes(events)
		Expect(err).NotTo(HaveOccurred())
		Expect(ops).To(Equal([]footprint.Opcode{
			bv.FromU64(1, 32).String(),
			bv.FromU64(2, 32).String(),
		}))
	})

	It("should reject a symbolic opcode", func() {
		events := []smt.Event{
			smt.Instr{Opcode: value.Symbolic{Var: 1}},
		}
		_, err := footprint.ExtractOpcodes(events)
		Expect(err).To(HaveOccurred())
		var symErr footprint.SymbolicInstruction
		Expect(err).To(BeAssignableToTypeOf(symErr))
	})
})

var _ = Describe("CollectedEvents", func() {
	It("should keep only the suffix after the last Cycle, filtered to footprint-relevant kinds", func() {
		raw := []smt.Event{
			smt.ReadReg{Reg: regX1}, // initialization epoch, discarded
			smt.Cycle{},
			smt.ReadReg{Reg: regX2},
			smt.Branch{Address: value.Bits{BV: bv.FromU64(0, 64)}},
		}

		out := footprint.CollectedEvents(raw)
		Expect(out).To(HaveLen(2))
		_, ok := out[0].(smt.ReadReg)
		Expect(ok).To(BeTrue())
		_, ok = out[1].(smt.Branch)
		Expect(ok).To(BeTrue())
	})
})

var _ = Describe("Analyze", func() {
	var symtab *ir.Symtab

	buildFuncs := func(body []ir.Op, numLocals int) *ir.FunctionTable {
		funcs := ir.NewFunctionTable()
		id := symtab.MustLookup(footprint.IslaFootprintFnName)
		funcs.Define(id, &ir.Function{Name: footprint.IslaFootprintFnName, NumLocals: numLocals, Body: body})
		return funcs
	}

	BeforeEach(func() {
		symtab = ir.NewSymtab()
		symtab.Intern(footprint.IslaFootprintFnName)
	})

	It("should execute an uncached opcode and record its register write", func() {
		funcs := buildFuncs([]ir.Op{
			ir.OpLoadArg{Dst: 0},
			ir.OpWriteReg{Reg: regX1, Src: 0},
			ir.OpReturn{},
		}, 1)

		opcode := bv.FromU64(815, 64).String()
		fps, err := footprint.Analyze([]footprint.Opcode{opcode}, nil, footprint.Options{
			Funcs: funcs, Symtab: symtab, NumWorkers: 2,
		})
		Expect(err).NotTo(HaveOccurred())

		fp, ok := fps[opcode]
		Expect(ok).To(BeTrue())
		Expect(fp.RegisterWrites.Contains(ir.Reg(regX1))).To(BeTrue())
	})

	It("should reuse a cached footprint instead of re-executing", func() {
		funcs := buildFuncs([]ir.Op{
			ir.OpLoadArg{Dst: 0},
			ir.OpWriteReg{Reg: regX1, Src: 0},
			ir.OpReturn{},
		}, 1)

		dir := GinkgoT().TempDir()
		cache, err := footprint.OpenCache(dir)
		Expect(err).NotTo(HaveOccurred())
		defer cache.Close()

		opcode := bv.FromU64(42, 64).String()
		opt := footprint.Options{Funcs: funcs, Symtab: symtab, NumWorkers: 1, Now: func() int64 { return 1 }}

		_, err = footprint.Analyze([]footprint.Opcode{opcode}, cache, opt)
		Expect(err).NotTo(HaveOccurred())

		fps, err := footprint.Analyze([]footprint.Opcode{opcode}, cache, opt)
		Expect(err).NotTo(HaveOccurred())
		Expect(fps[opcode].RegisterWrites.Contains(ir.Reg(regX1))).To(BeTrue())

		hits, misses, _, err := cache.Stats(opcode)
		Expect(err).NotTo(HaveOccurred())
		Expect(misses).To(Equal(int64(1)))
		Expect(hits).To(Equal(int64(1)))
	})

	It("should report NoIslaFootprintFn when the function table lacks the function", func() {
		funcs := ir.NewFunctionTable()
		emptySymtab := ir.NewSymtab()
		_, err := footprint.Analyze([]footprint.Opcode{"#x1:32"}, nil, footprint.Options{
			Funcs: funcs, Symtab: emptySymtab,
		})
		Expect(err).To(HaveOccurred())
		var notFound footprint.NoIslaFootprintFn
		Expect(err).To(BeAssignableToTypeOf(notFound))
	})

	It("should mark a store's address as tainted by an unbound register read", func() {
		funcs := buildFuncs([]ir.Op{
			ir.OpReadReg{Dst: 0, Reg: regX2},                            // local0 = symbolic X2, used as address
			ir.OpLoadImm{Dst: 1, Val: value.Bits{BV: bv.FromU64(0xAB, 8)}}, // local1 = concrete store data
			ir.OpLoadImm{Dst: 2, Val: value.Int{V: 0}},                  // local2 = write_kind tag
			ir.OpWriteMem{Dst: 3, WriteKind: 2, Addr: 0, Data: 1},
			ir.OpReturn{},
		}, 4)

		opcode := bv.FromU64(7, 64).String()
		fps, err := footprint.Analyze([]footprint.Opcode{opcode}, nil, footprint.Options{
			Funcs: funcs, Symtab: symtab, NumWorkers: 1,
		})
		Expect(err).NotTo(HaveOccurred())

		fp := fps[opcode]
		Expect(fp.IsStore).To(BeTrue())
		Expect(fp.MemAddrTaints.Regs.Contains(ir.Reg(regX2))).To(BeTrue())
	})
})
