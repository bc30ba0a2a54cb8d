// Package footprint implements the per-opcode dependency footprint data
// model (spec.md §3/§4.D) and the analyzer pipeline that derives it: for
// every concrete opcode seen in a litmus-test run, execute the ISA's
// `isla_footprint` semantic function symbolically, fold every resulting
// path's events into one Footprint, and persist it to a content-addressed
// cache keyed by opcode.
package footprint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sarchlab/islafoot/ir"
	"github.com/sarchlab/islafoot/smt"
	"github.com/sarchlab/islafoot/taint"
)

// Opcode is the concrete instruction encoding a Footprint is cached and
// indexed by, rendered as a string so it is usable as a map/cache key
// regardless of bitvector width. depquery.Opcode is a separate alias for
// the same string type.
type Opcode = string

// Footprint is the per-opcode summary described in spec.md §3.
type Footprint struct {
	WriteDataTaints       taint.Taints
	MemAddrTaints         taint.Taints
	BranchAddrTaints      taint.Taints
	RegisterReads         taint.RegSet
	RegisterWrites        taint.RegSet
	RegisterWritesTainted taint.RegSet
	IsStore               bool
	IsLoad                bool
	IsBranch              bool
}

// New builds an empty Footprint with all its sets initialized, ready to
// be folded into by successive completed execution paths.
func New() *Footprint {
	return &Footprint{
		WriteDataTaints:       taint.Taints{Regs: taint.NewRegSet()},
		MemAddrTaints:         taint.Taints{Regs: taint.NewRegSet()},
		BranchAddrTaints:      taint.Taints{Regs: taint.NewRegSet()},
		RegisterReads:         taint.NewRegSet(),
		RegisterWrites:        taint.NewRegSet(),
		RegisterWritesTainted: taint.NewRegSet(),
	}
}

// MergeTaints folds src into dst: regs union, mem flag OR.
func mergeTaints(dst *taint.Taints, src taint.Taints) {
	dst.Regs.Union(src.Regs)
	dst.MemTaint = dst.MemTaint || src.MemTaint
}

// Fold merges another path's contribution into f (set union over every
// field, per spec.md's "footprint is the union across all completed
// execution paths" invariant). Fold must only be called while a
// Footprint is under construction for a single opcode; a frozen Footprint
// (one returned from the cache or handed to a result map) is never
// mutated again.
func (f *Footprint) Fold(other *Footprint) {
	mergeTaints(&f.WriteDataTaints, other.WriteDataTaints)
	mergeTaints(&f.MemAddrTaints, other.MemAddrTaints)
	mergeTaints(&f.BranchAddrTaints, other.BranchAddrTaints)
	f.RegisterReads.Union(other.RegisterReads)
	f.RegisterWrites.Union(other.RegisterWrites)
	f.RegisterWritesTainted.Union(other.RegisterWritesTainted)
	f.IsStore = f.IsStore || other.IsStore
	f.IsLoad = f.IsLoad || other.IsLoad
	f.IsBranch = f.IsBranch || other.IsBranch
}

// Pretty renders the footprint in the human-readable form the teacher's
// own components print diagnostics in, resolving register ids through
// symtab.
func (f *Footprint) Pretty(symtab *ir.Symtab) string {
	var b strings.Builder
	b.WriteString("Footprint:\n")
	writeRegSet(&b, "  Memory write data:", f.WriteDataTaints.Regs, symtab)
	writeRegSet(&b, "  Memory address:", f.MemAddrTaints.Regs, symtab)
	writeRegSet(&b, "  Branch address:", f.BranchAddrTaints.Regs, symtab)
	writeRegSet(&b, "  Register reads:", f.RegisterReads, symtab)
	writeRegSet(&b, "  Register writes:", f.RegisterWrites, symtab)
	writeRegSet(&b, "  Register writes (tainted):", f.RegisterWritesTainted, symtab)
	fmt.Fprintf(&b, "  Is store: %t\n", f.IsStore)
	fmt.Fprintf(&b, "  Is load: %t\n", f.IsLoad)
	fmt.Fprintf(&b, "  Is branch: %t\n", f.IsBranch)
	return b.String()
}

func writeRegSet(b *strings.Builder, label string, regs taint.RegSet, symtab *ir.Symtab) {
	b.WriteString(label)
	for _, loc := range sortedRegs(regs) {
		fmt.Fprintf(b, " %s%s", symtab.Name(int(loc.ID)), accessorSuffix(loc.Accessors))
	}
	b.WriteString("\n")
}

func accessorSuffix(accessors []ir.Accessor) string {
	var b strings.Builder
	for _, a := range accessors {
		b.WriteString(a.String())
	}
	return b.String()
}

func sortedRegs(regs taint.RegSet) []ir.RegisterLocation {
	out := make([]ir.RegisterLocation, 0, len(regs))
	for _, v := range regs {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
