// Package depquery implements the three pure dependency predicates the
// axiomatic concurrency checker queries over a program-order instruction
// list and its per-opcode footprints (spec.md §4.E).
package depquery

import (
	"github.com/sarchlab/islafoot/footprint"
	"github.com/sarchlab/islafoot/taint"
)

// Opcode is the key footprints are indexed by: the concrete instruction
// encoding, rendered as islafoot's own Value.String() form so it is a
// comparable map key regardless of bitvector width.
type Opcode = string

// Footprints maps an opcode to its analyzed Footprint.
type Footprints map[Opcode]*footprint.Footprint

// touchedBy computes the transitive closure of spec.md §4.E's
// touched_by(from, to): the set of register-locations instrs[from]'s
// memory-tainted writes could have syntactically propagated into by
// position to. The propagation is a single forward pass in program
// order — not a fixed point over the window — so a register read late in
// the window cannot reach back and re-trigger an earlier write it did
// not yet depend on.
func touchedBy(from, to int, instrs []Opcode, footprints Footprints) taint.RegSet {
	touched := footprints[instrs[from]].RegisterWritesTainted.Clone()

	for i := from + 1; i < to; i++ {
		fp := footprints[instrs[i]]
		var newlyTouched []taint.RegSet
		for _, rreg := range fp.RegisterReads {
			if touched.Contains(rreg) {
				newlyTouched = append(newlyTouched, fp.RegisterWrites)
				break
			}
		}
		for _, s := range newlyTouched {
			touched.Union(s)
		}
	}
	return touched
}

// AddrDep reports whether there is an RR or RW address dependency from
// instrs[from] to instrs[to]: whether any register transitively touched
// by instrs[from]'s tainted writes feeds the memory address used by
// instrs[to].
func AddrDep(from, to int, instrs []Opcode, footprints Footprints) bool {
	if from >= to {
		return false
	}
	touched := touchedBy(from, to, instrs, footprints)
	return intersects(touched, footprints[instrs[to]].MemAddrTaints.Regs)
}

// DataDep reports whether there is an RW data dependency from instrs[from]
// to instrs[to]: whether any register transitively touched by
// instrs[from]'s tainted writes feeds the data written by instrs[to].
func DataDep(from, to int, instrs []Opcode, footprints Footprints) bool {
	if from >= to {
		return false
	}
	touched := touchedBy(from, to, instrs, footprints)
	return intersects(touched, footprints[instrs[to]].WriteDataTaints.Regs)
}

// CtrlDep reports whether there is an RW or RR control dependency from
// instrs[from] to instrs[to]: instrs[from] must be a load or a store, and
// some intermediate branch's branch_addr_taints must contain a register
// transitively touched by instrs[from]'s tainted writes. This
// deliberately never consults instrs[to]'s own branch_addr_taints, only
// those of the branches strictly between from and to — a faithful
// reproduction of the original analysis rather than an oversight.
func CtrlDep(from, to int, instrs []Opcode, footprints Footprints) bool {
	fromFootprint := footprints[instrs[from]]
	if !(fromFootprint.IsLoad || fromFootprint.IsStore) || from >= to {
		return false
	}

	touched := fromFootprint.RegisterWritesTainted.Clone()

	for i := from + 1; i < to; i++ {
		fp := footprints[instrs[i]]

		if fp.IsBranch && intersects(touched, fp.BranchAddrTaints.Regs) {
			return true
		}

		var newlyTouched []taint.RegSet
		for _, rreg := range fp.RegisterReads {
			if touched.Contains(rreg) {
				newlyTouched = append(newlyTouched, fp.RegisterWrites)
				break
			}
		}
		for _, s := range newlyTouched {
			touched.Union(s)
		}
	}
	return false
}

func intersects(a, b taint.RegSet) bool {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for _, loc := range small {
		if large.Contains(loc) {
			return true
		}
	}
	return false
}
