package memory

import "github.com/sarchlab/islafoot/smt"

// SMTAddressConstraint builds the disjunction, over every region of kind
// that is at least bytes wide, of "address falls within this region"
// (spec.md §4.A). The axiomatic concurrency checker uses it to constrain
// a symbolic address to the set of regions a given access kind may
// legally target. A 65-bit zero-extension is used for the upper-bound
// comparison so that address + bytes cannot wrap around and falsely
// satisfy a region at the top of the address space.
func (m *Memory) SMTAddressConstraint(address smt.Exp, bytes uint32, kind Kind, s smt.Solver) smt.Exp {
	return SMTAddressConstraint(m.regions, address, bytes, kind, s)
}

// SMTAddressConstraint is the free-function form, taking an explicit
// region list, mirroring the teacher's module-level smt_address_constraint
// (kept free-standing so the taint/footprint packages can reuse it without
// holding a live *Memory).
func SMTAddressConstraint(regions []Region, address smt.Exp, bytes uint32, kind Kind, s smt.Solver) smt.Exp {
	addrVar, ok := address.(smt.ExpVar)
	var v smt.ExpVar
	if ok {
		v = addrVar
	} else {
		sym := s.Fresh()
		s.Add(smt.DefineConst{Var: sym, Exp: address})
		v = smt.ExpVar{Var: sym}
	}

	var disjunction smt.Exp = smt.ExpBool{Value: false}
	for _, r := range regions {
		if !kindAdmits(kind, r) {
			continue
		}
		rng := r.rng()
		if rng.Len() < uint64(bytes) {
			continue
		}
		clause := rangeClause(rng, v, bytes)
		if isFalse(disjunction) {
			disjunction = clause
		} else {
			disjunction = smt.ExpOr{A: disjunction, B: clause}
		}
	}
	return disjunction
}

func kindAdmits(kind Kind, r Region) bool {
	switch kind {
	case ReadData:
		return true
	case ReadInstr:
		_, ok := r.(SymbolicCode)
		return ok
	case WriteData:
		_, ok := r.(Symbolic)
		return ok
	default:
		return false
	}
}

func rangeClause(rng AddrRange, addrVar smt.ExpVar, bytes uint32) smt.Exp {
	lowerBound := smt.ExpBvule{
		A: smt.ExpBits64{Value: rng.Start, Width: 64},
		B: addrVar,
	}
	upperBound := smt.ExpBvult{
		A: smt.ExpBvadd{
			A: smt.ExpZeroExtend{Width: 65, Exp: addrVar},
			B: smt.ExpZeroExtend{Width: 65, Exp: smt.ExpBits64{Value: uint64(bytes), Width: 64}},
		},
		B: smt.ExpZeroExtend{Width: 65, Exp: smt.ExpBits64{Value: rng.End, Width: 64}},
	}
	return smt.ExpAnd{A: lowerBound, B: upperBound}
}

func isFalse(e smt.Exp) bool {
	b, ok := e.(smt.ExpBool)
	return ok && !b.Value
}
