// Package memory implements the region-indexed symbolic memory model
// (spec.md §4.A): a byte-addressed 64-bit address space partitioned into
// half-open [base, top) regions, each with its own read/write semantics,
// consulted by the executor on every ReadMem/WriteMem.
package memory

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/islafoot/bv"
	"github.com/sarchlab/islafoot/smt"
	"github.com/sarchlab/islafoot/value"
)

func concreteAddr(addr Address) bv.BV { return bv.FromU64(addr, 64) }

func bvFromBytes(b []byte) bv.BV { return bv.FromBytes(b) }

// Address is a byte address. islafoot, like its teacher, only targets
// 64-bit architectures.
type Address = uint64

// AddrRange is a half-open [Start, End) byte range.
type AddrRange struct {
	Start, End Address
}

// Contains reports whether addr falls in [r.Start, r.End).
func (r AddrRange) Contains(addr Address) bool { return addr >= r.Start && addr < r.End }

// Len returns the number of addressable bytes in the range.
func (r AddrRange) Len() uint64 { return r.End - r.Start }

// Generator mints a fresh symbolic variable standing for the entire
// contents of a Constrained region, given a solver to declare it in.
type Generator func(s smt.Solver) value.Sym

// Region is one entry of a Memory's address-space partition. Exactly one
// concrete type below is ever stored; Region itself is a closed union the
// same way ir.Op and smt.Exp are.
type Region interface {
	isRegion()
	rng() AddrRange
	String() string
}

// Constrained is a small region whose entire contents are a single
// symbolic variable produced by Generator, which is called again on every
// read through that region. Used for litmus-test memory locations whose
// contents a concurrency model, not this module, will constrain further.
type Constrained struct {
	Range     AddrRange
	Generator Generator
}

// Symbolic is a region of arbitrary symbolic locations: every read
// returns an independent fresh symbolic variable.
type Symbolic struct{ Range AddrRange }

// SymbolicCode is a read-only region of arbitrary symbolic locations
// intended to hold instruction encodings rather than data; it is
// distinguished from Symbolic so that smt_address_constraint can restrict
// an instruction-fetch constraint to only code regions.
type SymbolicCode struct{ Range AddrRange }

// Concrete is a region of concrete, byte-addressable contents (program
// image, statically initialized data). Bytes not present in Contents
// read as zero.
type Concrete struct {
	Range    AddrRange
	Contents map[Address]byte
}

func (Constrained) isRegion()  {}
func (Symbolic) isRegion()     {}
func (SymbolicCode) isRegion() {}
func (Concrete) isRegion()     {}

func (r Constrained) rng() AddrRange  { return r.Range }
func (r Symbolic) rng() AddrRange     { return r.Range }
func (r SymbolicCode) rng() AddrRange { return r.Range }
func (r Concrete) rng() AddrRange     { return r.Range }

func (r Constrained) String() string {
	return fmt.Sprintf("Constrained([0x%x, 0x%x))", r.Range.Start, r.Range.End)
}
func (r Symbolic) String() string {
	return fmt.Sprintf("Symbolic([0x%x, 0x%x))", r.Range.Start, r.Range.End)
}
func (r SymbolicCode) String() string {
	return fmt.Sprintf("SymbolicCode([0x%x, 0x%x))", r.Range.Start, r.Range.End)
}
func (r Concrete) String() string {
	return fmt.Sprintf("Concrete([0x%x, 0x%x), %d bytes set)", r.Range.Start, r.Range.End, len(r.Contents))
}

// Kind distinguishes the three classes of memory access smt_address_constraint
// needs to tell apart (spec.md §4.A).
type Kind int

const (
	// ReadData is an ordinary data-memory read; every region can satisfy it.
	ReadData Kind = iota
	// ReadInstr is an instruction fetch; only SymbolicCode regions qualify.
	ReadInstr
	// WriteData is an ordinary data-memory write; only Symbolic regions
	// qualify (program memory and constrained regions are not writable
	// targets of a generic store).
	WriteData
)

// Callbacks is the optional client hook invoked around symbolic
// reads/writes, mirroring the teacher's MemoryCallbacks client interface.
// A typical client (e.g. a sequential-consistency enforcement layer) uses
// it to additionally constrain the solver; islafoot's own default run
// leaves this nil.
type Callbacks interface {
	SymbolicRead(regions []Region, s smt.Solver, val, readKind, address value.Value, bytes uint32)
	SymbolicWrite(regions []Region, s smt.Solver, val value.Sym, writeKind, address, data value.Value, bytes uint32)
	// Clone returns an independent copy, invoked whenever the owning
	// Memory is cloned at a fork point.
	Clone() Callbacks
}

// Memory is an ordered list of Regions plus an optional client hook. The
// zero value is usable: an empty memory with no client info.
type Memory struct {
	regions    []Region
	clientInfo Callbacks
}

// New builds an empty Memory.
func New() *Memory {
	return &Memory{}
}

// Clone returns an independent copy of m suitable for handing to a forked
// task. Concrete regions carry a mutable byte map that WriteByte updates
// in place, so those maps are copied; the other region kinds are
// immutable after construction and can be shared by value.
func (m *Memory) Clone() *Memory {
	clone := &Memory{regions: make([]Region, len(m.regions))}
	for i, r := range m.regions {
		if c, ok := r.(Concrete); ok {
			contents := make(map[Address]byte, len(c.Contents))
			for k, v := range c.Contents {
				contents[k] = v
			}
			clone.regions[i] = Concrete{Range: c.Range, Contents: contents}
			continue
		}
		clone.regions[i] = r
	}
	if m.clientInfo != nil {
		clone.clientInfo = m.clientInfo.Clone()
	}
	return clone
}

// Log emits one structured log line per region, matching the teacher's
// per-region memory-layout tracing.
func (m *Memory) Log() {
	for _, r := range m.regions {
		slog.Debug("memory region", "region", r.String())
	}
}

// AddRegion appends an arbitrary region, in particular a Constrained one
// (spec.md §4.A "add_region").
func (m *Memory) AddRegion(r Region) { m.regions = append(m.regions, r) }

// AddSymbolicRegion appends a Symbolic region over rng.
func (m *Memory) AddSymbolicRegion(rng AddrRange) { m.regions = append(m.regions, Symbolic{Range: rng}) }

// AddSymbolicCodeRegion appends a SymbolicCode region over rng.
func (m *Memory) AddSymbolicCodeRegion(rng AddrRange) {
	m.regions = append(m.regions, SymbolicCode{Range: rng})
}

// AddConcreteRegion appends a Concrete region over rng with the given
// initial contents (may be nil/empty).
func (m *Memory) AddConcreteRegion(rng AddrRange, contents map[Address]byte) {
	if contents == nil {
		contents = make(map[Address]byte)
	}
	m.regions = append(m.regions, Concrete{Range: rng, Contents: contents})
}

// SetCallbacks installs the optional client hook.
func (m *Memory) SetCallbacks(c Callbacks) { m.clientInfo = c }

// WriteByte pokes a single concrete byte, extending an existing Concrete
// region that already contains address, or else creating a new
// single-byte Concrete region for it. This mirrors the teacher's
// write_byte, used by callers materializing a program image one byte at
// a time before execution begins.
func (m *Memory) WriteByte(address Address, b byte) {
	for i := range m.regions {
		c, ok := m.regions[i].(Concrete)
		if ok && c.Range.Contains(address) {
			c.Contents[address] = b
			return
		}
	}
	m.regions = append(m.regions, Concrete{
		Range:    AddrRange{Start: address, End: address + 1},
		Contents: map[Address]byte{address: b},
	})
}

// Read performs a memory read, dispatching to the first region whose
// range contains a concrete address, or to a fully symbolic read if the
// address is itself symbolic or lies in no region (spec.md §4.A). bytes must
// be a concrete Int; a symbolic byte count is a SymbolicLength error, the
// one case the teacher's implementation also rejects outright since it
// cannot declare an SMT sort of unknown width.
func (m *Memory) Read(readKind, address, bytes value.Value, s smt.Solver) (value.Value, error) {
	slog.Debug("memory read", "read_kind", readKind, "address", address, "bytes", bytes)

	n, ok := bytes.(value.Int)
	if !ok {
		return nil, &SymbolicLengthError{Op: "read"}
	}
	nBytes := uint32(n.V)

	addrBits, ok := value.IsConcreteBits(address)
	if !ok {
		return m.readSymbolic(readKind, address, nBytes, s)
	}
	addr := addrBits.Lower64()

	for _, r := range m.regions {
		switch r := r.(type) {
		case Constrained:
			if r.Range.Contains(addr) {
				return m.readConstrained(r, readKind, addr, nBytes, s)
			}
		case Symbolic:
			if r.Range.Contains(addr) {
				return m.readSymbolic(readKind, address, nBytes, s)
			}
		case SymbolicCode:
			if r.Range.Contains(addr) {
				return m.readSymbolic(readKind, address, nBytes, s)
			}
		case Concrete:
			if r.Range.Contains(addr) {
				return readConcrete(r.Contents, readKind, addr, nBytes, s)
			}
		}
	}
	return m.readSymbolic(readKind, address, nBytes, s)
}

// Write performs a memory write. Address concreteness does not change the
// write path: every write resolves to a fresh symbolic success value and
// a WriteMem event, with durability left to a downstream consumer (spec.md
// §4.A), matching the teacher's write/write_symbolic split (which, as in
// the original, always bottoms out in write_symbolic regardless of the
// address's concreteness).
func (m *Memory) Write(writeKind, address, data value.Value, s smt.Solver) (value.Value, error) {
	slog.Debug("memory write", "write_kind", writeKind, "address", address, "data", data)
	return m.writeSymbolic(writeKind, address, data, s)
}

func (m *Memory) readSymbolic(readKind, address value.Value, bytes uint32, s smt.Solver) (value.Value, error) {
	v := s.Fresh()
	s.Add(smt.DeclareConst{Var: v, Ty: smt.BitVecTy{Width: 8 * bytes}})
	val := value.Symbolic{Var: v}
	if m.clientInfo != nil {
		m.clientInfo.SymbolicRead(m.regions, s, val, readKind, address, bytes)
	}
	s.AddEvent(smt.ReadMem{Value: val, ReadKind: readKind, Address: address, Bytes: bytes})
	return val, nil
}

func (m *Memory) writeSymbolic(writeKind, address, data value.Value, s smt.Solver) (value.Value, error) {
	bytes, err := dataBytes(data)
	if err != nil {
		return nil, err
	}
	v := s.Fresh()
	s.Add(smt.DeclareConst{Var: v, Ty: smt.BoolTy{}})
	if m.clientInfo != nil {
		m.clientInfo.SymbolicWrite(m.regions, s, v, writeKind, address, data, bytes)
	}
	s.AddEvent(smt.WriteMem{Value: value.Symbolic{Var: v}, WriteKind: writeKind, Address: address, Data: data, Bytes: bytes})
	return value.Symbolic{Var: v}, nil
}

func dataBytes(data value.Value) (uint32, error) {
	bits, ok := value.IsConcreteBits(data)
	if !ok {
		// A symbolic data value still carries a concrete, statically known
		// bit width in this module's Value representation (unlike the
		// source ISA's runtime length_bits primitive), so only the
		// concrete-bits case needs a width check here.
		return 0, &TypeError{Op: "write_symbolic"}
	}
	if bits.Len()%8 != 0 {
		return 0, &TypeError{Op: "write_symbolic"}
	}
	return bits.Len() / 8, nil
}

func (m *Memory) readConstrained(r Constrained, readKind value.Value, addr Address, bytes uint32, s smt.Solver) (value.Value, error) {
	v := r.Generator(s)
	if addr == r.Range.Start && addr+uint64(bytes) == r.Range.End {
		val := value.Symbolic{Var: v}
		s.AddEvent(smt.ReadMem{
			Value:    val,
			ReadKind: readKind,
			Address:  value.Bits{BV: concreteAddr(addr)},
			Bytes:    bytes,
		})
		return val, nil
	}
	return nil, &BadReadError{Address: addr, Bytes: bytes}
}

func readConcrete(contents map[Address]byte, readKind value.Value, addr Address, bytes uint32, s smt.Solver) (value.Value, error) {
	raw := make([]byte, bytes)
	for i := uint32(0); i < bytes; i++ {
		raw[i] = contents[addr+uint64(i)]
	}
	reverseEndianness(raw)

	if bytes > 8 {
		return nil, &BadReadError{Address: addr, Bytes: bytes}
	}

	bitsVal := bvFromBytes(raw)
	val := value.Bits{BV: bitsVal}
	s.AddEvent(smt.ReadMem{Value: val, ReadKind: readKind, Address: value.Bits{BV: concreteAddr(addr)}, Bytes: bytes})
	return val, nil
}

// reverseEndianness recursively halves-and-rotates a byte slice, composing
// the region's little-endian byte order into the big-endian-ish scanning
// order read/write use internally, exactly as the teacher's
// reverse_endianness does.
func reverseEndianness(b []byte) {
	if len(b) <= 2 {
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
		return
	}
	half := len(b) / 2
	reverseEndianness(b[:half])
	reverseEndianness(b[half:])
	rotateLeft(b, half)
}

func rotateLeft(b []byte, k int) {
	tmp := append([]byte(nil), b[:k]...)
	copy(b, b[k:])
	copy(b[len(b)-k:], tmp)
}
