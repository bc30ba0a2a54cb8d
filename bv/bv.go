// Package bv defines the bitvector capability that is threaded through the
// symbolic executor, the memory model, and the SMT layer. A BV is any value
// that supports constant construction from a u64, carries an explicit bit
// length, and can round-trip through bytes and through a string encoding.
//
// Two concrete widths are provided, mirroring architectures with 64-bit and
// wider (128+1 bit, to hold a carry/overflow bit alongside a 128-bit SVE
// vector element) general-purpose words. Callers pick whichever fits their
// target ISA; the rest of the module only depends on the BV interface.
package bv

import (
	"fmt"
	"math/big"
	"math/bits"
)

// BV is a fixed-width bitvector value.
type BV interface {
	// Len returns the bit length of the value.
	Len() uint32
	// Lower64 returns the low 64 bits of the value.
	Lower64() uint64
	// Bytes returns the value as little-endian bytes, padded to a whole
	// number of bytes (ceil(Len()/8)).
	Bytes() []byte
	// String renders the value as "#xHEX:LEN".
	String() string
	// Eq reports whether two bitvectors have equal length and value.
	Eq(other BV) bool
	// ZeroExtend returns a copy widened to n bits (n >= Len()) with zero
	// fill in the new high bits.
	ZeroExtend(n uint32) BV
	// Add returns the wrapping sum of two same-length bitvectors.
	Add(other BV) BV
	// Slice extracts bits [lo, lo+width) (lo counted from bit 0, LSB).
	Slice(lo, width uint32) BV
}

// B64 is a bitvector up to 64 bits wide, stored as a plain uint64.
type B64 struct {
	value  uint64
	length uint32
}

// FromU64 builds a B64 from a u64 value truncated to length bits.
func FromU64(value uint64, length uint32) B64 {
	if length < 64 {
		value &= (uint64(1) << length) - 1
	}
	return B64{value: value, length: length}
}

// ParseB64 parses the "#xHEX:LEN" form produced by String, round-tripping
// exactly the values FromU64/FromBytes constructed.
func ParseB64(s string) (B64, error) {
	var hex string
	var length uint32
	if _, err := fmt.Sscanf(s, "#x%s", &hex); err != nil {
		return B64{}, fmt.Errorf("bv: malformed B64 literal %q: %w", s, err)
	}
	var value uint64
	var n int
	for n = 0; n < len(hex) && hex[n] != ':'; n++ {
	}
	if n == len(hex) {
		return B64{}, fmt.Errorf("bv: missing length suffix in %q", s)
	}
	if _, err := fmt.Sscanf(hex[:n], "%x", &value); err != nil {
		return B64{}, fmt.Errorf("bv: malformed hex digits in %q: %w", s, err)
	}
	if _, err := fmt.Sscanf(hex[n+1:], "%d", &length); err != nil {
		return B64{}, fmt.Errorf("bv: malformed length in %q: %w", s, err)
	}
	return FromU64(value, length), nil
}

// FromBytes composes a B64 from little-endian bytes.
func FromBytes(b []byte) B64 {
	var value uint64
	for i := len(b) - 1; i >= 0; i-- {
		value = value<<8 | uint64(b[i])
	}
	return B64{value: value, length: uint32(len(b)) * 8}
}

func (b B64) Len() uint32     { return b.length }
func (b B64) Lower64() uint64 { return b.value }

func (b B64) Bytes() []byte {
	nbytes := (b.length + 7) / 8
	out := make([]byte, nbytes)
	v := b.value
	for i := uint32(0); i < nbytes; i++ {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

func (b B64) String() string {
	return fmt.Sprintf("#x%x:%d", b.value, b.length)
}

func (b B64) Eq(other BV) bool {
	o, ok := other.(B64)
	return ok && o.length == b.length && o.value == b.value
}

func (b B64) ZeroExtend(n uint32) BV {
	if n < b.length {
		panic("bv: ZeroExtend to narrower width")
	}
	return B64{value: b.value, length: n}
}

func (b B64) Add(other BV) BV {
	o, ok := other.(B64)
	if !ok || o.length != b.length {
		panic("bv: Add of mismatched widths")
	}
	return FromU64(b.value+o.value, b.length)
}

func (b B64) Slice(lo, width uint32) BV {
	if lo+width > b.length {
		panic("bv: Slice out of range")
	}
	mask := uint64(1)<<width - 1
	if width == 64 {
		mask = ^uint64(0)
	}
	return FromU64((b.value>>lo)&mask, width)
}

// LeadingZeros returns the number of leading (high-order) zero bits within
// Len().
func (b B64) LeadingZeros() int {
	if b.length == 0 {
		return 0
	}
	lz := bits.LeadingZeros64(b.value) - (64 - int(b.length))
	if lz < 0 {
		return 0
	}
	return lz
}

// B129 is a bitvector wide enough to hold a 128-bit vector element plus one
// extra carry bit, backed by math/big for the rare wide-width architectures.
type B129 struct {
	value  *big.Int
	length uint32
}

// FromBigInt builds a B129 from an arbitrary-precision value truncated to
// length bits.
func FromBigInt(value *big.Int, length uint32) B129 {
	v := new(big.Int).Set(value)
	mask := new(big.Int).Lsh(big.NewInt(1), uint(length))
	mask.Sub(mask, big.NewInt(1))
	v.And(v, mask)
	return B129{value: v, length: length}
}

func (b B129) Len() uint32 { return b.length }

func (b B129) Lower64() uint64 {
	mask := new(big.Int).Lsh(big.NewInt(1), 64)
	mask.Sub(mask, big.NewInt(1))
	lo := new(big.Int).And(b.value, mask)
	return lo.Uint64()
}

func (b B129) Bytes() []byte {
	nbytes := int((b.length + 7) / 8)
	out := make([]byte, nbytes)
	bytesBE := b.value.Bytes()
	for i := 0; i < len(bytesBE) && i < nbytes; i++ {
		out[i] = bytesBE[len(bytesBE)-1-i]
	}
	return out
}

func (b B129) String() string {
	return fmt.Sprintf("#x%x:%d", b.value, b.length)
}

func (b B129) Eq(other BV) bool {
	o, ok := other.(B129)
	return ok && o.length == b.length && o.value.Cmp(b.value) == 0
}

func (b B129) ZeroExtend(n uint32) BV {
	if n < b.length {
		panic("bv: ZeroExtend to narrower width")
	}
	return B129{value: new(big.Int).Set(b.value), length: n}
}

func (b B129) Add(other BV) BV {
	o, ok := other.(B129)
	if !ok || o.length != b.length {
		panic("bv: Add of mismatched widths")
	}
	sum := new(big.Int).Add(b.value, o.value)
	return FromBigInt(sum, b.length)
}

func (b B129) Slice(lo, width uint32) BV {
	if lo+width > b.length {
		panic("bv: Slice out of range")
	}
	shifted := new(big.Int).Rsh(b.value, uint(lo))
	return FromBigInt(shifted, width)
}
