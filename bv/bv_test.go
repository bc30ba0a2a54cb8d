package bv_test

import (
	"math/big"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/islafoot/bv"
)

var _ = Describe("B64", func() {
	It("round-trips through String/ParseB64", func() {
		b := bv.FromU64(0xdead, 32)
		parsed, err := bv.ParseB64(b.String())
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.Eq(b)).To(BeTrue())
	})

	It("round-trips through Bytes/FromBytes", func() {
		b := bv.FromU64(0x1234, 16)
		got := bv.FromBytes(b.Bytes())
		Expect(got.Eq(b)).To(BeTrue())
	})

	It("truncates construction to the requested length", func() {
		b := bv.FromU64(0x1ff, 8)
		Expect(b.Lower64()).To(Equal(uint64(0xff)))
	})

	It("rejects a malformed literal", func() {
		_, err := bv.ParseB64("not-a-bitvector")
		Expect(err).To(HaveOccurred())
	})

	It("adds with wraparound at the declared width", func() {
		a := bv.FromU64(0xff, 8)
		b := bv.FromU64(1, 8)
		sum := a.Add(b)
		Expect(sum.Lower64()).To(Equal(uint64(0)))
		Expect(sum.Len()).To(Equal(uint32(8)))
	})

	It("zero-extends with fill in the new high bits", func() {
		a := bv.FromU64(0xff, 8)
		ext := a.ZeroExtend(16)
		Expect(ext.Len()).To(Equal(uint32(16)))
		Expect(ext.Lower64()).To(Equal(uint64(0xff)))
	})

	It("slices a sub-range of bits", func() {
		a := bv.FromU64(0xabcd, 16)
		lo := a.Slice(0, 8)
		hi := a.Slice(8, 8)
		Expect(lo.Lower64()).To(Equal(uint64(0xcd)))
		Expect(hi.Lower64()).To(Equal(uint64(0xab)))
	})

	It("reports equal values as Eq and different ones as not", func() {
		a := bv.FromU64(5, 8)
		b := bv.FromU64(5, 8)
		c := bv.FromU64(6, 8)
		Expect(a.Eq(b)).To(BeTrue())
		Expect(a.Eq(c)).To(BeFalse())
	})

	It("counts leading zeros within its declared length", func() {
		a := bv.FromU64(1, 8)
		Expect(a.LeadingZeros()).To(Equal(7))
	})
})

var _ = Describe("B129", func() {
	It("round-trips through String", func() {
		b := bv.FromBigInt(big.NewInt(0xdead), 40)
		Expect(b.String()).To(Equal("#xdead:40"))
	})

	It("truncates construction to the requested length", func() {
		b := bv.FromBigInt(big.NewInt(0x1ff), 8)
		Expect(b.Lower64()).To(Equal(uint64(0xff)))
	})

	It("adds with wraparound at the declared width", func() {
		a := bv.FromBigInt(big.NewInt(0xff), 8)
		one := bv.FromBigInt(big.NewInt(1), 8)
		sum := a.Add(one)
		Expect(sum.Lower64()).To(Equal(uint64(0)))
	})

	It("zero-extends with fill in the new high bits", func() {
		a := bv.FromBigInt(big.NewInt(0xff), 8)
		ext := a.ZeroExtend(130)
		Expect(ext.Len()).To(Equal(uint32(130)))
		Expect(ext.Lower64()).To(Equal(uint64(0xff)))
	})

	It("slices a sub-range of bits", func() {
		a := bv.FromBigInt(big.NewInt(0xabcd), 16)
		lo := a.Slice(0, 8)
		Expect(lo.Lower64()).To(Equal(uint64(0xcd)))
	})

	It("reports equal values as Eq and different ones as not", func() {
		a := bv.FromBigInt(big.NewInt(5), 8)
		b := bv.FromBigInt(big.NewInt(5), 8)
		c := bv.FromBigInt(big.NewInt(6), 8)
		Expect(a.Eq(b)).To(BeTrue())
		Expect(a.Eq(c)).To(BeFalse())
	})
})
