package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/islafoot/config"
)

var _ = Describe("Config", func() {

	Describe("FromYAML", func() {
		It("should carry through explicitly set fields", func() {
			c := config.FromYAML(config.YAMLConfig{
				IgnoredRegisters: []string{"PC", "SP"},
				ThreadCount:      4,
				CacheDir:         "/tmp/cache",
				OpcodeWidthBits:  16,
			})

			Expect(c.ThreadCount).To(Equal(4))
			Expect(c.CacheDir).To(Equal("/tmp/cache"))
			Expect(c.OpcodeWidthBits).To(Equal(uint32(16)))
			Expect(c.IsIgnored("PC")).To(BeTrue())
			Expect(c.IsIgnored("SP")).To(BeTrue())
			Expect(c.IsIgnored("X1")).To(BeFalse())
		})

		It("should default thread count, cache dir, and opcode width when unset", func() {
			c := config.FromYAML(config.YAMLConfig{})

			Expect(c.ThreadCount).To(BeNumerically(">=", 1))
			Expect(c.CacheDir).To(Equal(".islafoot-cache"))
			Expect(c.OpcodeWidthBits).To(Equal(uint32(config.DefaultOpcodeWidthBits)))
		})
	})

	Describe("DefaultThreadCount", func() {
		It("should return a positive count", func() {
			Expect(config.DefaultThreadCount()).To(BeNumerically(">=", 1))
		})
	})

	Describe("Load", func() {
		It("should report an error for a missing file", func() {
			_, err := config.Load("/nonexistent/islafoot.yaml")
			Expect(err).To(HaveOccurred())
		})
	})
})
