package config

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/cpu"
	"gopkg.in/yaml.v3"
)

// YAMLConfig is the on-disk shape of an islafoot analysis configuration,
// following the same yaml.v3 field-tag style as the teacher's
// YAMLCoreProgram.
type YAMLConfig struct {
	IgnoredRegisters []string `yaml:"ignored_registers"`
	ThreadCount      int      `yaml:"thread_count"`
	CacheDir         string   `yaml:"cache_dir"`
	OpcodeWidthBits  uint32   `yaml:"opcode_width_bits"`
}

// Config is the parsed, validated analysis configuration consumed by the
// footprint package: which architectural registers to exclude from a
// footprint's taint sets (e.g. a program counter tracked separately),
// how many worker goroutines to run the symbolic executor with, where the
// persistent per-opcode cache lives, and the bit width of an opcode.
type Config struct {
	IgnoredRegisters map[string]bool
	ThreadCount      int
	CacheDir         string
	OpcodeWidthBits  uint32
}

// DefaultOpcodeWidthBits is the width assumed when a loaded YAMLConfig
// leaves opcode_width_bits unset.
const DefaultOpcodeWidthBits = 32

// Load reads and validates an analysis configuration from a YAML file at
// path, the same load-then-validate shape as the teacher's
// core.LoadProgram.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var raw YAMLConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return FromYAML(raw), nil
}

// FromYAML converts an already-parsed YAMLConfig into a validated Config,
// filling in defaults for any field the YAML document left zero.
func FromYAML(raw YAMLConfig) *Config {
	c := &Config{
		IgnoredRegisters: make(map[string]bool, len(raw.IgnoredRegisters)),
		ThreadCount:      raw.ThreadCount,
		CacheDir:         raw.CacheDir,
		OpcodeWidthBits:  raw.OpcodeWidthBits,
	}
	for _, r := range raw.IgnoredRegisters {
		c.IgnoredRegisters[r] = true
	}
	if c.ThreadCount <= 0 {
		c.ThreadCount = DefaultThreadCount()
	}
	if c.CacheDir == "" {
		c.CacheDir = ".islafoot-cache"
	}
	if c.OpcodeWidthBits == 0 {
		c.OpcodeWidthBits = DefaultOpcodeWidthBits
	}
	return c
}

// DefaultThreadCount resolves the default worker-pool size (spec.md §5:
// "count configured per run (default: CPU count)"). It uses gopsutil's
// logical-core count rather than bare runtime.NumCPU so the figure
// reflects the host's actual topology (including container CPU quotas
// gopsutil accounts for) the way the teacher's dependency closure already
// pulls gopsutil/cpu in for.
func DefaultThreadCount() int {
	counts, err := cpu.Counts(true)
	if err != nil || counts <= 0 {
		return 1
	}
	return counts
}

// IsIgnored reports whether reg should be excluded from footprint taint
// sets.
func (c *Config) IsIgnored(reg string) bool {
	return c.IgnoredRegisters[reg]
}
