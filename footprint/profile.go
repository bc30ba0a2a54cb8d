package footprint

import (
	"time"

	"github.com/google/pprof/profile"
)

// CostProfiler accumulates a pprof profile.Profile of one sample per
// opcode Analyze executes, addressing spec.md's observation that "one
// symbolic execution per opcode is the dominant cost": a caller can
// write the result out (profile.Write) and inspect it with any standard
// pprof viewer to find the opcodes whose semantic functions fork the
// most or simply take the longest to execute.
type CostProfiler struct {
	samples []*profile.Sample
	opcodes map[Opcode]int64 // function id per first-seen opcode
	nextID  uint64
}

// NewCostProfiler returns an empty profiler.
func NewCostProfiler() *CostProfiler {
	return &CostProfiler{opcodes: make(map[Opcode]int64)}
}

// Record adds one sample: opcode took elapsed wall-clock time and forked
// into numPaths symbolic-execution paths.
func (p *CostProfiler) Record(opcode Opcode, elapsed time.Duration, numPaths int) {
	fnID, ok := p.opcodes[opcode]
	if !ok {
		p.nextID++
		fnID = int64(p.nextID)
		p.opcodes[opcode] = fnID
	}

	loc := &profile.Location{
		ID: uint64(fnID),
		Line: []profile.Line{{
			Function: &profile.Function{ID: uint64(fnID), Name: string(opcode)},
		}},
	}

	p.samples = append(p.samples, &profile.Sample{
		Location: []*profile.Location{loc},
		Value:    []int64{elapsed.Nanoseconds(), int64(numPaths)},
	})
}

// Profile builds the final profile.Profile over every Record call so
// far.
func (p *CostProfiler) Profile() *profile.Profile {
	funcsByID := make(map[uint64]*profile.Function)
	locsByID := make(map[uint64]*profile.Location)
	for _, s := range p.samples {
		for _, l := range s.Location {
			locsByID[l.ID] = l
			for _, ln := range l.Line {
				funcsByID[ln.Function.ID] = ln.Function
			}
		}
	}

	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "cpu", Unit: "nanoseconds"},
			{Type: "paths", Unit: "count"},
		},
		Sample: p.samples,
	}
	for _, l := range locsByID {
		prof.Location = append(prof.Location, l)
	}
	for _, f := range funcsByID {
		prof.Function = append(prof.Function, f)
	}
	return prof
}
