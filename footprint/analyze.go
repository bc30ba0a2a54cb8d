package footprint

import (
	"sync/atomic"
	"time"

	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/islafoot/bv"
	"github.com/sarchlab/islafoot/config"
	"github.com/sarchlab/islafoot/executor"
	"github.com/sarchlab/islafoot/ir"
	"github.com/sarchlab/islafoot/memory"
	"github.com/sarchlab/islafoot/smt"
	"github.com/sarchlab/islafoot/taint"
	"github.com/sarchlab/islafoot/value"
)

// IslaFootprintFnName is the well-known semantic-function name the
// analyzer drives: an ISA's compiled function table must define it.
const IslaFootprintFnName = "isla_footprint"

// ExtractOpcodes scans a litmus-test run's event trace for Instr markers
// and returns the concrete opcodes encountered, in order. An Instr event
// carrying a symbolic payload is rejected: footprint analysis caches and
// indexes strictly by concrete opcode.
func ExtractOpcodes(events []smt.Event) ([]Opcode, error) {
	var out []Opcode
	for i, e := range events {
		instr, ok := e.(smt.Instr)
		if !ok {
			continue
		}
		bits, ok := value.IsConcreteBits(instr.Opcode)
		if !ok {
			return nil, SymbolicInstruction{Index: i}
		}
		out = append(out, bits.String())
	}
	return out, nil
}

// CollectedEvents reproduces the original analysis's trace compaction: of
// a completed path's raw event buffer, only the suffix following the last
// Cycle marker belongs to the instruction under analysis (everything
// before it is the per-instruction initialization epoch), and only
// register/memory/branch/fork/solver-definition events are relevant to a
// footprint — everything else is discarded.
func CollectedEvents(raw []smt.Event) []smt.Event {
	cut := 0
	for i := len(raw) - 1; i >= 0; i-- {
		if smt.IsCycle(raw[i]) {
			cut = i + 1
			break
		}
	}

	out := make([]smt.Event, 0, len(raw)-cut)
	for _, e := range raw[cut:] {
		if smt.IsReg(e) || smt.IsMemory(e) || smt.IsBranch(e) || smt.IsFork(e) || smt.IsSMT(e) {
			out = append(out, e)
		}
	}
	return out
}

// Options configures one Analyze run.
type Options struct {
	Funcs      *ir.FunctionTable
	Symtab     *ir.Symtab
	Config     *config.Config
	Mem        *memory.Memory
	NumWorkers int
	// Now stamps cache accesses; defaults to time.Now().Unix().
	Now func() int64
	// Progress, if non-nil, is incremented once per symbolic-execution
	// path completed across every opcode this Options analyzes; a
	// Heartbeat ticking component can report it through akita's
	// monitoring server while a long Analyze call is in flight.
	Progress *atomic.Int64
	// Monitor and Engine, if both set, register a Heartbeat for this run
	// with the monitoring server the way the teacher's device builder
	// registers a CGRA device's tiles (spec.md never requires this; it
	// is purely an observability aid for a caller already running an
	// akita engine loop, which is responsible for ticking it).
	Monitor *monitoring.Monitor
	Engine  sim.Engine
	// Profiler, if set, records one pprof sample per opcode analyzed
	// (wall-clock time and fork-path count), addressing spec.md's
	// observation that symbolic execution is the dominant per-opcode
	// cost.
	Profiler *CostProfiler
}

// registerHeartbeat wires progress into opt.Monitor, if configured,
// returning the Heartbeat so a caller can keep a reference (e.g. to
// unregister it later); it is a no-op when Monitor or Engine is unset.
func (o Options) registerHeartbeat(name string, progress *atomic.Int64) *executor.Heartbeat {
	if o.Monitor == nil || o.Engine == nil {
		return nil
	}
	hb := executor.NewHeartbeat(name, o.Engine, 1*sim.GHz, progress)
	o.Monitor.RegisterComponent(hb)
	return hb
}

func (o Options) numWorkers() int {
	if o.NumWorkers > 0 {
		return o.NumWorkers
	}
	if o.Config != nil && o.Config.ThreadCount > 0 {
		return o.Config.ThreadCount
	}
	return 1
}

func (o Options) now() int64 {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().Unix()
}

func (o Options) ignored(reg ir.RegisterID) bool {
	if o.Config == nil || o.Symtab == nil {
		return false
	}
	return o.Config.IsIgnored(o.Symtab.Name(int(reg)))
}

// Analyze computes (or fetches from cache) a Footprint for every distinct
// opcode in opcodes, spawning one symbolic-executor task per uncached
// opcode against opt.Funcs' isla_footprint function (spec.md §4.D).
func Analyze(opcodes []Opcode, cache *Cache, opt Options) (Footprints, error) {
	if opt.Progress == nil && opt.Monitor != nil && opt.Engine != nil {
		opt.Progress = &atomic.Int64{}
	}
	opt.registerHeartbeat("FootprintAnalyzer", opt.Progress)

	fnID, ok := opt.Symtab.Lookup(IslaFootprintFnName)
	if !ok {
		return nil, NoIslaFootprintFn{}
	}
	fn, ok := opt.Funcs.Lookup(fnID)
	if !ok {
		return nil, NoIslaFootprintFn{}
	}

	seen := make(map[Opcode]bool)
	var unique []Opcode
	for _, op := range opcodes {
		if !seen[op] {
			seen[op] = true
			unique = append(unique, op)
		}
	}

	results := make(Footprints, len(unique))
	for _, op := range unique {
		if cache != nil {
			cached, ok, err := cache.Get(op, opt.now())
			if err != nil {
				return nil, err
			}
			if ok {
				results[op] = cached
				continue
			}
		}

		start := time.Now()
		fp, numPaths, err := analyzeOpcode(fn, op, opt)
		if err != nil {
			return nil, &ExecutionError{Opcode: op, Err: err}
		}
		if opt.Profiler != nil {
			opt.Profiler.Record(op, time.Since(start), numPaths)
		}
		results[op] = fp

		if cache != nil {
			if err := cache.Put(op, fp); err != nil {
				return nil, err
			}
		}
	}
	return results, nil
}

// Footprints maps an opcode to its analyzed Footprint (depquery.Footprints
// is a separate named type with the same underlying map type).
type Footprints map[Opcode]*Footprint

func analyzeOpcode(fn *ir.Function, opcode Opcode, opt Options) (*Footprint, int, error) {
	bits, err := bv.ParseB64(opcode)
	if err != nil {
		return nil, 0, err
	}
	arg := value.Bits{BV: bits}

	mem := opt.Mem
	if mem == nil {
		mem = memory.New()
	}

	frame := executor.NewFrame(opt.Funcs, fn, arg, nil, mem.Clone(), smt.NewReferenceSolver())
	results := executor.Run([]*executor.Task{{ID: 0, Frame: frame}}, opt.numWorkers(), nil, opt.Progress)

	fp := New()
	for _, r := range results {
		if r.Err != nil {
			return nil, 0, r.Err
		}
		collected := CollectedEvents(r.Events)
		refs := taint.FromEvents(collected)
		fp.Fold(footprintFromPath(collected, refs, opt.ignored))
	}
	return fp, len(results), nil
}

// footprintFromPath classifies one completed path's collected events into
// a single-path Footprint, following the original analysis's per-event
// dispatch exactly: ReadMem/WriteMem addresses feed mem_addr_taints,
// WriteMem data feeds write_data_taints, Branch addresses plus every Fork
// variable seen earlier in the path feed branch_addr_taints, and a
// register write is "tainted" specifically when its value's provenance
// reaches a ReadMem (not merely some other register).
func footprintFromPath(events []smt.Event, refs *taint.EventReferences, ignored func(ir.RegisterID) bool) *Footprint {
	fp := New()
	var forks []value.Sym

	for _, e := range events {
		switch e := e.(type) {
		case smt.Fork:
			forks = append(forks, e.Var)

		case smt.ReadReg:
			if ignored != nil && ignored(e.Reg) {
				continue
			}
			fp.RegisterReads.Add(ir.RegisterLocation{ID: e.Reg, Accessors: e.Accessors})

		case smt.WriteReg:
			if ignored != nil && ignored(e.Reg) {
				continue
			}
			loc := ir.RegisterLocation{ID: e.Reg, Accessors: e.Accessors}
			fp.RegisterWrites.Add(loc)
			t := refs.ValueTaints(e.Value)
			if t.MemTaint {
				fp.RegisterWritesTainted.Add(loc)
			}

		case smt.ReadMem:
			fp.IsLoad = true
			refs.CollectValueTaints(e.Address, fp.MemAddrTaints.Regs, &fp.MemAddrTaints.MemTaint)

		case smt.WriteMem:
			fp.IsStore = true
			refs.CollectValueTaints(e.Address, fp.MemAddrTaints.Regs, &fp.MemAddrTaints.MemTaint)
			refs.CollectValueTaints(e.Data, fp.WriteDataTaints.Regs, &fp.WriteDataTaints.MemTaint)

		case smt.Branch:
			fp.IsBranch = true
			refs.CollectValueTaints(e.Address, fp.BranchAddrTaints.Regs, &fp.BranchAddrTaints.MemTaint)
			for _, v := range forks {
				refs.CollectTaints(v, fp.BranchAddrTaints.Regs, &fp.BranchAddrTaints.MemTaint)
			}
		}
	}
	return fp
}
