// Package pretty renders Footprint and dependency-query results as tables,
// following the teacher's go-pretty/v6 table-rendering style
// (core/util.go's register/buffer dumps) in place of the original's
// hand-rolled Footprint::pretty write! calls.
package pretty

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sarchlab/islafoot/footprint"
	"github.com/sarchlab/islafoot/ir"
)

var titleCaser = cases.Title(language.English)

// toTitleCase converts a register name to Title case (e.g. "pc" -> "Pc"),
// matching the teacher's toTitleCase helper in core/emu.go.
func toTitleCase(s string) string {
	return titleCaser.String(strings.ToLower(s))
}

// Footprint renders f as a two-column table: one row per taint/access set,
// register locations resolved through symtab and title-cased.
func Footprint(f *footprint.Footprint, symtab *ir.Symtab) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Field", "Value"})

	t.AppendRow(table.Row{"Memory write data", regList(f.WriteDataTaints.Regs, symtab)})
	t.AppendRow(table.Row{"Memory address", regList(f.MemAddrTaints.Regs, symtab)})
	t.AppendRow(table.Row{"Branch address", regList(f.BranchAddrTaints.Regs, symtab)})
	t.AppendRow(table.Row{"Register reads", regList(f.RegisterReads, symtab)})
	t.AppendRow(table.Row{"Register writes", regList(f.RegisterWrites, symtab)})
	t.AppendRow(table.Row{"Register writes (tainted)", regList(f.RegisterWritesTainted, symtab)})
	t.AppendRow(table.Row{"Is store", f.IsStore})
	t.AppendRow(table.Row{"Is load", f.IsLoad})
	t.AppendRow(table.Row{"Is branch", f.IsBranch})

	return t.Render()
}

// DepResult renders a single dependency-query answer as a one-row table,
// for interactive driver output.
func DepResult(kind string, from, to int, dependent bool) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Dependency", "From", "To", "Holds"})
	t.AppendRow(table.Row{kind, from, to, dependent})
	return t.Render()
}

func regList(regs map[string]ir.RegisterLocation, symtab *ir.Symtab) string {
	if len(regs) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(regs))
	for _, loc := range regs {
		name := toTitleCase(symtab.Name(int(loc.ID)))
		var b strings.Builder
		b.WriteString(name)
		for _, a := range loc.Accessors {
			b.WriteString(a.String())
		}
		names = append(names, b.String())
	}
	return strings.Join(names, ", ")
}
