package api

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteReport writes a per-layer table of the pass to a writer.
func (r *Result) WriteReport(w io.Writer) {
	t := table.NewWriter()
	t.SetTitle("Convolution Stage")
	t.AppendHeader(table.Row{
		"Layer", "In", "Out", "ISec", "OSec", "W-Shift", "Pool-Div",
		"Param Offset", "Footprint", "Cycles", "Time (s)",
	})

	var cycles uint64
	var seconds float64

	for _, l := range r.Layers {
		t.AppendRow(table.Row{
			l.Layer, l.In, l.Out,
			l.Tiling.InputSections, l.Tiling.OutputSections,
			l.Tiling.WeightShift, l.Tiling.PoolDivisor,
			l.ParamOffset, l.Footprint,
			l.Cycles, fmt.Sprintf("%.6f", l.Seconds),
		})

		cycles += l.Cycles
		seconds += l.Seconds
	}

	t.AppendFooter(table.Row{
		"", "", "", "", "", "", "", "Total", r.Cursor.Offset,
		cycles, fmt.Sprintf("%.6f", seconds),
	})

	fmt.Fprintln(w, t.Render())

	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "⚠ %v\n", warning)
	}
}
