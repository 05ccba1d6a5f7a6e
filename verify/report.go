package verify

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/convpipe/config"
	"github.com/sarchlab/convpipe/param"
)

// LintReport is the result of linting a network.
type LintReport struct {
	Network   *config.Network
	ParamLen  int
	Footprint int
	Issues    []Issue
}

// GenerateReport lints the network against a parameter stream length.
func GenerateReport(network *config.Network, paramLen int) *LintReport {
	r := &LintReport{
		Network:  network,
		ParamLen: paramLen,
		Issues:   RunLint(network, paramLen),
	}

	if network.Topology.Validate() == nil {
		r.Footprint = param.TotalFootprint(&network.Topology)
	}

	return r
}

// OK returns true if no issue was found.
func (r *LintReport) OK() bool {
	return len(r.Issues) == 0
}

// WriteReport writes a formatted report to a writer
func (r *LintReport) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)
	topo := &r.Network.Topology

	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "NETWORK LINT REPORT: %s\n", r.Network.Name)
	fmt.Fprintln(w, separator)

	if r.Footprint > 0 {
		layers := table.NewWriter()
		layers.SetTitle("Convolution Layers")
		layers.AppendHeader(table.Row{
			"Layer", "Shape", "Fan-in", "Channels", "Kernel", "Pool",
			"W-Shift", "Footprint",
		})

		for l := 0; l < topo.NumConvLayers(); l++ {
			layers.AppendRow(table.Row{
				l, topo.Shape[l], topo.FanIn(l), topo.Channels[l],
				topo.Kernel[l], topo.Pool[l],
				r.Network.Tiles.WeightShift.Lookup(l),
				param.Footprint(l, topo),
			})
		}

		layers.AppendFooter(table.Row{"", "", "", "", "", "", "Total", r.Footprint})
		fmt.Fprintln(w, layers.Render())
		fmt.Fprintf(w, "Scratch buffer: 2 x %d elements\n", topo.MaxBufferElements())
	}

	if r.ParamLen >= 0 {
		fmt.Fprintf(w, "Parameter stream: %d elements\n\n", r.ParamLen)
	} else {
		fmt.Fprint(w, "Parameter stream: not checked\n\n")
	}

	if r.OK() {
		fmt.Fprintln(w, "✓ No lint issues found!")
		return
	}

	issues := table.NewWriter()
	issues.SetTitle(fmt.Sprintf("%d Lint Issues", len(r.Issues)))
	issues.AppendHeader(table.Row{"Type", "Layer", "Message"})

	for _, issue := range r.Issues {
		layer := "-"
		if issue.Layer >= 0 {
			layer = fmt.Sprint(issue.Layer)
		}

		issues.AppendRow(table.Row{issue.Type, layer, issue.Message})
	}

	fmt.Fprintln(w, issues.Render())
}

// SaveReportToFile saves the report to a file
func (r *LintReport) SaveReportToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	r.WriteReport(file)
	return nil
}
