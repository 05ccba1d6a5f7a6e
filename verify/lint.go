package verify

import (
	"fmt"

	"github.com/sarchlab/convpipe/config"
	"github.com/sarchlab/convpipe/param"
)

// RunLint performs static checks on a network and the length of the
// parameter stream that will be fed to it. A negative paramLen skips the
// stream check. Returns a list of issues found, or an empty list if there
// are none.
func RunLint(network *config.Network, paramLen int) []Issue {
	topo := &network.Topology

	issues := lintStruct(network)
	if len(issues) > 0 {
		// The remaining checks index the tables by layer.
		return issues
	}

	issues = append(issues, lintTiling(network)...)
	issues = append(issues, lintShape(topo)...)

	total := param.TotalFootprint(topo)
	if paramLen >= 0 && paramLen != total {
		issues = append(issues, Issue{
			Type:  IssueParams,
			Layer: -1,
			Message: fmt.Sprintf("parameter stream holds %d elements, "+
				"the convolution stage needs %d", paramLen, total),
			Details: map[string]interface{}{
				"length":    paramLen,
				"footprint": total,
			},
		})
	}

	return issues
}

func lintStruct(network *config.Network) []Issue {
	var issues []Issue

	if err := network.Topology.Validate(); err != nil {
		issues = append(issues, Issue{
			Type:    IssueStruct,
			Layer:   -1,
			Message: err.Error(),
		})
	}

	n := network.Topology.NumConvLayers()
	for _, l := range network.Tiles.WeightShift.Layers() {
		if l < 0 || l >= n {
			issues = append(issues, Issue{
				Type:    IssueStruct,
				Layer:   l,
				Message: fmt.Sprintf("weight shift given for layer %d of %d", l, n),
			})
		}
	}

	return issues
}

func lintTiling(network *config.Network) []Issue {
	var issues []Issue

	topo := &network.Topology
	tiles := network.Tiles

	check := func(layer int, kind string, channels, tile int) {
		if tile <= 0 {
			issues = append(issues, Issue{
				Type:    IssueTiling,
				Layer:   layer,
				Message: fmt.Sprintf("%s tile width %d is not positive", kind, tile),
			})
			return
		}

		if channels%tile != 0 {
			issues = append(issues, Issue{
				Type:  IssueTiling,
				Layer: layer,
				Message: fmt.Sprintf("%d %s channels are not divisible by %d",
					channels, kind, tile),
				Details: map[string]interface{}{
					"channels": channels,
					"tile":     tile,
				},
			})
		}
	}

	for l := 0; l < topo.NumConvLayers(); l++ {
		if l > 0 {
			check(l, "input", topo.Channels[l-1], tiles.InputTile)
		}
		check(l, "output", topo.Channels[l], tiles.OutputTile)
	}

	return issues
}

func lintShape(topo *config.Topology) []Issue {
	var issues []Issue

	for l := 0; l < topo.NumConvLayers(); l++ {
		if topo.Pool[l] && topo.Shape[l]%2 != 0 {
			issues = append(issues, Issue{
				Type:    IssueShape,
				Layer:   l,
				Message: fmt.Sprintf("pooling an odd shape %d drops a row", topo.Shape[l]),
			})
		}

		if l == 0 {
			continue
		}

		if prev := topo.OutputShape(l - 1); topo.Shape[l] != prev {
			issues = append(issues, Issue{
				Type:  IssueShape,
				Layer: l,
				Message: fmt.Sprintf("input shape %d does not match the %d "+
					"produced by layer %d", topo.Shape[l], prev, l-1),
				Details: map[string]interface{}{
					"shape":    topo.Shape[l],
					"producer": prev,
				},
			})
		}
	}

	return issues
}
