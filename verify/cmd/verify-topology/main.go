package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/sarchlab/convpipe/config"
	"github.com/sarchlab/convpipe/param"
	"github.com/sarchlab/convpipe/verify"
)

func loadNetwork() (*config.Network, error) {
	path := os.Getenv("CONVPIPE_NETWORK_YAML")
	if path == "" {
		return config.VGG16(), nil
	}

	return config.LoadNetworkFile(path)
}

// paramLen returns the length of the parameter stream to lint against.
// It defaults to the exact footprint of the network, or -1 when the
// topology is too broken to have one.
func paramLen(network *config.Network) (int, error) {
	s := os.Getenv("CONVPIPE_PARAM_LEN")
	if s == "" {
		if network.Topology.Validate() != nil {
			return -1, nil
		}

		return param.TotalFootprint(&network.Topology), nil
	}

	return strconv.Atoi(s)
}

func main() {
	network, err := loadNetwork()
	if err != nil {
		log.Fatalf("Failed to load network: %v", err)
	}

	n, err := paramLen(network)
	if err != nil {
		log.Fatalf("Invalid CONVPIPE_PARAM_LEN: %v", err)
	}

	report := verify.GenerateReport(network, n)
	report.WriteReport(os.Stdout)

	if out := os.Getenv("CONVPIPE_REPORT_FILE"); out != "" {
		if err := report.SaveReportToFile(out); err != nil {
			log.Fatalf("Failed to save report: %v", err)
		}

		fmt.Printf("Report saved to %s\n", out)
	}

	if !report.OK() {
		log.Fatalf("Lint failed with %d issues", len(report.Issues))
	}
}
