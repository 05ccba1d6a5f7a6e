package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/convpipe/api"
	"github.com/sarchlab/convpipe/config"
	"github.com/sarchlab/convpipe/core"
	"github.com/sarchlab/convpipe/param"
	"github.com/sarchlab/convpipe/perf"
	"github.com/sarchlab/convpipe/util/valgen"
	"github.com/sarchlab/convpipe/verify"
	"github.com/tebeka/atexit"
)

//go:embed tiny.yaml
var tinyYAML []byte

func runTiny(network *config.Network) error {
	report := verify.GenerateReport(network,
		param.TotalFootprint(&network.Topology))
	report.WriteReport(os.Stdout)

	if !report.OK() {
		return fmt.Errorf("network %s failed lint", network.Name)
	}

	engine := sim.NewSerialEngine()
	c := core.NewBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		Build("Core")

	driver := api.DriverBuilder{}.
		WithNetwork(network).
		WithKernel(c).
		WithCounter(func() perf.Counter {
			return perf.NewSimCounter(engine, 1*sim.GHz)
		}, 1*sim.GHz).
		Build()

	image := make([]float32, network.Topology.InputElements())
	valgen.Fill(image, valgen.MakeUniformGen(1, 0, 1))

	params := make([]float32, param.TotalFootprint(&network.Topology))
	valgen.Fill(params, valgen.MakeUniformGen(2, -0.1, 0.1))

	res, err := driver.Infer(image, params, nil)
	if err != nil {
		return err
	}

	res.WriteReport(os.Stdout)

	return nil
}

func main() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: core.LevelTrace,
	})
	slog.SetDefault(slog.New(handler))

	network, err := config.ParseNetwork(tinyYAML)
	if err != nil {
		slog.Error("Cannot parse network", "Error", err)
		atexit.Exit(1)
	}

	if err := runTiny(network); err != nil {
		slog.Error("Inference failed", "Error", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
