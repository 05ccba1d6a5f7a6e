package main

import (
	"log/slog"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/convpipe/api"
	"github.com/sarchlab/convpipe/buffer"
	"github.com/sarchlab/convpipe/config"
	"github.com/sarchlab/convpipe/core"
	"github.com/sarchlab/convpipe/param"
	"github.com/sarchlab/convpipe/perf"
	"github.com/sarchlab/convpipe/util/valgen"
	"github.com/tebeka/atexit"
)

// Device memory reserved for the two scratch buffers.
const scratchElements = 2 * 64 * 224 * 224

func vgg16() error {
	network := config.VGG16()
	if err := network.Validate(); err != nil {
		return err
	}

	engine := sim.NewSerialEngine()
	c := core.NewBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		WithWeightLoadLatency(8).
		Build("Core")

	driver := api.DriverBuilder{}.
		WithNetwork(network).
		WithKernel(c).
		WithAllocator(buffer.NewContiguousAllocator(scratchElements)).
		WithCounter(func() perf.Counter {
			return perf.NewSimCounter(engine, 1*sim.GHz)
		}, 1*sim.GHz).
		Build()

	image := make([]float32, network.Topology.InputElements())
	valgen.Fill(image, valgen.MakeUniformGen(7, 0, 1))

	params := make([]float32, param.TotalFootprint(&network.Topology))
	valgen.Fill(params, valgen.MakeUniformGen(8, -0.01, 0.01))

	scores := make([]float32, network.Topology.Classes)

	res, err := driver.Infer(image, params, scores)
	if err != nil {
		return err
	}

	res.WriteReport(os.Stdout)

	return nil
}

func main() {
	f, err := os.Create("vgg16.json.log")
	if err != nil {
		panic(err)
	}
	defer f.Close()

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: core.LevelTrace,
	})
	slog.SetDefault(slog.New(handler))

	if err := vgg16(); err != nil {
		slog.Error("Inference failed", "Error", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
