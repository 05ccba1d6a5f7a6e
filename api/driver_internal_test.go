package api

import (
	"errors"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/convpipe/accel"
	"github.com/sarchlab/convpipe/buffer"
	"github.com/sarchlab/convpipe/config"
	"github.com/sarchlab/convpipe/param"
	"github.com/sarchlab/convpipe/perf"
	"github.com/sarchlab/convpipe/tiling"
	"github.com/sarchlab/convpipe/verify"
)

func tinyNetwork() *config.Network {
	return &config.Network{
		Name: "tiny",
		Topology: config.Topology{
			InputChannels: 3,
			Shape:         []int{32, 16},
			Channels:      []int{4, 8},
			Kernel:        []int{3, 3},
			Pool:          []bool{true, false},
			FCLayers:      []int{10},
			Classes:       10,
		},
		Tiles: config.TileConfig{
			InputTile:   4,
			OutputTile:  4,
			WeightShift: config.WeightShiftTable{1: 1},
		},
	}
}

type fcRecorder struct {
	features []float32
	err      error
}

func (f *fcRecorder) Run(features, out []float32) error {
	f.features = features
	return f.err
}

var _ = Describe("Driver", func() {
	var (
		mockCtrl    *gomock.Controller
		mockKernel  *MockKernel
		mockCounter *MockCounter
		mockChecker *MockChecker
		network     *config.Network
		builder     DriverBuilder
		image       []float32
		params      []float32
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockKernel = NewMockKernel(mockCtrl)
		mockCounter = NewMockCounter(mockCtrl)
		mockChecker = NewMockChecker(mockCtrl)

		network = tinyNetwork()
		image = make([]float32, 3*32*32)
		params = make([]float32, 408)

		builder = DriverBuilder{}.
			WithNetwork(network).
			WithKernel(mockKernel).
			WithCounter(func() perf.Counter { return mockCounter }, 1*sim.GHz).
			WithValidationHook(1, mockChecker)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	expectCounter := func(cycles uint64, times int) {
		mockCounter.EXPECT().Start().Times(times)
		mockCounter.EXPECT().Stop().Times(times)
		mockCounter.EXPECT().AvgCycles().Return(cycles).Times(times)
	}

	Context("when running a single layer", func() {
		var (
			d     *driverImpl
			arena *buffer.Arena
		)

		BeforeEach(func() {
			d = builder.Build().(*driverImpl)

			var err error
			arena, err = buffer.Acquire(buffer.HeapAllocator{},
				network.Topology.MaxBufferElements())
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			arena.Release()
		})

		It("should read the image and write B at layer 0", func() {
			expectCounter(3000, 1)
			mockKernel.EXPECT().
				Convolve(gomock.Any()).
				DoAndReturn(func(call *accel.ConvCall) error {
					Expect(&call.In[0]).To(BeIdenticalTo(&image[0]))
					Expect(&call.Out[0]).
						To(BeIdenticalTo(&arena.Get(buffer.B)[0]))
					Expect(&call.Params[0]).To(BeIdenticalTo(&params[0]))
					Expect(call.Params).To(HaveLen(112))
					Expect(call.Layer).To(Equal(0))
					Expect(call.Rows).To(Equal(32))
					Expect(call.Cols).To(Equal(32))
					Expect(call.ChannelReadWidth).To(Equal(3))
					Expect(call.FanIn).To(Equal(3))
					Expect(call.KernelSize).To(Equal(3))
					Expect(call.InputSections).To(Equal(1))
					Expect(call.OutputChannels).To(Equal(4))
					Expect(call.OutputSections).To(Equal(1))
					Expect(call.WeightShift).To(Equal(0))
					Expect(call.PoolDivisor).To(Equal(4))
					Expect(call.Pool).To(BeTrue())
					return nil
				})

			s := State{Cursor: param.NewCursor(len(params))}
			next, rec, warnings, err := d.runLayer(s, arena, image, params)

			Expect(err).NotTo(HaveOccurred())
			Expect(warnings).To(BeEmpty())
			Expect(next).To(Equal(State{
				Layer:  1,
				Bit:    1,
				Cursor: param.Cursor{Offset: 112, Length: 408},
			}))
			Expect(rec.In).To(Equal(buffer.Image))
			Expect(rec.Out).To(Equal(buffer.B))
			Expect(rec.ParamOffset).To(Equal(0))
			Expect(rec.Footprint).To(Equal(112))
			Expect(rec.Cycles).To(Equal(uint64(3000)))
			Expect(rec.Seconds).To(BeNumerically("~", 3e-6, 1e-12))
		})

		It("should read B, write A, and check A at layer 1", func() {
			expectCounter(10, 1)
			mockKernel.EXPECT().
				Convolve(gomock.Any()).
				DoAndReturn(func(call *accel.ConvCall) error {
					Expect(&call.In[0]).
						To(BeIdenticalTo(&arena.Get(buffer.B)[0]))
					Expect(&call.Out[0]).
						To(BeIdenticalTo(&arena.Get(buffer.A)[0]))
					Expect(&call.Params[0]).To(BeIdenticalTo(&params[112]))
					Expect(call.ChannelReadWidth).To(Equal(4))
					Expect(call.FanIn).To(Equal(4))
					Expect(call.InputSections).To(Equal(1))
					Expect(call.OutputSections).To(Equal(2))
					Expect(call.WeightShift).To(Equal(1))
					Expect(call.PoolDivisor).To(Equal(1))
					return nil
				})
			mockChecker.EXPECT().
				Check(gomock.Any(), 1, false).
				DoAndReturn(func(buf []float32, layer int, pool bool) error {
					Expect(&buf[0]).To(BeIdenticalTo(&arena.Get(buffer.A)[0]))
					return nil
				})

			s := State{Layer: 1, Bit: 1, Cursor: param.Cursor{Offset: 112, Length: 408}}
			next, rec, warnings, err := d.runLayer(s, arena, image, params)

			Expect(err).NotTo(HaveOccurred())
			Expect(warnings).To(BeEmpty())
			Expect(next).To(Equal(State{
				Layer:  2,
				Bit:    0,
				Cursor: param.Cursor{Offset: 408, Length: 408},
			}))
			Expect(rec.In).To(Equal(buffer.B))
			Expect(rec.Out).To(Equal(buffer.A))
		})

		It("should turn a failed check into a warning", func() {
			expectCounter(10, 1)
			mockKernel.EXPECT().Convolve(gomock.Any()).Return(nil)
			mockChecker.EXPECT().
				Check(gomock.Any(), 1, false).
				Return(errors.New("mismatch"))

			s := State{Layer: 1, Bit: 1, Cursor: param.Cursor{Offset: 112, Length: 408}}
			next, _, warnings, err := d.runLayer(s, arena, image, params)

			Expect(err).NotTo(HaveOccurred())
			Expect(next.Layer).To(Equal(2))
			Expect(warnings).To(HaveLen(1))
			Expect(warnings[0].Layer).To(Equal(1))
			Expect(warnings[0].Err).To(MatchError("mismatch"))
		})

		It("should not touch the state when the kernel fails", func() {
			mockCounter.EXPECT().Start()
			mockCounter.EXPECT().Stop()
			mockKernel.EXPECT().Convolve(gomock.Any()).Return(errors.New("dma"))

			s := State{Cursor: param.NewCursor(len(params))}
			next, _, _, err := d.runLayer(s, arena, image, params)

			Expect(err).To(MatchError(ContainSubstring("layer 0: kernel failed")))
			Expect(next).To(Equal(s))
		})
	})

	Context("when running a pass", func() {
		It("should advance the cursor by each layer's footprint", func() {
			expectCounter(5, 2)
			mockKernel.EXPECT().Convolve(gomock.Any()).Return(nil).Times(2)
			mockChecker.EXPECT().Check(gomock.Any(), 1, false).Return(nil)

			res, err := builder.Build().Infer(image, params, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Layers).To(HaveLen(2))
			Expect(res.Layers[0].ParamOffset + res.Layers[0].Footprint).
				To(Equal(112))
			Expect(res.Layers[1].ParamOffset + res.Layers[1].Footprint).
				To(Equal(408))
			Expect(res.Cursor.Offset).To(Equal(408))
			Expect(res.FeatureMap).To(HaveLen(16 * 16 * 8))
		})

		It("should hand the feature map to the fully-connected stage", func() {
			fc := &fcRecorder{}
			expectCounter(5, 2)
			mockKernel.EXPECT().
				Convolve(gomock.Any()).
				DoAndReturn(func(call *accel.ConvCall) error {
					call.Out[0] = float32(call.Layer + 1)
					return nil
				}).
				Times(2)

			res, err := builder.
				WithoutValidation().
				WithFCStage(fc).
				Build().
				Infer(image, params, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(fc.features).To(Equal(res.FeatureMap))
			Expect(res.FeatureMap[0]).To(Equal(float32(2)))
		})

		It("should report fully-connected stage errors", func() {
			expectCounter(5, 2)
			mockKernel.EXPECT().Convolve(gomock.Any()).Return(nil).Times(2)

			_, err := builder.
				WithoutValidation().
				WithFCStage(&fcRecorder{err: errors.New("boom")}).
				Build().
				Infer(image, params, nil)

			Expect(err).To(MatchError(ContainSubstring("fully-connected")))
		})

		It("should continue after a failed check", func() {
			expectCounter(5, 2)
			mockKernel.EXPECT().Convolve(gomock.Any()).Return(nil).Times(2)
			mockChecker.EXPECT().
				Check(gomock.Any(), 1, false).
				Return(errors.New("bad"))

			res, err := builder.Build().Infer(image, params, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Layers).To(HaveLen(2))
			Expect(res.Warnings).To(HaveLen(1))
		})

		It("should overrun on the last layer when one parameter short", func() {
			alloc := buffer.NewContiguousAllocator(
				2 * network.Topology.MaxBufferElements())
			expectCounter(5, 1)
			mockKernel.EXPECT().Convolve(gomock.Any()).Return(nil).Times(1)

			_, err := builder.
				WithAllocator(alloc).
				Build().
				Infer(image, params[:407], nil)

			var overrun *param.OverrunError
			Expect(errors.As(err, &overrun)).To(BeTrue())
			Expect(overrun.Layer).To(Equal(1))
			Expect(alloc.Available()).
				To(Equal(2 * network.Topology.MaxBufferElements()))
		})

		It("should stop at a channel count the input tile cannot split", func() {
			network.Tiles.InputTile = 3
			expectCounter(5, 1)
			mockKernel.EXPECT().Convolve(gomock.Any()).Return(nil).Times(1)

			_, err := builder.Build().Infer(image, params, nil)

			var cfgErr *tiling.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Layer).To(Equal(1))
		})

		It("should fail before any layer when the buffers do not fit", func() {
			alloc := buffer.NewContiguousAllocator(
				network.Topology.MaxBufferElements())

			_, err := builder.
				WithAllocator(alloc).
				Build().
				Infer(image, params, nil)

			var allocErr *buffer.AllocationError
			Expect(errors.As(err, &allocErr)).To(BeTrue())
			Expect(alloc.Available()).
				To(Equal(network.Topology.MaxBufferElements()))
		})

		It("should release the buffers when the kernel fails", func() {
			alloc := buffer.NewContiguousAllocator(
				2 * network.Topology.MaxBufferElements())
			mockCounter.EXPECT().Start()
			mockCounter.EXPECT().Stop()
			mockKernel.EXPECT().Convolve(gomock.Any()).Return(errors.New("hang"))

			_, err := builder.
				WithAllocator(alloc).
				Build().
				Infer(image, params, nil)

			Expect(err).To(HaveOccurred())
			Expect(alloc.Available()).
				To(Equal(2 * network.Topology.MaxBufferElements()))
		})

		It("should reject a short image", func() {
			_, err := builder.Build().Infer(image[:10], params, nil)
			Expect(err).To(MatchError(ContainSubstring("image holds 10")))
		})

		It("should alternate buffers across a deep network", func() {
			network.Topology = config.Topology{
				InputChannels: 3,
				Shape:         []int{8, 8, 8, 8, 8},
				Channels:      []int{4, 4, 4, 4, 4},
				Kernel:        []int{3, 3, 3, 3, 3},
				Pool:          []bool{false, false, false, false, false},
			}
			params = make([]float32, param.TotalFootprint(&network.Topology))
			image = make([]float32, 3*8*8)

			var ins, outs []*float32
			expectCounter(1, 5)
			mockKernel.EXPECT().
				Convolve(gomock.Any()).
				DoAndReturn(func(call *accel.ConvCall) error {
					ins = append(ins, &call.In[0])
					outs = append(outs, &call.Out[0])
					return nil
				}).
				Times(5)

			res, err := builder.WithoutValidation().Build().Infer(image, params, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(ins[0]).To(BeIdenticalTo(&image[0]))
			for i := 1; i < 5; i++ {
				Expect(ins[i]).To(BeIdenticalTo(outs[i-1]))
				Expect(outs[i]).NotTo(BeIdenticalTo(outs[i-1]))
			}

			slots := []buffer.Slot{}
			for _, l := range res.Layers {
				slots = append(slots, l.Out)
			}
			Expect(slots).To(Equal([]buffer.Slot{
				buffer.B, buffer.A, buffer.B, buffer.A, buffer.B,
			}))
		})
	})

	Context("when building", func() {
		It("should check layer 1 with a buffer checker by default", func() {
			d := DriverBuilder{}.
				WithNetwork(network).
				WithKernel(mockKernel).
				Build().(*driverImpl)

			Expect(d.hooks).To(HaveLen(1))
			Expect(d.hooks[0].layer).To(Equal(1))
			Expect(d.hooks[0].checker).
				To(BeAssignableToTypeOf(verify.BufferChecker{}))
			Expect(d.counterFreq).To(Equal(1.5 * sim.GHz))
			Expect(d.newCounter()).To(BeAssignableToTypeOf(&perf.WallClock{}))
			Expect(d.fc).To(Equal(stubFCStage{layers: []int{10}}))
		})

		It("should not share hooks between derived builders", func() {
			base := DriverBuilder{}.
				WithNetwork(network).
				WithKernel(mockKernel).
				WithValidationHook(0, mockChecker)
			first := base.WithValidationHook(1, mockChecker)
			second := base.WithValidationHook(0, mockChecker)

			Expect(first.Build().(*driverImpl).hooks[1].layer).To(Equal(1))
			Expect(second.Build().(*driverImpl).hooks[1].layer).To(Equal(0))
		})

		It("should refuse misaligned topology tables", func() {
			network.Topology.Pool = []bool{true}

			Expect(func() { builder.Build() }).
				To(PanicWith(ContainSubstring("not aligned")))
		})

		It("should refuse a validation hook past the last layer", func() {
			Expect(func() {
				builder.WithValidationHook(2, mockChecker).Build()
			}).To(PanicWith(ContainSubstring("validation hook for layer 2")))
		})

		It("should panic without a kernel", func() {
			Expect(func() {
				DriverBuilder{}.WithNetwork(network).Build()
			}).To(Panic())
		})

		It("should panic without a network", func() {
			Expect(func() {
				DriverBuilder{}.WithKernel(mockKernel).Build()
			}).To(Panic())
		})
	})
})
