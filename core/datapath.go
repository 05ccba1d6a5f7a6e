package core

import (
	"gonum.org/v1/gonum/mat"

	"github.com/sarchlab/convpipe/accel"
)

// Datapath is the functional model of the convolution engine. It computes
// a stride-1 "same" convolution with bias and ReLU, followed by 2x2
// average pooling when the call asks for it. Weights are consumed tile by
// tile in the order the hardware streams them.
type Datapath struct{}

// Convolve runs the call and writes the result to call.Out.
func (Datapath) Convolve(call *accel.ConvCall) error {
	if err := call.Validate(); err != nil {
		return err
	}

	k := call.KernelSize
	kk := k * k
	pixels := call.Rows * call.Cols
	itile := call.ChannelReadWidth
	otile := call.OutputChannels / call.OutputSections

	nWeights := call.WeightCount()
	w := mat.NewDense(call.OutputChannels, call.FanIn*kk,
		widen(call.Params[:nWeights]))
	biases := call.Params[nWeights : nWeights+call.OutputChannels]

	acc := mat.NewDense(otile, pixels, nil)
	partial := mat.NewDense(otile, pixels, nil)
	patches := mat.NewDense(itile*kk, pixels, nil)
	conv := make([]float32, call.OutputChannels*pixels)

	for os := 0; os < call.OutputSections; os++ {
		acc.Zero()

		for is := 0; is < call.InputSections; is++ {
			im2col(patches, call.In, is*itile, itile, call.Rows, call.Cols, k)

			ws := w.Slice(os*otile, (os+1)*otile, is*itile*kk, (is+1)*itile*kk)
			partial.Mul(ws, patches)
			acc.Add(acc, partial)
		}

		for o := 0; o < otile; o++ {
			oc := os*otile + o
			row := acc.RawRowView(o)
			dst := conv[oc*pixels : (oc+1)*pixels]

			for p, v := range row {
				v += float64(biases[oc])
				if v < 0 {
					v = 0
				}
				dst[p] = float32(v)
			}
		}
	}

	if !call.Pool {
		copy(call.Out, conv)
		return nil
	}

	pool(call.Out, conv, call.OutputChannels, call.Rows, call.Cols,
		call.PoolDivisor)

	return nil
}

func widen(src []float32) []float64 {
	dst := make([]float64, len(src))
	for i, v := range src {
		dst[i] = float64(v)
	}

	return dst
}

// im2col lays out the k*k neighborhoods of n channels starting at
// channel c0 as columns of dst, one column per output pixel.
func im2col(dst *mat.Dense, in []float32, c0, n, rows, cols, k int) {
	pad := k / 2
	plane := rows * cols

	for c := 0; c < n; c++ {
		src := in[(c0+c)*plane : (c0+c+1)*plane]

		for ky := 0; ky < k; ky++ {
			for kx := 0; kx < k; kx++ {
				line := dst.RawRowView(c*k*k + ky*k + kx)

				for y := 0; y < rows; y++ {
					iy := y + ky - pad
					for x := 0; x < cols; x++ {
						ix := x + kx - pad

						if iy < 0 || iy >= rows || ix < 0 || ix >= cols {
							line[y*cols+x] = 0
							continue
						}

						line[y*cols+x] = float64(src[iy*cols+ix])
					}
				}
			}
		}
	}
}

func pool(out, conv []float32, channels, rows, cols, divisor int) {
	orows, ocols := rows/2, cols/2

	for c := 0; c < channels; c++ {
		src := conv[c*rows*cols:]
		dst := out[c*orows*ocols:]

		for y := 0; y < orows; y++ {
			for x := 0; x < ocols; x++ {
				sum := src[2*y*cols+2*x] + src[2*y*cols+2*x+1] +
					src[(2*y+1)*cols+2*x] + src[(2*y+1)*cols+2*x+1]
				dst[y*ocols+x] = sum / float32(divisor)
			}
		}
	}
}
