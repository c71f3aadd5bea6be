// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// ReadAll drains src into a single interleaved buffer. The source is not
// closed.
func ReadAll(src Source) ([]float32, error) {
	size := src.BufSize()
	if size <= 0 {
		size = 4096
	}
	// keep reads frame aligned
	if ch := src.Channels(); ch > 1 {
		size -= size % ch
		if size == 0 {
			size = ch
		}
	}

	buf := make([]float32, size)
	out := make([]float32, 0, size*4)

	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}

		if err == io.EOF {
			return out, nil
		}

		if err != nil {
			return nil, fmt.Errorf("%w", err)
		}

		if n == 0 {
			// a source that makes no progress and reports no error is done
			return out, nil
		}
	}
}

// Stereo maps interleaved samples with the given channel count onto
// interleaved stereo. Mono is duplicated into both sides; channels past the
// first two are dropped. A trailing partial frame is discarded.
func Stereo(samples []float32, channels int) ([]float32, error) {
	if channels < 1 {
		return nil, ErrInvalidChannels
	}

	frames := len(samples) / channels
	out := make([]float32, frames*2)

	switch channels {
	case 1:
		for f := range frames {
			out[f<<1] = samples[f]
			out[f<<1+1] = samples[f]
		}
	case 2:
		copy(out, samples[:frames*2])
	default:
		for f := range frames {
			base := f * channels
			out[f<<1] = samples[base]
			out[f<<1+1] = samples[base+1]
		}
	}

	return out, nil
}

// Resample converts interleaved samples from one sample rate to another
// using Catmull-Rom interpolation. When downsampling a one-pole low-pass is
// run over the input first to take the edge off aliasing.
func Resample(samples []float32, channels, from, to int) ([]float32, error) {
	if channels < 1 {
		return nil, ErrInvalidChannels
	}
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidRate, from, to)
	}

	frames := len(samples) / channels
	if frames == 0 {
		return []float32{}, nil
	}
	if from == to {
		out := make([]float32, frames*channels)
		copy(out, samples)
		return out, nil
	}

	in := samples[:frames*channels]
	if from > to {
		in = lowPass(in, channels, 0.5)
	}

	ratio := float64(from) / float64(to)
	outFrames := int(int64(frames) * int64(to) / int64(from))
	if outFrames == 0 {
		outFrames = 1
	}
	out := make([]float32, outFrames*channels)

	at := func(frame, c int) float32 {
		if frame < 0 {
			frame = 0
		} else if frame >= frames {
			frame = frames - 1
		}
		return in[frame*channels+c]
	}

	for i := range outFrames {
		pos := float64(i) * ratio
		idx := int(pos)
		x := float32(pos - float64(idx))
		for c := range channels {
			out[i*channels+c] = cubic(at(idx-1, c), at(idx, c), at(idx+1, c), at(idx+2, c), x)
		}
	}

	return out, nil
}

// lowPass runs y[n] = a*x[n] + (1-a)*y[n-1] per channel. The filter state
// starts at the first frame so there is no warm-up transient.
func lowPass(samples []float32, channels int, alpha float32) []float32 {
	out := make([]float32, len(samples))
	state := make([]float32, channels)
	copy(state, samples[:channels])

	for i := 0; i < len(samples); i += channels {
		for c := range channels {
			y := alpha*samples[i+c] + (1-alpha)*state[c]
			state[c] = y
			out[i+c] = y
		}
	}
	return out
}

// cubic is a Catmull-Rom spline through y0..y3, evaluated at x in [0,1]
// between y1 and y2.
func cubic(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}

// ToPCM16 clamps x to [-1,1] and scales it to a signed 16-bit sample.
func ToPCM16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	return int16(x * 32767.0)
}

// FromPCM16 is the inverse of ToPCM16 up to rounding.
func FromPCM16(v int16) float32 {
	return float32(v) / 32768.0
}
