// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"bytes"
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/mixpreview/audio"
	"github.com/ik5/mixpreview/combiner"
	"github.com/ik5/mixpreview/formats/mp3"
	"github.com/ik5/mixpreview/formats/vorbis"
	"github.com/ik5/mixpreview/formats/wav"
)

const (
	DefaultSampleRate = 44100
	// output samples mixed per goroutine
	defaultChunk = 1 << 15
	outChannels  = 2
)

// DefaultRegistry returns a registry with the WAV, MPEG and OGG decoders.
func DefaultRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register(audio.FormatWAV, wav.Decoder{})
	r.Register(audio.FormatMPEG, mp3.Decoder{})
	r.Register(audio.FormatOGG, vorbis.Decoder{})
	return r
}

// Engine decodes whole tracks into memory and mixes them into a 16-bit
// stereo WAV.
type Engine struct {
	registry   *audio.Registry
	sampleRate int
	chunk      int
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSampleRate sets the output sample rate. Tracks are resampled to it.
func WithSampleRate(rate int) Option {
	return func(e *Engine) {
		if rate > 0 {
			e.sampleRate = rate
		}
	}
}

// WithRegistry replaces the default decoder registry.
func WithRegistry(r *audio.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func withChunk(n int) Option {
	return func(e *Engine) { e.chunk = n }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		registry:   DefaultRegistry(),
		sampleRate: DefaultSampleRate,
		chunk:      defaultChunk,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SampleRate is the rate of every mix this engine produces.
func (e *Engine) SampleRate() int { return e.sampleRate }

// Init decodes every track in parallel. The first failure cancels the rest
// and is returned.
func (e *Engine) Init(ctx context.Context, tracks []audio.Encoded) (combiner.Handle, error) {
	decoded := make([][]float32, len(tracks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, t := range tracks {
		g.Go(func() error {
			samples, err := e.decode(ctx, t)
			if err != nil {
				return errors.Wrapf(err, "track %d (%s)", i, t.Format)
			}
			decoded[i] = samples
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug("tracks decoded", "tracks", len(tracks), "sample_rate", e.sampleRate)

	return &Mix{tracks: decoded, sampleRate: e.sampleRate, chunk: e.chunk}, nil
}

// decode turns one track into interleaved stereo at the engine rate.
func (e *Engine) decode(ctx context.Context, t audio.Encoded) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(t.Data) == 0 {
		return nil, ErrEmptyTrack
	}

	src, err := e.registry.Decode(t.Format, bytes.NewReader(t.Data))
	if err != nil {
		return nil, err
	}
	defer src.Close()

	samples, err := audio.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(err, "read samples")
	}

	stereo, err := audio.Stereo(samples, src.Channels())
	if err != nil {
		return nil, errors.Wrap(err, "channel map")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := audio.Resample(stereo, outChannels, src.SampleRate(), e.sampleRate)
	if err != nil {
		return nil, errors.Wrap(err, "resample")
	}

	return out, nil
}

// Mix is the decoded track set. It implements combiner.Handle.
type Mix struct {
	mu         sync.RWMutex
	tracks     [][]float32
	sampleRate int
	chunk      int
	released   bool
}

// Frames is the length of the mix in stereo frames: the length of the
// longest track.
func (m *Mix) Frames() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.longest() / outChannels
}

func (m *Mix) longest() int {
	n := 0
	for _, t := range m.tracks {
		n = max(n, len(t))
	}
	return n
}

// Combine sums the tracks sample by sample, each scaled by its volume over
// 100, and clamps the result. Tracks without a volume entry play at full
// level and shorter tracks are padded with silence.
func (m *Mix) Combine(ctx context.Context, volumes []uint8) (audio.Encoded, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.released {
		return audio.Encoded{}, ErrReleased
	}

	gains := make([]float32, len(m.tracks))
	for i := range gains {
		gains[i] = 1
		if i < len(volumes) {
			gains[i] = float32(volumes[i]) / 100
		}
	}

	n := m.longest()
	out := make([]int16, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	step := max(m.chunk, 1)
	for start := 0; start < n; start += step {
		end := min(start+step, n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				var sum float32
				for t, samples := range m.tracks {
					if i < len(samples) {
						sum += samples[i] * gains[t]
					}
				}
				out[i] = audio.ToPCM16(sum)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return audio.Encoded{}, errors.Wrap(err, "mix")
	}

	buf := bytes.NewBuffer(make([]byte, 0, wav.EncodedSize(n)))
	if err := wav.WriteWAV16(buf, m.sampleRate, outChannels, out); err != nil {
		return audio.Encoded{}, errors.Wrap(err, "encode wav")
	}

	return audio.Encoded{Data: buf.Bytes(), Format: audio.FormatWAV}, nil
}

// Release drops the decoded tracks. Combine fails with ErrReleased after it.
func (m *Mix) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.released = true
	m.tracks = nil
}
