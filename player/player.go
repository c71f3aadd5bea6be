// SPDX-License-Identifier: EPL-2.0

package player

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	beepmp3 "github.com/faiface/beep/mp3"
	beepvorbis "github.com/faiface/beep/vorbis"

	"github.com/ik5/mixpreview/audio"
	"github.com/ik5/mixpreview/formats/wav"
	"github.com/ik5/mixpreview/swap"
)

// memFile lets beep decoders seek in memory.
type memFile struct{ *bytes.Reader }

func (memFile) Close() error { return nil }

type decodeFunc func(io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[audio.Format]decodeFunc{
	audio.FormatWAV:  decodeWAV,
	audio.FormatMPEG: beepmp3.Decode,
	audio.FormatOGG:  beepvorbis.Decode,
}

// decodeWAV goes through formats/wav, which scales 16-bit samples by 32768
// and reads every integer depth the engine can write.
func decodeWAV(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	src, err := wav.Decoder{}.Decode(rc)
	if err != nil {
		return nil, beep.Format{}, err
	}
	defer src.Close()

	format := beep.Format{
		SampleRate:  beep.SampleRate(src.SampleRate()),
		NumChannels: 2,
		Precision:   2,
	}
	buf := beep.NewBuffer(format)
	ss := &sourceStreamer{src: src}
	buf.Append(ss)
	if err := ss.Err(); err != nil {
		return nil, beep.Format{}, err
	}

	return nopCloser{buf.Streamer(0, buf.Len())}, format, nil
}

// Player is an in-memory media element. A loaded resource is decoded in full
// into a beep.Buffer, so it is always ready to play through once Load
// returns. Player is itself a beep.Streamer producing silence while paused
// or empty; something has to pull samples from it, either Drive or an
// audio device.
type Player struct {
	name   string
	logger *slog.Logger
	policy func() error

	mu     sync.Mutex
	ctrl   *beep.Ctrl
	stream beep.StreamSeeker
	format beep.Format
	length int
	ref    string

	loads   atomic.Int64
	decodes atomic.Int64
}

// Option configures a Player.
type Option func(*Player)

func WithLogger(l *slog.Logger) Option {
	return func(p *Player) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithName labels log lines, e.g. "live" or "preload".
func WithName(name string) Option {
	return func(p *Player) { p.name = name }
}

// WithPlayPolicy installs a check run by every Play call. A non-nil error
// refuses playback.
func WithPlayPolicy(policy func() error) Option {
	return func(p *Player) { p.policy = policy }
}

func New(opts ...Option) *Player {
	p := &Player{
		name:   "player",
		logger: slog.Default(),
		ctrl:   &beep.Ctrl{Paused: true},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load binds res, paused at the start. The decoded audio is cached on the
// resource, so the first Load decodes and later ones bind in O(1). On failure
// the previous binding stays.
func (p *Player) Load(ctx context.Context, res *swap.Resource) error {
	buf, ok := res.Decoded().(*beep.Buffer)
	if !ok {
		var err error
		if buf, err = p.decode(ctx, res); err != nil {
			return err
		}
		res.SetDecoded(buf)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.stream = buf.Streamer(0, buf.Len())
	p.format = buf.Format()
	p.length = buf.Len()
	p.ref = res.Ref()
	p.ctrl.Streamer = p.stream
	p.ctrl.Paused = true
	p.mu.Unlock()

	p.loads.Add(1)
	p.logger.Debug("resource loaded", "player", p.name, "ref", res.Ref(), "duration", buf.Format().SampleRate.D(buf.Len()), "decoded", !ok)

	return nil
}

func (p *Player) decode(ctx context.Context, res *swap.Resource) (*beep.Buffer, error) {
	data := res.Bytes()
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", res.Ref(), ErrNoData)
	}

	decode, ok := decoders[res.Format()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, res.Format())
	}

	streamer, format, err := decode(memFile{bytes.NewReader(data)})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", res.Format(), err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(&ctxStreamer{ctx: ctx, s: streamer})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", res.Format(), err)
	}

	p.decodes.Add(1)
	return buf, nil
}

// Unload drops the current binding.
func (p *Player) Unload() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stream = nil
	p.length = 0
	p.ref = ""
	p.ctrl.Streamer = nil
	p.ctrl.Paused = true
}

func (p *Player) Play() error {
	if p.policy != nil {
		if err := p.policy(); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return ErrNotLoaded
	}
	// playing from the end starts over
	if p.stream.Position() >= p.length {
		if err := p.stream.Seek(0); err != nil {
			return fmt.Errorf("rewind: %w", err)
		}
	}
	p.ctrl.Paused = false
	return nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctrl.Paused = true
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream == nil || p.ctrl.Paused
}

func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return 0
	}
	return p.format.SampleRate.D(p.stream.Position())
}

// Seek moves to pos, clamped to the loaded audio.
func (p *Player) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return ErrNotLoaded
	}

	n := min(max(p.format.SampleRate.N(pos), 0), p.length)
	return p.stream.Seek(n)
}

// Duration is the length of the loaded audio.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return 0
	}
	return p.format.SampleRate.D(p.length)
}

// Ref is the reference of the bound resource, or "".
func (p *Player) Ref() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ref
}

// Loads counts successful Load calls.
func (p *Player) Loads() int64 { return p.loads.Load() }

// Decodes counts the loads that had to decode rather than reuse a cached
// buffer.
func (p *Player) Decodes() int64 { return p.decodes.Load() }

func (p *Player) SampleRate() beep.SampleRate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format.SampleRate
}

// Stream fills samples from the bound audio. It always fills the whole
// slice, padding with silence, and pauses itself at the end of the audio.
func (p *Player) Stream(samples [][2]float64) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	if p.ctrl.Streamer != nil && !p.ctrl.Paused {
		n, _ = p.ctrl.Stream(samples)
		if n < len(samples) {
			p.ctrl.Paused = true
		}
	}

	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

func (p *Player) Err() error { return nil }

// Drive pulls samples from the player in real time, standing in for an
// audio device, until ctx is done.
func (p *Player) Drive(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var buf [][2]float64
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now

			rate := p.SampleRate()
			if rate == 0 {
				continue
			}

			n := rate.N(elapsed)
			if cap(buf) < n {
				buf = make([][2]float64, n)
			}
			p.Stream(buf[:n])
		}
	}
}

// BlockAutoplay returns a play policy that refuses playback until allow is
// called, like a browser before the first user gesture.
func BlockAutoplay() (policy func() error, allow func()) {
	var allowed atomic.Bool
	policy = func() error {
		if !allowed.Load() {
			return ErrPlaybackBlocked
		}
		return nil
	}
	return policy, func() { allowed.Store(true) }
}

// ctxStreamer ends the stream once ctx is done.
type ctxStreamer struct {
	ctx context.Context
	s   beep.Streamer
}

func (c *ctxStreamer) Stream(samples [][2]float64) (int, bool) {
	if c.ctx.Err() != nil {
		return 0, false
	}
	return c.s.Stream(samples)
}

func (c *ctxStreamer) Err() error { return c.s.Err() }

// sourceStreamer adapts an audio.Source to beep. Mono is copied to both
// sides and channels past the second are dropped.
type sourceStreamer struct {
	src audio.Source
	buf []float32
	err error
}

func (s *sourceStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.err != nil || len(samples) == 0 {
		return 0, false
	}

	ch := max(s.src.Channels(), 1)
	need := len(samples) * ch
	if cap(s.buf) < need {
		s.buf = make([]float32, need)
	}

	n, err := s.src.ReadSamples(s.buf[:need])
	frames := n / ch
	for i := range frames {
		l := float64(s.buf[i*ch])
		r := l
		if ch > 1 {
			r = float64(s.buf[i*ch+1])
		}
		samples[i] = [2]float64{l, r}
	}

	if err != nil && err != io.EOF {
		s.err = err
	}
	if frames == 0 {
		return 0, false
	}
	return frames, true
}

func (s *sourceStreamer) Err() error { return s.err }

type nopCloser struct{ beep.StreamSeeker }

func (nopCloser) Close() error { return nil }

var _ swap.Surface = (*Player)(nil)
