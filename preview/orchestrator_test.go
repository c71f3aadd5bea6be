// SPDX-License-Identifier: EPL-2.0

package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/mixpreview/audio"
	"github.com/ik5/mixpreview/combiner"
	"github.com/ik5/mixpreview/internal/audiotest"
)

// fakeHandle renders the volume vector as the mix payload.
type fakeHandle struct {
	mu       sync.Mutex
	calls    [][]uint8
	hold     chan struct{}
	started  chan struct{}
	fail     bool
	released atomic.Int32
}

func (h *fakeHandle) Combine(_ context.Context, volumes []uint8) (audio.Encoded, error) {
	h.mu.Lock()
	h.calls = append(h.calls, append([]uint8(nil), volumes...))
	hold, started, fail := h.hold, h.started, h.fail
	h.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if hold != nil {
		<-hold
	}
	if fail {
		return audio.Encoded{}, errors.New("engine exploded")
	}
	return audio.Encoded{Data: fmt.Append(nil, volumes), Format: audio.FormatWAV}, nil
}

func (h *fakeHandle) Release() { h.released.Add(1) }

func (h *fakeHandle) set(fn func(h *fakeHandle)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h)
}

func (h *fakeHandle) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

type fakeEngine struct {
	mu      sync.Mutex
	handles []*fakeHandle
	initErr error
	failMix bool
	formats []audio.Format
}

func (e *fakeEngine) Init(_ context.Context, tracks []audio.Encoded) (combiner.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initErr != nil {
		return nil, e.initErr
	}
	e.formats = e.formats[:0]
	for _, t := range tracks {
		e.formats = append(e.formats, t.Format)
	}
	h := &fakeHandle{fail: e.failMix}
	e.handles = append(e.handles, h)
	return h, nil
}

func (e *fakeEngine) last() *fakeHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handles[len(e.handles)-1]
}

// fakeScheduler records presented payloads.
type fakeScheduler struct {
	mu        sync.Mutex
	presented []string
	resets    int
}

func (s *fakeScheduler) Present(enc audio.Encoded) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presented = append(s.presented, string(enc.Data))
	return nil
}

func (s *fakeScheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
}

func (s *fakeScheduler) Wait(context.Context) error { return nil }

func (s *fakeScheduler) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.presented...)
}

func uploads() []Upload {
	return []Upload{
		{Name: "drums.mp3", MIMEType: "audio/mpeg", Data: audiotest.MPEG(nil, 9, 160_000)},
		{Name: "bass.ogg", MIMEType: "audio/ogg", Data: []byte("fake vorbis payload")},
	}
}

func settle(t *testing.T, o *Orchestrator) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Wait(ctx))
}

func TestOrchestrator_Select(t *testing.T) {
	t.Parallel()

	eng, sched := &fakeEngine{}, &fakeScheduler{}
	o := New(eng, sched)

	require.NoError(t, o.Select(context.Background(), uploads()))

	tracks := o.Tracks()
	require.Len(t, tracks, 2)
	assert.Equal(t, "drums.mp3", tracks[0].Name)
	assert.Equal(t, "00:00:10", tracks[0].Duration)
	assert.Equal(t, 100, tracks[0].Volume)
	assert.Equal(t, "drums", tracks[0].Title)
	assert.Equal(t, "bass.ogg", tracks[1].Name)
	assert.Equal(t, "ogg", tracks[1].Format)
	assert.NotEqual(t, tracks[0].ID, tracks[1].ID)

	assert.Equal(t, []audio.Format{audio.FormatMPEG, audio.FormatOGG}, eng.formats)
	assert.Equal(t, []string{"[100 100]"}, sched.all())
}

func TestOrchestrator_Select_UnknownMIMEIsMPEG(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	o := New(eng, &fakeScheduler{})

	require.NoError(t, o.Select(context.Background(), []Upload{
		{Name: "a", MIMEType: "application/octet-stream", Data: []byte{1}},
		{Name: "b.wav", Data: []byte{1}},
	}))
	assert.Equal(t, []audio.Format{audio.FormatMPEG, audio.FormatWAV}, eng.formats)
}

func TestOrchestrator_Select_ReadsTags(t *testing.T) {
	t.Parallel()

	data := append(audiotest.ID3Tags("Night Drive", "The Mixers"), audiotest.MPEG(nil, 9, 16_000)...)
	o := New(&fakeEngine{}, &fakeScheduler{})

	require.NoError(t, o.Select(context.Background(), []Upload{{Name: "x.mp3", MIMEType: "audio/mpeg", Data: data}}))

	tracks := o.Tracks()
	require.Len(t, tracks, 1)
	assert.Equal(t, "Night Drive", tracks[0].Title)
	assert.Equal(t, "The Mixers", tracks[0].Artist)
	assert.Equal(t, int64(len(data)), tracks[0].Size)
}

func TestOrchestrator_Select_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		eng     *fakeEngine
		uploads []Upload
		target  error
	}{
		{"no files", &fakeEngine{}, nil, ErrNoUploads},
		{"empty file", &fakeEngine{}, []Upload{{Name: "empty.mp3"}}, ErrEmptyUpload},
		{"engine rejects", &fakeEngine{initErr: errors.New("bad codec")}, uploads(), combiner.ErrEngineInit},
		{"first mix fails", &fakeEngine{failMix: true}, uploads(), combiner.ErrMix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sched := &fakeScheduler{}
			o := New(tt.eng, sched)

			err := o.Select(context.Background(), tt.uploads)
			assert.ErrorIs(t, err, tt.target)
			assert.Empty(t, o.Tracks(), "no partial track list")
			assert.Empty(t, sched.all())

			for _, h := range tt.eng.handles {
				assert.Equal(t, int32(1), h.released.Load(), "abandoned session released")
			}
		})
	}
}

func TestOrchestrator_Select_ReplacesBatch(t *testing.T) {
	t.Parallel()

	eng, sched := &fakeEngine{}, &fakeScheduler{}
	o := New(eng, sched)

	require.NoError(t, o.Select(context.Background(), uploads()))
	first := eng.last()
	oldID := o.Tracks()[0].ID

	require.NoError(t, o.Select(context.Background(), uploads()[:1]))

	assert.Equal(t, int32(1), first.released.Load())
	assert.Len(t, o.Tracks(), 1)
	assert.NotEqual(t, oldID, o.Tracks()[0].ID)
	assert.Equal(t, 2, sched.resets)
}

func TestOrchestrator_SetVolume_Immediate(t *testing.T) {
	t.Parallel()

	eng, sched := &fakeEngine{}, &fakeScheduler{}
	o := New(eng, sched)
	require.NoError(t, o.Select(context.Background(), uploads()))

	h := eng.last()
	hold := make(chan struct{})
	h.set(func(h *fakeHandle) { h.hold = hold })

	id := o.Tracks()[0].ID
	require.NoError(t, o.SetVolume(context.Background(), id, 50))

	// the mix is still blocked in the engine
	tr, ok := o.Track(id)
	require.True(t, ok)
	assert.Equal(t, 50, tr.Volume)
	assert.Equal(t, []string{"[100 100]"}, sched.all())

	close(hold)
	settle(t, o)

	assert.Equal(t, []string{"[100 100]", "[50 100]"}, sched.all())
	assert.Equal(t, uint64(1), o.Stats().Recombines)
}

// hookHandler runs fn once, synchronously, when a record with message msg is
// logged.
type hookHandler struct {
	msg  string
	fn   func()
	once sync.Once
}

func (h *hookHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *hookHandler) Handle(_ context.Context, r slog.Record) error {
	if r.Message == h.msg {
		h.once.Do(h.fn)
	}
	return nil
}

func (h *hookHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *hookHandler) WithGroup(string) slog.Handler      { return h }

func TestOrchestrator_SetVolume_DuringSelectPresentsNewestLast(t *testing.T) {
	t.Parallel()

	eng, sched := &fakeEngine{}, &fakeScheduler{}
	var o *Orchestrator

	// the edit lands after the tracks are visible but before Select has
	// presented the default mix
	hook := &hookHandler{msg: "tracks loaded", fn: func() {
		require.NoError(t, o.SetVolume(context.Background(), o.Tracks()[0].ID, 50))
		time.Sleep(50 * time.Millisecond)
	}}
	o = New(eng, sched, WithLogger(slog.New(hook)))

	require.NoError(t, o.Select(context.Background(), uploads()))
	settle(t, o)

	assert.Equal(t, []string{"[100 100]", "[50 100]"}, sched.all())
}

func TestOrchestrator_SetVolume_SkipsSuperseded(t *testing.T) {
	t.Parallel()

	eng, sched := &fakeEngine{}, &fakeScheduler{}
	o := New(eng, sched)
	require.NoError(t, o.Select(context.Background(), uploads()))

	h := eng.last()
	hold, started := make(chan struct{}), make(chan struct{}, 1)
	h.set(func(h *fakeHandle) { h.hold, h.started = hold, started })

	ids := []string{o.Tracks()[0].ID, o.Tracks()[1].ID}
	require.NoError(t, o.SetVolume(context.Background(), ids[0], 10))
	<-started

	require.NoError(t, o.SetVolume(context.Background(), ids[0], 20))
	require.NoError(t, o.SetVolume(context.Background(), ids[1], 30))

	h.set(func(h *fakeHandle) { h.started = nil })
	close(hold)
	settle(t, o)

	got := sched.all()
	assert.Equal(t, "[20 30]", got[len(got)-1], "latest volumes win")
	assert.Equal(t, 3, h.callCount(), "initial, first edit and latest edit only")

	st := o.Stats()
	assert.Equal(t, uint64(2), st.Recombines)
	assert.Equal(t, uint64(1), st.Skipped)

	tracks := o.Tracks()
	assert.Equal(t, 20, tracks[0].Volume)
	assert.Equal(t, 30, tracks[1].Volume)
}

func TestOrchestrator_SetVolume_Errors(t *testing.T) {
	t.Parallel()

	o := New(&fakeEngine{}, &fakeScheduler{})
	require.NoError(t, o.Select(context.Background(), uploads()))
	id := o.Tracks()[0].ID

	assert.ErrorIs(t, o.SetVolume(context.Background(), id, -1), ErrInvalidVolume)
	assert.ErrorIs(t, o.SetVolume(context.Background(), id, 101), ErrInvalidVolume)
	assert.ErrorIs(t, o.SetVolume(context.Background(), "nope", 50), ErrUnknownTrack)
	assert.Equal(t, 100, o.Tracks()[0].Volume)
}

func TestOrchestrator_SetVolume_MixErrorKeepsLive(t *testing.T) {
	t.Parallel()

	eng, sched := &fakeEngine{}, &fakeScheduler{}
	o := New(eng, sched)
	require.NoError(t, o.Select(context.Background(), uploads()))

	eng.last().set(func(h *fakeHandle) { h.fail = true })
	require.NoError(t, o.SetVolume(context.Background(), o.Tracks()[1].ID, 0))
	settle(t, o)

	assert.Equal(t, []string{"[100 100]"}, sched.all())
	assert.Equal(t, uint64(1), o.Stats().MixErrors)
	assert.Equal(t, 0, o.Tracks()[1].Volume, "track state keeps the edit")
}

func TestOrchestrator_SetVolume_AfterResetNotPresented(t *testing.T) {
	t.Parallel()

	eng, sched := &fakeEngine{}, &fakeScheduler{}
	o := New(eng, sched)
	require.NoError(t, o.Select(context.Background(), uploads()))

	h := eng.last()
	hold, started := make(chan struct{}), make(chan struct{}, 1)
	h.set(func(h *fakeHandle) { h.hold, h.started = hold, started })

	require.NoError(t, o.SetVolume(context.Background(), o.Tracks()[0].ID, 5))
	<-started

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(hold)
	}()
	o.Reset()
	settle(t, o)

	assert.Equal(t, []string{"[100 100]"}, sched.all())
	assert.Equal(t, int32(1), h.released.Load())
}

func TestOrchestrator_Reset(t *testing.T) {
	t.Parallel()

	eng, sched := &fakeEngine{}, &fakeScheduler{}
	o := New(eng, sched)
	require.NoError(t, o.Select(context.Background(), uploads()))

	o.Reset()
	o.Reset()

	assert.Empty(t, o.Tracks())
	assert.Equal(t, int32(1), eng.last().released.Load())
	assert.Equal(t, 3, sched.resets)

	_, err := o.Mixdown(context.Background())
	assert.ErrorIs(t, err, ErrNoUploads)
}

func TestOrchestrator_Mixdown(t *testing.T) {
	t.Parallel()

	eng, sched := &fakeEngine{}, &fakeScheduler{}
	o := New(eng, sched)
	require.NoError(t, o.Select(context.Background(), uploads()))
	require.NoError(t, o.SetVolume(context.Background(), o.Tracks()[0].ID, 70))
	settle(t, o)

	enc, err := o.Mixdown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[70 100]", string(enc.Data))
	assert.Len(t, sched.all(), 2, "mixdown is not presented")
}
