// SPDX-License-Identifier: EPL-2.0

package preview

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ik5/mixpreview/audio"
	"github.com/ik5/mixpreview/combiner"
)

// Scheduler receives finished mixes. *swap.Scheduler implements it.
type Scheduler interface {
	Present(enc audio.Encoded) error
	Reset()
	Wait(ctx context.Context) error
}

// Stats counts background recombinations.
type Stats struct {
	Recombines uint64 `json:"recombines"`
	// Skipped counts recombinations dropped because a newer volume change
	// arrived before they started.
	Skipped   uint64 `json:"skipped"`
	MixErrors uint64 `json:"mix_errors"`
}

// Orchestrator owns the track list and the combiner session of the current
// upload batch, and feeds new mixes to the scheduler.
type Orchestrator struct {
	engine combiner.Engine
	sched  Scheduler
	logger *slog.Logger

	mu      sync.Mutex
	tracks  []Track
	session *combiner.Session
	// batch changes on every Select and Reset
	batch uint64
	// gen changes on every volume edit
	gen   uint64
	stats Stats

	// background recombinations not yet finished
	inflight int
	settled  chan struct{}

	// mixMu runs one recombination at a time and orders every Present
	mixMu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func New(eng combiner.Engine, sched Scheduler, opts ...Option) *Orchestrator {
	settled := make(chan struct{})
	close(settled)

	o := &Orchestrator{engine: eng, sched: sched, logger: slog.Default(), settled: settled}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Select replaces the current batch with uploads. Durations and tags are
// read in parallel, a combiner session is opened, and the mix at default
// volumes is presented. On any failure the batch is abandoned and the track
// list stays empty.
func (o *Orchestrator) Select(ctx context.Context, uploads []Upload) error {
	batch := o.reset()

	if len(uploads) == 0 {
		return ErrNoUploads
	}

	tracks := make([]Track, len(uploads))
	encoded := make([]audio.Encoded, len(uploads))

	var g errgroup.Group
	for i, u := range uploads {
		g.Go(func() error {
			if len(u.Data) == 0 {
				return fmt.Errorf("%w: %q", ErrEmptyUpload, u.Name)
			}
			tracks[i] = newTrack(u)
			encoded[i] = u.Encoded()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sess, err := combiner.Open(ctx, o.engine, encoded, combiner.WithLogger(o.logger))
	if err != nil {
		o.logger.Error("upload abandoned", "files", len(uploads), "error", err)
		return err
	}

	volumes := make([]int, len(tracks))
	for i := range volumes {
		volumes[i] = DefaultVolume
	}

	enc, err := sess.Recombine(ctx, volumes)
	if err != nil {
		sess.Release()
		o.logger.Error("upload abandoned", "files", len(uploads), "error", err)
		return err
	}

	// a volume change made as soon as the tracks are visible queues behind
	// the default mix
	o.mixMu.Lock()
	defer o.mixMu.Unlock()

	o.mu.Lock()
	if o.batch != batch {
		o.mu.Unlock()
		sess.Release()
		return ErrSuperseded
	}
	o.tracks = tracks
	o.session = sess
	o.mu.Unlock()

	o.logger.Info("tracks loaded", "tracks", len(tracks))

	if err := o.sched.Present(enc); err != nil {
		o.logger.Error("presenting mix", "error", err)
	}

	return nil
}

// SetVolume changes one track's volume. The track list reflects the change
// before SetVolume returns; the new mix is produced and presented in the
// background.
func (o *Orchestrator) SetVolume(ctx context.Context, id string, volume int) error {
	if volume < 0 || volume > combiner.MaxVolume {
		return fmt.Errorf("%w: %d", ErrInvalidVolume, volume)
	}

	o.mu.Lock()
	idx := slices.IndexFunc(o.tracks, func(t Track) bool { return t.ID == id })
	if idx < 0 {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTrack, id)
	}

	o.tracks[idx].Volume = volume
	o.gen++

	req := mixRequest{
		session: o.session,
		batch:   o.batch,
		gen:     o.gen,
		volumes: o.volumesLocked(),
	}
	if o.inflight == 0 {
		o.settled = make(chan struct{})
	}
	o.inflight++
	o.mu.Unlock()

	go o.recombine(context.WithoutCancel(ctx), req)

	return nil
}

type mixRequest struct {
	session *combiner.Session
	batch   uint64
	gen     uint64
	volumes []int
}

func (o *Orchestrator) recombine(ctx context.Context, req mixRequest) {
	defer o.finish()

	o.mixMu.Lock()
	defer o.mixMu.Unlock()

	if !o.current(req, true) {
		o.mu.Lock()
		o.stats.Skipped++
		o.mu.Unlock()
		o.logger.Debug("skipping superseded recombine", "generation", req.gen)
		return
	}

	enc, err := req.session.Recombine(ctx, req.volumes)

	o.mu.Lock()
	o.stats.Recombines++
	if err != nil {
		o.stats.MixErrors++
	}
	o.mu.Unlock()

	if err != nil {
		o.logger.Warn("recombine failed, keeping current mix", "volumes", req.volumes, "error", err)
		return
	}

	// a new batch must not hear the old one
	if !o.current(req, false) {
		return
	}

	if err := o.sched.Present(enc); err != nil {
		o.logger.Error("presenting mix", "error", err)
	}
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.inflight--
	if o.inflight == 0 {
		close(o.settled)
	}
}

// current reports whether req still belongs to the live batch and, when
// latest is set, whether no newer volume change has been made.
func (o *Orchestrator) current(req mixRequest, latest bool) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if req.batch != o.batch {
		return false
	}
	return !latest || req.gen == o.gen
}

func (o *Orchestrator) volumesLocked() []int {
	v := make([]int, len(o.tracks))
	for i, t := range o.tracks {
		v[i] = t.Volume
	}
	return v
}

// Mixdown recombines the current volumes synchronously and returns the
// result without presenting it.
func (o *Orchestrator) Mixdown(ctx context.Context) (audio.Encoded, error) {
	o.mu.Lock()
	sess := o.session
	volumes := o.volumesLocked()
	o.mu.Unlock()

	if sess == nil {
		return audio.Encoded{}, ErrNoUploads
	}
	return sess.Recombine(ctx, volumes)
}

// Reset releases the session, clears the track list and resets the
// scheduler.
func (o *Orchestrator) Reset() {
	o.reset()
}

func (o *Orchestrator) reset() uint64 {
	o.mu.Lock()
	o.batch++
	batch := o.batch
	sess := o.session
	hadTracks := len(o.tracks) > 0
	o.session = nil
	o.tracks = nil
	o.mu.Unlock()

	if sess != nil {
		sess.Release()
	}
	o.sched.Reset()

	if hadTracks {
		o.logger.Info("preview reset")
	}

	return batch
}

// Tracks returns a copy of the track list in upload order.
func (o *Orchestrator) Tracks() []Track {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.tracks)
}

// Track looks up one track by ID.
func (o *Orchestrator) Track(id string) (Track, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, t := range o.tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// Wait blocks until background recombinations have finished and the
// scheduler is idle.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	settled := o.settled
	o.mu.Unlock()

	select {
	case <-settled:
	case <-ctx.Done():
		return ctx.Err()
	}

	return o.sched.Wait(ctx)
}
