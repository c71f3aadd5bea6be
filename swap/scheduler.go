// SPDX-License-Identifier: EPL-2.0

package swap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/mixpreview/audio"
)

// State is the scheduler's position in its two-state machine.
type State int

const (
	Idle State = iota
	Preloading
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preloading:
		return "preloading"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event describes one finished preload, swapped or not.
type Event struct {
	Ref    string       `json:"ref"`
	Format audio.Format `json:"-"`
	// Swapped is false when the preload was dropped.
	Swapped  bool          `json:"swapped"`
	Position time.Duration `json:"position"`
	Playing  bool          `json:"playing"`
	// Err is ErrPreloadDecode for a dropped swap or ErrPlaybackResume for a
	// completed one that could not resume.
	Err error `json:"-"`
}

// Stats are the scheduler's lifetime counters.
type Stats struct {
	Presented uint64 `json:"presented"`
	// Coalesced counts pending results overwritten by a newer one.
	Coalesced      uint64 `json:"coalesced"`
	Swaps          uint64 `json:"swaps"`
	Dropped        uint64 `json:"dropped"`
	ResumeFailures uint64 `json:"resume_failures"`
}

// Scheduler moves mixed results onto a live surface one at a time. Each
// result is first loaded on a hidden preload surface; once that succeeds it
// is bound to the live surface with position and play state carried over.
// While a preload is in flight, newer results replace each other in a single
// pending slot.
type Scheduler struct {
	live    Surface
	preload Surface
	store   *Store
	logger  *slog.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	inFlight *Resource
	pending  *audio.Encoded
	epoch    uint64
	idle     chan struct{}
	stats    Stats
	closed   bool
	hooks    []func(Event)

	// liveMu serialises work on the live surface
	liveMu  sync.Mutex
	current atomic.Pointer[Resource]
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore shares a resource store, for example with an HTTP handler that
// serves resources by reference.
func WithStore(st *Store) Option {
	return func(s *Scheduler) {
		if st != nil {
			s.store = st
		}
	}
}

// WithPreloadTimeout bounds each preload. Zero means no limit.
func WithPreloadTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// New returns an idle scheduler driving live and preloading on preload.
func New(live, preload Surface, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	idle := make(chan struct{})
	close(idle)

	s := &Scheduler{
		live:    live,
		preload: preload,
		store:   NewStore(),
		logger:  slog.Default(),
		ctx:     ctx,
		cancel:  cancel,
		idle:    idle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnSwap registers fn to be called after every finished preload. Hooks run
// on the scheduler's goroutine and must not block.
func (s *Scheduler) OnSwap(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *Scheduler) Store() *Store { return s.store }

// Present hands a mixed result to the scheduler. It never blocks on
// loading. If a preload is already running, enc replaces whatever was
// pending and is started once the running swap has finished.
func (s *Scheduler) Present(enc audio.Encoded) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.stats.Presented++

	if s.state == Preloading {
		if s.pending != nil {
			s.stats.Coalesced++
		}
		s.pending = &enc
		return nil
	}

	s.state = Preloading
	s.idle = make(chan struct{})
	res := s.store.Create(enc)
	s.inFlight = res

	go s.run(res, s.epoch)

	return nil
}

// run swaps res in, then keeps going for as long as something is pending.
func (s *Scheduler) run(res *Resource, epoch uint64) {
	for res != nil {
		ev := s.swap(res, epoch)
		s.emit(ev)
		res, epoch = s.next()
	}
}

// next takes the pending result, or returns to Idle.
func (s *Scheduler) next() (*Resource, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = nil

	if s.pending != nil && !s.closed {
		enc := *s.pending
		s.pending = nil
		res := s.store.Create(enc)
		s.inFlight = res
		return res, s.epoch
	}

	s.pending = nil
	s.state = Idle
	close(s.idle)
	return nil, 0
}

func (s *Scheduler) stale(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed || epoch != s.epoch
}

func (s *Scheduler) swap(res *Resource, epoch uint64) Event {
	ev := Event{Ref: res.Ref(), Format: res.Format()}

	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.preload.Load(ctx, res); err != nil {
		return s.drop(res, ev, fmt.Errorf("%w: %w", ErrPreloadDecode, err))
	}
	// the preload surface only proves the bytes are playable
	s.preload.Unload()

	s.liveMu.Lock()
	defer s.liveMu.Unlock()

	if s.stale(epoch) {
		s.logger.Debug("discarding preload from before reset", "ref", res.Ref())
		return s.drop(res, ev, nil)
	}

	// the live position is frozen while the new resource is bound
	wasPlaying := !s.live.Paused()
	s.live.Pause()
	pos := s.live.Position()

	if err := s.live.Load(ctx, res); err != nil {
		if wasPlaying {
			if perr := s.live.Play(); perr != nil {
				s.logger.Warn("playback not resumed after failed bind", "error", perr)
			}
		}
		return s.drop(res, ev, fmt.Errorf("%w: bind live: %w", ErrPreloadDecode, err))
	}

	if prev := s.current.Swap(res); prev != nil {
		if err := prev.Release(); err != nil {
			s.logger.Error("releasing superseded resource", "ref", prev.Ref(), "error", err)
		}
	}

	if err := s.live.Seek(pos); err != nil {
		s.logger.Warn("restoring position after swap", "ref", res.Ref(), "position", pos, "error", err)
	}

	ev.Swapped = true
	ev.Position = s.live.Position()

	if wasPlaying {
		if err := s.live.Play(); err != nil {
			ev.Err = fmt.Errorf("%w: %w", ErrPlaybackResume, err)
			s.logger.Warn("playback not resumed after swap", "ref", res.Ref(), "error", err)
		}
	}
	ev.Playing = !s.live.Paused()

	s.mu.Lock()
	s.stats.Swaps++
	if ev.Err != nil {
		s.stats.ResumeFailures++
	}
	s.mu.Unlock()

	s.logger.Debug("swapped live resource", "ref", res.Ref(), "position", ev.Position, "playing", ev.Playing)

	return ev
}

func (s *Scheduler) drop(res *Resource, ev Event, err error) Event {
	if rerr := res.Release(); rerr != nil {
		s.logger.Error("releasing dropped resource", "ref", res.Ref(), "error", rerr)
	}

	s.mu.Lock()
	s.stats.Dropped++
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("swap dropped", "ref", res.Ref(), "error", err)
	}

	ev.Err = err
	return ev
}

func (s *Scheduler) emit(ev Event) {
	s.mu.Lock()
	hooks := append([]func(Event){}, s.hooks...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(ev)
	}
}

// Reset clears the pending result and unbinds and releases the live
// resource. A preload still in flight completes but is released instead of
// going live.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.epoch++
	s.pending = nil
	s.mu.Unlock()

	s.unbind()
}

func (s *Scheduler) unbind() {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()

	prev := s.current.Swap(nil)
	if prev == nil {
		return
	}

	s.live.Unload()
	if err := prev.Release(); err != nil {
		s.logger.Error("releasing live resource", "ref", prev.Ref(), "error", err)
	}
}

// Wait blocks until the scheduler is idle or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting results, cancels any preload in flight and releases
// everything. It waits for the scheduler goroutine to finish.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.pending = nil
	idle := s.idle
	s.mu.Unlock()

	s.cancel()
	<-idle

	s.unbind()
	return nil
}

// Live returns the resource bound to the live surface, or nil.
func (s *Scheduler) Live() *Resource { return s.current.Load() }

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
