// SPDX-License-Identifier: EPL-2.0

package combiner

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/ik5/mixpreview/audio"
)

// Engine builds a mix handle for an ordered set of tracks.
type Engine interface {
	Init(ctx context.Context, tracks []audio.Encoded) (Handle, error)
}

// Handle is an engine-side mix of a fixed track set. Combine takes one
// volume percentage per track in Init order. Release must be called exactly
// once; implementations need not guard against a second call.
type Handle interface {
	Combine(ctx context.Context, volumes []uint8) (audio.Encoded, error)
	Release()
}

const MaxVolume = 100

// Session owns the engine handle for one upload batch.
type Session struct {
	handle Handle
	tracks int
	logger *slog.Logger

	mu       sync.RWMutex
	released bool
	once     sync.Once
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open initialises eng with tracks. Any engine failure is returned wrapped
// in ErrEngineInit.
func Open(ctx context.Context, eng Engine, tracks []audio.Encoded, opts ...Option) (*Session, error) {
	if eng == nil {
		return nil, fmt.Errorf("%w: no engine", ErrEngineInit)
	}
	for i, t := range tracks {
		if !t.Format.Valid() {
			return nil, fmt.Errorf("%w: track %d has unknown format %d", ErrEngineInit, i, uint8(t.Format))
		}
	}

	h, err := eng.Init(ctx, tracks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineInit, err)
	}
	if isNil(h) {
		return nil, fmt.Errorf("%w: engine returned no handle", ErrEngineInit)
	}

	s := &Session{handle: h, tracks: len(tracks), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Debug("combiner session opened", "tracks", s.tracks)

	return s, nil
}

// isNil also catches a nil pointer wrapped in the interface.
func isNil(h Handle) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Tracks is the number of tracks the session was opened with.
func (s *Session) Tracks() int { return s.tracks }

// Recombine mixes the tracks at the given volumes, one 0-100 percentage per
// track. An engine error, an empty payload or an unknown format tag all come
// back wrapped in ErrMix.
func (s *Session) Recombine(ctx context.Context, volumes []int) (audio.Encoded, error) {
	if len(volumes) != s.tracks {
		return audio.Encoded{}, fmt.Errorf("%w: got %d volumes for %d tracks", ErrInvalidVolumes, len(volumes), s.tracks)
	}

	levels := make([]uint8, len(volumes))
	for i, v := range volumes {
		if v < 0 || v > MaxVolume {
			return audio.Encoded{}, fmt.Errorf("%w: volume %d at %d out of range", ErrInvalidVolumes, v, i)
		}
		levels[i] = uint8(v)
	}

	// hold the read lock so Release waits for in-flight mixes
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.released {
		return audio.Encoded{}, ErrReleased
	}

	enc, err := s.handle.Combine(ctx, levels)
	if err != nil {
		return audio.Encoded{}, fmt.Errorf("%w: %w", ErrMix, err)
	}
	if !enc.Valid() {
		return audio.Encoded{}, fmt.Errorf("%w: engine returned %d bytes tagged %s", ErrMix, len(enc.Data), enc.Format)
	}

	return enc, nil
}

// Release frees the engine handle. Calling it more than once is safe.
func (s *Session) Release() {
	s.once.Do(func() {
		s.mu.Lock()
		s.released = true
		s.mu.Unlock()

		s.handle.Release()
		s.logger.Debug("combiner session released", "tracks", s.tracks)
	})
}

// Released reports whether Release has been called.
func (s *Session) Released() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.released
}
