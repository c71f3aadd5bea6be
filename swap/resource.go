// SPDX-License-Identifier: EPL-2.0

package swap

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ik5/mixpreview/audio"
)

const refScheme = "blob:"

// Resource is a playable handle over one mixed result. Its bytes stay
// reachable through the store until Release.
type Resource struct {
	ref      string
	enc      audio.Encoded
	store    *Store
	released atomic.Bool

	mu      sync.Mutex
	decoded any
}

// Ref is the resource's unique reference, "blob:<uuid>".
func (r *Resource) Ref() string { return r.ref }

func (r *Resource) Format() audio.Format { return r.enc.Format }

// Bytes returns the encoded audio, or nil once the resource is released.
// Callers must not modify it.
func (r *Resource) Bytes() []byte {
	if r.released.Load() {
		return nil
	}
	return r.enc.Data
}

// SetDecoded caches a surface's decoded form of the audio so that the next
// surface binding the resource can skip decoding. It is a no-op once the
// resource is released.
func (r *Resource) SetDecoded(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.released.Load() {
		r.decoded = v
	}
}

// Decoded returns what SetDecoded cached, or nil.
func (r *Resource) Decoded() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decoded
}

// Size is the byte length of the encoded audio.
func (r *Resource) Size() int { return len(r.enc.Data) }

func (r *Resource) Released() bool { return r.released.Load() }

// Release frees the resource. Only the first call has any effect; the rest
// return ErrReleased.
func (r *Resource) Release() error {
	if !r.released.CompareAndSwap(false, true) {
		return ErrReleased
	}
	r.mu.Lock()
	r.decoded = nil
	r.mu.Unlock()
	r.store.forget(r.ref)
	return nil
}

// StoreStats counts resources over the store's lifetime.
type StoreStats struct {
	Created  int64 `json:"created"`
	Released int64 `json:"released"`
	Live     int   `json:"live"`
}

// Store hands out resources and resolves references to them.
type Store struct {
	mu        sync.RWMutex
	resources map[string]*Resource
	created   atomic.Int64
	released  atomic.Int64
}

func NewStore() *Store {
	return &Store{resources: make(map[string]*Resource)}
}

// Create wraps enc in a new resource.
func (s *Store) Create(enc audio.Encoded) *Resource {
	r := &Resource{ref: refScheme + uuid.NewString(), enc: enc, store: s}

	s.mu.Lock()
	s.resources[r.ref] = r
	s.mu.Unlock()

	s.created.Add(1)
	return r
}

// Lookup finds an unreleased resource by reference.
func (s *Store) Lookup(ref string) (*Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.resources[ref]
	return r, ok
}

func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	live := len(s.resources)
	s.mu.RUnlock()

	return StoreStats{
		Created:  s.created.Load(),
		Released: s.released.Load(),
		Live:     live,
	}
}

func (s *Store) forget(ref string) {
	s.mu.Lock()
	delete(s.resources, ref)
	s.mu.Unlock()

	s.released.Add(1)
}
