// SPDX-License-Identifier: EPL-2.0

// Package swap replaces the audio on a live playback surface without
// audible gaps.
//
// # Resources
//
// A Store turns each mixed result into a Resource, a handle with a
// "blob:<uuid>" reference. Resources are released exactly once; a second
// Release reports ErrReleased and changes nothing.
//
// # Scheduling
//
// A Scheduler owns two surfaces. Present never blocks:
//
//	sched := swap.New(livePlayer, hiddenPlayer)
//	sched.OnSwap(func(ev swap.Event) { ... })
//	_ = sched.Present(mix)
//
// When idle, the result is loaded on the preload surface in the background.
// Once it has buffered, the live surface's position and play state are
// captured, the new resource is bound, the old one is released, and the
// position and play state are restored.
//
// While a preload is in flight, further results go to a single pending slot
// where the newest one wins. The in-flight preload is never abandoned for a
// newer result: it goes live first, then the pending result starts. The
// most recently presented result is therefore always the last to go live.
//
// # Failures
//
//   - ErrPreloadDecode: the preload surface could not load the bytes. The
//     resource is released, the swap dropped, and nothing is retried.
//   - ErrPlaybackResume: the live surface refused to resume. The swap still
//     counts, with playback left paused.
//
// Both reach OnSwap hooks through Event.Err and are logged. Neither is
// returned to the caller of Present.
//
// Reset unbinds and releases the live resource and forgets the pending
// result. A preload still in flight at that point finishes and is then
// released without going live.
package swap
