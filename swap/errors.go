// SPDX-License-Identifier: EPL-2.0

package swap

import "errors"

var (
	// ErrPreloadDecode means a surface could not buffer a resource. The swap
	// is dropped.
	ErrPreloadDecode = errors.New("preload failed")
	// ErrPlaybackResume means playback could not be restarted after a swap.
	// The swap itself completed and the live surface is left paused.
	ErrPlaybackResume = errors.New("playback resume refused")
	ErrReleased       = errors.New("resource already released")
	ErrClosed         = errors.New("scheduler closed")
)
