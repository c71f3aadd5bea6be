// SPDX-License-Identifier: EPL-2.0

package player

import "errors"

var (
	ErrNotLoaded         = errors.New("nothing loaded")
	ErrNoData            = errors.New("resource has no data")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrPlaybackBlocked is what BlockAutoplay reports until playback has
	// been allowed.
	ErrPlaybackBlocked = errors.New("playback not allowed")
)
