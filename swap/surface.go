// SPDX-License-Identifier: EPL-2.0

package swap

import (
	"context"
	"time"
)

// Surface is a media element the scheduler can bind resources to.
type Surface interface {
	// Load binds res and returns once enough of it is buffered to play
	// through. A failed Load leaves the previous binding in place.
	Load(ctx context.Context, res *Resource) error
	// Unload drops the current binding and stops output.
	Unload()
	Play() error
	Pause()
	Paused() bool
	Position() time.Duration
	Seek(pos time.Duration) error
}
