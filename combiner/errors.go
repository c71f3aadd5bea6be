// SPDX-License-Identifier: EPL-2.0

package combiner

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineInit means the engine rejected the track set. The batch is
	// unusable.
	ErrEngineInit = errors.New("mixing engine rejected tracks")
	// ErrMix means one recombination failed. The session stays usable.
	ErrMix            = errors.New("recombination failed")
	ErrInvalidVolumes = errors.New("invalid volume vector")
	// ErrReleased is returned by Recombine on a released session. It also
	// matches ErrMix.
	ErrReleased = fmt.Errorf("%w: session released", ErrMix)
)
