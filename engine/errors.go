// SPDX-License-Identifier: EPL-2.0

package engine

import "github.com/pkg/errors"

var (
	ErrEmptyTrack = errors.New("track has no data")
	ErrReleased   = errors.New("mix handle released")
)
