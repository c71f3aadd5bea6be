// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidChannels = errors.New("channel count must be positive")
	ErrInvalidRate     = errors.New("sample rate must be positive")
	ErrNoDecoder       = errors.New("no decoder registered for format")
)
