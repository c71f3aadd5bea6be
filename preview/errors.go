// SPDX-License-Identifier: EPL-2.0

package preview

import "errors"

var (
	ErrNoUploads     = errors.New("no files selected")
	ErrEmptyUpload   = errors.New("uploaded file is empty")
	ErrUnknownTrack  = errors.New("unknown track")
	ErrInvalidVolume = errors.New("volume must be between 0 and 100")
	// ErrSuperseded is returned by Select when a later Select or Reset
	// replaced the batch before it was ready.
	ErrSuperseded = errors.New("upload batch superseded")
)
