// SPDX-License-Identifier: EPL-2.0

package mp3

import "errors"

var ErrNotMP3 = errors.New("not an MPEG audio stream")
