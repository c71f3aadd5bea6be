// SPDX-License-Identifier: EPL-2.0

package vorbis_test

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ik5/mixpreview/formats/vorbis"
)

// ExampleDecoder_Decode_errorHandling shows error handling for invalid input.
func ExampleDecoder_Decode_errorHandling() {
	_, err := vorbis.Decoder{}.Decode(bytes.NewReader([]byte("not an ogg file")))
	if errors.Is(err, vorbis.ErrNotVorbis) {
		fmt.Println("Detected: not an Ogg Vorbis stream")
	}
	// Output: Detected: not an Ogg Vorbis stream
}
