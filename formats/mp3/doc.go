// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG Layer III audio and estimates its play time
// without decoding.
//
// # Decoding
//
// Decoder wraps github.com/hajimehoshi/go-mp3:
//
//	source, err := mp3.Decoder{}.Decode(file)
//	if err != nil {
//	    // errors.Is(err, mp3.ErrNotMP3)
//	}
//
// Output is always two interleaved channels of float32 in [-1, 1], at the
// sample rate of the stream.
//
// # Duration Estimation
//
// Estimate reads only the first frame header:
//
//	mp3.Estimate(data) // "00:03:41"
//
// A leading ID3v2 tag is skipped using its synch-safe size. The first frame
// sync after it supplies the bitrate, and the play time is the file size
// divided by that bitrate. Free-format and invalid bitrates, and data with
// no frame sync, estimate to zero. Estimate never fails.
//
// The figure is exact for constant bitrate files and a rough guess for
// variable bitrate ones. The whole file size is used, tags included.
package mp3
