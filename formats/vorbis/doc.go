// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis audio using github.com/jfreymuth/oggvorbis.
//
//	source, err := vorbis.Decoder{}.Decode(file)
//	if err != nil {
//	    // errors.Is(err, vorbis.ErrNotVorbis)
//	}
//
// Samples come out interleaved as float32 in [-1, 1] with the stream's own
// channel count and sample rate. ReadSamples only ever fills whole frames, so
// a destination shorter than one frame reads nothing.
package vorbis
