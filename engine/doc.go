// SPDX-License-Identifier: EPL-2.0

// Package engine is the in-process mixing engine behind combiner.Session.
//
// Init decodes every track concurrently with the decoders in formats/. Each
// track is mapped to stereo, with mono duplicated into both sides, and
// resampled to the engine rate (44100 Hz unless WithSampleRate says
// otherwise). The decoded samples stay in memory until Release.
//
// Combine produces a 16-bit stereo WAV:
//
//	eng := engine.New()
//	h, err := eng.Init(ctx, tracks)
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
//
//	mix, err := h.Combine(ctx, []uint8{100, 50})
//
// Each output sample is the sum of the tracks' samples at that index scaled
// by volume/100, clamped to [-1, 1]. The mix is as long as the longest track.
// A track with no entry in the volume list plays at full level.
package engine
