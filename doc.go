// SPDX-License-Identifier: EPL-2.0

// Package mixpreview previews a mix of several audio files while their
// volumes are being adjusted.
//
// # Pipeline
//
// A preview runs through four pieces:
//
//   - formats/mp3 estimates each file's duration straight from the MPEG
//     frame header, without decoding;
//   - combiner holds one mixing engine session per batch of files and turns
//     a volume vector into an encoded mix;
//   - swap loads each new mix on a hidden surface and swaps it onto the live
//     one at the same position, so playback continues without a gap;
//   - preview wires the three together behind Select, SetVolume and Reset.
//
// engine is the bundled mixing engine and player the bundled playback
// surface. Both sit behind interfaces (combiner.Engine, swap.Surface) and
// can be replaced.
//
// # Supported Formats
//
//   - WAV (PCM 8/16/24/32-bit) via formats/wav
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//
// # Quick Start
//
// For a one-off mixdown there is Mix:
//
//	out, err := mixpreview.Mix(ctx, []audio.Encoded{drums, bass}, []int{80, 100})
//	// out.Data is a 16-bit stereo WAV at 44100 Hz
//
// The interactive pipeline looks like this:
//
//	live, hidden := player.New(), player.New()
//	sched := swap.New(live, hidden)
//	orch := preview.New(engine.New(), sched)
//
//	_ = orch.Select(ctx, uploads)
//	_ = live.Play()
//	_ = orch.SetVolume(ctx, orch.Tracks()[0].ID, 40)
//
// cmd/previewd serves the same pipeline over HTTP and cmd/mixpreview is an
// interactive shell.
package mixpreview
