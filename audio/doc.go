// SPDX-License-Identifier: EPL-2.0

// Package audio provides the low-level building blocks shared by the
// decoders, the mixing engine and the preview pipeline.
//
// # Formats
//
// Format is the closed set of containers the pipeline carries: WAV, MPEG and
// OGG. Encoded pairs a byte payload with its Format and is the unit passed
// between the mixing engine, the combiner session and the swap scheduler:
//
//	enc := audio.Encoded{Data: raw, Format: audio.FormatFromMIME("audio/ogg")}
//
// FormatFromMIME and FormatFromPath are best-effort; anything they do not
// recognise is treated as MPEG.
//
// # Source Interface
//
// Every format decoder returns a Source, which streams interleaved float32
// samples in [-1, 1]:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// ReadSamples returns io.EOF once the stream is exhausted.
//
// # Format Registry
//
// Decoders are looked up by Format:
//
//	registry := audio.NewRegistry()
//	registry.Register(audio.FormatWAV, wav.Decoder{})
//	src, err := registry.Decode(audio.FormatWAV, bytes.NewReader(raw))
//
// # Whole-buffer helpers
//
// The mixing engine works on fully decoded tracks, so the PCM helpers
// operate on complete interleaved buffers:
//
//	samples, _ := audio.ReadAll(src)
//	stereo, _ := audio.Stereo(samples, src.Channels())
//	stereo, _ = audio.Resample(stereo, 2, src.SampleRate(), 44100)
//	pcm := audio.ToPCM16(stereo[0])
//
// Resample uses Catmull-Rom interpolation, with a one-pole low-pass in front
// when downsampling.
package audio
