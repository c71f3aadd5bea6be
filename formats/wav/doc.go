// SPDX-License-Identifier: EPL-2.0

// Package wav decodes integer PCM WAV files and writes 16-bit PCM WAV files.
//
// Decoding is done by github.com/go-audio/wav; this package adapts it to the
// audio.Source interface and normalises samples to float32 in [-1, 1].
//
// # Supported Formats
//
//   - PCM at 8 (unsigned), 16, 24 and 32 bits
//   - Any channel count
//   - Any sample rate
//
// Compressed and IEEE-float WAV files are rejected with ErrOnlyPCMSupported.
//
// # Decoding
//
//	source, err := wav.Decoder{}.Decode(file)
//	if err != nil {
//	    // Handle error
//	}
//
//	buf := make([]float32, 4096)
//	n, err := source.ReadSamples(buf)
//
// The reader is used directly when it can seek. Anything else is read into
// memory first.
//
// # Writing
//
// The mixing engine emits its mixdown through WriteWAV16:
//
//	err := wav.WriteWAV16(w, 44100, 2, interleaved)
//
// The header is the canonical 44-byte RIFF/fmt/data layout, so the total size
// is always EncodedSize(len(interleaved)).
//
// # Errors
//
//   - ErrNotWavFile: the input has no valid RIFF/WAVE header
//   - ErrOnlyPCMSupported: the fmt chunk is not integer PCM
//   - ErrUnsupportedBitDepth: the bit depth is not 8, 16, 24 or 32
//   - ErrInvalidChannels: WriteWAV16 was given fewer than one channel
package wav
