// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds fixtures shared by the package tests: synthetic
// PCM sources and byte-level builders for WAV files and MPEG frame headers.
package audiotest

import (
	"encoding/binary"
	"io"
	"math"
)

// Source is a synthetic PCM stream. It satisfies audio.Source without
// importing it.
type Source struct {
	rate     int
	channels int
	frames   int
	read     int
	wave     func(frame, channel int) float32
	closed   bool
}

// NewSource returns a source producing frames frames, each sample given by
// wave.
func NewSource(rate, channels, frames int, wave func(frame, channel int) float32) *Source {
	return &Source{rate: rate, channels: channels, frames: frames, wave: wave}
}

// Constant returns a source whose every sample equals v.
func Constant(rate, channels, frames int, v float32) *Source {
	return NewSource(rate, channels, frames, func(int, int) float32 { return v })
}

// Sine returns a source carrying the same sine tone on every channel.
func Sine(rate, channels, frames int, freq float64) *Source {
	return NewSource(rate, channels, frames, func(frame, _ int) float32 {
		return float32(math.Sin(2 * math.Pi * freq * float64(frame) / float64(rate)))
	})
}

func (s *Source) SampleRate() int { return s.rate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) BufSize() int    { return 4096 }

func (s *Source) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool { return s.closed }

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if s.read >= s.frames {
		return 0, io.EOF
	}

	n := min(len(dst)/s.channels, s.frames-s.read)
	for f := range n {
		for c := range s.channels {
			dst[f*s.channels+c] = s.wave(s.read+f, c)
		}
	}
	s.read += n

	if s.read >= s.frames {
		return n * s.channels, io.EOF
	}
	return n * s.channels, nil
}

// WAV builds a canonical 44-byte-header PCM16 WAV file around samples.
func WAV(rate, channels int, samples []int16) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(rate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(rate*channels*2))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(channels*2))
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(s))
	}
	return buf
}

// ConstantWAV is a WAV whose every sample is v.
func ConstantWAV(rate, channels, frames int, v int16) []byte {
	samples := make([]int16, frames*channels)
	for i := range samples {
		samples[i] = v
	}
	return WAV(rate, channels, samples)
}

// ID3 returns a bare ID3v2 header announcing a tag body of size bytes,
// followed by that many zero bytes.
func ID3(size int) []byte {
	b := make([]byte, 10+size)
	copy(b, "ID3")
	b[3] = 4
	b[6] = byte(size>>21) & 0x7F
	b[7] = byte(size>>14) & 0x7F
	b[8] = byte(size>>7) & 0x7F
	b[9] = byte(size) & 0x7F
	return b
}

// FrameHeader returns a four-byte MPEG-1 Layer III frame header whose
// bitrate index is idx.
func FrameHeader(idx byte) []byte {
	return []byte{0xFF, 0xFB, idx<<4 | 0x00, 0x44}
}

// MPEG returns size bytes that begin with a frame header carrying bitrate
// index idx, preceded by prefix. The rest is zero padding.
func MPEG(prefix []byte, idx byte, size int) []byte {
	b := make([]byte, size)
	n := copy(b, prefix)
	copy(b[n:], FrameHeader(idx))
	return b
}

// ID3Tags returns an ID3v2.3 tag holding title (TIT2) and artist (TPE1)
// text frames.
func ID3Tags(title, artist string) []byte {
	var body []byte
	for _, f := range []struct{ id, text string }{{"TIT2", title}, {"TPE1", artist}} {
		if f.text == "" {
			continue
		}
		payload := append([]byte{0}, f.text...) // ISO-8859-1
		frame := make([]byte, 10, 10+len(payload))
		copy(frame, f.id)
		binary.BigEndian.PutUint32(frame[4:8], uint32(len(payload)))
		body = append(body, append(frame, payload...)...)
	}

	tag := ID3(len(body))
	tag[3] = 3
	copy(tag[10:], body)
	return tag
}
