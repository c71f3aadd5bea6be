// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/mixpreview/audio"
)

// go-mp3 always produces 16-bit little-endian stereo
const (
	outChannels    = 2
	bytesPerSample = 2
)

// mp3Reader is the part of gomp3.Decoder the source uses.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec        mp3Reader
	sampleRate int
	buf        []byte
	// a sample split across two Read calls
	carry    []byte
	finished bool
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return outChannels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / bytesPerSample }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if s.finished {
		return 0, io.EOF
	}

	want := len(dst) * bytesPerSample
	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}
	s.buf = s.buf[:want]

	held := copy(s.buf, s.carry)
	s.carry = s.carry[:0]

	n, err := s.dec.Read(s.buf[held:])
	n += held

	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}

	whole := n - n%bytesPerSample
	if whole < n {
		s.carry = append(s.carry, s.buf[whole:n]...)
	}

	samples := whole / bytesPerSample
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(s.buf[i*bytesPerSample:]))
		dst[i] = audio.FromPCM16(v)
	}

	if err == io.EOF {
		s.finished = true
		return samples, io.EOF
	}

	return samples, nil
}

// Decoder decodes MPEG-1/2 Layer III streams into stereo float32 samples.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotMP3, err)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}, nil
}
