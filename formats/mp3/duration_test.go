// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"testing"
	"time"

	"github.com/ik5/mixpreview/internal/audiotest"
)

func TestEstimate(t *testing.T) {
	t.Parallel()

	withFalseSyncInTag := audiotest.ID3(20)
	copy(withFalseSyncInTag[12:], audiotest.FrameHeader(14))
	withFalseSyncInTag = append(withFalseSyncInTag, audiotest.MPEG(nil, 9, 160_000-len(withFalseSyncInTag))...)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"128 kbps ten megabytes", audiotest.MPEG(nil, 9, 10_000_000), "00:10:25"},
		{"320 kbps one minute", audiotest.MPEG(nil, 14, 2_400_000), "00:01:00"},
		{"32 kbps", audiotest.MPEG(nil, 1, 40_000), "00:00:10"},
		{"after id3 tag", audiotest.MPEG(audiotest.ID3(100), 9, 160_000), "00:00:10"},
		{"sync hidden inside tag is skipped", withFalseSyncInTag, "00:00:10"},
		{"leading junk", audiotest.MPEG([]byte{0x00, 0xFF, 0x10, 0x00}, 9, 160_000), "00:00:10"},
		{"free bitrate", audiotest.MPEG(nil, 0, 160_000), "00:00:00"},
		{"bad bitrate", audiotest.MPEG(nil, 15, 160_000), "00:00:00"},
		{"no sync", make([]byte, 160_000), "00:00:00"},
		{"empty", nil, "00:00:00"},
		{"shorter than a header", []byte{0xFF, 0xFB, 0x90}, "00:00:00"},
		{"sync in last four bytes", append(make([]byte, 100), audiotest.FrameHeader(9)...), "00:00:00"},
		{"tag larger than data", audiotest.ID3(1 << 20)[:64], "00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Estimate(tt.data); got != tt.want {
				t.Errorf("Estimate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	t.Parallel()

	data := audiotest.MPEG(audiotest.ID3(512), 11, 2_345_678)
	first := Estimate(data)
	for range 10 {
		if got := Estimate(data); got != first {
			t.Fatalf("Estimate() = %q, then %q", first, got)
		}
	}
}

func TestTagEnd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want int
	}{
		{"no tag", []byte("RIFF....WAVE"), 0},
		{"short", []byte("ID3"), 0},
		{"empty tag", audiotest.ID3(0), 10},
		{"small tag", audiotest.ID3(5), 15},
		{"synch-safe bytes", []byte{'I', 'D', '3', 4, 0, 0, 0x01, 0x02, 0x03, 0x04}, 1<<21 | 2<<14 | 3<<7 | 4 + 10},
		{"high bits ignored", []byte{'I', 'D', '3', 4, 0, 0, 0x80, 0x80, 0x80, 0x81}, 11},
	}

	for _, tt := range tests {
		if got := tagEnd(tt.data); got != tt.want {
			t.Errorf("%s: tagEnd() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{625 * time.Second, "00:10:25"},
		{3599*time.Second + 999*time.Millisecond, "00:59:59"},
		{100 * time.Hour, "100:00:00"},
		{-time.Second, "00:00:00"},
	}

	for _, tt := range tests {
		if got := FormatClock(tt.in); got != tt.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func BenchmarkEstimate(b *testing.B) {
	data := audiotest.MPEG(audiotest.ID3(4096), 9, 5_000_000)
	b.ReportAllocs()

	for b.Loop() {
		_ = Estimate(data)
	}
}
