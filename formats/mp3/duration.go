// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"fmt"
	"time"
)

const (
	id3HeaderSize = 10
	// bytes a frame header occupies past the sync position
	frameHeaderSize = 4
)

// bitrates holds the MPEG-1 Layer III bitrates in kbps, indexed by the high
// nibble of the third header byte. 0 (free) and 15 (bad) are unusable.
var bitrates = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}

// Estimate returns the play time of an MP3 file as HH:MM:SS, derived from the
// file size and the bitrate of the first frame header. Data it cannot make
// sense of estimates to "00:00:00".
func Estimate(data []byte) string {
	return FormatClock(EstimateDuration(data))
}

// EstimateDuration is Estimate without the formatting. The result is whole
// seconds and assumes a constant bitrate across the file.
func EstimateDuration(data []byte) time.Duration {
	sync, ok := findFrameSync(data, tagEnd(data))
	if !ok {
		return 0
	}

	kbps := bitrates[data[sync+2]>>4]
	if kbps == 0 {
		return 0
	}

	seconds := int64(len(data)) * 8 / int64(kbps*1000)
	return time.Duration(seconds) * time.Second
}

// tagEnd returns the offset just past a leading ID3v2 tag, or 0.
func tagEnd(data []byte) int {
	if len(data) < id3HeaderSize || data[0] != 'I' || data[1] != 'D' || data[2] != '3' {
		return 0
	}

	// synch-safe: 7 bits per byte
	size := int(data[6]&0x7F)<<21 |
		int(data[7]&0x7F)<<14 |
		int(data[8]&0x7F)<<7 |
		int(data[9]&0x7F)

	return size + id3HeaderSize
}

// findFrameSync returns the first offset at or after start holding 0xFF
// followed by a byte with its top three bits set. Positions within the last
// four bytes are not considered.
func findFrameSync(data []byte, start int) (int, bool) {
	for i := start; i < len(data)-frameHeaderSize; i++ {
		if data[i] == 0xFF && data[i+1]&0xE0 == 0xE0 {
			return i, true
		}
	}
	return 0, false
}

// FormatClock renders d as zero-padded HH:MM:SS. Fractions of a second are
// dropped and hours are not capped.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total/60%60, total%60)
}
