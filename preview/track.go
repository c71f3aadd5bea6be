// SPDX-License-Identifier: EPL-2.0

package preview

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/google/uuid"

	"github.com/ik5/mixpreview/audio"
	"github.com/ik5/mixpreview/formats/mp3"
)

const DefaultVolume = 100

// Upload is one selected file.
type Upload struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// Encoded tags the upload's bytes with the format its MIME type suggests,
// MPEG when unsure.
func (u Upload) Encoded() audio.Encoded {
	f := audio.FormatFromMIME(u.MIMEType)
	if u.MIMEType == "" && u.Name != "" {
		f = audio.FormatFromPath(u.Name)
	}
	return audio.Encoded{Data: u.Data, Format: f}
}

// Track is the metadata shown for one upload.
type Track struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Duration string `json:"duration"`
	Volume   int    `json:"volume"`
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
}

// newTrack estimates the duration and reads whatever tags the file carries.
func newTrack(u Upload) Track {
	size := u.Size
	if size <= 0 {
		size = int64(len(u.Data))
	}

	t := Track{
		ID:       uuid.NewString(),
		Name:     u.Name,
		Duration: mp3.Estimate(u.Data),
		Volume:   DefaultVolume,
		Format:   u.Encoded().Format.String(),
		Size:     size,
	}

	// tags are optional; most WAV files have none
	if meta, err := tag.ReadFrom(bytes.NewReader(u.Data)); err == nil {
		t.Title = strings.TrimSpace(meta.Title())
		t.Artist = strings.TrimSpace(meta.Artist())
		t.Album = strings.TrimSpace(meta.Album())
	}

	if t.Title == "" && u.Name != "" {
		t.Title = strings.TrimSuffix(filepath.Base(u.Name), filepath.Ext(u.Name))
	}

	return t
}
