// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"mime"
	"path/filepath"
	"strings"
)

// Format identifies one of the container formats the preview pipeline can
// carry. The set is closed; the zero value is not a valid format.
type Format uint8

const (
	FormatWAV Format = iota + 1
	FormatMPEG
	FormatOGG
)

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatMPEG:
		return "mpeg"
	case FormatOGG:
		return "ogg"
	default:
		return "unknown"
	}
}

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	return f >= FormatWAV && f <= FormatOGG
}

// ContentType returns the canonical MIME type used when serving f.
func (f Format) ContentType() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	case FormatOGG:
		return "audio/ogg"
	default:
		return "audio/mpeg"
	}
}

// FormatFromMIME maps a MIME type to a Format on a best-effort basis.
// Parameters such as "; codecs=vorbis" are ignored. Anything unrecognised,
// including an empty string, maps to FormatMPEG.
func FormatFromMIME(mimeType string) Format {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}

	switch mt {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return FormatWAV
	case "audio/ogg", "application/ogg", "audio/vorbis", "audio/x-vorbis+ogg", "audio/x-ogg":
		return FormatOGG
	default:
		return FormatMPEG
	}
}

// FormatFromPath guesses the format from a file extension, with the same
// MPEG fallback as FormatFromMIME.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".ogg", ".oga":
		return FormatOGG
	default:
		return FormatMPEG
	}
}

// Encoded is an encoded audio payload tagged with its format. It is treated
// as immutable once produced.
type Encoded struct {
	Data   []byte
	Format Format
}

// Valid reports whether e carries a payload in a known format.
func (e Encoded) Valid() bool {
	return len(e.Data) > 0 && e.Format.Valid()
}
