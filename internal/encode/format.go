package encode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFormat indicates an unsupported output format name
var ErrUnknownFormat = errors.New("unknown output format")

// Format is one of the supported output encodings.
type Format string

// Supported output formats.
const (
	Vorbis Format = "vorbis" // Ogg Vorbis, the default
	Flac   Format = "flac"   // lossless
	Mp3    Format = "mp3"    // universal lossy
	Wav    Format = "wav"    // uncompressed passthrough
)

// Formats lists the supported output formats in display order.
func Formats() []Format {
	return []Format{Vorbis, Flac, Mp3, Wav}
}

// ParseFormat resolves a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "vorbis", "ogg":
		return Vorbis, nil
	case "flac":
		return Flac, nil
	case "mp3":
		return Mp3, nil
	case "wav":
		return Wav, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: vorbis, flac, mp3, wav)", ErrUnknownFormat, name)
	}
}

// Ext returns the file extension for the format, with the leading dot.
func (f Format) Ext() string {
	switch f {
	case Vorbis:
		return ".ogg"
	case Flac:
		return ".flac"
	case Mp3:
		return ".mp3"
	default:
		return ".wav"
	}
}

func (f Format) String() string { return string(f) }
