package encode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

func init() {
	ffmpeg.LogCompiledCommand = false
}

// ErrInvalidQuality indicates a quality value outside [0,1]
var ErrInvalidQuality = errors.New("quality must be between 0.0 and 1.0")

// UnavailableError reports that no encoder backend for a format is
// installed. Guidance carries the install remedy for display.
type UnavailableError struct {
	Format   Format
	Guidance string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("no %s encoder found", e.Format)
}

// Encoder writes the final audio artifact for one format at one
// quality. Quality is normalized to [0,1] and mapped onto each
// backend's native scale.
type Encoder struct {
	format  Format
	quality float64
}

// NewEncoder creates an encoder after validating the quality value.
func NewEncoder(format Format, quality float64) (*Encoder, error) {
	if quality < 0 || quality > 1 {
		return nil, ErrInvalidQuality
	}
	return &Encoder{format: format, quality: quality}, nil
}

// Format returns the target format.
func (e *Encoder) Format() Format { return e.format }

// vorbisQuality maps normalized quality onto the oggenc/libvorbis
// 0..10 scale.
func (e *Encoder) vorbisQuality() int {
	return int(e.quality * 10.0)
}

// mp3Quality maps normalized quality onto the inverted lame VBR 0..9
// scale, where 0 is best.
func (e *Encoder) mp3Quality() int {
	return int(9.0 - e.quality*9.0)
}

// Encode concatenates the ordered WAV buffers and writes the encoded
// artifact to outPath. Nothing is left at outPath on failure.
func (e *Encoder) Encode(ctx context.Context, buffers [][]byte, outPath string) error {
	wav, err := Concat(buffers)
	if err != nil {
		return fmt.Errorf("concatenating audio: %w", err)
	}

	if e.format == Wav {
		return writeArtifact(outPath, wav)
	}

	// External encoders read from a file, so the concatenated stream
	// goes through a temp file next to the artifact.
	tmp, err := os.CreateTemp(filepath.Dir(outPath), "encode-*.wav")
	if err != nil {
		return fmt.Errorf("creating temp wav: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(wav); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp wav: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp wav: %w", err)
	}

	if err := e.encodeFile(ctx, tmpPath, outPath); err != nil {
		os.Remove(outPath)
		return err
	}
	return nil
}

// Validate checks that a backend for the format is installed, without
// encoding anything.
func (e *Encoder) Validate() error {
	if e.format == Wav {
		return nil
	}
	native := nativeEncoderBinary(e.format)
	if _, err := exec.LookPath(native); err == nil {
		return nil
	}
	if _, err := exec.LookPath("ffmpeg"); err == nil {
		return nil
	}
	return &UnavailableError{Format: e.format, Guidance: buildEncoderInstallGuidance(e.format)}
}

// encodeFile routes one WAV file through the preferred backend chain
// for the format.
func (e *Encoder) encodeFile(ctx context.Context, wavPath, outPath string) error {
	native := nativeEncoderBinary(e.format)
	if _, err := exec.LookPath(native); err == nil {
		log.Debug("Encoding with native backend", "encoder", native, "format", e.format)
		return e.runNative(ctx, native, wavPath, outPath)
	}
	if _, err := exec.LookPath("ffmpeg"); err == nil {
		log.Debug("Encoding with ffmpeg fallback", "format", e.format)
		return e.runFFmpeg(wavPath, outPath)
	}
	return &UnavailableError{Format: e.format, Guidance: buildEncoderInstallGuidance(e.format)}
}

// runNative invokes the format's dedicated encoder binary.
func (e *Encoder) runNative(ctx context.Context, binary, wavPath, outPath string) error {
	var args []string
	switch e.format {
	case Vorbis:
		args = []string{"-q", strconv.Itoa(e.vorbisQuality()), "-o", outPath, wavPath}
	case Flac:
		args = []string{"--compression-level-8", "-f", "-o", outPath, wavPath}
	case Mp3:
		args = []string{"-V", strconv.Itoa(e.mp3Quality()), wavPath, outPath}
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s encoding failed: %w: %s", binary, err, msg)
		}
		return fmt.Errorf("%s encoding failed: %w", binary, err)
	}
	return nil
}

// runFFmpeg invokes ffmpeg with the codec settings for the format.
func (e *Encoder) runFFmpeg(wavPath, outPath string) error {
	kwargs := ffmpeg.KwArgs{"loglevel": "error"}
	switch e.format {
	case Vorbis:
		kwargs["c:a"] = "libvorbis"
		kwargs["q:a"] = strconv.Itoa(e.vorbisQuality())
	case Flac:
		kwargs["c:a"] = "flac"
		kwargs["compression_level"] = "8"
	case Mp3:
		kwargs["c:a"] = "libmp3lame"
		kwargs["q:a"] = strconv.Itoa(e.mp3Quality())
	}

	if err := ffmpeg.Input(wavPath).Output(outPath, kwargs).OverWriteOutput().Run(); err != nil {
		return fmt.Errorf("ffmpeg encoding failed: %w", err)
	}
	return nil
}

// writeArtifact lands bytes at path through a temp file and rename.
func writeArtifact(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "artifact-*")
	if err != nil {
		return fmt.Errorf("creating artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("placing artifact: %w", err)
	}
	return nil
}

// nativeEncoderBinary returns the dedicated encoder for a format.
func nativeEncoderBinary(format Format) string {
	switch format {
	case Vorbis:
		return "oggenc"
	case Flac:
		return "flac"
	case Mp3:
		return "lame"
	default:
		return ""
	}
}

// buildEncoderInstallGuidance provides install instructions for the
// format's encoder chain.
func buildEncoderInstallGuidance(format Format) string {
	var native, pkg string
	switch format {
	case Vorbis:
		native, pkg = "oggenc", "vorbis-tools"
	case Flac:
		native, pkg = "flac", "flac"
	case Mp3:
		native, pkg = "lame", "lame"
	}

	return fmt.Sprintf(`No %s encoder is installed. Either %s or ffmpeg will work:

# Ubuntu/Debian
sudo apt install %s
# or
sudo apt install ffmpeg

# Arch Linux
sudo pacman -S %s ffmpeg

# macOS (Homebrew)
brew install %s ffmpeg`, format, native, pkg, pkg, pkg)
}
