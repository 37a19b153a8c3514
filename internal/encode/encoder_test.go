package encode

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewEncoder_QualityBounds(t *testing.T) {
	for _, q := range []float64{0.0, 0.5, 1.0} {
		if _, err := NewEncoder(Vorbis, q); err != nil {
			t.Errorf("Expected quality %v to be accepted, got %v", q, err)
		}
	}
	for _, q := range []float64{-0.1, 1.1, 2.0} {
		if _, err := NewEncoder(Vorbis, q); !errors.Is(err, ErrInvalidQuality) {
			t.Errorf("Expected ErrInvalidQuality for %v, got %v", q, err)
		}
	}
}

func TestEncoder_VorbisQualityScale(t *testing.T) {
	tests := []struct {
		quality float64
		want    int
	}{
		{0.0, 0},
		{0.5, 5},
		{1.0, 10},
	}

	for _, tt := range tests {
		enc, err := NewEncoder(Vorbis, tt.quality)
		if err != nil {
			t.Fatalf("NewEncoder failed: %v", err)
		}
		if got := enc.vorbisQuality(); got != tt.want {
			t.Errorf("Expected quality %v to map to %d, got %d", tt.quality, tt.want, got)
		}
	}
}

func TestEncoder_Mp3QualityScale(t *testing.T) {
	// The lame VBR scale is inverted: 0 is best, 9 is smallest.
	tests := []struct {
		quality float64
		want    int
	}{
		{0.0, 9},
		{0.5, 4},
		{1.0, 0},
	}

	for _, tt := range tests {
		enc, err := NewEncoder(Mp3, tt.quality)
		if err != nil {
			t.Fatalf("NewEncoder failed: %v", err)
		}
		if got := enc.mp3Quality(); got != tt.want {
			t.Errorf("Expected quality %v to map to %d, got %d", tt.quality, tt.want, got)
		}
	}
}

func TestEncoder_WavPassthrough(t *testing.T) {
	enc, err := NewEncoder(Wav, 0.5)
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}

	buffers := [][]byte{
		writeWAV(defaultFormat(), []byte{1, 2, 3, 4}),
		writeWAV(defaultFormat(), []byte{5, 6}),
	}
	outPath := filepath.Join(t.TempDir(), "out.wav")

	if err := enc.Encode(context.Background(), buffers, outPath); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	written, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("Reading artifact failed: %v", err)
	}
	_, data, err := parseWAV(written)
	if err != nil {
		t.Fatalf("Artifact is not valid WAV: %v", err)
	}
	want := []byte{1, 2, 3, 4, 5, 6}
	if !bytes.Equal(data, want) {
		t.Errorf("Expected artifact PCM %v, got %v", want, data)
	}
}

func TestEncoder_RejectsBadInput(t *testing.T) {
	enc, err := NewEncoder(Wav, 0.5)
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "out.wav")
	if err := enc.Encode(context.Background(), nil, outPath); !errors.Is(err, ErrNoBuffers) {
		t.Errorf("Expected ErrNoBuffers, got %v", err)
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Error("Expected no artifact after failed encode")
	}
}

func TestEncoder_WavNeedsNoBackend(t *testing.T) {
	enc, err := NewEncoder(Wav, 1.0)
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	if err := enc.Validate(); err != nil {
		t.Errorf("Expected wav output to validate without backends, got %v", err)
	}
}

func TestUnavailableError_NamesFormat(t *testing.T) {
	err := &UnavailableError{Format: Mp3, Guidance: "install lame"}

	var unavailable *UnavailableError
	if !errors.As(error(err), &unavailable) {
		t.Fatal("Expected errors.As to match *UnavailableError")
	}
	if got := err.Error(); got != "no mp3 encoder found" {
		t.Errorf("Unexpected message %q", got)
	}
}

func TestNativeEncoderBinaries(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{Vorbis, "oggenc"},
		{Flac, "flac"},
		{Mp3, "lame"},
	}

	for _, tt := range tests {
		if got := nativeEncoderBinary(tt.format); got != tt.want {
			t.Errorf("Expected %s binary %q, got %q", tt.format, tt.want, got)
		}
	}
}
