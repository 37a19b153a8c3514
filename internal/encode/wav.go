package encode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// WAV handling errors
var (
	// ErrNotWAV indicates a buffer that does not start with a RIFF/WAVE header
	ErrNotWAV = errors.New("buffer is not a WAV stream")

	// ErrMalformedWAV indicates a truncated or inconsistent WAV stream
	ErrMalformedWAV = errors.New("malformed WAV stream")

	// ErrNoBuffers indicates concatenation was asked for zero buffers
	ErrNoBuffers = errors.New("no audio buffers to concatenate")
)

// wavFormat describes the PCM stream carried by one WAV buffer.
type wavFormat struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// parseWAV extracts the format and raw PCM data from a WAV buffer.
// Engines that stream to a pipe leave a placeholder in the data chunk
// size field, so a size of zero or one that overruns the buffer is
// taken to mean "everything that follows".
func parseWAV(buf []byte) (wavFormat, []byte, error) {
	if len(buf) < 12 || string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WAVE" {
		return wavFormat{}, nil, ErrNotWAV
	}

	var format wavFormat
	var data []byte
	seenFmt := false

	off := 12
	for off+8 <= len(buf) {
		id := string(buf[off : off+4])
		size := int(binary.LittleEndian.Uint32(buf[off+4 : off+8]))
		body := off + 8

		switch id {
		case "fmt ":
			if body+16 > len(buf) {
				return wavFormat{}, nil, fmt.Errorf("%w: truncated fmt chunk", ErrMalformedWAV)
			}
			codec := binary.LittleEndian.Uint16(buf[body:])
			if codec != 1 {
				return wavFormat{}, nil, fmt.Errorf("%w: non-PCM codec %d", ErrMalformedWAV, codec)
			}
			format.Channels = int(binary.LittleEndian.Uint16(buf[body+2:]))
			format.SampleRate = int(binary.LittleEndian.Uint32(buf[body+4:]))
			format.BitsPerSample = int(binary.LittleEndian.Uint16(buf[body+14:]))
			seenFmt = true
		case "data":
			if size <= 0 || body+size > len(buf) {
				size = len(buf) - body
			}
			data = buf[body : body+size]
		}

		if size%2 == 1 {
			size++ // chunks are word aligned
		}
		off = body + size
	}

	if !seenFmt {
		return wavFormat{}, nil, fmt.Errorf("%w: missing fmt chunk", ErrMalformedWAV)
	}
	if data == nil {
		return wavFormat{}, nil, fmt.Errorf("%w: missing data chunk", ErrMalformedWAV)
	}
	if format.Channels <= 0 || format.SampleRate <= 0 || format.BitsPerSample <= 0 {
		return wavFormat{}, nil, fmt.Errorf("%w: implausible fmt values %+v", ErrMalformedWAV, format)
	}
	return format, data, nil
}

// Concat merges ordered WAV buffers into a single WAV stream. Every
// buffer must carry the same PCM format; units simply abut, since the
// segmenter only splits at sentence boundaries.
func Concat(buffers [][]byte) ([]byte, error) {
	if len(buffers) == 0 {
		return nil, ErrNoBuffers
	}

	var format wavFormat
	var pcm bytes.Buffer
	for i, buf := range buffers {
		f, data, err := parseWAV(buf)
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w", i, err)
		}
		if i == 0 {
			format = f
		} else if f != format {
			return nil, fmt.Errorf("buffer %d: format %+v does not match %+v", i, f, format)
		}
		pcm.Write(data)
	}

	return writeWAV(format, pcm.Bytes()), nil
}

// Duration reports the playing time of one WAV buffer.
func Duration(buf []byte) (time.Duration, error) {
	format, data, err := parseWAV(buf)
	if err != nil {
		return 0, err
	}
	bytesPerSecond := format.SampleRate * format.Channels * format.BitsPerSample / 8
	if bytesPerSecond <= 0 {
		return 0, fmt.Errorf("%w: zero byte rate", ErrMalformedWAV)
	}
	return time.Duration(float64(len(data)) / float64(bytesPerSecond) * float64(time.Second)), nil
}

// writeWAV builds a WAV buffer around raw PCM data.
func writeWAV(format wavFormat, pcm []byte) []byte {
	bytesPerFrame := format.Channels * format.BitsPerSample / 8

	var buffer bytes.Buffer
	binary.Write(&buffer, binary.LittleEndian, []byte("RIFF"))
	binary.Write(&buffer, binary.LittleEndian, uint32(len(pcm)+36))
	binary.Write(&buffer, binary.LittleEndian, []byte("WAVE"))

	binary.Write(&buffer, binary.LittleEndian, []byte("fmt "))
	binary.Write(&buffer, binary.LittleEndian, uint32(16))
	binary.Write(&buffer, binary.LittleEndian, uint16(1))
	binary.Write(&buffer, binary.LittleEndian, uint16(format.Channels))
	binary.Write(&buffer, binary.LittleEndian, uint32(format.SampleRate))
	binary.Write(&buffer, binary.LittleEndian, uint32(format.SampleRate*bytesPerFrame))
	binary.Write(&buffer, binary.LittleEndian, uint16(bytesPerFrame))
	binary.Write(&buffer, binary.LittleEndian, uint16(format.BitsPerSample))

	binary.Write(&buffer, binary.LittleEndian, []byte("data"))
	binary.Write(&buffer, binary.LittleEndian, uint32(len(pcm)))
	binary.Write(&buffer, binary.LittleEndian, pcm)

	return buffer.Bytes()
}
