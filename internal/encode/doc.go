// Package encode turns ordered WAV buffers into the final audiobook
// artifact. Buffers are concatenated at the PCM level and handed to an
// external encoder; each target format prefers its native tool and
// falls back to ffmpeg when that tool is missing.
package encode
