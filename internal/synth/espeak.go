package synth

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ESpeak drives the espeak family of synthesizers. The espeak-ng fork
// and the legacy espeak binary take identical arguments, so one
// implementation covers both.
type ESpeak struct {
	binary string
	params Params
	runner *runner
}

// NewESpeakNG creates an engine backed by the espeak-ng binary.
func NewESpeakNG(params Params) *ESpeak {
	return &ESpeak{binary: "espeak-ng", params: params, runner: newRunner(0)}
}

// NewESpeak creates an engine backed by the legacy espeak binary.
func NewESpeak(params Params) *ESpeak {
	return &ESpeak{binary: "espeak", params: params, runner: newRunner(0)}
}

// Name returns the engine binary name.
func (e *ESpeak) Name() string { return e.binary }

// args builds the espeak invocation for one unit of text. Audio goes
// to stdout as a WAV stream.
func (e *ESpeak) args(text string) []string {
	return []string{
		"-v", e.params.Voice,
		"-s", strconv.Itoa(e.params.WordsPerMinute()),
		"-p", strconv.Itoa(e.params.PitchLevel()),
		"-a", "100",
		"--stdout",
		text,
	}
}

// Synthesize converts text to a WAV buffer.
func (e *ESpeak) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	audio, err := e.runner.run(ctx, "", e.binary, e.args(text)...)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%s: %w", e.binary, ErrNoAudioOutput)
	}
	return audio, nil
}

// Validate checks that the binary is present and executable.
func (e *ESpeak) Validate(ctx context.Context) *ValidationResult {
	result := &ValidationResult{
		Engine:  e.binary,
		Details: make(map[string]string),
	}

	path, err := exec.LookPath(e.binary)
	if err != nil {
		result.Error = fmt.Errorf("%s not found in PATH: %w", e.binary, err)
		result.Guidance = buildESpeakInstallGuidance()
		return result
	}
	result.Details["binary_path"] = path

	version, err := e.runner.run(ctx, "", e.binary, "--version")
	if err != nil {
		result.Error = fmt.Errorf("cannot execute %s: %w", e.binary, err)
		result.Guidance = fmt.Sprintf("%s was found but cannot be executed. Check permissions and dependencies.", e.binary)
		return result
	}
	result.Details["version"] = firstLine(version)

	result.Available = true
	return result
}
