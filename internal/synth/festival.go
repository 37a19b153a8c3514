package synth

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Festival drives the festival synthesizer. Festival has no speed or
// pitch arguments in pipe mode, so it always speaks at its configured
// voice defaults; it serves as the last-resort fallback.
type Festival struct {
	runner *runner
}

// NewFestival creates an engine backed by the festival binary.
func NewFestival(Params) *Festival {
	return &Festival{runner: newRunner(0)}
}

// Name returns the engine binary name.
func (f *Festival) Name() string { return "festival" }

// Synthesize converts text to audio. Text goes to festival on stdin in
// pipe mode and the audio stream is captured from stdout.
func (f *Festival) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	audio, err := f.runner.run(ctx, text, "festival", "--tts", "--pipe")
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("festival: %w", ErrNoAudioOutput)
	}
	return audio, nil
}

// Validate checks that the binary is present and executable.
func (f *Festival) Validate(ctx context.Context) *ValidationResult {
	result := &ValidationResult{
		Engine:  "festival",
		Details: make(map[string]string),
	}

	path, err := exec.LookPath("festival")
	if err != nil {
		result.Error = fmt.Errorf("festival not found in PATH: %w", err)
		result.Guidance = buildFestivalInstallGuidance()
		return result
	}
	result.Details["binary_path"] = path

	version, err := f.runner.run(ctx, "", "festival", "--version")
	if err != nil {
		result.Error = fmt.Errorf("cannot execute festival: %w", err)
		result.Guidance = "festival was found but cannot be executed. Check permissions and dependencies."
		return result
	}
	result.Details["version"] = firstLine(version)

	result.Available = true
	return result
}
