package synth

import (
	"context"
	"errors"
)

// Common synthesis errors
var (
	// ErrNoUsableEngine indicates no synthesis engine is installed
	ErrNoUsableEngine = errors.New("no usable synthesis backend found - install espeak-ng, espeak, or festival")

	// ErrEnginesExhausted indicates every engine has been demoted this run
	ErrEnginesExhausted = errors.New("all synthesis backends failed")

	// ErrEmptyText indicates synthesis was requested for blank input
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrNoAudioOutput indicates the engine exited cleanly but produced nothing
	ErrNoAudioOutput = errors.New("engine produced no audio output")
)

// Engine is one external speech synthesizer.
type Engine interface {
	// Name returns the binary name identifying the engine. It is part
	// of the cache fingerprint, so two engines must never share a name.
	Name() string

	// Synthesize converts text to a WAV buffer. Implementations must
	// bound their own runtime and respect ctx cancellation.
	Synthesize(ctx context.Context, text string) ([]byte, error)

	// Validate checks that the engine binary is present and executable.
	Validate(ctx context.Context) *ValidationResult
}

// ValidationResult contains the result of engine validation.
type ValidationResult struct {
	// Engine is the validated engine name
	Engine string

	// Available indicates the engine can be used
	Available bool

	// Error contains any validation error
	Error error

	// Guidance provides setup instructions if validation failed
	Guidance string

	// Details contains additional validation information
	Details map[string]string
}
