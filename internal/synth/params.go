package synth

import "errors"

// Default synthesis parameters.
const (
	DefaultVoice      = "en"
	DefaultSpeed      = 1.0
	DefaultPitch      = 1.0
	DefaultSampleRate = 22050
)

// Parameter bounds.
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
	MinPitch = 0.0
	MaxPitch = 2.0
)

// Parameter validation errors
var (
	// ErrInvalidSpeed indicates the speed multiplier is out of range
	ErrInvalidSpeed = errors.New("speed must be between 0.5 and 2.0")

	// ErrInvalidPitch indicates the pitch multiplier is out of range
	ErrInvalidPitch = errors.New("pitch must be between 0.0 and 2.0")

	// ErrInvalidSampleRate indicates a nonpositive sample rate
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
)

// Params holds the voice settings for one conversion run. Speed and
// pitch are unitless multipliers around the engine's natural voice;
// they map onto engine-specific argument scales.
type Params struct {
	Voice      string  // engine voice identifier
	Speed      float64 // speaking rate multiplier
	Pitch      float64 // pitch multiplier
	SampleRate int     // output sample rate in Hz
}

// DefaultParams returns the neutral voice settings.
func DefaultParams() Params {
	return Params{
		Voice:      DefaultVoice,
		Speed:      DefaultSpeed,
		Pitch:      DefaultPitch,
		SampleRate: DefaultSampleRate,
	}
}

// Validate checks that all settings are inside their working ranges.
func (p Params) Validate() error {
	if p.Speed < MinSpeed || p.Speed > MaxSpeed {
		return ErrInvalidSpeed
	}
	if p.Pitch < MinPitch || p.Pitch > MaxPitch {
		return ErrInvalidPitch
	}
	if p.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	return nil
}

// WordsPerMinute converts the speed multiplier to the espeak -s scale,
// where 1.0 is 175 words per minute.
func (p Params) WordsPerMinute() int {
	return int(p.Speed * 175.0)
}

// PitchLevel converts the pitch multiplier to the espeak -p scale,
// where 1.0 is the default level 50.
func (p Params) PitchLevel() int {
	return int(p.Pitch * 50.0)
}
