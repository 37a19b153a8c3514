package synth

import (
	"context"
	"errors"
	"os/exec"
	"sync"

	"github.com/charmbracelet/log"
)

// synthesisAttempts is how many times a unit is tried on one engine
// before that engine is demoted for the remainder of the run.
const synthesisAttempts = 2

// Health holds per-engine tallies for one conversion run.
type Health struct {
	Engine    string
	Attempts  int64
	Successes int64
	Failures  int64
	Demoted   bool
}

// Selector owns the engine preference order for a run. Probe picks the
// first installed engine; Synthesize routes units to it, retrying
// transient failures and falling through to the next engine when one
// stops working. A demoted engine stays demoted until the run ends, so
// a broken synthesizer is paid for once, not once per unit.
type Selector struct {
	engines []Engine

	mu     sync.Mutex
	active int
	health []Health
}

// DefaultEngines returns the supported engines in preference order.
// The espeak-ng fork is the maintained one; legacy espeak takes the
// same arguments; festival is the fallback of last resort.
func DefaultEngines(params Params) []Engine {
	return []Engine{
		NewESpeakNG(params),
		NewESpeak(params),
		NewFestival(params),
	}
}

// NewSelector creates a selector over the given engines. Callers must
// Probe before Synthesize.
func NewSelector(engines ...Engine) *Selector {
	health := make([]Health, len(engines))
	for i, engine := range engines {
		health[i].Engine = engine.Name()
	}
	return &Selector{
		engines: engines,
		active:  -1,
		health:  health,
	}
}

// Probe walks the preference order and activates the first available
// engine. It returns the winning validation result, or ErrNoUsableEngine
// if nothing is installed.
func (s *Selector) Probe(ctx context.Context) (*ValidationResult, error) {
	for i, engine := range s.engines {
		result := engine.Validate(ctx)
		if result.Available {
			s.mu.Lock()
			s.active = i
			s.mu.Unlock()
			log.Debug("Synthesis engine selected", "engine", engine.Name(), "path", result.Details["binary_path"])
			return result, nil
		}
		log.Debug("Synthesis engine unavailable", "engine", engine.Name(), "error", result.Error)
	}
	return nil, ErrNoUsableEngine
}

// Active returns the name of the engine Synthesize will try first, or
// an empty string before a successful Probe.
func (s *Selector) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active < 0 || s.active >= len(s.engines) {
		return ""
	}
	return s.engines[s.active].Name()
}

// Synthesize converts one unit of text, reporting which engine produced
// the audio so callers can attribute the buffer correctly. Transient
// failures are retried on the same engine; an engine that exhausts its
// attempts is demoted and the unit moves to the next engine. When every
// engine has been demoted the run cannot continue.
func (s *Selector) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	for {
		idx, engine, err := s.current()
		if err != nil {
			return nil, "", err
		}

		var lastErr error
		for attempt := 1; attempt <= synthesisAttempts; attempt++ {
			s.tally(idx, func(h *Health) { h.Attempts++ })

			audio, err := engine.Synthesize(ctx, text)
			if err == nil {
				s.tally(idx, func(h *Health) { h.Successes++ })
				return audio, engine.Name(), nil
			}

			s.tally(idx, func(h *Health) { h.Failures++ })
			lastErr = err

			if ctx.Err() != nil {
				// The run is being torn down; this is not the engine's
				// fault, so no demotion.
				return nil, "", ctx.Err()
			}
			if errors.Is(err, exec.ErrNotFound) {
				// The binary vanished since probing; retrying cannot help.
				break
			}
			log.Debug("Synthesis attempt failed", "engine", engine.Name(), "attempt", attempt, "error", err)
		}

		s.demote(idx, lastErr)
	}
}

// Health returns a copy of the per-engine tallies.
func (s *Selector) Health() []Health {
	s.mu.Lock()
	defer s.mu.Unlock()

	health := make([]Health, len(s.health))
	copy(health, s.health)
	return health
}

// current returns the lowest non-demoted engine at or after the active
// index, advancing the active index past demoted entries.
func (s *Selector) current() (int, Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active < 0 {
		return 0, nil, ErrNoUsableEngine
	}
	for i := s.active; i < len(s.engines); i++ {
		if !s.health[i].Demoted {
			s.active = i
			return i, s.engines[i], nil
		}
	}
	return 0, nil, ErrEnginesExhausted
}

// demote marks an engine unusable for the remainder of the run. Racing
// workers may ask for the same demotion; only the first one logs.
func (s *Selector) demote(idx int, cause error) {
	s.mu.Lock()
	already := s.health[idx].Demoted
	s.health[idx].Demoted = true
	s.mu.Unlock()

	if !already {
		log.Warn("Synthesis engine demoted for this run", "engine", s.engines[idx].Name(), "error", cause)
	}
}

func (s *Selector) tally(idx int, update func(*Health)) {
	s.mu.Lock()
	update(&s.health[idx])
	s.mu.Unlock()
}
