package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/CasualC-er/ebupTTS/internal/encode"
	"github.com/CasualC-er/ebupTTS/internal/segment"
	"github.com/CasualC-er/ebupTTS/internal/synth"
)

var (
	// ErrAlreadyStarted is returned when Convert is called on a
	// controller whose run has begun
	ErrAlreadyStarted = errors.New("conversion already started")

	// ErrNotSynthesized is returned when Encode is called before a
	// successful Convert
	ErrNotSynthesized = errors.New("no synthesized audio to encode")
)

// Controller advances one chapter conversion through its states. A
// controller is single-use: create one per chapter run. The scheduler
// and its cache are shared across controllers, which is how a warm
// cache carries between runs.
type Controller struct {
	splitter  *segment.Splitter
	scheduler *Scheduler
	encoder   *encode.Encoder
	params    synth.Params

	mu      sync.Mutex
	state   State
	err     *ConvertError
	summary Summary
	started time.Time
}

// Summary reports what one conversion run did.
type Summary struct {
	Units        int
	CacheHits    int
	Synthesized  int
	Deduplicated int
	Engine       string
	EngineHealth []synth.Health
	Artifact     string
	Duration     time.Duration
}

// New creates a controller for one conversion run.
func New(splitter *segment.Splitter, scheduler *Scheduler, encoder *encode.Encoder, params synth.Params) *Controller {
	return &Controller{
		splitter:  splitter,
		scheduler: scheduler,
		encoder:   encoder,
		params:    params,
		state:     StateIdle,
	}
}

// Convert takes cleaned chapter text through segmentation, cache
// resolution and synthesis, returning the ordered audio buffers. On
// failure the run moves to StateFailed and nothing is returned.
func (c *Controller) Convert(ctx context.Context, text string, progress ProgressFunc) ([][]byte, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	c.state = StateSegmenting
	c.started = time.Now()
	c.mu.Unlock()

	units := c.splitter.Split(text)
	if len(units) == 0 {
		return nil, c.fail(newError(CodeInvalidInput, "no synthesizable text", nil))
	}
	log.Debug("Segmented chapter", "units", len(units))

	c.setState(StateCacheResolving)
	plan := c.scheduler.Resolve(units, c.params, progress)

	c.setState(StateSynthesizing)
	buffers, err := c.scheduler.Synthesize(ctx, plan)
	if err != nil {
		var ce *ConvertError
		if !errors.As(err, &ce) {
			ce = classifySynthesis(err, -1)
		}
		return nil, c.fail(ce)
	}

	c.mu.Lock()
	c.summary.Units = plan.Total()
	c.summary.CacheHits = plan.Hits()
	c.summary.Synthesized = plan.Pending()
	c.summary.Deduplicated = plan.Total() - plan.Hits() - plan.Pending()
	c.summary.Engine = c.scheduler.synth.Active()
	c.summary.EngineHealth = c.scheduler.synth.Health()
	c.mu.Unlock()

	return buffers, nil
}

// Encode writes the run's buffers to the artifact path, completing the
// run.
func (c *Controller) Encode(ctx context.Context, buffers [][]byte, outPath string) error {
	c.mu.Lock()
	if c.state != StateSynthesizing {
		c.mu.Unlock()
		return ErrNotSynthesized
	}
	c.state = StateEncoding
	c.mu.Unlock()

	if err := c.encoder.Encode(ctx, buffers, outPath); err != nil {
		return c.fail(classifyEncode(err))
	}

	c.mu.Lock()
	c.state = StateDone
	c.summary.Artifact = outPath
	c.summary.Duration = time.Since(c.started)
	c.mu.Unlock()
	return nil
}

// State returns the run's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the classified failure once the run has entered
// StateFailed, or nil.
func (c *Controller) Err() *ConvertError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Summary returns the counters accumulated so far. Durations and the
// artifact path are filled in when the run completes.
func (c *Controller) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

func (c *Controller) setState(next State) {
	c.mu.Lock()
	c.state = next
	c.mu.Unlock()
}

// fail records the reason and moves the run to its terminal state.
func (c *Controller) fail(err *ConvertError) *ConvertError {
	log.Warn("Conversion failed", "code", err.Code, "error", err)
	c.mu.Lock()
	c.state = StateFailed
	c.err = err
	c.summary.Duration = time.Since(c.started)
	c.mu.Unlock()
	return err
}
