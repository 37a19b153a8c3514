package pipeline

import (
	"context"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/panjf2000/ants/v2"

	"github.com/CasualC-er/ebupTTS/internal/cache"
	"github.com/CasualC-er/ebupTTS/internal/segment"
	"github.com/CasualC-er/ebupTTS/internal/synth"
)

// ProgressFunc receives one tick per resolved unit. completed is
// strictly increasing and reaches total exactly once on a successful
// run. The callback runs on whichever goroutine resolved the unit, so
// it should return quickly.
type ProgressFunc func(completed, total int)

// Synthesizer is the engine surface the scheduler drives. It is
// satisfied by *synth.Selector.
type Synthesizer interface {
	// Active names the engine the next synthesis will try first.
	Active() string

	// Synthesize converts one unit of text, naming the engine that
	// produced the audio.
	Synthesize(ctx context.Context, text string) ([]byte, string, error)

	// Health reports per-engine counters for the run.
	Health() []synth.Health
}

// Scheduler runs unit synthesis on a bounded worker pool,
// deduplicating by fingerprint so each distinct unit is synthesized at
// most once no matter how often its text repeats.
type Scheduler struct {
	synth Synthesizer
	store cache.Store
	pool  *ants.Pool
}

// NewScheduler creates a scheduler with the given worker count. A
// non-positive count uses one worker per CPU.
func NewScheduler(synthesizer Synthesizer, store cache.Store, workers int) (*Scheduler, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p interface{}) {
		log.Error("Synthesis worker panic", "panic", p)
	}))
	if err != nil {
		return nil, err
	}
	return &Scheduler{synth: synthesizer, store: store, pool: pool}, nil
}

// Close releases the worker pool.
func (s *Scheduler) Close() {
	s.pool.Release()
}

// missGroup collects every unit slot sharing one fingerprint, so a
// single synthesis fills them all.
type missGroup struct {
	fingerprint string
	text        string
	slots       []int
}

// Plan is the outcome of cache resolution: buffers already filled from
// the cache plus the deduplicated synthesis work that remains.
type Plan struct {
	buffers  [][]byte
	groups   []*missGroup
	params   synth.Params
	engine   string
	hits     int
	total    int
	progress ProgressFunc

	mu        sync.Mutex
	completed int
}

// Hits returns the number of units served from the cache.
func (p *Plan) Hits() int { return p.hits }

// Pending returns the number of synthesis tasks left after
// deduplication.
func (p *Plan) Pending() int { return len(p.groups) }

// Total returns the number of units in the run.
func (p *Plan) Total() int { return p.total }

// tick reports one more resolved unit. The callback runs under the
// plan lock so observers see a strictly increasing count.
func (p *Plan) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
	if p.progress != nil {
		p.progress(p.completed, p.total)
	}
}

// Resolve fingerprints every unit against the engine that will
// synthesize, fills cache hits and groups the misses by fingerprint.
// Hits tick progress immediately.
func (s *Scheduler) Resolve(units []segment.Unit, params synth.Params, progress ProgressFunc) *Plan {
	plan := &Plan{
		buffers:  make([][]byte, len(units)),
		params:   params,
		total:    len(units),
		progress: progress,
	}

	engine := s.synth.Active()
	plan.engine = engine
	index := make(map[string]*missGroup)
	for _, unit := range units {
		fp := cache.Fingerprint(unit.Text, engine, params.Voice, params.Speed, params.Pitch, params.SampleRate)
		if audio, ok := s.store.Get(fp); ok {
			plan.buffers[unit.Index] = audio
			plan.hits++
			plan.tick()
			continue
		}
		group, ok := index[fp]
		if !ok {
			group = &missGroup{fingerprint: fp, text: unit.Text}
			index[fp] = group
			plan.groups = append(plan.groups, group)
		}
		group.slots = append(group.slots, unit.Index)
	}

	log.Debug("Cache resolved",
		"units", plan.total,
		"hits", plan.hits,
		"to_synthesize", len(plan.groups))
	return plan
}

// Synthesize runs the plan's pending work on the worker pool and
// returns the ordered buffers. The first fatal failure cancels the run
// and the partial buffers are discarded.
func (s *Scheduler) Synthesize(ctx context.Context, plan *Plan) ([][]byte, error) {
	if len(plan.groups) == 0 {
		return plan.buffers, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		failMu   sync.Mutex
		firstErr *ConvertError
	)
	fail := func(err *ConvertError) {
		failMu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		failMu.Unlock()
	}

	for _, group := range plan.groups {
		group := group
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			s.synthesizeGroup(runCtx, plan, group, fail)
		})
		if err != nil {
			wg.Done()
			fail(newError(CodeCanceled, "worker pool closed", err))
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	// Workers skip silently once the run context is canceled, so a
	// canceled parent can leave holes without a recorded failure.
	if err := ctx.Err(); err != nil {
		return nil, newError(CodeCanceled, "synthesis canceled", err)
	}
	return plan.buffers, nil
}

// Run resolves the cache and synthesizes the remainder in one step.
func (s *Scheduler) Run(ctx context.Context, units []segment.Unit, params synth.Params, progress ProgressFunc) ([][]byte, error) {
	return s.Synthesize(ctx, s.Resolve(units, params, progress))
}

// synthesizeGroup produces audio for one fingerprint and fills every
// slot that shares it. Each slot is written exactly once, either here
// or during resolution.
func (s *Scheduler) synthesizeGroup(ctx context.Context, plan *Plan, group *missGroup, fail func(*ConvertError)) {
	if ctx.Err() != nil {
		return
	}

	audio, engine, err := s.synth.Synthesize(ctx, group.text)
	if err != nil {
		fail(classifySynthesis(err, group.slots[0]))
		return
	}

	// A demotion between resolution and synthesis means a different
	// engine produced this audio than the one fingerprinted. Store
	// under the producing engine so a warm cache never serves one
	// engine's audio under another's key.
	fp := group.fingerprint
	if engine != "" && engine != plan.engine {
		fp = cache.Fingerprint(group.text, engine, plan.params.Voice, plan.params.Speed, plan.params.Pitch, plan.params.SampleRate)
	}
	if err := s.store.Put(fp, audio); err != nil {
		log.Warn("Caching synthesized audio failed", "error", err)
	}

	for _, slot := range group.slots {
		plan.buffers[slot] = audio
		plan.tick()
	}
}
