package book

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/CasualC-er/ebupTTS/internal/cache"
	"github.com/CasualC-er/ebupTTS/internal/encode"
	"github.com/CasualC-er/ebupTTS/internal/epub"
	"github.com/CasualC-er/ebupTTS/internal/pipeline"
	"github.com/CasualC-er/ebupTTS/internal/segment"
	"github.com/CasualC-er/ebupTTS/internal/synth"
	"github.com/CasualC-er/ebupTTS/internal/text"
)

// minChapterChars is the cleaned-text length below which a chapter is
// skipped. Shorter chapters are almost always front matter.
const minChapterChars = 50

// ProgressFunc receives synthesis progress for the chapter currently
// being converted. completed and total count synthesis units within
// that chapter.
type ProgressFunc func(chapter string, completed, total int)

// Options configures a whole-book conversion.
type Options struct {
	Input      string        // path to the EPUB file
	OutputDir  string        // directory for artifacts, playlist and metadata
	Format     encode.Format // output audio format
	Quality    float64       // encoder quality in [0,1]
	Params     synth.Params  // synthesis parameters shared by all chapters
	Workers    int           // synthesis worker count (0 = number of CPUs)
	ChunkSize  int           // maximum unit length in characters (0 = default)
	Aggressive bool          // expand abbreviations and repair hyphenation
}

// Summary aggregates the outcome of a whole-book conversion.
type Summary struct {
	BookTitle    string
	Chapters     int            // chapters converted to artifacts
	Skipped      int            // chapters dropped for having too little text
	Units        int            // synthesis units across all chapters
	CacheHits    int            // units served from cache
	Synthesized  int            // units sent to an engine
	Deduplicated int            // units that shared another unit's synthesis
	Engine       string         // engine active when the last chapter finished
	EngineHealth []synth.Health // per-engine state at the end of the run
	Artifacts    []string       // artifact paths in chapter order
	Playlist     string         // playlist path
	Metadata     string         // metadata path
	Duration     time.Duration  // total audio duration
	Elapsed      time.Duration  // wall-clock conversion time
	CacheStats   cache.Stats
}

// Converter drives one EPUB through segmentation, synthesis and
// encoding, one chapter at a time. The scheduler and cache are shared
// across chapters, so repeated text synthesizes once per book.
type Converter struct {
	opts      Options
	encoder   *encode.Encoder
	splitter  *segment.Splitter
	scheduler *pipeline.Scheduler
	store     cache.Store
}

// New validates opts and builds a Converter on the given synthesizer
// and cache store. Call Close when done to release the worker pool.
func New(opts Options, synthesizer pipeline.Synthesizer, store cache.Store) (*Converter, error) {
	encoder, err := encode.NewEncoder(opts.Format, opts.Quality)
	if err != nil {
		return nil, err
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	scheduler, err := pipeline.NewScheduler(synthesizer, store, opts.Workers)
	if err != nil {
		return nil, err
	}
	return &Converter{
		opts:      opts,
		encoder:   encoder,
		splitter:  segment.NewSplitter(opts.ChunkSize),
		scheduler: scheduler,
		store:     store,
	}, nil
}

// Close releases the synthesis worker pool.
func (c *Converter) Close() {
	c.scheduler.Close()
}

// Convert reads the EPUB and produces one audio artifact per chapter,
// plus a playlist and a metadata file, in the output directory. A
// chapter failure aborts the book; artifacts already written stay on
// disk so a rerun resumes from a warm cache.
func (c *Converter) Convert(ctx context.Context, progress ProgressFunc) (*Summary, error) {
	start := time.Now()

	bk, err := epub.Read(c.opts.Input)
	if err != nil {
		return nil, &pipeline.ConvertError{
			Code:    pipeline.CodeInvalidInput,
			Message: "reading epub failed",
			Unit:    -1,
			Cause:   err,
		}
	}
	title := bk.Title
	if title == "" {
		base := filepath.Base(c.opts.Input)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if err := os.MkdirAll(c.opts.OutputDir, 0o755); err != nil {
		return nil, &pipeline.ConvertError{
			Code:    pipeline.CodeEncodeFailure,
			Message: "creating output directory failed",
			Unit:    -1,
			Cause:   err,
		}
	}

	log.Info("Converting book",
		"title", title,
		"chapters", len(bk.Chapters),
		"format", c.opts.Format,
		"output", c.opts.OutputDir)

	sum := &Summary{BookTitle: title}
	var entries []chapterMeta
	var last pipeline.Summary
	for i, ch := range bk.Chapters {
		cleaned := text.Clean(ch.Text, c.opts.Aggressive)
		if len(cleaned) < minChapterChars {
			log.Debug("Skipping short chapter", "chapter", ch.Title, "chars", len(cleaned))
			sum.Skipped++
			continue
		}

		log.Info("Converting chapter",
			"chapter", fmt.Sprintf("%d/%d", i+1, len(bk.Chapters)),
			"title", ch.Title)
		artifact := filepath.Join(c.opts.OutputDir, artifactName(ch, c.encoder.Format()))
		cs, dur, err := c.convertChapter(ctx, ch, cleaned, artifact, progress)
		if err != nil {
			log.Error("Chapter failed", "chapter", ch.Title, "err", err)
			return nil, err
		}

		sum.Units += cs.Units
		sum.CacheHits += cs.CacheHits
		sum.Synthesized += cs.Synthesized
		sum.Deduplicated += cs.Deduplicated
		sum.Duration += dur
		sum.Artifacts = append(sum.Artifacts, artifact)
		last = cs
		entries = append(entries, chapterMeta{
			Title:           ch.Title,
			Order:           ch.Order,
			File:            filepath.Base(artifact),
			WordCount:       len(strings.Fields(cleaned)),
			Units:           cs.Units,
			DurationSeconds: dur.Seconds(),
		})
	}

	if len(sum.Artifacts) == 0 {
		return nil, &pipeline.ConvertError{
			Code:    pipeline.CodeInvalidInput,
			Message: "no chapters with synthesizable text",
			Unit:    -1,
		}
	}

	playlist := filepath.Join(c.opts.OutputDir, playlistName)
	if err := writePlaylist(playlist, sum.Artifacts); err != nil {
		return nil, &pipeline.ConvertError{
			Code:    pipeline.CodeEncodeFailure,
			Message: "writing playlist failed",
			Unit:    -1,
			Cause:   err,
		}
	}
	sum.Playlist = playlist

	metaPath := filepath.Join(c.opts.OutputDir, metadataName)
	if err := c.writeMetadata(metaPath, title, bk.Language, entries); err != nil {
		return nil, &pipeline.ConvertError{
			Code:    pipeline.CodeEncodeFailure,
			Message: "writing metadata failed",
			Unit:    -1,
			Cause:   err,
		}
	}
	sum.Metadata = metaPath

	sum.Chapters = len(sum.Artifacts)
	sum.Engine = last.Engine
	sum.EngineHealth = last.EngineHealth
	sum.Elapsed = time.Since(start)
	sum.CacheStats = c.store.Stats()

	log.Info("Book converted",
		"chapters", sum.Chapters,
		"skipped", sum.Skipped,
		"units", sum.Units,
		"audio", sum.Duration.Round(time.Second),
		"elapsed", sum.Elapsed.Round(time.Millisecond))
	return sum, nil
}

// convertChapter runs one chapter through a fresh controller and
// returns its summary and audio duration.
func (c *Converter) convertChapter(ctx context.Context, ch epub.Chapter, cleaned, artifact string, progress ProgressFunc) (pipeline.Summary, time.Duration, error) {
	ctrl := pipeline.New(c.splitter, c.scheduler, c.encoder, c.opts.Params)
	buffers, err := ctrl.Convert(ctx, cleaned, func(completed, total int) {
		if progress != nil {
			progress(ch.Title, completed, total)
		}
	})
	if err != nil {
		return pipeline.Summary{}, 0, err
	}
	if err := ctrl.Encode(ctx, buffers, artifact); err != nil {
		return pipeline.Summary{}, 0, err
	}
	return ctrl.Summary(), chapterDuration(buffers), nil
}

// chapterDuration sums the playing time of the chapter's buffers.
func chapterDuration(buffers [][]byte) time.Duration {
	var total time.Duration
	for i, buf := range buffers {
		d, err := encode.Duration(buf)
		if err != nil {
			log.Debug("Unreadable audio duration", "unit", i, "err", err)
			continue
		}
		total += d
	}
	return total
}
