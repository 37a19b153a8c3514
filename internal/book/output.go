package book

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/CasualC-er/ebupTTS/internal/encode"
	"github.com/CasualC-er/ebupTTS/internal/epub"
)

const (
	playlistName = "audiobook.m3u"
	metadataName = "metadata.json"
)

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// sanitizeFilename replaces characters that are unsafe in filenames on
// common filesystems.
func sanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// artifactName builds the chapter's artifact filename. The numeric
// prefix is the spine position, so files sort in reading order even
// when skipped chapters leave gaps.
func artifactName(ch epub.Chapter, format encode.Format) string {
	return fmt.Sprintf("%03d_%s%s", ch.Order, sanitizeFilename(ch.Title), format.Ext())
}

// writePlaylist writes an m3u playlist listing the artifacts in
// chapter order. Artifacts live next to the playlist, so entries are
// bare filenames.
func writePlaylist(path string, artifacts []string) error {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, artifact := range artifacts {
		b.WriteString(filepath.Base(artifact))
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

type chapterMeta struct {
	Title           string  `json:"title"`
	Order           int     `json:"order"`
	File            string  `json:"file"`
	WordCount       int     `json:"word_count"`
	Units           int     `json:"units"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type bookMeta struct {
	Title      string        `json:"title"`
	Language   string        `json:"language,omitempty"`
	Format     string        `json:"format"`
	Quality    float64       `json:"quality"`
	Voice      string        `json:"voice"`
	Speed      float64       `json:"speed"`
	Pitch      float64       `json:"pitch"`
	SampleRate int           `json:"sample_rate"`
	Chapters   []chapterMeta `json:"chapters"`
}

// writeMetadata records the book, the generation parameters and the
// per-chapter results as JSON next to the artifacts.
func (c *Converter) writeMetadata(path, title, language string, entries []chapterMeta) error {
	meta := bookMeta{
		Title:      title,
		Language:   language,
		Format:     c.opts.Format.String(),
		Quality:    c.opts.Quality,
		Voice:      c.opts.Params.Voice,
		Speed:      c.opts.Params.Speed,
		Pitch:      c.opts.Params.Pitch,
		SampleRate: c.opts.Params.SampleRate,
		Chapters:   entries,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
