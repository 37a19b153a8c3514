// Package book converts a whole EPUB into per-chapter audio
// artifacts plus a playlist and metadata describing the result. Each
// chapter runs through its own pipeline controller over a shared
// scheduler, so the audio cache warms across chapters.
package book
