// Package cache stores synthesized audio buffers keyed by parameter
// fingerprints. It layers an in-memory LRU over a zstd-compressed disk
// store, so repeated text within a run is served from memory and
// repeated runs over the same book skip synthesis entirely.
package cache
