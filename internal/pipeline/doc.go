// Package pipeline drives chapter text through segmentation, cache
// resolution, parallel synthesis and encoding. The controller owns the
// run state machine; the scheduler owns the worker pool and the
// per-fingerprint deduplication that keeps identical units from being
// synthesized twice.
package pipeline
