package pipeline

// State identifies where a conversion run is in its lifecycle. Runs
// advance strictly forward; Done and Failed are terminal.
type State int

const (
	// StateIdle indicates the run has not started
	StateIdle State = iota

	// StateSegmenting indicates chapter text is being split into units
	StateSegmenting

	// StateCacheResolving indicates unit fingerprints are being checked
	// against the audio cache
	StateCacheResolving

	// StateSynthesizing indicates uncached units are being synthesized
	StateSynthesizing

	// StateEncoding indicates ordered buffers are being encoded into
	// the final artifact
	StateEncoding

	// StateDone indicates the artifact was written
	StateDone

	// StateFailed indicates the run was aborted; Err holds the reason
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSegmenting:
		return "segmenting"
	case StateCacheResolving:
		return "resolving cache"
	case StateSynthesizing:
		return "synthesizing"
	case StateEncoding:
		return "encoding"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
