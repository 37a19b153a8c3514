package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// keyVersion is bumped whenever the canonical encoding changes, so stale
// persisted entries from older layouts can never be returned.
const keyVersion = "v1"

// Fingerprint derives the content address for one synthesis unit. The
// digest covers the unit text and every parameter that affects the audio
// a backend produces; identical inputs always map to the same key, and a
// change to any input maps to a different key. Unit identity and position
// are deliberately excluded, which is what lets repeated text share one
// cache entry.
func Fingerprint(text, engine, voice string, speed, pitch float64, sampleRate int) string {
	canonical := fmt.Sprintf("%s|%s|%.3f|%.3f|%d|%s", engine, voice, speed, pitch, sampleRate, text)
	sum := sha256.Sum256([]byte(canonical))
	return keyVersion + "_" + hex.EncodeToString(sum[:])
}
