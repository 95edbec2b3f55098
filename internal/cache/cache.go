// Package cache provides the prompt-response cache for the model client.
// Entries are keyed by a deterministic fingerprint of the fully rendered
// request, so identical prompts hit across runs and processes.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the storage interface shared by the memory, disk and layered
// implementations. It is a best-effort optimization: concurrent identical
// requests may both miss and both dispatch.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Fingerprint derives the cache key for a rendered request. The hash
// covers every block that reaches the backend: system instructions,
// exemplars in order, and the item payload.
func Fingerprint(system string, exemplars []string, payload string) string {
	h := sha256.New()
	h.Write([]byte(system))
	h.Write([]byte{0})
	for _, ex := range exemplars {
		h.Write([]byte(ex))
		h.Write([]byte{0})
	}
	h.Write([]byte(payload))
	return "tahqiq:v1:" + hex.EncodeToString(h.Sum(nil))
}
