package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey digests the parts of a cache or lock key into lowercase hex. Parts
// are NUL-separated so ("ab", "c") and ("a", "bc") never collide.
func HashKey(parts ...string) string {
	h := sha256.New()
	for i, part := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
