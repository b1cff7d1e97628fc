package insight

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// StableID derives a deterministic insight id from its kind and the facts
// that define it. Regenerating from the same evidence reproduces the same
// id, which keys the history merge and makes insertion idempotent.
func StableID(kind string, facts ...string) string {
	h := sha1.New()
	h.Write([]byte(kind))
	for _, f := range facts {
		h.Write([]byte{'|'})
		h.Write([]byte(strings.ToLower(strings.TrimSpace(f))))
	}
	return hex.EncodeToString(h.Sum(nil))
}
