// Package idempotency remembers which provider object answered a request so a
// retried request reuses it instead of creating a duplicate.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	// PutIfAbsent stores value for ttl unless key is already held. It returns
	// the value held under key and whether this call stored it.
	PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

// Key derives a stable key from the request parts. Order matters.
func Key(scope string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return scope + ":" + hex.EncodeToString(sum[:16])
}
