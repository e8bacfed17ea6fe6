// Package dispatch delivers approved blueprints to the production system
// over a signed webhook and provides the tracing primitives shared with it:
// correlation IDs, idempotency keys, and HMAC payload signatures.
package dispatch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// CorrelationID builds the cross-system tracing ID for one dispatch:
// "SE-" + first 8 chars of the tenant and blueprint IDs (dashes removed) +
// the dispatch unix timestamp. Grep-friendly in both systems' logs.
func CorrelationID(tenantID, blueprintID string, now time.Time) string {
	return fmt.Sprintf("SE-%s-%s-%d", shortID(tenantID), shortID(blueprintID), now.Unix())
}

func shortID(id string) string {
	compact := strings.ReplaceAll(id, "-", "")
	if len(compact) > 8 {
		return compact[:8]
	}
	return compact
}

// IdempotencyKey derives the deduplication key for one approval: the hex
// SHA-256 of "{blueprint_id}:{tenant_id}:{approved_at_unix}". Re-approving
// the same blueprint at the same second yields the same key, so the
// production system can drop duplicate deliveries.
func IdempotencyKey(blueprintID, tenantID string, approvedAt time.Time) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%s:%d", blueprintID, tenantID, approvedAt.Unix()))
	return hex.EncodeToString(sum[:])
}

// Sign returns the hex HMAC-SHA256 of body under secret. The signature
// covers the exact bytes sent on the wire; any re-serialization between
// signing and sending invalidates it.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches body under secret, in constant
// time. Used on the production-callback path before any state mutation.
func Verify(body []byte, secret, signature string) bool {
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
