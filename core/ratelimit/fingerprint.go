package ratelimit

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// Fingerprint derives an opaque client id for unauthenticated callers from
// request attributes: user agent, locale, a screen-size hint and the
// server-observed remote IP. The hash keeps raw attributes out of rate-limit
// keys and audit logs.
//
// The browser attributes alone are weak and spoofable; the remote IP anchors
// the key to something the server observed itself.
func Fingerprint(userAgent, locale, screen, remoteIP string) string {
	parts := []string{
		strings.TrimSpace(userAgent),
		strings.TrimSpace(locale),
		strings.TrimSpace(screen),
		strings.TrimSpace(remoteIP),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}
