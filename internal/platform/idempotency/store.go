// Package idempotency replays the first successful response recorded under a client key, so a
// retried bill submission never issues a second bill.
package idempotency

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// DefaultTTL bounds how long a key is remembered.
const DefaultTTL = 24 * time.Hour

// ClaimState is the outcome of claiming a key.
type ClaimState int

const (
	// ClaimAcquired means the caller owns the key and must Complete or Abandon it.
	ClaimAcquired ClaimState = iota
	// ClaimReplay means a completed response is stored and should be written back.
	ClaimReplay
	// ClaimBusy means another request holds the key.
	ClaimBusy
)

// Claim carries the stored response when State is ClaimReplay.
type Claim struct {
	State  ClaimState
	Replay Replay
}

// Replay is a captured HTTP response.
type Replay struct {
	Status int
	Header http.Header
	Body   []byte
}

// Store remembers claimed keys and their completed responses.
type Store interface {
	Claim(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Claim, error)
	Complete(ctx context.Context, key string, replay Replay, now time.Time, ttl time.Duration) error
	Abandon(ctx context.Context, key string) error
	Sweep(ctx context.Context, now time.Time, limit int) (int, error)
}

// ErrKeyReused reports a key presented again with a different request.
var ErrKeyReused = errors.New("idempotency: key already used for a different request")

// hop-by-hop and length headers are recomputed on replay.
var transientHeaders = map[string]struct{}{
	"Connection":          {},
	"Content-Length":      {},
	"Date":                {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailers":            {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

func storableHeader(header http.Header) http.Header {
	out := make(http.Header, len(header))
	for name, values := range header {
		name = http.CanonicalHeaderKey(name)
		if _, skip := transientHeaders[name]; skip {
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	return out
}
