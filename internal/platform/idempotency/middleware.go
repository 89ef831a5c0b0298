package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHeaderName = "Idempotency-Key"
	replayHeaderName  = "X-Idempotent-Replay"
	anonymousCaller   = "anonymous"
)

// Logger receives store failures that cannot be reported to the client.
type Logger interface {
	Printf(format string, args ...any)
}

// RequesterFunc names the caller a key is scoped to. Two callers may reuse the same key.
type RequesterFunc func(context.Context) string

type guard struct {
	store       Store
	header      string
	ttl         time.Duration
	methods     map[string]bool
	now         func() time.Time
	logger      Logger
	requester   RequesterFunc
	optionalKey bool
}

// MiddlewareOption customises the middleware.
type MiddlewareOption func(*guard)

// WithHeader names the request header carrying the key.
func WithHeader(name string) MiddlewareOption {
	return func(g *guard) {
		if name = strings.TrimSpace(name); name != "" {
			g.header = name
		}
	}
}

// WithTTL sets how long keys are remembered.
func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(g *guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithMethods limits guarding to the listed methods. The default is POST, PUT, PATCH and DELETE.
func WithMethods(methods ...string) MiddlewareOption {
	return func(g *guard) {
		set := make(map[string]bool, len(methods))
		for _, m := range methods {
			if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
				set[m] = true
			}
		}
		if len(set) > 0 {
			g.methods = set
		}
	}
}

// WithLogger reports store failures.
func WithLogger(logger Logger) MiddlewareOption {
	return func(g *guard) {
		g.logger = logger
	}
}

// WithRequester sets how the caller is identified for key scoping and fingerprints.
func WithRequester(fn RequesterFunc) MiddlewareOption {
	return func(g *guard) {
		if fn != nil {
			g.requester = fn
		}
	}
}

// WithOptionalKey lets requests without the header through unguarded.
func WithOptionalKey() MiddlewareOption {
	return func(g *guard) {
		g.optionalKey = true
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) MiddlewareOption {
	return func(g *guard) {
		if clock != nil {
			g.now = clock
		}
	}
}

// Middleware replays the stored response for a repeated key and records the first 2xx
// response for a new one. A non-2xx outcome releases the key so a corrected request can reuse it.
func Middleware(store Store, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	g := &guard{
		store:  store,
		header: defaultHeaderName,
		ttl:    DefaultTTL,
		methods: map[string]bool{
			http.MethodPost:   true,
			http.MethodPut:    true,
			http.MethodPatch:  true,
			http.MethodDelete: true,
		},
		now:       time.Now,
		requester: func(context.Context) string { return anonymousCaller },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(next, w, r)
		})
	}
}

func (g *guard) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	if !g.methods[r.Method] {
		next.ServeHTTP(w, r)
		return
	}
	key := strings.TrimSpace(r.Header.Get(g.header))
	if key == "" {
		if g.optionalKey {
			next.ServeHTTP(w, r)
			return
		}
		respondError(w, http.StatusBadRequest, "idempotency_key_required", "missing idempotency key header")
		return
	}

	body, err := bufferBody(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "idempotency_read_body_failed", "unable to read request body")
		return
	}
	caller := g.caller(r.Context())
	scoped := scope(key, caller)
	ctx := r.Context()

	claim, err := g.store.Claim(ctx, scoped, fingerprint(r, body, caller), g.now().UTC(), g.ttl)
	switch {
	case errors.Is(err, ErrKeyReused):
		respondError(w, http.StatusConflict, "idempotency_key_conflict", "idempotency key already used for a different request")
		return
	case err != nil:
		g.logf("idempotency: claim %s: %v", key, err)
		respondError(w, http.StatusInternalServerError, "idempotency_store_error", "unable to process idempotency key")
		return
	}

	switch claim.State {
	case ClaimReplay:
		writeReplay(w, claim.Replay)
		return
	case ClaimBusy:
		respondError(w, http.StatusConflict, "idempotency_in_progress", "another request is processing this idempotency key")
		return
	}

	rec := &capture{header: make(http.Header)}
	next.ServeHTTP(rec, r)

	if rec.status() < 200 || rec.status() >= 300 {
		if err := g.store.Abandon(ctx, scoped); err != nil {
			g.logf("idempotency: release %s: %v", key, err)
		}
		rec.flush(w)
		return
	}

	replay := Replay{Status: rec.status(), Header: rec.header, Body: rec.body.Bytes()}
	if err := g.store.Complete(ctx, scoped, replay, g.now().UTC(), g.ttl); err != nil {
		g.logf("idempotency: persist %s for %s: %v", key, caller, err)
		if err := g.store.Abandon(ctx, scoped); err != nil {
			g.logf("idempotency: release %s after failed persist: %v", key, err)
		}
		respondError(w, http.StatusInternalServerError, "idempotency_store_error", "unable to persist idempotency state")
		return
	}
	rec.flush(w)
}

func (g *guard) caller(ctx context.Context) string {
	if id := strings.TrimSpace(g.requester(ctx)); id != "" {
		return id
	}
	return anonymousCaller
}

func (g *guard) logf(format string, args ...any) {
	if g.logger != nil {
		g.logger.Printf(format, args...)
	}
}

func scope(key, caller string) string {
	return caller + "|" + key
}

// fingerprint binds a key to the request it was first used with.
func fingerprint(r *http.Request, body []byte, caller string) string {
	h := sha256.New()
	for _, part := range []string{r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("Content-Type"), caller} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func writeReplay(w http.ResponseWriter, replay Replay) {
	for name, values := range replay.Header {
		w.Header()[name] = append([]string(nil), values...)
	}
	w.Header().Set(replayHeaderName, "true")
	status := replay.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(replay.Body)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}

// capture buffers a handler's response until the outcome is known.
type capture struct {
	header http.Header
	code   int
	body   bytes.Buffer
}

func (c *capture) Header() http.Header { return c.header }

func (c *capture) WriteHeader(status int) {
	if c.code == 0 {
		c.code = status
	}
}

func (c *capture) Write(p []byte) (int, error) {
	if c.code == 0 {
		c.code = http.StatusOK
	}
	return c.body.Write(p)
}

func (c *capture) status() int {
	if c.code == 0 {
		return http.StatusOK
	}
	return c.code
}

// flush merges captured headers over those already set by outer middleware, such as the till
// cookie, then writes status and body.
func (c *capture) flush(w http.ResponseWriter) {
	dst := w.Header()
	for name, values := range c.header {
		dst[name] = append([]string(nil), values...)
	}
	w.WriteHeader(c.status())
	_, _ = w.Write(c.body.Bytes())
}
