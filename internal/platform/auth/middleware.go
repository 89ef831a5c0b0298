package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

const defaultVerifyTimeout = 2 * time.Second

// Logger is the minimal printf logger used by the guard.
type Logger interface {
	Printf(format string, args ...any)
}

// MetricsRecorder records verification outcomes for observability.
type MetricsRecorder interface {
	RecordVerification(ctx context.Context, kind string, success bool, reason string, duration time.Duration)
}

// MetricsRecorderFunc adapts a function to MetricsRecorder.
type MetricsRecorderFunc func(context.Context, string, bool, string, time.Duration)

// RecordVerification implements MetricsRecorder.
func (f MetricsRecorderFunc) RecordVerification(ctx context.Context, kind string, success bool, reason string, duration time.Duration) {
	if f != nil {
		f(ctx, kind, success, reason, duration)
	}
}

// Guard wires bearer token verification into HTTP middleware.
type Guard struct {
	verifier TokenVerifier
	logger   Logger
	metrics  MetricsRecorder
	now      func() time.Time
	timeout  time.Duration
}

// GuardOption customises Guard behaviour.
type GuardOption func(*Guard)

// WithGuardLogger sets the logger used for verification failures.
func WithGuardLogger(logger Logger) GuardOption {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithGuardMetrics sets the metrics recorder.
func WithGuardMetrics(metrics MetricsRecorder) GuardOption {
	return func(g *Guard) {
		g.metrics = metrics
	}
}

// WithGuardClock injects a custom clock, primarily for tests.
func WithGuardClock(now func() time.Time) GuardOption {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGuard constructs a Guard around verifier.
func NewGuard(verifier TokenVerifier, opts ...GuardOption) *Guard {
	g := &Guard{
		verifier: verifier,
		now:      time.Now,
		timeout:  defaultVerifyTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// RequireAdmin is shorthand for NewGuard(verifier, opts...).RequireRoles(RoleAdmin).
func RequireAdmin(verifier TokenVerifier, opts ...GuardOption) func(http.Handler) http.Handler {
	return NewGuard(verifier, opts...).RequireRoles(RoleAdmin)
}

// RequireRoles verifies the Authorization bearer token and ensures one of the allowed roles.
func (g *Guard) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(allowedRoles))
	for _, role := range allowedRoles {
		if role = normaliseRole(role); role != "" {
			allowed = append(allowed, role)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := g.now()
			ctx := r.Context()

			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				g.record(ctx, false, "token_missing", start)
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization header missing or invalid")
				return
			}
			if g.verifier == nil {
				g.record(ctx, false, "verifier_unavailable", start)
				respondAuthError(w, http.StatusServiceUnavailable, "verification_unavailable", "authorization service unavailable")
				return
			}

			verifyCtx, cancel := context.WithTimeout(ctx, g.timeout)
			identity, err := g.verifier.Verify(verifyCtx, tokenStr)
			cancel()
			if err != nil {
				reason := "token_invalid"
				code, message := "invalid_token", "admin session is invalid"
				if errors.Is(err, ErrTokenExpired) {
					reason = "token_expired"
					code, message = "token_expired", "admin session expired"
				}
				if g.logger != nil {
					g.logger.Printf("auth: token verification failed (%s): %v", reason, err)
				}
				g.record(ctx, false, reason, start)
				respondAuthError(w, http.StatusUnauthorized, code, message)
				return
			}

			if len(allowed) > 0 && !identity.HasAnyRole(allowed...) {
				g.record(ctx, false, "insufficient_role", start)
				respondAuthError(w, http.StatusForbidden, "insufficient_role", "identity does not have required role")
				return
			}

			g.record(ctx, true, "ok", start)
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

func (g *Guard) record(ctx context.Context, success bool, reason string, start time.Time) {
	if g == nil || g.metrics == nil {
		return
	}
	g.metrics.RecordVerification(ctx, "bearer", success, reason, g.now().Sub(start))
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}

	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}

// BearerToken extracts the bearer token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	return extractBearerToken(header)
}

func respondAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   code,
		"message": message,
		"status":  status,
	})
}
