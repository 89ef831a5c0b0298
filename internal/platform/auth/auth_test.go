package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestStaticAuthenticator(t *testing.T) {
	authn, err := NewStaticAuthenticator("admin", "pass123")
	if err != nil {
		t.Fatalf("NewStaticAuthenticator: %v", err)
	}

	principal, err := authn.Authenticate(context.Background(), "admin", "pass123")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if principal.Subject != "admin" || len(principal.Roles) != 1 || principal.Roles[0] != RoleAdmin {
		t.Fatalf("unexpected principal %+v", principal)
	}

	for _, tc := range []struct{ user, pass string }{
		{"admin", "wrong"},
		{"root", "pass123"},
		{"", ""},
		{"admin", "pass123 "},
		{" admin", "pass123"},
		{"admin ", "pass123"},
		{"\tadmin\n", "pass123"},
		{"Admin", "pass123"},
	} {
		if _, err := authn.Authenticate(context.Background(), tc.user, tc.pass); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%q/%q: expected ErrInvalidCredentials, got %v", tc.user, tc.pass, err)
		}
	}

	if _, err := NewStaticAuthenticator(" ", "x"); err == nil {
		t.Fatal("expected error for blank username")
	}
}

func newTestIssuer(t *testing.T, now *time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{
		Secret: testSecret,
		Issuer: "till",
		TTL:    time.Hour,
		Clock:  func() time.Time { return *now },
	})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return issuer
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, &now)

	issued, err := issuer.Issue(Principal{Subject: "admin", Roles: []string{RoleAdmin}})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !issued.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", issued.ExpiresAt)
	}

	identity, err := issuer.Verify(context.Background(), issued.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.Subject != "admin" || !identity.HasRole(RoleAdmin) {
		t.Fatalf("unexpected identity %+v", identity)
	}

	now = now.Add(2 * time.Hour)
	if _, err := issuer.Verify(context.Background(), issued.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenIssuerRejectsForeignTokens(t *testing.T) {
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, &now)

	other, err := NewTokenIssuer(TokenConfig{Secret: []byte(strings.Repeat("z", 32)), Issuer: "till", TTL: time.Hour, Clock: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	forged, err := other.Issue(Principal{Subject: "admin", Roles: []string{RoleAdmin}})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuer.Verify(context.Background(), forged.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong key, got %v", err)
	}

	wrongIssuer, err := NewTokenIssuer(TokenConfig{Secret: testSecret, Issuer: "elsewhere", TTL: time.Hour, Clock: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, _ := wrongIssuer.Issue(Principal{Subject: "admin"})
	if _, err := issuer.Verify(context.Background(), token.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for issuer mismatch, got %v", err)
	}

	if _, err := issuer.Verify(context.Background(), "not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
	if _, err := NewTokenIssuer(TokenConfig{Secret: []byte("short"), Issuer: "till", TTL: time.Hour}); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
}

type recordedVerification struct {
	success bool
	reason  string
}

func TestRequireAdmin(t *testing.T) {
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, &now)
	admin, _ := issuer.Issue(Principal{Subject: "admin", Roles: []string{RoleAdmin}})
	viewer, _ := issuer.Issue(Principal{Subject: "till-1", Roles: []string{"viewer"}})

	var recorded []recordedVerification
	metrics := MetricsRecorderFunc(func(_ context.Context, kind string, success bool, reason string, _ time.Duration) {
		if kind != "bearer" {
			t.Fatalf("unexpected kind %q", kind)
		}
		recorded = append(recorded, recordedVerification{success, reason})
	})

	handler := RequireAdmin(issuer, WithGuardMetrics(metrics))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || identity.Subject != "admin" {
			t.Fatalf("expected admin identity in context, got %+v", identity)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"valid", "Bearer " + admin.Token, http.StatusNoContent, ""},
		{"missing", "", http.StatusUnauthorized, "unauthenticated"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "unauthenticated"},
		{"garbage", "Bearer nope", http.StatusUnauthorized, "invalid_token"},
		{"wrong role", "Bearer " + viewer.Token, http.StatusForbidden, "insufficient_role"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/products", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rec.Code)
			}
			if tc.code == "" {
				return
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error"] != tc.code {
				t.Fatalf("expected error %q, got %v", tc.code, body["error"])
			}
		})
	}

	if len(recorded) != len(cases) || !recorded[0].success || recorded[1].reason != "token_missing" {
		t.Fatalf("unexpected metrics %+v", recorded)
	}
}

func TestBearerToken(t *testing.T) {
	if token, ok := BearerToken("bearer  abc "); !ok || token != "abc" {
		t.Fatalf("expected abc, got %q %v", token, ok)
	}
	if _, ok := BearerToken("Bearer"); ok {
		t.Fatal("expected missing token to fail")
	}
}
