package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/oklog/ulid/v2"
)

const minTokenSecretLength = 32

var (
	// ErrTokenInvalid signals a malformed, forged or wrongly-issued token.
	ErrTokenInvalid = errors.New("auth: token invalid")
	// ErrTokenExpired signals a token past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
)

// TokenVerifier validates a bearer token and returns the identity it carries.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// IssuedToken is a signed token together with its validity window.
type IssuedToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenConfig configures HS256 token issuance.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Clock  func() time.Time
}

type tokenClaims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

var _ TokenVerifier = (*TokenIssuer)(nil)

// NewTokenIssuer validates cfg and returns an issuer.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.Secret) < minTokenSecretLength {
		return nil, fmt.Errorf("auth: token secret must be at least %d bytes", minTokenSecretLength)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("auth: token ttl must be positive")
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		return nil, errors.New("auth: token issuer is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	return &TokenIssuer{
		secret: secret,
		issuer: issuer,
		ttl:    cfg.TTL,
		now:    func() time.Time { return clock().UTC() },
		// Expiry is checked against the injected clock below, not the package-level time source.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Issue signs a token for principal.
func (i *TokenIssuer) Issue(principal Principal) (IssuedToken, error) {
	subject := strings.TrimSpace(principal.Subject)
	if subject == "" {
		return IssuedToken{}, errors.New("auth: principal subject is required")
	}
	issued := i.now().Truncate(time.Second)
	expires := issued.Add(i.ttl)
	claims := tokenClaims{
		Roles: append([]string(nil), principal.Roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    i.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return IssuedToken{Token: signed, IssuedAt: issued, ExpiresAt: expires}, nil
}

// Verify implements TokenVerifier.
func (i *TokenIssuer) Verify(_ context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}
	claims := &tokenClaims{}
	if _, err := i.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	now := i.now()
	if !claims.VerifyIssuer(i.issuer, true) {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrTokenInvalid)
	}
	if claims.ExpiresAt == nil || !claims.VerifyExpiresAt(now, true) {
		return nil, ErrTokenExpired
	}
	if !claims.VerifyNotBefore(now, false) {
		return nil, fmt.Errorf("%w: not yet valid", ErrTokenInvalid)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: subject missing", ErrTokenInvalid)
	}

	identity := &Identity{
		Subject:   claims.Subject,
		Roles:     append([]string(nil), claims.Roles...),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return identity, nil
}
