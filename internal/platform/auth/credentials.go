package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"
)

// ErrInvalidCredentials is returned for any username/password pair that does not match.
var ErrInvalidCredentials = errors.New("auth: invalid username or password")

// Principal is the authenticated party before a token is issued.
type Principal struct {
	Subject string
	Roles   []string
}

// Authenticator checks a username/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (Principal, error)
}

// StaticAuthenticator accepts exactly one credential pair.
type StaticAuthenticator struct {
	username [sha256.Size]byte
	password [sha256.Size]byte
	subject  string
	roles    []string
}

var _ Authenticator = (*StaticAuthenticator)(nil)

// NewStaticAuthenticator builds an authenticator for one admin account. Both fields are
// compared byte for byte.
func NewStaticAuthenticator(username, password string) (*StaticAuthenticator, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, errors.New("auth: static authenticator requires username and password")
	}
	return &StaticAuthenticator{
		username: sha256.Sum256([]byte(username)),
		password: sha256.Sum256([]byte(password)),
		subject:  username,
		roles:    []string{RoleAdmin},
	}, nil
}

// Authenticate compares both fields in constant time. Hashing first keeps the comparison
// independent of input length.
func (a *StaticAuthenticator) Authenticate(ctx context.Context, username, password string) (Principal, error) {
	if a == nil {
		return Principal{}, ErrInvalidCredentials
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return Principal{}, err
		}
	}
	gotUser := sha256.Sum256([]byte(username))
	gotPass := sha256.Sum256([]byte(password))
	userOK := subtle.ConstantTimeCompare(gotUser[:], a.username[:])
	passOK := subtle.ConstantTimeCompare(gotPass[:], a.password[:])
	if userOK&passOK != 1 {
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{Subject: a.subject, Roles: append([]string(nil), a.roles...)}, nil
}
