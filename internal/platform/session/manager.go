package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/Shreyas-sv10/Shop2/internal/platform/requestctx"
)

const (
	defaultCookieName  = "till_session"
	defaultCookiePath  = "/"
	defaultLifetime    = 24 * time.Hour
	defaultIdleTimeout = 2 * time.Hour
)

// ErrInvalidConfig indicates the manager was initialised with missing or invalid options.
var ErrInvalidConfig = errors.New("session: invalid config")

// Data is the payload persisted in the till cookie.
type Data struct {
	ID         string    `json:"id"`
	CartID     string    `json:"cartId"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt,omitempty"`
}

// Session is the till session for the current request.
type Session struct {
	data  Data
	fresh bool
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.data.ID }

// CartID returns the cart bound to this till.
func (s *Session) CartID() string { return s.data.CartID }

// ExpiresAt returns the absolute expiry.
func (s *Session) ExpiresAt() time.Time { return s.data.ExpiresAt }

// LastActive returns the last access timestamp.
func (s *Session) LastActive() time.Time { return s.data.LastActive }

// Fresh reports whether the session was minted for this request.
func (s *Session) Fresh() bool { return s.fresh }

// Config controls cookie encoding and lifecycle limits.
type Config struct {
	CookieName     string
	HashKey        []byte
	BlockKey       []byte
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite

	IdleTimeout time.Duration
	Lifetime    time.Duration
	Now         func() time.Time
	NewID       func() string
}

// Manager reads and writes till sessions as signed cookies.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
	now   func() time.Time
	newID func() string
}

// NewManager constructs a Manager. A hash key is mandatory; the block key enables encryption.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.CookieName) == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = defaultCookiePath
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}

	var block []byte
	if len(cfg.BlockKey) > 0 {
		block = cfg.BlockKey
	}
	codec := securecookie.New(cfg.HashKey, block)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.Lifetime / time.Second))

	return &Manager{
		cfg:   cfg,
		codec: codec,
		now:   func() time.Time { return now().UTC() },
		newID: newID,
	}, nil
}

// Load returns the session carried by r. A missing, tampered or expired cookie yields a fresh
// session bound to a new cart.
func (m *Manager) Load(r *http.Request) *Session {
	now := m.now()
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.newSession(now)
	}
	var stored Data
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &stored); err != nil {
		return m.newSession(now)
	}
	if stored.ID == "" || stored.CartID == "" || m.expired(stored, now) {
		return m.newSession(now)
	}
	return &Session{data: stored}
}

// Save touches the session and writes it back as a cookie.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	now := m.now()
	if now.After(sess.data.LastActive) {
		sess.data.LastActive = now
	}
	encoded, err := m.codec.Encode(m.cfg.CookieName, sess.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	cookie := &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     m.cfg.CookiePath,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	}
	if !sess.data.ExpiresAt.IsZero() {
		cookie.Expires = sess.data.ExpiresAt
		if remaining := sess.data.ExpiresAt.Sub(now); remaining > 0 {
			cookie.MaxAge = int(remaining.Round(time.Second).Seconds())
		} else {
			cookie.MaxAge = -1
		}
	}
	http.SetCookie(w, cookie)
	return nil
}

// Middleware loads the till session, exposes it on the request context and refreshes the cookie.
// The cookie is written before the handler runs so it survives handlers that stream a body.
func (m *Manager) Middleware(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := m.Load(r)
			if err := m.Save(w, sess); err != nil {
				logger.Warn("session: unable to persist till session", zap.Error(err))
			}
			ctx := requestctx.WithTill(r.Context(), requestctx.TillInfo{
				SessionID: sess.ID(),
				CartID:    sess.CartID(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m *Manager) newSession(now time.Time) *Session {
	return &Session{
		data: Data{
			ID:         m.newID(),
			CartID:     m.newID(),
			CreatedAt:  now,
			LastActive: now,
			ExpiresAt:  now.Add(m.cfg.Lifetime),
		},
		fresh: true,
	}
}

func (m *Manager) expired(d Data, now time.Time) bool {
	if !d.ExpiresAt.IsZero() && now.After(d.ExpiresAt) {
		return true
	}
	last := d.LastActive
	if last.IsZero() {
		last = d.CreatedAt
	}
	return !last.IsZero() && now.Sub(last) > m.cfg.IdleTimeout
}
