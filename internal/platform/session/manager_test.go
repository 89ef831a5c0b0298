package session

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Shreyas-sv10/Shop2/internal/platform/requestctx"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, clock *testClock) *Manager {
	t.Helper()
	seq := 0
	mgr, err := NewManager(Config{
		HashKey:     []byte("0123456789abcdef0123456789abcdef"),
		BlockKey:    []byte("abcdef0123456789"),
		IdleTimeout: 30 * time.Minute,
		Lifetime:    4 * time.Hour,
		Now:         clock.Now,
		NewID: func() string {
			seq++
			return "id-" + strconv.Itoa(seq)
		},
	})
	require.NoError(t, err)
	return mgr
}

func roundTrip(t *testing.T, mgr *Manager, cookies []*http.Cookie) (*Session, []*http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	sess := mgr.Load(req)
	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, sess))
	return sess, rec.Result().Cookies()
}

func TestNewManagerRequiresHashKey(t *testing.T) {
	_, err := NewManager(Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewManager(Config{HashKey: []byte("k"), BlockKey: []byte("short")})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSessionPersistsCartAcrossRequests(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)}
	mgr := newTestManager(t, clock)

	first, cookies := roundTrip(t, mgr, nil)
	require.True(t, first.Fresh())
	require.Equal(t, "id-1", first.ID())
	require.Equal(t, "id-2", first.CartID())
	require.Len(t, cookies, 1)
	require.Equal(t, defaultCookieName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)

	clock.now = clock.now.Add(10 * time.Minute)
	second, _ := roundTrip(t, mgr, cookies)
	require.False(t, second.Fresh())
	require.Equal(t, first.CartID(), second.CartID())
	require.Equal(t, clock.now, second.LastActive())
}

func TestTamperedCookieYieldsFreshSession(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)}
	mgr := newTestManager(t, clock)

	first, cookies := roundTrip(t, mgr, nil)
	cookies[0].Value = cookies[0].Value[:len(cookies[0].Value)-4] + "AAAA"

	second, _ := roundTrip(t, mgr, cookies)
	require.True(t, second.Fresh())
	require.NotEqual(t, first.CartID(), second.CartID())
}

func TestIdleSessionExpires(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)}
	mgr := newTestManager(t, clock)

	first, cookies := roundTrip(t, mgr, nil)
	clock.now = clock.now.Add(31 * time.Minute)

	second, _ := roundTrip(t, mgr, cookies)
	require.True(t, second.Fresh())
	require.NotEqual(t, first.ID(), second.ID())
}

func TestAbsoluteLifetimeExpires(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)}
	mgr := newTestManager(t, clock)

	first, cookies := roundTrip(t, mgr, nil)
	for i := 0; i < 9; i++ {
		clock.now = clock.now.Add(29 * time.Minute)
		var sess *Session
		sess, cookies = roundTrip(t, mgr, cookies)
		if clock.now.Sub(first.ExpiresAt()) <= 0 {
			require.Equal(t, first.ID(), sess.ID())
		} else {
			require.NotEqual(t, first.ID(), sess.ID())
		}
	}
}

func TestMiddlewareExposesTill(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)}
	mgr := newTestManager(t, clock)

	var till requestctx.TillInfo
	var ok bool
	handler := mgr.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		till, ok = requestctx.Till(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	require.True(t, ok)
	require.Equal(t, "id-1", till.SessionID)
	require.Equal(t, "id-2", till.CartID)
	require.NotEmpty(t, rec.Result().Cookies())
}
