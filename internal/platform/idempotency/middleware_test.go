package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var fixedTime = time.Date(2025, time.April, 2, 11, 45, 0, 0, time.UTC)

type tillKey struct{}

func tillRequester(ctx context.Context) string {
	if id, ok := ctx.Value(tillKey{}).(string); ok {
		return id
	}
	return ""
}

func billRequest(key, till, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bills", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	if till != "" {
		req = req.WithContext(context.WithValue(req.Context(), tillKey{}, till))
	}
	return req
}

func TestMiddleware_MissingHeaderRejectedByDefault(t *testing.T) {
	middleware := Middleware(NewMemoryStore(), WithClock(func() time.Time { return fixedTime }))

	handlerCalled := false
	rr := httptest.NewRecorder()
	middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		handlerCalled = true
	})).ServeHTTP(rr, billRequest("", "", `{"customerName":"Asha"}`))

	if handlerCalled {
		t.Fatal("handler should not be invoked when header is missing")
	}
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_key_required")
}

func TestMiddleware_OptionalKeyPassesThrough(t *testing.T) {
	middleware := Middleware(NewMemoryStore(), WithOptionalKey())

	calls := 0
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), billRequest("", "", `{"customerName":"Asha"}`))
	}
	if calls != 2 {
		t.Fatalf("expected both unkeyed requests to reach the handler, got %d", calls)
	}
}

func TestMiddleware_ReplaysStoredBill(t *testing.T) {
	store := NewMemoryStore()
	calls := 0
	middleware := Middleware(store, WithClock(func() time.Time { return fixedTime }), WithRequester(tillRequester))

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"bill-1"}`))
	}))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, billRequest("abc-123", "till-1", `{"customerName":"Asha"}`))
	if rr1.Code != http.StatusCreated {
		t.Fatalf("unexpected first response status: %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, billRequest("abc-123", "till-1", `{"customerName":"Asha"}`))

	if calls != 1 {
		t.Fatalf("expected handler not to be called again, got %d calls", calls)
	}
	if rr2.Code != http.StatusCreated {
		t.Fatalf("expected replayed status 201, got %d", rr2.Code)
	}
	if rr2.Header().Get(replayHeaderName) != "true" {
		t.Fatalf("expected replay header to be present")
	}
	if got := rr2.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected content-type json, got %s", got)
	}
	if rr2.Body.String() != rr1.Body.String() {
		t.Fatalf("expected response body %s, got %s", rr1.Body.String(), rr2.Body.String())
	}
}

func TestMiddleware_KeysAreScopedPerTill(t *testing.T) {
	calls := 0
	handler := Middleware(NewMemoryStore(), WithRequester(tillRequester))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), billRequest("shared", "till-1", `{"customerName":"Asha"}`))
	handler.ServeHTTP(httptest.NewRecorder(), billRequest("shared", "till-2", `{"customerName":"Asha"}`))

	if calls != 2 {
		t.Fatalf("expected each till to get its own bill, got %d calls", calls)
	}
}

func TestMiddleware_PreservesOuterHeaders(t *testing.T) {
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	rr.Header().Add("Set-Cookie", "till_session=abc")
	handler.ServeHTTP(rr, billRequest("cookie-key", "", `{}`))

	if rr.Header().Get("Set-Cookie") != "till_session=abc" {
		t.Fatalf("expected cookie set by outer middleware to survive, got %v", rr.Header())
	}
}

func TestMiddleware_FailedAttemptReleasesKey(t *testing.T) {
	status := http.StatusBadRequest
	calls := 0
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, billRequest("retry-key", "", `{"customerName":""}`))
	if rr1.Code != http.StatusBadRequest {
		t.Fatalf("expected handler status to pass through, got %d", rr1.Code)
	}

	status = http.StatusCreated
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, billRequest("retry-key", "", `{"customerName":"Asha"}`))

	if calls != 2 || rr2.Code != http.StatusCreated {
		t.Fatalf("expected corrected retry to run, calls=%d status=%d", calls, rr2.Code)
	}
}

func TestMiddleware_ConflictingFingerprintReturnsConflict(t *testing.T) {
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), billRequest("same-key", "", `{"customerName":"Asha"}`))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, billRequest("same-key", "", `{"customerName":"Ravi"}`))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected conflict status, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_key_conflict")
}

func TestMiddleware_PendingClaimReturnsConflict(t *testing.T) {
	store := NewMemoryStore()
	handler := Middleware(store, WithClock(func() time.Time { return fixedTime }), WithRequester(tillRequester))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler should not be invoked while another request holds the key")
		}))

	req := billRequest("pending-key", "till-1", `{"customerName":"Asha"}`)
	body, err := bufferBody(req)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if _, err := store.Claim(req.Context(), scope("pending-key", "till-1"), fingerprint(req, body, "till-1"), fixedTime, time.Hour); err != nil {
		t.Fatalf("failed to seed claim: %v", err)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a held key, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_in_progress")
}

func TestMiddleware_PersistFailureReleasesKey(t *testing.T) {
	store := &stubStore{failSave: true}
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, billRequest("fail-key", "", `{"customerName":"Asha"}`))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 response, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_store_error")
	if !store.released {
		t.Fatalf("expected the key to be released on failure")
	}
}

func TestMemoryStore_SweepDropsExpiredOldestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if _, err := store.Claim(ctx, "old", "fp", fixedTime, time.Minute); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := store.Claim(ctx, "older", "fp", fixedTime, 30*time.Second); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.Complete(ctx, "fresh", Replay{Status: http.StatusCreated}, fixedTime, time.Hour); err != nil {
		t.Fatalf("complete: %v", err)
	}

	removed, err := store.Sweep(ctx, fixedTime.Add(10*time.Minute), 1)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 || store.Len() != 2 {
		t.Fatalf("expected the batch limit to apply, removed=%d left=%d", removed, store.Len())
	}
	claim, err := store.Claim(ctx, "old", "other", fixedTime.Add(10*time.Minute), time.Minute)
	if err != nil || claim.State != ClaimAcquired {
		t.Fatalf("expected an expired key to be claimable again, state=%v err=%v", claim.State, err)
	}

	if removed, _ := store.Sweep(ctx, fixedTime.Add(2*time.Hour), 0); removed != 2 || store.Len() != 0 {
		t.Fatalf("expected an unlimited sweep to clear the rest, removed=%d left=%d", removed, store.Len())
	}
}

func TestMemoryStore_ReplayDropsTransientHeaders(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if _, err := store.Claim(ctx, "k", "fp", fixedTime, time.Hour); err != nil {
		t.Fatalf("claim: %v", err)
	}
	header := http.Header{"Content-Type": {"application/json"}, "Content-Length": {"12"}, "Location": {"/api/v1/bills/b1"}}
	if err := store.Complete(ctx, "k", Replay{Status: http.StatusCreated, Header: header, Body: []byte(`{"id":"b1"}`)}, fixedTime, time.Hour); err != nil {
		t.Fatalf("complete: %v", err)
	}

	claim, err := store.Claim(ctx, "k", "fp", fixedTime.Add(time.Minute), time.Hour)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claim.State != ClaimReplay || claim.Replay.Status != http.StatusCreated {
		t.Fatalf("expected a replay, got %+v", claim)
	}
	if claim.Replay.Header.Get("Content-Length") != "" || claim.Replay.Header.Get("Location") != "/api/v1/bills/b1" {
		t.Fatalf("unexpected replay headers %v", claim.Replay.Header)
	}
	if _, err := store.Claim(ctx, "k", "other", fixedTime.Add(time.Minute), time.Hour); !errors.Is(err, ErrKeyReused) {
		t.Fatalf("expected ErrKeyReused, got %v", err)
	}
}

type stubStore struct {
	failSave bool
	released bool
}

func (s *stubStore) Claim(context.Context, string, string, time.Time, time.Duration) (Claim, error) {
	return Claim{State: ClaimAcquired}, nil
}

func (s *stubStore) Complete(context.Context, string, Replay, time.Time, time.Duration) error {
	if s.failSave {
		return errors.New("save failed")
	}
	return nil
}

func (s *stubStore) Abandon(context.Context, string) error {
	s.released = true
	return nil
}

func (s *stubStore) Sweep(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

func assertErrorResponse(t *testing.T, payload []byte, expected string) {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("failed to decode error payload: %v", err)
	}
	if body.Error != expected {
		t.Fatalf("expected error code %s, got %s", expected, body.Error)
	}
}
