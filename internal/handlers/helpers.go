package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
	"github.com/Shreyas-sv10/Shop2/internal/platform/httpx"
	"github.com/Shreyas-sv10/Shop2/internal/platform/observability"
	"github.com/Shreyas-sv10/Shop2/internal/platform/requestctx"
	"github.com/Shreyas-sv10/Shop2/internal/services"
)

const defaultBodyLimit = 16 * 1024

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultBodyLimit
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// decodeBody reads a bounded JSON body into dst and writes the error response on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	ctx := r.Context()
	body, err := readLimitedBody(r, limit)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be a JSON object", http.StatusBadRequest))
		return false
	}
	return true
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// amountField accepts a JSON number or string. Parsing is deferred so the handler can report
// the domain error that fits the field.
type amountField struct {
	raw     string
	present bool
}

func (a *amountField) UnmarshalJSON(data []byte) error {
	a.present = true
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		a.raw = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		a.raw = s
		return nil
	}
	a.raw = string(trimmed)
	return nil
}

func (a amountField) Decimal() (decimal.Decimal, error) {
	return domain.ParseAmount(a.raw)
}

// productIDField accepts an integer id sent as a JSON number or string.
type productIDField int

func (p *productIDField) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(strings.TrimSpace(string(data)), `"`)
	id, err := strconv.Atoi(strings.TrimSpace(trimmed))
	if err != nil {
		return errors.New("productId must be an integer")
	}
	*p = productIDField(id)
	return nil
}

func parseProductID(raw string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type serviceErrorCode struct {
	target error
	code   string
}

var serviceErrorCodes = []serviceErrorCode{
	{services.ErrInvalidQuantity, "invalid_quantity"},
	{services.ErrInvalidUnit, "invalid_unit"},
	{services.ErrInvalidPrice, "invalid_price"},
	{services.ErrMissingName, "missing_customer_name"},
	{services.ErrEmptyCart, "cart_empty"},
	{services.ErrNoPriceEdits, "no_price_edits"},
	{services.ErrAdminUnauthorized, "invalid_credentials"},
	{services.ErrAdminTokenInvalid, "invalid_token"},
	{services.ErrProductNotFound, "product_not_found"},
	{services.ErrBillNotFound, "bill_not_found"},
	{services.ErrCartNotFound, "cart_not_found"},
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	code := lookupErrorCode(err)
	switch {
	case errors.Is(err, services.ErrValidation):
		httpx.WriteError(ctx, w, httpx.NewError(codeOr(code, "invalid_request"), publicMessage(err, services.ErrValidation), http.StatusBadRequest))
	case errors.Is(err, services.ErrAuth):
		httpx.WriteError(ctx, w, httpx.NewError(codeOr(code, "unauthenticated"), publicMessage(err, services.ErrAuth), http.StatusUnauthorized))
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(codeOr(code, "not_found"), publicMessage(err, services.ErrNotFound), http.StatusNotFound))
	case errors.Is(err, services.ErrUnavailable):
		requestctx.Logger(ctx).Warn("service unavailable", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "service temporarily unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal", "internal server error", http.StatusInternalServerError))
	}
}

// errorMessage is the client facing text of a per-item failure inside a 200 response.
func errorMessage(err error) string {
	for _, category := range []error{services.ErrValidation, services.ErrAuth, services.ErrNotFound} {
		if errors.Is(err, category) {
			return publicMessage(err, category)
		}
	}
	return "service temporarily unavailable"
}

func errorCode(err error) string {
	return codeOr(lookupErrorCode(err), "internal")
}

func lookupErrorCode(err error) string {
	for _, candidate := range serviceErrorCodes {
		if errors.Is(err, candidate.target) {
			return candidate.code
		}
	}
	return ""
}

func publicMessage(err, category error) string {
	return strings.TrimPrefix(err.Error(), category.Error()+": ")
}

func codeOr(code, fallback string) string {
	if code == "" {
		return fallback
	}
	return code
}

// tillCartID returns the cart bound to the caller's till session.
func tillCartID(ctx context.Context) (string, bool) {
	till, ok := requestctx.Till(ctx)
	if !ok || strings.TrimSpace(till.CartID) == "" {
		return "", false
	}
	return till.CartID, true
}

func writeTillUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("till_session_unavailable", "till session is unavailable", http.StatusServiceUnavailable))
}

func clientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// observeRequestContext hands the enriched context back to the request logger.
func observeRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		observability.ObserveContext(r.Context())
		next.ServeHTTP(w, r)
	})
}
