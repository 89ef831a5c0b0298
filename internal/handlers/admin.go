package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
	"github.com/Shreyas-sv10/Shop2/internal/platform/auth"
	"github.com/Shreyas-sv10/Shop2/internal/platform/httpx"
	"github.com/Shreyas-sv10/Shop2/internal/platform/pagination"
	"github.com/Shreyas-sv10/Shop2/internal/services"
	"github.com/Shreyas-sv10/Shop2/internal/view"
)

const (
	maxAdminBodySize    = 32 * 1024
	defaultLoginPerMin  = 10
	loginRateLimitCode  = "too_many_login_attempts"
	adminUnavailableMsg = "admin service is unavailable"
)

var adminPaging = pagination.Options{DefaultPageSize: pagination.DefaultPageSize, MaxPageSize: pagination.DefaultMaxPageSize}

// AdminHandlers serves the admin login and the price and ledger screens.
type AdminHandlers struct {
	admin   services.AdminService
	catalog services.CatalogService
	bills   services.BillService
	guard   func(http.Handler) http.Handler
	limiter rateLimiter
	store   domain.Store
	clock   func() time.Time
}

// AdminOption customises AdminHandlers.
type AdminOption func(*AdminHandlers)

// WithAdminGuard sets the middleware protecting every admin route except login and session checks.
func WithAdminGuard(mw func(http.Handler) http.Handler) AdminOption {
	return func(h *AdminHandlers) {
		h.guard = mw
	}
}

// WithAdminLoginLimit caps login attempts per client IP per minute. Zero or less disables it.
func WithAdminLoginLimit(perMinute int) AdminOption {
	return func(h *AdminHandlers) {
		h.limiter = newFixedWindowLimiter(perMinute, time.Minute, h.now)
	}
}

// WithAdminStore sets the store printed on ledger bills. Its location drives ledger dates.
func WithAdminStore(store domain.Store) AdminOption {
	return func(h *AdminHandlers) {
		h.store = store
	}
}

// WithAdminClock overrides the clock, mainly for tests.
func WithAdminClock(clock func() time.Time) AdminOption {
	return func(h *AdminHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewAdminHandlers constructs the admin handlers.
func NewAdminHandlers(admin services.AdminService, catalog services.CatalogService, bills services.BillService, opts ...AdminOption) *AdminHandlers {
	h := &AdminHandlers{
		admin:   admin,
		catalog: catalog,
		bills:   bills,
		clock:   time.Now,
	}
	h.limiter = newFixedWindowLimiter(defaultLoginPerMin, time.Minute, h.now)
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *AdminHandlers) now() time.Time {
	return h.clock()
}

// Routes wires the /admin endpoints onto the provided router.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/session", h.login)
	r.Get("/session", h.session)

	r.Group(func(protected chi.Router) {
		if h.guard != nil {
			protected.Use(h.guard)
		}
		protected.Use(observeRequestContext)
		protected.Get("/products", h.listProducts)
		protected.Put("/products/{productId}/price", h.updatePrice)
		protected.Post("/products/prices", h.applyPriceEdits)
		protected.Get("/customers", h.listCustomers)
		protected.Get("/customers/{ledgerKey}/bills", h.listCustomerBills)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type adminSessionResponse struct {
	Valid     bool   `json:"valid"`
	Subject   string `json:"subject,omitempty"`
	Token     string `json:"token,omitempty"`
	TokenType string `json:"tokenType,omitempty"`
	IssuedAt  string `json:"issuedAt,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

func (h *AdminHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.admin == nil {
		httpx.WriteError(ctx, w, httpx.NewError("admin_service_unavailable", adminUnavailableMsg, http.StatusServiceUnavailable))
		return
	}
	if h.limiter != nil {
		if ok, retryAfter := h.limiter.Allow(clientIP(r)); !ok {
			httpx.WriteError(ctx, w, httpx.NewError(loginRateLimitCode, "too many login attempts, try again later", http.StatusTooManyRequests).WithRetryAfter(retryAfter))
			return
		}
	}

	var req loginRequest
	if !decodeBody(w, r, maxAdminBodySize, &req) {
		return
	}
	sess, err := h.admin.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSONResponse(w, http.StatusOK, adminSessionResponse{
		Valid:     true,
		Subject:   sess.Subject,
		Token:     sess.Token,
		TokenType: "Bearer",
		IssuedAt:  sess.IssuedAt.UTC().Format(time.RFC3339),
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// session reports whether the bearer token is a live admin session. A missing or bad token is
// reported as invalid rather than rejected.
func (h *AdminHandlers) session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.admin == nil {
		httpx.WriteError(ctx, w, httpx.NewError("admin_service_unavailable", adminUnavailableMsg, http.StatusServiceUnavailable))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeJSONResponse(w, http.StatusOK, adminSessionResponse{Valid: false})
		return
	}
	sess, err := h.admin.Verify(ctx, token)
	if err != nil {
		writeJSONResponse(w, http.StatusOK, adminSessionResponse{Valid: false})
		return
	}
	writeJSONResponse(w, http.StatusOK, adminSessionResponse{
		Valid:     true,
		Subject:   sess.Subject,
		IssuedAt:  sess.IssuedAt.UTC().Format(time.RFC3339),
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

type adminProductsResponse struct {
	Products []view.AdminPriceRow `json:"products"`
}

func (h *AdminHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	products, err := h.catalog.ListAll(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, adminProductsResponse{Products: view.AdminRows(products)})
}

type priceRequest struct {
	Price amountField `json:"price"`
}

type priceEditRequest struct {
	ProductID productIDField `json:"productId"`
	Price     amountField    `json:"price"`
}

type priceEditsRequest struct {
	Edits []priceEditRequest `json:"edits"`
}

type priceEditResponse struct {
	ProductID int                 `json:"productId"`
	OK        bool                `json:"ok"`
	Message   string              `json:"message"`
	Error     string              `json:"error,omitempty"`
	Product   *view.AdminPriceRow `json:"product,omitempty"`
}

type priceEditsResponse struct {
	Results []priceEditResponse `json:"results"`
	Applied int                 `json:"applied"`
	Failed  int                 `json:"failed"`
}

func (h *AdminHandlers) updatePrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.admin == nil {
		httpx.WriteError(ctx, w, httpx.NewError("admin_service_unavailable", adminUnavailableMsg, http.StatusServiceUnavailable))
		return
	}
	id, ok := parseProductID(chi.URLParam(r, "productId"))
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_product_id", "productId must be a positive integer", http.StatusBadRequest))
		return
	}
	var req priceRequest
	if !decodeBody(w, r, maxAdminBodySize, &req) {
		return
	}
	price, err := req.Price.Decimal()
	if err != nil {
		writeServiceError(ctx, w, services.ErrInvalidPrice)
		return
	}

	results, err := h.admin.ApplyPriceEdits(ctx, []services.PriceEdit{{ProductID: id, Price: price}})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if len(results) != 1 {
		httpx.WriteError(ctx, w, httpx.NewError("internal", "internal server error", http.StatusInternalServerError))
		return
	}
	if results[0].Err != nil {
		writeServiceError(ctx, w, results[0].Err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildPriceEditResponse(results[0]))
}

// applyPriceEdits applies a batch. Edits that fail to parse are reported alongside the service
// outcomes without blocking the rest.
func (h *AdminHandlers) applyPriceEdits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.admin == nil {
		httpx.WriteError(ctx, w, httpx.NewError("admin_service_unavailable", adminUnavailableMsg, http.StatusServiceUnavailable))
		return
	}
	var req priceEditsRequest
	if !decodeBody(w, r, maxAdminBodySize, &req) {
		return
	}
	if len(req.Edits) == 0 {
		writeServiceError(ctx, w, services.ErrNoPriceEdits)
		return
	}

	results := make([]services.PriceEditResult, len(req.Edits))
	valid := make([]services.PriceEdit, 0, len(req.Edits))
	positions := make([]int, 0, len(req.Edits))
	for i, edit := range req.Edits {
		results[i] = services.PriceEditResult{ProductID: int(edit.ProductID)}
		price, err := edit.Price.Decimal()
		if err != nil {
			results[i].Err = services.ErrInvalidPrice
			continue
		}
		valid = append(valid, services.PriceEdit{ProductID: int(edit.ProductID), Price: price})
		positions = append(positions, i)
	}

	if len(valid) > 0 {
		applied, err := h.admin.ApplyPriceEdits(ctx, valid)
		if err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		for i, result := range applied {
			if i < len(positions) {
				results[positions[i]] = result
			}
		}
	}

	resp := priceEditsResponse{Results: make([]priceEditResponse, 0, len(results))}
	for _, result := range results {
		item := buildPriceEditResponse(result)
		if item.OK {
			resp.Applied++
		} else {
			resp.Failed++
		}
		resp.Results = append(resp.Results, item)
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func buildPriceEditResponse(result services.PriceEditResult) priceEditResponse {
	item := priceEditResponse{ProductID: result.ProductID, OK: result.OK}
	if result.OK && result.Product != nil {
		row := view.AdminRows([]services.Product{*result.Product})[0]
		item.Product = &row
		item.Message = result.Product.Name + " price updated to " + view.Money(result.Product.UnitPrice) + "."
		return item
	}
	item.OK = false
	if result.Err != nil {
		item.Error = errorCode(result.Err)
		item.Message = errorMessage(result.Err)
	}
	return item
}

type ledgerPageResponse struct {
	Customers     []view.LedgerRow `json:"customers"`
	Total         int              `json:"total"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
}

type customerBillsResponse struct {
	LedgerKey     string          `json:"ledgerKey"`
	Bills         []view.BillView `json:"bills"`
	Total         int             `json:"total"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
}

func (h *AdminHandlers) listCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bills == nil {
		httpx.WriteError(ctx, w, httpx.NewError("bill_service_unavailable", "bill service is unavailable", http.StatusServiceUnavailable))
		return
	}
	params, ok := h.pageParams(w, r)
	if !ok {
		return
	}
	page, err := h.bills.ListLedger(ctx, services.Pagination{PageSize: params.PageSize, PageToken: params.PageToken})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, ledgerPageResponse{
		Customers:     view.LedgerRows(page.Items, h.store.Location),
		Total:         page.Total,
		NextPageToken: page.NextPageToken,
	})
}

func (h *AdminHandlers) listCustomerBills(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bills == nil {
		httpx.WriteError(ctx, w, httpx.NewError("bill_service_unavailable", "bill service is unavailable", http.StatusServiceUnavailable))
		return
	}
	params, ok := h.pageParams(w, r)
	if !ok {
		return
	}
	// Ledger keys may contain a slash (N/A), which clients send escaped.
	key, err := url.PathUnescape(chi.URLParam(r, "ledgerKey"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_ledger_key", "ledger key is not a valid path segment", http.StatusBadRequest))
		return
	}
	key = strings.TrimSpace(key)
	page, err := h.bills.ListCustomerBills(ctx, key, services.Pagination{PageSize: params.PageSize, PageToken: params.PageToken})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	bills := make([]view.BillView, 0, len(page.Items))
	for _, bill := range page.Items {
		bills = append(bills, view.Bill(bill, h.store))
	}
	writeJSONResponse(w, http.StatusOK, customerBillsResponse{
		LedgerKey:     key,
		Bills:         bills,
		Total:         page.Total,
		NextPageToken: page.NextPageToken,
	})
}

func (h *AdminHandlers) pageParams(w http.ResponseWriter, r *http.Request) (pagination.Params, bool) {
	params, err := pagination.FromRequest(r, adminPaging)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_pagination", err.Error(), http.StatusBadRequest))
		return pagination.Params{}, false
	}
	return params, true
}
