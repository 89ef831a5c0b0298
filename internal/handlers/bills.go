package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
	"github.com/Shreyas-sv10/Shop2/internal/platform/httpx"
	"github.com/Shreyas-sv10/Shop2/internal/platform/requestctx"
	"github.com/Shreyas-sv10/Shop2/internal/receipt"
	"github.com/Shreyas-sv10/Shop2/internal/services"
	"github.com/Shreyas-sv10/Shop2/internal/view"
)

const maxBillBodySize = 4 * 1024

// BillHandlers issues bills from the till cart and prints them.
type BillHandlers struct {
	bills       services.BillService
	store       domain.Store
	idempotency func(http.Handler) http.Handler
}

// BillOption customises BillHandlers.
type BillOption func(*BillHandlers)

// WithBillIdempotency guards bill generation with the supplied idempotency middleware.
func WithBillIdempotency(mw func(http.Handler) http.Handler) BillOption {
	return func(h *BillHandlers) {
		h.idempotency = mw
	}
}

// NewBillHandlers constructs bill handlers printing under store's header.
func NewBillHandlers(bills services.BillService, store domain.Store, opts ...BillOption) *BillHandlers {
	h := &BillHandlers{bills: bills, store: store}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the /bills endpoints onto the provided router.
func (h *BillHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.idempotency != nil {
		r.With(h.idempotency).Post("/", h.generate)
	} else {
		r.Post("/", h.generate)
	}
	r.Get("/{billId}", h.getBill)
	r.Get("/{billId}/print", h.printBill)
}

type generateBillRequest struct {
	CustomerName string `json:"customerName"`
	Phone        string `json:"phone"`
}

type billResponse struct {
	Bill view.BillView `json:"bill"`
}

func (h *BillHandlers) generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bills == nil {
		httpx.WriteError(ctx, w, httpx.NewError("bill_service_unavailable", "bill service is unavailable", http.StatusServiceUnavailable))
		return
	}
	cartID, ok := tillCartID(ctx)
	if !ok {
		writeTillUnavailable(ctx, w)
		return
	}

	var req generateBillRequest
	if !decodeBody(w, r, maxBillBodySize, &req) {
		return
	}

	bill, err := h.bills.Generate(ctx, services.GenerateBillCommand{
		CartID:       cartID,
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+bill.ID)
	writeJSONResponse(w, http.StatusCreated, billResponse{Bill: view.Bill(bill, h.store)})
}

func (h *BillHandlers) getBill(w http.ResponseWriter, r *http.Request) {
	bill, ok := h.loadBill(w, r)
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, billResponse{Bill: view.Bill(bill, h.store)})
}

func (h *BillHandlers) printBill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	renderer, err := receipt.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_format", "format must be one of html, text or pdf", http.StatusBadRequest))
		return
	}
	bill, ok := h.loadBill(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, view.Bill(bill, h.store)); err != nil {
		requestctx.Logger(ctx).Error("bill render failed", zap.String("billId", bill.ID), zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("render_failed", "unable to render bill", http.StatusInternalServerError))
		return
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, isPDF := renderer.(receipt.PDFRenderer); isPDF {
		w.Header().Set("Content-Disposition", `inline; filename="bill-`+bill.ID+`.pdf"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *BillHandlers) loadBill(w http.ResponseWriter, r *http.Request) (services.BillRecord, bool) {
	ctx := r.Context()
	if h.bills == nil {
		httpx.WriteError(ctx, w, httpx.NewError("bill_service_unavailable", "bill service is unavailable", http.StatusServiceUnavailable))
		return services.BillRecord{}, false
	}
	cartID, ok := tillCartID(ctx)
	if !ok {
		writeTillUnavailable(ctx, w)
		return services.BillRecord{}, false
	}
	billID := strings.TrimSpace(chi.URLParam(r, "billId"))
	bill, err := h.bills.GetForCart(ctx, cartID, billID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError("bill_not_found", "bill not found", http.StatusNotFound))
			return services.BillRecord{}, false
		}
		writeServiceError(ctx, w, err)
		return services.BillRecord{}, false
	}
	return bill, true
}
