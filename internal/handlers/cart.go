package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
	"github.com/Shreyas-sv10/Shop2/internal/platform/httpx"
	"github.com/Shreyas-sv10/Shop2/internal/services"
	"github.com/Shreyas-sv10/Shop2/internal/view"
)

const maxCartBodySize = 4 * 1024

// CartHandlers exposes the cart bound to the caller's till session.
type CartHandlers struct {
	carts services.CartService
}

// NewCartHandlers constructs cart handlers.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Post("/items", h.addItem)
	r.Delete("/", h.clearCart)
}

type cartResponse struct {
	Cart    view.CartView `json:"cart"`
	Message string        `json:"message,omitempty"`
}

type addItemRequest struct {
	ProductID productIDField `json:"productId"`
	Quantity  amountField    `json:"quantity"`
	Unit      string         `json:"unit"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.prepare(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.Get(ctx, cartID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	setCartResponseHeaders(w)
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: view.Cart(cart)})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.prepare(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if !decodeBody(w, r, maxCartBodySize, &req) {
		return
	}
	if req.ProductID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_product_id", "productId must be a positive integer", http.StatusBadRequest))
		return
	}
	quantity, err := req.Quantity.Decimal()
	if err != nil {
		writeServiceError(ctx, w, services.ErrInvalidQuantity)
		return
	}

	cart, err := h.carts.AddOrMerge(ctx, services.AddToCartCommand{
		CartID:    cartID,
		ProductID: int(req.ProductID),
		Quantity:  quantity,
		Unit:      domain.Unit(strings.TrimSpace(req.Unit)),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	resp := cartResponse{Cart: view.Cart(cart)}
	if idx := cart.LineIndex(int(req.ProductID)); idx >= 0 {
		resp.Message = cart.Lines[idx].Name + " added to cart!"
	}
	setCartResponseHeaders(w)
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.prepare(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.Clear(ctx, cartID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	setCartResponseHeaders(w)
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: view.Cart(cart)})
}

func (h *CartHandlers) prepare(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	cartID, ok := tillCartID(ctx)
	if !ok {
		writeTillUnavailable(ctx, w)
		return "", false
	}
	return cartID, true
}

func setCartResponseHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}
