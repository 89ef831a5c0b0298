package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shreyas-sv10/Shop2/internal/platform/httpx"
	"github.com/Shreyas-sv10/Shop2/internal/services"
	"github.com/Shreyas-sv10/Shop2/internal/view"
)

// CatalogHandlers serves the product grid and search.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs catalog handlers.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes wires the /catalog endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{productId}", h.getProduct)
}

type productResponse struct {
	Product view.ProductCard `json:"product"`
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	query := r.URL.Query().Get("q")
	products, err := h.catalog.Search(ctx, query)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, view.Catalog(query, products))
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	id, ok := parseProductID(chi.URLParam(r, "productId"))
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_product_id", "productId must be a positive integer", http.StatusBadRequest))
		return
	}
	product, err := h.catalog.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{Product: view.ProductCardFor(product)})
}
