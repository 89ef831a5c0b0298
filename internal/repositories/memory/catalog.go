package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
	"github.com/Shreyas-sv10/Shop2/internal/repositories"
)

// CatalogRepository keeps products in id order behind a read/write lock.
type CatalogRepository struct {
	mu       sync.RWMutex
	products []domain.Product
	index    map[int]int
	closed   bool
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

// NewCatalogRepository seeds a catalog. Product ids must be unique.
func NewCatalogRepository(products []domain.Product) (*CatalogRepository, error) {
	sorted := make([]domain.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	index := make(map[int]int, len(sorted))
	for i, product := range sorted {
		if _, dup := index[product.ID]; dup {
			return nil, errors.New("catalog repository: duplicate product id")
		}
		index[product.ID] = i
	}
	return &CatalogRepository{products: sorted, index: index}, nil
}

// List returns a copy of every product in ascending id order.
func (r *CatalogRepository) List(_ context.Context) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, unavailable("catalog.list")
	}
	out := make([]domain.Product, len(r.products))
	copy(out, r.products)
	return out, nil
}

// Get returns one product.
func (r *CatalogRepository) Get(_ context.Context, productID int) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return domain.Product{}, unavailable("catalog.get")
	}
	i, ok := r.index[productID]
	if !ok {
		return domain.Product{}, notFound("catalog.get", "product %d", productID)
	}
	return r.products[i], nil
}

// UpdatePrice replaces the unit price in place.
func (r *CatalogRepository) UpdatePrice(_ context.Context, productID int, price decimal.Decimal) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.Product{}, unavailable("catalog.update_price")
	}
	i, ok := r.index[productID]
	if !ok {
		return domain.Product{}, notFound("catalog.update_price", "product %d", productID)
	}
	r.products[i].UnitPrice = price
	return r.products[i], nil
}

// Ping reports whether the store still serves requests.
func (r *CatalogRepository) Ping(_ context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return unavailable("catalog.ping")
	}
	return nil
}

// Close stops the store from serving further requests.
func (r *CatalogRepository) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}
