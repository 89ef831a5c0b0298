package memory

import (
	"context"
	"errors"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
	"github.com/Shreyas-sv10/Shop2/internal/repositories"
)

// Registry bundles the in-memory stores behind repositories.Registry.
type Registry struct {
	catalog *CatalogRepository
	carts   *CartRepository
	ledger  *LedgerRepository
	health  repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry seeds the catalog and wires health probes for every store.
func NewRegistry(products []domain.Product, opts ...repositories.DependencyHealthOption) (*Registry, error) {
	if len(products) == 0 {
		return nil, errors.New("memory registry: catalog must not be empty")
	}
	catalog, err := NewCatalogRepository(products)
	if err != nil {
		return nil, err
	}
	reg := &Registry{
		catalog: catalog,
		carts:   NewCartRepository(),
		ledger:  NewLedgerRepository(),
	}
	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{Name: "catalog", Check: reg.catalog.Ping},
		{Name: "carts", Check: reg.carts.Ping},
		{Name: "ledger", Check: reg.ledger.Ping},
	}, opts...)
	if err != nil {
		return nil, err
	}
	reg.health = health
	return reg, nil
}

func (r *Registry) Catalog() repositories.CatalogRepository { return r.catalog }
func (r *Registry) Carts() repositories.CartRepository      { return r.carts }
func (r *Registry) Ledger() repositories.LedgerRepository   { return r.ledger }
func (r *Registry) Health() repositories.HealthRepository   { return r.health }

// Close marks every store unavailable. Readiness probes report error afterwards.
func (r *Registry) Close(context.Context) error {
	r.catalog.Close()
	r.carts.Close()
	r.ledger.Close()
	return nil
}
