package repositories

import (
	"context"

	"github.com/shopspring/decimal"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
)

// Registry exposes typed repository accessors for dependency wiring.
type Registry interface {
	Catalog() CatalogRepository
	Carts() CartRepository
	Ledger() LedgerRepository
	Health() HealthRepository
	Close(ctx context.Context) error
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CatalogRepository owns the product set. Products are never created or removed at runtime.
type CatalogRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, productID int) (domain.Product, error)
	UpdatePrice(ctx context.Context, productID int, price decimal.Decimal) (domain.Product, error)
}

// CartRepository stores carts by id.
type CartRepository interface {
	GetCart(ctx context.Context, cartID string) (domain.Cart, error)
	// UpdateCart applies fn to the stored cart, or to a fresh cart carrying only the id when none
	// exists, and persists the result atomically. Nothing is stored when fn returns an error.
	UpdateCart(ctx context.Context, cartID string, fn func(cart *domain.Cart) error) (domain.Cart, error)
}

// LedgerRepository files bills under their ledger key. It only ever grows.
type LedgerRepository interface {
	Append(ctx context.Context, bill domain.BillRecord) error
	FindBill(ctx context.Context, billID string) (domain.BillRecord, error)
	// ListEntries returns ledger summaries in first-seen key order along with the total key count.
	ListEntries(ctx context.Context, offset, limit int) ([]domain.LedgerEntry, int, error)
	// ListBills returns bills for key in insertion order along with the total bill count for key.
	ListBills(ctx context.Context, key string, offset, limit int) ([]domain.BillRecord, int, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
