package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	Product            = domain.Product
	Cart               = domain.Cart
	CartLine           = domain.CartLine
	BillRecord         = domain.BillRecord
	LedgerEntry        = domain.LedgerEntry
	SystemHealthReport = domain.SystemHealthReport
)

// Page is one window of a listing. Total counts every item, not just this page.
type Page[T any] struct {
	Items         []T
	Total         int
	NextPageToken string
}

// CatalogService serves the product catalog and owns price changes.
type CatalogService interface {
	ListAll(ctx context.Context) ([]Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
	Get(ctx context.Context, productID int) (Product, error)
	UpdatePrice(ctx context.Context, productID int, price decimal.Decimal) (Product, error)
}

// AddToCartCommand adds Quantity of a product, measured in Unit, to a cart.
type AddToCartCommand struct {
	CartID    string
	ProductID int
	Quantity  decimal.Decimal
	// Unit defaults to the product's canonical unit when blank.
	Unit domain.Unit
}

// CartService accumulates lines per till cart.
type CartService interface {
	Get(ctx context.Context, cartID string) (Cart, error)
	AddOrMerge(ctx context.Context, cmd AddToCartCommand) (Cart, error)
	Total(ctx context.Context, cartID string) (decimal.Decimal, error)
	ItemCount(ctx context.Context, cartID string) (int, error)
	Clear(ctx context.Context, cartID string) (Cart, error)
}

// GenerateBillCommand turns a cart into a bill for a customer.
type GenerateBillCommand struct {
	CartID       string
	CustomerName string
	Phone        string
}

// BillService produces bills and exposes the customer ledger.
type BillService interface {
	Generate(ctx context.Context, cmd GenerateBillCommand) (BillRecord, error)
	Get(ctx context.Context, billID string) (BillRecord, error)
	GetForCart(ctx context.Context, cartID, billID string) (BillRecord, error)
	ListLedger(ctx context.Context, page Pagination) (Page[LedgerEntry], error)
	ListCustomerBills(ctx context.Context, ledgerKey string, page Pagination) (Page[BillRecord], error)
}

// AdminSession is the outcome of a successful admin login or token check.
type AdminSession struct {
	Subject   string
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// PriceEdit requests a new unit price for one product.
type PriceEdit struct {
	ProductID int
	Price     decimal.Decimal
}

// PriceEditResult reports the outcome of one edit. Product is set only when OK.
type PriceEditResult struct {
	ProductID int
	OK        bool
	Product   *Product
	Err       error
}

// AdminService gates price edits behind an admin session.
type AdminService interface {
	Authenticate(ctx context.Context, username, password string) (AdminSession, error)
	Verify(ctx context.Context, token string) (AdminSession, error)
	ApplyPriceEdits(ctx context.Context, edits []PriceEdit) ([]PriceEditResult, error)
}

// SystemService exposes runtime diagnostics.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// Metrics records business counters. Implementations must be safe for concurrent use.
type Metrics interface {
	CartLineAdded(ctx context.Context, productID int, merged bool)
	BillGenerated(ctx context.Context, total decimal.Decimal, lines int)
	AdminLogin(ctx context.Context, outcome string)
	PriceEdit(ctx context.Context, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) CartLineAdded(context.Context, int, bool)            {}
func (noopMetrics) BillGenerated(context.Context, decimal.Decimal, int) {}
func (noopMetrics) AdminLogin(context.Context, string)                  {}
func (noopMetrics) PriceEdit(context.Context, string)                   {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

func loggerOrNoop(logger func(context.Context, string, map[string]any)) func(context.Context, string, map[string]any) {
	if logger == nil {
		return func(context.Context, string, map[string]any) {}
	}
	return logger
}
