package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Shreyas-sv10/Shop2/internal/platform/textutil"
	"github.com/Shreyas-sv10/Shop2/internal/repositories"
)

var errCatalogRepositoryRequired = errors.New("catalog service: repository is required")

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Catalog repositories.CatalogRepository
	Clock   func() time.Time
	Logger  func(context.Context, string, map[string]any)
}

type catalogService struct {
	repo   repositories.CatalogRepository
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, errCatalogRepositoryRequired
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &catalogService{
		repo:   deps.Catalog,
		now:    func() time.Time { return clock().UTC() },
		logger: loggerOrNoop(deps.Logger),
	}, nil
}

func (s *catalogService) ListAll(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, translateRepoError(err, nil)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// Search matches query against product names ignoring case. A blank query lists everything.
func (s *catalogService) Search(ctx context.Context, query string) ([]Product, error) {
	products, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	needle := textutil.FoldKey(query)
	if needle == "" {
		return products, nil
	}
	matched := make([]Product, 0, len(products))
	for _, product := range products {
		if textutil.ContainsFold(product.Name, needle) {
			matched = append(matched, product)
		}
	}
	return matched, nil
}

func (s *catalogService) Get(ctx context.Context, productID int) (Product, error) {
	product, err := s.repo.Get(ctx, productID)
	if err != nil {
		return Product{}, translateRepoError(err, fmt.Errorf("%w: %d", ErrProductNotFound, productID))
	}
	return product, nil
}

func (s *catalogService) UpdatePrice(ctx context.Context, productID int, price decimal.Decimal) (Product, error) {
	if price.IsNegative() {
		return Product{}, ErrInvalidPrice
	}
	before, err := s.Get(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	updated, err := s.repo.UpdatePrice(ctx, productID, price)
	if err != nil {
		return Product{}, translateRepoError(err, fmt.Errorf("%w: %d", ErrProductNotFound, productID))
	}
	s.logger(ctx, "catalog.price_updated", map[string]any{
		"productId": productID,
		"oldPrice":  before.UnitPrice.String(),
		"newPrice":  updated.UnitPrice.String(),
		"at":        s.now(),
	})
	return updated, nil
}
