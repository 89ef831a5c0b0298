package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
	"github.com/Shreyas-sv10/Shop2/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartCatalogRequired    = errors.New("cart service: catalog is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// CartServiceDeps wires the repositories used by cart operations.
type CartServiceDeps struct {
	Repository repositories.CartRepository
	Catalog    CatalogService
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
	Metrics    Metrics
}

type cartService struct {
	repo    repositories.CartRepository
	catalog CatalogService
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
	metrics Metrics
}

var _ CartService = (*cartService)(nil)

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Catalog == nil {
		return nil, errCartCatalogRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}
	return &cartService{
		repo:    deps.Repository,
		catalog: deps.Catalog,
		now:     func() time.Time { return deps.Clock().UTC() },
		logger:  loggerOrNoop(deps.Logger),
		metrics: metricsOrNoop(deps.Metrics),
	}, nil
}

// Get loads the cart, creating an empty one when the id has never been used.
func (s *cartService) Get(ctx context.Context, cartID string) (Cart, error) {
	id, err := requireCartID(cartID)
	if err != nil {
		return Cart{}, err
	}
	cart, err := s.repo.GetCart(ctx, id)
	if err == nil {
		return cart, nil
	}
	if !isRepoNotFound(err) {
		return Cart{}, translateRepoError(err, ErrCartNotFound)
	}
	cart, err = s.repo.UpdateCart(ctx, id, func(cart *domain.Cart) error {
		s.stamp(cart)
		return nil
	})
	if err != nil {
		return Cart{}, translateRepoError(err, ErrCartNotFound)
	}
	return cart, nil
}

// AddOrMerge adds a quantity of one product. A second add of the same product merges into the
// existing line, converted into that line's display unit.
func (s *cartService) AddOrMerge(ctx context.Context, cmd AddToCartCommand) (Cart, error) {
	id, err := requireCartID(cmd.CartID)
	if err != nil {
		return Cart{}, err
	}
	if !cmd.Quantity.IsPositive() {
		return Cart{}, ErrInvalidQuantity
	}

	product, err := s.catalog.Get(ctx, cmd.ProductID)
	if err != nil {
		return Cart{}, err
	}
	unit := domain.ParseUnit(string(cmd.Unit))
	if unit == "" {
		unit = product.Unit
	}
	if !product.Offers(unit) {
		return Cart{}, fmt.Errorf("%w: %s sold by %s", ErrInvalidUnit, product.Name, strings.Join(unitLabels(product.Unit), " or "))
	}
	contribution, err := domain.LinePrice(product, cmd.Quantity, unit)
	if err != nil {
		return Cart{}, fmt.Errorf("%w: %v", ErrInvalidUnit, err)
	}

	merged := false
	cart, err := s.repo.UpdateCart(ctx, id, func(cart *domain.Cart) error {
		s.stamp(cart)
		idx := cart.LineIndex(product.ID)
		if idx < 0 {
			cart.Lines = append(cart.Lines, domain.CartLine{
				ProductID:        product.ID,
				Name:             product.Name,
				Quantity:         cmd.Quantity,
				DisplayUnit:      unit,
				UnitPrice:        product.UnitPrice,
				CanonicalUnit:    product.Unit,
				AccumulatedPrice: contribution,
			})
			return nil
		}
		line := &cart.Lines[idx]
		converted, err := domain.ConvertQuantity(cmd.Quantity, unit, line.DisplayUnit)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidUnit, err)
		}
		line.Quantity = line.Quantity.Add(converted)
		line.UnitPrice = product.UnitPrice
		line.AccumulatedPrice = line.AccumulatedPrice.Add(contribution)
		merged = true
		return nil
	})
	if err != nil {
		return Cart{}, translateRepoError(err, ErrCartNotFound)
	}

	s.metrics.CartLineAdded(ctx, product.ID, merged)
	event := "cart.line_added"
	if merged {
		event = "cart.line_merged"
	}
	s.logger(ctx, event, map[string]any{
		"cartId":    id,
		"productId": product.ID,
		"quantity":  cmd.Quantity.String(),
		"unit":      unit.String(),
		"amount":    contribution.StringFixed(2),
	})
	return cart, nil
}

func (s *cartService) Total(ctx context.Context, cartID string) (decimal.Decimal, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return decimal.Zero, err
	}
	return cart.Total(), nil
}

func (s *cartService) ItemCount(ctx context.Context, cartID string) (int, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return 0, err
	}
	return cart.ItemCount(), nil
}

// Clear empties the cart. Clearing an unknown cart leaves an empty one behind.
func (s *cartService) Clear(ctx context.Context, cartID string) (Cart, error) {
	id, err := requireCartID(cartID)
	if err != nil {
		return Cart{}, err
	}
	cart, err := s.repo.UpdateCart(ctx, id, func(cart *domain.Cart) error {
		s.stamp(cart)
		cart.Lines = []domain.CartLine{}
		return nil
	})
	if err != nil {
		return Cart{}, translateRepoError(err, ErrCartNotFound)
	}
	return cart, nil
}

func (s *cartService) stamp(cart *domain.Cart) {
	now := s.now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
}

func requireCartID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("%w: cart id is required", ErrValidation)
	}
	return id, nil
}

func unitLabels(canonical domain.Unit) []string {
	options := domain.UnitOptions(canonical)
	labels := make([]string, len(options))
	for i, option := range options {
		labels[i] = option.String()
	}
	return labels
}
