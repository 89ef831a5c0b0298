package memory

import (
	"context"
	"strings"
	"sync"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
	"github.com/Shreyas-sv10/Shop2/internal/repositories"
)

// CartRepository stores carts keyed by id. UpdateCart holds the store lock for the whole callback.
type CartRepository struct {
	mu     sync.Mutex
	carts  map[string]domain.Cart
	closed bool
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs an empty cart store.
func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]domain.Cart)}
}

// GetCart returns a deep copy of the stored cart.
func (r *CartRepository) GetCart(_ context.Context, cartID string) (domain.Cart, error) {
	id := strings.TrimSpace(cartID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.Cart{}, unavailable("cart.get")
	}
	cart, ok := r.carts[id]
	if !ok {
		return domain.Cart{}, notFound("cart.get", "cart %q", id)
	}
	return cart.Clone(), nil
}

// UpdateCart implements repositories.CartRepository.
func (r *CartRepository) UpdateCart(ctx context.Context, cartID string, fn func(cart *domain.Cart) error) (domain.Cart, error) {
	id := strings.TrimSpace(cartID)
	if id == "" {
		return domain.Cart{}, conflict("cart.update", "cart id is required")
	}
	if err := ctx.Err(); err != nil {
		return domain.Cart{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.Cart{}, unavailable("cart.update")
	}

	working, ok := r.carts[id]
	if ok {
		working = working.Clone()
	} else {
		working = domain.Cart{ID: id, Lines: []domain.CartLine{}}
	}
	if err := fn(&working); err != nil {
		return domain.Cart{}, err
	}
	working.ID = id
	r.carts[id] = working.Clone()
	return working, nil
}

// Len reports the number of stored carts.
func (r *CartRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// Ping reports whether the store still serves requests.
func (r *CartRepository) Ping(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return unavailable("cart.ping")
	}
	return nil
}

// Close stops the store from serving further requests.
func (r *CartRepository) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}
