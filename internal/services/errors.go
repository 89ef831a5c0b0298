package services

import (
	"errors"
	"fmt"

	"github.com/Shreyas-sv10/Shop2/internal/repositories"
)

// Error categories. Handlers map these to HTTP status codes.
var (
	ErrValidation  = errors.New("validation failed")
	ErrAuth        = errors.New("authentication failed")
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("service unavailable")
)

var (
	// ErrInvalidQuantity reports a quantity that is missing, non-numeric or not positive.
	ErrInvalidQuantity = fmt.Errorf("%w: please enter a valid quantity", ErrValidation)
	// ErrInvalidUnit reports a unit the product cannot be bought in.
	ErrInvalidUnit = fmt.Errorf("%w: unit not offered for this product", ErrValidation)
	// ErrInvalidPrice reports a price that is missing, non-finite or negative.
	ErrInvalidPrice = fmt.Errorf("%w: please enter a valid price", ErrValidation)
	// ErrMissingName reports a blank customer name.
	ErrMissingName = fmt.Errorf("%w: please enter the customer's name", ErrValidation)
	// ErrEmptyCart reports an attempt to bill an empty cart.
	ErrEmptyCart = fmt.Errorf("%w: cart is empty; add items to generate a bill", ErrValidation)
	// ErrNoPriceEdits reports a price edit batch with nothing in it.
	ErrNoPriceEdits = fmt.Errorf("%w: at least one price edit is required", ErrValidation)

	// ErrAdminUnauthorized reports a rejected username/password pair.
	ErrAdminUnauthorized = fmt.Errorf("%w: invalid username or password", ErrAuth)
	// ErrAdminTokenInvalid reports a missing, expired or forged admin token.
	ErrAdminTokenInvalid = fmt.Errorf("%w: admin session is invalid or expired", ErrAuth)

	ErrProductNotFound = fmt.Errorf("%w: product", ErrNotFound)
	ErrBillNotFound    = fmt.Errorf("%w: bill", ErrNotFound)
	ErrCartNotFound    = fmt.Errorf("%w: cart", ErrNotFound)
)

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// translateRepoError maps a repository failure onto the service taxonomy. notFound is
// returned for missing records; everything else becomes ErrUnavailable.
func translateRepoError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrAuth) {
		return err
	}
	if notFound != nil && isRepoNotFound(err) {
		return notFound
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
