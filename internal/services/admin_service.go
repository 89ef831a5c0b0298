package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shreyas-sv10/Shop2/internal/platform/auth"
)

var (
	errAdminAuthenticatorRequired = errors.New("admin service: authenticator is required")
	errAdminTokensRequired        = errors.New("admin service: token issuer is required")
	errAdminCatalogRequired       = errors.New("admin service: catalog is required")
)

// AdminTokens issues and verifies admin session tokens.
type AdminTokens interface {
	auth.TokenVerifier
	Issue(principal auth.Principal) (auth.IssuedToken, error)
}

// AdminServiceDeps wires the admin gate.
type AdminServiceDeps struct {
	Authenticator auth.Authenticator
	Tokens        AdminTokens
	Catalog       CatalogService
	Logger        func(context.Context, string, map[string]any)
	Metrics       Metrics
}

type adminService struct {
	authn   auth.Authenticator
	tokens  AdminTokens
	catalog CatalogService
	logger  func(context.Context, string, map[string]any)
	metrics Metrics
}

var _ AdminService = (*adminService)(nil)

// NewAdminService constructs the admin service.
func NewAdminService(deps AdminServiceDeps) (AdminService, error) {
	if deps.Authenticator == nil {
		return nil, errAdminAuthenticatorRequired
	}
	if deps.Tokens == nil {
		return nil, errAdminTokensRequired
	}
	if deps.Catalog == nil {
		return nil, errAdminCatalogRequired
	}
	return &adminService{
		authn:   deps.Authenticator,
		tokens:  deps.Tokens,
		catalog: deps.Catalog,
		logger:  loggerOrNoop(deps.Logger),
		metrics: metricsOrNoop(deps.Metrics),
	}, nil
}

// Authenticate checks the credential pair and issues a fresh session on every success.
func (s *adminService) Authenticate(ctx context.Context, username, password string) (AdminSession, error) {
	principal, err := s.authn.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.metrics.AdminLogin(ctx, "rejected")
			s.logger(ctx, "admin.login_rejected", map[string]any{"username": strings.TrimSpace(username)})
			return AdminSession{}, ErrAdminUnauthorized
		}
		s.metrics.AdminLogin(ctx, "error")
		return AdminSession{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	issued, err := s.tokens.Issue(principal)
	if err != nil {
		s.metrics.AdminLogin(ctx, "error")
		return AdminSession{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.metrics.AdminLogin(ctx, "accepted")
	s.logger(ctx, "admin.login_accepted", map[string]any{
		"subject":   principal.Subject,
		"expiresAt": issued.ExpiresAt,
	})
	return AdminSession{
		Subject:   principal.Subject,
		Token:     issued.Token,
		IssuedAt:  issued.IssuedAt,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

// Verify reports whether token is a live admin session.
func (s *adminService) Verify(ctx context.Context, token string) (AdminSession, error) {
	identity, err := s.tokens.Verify(ctx, token)
	if err != nil {
		return AdminSession{}, ErrAdminTokenInvalid
	}
	if !identity.HasRole(auth.RoleAdmin) {
		return AdminSession{}, ErrAdminTokenInvalid
	}
	return AdminSession{
		Subject:   identity.Subject,
		Token:     strings.TrimSpace(token),
		IssuedAt:  identity.IssuedAt,
		ExpiresAt: identity.ExpiresAt,
	}, nil
}

// ApplyPriceEdits applies each edit independently and reports per-edit outcomes in input order.
// A failing edit never blocks the rest.
func (s *adminService) ApplyPriceEdits(ctx context.Context, edits []PriceEdit) ([]PriceEditResult, error) {
	if len(edits) == 0 {
		return nil, ErrNoPriceEdits
	}
	results := make([]PriceEditResult, 0, len(edits))
	for _, edit := range edits {
		result := PriceEditResult{ProductID: edit.ProductID}
		product, err := s.catalog.UpdatePrice(ctx, edit.ProductID, edit.Price)
		if err != nil {
			result.Err = err
			s.metrics.PriceEdit(ctx, "rejected")
			s.logger(ctx, "admin.price_rejected", map[string]any{
				"productId": edit.ProductID,
				"error":     err.Error(),
			})
		} else {
			result.OK = true
			result.Product = &product
			s.metrics.PriceEdit(ctx, "applied")
			s.logger(ctx, "admin.price_updated", map[string]any{
				"productId": product.ID,
				"price":     product.UnitPrice.StringFixed(2),
			})
		}
		results = append(results, result)
	}
	return results, nil
}
