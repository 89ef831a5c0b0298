package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
	"github.com/Shreyas-sv10/Shop2/internal/platform/pagination"
	"github.com/Shreyas-sv10/Shop2/internal/repositories"
)

var (
	errBillCartsRequired  = errors.New("bill service: cart repository is required")
	errBillLedgerRequired = errors.New("bill service: ledger repository is required")
	errBillClockRequired  = errors.New("bill service: clock is required")
)

var ledgerPaging = pagination.Options{DefaultPageSize: pagination.DefaultPageSize, MaxPageSize: pagination.DefaultMaxPageSize}

// BillServiceDeps wires the collaborators needed to issue bills.
type BillServiceDeps struct {
	Carts       repositories.CartRepository
	Ledger      repositories.LedgerRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
	Metrics     Metrics
}

type billService struct {
	carts   repositories.CartRepository
	ledger  repositories.LedgerRepository
	now     func() time.Time
	newID   func() string
	logger  func(context.Context, string, map[string]any)
	metrics Metrics
}

var _ BillService = (*billService)(nil)

// NewBillService constructs the bill generator.
func NewBillService(deps BillServiceDeps) (BillService, error) {
	if deps.Carts == nil {
		return nil, errBillCartsRequired
	}
	if deps.Ledger == nil {
		return nil, errBillLedgerRequired
	}
	if deps.Clock == nil {
		return nil, errBillClockRequired
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &billService{
		carts:   deps.Carts,
		ledger:  deps.Ledger,
		now:     func() time.Time { return deps.Clock().UTC() },
		newID:   idGen,
		logger:  loggerOrNoop(deps.Logger),
		metrics: metricsOrNoop(deps.Metrics),
	}, nil
}

// Generate snapshots the cart into a bill, files it in the ledger and empties the cart.
// An empty cart is reported before a missing customer name.
func (s *billService) Generate(ctx context.Context, cmd GenerateBillCommand) (BillRecord, error) {
	cartID, err := requireCartID(cmd.CartID)
	if err != nil {
		return BillRecord{}, err
	}
	name := strings.TrimSpace(cmd.CustomerName)
	phone := strings.TrimSpace(cmd.Phone)

	var bill BillRecord
	_, err = s.carts.UpdateCart(ctx, cartID, func(cart *domain.Cart) error {
		if cart.IsEmpty() {
			return ErrEmptyCart
		}
		if name == "" {
			return ErrMissingName
		}
		issued := s.now()
		bill = BillRecord{
			ID:           s.newID(),
			CartID:       cartID,
			CustomerName: name,
			Phone:        phone,
			LedgerKey:    ledgerKey(phone),
			IssuedAt:     issued,
			Lines:        domain.CloneLines(cart.Lines),
			Total:        cart.Total(),
		}
		// The ledger append happens under the cart lock so a concurrent add cannot slip
		// between snapshot and clear.
		if err := s.ledger.Append(ctx, bill); err != nil {
			return err
		}
		cart.Lines = []domain.CartLine{}
		cart.UpdatedAt = issued
		if cart.CreatedAt.IsZero() {
			cart.CreatedAt = issued
		}
		return nil
	})
	if err != nil {
		return BillRecord{}, translateRepoError(err, ErrCartNotFound)
	}

	s.metrics.BillGenerated(ctx, bill.Total, len(bill.Lines))
	s.logger(ctx, "bill.generated", map[string]any{
		"billId":    bill.ID,
		"cartId":    cartID,
		"ledgerKey": bill.LedgerKey,
		"lines":     len(bill.Lines),
		"total":     bill.Total.StringFixed(2),
	})
	return bill, nil
}

func (s *billService) Get(ctx context.Context, billID string) (BillRecord, error) {
	id := strings.TrimSpace(billID)
	if id == "" {
		return BillRecord{}, ErrBillNotFound
	}
	bill, err := s.ledger.FindBill(ctx, id)
	if err != nil {
		return BillRecord{}, translateRepoError(err, fmt.Errorf("%w: %s", ErrBillNotFound, id))
	}
	return bill, nil
}

// GetForCart returns a bill only to the till cart that issued it. Bills of other carts
// read as missing.
func (s *billService) GetForCart(ctx context.Context, cartID, billID string) (BillRecord, error) {
	cartID, err := requireCartID(cartID)
	if err != nil {
		return BillRecord{}, err
	}
	bill, err := s.Get(ctx, billID)
	if err != nil {
		return BillRecord{}, err
	}
	if bill.CartID != cartID {
		return BillRecord{}, fmt.Errorf("%w: %s", ErrBillNotFound, strings.TrimSpace(billID))
	}
	return bill, nil
}

func (s *billService) ListLedger(ctx context.Context, page Pagination) (Page[LedgerEntry], error) {
	offset, limit, err := pagination.Window(page.PageSize, page.PageToken, ledgerPaging)
	if err != nil {
		return Page[LedgerEntry]{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	entries, total, err := s.ledger.ListEntries(ctx, offset, limit)
	if err != nil {
		return Page[LedgerEntry]{}, translateRepoError(err, nil)
	}
	if entries == nil {
		entries = []LedgerEntry{}
	}
	return Page[LedgerEntry]{
		Items:         entries,
		Total:         total,
		NextPageToken: pagination.NextToken(offset, len(entries), total),
	}, nil
}

// ListCustomerBills pages through the bills filed under ledgerKey. A blank key means the
// unknown-phone bucket.
func (s *billService) ListCustomerBills(ctx context.Context, key string, page Pagination) (Page[BillRecord], error) {
	offset, limit, err := pagination.Window(page.PageSize, page.PageToken, ledgerPaging)
	if err != nil {
		return Page[BillRecord]{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	bills, total, err := s.ledger.ListBills(ctx, ledgerKey(key), offset, limit)
	if err != nil {
		return Page[BillRecord]{}, translateRepoError(err, nil)
	}
	if bills == nil {
		bills = []BillRecord{}
	}
	return Page[BillRecord]{
		Items:         bills,
		Total:         total,
		NextPageToken: pagination.NextToken(offset, len(bills), total),
	}, nil
}

func ledgerKey(phone string) string {
	key := strings.TrimSpace(phone)
	if key == "" {
		return domain.UnknownPhoneKey
	}
	return key
}
