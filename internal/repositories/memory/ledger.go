package memory

import (
	"context"
	"strings"
	"sync"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
	"github.com/Shreyas-sv10/Shop2/internal/repositories"
)

// LedgerRepository files bills per ledger key and indexes them by bill id.
type LedgerRepository struct {
	mu     sync.RWMutex
	keys   []string
	bills  map[string][]domain.BillRecord
	byID   map[string]billLocation
	closed bool
}

type billLocation struct {
	key   string
	index int
}

var _ repositories.LedgerRepository = (*LedgerRepository)(nil)

// NewLedgerRepository constructs an empty ledger.
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{
		bills: make(map[string][]domain.BillRecord),
		byID:  make(map[string]billLocation),
	}
}

// Append files a copy of bill under bill.LedgerKey.
func (r *LedgerRepository) Append(_ context.Context, bill domain.BillRecord) error {
	key := strings.TrimSpace(bill.LedgerKey)
	id := strings.TrimSpace(bill.ID)
	if key == "" || id == "" {
		return conflict("ledger.append", "bill id and ledger key are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return unavailable("ledger.append")
	}
	if _, exists := r.byID[id]; exists {
		return conflict("ledger.append", "bill %q already filed", id)
	}
	existing, seen := r.bills[key]
	if !seen {
		r.keys = append(r.keys, key)
	}
	r.bills[key] = append(existing, bill.Clone())
	r.byID[id] = billLocation{key: key, index: len(existing)}
	return nil
}

// FindBill returns a copy of the bill with the given id.
func (r *LedgerRepository) FindBill(_ context.Context, billID string) (domain.BillRecord, error) {
	id := strings.TrimSpace(billID)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return domain.BillRecord{}, unavailable("ledger.find")
	}
	loc, ok := r.byID[id]
	if !ok {
		return domain.BillRecord{}, notFound("ledger.find", "bill %q", id)
	}
	return r.bills[loc.key][loc.index].Clone(), nil
}

// ListEntries implements repositories.LedgerRepository.
func (r *LedgerRepository) ListEntries(_ context.Context, offset, limit int) ([]domain.LedgerEntry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, 0, unavailable("ledger.list_entries")
	}

	total := len(r.keys)
	start, end := window(offset, limit, total)
	entries := make([]domain.LedgerEntry, 0, end-start)
	for _, key := range r.keys[start:end] {
		bills := r.bills[key]
		last := bills[len(bills)-1]
		entries = append(entries, domain.LedgerEntry{
			Key:              key,
			BillCount:        len(bills),
			LastIssuedAt:     last.IssuedAt,
			LastCustomerName: last.CustomerName,
		})
	}
	return entries, total, nil
}

// ListBills implements repositories.LedgerRepository. Unknown keys yield an empty page.
func (r *LedgerRepository) ListBills(_ context.Context, key string, offset, limit int) ([]domain.BillRecord, int, error) {
	key = strings.TrimSpace(key)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, 0, unavailable("ledger.list_bills")
	}

	bills := r.bills[key]
	total := len(bills)
	start, end := window(offset, limit, total)
	out := make([]domain.BillRecord, 0, end-start)
	for _, bill := range bills[start:end] {
		out = append(out, bill.Clone())
	}
	return out, total, nil
}

// Ping reports whether the store still serves requests.
func (r *LedgerRepository) Ping(_ context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return unavailable("ledger.ping")
	}
	return nil
}

// Close stops the store from serving further requests.
func (r *LedgerRepository) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func window(offset, limit, total int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return offset, end
}
