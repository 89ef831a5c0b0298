package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pagination defines offset-token paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// Product is a sellable catalog entry. UnitPrice is denominated in Unit.
type Product struct {
	ID        int
	Name      string
	UnitPrice decimal.Decimal
	Unit      Unit
	ImageRef  string
}

// CartLine accumulates every add of a single product.
type CartLine struct {
	ProductID int
	Name      string
	Quantity  decimal.Decimal
	// DisplayUnit is the unit Quantity is expressed in; merges are converted into it.
	DisplayUnit Unit
	// UnitPrice is the catalog price observed at the most recent add.
	UnitPrice     decimal.Decimal
	CanonicalUnit Unit
	// AccumulatedPrice is the running monetary total across merges.
	AccumulatedPrice decimal.Decimal
}

// Cart is an ordered set of lines keyed by product. Order follows first add.
type Cart struct {
	ID        string
	Lines     []CartLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total sums the accumulated price of every line.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.AccumulatedPrice)
	}
	return total
}

// ItemCount reports the number of distinct lines.
func (c Cart) ItemCount() int {
	return len(c.Lines)
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// LineIndex returns the index of the line for productID or -1.
func (c Cart) LineIndex(productID int) int {
	for i, line := range c.Lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can never alias stored lines.
func (c Cart) Clone() Cart {
	out := c
	out.Lines = CloneLines(c.Lines)
	return out
}

// CloneLines copies a line slice. A nil input yields an empty slice.
func CloneLines(lines []CartLine) []CartLine {
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}

// UnknownPhoneKey files bills whose customer left the phone blank.
const UnknownPhoneKey = "N/A"

// BillRecord is an immutable snapshot of a completed sale.
type BillRecord struct {
	ID string
	// CartID names the till cart the bill was issued from.
	CartID       string
	CustomerName string
	Phone        string
	LedgerKey    string
	IssuedAt     time.Time
	Lines        []CartLine
	Total        decimal.Decimal
}

// Clone returns a deep copy of the bill.
func (b BillRecord) Clone() BillRecord {
	out := b
	out.Lines = CloneLines(b.Lines)
	return out
}

// LedgerEntry summarises the bills filed under one ledger key.
type LedgerEntry struct {
	Key              string
	BillCount        int
	LastIssuedAt     time.Time
	LastCustomerName string
}

// Store describes the shop printed on bills.
type Store struct {
	Name           string
	Address        string
	FooterMarkdown string
	Location       *time.Location
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
