package services

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
	"github.com/Shreyas-sv10/Shop2/internal/repositories/memory"
)

var testNow = time.Date(2025, time.April, 2, 11, 45, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func testCatalogProducts() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "Basmati Rice", UnitPrice: dec("90"), Unit: domain.UnitKilogram},
		{ID: 2, Name: "Toor Dal", UnitPrice: dec("120"), Unit: domain.UnitKilogram},
		{ID: 3, Name: "Milk", UnitPrice: dec("60"), Unit: domain.UnitLitre},
		{ID: 4, Name: "Tea Powder", UnitPrice: dec("0.5"), Unit: domain.UnitGram},
	}
}

type harness struct {
	registry *memory.Registry
	catalog  CatalogService
	carts    CartService
	bills    BillService
	metrics  *recordingMetrics
	events   *eventLog
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg, err := memory.NewRegistry(testCatalogProducts())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	metrics := &recordingMetrics{}
	events := &eventLog{}

	catalog, err := NewCatalogService(CatalogServiceDeps{Catalog: reg.Catalog(), Clock: fixedClock, Logger: events.log})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}
	carts, err := NewCartService(CartServiceDeps{Repository: reg.Carts(), Catalog: catalog, Clock: fixedClock, Logger: events.log, Metrics: metrics})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	seq := 0
	bills, err := NewBillService(BillServiceDeps{
		Carts:  reg.Carts(),
		Ledger: reg.Ledger(),
		Clock:  fixedClock,
		IDGenerator: func() string {
			seq++
			return "bill-" + strconv.Itoa(seq)
		},
		Logger:  events.log,
		Metrics: metrics,
	})
	if err != nil {
		t.Fatalf("NewBillService: %v", err)
	}
	return &harness{registry: reg, catalog: catalog, carts: carts, bills: bills, metrics: metrics, events: events}
}

type recordingMetrics struct {
	mu         sync.Mutex
	linesAdded int
	merges     int
	bills      int
	billAmount decimal.Decimal
	logins     map[string]int
	priceEdits map[string]int
}

func (m *recordingMetrics) CartLineAdded(_ context.Context, _ int, merged bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linesAdded++
	if merged {
		m.merges++
	}
}

func (m *recordingMetrics) BillGenerated(_ context.Context, total decimal.Decimal, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bills++
	m.billAmount = m.billAmount.Add(total)
}

func (m *recordingMetrics) AdminLogin(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logins == nil {
		m.logins = map[string]int{}
	}
	m.logins[outcome]++
}

func (m *recordingMetrics) PriceEdit(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.priceEdits == nil {
		m.priceEdits = map[string]int{}
	}
	m.priceEdits[outcome]++
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) log(_ context.Context, event string, _ map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) has(event string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == event {
			return true
		}
	}
	return false
}
