package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
	"github.com/Shreyas-sv10/Shop2/internal/repositories"
)

func testProducts() []domain.Product {
	return []domain.Product{
		{ID: 2, Name: "Sugar", UnitPrice: decimal.NewFromInt(45), Unit: domain.UnitKilogram},
		{ID: 1, Name: "Rice", UnitPrice: decimal.NewFromInt(90), Unit: domain.UnitKilogram},
		{ID: 3, Name: "Milk", UnitPrice: decimal.NewFromInt(60), Unit: domain.UnitLitre},
	}
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isUnavailable(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}

func TestCatalogRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := NewCatalogRepository(testProducts())
	if err != nil {
		t.Fatalf("NewCatalogRepository: %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0].ID != 1 || list[2].ID != 3 {
		t.Fatalf("expected id order, got %+v", list)
	}
	list[0].Name = "mutated"
	if again, _ := repo.Get(ctx, 1); again.Name != "Rice" {
		t.Fatalf("List leaked internal storage")
	}

	updated, err := repo.UpdatePrice(ctx, 2, decimal.RequireFromString("47.5"))
	if err != nil {
		t.Fatalf("UpdatePrice: %v", err)
	}
	if !updated.UnitPrice.Equal(decimal.RequireFromString("47.5")) {
		t.Fatalf("unexpected price %s", updated.UnitPrice)
	}
	if got, _ := repo.Get(ctx, 2); !got.UnitPrice.Equal(updated.UnitPrice) {
		t.Fatalf("price not persisted: %s", got.UnitPrice)
	}

	if _, err := repo.Get(ctx, 42); !isNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := repo.UpdatePrice(ctx, 42, decimal.NewFromInt(1)); !isNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := NewCatalogRepository(append(testProducts(), domain.Product{ID: 1})); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestCartRepositoryUpdateCart(t *testing.T) {
	ctx := context.Background()
	repo := NewCartRepository()

	if _, err := repo.GetCart(ctx, "till-1"); !isNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	cart, err := repo.UpdateCart(ctx, "till-1", func(cart *domain.Cart) error {
		if cart.ID != "till-1" || len(cart.Lines) != 0 {
			t.Fatalf("expected fresh cart, got %+v", cart)
		}
		cart.Lines = append(cart.Lines, domain.CartLine{ProductID: 1, AccumulatedPrice: decimal.NewFromInt(90)})
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateCart: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(cart.Lines))
	}

	cart.Lines[0].ProductID = 99
	stored, err := repo.GetCart(ctx, "till-1")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if stored.Lines[0].ProductID != 1 {
		t.Fatalf("returned cart aliases stored lines")
	}

	failure := errors.New("reject")
	_, err = repo.UpdateCart(ctx, "till-1", func(cart *domain.Cart) error {
		cart.Lines = nil
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if stored, _ := repo.GetCart(ctx, "till-1"); len(stored.Lines) != 1 {
		t.Fatalf("failed update must not be persisted")
	}

	if _, err := repo.UpdateCart(ctx, "  ", func(*domain.Cart) error { return nil }); err == nil {
		t.Fatal("expected error for blank cart id")
	}
}

func TestCartRepositorySerialisesUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewCartRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.UpdateCart(ctx, "till", func(cart *domain.Cart) error {
				cart.Lines = append(cart.Lines, domain.CartLine{ProductID: len(cart.Lines) + 1})
				return nil
			})
		}()
	}
	wg.Wait()

	cart, err := repo.GetCart(ctx, "till")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Lines) != 50 {
		t.Fatalf("expected 50 lines, got %d", len(cart.Lines))
	}
}

func TestLedgerRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()
	issued := time.Date(2025, time.February, 3, 10, 0, 0, 0, time.UTC)

	bills := []domain.BillRecord{
		{ID: "b1", LedgerKey: "98450", CustomerName: "Asha", IssuedAt: issued},
		{ID: "b2", LedgerKey: domain.UnknownPhoneKey, CustomerName: "Ravi", IssuedAt: issued.Add(time.Minute)},
		{ID: "b3", LedgerKey: "98450", CustomerName: "Asha K", IssuedAt: issued.Add(2 * time.Minute)},
	}
	for _, bill := range bills {
		if err := repo.Append(ctx, bill); err != nil {
			t.Fatalf("Append %s: %v", bill.ID, err)
		}
	}
	if err := repo.Append(ctx, bills[0]); err == nil {
		t.Fatal("expected duplicate bill id to be rejected")
	}

	entries, total, err := repo.ListEntries(ctx, 0, 10)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if total != 2 || len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d/%d", len(entries), total)
	}
	if entries[0].Key != "98450" || entries[0].BillCount != 2 || entries[0].LastCustomerName != "Asha K" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}

	page, total, err := repo.ListBills(ctx, "98450", 1, 1)
	if err != nil {
		t.Fatalf("ListBills: %v", err)
	}
	if total != 2 || len(page) != 1 || page[0].ID != "b3" {
		t.Fatalf("unexpected bill page %+v (total %d)", page, total)
	}

	empty, total, err := repo.ListBills(ctx, "unknown", 0, 10)
	if err != nil || total != 0 || len(empty) != 0 {
		t.Fatalf("expected empty page for unknown key, got %v %d %v", empty, total, err)
	}

	found, err := repo.FindBill(ctx, "b2")
	if err != nil || found.CustomerName != "Ravi" {
		t.Fatalf("FindBill: %+v %v", found, err)
	}
	if _, err := repo.FindBill(ctx, "missing"); !isNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegistryCloseMarksStoresUnavailable(t *testing.T) {
	ctx := context.Background()
	reg, err := NewRegistry(testProducts())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	report, err := reg.Health().Collect(ctx)
	if err != nil || report.Status != domain.HealthStatusOK {
		t.Fatalf("expected healthy registry, got %s (%v)", report.Status, err)
	}

	if err := reg.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := reg.Catalog().List(ctx); !isUnavailable(err) {
		t.Fatalf("expected unavailable catalog, got %v", err)
	}
	if _, err := reg.Carts().UpdateCart(ctx, "till", func(*domain.Cart) error { return nil }); !isUnavailable(err) {
		t.Fatalf("expected unavailable carts, got %v", err)
	}
	report, err = reg.Health().Collect(ctx)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusError {
		t.Fatalf("expected error status after close, got %s", report.Status)
	}
}
