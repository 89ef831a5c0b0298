package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Shreyas-sv10/Shop2/internal/repositories/memory"
	"github.com/Shreyas-sv10/Shop2/internal/seed"
)

func TestCatalogServiceListAndSearch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	all, err := h.catalog.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 4 || all[0].ID != 1 || all[3].ID != 4 {
		t.Fatalf("unexpected catalog order %+v", all)
	}

	cases := map[string][]int{
		"rice":    {1},
		"  RICE ": {1},
		"a":       {1, 2, 4},
		"":        {1, 2, 3, 4},
		"   ":     {1, 2, 3, 4},
		"coffee":  {},
	}
	for query, want := range cases {
		got, err := h.catalog.Search(ctx, query)
		if err != nil {
			t.Fatalf("Search(%q): %v", query, err)
		}
		if got == nil {
			t.Fatalf("Search(%q) returned nil slice", query)
		}
		if len(got) != len(want) {
			t.Fatalf("Search(%q): expected %d results, got %d", query, len(want), len(got))
		}
		for i, id := range want {
			if got[i].ID != id {
				t.Fatalf("Search(%q): expected id %d at %d, got %d", query, id, i, got[i].ID)
			}
		}
	}
}

func TestCatalogServiceSearchDefaultSeed(t *testing.T) {
	catalog, err := seed.Default()
	if err != nil {
		t.Fatalf("seed.Default: %v", err)
	}
	reg, err := memory.NewRegistry(catalog.Products)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	svc, err := NewCatalogService(CatalogServiceDeps{Catalog: reg.Catalog(), Clock: fixedClock})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}
	ctx := context.Background()

	rice, err := svc.Search(ctx, "rice")
	if err != nil {
		t.Fatalf("Search(rice): %v", err)
	}
	if len(rice) != 1 || rice[0].Name != "Basmati Rice" {
		t.Fatalf("expected only Basmati Rice, got %+v", rice)
	}

	all, err := svc.Search(ctx, "")
	if err != nil {
		t.Fatalf("Search(\"\"): %v", err)
	}
	want := []string{
		"Basmati Rice", "Sugar", "Milk Packet", "Toor Dal", "Sunflower Oil",
		"Wheat Flour (Atta)", "Salt", "Tea Powder", "Biscuits",
	}
	if len(all) != len(want) {
		t.Fatalf("expected %d products, got %d", len(want), len(all))
	}
	for i, name := range want {
		if all[i].Name != name {
			t.Fatalf("position %d: expected %q, got %q", i, name, all[i].Name)
		}
	}
}

func TestCatalogServiceUpdatePrice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	updated, err := h.catalog.UpdatePrice(ctx, 1, dec("95.5"))
	if err != nil {
		t.Fatalf("UpdatePrice: %v", err)
	}
	if !updated.UnitPrice.Equal(dec("95.5")) {
		t.Fatalf("unexpected price %s", updated.UnitPrice)
	}
	found, err := h.catalog.Search(ctx, "basmati")
	if err != nil || len(found) != 1 || !found[0].UnitPrice.Equal(dec("95.5")) {
		t.Fatalf("updated price not visible to search: %+v %v", found, err)
	}
	if !h.events.has("catalog.price_updated") {
		t.Fatalf("expected price update to be logged")
	}

	if _, err := h.catalog.UpdatePrice(ctx, 1, dec("-1")); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if !errors.Is(ErrInvalidPrice, ErrValidation) {
		t.Fatalf("ErrInvalidPrice must be a validation error")
	}
	zero, err := h.catalog.UpdatePrice(ctx, 3, dec("0"))
	if err != nil || !zero.UnitPrice.IsZero() {
		t.Fatalf("zero price should be accepted, got %+v %v", zero, err)
	}

	_, err = h.catalog.UpdatePrice(ctx, 99, dec("10"))
	if !errors.Is(err, ErrProductNotFound) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCatalogServiceUnavailable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.registry.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := h.catalog.ListAll(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := h.catalog.Get(ctx, 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNewCatalogServiceRequiresRepository(t *testing.T) {
	if _, err := NewCatalogService(CatalogServiceDeps{}); err == nil {
		t.Fatal("expected error")
	}
}
