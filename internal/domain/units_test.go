package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestUnitOptions(t *testing.T) {
	kg := UnitOptions(UnitKilogram)
	if len(kg) != 2 || kg[0] != UnitKilogram || kg[1] != UnitGram {
		t.Fatalf("expected kg and g options, got %v", kg)
	}
	tea := UnitOptions(UnitGram)
	if len(tea) != 1 || tea[0] != UnitGram {
		t.Fatalf("gram product should only offer g, got %v", tea)
	}
	milk := UnitOptions(UnitPacket)
	if len(milk) != 1 || milk[0] != UnitPacket {
		t.Fatalf("packet product should only offer packet, got %v", milk)
	}
}

func TestConvertQuantity(t *testing.T) {
	cases := []struct {
		name     string
		qty      string
		from, to Unit
		want     string
		wantErr  bool
	}{
		{name: "grams to kilograms", qty: "500", from: UnitGram, to: UnitKilogram, want: "0.5"},
		{name: "kilograms to grams", qty: "1.25", from: UnitKilogram, to: UnitGram, want: "1250"},
		{name: "same unit", qty: "3", from: UnitLitre, to: UnitLitre, want: "3"},
		{name: "undefined", qty: "1", from: UnitLitre, to: UnitKilogram, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ConvertQuantity(decimal.RequireFromString(tc.qty), tc.from, tc.to)
			if tc.wantErr {
				if !errors.Is(err, ErrUnitMismatch) {
					t.Fatalf("expected ErrUnitMismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestLinePriceConvertsGramsForKilogramProducts(t *testing.T) {
	rice := Product{ID: 1, Name: "Basmati Rice", UnitPrice: decimal.NewFromInt(90), Unit: UnitKilogram}

	price, err := LinePrice(rice, decimal.NewFromInt(500), UnitGram)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("expected 45, got %s", price)
	}
}

func TestParseAmount(t *testing.T) {
	valid := map[string]string{
		"99.5":           "99.5",
		" 12 ":           "12",
		"-5":             "-5",
		"0.125":          "0.125",
		"999999999999.5": "999999999999.5",
		"1.5000000":      "1.5",
		"2e3":            "2000",
	}
	for raw, want := range valid {
		got, err := ParseAmount(raw)
		if err != nil {
			t.Fatalf("ParseAmount(%q) returned error: %v", raw, err)
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("ParseAmount(%q) = %s, want %s", raw, got, want)
		}
	}

	for _, raw := range []string{
		"", "  ", "NaN", "-Inf", "infinity", "abc", "1.2.3",
		"1e2000000000", "1e-2000000000", "-1e13", "1000000000000", "0.0000001",
	} {
		if _, err := ParseAmount(raw); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ParseAmount(%q) expected ErrInvalidAmount, got %v", raw, err)
		}
	}
}

func TestAmountFromFloatRejectsNonFinite(t *testing.T) {
	for _, value := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e300, 1e-9} {
		if _, err := AmountFromFloat(value); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount for %v, got %v", value, err)
		}
	}
	got, err := AmountFromFloat(28)
	if err != nil || !got.Equal(decimal.NewFromInt(28)) {
		t.Fatalf("expected 28, got %s (%v)", got, err)
	}
}

func TestCartTotalAndClone(t *testing.T) {
	cart := Cart{
		ID: "cart-1",
		Lines: []CartLine{
			{ProductID: 1, Quantity: decimal.NewFromInt(2), AccumulatedPrice: decimal.NewFromInt(180)},
			{ProductID: 2, Quantity: decimal.NewFromInt(1), AccumulatedPrice: decimal.NewFromInt(45)},
		},
	}
	if !cart.Total().Equal(decimal.NewFromInt(225)) {
		t.Fatalf("expected total 225, got %s", cart.Total())
	}
	if cart.ItemCount() != 2 {
		t.Fatalf("expected 2 lines, got %d", cart.ItemCount())
	}
	if idx := cart.LineIndex(2); idx != 1 {
		t.Fatalf("expected line index 1, got %d", idx)
	}

	clone := cart.Clone()
	clone.Lines[0].Quantity = decimal.NewFromInt(99)
	if !cart.Lines[0].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("clone must not alias original lines")
	}
}
