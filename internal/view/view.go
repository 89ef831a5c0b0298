// Package view maps till state into the shapes clients render. Nothing here performs IO.
package view

import (
	"strings"
	"time"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
)

const (
	emptyCatalogMessage = "No products found."
	emptyCartMessage    = "Your cart is empty."
)

// ProductCard is one catalog tile.
type ProductCard struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	PriceLabel  string   `json:"priceLabel"`
	Unit        string   `json:"unit"`
	UnitOptions []string `json:"unitOptions"`
	Image       string   `json:"image,omitempty"`
}

// CatalogView is the product grid plus the search it answers.
type CatalogView struct {
	Query        string        `json:"query"`
	Matched      int           `json:"matched"`
	Products     []ProductCard `json:"products"`
	EmptyMessage string        `json:"emptyMessage,omitempty"`
}

// CartLineView is one row of the cart.
type CartLineView struct {
	ProductID       int    `json:"productId"`
	Name            string `json:"name"`
	Quantity        string `json:"quantity"`
	Unit            string `json:"unit"`
	DisplayQuantity string `json:"displayQuantity"`
	UnitPrice       string `json:"unitPrice"`
	Amount          string `json:"amount"`
}

// CartView is the cart panel and its header badge.
type CartView struct {
	ID           string         `json:"id"`
	Lines        []CartLineView `json:"lines"`
	ItemCount    int            `json:"itemCount"`
	Total        string         `json:"total"`
	TotalLabel   string         `json:"totalLabel"`
	EmptyMessage string         `json:"emptyMessage,omitempty"`
}

// BillLineView is one printed bill row.
type BillLineView struct {
	Name            string `json:"name"`
	DisplayQuantity string `json:"displayQuantity"`
	Amount          string `json:"amount"`
	Text            string `json:"text"`
}

// StoreHeader is the shop block printed above a bill.
type StoreHeader struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// BillView is a printable bill.
type BillView struct {
	ID             string         `json:"id"`
	Store          StoreHeader    `json:"store"`
	Heading        string         `json:"heading"`
	CustomerName   string         `json:"customerName"`
	Phone          string         `json:"phone,omitempty"`
	LedgerKey      string         `json:"ledgerKey"`
	IssuedAt       time.Time      `json:"issuedAt"`
	Date           string         `json:"date"`
	DateLine       string         `json:"dateLine"`
	Lines          []BillLineView `json:"lines"`
	Total          string         `json:"total"`
	TotalLine      string         `json:"totalLine"`
	FooterMarkdown string         `json:"-"`
}

// AdminPriceRow is one editable row of the admin price table.
type AdminPriceRow struct {
	ProductID int    `json:"productId"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Unit      string `json:"unit"`
}

// LedgerRow summarises one customer in the admin ledger.
type LedgerRow struct {
	Key              string `json:"key"`
	BillCount        int    `json:"billCount"`
	LastCustomerName string `json:"lastCustomerName"`
	LastBillDate     string `json:"lastBillDate"`
}

// ProductCards renders one card per product in catalog order.
func ProductCards(products []domain.Product) []ProductCard {
	cards := make([]ProductCard, 0, len(products))
	for _, p := range products {
		cards = append(cards, ProductCardFor(p))
	}
	return cards
}

// ProductCardFor renders a single product.
func ProductCardFor(p domain.Product) ProductCard {
	return ProductCard{
		ID:          p.ID,
		Name:        p.Name,
		Price:       Amount(p.UnitPrice),
		PriceLabel:  Money(p.UnitPrice) + " per " + p.Unit.String(),
		Unit:        p.Unit.String(),
		UnitOptions: unitLabels(p.Unit),
		Image:       p.ImageRef,
	}
}

// Catalog renders a search result. The empty message is only set when nothing matched.
func Catalog(query string, products []domain.Product) CatalogView {
	out := CatalogView{
		Query:    strings.TrimSpace(query),
		Matched:  len(products),
		Products: ProductCards(products),
	}
	if len(products) == 0 {
		out.EmptyMessage = emptyCatalogMessage
	}
	return out
}

// Cart renders the cart panel.
func Cart(cart domain.Cart) CartView {
	lines := make([]CartLineView, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, CartLineView{
			ProductID:       line.ProductID,
			Name:            line.Name,
			Quantity:        line.Quantity.String(),
			Unit:            line.DisplayUnit.String(),
			DisplayQuantity: Quantity(line.Quantity, line.DisplayUnit),
			UnitPrice:       Amount(line.UnitPrice),
			Amount:          Money(line.AccumulatedPrice),
		})
	}
	total := cart.Total()
	out := CartView{
		ID:         cart.ID,
		Lines:      lines,
		ItemCount:  cart.ItemCount(),
		Total:      Amount(total),
		TotalLabel: Money(total),
	}
	if cart.IsEmpty() {
		out.EmptyMessage = emptyCartMessage
	}
	return out
}

// Bill renders a bill for printing. Dates use the store's time zone.
func Bill(bill domain.BillRecord, store domain.Store) BillView {
	date := BillDate(bill.IssuedAt, store.Location)
	lines := make([]BillLineView, 0, len(bill.Lines))
	for _, line := range bill.Lines {
		qty := Quantity(line.Quantity, line.DisplayUnit)
		amount := Money(line.AccumulatedPrice)
		lines = append(lines, BillLineView{
			Name:            line.Name,
			DisplayQuantity: qty,
			Amount:          amount,
			Text:            line.Name + " (" + qty + ") - " + amount,
		})
	}
	return BillView{
		ID:             bill.ID,
		Store:          StoreHeader{Name: store.Name, Address: store.Address},
		Heading:        "Bill for: " + bill.CustomerName,
		CustomerName:   bill.CustomerName,
		Phone:          bill.Phone,
		LedgerKey:      bill.LedgerKey,
		IssuedAt:       bill.IssuedAt,
		Date:           date,
		DateLine:       "Date: " + date,
		Lines:          lines,
		Total:          Amount(bill.Total),
		TotalLine:      "Total Amount: " + Money(bill.Total),
		FooterMarkdown: store.FooterMarkdown,
	}
}

// AdminRows renders the admin price table.
func AdminRows(products []domain.Product) []AdminPriceRow {
	rows := make([]AdminPriceRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, AdminPriceRow{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     Amount(p.UnitPrice),
			Unit:      p.Unit.String(),
		})
	}
	return rows
}

// LedgerRows renders ledger summaries with dates in loc.
func LedgerRows(entries []domain.LedgerEntry, loc *time.Location) []LedgerRow {
	rows := make([]LedgerRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, LedgerRow{
			Key:              entry.Key,
			BillCount:        entry.BillCount,
			LastCustomerName: entry.LastCustomerName,
			LastBillDate:     BillDate(entry.LastIssuedAt, loc),
		})
	}
	return rows
}
