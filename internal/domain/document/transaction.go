package document

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/myfin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Collection is the document store collection for transactions
const Collection = "transactions"

// Category groups documents for reporting
type Category string

const (
	CategoryIncome   Category = "Income"
	CategoryExpense  Category = "Expense"
	CategoryInternal Category = "Internal"
)

// LineItem is one billable line of a document. ProductID links the line
// to a stocked product for deduction on completed sales; it is empty for
// free-text service lines.
type LineItem struct {
	Desc      string  `bson:"desc" json:"desc"`
	Unit      string  `bson:"unit" json:"unit"`
	Qty       float64 `bson:"qty" json:"qty"`
	Price     float64 `bson:"price" json:"price"`
	ProductID string  `bson:"product_id,omitempty" json:"product_id,omitempty"`
	Variant   string  `bson:"variant,omitempty" json:"variant,omitempty"`
}

// HistoryEntry is one append-only status record. The first entry of every
// persisted document records its creation.
type HistoryEntry struct {
	Date   time.Time `bson:"date" json:"date"`
	Status Status    `bson:"status" json:"status"`
	Note   string    `bson:"note" json:"note"`
}

// Receipt is the blob storage descriptor persisted alongside an expense
type Receipt struct {
	URL  string `bson:"url" json:"url"`
	Path string `bson:"path" json:"path"`
	Type string `bson:"type" json:"type"`
	Name string `bson:"name" json:"name"`
}

// Transaction is a financial document: Quote, Invoice, Purchase Order or
// Payment Voucher. CompanyID equals the tenant active at creation and is
// never empty once persisted.
type Transaction struct {
	ID        string         `bson:"_id,omitempty" json:"id"`
	CompanyID string         `bson:"company_id" json:"company_id"`
	ClientID  string         `bson:"client_id" json:"client_id"`
	Type      Type           `bson:"type" json:"type"`
	Category  Category       `bson:"category" json:"category"`
	Number    string         `bson:"number" json:"number"`
	Date      time.Time      `bson:"date" json:"date"`
	Status    Status         `bson:"status" json:"status"`
	Items     []LineItem     `bson:"items" json:"items"`
	TaxRate   float64        `bson:"tax_rate" json:"tax_rate"`
	Total     float64        `bson:"total" json:"total"`
	Notes     string         `bson:"notes,omitempty" json:"notes,omitempty"`
	History   []HistoryEntry `bson:"history" json:"history"`
	Receipt   *Receipt       `bson:"receipt,omitempty" json:"receipt,omitempty"`
}

// NewNumber generates a display number for a document of the given type,
// e.g. "QT-583201". Numbers are human-facing; uniqueness is best-effort.
func NewNumber(t Type, at time.Time) string {
	ms := fmt.Sprintf("%d", at.UnixMilli())
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return t.NumberPrefix() + "-" + ms
}

// Subtotal is the sum of qty x price over the current items
func (tx *Transaction) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range tx.Items {
		line := decimal.NewFromFloat(item.Qty).Mul(decimal.NewFromFloat(item.Price))
		sum = sum.Add(line)
	}
	return sum
}

// TaxAmount is subtotal x taxRate/100
func (tx *Transaction) TaxAmount() decimal.Decimal {
	rate := decimal.NewFromFloat(tx.TaxRate).Div(decimal.NewFromInt(100))
	return tx.Subtotal().Mul(rate)
}

// ComputeTotal computes and caches the document total from the current
// items and tax rate, rounded to 2 decimals. Totals are computed at save
// time, never recomputed from persisted items later.
func (tx *Transaction) ComputeTotal() {
	total := tx.Subtotal().Add(tx.TaxAmount()).Round(2)
	tx.Total, _ = total.Float64()
}

// appendHistory appends one entry; history is append-only and
// insertion-ordered.
func (tx *Transaction) appendHistory(at time.Time, status Status, note string) {
	tx.History = append(tx.History, HistoryEntry{Date: at, Status: status, Note: note})
}

// RecordCreation appends the creation entry; it is always the first
// history entry of a persisted document.
func (tx *Transaction) RecordCreation(at time.Time) {
	tx.appendHistory(at, tx.Status, "Document Created")
}

// RecordTransition appends a transition entry embedding the prior status
// iff the status actually changed. Returns true when an entry was added.
// A status mutation and its history entry are always applied together.
func (tx *Transaction) RecordTransition(prev Status, at time.Time) bool {
	if prev == tx.Status {
		return false
	}
	tx.appendHistory(at, tx.Status, fmt.Sprintf("Status changed from %s", prev))
	return true
}

// Convertible reports whether the document can be fanned out into an
// Invoice and Purchase Order. Only non-converted Quotes qualify; the
// precondition is enforced here at the data layer, not just in the UI.
func (tx *Transaction) Convertible() error {
	if tx.Type != TypeQuote {
		return shared.ErrInvalidState
	}
	if tx.Status == StatusConverted {
		return shared.ErrAlreadyConverted
	}
	return nil
}

// MarkConverted transitions the quote to Converted with its history entry
func (tx *Transaction) MarkConverted(at time.Time) {
	tx.Status = StatusConverted
	tx.appendHistory(at, StatusConverted, "Quote Accepted & Converted")
}

// clone copies the document content (items, party, tax) into a fresh
// document of the given type with a new identity and provenance history.
func (tx *Transaction) clone(t Type, at time.Time) *Transaction {
	items := make([]LineItem, len(tx.Items))
	copy(items, tx.Items)

	derived := &Transaction{
		ID:        uuid.NewString(),
		CompanyID: tx.CompanyID,
		ClientID:  tx.ClientID,
		Type:      t,
		Category:  t.DefaultCategory(),
		Number:    NewNumber(t, at),
		Date:      at,
		Status:    t.InitialStatus(),
		Items:     items,
		TaxRate:   tx.TaxRate,
		Total:     tx.Total,
		Notes:     tx.Notes,
	}
	derived.appendHistory(at, derived.Status, "Generated from Quote "+tx.Number)
	return derived
}

// CloneAsInvoice derives the Invoice half of a quote conversion
func (tx *Transaction) CloneAsInvoice(at time.Time) *Transaction {
	return tx.clone(TypeInvoice, at)
}

// CloneAsPurchaseOrder derives the Purchase Order half of a quote conversion
func (tx *Transaction) CloneAsPurchaseOrder(at time.Time) *Transaction {
	po := tx.clone(TypePurchaseOrder, at)
	po.Notes = "Internal Delivery / Work Order"
	return po
}
