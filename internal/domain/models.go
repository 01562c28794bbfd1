package domain

import "github.com/shopspring/decimal"

// DateFormat is the calendar-day form every persisted record carries.
const DateFormat = "2006-01-02"

const (
	PaymentModeCash   = "Cash"
	PaymentModeCredit = "Credit"
)

const (
	StatusActive    = "Active"
	StatusCancelled = "Cancelled"
)

// GSTRate is the system-wide tax rate applied to pre-tax subtotals.
var GSTRate = decimal.New(5, -2)

// LineTotal computes quantity x unit price rounded to 2 decimal places.
// The result is captured at insertion time and never recomputed.
func LineTotal(qty decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return qty.Mul(rate).Round(2)
}

// TaxSplit applies the tax rate to an aggregated base amount. The base is a
// sum of already-rounded line totals; tax and the inclusive total are each
// rounded once more.
func TaxSplit(base decimal.Decimal) (tax decimal.Decimal, incl decimal.Decimal) {
	tax = base.Mul(GSTRate).Round(2)
	incl = base.Mul(decimal.NewFromInt(1).Add(GSTRate)).Round(2)
	return tax, incl
}

// Item is a sellable catalog entry.
type Item struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	UnitRate    decimal.Decimal `json:"unit_rate"`
	Shortcut    string          `json:"shortcut,omitempty"`
}

// LineItem is one entry within a draft or committed invoice. UnitPrice is the
// rate captured when the line was added, not a live catalog reference.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"total"`
}

// InvoiceRecord is one persisted line row of a committed invoice.
type InvoiceRecord struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	Date          string          `json:"date"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"qty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"total"`
	PaymentMode   string          `json:"payment_mode"`
	Status        string          `json:"status"`
}

// SequenceEntry is the durable issuance record of one invoice number. There
// is exactly one entry per committed invoice regardless of line count.
type SequenceEntry struct {
	ID            int64  `json:"id"`
	InvoiceNumber string `json:"invoice_number"`
	Date          string `json:"date"`
}

// CommittedInvoice is the unit handed to the ledger at commit time: all line
// rows plus the sequence entry, written atomically.
type CommittedInvoice struct {
	InvoiceNumber string     `json:"invoice_number"`
	Date          string     `json:"date"`
	PaymentMode   string     `json:"payment_mode"`
	Lines         []LineItem `json:"lines"`
}

// Subtotal sums the rounded line totals (pre-tax base).
func (inv CommittedInvoice) Subtotal() decimal.Decimal {
	base := decimal.Zero
	for _, line := range inv.Lines {
		base = base.Add(line.LineTotal)
	}
	return base
}

// ItemSummary is one grouped row of the daily summary: Active records for a
// date aggregated by (payment mode, description).
type ItemSummary struct {
	PaymentMode string          `json:"payment_mode"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"qty"`
	Amount      decimal.Decimal `json:"amount"`
}

// InvoiceSummary is one invoice aggregated to its base amount.
type InvoiceSummary struct {
	InvoiceNumber string          `json:"invoice_number"`
	Date          string          `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
}

// SummarySection holds one payment mode's slice of the daily summary with
// the tax split applied to the mode subtotal.
type SummarySection struct {
	PaymentMode string          `json:"payment_mode"`
	Rows        []ItemSummary   `json:"rows"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// DailySummary is the per-item daily sales report.
type DailySummary struct {
	Date       string           `json:"date"`
	Sections   []SummarySection `json:"sections"`
	GrandTotal decimal.Decimal  `json:"grand_total"`
}

// DetailedSection lists every Active record of one payment mode for a date,
// ordered by invoice number.
type DetailedSection struct {
	PaymentMode string          `json:"payment_mode"`
	Rows        []InvoiceRecord `json:"rows"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// DetailedReport is the per-line daily sales report.
type DetailedReport struct {
	Date       string            `json:"date"`
	Sections   []DetailedSection `json:"sections"`
	GrandTotal decimal.Decimal   `json:"grand_total"`
}

// CancelledReport lists cancelled invoices for a date with their base
// amounts. No tax is applied to cancelled figures.
type CancelledReport struct {
	Date  string           `json:"date"`
	Rows  []InvoiceSummary `json:"rows"`
	Total decimal.Decimal  `json:"total"`
}

// InvoiceDetail is the Active-line view of a single committed invoice.
type InvoiceDetail struct {
	InvoiceNumber string          `json:"invoice_number"`
	Date          string          `json:"date"`
	PaymentMode   string          `json:"payment_mode"`
	Lines         []InvoiceRecord `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
}

// TodayTotal is the running sales figure for a date over Active records.
type TodayTotal struct {
	Date    string          `json:"date"`
	Base    decimal.Decimal `json:"base"`
	Tax     decimal.Decimal `json:"tax"`
	InclTax decimal.Decimal `json:"incl_tax"`
}
