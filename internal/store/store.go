package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"bbkbilling/backend/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrEmptyInvoice     = errors.New("invoice has no lines")
	ErrOutOfRange       = errors.New("line index out of range")
	ErrPermissionDenied = errors.New("permission denied")
)

// QueryFilter narrows ledger queries. Empty fields match everything.
type QueryFilter struct {
	Date          string
	Status        string
	PaymentMode   string
	InvoiceNumber string
}

// Ledger is the persistent table of committed invoice line rows plus the
// parallel index of issued invoice numbers. Commit, Cancel and EraseAll are
// each a single transaction; no caller observes a half-written invoice.
type Ledger interface {
	// MaxIssuedSequence reports the highest sequence number embedded in an
	// issued invoice number, 0 when none. The row id of invoice_sequence is
	// storage detail; only the embedded number is authoritative, so a gap
	// left by a discarded reservation can never cause a reissue.
	MaxIssuedSequence(ctx context.Context) (int64, error)
	// Commit writes one record per line plus the sequence entry atomically.
	Commit(ctx context.Context, inv domain.CommittedInvoice) error
	// Cancel flips every record of an invoice to Cancelled. Cancelling an
	// already-cancelled invoice is a no-op success; an unknown number is
	// ErrNotFound.
	Cancel(ctx context.Context, invoiceNumber string) error
	// Query returns records matching the filter ordered by the numeric
	// sequence of their invoice numbers.
	Query(ctx context.Context, filter QueryFilter) ([]domain.InvoiceRecord, error)
	// SummarizeByItem groups a date's Active records by payment mode and
	// description, ordered by (payment mode, description) ascending.
	SummarizeByItem(ctx context.Context, date string) ([]domain.ItemSummary, error)
	// SummarizeByInvoice groups matching records by invoice number, ordered
	// by date then invoice number ascending.
	SummarizeByInvoice(ctx context.Context, filter QueryFilter) ([]domain.InvoiceSummary, error)
	// ActiveDailyTotal sums line totals of a date's Active records (pre-tax).
	ActiveDailyTotal(ctx context.Context, date string) (decimal.Decimal, error)
	// EraseAll irreversibly removes every record and sequence entry and
	// resets numbering. Catalog data is unaffected.
	EraseAll(ctx context.Context) error
	Close() error
}
