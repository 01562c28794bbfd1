package invoice

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bbkbilling/backend/internal/domain"
	"bbkbilling/backend/internal/sequence"
	"bbkbilling/backend/internal/store"
)

const (
	StateEmpty     = "empty"
	StateBuilding  = "building"
	StateCommitted = "committed"
	StateDiscarded = "discarded"
)

// Draft is an in-memory, uncommitted invoice. The first line added reserves
// an invoice number through the allocator; nothing is persisted until
// Commit. A committed or discarded draft is finished; the caller starts a
// fresh one for the next sale.
type Draft struct {
	alloc  *sequence.Allocator
	lines  []domain.LineItem
	mode   string
	number string
	state  string
}

func NewDraft(alloc *sequence.Allocator) *Draft {
	return &Draft{
		alloc: alloc,
		lines: make([]domain.LineItem, 0, 8),
		mode:  domain.PaymentModeCash,
		state: StateEmpty,
	}
}

// AddLine parses and appends one line. Quantity must be a positive decimal,
// rate a non-negative decimal; the line total is rounded here and never
// recomputed from a later catalog rate.
func (d *Draft) AddLine(ctx context.Context, description string, quantity string, rate string) error {
	if d.state == StateCommitted || d.state == StateDiscarded {
		return fmt.Errorf("%w: draft is %s", store.ErrInvalidInput, d.state)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return fmt.Errorf("%w: line description cannot be empty", store.ErrInvalidInput)
	}

	qty, err := decimal.NewFromString(strings.TrimSpace(quantity))
	if err != nil || qty.Sign() <= 0 {
		return fmt.Errorf("%w: quantity %q must be a positive number", store.ErrInvalidInput, quantity)
	}
	unitPrice, err := decimal.NewFromString(strings.TrimSpace(rate))
	if err != nil || unitPrice.IsNegative() {
		return fmt.Errorf("%w: rate %q must be a non-negative number", store.ErrInvalidInput, rate)
	}

	if d.number == "" {
		number, err := d.alloc.Next(ctx)
		if err != nil {
			return err
		}
		d.number = number
	}

	d.lines = append(d.lines, domain.LineItem{
		Description: description,
		Quantity:    qty,
		UnitPrice:   unitPrice,
		LineTotal:   domain.LineTotal(qty, unitPrice),
	})
	d.state = StateBuilding
	return nil
}

// RemoveLine deletes the line at a zero-based index.
func (d *Draft) RemoveLine(index int) error {
	if index < 0 || index >= len(d.lines) {
		return fmt.Errorf("%w: index %d of %d lines", store.ErrOutOfRange, index, len(d.lines))
	}
	d.lines = append(d.lines[:index], d.lines[index+1:]...)
	return nil
}

// SetPaymentMode tags the draft Cash or Credit.
func (d *Draft) SetPaymentMode(mode string) error {
	if mode != domain.PaymentModeCash && mode != domain.PaymentModeCredit {
		return fmt.Errorf("%w: payment mode %q", store.ErrInvalidInput, mode)
	}
	d.mode = mode
	return nil
}

func (d *Draft) PaymentMode() string { return d.mode }

// Number reports the reserved invoice number, empty until the first line.
func (d *Draft) Number() string { return d.number }

func (d *Draft) State() string { return d.state }

// Lines returns a copy of the draft's line items.
func (d *Draft) Lines() []domain.LineItem {
	lines := make([]domain.LineItem, len(d.lines))
	copy(lines, d.lines)
	return lines
}

// Total sums the rounded line totals, optionally applying the tax rate.
func (d *Draft) Total(inclTax bool) decimal.Decimal {
	base := decimal.Zero
	for _, line := range d.lines {
		base = base.Add(line.LineTotal)
	}
	if !inclTax {
		return base
	}
	_, incl := domain.TaxSplit(base)
	return incl
}

// Commit atomically persists one record per line plus the sequence entry,
// then clears the draft. A draft with no lines is rejected.
func (d *Draft) Commit(ctx context.Context, ledger store.Ledger, date string) error {
	if len(d.lines) == 0 {
		return store.ErrEmptyInvoice
	}

	inv := domain.CommittedInvoice{
		InvoiceNumber: d.number,
		Date:          date,
		PaymentMode:   d.mode,
		Lines:         d.Lines(),
	}
	if err := ledger.Commit(ctx, inv); err != nil {
		return err
	}

	d.lines = d.lines[:0]
	d.number = ""
	d.state = StateCommitted
	return nil
}

// Discard abandons the draft without persisting. The reserved number is not
// reclaimed; the gap it leaves in the numbering is deliberate.
func (d *Draft) Discard() {
	d.lines = d.lines[:0]
	d.state = StateDiscarded
}
