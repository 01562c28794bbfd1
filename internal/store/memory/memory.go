package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"bbkbilling/backend/internal/domain"
	"bbkbilling/backend/internal/store"
)

// Store is an in-memory Ledger used when no database is configured and as
// the fixture for tests. Semantics mirror the SQL implementation, including
// identity reset on EraseAll.
type Store struct {
	mu             sync.RWMutex
	records        []domain.InvoiceRecord
	sequence       []domain.SequenceEntry
	nextRecordID   int64
	nextSequenceID int64
}

func New() *Store {
	return &Store{
		records:        make([]domain.InvoiceRecord, 0, 64),
		sequence:       make([]domain.SequenceEntry, 0, 16),
		nextRecordID:   1,
		nextSequenceID: 1,
	}
}

func (s *Store) MaxIssuedSequence(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	for _, entry := range s.sequence {
		if seq := sequenceValue(entry.InvoiceNumber); seq > max {
			max = seq
		}
	}
	return max, nil
}

// sequenceValue parses the numeric suffix of an invoice number, 0 when the
// number carries none.
func sequenceValue(invoiceNumber string) int64 {
	idx := strings.LastIndex(invoiceNumber, "/")
	if idx < 0 {
		return 0
	}
	seq, err := strconv.ParseInt(invoiceNumber[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return seq
}

func (s *Store) Commit(ctx context.Context, inv domain.CommittedInvoice) error {
	if inv.InvoiceNumber == "" {
		return fmt.Errorf("%w: invoice number cannot be empty", store.ErrInvalidInput)
	}
	if len(inv.Lines) == 0 {
		return store.ErrEmptyInvoice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.sequence {
		if entry.InvoiceNumber == inv.InvoiceNumber {
			return fmt.Errorf("%w: invoice number %q", store.ErrDuplicateKey, inv.InvoiceNumber)
		}
	}

	for _, line := range inv.Lines {
		s.records = append(s.records, domain.InvoiceRecord{
			ID:            s.nextRecordID,
			InvoiceNumber: inv.InvoiceNumber,
			Date:          inv.Date,
			Description:   line.Description,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			LineTotal:     line.LineTotal,
			PaymentMode:   inv.PaymentMode,
			Status:        domain.StatusActive,
		})
		s.nextRecordID++
	}
	s.sequence = append(s.sequence, domain.SequenceEntry{
		ID:            s.nextSequenceID,
		InvoiceNumber: inv.InvoiceNumber,
		Date:          inv.Date,
	})
	s.nextSequenceID++
	return nil
}

func (s *Store) Cancel(ctx context.Context, invoiceNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.records {
		if s.records[i].InvoiceNumber != invoiceNumber {
			continue
		}
		found = true
		s.records[i].Status = domain.StatusCancelled
	}
	if !found {
		return fmt.Errorf("%w: invoice %q", store.ErrNotFound, invoiceNumber)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, filter store.QueryFilter) ([]domain.InvoiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]domain.InvoiceRecord, 0, len(s.records))
	for _, rec := range s.records {
		if !matchRecord(rec, filter) {
			continue
		}
		matches = append(matches, rec)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].InvoiceNumber != matches[j].InvoiceNumber {
			return invoiceNumberLess(matches[i].InvoiceNumber, matches[j].InvoiceNumber)
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}

// invoiceNumberLess orders by the numeric sequence suffix so that 10000
// sorts after 9999 once the zero-padded width is exceeded.
func invoiceNumberLess(a, b string) bool {
	sa, sb := sequenceValue(a), sequenceValue(b)
	if sa != sb {
		return sa < sb
	}
	return a < b
}

func matchRecord(rec domain.InvoiceRecord, filter store.QueryFilter) bool {
	if filter.Date != "" && rec.Date != filter.Date {
		return false
	}
	if filter.Status != "" && rec.Status != filter.Status {
		return false
	}
	if filter.PaymentMode != "" && rec.PaymentMode != filter.PaymentMode {
		return false
	}
	if filter.InvoiceNumber != "" && rec.InvoiceNumber != filter.InvoiceNumber {
		return false
	}
	return true
}

func (s *Store) SummarizeByItem(ctx context.Context, date string) ([]domain.ItemSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type groupKey struct {
		mode string
		desc string
	}
	groups := make(map[groupKey]*domain.ItemSummary)
	for _, rec := range s.records {
		if rec.Date != date || rec.Status != domain.StatusActive {
			continue
		}
		key := groupKey{mode: rec.PaymentMode, desc: rec.Description}
		sum, exists := groups[key]
		if !exists {
			sum = &domain.ItemSummary{PaymentMode: rec.PaymentMode, Description: rec.Description}
			groups[key] = sum
		}
		sum.Quantity = sum.Quantity.Add(rec.Quantity)
		sum.Amount = sum.Amount.Add(rec.LineTotal)
	}

	rows := make([]domain.ItemSummary, 0, len(groups))
	for _, sum := range groups {
		rows = append(rows, *sum)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PaymentMode != rows[j].PaymentMode {
			return rows[i].PaymentMode < rows[j].PaymentMode
		}
		return rows[i].Description < rows[j].Description
	})
	return rows, nil
}

func (s *Store) SummarizeByInvoice(ctx context.Context, filter store.QueryFilter) ([]domain.InvoiceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make(map[string]*domain.InvoiceSummary)
	for _, rec := range s.records {
		if !matchRecord(rec, filter) {
			continue
		}
		sum, exists := groups[rec.InvoiceNumber]
		if !exists {
			sum = &domain.InvoiceSummary{InvoiceNumber: rec.InvoiceNumber, Date: rec.Date}
			groups[rec.InvoiceNumber] = sum
		}
		sum.Amount = sum.Amount.Add(rec.LineTotal)
	}

	rows := make([]domain.InvoiceSummary, 0, len(groups))
	for _, sum := range groups {
		rows = append(rows, *sum)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return invoiceNumberLess(rows[i].InvoiceNumber, rows[j].InvoiceNumber)
	})
	return rows, nil
}

func (s *Store) ActiveDailyTotal(ctx context.Context, date string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, rec := range s.records {
		if rec.Date != date || rec.Status != domain.StatusActive {
			continue
		}
		total = total.Add(rec.LineTotal)
	}
	return total, nil
}

func (s *Store) EraseAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = s.records[:0]
	s.sequence = s.sequence[:0]
	s.nextRecordID = 1
	s.nextSequenceID = 1
	return nil
}

func (s *Store) Close() error { return nil }
