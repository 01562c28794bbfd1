package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"bbkbilling/backend/internal/domain"
	"bbkbilling/backend/internal/store"
)

func line(desc string, qty, rate int64) domain.LineItem {
	q := decimal.NewFromInt(qty)
	r := decimal.NewFromInt(rate)
	return domain.LineItem{
		Description: desc,
		Quantity:    q,
		UnitPrice:   r,
		LineTotal:   domain.LineTotal(q, r),
	}
}

func commit(t *testing.T, s *Store, number, date, mode string, lines ...domain.LineItem) {
	t.Helper()
	err := s.Commit(context.Background(), domain.CommittedInvoice{
		InvoiceNumber: number,
		Date:          date,
		PaymentMode:   mode,
		Lines:         lines,
	})
	if err != nil {
		t.Fatalf("Commit %s: %v", number, err)
	}
}

func TestCommitAndQuery(t *testing.T) {
	s := New()
	ctx := context.Background()

	commit(t, s, "abc/2024/0001", "2024-01-01", domain.PaymentModeCash,
		line("Soya Oil", 10, 100), line("Palm Oil", 5, 80))

	records, err := s.Query(ctx, store.QueryFilter{InvoiceNumber: "abc/2024/0001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != 1 || records[1].ID != 2 {
		t.Fatalf("record ids = %d, %d, want 1, 2", records[0].ID, records[1].ID)
	}
	for _, rec := range records {
		if rec.Status != domain.StatusActive {
			t.Fatalf("status = %q, want Active", rec.Status)
		}
	}

	maxID, err := s.MaxIssuedSequence(ctx)
	if err != nil {
		t.Fatalf("MaxIssuedSequence: %v", err)
	}
	if maxID != 1 {
		t.Fatalf("max sequence id = %d, want 1", maxID)
	}
}

func TestCommitValidation(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Commit(ctx, domain.CommittedInvoice{InvoiceNumber: "", Lines: []domain.LineItem{line("Soya Oil", 1, 10)}})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("empty number err = %v, want ErrInvalidInput", err)
	}

	err = s.Commit(ctx, domain.CommittedInvoice{InvoiceNumber: "abc/2024/0001"})
	if !errors.Is(err, store.ErrEmptyInvoice) {
		t.Fatalf("no lines err = %v, want ErrEmptyInvoice", err)
	}

	commit(t, s, "abc/2024/0001", "2024-01-01", domain.PaymentModeCash, line("Soya Oil", 1, 10))
	err = s.Commit(ctx, domain.CommittedInvoice{
		InvoiceNumber: "abc/2024/0001",
		Date:          "2024-01-01",
		PaymentMode:   domain.PaymentModeCash,
		Lines:         []domain.LineItem{line("Palm Oil", 1, 10)},
	})
	if !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("duplicate number err = %v, want ErrDuplicateKey", err)
	}
}

func TestCancel(t *testing.T) {
	s := New()
	ctx := context.Background()

	commit(t, s, "abc/2024/0001", "2024-01-01", domain.PaymentModeCash,
		line("Soya Oil", 10, 100), line("Palm Oil", 5, 80))

	if err := s.Cancel(ctx, "abc/2024/0001"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	records, _ := s.Query(ctx, store.QueryFilter{InvoiceNumber: "abc/2024/0001"})
	for _, rec := range records {
		if rec.Status != domain.StatusCancelled {
			t.Fatalf("status = %q, want Cancelled", rec.Status)
		}
	}

	// Idempotent on an already-cancelled invoice.
	if err := s.Cancel(ctx, "abc/2024/0001"); err != nil {
		t.Fatalf("repeat Cancel: %v", err)
	}

	if err := s.Cancel(ctx, "abc/2024/9999"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Cancel unknown = %v, want ErrNotFound", err)
	}
}

func TestQueryFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	commit(t, s, "abc/2024/0001", "2024-01-01", domain.PaymentModeCash, line("Soya Oil", 1, 10))
	commit(t, s, "abc/2024/0002", "2024-01-01", domain.PaymentModeCredit, line("Palm Oil", 2, 20))
	commit(t, s, "abc/2024/0003", "2024-01-02", domain.PaymentModeCash, line("Soya Oil", 3, 30))
	if err := s.Cancel(ctx, "abc/2024/0001"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	byDate, _ := s.Query(ctx, store.QueryFilter{Date: "2024-01-01"})
	if len(byDate) != 2 {
		t.Fatalf("date filter: got %d records, want 2", len(byDate))
	}

	active, _ := s.Query(ctx, store.QueryFilter{Date: "2024-01-01", Status: domain.StatusActive})
	if len(active) != 1 || active[0].InvoiceNumber != "abc/2024/0002" {
		t.Fatalf("active filter: got %+v", active)
	}

	cash, _ := s.Query(ctx, store.QueryFilter{PaymentMode: domain.PaymentModeCash})
	if len(cash) != 2 {
		t.Fatalf("mode filter: got %d records, want 2", len(cash))
	}

	all, _ := s.Query(ctx, store.QueryFilter{})
	if len(all) != 3 {
		t.Fatalf("no filter: got %d records, want 3", len(all))
	}
	// Ordered by invoice number.
	if all[0].InvoiceNumber != "abc/2024/0001" || all[2].InvoiceNumber != "abc/2024/0003" {
		t.Fatalf("unexpected order: %q .. %q", all[0].InvoiceNumber, all[2].InvoiceNumber)
	}
}

func TestQueryOrdersNumericallyPastPaddedWidth(t *testing.T) {
	s := New()
	ctx := context.Background()

	commit(t, s, "abc/2024/10000", "2024-01-01", domain.PaymentModeCash, line("Soya Oil", 1, 10))
	commit(t, s, "abc/2024/9999", "2024-01-01", domain.PaymentModeCash, line("Palm Oil", 1, 10))

	records, err := s.Query(ctx, store.QueryFilter{Date: "2024-01-01"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if records[0].InvoiceNumber != "abc/2024/9999" || records[1].InvoiceNumber != "abc/2024/10000" {
		t.Fatalf("order = %q, %q; want 9999 before 10000",
			records[0].InvoiceNumber, records[1].InvoiceNumber)
	}

	rows, err := s.SummarizeByInvoice(ctx, store.QueryFilter{})
	if err != nil {
		t.Fatalf("SummarizeByInvoice: %v", err)
	}
	if rows[0].InvoiceNumber != "abc/2024/9999" || rows[1].InvoiceNumber != "abc/2024/10000" {
		t.Fatalf("summary order = %q, %q; want 9999 before 10000",
			rows[0].InvoiceNumber, rows[1].InvoiceNumber)
	}

	max, err := s.MaxIssuedSequence(ctx)
	if err != nil {
		t.Fatalf("MaxIssuedSequence: %v", err)
	}
	if max != 10000 {
		t.Fatalf("max issued sequence = %d, want 10000", max)
	}
}

func TestSummarizeByItem(t *testing.T) {
	s := New()
	ctx := context.Background()

	commit(t, s, "abc/2024/0001", "2024-01-01", domain.PaymentModeCash,
		line("Soya Oil", 10, 100), line("Palm Oil", 5, 80))
	commit(t, s, "abc/2024/0002", "2024-01-01", domain.PaymentModeCash, line("Soya Oil", 2, 100))
	commit(t, s, "abc/2024/0003", "2024-01-01", domain.PaymentModeCredit, line("Soya Oil", 1, 100))
	commit(t, s, "abc/2024/0004", "2024-01-02", domain.PaymentModeCash, line("Soya Oil", 7, 100))

	rows, err := s.SummarizeByItem(ctx, "2024-01-01")
	if err != nil {
		t.Fatalf("SummarizeByItem: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 grouped rows, got %d", len(rows))
	}
	// (mode, description) ascending: Cash/Palm, Cash/Soya, Credit/Soya.
	if rows[0].Description != "Palm Oil" || rows[0].PaymentMode != domain.PaymentModeCash {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if rows[1].Description != "Soya Oil" || rows[1].Quantity.StringFixed(0) != "12" {
		t.Fatalf("row 1 = %+v", rows[1])
	}
	if rows[1].Amount.StringFixed(2) != "1200.00" {
		t.Fatalf("cash soya amount = %s, want 1200.00", rows[1].Amount)
	}
	if rows[2].PaymentMode != domain.PaymentModeCredit {
		t.Fatalf("row 2 = %+v", rows[2])
	}
}

func TestSummarizeByInvoice(t *testing.T) {
	s := New()
	ctx := context.Background()

	commit(t, s, "abc/2024/0002", "2024-01-02", domain.PaymentModeCash, line("Soya Oil", 1, 50))
	commit(t, s, "abc/2024/0001", "2024-01-01", domain.PaymentModeCash,
		line("Soya Oil", 10, 100), line("Palm Oil", 5, 80))

	rows, err := s.SummarizeByInvoice(ctx, store.QueryFilter{})
	if err != nil {
		t.Fatalf("SummarizeByInvoice: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// Date then invoice number ascending.
	if rows[0].InvoiceNumber != "abc/2024/0001" {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if rows[0].Amount.StringFixed(2) != "1400.00" {
		t.Fatalf("amount = %s, want 1400.00", rows[0].Amount)
	}
}

func TestActiveDailyTotal(t *testing.T) {
	s := New()
	ctx := context.Background()

	commit(t, s, "abc/2024/0001", "2024-01-01", domain.PaymentModeCash, line("Soya Oil", 10, 100))
	commit(t, s, "abc/2024/0002", "2024-01-01", domain.PaymentModeCredit, line("Palm Oil", 5, 80))

	total, err := s.ActiveDailyTotal(ctx, "2024-01-01")
	if err != nil {
		t.Fatalf("ActiveDailyTotal: %v", err)
	}
	if total.StringFixed(2) != "1400.00" {
		t.Fatalf("total = %s, want 1400.00", total)
	}

	if err := s.Cancel(ctx, "abc/2024/0001"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	total, _ = s.ActiveDailyTotal(ctx, "2024-01-01")
	if total.StringFixed(2) != "400.00" {
		t.Fatalf("total after cancel = %s, want 400.00", total)
	}
}

func TestEraseAllResetsIdentity(t *testing.T) {
	s := New()
	ctx := context.Background()

	commit(t, s, "abc/2024/0001", "2024-01-01", domain.PaymentModeCash, line("Soya Oil", 1, 10))
	commit(t, s, "abc/2024/0002", "2024-01-01", domain.PaymentModeCash, line("Palm Oil", 1, 10))

	if err := s.EraseAll(ctx); err != nil {
		t.Fatalf("EraseAll: %v", err)
	}

	records, _ := s.Query(ctx, store.QueryFilter{})
	if len(records) != 0 {
		t.Fatalf("expected empty ledger, got %d records", len(records))
	}
	maxID, _ := s.MaxIssuedSequence(ctx)
	if maxID != 0 {
		t.Fatalf("max sequence id after erase = %d, want 0", maxID)
	}

	commit(t, s, "abc/2024/0001", "2024-01-02", domain.PaymentModeCash, line("Soya Oil", 1, 10))
	maxID, _ = s.MaxIssuedSequence(ctx)
	if maxID != 1 {
		t.Fatalf("max sequence id after fresh commit = %d, want 1", maxID)
	}
	records, _ = s.Query(ctx, store.QueryFilter{})
	if records[0].ID != 1 {
		t.Fatalf("record id after erase = %d, want 1", records[0].ID)
	}
}
