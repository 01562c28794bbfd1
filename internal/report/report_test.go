package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"bbkbilling/backend/internal/domain"
	"bbkbilling/backend/internal/store"
	"bbkbilling/backend/internal/store/memory"
)

func line(desc string, qty, rate string) domain.LineItem {
	q, _ := decimal.NewFromString(qty)
	r, _ := decimal.NewFromString(rate)
	return domain.LineItem{
		Description: desc,
		Quantity:    q,
		UnitPrice:   r,
		LineTotal:   domain.LineTotal(q, r),
	}
}

func commit(t *testing.T, ledger *memory.Store, number, date, mode string, lines ...domain.LineItem) {
	t.Helper()
	err := ledger.Commit(context.Background(), domain.CommittedInvoice{
		InvoiceNumber: number,
		Date:          date,
		PaymentMode:   mode,
		Lines:         lines,
	})
	if err != nil {
		t.Fatalf("Commit %s: %v", number, err)
	}
}

func TestDailySummaryTaxSplit(t *testing.T) {
	ledger := memory.New()
	commit(t, ledger, "abc/2024/0001", "2024-01-01", domain.PaymentModeCash,
		line("Soya Oil", "10", "100.00"), line("Palm Oil", "5", "80.00"))

	summary, err := New(ledger).DailySummary(context.Background(), "2024-01-01")
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	if len(summary.Sections) != 2 {
		t.Fatalf("expected Cash and Credit sections, got %d", len(summary.Sections))
	}

	cash := summary.Sections[0]
	if cash.PaymentMode != domain.PaymentModeCash {
		t.Fatalf("first section mode = %q, want Cash", cash.PaymentMode)
	}
	if len(cash.Rows) != 2 {
		t.Fatalf("cash rows = %d, want 2", len(cash.Rows))
	}
	// (mode, description) ascending puts Palm Oil first.
	if cash.Rows[0].Description != "Palm Oil" || cash.Rows[0].Amount.StringFixed(2) != "400.00" {
		t.Fatalf("row 0 = %+v", cash.Rows[0])
	}
	if cash.Rows[1].Description != "Soya Oil" || cash.Rows[1].Amount.StringFixed(2) != "1000.00" {
		t.Fatalf("row 1 = %+v", cash.Rows[1])
	}
	if cash.Subtotal.StringFixed(2) != "1400.00" {
		t.Fatalf("subtotal = %s, want 1400.00", cash.Subtotal)
	}
	if cash.Tax.StringFixed(2) != "70.00" {
		t.Fatalf("tax = %s, want 70.00", cash.Tax)
	}
	if cash.Total.StringFixed(2) != "1470.00" {
		t.Fatalf("total = %s, want 1470.00", cash.Total)
	}

	credit := summary.Sections[1]
	if len(credit.Rows) != 0 || !credit.Subtotal.IsZero() {
		t.Fatalf("credit section should be empty, got %+v", credit)
	}
	if summary.GrandTotal.StringFixed(2) != "1470.00" {
		t.Fatalf("grand total = %s, want 1470.00", summary.GrandTotal)
	}
}

func TestCancelMovesInvoiceBetweenReports(t *testing.T) {
	ledger := memory.New()
	ctx := context.Background()
	commit(t, ledger, "abc/2024/0001", "2024-01-01", domain.PaymentModeCash,
		line("Soya Oil", "10", "100.00"))
	commit(t, ledger, "abc/2024/0002", "2024-01-01", domain.PaymentModeCash,
		line("Palm Oil", "5", "80.00"))
	if err := ledger.Cancel(ctx, "abc/2024/0001"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	agg := New(ledger)

	detailed, err := agg.Detailed(ctx, "2024-01-01")
	if err != nil {
		t.Fatalf("Detailed: %v", err)
	}
	cash := detailed.Sections[0]
	if len(cash.Rows) != 1 || cash.Rows[0].InvoiceNumber != "abc/2024/0002" {
		t.Fatalf("detailed cash rows = %+v", cash.Rows)
	}
	if cash.Subtotal.StringFixed(2) != "400.00" {
		t.Fatalf("detailed subtotal = %s, want 400.00", cash.Subtotal)
	}
	if detailed.GrandTotal.StringFixed(2) != "420.00" {
		t.Fatalf("detailed grand total = %s, want 420.00", detailed.GrandTotal)
	}

	cancelled, err := agg.Cancelled(ctx, "2024-01-01")
	if err != nil {
		t.Fatalf("Cancelled: %v", err)
	}
	if len(cancelled.Rows) != 1 || cancelled.Rows[0].InvoiceNumber != "abc/2024/0001" {
		t.Fatalf("cancelled rows = %+v", cancelled.Rows)
	}
	// Cancelled figures carry no tax.
	if cancelled.Total.StringFixed(2) != "1000.00" {
		t.Fatalf("cancelled total = %s, want 1000.00", cancelled.Total)
	}
}

func TestListInvoices(t *testing.T) {
	ledger := memory.New()
	commit(t, ledger, "abc/2024/0002", "2024-01-02", domain.PaymentModeCredit,
		line("Soya Oil", "1", "50.00"))
	commit(t, ledger, "abc/2024/0001", "2024-01-01", domain.PaymentModeCash,
		line("Soya Oil", "10", "100.00"), line("Palm Oil", "5", "80.00"))

	rows, err := New(ledger).ListInvoices(context.Background(), store.QueryFilter{})
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 invoices, got %d", len(rows))
	}
	if rows[0].InvoiceNumber != "abc/2024/0001" || rows[0].Amount.StringFixed(2) != "1400.00" {
		t.Fatalf("row 0 = %+v", rows[0])
	}
}

func TestInvoiceDetail(t *testing.T) {
	ledger := memory.New()
	ctx := context.Background()
	commit(t, ledger, "abc/2024/0001", "2024-01-01", domain.PaymentModeCash,
		line("Soya Oil", "10", "100.00"), line("Palm Oil", "5", "80.00"))

	detail, err := New(ledger).InvoiceDetail(ctx, "abc/2024/0001")
	if err != nil {
		t.Fatalf("InvoiceDetail: %v", err)
	}
	if len(detail.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(detail.Lines))
	}
	if detail.Subtotal.StringFixed(2) != "1400.00" ||
		detail.Tax.StringFixed(2) != "70.00" ||
		detail.Total.StringFixed(2) != "1470.00" {
		t.Fatalf("detail totals = %s/%s/%s", detail.Subtotal, detail.Tax, detail.Total)
	}

	if _, err := New(ledger).InvoiceDetail(ctx, "abc/2024/9999"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown invoice err = %v, want ErrNotFound", err)
	}

	if err := ledger.Cancel(ctx, "abc/2024/0001"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	detail, err = New(ledger).InvoiceDetail(ctx, "abc/2024/0001")
	if err != nil {
		t.Fatalf("InvoiceDetail after cancel: %v", err)
	}
	if len(detail.Lines) != 0 || !detail.Subtotal.IsZero() {
		t.Fatalf("cancelled detail should have no active lines, got %+v", detail)
	}
}

func TestRenderDailySummaryLayout(t *testing.T) {
	ledger := memory.New()
	commit(t, ledger, "abc/2024/0001", "2024-01-01", domain.PaymentModeCash,
		line("Soya Oil", "10", "100.00"))

	summary, err := New(ledger).DailySummary(context.Background(), "2024-01-01")
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	text := RenderDailySummary(summary)

	for _, want := range []string{"DAILY SALES SUMMARY", "2024-01-01", "[Cash]", "Soya Oil", "1000.00", "GST 5%", "1050.00", "GRAND TOTAL"} {
		if !strings.Contains(text, want) {
			t.Fatalf("rendered summary missing %q:\n%s", want, text)
		}
	}
	for _, ln := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if len(ln) > 42 {
			t.Fatalf("line exceeds 42 columns: %q", ln)
		}
	}
}

func TestRenderDetailedLayout(t *testing.T) {
	ledger := memory.New()
	commit(t, ledger, "abc/2024/0001", "2024-01-01", domain.PaymentModeCash,
		line("Soya Oil", "10", "100.00"))

	detailed, err := New(ledger).Detailed(context.Background(), "2024-01-01")
	if err != nil {
		t.Fatalf("Detailed: %v", err)
	}
	text := RenderDetailed(detailed)

	for _, want := range []string{"DETAILED SALES REPORT", "abc/2024/0001", "100.00", "1000.00"} {
		if !strings.Contains(text, want) {
			t.Fatalf("rendered detailed report missing %q:\n%s", want, text)
		}
	}
	for _, ln := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if len(ln) > 67 {
			t.Fatalf("line exceeds 67 columns: %q", ln)
		}
	}
}

func TestClipAndCenterCountRunes(t *testing.T) {
	// 10 runes, far more bytes.
	name := "सरसों तेल1"

	if got := clip(name, 10); got != name {
		t.Fatalf("clip(%q, 10) = %q, want unchanged", name, got)
	}
	clipped := clip(name, 4)
	if got := []rune(clipped); len(got) != 4 {
		t.Fatalf("clip(%q, 4) = %q, want 4 runes", name, clipped)
	}

	centered := center(name, 20)
	if pad := (20 - 10) / 2; !strings.HasPrefix(centered, strings.Repeat(" ", pad)) {
		t.Fatalf("center(%q, 20) = %q, want %d leading spaces", name, centered, pad)
	}
	if got := center(name, 5); got != name {
		t.Fatalf("center wider than field = %q, want unchanged", got)
	}
}

func TestRenderReceipt(t *testing.T) {
	inv := domain.CommittedInvoice{
		InvoiceNumber: "abc/2024/0001",
		Date:          "2024-01-01",
		PaymentMode:   domain.PaymentModeCash,
		Lines: []domain.LineItem{
			line("Soya Oil", "10", "100.00"),
			line("Palm Oil", "5", "80.00"),
		},
	}
	text := RenderReceipt(inv)

	for _, want := range []string{"INVOICE abc/2024/0001", "1400.00", "70.00", "1470.00"} {
		if !strings.Contains(text, want) {
			t.Fatalf("receipt missing %q:\n%s", want, text)
		}
	}
}
