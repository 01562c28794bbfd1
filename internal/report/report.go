package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"bbkbilling/backend/internal/domain"
	"bbkbilling/backend/internal/store"
)

// paymentModes fixes the section order of the daily reports.
var paymentModes = []string{domain.PaymentModeCash, domain.PaymentModeCredit}

// Aggregator is the read side of the ledger. It never mutates anything; it
// shapes query results into the report structures and applies the tax split
// to aggregated base amounts.
type Aggregator struct {
	ledger store.Ledger
}

func New(ledger store.Ledger) *Aggregator {
	return &Aggregator{ledger: ledger}
}

// DailySummary groups a date's Active records by item within each payment
// mode. Tax is applied per mode on the summed base, never per line.
func (a *Aggregator) DailySummary(ctx context.Context, date string) (domain.DailySummary, error) {
	rows, err := a.ledger.SummarizeByItem(ctx, date)
	if err != nil {
		return domain.DailySummary{}, err
	}

	summary := domain.DailySummary{Date: date, GrandTotal: decimal.Zero}
	for _, mode := range paymentModes {
		section := domain.SummarySection{
			PaymentMode: mode,
			Rows:        make([]domain.ItemSummary, 0, len(rows)),
			Subtotal:    decimal.Zero,
		}
		for _, row := range rows {
			if row.PaymentMode != mode {
				continue
			}
			section.Rows = append(section.Rows, row)
			section.Subtotal = section.Subtotal.Add(row.Amount)
		}
		section.Tax, section.Total = domain.TaxSplit(section.Subtotal)
		summary.GrandTotal = summary.GrandTotal.Add(section.Total)
		summary.Sections = append(summary.Sections, section)
	}
	return summary, nil
}

// Detailed lists every Active record of a date per payment mode, ordered by
// invoice number, with the same per-mode tax split as the daily summary.
func (a *Aggregator) Detailed(ctx context.Context, date string) (domain.DetailedReport, error) {
	records, err := a.ledger.Query(ctx, store.QueryFilter{
		Date:   date,
		Status: domain.StatusActive,
	})
	if err != nil {
		return domain.DetailedReport{}, err
	}

	report := domain.DetailedReport{Date: date, GrandTotal: decimal.Zero}
	for _, mode := range paymentModes {
		section := domain.DetailedSection{
			PaymentMode: mode,
			Rows:        make([]domain.InvoiceRecord, 0, len(records)),
			Subtotal:    decimal.Zero,
		}
		for _, rec := range records {
			if rec.PaymentMode != mode {
				continue
			}
			section.Rows = append(section.Rows, rec)
			section.Subtotal = section.Subtotal.Add(rec.LineTotal)
		}
		section.Tax, section.Total = domain.TaxSplit(section.Subtotal)
		report.GrandTotal = report.GrandTotal.Add(section.Total)
		report.Sections = append(report.Sections, section)
	}
	return report, nil
}

// Cancelled lists a date's cancelled invoices with their base amounts. The
// total carries no tax; cancelled figures are informational only.
func (a *Aggregator) Cancelled(ctx context.Context, date string) (domain.CancelledReport, error) {
	rows, err := a.ledger.SummarizeByInvoice(ctx, store.QueryFilter{
		Date:   date,
		Status: domain.StatusCancelled,
	})
	if err != nil {
		return domain.CancelledReport{}, err
	}

	report := domain.CancelledReport{Date: date, Rows: rows, Total: decimal.Zero}
	for _, row := range rows {
		report.Total = report.Total.Add(row.Amount)
	}
	return report, nil
}

// ListInvoices returns every invoice matching the filter, one row per
// invoice with its base amount.
func (a *Aggregator) ListInvoices(ctx context.Context, filter store.QueryFilter) ([]domain.InvoiceSummary, error) {
	return a.ledger.SummarizeByInvoice(ctx, filter)
}

// InvoiceDetail returns one invoice's Active rows with the tax split on
// their summed base. A number never issued is ErrNotFound; a fully
// cancelled invoice comes back with no lines and zero totals.
func (a *Aggregator) InvoiceDetail(ctx context.Context, invoiceNumber string) (domain.InvoiceDetail, error) {
	records, err := a.ledger.Query(ctx, store.QueryFilter{InvoiceNumber: invoiceNumber})
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	if len(records) == 0 {
		return domain.InvoiceDetail{}, fmt.Errorf("%w: invoice %q", store.ErrNotFound, invoiceNumber)
	}

	detail := domain.InvoiceDetail{
		InvoiceNumber: invoiceNumber,
		Date:          records[0].Date,
		PaymentMode:   records[0].PaymentMode,
		Lines:         make([]domain.InvoiceRecord, 0, len(records)),
		Subtotal:      decimal.Zero,
	}
	for _, rec := range records {
		if rec.Status != domain.StatusActive {
			continue
		}
		detail.Lines = append(detail.Lines, rec)
		detail.Subtotal = detail.Subtotal.Add(rec.LineTotal)
	}
	detail.Tax, detail.Total = domain.TaxSplit(detail.Subtotal)
	return detail, nil
}
