package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"bbkbilling/backend/internal/domain"
)

// Receipt-style reports are 42 columns wide, the detailed report 67. Both
// are pure string builders; the caller decides where the text goes.
const (
	receiptWidth  = 42
	detailedWidth = 67
)

func receiptRule() string  { return strings.Repeat("-", receiptWidth) }
func detailedRule() string { return strings.Repeat("-", detailedWidth) }

func money(d decimal.Decimal) string { return d.StringFixed(2) }

// RenderDailySummary formats the per-item daily report in the 42-column
// receipt layout.
func RenderDailySummary(summary domain.DailySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", center("DAILY SALES SUMMARY", receiptWidth))
	fmt.Fprintf(&b, "%s\n", center(summary.Date, receiptWidth))
	b.WriteString(receiptRule() + "\n")
	fmt.Fprintf(&b, "%-20s %8s %12s\n", "Item", "Qty", "Amount")
	b.WriteString(receiptRule() + "\n")

	for _, section := range summary.Sections {
		fmt.Fprintf(&b, "[%s]\n", section.PaymentMode)
		for _, row := range section.Rows {
			fmt.Fprintf(&b, "%-20s %8s %12s\n",
				clip(row.Description, 20), row.Quantity.String(), money(row.Amount))
		}
		fmt.Fprintf(&b, "%-20s %8s %12s\n", "Subtotal", "", money(section.Subtotal))
		fmt.Fprintf(&b, "%-20s %8s %12s\n", "GST 5%", "", money(section.Tax))
		fmt.Fprintf(&b, "%-20s %8s %12s\n", "Total", "", money(section.Total))
		b.WriteString(receiptRule() + "\n")
	}
	fmt.Fprintf(&b, "%-20s %8s %12s\n", "GRAND TOTAL", "", money(summary.GrandTotal))
	return b.String()
}

// RenderDetailed formats the per-line daily report in the 67-column layout.
func RenderDetailed(report domain.DetailedReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", center("DETAILED SALES REPORT", detailedWidth))
	fmt.Fprintf(&b, "%s\n", center(report.Date, detailedWidth))
	b.WriteString(detailedRule() + "\n")
	fmt.Fprintf(&b, "%-13s %-20s %8s %10s %12s\n",
		"Invoice", "Item", "Qty", "Rate", "Amount")
	b.WriteString(detailedRule() + "\n")

	for _, section := range report.Sections {
		fmt.Fprintf(&b, "[%s]\n", section.PaymentMode)
		for _, rec := range section.Rows {
			fmt.Fprintf(&b, "%-13s %-20s %8s %10s %12s\n",
				clip(rec.InvoiceNumber, 13), clip(rec.Description, 20),
				rec.Quantity.String(), money(rec.UnitPrice), money(rec.LineTotal))
		}
		fmt.Fprintf(&b, "%-43s %10s %12s\n", "Subtotal", "", money(section.Subtotal))
		fmt.Fprintf(&b, "%-43s %10s %12s\n", "GST 5%", "", money(section.Tax))
		fmt.Fprintf(&b, "%-43s %10s %12s\n", "Total", "", money(section.Total))
		b.WriteString(detailedRule() + "\n")
	}
	fmt.Fprintf(&b, "%-43s %10s %12s\n", "GRAND TOTAL", "", money(report.GrandTotal))
	return b.String()
}

// RenderCancelled formats the cancelled-invoice listing in the 42-column
// receipt layout.
func RenderCancelled(report domain.CancelledReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", center("CANCELLED INVOICES", receiptWidth))
	fmt.Fprintf(&b, "%s\n", center(report.Date, receiptWidth))
	b.WriteString(receiptRule() + "\n")
	fmt.Fprintf(&b, "%-24s %17s\n", "Invoice", "Amount")
	b.WriteString(receiptRule() + "\n")
	for _, row := range report.Rows {
		fmt.Fprintf(&b, "%-24s %17s\n", clip(row.InvoiceNumber, 24), money(row.Amount))
	}
	b.WriteString(receiptRule() + "\n")
	fmt.Fprintf(&b, "%-24s %17s\n", "TOTAL", money(report.Total))
	return b.String()
}

// RenderInvoiceDetail formats one invoice's active lines as a receipt.
func RenderInvoiceDetail(detail domain.InvoiceDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", center("INVOICE "+detail.InvoiceNumber, receiptWidth))
	fmt.Fprintf(&b, "%s\n", center(detail.Date+"  "+detail.PaymentMode, receiptWidth))
	b.WriteString(receiptRule() + "\n")
	fmt.Fprintf(&b, "%-20s %8s %12s\n", "Item", "Qty", "Amount")
	b.WriteString(receiptRule() + "\n")
	for _, rec := range detail.Lines {
		fmt.Fprintf(&b, "%-20s %8s %12s\n",
			clip(rec.Description, 20), rec.Quantity.String(), money(rec.LineTotal))
	}
	b.WriteString(receiptRule() + "\n")
	fmt.Fprintf(&b, "%-20s %8s %12s\n", "Subtotal", "", money(detail.Subtotal))
	fmt.Fprintf(&b, "%-20s %8s %12s\n", "GST 5%", "", money(detail.Tax))
	fmt.Fprintf(&b, "%-20s %8s %12s\n", "Total", "", money(detail.Total))
	return b.String()
}

// RenderReceipt formats a committed (or previewed) invoice as a receipt.
func RenderReceipt(inv domain.CommittedInvoice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", center("INVOICE "+inv.InvoiceNumber, receiptWidth))
	fmt.Fprintf(&b, "%s\n", center(inv.Date+"  "+inv.PaymentMode, receiptWidth))
	b.WriteString(receiptRule() + "\n")
	fmt.Fprintf(&b, "%-20s %8s %12s\n", "Item", "Qty", "Amount")
	b.WriteString(receiptRule() + "\n")
	for _, line := range inv.Lines {
		fmt.Fprintf(&b, "%-20s %8s %12s\n",
			clip(line.Description, 20), line.Quantity.String(), money(line.LineTotal))
	}
	b.WriteString(receiptRule() + "\n")
	base := inv.Subtotal()
	tax, incl := domain.TaxSplit(base)
	fmt.Fprintf(&b, "%-20s %8s %12s\n", "Subtotal", "", money(base))
	fmt.Fprintf(&b, "%-20s %8s %12s\n", "GST 5%", "", money(tax))
	fmt.Fprintf(&b, "%-20s %8s %12s\n", "Total", "", money(incl))
	return b.String()
}

// center and clip count runes, not bytes, so multibyte item names keep
// their column alignment.
func center(s string, width int) string {
	pad := (width - utf8.RuneCountInString(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
