package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"bbkbilling/backend/internal/cache"
	"bbkbilling/backend/internal/catalog"
	"bbkbilling/backend/internal/domain"
	"bbkbilling/backend/internal/invoice"
	"bbkbilling/backend/internal/report"
	"bbkbilling/backend/internal/sequence"
	"bbkbilling/backend/internal/store"
)

// Service ties the catalog, ledger, allocator, reports and cache together
// behind the operations a front end drives. It owns the single working
// draft; front ends never touch the draft directly.
type Service struct {
	catalog  *catalog.Store
	ledger   store.Ledger
	alloc    *sequence.Allocator
	totals   cache.DailyTotalCache
	reports  *report.Aggregator
	log      *logrus.Logger
	draft    *invoice.Draft
	totalTTL time.Duration
	now      func() time.Time
}

func New(cat *catalog.Store, ledger store.Ledger, alloc *sequence.Allocator, totals cache.DailyTotalCache, totalTTL time.Duration, log *logrus.Logger) *Service {
	return &Service{
		catalog:  cat,
		ledger:   ledger,
		alloc:    alloc,
		totals:   totals,
		reports:  report.New(ledger),
		log:      log,
		draft:    invoice.NewDraft(alloc),
		totalTTL: totalTTL,
		now:      time.Now,
	}
}

// Reports exposes the read-side aggregator.
func (s *Service) Reports() *report.Aggregator { return s.reports }

func (s *Service) AddItem(name, shortcut string) error {
	if err := s.catalog.AddItem(name, shortcut); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"item": name, "shortcut": shortcut}).Info("catalog item added")
	return nil
}

func (s *Service) RemoveItem(name string) error {
	if err := s.catalog.RemoveItem(name); err != nil {
		return err
	}
	s.log.WithField("item", name).Info("catalog item removed")
	return nil
}

func (s *Service) SetRate(name, rate string) error {
	if err := s.catalog.SetRate(name, rate); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"item": name, "rate": rate}).Info("catalog rate updated")
	return nil
}

func (s *Service) ListItems() []domain.Item { return s.catalog.List() }

// AddLine appends a line to the working draft. With an empty rate the
// current catalog rate for the description is captured; an explicit rate
// allows free-text descriptions for items no longer in the catalog.
func (s *Service) AddLine(ctx context.Context, description, quantity, rate string) error {
	if rate == "" {
		item, err := s.catalog.Get(description)
		if err != nil {
			return err
		}
		rate = item.UnitRate.String()
	}
	return s.draft.AddLine(ctx, description, quantity, rate)
}

// AddLineByShortcut resolves a shortcut key to its item and adds a line at
// the catalog rate.
func (s *Service) AddLineByShortcut(ctx context.Context, shortcut, quantity string) error {
	name, err := s.catalog.Resolve(shortcut)
	if err != nil {
		return err
	}
	return s.AddLine(ctx, name, quantity, "")
}

func (s *Service) RemoveLine(index int) error { return s.draft.RemoveLine(index) }

func (s *Service) SetPaymentMode(mode string) error { return s.draft.SetPaymentMode(mode) }

func (s *Service) DraftNumber() string { return s.draft.Number() }

func (s *Service) DraftLines() []domain.LineItem { return s.draft.Lines() }

func (s *Service) DraftTotal(inclTax bool) decimal.Decimal { return s.draft.Total(inclTax) }

// DraftPreview renders the working draft as a receipt without committing.
func (s *Service) DraftPreview() string {
	return report.RenderReceipt(domain.CommittedInvoice{
		InvoiceNumber: s.draft.Number(),
		Date:          s.now().Format(domain.DateFormat),
		PaymentMode:   s.draft.PaymentMode(),
		Lines:         s.draft.Lines(),
	})
}

// CommitInvoice persists the working draft dated today and starts a fresh
// draft. The returned value is the invoice exactly as written.
func (s *Service) CommitInvoice(ctx context.Context) (domain.CommittedInvoice, error) {
	date := s.now().Format(domain.DateFormat)
	committed := domain.CommittedInvoice{
		InvoiceNumber: s.draft.Number(),
		Date:          date,
		PaymentMode:   s.draft.PaymentMode(),
		Lines:         s.draft.Lines(),
	}

	if err := s.draft.Commit(ctx, s.ledger, date); err != nil {
		return domain.CommittedInvoice{}, err
	}
	s.draft = invoice.NewDraft(s.alloc)

	if err := s.totals.Invalidate(ctx, date); err != nil {
		s.log.WithError(err).Warn("daily total cache invalidation failed")
	}
	s.log.WithFields(logrus.Fields{
		"invoice": committed.InvoiceNumber,
		"date":    date,
		"mode":    committed.PaymentMode,
		"lines":   len(committed.Lines),
	}).Info("invoice committed")
	return committed, nil
}

// DiscardDraft abandons the working draft. A reserved number stays consumed.
func (s *Service) DiscardDraft() {
	number := s.draft.Number()
	s.draft.Discard()
	s.draft = invoice.NewDraft(s.alloc)
	if number != "" {
		s.log.WithField("invoice", number).Info("draft discarded")
	}
}

// CancelInvoice flips every row of an invoice to Cancelled and drops the
// cached totals of the dates it touched.
func (s *Service) CancelInvoice(ctx context.Context, invoiceNumber string) error {
	records, err := s.ledger.Query(ctx, store.QueryFilter{InvoiceNumber: invoiceNumber})
	if err != nil {
		return err
	}
	if err := s.ledger.Cancel(ctx, invoiceNumber); err != nil {
		return err
	}

	seen := make(map[string]struct{}, 2)
	for _, rec := range records {
		if _, done := seen[rec.Date]; done {
			continue
		}
		seen[rec.Date] = struct{}{}
		if err := s.totals.Invalidate(ctx, rec.Date); err != nil {
			s.log.WithError(err).Warn("daily total cache invalidation failed")
		}
	}
	s.log.WithField("invoice", invoiceNumber).Info("invoice cancelled")
	return nil
}

// TodayTotal returns today's Active sales figure, cached between ledger
// mutations.
func (s *Service) TodayTotal(ctx context.Context) (domain.TodayTotal, error) {
	date := s.now().Format(domain.DateFormat)

	base, hit, err := s.totals.Get(ctx, date)
	if err != nil {
		s.log.WithError(err).Warn("daily total cache read failed")
		hit = false
	}
	if !hit {
		base, err = s.ledger.ActiveDailyTotal(ctx, date)
		if err != nil {
			return domain.TodayTotal{}, err
		}
		if err := s.totals.Set(ctx, date, base, s.totalTTL); err != nil {
			s.log.WithError(err).Warn("daily total cache write failed")
		}
	}

	tax, incl := domain.TaxSplit(base)
	return domain.TodayTotal{Date: date, Base: base, Tax: tax, InclTax: incl}, nil
}

// EraseAll wipes the ledger and restarts numbering. The catalog survives.
func (s *Service) EraseAll(ctx context.Context) error {
	if err := s.ledger.EraseAll(ctx); err != nil {
		return err
	}
	s.alloc.Reset()
	s.draft = invoice.NewDraft(s.alloc)

	date := s.now().Format(domain.DateFormat)
	if err := s.totals.Invalidate(ctx, date); err != nil {
		s.log.WithError(err).Warn("daily total cache invalidation failed")
	}
	s.log.Warn("ledger erased, numbering restarted")
	return nil
}

// ResolveShortcut maps a shortcut key to its item name.
func (s *Service) ResolveShortcut(shortcut string) (string, error) {
	return s.catalog.Resolve(shortcut)
}

// Shortcuts lists the shortcut table.
func (s *Service) Shortcuts() []domain.Item { return s.catalog.Shortcuts() }

// FormatDate validates a YYYY-MM-DD argument, defaulting to today when
// empty.
func (s *Service) FormatDate(raw string) (string, error) {
	if raw == "" {
		return s.now().Format(domain.DateFormat), nil
	}
	parsed, err := time.Parse(domain.DateFormat, raw)
	if err != nil {
		return "", fmt.Errorf("%w: date %q must be YYYY-MM-DD", store.ErrInvalidInput, raw)
	}
	return parsed.Format(domain.DateFormat), nil
}
