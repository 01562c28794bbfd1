package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"bbkbilling/backend/internal/domain"
	"bbkbilling/backend/internal/store"
)

// Store is the PostgreSQL-backed Ledger. Commit, Cancel and EraseAll each
// run in a serializable transaction.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS invoice_records (
			id BIGSERIAL PRIMARY KEY,
			invoice_number TEXT NOT NULL,
			date TEXT NOT NULL,
			description TEXT NOT NULL,
			qty NUMERIC(12,3) NOT NULL,
			unit_price NUMERIC(12,2) NOT NULL,
			total NUMERIC(12,2) NOT NULL,
			payment_mode TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'Active'
		)`,
		`CREATE TABLE IF NOT EXISTS invoice_sequence (
			id BIGSERIAL PRIMARY KEY,
			invoice_number TEXT NOT NULL UNIQUE,
			date TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invoice_records_date_status
			ON invoice_records (date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_invoice_records_number
			ON invoice_records (invoice_number)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// MaxIssuedSequence reads the numeric suffix embedded in issued invoice
// numbers. The BIGSERIAL row id is not used: it advances on its own and
// would drift from the embedded sequence once a reservation is discarded.
func (s *Store) MaxIssuedSequence(ctx context.Context) (int64, error) {
	var max int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX((regexp_replace(invoice_number, '^.*/', ''))::bigint), 0)
		 FROM invoice_sequence`,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max issued sequence: %w", err)
	}
	return max, nil
}

func (s *Store) Commit(ctx context.Context, inv domain.CommittedInvoice) error {
	if inv.InvoiceNumber == "" {
		return fmt.Errorf("%w: invoice number cannot be empty", store.ErrInvalidInput)
	}
	if len(inv.Lines) == 0 {
		return store.ErrEmptyInvoice
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, line := range inv.Lines {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO invoice_records
				(invoice_number, date, description, qty, unit_price, total, payment_mode, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			inv.InvoiceNumber, inv.Date, line.Description,
			line.Quantity, line.UnitPrice, line.LineTotal,
			inv.PaymentMode, domain.StatusActive,
		)
		if err != nil {
			return fmt.Errorf("insert invoice record: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO invoice_sequence (invoice_number, date) VALUES ($1, $2)`,
		inv.InvoiceNumber, inv.Date,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: invoice number %q", store.ErrDuplicateKey, inv.InvoiceNumber)
		}
		return fmt.Errorf("insert sequence entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit invoice tx: %w", err)
	}
	return nil
}

func (s *Store) Cancel(ctx context.Context, invoiceNumber string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin cancel tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM invoice_records WHERE invoice_number = $1)`,
		invoiceNumber,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("lookup invoice: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: invoice %q", store.ErrNotFound, invoiceNumber)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE invoice_records SET status = $1 WHERE invoice_number = $2`,
		domain.StatusCancelled, invoiceNumber,
	)
	if err != nil {
		return fmt.Errorf("cancel invoice: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cancel tx: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, filter store.QueryFilter) ([]domain.InvoiceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, invoice_number, date, description, qty, unit_price, total, payment_mode, status
		 FROM invoice_records
		 WHERE ($1 = '' OR date = $1)
		   AND ($2 = '' OR status = $2)
		   AND ($3 = '' OR payment_mode = $3)
		   AND ($4 = '' OR invoice_number = $4)
		 ORDER BY (regexp_replace(invoice_number, '^.*/', ''))::bigint, invoice_number, id`,
		filter.Date, filter.Status, filter.PaymentMode, filter.InvoiceNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("query invoice records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.InvoiceRecord, 0, 32)
	for rows.Next() {
		var rec domain.InvoiceRecord
		err := rows.Scan(
			&rec.ID, &rec.InvoiceNumber, &rec.Date, &rec.Description,
			&rec.Quantity, &rec.UnitPrice, &rec.LineTotal,
			&rec.PaymentMode, &rec.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("scan invoice record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoice records: %w", err)
	}
	return records, nil
}

func (s *Store) SummarizeByItem(ctx context.Context, date string) ([]domain.ItemSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payment_mode, description, SUM(qty), SUM(total)
		 FROM invoice_records
		 WHERE date = $1 AND status = $2
		 GROUP BY payment_mode, description
		 ORDER BY payment_mode, description`,
		date, domain.StatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("summarize by item: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.ItemSummary, 0, 16)
	for rows.Next() {
		var sum domain.ItemSummary
		if err := rows.Scan(&sum.PaymentMode, &sum.Description, &sum.Quantity, &sum.Amount); err != nil {
			return nil, fmt.Errorf("scan item summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item summaries: %w", err)
	}
	return summaries, nil
}

func (s *Store) SummarizeByInvoice(ctx context.Context, filter store.QueryFilter) ([]domain.InvoiceSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT invoice_number, date, SUM(total)
		 FROM invoice_records
		 WHERE ($1 = '' OR date = $1)
		   AND ($2 = '' OR status = $2)
		   AND ($3 = '' OR payment_mode = $3)
		   AND ($4 = '' OR invoice_number = $4)
		 GROUP BY invoice_number, date
		 ORDER BY date, (regexp_replace(invoice_number, '^.*/', ''))::bigint, invoice_number`,
		filter.Date, filter.Status, filter.PaymentMode, filter.InvoiceNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("summarize by invoice: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.InvoiceSummary, 0, 16)
	for rows.Next() {
		var sum domain.InvoiceSummary
		if err := rows.Scan(&sum.InvoiceNumber, &sum.Date, &sum.Amount); err != nil {
			return nil, fmt.Errorf("scan invoice summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoice summaries: %w", err)
	}
	return summaries, nil
}

func (s *Store) ActiveDailyTotal(ctx context.Context, date string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total), 0)
		 FROM invoice_records
		 WHERE date = $1 AND status = $2`,
		date, domain.StatusActive,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("active daily total: %w", err)
	}
	return total, nil
}

// EraseAll truncates both tables with identity restart so the next issued
// invoice number begins at 1 again.
func (s *Store) EraseAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin erase tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`TRUNCATE invoice_records, invoice_sequence RESTART IDENTITY`,
	)
	if err != nil {
		return fmt.Errorf("erase ledger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit erase tx: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
