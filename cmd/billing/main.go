package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"bbkbilling/backend/internal/cache"
	"bbkbilling/backend/internal/catalog"
	"bbkbilling/backend/internal/config"
	"bbkbilling/backend/internal/domain"
	"bbkbilling/backend/internal/report"
	"bbkbilling/backend/internal/sequence"
	"bbkbilling/backend/internal/service"
	"bbkbilling/backend/internal/store"
	"bbkbilling/backend/internal/store/memory"
	"bbkbilling/backend/internal/store/postgres"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	app := &cli.App{
		Name:  "billing",
		Usage: "retail invoice ledger and daily sales reports",
		Commands: []*cli.Command{
			itemCommand(log),
			commitCommand(log),
			cancelCommand(log),
			reportCommand(log),
			invoicesCommand(log),
			todayCommand(log),
			eraseCommand(log),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("command failed")
	}
}

// setup wires catalog, ledger, cache and service from the environment. With
// no DATABASE_URL the ledger is in-memory and lost on exit; with no
// REDIS_ADDR the totals cache is a noop.
func setup(ctx context.Context, log *logrus.Logger) (*service.Service, func(), error) {
	cfg := config.Load()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, nil, err
	}

	var ledger store.Ledger
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		ledger = pg
	} else {
		log.Warn("DATABASE_URL not set, using in-memory ledger")
		ledger = memory.New()
	}

	var totals cache.DailyTotalCache
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, daily totals uncached")
			totals = cache.NewNoop()
		} else {
			totals = rc
		}
	} else {
		totals = cache.NewNoop()
	}

	alloc := sequence.New(ledger, cfg.InvoicePrefix)
	svc := service.New(cat, ledger, alloc, totals, cfg.DailyTotalTTL, log)

	cleanup := func() {
		if err := totals.Close(); err != nil {
			log.WithError(err).Warn("closing cache failed")
		}
		if err := ledger.Close(); err != nil {
			log.WithError(err).Warn("closing ledger failed")
		}
	}
	return svc, cleanup, nil
}

func itemCommand(log *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "item",
		Usage: "manage the sellable item catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "register a new item under a numeric shortcut",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "shortcut", Required: true},
				},
				Action: func(c *cli.Context) error {
					svc, cleanup, err := setup(c.Context, log)
					if err != nil {
						return err
					}
					defer cleanup()
					return svc.AddItem(c.String("name"), c.String("shortcut"))
				},
			},
			{
				Name:  "remove",
				Usage: "delete an item and release its shortcut",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
				},
				Action: func(c *cli.Context) error {
					svc, cleanup, err := setup(c.Context, log)
					if err != nil {
						return err
					}
					defer cleanup()
					return svc.RemoveItem(c.String("name"))
				},
			},
			{
				Name:  "rate",
				Usage: "set an item's unit rate",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "rate", Required: true},
				},
				Action: func(c *cli.Context) error {
					svc, cleanup, err := setup(c.Context, log)
					if err != nil {
						return err
					}
					defer cleanup()
					return svc.SetRate(c.String("name"), c.String("rate"))
				},
			},
			{
				Name:  "list",
				Usage: "list catalog items with rates and shortcuts",
				Action: func(c *cli.Context) error {
					svc, cleanup, err := setup(c.Context, log)
					if err != nil {
						return err
					}
					defer cleanup()
					fmt.Printf("%-20s %10s %9s\n", "Item", "Rate", "Shortcut")
					for _, item := range svc.ListItems() {
						fmt.Printf("%-20s %10s %9s\n",
							item.DisplayName, item.UnitRate.StringFixed(2), item.Shortcut)
					}
					return nil
				},
			},
		},
	}
}

func commitCommand(log *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "commit",
		Usage: "build an invoice from line flags and commit it",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "line",
				Usage: "invoice line as item:qty or item:qty:rate, repeatable",
			},
			&cli.StringSliceFlag{
				Name:  "key",
				Usage: "invoice line as shortcut:qty, repeatable",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "payment mode, Cash or Credit",
				Value: domain.PaymentModeCash,
			},
		},
		Action: func(c *cli.Context) error {
			svc, cleanup, err := setup(c.Context, log)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.SetPaymentMode(c.String("mode")); err != nil {
				return err
			}
			for _, raw := range c.StringSlice("line") {
				desc, qty, rate, err := splitLine(raw)
				if err != nil {
					return err
				}
				if err := svc.AddLine(c.Context, desc, qty, rate); err != nil {
					return err
				}
			}
			for _, raw := range c.StringSlice("key") {
				parts := strings.SplitN(raw, ":", 2)
				if len(parts) != 2 {
					return fmt.Errorf("%w: key %q must be shortcut:qty", store.ErrInvalidInput, raw)
				}
				if err := svc.AddLineByShortcut(c.Context, parts[0], parts[1]); err != nil {
					return err
				}
			}

			committed, err := svc.CommitInvoice(c.Context)
			if err != nil {
				return err
			}
			fmt.Print(report.RenderReceipt(committed))
			return nil
		},
	}
}

func splitLine(raw string) (desc, qty, rate string, err error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 {
		return "", "", "", fmt.Errorf("%w: line %q must be item:qty or item:qty:rate", store.ErrInvalidInput, raw)
	}
	desc, qty = parts[0], parts[1]
	if len(parts) == 3 {
		rate = parts[2]
	}
	return desc, qty, rate, nil
}

func cancelCommand(log *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:      "cancel",
		Usage:     "cancel a committed invoice by number",
		ArgsUsage: "<invoice-number>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("%w: exactly one invoice number expected", store.ErrInvalidInput)
			}
			svc, cleanup, err := setup(c.Context, log)
			if err != nil {
				return err
			}
			defer cleanup()
			return svc.CancelInvoice(c.Context, c.Args().First())
		},
	}
}

func reportCommand(log *logrus.Logger) *cli.Command {
	dateFlag := &cli.StringFlag{
		Name:  "date",
		Usage: "report date as YYYY-MM-DD, defaults to today",
	}
	return &cli.Command{
		Name:  "report",
		Usage: "daily sales reports",
		Subcommands: []*cli.Command{
			{
				Name:  "daily",
				Usage: "per-item summary grouped by payment mode",
				Flags: []cli.Flag{dateFlag},
				Action: func(c *cli.Context) error {
					svc, cleanup, err := setup(c.Context, log)
					if err != nil {
						return err
					}
					defer cleanup()
					date, err := svc.FormatDate(c.String("date"))
					if err != nil {
						return err
					}
					summary, err := svc.Reports().DailySummary(c.Context, date)
					if err != nil {
						return err
					}
					fmt.Print(report.RenderDailySummary(summary))
					return nil
				},
			},
			{
				Name:  "detailed",
				Usage: "every active line grouped by payment mode",
				Flags: []cli.Flag{dateFlag},
				Action: func(c *cli.Context) error {
					svc, cleanup, err := setup(c.Context, log)
					if err != nil {
						return err
					}
					defer cleanup()
					date, err := svc.FormatDate(c.String("date"))
					if err != nil {
						return err
					}
					detailed, err := svc.Reports().Detailed(c.Context, date)
					if err != nil {
						return err
					}
					fmt.Print(report.RenderDetailed(detailed))
					return nil
				},
			},
			{
				Name:  "cancelled",
				Usage: "cancelled invoices with base amounts",
				Flags: []cli.Flag{dateFlag},
				Action: func(c *cli.Context) error {
					svc, cleanup, err := setup(c.Context, log)
					if err != nil {
						return err
					}
					defer cleanup()
					date, err := svc.FormatDate(c.String("date"))
					if err != nil {
						return err
					}
					cancelled, err := svc.Reports().Cancelled(c.Context, date)
					if err != nil {
						return err
					}
					fmt.Print(report.RenderCancelled(cancelled))
					return nil
				},
			},
		},
	}
}

func invoicesCommand(log *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "invoices",
		Usage: "list and inspect committed invoices",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "one row per invoice with its base amount",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Usage: "filter by date YYYY-MM-DD"},
					&cli.StringFlag{Name: "status", Usage: "filter by status Active|Cancelled"},
				},
				Action: func(c *cli.Context) error {
					svc, cleanup, err := setup(c.Context, log)
					if err != nil {
						return err
					}
					defer cleanup()
					rows, err := svc.Reports().ListInvoices(c.Context, store.QueryFilter{
						Date:   c.String("date"),
						Status: c.String("status"),
					})
					if err != nil {
						return err
					}
					fmt.Printf("%-16s %-12s %12s\n", "Invoice", "Date", "Amount")
					for _, row := range rows {
						fmt.Printf("%-16s %-12s %12s\n",
							row.InvoiceNumber, row.Date, row.Amount.StringFixed(2))
					}
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "active lines of one invoice",
				ArgsUsage: "<invoice-number>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("%w: exactly one invoice number expected", store.ErrInvalidInput)
					}
					svc, cleanup, err := setup(c.Context, log)
					if err != nil {
						return err
					}
					defer cleanup()
					detail, err := svc.Reports().InvoiceDetail(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					fmt.Print(report.RenderInvoiceDetail(detail))
					return nil
				},
			},
		},
	}
}

func todayCommand(log *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "today",
		Usage: "today's active sales total",
		Action: func(c *cli.Context) error {
			svc, cleanup, err := setup(c.Context, log)
			if err != nil {
				return err
			}
			defer cleanup()
			total, err := svc.TodayTotal(c.Context)
			if err != nil {
				return err
			}
			fmt.Printf("%s  base %s  GST %s  total %s\n",
				total.Date, total.Base.StringFixed(2),
				total.Tax.StringFixed(2), total.InclTax.StringFixed(2))
			return nil
		},
	}
}

func eraseCommand(log *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "erase",
		Usage: "irreversibly wipe the ledger and restart numbering",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Usage: "confirm the wipe"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return fmt.Errorf("%w: pass --yes to confirm erasing all records", store.ErrInvalidInput)
			}
			svc, cleanup, err := setup(c.Context, log)
			if err != nil {
				return err
			}
			defer cleanup()
			return svc.EraseAll(c.Context)
		},
	}
}
