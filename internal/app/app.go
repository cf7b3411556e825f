// Package app wires the scraper, the sheet, the sink and the watermark store
// together according to a Config.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"quizstats/internal/chrono"
	"quizstats/internal/ingest"
	"quizstats/internal/scrapers/quizplease"
	"quizstats/internal/sheet"
	"quizstats/internal/sink"
	"quizstats/internal/telemetry"
	"quizstats/internal/watermark"
)

type App struct {
	Sheet     sheet.Sheet
	Watermark watermark.Store
	Pipeline  ingest.Pipeline

	tel  telemetry.API
	time chrono.TimeAPI
	db   *sql.DB
}

func Open(ctx context.Context, cfg Config, tel telemetry.API) (App, error) {
	s, db, err := openSheet(ctx, cfg)
	if err != nil {
		return App{}, err
	}
	closeOnErr := func(err error) (App, error) {
		if db != nil {
			db.Close()
		}
		return App{}, err
	}

	var store watermark.Store
	switch cfg.Watermark.Backend {
	case WatermarkFile:
		if cfg.Watermark.File == "" {
			return closeOnErr(fmt.Errorf("watermark file was not specified"))
		}
		store = watermark.NewFileStore(cfg.Watermark.File)
	case WatermarkSheet:
		store = watermark.NewSheetStore(s)
	default:
		return closeOnErr(fmt.Errorf("unknown watermark backend '%s'", cfg.Watermark.Backend))
	}

	client, err := quizplease.NewClient(cfg.Site, tel)
	if err != nil {
		return closeOnErr(fmt.Errorf("create scraper: %w", err))
	}

	return App{
		Sheet:     s,
		Watermark: store,
		Pipeline: ingest.NewPipeline(
			client,
			client,
			sink.NewWriter(s, tel),
			store,
			tel,
		),
		tel:  tel,
		time: chrono.NewStandardTime(),
		db:   db,
	}, nil
}

func openSheet(ctx context.Context, cfg Config) (sheet.Sheet, *sql.DB, error) {
	switch cfg.Sheet.Backend {
	case SheetSql:
		db, err := cfg.Sheet.DB.OpenDB()
		if err != nil {
			return nil, nil, fmt.Errorf("open sheet db: %w", err)
		}
		return sheet.NewSqlSheet(db, cfg.Sheet.Table), db, nil
	case SheetGoogle:
		source, err := cfg.Secrets.Source(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create secrets source: %w", err)
		}
		credentials, err := source.Credentials(ctx)
		if err != nil {
			return nil, nil, err
		}
		s, err := sheet.NewGoogleSheet(ctx, cfg.Sheet.Google, credentials)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown sheet backend '%s'", cfg.Sheet.Backend)
	}
}

// Run executes a single ingestion pass and reports its outcome.
func (a App) Run(ctx context.Context) (ingest.Summary, error) {
	start := a.time.Now()
	summary, err := a.Pipeline.Run(ctx)
	elapsed := a.time.Now().Sub(start)
	if err != nil {
		return summary, err
	}
	a.tel.ReportDebug(
		"run finished",
		"watermark", summary.Watermark,
		"written", len(summary.Written),
		"failed", len(summary.Failed),
		"rows", summary.Rows,
		"seconds", elapsed.Seconds(),
	)
	return summary, nil
}

func (a App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
