package main

import (
	"context"
	"log/slog"
	"os"
	"quizstats/internal/app"
	"quizstats/internal/serviceutil"
	"quizstats/internal/telemetry"

	"github.com/aws/aws-lambda-go/lambda"
)

type response struct {
	Watermark int64 `json:"watermark"`
	Written   int   `json:"written"`
	Failed    int   `json:"failed"`
	Rows      int   `json:"rows"`
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	path := os.Getenv("QUIZSTATS_CONFIG")
	if path == "" {
		path = "quizstats.lambda.json5"
	}
	cfg, err := app.LoadConfig(path)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	if cfg.Watermark.Backend == app.WatermarkFile {
		slog.Warn("file watermark in lambda, the file must live on writable storage", "file", cfg.Watermark.File)
	}

	otel, err := telemetry.SetupOtel(context.Background(), "quizstats-lambda", cfg.Otlp)
	if err != nil {
		serviceutil.Fatal("failed to setup otel", err)
	}
	tel := telemetry.NewSlogAPI(slog.Default())

	lambda.Start(func(ctx context.Context) (response, error) {
		// flush spans and metrics before the execution environment is frozen
		defer func() {
			err := otel.Flush(context.Background())
			if err != nil {
				slog.Warn("flush otel", "err", err)
			}
		}()

		a, err := app.Open(ctx, cfg, tel)
		if err != nil {
			return response{}, err
		}
		defer a.Close()

		summary, err := a.Run(ctx)
		if err != nil {
			return response{}, err
		}
		return response{
			Watermark: int64(summary.Watermark),
			Written:   len(summary.Written),
			Failed:    len(summary.Failed),
			Rows:      summary.Rows,
		}, nil
	})
}
