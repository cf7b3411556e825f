package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SlogAPI implements API using the log/slog package, counts are additionally
// recorded on the global otel meter so they reach the OTLP exporter when one
// has been set up.
type SlogAPI struct {
	logger *slog.Logger
	meter  metric.Meter
}

// NewSlogAPI creates a SlogAPI, a nil logger means slog.Default().
func NewSlogAPI(logger *slog.Logger) SlogAPI {
	if logger == nil {
		logger = slog.Default()
	}
	return SlogAPI{
		logger: logger,
		meter:  otel.Meter("quizstats"),
	}
}

func (SlogAPI) formatParams(out *[]any, params []any) {
	for i, p := range params {
		*out = append(
			*out,
			fmt.Sprintf("params.%d", i),
			p,
		)
	}
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	s.logger.Error("broken component", remainingPairs...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	s.logger.Warn("warning", remainingPairs...)
}

func (s SlogAPI) ReportDebug(msg string, params ...any) {
	remainingPairs := []any{}
	s.formatParams(&remainingPairs, params)
	s.logger.Debug(msg, remainingPairs...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	s.logger.Info("count", "id", id, "n", count)

	gauge, err := s.meter.Int64Histogram("quizstats.count")
	if err != nil {
		s.logger.Warn("create count instrument", "err", err)
		return
	}
	gauge.Record(
		context.Background(),
		count,
		metric.WithAttributes(attribute.String("id", id)),
	)
}
