// Package ingest runs a single incremental pass: it discovers games newer
// than the watermark, writes their results and advances the watermark.
package ingest

import (
	"context"
	"fmt"
	"quizstats/internal/assert"
	"quizstats/internal/quiz"
	"quizstats/internal/telemetry"
	"quizstats/internal/tidy"
	"quizstats/internal/watermark"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("quizstats/ingest")

const (
	report_pipeline_run      = "pipeline.run"
	report_pipeline_recover  = "pipeline.recover"
	report_pipeline_extract  = "pipeline.extract"
	report_pipeline_written  = "pipeline.written"
	report_pipeline_failed   = "pipeline.failed"
	report_pipeline_discover = "pipeline.discover"
)

type Discoverer interface {
	// Discover returns the ids greater than the watermark in ascending order.
	Discover(ctx context.Context, watermark quiz.RecordID) ([]quiz.RecordID, error)
}

type Extractor interface {
	Extract(ctx context.Context, id quiz.RecordID) ([]quiz.WideRow, error)
}

type Sink interface {
	Write(ctx context.Context, rows []quiz.Row) error
	BatchMaxID(ctx context.Context, batch string) (quiz.RecordID, bool, error)
}

// Summary describes the outcome of a run.
type Summary struct {
	// Previous is the watermark the run started from, after recovery.
	Previous quiz.RecordID
	// Watermark is the watermark the run ended with.
	Watermark  quiz.RecordID
	Batch      string
	Discovered []quiz.RecordID
	Written    []quiz.RecordID
	Failed     []quiz.RecordID
	Rows       int
}

type Pipeline struct {
	discoverer Discoverer
	extractor  Extractor
	sink       Sink
	watermark  watermark.Store
	tel        telemetry.API
	newBatch   func() string
}

func NewPipeline(
	discoverer Discoverer,
	extractor Extractor,
	sink Sink,
	store watermark.Store,
	tel telemetry.API,
) Pipeline {
	assert.NotNil(discoverer, "discoverer")
	assert.NotNil(extractor, "extractor")
	assert.NotNil(sink, "sink")
	assert.NotNil(store, "watermark store")
	assert.NotNil(tel, "tel")

	return Pipeline{
		discoverer: discoverer,
		extractor:  extractor,
		sink:       sink,
		watermark:  store,
		tel:        telemetry.NewScopedAPI("ingest", tel),
		newBatch:   uuid.NewString,
	}
}

// Run executes one pass. Games that fail to extract are skipped, a failed
// write aborts the run without advancing the watermark.
func (p Pipeline) Run(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "pipeline:Run")
	defer span.End()

	var summary Summary
	fail := func(err error) (Summary, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		p.tel.ReportBroken(report_pipeline_run, err)
		return summary, err
	}

	current, err := p.watermark.Load(ctx)
	if err != nil {
		return fail(fmt.Errorf("load watermark: %w", err))
	}
	current, err = p.recover(ctx, current)
	if err != nil {
		return fail(fmt.Errorf("recover pending batch: %w", err))
	}
	summary.Previous = current
	summary.Watermark = current
	span.SetAttributes(attribute.Int64("watermark", int64(current)))

	ids, err := p.discoverer.Discover(ctx, current)
	if err != nil {
		p.tel.ReportWarning(report_pipeline_discover, "discovery failed, treating as no new games", err)
		return summary, nil
	}
	summary.Discovered = ids
	if len(ids) == 0 {
		p.tel.ReportDebug("no new games", "watermark", current)
		return summary, nil
	}

	summary.Batch = p.newBatch()
	journal, hasJournal := p.watermark.(watermark.Journal)
	if hasJournal {
		err = journal.Begin(ctx, summary.Batch)
		if err != nil {
			return fail(fmt.Errorf("begin batch: %w", err))
		}
	}

	next := current
	for _, id := range ids {
		wide, err := p.extractor.Extract(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return fail(ctx.Err())
			}
			p.tel.ReportWarning(report_pipeline_extract, "skipping game", id, err)
			summary.Failed = append(summary.Failed, id)
			continue
		}

		long := tidy.Melt(wide, summary.Batch)
		if len(long) == 0 {
			p.tel.ReportWarning(report_pipeline_extract, "game has no results", id)
			summary.Failed = append(summary.Failed, id)
			continue
		}

		err = p.sink.Write(ctx, quiz.Rows(long))
		if err != nil {
			return fail(fmt.Errorf("write game %d: %w", id, err))
		}

		summary.Written = append(summary.Written, id)
		summary.Rows += len(long)
		if id > next {
			next = id
		}
		p.tel.ReportDebug("wrote game", "id", id, "rows", len(long))
	}

	err = p.watermark.Save(ctx, next)
	if err != nil {
		return fail(fmt.Errorf("save watermark: %w", err))
	}
	summary.Watermark = next

	p.tel.ReportCount(report_pipeline_written, int64(len(summary.Written)))
	p.tel.ReportCount(report_pipeline_failed, int64(len(summary.Failed)))
	span.SetAttributes(
		attribute.Int("written", len(summary.Written)),
		attribute.Int("failed", len(summary.Failed)),
	)
	return summary, nil
}

// recover settles a batch left pending by a run that died between writing
// rows and saving the watermark. If the batch reached the sheet the
// watermark rolls forward to it, otherwise it stays where it was.
func (p Pipeline) recover(ctx context.Context, current quiz.RecordID) (quiz.RecordID, error) {
	journal, ok := p.watermark.(watermark.Journal)
	if !ok {
		return current, nil
	}
	batch, err := journal.Pending(ctx)
	if err != nil {
		return current, err
	}
	if batch == "" {
		return current, nil
	}

	id, found, err := p.sink.BatchMaxID(ctx, batch)
	if err != nil {
		return current, err
	}
	if found && id > current {
		p.tel.ReportWarning(report_pipeline_recover, "rolling forward pending batch", batch, id)
		current = id
	} else {
		p.tel.ReportWarning(report_pipeline_recover, "rolling back pending batch", batch)
	}

	err = journal.Save(ctx, current)
	if err != nil {
		return current, err
	}
	return current, nil
}
