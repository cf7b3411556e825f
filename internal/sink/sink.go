// Package sink appends result rows to a sheet while keeping the column order
// fixed by the sheet's header.
package sink

import (
	"context"
	"fmt"
	"quizstats/internal/assert"
	"quizstats/internal/quiz"
	"quizstats/internal/sheet"
	"quizstats/internal/telemetry"
	"slices"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("quizstats/sink")

const (
	report_writer_write        = "writer.write"
	report_writer_batch_max_id = "writer.batch-max-id"
)

type Writer struct {
	sheet sheet.Sheet
	tel   telemetry.API
}

func NewWriter(s sheet.Sheet, tel telemetry.API) Writer {
	assert.NotNil(s, "sheet")
	assert.NotNil(tel, "tel")
	return Writer{
		sheet: s,
		tel:   telemetry.NewScopedAPI("sink", tel),
	}
}

// Write stores the rows with a single call to the sheet. An empty sheet gets
// a header made of the first row's field names, otherwise every row is
// projected onto the existing header.
func (w Writer) Write(ctx context.Context, rows []quiz.Row) error {
	if len(rows) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "writer:Write")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(rows)))

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		w.tel.ReportBroken(report_writer_write, err, len(rows))
		return fmt.Errorf("write rows: %w", err)
	}

	header, err := w.sheet.Header(ctx)
	if err != nil {
		return fail(err)
	}

	if len(header) == 0 {
		header = rows[0].Names()
		values := make([][]string, 0, len(rows)+1)
		values = append(values, header)
		for _, r := range rows {
			values = append(values, r.Project(header))
		}
		err = w.sheet.Put(ctx, values)
		if err != nil {
			return fail(err)
		}
		w.tel.ReportDebug("bootstrapped sheet", "columns", strings.Join(header, ", "))
		w.tel.ReportCount(report_writer_write, int64(len(rows)))
		return nil
	}

	values := make([][]string, len(rows))
	for i, r := range rows {
		values[i] = r.Project(header)
	}
	err = w.sheet.Append(ctx, values)
	if err != nil {
		return fail(err)
	}
	w.tel.ReportCount(report_writer_write, int64(len(rows)))
	return nil
}

// BatchMaxID returns the highest game id among the rows tagged with the given
// batch, false if no row carries it.
func (w Writer) BatchMaxID(ctx context.Context, batch string) (quiz.RecordID, bool, error) {
	ctx, span := tracer.Start(ctx, "writer:BatchMaxID")
	defer span.End()

	rows, err := w.sheet.Rows(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		w.tel.ReportBroken(report_writer_batch_max_id, err, batch)
		return 0, false, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return 0, false, nil
	}

	header := rows[0]
	idCol := slices.Index(header, quiz.ColumnID)
	batchCol := slices.Index(header, quiz.ColumnBatch)
	if idCol < 0 || batchCol < 0 {
		w.tel.ReportWarning(
			report_writer_batch_max_id,
			"header does not carry id and batch columns",
			strings.Join(header, ", "),
		)
		return 0, false, nil
	}

	var max quiz.RecordID
	found := false
	for _, row := range rows[1:] {
		if batchCol >= len(row) || idCol >= len(row) || row[batchCol] != batch {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(row[idCol]), 10, 64)
		if err != nil {
			w.tel.ReportWarning(report_writer_batch_max_id, "unparsable id", row[idCol])
			continue
		}
		if !found || quiz.RecordID(id) > max {
			max = quiz.RecordID(id)
			found = true
		}
	}
	return max, found, nil
}
