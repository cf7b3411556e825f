package sink

import (
	"context"
	"errors"
	"quizstats/internal/quiz"
	"quizstats/internal/sheet"
	"quizstats/internal/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

func newMemorySheet(t *testing.T) sheet.SqlSheet {
	db, err := sheet.OpenSqlite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sheet.NewSqlSheet(db, "results")
}

func row(fields ...string) quiz.Row {
	var r quiz.Row
	for i := 0; i+1 < len(fields); i += 2 {
		r = append(r, quiz.Field{Name: fields[i], Value: fields[i+1]})
	}
	return r
}

func TestWriteBootstrapsHeader(t *testing.T) {
	s := newMemorySheet(t)
	w := NewWriter(s, telemetry.NewRecorder())
	ctx := context.Background()

	err := w.Write(ctx, []quiz.Row{
		row("B", "b1", "A", "a1"),
		row("B", "b2", "A", "a2"),
	})
	require.NoError(t, err)

	rows, err := s.Rows(ctx)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"B", "A"},
		{"b1", "a1"},
		{"b2", "a2"},
	}, rows)
}

func TestWriteProjectsOntoExistingHeader(t *testing.T) {
	s := newMemorySheet(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, [][]string{{"A", "B", "C"}}))

	w := NewWriter(s, telemetry.NewRecorder())
	err := w.Write(ctx, []quiz.Row{
		row("A", "a", "C", "c", "D", "d"),
		row("C", "c2", "B", "b2", "A", "a2"),
	})
	require.NoError(t, err)

	rows, err := s.Rows(ctx)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"A", "B", "C"},
		{"a", "", "c"},
		{"a2", "b2", "c2"},
	}, rows)
}

func TestWriteLongRowsTwice(t *testing.T) {
	s := newMemorySheet(t)
	w := NewWriter(s, telemetry.NewRecorder())
	ctx := context.Background()

	first := quiz.LongRow{
		Metadata: quiz.Metadata{ID: 7, Date: "2025-01-02", Category: "Классика", Title: "Квиз", Number: "1"},
		Team:     "A",
		Round:    "Раунд 1",
		Score:    "5",
		Batch:    "b1",
	}
	second := first
	second.ID = 8
	second.Batch = "b2"

	require.NoError(t, w.Write(ctx, quiz.Rows([]quiz.LongRow{first})))
	require.NoError(t, w.Write(ctx, quiz.Rows([]quiz.LongRow{second})))

	rows, err := s.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{
		quiz.ColumnID,
		quiz.ColumnDate,
		quiz.ColumnTeam,
		quiz.ColumnCategory,
		quiz.ColumnTitle,
		quiz.ColumnNumber,
		quiz.ColumnPlacement,
		quiz.ColumnRound,
		quiz.ColumnScore,
		quiz.ColumnBatch,
	}, rows[0])
	require.Equal(t, "8", rows[2][0])
	require.Equal(t, "b2", rows[2][9])
}

func TestWriteEmptyIsNoop(t *testing.T) {
	s := &failingSheet{err: errors.New("should not be called")}
	w := NewWriter(s, telemetry.NewRecorder())
	require.NoError(t, w.Write(context.Background(), nil))
	require.Zero(t, s.calls)
}

type failingSheet struct {
	err   error
	calls int
}

func (f *failingSheet) Rows(context.Context) ([][]string, error) {
	f.calls++
	return nil, f.err
}

func (f *failingSheet) Header(context.Context) ([]string, error) {
	f.calls++
	return nil, f.err
}

func (f *failingSheet) Column(context.Context, int) ([]string, error) {
	f.calls++
	return nil, f.err
}

func (f *failingSheet) Put(context.Context, [][]string) error {
	f.calls++
	return f.err
}

func (f *failingSheet) Append(context.Context, [][]string) error {
	f.calls++
	return f.err
}

func TestWriteFailureIsReported(t *testing.T) {
	unreachable := errors.New("unreachable")
	tel := telemetry.NewRecorder()
	w := NewWriter(&failingSheet{err: unreachable}, tel)

	err := w.Write(context.Background(), []quiz.Row{row("A", "a")})
	require.ErrorIs(t, err, unreachable)
	require.True(t, tel.Broken(report_writer_write))
}

func TestBatchMaxID(t *testing.T) {
	s := newMemorySheet(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, [][]string{
		{quiz.ColumnID, quiz.ColumnTeam, quiz.ColumnBatch},
		{"10", "A", "old"},
		{"12", "A", "new"},
		{"11", "B", "new"},
		{"13", "B", "other"},
		{"x", "C", "new"},
	}))

	w := NewWriter(s, telemetry.NewRecorder())

	id, found, err := w.BatchMaxID(ctx, "new")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, quiz.RecordID(12), id)

	_, found, err = w.BatchMaxID(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)
}

func TestBatchMaxIDWithoutBatchColumn(t *testing.T) {
	s := newMemorySheet(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, [][]string{
		{quiz.ColumnID, quiz.ColumnTeam},
		{"10", "A"},
	}))

	tel := telemetry.NewRecorder()
	w := NewWriter(s, tel)
	_, found, err := w.BatchMaxID(ctx, "new")
	require.NoError(t, err)
	require.False(t, found)
	require.True(t, tel.Warned(report_writer_batch_max_id))

	_, found, err = NewWriter(newMemorySheet(t), tel).BatchMaxID(ctx, "new")
	require.NoError(t, err)
	require.False(t, found)
}
