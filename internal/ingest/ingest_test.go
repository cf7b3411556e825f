package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"quizstats/internal/quiz"
	"quizstats/internal/sheet"
	"quizstats/internal/sink"
	"quizstats/internal/telemetry"
	"quizstats/internal/watermark"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDiscoverer struct {
	ids   []quiz.RecordID
	err   error
	calls []quiz.RecordID
}

func (f *fakeDiscoverer) Discover(ctx context.Context, wm quiz.RecordID) ([]quiz.RecordID, error) {
	f.calls = append(f.calls, wm)
	if f.err != nil {
		return nil, f.err
	}
	var out []quiz.RecordID
	for _, id := range f.ids {
		if id > wm {
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeExtractor struct {
	failing map[quiz.RecordID]bool
	empty   map[quiz.RecordID]bool
}

func (f fakeExtractor) Extract(ctx context.Context, id quiz.RecordID) ([]quiz.WideRow, error) {
	if f.failing[id] {
		return nil, errors.New("no result table")
	}
	if f.empty[id] {
		return nil, nil
	}
	meta := quiz.Metadata{ID: id, Date: "2025-01-01", Category: "Классика", Title: "Квиз", Number: "1"}
	return []quiz.WideRow{
		{
			Metadata:  meta,
			Team:      "A",
			Placement: "1",
			Rounds:    []quiz.Cell{{Name: "Раунд 1", Value: "5"}, {Name: "Раунд 2", Value: "6"}},
		},
		{
			Metadata:  meta,
			Team:      "B",
			Placement: "2",
			Rounds:    []quiz.Cell{{Name: "Раунд 1", Value: "4"}, {Name: "Раунд 2", Value: ""}},
		},
	}, nil
}

// flakySink fails every write after the first `okWrites`.
type flakySink struct {
	sink.Writer
	okWrites int
	writes   int
}

func (f *flakySink) Write(ctx context.Context, rows []quiz.Row) error {
	f.writes++
	if f.writes > f.okWrites {
		return errors.New("quota exceeded")
	}
	return f.Writer.Write(ctx, rows)
}

type env struct {
	sheet sheet.SqlSheet
	sink  sink.Writer
	store watermark.FileStore
	tel   *telemetry.Recorder
}

func newEnv(t *testing.T) env {
	db, err := sheet.OpenSqlite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tel := telemetry.NewRecorder()
	s := sheet.NewSqlSheet(db, "results")
	return env{
		sheet: s,
		sink:  sink.NewWriter(s, tel),
		store: watermark.NewFileStore(filepath.Join(t.TempDir(), "last_game_id.json")),
		tel:   tel,
	}
}

func (e env) pipeline(d Discoverer, x Extractor, s Sink) Pipeline {
	if s == nil {
		s = e.sink
	}
	p := NewPipeline(d, x, s, e.store, e.tel)
	p.newBatch = func() string { return "batch-1" }
	return p
}

func TestRunAdvancesToMaxWritten(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Save(ctx, 100))

	d := &fakeDiscoverer{ids: []quiz.RecordID{99, 101, 102, 105}}
	summary, err := e.pipeline(d, fakeExtractor{}, nil).Run(ctx)
	require.NoError(t, err)

	require.Equal(t, quiz.RecordID(100), summary.Previous)
	require.Equal(t, quiz.RecordID(105), summary.Watermark)
	require.Equal(t, []quiz.RecordID{101, 102, 105}, summary.Written)
	require.Equal(t, 12, summary.Rows)
	require.Equal(t, "batch-1", summary.Batch)

	wm, err := e.store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, quiz.RecordID(105), wm)

	pending, err := e.store.Pending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)

	rows, err := e.sheet.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 13)
	require.Equal(t, []string{"101", "2025-01-01", "A", "Классика", "Квиз", "1", "1", "Раунд 1", "5", "batch-1"}, rows[1])

	// a second run finds nothing new and leaves everything untouched
	summary, err = e.pipeline(d, fakeExtractor{}, nil).Run(ctx)
	require.NoError(t, err)
	require.Empty(t, summary.Discovered)
	require.Equal(t, quiz.RecordID(105), summary.Watermark)

	rows, err = e.sheet.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 13)
}

func TestRunSkipsFailedExtractions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	d := &fakeDiscoverer{ids: []quiz.RecordID{1, 2, 3, 4}}
	x := fakeExtractor{
		failing: map[quiz.RecordID]bool{2: true, 4: true},
		empty:   map[quiz.RecordID]bool{3: true},
	}
	summary, err := e.pipeline(d, x, nil).Run(ctx)
	require.NoError(t, err)

	require.Equal(t, []quiz.RecordID{1}, summary.Written)
	require.Equal(t, []quiz.RecordID{2, 3, 4}, summary.Failed)
	require.Equal(t, quiz.RecordID(1), summary.Watermark)
	require.True(t, e.tel.Warned(report_pipeline_extract))
}

func TestRunNothingWrittenKeepsWatermark(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Save(ctx, 7))

	d := &fakeDiscoverer{ids: []quiz.RecordID{8}}
	x := fakeExtractor{failing: map[quiz.RecordID]bool{8: true}}
	summary, err := e.pipeline(d, x, nil).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, quiz.RecordID(7), summary.Watermark)

	wm, err := e.store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, quiz.RecordID(7), wm)
}

func TestRunDiscoveryFailureIsNoNewGames(t *testing.T) {
	e := newEnv(t)
	d := &fakeDiscoverer{err: errors.New("pagination control not found")}

	summary, err := e.pipeline(d, fakeExtractor{}, nil).Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, summary.Written)
	require.Empty(t, summary.Batch)
	require.True(t, e.tel.Warned(report_pipeline_discover))
}

func TestRunSinkFailureAborts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Save(ctx, 10))

	flaky := &flakySink{Writer: e.sink, okWrites: 1}
	d := &fakeDiscoverer{ids: []quiz.RecordID{11, 12, 13}}
	summary, err := e.pipeline(d, fakeExtractor{}, flaky).Run(ctx)
	require.Error(t, err)
	require.Equal(t, []quiz.RecordID{11}, summary.Written)
	require.True(t, e.tel.Broken(report_pipeline_run))

	wm, err := e.store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, quiz.RecordID(10), wm)

	pending, err := e.store.Pending(ctx)
	require.NoError(t, err)
	require.Equal(t, "batch-1", pending)
}

func TestRunRecoversPendingBatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Save(ctx, 10))

	// the first run dies after writing game 11
	flaky := &flakySink{Writer: e.sink, okWrites: 1}
	d := &fakeDiscoverer{ids: []quiz.RecordID{11, 12}}
	_, err := e.pipeline(d, fakeExtractor{}, flaky).Run(ctx)
	require.Error(t, err)

	p := e.pipeline(d, fakeExtractor{}, nil)
	p.newBatch = func() string { return "batch-2" }
	summary, err := p.Run(ctx)
	require.NoError(t, err)

	require.Equal(t, quiz.RecordID(11), summary.Previous)
	require.Equal(t, []quiz.RecordID{11}, d.calls[1:])
	require.Equal(t, []quiz.RecordID{12}, summary.Written)
	require.Equal(t, quiz.RecordID(12), summary.Watermark)
	require.True(t, e.tel.Warned(report_pipeline_recover))

	rows, err := e.sheet.Rows(ctx)
	require.NoError(t, err)
	// header + 2 games of 4 rows, game 11 is not written twice
	require.Len(t, rows, 9)
}

func TestRunRollsBackUnwrittenBatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Save(ctx, 10))
	require.NoError(t, e.store.Begin(ctx, "lost"))

	d := &fakeDiscoverer{}
	summary, err := e.pipeline(d, fakeExtractor{}, nil).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, quiz.RecordID(10), summary.Previous)
	require.Equal(t, []quiz.RecordID{10}, d.calls)

	pending, err := e.store.Pending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestRunWithSheetWatermark(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	d := &fakeDiscoverer{ids: []quiz.RecordID{3, 4}}
	p := NewPipeline(d, fakeExtractor{}, e.sink, watermark.NewSheetStore(e.sheet), e.tel)
	summary, err := p.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, quiz.RecordID(4), summary.Watermark)

	summary, err = p.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, quiz.RecordID(4), summary.Previous)
	require.Empty(t, summary.Discovered)
}
