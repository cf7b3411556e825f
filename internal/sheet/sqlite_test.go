package sheet

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSqlSheet(t *testing.T) {
	db, err := OpenSqlite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	testSheet(t, NewSqlSheet(db, "results"))
}

func TestSqlSheetsAreIsolated(t *testing.T) {
	db, err := OpenSqlite(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	a := NewSqlSheet(db, "a")
	b := NewSqlSheet(db, "b")

	require.NoError(t, a.Append(ctx, [][]string{{"1"}, {"2"}}))
	require.NoError(t, b.Append(ctx, [][]string{{"x"}}))

	rows, err := a.Rows(ctx)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"1"}, {"2"}}, rows)

	rows, err = b.Rows(ctx)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"x"}}, rows)
}

func TestSqlSheetAppendIsAtomic(t *testing.T) {
	db, err := OpenSqlite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	s := NewSqlSheet(db, "results")
	require.NoError(t, s.Append(context.Background(), [][]string{{"1"}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, s.Append(ctx, [][]string{{"2"}, {"3"}}))

	rows, err := s.Rows(context.Background())
	require.NoError(t, err)
	require.Equal(t, [][]string{{"1"}}, rows)
}

func TestDBConfigRequiresTarget(t *testing.T) {
	_, err := DBConfig{}.OpenDB()
	require.Error(t, err)
}
