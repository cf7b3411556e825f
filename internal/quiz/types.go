// Package quiz holds the data model shared by the scraper, the reshaper and the sink.
package quiz

import (
	"strconv"
)

// RecordID identifies a single game on the source site, ids are assigned in
// increasing order.
type RecordID int64

func (id RecordID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Column labels of the store, these form the append contract with existing
// stores and must never change.
const (
	ColumnID        = "ID"
	ColumnDate      = "Дата"
	ColumnTeam      = "Название команды"
	ColumnCategory  = "Категория"
	ColumnTitle     = "Название игры"
	ColumnNumber    = "Номер игры"
	ColumnPlacement = "Место"
	ColumnRound     = "Раунд"
	ColumnScore     = "Очки"
	ColumnBatch     = "Пакет"
)

// IdVars are the columns that stay constant across all long rows derived from
// the same wide row.
var IdVars = []string{
	ColumnID,
	ColumnDate,
	ColumnTeam,
	ColumnCategory,
	ColumnTitle,
	ColumnNumber,
	ColumnPlacement,
}

// Metadata is the per-game information attached to every result row.
type Metadata struct {
	ID       RecordID
	Date     string
	Category string
	Title    string
	Number   string
}

// Cell is a single named value of a wide row.
type Cell struct {
	Name  string
	Value string
}

// WideRow is the result of a single team in a single game, with one score per round.
type WideRow struct {
	Metadata
	Team      string
	Placement string
	Rounds    []Cell
}

// LongRow is the score of a single team in a single round of a single game.
type LongRow struct {
	Metadata
	Team      string
	Placement string
	Round     string
	Score     string
	Batch     string
}

// Row converts the long row into the generic shape written to the store,
// fields are in store column order.
func (r LongRow) Row() Row {
	return Row{
		{Name: ColumnID, Value: r.ID.String()},
		{Name: ColumnDate, Value: r.Date},
		{Name: ColumnTeam, Value: r.Team},
		{Name: ColumnCategory, Value: r.Category},
		{Name: ColumnTitle, Value: r.Title},
		{Name: ColumnNumber, Value: r.Number},
		{Name: ColumnPlacement, Value: r.Placement},
		{Name: ColumnRound, Value: r.Round},
		{Name: ColumnScore, Value: r.Score},
		{Name: ColumnBatch, Value: r.Batch},
	}
}

// Field is a single named value of a Row.
type Field struct {
	Name  string
	Value string
}

// Row is an ordered set of fields.
type Row []Field

// Get returns the value of the first field with the given name.
func (r Row) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Names returns the field names in order.
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Project orders the row's values according to the given header, fields
// not present in the row become empty strings and fields not in the header
// are dropped.
func (r Row) Project(header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		out[i], _ = r.Get(name)
	}
	return out
}

// Rows converts a slice of long rows into store rows.
func Rows(long []LongRow) []Row {
	out := make([]Row, len(long))
	for i, r := range long {
		out[i] = r.Row()
	}
	return out
}
