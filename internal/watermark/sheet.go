package watermark

import (
	"context"
	"fmt"
	"quizstats/internal/assert"
	"quizstats/internal/quiz"
	"quizstats/internal/sheet"
	"strconv"
	"strings"
)

// SheetStore derives the watermark from the largest id in the first column
// of the sheet, the header and anything unparsable are ignored.
type SheetStore struct {
	sheet sheet.Sheet
}

func NewSheetStore(s sheet.Sheet) SheetStore {
	assert.NotNil(s, "sheet")
	return SheetStore{sheet: s}
}

func (s SheetStore) Load(ctx context.Context) (quiz.RecordID, error) {
	col, err := s.sheet.Column(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("read id column: %w", err)
	}

	var max quiz.RecordID
	for _, cell := range col {
		id, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
		if err != nil {
			continue
		}
		if quiz.RecordID(id) > max {
			max = quiz.RecordID(id)
		}
	}
	return max, nil
}

// Save is a no-op, the watermark moves when rows are written.
func (s SheetStore) Save(ctx context.Context, id quiz.RecordID) error {
	return nil
}
