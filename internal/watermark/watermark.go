// Package watermark persists the id of the last game that was written to the
// sheet, so runs only process games newer than it.
package watermark

import (
	"context"
	"quizstats/internal/quiz"
)

// Store loads and saves the watermark. A store without state loads 0.
//
// note: fault injection point
type Store interface {
	Load(ctx context.Context) (quiz.RecordID, error)
	// Save persists the watermark, it is only called once the rows up to id
	// have been written.
	Save(ctx context.Context, id quiz.RecordID) error
}

// Journal is a Store that also remembers the batch of a run that started
// writing but never saved its watermark.
type Journal interface {
	Store
	// Begin records the batch as pending, Save clears it.
	Begin(ctx context.Context, batch string) error
	// Pending returns the pending batch, "" if there is none.
	Pending(ctx context.Context) (string, error)
}
