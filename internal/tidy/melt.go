// Package tidy turns wide result tables (one column per round) into long ones
// (one row per team per round).
package tidy

import (
	"quizstats/internal/quiz"
)

// Melt emits one long row per round of every wide row. Rows come out in
// row-major order, then in the order the rounds appear in the wide row. The
// batch is stamped on every row.
func Melt(rows []quiz.WideRow, batch string) []quiz.LongRow {
	total := 0
	for _, r := range rows {
		total += len(r.Rounds)
	}

	out := make([]quiz.LongRow, 0, total)
	for _, r := range rows {
		for _, round := range r.Rounds {
			out = append(out, quiz.LongRow{
				Metadata:  r.Metadata,
				Team:      r.Team,
				Placement: r.Placement,
				Round:     round.Name,
				Score:     round.Value,
				Batch:     batch,
			})
		}
	}
	return out
}
