package commands

import (
	"os"
	"quizstats/internal/app"
	"quizstats/internal/quiz"
	"quizstats/internal/watermark"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints the watermark and a summary of the sheet.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		env := setup(ctx)
		defer env.close()

		a, err := app.Open(ctx, env.cfg, env.tel)
		if err != nil {
			env.fatal("failed to initialize", err)
		}
		defer a.Close()

		wm, err := a.Watermark.Load(ctx)
		if err != nil {
			env.fatal("failed to load watermark", err)
		}
		pending := ""
		if journal, ok := a.Watermark.(watermark.Journal); ok {
			pending, err = journal.Pending(ctx)
			if err != nil {
				env.fatal("failed to read pending batch", err)
			}
		}

		rows, err := a.Sheet.Rows(ctx)
		if err != nil {
			env.fatal("failed to read sheet", err)
		}
		stats := summarize(rows)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Key", "Value"})
		t.AppendRow(table.Row{"Watermark", wm})
		t.AppendRow(table.Row{"Pending batch", pending})
		t.AppendRow(table.Row{"Rows", stats.rows})
		t.AppendRow(table.Row{"Games", stats.games})
		t.AppendRow(table.Row{"Latest game", stats.latest})
		t.AppendRow(table.Row{"Latest date", stats.latestDate})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

type sheetStats struct {
	rows       int
	games      int
	latest     quiz.RecordID
	latestDate string
}

func summarize(rows [][]string) sheetStats {
	if len(rows) == 0 {
		return sheetStats{}
	}
	header := rows[0]
	idCol, dateCol := -1, -1
	for i, h := range header {
		switch h {
		case quiz.ColumnID:
			idCol = i
		case quiz.ColumnDate:
			dateCol = i
		}
	}

	stats := sheetStats{rows: len(rows) - 1}
	seen := map[quiz.RecordID]struct{}{}
	for _, row := range rows[1:] {
		if idCol < 0 || idCol >= len(row) {
			continue
		}
		parsed, err := strconv.ParseInt(row[idCol], 10, 64)
		if err != nil {
			continue
		}
		id := quiz.RecordID(parsed)
		seen[id] = struct{}{}
		if id > stats.latest {
			stats.latest = id
			if dateCol >= 0 && dateCol < len(row) {
				stats.latestDate = row[dateCol]
			}
		}
	}
	stats.games = len(seen)
	return stats
}
