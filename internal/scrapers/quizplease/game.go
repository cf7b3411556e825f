package quizplease

import (
	"context"
	"fmt"
	"quizstats/internal/htmlutil"
	"quizstats/internal/quiz"
	"quizstats/internal/textutil"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_client_extract      = "client.extract"
	report_client_resolve_date = "client.resolve-date"
	report_client_parse_table  = "client.parse-table"
)

// the game title is followed by the city, ex. "Квиз, плиз! YEREVAN"
var titleRegex = regexp.MustCompile(`^(.+)\sY`)

var numberRegex = regexp.MustCompile(`(\d+)\s*$`)

// Extract fetches the result page of a single game and returns one row per team.
func (c Client) Extract(ctx context.Context, id quiz.RecordID) ([]quiz.WideRow, error) {
	ctx, span := tracer.Start(ctx, "client:Extract")
	defer span.End()
	span.SetAttributes(attribute.Int64("game_id", int64(id)))

	fail := func(err error) ([]quiz.WideRow, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		c.tel.ReportBroken(report_client_extract, err, id)
		return nil, fmt.Errorf("extract game %d: %w", id, err)
	}

	err := c.limiter.Wait(ctx)
	if err != nil {
		return fail(err)
	}

	doc, err := c.fetch(ctx, gamePath, map[string]string{
		"id": id.String(),
	})
	if err != nil {
		return fail(err)
	}

	rows, err := c.parseGame(id, doc)
	if err != nil {
		return fail(err)
	}

	span.SetAttributes(attribute.Int("teams", len(rows)))
	return rows, nil
}

func (c Client) parseGame(id quiz.RecordID, doc *goquery.Document) ([]quiz.WideRow, error) {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, ErrNoResultTable
	}

	meta, err := c.parseMetadata(id, doc)
	if err != nil {
		return nil, err
	}

	rows, err := c.parseTable(table)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Metadata = meta
	}
	return rows, nil
}

func (c Client) parseMetadata(id quiz.RecordID, doc *goquery.Document) (quiz.Metadata, error) {
	meta := quiz.Metadata{ID: id}

	headings := doc.Find("div.game-heading-info").First().Find("h1")
	if headings.Length() < 1 {
		return meta, missingField("title")
	}
	if headings.Length() < 2 {
		return meta, missingField("number")
	}

	title := htmlutil.CleanText(headings.Eq(0))
	groups := titleRegex.FindStringSubmatch(title)
	if len(groups) >= 2 {
		title = groups[1]
	}
	if title == "" {
		return meta, missingField("title")
	}
	meta.Title = title

	numberText := htmlutil.CleanText(headings.Eq(1))
	groups = numberRegex.FindStringSubmatch(numberText)
	if len(groups) < 2 {
		return meta, fmt.Errorf("%w: number (got '%s')", ErrMissingField, numberText)
	}
	meta.Number = groups[1]

	tag := doc.Find("div.game-tag").First()
	if tag.Length() == 0 {
		return meta, missingField("category")
	}
	meta.Category = htmlutil.CleanText(tag)

	layout := c.layoutFor(id)
	columns := doc.Find("div.game-info-column")
	if columns.Length() <= layout.Column {
		return meta, fmt.Errorf(
			"%w: date (expected info column %d, page has %d)",
			ErrMissingField, layout.Column, columns.Length(),
		)
	}
	dateText := htmlutil.CleanText(columns.Eq(layout.Column).Find("div.text").First())
	date, err := c.resolveDate(id, dateText)
	if err != nil {
		return meta, fmt.Errorf("%w: date: %w", ErrMissingField, err)
	}
	meta.Date = date

	return meta, nil
}

type columnKind int

const (
	column_ignored columnKind = iota
	column_team
	column_placement
	column_round
)

type header struct {
	name string
	kind columnKind
}

func (c Client) classifyHeaders(cells *goquery.Selection) ([]header, error) {
	headers := make([]header, cells.Length())
	teamFound := false
	placementFound := false

	cells.Each(func(i int, s *goquery.Selection) {
		name := textutil.Capitalize(htmlutil.CleanText(s))
		kind := column_ignored
		// round titles can quote anything, ex. "Раунд 2: Название фильма",
		// so a round match wins over team and placement
		switch {
		case textutil.MatchName(name, c.opts.Headers.Round):
			kind = column_round
		case textutil.MatchName(name, c.opts.Headers.Team):
			if teamFound {
				c.tel.ReportWarning(report_client_parse_table, fmt.Errorf("duplicate team column"), name)
				break
			}
			teamFound = true
			kind = column_team
		case textutil.MatchName(name, c.opts.Headers.Placement):
			if placementFound {
				c.tel.ReportWarning(report_client_parse_table, fmt.Errorf("duplicate placement column"), name)
				break
			}
			placementFound = true
			kind = column_placement
		}
		headers[i] = header{name: name, kind: kind}
	})

	if !teamFound {
		return nil, missingField("team column")
	}
	if !placementFound {
		return nil, missingField("placement column")
	}
	return headers, nil
}

// parseTable reads the result table, the header row comes from <thead> when
// there is one and is the first row of the table otherwise.
func (c Client) parseTable(table *goquery.Selection) ([]quiz.WideRow, error) {
	var headerCells *goquery.Selection
	var dataRows *goquery.Selection

	thead := table.Find("thead").First()
	if thead.Length() > 0 {
		headerCells = thead.Find("tr").First().Find("th, td")
		dataRows = table.Find("tr").Not("thead tr")
	} else {
		allRows := table.Find("tr")
		headerCells = allRows.First().Find("th, td")
		dataRows = allRows
		if allRows.Length() > 0 {
			dataRows = allRows.Slice(1, allRows.Length())
		}
	}

	if headerCells.Length() == 0 {
		return nil, missingField("table header")
	}
	headers, err := c.classifyHeaders(headerCells)
	if err != nil {
		return nil, err
	}

	var rows []quiz.WideRow
	dataRows.Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td, th")

		row := quiz.WideRow{}
		for i, h := range headers {
			value := ""
			if i < cells.Length() {
				value = htmlutil.CleanText(cells.Eq(i))
			}

			switch h.kind {
			case column_team:
				row.Team = strings.ToUpper(value)
			case column_placement:
				row.Placement = value
			case column_round:
				row.Rounds = append(row.Rounds, quiz.Cell{Name: h.name, Value: value})
			}
		}

		if row.Team == "" {
			c.tel.ReportDebug("skipping row without team", strconv.Itoa(len(rows)))
			return
		}
		rows = append(rows, row)
	})

	return rows, nil
}
