package sheet

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleSheet is a single tab of a Google Sheets spreadsheet.
type GoogleSheet struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetId string
	tab           string
}

type GoogleConfig struct {
	SpreadsheetId string `json:"spreadsheet_id"`
	// Tab is the title of the tab, the first tab is used when empty.
	Tab string `json:"tab"`
}

// NewGoogleSheet authenticates with a service account's json credentials.
func NewGoogleSheet(ctx context.Context, config GoogleConfig, credentials []byte, opts ...option.ClientOption) (GoogleSheet, error) {
	opts = append(
		[]option.ClientOption{
			option.WithCredentialsJSON(credentials),
			option.WithScopes(sheets.SpreadsheetsScope),
		},
		opts...,
	)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return GoogleSheet{}, fmt.Errorf("create sheets service: %w", err)
	}
	return NewGoogleSheetFromService(ctx, svc, config)
}

func NewGoogleSheetFromService(ctx context.Context, svc *sheets.Service, config GoogleConfig) (GoogleSheet, error) {
	if config.SpreadsheetId == "" {
		return GoogleSheet{}, fmt.Errorf("spreadsheet id was not specified")
	}

	tab := config.Tab
	if tab == "" {
		spreadsheet, err := svc.Spreadsheets.Get(config.SpreadsheetId).
			Fields("sheets.properties.title").
			Context(ctx).
			Do()
		if err != nil {
			return GoogleSheet{}, fmt.Errorf("get spreadsheet: %w", err)
		}
		if len(spreadsheet.Sheets) == 0 || spreadsheet.Sheets[0].Properties == nil {
			return GoogleSheet{}, fmt.Errorf("spreadsheet %s has no tabs", config.SpreadsheetId)
		}
		tab = spreadsheet.Sheets[0].Properties.Title
	}

	return GoogleSheet{
		values:        svc.Spreadsheets.Values,
		spreadsheetId: config.SpreadsheetId,
		tab:           tab,
	}, nil
}

// a1 prefixes a range with the quoted tab title, ex. 'Sheet 1'!A1
func (s GoogleSheet) a1(rng string) string {
	quoted := strings.ReplaceAll(s.tab, "'", "''")
	if rng == "" {
		return fmt.Sprintf("'%s'", quoted)
	}
	return fmt.Sprintf("'%s'!%s", quoted, rng)
}

func toStrings(values [][]any) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = fmt.Sprint(v)
		}
	}
	return out
}

func toValues(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			out[i][j] = v
		}
	}
	return out
}

func (s GoogleSheet) Rows(ctx context.Context) ([][]string, error) {
	res, err := s.values.Get(s.spreadsheetId, s.a1("")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return toStrings(res.Values), nil
}

func (s GoogleSheet) Header(ctx context.Context) ([]string, error) {
	res, err := s.values.Get(s.spreadsheetId, s.a1("1:1")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(res.Values) == 0 {
		return nil, nil
	}
	return toStrings(res.Values[:1])[0], nil
}

func (s GoogleSheet) Column(ctx context.Context, idx int) ([]string, error) {
	name := ColumnName(idx)
	res, err := s.values.Get(s.spreadsheetId, s.a1(fmt.Sprintf("%s:%s", name, name))).
		MajorDimension("COLUMNS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read column %s: %w", name, err)
	}
	if len(res.Values) == 0 {
		return nil, nil
	}
	return toStrings(res.Values[:1])[0], nil
}

func (s GoogleSheet) Put(ctx context.Context, rows [][]string) error {
	_, err := s.values.Update(s.spreadsheetId, s.a1("A1"), &sheets.ValueRange{
		Values: toValues(rows),
	}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("put rows: %w", err)
	}
	return nil
}

func (s GoogleSheet) Append(ctx context.Context, rows [][]string) error {
	_, err := s.values.Append(s.spreadsheetId, s.a1("A1"), &sheets.ValueRange{
		Values: toValues(rows),
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append rows: %w", err)
	}
	return nil
}
