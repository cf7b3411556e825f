package quizplease

import (
	"fmt"
	"quizstats/internal/quiz"
	"strconv"
	"strings"
)

var monthNumbers = map[string]string{
	"января":   "01",
	"февраля":  "02",
	"марта":    "03",
	"апреля":   "04",
	"мая":      "05",
	"июня":     "06",
	"июля":     "07",
	"августа":  "08",
	"сентября": "09",
	"октября":  "10",
	"ноября":   "11",
	"декабря":  "12",
}

// DateLayout says which `div.game-info-column` holds the date for games with
// an id of at least MinID. The site has moved the date around over the years,
// a new era is a new entry.
type DateLayout struct {
	MinID  quiz.RecordID `json:"min_id"`
	Column int           `json:"column"`
}

// YearThreshold maps ids strictly below Below to Year. A Below <= 0 matches
// every id.
type YearThreshold struct {
	Below quiz.RecordID `json:"below"`
	Year  string        `json:"year"`
}

// YearTable is an ordered list of thresholds. The game pages never show a
// year, so the table has to be extended whenever the site's ids cross into
// a new calendar year.
type YearTable []YearThreshold

// Resolve returns the year of the first threshold the id falls under. If the
// id is past every threshold the last year is returned and stale is true.
func (t YearTable) Resolve(id quiz.RecordID) (year string, stale bool) {
	if len(t) == 0 {
		return "", true
	}
	for _, threshold := range t {
		if threshold.Below <= 0 || id < threshold.Below {
			return threshold.Year, false
		}
	}
	return t[len(t)-1].Year, true
}

func (c Client) layoutFor(id quiz.RecordID) DateLayout {
	layout := c.opts.DateLayouts[0]
	for _, l := range c.opts.DateLayouts {
		if id < l.MinID {
			break
		}
		layout = l
	}
	return layout
}

// parseDayMonth turns text like "7 июля" or "07 июля, пятница" into ("07", "07").
func parseDayMonth(text string) (day string, month string, err error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return "", "", fmt.Errorf("date text '%s' is not '<day> <month>'", text)
	}

	dayNum, err := strconv.Atoi(fields[0])
	if err != nil || dayNum < 1 || dayNum > 31 {
		return "", "", fmt.Errorf("invalid day in date text '%s'", text)
	}

	monthName := strings.ToLower(strings.Trim(fields[1], ",."))
	month, ok := monthNumbers[monthName]
	if !ok {
		return "", "", fmt.Errorf("unknown month '%s' in date text '%s'", fields[1], text)
	}

	return fmt.Sprintf("%02d", dayNum), month, nil
}

// resolveDate builds a YYYY-MM-DD date out of the page's date text and the game id.
func (c Client) resolveDate(id quiz.RecordID, text string) (string, error) {
	day, month, err := parseDayMonth(text)
	if err != nil {
		return "", err
	}

	year, stale := c.opts.Years.Resolve(id)
	if year == "" {
		return "", fmt.Errorf("no year configured for game %d", id)
	}
	if stale {
		c.tel.ReportWarning(
			report_client_resolve_date,
			fmt.Errorf("game %d is past every year threshold, the year table may be stale", id),
			year,
		)
	}

	return fmt.Sprintf("%s-%s-%s", year, month, day), nil
}
