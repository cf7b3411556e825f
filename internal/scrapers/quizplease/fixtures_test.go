package quizplease

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"quizstats/internal/quiz"
	"quizstats/internal/telemetry"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func listingHtml(pages int, ids []quiz.RecordID) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"schedule-block\">")
	for _, id := range ids {
		fmt.Fprintf(
			&b,
			`<div class="schedule-column"><div class="game-buttons available"><a class="button" href="/game-page?id=%d">Результаты</a></div></div>`,
			id,
		)
	}
	// games that have not been played yet have no results link
	b.WriteString(`<div class="schedule-column"><div class="game-buttons"><a href="/register">Записаться</a></div></div>`)
	b.WriteString("</div>")
	if pages >= 0 {
		b.WriteString(`<ul class="pagination"><li class="prev">«</li>`)
		for i := 1; i <= pages; i++ {
			fmt.Fprintf(&b, `<li><a href="?page=%d">%d</a></li>`, i, i)
		}
		b.WriteString(`<li class="next">»</li></ul>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

type gamePage struct {
	title    string
	number   string
	category string
	// info holds the text of each div.game-info-column in order
	info  []string
	table string
}

func defaultGamePage() gamePage {
	return gamePage{
		title:    "Квиз, плиз! YEREVAN",
		number:   "#123",
		category: " Классика ",
		info:     []string{"Ереван", "Бар «Терраса»", "7 июля"},
		table: `<table class="results">
			<thead><tr><th>Место</th><th>НАЗВАНИЕ КОМАНДЫ</th><th>раунд 1</th><th>Раунд 2</th><th>Итого</th></tr></thead>
			<tbody>
				<tr><td>1</td><td>  Лоси   в  тумане </td><td>5</td><td>6</td><td>11</td></tr>
				<tr><td>2</td><td>Ёжики</td><td>4</td><td>5.5</td><td>9.5</td></tr>
				<tr><td>3</td><td>Кот Шрёдингера</td><td>3</td></tr>
			</tbody>
		</table>`,
	}
}

func (g gamePage) html() string {
	var b strings.Builder
	b.WriteString("<html><body>")
	if g.title != "" || g.number != "" {
		b.WriteString(`<div class="game-heading-info">`)
		if g.title != "" {
			fmt.Fprintf(&b, "<h1>%s</h1>", g.title)
		}
		if g.number != "" {
			fmt.Fprintf(&b, "<h1>%s</h1>", g.number)
		}
		b.WriteString("</div>")
	}
	if g.category != "" {
		fmt.Fprintf(&b, `<div class="game-tag">%s</div>`, g.category)
	}
	for _, info := range g.info {
		fmt.Fprintf(&b, `<div class="game-info-column"><div class="title">-</div><div class="text">%s</div></div>`, info)
	}
	b.WriteString(g.table)
	b.WriteString("</body></html>")
	return b.String()
}

// fakeSite serves a listing split into pages and a set of game pages,
// recording every request it receives.
type fakeSite struct {
	mutex    sync.Mutex
	pages    [][]quiz.RecordID
	noPager  bool
	games    map[quiz.RecordID]string
	requests []string
}

func (s *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.requests = append(s.requests, r.URL.RequestURI())

	switch r.URL.Path {
	case listingPath:
		pages := len(s.pages)
		if s.noPager {
			pages = -1
		}
		page := r.URL.Query().Get("page")
		if page == "" {
			var first []quiz.RecordID
			if len(s.pages) > 0 {
				first = s.pages[0]
			}
			w.Write([]byte(listingHtml(pages, first)))
			return
		}
		var n int
		fmt.Sscanf(page, "%d", &n)
		if n < 1 || n > len(s.pages) {
			w.Write([]byte(listingHtml(pages, nil)))
			return
		}
		w.Write([]byte(listingHtml(pages, s.pages[n-1])))
	case gamePath:
		var id int64
		fmt.Sscanf(r.URL.Query().Get("id"), "%d", &id)
		page, ok := s.games[quiz.RecordID(id)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(page))
	default:
		http.NotFound(w, r)
	}
}

func (s *fakeSite) listingPagesFetched() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	count := 0
	for _, r := range s.requests {
		if strings.HasPrefix(r, listingPath+"?page=") {
			count++
		}
	}
	return count
}

func newTestClient(t testing.TB, site *fakeSite, edit func(*Options)) (Client, *telemetry.Recorder) {
	server := httptest.NewServer(site)
	t.Cleanup(server.Close)

	opts := DefaultOptions()
	opts.BaseUrl = server.URL
	opts.Rate = 0
	if edit != nil {
		edit(&opts)
	}

	rec := telemetry.NewRecorder()
	client, err := NewClient(opts, rec)
	require.NoError(t, err)
	return client, rec
}
