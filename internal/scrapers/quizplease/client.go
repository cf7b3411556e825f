// client.go contains the http side of scraping quizplease, everything about how
// a page is turned into data lives in discover.go, game.go and date.go.

package quizplease

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/url"
	"quizstats/internal/assert"
	"quizstats/internal/telemetry"
	"slices"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("quizstats/scrapers/quizplease")

const (
	listingPath = "/schedule-past"
	gamePath    = "/game-page"
)

var (
	ErrNoPagination  = errors.New("pagination control not found")
	ErrNoResultTable = errors.New("result table not found")
	ErrMissingField  = errors.New("missing field")
)

func missingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}

// HeaderMatchers are lowercase substrings used to pick the columns of the
// result table that are kept.
type HeaderMatchers struct {
	Team      []string `json:"team"`
	Placement []string `json:"placement"`
	Round     []string `json:"round"`
}

type Options struct {
	BaseUrl string `json:"base_url"`
	// Rate is the amount of game pages fetched per second, <= 0 disables pacing.
	Rate             float64        `json:"rate"`
	TimeoutSeconds   int            `json:"timeout_seconds"`
	CloudflareBypass bool           `json:"cloudflare_bypass"`
	Headers          HeaderMatchers `json:"headers"`
	DateLayouts      []DateLayout   `json:"date_layouts"`
	Years            YearTable      `json:"years"`
	// DumpDir is a directory every fetched page is written to, for debugging
	// selectors against what the site actually served.
	DumpDir string `json:"dump_dir"`
}

// DefaultOptions returns the options that match the site as of the 2025 season.
func DefaultOptions() Options {
	return Options{
		BaseUrl:        "https://yerevan.quizplease.ru",
		Rate:           1,
		TimeoutSeconds: 30,
		Headers: HeaderMatchers{
			Team:      []string{"азвание"},
			Placement: []string{"есто"},
			Round:     []string{"аунд"},
		},
		DateLayouts: []DateLayout{
			{MinID: 0, Column: 2},
		},
		Years: YearTable{
			{Below: 49999, Year: "2022"},
			{Below: 69919, Year: "2023"},
			{Below: 93630, Year: "2024"},
			{Below: 0, Year: "2025"},
		},
	}
}

// Client scrapes the past games listing and the result pages of individual games.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	opts    Options
	tel     telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (Client, error) {
	assert.NotNil(tel, "tel")
	tel = telemetry.NewScopedAPI("quizplease_scraper", tel)

	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return Client{}, err
	}
	if parsedBaseUrl.Host == "" {
		return Client{}, fmt.Errorf("base url '%s' has no host", opts.BaseUrl)
	}
	if len(opts.Years) == 0 {
		return Client{}, fmt.Errorf("year table is empty")
	}
	if len(opts.DateLayouts) == 0 {
		return Client{}, fmt.Errorf("no date layouts configured")
	}
	if len(opts.Headers.Team) == 0 || len(opts.Headers.Placement) == 0 || len(opts.Headers.Round) == 0 {
		return Client{}, fmt.Errorf("header matchers must be specified for team, placement and round")
	}

	opts.DateLayouts = slices.Clone(opts.DateLayouts)
	slices.SortStableFunc(opts.DateLayouts, func(a, b DateLayout) int {
		return cmp.Compare(a.MinID, b.MinID)
	})

	timeout := time.Duration(opts.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(timeout)

	var output telemetry.ResponseOutput
	if opts.DumpDir != "" {
		fsOutput, err := telemetry.NewFilesystemOutput(opts.DumpDir)
		if err != nil {
			return Client{}, fmt.Errorf("create dump dir: %w", err)
		}
		output = fsOutput
	}
	telemetry.InstrumentResty(httpClient, tel, output)

	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}

	return Client{
		http: httpClient,
		// burst of 1 means consecutive game pages are always spaced out
		limiter: rate.NewLimiter(limit, 1),
		opts:    opts,
		tel:     tel,
	}, nil
}

func (c Client) fetch(ctx context.Context, path string, query map[string]string) (*goquery.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", path, res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}
