package quizplease

import (
	"context"
	"fmt"
	"quizstats/internal/htmlutil"
	"quizstats/internal/quiz"
	"regexp"
	"slices"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_client_discover     = "client.discover"
	report_client_page_count   = "client.page-count"
	report_client_listing_page = "client.listing-page"
)

var gameIdRegex = regexp.MustCompile(`id=(\d+)`)

// pageCount reads the pagination control of the listing, which renders one
// <li> per page plus a "previous" and a "next" item.
func pageCount(doc *goquery.Document) (int, error) {
	pagination := doc.Find("ul.pagination").First()
	if pagination.Length() == 0 {
		return 0, ErrNoPagination
	}
	count := pagination.Find("li").Length() - 2
	if count < 0 {
		count = 0
	}
	return count, nil
}

// listingIds returns the ids of every game on a listing page, in page order.
func (c Client) listingIds(doc *goquery.Document) []quiz.RecordID {
	var ids []quiz.RecordID
	doc.Find("div.game-buttons.available").Each(func(_ int, s *goquery.Selection) {
		groups := gameIdRegex.FindStringSubmatch(htmlutil.OuterHtml(s))
		if len(groups) < 2 {
			c.tel.ReportWarning(
				report_client_listing_page,
				fmt.Errorf("game buttons without a game id"),
			)
			return
		}
		id, err := strconv.ParseInt(groups[1], 10, 64)
		if err != nil {
			c.tel.ReportWarning(
				report_client_listing_page,
				fmt.Errorf("parse game id: %w", err),
				groups[1],
			)
			return
		}
		ids = append(ids, quiz.RecordID(id))
	})
	return ids
}

// Discover walks the past games listing (newest first) and returns the ids of
// every game newer than the watermark in ascending order. It stops at the first
// page that has no new games, as every page after it only holds older ones.
//
// Any failure yields an empty result alongside the error.
func (c Client) Discover(ctx context.Context, watermark quiz.RecordID) ([]quiz.RecordID, error) {
	ctx, span := tracer.Start(ctx, "client:Discover")
	defer span.End()
	span.SetAttributes(attribute.Int64("watermark", int64(watermark)))

	fail := func(err error) ([]quiz.RecordID, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discovery failed")
		c.tel.ReportBroken(report_client_discover, err)
		return nil, fmt.Errorf("discover games: %w", err)
	}

	root, err := c.fetch(ctx, listingPath, nil)
	if err != nil {
		return fail(err)
	}
	pages, err := pageCount(root)
	if err != nil {
		return fail(err)
	}
	c.tel.ReportDebug(report_client_page_count, pages)

	var newestFirst []quiz.RecordID
	for page := 1; page <= pages; page++ {
		doc, err := c.fetch(ctx, listingPath, map[string]string{
			"page": strconv.Itoa(page),
		})
		if err != nil {
			return fail(fmt.Errorf("page %d: %w", page, err))
		}

		qualifying := 0
		for _, id := range c.listingIds(doc) {
			if id <= watermark {
				continue
			}
			newestFirst = append(newestFirst, id)
			qualifying++
		}
		c.tel.ReportDebug("listing page", page, qualifying)

		if qualifying == 0 {
			break
		}
	}

	// the listing is newest first, sorting puts it into processing order and
	// compacting drops games that shifted onto the next page mid-crawl
	ascending := slices.Clone(newestFirst)
	slices.Sort(ascending)
	ascending = slices.Compact(ascending)

	span.SetAttributes(attribute.Int("discovered", len(ascending)))
	return ascending, nil
}
