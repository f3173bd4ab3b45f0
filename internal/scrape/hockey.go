package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

type HockeyJob struct {
	url      string
	perPage  int
	maxPages int
	fetcher  Fetcher
	logger   pgscrape.Logger
}

// NewHockeyJob pages through url with per_page rows; maxPages 0 means no limit.
func NewHockeyJob(url string, perPage, maxPages int, fetcher Fetcher, logger pgscrape.Logger) *HockeyJob {
	return &HockeyJob{url: url, perPage: perPage, maxPages: maxPages, fetcher: fetcher, logger: logger}
}

func (j *HockeyJob) Name() string   { return pgscrape.JobHockey }
func (j *HockeyJob) Table() string  { return TableHockeyTeams }
func (j *HockeyJob) Source() string { return j.url }

// Run fetches page 1, 2, ... and saves each page in its own transaction.
// It stops at the first page without team rows, at maxPages, or when a page
// cannot be fetched. A page that fails to save is logged and pagination goes
// on; the failures are returned together at the end.
func (j *HockeyJob) Run(ctx context.Context, store Store) (Stats, error) {
	var stats Stats
	var errs []error
	for page := 1; j.maxPages == 0 || page <= j.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return stats, errors.Join(append(errs, err)...)
		}

		query := url.Values{
			"page_num": {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(j.perPage)},
		}
		body, err := j.fetcher.Get(ctx, j.url, query)
		if err != nil {
			return stats, errors.Join(append(errs, fmt.Errorf("page %d: %w", page, err))...)
		}

		result, err := ParseHockeyPage(body)
		if err != nil {
			return stats, errors.Join(append(errs, err)...)
		}
		for _, rowErr := range result.Skipped {
			j.logger.Error("hockey: page %d: %v", page, rowErr)
		}
		if result.TeamRows == 0 {
			j.logger.Verbose("hockey: page %d has no team rows, stopping", page)
			break
		}

		rows, err := store.InsertTeamSeasons(ctx, result.Seasons)
		if err != nil {
			err = fmt.Errorf("error while inserting page %d into %s: %w", page, TableHockeyTeams, err)
			j.logger.Error("%v", err)
			errs = append(errs, err)
			continue
		}
		stats.Pages++
		stats.Rows += rows
		j.logger.Info("Data from page %d inserted successfully into the database (%d rows)", page, rows)
	}
	return stats, errors.Join(errs...)
}

// HockeyPage is one parsed page. TeamRows counts every tr.team, including
// rows that were skipped; an empty page ends pagination.
type HockeyPage struct {
	Seasons  []pgscrape.TeamSeason
	Skipped  []error
	TeamRows int
}

// ParseHockeyPage extracts every tr.team row. Rows with a missing cell or a
// non-integer count are reported in Skipped and left out.
func ParseHockeyPage(body []byte) (HockeyPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return HockeyPage{}, fmt.Errorf("parse hockey page: %w: %w", pgscrape.ErrUnexpectedPayload, err)
	}

	var page HockeyPage
	doc.Find("tr.team").Each(func(i int, row *goquery.Selection) {
		page.TeamRows++
		season, err := parseTeamRow(row)
		if err != nil {
			page.Skipped = append(page.Skipped, fmt.Errorf("row %d: %w", i+1, err))
			return
		}
		page.Seasons = append(page.Seasons, season)
	})
	return page, nil
}

func parseTeamRow(row *goquery.Selection) (pgscrape.TeamSeason, error) {
	p := cellParser{row: row}
	season := pgscrape.TeamSeason{
		Name:         p.text("name"),
		Year:         p.int("year"),
		Wins:         p.int("wins"),
		Losses:       p.int("losses"),
		OTLosses:     p.optionalInt("ot-losses"),
		Pct:          p.text("pct"),
		GoalsFor:     p.int("gf"),
		GoalsAgainst: p.int("ga"),
		Diff:         p.int("diff"),
	}
	if p.err != nil {
		return pgscrape.TeamSeason{}, p.err
	}
	return season, nil
}

// cellParser reads td cells by class and keeps the first error.
type cellParser struct {
	row *goquery.Selection
	err error
}

func (p *cellParser) text(class string) string {
	if p.err != nil {
		return ""
	}
	cell := p.row.Find("td." + class)
	if cell.Length() == 0 {
		p.err = fmt.Errorf("missing td.%s", class)
		return ""
	}
	return strings.TrimSpace(cell.First().Text())
}

func (p *cellParser) int(class string) int {
	s := p.text(class)
	if p.err != nil {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.err = fmt.Errorf("td.%s: invalid integer %q", class, s)
		return 0
	}
	return n
}

func (p *cellParser) optionalInt(class string) *int {
	s := p.text(class)
	if p.err != nil || s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.err = fmt.Errorf("td.%s: invalid integer %q", class, s)
		return nil
	}
	return &n
}
