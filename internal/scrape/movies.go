package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/vvka-141/pgscrape/internal/fetch"
	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

type MoviesJob struct {
	url       string
	startYear int
	endYear   int
	delay     time.Duration
	fetcher   Fetcher
	logger    pgscrape.Logger
	pause     func(ctx context.Context, d time.Duration) error
}

// NewMoviesJob queries url?ajax=true&year=Y for each year in [startYear, endYear],
// waiting delay after every year that succeeds.
func NewMoviesJob(url string, startYear, endYear int, delay time.Duration, fetcher Fetcher, logger pgscrape.Logger) *MoviesJob {
	return &MoviesJob{
		url:       url,
		startYear: startYear,
		endYear:   endYear,
		delay:     delay,
		fetcher:   fetcher,
		logger:    logger,
		pause:     sleepContext,
	}
}

func (j *MoviesJob) Name() string   { return pgscrape.JobMovies }
func (j *MoviesJob) Table() string  { return TableMovies }
func (j *MoviesJob) Source() string { return j.url }

// Run collects every year first and saves all movies in one transaction.
// A year that fails or returns something other than a JSON array is logged
// and skipped without a pause.
func (j *MoviesJob) Run(ctx context.Context, store Store) (Stats, error) {
	var all []pgscrape.Movie
	var stats Stats

	for year := j.startYear; year <= j.endYear; year++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		query := url.Values{"ajax": {"true"}, "year": {strconv.Itoa(year)}}
		body, err := j.fetcher.Get(ctx, j.url, query)
		if err != nil {
			var statusErr *fetch.StatusError
			if errors.As(err, &statusErr) {
				j.logger.Error("Failed to retrieve data for year %d: HTTP status code %d", year, statusErr.Code)
			} else {
				j.logger.Error("Failed to retrieve data for year %d: %v", year, err)
			}
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			continue
		}

		movies, err := ParseMovies(body)
		if err != nil {
			j.logger.Error("Unexpected data structure for year %d: %v", year, err)
			continue
		}
		stats.Pages++
		j.logger.Verbose("movies: %d records for %d", len(movies), year)
		all = append(all, movies...)

		if year < j.endYear && j.delay > 0 {
			if err := j.pause(ctx, j.delay); err != nil {
				return stats, err
			}
		}
	}

	rows, err := store.InsertMovies(ctx, all)
	if err != nil {
		return stats, fmt.Errorf("error while inserting data into %s: %w", TableMovies, err)
	}
	stats.Rows = rows
	j.logger.Info("Saved %d movies into the '%s' table", rows, TableMovies)
	return stats, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ParseMovies decodes a JSON array of movie objects. Missing awards and
// nominations stay nil; a missing best_picture is false. Any other top-level
// shape yields ErrUnexpectedPayload.
func ParseMovies(body []byte) ([]pgscrape.Movie, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
		return nil, fmt.Errorf("%w: expected a JSON array", pgscrape.ErrUnexpectedPayload)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", pgscrape.ErrUnexpectedPayload, err)
	}

	movies := make([]pgscrape.Movie, 0, len(raw))
	for i, item := range raw {
		var m pgscrape.Movie
		if err := json.Unmarshal(item, &m); err != nil {
			return nil, fmt.Errorf("item %d: %w: %w", i, pgscrape.ErrUnexpectedPayload, err)
		}
		movies = append(movies, m)
	}
	return movies, nil
}
