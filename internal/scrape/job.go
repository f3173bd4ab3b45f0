package scrape

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// Fetcher returns the body of a successful GET. *fetch.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error)
}

// FetcherFactory builds a Fetcher whose requests are spaced at least
// minInterval apart (zero means no pacing).
type FetcherFactory func(minInterval time.Duration) Fetcher

// Store persists records. Each call is one transaction and returns the number of rows written.
type Store interface {
	InsertTopics(ctx context.Context, topics []pgscrape.Topic) (int, error)
	InsertTeamSeasons(ctx context.Context, seasons []pgscrape.TeamSeason) (int, error)
	InsertMovies(ctx context.Context, movies []pgscrape.Movie) (int, error)
}

// Stats summarizes what a job wrote.
type Stats struct {
	Rows  int
	Pages int
}

// Job is one scrape job. Run assumes the job's table already exists.
type Job interface {
	Name() string
	Table() string
	Source() string
	Run(ctx context.Context, store Store) (Stats, error)
}

// Deps carries what every job constructor needs.
type Deps struct {
	Sources    pgscrape.SourceConfig
	NewFetcher FetcherFactory
	Logger     pgscrape.Logger
}

type constructor func(Deps) Job

var registry = map[string]constructor{
	pgscrape.JobTopics: func(d Deps) Job {
		return NewTopicsJob(d.Sources.TopicsURL, d.NewFetcher(d.Sources.RequestInterval), d.Logger)
	},
	pgscrape.JobHockey: func(d Deps) Job {
		return NewHockeyJob(d.Sources.HockeyURL, d.Sources.HockeyPerPage, d.Sources.HockeyMaxPages,
			d.NewFetcher(d.Sources.RequestInterval), d.Logger)
	},
	pgscrape.JobMovies: func(d Deps) Job {
		return NewMoviesJob(d.Sources.MoviesURL, d.Sources.MoviesStartYear, d.Sources.MoviesEndYear,
			d.Sources.MoviesDelay, d.NewFetcher(d.Sources.RequestInterval), d.Logger)
	},
}

// New builds the named job.
func New(name string, deps Deps) (Job, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, pgscrape.ErrUnknownJob)
	}
	if deps.NewFetcher == nil {
		panic("fetcher factory cannot be nil")
	}
	if deps.Logger == nil {
		panic("logger cannot be nil")
	}
	return build(deps), nil
}

// Info describes a job for listings.
type Info struct {
	Name   string
	Table  string
	Source string
}

// Describe lists every job in launcher order.
func Describe(src pgscrape.SourceConfig) []Info {
	tables := map[string]string{
		pgscrape.JobMovies: TableMovies,
		pgscrape.JobHockey: TableHockeyTeams,
		pgscrape.JobTopics: TableAdvanceTopics,
	}
	sources := map[string]string{
		pgscrape.JobMovies: src.MoviesURL,
		pgscrape.JobHockey: src.HockeyURL,
		pgscrape.JobTopics: src.TopicsURL,
	}
	infos := make([]Info, 0, len(pgscrape.JobOrder))
	for _, name := range pgscrape.JobOrder {
		infos = append(infos, Info{Name: name, Table: tables[name], Source: sources[name]})
	}
	return infos
}

// Table names written by the jobs.
const (
	TableAdvanceTopics = "advance_topics"
	TableHockeyTeams   = "hockey_teams"
	TableMovies        = "movies"
)
