package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgscrape/internal/fetch"
	"github.com/vvka-141/pgscrape/internal/logging"
	"github.com/vvka-141/pgscrape/internal/scrape"
	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

const (
	topicsHTML = `<html><body>
		<p class="lead">Intro</p>
		<h4>Spoofing Headers</h4><p> Send a browser user agent. </p>
		<h4>Logins</h4><p>Keep the session cookie.</p>
	</body></html>`

	hockeyPage1HTML = `<table>
		<tr class="team"><td class="name">Boston Bruins</td><td class="year">1990</td><td class="wins">44</td>
		<td class="losses">24</td><td class="ot-losses"></td><td class="pct">0.55</td>
		<td class="gf">299</td><td class="ga">264</td><td class="diff">35</td></tr>
	</table>`

	emptyHTML = `<table></table>`
)

// fakeFetcher serves canned bodies keyed by URL plus the paging query parameter.
type fakeFetcher struct {
	mu       sync.Mutex
	requests []string
	failURL  string
}

func (f *fakeFetcher) Get(_ context.Context, rawURL string, query url.Values) ([]byte, error) {
	f.mu.Lock()
	f.requests = append(f.requests, rawURL+"?"+query.Encode())
	f.mu.Unlock()

	if rawURL == f.failURL {
		return nil, &fetch.StatusError{URL: rawURL, Code: 503}
	}
	switch rawURL {
	case pgscrape.DefaultTopicsURL:
		return []byte(topicsHTML), nil
	case pgscrape.DefaultHockeyURL:
		if query.Get("page_num") == "1" {
			return []byte(hockeyPage1HTML), nil
		}
		return []byte(emptyHTML), nil
	case pgscrape.DefaultMoviesURL:
		return []byte(fmt.Sprintf(`[{"title":"Movie %s","year":%s,"nominations":1}]`, query.Get("year"), query.Get("year"))), nil
	}
	return nil, fmt.Errorf("unexpected url %s", rawURL)
}

// memStore is an in-memory jobStore.
type memStore struct {
	tables    map[string]int64
	ensureErr error
}

func newMemStore() *memStore {
	return &memStore{tables: map[string]int64{}}
}

func (s *memStore) EnsureTable(_ context.Context, table string) error {
	if s.ensureErr != nil {
		return s.ensureErr
	}
	if _, ok := s.tables[table]; !ok {
		s.tables[table] = 0
	}
	return nil
}

func (s *memStore) Count(_ context.Context, table string) (int64, bool, error) {
	n, ok := s.tables[table]
	return n, ok, nil
}

func (s *memStore) InsertTopics(_ context.Context, t []pgscrape.Topic) (int, error) {
	s.tables[scrape.TableAdvanceTopics] += int64(len(t))
	return len(t), nil
}

func (s *memStore) InsertTeamSeasons(_ context.Context, t []pgscrape.TeamSeason) (int, error) {
	s.tables[scrape.TableHockeyTeams] += int64(len(t))
	return len(t), nil
}

func (s *memStore) InsertMovies(_ context.Context, m []pgscrape.Movie) (int, error) {
	s.tables[scrape.TableMovies] += int64(len(m))
	return len(m), nil
}

type fakeDatabaseManager struct {
	existing   map[string]bool
	createErr  error
	created    []string
	dropped    []string
	terminated []string
}

func (m *fakeDatabaseManager) Exists(_ context.Context, _ pgscrape.DBConnection, name string) (bool, error) {
	return m.existing[name], nil
}

func (m *fakeDatabaseManager) Create(_ context.Context, _ pgscrape.DBConnection, name string) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, name)
	if m.existing == nil {
		m.existing = map[string]bool{}
	}
	m.existing[name] = true
	return nil
}

func (m *fakeDatabaseManager) Drop(_ context.Context, _ pgscrape.DBConnection, name string) error {
	m.dropped = append(m.dropped, name)
	delete(m.existing, name)
	return nil
}

func (m *fakeDatabaseManager) TerminateConnections(_ context.Context, _ pgscrape.DBConnection, name string) error {
	m.terminated = append(m.terminated, name)
	return nil
}

type stubApprover struct {
	approved bool
	err      error
	asked    []string
}

func (a *stubApprover) RequestApproval(_ context.Context, name string) (bool, error) {
	a.asked = append(a.asked, name)
	return a.approved, a.err
}

type recordingObserver struct {
	events []string
}

func (o *recordingObserver) JobStarted(name string) { o.events = append(o.events, "start:"+name) }

func (o *recordingObserver) JobFinished(r pgscrape.JobResult) {
	o.events = append(o.events, "done:"+r.Name)
}

type errorLogger struct {
	logging.NullLogger
	errors []string
}

func (l *errorLogger) Error(format string, args ...interface{}) {
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

type harness struct {
	runner   *Runner
	fetcher  *fakeFetcher
	store    *memStore
	dbm      *fakeDatabaseManager
	logger   *errorLogger
	mgmtErr  error
	storeErr error
	opened   []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		fetcher: &fakeFetcher{},
		store:   newMemStore(),
		dbm:     &fakeDatabaseManager{},
		logger:  &errorLogger{},
	}
	factory := func(*pgscrape.ConnectionConfig) (pgscrape.Connector, error) {
		return nil, errors.New("not used")
	}
	h.runner = NewRunner(factory, h.dbm, func(time.Duration) scrape.Fetcher { return h.fetcher }, h.logger)
	h.runner.newRunID = func() string { return "run-1" }
	h.runner.mgmtConnector = func(_ context.Context, _ *pgscrape.ConnectionConfig, dbName string) (pgscrape.DBConnection, func(), error) {
		if h.mgmtErr != nil {
			return nil, nil, h.mgmtErr
		}
		return nil, func() {}, nil
	}
	h.runner.openStore = func(_ context.Context, cfg *pgscrape.ConnectionConfig) (jobStore, func(), error) {
		if h.storeErr != nil {
			return nil, nil, h.storeErr
		}
		h.opened = append(h.opened, cfg.Database)
		return h.store, func() {}, nil
	}
	return h
}

func testRunConfig() pgscrape.RunConfig {
	src := pgscrape.DefaultSourceConfig()
	src.MoviesStartYear = 2014
	src.MoviesEndYear = 2015
	src.MoviesDelay = 0
	return pgscrape.RunConfig{
		DatabaseName:     "scrapethissite",
		ConnectionString: "postgresql://postgres@localhost:5432/scrapethissite",
		Sources:          src,
	}
}

func TestNewRunner_PanicsOnNilDependencies(t *testing.T) {
	factory := func(*pgscrape.ConnectionConfig) (pgscrape.Connector, error) { return nil, nil }
	fetchers := func(time.Duration) scrape.Fetcher { return &fakeFetcher{} }
	dbm := &fakeDatabaseManager{}
	logger := logging.NewNullLogger()

	assert.Panics(t, func() { NewRunner(nil, dbm, fetchers, logger) })
	assert.Panics(t, func() { NewRunner(factory, nil, fetchers, logger) })
	assert.Panics(t, func() { NewRunner(factory, dbm, nil, logger) })
	assert.Panics(t, func() { NewRunner(factory, dbm, fetchers, nil) })
}

func TestRun_AllJobsInLauncherOrder(t *testing.T) {
	h := newHarness(t)
	observer := &recordingObserver{}
	h.runner.SetObserver(observer)

	results, err := h.runner.Run(context.Background(), testRunConfig())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []string{
		"start:movies", "done:movies",
		"start:hockey", "done:hockey",
		"start:topics", "done:topics",
	}, observer.events)

	assert.Equal(t, pgscrape.JobResult{Name: "movies", Table: "movies", Rows: 2, Pages: 2, Duration: results[0].Duration}, results[0])
	assert.Equal(t, 1, results[1].Rows)
	assert.Equal(t, 1, results[1].Pages)
	assert.Equal(t, 2, results[2].Rows)

	assert.Equal(t, []string{"scrapethissite"}, h.dbm.created)
	assert.Equal(t, []string{"scrapethissite", "scrapethissite", "scrapethissite"}, h.opened, "one pool per job")
	assert.Empty(t, h.logger.errors)
}

func TestRun_SelectedJobsOnly(t *testing.T) {
	h := newHarness(t)
	cfg := testRunConfig()
	cfg.Jobs = []string{pgscrape.JobTopics, pgscrape.JobMovies}

	results, err := h.runner.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "movies", results[0].Name)
	assert.Equal(t, "topics", results[1].Name)

	_, hockeyTouched := h.store.tables[scrape.TableHockeyTeams]
	assert.False(t, hockeyTouched)
}

func TestRun_FailingJobDoesNotStopLaterJobs(t *testing.T) {
	h := newHarness(t)
	h.fetcher.failURL = pgscrape.DefaultHockeyURL

	results, err := h.runner.Run(context.Background(), testRunConfig())
	require.NoError(t, err, "non-strict runs only log job failures")
	require.Len(t, results, 3)

	assert.False(t, results[0].Failed())
	assert.True(t, results[1].Failed())
	assert.ErrorIs(t, results[1].Err, pgscrape.ErrFetchFailed)
	assert.False(t, results[2].Failed())
	assert.Equal(t, int64(2), h.store.tables[scrape.TableAdvanceTopics])

	require.Len(t, h.logger.errors, 1)
	assert.True(t, strings.HasPrefix(h.logger.errors[0], "[run-1] job hockey failed:"), h.logger.errors[0])
}

func TestRun_StrictModeReportsJobFailure(t *testing.T) {
	h := newHarness(t)
	h.fetcher.failURL = pgscrape.DefaultTopicsURL
	cfg := testRunConfig()
	cfg.Strict = true

	results, err := h.runner.Run(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, pgscrape.ErrJobFailed)
	assert.Equal(t, pgscrape.ExitJobFailed, pgscrape.ExitCodeForError(err))
	assert.Len(t, results, 3)
}

func TestRun_StoreFailureIsAJobFailure(t *testing.T) {
	h := newHarness(t)
	h.store.ensureErr = errors.New("permission denied for schema public")

	results, err := h.runner.Run(context.Background(), testRunConfig())
	require.NoError(t, err)
	for _, r := range results {
		assert.True(t, r.Failed(), r.Name)
	}
	assert.Len(t, h.logger.errors, 3)
}

func TestRun_EnsureDatabaseFailureAbortsRun(t *testing.T) {
	h := newHarness(t)
	h.dbm.createErr = errors.New("permission denied to create database")

	results, err := h.runner.Run(context.Background(), testRunConfig())
	require.Error(t, err)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, pgscrape.ErrConnectionFailed)
	assert.Equal(t, pgscrape.ExitConnectionError, pgscrape.ExitCodeForError(err))
	assert.Empty(t, h.fetcher.requests)
}

func TestRun_ExistingDatabaseIsNotRecreated(t *testing.T) {
	h := newHarness(t)
	h.dbm.existing = map[string]bool{"scrapethissite": true}

	_, err := h.runner.Run(context.Background(), testRunConfig())
	require.NoError(t, err)
	assert.Empty(t, h.dbm.created)
}

func TestRun_InvalidConfig(t *testing.T) {
	h := newHarness(t)

	cfg := testRunConfig()
	cfg.Jobs = []string{"weather"}
	_, err := h.runner.Run(context.Background(), cfg)
	assert.ErrorIs(t, err, pgscrape.ErrUnknownJob)

	cfg = testRunConfig()
	cfg.DatabaseName = "postgres"
	_, err = h.runner.Run(context.Background(), cfg)
	assert.ErrorIs(t, err, pgscrape.ErrInvalidConfig)
}

func TestRun_CancelledContextStopsBeforeNextJob(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	observer := &cancelAfterFirst{cancel: cancel}
	h.runner.SetObserver(observer)

	results, err := h.runner.Run(ctx, testRunConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 1)
}

type cancelAfterFirst struct {
	cancel context.CancelFunc
}

func (c *cancelAfterFirst) JobStarted(string) {}

func (c *cancelAfterFirst) JobFinished(pgscrape.JobResult) { c.cancel() }

func TestEnsure_CreatesDatabaseAndAllTables(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.runner.Ensure(context.Background(), testRunConfig()))
	assert.Equal(t, []string{"scrapethissite"}, h.dbm.created)
	assert.Len(t, h.store.tables, 3)
	assert.Empty(t, h.fetcher.requests, "ensure never scrapes")
}

func TestReset(t *testing.T) {
	t.Run("drops after approval", func(t *testing.T) {
		h := newHarness(t)
		h.dbm.existing = map[string]bool{"scrapethissite": true}
		approver := &stubApprover{approved: true}

		require.NoError(t, h.runner.Reset(context.Background(), testRunConfig(), approver))
		assert.Equal(t, []string{"scrapethissite"}, approver.asked)
		assert.Equal(t, []string{"scrapethissite"}, h.dbm.terminated)
		assert.Equal(t, []string{"scrapethissite"}, h.dbm.dropped)
	})

	t.Run("denied", func(t *testing.T) {
		h := newHarness(t)
		h.dbm.existing = map[string]bool{"scrapethissite": true}

		err := h.runner.Reset(context.Background(), testRunConfig(), &stubApprover{})
		assert.ErrorIs(t, err, pgscrape.ErrApprovalDenied)
		assert.Empty(t, h.dbm.dropped)
	})

	t.Run("missing database skips approval", func(t *testing.T) {
		h := newHarness(t)
		approver := &stubApprover{approved: true}

		require.NoError(t, h.runner.Reset(context.Background(), testRunConfig(), approver))
		assert.Empty(t, approver.asked)
		assert.Empty(t, h.dbm.dropped)
	})

	t.Run("approver error", func(t *testing.T) {
		h := newHarness(t)
		h.dbm.existing = map[string]bool{"scrapethissite": true}

		err := h.runner.Reset(context.Background(), testRunConfig(), &stubApprover{err: context.Canceled})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStatus(t *testing.T) {
	t.Run("missing database", func(t *testing.T) {
		h := newHarness(t)

		report, err := h.runner.Status(context.Background(), testRunConfig())
		require.NoError(t, err)
		assert.False(t, report.DatabaseExists)
		assert.Len(t, report.Tables, 3)
		assert.Empty(t, h.opened)
	})

	t.Run("counts rows", func(t *testing.T) {
		h := newHarness(t)
		h.dbm.existing = map[string]bool{"scrapethissite": true}
		h.store.tables[scrape.TableMovies] = 12

		report, err := h.runner.Status(context.Background(), testRunConfig())
		require.NoError(t, err)
		require.True(t, report.DatabaseExists)

		assert.Equal(t, TableStatus{Job: "movies", Table: "movies", Exists: true, Rows: 12}, report.Tables[0])
		assert.Equal(t, TableStatus{Job: "hockey", Table: "hockey_teams"}, report.Tables[1])
	})

	t.Run("connection failure", func(t *testing.T) {
		h := newHarness(t)
		h.mgmtErr = fmt.Errorf("dial: %w", pgscrape.ErrConnectionFailed)

		_, err := h.runner.Status(context.Background(), testRunConfig())
		assert.ErrorIs(t, err, pgscrape.ErrConnectionFailed)
	})
}

func TestPrepare_CopiesAuthSettings(t *testing.T) {
	h := newHarness(t)
	cfg := testRunConfig()
	cfg.AuthMethod = pgscrape.AuthMethodAWSIAM
	cfg.AWSRegion = "eu-west-1"

	connConfig, err := h.runner.prepare(cfg)
	require.NoError(t, err)
	assert.Equal(t, pgscrape.AuthMethodAWSIAM, connConfig.AuthMethod)
	assert.Equal(t, "eu-west-1", connConfig.AWSRegion)
	assert.Equal(t, pgscrape.DefaultAppName, connConfig.AppName)
}
