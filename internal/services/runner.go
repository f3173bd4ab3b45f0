package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/pgscrape/internal/db"
	"github.com/vvka-141/pgscrape/internal/db/manager"
	"github.com/vvka-141/pgscrape/internal/scrape"
	"github.com/vvka-141/pgscrape/internal/store"
	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// jobStore is what a job needs from its database: the scrape.Store inserts
// plus schema and count helpers. *store.Store implements it.
type jobStore interface {
	scrape.Store
	EnsureTable(ctx context.Context, table string) error
	Count(ctx context.Context, table string) (int64, bool, error)
}

type managementDBConnFunc func(ctx context.Context, connConfig *pgscrape.ConnectionConfig, dbName string) (pgscrape.DBConnection, func(), error)

type storeOpenFunc func(ctx context.Context, connConfig *pgscrape.ConnectionConfig) (jobStore, func(), error)

// Observer receives job lifecycle events. Calls happen on the runner's goroutine.
type Observer interface {
	JobStarted(name string)
	JobFinished(result pgscrape.JobResult)
}

// Runner executes scrape jobs serially. Each job gets its own pool.
// Thread-Safety: NOT safe for concurrent Run() calls on the same instance.
type Runner struct {
	connectorFactory pgscrape.ConnectorFactory
	dbManager        pgscrape.DatabaseManager
	newFetcher       scrape.FetcherFactory
	logger           pgscrape.Logger
	observer         Observer

	mgmtConnector managementDBConnFunc
	openStore     storeOpenFunc
	newRunID      func() string
}

// NewRunner panics on nil dependencies; those are wiring mistakes, not runtime conditions.
func NewRunner(
	connectorFactory pgscrape.ConnectorFactory,
	dbManager pgscrape.DatabaseManager,
	newFetcher scrape.FetcherFactory,
	logger pgscrape.Logger,
) *Runner {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if dbManager == nil {
		panic("dbManager cannot be nil")
	}
	if newFetcher == nil {
		panic("newFetcher cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	r := &Runner{
		connectorFactory: connectorFactory,
		dbManager:        dbManager,
		newFetcher:       newFetcher,
		logger:           logger,
		newRunID:         uuid.NewString,
	}
	r.mgmtConnector = r.defaultMgmtConnector
	r.openStore = r.defaultOpenStore
	return r
}

// SetObserver registers an observer for job progress. Nil clears it.
func (r *Runner) SetObserver(o Observer) {
	r.observer = o
}

func (r *Runner) connect(ctx context.Context, connConfig *pgscrape.ConnectionConfig) (*poolHandle, error) {
	connector, err := r.connectorFactory(connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}
	pool, err := connector.Connect(ctx)
	if err != nil {
		closeConnector(connector)
		return nil, err
	}
	return &poolHandle{pool: pool, connector: connector}, nil
}

func (r *Runner) defaultMgmtConnector(ctx context.Context, connConfig *pgscrape.ConnectionConfig, dbName string) (pgscrape.DBConnection, func(), error) {
	h, err := r.connect(ctx, db.WithDatabase(connConfig, dbName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to management database: %w", err)
	}
	return db.NewPoolAdapter(h.pool), h.Close, nil
}

func (r *Runner) defaultOpenStore(ctx context.Context, connConfig *pgscrape.ConnectionConfig) (jobStore, func(), error) {
	h, err := r.connect(ctx, connConfig)
	if err != nil {
		return nil, nil, err
	}
	return store.New(h.pool), h.Close, nil
}

// Run ensures the target database exists, then runs the selected jobs in
// launcher order. A failing job is logged and the next job still runs.
// The returned error is non-nil only for setup failures, an aborted run,
// or, with Strict, any failed job.
func (r *Runner) Run(ctx context.Context, cfg pgscrape.RunConfig) ([]pgscrape.JobResult, error) {
	connConfig, err := r.prepare(cfg)
	if err != nil {
		return nil, err
	}

	runID := r.newRunID()
	r.logger.Verbose("Run %s targeting database '%s' on %s:%d", runID, cfg.DatabaseName, connConfig.Host, connConfig.Port)

	if err := r.ensureDatabase(ctx, connConfig, cfg); err != nil {
		r.logger.Error("[%s] %v", runID, err)
		return nil, err
	}

	target := db.WithDatabase(connConfig, cfg.DatabaseName)
	jobs := cfg.SelectedJobs()
	results := make([]pgscrape.JobResult, 0, len(jobs))

	for _, name := range jobs {
		if ctx.Err() != nil {
			break
		}
		if r.observer != nil {
			r.observer.JobStarted(name)
		}

		result := r.runJob(ctx, name, cfg.Sources, target)
		if result.Failed() {
			r.logger.Error("[%s] job %s failed: %v", runID, name, result.Err)
		} else {
			r.logger.Verbose("Job %s wrote %d rows to %s in %s", name, result.Rows, result.Table, result.Duration.Round(time.Millisecond))
		}

		if r.observer != nil {
			r.observer.JobFinished(result)
		}
		results = append(results, result)
	}

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("run %s aborted after %d of %d jobs: %w", runID, len(results), len(jobs), err)
	}

	if cfg.Strict {
		if failed := countFailed(results); failed > 0 {
			return results, fmt.Errorf("%d of %d jobs failed: %w", failed, len(results), pgscrape.ErrJobFailed)
		}
	}
	return results, nil
}

func (r *Runner) runJob(ctx context.Context, name string, sources pgscrape.SourceConfig, target *pgscrape.ConnectionConfig) (result pgscrape.JobResult) {
	start := time.Now()
	result.Name = name
	defer func() { result.Duration = time.Since(start) }()

	job, err := scrape.New(name, scrape.Deps{Sources: sources, NewFetcher: r.newFetcher, Logger: r.logger})
	if err != nil {
		result.Err = err
		return result
	}
	result.Table = job.Table()

	st, cleanup, err := r.openStore(ctx, target)
	if err != nil {
		result.Err = err
		return result
	}
	defer cleanup()

	if err := st.EnsureTable(ctx, job.Table()); err != nil {
		result.Err = err
		return result
	}

	stats, err := job.Run(ctx, st)
	result.Rows = stats.Rows
	result.Pages = stats.Pages
	result.Err = err
	return result
}

// Ensure creates the target database and every job table without scraping.
func (r *Runner) Ensure(ctx context.Context, cfg pgscrape.RunConfig) error {
	connConfig, err := r.prepare(cfg)
	if err != nil {
		return err
	}
	if err := r.ensureDatabase(ctx, connConfig, cfg); err != nil {
		return err
	}

	st, cleanup, err := r.openStore(ctx, db.WithDatabase(connConfig, cfg.DatabaseName))
	if err != nil {
		return err
	}
	defer cleanup()

	for _, table := range store.Tables() {
		if err := st.EnsureTable(ctx, table); err != nil {
			return err
		}
		r.logger.Verbose("Table '%s' ready", table)
	}
	r.logger.Info("✓ Database '%s' and %d tables ready", cfg.DatabaseName, len(store.Tables()))
	return nil
}

// Reset drops the target database after the approver agrees.
func (r *Runner) Reset(ctx context.Context, cfg pgscrape.RunConfig, approver pgscrape.Approver) error {
	if approver == nil {
		panic("approver cannot be nil")
	}
	connConfig, err := r.prepare(cfg)
	if err != nil {
		return err
	}
	managementDB := maintenanceDB(cfg)

	conn, cleanup, err := r.mgmtConnector(ctx, connConfig, managementDB)
	if err != nil {
		return err
	}
	defer cleanup()

	exists, err := r.dbManager.Exists(ctx, conn, cfg.DatabaseName)
	if err != nil {
		return err
	}
	if !exists {
		r.logger.Info("Database '%s' does not exist. Nothing to reset.", cfg.DatabaseName)
		return nil
	}

	approved, err := approver.RequestApproval(ctx, cfg.DatabaseName)
	if err != nil {
		return fmt.Errorf("approval request failed: %w", err)
	}
	if !approved {
		return pgscrape.ErrApprovalDenied
	}

	if err := manager.ResetDatabase(ctx, r.dbManager, conn, cfg.DatabaseName); err != nil {
		return err
	}
	r.logger.Info("✓ Database '%s' dropped", cfg.DatabaseName)
	return nil
}

// TableStatus is the row count of one job table.
type TableStatus struct {
	Job    string
	Table  string
	Exists bool
	Rows   int64
}

// StatusReport describes what previous runs left in the target database.
type StatusReport struct {
	Database       string
	DatabaseExists bool
	Tables         []TableStatus
}

// Status reports row counts per job table without creating anything.
func (r *Runner) Status(ctx context.Context, cfg pgscrape.RunConfig) (*StatusReport, error) {
	connConfig, err := r.prepare(cfg)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{Database: cfg.DatabaseName}
	infos := scrape.Describe(cfg.Sources)
	for _, info := range infos {
		report.Tables = append(report.Tables, TableStatus{Job: info.Name, Table: info.Table})
	}

	conn, cleanup, err := r.mgmtConnector(ctx, connConfig, maintenanceDB(cfg))
	if err != nil {
		return nil, err
	}
	exists, err := r.dbManager.Exists(ctx, conn, cfg.DatabaseName)
	cleanup()
	if err != nil {
		return nil, err
	}
	report.DatabaseExists = exists
	if !exists {
		return report, nil
	}

	st, closeStore, err := r.openStore(ctx, db.WithDatabase(connConfig, cfg.DatabaseName))
	if err != nil {
		return nil, err
	}
	defer closeStore()

	for i := range report.Tables {
		count, ok, err := st.Count(ctx, report.Tables[i].Table)
		if err != nil {
			return nil, err
		}
		report.Tables[i].Exists = ok
		report.Tables[i].Rows = count
	}
	return report, nil
}

// prepare validates cfg and turns its connection string into a ConnectionConfig
// carrying the run's auth settings.
func (r *Runner) prepare(cfg pgscrape.RunConfig) (*pgscrape.ConnectionConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if strings.EqualFold(cfg.DatabaseName, maintenanceDB(cfg)) {
		return nil, fmt.Errorf(
			"target database %q is the maintenance database; choose a different target: %w",
			cfg.DatabaseName, pgscrape.ErrInvalidConfig,
		)
	}

	connConfig, err := db.ParseConnectionString(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if connConfig.AppName == "" {
		connConfig.AppName = pgscrape.DefaultAppName
	}
	connConfig.AuthMethod = cfg.AuthMethod
	connConfig.AzureTenantID = cfg.AzureTenantID
	connConfig.AzureClientID = cfg.AzureClientID
	connConfig.AzureClientSecret = cfg.AzureClientSecret
	connConfig.AWSRegion = cfg.AWSRegion
	connConfig.GoogleInstance = cfg.GoogleInstance
	return connConfig, nil
}

// ensureDatabase creates the target database through the maintenance database
// when it is missing. Any failure here is reported as a connection failure.
func (r *Runner) ensureDatabase(ctx context.Context, connConfig *pgscrape.ConnectionConfig, cfg pgscrape.RunConfig) error {
	managementDB := maintenanceDB(cfg)
	r.logger.Verbose("Connecting to management database '%s' to check if target database exists", managementDB)

	err := func() error {
		conn, cleanup, err := r.mgmtConnector(ctx, connConfig, managementDB)
		if err != nil {
			return err
		}
		defer cleanup()

		created, err := manager.EnsureDatabase(ctx, r.dbManager, conn, cfg.DatabaseName)
		if err != nil {
			return err
		}
		if created {
			r.logger.Info("Database '%s' created", cfg.DatabaseName)
		} else {
			r.logger.Verbose("Database '%s' already exists", cfg.DatabaseName)
		}
		return nil
	}()
	if err == nil {
		return nil
	}
	if errors.Is(err, pgscrape.ErrConnectionFailed) {
		return fmt.Errorf("failed to ensure database %q: %w", cfg.DatabaseName, err)
	}
	return fmt.Errorf("failed to ensure database %q: %w: %w", cfg.DatabaseName, pgscrape.ErrConnectionFailed, err)
}

func maintenanceDB(cfg pgscrape.RunConfig) string {
	if cfg.MaintenanceDatabase != "" {
		return cfg.MaintenanceDatabase
	}
	return pgscrape.DefaultManagementDB
}

func countFailed(results []pgscrape.JobResult) int {
	n := 0
	for _, r := range results {
		if r.Failed() {
			n++
		}
	}
	return n
}

func closeConnector(c pgscrape.Connector) {
	if closer, ok := c.(io.Closer); ok {
		_ = closer.Close()
	}
}
