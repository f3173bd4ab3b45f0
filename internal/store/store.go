// Package store persists scraped records into PostgreSQL.
//
// Rows are only ever appended. Each Insert call queues its statements in a
// pgx.Batch and sends them inside a single transaction, so a call either
// saves every row or none.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/pgscrape/internal/scrape"
	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Store struct {
	db DB
}

var _ scrape.Store = (*Store)(nil)

func New(db DB) *Store {
	if db == nil {
		panic("db cannot be nil")
	}
	return &Store{db: db}
}

// EnsureTable runs the CREATE TABLE IF NOT EXISTS statement for table.
func (s *Store) EnsureTable(ctx context.Context, table string) error {
	ddl, ok := Schema(table)
	if !ok {
		return fmt.Errorf("no schema for table %q: %w", table, pgscrape.ErrInvalidConfig)
	}
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("error creating table %s: %w", table, err)
	}
	return nil
}

// EnsureAll creates every job table.
func (s *Store) EnsureAll(ctx context.Context) error {
	for _, table := range Tables() {
		if err := s.EnsureTable(ctx, table); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) InsertTopics(ctx context.Context, topics []pgscrape.Topic) (int, error) {
	rows := make([][]any, len(topics))
	for i, t := range topics {
		rows[i] = []any{t.Heading, t.Content}
	}
	return s.insertBatch(ctx, insertTopic, rows)
}

func (s *Store) InsertTeamSeasons(ctx context.Context, seasons []pgscrape.TeamSeason) (int, error) {
	rows := make([][]any, len(seasons))
	for i, t := range seasons {
		rows[i] = []any{t.Name, t.Year, t.Wins, t.Losses, t.OTLosses, t.Pct, t.GoalsFor, t.GoalsAgainst, t.Diff}
	}
	return s.insertBatch(ctx, insertTeamSeason, rows)
}

func (s *Store) InsertMovies(ctx context.Context, movies []pgscrape.Movie) (int, error) {
	rows := make([][]any, len(movies))
	for i, m := range movies {
		rows[i] = []any{m.Title, m.Year, m.Awards, m.Nominations, m.BestPicture}
	}
	return s.insertBatch(ctx, insertMovie, rows)
}

func (s *Store) insertBatch(ctx context.Context, sql string, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, args := range rows {
		batch.Queue(sql, args...)
	}

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for i := range rows {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Count returns the number of rows in table. A missing table counts as zero
// rows and exists=false.
func (s *Store) Count(ctx context.Context, table string) (count int64, exists bool, err error) {
	if _, ok := Schema(table); !ok {
		return 0, false, fmt.Errorf("unknown table %q: %w", table, pgscrape.ErrInvalidConfig)
	}

	if err := s.db.QueryRow(ctx, queryTableExists, table).Scan(&exists); err != nil {
		return 0, false, fmt.Errorf("check table %s: %w", table, err)
	}
	if !exists {
		return 0, false, nil
	}

	query := "SELECT count(*) FROM " + pgx.Identifier{table}.Sanitize()
	if err := s.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, true, fmt.Errorf("count %s: %w", table, err)
	}
	return count, true, nil
}
