// Package persistence is the persistent reporting sink (C13): it mirrors
// a run's impedance snapshot and per-query failures into a PostgreSQL
// database managed by the golang-migrate schema under migrations/, so a
// run survives the process that produced it.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/sqlsmith/sqlsmith/internal/dut"
	"github.com/sqlsmith/sqlsmith/internal/impedance"
	"github.com/sqlsmith/sqlsmith/internal/production"
	"github.com/sqlsmith/sqlsmith/internal/rng"
)

// flushEvery is how often, in generated queries, Sink flushes a stat
// snapshot — matching pqxx_logger's "999 == queries%1000" cadence.
const flushEvery = 1000

// Sink is the Logger implementation that persists a run's instance
// record, every non-known failure, and periodic stat snapshots.
//
// Sink is not safe for concurrent use; per §5's single-threaded model it
// is only ever driven by the orchestration loop's direct hook calls.
type Sink struct {
	db       *sql.DB
	log      *slog.Logger
	runID    uuid.UUID
	instance int64

	queries    int64
	sumNodes   int64
	sumHeight  int64
	sumRetries int64
}

// Open creates (or reuses) the database connection pool and inserts the
// instance row that roots this run's error and stat records.
func Open(ctx context.Context, dsn, rev, target, hostname, version string, seed int64) (*Sink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: open: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("persistence: connect: %w", err)
	}

	s := &Sink{
		db:    db,
		runID: uuid.New(),
		log: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})),
	}

	row := db.QueryRowContext(ctx,
		`INSERT INTO instance (rev, target, hostname, version, seed, started)
		 VALUES ($1, $2, $3, $4, $5, now())
		 RETURNING id`,
		rev, target, hostname, version, rng.String(seed),
	)
	if err := row.Scan(&s.instance); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("persistence: insert instance: %w", err)
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO stat (id) VALUES ($1)`, s.instance); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("persistence: seed stat row: %w", err)
	}

	s.log.Info("run registered", "run_id", s.runID, "instance_id", s.instance)

	return s, nil
}

// Close releases the underlying connection pool.
func (s *Sink) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Generated accumulates AST-shape statistics and flushes a stat snapshot
// every flushEvery queries, mirroring pqxx_logger::generated. Sink holds
// no impedance store, so this periodic flush writes "{}" to the impedance
// column; only Flush, when given a store, writes the impedance snapshot.
func (s *Sink) Generated(q production.Production) {
	s.queries++

	nodes, maxLevel := production.Count(q)
	s.sumNodes += int64(nodes)
	s.sumHeight += int64(maxLevel)
	s.sumRetries += int64(production.SumRetries(q))

	if s.queries%flushEvery == 0 {
		s.flushLocked(context.Background(), nil)
	}
}

func (s *Sink) Executed(production.Production) {}

// Error persists a non-known failure into the error table. Known
// failures never reach here: the dispatcher routes them to KnownError
// instead, matching pqxx_logger's TODO-stubbed known_error.
func (s *Sink) Error(q production.Production, f dut.Failure) {
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO error (id, msg, query, sqlstate, occurred) VALUES ($1, $2, $3, $4, now())`,
		s.instance, f.Message, production.Text(q), f.SQLState,
	)
	if err != nil {
		s.log.Warn("failed to persist error", "error", err)
	}
}

func (s *Sink) KnownError(production.Production, dut.Failure) {}

// Flush writes a stat snapshot immediately, using store for the impedance
// JSON column. Intended for a final flush at shutdown in addition to the
// periodic one driven by Generated.
func (s *Sink) Flush(ctx context.Context, store *impedance.Store) {
	s.flushLocked(ctx, store)
}

func (s *Sink) flushLocked(ctx context.Context, store *impedance.Store) {
	impedanceJSON := "{}"

	if store != nil {
		snapshot, err := store.JSONSnapshot()
		if err != nil {
			s.log.Warn("failed to marshal impedance snapshot", "error", err)
		} else {
			impedanceJSON = string(snapshot)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log.Warn("failed to begin stat flush transaction", "error", err)

		return
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE stat SET generated=$1, level=$2, nodes=$3, retries=$4, impedance=$5, updated=now() WHERE id=$6`,
		s.queries, s.avgHeight(), s.avgNodes(), s.avgRetries(), impedanceJSON, s.instance,
	)
	if err != nil {
		s.log.Warn("failed to flush stat snapshot", "error", err)
		_ = tx.Rollback()

		return
	}

	if err := tx.Commit(); err != nil {
		s.log.Warn("failed to commit stat flush", "error", err)
	}
}

func (s *Sink) avgHeight() int64 {
	if s.queries == 0 {
		return 0
	}

	return s.sumHeight / s.queries
}

func (s *Sink) avgNodes() int64 {
	if s.queries == 0 {
		return 0
	}

	return s.sumNodes / s.queries
}

func (s *Sink) avgRetries() int64 {
	if s.queries == 0 {
		return 0
	}

	return s.sumRetries / s.queries
}
