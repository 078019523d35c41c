package dut

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"
	"golang.org/x/time/rate"

	"github.com/sqlsmith/sqlsmith/internal/classifier"
)

// Submitter owns the single connection used to submit generated
// statements to the device under test, mirroring dut_libpq's
// connect/command/test cycle from the original: one session, a
// per-statement timeout, and a reconnect whenever the session itself
// goes bad rather than just the statement.
type Submitter struct {
	dsn     string
	timeout time.Duration
	limiter *rate.Limiter

	db *sql.DB
}

// NewSubmitter builds a Submitter against dsn. timeout is applied as the
// session's statement_timeout; a zero timeout disables it. limiter may be
// nil, meaning submissions are not rate limited.
func NewSubmitter(dsn string, timeout time.Duration, limiter *rate.Limiter) *Submitter {
	return &Submitter{dsn: dsn, timeout: timeout, limiter: limiter}
}

// Open establishes the DUT connection and sets the session's
// statement_timeout, matching dut_libpq::connect.
func (s *Submitter) Open(ctx context.Context) error {
	db, err := sql.Open("postgres", s.dsn)
	if err != nil {
		return fmt.Errorf("dut: open: %w", err)
	}

	// One connection only, so the statement_timeout set below applies to
	// every statement Test submits.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("dut: connect: %w", err)
	}

	if s.timeout > 0 {
		stmt := fmt.Sprintf("SET statement_timeout = %d", s.timeout.Milliseconds())
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("dut: set statement_timeout: %w", err)
		}
	}

	s.db = db

	return nil
}

// Close releases the DUT connection.
func (s *Submitter) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Test submits stmt to the DUT, matching dut_libpq::test: any rows
// produced are discarded, only success/failure matters to the fuzzer.
// A Broken result leaves the session unusable; callers are expected to
// call Reopen before submitting again.
func (s *Submitter) Test(ctx context.Context, stmt string) Result {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return Result{Failure: Failure{Message: err.Error(), Kind: Generic}}
		}
	}

	_, err := s.db.ExecContext(ctx, stmt)
	if err == nil {
		return Result{OK: true}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return Result{Failure: classifier.ClassifyPQError(pqErr)}
	}

	kind := classifier.Classify(err.Error(), "")

	// A lost connection surfaces as driver.ErrBadConn or a network error
	// rather than a *pq.Error; either one leaves the session unusable.
	var netErr *net.OpError
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		kind = Broken
	}

	return Result{Failure: Failure{Message: err.Error(), Kind: kind}}
}

// Reopen closes and re-establishes the connection, the recovery path a
// caller takes after observing a Broken result.
func (s *Submitter) Reopen(ctx context.Context) error {
	_ = s.Close()

	return s.Open(ctx)
}
