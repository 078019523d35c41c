// Package main provides the sqlsmith query-generation CLI: a
// grammar-agnostic driver that wires the production registry,
// impedance accounting, classifier, feedback dispatcher, and typed
// expression builder around whatever DUT connection string it's given.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sqlsmith/sqlsmith/internal/builder"
	"github.com/sqlsmith/sqlsmith/internal/config"
	"github.com/sqlsmith/sqlsmith/internal/dut"
	"github.com/sqlsmith/sqlsmith/internal/impedance"
	"github.com/sqlsmith/sqlsmith/internal/knownerrors"
	"github.com/sqlsmith/sqlsmith/internal/logger"
	"github.com/sqlsmith/sqlsmith/internal/persistence"
	"github.com/sqlsmith/sqlsmith/internal/production"
	"github.com/sqlsmith/sqlsmith/internal/rng"
	"github.com/sqlsmith/sqlsmith/internal/schema"
)

// Version information.
const (
	version = "0.1.0-dev"
	name    = "smith"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	queriesFlag := flag.Int("queries", 100000, "number of queries to generate before exiting")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slogger.Info("starting sqlsmith", slog.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, slogger, *queriesFlag); err != nil {
		slogger.Error("run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger.Info("sqlsmith stopped")
}

func run(ctx context.Context, cfg *config.Config, slogger *slog.Logger, queries int) error {
	sch, err := schema.Load(ctx, cfg.DUTDSN, cfg.NoCatalog, slogger)
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	known := knownerrors.Empty()

	if cfg.KnownErrorsPath != "" {
		known, err = knownerrors.Load(cfg.KnownErrorsPath)
		if err != nil {
			slogger.Warn("failed to load known errors", slog.String("error", err.Error()))

			known = knownerrors.Empty()
		}
	}

	store := impedance.New()

	loggers := []logger.Logger{logger.NewImpedanceLogger(store)}

	stderrLogger := logger.NewStderrLogger(os.Stderr, store)
	loggers = append(loggers, stderrLogger)

	if cfg.PersistentDSN != "" {
		hostname, _ := os.Hostname()

		sink, err := persistence.Open(ctx, cfg.PersistentDSN, "dev", cfg.DUTDSN, hostname, sch.Version, cfg.Seed)
		if err != nil {
			return fmt.Errorf("opening persistent sink: %w", err)
		}
		defer func() { _ = sink.Close() }()

		loggers = append(loggers, sink)
	}

	multi := logger.NewMultiLogger(loggers...)
	dispatcher := logger.NewDispatcher(multi, known)

	submitter := dut.NewSubmitter(cfg.DUTDSN, cfg.StatementTimeout, nil)
	if err := submitter.Open(ctx); err != nil {
		return fmt.Errorf("connecting to DUT: %w", err)
	}
	defer func() { _ = submitter.Close() }()

	source := rng.New(cfg.Seed)

	for i := 0; i < queries; i++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		query, err := generateQuery(source, sch, store)
		if err != nil {
			slogger.Debug("query generation failed", slog.String("error", err.Error()))

			continue
		}

		multi.Generated(query)

		result := submitter.Test(ctx, production.Text(query))
		if result.OK {
			multi.Executed(query)

			continue
		}

		dispatcher.DispatchError(query, result.Failure)

		if result.Failure.Kind == dut.Broken {
			if err := submitter.Reopen(ctx); err != nil {
				return fmt.Errorf("reconnecting to DUT: %w", err)
			}
		}
	}

	stderrLogger.Report()

	return nil
}

// literalFactory is the minimal stand-in for the external grammar's
// value-expression producer (out of scope per spec; see DESIGN.md): it
// hands back a type-appropriate SQL literal rather than a real
// recursively-generated expression tree.
func literalFactory(sch *schema.Schema) builder.ExprFactory {
	return func(level int, t *schema.Type) (builder.Expr, error) {
		text := "NULL"

		switch {
		case t == sch.BoolType:
			text = "true"
		case t == sch.IntType:
			text = "1"
		}

		return builder.Expr{Node: production.NewNode("literal", level, text), Type: t}, nil
	}
}

// generateQuery drives the typed comparison builder once and wraps the
// result in a trivial SELECT, the smallest production the feedback core
// needs to exercise the dispatcher/impedance/DUT wiring end to end.
func generateQuery(source rng.RNG, sch *schema.Schema, store *impedance.Store) (production.Production, error) {
	lhs, rhs, err := builder.BuildComparison(source, sch, store, literalFactory(sch), 1)
	if err != nil {
		return nil, err
	}

	op := production.NewNode("select_stmt", 0, "SELECT ").
		WithChildren(
			lhs.Node,
			production.NewNode("comparison_op", 1, " = "),
			rhs.Node,
		)

	return op, nil
}
