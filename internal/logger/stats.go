package logger

import (
	"github.com/sqlsmith/sqlsmith/internal/dut"
	"github.com/sqlsmith/sqlsmith/internal/production"
)

// StatsLogger accumulates AST-shape statistics across every generated
// query: count, total node count, total max-height, total retries. It
// implements the Generated contract from spec §4.4's Hook table; the
// other hooks are no-ops, leaving impedance accounting to ImpedanceLogger.
type StatsLogger struct {
	Queries    int64
	SumNodes   int64
	SumHeight  int64
	SumRetries int64
}

// NewStatsLogger returns a zeroed StatsLogger.
func NewStatsLogger() *StatsLogger {
	return &StatsLogger{}
}

func (s *StatsLogger) Generated(q production.Production) {
	s.Queries++

	nodes, maxLevel := production.Count(q)
	s.SumNodes += int64(nodes)
	s.SumHeight += int64(maxLevel)
	s.SumRetries += int64(production.SumRetries(q))
}

func (s *StatsLogger) Executed(production.Production)            {}
func (s *StatsLogger) Error(production.Production, dut.Failure)   {}
func (s *StatsLogger) KnownError(production.Production, dut.Failure) {}

// AvgHeight returns the running average AST height, or 0 if no queries
// have been generated yet. Per design note, this intentionally mirrors
// the original's integer-truncating averages rather than floating point,
// to preserve the documented (if imprecise) semantics near small counts.
func (s *StatsLogger) AvgHeight() int64 {
	if s.Queries == 0 {
		return 0
	}

	return s.SumHeight / s.Queries
}

// AvgNodes mirrors AvgHeight for node counts.
func (s *StatsLogger) AvgNodes() int64 {
	if s.Queries == 0 {
		return 0
	}

	return s.SumNodes / s.Queries
}

// AvgRetries mirrors AvgHeight for retry counts.
func (s *StatsLogger) AvgRetries() int64 {
	if s.Queries == 0 {
		return 0
	}

	return s.SumRetries / s.Queries
}
