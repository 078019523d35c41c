// Package logger is the feedback dispatcher (C4): the fan-out of
// generation/execution outcomes to impedance accounting and to whichever
// reporting sinks are composed for a run.
package logger

import (
	"github.com/sqlsmith/sqlsmith/internal/classifier"
	"github.com/sqlsmith/sqlsmith/internal/dut"
	"github.com/sqlsmith/sqlsmith/internal/impedance"
	"github.com/sqlsmith/sqlsmith/internal/knownerrors"
	"github.com/sqlsmith/sqlsmith/internal/production"
)

// Logger is the feedback hook set a generation/execution loop drives. Per
// query, hooks fire in strict order: Generated happens-before exactly one
// of Executed, Error, or KnownError.
type Logger interface {
	Generated(q production.Production)
	Executed(q production.Production)
	Error(q production.Production, f dut.Failure)
	KnownError(q production.Production, f dut.Failure)
}

// Dispatcher wraps a Logger with the known-error routing described in
// spec §4.3: it classifies a DUT failure's first-line 80-char prefix
// against the known-error set and routes to KnownError or Error
// accordingly, returning whether the failure was unknown.
type Dispatcher struct {
	Logger Logger
	Known  *knownerrors.Set
}

// NewDispatcher builds a Dispatcher over logger using the given
// known-error set (pass knownerrors.Empty() if none is configured).
func NewDispatcher(l Logger, known *knownerrors.Set) *Dispatcher {
	return &Dispatcher{Logger: l, Known: known}
}

// DispatchError routes a DUT failure to KnownError or Error and reports
// whether the failure was unknown (i.e. not in the known-error set).
func (d *Dispatcher) DispatchError(q production.Production, f dut.Failure) (unknown bool) {
	prefix := classifier.Prefix(f.Message)

	if d.Known.Contains(prefix) {
		d.Logger.KnownError(q, f)

		return false
	}

	d.Logger.Error(q, f)

	return true
}

// MultiLogger fans a single set of hooks out to every composed Logger, in
// order. It lets a run compose a stats-only logger with a stderr logger
// and a persistent-store logger simultaneously.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger composes loggers into a single Logger.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Generated(q production.Production) {
	for _, l := range m.loggers {
		l.Generated(q)
	}
}

func (m *MultiLogger) Executed(q production.Production) {
	for _, l := range m.loggers {
		l.Executed(q)
	}
}

func (m *MultiLogger) Error(q production.Production, f dut.Failure) {
	for _, l := range m.loggers {
		l.Error(q, f)
	}
}

func (m *MultiLogger) KnownError(q production.Production, f dut.Failure) {
	for _, l := range m.loggers {
		l.KnownError(q, f)
	}
}

// ImpedanceLogger is the Logger implementation that drives the impedance
// Store per the contracts in spec §4.4: Executed records ok, Error records
// bad (and captures syntax-failing query text into the corpus), KnownError
// records known. Generated does nothing here; AST-level stats are
// StatsLogger's job.
type ImpedanceLogger struct {
	Store *impedance.Store
}

// NewImpedanceLogger builds an ImpedanceLogger over store.
func NewImpedanceLogger(store *impedance.Store) *ImpedanceLogger {
	return &ImpedanceLogger{Store: store}
}

func (l *ImpedanceLogger) Generated(production.Production) {}

func (l *ImpedanceLogger) Executed(q production.Production) {
	l.Store.RecordOK(production.TagSet(q))
}

func (l *ImpedanceLogger) Error(q production.Production, f dut.Failure) {
	l.Store.RecordBad(production.TagSet(q))

	if f.Kind == dut.Syntax {
		l.Store.AddSyntaxError(production.Text(q))
	}
}

func (l *ImpedanceLogger) KnownError(q production.Production, _ dut.Failure) {
	l.Store.RecordKnown(production.TagSet(q))
}
