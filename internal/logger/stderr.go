package logger

import (
	"fmt"
	"io"
	"sort"

	"github.com/sqlsmith/sqlsmith/internal/dut"
	"github.com/sqlsmith/sqlsmith/internal/impedance"
	"github.com/sqlsmith/sqlsmith/internal/production"
)

// stderrColumns is the line-wrap width of the one-character-per-query
// progress protocol, and reportEvery is how often (in queries) a full
// human-readable report is flushed: 10 lines' worth of columns.
const (
	stderrColumns = 80
	reportEvery   = 10 * stderrColumns
)

// StderrLogger is the stderr progress sink described in spec §4.4/§6: one
// character per executed query, wrapped at 80 columns, with a full report
// every 800 queries.
type StderrLogger struct {
	Out   io.Writer
	Store *impedance.Store
	Stats *StatsLogger

	errorLines map[string]int64
}

// NewStderrLogger builds a StderrLogger writing to out and reporting
// against store.
func NewStderrLogger(out io.Writer, store *impedance.Store) *StderrLogger {
	return &StderrLogger{
		Out:        out,
		Store:      store,
		Stats:      NewStatsLogger(),
		errorLines: make(map[string]int64),
	}
}

func (l *StderrLogger) wrapIfNeeded() {
	if l.Stats.Queries%stderrColumns == 0 {
		fmt.Fprintln(l.Out)
	}
}

func (l *StderrLogger) Generated(q production.Production) {
	l.Stats.Generated(q)

	if l.Stats.Queries%reportEvery == 0 {
		l.Report()
	}
}

func (l *StderrLogger) Executed(production.Production) {
	l.wrapIfNeeded()
	fmt.Fprint(l.Out, ".")
}

func (l *StderrLogger) Error(q production.Production, f dut.Failure) {
	l.wrapIfNeeded()

	line := firstLineOf(f.Message)
	l.errorLines[line]++

	switch f.Kind {
	case dut.Timeout:
		fmt.Fprint(l.Out, "t")
	case dut.Syntax:
		fmt.Fprint(l.Out, "S")
	case dut.Broken:
		fmt.Fprint(l.Out, "C")
	default:
		fmt.Fprint(l.Out, "e")
	}
}

func (l *StderrLogger) KnownError(production.Production, dut.Failure) {
	l.wrapIfNeeded()
	fmt.Fprint(l.Out, "K")
}

// Report flushes a full human-readable report: query/AST averages, the
// error-line frequency table, the error rate, then the impedance report.
func (l *StderrLogger) Report() {
	fmt.Fprintln(l.Out)
	fmt.Fprintf(l.Out, "queries: %d\n", l.Stats.Queries)
	fmt.Fprintf(l.Out, "AST stats (avg): height = %d nodes = %d\n", l.Stats.AvgHeight(), l.Stats.AvgNodes())

	type errCount struct {
		line  string
		count int64
	}

	counts := make([]errCount, 0, len(l.errorLines))
	for line, n := range l.errorLines {
		counts = append(counts, errCount{line, n})
	}

	sort.SliceStable(counts, func(i, j int) bool { return counts[i].count > counts[j].count })

	var total int64

	for _, ec := range counts {
		total += ec.count
		fmt.Fprintf(l.Out, "%d\t'%s'\n", ec.count, truncate(ec.line, 80))
	}

	if l.Stats.Queries > 0 {
		fmt.Fprintf(l.Out, "error rate: %f\n", float64(total)/float64(l.Stats.Queries))
	}

	l.Store.HumanReport(l.Out)
}

func firstLineOf(message string) string {
	for i, r := range message {
		if r == '\n' {
			return message[:i]
		}
	}

	return message
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
