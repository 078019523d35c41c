// Package classifier maps raw DUT exceptions to dut.Kind values and routes
// DUT outcomes to the known/unknown error paths.
package classifier

import (
	"regexp"
	"strings"

	"github.com/lib/pq"

	"github.com/sqlsmith/sqlsmith/internal/dut"
)

var (
	timeoutPattern = regexp.MustCompile(`^ERROR:  canceling statement due to statement timeout`)
	syntaxPattern  = regexp.MustCompile(`^ERROR:  syntax error at or near`)
)

// brokenConnectionClass is the first two characters of a PostgreSQL
// SQLSTATE whose class denotes a lost connection (class 08 - connection
// exception).
const brokenConnectionClass = "08"

// Classify maps a raw error message (and, when available, its SQLSTATE)
// from the DUT into a dut.Kind. It is the Go re-expression of the
// original fuzzer's regex-driven exception dispatch.
func Classify(message, sqlstate string) dut.Kind {
	if sqlstate != "" && strings.HasPrefix(sqlstate, brokenConnectionClass) {
		return dut.Broken
	}

	firstLine := firstLine(message)

	switch {
	case timeoutPattern.MatchString(firstLine):
		return dut.Timeout
	case syntaxPattern.MatchString(firstLine):
		return dut.Syntax
	default:
		return dut.Generic
	}
}

// ClassifyPQError classifies a *pq.Error, which is the concrete error type
// internal/schema and internal/dut get back from database/sql when talking
// to the DUT through lib/pq.
func ClassifyPQError(err *pq.Error) dut.Failure {
	kind := Classify(err.Message, string(err.Code))

	return dut.Failure{
		Message:  err.Message,
		SQLState: string(err.Code),
		Kind:     kind,
	}
}

// firstLine returns the text up to (not including) the first newline.
func firstLine(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		return message[:idx]
	}

	return message
}

// prefixLen is the number of characters of a failure's first line compared
// against the known-error set.
const prefixLen = 80

// Prefix returns the comparison key used against the known-error set: the
// first 80 characters of the first line of a failure's message.
func Prefix(message string) string {
	line := firstLine(message)

	if len(line) > prefixLen {
		line = line[:prefixLen]
	}

	return line
}
