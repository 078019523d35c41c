// Package impedance is the process-wide statistical record of which
// grammar productions succeed, fail, get retried, or get blacklisted. It
// is the core of the fuzzer's feedback loop: producers consult Matched to
// suppress productions that have proven overwhelmingly incompatible with
// the device under test.
package impedance

import (
	"sync"

	"github.com/sqlsmith/sqlsmith/internal/production"
)

// blacklistMinBad and blacklistMaxRatio are the fixed constants behind the
// blacklist predicate: a tag is blacklisted once it has accumulated at
// least blacklistMinBad failures AND its failure ratio exceeds
// blacklistMaxRatio.
const (
	blacklistMinBad   = 100
	blacklistMaxRatio = 0.99
)

// Counters is the per-tag 6-tuple described in spec: all counts are
// monotonic non-decreasing for the life of the process.
type Counters struct {
	OK      int64
	Bad     int64
	Known   int64
	Retries int64
	Limited int64
	Failed  int64
}

// Store is the process-wide impedance record: a mapping from variant tag
// to its Counters, plus the syntax-error corpus. The zero value is not
// usable; construct with New.
//
// Store is safe for concurrent use: every mutator takes the single write
// lock, satisfying the "one writer per hook call" discipline described in
// the concurrency model even though the reference orchestration loop in
// cmd/smith never actually calls it concurrently.
type Store struct {
	mu           sync.Mutex
	counters     map[production.Tag]*Counters
	syntaxErrors map[string]struct{}
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		counters:     make(map[production.Tag]*Counters),
		syntaxErrors: make(map[string]struct{}),
	}
}

func (s *Store) counterFor(tag production.Tag) *Counters {
	c, ok := s.counters[tag]
	if !ok {
		c = &Counters{}
		s.counters[tag] = c
	}

	return c
}

// RecordOK increments OK for every distinct tag in tags.
func (s *Store) RecordOK(tags map[production.Tag]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tag := range tags {
		s.counterFor(tag).OK++
	}
}

// RecordBad increments Bad for every distinct tag in tags.
func (s *Store) RecordBad(tags map[production.Tag]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tag := range tags {
		s.counterFor(tag).Bad++
	}
}

// RecordKnown increments Known for every distinct tag in tags.
func (s *Store) RecordKnown(tags map[production.Tag]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tag := range tags {
		s.counterFor(tag).Known++
	}
}

// Retry increments the Retries counter for tag.
func (s *Store) Retry(tag production.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counterFor(tag).Retries++
}

// Limit increments the Limited counter for tag.
func (s *Store) Limit(tag production.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counterFor(tag).Limited++
}

// Fail increments the Failed counter for tag.
func (s *Store) Fail(tag production.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counterFor(tag).Failed++
}

// AddSyntaxError inserts text into the syntax-error corpus. Insertion is
// idempotent: a text already present is not duplicated.
func (s *Store) AddSyntaxError(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.syntaxErrors[text] = struct{}{}
}

// SyntaxErrorCount returns the size of the syntax-error corpus.
func (s *Store) SyntaxErrorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.syntaxErrors)
}

// CountersFor returns a snapshot of tag's counters. Intended for tests
// and reporting code that needs values beyond what Matched/JSONSnapshot
// expose; it never mutates the store.
func (s *Store) CountersFor(tag production.Tag) Counters {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[tag]
	if !ok {
		return Counters{}
	}

	return *c
}

// Matched is the blacklist predicate. It returns true unless the tag has
// both accumulated at least 100 Bad outcomes AND its Bad/(Bad+OK) ratio
// exceeds 0.99. Unseen productions (Bad+OK == 0) are never blacklisted.
func (s *Store) Matched(tag production.Tag) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[tag]
	if !ok {
		return true
	}

	return matched(c)
}

func matched(c *Counters) bool {
	if c.Bad < blacklistMinBad {
		return true
	}

	total := c.Bad + c.OK
	if total == 0 {
		return true
	}

	errorRate := float64(c.Bad) / float64(total)

	return errorRate <= blacklistMaxRatio
}
