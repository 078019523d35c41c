package impedance

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/sqlsmith/sqlsmith/internal/production"
)

// entry is one row of a report: a snapshot of a single tag's counters
// taken at report time. Reports are pure functions of the store state;
// they never mutate it.
type entry struct {
	tag production.Tag
	Counters
}

// snapshot returns every tag with at least one Bad count, sorted by
// pretty-name for reproducible iteration order.
func (s *Store) snapshot() []entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]entry, 0, len(s.counters))

	for tag, c := range s.counters {
		if c.Bad == 0 {
			continue
		}

		entries = append(entries, entry{tag: tag, Counters: *c})
	}

	sort.Slice(entries, func(i, j int) bool {
		return production.PrettyTag(entries[i].tag) < production.PrettyTag(entries[j].tag)
	})

	return entries
}

func (s *Store) syntaxCorpus() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	corpus := make([]string, 0, len(s.syntaxErrors))
	for q := range s.syntaxErrors {
		corpus = append(corpus, q)
	}

	sort.Strings(corpus)

	return corpus
}

// HumanReport writes one line per tag appearing in Bad, showing
// bad/known/ok and "-> BLACKLISTED" when the tag is no longer matched,
// followed by the syntax-error corpus (count + indexed dump).
func (s *Store) HumanReport(w io.Writer) {
	fmt.Fprintln(w, "impedance report:")

	for _, e := range s.snapshot() {
		fmt.Fprintf(w, "  %s: %d/%d/%d (bad/known/ok)", production.PrettyTag(e.tag), e.Bad, e.Known, e.OK)

		if !matched(&e.Counters) {
			fmt.Fprint(w, " -> BLACKLISTED")
		}

		fmt.Fprintln(w)
	}

	corpus := s.syntaxCorpus()
	fmt.Fprintf(w, "query with bad syntax: count=%d\n", len(corpus))

	for i, q := range corpus {
		fmt.Fprintf(w, "QUERY [%d]: %s\n", i, q)
	}
}

// jsonEntry is the wire shape of one impedance element in the structured
// snapshot.
type jsonEntry struct {
	Prod    string `json:"prod"`
	Bad     int64  `json:"bad"`
	OK      int64  `json:"ok"`
	Limited int64  `json:"limited"`
	Failed  int64  `json:"failed"`
	Retries int64  `json:"retries"`
}

type jsonSnapshot struct {
	Impedance []jsonEntry `json:"impedance"`
}

// JSONSnapshot returns the structured impedance snapshot: one element per
// tag that has ever had a Bad outcome, ordered by pretty-name.
func (s *Store) JSONSnapshot() ([]byte, error) {
	entries := s.snapshot()

	out := jsonSnapshot{Impedance: make([]jsonEntry, 0, len(entries))}
	for _, e := range entries {
		out.Impedance = append(out.Impedance, jsonEntry{
			Prod:    production.PrettyTag(e.tag),
			Bad:     e.Bad,
			OK:      e.OK,
			Limited: e.Limited,
			Failed:  e.Failed,
			Retries: e.Retries,
		})
	}

	return json.Marshal(out)
}
