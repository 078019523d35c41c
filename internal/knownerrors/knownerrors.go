// Package knownerrors loads the flat-file set of error-prefixes that are
// pre-registered as "known" and therefore don't count against a
// production variant's reputation.
package knownerrors

import (
	"bufio"
	"fmt"
	"os"
)

// Set is an immutable-after-load collection of known error prefixes.
type Set struct {
	prefixes map[string]struct{}
}

// Empty returns a Set with no known errors, for callers that don't
// configure a known-errors file.
func Empty() *Set {
	return &Set{prefixes: make(map[string]struct{})}
}

// Load reads a known-errors file: UTF-8 text, one prefix per line,
// LF-terminated. Blank lines are ignored. Each non-blank line, trimmed of
// its trailing newline, is inserted verbatim.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("knownerrors: opening %q: %w", path, err)
	}
	defer f.Close()

	s := Empty()

	scanner := bufio.NewScanner(f)
	// Error messages can run well past bufio.Scanner's 64KiB default.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		s.prefixes[line] = struct{}{}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("knownerrors: reading %q: %w", path, err)
	}

	return s, nil
}

// Contains reports whether prefix has been pre-registered as a known error.
func (s *Set) Contains(prefix string) bool {
	if s == nil {
		return false
	}

	_, ok := s.prefixes[prefix]

	return ok
}

// Len reports how many prefixes are loaded.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}

	return len(s.prefixes)
}
