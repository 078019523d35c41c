package impedance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlsmith/sqlsmith/internal/production"
)

func tagSet(tags ...production.Tag) map[production.Tag]struct{} {
	set := make(map[production.Tag]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}

	return set
}

// S1 — Blacklist threshold.
func TestBlacklistThreshold(t *testing.T) {
	s := New()
	tags := tagSet("A")

	for range 99 {
		s.RecordBad(tags)
	}

	assert.True(t, s.Matched("A"))

	s.RecordBad(tags)
	assert.False(t, s.Matched("A"))
}

// S2 — Ratio floor.
func TestRatioFloor(t *testing.T) {
	s := New()
	tags := tagSet("B")

	for range 100 {
		s.RecordBad(tags)
	}

	s.RecordOK(tags)
	assert.False(t, s.Matched("B"), "100 bad / 1 ok => ratio 0.9901 > 0.99 => blacklisted")

	s.RecordOK(tags)
	assert.True(t, s.Matched("B"), "100 bad / 2 ok => ratio 0.9804 <= 0.99 => not blacklisted")
}

func TestMatchedNeverBlacklistsUnseen(t *testing.T) {
	s := New()
	assert.True(t, s.Matched("never-seen"))
}

func TestMatchedTrueBelowHundredBad(t *testing.T) {
	s := New()
	tags := tagSet("C")

	for range 50 {
		s.RecordBad(tags)
	}

	assert.True(t, s.Matched("C"))
}

// S4 — Syntax corpus uniqueness.
func TestSyntaxCorpusUniqueness(t *testing.T) {
	s := New()
	s.AddSyntaxError("select 1 from;")
	s.AddSyntaxError("select 1 from;")

	assert.Equal(t, 1, s.SyntaxErrorCount())
}

// S5 — JSON report shape.
func TestJSONSnapshotShape(t *testing.T) {
	s := New()
	s.RecordBad(tagSet("comparison_op"))

	out, err := s.JSONSnapshot()
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"impedance": [{"prod":"comparison_op","bad":1,"ok":0,"limited":0,"failed":0,"retries":0}]}`,
		string(out),
	)
}

func TestCountersMonotonic(t *testing.T) {
	s := New()
	tags := tagSet("D")

	s.RecordBad(tags)
	s.RecordOK(tags)
	s.RecordKnown(tags)
	s.Retry("D")
	s.Limit("D")
	s.Fail("D")

	s.mu.Lock()
	c := *s.counters["D"]
	s.mu.Unlock()

	assert.Equal(t, int64(1), c.Bad)
	assert.Equal(t, int64(1), c.OK)
	assert.Equal(t, int64(1), c.Known)
	assert.Equal(t, int64(1), c.Retries)
	assert.Equal(t, int64(1), c.Limited)
	assert.Equal(t, int64(1), c.Failed)
}

func TestHumanReportMarksBlacklisted(t *testing.T) {
	s := New()
	tags := tagSet("E")

	for range 100 {
		s.RecordBad(tags)
	}

	var buf strings.Builder

	s.HumanReport(&buf)
	assert.Contains(t, buf.String(), "-> BLACKLISTED")
}
