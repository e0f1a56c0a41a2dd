package types

import (
	"strings"
	"time"
)

// TestStatus represents the possible states of a test execution
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
	TestStatusSkip TestStatus = "skip"
)

// Property is a single key/value annotation recorded on a test item or on
// the report as a whole. Properties are append-only; later writers never
// rewrite earlier entries.
type Property struct {
	Name  string
	Value string
}

// TestItem is one collected test. The host runner owns the item's identity
// and outcome; hooks only append to UserProperties.
type TestItem struct {
	Name     string
	Package  string
	Status   TestStatus
	Duration time.Duration
	Started  time.Time
	Output   []string

	// Markers captured from the test's own output, keyed by marker name.
	// Argument order within a marker is preserved.
	Markers map[string][]string

	UserProperties []Property
}

// GetMarker returns the arguments recorded for a marker, or nil when the
// test does not carry it.
func (i *TestItem) GetMarker(name string) []string {
	if i.Markers == nil {
		return nil
	}
	return i.Markers[name]
}

// AddMarker appends arguments to a marker, creating it on first use.
func (i *TestItem) AddMarker(name string, args ...string) {
	if i.Markers == nil {
		i.Markers = make(map[string][]string)
	}
	i.Markers[name] = append(i.Markers[name], args...)
}

// FailureMessage collapses the item's captured output into a single message
// suitable for a report failure node.
func (i *TestItem) FailureMessage() string {
	return strings.TrimSpace(strings.Join(i.Output, ""))
}

// RunStats contains aggregated statistics for a test run
type RunStats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// Add updates the stats with a single item outcome.
func (s *RunStats) Add(status TestStatus) {
	s.Total++
	switch status {
	case TestStatusPass:
		s.Passed++
	case TestStatusFail:
		s.Failed++
	case TestStatusSkip:
		s.Skipped++
	}
}

// RunResult captures the outcome of a whole session.
type RunResult struct {
	RunID    string
	Stats    RunStats
	Duration time.Duration
	Items    []*TestItem
}

// Status derives the overall run status from the stats.
func (r *RunResult) Status() TestStatus {
	if r.Stats.Failed > 0 {
		return TestStatusFail
	}
	if r.Stats.Passed == 0 && r.Stats.Skipped > 0 {
		return TestStatusSkip
	}
	return TestStatusPass
}
