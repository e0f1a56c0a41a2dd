// Package mark lets tests attach marker metadata that the reporter turns
// into testcase properties. Markers are written through the test log, so
// they travel inside the host runner's own event stream and need no side
// channel.
package mark

import (
	"fmt"
	"testing"
)

// Prefix identifies marker lines in test output.
const Prefix = "=== MARK: "

// MarkerTestID associates a test with one or more test-case IDs.
const MarkerTestID = "test_id"

// MarkerJira associates a test with one or more Jira issue keys.
const MarkerJira = "jira"

// Mark records an arbitrary marker with its arguments on the current test.
// One marker line is emitted per argument.
func Mark(t testing.TB, name string, args ...string) {
	t.Helper()
	for _, arg := range args {
		t.Log(fmt.Sprintf("%s%s=%s", Prefix, name, arg))
	}
}

// TestID marks the current test with qTest test-case IDs.
func TestID(t testing.TB, ids ...string) {
	t.Helper()
	Mark(t, MarkerTestID, ids...)
}

// Jira marks the current test with Jira issue keys.
func Jira(t testing.TB, keys ...string) {
	t.Helper()
	Mark(t, MarkerJira, keys...)
}
