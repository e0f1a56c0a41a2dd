package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("upload failed"),
		},
		{
			name: "error with special chars",
			err:  errors.New("qTest returned status 502 (bad gateway)"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("upload   failed"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errToLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordFunctionsDontPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("metric recording panic'd: %v", r)
		}
	}()

	RecordError("test_error")
	RecordErrorDetails("upload", errors.New("boom"))
	RecordRun("asc", "run-1", "pass", 3, 2, 1, 0, 5*time.Second)
	RecordUpload("run-1", nil)
	RecordUpload("run-1", errors.New("qTest returned status 502"))
}

func TestRecordRunCountsEveryOutcome(t *testing.T) {
	RecordRun("asc", "run-2", "fail", 6, 3, 2, 1, 5*time.Second)

	labels := []string{"asc", "run-2"}
	if got := testutil.ToFloat64(runTestTotal.WithLabelValues(labels...)); got != 6 {
		t.Errorf("run_test_total = %v, want 6", got)
	}
	if got := testutil.ToFloat64(runTestPassed.WithLabelValues(labels...)); got != 3 {
		t.Errorf("run_test_passed = %v, want 3", got)
	}
	if got := testutil.ToFloat64(runTestFailed.WithLabelValues(labels...)); got != 2 {
		t.Errorf("run_test_failed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(runTestSkipped.WithLabelValues(labels...)); got != 1 {
		t.Errorf("run_test_skipped = %v, want 1", got)
	}
}
