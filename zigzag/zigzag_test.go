package zigzag

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJUnitFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "junit.xml")
	content := `<?xml version="1.0"?><testsuites><testsuite name="molecule" tests="1"/></testsuites>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestUploader(t *testing.T, serverURL, junitPath string) *ZigZag {
	t.Helper()
	return New(junitPath, "token-123", 12345, "CL-1", false).
		WithBaseURL(serverURL).
		WithLogger(log.NewLogger(log.DiscardHandler()))
}

func TestUploadTestResults(t *testing.T) {
	junitPath := writeJUnitFixture(t)

	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "junit.xml", header.Filename)
		assert.Equal(t, "CL-1", r.FormValue("test_cycle"))

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	zz := newTestUploader(t, server.URL, junitPath)
	require.NoError(t, zz.UploadTestResults(context.Background()))

	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, "/api/v3/projects/12345/auto-test-logs", gotPath)
}

func TestUploadRetriesServerErrors(t *testing.T) {
	junitPath := writeJUnitFixture(t)

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	zz := newTestUploader(t, server.URL, junitPath)
	require.NoError(t, zz.UploadTestResults(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestUploadDoesNotRetryClientErrors(t *testing.T) {
	junitPath := writeJUnitFixture(t)

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	zz := newTestUploader(t, server.URL, junitPath)
	err := zz.UploadTestResults(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestUploadMissingReportFile(t *testing.T) {
	zz := newTestUploader(t, "http://127.0.0.1:1", filepath.Join(t.TempDir(), "missing.xml"))
	err := zz.UploadTestResults(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.xml")
}
