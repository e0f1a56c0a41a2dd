// Package zigzag publishes JUnit XML test results to the qTest
// test-management service.
package zigzag

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is the qTest API endpoint results are published to.
	DefaultBaseURL = "https://apitryout.qtestnet.com"

	uploadAttempts = 3
	uploadTimeout  = 30 * time.Second
)

// ZigZag uploads one JUnit XML report to a qTest project.
type ZigZag struct {
	junitFilePath string
	apiToken      string
	projectID     int64
	testCycle     string
	pprintOnFail  bool

	baseURL string
	client  *http.Client
	log     log.Logger
	tracer  trace.Tracer
}

// New creates an uploader for a report file. The test cycle may be empty,
// in which case qTest files results under the project root.
func New(junitFilePath, apiToken string, projectID int64, testCycle string, pprintOnFail bool) *ZigZag {
	return &ZigZag{
		junitFilePath: junitFilePath,
		apiToken:      apiToken,
		projectID:     projectID,
		testCycle:     testCycle,
		pprintOnFail:  pprintOnFail,
		baseURL:       DefaultBaseURL,
		client:        &http.Client{Timeout: uploadTimeout},
		log:           log.Root(),
		tracer:        otel.Tracer("zigzag"),
	}
}

// WithBaseURL points the uploader at a different qTest endpoint.
func (z *ZigZag) WithBaseURL(baseURL string) *ZigZag {
	z.baseURL = baseURL
	return z
}

// WithLogger replaces the uploader's logger.
func (z *ZigZag) WithLogger(logger log.Logger) *ZigZag {
	z.log = logger
	return z
}

// UploadTestResults publishes the report, retrying transient failures.
// Client-side rejections (4xx) are not retried.
func (z *ZigZag) UploadTestResults(ctx context.Context) error {
	ctx, span := z.tracer.Start(ctx, "zigzag.upload_test_results", trace.WithAttributes(
		attribute.Int64("qtest.project_id", z.projectID),
		attribute.String("qtest.test_cycle", z.testCycle),
	))
	defer span.End()

	report, err := os.ReadFile(z.junitFilePath)
	if err != nil {
		return fmt.Errorf("failed to read junit file %q: %w", z.junitFilePath, err)
	}

	err = retry.Do(
		func() error {
			return z.upload(ctx, report)
		},
		retry.Context(ctx),
		retry.Attempts(uploadAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			z.log.Warn("Retrying qTest upload", "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upload test results to qTest project %d: %w", z.projectID, err)
	}

	z.log.Info("Uploaded test results to qTest", "project", z.projectID, "file", filepath.Base(z.junitFilePath))
	return nil
}

func (z *ZigZag) upload(ctx context.Context, report []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(z.junitFilePath))
	if err != nil {
		return retry.Unrecoverable(err)
	}
	if _, err := part.Write(report); err != nil {
		return retry.Unrecoverable(err)
	}
	if z.testCycle != "" {
		if err := mw.WriteField("test_cycle", z.testCycle); err != nil {
			return retry.Unrecoverable(err)
		}
	}
	if err := mw.Close(); err != nil {
		return retry.Unrecoverable(err)
	}

	url := fmt.Sprintf("%s/api/v3/projects/%d/auto-test-logs?type=automation", z.baseURL, z.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Authorization", "Bearer "+z.apiToken)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := z.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if z.pprintOnFail {
		z.log.Error("qTest rejected the upload", "status", resp.StatusCode, "body", string(respBody))
	}
	uploadErr := fmt.Errorf("qTest returned status %d", resp.StatusCode)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return retry.Unrecoverable(uploadErr)
	}
	return uploadErr
}
