// Package reporter enriches JUnit XML test reports with CI-environment
// metadata, captures test markers into report properties, timestamps test
// execution, and optionally publishes results to qTest through ZigZag. All
// behavior hangs off lifecycle hooks driven by the host test runner; the
// package owns no execution logic of its own.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/rcbops/zigzag-reporter/junitxml"
	"github.com/rcbops/zigzag-reporter/metrics"
	"github.com/rcbops/zigzag-reporter/runner"
	"github.com/rcbops/zigzag-reporter/types"
	"github.com/rcbops/zigzag-reporter/zigzag"
)

// QTestAPITokenVar is the environment variable holding the qTest API token.
// It is read directly from the environment, never from an option.
const QTestAPITokenVar = "QTEST_API_TOKEN"

// CapturedMarks are the marker names recorded as testcase properties.
var CapturedMarks = []string{"test_id", "jira"}

// Uploader is what the session-finish hook needs from the zigzag client.
type Uploader interface {
	UploadTestResults(ctx context.Context) error
}

// newUploaderFunc builds an uploader from the original ZigZag constructor
// arguments. Swappable in tests.
type newUploaderFunc func(junitFilePath, apiToken string, projectID int64, testCycle string, pprintOnFail bool) Uploader

// Session drives the plugin's hooks across one test run and owns the
// report document the hooks append to.
type Session struct {
	config *Config
	runID  string
	doc    *junitxml.Document
	log    log.Logger

	now         func() time.Time
	newUploader newUploaderFunc
}

var _ runner.Lifecycle = (*Session)(nil)

// NewSession creates a session for a config.
func NewSession(config *Config) (*Session, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	logger := config.Log
	if logger == nil {
		logger = log.Root()
	}
	return &Session{
		config: config,
		runID:  uuid.New().String(),
		doc:    junitxml.NewDocument("zigzag-reporter"),
		log:    logger,
		now:    time.Now,
		newUploader: func(junitFilePath, apiToken string, projectID int64, testCycle string, pprintOnFail bool) Uploader {
			return zigzag.New(junitFilePath, apiToken, projectID, testCycle, pprintOnFail).WithLogger(logger)
		},
	}, nil
}

// RunID identifies this session in logs and metrics.
func (s *Session) RunID() string {
	return s.runID
}

// Document exposes the report under construction.
func (s *Session) Document() *junitxml.Document {
	return s.doc
}

// RunTestLoop fires once at run start. It validates the ci-environment and
// records the global properties: 'ci-environment' itself, then one property
// per allowlisted environment variable.
func (s *Session) RunTestLoop() error {
	env := s.config.CIEnvironment
	props, err := CaptureEnvironment(env)
	if err != nil {
		return err
	}
	s.doc.AddGlobalProperty("ci-environment", env.String())
	for _, p := range props {
		s.doc.AddGlobalProperty(p.Name, p.Value)
	}

	s.log.Info("Run started", "run_id", s.runID, "ci_environment", env)
	return nil
}

// RunTestSetup stamps the test's start time in UTC.
func (s *Session) RunTestSetup(item *types.TestItem) {
	item.UserProperties = append(item.UserProperties, types.Property{
		Name:  "start_time",
		Value: s.timestamp(),
	})
}

// RunTestTeardown stamps the test's end time in UTC. RunTestSetup always
// ran first for the same item, so start_time precedes end_time.
func (s *Session) RunTestTeardown(item *types.TestItem) {
	item.UserProperties = append(item.UserProperties, types.Property{
		Name:  "end_time",
		Value: s.timestamp(),
	})
}

// CollectionModifyItems captures the configured marks into testcase
// properties: one property per argument, in argument order. Marker
// properties are placed ahead of the timestamps, matching the layout
// consumers of these reports expect.
func (s *Session) CollectionModifyItems(items []*types.TestItem) {
	for _, item := range items {
		var markProps []types.Property
		for _, markName := range CapturedMarks {
			for _, arg := range item.GetMarker(markName) {
				markProps = append(markProps, types.Property{Name: markName, Value: arg})
			}
		}
		if len(markProps) > 0 {
			item.UserProperties = append(markProps, item.UserProperties...)
		}
	}
}

// SessionFinish publishes the report with ZigZag when publishing is
// enabled. A missing API token is a loud runtime error; an upload failure
// is logged and counted but never fails the run.
func (s *Session) SessionFinish(ctx context.Context) error {
	if !s.config.ZigZag {
		s.log.Debug("ZigZag publishing disabled; skipping upload")
		return nil
	}
	if s.config.QTestProjectID == 0 {
		s.log.Warn("ZigZag publishing enabled but no qtest-project-id is set; skipping upload")
		return nil
	}
	if s.config.JUnitOutput == "" {
		s.log.Warn("ZigZag publishing enabled but no junit report path is available; skipping upload")
		return nil
	}

	apiToken := os.Getenv(QTestAPITokenVar)
	if apiToken == "" {
		return NewRuntimeError(fmt.Errorf("%s must be set when ZigZag publishing is enabled", QTestAPITokenVar))
	}

	zz := s.newUploader(s.config.JUnitOutput, apiToken, s.config.QTestProjectID, s.config.QTestTestCycle, s.config.PPrintOnFail)
	err := zz.UploadTestResults(ctx)
	metrics.RecordUpload(s.runID, err)
	if err != nil {
		s.log.Error("Failed to upload test results to qTest; run result is unaffected", "err", err)
	}
	return nil
}

// Run executes the whole session: drive the host runner's event stream
// through the hooks, write the enriched report, record metrics, and run
// the session-finish hook.
func (s *Session) Run(ctx context.Context) (*types.RunResult, error) {
	collector := runner.NewCollector(s.log, s)

	var result *types.RunResult
	var err error
	if s.config.Input != "" {
		var in io.ReadCloser
		in, err = runner.OpenInput(s.config.Input)
		if err != nil {
			return nil, NewRuntimeError(err)
		}
		defer in.Close()
		result, err = collector.Process(in)
	} else {
		result, err = runner.Exec(ctx, s.log, s.config.GoBinary, s.config.Packages, collector)
	}
	if err != nil {
		return nil, err
	}
	result.RunID = s.runID

	for _, item := range result.Items {
		s.doc.AddTestCase(item)
	}
	s.doc.Finalize(result.Duration)
	if err := s.doc.WriteFile(s.config.JUnitOutput); err != nil {
		return nil, NewRuntimeError(err)
	}
	s.log.Info("Wrote enriched JUnit report", "path", s.config.JUnitOutput, "tests", result.Stats.Total)

	metrics.RecordRun(
		s.config.CIEnvironment.String(),
		s.runID,
		string(result.Status()),
		result.Stats.Total,
		result.Stats.Passed,
		result.Stats.Failed,
		result.Stats.Skipped,
		result.Duration,
	)

	if err := s.SessionFinish(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// timestamp renders the current time in the fixed UTC report format.
func (s *Session) timestamp() string {
	return s.now().UTC().Format(junitxml.TimestampFormat)
}
