package reporter

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcbops/zigzag-reporter/junitxml"
	"github.com/rcbops/zigzag-reporter/types"
)

type fakeUploader struct {
	calls int
	err   error
}

func (f *fakeUploader) UploadTestResults(ctx context.Context) error {
	f.calls++
	return f.err
}

type uploaderArgs struct {
	junitFilePath string
	apiToken      string
	projectID     int64
	testCycle     string
	pprintOnFail  bool
}

func newTestSession(t *testing.T, cfg *Config) *Session {
	t.Helper()
	cfg.Log = testLogger()
	session, err := NewSession(cfg)
	require.NoError(t, err)
	return session
}

// installFakeUploader swaps the zigzag constructor for a fake and records
// the construction arguments.
func installFakeUploader(s *Session, fake *fakeUploader) *uploaderArgs {
	args := &uploaderArgs{}
	s.newUploader = func(junitFilePath, apiToken string, projectID int64, testCycle string, pprintOnFail bool) Uploader {
		*args = uploaderArgs{junitFilePath, apiToken, projectID, testCycle, pprintOnFail}
		return fake
	}
	return args
}

func TestRunTestLoopRecordsExactGlobalProperties(t *testing.T) {
	t.Setenv("BUILD_URL", "")
	t.Setenv("BUILD_NUMBER", "78")

	session := newTestSession(t, &Config{CIEnvironment: CIEnvironmentASC})
	require.NoError(t, session.RunTestLoop())

	props := session.Document().GlobalProperties()
	require.Len(t, props, 1+len(AscEnvVars))
	assert.Equal(t, junitxml.Property{Name: "ci-environment", Value: "asc"}, props[0])

	byName := make(map[string]string)
	for _, p := range props[1:] {
		byName[p.Name] = p.Value
	}
	for _, name := range AscEnvVars {
		require.Contains(t, byName, name)
	}
	assert.Equal(t, UnknownValue, byName["BUILD_URL"])
	assert.Equal(t, "78", byName["BUILD_NUMBER"])
}

func TestRunTestLoopMk8sUsesMk8sAllowlist(t *testing.T) {
	session := newTestSession(t, &Config{CIEnvironment: CIEnvironmentMK8S})
	require.NoError(t, session.RunTestLoop())

	props := session.Document().GlobalProperties()
	require.Len(t, props, 1+len(Mk8sEnvVars))
	assert.Equal(t, "mk8s", props[0].Value)
}

func TestRunTestLoopRejectsUnknownEnvironment(t *testing.T) {
	session := newTestSession(t, &Config{CIEnvironment: CIEnvironment("tripleo")})
	err := session.RunTestLoop()
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
}

var timestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`)

func TestSetupAndTeardownTimestamps(t *testing.T) {
	session := newTestSession(t, &Config{CIEnvironment: CIEnvironmentASC})

	base := time.Date(2018, 4, 10, 21, 38, 18, 0, time.UTC)
	clock := base
	session.now = func() time.Time {
		now := clock
		clock = clock.Add(time.Second)
		return now
	}

	item := &types.TestItem{Name: "TestExample"}
	session.RunTestSetup(item)
	session.RunTestTeardown(item)

	require.Len(t, item.UserProperties, 2)
	assert.Equal(t, "start_time", item.UserProperties[0].Name)
	assert.Equal(t, "2018-04-10T21:38:18Z", item.UserProperties[0].Value)
	assert.Equal(t, "end_time", item.UserProperties[1].Name)
	assert.Equal(t, "2018-04-10T21:38:19Z", item.UserProperties[1].Value)

	for _, p := range item.UserProperties {
		assert.Regexp(t, timestampRe, p.Value)
	}
}

func TestCollectionModifyItemsCapturesMarks(t *testing.T) {
	session := newTestSession(t, &Config{CIEnvironment: CIEnvironmentASC})

	item := &types.TestItem{Name: "TestExample"}
	item.AddMarker("jira", "ABC-123", "ABC-456")
	item.AddMarker("test_id", "d7fc612b")
	item.AddMarker("owner", "ignored") // not a captured mark
	session.RunTestSetup(item)
	session.RunTestTeardown(item)

	session.CollectionModifyItems([]*types.TestItem{item})

	names := make([]string, 0, len(item.UserProperties))
	for _, p := range item.UserProperties {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"test_id", "jira", "jira", "start_time", "end_time"}, names)
	assert.Equal(t, "ABC-123", item.UserProperties[1].Value)
	assert.Equal(t, "ABC-456", item.UserProperties[2].Value)
}

func TestSessionFinishDisabled(t *testing.T) {
	session := newTestSession(t, &Config{CIEnvironment: CIEnvironmentASC, JUnitOutput: "junit.xml"})
	fake := &fakeUploader{}
	installFakeUploader(session, fake)

	require.NoError(t, session.SessionFinish(context.Background()))
	assert.Zero(t, fake.calls)
}

func TestSessionFinishWithoutProjectID(t *testing.T) {
	session := newTestSession(t, &Config{
		CIEnvironment: CIEnvironmentASC,
		ZigZag:        true,
		JUnitOutput:   "junit.xml",
	})
	fake := &fakeUploader{}
	installFakeUploader(session, fake)

	require.NoError(t, session.SessionFinish(context.Background()))
	assert.Zero(t, fake.calls)
}

func TestSessionFinishMissingAPIToken(t *testing.T) {
	t.Setenv(QTestAPITokenVar, "")

	session := newTestSession(t, &Config{
		CIEnvironment:  CIEnvironmentASC,
		ZigZag:         true,
		QTestProjectID: 12345,
		JUnitOutput:    "junit.xml",
	})
	fake := &fakeUploader{}
	installFakeUploader(session, fake)

	err := session.SessionFinish(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
	assert.Zero(t, fake.calls)
}

func TestSessionFinishUploads(t *testing.T) {
	t.Setenv(QTestAPITokenVar, "token-123")

	session := newTestSession(t, &Config{
		CIEnvironment:  CIEnvironmentASC,
		ZigZag:         true,
		QTestProjectID: 12345,
		QTestTestCycle: "CL-7",
		PPrintOnFail:   true,
		JUnitOutput:    "/tmp/junit.xml",
	})
	fake := &fakeUploader{}
	args := installFakeUploader(session, fake)

	require.NoError(t, session.SessionFinish(context.Background()))
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, &uploaderArgs{
		junitFilePath: "/tmp/junit.xml",
		apiToken:      "token-123",
		projectID:     12345,
		testCycle:     "CL-7",
		pprintOnFail:  true,
	}, args)
}

func TestSessionFinishUploadFailureDoesNotFailRun(t *testing.T) {
	t.Setenv(QTestAPITokenVar, "token-123")

	session := newTestSession(t, &Config{
		CIEnvironment:  CIEnvironmentASC,
		ZigZag:         true,
		QTestProjectID: 12345,
		JUnitOutput:    "junit.xml",
	})
	fake := &fakeUploader{err: assert.AnError}
	installFakeUploader(session, fake)

	// The upload error is logged and counted, never surfaced.
	require.NoError(t, session.SessionFinish(context.Background()))
	assert.Equal(t, 1, fake.calls)
}

func TestSessionRunEmptyStreamStillWritesGlobalProperties(t *testing.T) {
	dir := t.TempDir()
	streamPath := filepath.Join(dir, "events.json")
	require.NoError(t, os.WriteFile(streamPath, nil, 0o644))
	junitPath := filepath.Join(dir, "junit.xml")

	session := newTestSession(t, &Config{
		CIEnvironment: CIEnvironmentASC,
		Input:         streamPath,
		JUnitOutput:   junitPath,
	})

	// A run that produced no test events still yields a report stamped
	// with the ci-environment and its full allowlist.
	result, err := session.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Stats.Total)

	root, err := junitxml.LoadFile(junitPath)
	require.NoError(t, err)
	require.Len(t, root.Suites, 1)
	suite := root.Suites[0]

	require.NotNil(t, suite.Properties)
	require.Len(t, suite.Properties.Property, 1+len(AscEnvVars))
	assert.Equal(t, junitxml.Property{Name: "ci-environment", Value: "asc"}, suite.Properties.Property[0])
	assert.Empty(t, suite.TestCases)
}

const runStream = `{"Action":"run","Package":"example.com/pkg","Test":"TestAlpha"}
{"Action":"output","Package":"example.com/pkg","Test":"TestAlpha","Output":"    alpha_test.go:12: === MARK: jira=ABC-123\n"}
{"Action":"pass","Package":"example.com/pkg","Test":"TestAlpha","Elapsed":0.25}
{"Action":"run","Package":"example.com/pkg","Test":"TestBeta"}
{"Action":"output","Package":"example.com/pkg","Test":"TestBeta","Output":"    beta_test.go:20: boom\n"}
{"Action":"fail","Package":"example.com/pkg","Test":"TestBeta","Elapsed":0.5}
`

func TestSessionRunFromStream(t *testing.T) {
	dir := t.TempDir()
	streamPath := filepath.Join(dir, "events.json")
	require.NoError(t, os.WriteFile(streamPath, []byte(runStream), 0o644))
	junitPath := filepath.Join(dir, "junit.xml")

	session := newTestSession(t, &Config{
		CIEnvironment: CIEnvironmentASC,
		Input:         streamPath,
		JUnitOutput:   junitPath,
	})

	result, err := session.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.Total)
	assert.Equal(t, 1, result.Stats.Failed)
	assert.Equal(t, session.RunID(), result.RunID)

	root, err := junitxml.LoadFile(junitPath)
	require.NoError(t, err)
	require.Len(t, root.Suites, 1)
	suite := root.Suites[0]

	require.NotNil(t, suite.Properties)
	assert.Equal(t, "ci-environment", suite.Properties.Property[0].Name)
	assert.Len(t, suite.Properties.Property, 1+len(AscEnvVars))

	require.Len(t, suite.TestCases, 2)
	alpha := suite.TestCases[0]
	require.NotNil(t, alpha.Properties)

	var jiraIdx, startIdx, endIdx int
	for i, p := range alpha.Properties.Property {
		switch p.Name {
		case "jira":
			jiraIdx = i
			assert.Equal(t, "ABC-123", p.Value)
		case "start_time":
			startIdx = i
			assert.Regexp(t, timestampRe, p.Value)
		case "end_time":
			endIdx = i
			assert.Regexp(t, timestampRe, p.Value)
		}
	}
	assert.Less(t, jiraIdx, startIdx)
	assert.Less(t, startIdx, endIdx)

	beta := suite.TestCases[1]
	require.NotNil(t, beta.Failure)
	assert.Contains(t, beta.Failure.Content, "boom")
}
