package reporter

import (
	"fmt"
	"os"

	"github.com/rcbops/zigzag-reporter/types"
)

// CIEnvironment identifies which CI pipeline flavor executed the tests. It
// selects the environment-variable allowlist recorded on the report.
type CIEnvironment string

const (
	CIEnvironmentASC  CIEnvironment = "asc"
	CIEnvironmentMK8S CIEnvironment = "mk8s"
)

// UnknownValue stands in for allowlisted variables that are unset in the
// process environment.
const UnknownValue = "Unknown"

// IsValid checks if the ci-environment is one of the supported values
func (c CIEnvironment) IsValid() bool {
	return c == CIEnvironmentASC || c == CIEnvironmentMK8S
}

func (c CIEnvironment) String() string {
	return string(c)
}

// AscEnvVars are the operating-environment variables recorded for ASC
// (Jenkins + molecule) pipelines.
var AscEnvVars = []string{
	"BUILD_URL",
	"BUILD_NUMBER",
	"RE_JOB_ACTION",
	"RE_JOB_IMAGE",
	"RE_JOB_SCENARIO",
	"RE_JOB_BRANCH",
	"RPC_RELEASE",
	"RPC_PRODUCT_RELEASE",
	"OS_ARTIFACT_SHA",
	"PYTHON_ARTIFACT_SHA",
	"APT_ARTIFACT_SHA",
	"REPO_URL",
	"JOB_NAME",
	"MOLECULE_TEST_REPO",
	"MOLECULE_SCENARIO_NAME",
	"MOLECULE_GIT_COMMIT",
}

// Mk8sEnvVars are the operating-environment variables recorded for MK8S
// (Jenkins multibranch) pipelines.
var Mk8sEnvVars = []string{
	"BUILD_URL",
	"BUILD_NUMBER",
	"BUILD_ID",
	"NODE_NAME",
	"JOB_NAME",
	"BUILD_TAG",
	"JENKINS_URL",
	"EXECUTOR_NUMBER",
	"WORKSPACE",
	"CVS_BRANCH",
	"GIT_COMMIT",
	"GIT_URL",
	"GIT_BRANCH",
	"GIT_LOCAL_BRANCH",
	"GIT_AUTHOR_NAME",
	"GIT_AUTHOR_EMAIL",
	"BRANCH_NAME",
	"CHANGE_AUTHOR_DISPLAY_NAME",
	"CHANGE_AUTHOR",
	"CHANGE_BRANCH",
	"CHANGE_FORK",
	"CHANGE_ID",
	"CHANGE_TARGET",
	"CHANGE_TITLE",
	"CHANGE_URL",
	"JOB_URL",
	"NODE_LABELS",
	"NODE_NAME",
	"PWD",
	"STAGE_NAME",
}

// EnvVarsFor returns the allowlist for a ci-environment.
func EnvVarsFor(env CIEnvironment) ([]string, error) {
	switch env {
	case CIEnvironmentASC:
		return AscEnvVars, nil
	case CIEnvironmentMK8S:
		return Mk8sEnvVars, nil
	default:
		return nil, NewRuntimeError(fmt.Errorf("the value %q is not a valid value for the 'ci-environment' configuration", env))
	}
}

// CaptureEnvironment returns one property per allowlisted variable, in
// allowlist order, reading the process environment with UnknownValue as the
// fallback for unset names.
func CaptureEnvironment(env CIEnvironment) ([]types.Property, error) {
	names, err := EnvVarsFor(env)
	if err != nil {
		return nil, err
	}
	props := make([]types.Property, 0, len(names))
	for _, name := range names {
		value := os.Getenv(name)
		if value == "" {
			value = UnknownValue
		}
		props = append(props, types.Property{Name: name, Value: value})
	}
	return props, nil
}
