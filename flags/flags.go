package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "ZIGZAG_REPORTER"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	CIEnvironment = &cli.StringFlag{
		Name:    "ci-environment",
		Value:   "asc",
		EnvVars: prefixEnvVars("CI_ENVIRONMENT"),
		Usage:   "The ci-environment used to execute the tests ('asc' or 'mk8s')",
	}
	ZigZag = &cli.BoolFlag{
		Name:    "zigzag",
		Value:   false,
		EnvVars: prefixEnvVars("ZIGZAG"),
		Usage:   "Automatically publish results with ZigZag after the run",
	}
	QTestProjectID = &cli.Int64Flag{
		Name:    "qtest-project-id",
		EnvVars: prefixEnvVars("QTEST_PROJECT_ID"),
		Usage:   "The qTest project ID ZigZag uploads results to",
	}
	QTestTestCycle = &cli.StringFlag{
		Name:    "qtest-test-cycle",
		EnvVars: prefixEnvVars("QTEST_TEST_CYCLE"),
		Usage:   "The qTest test cycle to file results under",
	}
	PPrintOnFail = &cli.BoolFlag{
		Name:    "pprint-on-fail",
		Value:   false,
		EnvVars: prefixEnvVars("PPRINT_ON_FAIL"),
		Usage:   "Pretty-print upload diagnostics when publishing fails",
	}
	JUnitOutput = &cli.StringFlag{
		Name:    "junit-output",
		Value:   "junit.xml",
		EnvVars: prefixEnvVars("JUNIT_OUTPUT"),
		Usage:   "Path to write the enriched JUnit XML report",
	}
	Input = &cli.StringFlag{
		Name:    "input",
		Value:   "",
		EnvVars: prefixEnvVars("INPUT"),
		Usage:   "Read a 'go test -json' stream from this file ('-' for stdin) instead of running tests",
	}
	GoBinary = &cli.StringFlag{
		Name:    "go-binary",
		Value:   "go",
		EnvVars: prefixEnvVars("GO_BINARY"),
		Usage:   "Path to the Go binary used to run tests",
	}
	Config = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: prefixEnvVars("CONFIG"),
		Usage:   "Path to an ini-style yaml file supplying option defaults (eg. 'reporter.yaml')",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log.level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "The lowest log level that will be output",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	CIEnvironment,
	ZigZag,
	QTestProjectID,
	QTestTestCycle,
	PPrintOnFail,
	JUnitOutput,
	Input,
	GoBinary,
	Config,
	LogLevel,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
