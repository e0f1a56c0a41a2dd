package reporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rcbops/zigzag-reporter/flags"
)

// IniConfig mirrors the plugin options that may be supplied through an
// ini-style yaml file instead of the command line.
type IniConfig struct {
	CIEnvironment  string `yaml:"ci-environment,omitempty"`
	ZigZag         *bool  `yaml:"zigzag,omitempty"`
	QTestProjectID *int64 `yaml:"qtest-project-id,omitempty"`
	QTestTestCycle string `yaml:"qtest-test-cycle,omitempty"`
	JUnitOutput    string `yaml:"junit-output,omitempty"`
}

// LoadIniConfig reads an ini file. A missing path yields an empty config.
func LoadIniConfig(path string) (*IniConfig, error) {
	cfg := &IniConfig{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// valueOf returns the ini value for an option name. Unknown names are
// absent, not errors.
func (c *IniConfig) valueOf(name string) (string, bool) {
	switch name {
	case flags.CIEnvironment.Name:
		return c.CIEnvironment, c.CIEnvironment != ""
	case flags.ZigZag.Name:
		if c.ZigZag == nil {
			return "", false
		}
		return strconv.FormatBool(*c.ZigZag), true
	case flags.QTestProjectID.Name:
		if c.QTestProjectID == nil {
			return "", false
		}
		return strconv.FormatInt(*c.QTestProjectID, 10), true
	case flags.QTestTestCycle.Name:
		return c.QTestTestCycle, c.QTestTestCycle != ""
	case flags.JUnitOutput.Name:
		return c.JUnitOutput, c.JUnitOutput != ""
	default:
		return "", false
	}
}

// OptionOfHighestPrecedence resolves an option that may be set both on the
// command line and in the ini file. A flag set on the command line wins,
// then the ini file, then the flag's declared default. Names the CLI does
// not recognize resolve to the ini value or empty, never an error.
func OptionOfHighestPrecedence(ctx *cli.Context, ini *IniConfig, name string) string {
	if ctx != nil && ctx.IsSet(name) {
		return ctx.String(name)
	}
	if ini != nil {
		if v, ok := ini.valueOf(name); ok {
			return v
		}
	}
	if ctx != nil {
		return ctx.String(name)
	}
	return ""
}

// Config holds the application configuration
type Config struct {
	CIEnvironment  CIEnvironment
	ZigZag         bool          // Publish results with ZigZag after the run
	QTestProjectID int64         // qTest project to publish into
	QTestTestCycle string        // qTest test cycle to file results under
	PPrintOnFail   bool          // Pretty-print upload diagnostics on failure
	JUnitOutput    string        // Path the enriched JUnit XML report is written to
	Input          string        // Event stream source ('-' = stdin, path = file, empty = exec go test)
	GoBinary       string        // Go binary used in exec mode
	Packages       []string      // Package patterns handed to go test in exec mode
	Log            log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	ini, err := LoadIniConfig(ctx.String(flags.Config.Name))
	if err != nil {
		return nil, err
	}

	ciEnvironment := CIEnvironment(OptionOfHighestPrecedence(ctx, ini, flags.CIEnvironment.Name))
	if !ciEnvironment.IsValid() {
		return nil, NewRuntimeError(fmt.Errorf("the value %q is not a valid value for the 'ci-environment' configuration", ciEnvironment))
	}

	zigzag := ctx.Bool(flags.ZigZag.Name)
	if !ctx.IsSet(flags.ZigZag.Name) && ini.ZigZag != nil {
		zigzag = *ini.ZigZag
	}

	projectID := ctx.Int64(flags.QTestProjectID.Name)
	if !ctx.IsSet(flags.QTestProjectID.Name) && ini.QTestProjectID != nil {
		projectID = *ini.QTestProjectID
	}

	junitOutput := OptionOfHighestPrecedence(ctx, ini, flags.JUnitOutput.Name)
	if junitOutput == "" {
		junitOutput = "junit.xml"
	}
	junitOutput, err = filepath.Abs(junitOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for junit output %q: %w", junitOutput, err)
	}

	return &Config{
		CIEnvironment:  ciEnvironment,
		ZigZag:         zigzag,
		QTestProjectID: projectID,
		QTestTestCycle: OptionOfHighestPrecedence(ctx, ini, flags.QTestTestCycle.Name),
		PPrintOnFail:   ctx.Bool(flags.PPrintOnFail.Name),
		JUnitOutput:    junitOutput,
		Input:          ctx.String(flags.Input.Name),
		GoBinary:       ctx.String(flags.GoBinary.Name),
		Packages:       ctx.Args().Slice(),
		Log:            logger,
	}, nil
}
