package junitxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rcbops/zigzag-reporter/types"
)

// TimestampFormat is the fixed UTC layout used for the start_time and
// end_time testcase properties.
const TimestampFormat = "2006-01-02T15:04:05Z"

// TestSuites is the root element of a JUnit XML report.
type TestSuites struct {
	XMLName  xml.Name    `xml:"testsuites"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Errors   int         `xml:"errors,attr"`
	Suites   []TestSuite `xml:"testsuite"`
}

// TestSuite is a single testsuite element. Its properties block carries the
// report-level (global) properties.
type TestSuite struct {
	Name       string      `xml:"name,attr"`
	Tests      int         `xml:"tests,attr"`
	Failures   int         `xml:"failures,attr"`
	Errors     int         `xml:"errors,attr"`
	Skipped    int         `xml:"skipped,attr"`
	Time       string      `xml:"time,attr"`
	Timestamp  string      `xml:"timestamp,attr,omitempty"`
	Properties *Properties `xml:"properties,omitempty"`
	TestCases  []TestCase  `xml:"testcase"`
}

// Properties groups property elements.
type Properties struct {
	Property []Property `xml:"property"`
}

// Property is one name/value annotation.
type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// TestCase is a single testcase element.
type TestCase struct {
	Name       string      `xml:"name,attr"`
	Classname  string      `xml:"classname,attr"`
	Time       string      `xml:"time,attr"`
	Properties *Properties `xml:"properties,omitempty"`
	Failure    *Failure    `xml:"failure,omitempty"`
	Skipped    *Skipped    `xml:"skipped,omitempty"`
}

// Failure carries the captured output of a failing test.
type Failure struct {
	Message string `xml:"message,attr,omitempty"`
	Content string `xml:",cdata"`
}

// Skipped marks a skipped testcase.
type Skipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// Document builds a single-suite JUnit report incrementally. Global
// properties and testcases are append-only and keep insertion order.
type Document struct {
	suite TestSuite
}

// NewDocument creates a report document with one named testsuite.
func NewDocument(suiteName string) *Document {
	return &Document{
		suite: TestSuite{
			Name:      suiteName,
			Timestamp: time.Now().UTC().Format(TimestampFormat),
		},
	}
}

// AddGlobalProperty appends a property to the testsuite's properties block.
func (d *Document) AddGlobalProperty(name, value string) {
	if d.suite.Properties == nil {
		d.suite.Properties = &Properties{}
	}
	d.suite.Properties.Property = append(d.suite.Properties.Property, Property{Name: name, Value: value})
}

// GlobalProperties returns the testsuite's properties in insertion order.
func (d *Document) GlobalProperties() []Property {
	if d.suite.Properties == nil {
		return nil
	}
	return d.suite.Properties.Property
}

// AddTestCase appends a testcase built from a collected item, carrying the
// item's user properties in append order.
func (d *Document) AddTestCase(item *types.TestItem) {
	tc := TestCase{
		Name:      item.Name,
		Classname: item.Package,
		Time:      fmt.Sprintf("%.3f", item.Duration.Seconds()),
	}
	if len(item.UserProperties) > 0 {
		props := &Properties{}
		for _, p := range item.UserProperties {
			props.Property = append(props.Property, Property{Name: p.Name, Value: p.Value})
		}
		tc.Properties = props
	}
	switch item.Status {
	case types.TestStatusFail:
		tc.Failure = &Failure{Message: "test failed", Content: item.FailureMessage()}
	case types.TestStatusSkip:
		tc.Skipped = &Skipped{Message: item.FailureMessage()}
	}
	d.suite.TestCases = append(d.suite.TestCases, tc)
}

// Finalize computes the suite counters from the recorded testcases.
func (d *Document) Finalize(duration time.Duration) {
	d.suite.Tests = len(d.suite.TestCases)
	d.suite.Failures = 0
	d.suite.Skipped = 0
	for _, tc := range d.suite.TestCases {
		if tc.Failure != nil {
			d.suite.Failures++
		}
		if tc.Skipped != nil {
			d.suite.Skipped++
		}
	}
	d.suite.Time = fmt.Sprintf("%.3f", duration.Seconds())
}

// Write serializes the report.
func (d *Document) Write(w io.Writer) error {
	root := TestSuites{
		Tests:    d.suite.Tests,
		Failures: d.suite.Failures,
		Suites:   []TestSuite{d.suite},
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("failed to encode junit xml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFile writes the report to path, creating or truncating it.
func (d *Document) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create junit file %q: %w", path, err)
	}
	defer f.Close()
	if err := d.Write(f); err != nil {
		return err
	}
	return f.Close()
}

// Load parses a JUnit XML report.
func Load(r io.Reader) (*TestSuites, error) {
	var root TestSuites
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to decode junit xml: %w", err)
	}
	return &root, nil
}

// LoadFile parses a JUnit XML report from disk.
func LoadFile(path string) (*TestSuites, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open junit file %q: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}
