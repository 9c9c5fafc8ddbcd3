package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/mocha/packages/core/runner"
	"github.com/abdul-hamid-achik/mocha/packages/dispatch"
	"github.com/abdul-hamid-achik/mocha/packages/viewer"
)

// JUnit XML structures

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents a test suite (one collection run)
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase represents a single test case
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a test failure
type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitError represents a test error
type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitSkipped represents a skipped test
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter formats test results as JUnit XML
type JUnitFormatter struct {
	writer     io.Writer
	testSuites []JUnitTestSuite
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer:     os.Stdout,
		testSuites: make([]JUnitTestSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

// FormatRun adds one suite per run: every request is a test case, 4xx and 5xx answers
// are failures, network and validation errors are errors and cancelled requests are
// skipped.
func (f *JUnitFormatter) FormatRun(s *runner.Summary) error {
	suite := JUnitTestSuite{
		Name:      s.Name,
		Tests:     s.Total,
		Failures:  s.HTTPErrors,
		Errors:    s.NetworkErrors + s.Invalid,
		Skipped:   s.Cancelled,
		Time:      s.Duration.Seconds(),
		Timestamp: time.Now().Format(time.RFC3339),
		TestCases: make([]JUnitTestCase, 0, len(s.Results)),
	}

	for _, r := range s.Results {
		name := r.Path
		if r.Iteration > 1 {
			name = fmt.Sprintf("%s #%d", name, r.Iteration)
		}
		tc := JUnitTestCase{
			Name:      name,
			ClassName: s.Name,
			Time:      r.Elapsed.Seconds(),
		}

		switch {
		case r.Invalid:
			tc.Error = &JUnitError{
				Message: r.Err.Error(),
				Type:    "ValidationError",
			}
		case r.Outcome == dispatch.OutcomeCancelled:
			tc.Skipped = &JUnitSkipped{Message: "cancelled"}
		case r.Outcome == dispatch.OutcomeNetworkError:
			msg := viewer.NetworkErrorMessage
			if r.Err != nil {
				msg = r.Err.Error()
			}
			tc.Error = &JUnitError{
				Message: msg,
				Type:    "NetworkError",
				Content: fmt.Sprintf("%s %s: %s", r.Method, r.URL, viewer.NetworkErrorMessage),
			}
		case r.Failed():
			tc.Failure = &JUnitFailure{
				Message: fmt.Sprintf("status %d", r.Status),
				Type:    string(viewer.Classify(r.Status)),
				Content: fmt.Sprintf("%s %s returned %d", r.Method, r.URL, r.Status),
			}
		}

		suite.TestCases = append(suite.TestCases, tc)
	}

	f.testSuites = append(f.testSuites, suite)
	return nil
}

// FormatResponse is a no-op: single responses have no JUnit representation.
func (f *JUnitFormatter) FormatResponse(*Exchange) error {
	return nil
}

func (f *JUnitFormatter) FormatError(err error) {
	// Errors are included in individual test cases
}

// Flush writes the accumulated JUnit XML output
func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	var totalTests, totalFailures, totalErrors, totalSkipped int
	for _, suite := range f.testSuites {
		totalTests += suite.Tests
		totalFailures += suite.Failures
		totalErrors += suite.Errors
		totalSkipped += suite.Skipped
	}

	suites := JUnitTestSuites{
		Name:       "mocha",
		Tests:      totalTests,
		Failures:   totalFailures,
		Errors:     totalErrors,
		Skipped:    totalSkipped,
		Time:       totalDuration.Seconds(),
		Timestamp:  time.Now().Format(time.RFC3339),
		TestSuites: f.testSuites,
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	return encoder.Encode(suites)
}
