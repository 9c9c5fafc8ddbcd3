package output

import (
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/mocha/packages/core/runner"
	"github.com/abdul-hamid-achik/mocha/packages/dispatch"
	"github.com/abdul-hamid-achik/mocha/packages/viewer"
)

// Exchange is one settled dispatch as shown to the user.
type Exchange struct {
	Name     string
	Method   string
	URL      string
	Snapshot dispatch.Snapshot
}

// Class returns the status class of the answer, or "" for a network error.
func (e *Exchange) Class() viewer.StatusClass {
	if e.Snapshot.NetworkError {
		return ""
	}
	return viewer.Classify(e.Snapshot.HTTPStatus)
}

// Formatter renders responses and run summaries.
type Formatter interface {
	FormatResponse(e *Exchange) error
	FormatRun(s *runner.Summary) error
	FormatError(err error)
}

// Flushable is implemented by formatters that accumulate output.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Format names accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatJUnit   = "junit"
)

// Options shared by every formatter.
type Options struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
	Filter  string
}

// New returns the formatter for format.
func New(format string, o Options) (Formatter, error) {
	switch format {
	case "", FormatConsole:
		return NewConsoleFormatter(WithWriter(o.Writer), WithVerbose(o.Verbose), WithNoColor(o.NoColor), WithFilter(o.Filter)), nil
	case FormatJSON:
		return NewJSONFormatter(JSONWithWriter(o.Writer), JSONWithFilter(o.Filter)), nil
	case FormatJUnit:
		return NewJUnitFormatter(JUnitWithWriter(o.Writer)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want console, json or junit)", format)
	}
}
