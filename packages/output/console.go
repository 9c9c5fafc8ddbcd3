package output

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/mocha/packages/core/runner"
	"github.com/abdul-hamid-achik/mocha/packages/dispatch"
	"github.com/abdul-hamid-achik/mocha/packages/viewer"
)

// truncate shortens s for single-line display
func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
	filter  string
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// WithFilter prints only the part of a JSON body selected by a gjson path.
func WithFilter(path string) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.filter = path
	}
}

// classColor maps a status class to the color of the status line.
func classColor(c viewer.StatusClass) *color.Color {
	switch c {
	case viewer.ClassInformational:
		return color.New(color.FgCyan)
	case viewer.ClassSuccess:
		return color.New(color.FgGreen)
	case viewer.ClassRedirection:
		return color.New(color.FgYellow)
	case viewer.ClassClientError:
		return color.New(color.FgRed)
	case viewer.ClassServerError:
		return color.New(color.FgHiRed, color.Bold)
	default:
		return color.New(color.FgRed)
	}
}

func (f *ConsoleFormatter) FormatResponse(e *Exchange) error {
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	snap := e.Snapshot

	if f.verbose {
		fmt.Fprintf(f.writer, "%s %s\n", bold(e.Method), e.URL)
	}

	if snap.NetworkError {
		red := color.New(color.FgRed).SprintFunc()
		fmt.Fprintf(f.writer, "%s %s\n", red("✗"), red(viewer.NetworkErrorMessage))
		if f.verbose && snap.Error != "" {
			fmt.Fprintf(f.writer, "  %s\n", dim(snap.Error))
		}
		return nil
	}

	class := e.Class()
	status := strings.TrimSpace(fmt.Sprintf("%d %s", snap.HTTPStatus, http.StatusText(snap.HTTPStatus)))
	fmt.Fprintf(f.writer, "%s %s %s\n", classColor(class).Sprint(status), dim(string(class)), dim(fmt.Sprintf("(%dms)", snap.ElapsedMs)))

	if f.verbose && len(snap.Headers) > 0 {
		names := make([]string, 0, len(snap.Headers))
		for k := range snap.Headers {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(f.writer, "%s: %s\n", color.CyanString(k), snap.Headers[k])
		}
	}

	body, err := FilterBody(snap.Payload, f.filter)
	if err != nil {
		return err
	}
	if len(body) > 0 {
		out := PrettyBody(body, !color.NoColor)
		fmt.Fprintf(f.writer, "\n%s", out)
		if out[len(out)-1] != '\n' {
			fmt.Fprintln(f.writer)
		}
	}
	return nil
}

func (f *ConsoleFormatter) FormatRun(s *runner.Summary) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n\n", bold("Running: "+s.Name))

	for _, r := range s.Results {
		f.FormatRunResult(r)
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Requests: ")
	if s.Succeeded > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d succeeded", s.Succeeded)))
	}
	if s.HTTPErrors > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d http errors", s.HTTPErrors)))
	}
	if s.NetworkErrors > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d network errors", s.NetworkErrors)))
	}
	if s.Invalid > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d invalid", s.Invalid)))
	}
	if s.Cancelled > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d cancelled", s.Cancelled)))
	}
	fmt.Fprintf(f.writer, "%d total\n", s.Total)

	if s.Succeeded+s.HTTPErrors > 0 {
		l := s.Latency
		fmt.Fprintf(f.writer, "Latency: %s\n", cyan(fmt.Sprintf("min %s  mean %s  p50 %s  p90 %s  p99 %s  max %s",
			ms(l.Min), ms(l.Mean), ms(l.P50), ms(l.P90), ms(l.P99), ms(l.Max))))
	}
	fmt.Fprintf(f.writer, "Time:    %dms\n\n", s.Duration.Milliseconds())
	return nil
}

// FormatRunResult prints one line of a run as it completes.
func (f *ConsoleFormatter) FormatRunResult(r runner.Result) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	name := r.Path
	if r.Iteration > 1 {
		name = fmt.Sprintf("%s #%d", name, r.Iteration)
	}

	switch {
	case r.Invalid:
		fmt.Fprintf(f.writer, "  %s %s %s\n", yellow("!"), name, yellow(fmt.Sprintf("(%v)", r.Err)))
	case r.Outcome == dispatch.OutcomeCancelled:
		fmt.Fprintf(f.writer, "  %s %s\n", yellow("-"), name)
	case r.Outcome == dispatch.OutcomeNetworkError:
		fmt.Fprintf(f.writer, "  %s %s %s\n", red("x"), name, red("("+viewer.NetworkErrorMessage+")"))
	default:
		symbol := green("✓")
		if r.Failed() {
			symbol = red("✗")
		}
		status := classColor(viewer.Classify(r.Status)).Sprint(r.Status)
		fmt.Fprintf(f.writer, "  %s %s %s %s %s\n", symbol, r.Method, name, status, cyan(fmt.Sprintf("(%dms)", r.Elapsed.Milliseconds())))
		if f.verbose {
			fmt.Fprintf(f.writer, "    %s\n", truncate(r.URL, 120))
		}
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("mocha"), version)
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
}
