package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/mocha/packages/collection"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/core/runner"
	"github.com/abdul-hamid-achik/mocha/packages/dispatch"
	"github.com/abdul-hamid-achik/mocha/packages/viewer"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func exchange(status int, body string) *Exchange {
	return &Exchange{
		Name:   "users",
		Method: "GET",
		URL:    "http://localhost/users",
		Snapshot: dispatch.Snapshot{
			RequestID:  "r1",
			HTTPStatus: status,
			ElapsedMs:  42,
			Payload:    []byte(body),
			Headers:    map[string]string{"Content-Type": "application/json", "X-Request-Id": "abc"},
		},
	}
}

func sampleSummary() *runner.Summary {
	return &runner.Summary{
		Name: "sample",
		Results: []runner.Result{
			{RequestID: "a", Path: "users/list", Method: "GET", URL: "http://x/users", Iteration: 1, Outcome: dispatch.OutcomeResponse, Status: 200, Elapsed: 12 * time.Millisecond},
			{RequestID: "b", Path: "users/get", Method: "GET", URL: "http://x/users/1", Iteration: 1, Outcome: dispatch.OutcomeResponse, Status: 404, Elapsed: 8 * time.Millisecond},
			{RequestID: "c", Path: "down", Method: "GET", URL: "http://down", Iteration: 1, Outcome: dispatch.OutcomeNetworkError, Err: errors.New("connection refused")},
			{RequestID: "d", Path: "broken", Method: "GET", Iteration: 1, Invalid: true, Err: errors.New("url: url is required")},
		},
		Total:         4,
		Succeeded:     1,
		HTTPErrors:    1,
		NetworkErrors: 1,
		Invalid:       1,
		Latency:       runner.Latency{Min: 8 * time.Millisecond, Max: 12 * time.Millisecond},
		Duration:      30 * time.Millisecond,
	}
}

func TestFilterBody(t *testing.T) {
	payload := []byte(`{"user":{"name":"Ada","tags":["a","b"]}}`)

	got, err := FilterBody(payload, "user.name")
	require.NoError(t, err)
	assert.Equal(t, "Ada", string(got))

	got, err = FilterBody(payload, "user.tags")
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, string(got))

	got, err = FilterBody(payload, "")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = FilterBody(payload, "user.missing")
	assert.Error(t, err)
	_, err = FilterBody([]byte("<html>"), "a")
	assert.Error(t, err)
}

func TestPrettyBody(t *testing.T) {
	out := PrettyBody([]byte(`{"a":1,"b":[1,2]}`), false)
	assert.Contains(t, string(out), "\n  \"a\": 1")
	assert.Equal(t, "plain", string(PrettyBody([]byte("plain"), false)))
}

func TestConsole_FormatResponse(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithVerbose(true))

	require.NoError(t, f.FormatResponse(exchange(200, `{"id":1}`)))
	out := buf.String()
	assert.Contains(t, out, "GET http://localhost/users")
	assert.Contains(t, out, "200 OK success (42ms)")
	assert.Contains(t, out, "X-Request-Id: abc")
	assert.Contains(t, out, `"id": 1`)
}

func TestConsole_FormatResponseFiltered(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithFilter("id"))

	require.NoError(t, f.FormatResponse(exchange(404, `{"id":7}`)))
	assert.Contains(t, buf.String(), "404 Not Found client-error")
	assert.True(t, strings.HasSuffix(buf.String(), "\n7\n"))
	assert.NotContains(t, buf.String(), "X-Request-Id")
}

func TestConsole_FormatNetworkError(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	e := &Exchange{Snapshot: dispatch.Snapshot{RequestID: "r", NetworkError: true, Error: "dial tcp: refused"}}

	require.NoError(t, NewConsoleFormatter(WithWriter(&buf)).FormatResponse(e))
	assert.Contains(t, buf.String(), "Couldn't connect to server")
	assert.NotContains(t, buf.String(), "dial tcp")
}

func TestConsole_FormatRun(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	require.NoError(t, NewConsoleFormatter(WithWriter(&buf)).FormatRun(sampleSummary()))

	out := buf.String()
	assert.Contains(t, out, "Running: sample")
	assert.Contains(t, out, "✓ GET users/list 200 (12ms)")
	assert.Contains(t, out, "✗ GET users/get 404")
	assert.Contains(t, out, "x down (Couldn't connect to server)")
	assert.Contains(t, out, "! broken")
	assert.Contains(t, out, "1 succeeded, 1 http errors, 1 network errors, 1 invalid, 4 total")
	assert.Contains(t, out, "max 12.0ms")
}

func TestJSON_FormatResponse(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))
	require.NoError(t, f.FormatResponse(exchange(201, `{"id":1}`)))

	var got JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 201, got.Status)
	assert.Equal(t, "success", got.Class)
	assert.JSONEq(t, `{"id":1}`, string(got.Body))
	assert.Equal(t, int64(42), got.ElapsedMs)
}

func TestJSON_FormatResponseText(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))
	require.NoError(t, f.FormatResponse(exchange(500, `oops`)))

	var got JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "oops", got.BodyText)
	assert.Equal(t, "server-error", got.Class)
}

func TestJSON_FormatRun(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))
	require.NoError(t, f.FormatRun(sampleSummary()))
	assert.Zero(t, buf.Len())
	require.NoError(t, f.Flush(time.Second))

	var got JSONRun
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 4, got.Summary.Total)
	require.Len(t, got.Requests, 4)
	assert.Equal(t, "invalid", got.Requests[3].Outcome)
	assert.True(t, got.Requests[1].Failed)
	assert.Equal(t, 12.0, got.Latency.Max)
}

func TestJUnit_FormatRun(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))
	require.NoError(t, f.FormatRun(sampleSummary()))
	require.NoError(t, f.Flush(time.Second))

	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suites))
	assert.Equal(t, 4, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 2, suites.Errors)
	require.Len(t, suites.TestSuites, 1)
	cases := suites.TestSuites[0].TestCases
	require.Len(t, cases, 4)
	assert.Nil(t, cases[0].Failure)
	assert.NotNil(t, cases[1].Failure)
	assert.Equal(t, "NetworkError", cases[2].Error.Type)
	assert.Equal(t, "connection refused", cases[2].Error.Message)
	assert.Contains(t, cases[2].Error.Content, "GET http://down")
	assert.Equal(t, "ValidationError", cases[3].Error.Type)
}

func TestJUnit_NetworkErrorWithoutCause(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))
	summary := sampleSummary()
	summary.Results[2].Err = nil
	require.NoError(t, f.FormatRun(summary))
	require.NoError(t, f.Flush(time.Second))

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suites))
	got := suites.TestSuites[0].TestCases[2].Error
	require.NotNil(t, got)
	assert.Equal(t, viewer.NetworkErrorMessage, got.Message)
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", FormatConsole, FormatJSON, FormatJUnit} {
		f, err := New(format, Options{Writer: &bytes.Buffer{}})
		require.NoError(t, err)
		assert.NotNil(t, f)
	}
	_, err := New("tap", Options{})
	assert.Error(t, err)
}

func TestPrintTree(t *testing.T) {
	noColor(t)
	f := model.NewFolder("users")
	f.ID = "f"
	r := model.NewRequest("list")
	r.ID = "r"
	r.ParentID = "f"
	p := model.NewRequest("create")
	p.ID = "p"
	p.Method = model.MethodPost

	var buf bytes.Buffer
	require.NoError(t, PrintTree(&buf, collection.NewTree([]model.Request{f, r, p}), true))
	assert.Equal(t, "users/ f\n  GET    list r\nPOST   create p\n", buf.String())

	buf.Reset()
	require.NoError(t, PrintTree(&buf, collection.NewTree(nil), false))
	assert.Equal(t, "(empty)\n", buf.String())
}
