package curl

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/workspace"
)

// Converter turns curl command lines into composer requests.
type Converter struct {
	splitQuery bool
}

// Option configures a Converter.
type Option func(*Converter)

// WithSplitQuery moves the URL query string into the params rows.
func WithSplitQuery(split bool) Option {
	return func(c *Converter) {
		c.splitQuery = split
	}
}

// NewConverter creates a new curl converter.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{splitQuery: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParsedCurl represents a parsed curl command. Headers keep command order.
type ParsedCurl struct {
	Method          string
	URL             string
	Headers         []model.Row
	Body            string
	BasicAuth       string
	Insecure        bool
	FollowRedirects bool
	Name            string
}

// Header returns the last value given for name, compared case-insensitively.
func (p *ParsedCurl) Header(name string) string {
	value := ""
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			value = h.Value
		}
	}
	return value
}

func (p *ParsedCurl) setHeader(name, value string) {
	for i, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			p.Headers[i].Value = value
			return
		}
	}
	p.Headers = append(p.Headers, model.Row{Name: name, Value: value})
}

// ConvertCommand converts a single curl command to a request.
func (c *Converter) ConvertCommand(curlCmd string) (model.Request, error) {
	parsed, err := c.Parse(curlCmd)
	if err != nil {
		return model.Request{}, err
	}
	return c.ToRequest(parsed)
}

// ConvertFile converts a file holding one or more curl commands to a document
// named after the file.
func (c *Converter) ConvertFile(path string) (*workspace.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return c.ConvertReader(name, f)
}

// ConvertReader reads curl commands from r. Lines ending in a backslash
// continue on the next line and lines starting with # are ignored.
func (c *Converter) ConvertReader(name string, r io.Reader) (*workspace.Document, error) {
	var commands []string
	var current strings.Builder

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, "\\") {
			current.WriteString(strings.TrimSuffix(line, "\\"))
			current.WriteString(" ")
			continue
		}
		current.WriteString(line)
		commands = append(commands, current.String())
		current.Reset()
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read commands: %w", err)
	}
	if current.Len() > 0 {
		commands = append(commands, current.String())
	}
	if len(commands) == 0 {
		return nil, fmt.Errorf("no curl commands found")
	}

	doc := &workspace.Document{Version: workspace.CurrentVersion, Name: name}
	for i, cmd := range commands {
		req, err := c.ConvertCommand(cmd)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i+1, err)
		}
		doc.Items = append(doc.Items, workspace.ItemFromRequest(req))
	}
	return doc, nil
}

// ToRequest maps a parsed command onto the request form. An Authorization
// bearer header becomes bearer auth and -u becomes a Basic header row. Bodies
// are always JSON typed so a non-JSON payload surfaces as a body error when
// the request is built.
func (c *Converter) ToRequest(parsed *ParsedCurl) (model.Request, error) {
	method, ok := model.ParseMethod(parsed.Method)
	if !ok {
		return model.Request{}, fmt.Errorf("unsupported method %q", parsed.Method)
	}

	req := model.NewRequest(parsed.Name)
	req.Method = method
	req.URL = parsed.URL

	if c.splitQuery {
		if base, params, ok := splitQuery(parsed.URL); ok {
			req.URL = base
			req.Params = params
		}
	}

	for _, h := range parsed.Headers {
		if strings.EqualFold(h.Name, "Authorization") {
			if token, ok := bearerToken(h.Value); ok {
				req.AuthType = model.AuthBearer
				req.Auth.Token = token
				continue
			}
		}
		if strings.EqualFold(h.Name, "Content-Type") && parsed.Body != "" && isJSONContentType(h.Value) {
			continue
		}
		req.Headers = append(req.Headers, h)
	}

	if parsed.BasicAuth != "" && parsed.Header("Authorization") == "" {
		req.Headers = append(req.Headers, model.Row{
			Name:  "Authorization",
			Value: "Basic " + base64.StdEncoding.EncodeToString([]byte(parsed.BasicAuth)),
		})
	}

	if parsed.Body != "" {
		req.BodyType = model.BodyJSON
		req.Body = prettyJSON(parsed.Body)
	}

	return req, nil
}

// Parse parses a curl command string into a ParsedCurl struct.
func (c *Converter) Parse(curlCmd string) (*ParsedCurl, error) {
	parsed := &ParsedCurl{Method: "GET"}

	curlCmd = strings.TrimSpace(curlCmd)
	if strings.HasPrefix(curlCmd, "curl ") {
		curlCmd = strings.TrimPrefix(curlCmd, "curl ")
	} else if curlCmd == "curl" {
		return nil, fmt.Errorf("no URL specified")
	}

	tokens := tokenize(curlCmd)
	explicitMethod := false

	value := func(i int) (string, error) {
		if i+1 < len(tokens) {
			return tokens[i+1], nil
		}
		return "", fmt.Errorf("missing value for %s", tokens[i])
	}

	i := 0
	for i < len(tokens) {
		token := tokens[i]

		switch token {
		case "-X", "--request":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.Method = strings.ToUpper(v)
			explicitMethod = true
			i += 2

		case "-H", "--header":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			if name, val, ok := strings.Cut(v, ":"); ok {
				parsed.setHeader(strings.TrimSpace(name), strings.TrimSpace(val))
			}
			i += 2

		case "-d", "--data", "--data-raw", "--data-binary", "--json":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.Body = v
			if !explicitMethod {
				parsed.Method = "POST"
			}
			if token == "--json" {
				parsed.setHeader("Content-Type", "application/json")
			}
			i += 2

		case "-u", "--user":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.BasicAuth = v
			i += 2

		case "-k", "--insecure":
			parsed.Insecure = true
			i++

		case "-L", "--location":
			parsed.FollowRedirects = true
			i++

		case "-A", "--user-agent", "-e", "--referer", "-b", "--cookie":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.setHeader(flagHeaders[token], v)
			i += 2

		case "--url":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.URL = v
			i += 2

		default:
			if strings.HasPrefix(token, "-") {
				// Unknown flag: skip its value when it has one.
				if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") && !isURL(tokens[i+1]) {
					i += 2
				} else {
					i++
				}
				continue
			}
			if parsed.URL == "" && isURL(token) {
				parsed.URL = token
			}
			i++
		}
	}

	if parsed.URL == "" {
		return nil, fmt.Errorf("no URL found in curl command")
	}

	parsed.Name = generateName(parsed.URL, parsed.Method)
	return parsed, nil
}

var flagHeaders = map[string]string{
	"-A":           "User-Agent",
	"--user-agent": "User-Agent",
	"-e":           "Referer",
	"--referer":    "Referer",
	"-b":           "Cookie",
	"--cookie":     "Cookie",
}

func bearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func isJSONContentType(value string) bool {
	return strings.Contains(strings.ToLower(value), "json")
}

func prettyJSON(body string) string {
	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return body
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return body
	}
	return string(out)
}

// splitQuery separates the query string of raw into rows. Templated URLs are
// split on the first ? without parsing the host.
func splitQuery(raw string) (string, []model.Row, bool) {
	base, query, ok := strings.Cut(raw, "?")
	if !ok || query == "" {
		return raw, nil, false
	}
	var rows []model.Row
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		name, val, _ := strings.Cut(pair, "=")
		if n, err := url.QueryUnescape(name); err == nil {
			name = n
		}
		if v, err := url.QueryUnescape(val); err == nil {
			val = v
		}
		rows = append(rows, model.Row{Name: name, Value: val})
	}
	return base, rows, true
}

// tokenize splits a curl command into tokens, respecting quotes.
func tokenize(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingleQuote := false
	inDoubleQuote := false
	escaped := false

	for _, r := range cmd {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		switch r {
		case '\\':
			if inSingleQuote {
				current.WriteRune(r)
			} else {
				escaped = true
			}
		case '\'':
			if !inDoubleQuote {
				inSingleQuote = !inSingleQuote
			} else {
				current.WriteRune(r)
			}
		case '"':
			if !inSingleQuote {
				inDoubleQuote = !inDoubleQuote
			} else {
				current.WriteRune(r)
			}
		case ' ', '\t', '\n':
			if inSingleQuote || inDoubleQuote {
				current.WriteRune(r)
			} else if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "{{")
}

var pathPattern = regexp.MustCompile(`^(?:https?://[^/?#]+|\{\{[^}]+\}\})(/[^?#]*)?`)

// generateName names a request after its method and path, e.g. "GET /users".
func generateName(rawURL, method string) string {
	path := "/"
	if m := pathPattern.FindStringSubmatch(rawURL); len(m) > 1 && m[1] != "" {
		path = m[1]
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return strings.ToUpper(method) + " " + path
}
