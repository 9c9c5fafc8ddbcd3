package output

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// FilterBody extracts path (gjson syntax) from a JSON payload. An empty path returns
// the payload unchanged.
func FilterBody(payload []byte, path string) ([]byte, error) {
	if path == "" {
		return payload, nil
	}
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("cannot filter: response body is not JSON")
	}
	res := gjson.GetBytes(payload, path)
	if !res.Exists() {
		return nil, fmt.Errorf("path %q not found in response body", path)
	}
	if res.Type == gjson.String {
		return []byte(res.Str), nil
	}
	return []byte(res.Raw), nil
}

// PrettyBody indents a JSON payload and optionally colors it. Anything that is not
// JSON is returned as is.
func PrettyBody(payload []byte, colored bool) []byte {
	if len(payload) == 0 || !gjson.ValidBytes(payload) {
		return payload
	}
	out := pretty.PrettyOptions(payload, &pretty.Options{Width: 80, Indent: "  "})
	if colored {
		out = pretty.Color(out, nil)
	}
	return out
}
