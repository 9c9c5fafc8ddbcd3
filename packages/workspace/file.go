package workspace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

// Parse decodes and validates a YAML or JSON document.
func Parse(data []byte) (*Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = CurrentVersion
	}
	return &doc, nil
}

// ReadFile reads a document from path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Marshal encodes doc as JSON when asJSON is set and as YAML otherwise.
func Marshal(doc *Document, asJSON bool) ([]byte, error) {
	if asJSON {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes doc to path, as JSON for a .json file and YAML otherwise.
func WriteFile(path string, doc *Document) error {
	data, err := Marshal(doc, isJSONPath(path))
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// ParseRequest decodes a single request file.
func ParseRequest(data []byte) (model.Request, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return model.Request{}, fmt.Errorf("parse request: %w", err)
	}
	if err := Validate(map[string]any{"name": "request", "items": []any{raw}}); err != nil {
		return model.Request{}, err
	}

	var item Item
	if err := yaml.Unmarshal(data, &item); err != nil {
		return model.Request{}, fmt.Errorf("parse request: %w", err)
	}
	if item.IsFolder() {
		return model.Request{}, fmt.Errorf("request file describes a folder")
	}
	return item.Request(), nil
}

// ReadRequest reads a single request file, as used by send --file and --watch.
func ReadRequest(path string) (model.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Request{}, fmt.Errorf("failed to read file: %w", err)
	}
	req, err := ParseRequest(data)
	if err != nil {
		return model.Request{}, fmt.Errorf("%s: %w", path, err)
	}
	if req.ID == "" {
		req.ID = "file:" + filepath.Base(path)
	}
	return req, nil
}

// WriteRequest writes req as a request file.
func WriteRequest(path string, req model.Request) error {
	item := ItemFromRequest(req)
	var (
		data []byte
		err  error
	)
	if isJSONPath(path) {
		data, err = json.MarshalIndent(item, "", "  ")
	} else {
		data, err = yaml.Marshal(item)
	}
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
