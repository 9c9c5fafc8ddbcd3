package workspace

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "name": {"type": "string", "minLength": 1},
    "items": {"type": "array", "items": {"$ref": "#/definitions/item"}},
    "environments": {"$ref": "#/definitions/environments"}
  },
  "definitions": {
    "row": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string"},
        "value": {"type": ["string", "number", "boolean", "null"]}
      }
    },
    "item": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "type": {"enum": ["REQUEST", "FOLDER"]},
        "name": {"type": "string", "minLength": 1},
        "method": {"enum": ["GET", "POST", "PUT", "PATCH", "DELETE"]},
        "url": {"type": "string"},
        "params": {"type": "array", "items": {"$ref": "#/definitions/row"}},
        "headers": {"type": "array", "items": {"$ref": "#/definitions/row"}},
        "bodyType": {"enum": ["NONE", "JSON"]},
        "body": {"type": "string"},
        "authType": {"enum": ["NONE", "BEARER"]},
        "auth": {"type": "object", "properties": {"token": {"type": "string"}}},
        "items": {"type": "array", "items": {"$ref": "#/definitions/item"}}
      }
    },
    "environments": {
      "type": "object",
      "properties": {
        "variables": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id", "name"],
            "properties": {"id": {"type": "string"}, "name": {"type": "string"}}
          }
        },
        "environments": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id", "name"],
            "properties": {
              "id": {"type": "string"},
              "name": {"type": "string"},
              "variables": {"type": ["object", "null"], "additionalProperties": {"type": "string"}}
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// SchemaError lists every schema violation of a document.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "invalid document: " + strings.Join(e.Problems, "; ")
}

// Validate checks a decoded document (JSON-compatible values) against the document
// schema.
func Validate(doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &SchemaError{Problems: problems}
}
