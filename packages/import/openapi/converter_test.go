package openapi

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/mocha/packages/core/env"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/workspace"
)

const petstore = `openapi: 3.0.3
info:
  title: Petstore
  version: 1.0.0
servers:
  - url: https://{region}.pets.example.com/v1/
    description: Production
    variables:
      region:
        default: eu
  - url: http://localhost:8080
tags:
  - name: pets
  - name: owners
security:
  - bearerAuth: []
components:
  securitySchemes:
    bearerAuth:
      type: http
      scheme: bearer
  schemas:
    Pet:
      type: object
      properties:
        id:
          type: string
          format: uuid
        name:
          type: string
          example: Rex
        age:
          type: integer
          minimum: 1
        tags:
          type: array
          items:
            type: string
paths:
  /pets:
    get:
      operationId: listPets
      summary: List pets
      tags: [pets]
      parameters:
        - name: limit
          in: query
          schema:
            type: integer
        - name: X-Request-Id
          in: header
          example: abc
          schema:
            type: string
      responses:
        "200":
          description: ok
    post:
      operationId: createPet
      tags: [pets]
      requestBody:
        content:
          application/json:
            schema:
              $ref: "#/components/schemas/Pet"
      responses:
        "201":
          description: created
  /pets/{petId}:
    parameters:
      - name: petId
        in: path
        required: true
        schema:
          type: string
    delete:
      summary: Delete pet
      tags: [pets]
      responses:
        "204":
          description: deleted
    head:
      tags: [pets]
      responses:
        "200":
          description: ok
  /owners:
    get:
      summary: List owners
      tags: [owners]
      responses:
        "200":
          description: ok
  /health:
    get:
      summary: Health
      security: []
      responses:
        "200":
          description: ok
`

func convert(t *testing.T, opts ...Option) *workspace.Document {
	t.Helper()
	doc, err := NewConverter(opts...).ConvertData(context.Background(), []byte(petstore))
	require.NoError(t, err)
	return doc
}

func TestConvert_TagsBecomeFolders(t *testing.T) {
	doc := convert(t)

	assert.Equal(t, "Petstore", doc.Name)
	require.Len(t, doc.Items, 3)

	pets := doc.Items[0]
	assert.True(t, pets.IsFolder())
	assert.Equal(t, "pets", pets.Name)
	require.Len(t, pets.Items, 3, "HEAD is not importable")
	assert.Equal(t, "List pets", pets.Items[0].Name)
	assert.Equal(t, "createPet", pets.Items[1].Name)
	assert.Equal(t, "Delete pet", pets.Items[2].Name)

	assert.Equal(t, "owners", doc.Items[1].Name)
	assert.Equal(t, "Health", doc.Items[2].Name)
	assert.False(t, doc.Items[2].IsFolder())
}

func TestConvert_RequestShape(t *testing.T) {
	doc := convert(t)
	pets := doc.Items[0]

	list := pets.Items[0].Request()
	assert.Equal(t, model.MethodGet, list.Method)
	assert.Equal(t, "{{baseUrl}}/pets", list.URL)
	assert.Equal(t, []model.Row{{Name: "limit", Value: "1"}}, list.Params)
	assert.Equal(t, []model.Row{{Name: "X-Request-Id", Value: "abc"}}, list.Headers)
	assert.Equal(t, model.AuthBearer, list.AuthType)
	assert.Equal(t, "{{token}}", list.Auth.Token)

	create := pets.Items[1].Request()
	assert.Equal(t, model.MethodPost, create.Method)
	assert.Equal(t, model.BodyJSON, create.BodyType)
	assert.JSONEq(t, `{"id":"{{uuid()}}","name":"Rex","age":1,"tags":["example"]}`, create.Body)

	del := pets.Items[2].Request()
	assert.Equal(t, model.MethodDelete, del.Method)
	assert.Equal(t, "{{baseUrl}}/pets/{{petId}}", del.URL)

	health := doc.Items[2].Request()
	assert.Equal(t, model.AuthNone, health.AuthType, "empty operation security overrides the document")
}

func TestConvert_Environments(t *testing.T) {
	doc := convert(t)
	require.NotNil(t, doc.Environments)
	require.Len(t, doc.Environments.Environments, 2)

	envs := env.NewDocument(doc.Environments)
	prod, err := envs.Values("Production")
	require.NoError(t, err)
	assert.Equal(t, "https://eu.pets.example.com/v1", prod["baseUrl"])
	assert.Contains(t, prod, "token")

	second, err := envs.Values("Server 2")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", second["baseUrl"])
}

func TestConvert_BaseURLOverride(t *testing.T) {
	doc := convert(t, WithBaseURL("https://staging.example.com/"))
	require.Len(t, doc.Environments.Environments, 1)

	values, err := env.NewDocument(doc.Environments).Values("Default")
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com", values["baseUrl"])
}

func TestConvert_Filters(t *testing.T) {
	doc := convert(t, WithTags([]string{"owners"}))
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "owners", doc.Items[0].Name)

	doc = convert(t, WithExcludeTags([]string{"pets"}))
	folders, requests := workspace.Count(doc.Items)
	assert.Equal(t, 1, folders)
	assert.Equal(t, 2, requests)

	doc = convert(t, WithOperations([]string{"createPet"}))
	folders, requests = workspace.Count(doc.Items)
	assert.Equal(t, 1, folders)
	assert.Equal(t, 1, requests)
}

func TestConvertFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(petstore), 0o644))

	doc, err := NewConverter().ConvertFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Petstore", doc.Name)

	_, err = NewConverter().ConvertFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConvertData_Invalid(t *testing.T) {
	_, err := NewConverter().ConvertData(context.Background(), []byte("openapi: ["))
	assert.Error(t, err)
}

func TestExampleValue(t *testing.T) {
	typed := func(typ string) *openapi3.Types {
		return &openapi3.Types{typ}
	}
	tests := []struct {
		name   string
		schema *openapi3.Schema
		want   any
	}{
		{"enum", &openapi3.Schema{Type: typed("string"), Enum: []any{"a", "b"}}, "a"},
		{"date", &openapi3.Schema{Type: typed("string"), Format: "date"}, "2024-01-01"},
		{"bool", &openapi3.Schema{Type: typed("boolean")}, true},
		{"default", &openapi3.Schema{Type: typed("integer"), Default: 7}, 7},
		{"untyped", &openapi3.Schema{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exampleValue(tt.schema, 0))
		})
	}
}
