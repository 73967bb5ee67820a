package openapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSpecJSON = `{
  "openapi": "3.0.0",
  "info": {"title": "Payments API", "version": "2.0.0"},
  "servers": [{"url": "https://backend.internal/payments"}],
  "paths": {
    "/charge": {
      "post": {
        "summary": "Charge a customer",
        "responses": {"200": {"description": "ok"}},
        "x-flowplane-ratelimit": {"requests": 100, "interval": "1m"},
        "x-flowplane-cors": {"origins": ["https://app.example.com"]},
        "x-flowplane-unknown-tag": {"anything": true}
      }
    }
  }
}`

const sampleSpecYAML = `
openapi: "3.0.0"
info:
  title: Payments API
  version: "2.0.0"
servers:
  - url: https://backend.internal/payments
paths:
  /charge:
    post:
      summary: Charge a customer
      responses:
        "200":
          description: ok
`

func TestImport_JSON_ExtractsRouteAndPolicies(t *testing.T) {
	result, err := Import(context.Background(), []byte(sampleSpecJSON), "application/json", ImportOptions{})
	require.NoError(t, err)

	def := result.Definition
	assert.Equal(t, "Payments API", def.Name)
	assert.Equal(t, "2.0.0", def.Version)
	assert.Equal(t, "/payments", def.BasePath)
	require.Len(t, def.Routes, 1)
	assert.Equal(t, "/charge", def.Routes[0].Path)
	assert.Equal(t, []string{"POST"}, def.Routes[0].Methods)

	require.NotNil(t, def.Routes[0].Policies)
	require.NotNil(t, def.Routes[0].Policies.RateLimit)
	assert.Equal(t, 100, def.Routes[0].Policies.RateLimit.Requests)
	require.NotNil(t, def.Routes[0].Policies.Cors)
	assert.Equal(t, []string{"https://app.example.com"}, def.Routes[0].Policies.Cors.Origins)
}

func TestImport_UnknownTagProducesWarningNotError(t *testing.T) {
	result, err := Import(context.Background(), []byte(sampleSpecJSON), "application/json", ImportOptions{})
	require.NoError(t, err)

	found := false
	for _, w := range result.Warnings {
		if w == "Unknown flowplane tag: x-flowplane-unknown-tag" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestImport_YAMLContentType(t *testing.T) {
	result, err := Import(context.Background(), []byte(sampleSpecYAML), "application/yaml", ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Payments API", result.Definition.Name)
	require.Len(t, result.Definition.Routes, 1)
}

func TestImport_OptionsOverrideDocumentValues(t *testing.T) {
	result, err := Import(context.Background(), []byte(sampleSpecJSON), "application/json", ImportOptions{
		Name:     "custom-name",
		Version:  "9.9.9",
		BasePath: "/custom",
	})
	require.NoError(t, err)
	assert.Equal(t, "custom-name", result.Definition.Name)
	assert.Equal(t, "9.9.9", result.Definition.Version)
	assert.Equal(t, "/custom", result.Definition.BasePath)
}

func TestImport_RejectsNonOpenAPI3Document(t *testing.T) {
	swagger2 := `{"swagger": "2.0", "info": {"title": "x", "version": "1"}, "paths": {}}`
	_, err := Import(context.Background(), []byte(swagger2), "application/json", ImportOptions{})
	assert.Error(t, err)
}

func TestImport_RejectsMalformedDocument(t *testing.T) {
	_, err := Import(context.Background(), []byte("not json or yaml {{{"), "application/json", ImportOptions{})
	assert.Error(t, err)
}
