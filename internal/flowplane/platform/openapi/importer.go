// Package openapi imports an OpenAPI 3.x document, plus flowplane's
// x-flowplane-* extensions, into a Platform ApiDefinition (spec §4.F).
package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/flowplane/flowplane/internal/flowplane/platform"
	"github.com/flowplane/flowplane/pkg/openapi"
)

var methodOrder = []string{"get", "post", "put", "delete", "patch", "options", "head"}

// ImportOptions carries the query-parameter overrides accepted by
// POST /platform/import/openapi.
type ImportOptions struct {
	Name     string
	Version  string
	BasePath string
}

// ImportResult bundles the derived ApiDefinition with the non-fatal
// warnings collected along the way (§4.F step 8).
type ImportResult struct {
	Definition *platform.ApiDefinition
	Warnings   []string
}

// Import parses body as JSON or YAML (per contentType) and lowers it into
// an ApiDefinition, never failing on unrecognized x-flowplane-* tags.
func Import(ctx context.Context, body []byte, contentType string, opts ImportOptions) (*ImportResult, error) {
	raw, err := toJSON(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	manager := openapi.NewOpenAPIManager()
	doc, err := manager.LoadFromData(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}

	if doc.OpenAPI == "" || !strings.HasPrefix(doc.OpenAPI, "3.") {
		return nil, fmt.Errorf("openapi field must be present and begin with \"3.\"")
	}

	name := opts.Name
	if name == "" {
		name = doc.Info.Title
	}

	version := opts.Version
	if version == "" {
		version = doc.Info.Version
	}
	if version == "" {
		version = "1.0.0"
	}

	serverURL := ""
	if len(doc.Servers) > 0 {
		serverURL = doc.Servers[0].URL
	}

	basePath := opts.BasePath
	if basePath == "" {
		basePath = platform.BasePathFromURL(serverURL)
	}

	upstream := platform.ParseUpstreamURL(serverURL, name)

	def := &platform.ApiDefinition{
		Name:     name,
		Version:  version,
		BasePath: basePath,
		Upstream: upstream,
	}

	var warnings []string

	if doc.Paths != nil {
		for path, item := range doc.Paths.Map() {
			if item == nil {
				continue
			}
			route, routeWarnings := extractRoute(path, item)
			warnings = append(warnings, routeWarnings...)
			if route != nil {
				def.Routes = append(def.Routes, *route)
			}
		}
	}

	if len(def.Routes) > 0 && def.Routes[0].Policies != nil {
		def.Policies = def.Routes[0].Policies
	}

	return &ImportResult{Definition: def, Warnings: warnings}, nil
}

func toJSON(body []byte, contentType string) ([]byte, error) {
	if strings.Contains(contentType, "yaml") {
		var doc interface{}
		if err := yaml.Unmarshal(body, &doc); err != nil {
			return nil, err
		}
		normalized := normalizeYAMLKeys(doc)
		return json.Marshal(normalized)
	}
	return body, nil
}

// normalizeYAMLKeys converts map[string]interface{} trees produced by
// gopkg.in/yaml.v3 (which yields map[string]interface{} for string-keyed
// maps) into a form encoding/json can marshal, recursing through slices.
func normalizeYAMLKeys(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = normalizeYAMLKeys(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = normalizeYAMLKeys(e)
		}
		return out
	default:
		return val
	}
}

func extractRoute(path string, item *openapi3.PathItem) (*platform.ApiRoute, []string) {
	operations := map[string]*openapi3.Operation{
		"get":     item.Get,
		"post":    item.Post,
		"put":     item.Put,
		"delete":  item.Delete,
		"patch":   item.Patch,
		"options": item.Options,
		"head":    item.Head,
	}

	var methods []string
	var description string
	var policies *platform.ApiPolicies
	var warnings []string

	for _, m := range methodOrder {
		op := operations[m]
		if op == nil {
			continue
		}
		methods = append(methods, strings.ToUpper(m))
		if description == "" {
			if op.Summary != "" {
				description = op.Summary
			} else if op.Description != "" {
				description = op.Description
			}
		}
		opPolicies, opWarnings := extractPolicies(op.Extensions)
		warnings = append(warnings, opWarnings...)
		if opPolicies != nil {
			policies = opPolicies
		}
	}

	if len(methods) == 0 {
		return nil, warnings
	}

	return &platform.ApiRoute{
		Path:        path,
		Methods:     methods,
		Description: description,
		Policies:    policies,
	}, warnings
}

// extractPolicies implements §4.F step 6: per-operation x-flowplane-*
// extraction. Unknown tags and malformed blocks degrade to warnings, never
// errors.
func extractPolicies(extensions map[string]interface{}) (*platform.ApiPolicies, []string) {
	if len(extensions) == 0 {
		return nil, nil
	}

	var policies platform.ApiPolicies
	var warnings []string
	var any bool

	for key, raw := range extensions {
		if !strings.HasPrefix(key, "x-flowplane-") {
			continue
		}

		switch key {
		case "x-flowplane-ratelimit":
			rl, err := decodeRateLimit(raw)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("Malformed x-flowplane-ratelimit: %v", err))
				continue
			}
			policies.RateLimit = rl
			any = true

		case "x-flowplane-jwt-auth":
			auth, err := decodeJWTAuth(raw)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("Malformed x-flowplane-jwt-auth: %v", err))
				continue
			}
			policies.Authentication = auth
			any = true

		case "x-flowplane-cors":
			cors := decodeCors(raw)
			policies.Cors = cors
			any = true

		default:
			warnings = append(warnings, fmt.Sprintf("Unknown flowplane tag: %s", key))
		}
	}

	if !any {
		return nil, warnings
	}
	return &policies, warnings
}

func decodeRateLimit(raw interface{}) (*platform.RateLimitPolicy, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an object")
	}

	requests, err := toInt(m["requests"])
	if err != nil {
		return nil, fmt.Errorf("requests: %w", err)
	}
	interval, ok := m["interval"].(string)
	if !ok || interval == "" {
		return nil, fmt.Errorf("interval must be a non-empty string")
	}

	rl := &platform.RateLimitPolicy{Requests: requests, Interval: interval}
	if keyBy, ok := m["keyBy"].(string); ok {
		rl.KeyBy = keyBy
	}
	return rl, nil
}

func decodeJWTAuth(raw interface{}) (*platform.AuthenticationPolicy, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an object")
	}

	required := true
	if v, ok := m["required"].(bool); ok {
		required = v
	}

	config := map[string]interface{}{}
	if issuer, ok := m["issuer"].(string); ok {
		config["issuer"] = issuer
	}
	if audience, ok := m["audience"].(string); ok {
		config["audience"] = audience
	}

	return &platform.AuthenticationPolicy{
		Type:     "jwt",
		Required: required,
		Config:   config,
	}, nil
}

func decodeCors(raw interface{}) *platform.CorsPolicy {
	cors := &platform.CorsPolicy{
		Origins: []string{"*"},
		Methods: []string{"GET", "POST"},
		Headers: []string{"Content-Type", "Authorization"},
	}

	m, ok := raw.(map[string]interface{})
	if !ok {
		return cors
	}
	if origins := toStringSlice(m["origins"]); origins != nil {
		cors.Origins = origins
	}
	if methods := toStringSlice(m["methods"]); methods != nil {
		cors.Methods = methods
	}
	if headers := toStringSlice(m["headers"]); headers != nil {
		cors.Headers = headers
	}
	if v, ok := m["allowCredentials"].(bool); ok {
		cors.AllowCredentials = v
	}
	if maxAge, err := toInt(m["maxAge"]); err == nil && m["maxAge"] != nil {
		cors.MaxAge = &maxAge
	}
	return cors
}

func toStringSlice(raw interface{}) []string {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toInt(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case json.Number:
		n, err := v.Int64()
		return int(n), err
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("expected a number")
	}
}
