// Package platform implements the higher-level API-gateway/service
// abstractions that lower to canonical xDS-shaped resources, per §3/§4.D.
package platform

import (
	"strings"

	"github.com/flowplane/flowplane/internal/flowplane/model"
)

// UpstreamEndpoint is a weighted backend host/port pair.
type UpstreamEndpoint struct {
	Host   string `json:"host"`
	Port   uint32 `json:"port"`
	Weight uint32 `json:"weight,omitempty"`
}

// UpstreamConfig describes the backend an ApiDefinition forwards to.
type UpstreamConfig struct {
	Service       string             `json:"service"`
	Endpoints     []UpstreamEndpoint `json:"endpoints"`
	TLS           bool               `json:"tls,omitempty"`
	LoadBalancing string             `json:"loadBalancing,omitempty"`
}

// RateLimitPolicy bounds request rate for a route or ApiDefinition.
type RateLimitPolicy struct {
	Requests int    `json:"requests"`
	Interval string `json:"interval"`
	KeyBy    string `json:"keyBy,omitempty"`
}

// AuthenticationPolicy describes how a route authenticates callers.
type AuthenticationPolicy struct {
	Type     string                 `json:"type"`
	Required bool                   `json:"required"`
	Config   map[string]interface{} `json:"config,omitempty"`
}

// AuthorizationPolicy restricts a route to specific roles/permissions.
type AuthorizationPolicy struct {
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// CorsPolicy describes cross-origin access rules for a route.
type CorsPolicy struct {
	Origins          []string `json:"origins,omitempty"`
	Methods          []string `json:"methods,omitempty"`
	Headers          []string `json:"headers,omitempty"`
	AllowCredentials bool     `json:"allowCredentials,omitempty"`
	MaxAge           *int     `json:"maxAge,omitempty"`
}

// CircuitBreakerPolicy mirrors model.CircuitBreakers in Platform shape.
type CircuitBreakerPolicy struct {
	MaxConnections     *uint32 `json:"maxConnections,omitempty"`
	MaxPendingRequests *uint32 `json:"maxPendingRequests,omitempty"`
	MaxRequests        *uint32 `json:"maxRequests,omitempty"`
	MaxRetries         *uint32 `json:"maxRetries,omitempty"`
}

// RetryPolicy configures per-route retry behavior.
type RetryPolicy struct {
	Attempts       int    `json:"attempts"`
	Backoff        string `json:"backoff,omitempty"`
	InitialDelayMs *int   `json:"initialDelayMs,omitempty"`
}

// TimeoutPolicy configures per-route request/idle timeouts, in seconds.
type TimeoutPolicy struct {
	Request *int64 `json:"request,omitempty"`
	Idle    *int64 `json:"idle,omitempty"`
}

// ApiPolicies bundles every policy kind a route or ApiDefinition may carry.
type ApiPolicies struct {
	RateLimit      *RateLimitPolicy      `json:"rateLimit,omitempty"`
	Authentication *AuthenticationPolicy `json:"authentication,omitempty"`
	Authorization  *AuthorizationPolicy  `json:"authorization,omitempty"`
	Cors           *CorsPolicy           `json:"cors,omitempty"`
	CircuitBreaker *CircuitBreakerPolicy `json:"circuitBreaker,omitempty"`
	Retry          *RetryPolicy          `json:"retry,omitempty"`
	Timeout        *TimeoutPolicy        `json:"timeout,omitempty"`
}

// merge applies p's set fields over base, per element (§9's policy-merging
// rule: any field set on the route wins, unset fields inherit the parent).
func (p *ApiPolicies) merge(base *ApiPolicies) *ApiPolicies {
	if base == nil {
		return p
	}
	if p == nil {
		return base
	}
	out := *base
	if p.RateLimit != nil {
		out.RateLimit = p.RateLimit
	}
	if p.Authentication != nil {
		out.Authentication = p.Authentication
	}
	if p.Authorization != nil {
		out.Authorization = p.Authorization
	}
	if p.Cors != nil {
		out.Cors = p.Cors
	}
	if p.CircuitBreaker != nil {
		out.CircuitBreaker = p.CircuitBreaker
	}
	if p.Retry != nil {
		out.Retry = p.Retry
	}
	if p.Timeout != nil {
		out.Timeout = p.Timeout
	}
	return &out
}

// ApiRoute is one path/method group within an ApiDefinition, relative to
// its basePath.
type ApiRoute struct {
	Path        string       `json:"path"`
	Methods     []string     `json:"methods"`
	Description string       `json:"description,omitempty"`
	Policies    *ApiPolicies `json:"policies,omitempty"`
}

// ApiDefinition is the Platform-level description of an API gateway entry.
type ApiDefinition struct {
	ID       string                 `json:"id,omitempty"`
	Name     string                 `json:"name"`
	Version  string                 `json:"version"`
	BasePath string                 `json:"basePath"`
	Upstream UpstreamConfig         `json:"upstream"`
	Routes   []ApiRoute             `json:"routes"`
	Policies *ApiPolicies           `json:"policies,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Validate enforces §3's ApiDefinition invariants.
func (a *ApiDefinition) Validate() model.ValidationErrors {
	var errs model.ValidationErrors
	if a.Name == "" {
		errs = append(errs, fieldErr("name", "must not be empty"))
	}
	if a.BasePath == "" {
		errs = append(errs, fieldErr("basePath", "must not be empty"))
	}
	if a.Upstream.Service == "" {
		errs = append(errs, fieldErr("upstream.service", "must not be empty"))
	}
	if len(a.Upstream.Endpoints) == 0 {
		errs = append(errs, fieldErr("upstream.endpoints", "must not be empty"))
	}
	if len(a.Routes) == 0 {
		errs = append(errs, fieldErr("routes", "must not be empty"))
	}
	for i, r := range a.Routes {
		if strings.TrimSpace(r.Path) == "" {
			errs = append(errs, fieldErr("routes[].path", "must not be empty"))
		}
		if len(r.Methods) == 0 {
			errs = append(errs, fieldErr("routes[].methods", "must not be empty"))
		}
		_ = i
	}
	return errs
}

// ServiceHealthCheck is the Platform-level shape of an active health check.
type ServiceHealthCheck struct {
	Path               string `json:"path,omitempty"`
	IntervalSeconds    uint32 `json:"intervalSeconds"`
	TimeoutSeconds     uint32 `json:"timeoutSeconds"`
	HealthyThreshold   uint32 `json:"healthyThreshold,omitempty"`
	UnhealthyThreshold uint32 `json:"unhealthyThreshold,omitempty"`
}

// ServiceCircuitBreaker is the Platform-level shape of circuit breaker
// thresholds, lowered to the Native model's single "default" priority.
type ServiceCircuitBreaker struct {
	MaxConnections     *uint32 `json:"maxConnections,omitempty"`
	MaxPendingRequests *uint32 `json:"maxPendingRequests,omitempty"`
	MaxRequests        *uint32 `json:"maxRequests,omitempty"`
	MaxRetries         *uint32 `json:"maxRetries,omitempty"`
}

// ServiceOutlierDetection carries millisecond-denominated ejection
// thresholds, converted to seconds on lowering (§4.D).
type ServiceOutlierDetection struct {
	Consecutive5xx         *uint32 `json:"consecutive5xx,omitempty"`
	IntervalMs             *uint32 `json:"intervalMs,omitempty"`
	BaseEjectionTimeMs     *uint32 `json:"baseEjectionTimeMs,omitempty"`
	MaxEjectionPercent     *uint32 `json:"maxEjectionPercent,omitempty"`
}

// ServiceDefinition is the richer Platform-level service abstraction that,
// unlike ApiDefinition, populates circuit-breaker/outlier/health-check
// fields directly.
type ServiceDefinition struct {
	ID               string                   `json:"id,omitempty"`
	Name             string                   `json:"name"`
	Endpoints        []UpstreamEndpoint       `json:"endpoints"`
	LoadBalancing    string                   `json:"loadBalancing"`
	HealthCheck      *ServiceHealthCheck      `json:"healthCheck,omitempty"`
	CircuitBreaker   *ServiceCircuitBreaker   `json:"circuitBreaker,omitempty"`
	OutlierDetection *ServiceOutlierDetection `json:"outlierDetection,omitempty"`
	Metadata         map[string]interface{}   `json:"metadata,omitempty"`
}

// Validate enforces §3's ServiceDefinition invariants.
func (s *ServiceDefinition) Validate() model.ValidationErrors {
	var errs model.ValidationErrors
	if s.Name == "" {
		errs = append(errs, fieldErr("name", "must not be empty"))
	}
	if len(s.Endpoints) == 0 {
		errs = append(errs, fieldErr("endpoints", "must not be empty"))
	}
	return errs
}

// ServiceResponse is the Platform-surface projection of a Native Cluster,
// used by the inverse mapping in transform.go.
type ServiceResponse struct {
	Name             string                   `json:"name"`
	Endpoints        []UpstreamEndpoint       `json:"endpoints"`
	LoadBalancing    string                   `json:"loadBalancing"`
	HealthCheck      *ServiceHealthCheck      `json:"healthCheck,omitempty"`
	CircuitBreaker   *ServiceCircuitBreaker   `json:"circuitBreaker,omitempty"`
	OutlierDetection *ServiceOutlierDetection `json:"outlierDetection,omitempty"`
}

func fieldErr(field, msg string) *model.ValidationError {
	return &model.ValidationError{Field: field, Kind: "Validation", Msg: msg}
}

// Derived resources are recognized on the Native surface by name suffix
// alone (§9 "cross-layer name coupling... the only mechanism"), so no
// separate metadata stamp is carried on the canonical Cluster/
// RouteConfiguration types themselves. See IsDerivedClusterName /
// IsDerivedRouteConfigName in transform.go.

