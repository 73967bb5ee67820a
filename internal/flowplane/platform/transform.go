package platform

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/flowplane/flowplane/internal/flowplane/model"
)

// IsDerivedClusterName reports whether name follows the Platform-derived
// Cluster suffix convention (§9 cross-layer name coupling).
func IsDerivedClusterName(name string) bool {
	return strings.HasSuffix(name, "-cluster")
}

// IsDerivedRouteConfigName reports whether name follows the
// Platform-derived RouteConfiguration suffix convention.
func IsDerivedRouteConfigName(name string) bool {
	return strings.HasSuffix(name, "-routes")
}

// ClusterName returns the derived Cluster name for a Platform entity id.
func ClusterName(id string) string { return id + "-cluster" }

// RouteConfigName returns the derived RouteConfiguration name for a
// Platform entity id.
func RouteConfigName(id string) string { return id + "-routes" }

// ListenerName returns the conceptual derived Listener name for a Platform
// entity id.
func ListenerName(id string) string { return id + "-listener" }

var loadBalancingToModel = map[string]model.LBPolicy{
	"ROUND_ROBIN":   model.LBRoundRobin,
	"LEAST_REQUEST": model.LBLeastRequest,
	"RANDOM":        model.LBRandom,
	"RING_HASH":     model.LBRingHash,
	"MAGLEV":        model.LBMaglev,
}

func lbPolicyFromString(s string) model.LBPolicy {
	if p, ok := loadBalancingToModel[strings.ToUpper(s)]; ok {
		return p
	}
	return model.LBRoundRobin
}

func toEndpoints(eps []UpstreamEndpoint) []model.Endpoint {
	out := make([]model.Endpoint, 0, len(eps))
	for _, e := range eps {
		out = append(out, model.Endpoint{Host: e.Host, Port: e.Port})
	}
	return out
}

// ApiDefinitionToCluster implements §4.D's apiDefinition → Cluster mapping.
// Circuit-breaker, outlier-detection, and health-check fields are left
// empty here; the richer ServiceDefinitionToCluster path populates them.
func ApiDefinitionToCluster(id string, a *ApiDefinition) *model.Cluster {
	c := &model.Cluster{
		Name:         ClusterName(id),
		ServiceName:  a.Upstream.Service,
		Endpoints:    toEndpoints(a.Upstream.Endpoints),
		UseTLS:       a.Upstream.TLS,
		LBPolicy:     lbPolicyFromString(a.Upstream.LoadBalancing),
	}

	if a.Policies != nil && a.Policies.Timeout != nil && a.Policies.Timeout.Request != nil {
		c.ConnectTimeoutSeconds = a.Policies.Timeout.Request
	}

	return c
}

// ApiDefinitionToRouteConfiguration implements §4.D's apiDefinition →
// RouteConfiguration mapping. Per-route policies override the
// ApiDefinition's global policies element-by-element (§9).
func ApiDefinitionToRouteConfiguration(id string, a *ApiDefinition) *model.RouteConfiguration {
	vh := model.VirtualHost{
		Name:    a.Name,
		Domains: []string{"*"},
	}

	for _, r := range a.Routes {
		effective := r.Policies.merge(a.Policies)

		action := model.RouteAction{
			Type:    model.RouteActionForward,
			Cluster: a.Upstream.Service,
		}
		if effective != nil && effective.Timeout != nil && effective.Timeout.Request != nil {
			action.TimeoutSeconds = effective.Timeout.Request
		}

		rule := model.RouteRule{
			Match: model.RouteMatch{
				Path: model.PathMatch{
					Type:  model.PathMatchPrefix,
					Value: joinPath(a.BasePath, r.Path),
				},
			},
			Action: action,
		}

		if filters := PoliciesToFilters(effective); len(filters) > 0 {
			rule.TypedPerFilterConfig = filters
		}

		vh.Routes = append(vh.Routes, rule)
	}

	return &model.RouteConfiguration{
		Name:         RouteConfigName(id),
		VirtualHosts: []model.VirtualHost{vh},
	}
}

func joinPath(basePath, routePath string) string {
	base := strings.TrimSuffix(basePath, "/")
	route := routePath
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	joined := base + route
	if joined == "" {
		return "/"
	}
	return joined
}

// ServiceDefinitionToCluster implements §4.D's serviceDefinition → Cluster
// mapping, the richer path that populates circuit-breaker,
// outlier-detection, and health-check fields.
func ServiceDefinitionToCluster(name string, s *ServiceDefinition) *model.Cluster {
	c := &model.Cluster{
		Name:      name,
		Endpoints: toEndpoints(s.Endpoints),
		LBPolicy:  lbPolicyFromString(s.LoadBalancing),
	}

	if s.HealthCheck != nil {
		hc := s.HealthCheck
		healthyThreshold := hc.HealthyThreshold
		if healthyThreshold == 0 {
			healthyThreshold = 2
		}
		unhealthyThreshold := hc.UnhealthyThreshold
		if unhealthyThreshold == 0 {
			unhealthyThreshold = 2
		}
		c.HealthChecks = []model.HealthCheck{{
			Kind:               model.HealthCheckHTTP,
			IntervalSeconds:    hc.IntervalSeconds,
			TimeoutSeconds:     hc.TimeoutSeconds,
			HealthyThreshold:   healthyThreshold,
			UnhealthyThreshold: unhealthyThreshold,
			Path:               hc.Path,
		}}
	}

	if s.CircuitBreaker != nil {
		cb := s.CircuitBreaker
		c.CircuitBreakers = &model.CircuitBreakers{
			MaxConnections:     cb.MaxConnections,
			MaxPendingRequests: cb.MaxPendingRequests,
			MaxRequests:        cb.MaxRequests,
			MaxRetries:         cb.MaxRetries,
		}
	}

	if s.OutlierDetection != nil {
		od := s.OutlierDetection
		c.OutlierDetection = &model.OutlierDetection{
			Consecutive5xx:          od.Consecutive5xx,
			IntervalSeconds:         msToSeconds(od.IntervalMs),
			BaseEjectionTimeSeconds: msToSeconds(od.BaseEjectionTimeMs),
			MaxEjectionPercent:      od.MaxEjectionPercent,
		}
	}

	return c
}

// msToSeconds floor-divides a millisecond count by 1000, per §4.D.
func msToSeconds(ms *uint32) *uint32 {
	if ms == nil {
		return nil
	}
	seconds := *ms / 1000
	return &seconds
}

// ClusterToServiceResponse implements §4.D's inverse Cluster → Service
// mapping used for Platform listings. Health-check threshold defaults are
// lossy: a cluster whose HealthChecks entry omits healthy/unhealthy
// thresholds reconstructs them as 2/2, the same default
// ServiceDefinitionToCluster applies on the way in (§9 Open Question).
func ClusterToServiceResponse(c *model.Cluster) *ServiceResponse {
	resp := &ServiceResponse{
		Name:          c.Name,
		LoadBalancing: string(c.LBPolicy),
	}
	if resp.LoadBalancing == "" {
		resp.LoadBalancing = "ROUND_ROBIN"
	}
	if _, ok := loadBalancingToModel[resp.LoadBalancing]; !ok {
		resp.LoadBalancing = "ROUND_ROBIN"
	}

	for _, ep := range c.Endpoints {
		resp.Endpoints = append(resp.Endpoints, UpstreamEndpoint{
			Host:   ep.Host,
			Port:   ep.Port,
			Weight: 100,
		})
	}

	if len(c.HealthChecks) > 0 {
		hc := c.HealthChecks[0]
		resp.HealthCheck = &ServiceHealthCheck{
			Path:               hc.Path,
			IntervalSeconds:    hc.IntervalSeconds,
			TimeoutSeconds:     hc.TimeoutSeconds,
			HealthyThreshold:   2,
			UnhealthyThreshold: 2,
		}
		if hc.HealthyThreshold != 0 {
			resp.HealthCheck.HealthyThreshold = hc.HealthyThreshold
		}
		if hc.UnhealthyThreshold != 0 {
			resp.HealthCheck.UnhealthyThreshold = hc.UnhealthyThreshold
		}
	}

	if c.CircuitBreakers != nil {
		resp.CircuitBreaker = &ServiceCircuitBreaker{
			MaxConnections:     c.CircuitBreakers.MaxConnections,
			MaxPendingRequests: c.CircuitBreakers.MaxPendingRequests,
			MaxRequests:        c.CircuitBreakers.MaxRequests,
			MaxRetries:         c.CircuitBreakers.MaxRetries,
		}
	}

	if c.OutlierDetection != nil {
		od := c.OutlierDetection
		resp.OutlierDetection = &ServiceOutlierDetection{
			Consecutive5xx:     od.Consecutive5xx,
			IntervalMs:         secondsToMs(od.IntervalSeconds),
			BaseEjectionTimeMs: secondsToMs(od.BaseEjectionTimeSeconds),
			MaxEjectionPercent: od.MaxEjectionPercent,
		}
	}

	return resp
}

func secondsToMs(seconds *uint32) *uint32 {
	if seconds == nil {
		return nil
	}
	ms := *seconds * 1000
	return &ms
}

// PoliciesToFilters lowers a merged ApiPolicies into the scoped
// per-filter-config map consumed by route/virtual-host wire encoding.
// Unknown policy fields are ignored; unknown filter names are never
// emitted.
func PoliciesToFilters(p *ApiPolicies) map[string]model.FilterConfig {
	if p == nil {
		return nil
	}

	out := map[string]model.FilterConfig{}

	if p.RateLimit != nil {
		out["envoy.filters.http.local_ratelimit"] = model.FilterConfig{
			"max_tokens":       p.RateLimit.Requests,
			"tokens_per_fill":  p.RateLimit.Requests,
			"fill_interval_ms": intervalToMs(p.RateLimit.Interval),
		}
	}

	if p.Cors != nil {
		cfg := model.FilterConfig{
			"allow_origin":      p.Cors.Origins,
			"allow_methods":     p.Cors.Methods,
			"allow_headers":     p.Cors.Headers,
			"allow_credentials": p.Cors.AllowCredentials,
		}
		if p.Cors.MaxAge != nil {
			cfg["max_age"] = *p.Cors.MaxAge
		}
		out["envoy.filters.http.cors"] = cfg
	}

	if p.Authentication != nil && p.Authentication.Type == "jwt" {
		cfg := model.FilterConfig{
			"required": p.Authentication.Required,
		}
		for k, v := range p.Authentication.Config {
			cfg[k] = v
		}
		out["envoy.filters.http.jwt_authn"] = cfg
	}

	return out
}

// intervalToMs parses a Go-duration-shaped interval string ("1m", "30s")
// into milliseconds, defaulting to one minute if unparseable.
func intervalToMs(interval string) int {
	interval = strings.TrimSpace(interval)
	if interval == "" {
		return 60000
	}
	unit := interval[len(interval)-1:]
	numPart := interval[:len(interval)-1]
	n, err := strconv.Atoi(numPart)
	if err != nil {
		return 60000
	}
	switch unit {
	case "s":
		return n * 1000
	case "m":
		return n * 60000
	case "h":
		return n * 3600000
	default:
		return 60000
	}
}

// ParseUpstreamURL derives an UpstreamConfig from a server URL per §4.F.4.
// On parse failure it falls back to a synthesized backend.example.com:80.
func ParseUpstreamURL(rawURL, name string) UpstreamConfig {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return UpstreamConfig{
			Service:       name + "-backend",
			Endpoints:     []UpstreamEndpoint{{Host: "backend.example.com", Port: 80, Weight: 100}},
			LoadBalancing: "ROUND_ROBIN",
		}
	}

	host := u.Hostname()
	port := uint32(80)
	if u.Scheme == "https" {
		port = 443
	}
	if p := u.Port(); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			port = uint32(parsed)
		}
	}

	return UpstreamConfig{
		Service:       name + "-backend",
		Endpoints:     []UpstreamEndpoint{{Host: host, Port: port, Weight: 100}},
		TLS:           u.Scheme == "https",
		LoadBalancing: "ROUND_ROBIN",
	}
}

// BasePathFromURL returns the path portion of a server URL, falling back
// to "/" when absent or unparseable.
func BasePathFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
