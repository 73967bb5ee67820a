package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowplane/flowplane/internal/flowplane/model"
)

func sampleApiDefinition() *ApiDefinition {
	return &ApiDefinition{
		Name:     "payments-api",
		Version:  "v1",
		BasePath: "/payments",
		Upstream: UpstreamConfig{
			Service:       "payments-backend",
			Endpoints:     []UpstreamEndpoint{{Host: "10.0.0.1", Port: 8080}},
			LoadBalancing: "LEAST_REQUEST",
		},
		Routes: []ApiRoute{
			{Path: "/charge", Methods: []string{"POST"}},
		},
	}
}

func TestApiDefinitionValidate(t *testing.T) {
	a := sampleApiDefinition()
	assert.Empty(t, a.Validate())

	empty := &ApiDefinition{}
	errs := empty.Validate()
	assert.NotEmpty(t, errs)
}

func TestApiDefinitionToCluster(t *testing.T) {
	a := sampleApiDefinition()
	c := ApiDefinitionToCluster("api-1", a)

	assert.Equal(t, ClusterName("api-1"), c.Name)
	assert.Equal(t, "payments-backend", c.ServiceName)
	assert.Equal(t, model.LBLeastRequest, c.LBPolicy)
	require.Len(t, c.Endpoints, 1)
	assert.Equal(t, uint32(8080), c.Endpoints[0].Port)
}

func TestApiDefinitionToRouteConfiguration_JoinsBasePath(t *testing.T) {
	a := sampleApiDefinition()
	rc := ApiDefinitionToRouteConfiguration("api-1", a)

	assert.Equal(t, RouteConfigName("api-1"), rc.Name)
	require.Len(t, rc.VirtualHosts, 1)
	require.Len(t, rc.VirtualHosts[0].Routes, 1)
	assert.Equal(t, "/payments/charge", rc.VirtualHosts[0].Routes[0].Match.Path.Value)
}

func TestApiDefinitionToRouteConfiguration_RoutePolicyOverridesGlobal(t *testing.T) {
	a := sampleApiDefinition()
	globalTimeout := int64(30)
	routeTimeout := int64(5)
	a.Policies = &ApiPolicies{Timeout: &TimeoutPolicy{Request: &globalTimeout}}
	a.Routes[0].Policies = &ApiPolicies{Timeout: &TimeoutPolicy{Request: &routeTimeout}}

	rc := ApiDefinitionToRouteConfiguration("api-1", a)
	action := rc.VirtualHosts[0].Routes[0].Action
	require.NotNil(t, action.TimeoutSeconds)
	assert.Equal(t, routeTimeout, *action.TimeoutSeconds)
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/payments/charge", joinPath("/payments", "charge"))
	assert.Equal(t, "/payments/charge", joinPath("/payments/", "/charge"))
	assert.Equal(t, "/", joinPath("", ""))
}

func TestServiceDefinitionToCluster_HealthCheckDefaults(t *testing.T) {
	s := &ServiceDefinition{
		Name:          "payments-cluster",
		Endpoints:     []UpstreamEndpoint{{Host: "10.0.0.1", Port: 8080}},
		LoadBalancing: "ROUND_ROBIN",
		HealthCheck:   &ServiceHealthCheck{Path: "/healthz", IntervalSeconds: 5, TimeoutSeconds: 1},
	}

	c := ServiceDefinitionToCluster("payments-cluster", s)
	require.Len(t, c.HealthChecks, 1)
	assert.Equal(t, uint32(2), c.HealthChecks[0].HealthyThreshold)
	assert.Equal(t, uint32(2), c.HealthChecks[0].UnhealthyThreshold)
}

func TestServiceDefinitionToCluster_OutlierDetectionMsToSeconds(t *testing.T) {
	intervalMs := uint32(5000)
	s := &ServiceDefinition{
		Name:             "svc",
		Endpoints:        []UpstreamEndpoint{{Host: "10.0.0.1", Port: 8080}},
		LoadBalancing:    "ROUND_ROBIN",
		OutlierDetection: &ServiceOutlierDetection{IntervalMs: &intervalMs},
	}

	c := ServiceDefinitionToCluster("svc", s)
	require.NotNil(t, c.OutlierDetection.IntervalSeconds)
	assert.Equal(t, uint32(5), *c.OutlierDetection.IntervalSeconds)
}

func TestClusterToServiceResponse_RoundTripsHealthCheckThresholds(t *testing.T) {
	s := &ServiceDefinition{
		Name:          "svc",
		Endpoints:     []UpstreamEndpoint{{Host: "10.0.0.1", Port: 8080}},
		LoadBalancing: "ROUND_ROBIN",
		HealthCheck:   &ServiceHealthCheck{Path: "/healthz", IntervalSeconds: 5, TimeoutSeconds: 1},
	}
	c := ServiceDefinitionToCluster("svc", s)

	resp := ClusterToServiceResponse(c)
	require.NotNil(t, resp.HealthCheck)
	assert.Equal(t, uint32(2), resp.HealthCheck.HealthyThreshold)
	assert.Equal(t, uint32(2), resp.HealthCheck.UnhealthyThreshold)
	assert.Equal(t, "/healthz", resp.HealthCheck.Path)
}

func TestClusterToServiceResponse_DefaultsLoadBalancing(t *testing.T) {
	c := &model.Cluster{Name: "svc"}
	resp := ClusterToServiceResponse(c)
	assert.Equal(t, "ROUND_ROBIN", resp.LoadBalancing)
}

func TestPoliciesToFilters_RateLimitAndCors(t *testing.T) {
	maxAge := 600
	p := &ApiPolicies{
		RateLimit: &RateLimitPolicy{Requests: 100, Interval: "1m"},
		Cors:      &CorsPolicy{Origins: []string{"*"}, MaxAge: &maxAge},
	}

	filters := PoliciesToFilters(p)
	require.Contains(t, filters, "envoy.filters.http.local_ratelimit")
	require.Contains(t, filters, "envoy.filters.http.cors")
	assert.Equal(t, 60000, filters["envoy.filters.http.local_ratelimit"]["fill_interval_ms"])
	assert.Equal(t, 600, filters["envoy.filters.http.cors"]["max_age"])
}

func TestPoliciesToFilters_Nil(t *testing.T) {
	assert.Nil(t, PoliciesToFilters(nil))
}

func TestIntervalToMs(t *testing.T) {
	assert.Equal(t, 30000, intervalToMs("30s"))
	assert.Equal(t, 60000, intervalToMs("1m"))
	assert.Equal(t, 3600000, intervalToMs("1h"))
	assert.Equal(t, 60000, intervalToMs(""))
	assert.Equal(t, 60000, intervalToMs("bogus"))
}

func TestParseUpstreamURL(t *testing.T) {
	u := ParseUpstreamURL("https://api.example.com:9443/v1", "orders")
	assert.Equal(t, "orders-backend", u.Service)
	require.Len(t, u.Endpoints, 1)
	assert.Equal(t, "api.example.com", u.Endpoints[0].Host)
	assert.Equal(t, uint32(9443), u.Endpoints[0].Port)
	assert.True(t, u.TLS)
}

func TestParseUpstreamURL_Fallback(t *testing.T) {
	u := ParseUpstreamURL("://not a url", "orders")
	assert.Equal(t, "orders-backend", u.Service)
	assert.Equal(t, "backend.example.com", u.Endpoints[0].Host)
}

func TestBasePathFromURL(t *testing.T) {
	assert.Equal(t, "/v1", BasePathFromURL("https://api.example.com/v1"))
	assert.Equal(t, "/", BasePathFromURL("https://api.example.com"))
	assert.Equal(t, "/", BasePathFromURL("://bad"))
}

func TestIsDerivedNames(t *testing.T) {
	assert.True(t, IsDerivedClusterName("api-1-cluster"))
	assert.False(t, IsDerivedClusterName("payments-cluster-x"))
	assert.True(t, IsDerivedRouteConfigName("api-1-routes"))
	assert.False(t, IsDerivedRouteConfigName("default-gateway"))
}

func TestServiceDefinitionValidate(t *testing.T) {
	valid := &ServiceDefinition{Name: "svc", Endpoints: []UpstreamEndpoint{{Host: "h", Port: 1}}}
	assert.Empty(t, valid.Validate())

	invalid := &ServiceDefinition{}
	assert.NotEmpty(t, invalid.Validate())
}
