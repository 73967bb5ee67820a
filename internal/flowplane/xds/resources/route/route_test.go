package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowplane/flowplane/internal/flowplane/model"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func i64Ptr(v int64) *int64   { return &v }
func u32Ptr(v uint32) *uint32 { return &v }

func TestToWireFromWire_RoundTripsFullRouteConfiguration(t *testing.T) {
	rc := &model.RouteConfiguration{
		Name: "public-routes",
		VirtualHosts: []model.VirtualHost{
			{
				Name:    "default",
				Domains: []string{"example.com", "*.example.com"},
				TypedPerFilterConfig: map[string]model.FilterConfig{
					"local_ratelimit": {
						"max_tokens":       uint32(10),
						"tokens_per_fill":  uint32(10),
						"fill_interval_ms": uint32(1000),
					},
				},
				Routes: []model.RouteRule{
					{
						Name: "health",
						Match: model.RouteMatch{
							Path: model.PathMatch{Type: model.PathMatchExact, Value: "/health"},
						},
						Action: model.RouteAction{
							Type:           model.RouteActionForward,
							Cluster:        "health-cluster",
							TimeoutSeconds: i64Ptr(30),
							PrefixRewrite:  strPtr("/internal/health"),
						},
					},
					{
						Name: "api",
						Match: model.RouteMatch{
							Path:    model.PathMatch{Type: model.PathMatchPrefix, Value: "/api"},
							Headers: []model.HeaderMatch{{Name: "x-env", Value: strPtr("prod")}},
							QueryParams: []model.QueryParamMatch{
								{Name: "debug", Present: boolPtr(true)},
							},
						},
						Action: model.RouteAction{
							Type:        model.RouteActionWeighted,
							TotalWeight: u32Ptr(100),
							Clusters: []model.WeightedCluster{
								{Name: "api-v1", Weight: 80},
								{
									Name:   "api-v2",
									Weight: 20,
									TypedPerFilterConfig: map[string]model.FilterConfig{
										"custom.filter": {"mode": "canary"},
									},
								},
							},
						},
					},
					{
						Name: "legacy",
						Match: model.RouteMatch{
							Path: model.PathMatch{Type: model.PathMatchRegex, Value: "^/legacy/.*$"},
						},
						Action: model.RouteAction{
							Type:         model.RouteActionRedirect,
							HostRedirect: strPtr("new.example.com"),
							PathRedirect: strPtr("/moved"),
							ResponseCode: u32Ptr(301),
						},
					},
					{
						Name: "orders",
						Match: model.RouteMatch{
							Path: model.PathMatch{Type: model.PathMatchTemplate, Template: "/orders/{id}"},
						},
						Action: model.RouteAction{
							Type:            model.RouteActionForward,
							Cluster:         "orders-cluster",
							TemplateRewrite: strPtr("/v2/orders/{id}"),
						},
					},
				},
			},
		},
	}

	wire, err := ToWire(rc)
	require.NoError(t, err)

	got := FromWire(wire)
	assert.Equal(t, rc, got)
}

func TestToWireFromWire_HeaderAndQueryRegexMatchersRoundTrip(t *testing.T) {
	rc := &model.RouteConfiguration{
		Name: "regex-matchers",
		VirtualHosts: []model.VirtualHost{
			{
				Name:    "default",
				Domains: []string{"*"},
				Routes: []model.RouteRule{
					{
						Match: model.RouteMatch{
							Path:    model.PathMatch{Type: model.PathMatchPrefix, Value: "/"},
							Headers: []model.HeaderMatch{{Name: "x-trace", Regex: strPtr("^[a-f0-9]+$")}},
							QueryParams: []model.QueryParamMatch{
								{Name: "version", Regex: strPtr("^v[0-9]+$")},
							},
						},
						Action: model.RouteAction{Type: model.RouteActionForward, Cluster: "default-cluster"},
					},
				},
			},
		},
	}

	wire, err := ToWire(rc)
	require.NoError(t, err)

	got := FromWire(wire)
	assert.Equal(t, rc, got)
}

func TestToWire_RedirectResponseCodeMapsRealHTTPStatus(t *testing.T) {
	for _, code := range []uint32{301, 302, 303, 307, 308} {
		rc := &model.RouteConfiguration{
			Name: "redirects",
			VirtualHosts: []model.VirtualHost{{
				Name:    "default",
				Domains: []string{"*"},
				Routes: []model.RouteRule{{
					Match: model.RouteMatch{Path: model.PathMatch{Type: model.PathMatchPrefix, Value: "/"}},
					Action: model.RouteAction{
						Type:         model.RouteActionRedirect,
						ResponseCode: u32Ptr(code),
					},
				}},
			}},
		}

		wire, err := ToWire(rc)
		require.NoError(t, err)

		got := FromWire(wire)
		require.NotNil(t, got.VirtualHosts[0].Routes[0].Action.ResponseCode)
		assert.Equal(t, code, *got.VirtualHosts[0].Routes[0].Action.ResponseCode)
	}
}

func TestToWireFromWire_GenericFilterConfigRoundTripsViaTypedStruct(t *testing.T) {
	rc := &model.RouteConfiguration{
		Name: "generic-filter",
		VirtualHosts: []model.VirtualHost{{
			Name:    "default",
			Domains: []string{"*"},
			Routes: []model.RouteRule{{
				Match:  model.RouteMatch{Path: model.PathMatch{Type: model.PathMatchPrefix, Value: "/"}},
				Action: model.RouteAction{Type: model.RouteActionForward, Cluster: "default-cluster"},
				TypedPerFilterConfig: map[string]model.FilterConfig{
					"envoy.filters.http.custom": {"mode": "strict", "label": "canary"},
				},
			}},
		}},
	}

	wire, err := ToWire(rc)
	require.NoError(t, err)

	got := FromWire(wire)
	assert.Equal(t, rc, got)
}
