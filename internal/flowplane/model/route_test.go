package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func forwardRule(cluster string) RouteRule {
	return RouteRule{
		Match:  RouteMatch{Path: PathMatch{Type: PathMatchPrefix, Value: "/"}},
		Action: RouteAction{Type: RouteActionForward, Cluster: cluster},
	}
}

func TestRouteConfigurationValidate_Valid(t *testing.T) {
	rc := RouteConfiguration{
		Name: "default-gateway",
		VirtualHosts: []VirtualHost{{
			Name:    "default",
			Domains: []string{"*"},
			Routes:  []RouteRule{forwardRule("payments-cluster")},
		}},
	}
	assert.Empty(t, rc.Validate())
}

func TestRouteConfigurationValidate_EmptyVirtualHosts(t *testing.T) {
	rc := RouteConfiguration{Name: "r"}
	errs := rc.Validate()
	assert.NotEmpty(t, errs)
}

func TestRouteConfigurationValidate_TemplateRequiresForward(t *testing.T) {
	rc := RouteConfiguration{
		Name: "r",
		VirtualHosts: []VirtualHost{{
			Name:    "vh",
			Domains: []string{"*"},
			Routes: []RouteRule{{
				Match:  RouteMatch{Path: PathMatch{Type: PathMatchTemplate, Template: "/v1/{id}"}},
				Action: RouteAction{Type: RouteActionRedirect},
			}},
		}},
	}
	errs := rc.Validate()
	assert.NotEmpty(t, errs)
}

func TestRouteConfigurationValidate_WeightedRequiresClusters(t *testing.T) {
	rc := RouteConfiguration{
		Name: "r",
		VirtualHosts: []VirtualHost{{
			Name:    "vh",
			Domains: []string{"*"},
			Routes: []RouteRule{{
				Match:  RouteMatch{Path: PathMatch{Type: PathMatchPrefix, Value: "/"}},
				Action: RouteAction{Type: RouteActionWeighted},
			}},
		}},
	}
	errs := rc.Validate()
	assert.NotEmpty(t, errs)
}

func TestPathPrefixSummary(t *testing.T) {
	tests := []struct {
		name string
		rc   RouteConfiguration
		want string
	}{
		{
			name: "prefix",
			rc: RouteConfiguration{VirtualHosts: []VirtualHost{{Routes: []RouteRule{
				{Match: RouteMatch{Path: PathMatch{Type: PathMatchPrefix, Value: "/v1"}}},
			}}}},
			want: "/v1",
		},
		{
			name: "regex",
			rc: RouteConfiguration{VirtualHosts: []VirtualHost{{Routes: []RouteRule{
				{Match: RouteMatch{Path: PathMatch{Type: PathMatchRegex, Value: "^/v[0-9]+$"}}},
			}}}},
			want: "regex:^/v[0-9]+$",
		},
		{
			name: "template",
			rc: RouteConfiguration{VirtualHosts: []VirtualHost{{Routes: []RouteRule{
				{Match: RouteMatch{Path: PathMatch{Type: PathMatchTemplate, Template: "/v1/{id}"}}},
			}}}},
			want: "template:/v1/{id}",
		},
		{
			name: "no routes",
			rc:   RouteConfiguration{},
			want: "*",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rc.PathPrefixSummary())
		})
	}
}

func TestClusterTargetsSummary(t *testing.T) {
	tests := []struct {
		name string
		rc   RouteConfiguration
		want string
	}{
		{
			name: "forward",
			rc: RouteConfiguration{VirtualHosts: []VirtualHost{{Routes: []RouteRule{
				forwardRule("payments-cluster"),
			}}}},
			want: "payments-cluster",
		},
		{
			name: "weighted",
			rc: RouteConfiguration{VirtualHosts: []VirtualHost{{Routes: []RouteRule{
				{Action: RouteAction{Type: RouteActionWeighted, Clusters: []WeightedCluster{{Name: "a", Weight: 1}}}},
			}}}},
			want: "a",
		},
		{
			name: "redirect",
			rc: RouteConfiguration{VirtualHosts: []VirtualHost{{Routes: []RouteRule{
				{Action: RouteAction{Type: RouteActionRedirect}},
			}}}},
			want: "__redirect__",
		},
		{
			name: "no routes",
			rc:   RouteConfiguration{},
			want: "unknown",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rc.ClusterTargetsSummary())
		})
	}
}
