package cluster

import (
	"testing"

	clusterv3 "github.com/envoyproxy/go-control-plane/envoy/config/cluster/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowplane/flowplane/internal/flowplane/model"
)

func TestToWireFromWire_RoundTripsFullyPopulatedCluster(t *testing.T) {
	connectTimeout := int64(15)
	maxConnections := uint32(100)
	maxRetries := uint32(3)
	consecutive5xx := uint32(5)
	intervalSeconds := uint32(10)
	baseEjectionSeconds := uint32(30)
	maxEjectionPercent := uint32(50)

	c := &model.Cluster{
		Name:                  "payments-cluster",
		ServiceName:           "payments",
		Endpoints:             []model.Endpoint{{Host: "10.0.0.1", Port: 8080}, {Host: "10.0.0.2", Port: 8081}},
		ConnectTimeoutSeconds: &connectTimeout,
		UseTLS:                true,
		TLSServerName:         "payments.internal",
		DNSLookupFamily:       model.DNSAuto,
		LBPolicy:              model.LBLeastRequest,
		CircuitBreakers: &model.CircuitBreakers{
			MaxConnections: &maxConnections,
			MaxRetries:     &maxRetries,
		},
		OutlierDetection: &model.OutlierDetection{
			Consecutive5xx:          &consecutive5xx,
			IntervalSeconds:         &intervalSeconds,
			BaseEjectionTimeSeconds: &baseEjectionSeconds,
			MaxEjectionPercent:      &maxEjectionPercent,
		},
		HealthChecks: []model.HealthCheck{{
			Kind:               model.HealthCheckHTTP,
			IntervalSeconds:    5,
			TimeoutSeconds:     1,
			HealthyThreshold:   2,
			UnhealthyThreshold: 3,
			Path:               "/healthz",
		}},
	}

	wire, err := ToWire(c)
	require.NoError(t, err)

	got := FromWire(wire)
	// ServiceName is Platform-layer bookkeeping, never carried on the xDS
	// wire (the wire only knows the Cluster's own name), so it isn't part
	// of the round trip.
	want := *c
	want.ServiceName = ""
	assert.Equal(t, &want, got)
}

func TestToWireFromWire_UnsetOptionalFieldsStayUnset(t *testing.T) {
	c := &model.Cluster{
		Name:      "minimal-cluster",
		Endpoints: []model.Endpoint{{Host: "10.0.0.1", Port: 8080}},
	}

	wire, err := ToWire(c)
	require.NoError(t, err)

	assert.Nil(t, wire.ConnectTimeout)
	assert.Equal(t, clusterv3.Cluster_ROUND_ROBIN, wire.GetLbPolicy())
	assert.Equal(t, clusterv3.Cluster_V4_ONLY, wire.GetDnsLookupFamily())

	got := FromWire(wire)
	assert.Equal(t, c, got)
	assert.Empty(t, got.LBPolicy)
	assert.Empty(t, got.DNSLookupFamily)
	assert.Nil(t, got.ConnectTimeoutSeconds)
}

func TestToWire_TCPHealthCheckRoundTrips(t *testing.T) {
	c := &model.Cluster{
		Name:      "tcp-cluster",
		Endpoints: []model.Endpoint{{Host: "10.0.0.1", Port: 8080}},
		HealthChecks: []model.HealthCheck{{
			Kind:               model.HealthCheckTCP,
			IntervalSeconds:    5,
			TimeoutSeconds:     1,
			HealthyThreshold:   2,
			UnhealthyThreshold: 2,
		}},
	}

	wire, err := ToWire(c)
	require.NoError(t, err)
	got := FromWire(wire)
	assert.Equal(t, c, got)
}
