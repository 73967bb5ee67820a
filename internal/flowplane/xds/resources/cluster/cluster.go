// Package cluster builds and reads back Envoy Cluster (CDS) resources from
// the canonical model.
package cluster

import (
	"time"

	clusterv3 "github.com/envoyproxy/go-control-plane/envoy/config/cluster/v3"
	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	tlsv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/transport_sockets/tls/v3"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/flowplane/flowplane/internal/flowplane/model"
	"github.com/flowplane/flowplane/internal/flowplane/xds/resources/endpoint"
)

// defaultConnectTimeout is Envoy's own implicit default when ConnectTimeout
// is left unset on the wire; ToWire relies on Envoy applying it rather than
// stamping it into the proto, so an unset model field round-trips as unset.
const defaultConnectTimeout = 5 * time.Second

var lbPolicyToWire = map[model.LBPolicy]clusterv3.Cluster_LbPolicy{
	model.LBRoundRobin:   clusterv3.Cluster_ROUND_ROBIN,
	model.LBLeastRequest: clusterv3.Cluster_LEAST_REQUEST,
	model.LBRandom:       clusterv3.Cluster_RANDOM,
	model.LBRingHash:     clusterv3.Cluster_RING_HASH,
	model.LBMaglev:       clusterv3.Cluster_MAGLEV,
}

var lbPolicyFromWire = map[clusterv3.Cluster_LbPolicy]model.LBPolicy{
	clusterv3.Cluster_ROUND_ROBIN:   model.LBRoundRobin,
	clusterv3.Cluster_LEAST_REQUEST: model.LBLeastRequest,
	clusterv3.Cluster_RANDOM:        model.LBRandom,
	clusterv3.Cluster_RING_HASH:     model.LBRingHash,
	clusterv3.Cluster_MAGLEV:        model.LBMaglev,
}

var dnsFamilyToWire = map[model.DNSLookupFamily]clusterv3.Cluster_DnsLookupFamily{
	model.DNSV4:   clusterv3.Cluster_V4_ONLY,
	model.DNSV6:   clusterv3.Cluster_V6_ONLY,
	model.DNSAuto: clusterv3.Cluster_AUTO,
}

var dnsFamilyFromWire = map[clusterv3.Cluster_DnsLookupFamily]model.DNSLookupFamily{
	clusterv3.Cluster_V4_ONLY: model.DNSV4,
	clusterv3.Cluster_V6_ONLY: model.DNSV6,
	clusterv3.Cluster_AUTO:    model.DNSAuto,
}

// ToWire renders a canonical Cluster into its xDS protobuf representation.
// Fields left unset on c (the empty LBPolicy/DNSLookupFamily, a nil
// ConnectTimeoutSeconds) are left unset on the wire too, rather than
// stamped with their implicit default, so FromWire can tell "unset" apart
// from "explicitly set to the default value".
func ToWire(c *model.Cluster) (*clusterv3.Cluster, error) {
	wire := &clusterv3.Cluster{
		Name:                 c.Name,
		ClusterDiscoveryType: &clusterv3.Cluster_Type{Type: clusterv3.Cluster_STATIC},
		LoadAssignment:       endpoint.BuildLoadAssignment(c.Name, c.Endpoints),
	}

	if c.ConnectTimeoutSeconds != nil {
		wire.ConnectTimeout = durationpb.New(time.Duration(*c.ConnectTimeoutSeconds) * time.Second)
	}

	if lbPolicy, ok := lbPolicyToWire[c.LBPolicy]; ok {
		wire.LbPolicy = lbPolicy
	}

	if dnsFamily, ok := dnsFamilyToWire[c.DNSLookupFamily]; ok {
		wire.DnsLookupFamily = dnsFamily
	}

	if c.UseTLS {
		transportSocket, err := buildUpstreamTLS(c.TLSServerName)
		if err != nil {
			return nil, err
		}
		wire.TransportSocket = transportSocket
	}

	if c.CircuitBreakers != nil {
		wire.CircuitBreakers = &clusterv3.CircuitBreakers{
			Thresholds: []*clusterv3.CircuitBreakers_Thresholds{
				{
					Priority:           corev3.RoutingPriority_DEFAULT,
					MaxConnections:     wrapOpt(c.CircuitBreakers.MaxConnections),
					MaxPendingRequests: wrapOpt(c.CircuitBreakers.MaxPendingRequests),
					MaxRequests:        wrapOpt(c.CircuitBreakers.MaxRequests),
					MaxRetries:         wrapOpt(c.CircuitBreakers.MaxRetries),
				},
			},
		}
	}

	if c.OutlierDetection != nil {
		od := c.OutlierDetection
		wire.OutlierDetection = &clusterv3.OutlierDetection{
			Consecutive_5Xx:    wrapOpt(od.Consecutive5xx),
			Interval:           durationFromSeconds(od.IntervalSeconds),
			BaseEjectionTime:   durationFromSeconds(od.BaseEjectionTimeSeconds),
			MaxEjectionPercent: wrapOpt(od.MaxEjectionPercent),
		}
	}

	for _, hc := range c.HealthChecks {
		wire.HealthChecks = append(wire.HealthChecks, buildHealthCheck(hc))
	}

	return wire, nil
}

// FromWire reconstructs a canonical Cluster from its xDS protobuf form.
// LbPolicy and DnsLookupFamily are proto3 enums with no presence bit, so
// the wire can't distinguish "left unset" from "explicitly set to the
// zero value" (ROUND_ROBIN, V4_ONLY); FromWire treats the zero value as
// unset, which is the only choice that makes an unset field round-trip
// back to unset.
func FromWire(wire *clusterv3.Cluster) *model.Cluster {
	c := &model.Cluster{
		Name:      wire.GetName(),
		Endpoints: endpoint.ExtractEndpoints(wire.GetLoadAssignment()),
	}

	if wire.GetLbPolicy() != clusterv3.Cluster_ROUND_ROBIN {
		if policy, ok := lbPolicyFromWire[wire.GetLbPolicy()]; ok {
			c.LBPolicy = policy
		}
	}

	if d := wire.GetConnectTimeout(); d != nil {
		seconds := d.AsDuration().Nanoseconds() / int64(time.Second)
		c.ConnectTimeoutSeconds = &seconds
	}

	if wire.GetDnsLookupFamily() != clusterv3.Cluster_V4_ONLY {
		if family, ok := dnsFamilyFromWire[wire.GetDnsLookupFamily()]; ok {
			c.DNSLookupFamily = family
		}
	}

	if wire.GetTransportSocket() != nil {
		c.UseTLS = true
		c.TLSServerName = extractSNI(wire.GetTransportSocket())
	}

	if cb := wire.GetCircuitBreakers(); cb != nil && len(cb.GetThresholds()) > 0 {
		t := cb.GetThresholds()[0]
		c.CircuitBreakers = &model.CircuitBreakers{
			MaxConnections:     unwrapOpt(t.GetMaxConnections()),
			MaxPendingRequests: unwrapOpt(t.GetMaxPendingRequests()),
			MaxRequests:        unwrapOpt(t.GetMaxRequests()),
			MaxRetries:         unwrapOpt(t.GetMaxRetries()),
		}
	}

	if od := wire.GetOutlierDetection(); od != nil {
		c.OutlierDetection = &model.OutlierDetection{
			Consecutive5xx:          unwrapOpt(od.GetConsecutive_5Xx()),
			IntervalSeconds:         secondsFromDuration(od.GetInterval()),
			BaseEjectionTimeSeconds: secondsFromDuration(od.GetBaseEjectionTime()),
			MaxEjectionPercent:      unwrapOpt(od.GetMaxEjectionPercent()),
		}
	}

	for _, hc := range wire.GetHealthChecks() {
		c.HealthChecks = append(c.HealthChecks, extractHealthCheck(hc))
	}

	return c
}

func buildHealthCheck(hc model.HealthCheck) *corev3.HealthCheck {
	wire := &corev3.HealthCheck{
		Interval:           durationpb.New(time.Duration(hc.IntervalSeconds) * time.Second),
		Timeout:            durationpb.New(time.Duration(hc.TimeoutSeconds) * time.Second),
		HealthyThreshold:   wrapperspb.UInt32(hc.HealthyThreshold),
		UnhealthyThreshold: wrapperspb.UInt32(hc.UnhealthyThreshold),
	}

	switch hc.Kind {
	case model.HealthCheckTCP:
		wire.HealthChecker = &corev3.HealthCheck_TcpHealthCheck_{
			TcpHealthCheck: &corev3.HealthCheck_TcpHealthCheck{},
		}
	default:
		httpCheck := &corev3.HealthCheck_HttpHealthCheck{
			Path: hc.Path,
		}
		if hc.Method != "" {
			if method, ok := corev3.RequestMethod_value[hc.Method]; ok {
				httpCheck.Method = corev3.RequestMethod(method)
			}
		}
		for _, status := range hc.ExpectedStatuses {
			httpCheck.ExpectedStatuses = append(httpCheck.ExpectedStatuses, &corev3.Int64Range{
				Start: int64(status),
				End:   int64(status) + 1,
			})
		}
		wire.HealthChecker = &corev3.HealthCheck_HttpHealthCheck_{HttpHealthCheck: httpCheck}
	}

	return wire
}

func extractHealthCheck(wire *corev3.HealthCheck) model.HealthCheck {
	hc := model.HealthCheck{
		IntervalSeconds:    uint32(wire.GetInterval().AsDuration() / time.Second),
		TimeoutSeconds:     uint32(wire.GetTimeout().AsDuration() / time.Second),
		HealthyThreshold:   wire.GetHealthyThreshold().GetValue(),
		UnhealthyThreshold: wire.GetUnhealthyThreshold().GetValue(),
	}

	if http := wire.GetHttpHealthCheck(); http != nil {
		hc.Kind = model.HealthCheckHTTP
		hc.Path = http.GetPath()
		// METHOD_UNSPECIFIED is the RequestMethod zero value; buildHealthCheck
		// only stamps Method when non-empty, so an unset Method must read
		// back as unset rather than reconstructing the zero value's name.
		if http.GetMethod() != corev3.RequestMethod_METHOD_UNSPECIFIED {
			hc.Method = http.GetMethod().String()
		}
		for _, r := range http.GetExpectedStatuses() {
			hc.ExpectedStatuses = append(hc.ExpectedStatuses, int(r.GetStart()))
		}
	} else {
		hc.Kind = model.HealthCheckTCP
	}

	return hc
}

func buildUpstreamTLS(serverName string) (*corev3.TransportSocket, error) {
	tlsContext := &tlsv3.UpstreamTlsContext{
		CommonTlsContext: &tlsv3.CommonTlsContext{},
		Sni:              serverName,
	}
	packed, err := anypb.New(tlsContext)
	if err != nil {
		return nil, err
	}
	return &corev3.TransportSocket{
		Name:       "envoy.transport_sockets.tls",
		ConfigType: &corev3.TransportSocket_TypedConfig{TypedConfig: packed},
	}, nil
}

func extractSNI(socket *corev3.TransportSocket) string {
	typed, ok := socket.GetConfigType().(*corev3.TransportSocket_TypedConfig)
	if !ok || typed.TypedConfig == nil {
		return ""
	}
	tlsContext := &tlsv3.UpstreamTlsContext{}
	if err := typed.TypedConfig.UnmarshalTo(tlsContext); err != nil {
		return ""
	}
	return tlsContext.GetSni()
}

func wrapOpt(v *uint32) *wrapperspb.UInt32Value {
	if v == nil {
		return nil
	}
	return wrapperspb.UInt32(*v)
}

func unwrapOpt(v *wrapperspb.UInt32Value) *uint32 {
	if v == nil {
		return nil
	}
	val := v.GetValue()
	return &val
}

func durationFromSeconds(seconds *uint32) *durationpb.Duration {
	if seconds == nil {
		return nil
	}
	return durationpb.New(time.Duration(*seconds) * time.Second)
}

// secondsFromDuration converts a duration to whole seconds, returning nil
// for a nil input so optional fields round-trip as absent rather than zero.
func secondsFromDuration(d *durationpb.Duration) *uint32 {
	if d == nil {
		return nil
	}
	seconds := uint32(d.AsDuration() / time.Second)
	return &seconds
}

