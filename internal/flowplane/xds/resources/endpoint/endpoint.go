// Package endpoint builds and reads back the LbEndpoint/ClusterLoadAssignment
// wire shapes shared by the cluster resource builder.
package endpoint

import (
	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	endpointv3 "github.com/envoyproxy/go-control-plane/envoy/config/endpoint/v3"

	"github.com/flowplane/flowplane/internal/flowplane/model"
)

// BuildLoadAssignment renders a STATIC cluster's load assignment from the
// canonical endpoint list.
func BuildLoadAssignment(clusterName string, endpoints []model.Endpoint) *endpointv3.ClusterLoadAssignment {
	lbEndpoints := make([]*endpointv3.LbEndpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		lbEndpoints = append(lbEndpoints, &endpointv3.LbEndpoint{
			HostIdentifier: &endpointv3.LbEndpoint_Endpoint{
				Endpoint: &endpointv3.Endpoint{
					Address: &corev3.Address{
						Address: &corev3.Address_SocketAddress{
							SocketAddress: &corev3.SocketAddress{
								Address:  ep.Host,
								Protocol: corev3.SocketAddress_TCP,
								PortSpecifier: &corev3.SocketAddress_PortValue{
									PortValue: ep.Port,
								},
							},
						},
					},
				},
			},
		})
	}

	return &endpointv3.ClusterLoadAssignment{
		ClusterName: clusterName,
		Endpoints: []*endpointv3.LocalityLbEndpoints{
			{LbEndpoints: lbEndpoints},
		},
	}
}

// ExtractEndpoints reads the canonical endpoint list back out of a load
// assignment, the inverse of BuildLoadAssignment.
func ExtractEndpoints(cla *endpointv3.ClusterLoadAssignment) []model.Endpoint {
	if cla == nil {
		return nil
	}
	var out []model.Endpoint
	for _, locality := range cla.GetEndpoints() {
		for _, lb := range locality.GetLbEndpoints() {
			ep := lb.GetEndpoint()
			if ep == nil {
				continue
			}
			sock := ep.GetAddress().GetSocketAddress()
			if sock == nil {
				continue
			}
			out = append(out, model.Endpoint{
				Host: sock.GetAddress(),
				Port: sock.GetPortValue(),
			})
		}
	}
	return out
}
