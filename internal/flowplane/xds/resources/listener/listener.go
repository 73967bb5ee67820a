// Package listener builds and reads back Envoy Listener (LDS) resources
// from the canonical model. A listener is always a single filter chain
// running one HTTP connection manager pointed at a route configuration by
// name via ADS/RDS.
package listener

import (
	"fmt"

	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	listenerv3 "github.com/envoyproxy/go-control-plane/envoy/config/listener/v3"
	routerv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/router/v3"
	hcmv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/network/http_connection_manager/v3"
	resourcev3 "github.com/envoyproxy/go-control-plane/pkg/resource/v3"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/flowplane/flowplane/internal/flowplane/model"
)

const (
	httpConnectionManagerFilterName = "envoy.filters.network.http_connection_manager"
	routerFilterName                = "envoy.filters.http.router"
)

// ToWire renders a canonical Listener into its xDS protobuf representation.
func ToWire(l *model.Listener) (*listenerv3.Listener, error) {
	routerConfig, err := anypb.New(&routerv3.Router{})
	if err != nil {
		return nil, fmt.Errorf("encode router filter: %w", err)
	}

	manager := &hcmv3.HttpConnectionManager{
		CodecType:  hcmv3.HttpConnectionManager_AUTO,
		StatPrefix: l.Name,
		RouteSpecifier: &hcmv3.HttpConnectionManager_Rds{
			Rds: &hcmv3.Rds{
				ConfigSource:    adsConfigSource(),
				RouteConfigName: l.RouteConfigName,
			},
		},
		HttpFilters: []*hcmv3.HttpFilter{{
			Name:       routerFilterName,
			ConfigType: &hcmv3.HttpFilter_TypedConfig{TypedConfig: routerConfig},
		}},
	}

	hcmAny, err := anypb.New(manager)
	if err != nil {
		return nil, fmt.Errorf("encode http connection manager: %w", err)
	}

	return &listenerv3.Listener{
		Name: l.Name,
		Address: &corev3.Address{
			Address: &corev3.Address_SocketAddress{
				SocketAddress: &corev3.SocketAddress{
					Address: l.Address,
					PortSpecifier: &corev3.SocketAddress_PortValue{
						PortValue: l.Port,
					},
				},
			},
		},
		FilterChains: []*listenerv3.FilterChain{
			{
				Filters: []*listenerv3.Filter{
					{
						Name:       httpConnectionManagerFilterName,
						ConfigType: &listenerv3.Filter_TypedConfig{TypedConfig: hcmAny},
					},
				},
			},
		},
	}, nil
}

// FromWire reconstructs a canonical Listener from its xDS protobuf form. The
// protocol defaults to "HTTP" since every listener this layer produces runs
// an HTTP connection manager; nothing on the wire distinguishes a protocol
// label beyond that.
func FromWire(wire *listenerv3.Listener) *model.Listener {
	l := &model.Listener{
		Name:     wire.GetName(),
		Protocol: "HTTP",
	}

	if sock := wire.GetAddress().GetSocketAddress(); sock != nil {
		l.Address = sock.GetAddress()
		l.Port = sock.GetPortValue()
	}

	for _, chain := range wire.GetFilterChains() {
		for _, f := range chain.GetFilters() {
			if f.GetName() != httpConnectionManagerFilterName {
				continue
			}
			typed, ok := f.GetConfigType().(*listenerv3.Filter_TypedConfig)
			if !ok || typed.TypedConfig == nil {
				continue
			}
			manager := &hcmv3.HttpConnectionManager{}
			if err := typed.TypedConfig.UnmarshalTo(manager); err != nil {
				continue
			}
			if rds, ok := manager.GetRouteSpecifier().(*hcmv3.HttpConnectionManager_Rds); ok {
				l.RouteConfigName = rds.Rds.GetRouteConfigName()
			}
		}
	}

	return l
}

func adsConfigSource() *corev3.ConfigSource {
	return &corev3.ConfigSource{
		ResourceApiVersion: resourcev3.DefaultAPIVersion,
		ConfigSourceSpecifier: &corev3.ConfigSource_Ads{
			Ads: &corev3.AggregatedConfigSource{},
		},
	}
}
