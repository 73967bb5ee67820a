package listener

import (
	"testing"

	hcmv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/network/http_connection_manager/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowplane/flowplane/internal/flowplane/model"
)

func TestToWireFromWire_RoundTripsListener(t *testing.T) {
	l := &model.Listener{
		Name:            "public-listener",
		Address:         "0.0.0.0",
		Port:            8443,
		Protocol:        "HTTP",
		RouteConfigName: "public-routes",
	}

	wire, err := ToWire(l)
	require.NoError(t, err)

	got := FromWire(wire)
	assert.Equal(t, l, got)
}

func TestToWire_WiresRouteConfigNameViaRDS(t *testing.T) {
	l := &model.Listener{
		Name:            "public-listener",
		Address:         "0.0.0.0",
		Port:            8443,
		RouteConfigName: "public-routes",
	}

	wire, err := ToWire(l)
	require.NoError(t, err)

	require.Len(t, wire.GetFilterChains(), 1)
	filters := wire.GetFilterChains()[0].GetFilters()
	require.Len(t, filters, 1)
	assert.Equal(t, httpConnectionManagerFilterName, filters[0].GetName())

	manager := &hcmv3.HttpConnectionManager{}
	typed := filters[0].GetTypedConfig()
	require.NotNil(t, typed)
	require.NoError(t, typed.UnmarshalTo(manager))

	rds, ok := manager.GetRouteSpecifier().(*hcmv3.HttpConnectionManager_Rds)
	require.True(t, ok)
	assert.Equal(t, "public-routes", rds.Rds.GetRouteConfigName())
}

func TestFromWire_SocketAddressRoundTrips(t *testing.T) {
	l := &model.Listener{
		Name:            "internal-listener",
		Address:         "127.0.0.1",
		Port:            9901,
		Protocol:        "HTTP",
		RouteConfigName: "internal-routes",
	}

	wire, err := ToWire(l)
	require.NoError(t, err)

	got := FromWire(wire)
	assert.Equal(t, "127.0.0.1", got.Address)
	assert.Equal(t, uint32(9901), got.Port)
}
