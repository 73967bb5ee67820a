package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowplane/flowplane/internal/flowplane/model"
)

func TestBuildLoadAssignmentExtractEndpoints_RoundTripsMultipleEndpoints(t *testing.T) {
	endpoints := []model.Endpoint{
		{Host: "10.0.0.1", Port: 8080},
		{Host: "10.0.0.2", Port: 8081},
		{Host: "backend.internal", Port: 443},
	}

	cla := BuildLoadAssignment("payments-cluster", endpoints)
	assert.Equal(t, "payments-cluster", cla.GetClusterName())

	got := ExtractEndpoints(cla)
	assert.Equal(t, endpoints, got)
}

func TestBuildLoadAssignmentExtractEndpoints_EmptyEndpointsRoundTripsToNil(t *testing.T) {
	cla := BuildLoadAssignment("empty-cluster", nil)
	got := ExtractEndpoints(cla)
	assert.Nil(t, got)
}

func TestExtractEndpoints_NilLoadAssignmentReturnsNil(t *testing.T) {
	assert.Nil(t, ExtractEndpoints(nil))
}
