package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validCluster() Cluster {
	return Cluster{
		Name:         "payments-cluster",
		ServiceName:  "payments",
		Endpoints:    []Endpoint{{Host: "10.0.0.1", Port: 8080}},
		LBPolicy:     LBRoundRobin,
		DNSLookupFamily: DNSAuto,
	}
}

func TestClusterValidate_Valid(t *testing.T) {
	c := validCluster()
	assert.Empty(t, c.Validate())
}

func TestClusterValidate_RequiredFields(t *testing.T) {
	c := Cluster{}
	errs := c.Validate()
	assert.NotEmpty(t, errs)

	var fields []string
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "endpoints")
}

func TestClusterValidate_NameFormat(t *testing.T) {
	c := validCluster()
	c.Name = "bad name with spaces"
	errs := c.Validate()
	assert.NotEmpty(t, errs)
	assert.Equal(t, "name", errs[0].Field)
}

func TestClusterValidate_EndpointPortRange(t *testing.T) {
	c := validCluster()
	c.Endpoints = []Endpoint{{Host: "10.0.0.1", Port: 0}}
	errs := c.Validate()
	assert.NotEmpty(t, errs)
}

func TestClusterValidate_InvalidLBPolicy(t *testing.T) {
	c := validCluster()
	c.LBPolicy = "NOT_A_POLICY"
	errs := c.Validate()
	found := false
	for _, e := range errs {
		if e.Field == "lbPolicy" {
			found = true
		}
	}
	assert.True(t, found)
}
