package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListenerValidate_Valid(t *testing.T) {
	l := Listener{
		Name:            "public-listener",
		Address:         "0.0.0.0",
		Port:            10000,
		RouteConfigName: "default-gateway",
	}
	assert.Empty(t, l.Validate())
}

func TestListenerValidate_MissingFields(t *testing.T) {
	l := Listener{}
	errs := l.Validate()
	assert.Len(t, errs, 4)
}

func TestListenerValidate_PortRange(t *testing.T) {
	l := Listener{Name: "l", Address: "0.0.0.0", Port: 70000, RouteConfigName: "r"}
	errs := l.Validate()
	assert.Len(t, errs, 1)
	assert.Equal(t, "port", errs[0].Field)
}
