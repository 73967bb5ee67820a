package model

import (
	"regexp"
	"strings"
)

var clusterNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// LBPolicy enumerates the load-balancing policies a Cluster may run.
type LBPolicy string

const (
	LBRoundRobin   LBPolicy = "ROUND_ROBIN"
	LBLeastRequest LBPolicy = "LEAST_REQUEST"
	LBRandom       LBPolicy = "RANDOM"
	LBRingHash     LBPolicy = "RING_HASH"
	LBMaglev       LBPolicy = "MAGLEV"
)

func (p LBPolicy) valid() bool {
	switch p {
	case LBRoundRobin, LBLeastRequest, LBRandom, LBRingHash, LBMaglev, "":
		return true
	default:
		return false
	}
}

// DNSLookupFamily enumerates the DNS resolution families a Cluster may use.
type DNSLookupFamily string

const (
	DNSV4   DNSLookupFamily = "V4"
	DNSV6   DNSLookupFamily = "V6"
	DNSAuto DNSLookupFamily = "AUTO"
)

func (f DNSLookupFamily) valid() bool {
	switch f {
	case DNSV4, DNSV6, DNSAuto, "":
		return true
	default:
		return false
	}
}

// Endpoint is a single upstream host/port pair backing a Cluster.
type Endpoint struct {
	Host string `json:"host"`
	Port uint32 `json:"port"`
}

// CircuitBreakers carries per-priority connection/request thresholds.
type CircuitBreakers struct {
	MaxConnections     *uint32 `json:"maxConnections,omitempty"`
	MaxPendingRequests *uint32 `json:"maxPendingRequests,omitempty"`
	MaxRequests        *uint32 `json:"maxRequests,omitempty"`
	MaxRetries         *uint32 `json:"maxRetries,omitempty"`
}

// OutlierDetection carries passive-health-check ejection thresholds.
type OutlierDetection struct {
	Consecutive5xx          *uint32 `json:"consecutive5xx,omitempty"`
	IntervalSeconds          *uint32 `json:"intervalSeconds,omitempty"`
	BaseEjectionTimeSeconds  *uint32 `json:"baseEjectionTimeSeconds,omitempty"`
	MaxEjectionPercent       *uint32 `json:"maxEjectionPercent,omitempty"`
}

// HealthCheckKind discriminates the HealthCheck tagged union.
type HealthCheckKind string

const (
	HealthCheckHTTP HealthCheckKind = "http"
	HealthCheckTCP  HealthCheckKind = "tcp"
)

// HealthCheck is a tagged union over HTTP and TCP active health checks.
type HealthCheck struct {
	Kind               HealthCheckKind `json:"kind"`
	IntervalSeconds    uint32          `json:"intervalSeconds"`
	TimeoutSeconds     uint32          `json:"timeoutSeconds"`
	HealthyThreshold   uint32          `json:"healthyThreshold"`
	UnhealthyThreshold uint32          `json:"unhealthyThreshold"`

	// HTTP-only fields
	Path             string `json:"path,omitempty"`
	Method           string `json:"method,omitempty"`
	ExpectedStatuses []int  `json:"expectedStatuses,omitempty"`
}

// Cluster is the canonical representation of an upstream pool.
type Cluster struct {
	Name                  string           `json:"name"`
	ServiceName           string           `json:"serviceName"`
	Endpoints             []Endpoint       `json:"endpoints"`
	ConnectTimeoutSeconds *int64           `json:"connectTimeoutSeconds,omitempty"`
	UseTLS                bool             `json:"useTls,omitempty"`
	TLSServerName         string           `json:"tlsServerName,omitempty"`
	DNSLookupFamily       DNSLookupFamily  `json:"dnsLookupFamily,omitempty"`
	LBPolicy              LBPolicy         `json:"lbPolicy"`
	CircuitBreakers       *CircuitBreakers `json:"circuitBreakers,omitempty"`
	OutlierDetection      *OutlierDetection `json:"outlierDetection,omitempty"`
	HealthChecks          []HealthCheck    `json:"healthChecks,omitempty"`

	Version int `json:"version,omitempty"`
}

// Validate enforces every §3 invariant for a Cluster.
func (c *Cluster) Validate() ValidationErrors {
	var errs ValidationErrors

	if c.Name == "" {
		errs = append(errs, fieldError("name", "Validation", "must not be empty"))
	} else if len(c.Name) > 255 {
		errs = append(errs, fieldError("name", "Validation", "must be at most 255 characters"))
	} else if !clusterNamePattern.MatchString(c.Name) {
		errs = append(errs, fieldError("name", "Validation", "must match [A-Za-z0-9_-]+"))
	}

	if len(c.Endpoints) == 0 {
		errs = append(errs, fieldError("endpoints", "Validation", "must not be empty"))
	}
	for i, ep := range c.Endpoints {
		if ep.Port < 1 || ep.Port > 65535 {
			errs = append(errs, fieldError("endpoints[].port", "Validation", "port must be between 1 and 65535"))
		}
		if strings.TrimSpace(ep.Host) == "" {
			errs = append(errs, fieldError("endpoints[].host", "Validation", "must not be empty"))
		}
		_ = i
	}

	if !c.DNSLookupFamily.valid() {
		errs = append(errs, fieldError("dnsLookupFamily", "Validation", "must be one of V4, V6, AUTO"))
	}

	if !c.LBPolicy.valid() {
		errs = append(errs, fieldError("lbPolicy", "Validation", "must be one of ROUND_ROBIN, LEAST_REQUEST, RANDOM, RING_HASH, MAGLEV"))
	}

	if c.CircuitBreakers != nil {
		for name, v := range map[string]*uint32{
			"circuitBreakers.maxConnections":     c.CircuitBreakers.MaxConnections,
			"circuitBreakers.maxPendingRequests": c.CircuitBreakers.MaxPendingRequests,
			"circuitBreakers.maxRequests":        c.CircuitBreakers.MaxRequests,
			"circuitBreakers.maxRetries":         c.CircuitBreakers.MaxRetries,
		} {
			if v != nil && int32(*v) < 0 {
				errs = append(errs, fieldError(name, "Validation", "must be >= 0"))
			}
		}
	}

	if c.OutlierDetection != nil {
		for name, v := range map[string]*uint32{
			"outlierDetection.consecutive5xx":         c.OutlierDetection.Consecutive5xx,
			"outlierDetection.intervalSeconds":         c.OutlierDetection.IntervalSeconds,
			"outlierDetection.baseEjectionTimeSeconds": c.OutlierDetection.BaseEjectionTimeSeconds,
			"outlierDetection.maxEjectionPercent":      c.OutlierDetection.MaxEjectionPercent,
		} {
			if v != nil && int32(*v) < 0 {
				errs = append(errs, fieldError(name, "Validation", "must be >= 0"))
			}
		}
	}

	for i := range c.HealthChecks {
		hc := &c.HealthChecks[i]
		if hc.Kind != HealthCheckHTTP && hc.Kind != HealthCheckTCP {
			errs = append(errs, fieldError("healthChecks[].kind", "Validation", "must be http or tcp"))
		}
	}

	return errs
}
