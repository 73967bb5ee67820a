package model

import "strings"

// PathMatchType discriminates the PathMatch tagged union.
type PathMatchType string

const (
	PathMatchExact    PathMatchType = "exact"
	PathMatchPrefix   PathMatchType = "prefix"
	PathMatchRegex    PathMatchType = "regex"
	PathMatchTemplate PathMatchType = "template"
)

// PathMatch is a tagged union over exact/prefix/regex/template path matching.
type PathMatch struct {
	Type PathMatchType `json:"type"`
	// Value holds the literal or pattern payload for Exact, Prefix, Regex.
	Value string `json:"value,omitempty"`
	// Template holds the {var}-style URI template for Template matches.
	Template string `json:"template,omitempty"`
}

// payload returns whichever string field carries this match's content.
func (m PathMatch) payload() string {
	if m.Type == PathMatchTemplate {
		return m.Template
	}
	return m.Value
}

// HeaderMatch matches a single request header by value, regex, or presence.
type HeaderMatch struct {
	Name     string  `json:"name"`
	Value    *string `json:"value,omitempty"`
	Regex    *string `json:"regex,omitempty"`
	Present  *bool   `json:"present,omitempty"`
}

// QueryParamMatch matches a single query parameter by value, regex, or presence.
type QueryParamMatch struct {
	Name    string  `json:"name"`
	Value   *string `json:"value,omitempty"`
	Regex   *string `json:"regex,omitempty"`
	Present *bool   `json:"present,omitempty"`
}

// RouteMatch is the full set of match predicates for a RouteRule.
type RouteMatch struct {
	Path        PathMatch         `json:"path"`
	Headers     []HeaderMatch     `json:"headers,omitempty"`
	QueryParams []QueryParamMatch `json:"queryParams,omitempty"`
}

// FilterConfig is an opaque scoped per-filter configuration block, keyed by
// filter name at the VirtualHost/RouteRule/WeightedCluster level.
type FilterConfig map[string]interface{}

// RouteActionType discriminates the RouteAction tagged union.
type RouteActionType string

const (
	RouteActionForward  RouteActionType = "forward"
	RouteActionWeighted RouteActionType = "weighted"
	RouteActionRedirect RouteActionType = "redirect"
)

// WeightedCluster is a single weighted destination within a Weighted action.
type WeightedCluster struct {
	Name                 string                  `json:"name"`
	Weight               uint32                  `json:"weight"`
	TypedPerFilterConfig map[string]FilterConfig `json:"typedPerFilterConfig,omitempty"`
}

// RouteAction is a tagged union over forward/weighted/redirect actions.
type RouteAction struct {
	Type RouteActionType `json:"type"`

	// Forward
	Cluster         string  `json:"cluster,omitempty"`
	TimeoutSeconds  *int64  `json:"timeoutSeconds,omitempty"`
	PrefixRewrite   *string `json:"prefixRewrite,omitempty"`
	TemplateRewrite *string `json:"templateRewrite,omitempty"`

	// Weighted
	Clusters    []WeightedCluster `json:"clusters,omitempty"`
	TotalWeight *uint32           `json:"totalWeight,omitempty"`

	// Redirect
	HostRedirect *string `json:"hostRedirect,omitempty"`
	PathRedirect *string `json:"pathRedirect,omitempty"`
	ResponseCode *uint32 `json:"responseCode,omitempty"`
}

// RouteRule is one route entry within a VirtualHost.
type RouteRule struct {
	Name                 string                  `json:"name,omitempty"`
	Match                RouteMatch              `json:"match"`
	Action               RouteAction             `json:"action"`
	TypedPerFilterConfig map[string]FilterConfig `json:"typedPerFilterConfig,omitempty"`
}

// VirtualHost groups routes under a shared set of domains.
type VirtualHost struct {
	Name                 string                  `json:"name"`
	Domains              []string                `json:"domains"`
	Routes               []RouteRule             `json:"routes"`
	TypedPerFilterConfig map[string]FilterConfig `json:"typedPerFilterConfig,omitempty"`
}

// RouteConfiguration is the canonical representation of a named RDS resource.
type RouteConfiguration struct {
	Name         string        `json:"name"`
	VirtualHosts []VirtualHost `json:"virtualHosts"`

	Version int `json:"version,omitempty"`
}

// Validate enforces every §3 invariant for a RouteConfiguration, including
// the cross-field rules around template path matches and weighted actions.
func (r *RouteConfiguration) Validate() ValidationErrors {
	var errs ValidationErrors

	if r.Name == "" {
		errs = append(errs, fieldError("name", "Validation", "must not be empty"))
	}

	if len(r.VirtualHosts) == 0 {
		errs = append(errs, fieldError("virtualHosts", "Validation", "must not be empty"))
	}

	for vi := range r.VirtualHosts {
		vh := &r.VirtualHosts[vi]
		if vh.Name == "" {
			errs = append(errs, fieldError("virtualHosts[].name", "Validation", "must not be empty"))
		}
		if len(vh.Domains) == 0 {
			errs = append(errs, fieldError("virtualHosts[].domains", "Validation", "must not be empty"))
		}
		for _, d := range vh.Domains {
			if strings.TrimSpace(d) == "" {
				errs = append(errs, fieldError("virtualHosts[].domains[]", "Validation", "must not contain empty strings"))
			}
		}
		if len(vh.Routes) == 0 {
			errs = append(errs, fieldError("virtualHosts[].routes", "Validation", "must not be empty"))
		}
		for ri := range vh.Routes {
			errs = append(errs, validateRouteRule(&vh.Routes[ri])...)
		}
	}

	return errs
}

func validateRouteRule(rule *RouteRule) ValidationErrors {
	var errs ValidationErrors

	match := rule.Match
	action := rule.Action

	switch match.Path.Type {
	case PathMatchExact, PathMatchPrefix, PathMatchRegex, PathMatchTemplate:
	default:
		errs = append(errs, fieldError("match.path.type", "Validation", "must be one of exact, prefix, regex, template"))
	}

	if strings.TrimSpace(match.Path.payload()) == "" {
		errs = append(errs, fieldError("match.path", "Validation", "payload must not be whitespace-only"))
	}

	for _, h := range match.Headers {
		if h.Name == "" {
			errs = append(errs, fieldError("match.headers[].name", "Validation", "must not be empty"))
		}
	}
	for _, q := range match.QueryParams {
		if q.Name == "" {
			errs = append(errs, fieldError("match.queryParams[].name", "Validation", "must not be empty"))
		}
	}

	isTemplate := match.Path.Type == PathMatchTemplate
	isPrefix := match.Path.Type == PathMatchPrefix

	switch action.Type {
	case RouteActionForward:
		if isTemplate && action.PrefixRewrite != nil {
			errs = append(errs, fieldError("action.prefixRewrite", "Validation", "template path match forbids prefixRewrite"))
		}
		if action.TemplateRewrite != nil && !isTemplate {
			errs = append(errs, fieldError("action.templateRewrite", "Validation", "templateRewrite requires a template path match"))
		}
		if action.PrefixRewrite != nil && !strings.HasPrefix(*action.PrefixRewrite, "/") {
			errs = append(errs, fieldError("action.prefixRewrite", "Validation", "must begin with /"))
		}
		if action.Cluster == "" {
			errs = append(errs, fieldError("action.cluster", "Validation", "must not be empty"))
		}
		_ = isPrefix
	case RouteActionWeighted:
		if isTemplate {
			errs = append(errs, fieldError("action", "Validation", "template path match must be paired with forward"))
		}
		if len(action.Clusters) == 0 {
			errs = append(errs, fieldError("action.clusters", "Validation", "weighted action requires at least one cluster"))
		}
		for _, wc := range action.Clusters {
			if wc.Weight == 0 {
				errs = append(errs, fieldError("action.clusters[].weight", "Validation", "every weight must be > 0"))
			}
		}
	case RouteActionRedirect:
		if isTemplate {
			errs = append(errs, fieldError("action", "Validation", "template path match must be paired with forward"))
		}
	default:
		errs = append(errs, fieldError("action.type", "Validation", "must be one of forward, weighted, redirect"))
	}

	if isTemplate && action.Type != RouteActionForward {
		errs = append(errs, fieldError("action", "Validation", "template path match must be paired with forward"))
	}

	return errs
}
