// Package route builds and reads back Envoy RouteConfiguration (RDS)
// resources from the canonical model.
package route

import (
	"fmt"
	"time"

	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	routev3 "github.com/envoyproxy/go-control-plane/envoy/config/route/v3"
	localratelimitv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/local_ratelimit/v3"
	pathmatchv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/path/match/uri_template/v3"
	pathrewritev3 "github.com/envoyproxy/go-control-plane/envoy/extensions/path/rewrite/uri_template/v3"
	matcherv3 "github.com/envoyproxy/go-control-plane/envoy/type/matcher/v3"
	typev3 "github.com/envoyproxy/go-control-plane/envoy/type/v3"
	xdstypev3 "github.com/cncf/xds/go/xds/type/v3"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/flowplane/flowplane/internal/flowplane/model"
)

// ToWire renders a canonical RouteConfiguration into its xDS protobuf form.
func ToWire(rc *model.RouteConfiguration) (*routev3.RouteConfiguration, error) {
	wire := &routev3.RouteConfiguration{Name: rc.Name}

	for _, vh := range rc.VirtualHosts {
		wireVH := &routev3.VirtualHost{
			Name:    vh.Name,
			Domains: vh.Domains,
		}

		perFilter, err := buildPerFilterConfigMap(vh.TypedPerFilterConfig)
		if err != nil {
			return nil, fmt.Errorf("virtual host %q: %w", vh.Name, err)
		}
		wireVH.TypedPerFilterConfig = perFilter

		for _, rule := range vh.Routes {
			wireRoute, err := buildRoute(&rule)
			if err != nil {
				return nil, fmt.Errorf("route %q: %w", rule.Name, err)
			}
			wireVH.Routes = append(wireVH.Routes, wireRoute)
		}

		wire.VirtualHosts = append(wire.VirtualHosts, wireVH)
	}

	return wire, nil
}

// FromWire reconstructs a canonical RouteConfiguration from its xDS form.
func FromWire(wire *routev3.RouteConfiguration) *model.RouteConfiguration {
	rc := &model.RouteConfiguration{Name: wire.GetName()}

	for _, wireVH := range wire.GetVirtualHosts() {
		vh := model.VirtualHost{
			Name:                 wireVH.GetName(),
			Domains:              wireVH.GetDomains(),
			TypedPerFilterConfig: extractPerFilterConfigMap(wireVH.GetTypedPerFilterConfig()),
		}
		for _, wireRoute := range wireVH.GetRoutes() {
			vh.Routes = append(vh.Routes, extractRoute(wireRoute))
		}
		rc.VirtualHosts = append(rc.VirtualHosts, vh)
	}

	return rc
}

func buildRoute(rule *model.RouteRule) (*routev3.Route, error) {
	match, err := buildMatch(&rule.Match)
	if err != nil {
		return nil, err
	}

	perFilter, err := buildPerFilterConfigMap(rule.TypedPerFilterConfig)
	if err != nil {
		return nil, err
	}

	wire := &routev3.Route{
		Name:                 rule.Name,
		Match:                match,
		TypedPerFilterConfig: perFilter,
	}

	if err := setAction(wire, &rule.Action); err != nil {
		return nil, err
	}

	return wire, nil
}

func buildMatch(m *model.RouteMatch) (*routev3.RouteMatch, error) {
	wire := &routev3.RouteMatch{}

	switch m.Path.Type {
	case model.PathMatchExact:
		wire.PathSpecifier = &routev3.RouteMatch_Path{Path: m.Path.Value}
	case model.PathMatchPrefix:
		wire.PathSpecifier = &routev3.RouteMatch_Prefix{Prefix: m.Path.Value}
	case model.PathMatchRegex:
		wire.PathSpecifier = &routev3.RouteMatch_SafeRegex{
			SafeRegex: &matcherv3.RegexMatcher{Regex: m.Path.Value},
		}
	case model.PathMatchTemplate:
		// The template is carried in PathMatchPolicy, not the path_specifier
		// oneof; a catch-all prefix keeps the proto well-formed for
		// implementations that only understand path_specifier.
		wire.PathSpecifier = &routev3.RouteMatch_Prefix{Prefix: "/"}
		policy, err := anypb.New(&pathmatchv3.UriTemplateMatchConfig{PathTemplate: m.Path.Template})
		if err != nil {
			return nil, fmt.Errorf("encode uri template match: %w", err)
		}
		wire.PathMatchPolicy = &corev3.TypedExtensionConfig{
			Name:        "envoy.path.match.uri_template.uri_template_matcher",
			TypedConfig: policy,
		}
	default:
		return nil, fmt.Errorf("unknown path match type %q", m.Path.Type)
	}

	for _, h := range m.Headers {
		wire.Headers = append(wire.Headers, buildHeaderMatcher(h))
	}
	for _, q := range m.QueryParams {
		wire.QueryParameters = append(wire.QueryParameters, buildQueryParamMatcher(q))
	}

	return wire, nil
}

func buildHeaderMatcher(h model.HeaderMatch) *routev3.HeaderMatcher {
	wire := &routev3.HeaderMatcher{Name: h.Name}
	switch {
	case h.Value != nil:
		wire.HeaderMatchSpecifier = &routev3.HeaderMatcher_ExactMatch{ExactMatch: *h.Value}
	case h.Regex != nil:
		wire.HeaderMatchSpecifier = &routev3.HeaderMatcher_SafeRegexMatch{
			SafeRegexMatch: &matcherv3.RegexMatcher{Regex: *h.Regex},
		}
	case h.Present != nil:
		wire.HeaderMatchSpecifier = &routev3.HeaderMatcher_PresentMatch{PresentMatch: *h.Present}
	}
	return wire
}

func buildQueryParamMatcher(q model.QueryParamMatch) *routev3.QueryParameterMatcher {
	wire := &routev3.QueryParameterMatcher{Name: q.Name}
	switch {
	case q.Value != nil:
		wire.QueryParameterMatchSpecifier = &routev3.QueryParameterMatcher_StringMatch{
			StringMatch: &matcherv3.StringMatcher{
				MatchPattern: &matcherv3.StringMatcher_Exact{Exact: *q.Value},
			},
		}
	case q.Regex != nil:
		wire.QueryParameterMatchSpecifier = &routev3.QueryParameterMatcher_StringMatch{
			StringMatch: &matcherv3.StringMatcher{
				MatchPattern: &matcherv3.StringMatcher_SafeRegex{
					SafeRegex: &matcherv3.RegexMatcher{Regex: *q.Regex},
				},
			},
		}
	case q.Present != nil:
		wire.QueryParameterMatchSpecifier = &routev3.QueryParameterMatcher_PresentMatch{PresentMatch: *q.Present}
	}
	return wire
}

// setAction assigns wire.Action in place; Route.Action's oneof wrapper type
// is unexported, so the wrapper must be constructed and assigned directly
// rather than threaded through a return value.
func setAction(wire *routev3.Route, a *model.RouteAction) error {
	switch a.Type {
	case model.RouteActionForward:
		routeAction := &routev3.RouteAction{
			ClusterSpecifier: &routev3.RouteAction_Cluster{Cluster: a.Cluster},
		}
		if a.TimeoutSeconds != nil {
			routeAction.Timeout = durationpb.New(time.Duration(*a.TimeoutSeconds) * time.Second)
		}
		if a.PrefixRewrite != nil {
			routeAction.PrefixRewrite = *a.PrefixRewrite
		}
		if a.TemplateRewrite != nil {
			packed, err := anypb.New(&pathrewritev3.UriTemplateRewriteConfig{PathTemplateRewrite: *a.TemplateRewrite})
			if err != nil {
				return fmt.Errorf("encode uri template rewrite: %w", err)
			}
			routeAction.PathRewritePolicy = &corev3.TypedExtensionConfig{
				Name:        "envoy.path.rewrite.uri_template.uri_template_rewriter",
				TypedConfig: packed,
			}
		}
		wire.Action = &routev3.Route_Route{Route: routeAction}
		return nil

	case model.RouteActionWeighted:
		wc := &routev3.WeightedCluster{}
		for _, c := range a.Clusters {
			perFilter, err := buildPerFilterConfigMap(c.TypedPerFilterConfig)
			if err != nil {
				return err
			}
			wc.Clusters = append(wc.Clusters, &routev3.WeightedCluster_ClusterWeight{
				Name:                 c.Name,
				Weight:               wrapperspb.UInt32(c.Weight),
				TypedPerFilterConfig: perFilter,
			})
		}
		if a.TotalWeight != nil {
			wc.TotalWeight = wrapperspb.UInt32(*a.TotalWeight)
		}
		wire.Action = &routev3.Route_Route{
			Route: &routev3.RouteAction{
				ClusterSpecifier: &routev3.RouteAction_WeightedClusters{WeightedClusters: wc},
			},
		}
		return nil

	case model.RouteActionRedirect:
		redirect := &routev3.RedirectAction{}
		if a.HostRedirect != nil {
			redirect.HostRedirect = *a.HostRedirect
		}
		if a.PathRedirect != nil {
			redirect.PathRewriteSpecifier = &routev3.RedirectAction_PathRedirect{PathRedirect: *a.PathRedirect}
		}
		if a.ResponseCode != nil {
			if code, ok := routev3.RedirectAction_RedirectResponseCode_value[responseCodeName(*a.ResponseCode)]; ok {
				redirect.ResponseCode = routev3.RedirectAction_RedirectResponseCode(code)
			}
		}
		wire.Action = &routev3.Route_Redirect{Redirect: redirect}
		return nil
	}

	return fmt.Errorf("unknown route action type %q", a.Type)
}

func extractRoute(wire *routev3.Route) model.RouteRule {
	return model.RouteRule{
		Name:                 wire.GetName(),
		Match:                extractMatch(wire.GetMatch()),
		Action:               extractAction(wire),
		TypedPerFilterConfig: extractPerFilterConfigMap(wire.GetTypedPerFilterConfig()),
	}
}

func extractMatch(wire *routev3.RouteMatch) model.RouteMatch {
	m := model.RouteMatch{}

	if policy := wire.GetPathMatchPolicy(); policy != nil && policy.GetTypedConfig() != nil {
		cfg := &pathmatchv3.UriTemplateMatchConfig{}
		if err := policy.GetTypedConfig().UnmarshalTo(cfg); err == nil {
			m.Path = model.PathMatch{Type: model.PathMatchTemplate, Template: cfg.GetPathTemplate()}
		}
	}

	if m.Path.Type == "" {
		switch spec := wire.GetPathSpecifier().(type) {
		case *routev3.RouteMatch_Path:
			m.Path = model.PathMatch{Type: model.PathMatchExact, Value: spec.Path}
		case *routev3.RouteMatch_Prefix:
			m.Path = model.PathMatch{Type: model.PathMatchPrefix, Value: spec.Prefix}
		case *routev3.RouteMatch_SafeRegex:
			m.Path = model.PathMatch{Type: model.PathMatchRegex, Value: spec.SafeRegex.GetRegex()}
		}
	}

	for _, h := range wire.GetHeaders() {
		m.Headers = append(m.Headers, extractHeaderMatcher(h))
	}
	for _, q := range wire.GetQueryParameters() {
		m.QueryParams = append(m.QueryParams, extractQueryParamMatcher(q))
	}

	return m
}

func extractHeaderMatcher(wire *routev3.HeaderMatcher) model.HeaderMatch {
	h := model.HeaderMatch{Name: wire.GetName()}
	switch spec := wire.GetHeaderMatchSpecifier().(type) {
	case *routev3.HeaderMatcher_ExactMatch:
		v := spec.ExactMatch
		h.Value = &v
	case *routev3.HeaderMatcher_SafeRegexMatch:
		v := spec.SafeRegexMatch.GetRegex()
		h.Regex = &v
	case *routev3.HeaderMatcher_PresentMatch:
		v := spec.PresentMatch
		h.Present = &v
	}
	return h
}

func extractQueryParamMatcher(wire *routev3.QueryParameterMatcher) model.QueryParamMatch {
	q := model.QueryParamMatch{Name: wire.GetName()}
	switch spec := wire.GetQueryParameterMatchSpecifier().(type) {
	case *routev3.QueryParameterMatcher_StringMatch:
		switch pattern := spec.StringMatch.GetMatchPattern().(type) {
		case *matcherv3.StringMatcher_Exact:
			v := pattern.Exact
			q.Value = &v
		case *matcherv3.StringMatcher_SafeRegex:
			v := pattern.SafeRegex.GetRegex()
			q.Regex = &v
		}
	case *routev3.QueryParameterMatcher_PresentMatch:
		v := spec.PresentMatch
		q.Present = &v
	}
	return q
}

func extractAction(wire *routev3.Route) model.RouteAction {
	switch action := wire.GetAction().(type) {
	case *routev3.Route_Route:
		ra := action.Route
		switch spec := ra.GetClusterSpecifier().(type) {
		case *routev3.RouteAction_Cluster:
			out := model.RouteAction{Type: model.RouteActionForward, Cluster: spec.Cluster}
			if ra.GetTimeout() != nil {
				seconds := int64(ra.GetTimeout().AsDuration().Seconds())
				out.TimeoutSeconds = &seconds
			}
			if ra.GetPrefixRewrite() != "" {
				v := ra.GetPrefixRewrite()
				out.PrefixRewrite = &v
			}
			if policy := ra.GetPathRewritePolicy(); policy != nil && policy.GetTypedConfig() != nil {
				cfg := &pathrewritev3.UriTemplateRewriteConfig{}
				if err := policy.GetTypedConfig().UnmarshalTo(cfg); err == nil {
					v := cfg.GetPathTemplateRewrite()
					out.TemplateRewrite = &v
				}
			}
			return out
		case *routev3.RouteAction_WeightedClusters:
			out := model.RouteAction{Type: model.RouteActionWeighted}
			for _, c := range spec.WeightedClusters.GetClusters() {
				out.Clusters = append(out.Clusters, model.WeightedCluster{
					Name:                 c.GetName(),
					Weight:               c.GetWeight().GetValue(),
					TypedPerFilterConfig: extractPerFilterConfigMap(c.GetTypedPerFilterConfig()),
				})
			}
			if spec.WeightedClusters.GetTotalWeight() != nil {
				v := spec.WeightedClusters.GetTotalWeight().GetValue()
				out.TotalWeight = &v
			}
			return out
		}
	case *routev3.Route_Redirect:
		out := model.RouteAction{Type: model.RouteActionRedirect}
		if action.Redirect.GetHostRedirect() != "" {
			v := action.Redirect.GetHostRedirect()
			out.HostRedirect = &v
		}
		if pr, ok := action.Redirect.GetPathRewriteSpecifier().(*routev3.RedirectAction_PathRedirect); ok {
			v := pr.PathRedirect
			out.PathRedirect = &v
		}
		code := responseCodeFromWire(action.Redirect.GetResponseCode())
		out.ResponseCode = &code
		return out
	}

	return model.RouteAction{}
}

// buildPerFilterConfigMap wraps each scoped filter config into its Any
// encoding: local_ratelimit gets the strongly-typed Envoy filter message,
// anything else is carried as an opaque xds.type.v3.TypedStruct.
func buildPerFilterConfigMap(cfgs map[string]model.FilterConfig) (map[string]*anypb.Any, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}
	out := make(map[string]*anypb.Any, len(cfgs))
	for name, cfg := range cfgs {
		packed, err := buildPerFilterConfig(name, cfg)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", name, err)
		}
		out[name] = packed
	}
	return out, nil
}

func buildPerFilterConfig(name string, cfg model.FilterConfig) (*anypb.Any, error) {
	if name == "envoy.filters.http.local_ratelimit" || name == "local_ratelimit" {
		if lrl, ok := buildLocalRateLimit(cfg); ok {
			return anypb.New(lrl)
		}
	}

	st, err := structpb.NewStruct(cfg)
	if err != nil {
		return nil, err
	}
	return anypb.New(&xdstypev3.TypedStruct{
		TypeUrl: "type.googleapis.com/" + name,
		Value:   st,
	})
}

func buildLocalRateLimit(cfg model.FilterConfig) (*localratelimitv3.LocalRateLimit, bool) {
	maxTokens, ok1 := toUint32(cfg["max_tokens"])
	tokensPerFill, ok2 := toUint32(cfg["tokens_per_fill"])
	fillIntervalMs, ok3 := toUint32(cfg["fill_interval_ms"])
	if !ok1 || !ok2 || !ok3 {
		return nil, false
	}
	return &localratelimitv3.LocalRateLimit{
		StatPrefix: "local_rate_limiter",
		TokenBucket: &typev3.TokenBucket{
			MaxTokens:     maxTokens,
			TokensPerFill: wrapperspb.UInt32(tokensPerFill),
			FillInterval:  durationpb.New(time.Duration(fillIntervalMs) * time.Millisecond),
		},
	}, true
}

func extractPerFilterConfigMap(wire map[string]*anypb.Any) map[string]model.FilterConfig {
	if len(wire) == 0 {
		return nil
	}
	out := make(map[string]model.FilterConfig, len(wire))
	for name, any := range wire {
		out[name] = extractPerFilterConfig(any)
	}
	return out
}

func extractPerFilterConfig(any *anypb.Any) model.FilterConfig {
	if lrl := new(localratelimitv3.LocalRateLimit); any.UnmarshalTo(lrl) == nil && lrl.GetTokenBucket() != nil {
		return model.FilterConfig{
			"max_tokens":       lrl.GetTokenBucket().GetMaxTokens(),
			"tokens_per_fill":  lrl.GetTokenBucket().GetTokensPerFill().GetValue(),
			"fill_interval_ms": uint32(lrl.GetTokenBucket().GetFillInterval().AsDuration().Milliseconds()),
		}
	}

	ts := &xdstypev3.TypedStruct{}
	if err := any.UnmarshalTo(ts); err == nil && ts.GetValue() != nil {
		return ts.GetValue().AsMap()
	}
	return model.FilterConfig{}
}

func toUint32(v interface{}) (uint32, bool) {
	switch n := v.(type) {
	case uint32:
		return n, true
	case int:
		return uint32(n), true
	case int64:
		return uint32(n), true
	case float64:
		return uint32(n), true
	default:
		return 0, false
	}
}

func responseCodeName(code uint32) string {
	switch code {
	case 301:
		return "MOVED_PERMANENTLY"
	case 302:
		return "FOUND"
	case 303:
		return "SEE_OTHER"
	case 307:
		return "TEMPORARY_REDIRECT"
	case 308:
		return "PERMANENT_REDIRECT"
	default:
		return "FOUND"
	}
}

// responseCodeFromWire is responseCodeName's inverse: RedirectResponseCode is
// a small named enum (0-4), not the HTTP status itself, so reconstructing
// ResponseCode has to map the enum name back to its status code rather than
// casting the enum ordinal directly.
func responseCodeFromWire(code routev3.RedirectAction_RedirectResponseCode) uint32 {
	switch code {
	case routev3.RedirectAction_MOVED_PERMANENTLY:
		return 301
	case routev3.RedirectAction_SEE_OTHER:
		return 303
	case routev3.RedirectAction_TEMPORARY_REDIRECT:
		return 307
	case routev3.RedirectAction_PERMANENT_REDIRECT:
		return 308
	default:
		return 302
	}
}
