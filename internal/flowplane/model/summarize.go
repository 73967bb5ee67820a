package model

import "fmt"

// PathPrefixSummary implements §4.C's pathPrefix summarization: the first
// route's path match rendered as its value (Exact/Prefix), "regex:{value}"
// (Regex), "template:{template}" (Template), falling back to "*".
func (r *RouteConfiguration) PathPrefixSummary() string {
	rule, ok := firstRule(r)
	if !ok {
		return "*"
	}
	switch rule.Match.Path.Type {
	case PathMatchExact, PathMatchPrefix:
		return rule.Match.Path.Value
	case PathMatchRegex:
		return fmt.Sprintf("regex:%s", rule.Match.Path.Value)
	case PathMatchTemplate:
		return fmt.Sprintf("template:%s", rule.Match.Path.Template)
	default:
		return "*"
	}
}

// ClusterTargetsSummary implements §4.C's clusterTargets summarization: the
// first route's cluster for Forward, the first weighted cluster's name for
// Weighted, "__redirect__" for Redirect, or "unknown".
func (r *RouteConfiguration) ClusterTargetsSummary() string {
	rule, ok := firstRule(r)
	if !ok {
		return "unknown"
	}
	switch rule.Action.Type {
	case RouteActionForward:
		if rule.Action.Cluster == "" {
			return "unknown"
		}
		return rule.Action.Cluster
	case RouteActionWeighted:
		if len(rule.Action.Clusters) == 0 {
			return "unknown"
		}
		return rule.Action.Clusters[0].Name
	case RouteActionRedirect:
		return "__redirect__"
	default:
		return "unknown"
	}
}

// SummarizeRouteConfiguration adapts PathPrefixSummary/ClusterTargetsSummary
// to repository.Summarizer[RouteConfiguration]'s by-value shape.
func SummarizeRouteConfiguration(r RouteConfiguration) (pathPrefix, clusterTargets string) {
	return r.PathPrefixSummary(), r.ClusterTargetsSummary()
}

func firstRule(r *RouteConfiguration) (*RouteRule, bool) {
	for vi := range r.VirtualHosts {
		vh := &r.VirtualHosts[vi]
		if len(vh.Routes) > 0 {
			return &vh.Routes[0], true
		}
	}
	return nil, false
}
