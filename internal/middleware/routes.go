package middleware

import "strings"

// Route labels shared by metrics, tracing and rate limiting.
const (
	RouteFeed      = "/feed"
	RouteHealth    = "/health"
	RouteReady     = "/ready"
	RouteMetrics   = "/metrics"
	RouteRoot      = "/"
	RouteUnmatched = "unmatched"

	pprofRoute = "/debug/pprof"
)

var knownRoutes = map[string]struct{}{
	RouteRoot:    {},
	RouteFeed:    {},
	RouteHealth:  {},
	RouteReady:   {},
	RouteMetrics: {},
}

// routeLabel maps a request path onto the bounded set of routes the server
// serves. /feed/ shares the /feed label, every pprof page collapses onto
// /debug/pprof and anything else is RouteUnmatched.
func routeLabel(path string) string {
	if _, ok := knownRoutes[path]; ok {
		return path
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		if _, ok := knownRoutes[path[:len(path)-1]]; ok {
			return path[:len(path)-1]
		}
	}
	if isPprofPath(path) {
		return pprofRoute
	}
	return RouteUnmatched
}

func isPprofPath(path string) bool {
	return path == pprofRoute || strings.HasPrefix(path, pprofRoute+"/")
}

// isHealthCheck reports whether path is the liveness or readiness endpoint.
func isHealthCheck(path string) bool {
	return path == RouteHealth || path == RouteReady
}
