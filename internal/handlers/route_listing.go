package handlers

import (
	"sort"
	"strings"

	"telugulearn/internal/observability"
	"telugulearn/internal/version"

	"github.com/gin-gonic/gin"
)

// RouteInfo represents information about a single route
type RouteInfo struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	HandlerName string `json:"handler_name"`
}

// RouteListingHandler serves an index of the registered routes at /
type RouteListingHandler struct {
	serviceName string
	routes      []RouteInfo
	groups      map[string][]RouteInfo
}

// NewRouteListingHandler creates a new route listing handler
func NewRouteListingHandler(serviceName string) *RouteListingHandler {
	return &RouteListingHandler{
		serviceName: serviceName,
		groups:      map[string][]RouteInfo{},
	}
}

// CollectRoutes snapshots the routes of engine, sorted by path then method
func (h *RouteListingHandler) CollectRoutes(engine *gin.Engine) {
	h.routes = h.routes[:0]
	h.groups = map[string][]RouteInfo{}

	for _, route := range engine.Routes() {
		if strings.HasPrefix(route.Path, "/debug/") {
			continue
		}
		h.routes = append(h.routes, RouteInfo{
			Method:      route.Method,
			Path:        route.Path,
			HandlerName: route.Handler,
		})
	}

	sort.Slice(h.routes, func(i, j int) bool {
		if h.routes[i].Path == h.routes[j].Path {
			return h.routes[i].Method < h.routes[j].Method
		}
		return h.routes[i].Path < h.routes[j].Path
	})

	for _, route := range h.routes {
		group := routeGroup(route.Path)
		h.groups[group] = append(h.groups[group], route)
	}
}

// routeGroup returns "/api/<family>" for API routes and the first segment otherwise
func routeGroup(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case segments[0] == "":
		return "/"
	case segments[0] == "api" && len(segments) > 1:
		return "/api/" + segments[1]
	default:
		return "/" + segments[0]
	}
}

// Routes returns the collected routes
func (h *RouteListingHandler) Routes() []RouteInfo {
	return h.routes
}

// GetRouteListingJSON returns the route index in the success envelope
func (h *RouteListingHandler) GetRouteListingJSON(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_route_listing")
	defer observability.FinishSpan(span, nil)

	respondOK(c, h.serviceName+" routes", gin.H{
		"service":     h.serviceName,
		"version":     version.Version,
		"total":       len(h.routes),
		"counts":      h.countMethods(),
		"groups":      h.groups,
		"group_count": len(h.groups),
	})
}

// countMethods counts routes per HTTP method
func (h *RouteListingHandler) countMethods() map[string]int {
	counts := make(map[string]int)
	for _, route := range h.routes {
		counts[route.Method]++
	}
	return counts
}
