package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// Profiling runs each request under Pyroscope labels (controller, route
// pattern, method and, on dashboard routes, store_id) so CPU and allocation
// samples can be sliced per endpoint. Requests to skip paths run unlabelled.
func Profiling(skip ...string) gin.HandlerFunc {
	if len(skip) == 0 {
		skip = []string{"/health", "/ready"}
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if _, ok := skipped[c.Request.URL.Path]; ok || route == "" {
			c.Next()
			return
		}

		labels := telemetry.HTTPRequestLabels(resourceOf(route), route, c.Request.Method, c.Param(StoreIDParam))
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceOf names the resource a route pattern serves. The api prefix, the
// version and the store scope are not resources.
//
//	/api/v1/stores/:storeId/orders/export -> orders
//	/api/v1/shop/:storeSlug/carts/:token  -> carts
//	/api/v1/stores/:storeId               -> stores
func resourceOf(route string) string {
	parts := strings.Split(strings.Trim(route, "/"), "/")
	scope := ""
	for i := 0; i < len(parts); i++ {
		part := parts[i]
		switch {
		case part == "" || part == "api" || isVersion(part) || strings.HasPrefix(part, ":"):
			continue
		case (part == "stores" || part == "shop") && i+1 < len(parts) && strings.HasPrefix(parts[i+1], ":"):
			scope = part
			i++
			continue
		}
		return part
	}
	return scope
}

func isVersion(segment string) bool {
	if len(segment) < 2 || segment[0] != 'v' {
		return false
	}
	for _, r := range segment[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
