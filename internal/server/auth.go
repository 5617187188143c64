package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"routerx/internal/store"
)

// TenantResolver maps an API key to its tenant. Satisfied by the store.
type TenantResolver interface {
	GetTenantByAPIKey(ctx context.Context, key string) (*store.Tenant, error)
}

const (
	tenantContextKey = "routerx.tenant"
	apiKeyContextKey = "routerx.api_key"
)

// APIKeyMiddleware authenticates requests with a tenant API key from the
// Authorization header and stores the tenant on the request context.
func APIKeyMiddleware(resolver TenantResolver, skipPaths []string) echo.MiddlewareFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip[c.Request().URL.Path] {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return authError(c, "missing authorization header")
			}

			const prefix = "Bearer "
			if !strings.HasPrefix(authHeader, prefix) {
				return authError(c, "invalid authorization header format, expected 'Bearer <token>'")
			}

			key := strings.TrimPrefix(authHeader, prefix)
			tenant, err := resolver.GetTenantByAPIKey(c.Request().Context(), key)
			if err != nil {
				return authError(c, "invalid api key")
			}
			if tenant.Suspended {
				return c.JSON(http.StatusForbidden, map[string]interface{}{
					"error": map[string]interface{}{
						"type":    "authentication_error",
						"message": "account suspended",
					},
				})
			}

			c.Set(tenantContextKey, tenant)
			c.Set(apiKeyContextKey, key)
			return next(c)
		}
	}
}

func authError(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "authentication_error",
			"message": message,
		},
	})
}

// tenantFrom returns the authenticated tenant, or nil outside the
// middleware.
func tenantFrom(c echo.Context) *store.Tenant {
	tenant, _ := c.Get(tenantContextKey).(*store.Tenant)
	return tenant
}

// apiKeyFrom returns the raw API key the request authenticated with.
func apiKeyFrom(c echo.Context) string {
	key, _ := c.Get(apiKeyContextKey).(string)
	return key
}
