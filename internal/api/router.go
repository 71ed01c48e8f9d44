package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "github.com/wilson1442/Webhook-Hub/internal/api/context"
	"github.com/wilson1442/Webhook-Hub/internal/api/handlers"
	"github.com/wilson1442/Webhook-Hub/internal/api/middleware"
	"github.com/wilson1442/Webhook-Hub/internal/pkg/errors"
	"github.com/wilson1442/Webhook-Hub/internal/platform/auth"
)

type Dependencies struct {
	HookHandler        *handlers.HookHandler
	EndpointHandler    *handlers.EndpointHandler
	LogHandler         *handlers.LogHandler
	IntegrationHandler *handlers.IntegrationHandler
	DashboardHandler   *handlers.DashboardHandler
	HealthHandler      *handlers.HealthHandler
	AuthMiddleware     *middleware.AuthMiddleware
	RateLimiter        *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.GET("/health", wrap(deps.HealthHandler.Check))

	// Public inbound webhook receiver. Authenticated per-request via
	// the endpoint's secret token, not a bearer JWT.
	router.POST("/api/hooks/:path",
		chain(deps.HookHandler.Receive, deps.RateLimiter.Limit(middleware.LimitHook)))

	authMid := deps.AuthMiddleware
	writeLimit := deps.RateLimiter.Limit(middleware.LimitAPIWrite)

	// Endpoint management
	router.POST("/api/v1/webhooks/endpoints",
		chain(deps.EndpointHandler.Create, authMid.Handle, writeLimit))
	router.GET("/api/v1/webhooks/endpoints",
		chain(deps.EndpointHandler.List, authMid.Handle))
	router.GET("/api/v1/webhooks/endpoints/:endpoint_id",
		chain(deps.EndpointHandler.Get, authMid.Handle))
	router.PATCH("/api/v1/webhooks/endpoints/:endpoint_id",
		chain(deps.EndpointHandler.Update, authMid.Handle, writeLimit))
	router.DELETE("/api/v1/webhooks/endpoints/:endpoint_id",
		chain(deps.EndpointHandler.Delete, authMid.Handle, writeLimit))
	router.POST("/api/v1/webhooks/endpoints/:endpoint_id/regenerate-token",
		chain(deps.EndpointHandler.RegenerateToken, authMid.Handle, writeLimit))
	router.GET("/api/v1/webhooks/endpoints/:endpoint_id/sample",
		chain(deps.EndpointHandler.SamplePayload, authMid.Handle))

	// Dispatch logs. Bulk purge lives on the collection; export gets
	// its own segment because :log_id claims the one under /logs.
	router.GET("/api/v1/webhooks/logs",
		chain(deps.LogHandler.List, authMid.Handle))
	router.DELETE("/api/v1/webhooks/logs",
		chain(deps.LogHandler.Purge, authMid.Handle, requireRole("admin")))
	router.GET("/api/v1/webhooks/export",
		chain(deps.LogHandler.ExportCSV, authMid.Handle))
	router.GET("/api/v1/webhooks/logs/:log_id",
		chain(deps.LogHandler.Get, authMid.Handle))
	router.POST("/api/v1/webhooks/logs/:log_id/retry",
		chain(deps.LogHandler.Retry, authMid.Handle, writeLimit))
	router.DELETE("/api/v1/webhooks/logs/:log_id",
		chain(deps.LogHandler.Delete, authMid.Handle, writeLimit))

	// Integration credentials
	router.GET("/api/v1/integrations",
		chain(deps.IntegrationHandler.List, authMid.Handle))
	router.PUT("/api/v1/integrations/:service",
		chain(deps.IntegrationHandler.Upsert, authMid.Handle, requireRole("admin")))
	router.DELETE("/api/v1/integrations/:service",
		chain(deps.IntegrationHandler.Delete, authMid.Handle, requireRole("admin")))

	// Dashboard
	router.GET("/api/v1/dashboard/stats",
		chain(deps.DashboardHandler.Stats, authMid.Handle))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

func requireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

			allowed := false
			for _, role := range roles {
				if claims.Role == role {
					allowed = true
					break
				}
			}

			if !allowed {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}

			next(w, r)
		}
	}
}
