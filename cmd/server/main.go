package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/wilson1442/Webhook-Hub/internal/api"
	"github.com/wilson1442/Webhook-Hub/internal/api/handlers"
	"github.com/wilson1442/Webhook-Hub/internal/api/middleware"
	"github.com/wilson1442/Webhook-Hub/internal/engine/dispatch"
	"github.com/wilson1442/Webhook-Hub/internal/pkg/logger"
	"github.com/wilson1442/Webhook-Hub/internal/platform/auth"
	"github.com/wilson1442/Webhook-Hub/internal/platform/config"
	"github.com/wilson1442/Webhook-Hub/internal/platform/database"
	"github.com/wilson1442/Webhook-Hub/internal/platform/integrations"
	"github.com/wilson1442/Webhook-Hub/internal/platform/models"
	"github.com/wilson1442/Webhook-Hub/internal/platform/repositories"
	"github.com/wilson1442/Webhook-Hub/internal/platform/secrets"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	sealer, err := secrets.NewSealer(cfg.Integrations.EncryptionKey)
	if err != nil {
		log.Fatalf("Failed to initialize credential sealer: %v", err)
	}

	// Repositories
	endpointRepo := repositories.NewEndpointRepository(db)
	logRepo := repositories.NewLogRepository(db)
	integrationRepo := repositories.NewIntegrationRepository(db, sealer)

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)
	clientFactory := func(integration *models.Integration) (integrations.Client, error) {
		return integrations.NewClient(integration, cfg.Integrations, cfg.Dispatch.Timeout)
	}
	engine := dispatch.NewEngine(endpointRepo, logRepo, integrationRepo, clientFactory, cfg.Dispatch)

	// Handlers
	hookHandler := handlers.NewHookHandler(engine)
	endpointHandler := handlers.NewEndpointHandler(endpointRepo)
	logHandler := handlers.NewLogHandler(logRepo, engine)
	integrationHandler := handlers.NewIntegrationHandler(integrationRepo)
	dashboardHandler := handlers.NewDashboardHandler(endpointRepo, logRepo)
	healthHandler := handlers.NewHealthHandler(db)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)

	// Router
	deps := &api.Dependencies{
		HookHandler:        hookHandler,
		EndpointHandler:    endpointHandler,
		LogHandler:         logHandler,
		IntegrationHandler: integrationHandler,
		DashboardHandler:   dashboardHandler,
		HealthHandler:      healthHandler,
		AuthMiddleware:     authMiddleware,
		RateLimiter:        rateLimiter,
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  orDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: orDuration(cfg.Server.WriteTimeout, 30*time.Second),
		IdleTimeout:  orDuration(cfg.Server.IdleTimeout, 60*time.Second),
	}

	log.Printf("Server starting on %s", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func orDuration(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
