package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/boursa/brokerage-api/internal/auth"
	"github.com/boursa/brokerage-api/internal/clients"
	"github.com/boursa/brokerage-api/internal/config"
	"github.com/boursa/brokerage-api/internal/database"
	"github.com/boursa/brokerage-api/internal/documents"
	"github.com/boursa/brokerage-api/internal/orders"
	"github.com/boursa/brokerage-api/internal/pricing"
	"github.com/boursa/brokerage-api/internal/securities"
	"github.com/boursa/brokerage-api/internal/stats"
	"github.com/boursa/brokerage-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the brokerage order API server with graceful
// shutdown support
func main() {
	cfg := config.Load()

	// Initialize database
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)
	authService.RegisterAgentCredentials(auth.TestAgentKey, auth.TestAgentSecret)

	rates := pricing.Rates{
		Action:       cfg.CommissionAction,
		Obligation:   cfg.CommissionObligation,
		Sukuk:        cfg.CommissionSukuk,
		Participatif: cfg.CommissionParticipatif,
	}

	securityService := securities.NewService(db)
	securityHandlers := securities.NewGinHandlers(securityService)

	clientService := clients.NewService(db)
	clientHandlers := clients.NewGinHandlers(clientService)

	documentService := documents.NewService(db, cfg.UploadDir, cfg.MaxUploadSizeBytes)
	documentHandlers := documents.NewGinHandlers(documentService)

	orderService := orders.NewService(db, rates, cfg.VisaCOSOB)
	orderHandlers := orders.NewGinHandlers(orderService, documentService)

	statsService := stats.NewService(db)
	statsHandlers := stats.NewGinHandlers(statsService)

	// Create and start the order expiry processor
	expiryProcessor := orders.NewProcessor(orderService.GetDB(), cfg.DocumentDeadline)
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go expiryProcessor.Start(processorCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg.JWTSecret, authHandlers, securityHandlers, clientHandlers,
		orderHandlers, documentHandlers, statsHandlers)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Order/workflow/document routes: Protected by JWT authentication
// - Agent routes: Protected by the agent permission
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	securityHandlers *securities.GinHandlers,
	clientHandlers *clients.GinHandlers,
	orderHandlers *orders.GinHandlers,
	documentHandlers *documents.GinHandlers,
	statsHandlers *stats.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Reference data routes
		reference := v1.Group("")
		reference.Use(middleware.JWTAuth(jwtSecret))
		{
			reference.GET("/securities", securityHandlers.ListSecuritiesHandler())
			reference.GET("/securities/:security_id", securityHandlers.GetSecurityHandler())
			reference.GET("/clients", clientHandlers.ListClientsHandler())
			reference.GET("/clients/:client_id", clientHandlers.GetClientHandler())
		}

		// Order routes
		orderGroup := v1.Group("/orders")
		orderGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			orderGroup.POST("", orderHandlers.CreateOrderHandler())
			orderGroup.GET("/:order_id", orderHandlers.GetOrderStatusHandler())
		}

		// Order-composition workflow routes
		workflows := v1.Group("/workflows")
		workflows.Use(middleware.JWTAuth(jwtSecret))
		{
			workflows.POST("", orderHandlers.StartWorkflowHandler())
			workflows.GET("/:workflow_id", orderHandlers.GetWorkflowHandler())
			workflows.POST("/:workflow_id/security", orderHandlers.SelectSecurityHandler())
			workflows.POST("/:workflow_id/client", orderHandlers.SelectClientHandler())
			workflows.POST("/:workflow_id/subscriber", orderHandlers.CaptureSubscriberHandler())
			workflows.POST("/:workflow_id/back", orderHandlers.StepBackHandler())
			workflows.POST("/:workflow_id/submit", orderHandlers.SubmitWorkflowHandler())
			workflows.POST("/:workflow_id/bulletin", orderHandlers.UploadBulletinHandler())
		}

		// Document routes
		fileManager := v1.Group("/file-manager")
		fileManager.Use(middleware.JWTAuth(jwtSecret))
		{
			fileManager.POST("/upload/:key", documentHandlers.UploadHandler())
			fileManager.POST("/upload-batch/:key", documentHandlers.BatchUploadHandler())
			fileManager.GET("/documents/:key", documentHandlers.ListHandler())
		}

		// Back-office routes (agent permission required)
		agent := v1.Group("/agent")
		agent.Use(middleware.AgentAuth(jwtSecret))
		{
			agent.POST("/securities", securityHandlers.CreateSecurityHandler())
			agent.PUT("/securities/:security_id", securityHandlers.UpdateSecurityHandler())
			agent.DELETE("/securities/:security_id", securityHandlers.DeleteSecurityHandler())
			agent.POST("/clients", clientHandlers.CreateClientHandler())
			agent.GET("/stats", statsHandlers.SummaryHandler())
		}
	}
}
