package main

import (
	"fmt"
	"net/http"
	"os"

	"valore/internal/config"
	"valore/internal/database"
	"valore/internal/handlers"
	"valore/internal/logger"
	"valore/internal/middleware"
	"valore/internal/services"
	"valore/internal/validator"

	"github.com/gin-gonic/gin"
)

// @title           Valore API
// @version         1.0
// @description     Valore is a portfolio analytics engine: ledger-based positions, multi-currency valuation, performance measurement, rebalancing, and recurring investment plans.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom binding validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	assetService := services.NewAssetService(db)
	portfolioService := services.NewPortfolioService(db)
	transactionService := services.NewTransactionService(db)
	priceService := services.NewPriceService(db, appConfig.PriceFetchConcurrency, appConfig.PriceProviderTimeout)
	analyticsService := services.NewAnalyticsService(db, priceService)
	targetService := services.NewTargetService(db)
	rebalanceService := services.NewRebalanceService(db, priceService, transactionService)
	pacService := services.NewPacService(db, priceService, transactionService)
	importService := services.NewImportService(db, assetService, transactionService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	assetHandler := handlers.NewAssetHandler(assetService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	targetHandler := handlers.NewTargetHandler(targetService)
	rebalanceHandler := handlers.NewRebalanceHandler(rebalanceService)
	pacHandler := handlers.NewPacHandler(pacService)
	importHandler := handlers.NewImportHandler(importService)
	pipelineHandler := handlers.NewPipelineHandler(assetService, priceService, pacService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Asset routes
	assets := protected.Group("/assets")
	assets.POST("", assetHandler.CreateAsset)
	assets.GET("", assetHandler.SearchAssets)
	assets.GET("/:id", assetHandler.GetAssetByID)
	assets.PUT("/:id", assetHandler.UpdateAsset)
	assets.DELETE("/:id", assetHandler.DeactivateAsset)

	// Portfolio routes
	portfolios := protected.Group("/portfolios")
	portfolios.POST("", portfolioHandler.CreatePortfolio)
	portfolios.GET("", portfolioHandler.GetUserPortfolios)
	portfolios.GET("/:id", portfolioHandler.GetPortfolioByID)
	portfolios.PUT("/:id", portfolioHandler.UpdatePortfolio)
	portfolios.DELETE("/:id", portfolioHandler.DeletePortfolio)

	// Ledger routes
	portfolios.POST("/:id/transactions", transactionHandler.CreateTransaction)
	portfolios.GET("/:id/transactions", transactionHandler.GetPortfolioTransactions)
	transactions := protected.Group("/transactions")
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Analytics routes
	portfolios.GET("/:id/positions", analyticsHandler.GetPositions)
	portfolios.GET("/:id/summary", analyticsHandler.GetSummary)
	portfolios.GET("/:id/allocation", analyticsHandler.GetAllocation)
	portfolios.GET("/:id/performance", analyticsHandler.GetPerformance)

	// Target allocation and rebalancing routes
	portfolios.PUT("/:id/targets", targetHandler.SetTargets)
	portfolios.GET("/:id/targets", targetHandler.GetTargets)
	portfolios.DELETE("/:id/targets/:assetID", targetHandler.DeleteTarget)
	portfolios.POST("/:id/rebalance/preview", rebalanceHandler.PreviewRebalance)
	portfolios.POST("/:id/rebalance/commit", rebalanceHandler.CommitRebalance)

	// Recurring plan routes
	portfolios.POST("/:id/pac-rules", pacHandler.CreatePacRule)
	portfolios.GET("/:id/pac-rules", pacHandler.GetPortfolioPacRules)
	pacRules := protected.Group("/pac-rules")
	pacRules.PUT("/:id", pacHandler.UpdatePacRule)
	pacRules.DELETE("/:id", pacHandler.DeletePacRule)
	pacRules.POST("/:id/generate", pacHandler.GeneratePacExecutions)
	pacRules.GET("/:id/executions", pacHandler.GetPacExecutions)
	pacExecutions := protected.Group("/pac-executions")
	pacExecutions.POST("/:id/confirm", pacHandler.ConfirmPacExecution)
	pacExecutions.POST("/:id/skip", pacHandler.SkipPacExecution)

	// CSV import routes
	portfolios.POST("/:id/imports", importHandler.CreateImportBatch)
	imports := protected.Group("/imports")
	imports.GET("/:id", importHandler.GetImportBatch)
	imports.POST("/:id/commit", importHandler.CommitImportBatch)
	imports.POST("/:id/discard", importHandler.DiscardImportBatch)

	// Pipeline routes (API-key authenticated, used by the oracle runner)
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(appConfig.PipelineAPIKey))
	pipeline.GET("/assets", pipelineHandler.ListPipelineAssets)
	pipeline.POST("/prices", pipelineHandler.RecordPrices)
	pipeline.POST("/fx-rates", pipelineHandler.RecordFxRates)
	pipeline.POST("/pac/run", pipelineHandler.RunPacScheduler)

	log.Infof("Starting Valore backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
