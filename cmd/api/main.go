package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"code-arena-backend/internal/config"
	"code-arena-backend/internal/handlers"
	"code-arena-backend/internal/middleware"
	"code-arena-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)
	metrics := services.NewMetrics()

	wsHandler := handlers.NewWebSocketHandler(redisService)

	matchmaker := services.NewMatchmaker(redisService, metrics, wsHandler, cfg.PrizeMultiplier)
	settlement := services.NewSettlementEngine(redisService, metrics, wsHandler)
	supervisor := services.NewLifecycleSupervisor(redisService, settlement, metrics, cfg)

	go supervisor.Run(context.Background())

	authHandler := handlers.NewAuthHandler(redisService, jwtService)
	battleHandler := handlers.NewBattleHandler(matchmaker, settlement, redisService, cfg)
	walletHandler := handlers.NewWalletHandler(redisService)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/auth/token", authHandler.IssueToken)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/ws", wsHandler.HandleWebSocket)

		battles := protected.Group("/battles")
		{
			battles.POST("/match", battleHandler.RequestMatch)
			battles.GET("/waiting", battleHandler.ListWaiting)
			battles.GET("/mine", battleHandler.MyBattles)
			battles.GET("/:id", battleHandler.GetTicket)
			battles.POST("/:id/cancel", battleHandler.Cancel)
			battles.POST("/:id/ready", battleHandler.Ready)
			battles.POST("/:id/result", battleHandler.Result)
		}

		wallet := protected.Group("/wallet")
		{
			wallet.GET("/balance", walletHandler.GetBalance)
			wallet.GET("/transactions", walletHandler.GetTransactions)
		}

		protected.POST("/admin/challenges", battleHandler.SeedChallenges)
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
