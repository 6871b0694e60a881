package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloud-wave-best-zizon/concierge-service/internal/events"
	"github.com/cloud-wave-best-zizon/concierge-service/internal/handler"
	"github.com/cloud-wave-best-zizon/concierge-service/internal/notifier"
	"github.com/cloud-wave-best-zizon/concierge-service/internal/repository"
	"github.com/cloud-wave-best-zizon/concierge-service/internal/service"
	"github.com/cloud-wave-best-zizon/concierge-service/pkg/config"
	"github.com/cloud-wave-best-zizon/concierge-service/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Info("Service configuration",
		zap.String("port", cfg.Port),
		zap.String("record_table", cfg.RecordTableName),
		zap.String("kafka_brokers", cfg.KafkaBrokers),
		zap.Bool("slack_configured", cfg.SlackWebhookURL != ""))

	// Initialize components
	dynamoClient, err := repository.NewDynamoDBClient(cfg)
	if err != nil {
		log.Fatal("Failed to create DynamoDB client:", err)
	}

	eventProducer, err := events.NewProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		log.Fatal("Failed to create event producer:", err)
	}
	defer eventProducer.Close()

	recordStore := repository.NewRecordStore(dynamoClient, cfg.RecordTableName)
	slackNotifier := notifier.NewSlackNotifier(cfg.SlackWebhookURL, cfg.SlackDefaultChannel, logger)
	conciergeService := service.NewConciergeService(recordStore, slackNotifier, eventProducer, logger)
	toolHandler := handler.NewToolHandler(conciergeService, logger)

	// Setup Gin Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.RequestID())

	router.POST("/mcp", toolHandler.Handle)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			status := gin.H{
				"status":  "healthy",
				"service": "concierge-service",
				"port":    cfg.Port,
			}
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			if err := recordStore.Ping(ctx); err != nil {
				status["record_store"] = "unhealthy"
				c.JSON(503, status)
				return
			}
			status["record_store"] = "healthy"
			if err := eventProducer.HealthCheck(); err != nil {
				status["kafka"] = "unhealthy"
				c.JSON(503, status)
				return
			}
			status["kafka"] = "healthy"
			c.JSON(200, status)
		})
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}
